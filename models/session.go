package models

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nbd-wtf/go-nostr"
)

// SessionState is the portal flow state machine position.
type SessionState string

const (
	SessionLoading    SessionState = "loading"
	SessionError      SessionState = "error"
	SessionReady      SessionState = "ready"
	SessionSubmitting SessionState = "submitting"
	SessionSuccess    SessionState = "success"
)

// Session holds the mutable per-session portal state. All state is confined
// to the session; nothing is shared across sessions or persisted. Mutation
// is coordinated by the session logic, not by the struct itself.
type Session struct {
	ID            uuid.UUID        `json:"id"`
	State         SessionState     `json:"state"`
	GatewayPubkey string           `json:"gateway_pubkey,omitempty"`
	Device        DeviceInfo       `json:"device"`
	Schedule      *PricingSchedule `json:"schedule,omitempty"`
	Selected      *AccessOffer     `json:"selected,omitempty"`
	Preview       *TokenPreview    `json:"preview,omitempty"`
	Allocation    *Allocation      `json:"allocation,omitempty"`
	MintInvoice   *MintQuote       `json:"mint_invoice,omitempty"`
	LastError     *PortalError     `json:"error,omitempty"`
	CreatedAt     time.Time        `json:"created_at"`

	// Announcement is kept for receipt building (gateway pubkey) and is not
	// part of the API payload.
	Announcement *nostr.Event `json:"-"`

	// StopRetry cancels the announcement retry poller, when one is running.
	StopRetry context.CancelFunc `json:"-"`
	// CloseTimer is the advisory auto-close timer armed on success.
	CloseTimer *time.Timer `json:"-"`

	sideCtx      context.Context
	sideCancel   context.CancelFunc
	teardownOnce sync.Once
}

// MintQuote is the Lightning invoice the mint proxy produced for a minting
// request on this session.
type MintQuote struct {
	Invoice   string `json:"invoice"`
	ExpiresAt int64  `json:"expires_at"`
}

// Snapshot returns a copy of the API-visible session fields. The live
// session keeps changing under the flow controller's lock after a call
// returns, so handlers marshal the copy, never the live session. Nested
// pointers are shared: the flow controller replaces them wholesale and
// never mutates them in place, except Preview, which is copied.
func (s *Session) Snapshot() *Session {
	c := &Session{
		ID:            s.ID,
		State:         s.State,
		GatewayPubkey: s.GatewayPubkey,
		Device:        s.Device,
		Schedule:      s.Schedule,
		Selected:      s.Selected,
		Allocation:    s.Allocation,
		MintInvoice:   s.MintInvoice,
		LastError:     s.LastError,
		CreatedAt:     s.CreatedAt,
	}
	if s.Preview != nil {
		preview := *s.Preview
		c.Preview = &preview
	}
	return c
}

// SideFlowContext returns a context that external side flows (QR scan,
// clipboard prompts) must observe: it is cancelled when the session closes,
// so acquired resources are released on every exit path.
func (s *Session) SideFlowContext() context.Context {
	if s.sideCtx == nil {
		s.sideCtx, s.sideCancel = context.WithCancel(context.Background())
	}
	return s.sideCtx
}

// Teardown releases everything the session owns: the retry poller, the
// auto-close timer and any side flows. Safe to call more than once; the
// store's eviction hook and explicit close both land here.
func (s *Session) Teardown() {
	s.teardownOnce.Do(func() {
		if s.StopRetry != nil {
			s.StopRetry()
			s.StopRetry = nil
		}
		if s.CloseTimer != nil {
			s.CloseTimer.Stop()
			s.CloseTimer = nil
		}
		if s.sideCancel != nil {
			s.sideCancel()
		}
	})
}

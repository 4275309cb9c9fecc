package logic

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"github.com/OpenTollGate/tollgate-captive-portal-site/dao"
	"github.com/OpenTollGate/tollgate-captive-portal-site/i18n"
	"github.com/OpenTollGate/tollgate-captive-portal-site/models"
	"github.com/OpenTollGate/tollgate-captive-portal-site/pkg"
)

// SessionLogic drives the portal flow: fetch pricing, rank offers, preview
// tokens, submit payment, grant. One instance serves every session; all
// session mutation happens under its lock.
type SessionLogic struct {
	gateway      *pkg.GatewayClient
	sessionDAO   *dao.SessionDAO
	validator    *TokenValidator
	allocator    *Allocator
	resolve      i18n.Resolver
	pollInterval time.Duration
	autoClose    time.Duration
	closeFunc    func(id uuid.UUID)
	mintProxyURL string

	mu  sync.Mutex
	log *log.Entry
}

func NewSessionLogic(
	gateway *pkg.GatewayClient,
	sessionDAO *dao.SessionDAO,
	validator *TokenValidator,
	allocator *Allocator,
	resolve i18n.Resolver,
	pollInterval time.Duration,
	autoClose time.Duration,
) *SessionLogic {
	return &SessionLogic{
		gateway:      gateway,
		sessionDAO:   sessionDAO,
		validator:    validator,
		allocator:    allocator,
		resolve:      resolve,
		pollInterval: pollInterval,
		autoClose:    autoClose,
		log:          log.WithField("component", "session"),
	}
}

// SetCloseFunc registers the advisory auto-close hook invoked a fixed
// delay after a successful purchase. The embedding surface may ignore it.
func (l *SessionLogic) SetCloseFunc(fn func(id uuid.UUID)) {
	l.closeFunc = fn
}

// SetMintProxyAddress enables minting through the gateway's websocket mint
// proxy. Minting stays disabled while no address is configured.
func (l *SessionLogic) SetMintProxyAddress(url string) {
	l.mintProxyURL = url
}

// CreateSession starts a portal session with one combined fetch of the
// pricing announcement and device identity. On failure the session enters
// the error state and a background poller retries until the gateway
// answers. Like every session accessor, it returns a snapshot: the retry
// poller keeps rewriting the live session under the lock.
func (l *SessionLogic) CreateSession(ctx context.Context) *models.Session {
	s := &models.Session{
		ID:        uuid.New(),
		State:     models.SessionLoading,
		CreatedAt: time.Now(),
	}
	s.SideFlowContext()

	info, err := l.gateway.FetchPortalInfo(ctx)

	l.mu.Lock()
	defer l.mu.Unlock()

	if err != nil {
		l.enterErrorState(s, err)
	} else if err := l.populate(s, info); err != nil {
		l.enterErrorState(s, err)
	}

	l.sessionDAO.SaveSession(s)
	return s.Snapshot()
}

// GetSession looks a session up by its ID and returns a snapshot of it.
func (l *SessionLogic) GetSession(id string) (*models.Session, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	s, ok := l.sessionDAO.GetSession(id)
	if !ok {
		return nil, models.NewError(l.resolve, models.CodeSessionNotFound)
	}
	return s.Snapshot(), nil
}

// SelectOffer switches the session to the offer sold by mintURL and
// recomputes any token preview against the new price.
func (l *SessionLogic) SelectOffer(id, mintURL string) (*models.Session, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	s, ok := l.sessionDAO.GetSession(id)
	if !ok {
		return nil, models.NewError(l.resolve, models.CodeSessionNotFound)
	}
	if s.Schedule == nil {
		return nil, models.NewError(l.resolve, models.CodeNoOffersAvailable)
	}

	for i := range s.Schedule.Offers {
		if s.Schedule.Offers[i].MintURL == mintURL {
			offer := s.Schedule.Offers[i]
			s.Selected = &offer
			l.refreshPreview(s)
			return s.Snapshot(), nil
		}
	}
	return nil, models.NewError(l.resolve, models.CodeNoOffersAvailable)
}

// PreviewToken validates a pasted or scanned token against the selected
// offer and computes the allocation it would buy. An insufficient-funds
// condition is reported inside the preview, not as a failure, so the value
// remains visible.
func (l *SessionLogic) PreviewToken(id, token string) (*models.TokenPreview, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	s, ok := l.sessionDAO.GetSession(id)
	if !ok {
		return nil, models.NewError(l.resolve, models.CodeSessionNotFound)
	}

	value, err := l.validator.Validate(token, s.Selected)
	if err != nil && value == nil {
		s.Preview = nil
		return nil, err
	}

	preview := &models.TokenPreview{
		Value:      value,
		Allocation: l.allocator.Calculate(decimal.NewFromInt(int64(value.Amount)), s.Selected, s.Schedule),
	}
	if err != nil {
		warning, _ := models.AsPortalError(err)
		preview.Warning = warning
	}
	s.Preview = preview

	// The stored preview is recomputed in place on offer changes; hand the
	// caller its own copy.
	snap := *preview
	return &snap, nil
}

// Purchase validates the token once more, builds a freshly keyed receipt
// event and submits it. The state transition to submitting is the
// single-flight guard: a second concurrent purchase is refused until the
// first settles.
func (l *SessionLogic) Purchase(ctx context.Context, id, token string) (*models.Session, error) {
	l.mu.Lock()

	s, ok := l.sessionDAO.GetSession(id)
	if !ok {
		l.mu.Unlock()
		return nil, models.NewError(l.resolve, models.CodeSessionNotFound)
	}

	switch s.State {
	case models.SessionSubmitting:
		snap := s.Snapshot()
		l.mu.Unlock()
		return snap, models.NewError(l.resolve, models.CodeSubmissionInProgress)
	case models.SessionSuccess:
		snap := s.Snapshot()
		l.mu.Unlock()
		return snap, nil
	case models.SessionReady:
	default:
		snap := s.Snapshot()
		err := s.LastError
		l.mu.Unlock()
		if err != nil {
			return snap, err
		}
		return snap, models.NewError(l.resolve, models.CodeGatewayUnreachable)
	}

	if s.Selected == nil {
		// Ready with an empty offer set; nothing is purchasable.
		snap := s.Snapshot()
		l.mu.Unlock()
		return snap, models.NewError(l.resolve, models.CodeNoOffersAvailable)
	}

	value, err := l.validator.Validate(token, s.Selected)
	if err != nil {
		// Soft or hard, a failed validation blocks submission.
		snap := s.Snapshot()
		l.mu.Unlock()
		return snap, err
	}

	allocation := l.allocator.Calculate(decimal.NewFromInt(int64(value.Amount)), s.Selected, s.Schedule)
	gatewayPubkey := s.GatewayPubkey
	device := s.Device
	s.State = models.SessionSubmitting
	s.LastError = nil
	l.mu.Unlock()

	receipt, buildErr := pkg.BuildReceipt(gatewayPubkey, device, token)
	var submitErr error
	if buildErr != nil {
		l.log.Errorf("receipt build failed: %v", buildErr)
		submitErr = models.NewError(l.resolve, models.CodeServerError)
	} else {
		submitErr = l.gateway.SubmitReceipt(ctx, receipt)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if submitErr != nil {
		// Back to the pre-submission state; the user may retry.
		s.State = models.SessionReady
		if pe, ok := models.AsPortalError(submitErr); ok {
			s.LastError = pe
		} else {
			s.LastError = models.NewError(l.resolve, models.CodeServerError)
		}
		return s.Snapshot(), s.LastError
	}

	s.State = models.SessionSuccess
	s.Allocation = allocation
	s.LastError = nil
	l.armAutoClose(s)
	l.log.Infof("session %s granted %s", s.ID, allocation)
	return s.Snapshot(), nil
}

// RequestInvoice asks the gateway for a Lightning invoice for the session's
// device.
func (l *SessionLogic) RequestInvoice(ctx context.Context, id string, amount uint64) (string, error) {
	l.mu.Lock()
	s, ok := l.sessionDAO.GetSession(id)
	if !ok {
		l.mu.Unlock()
		return "", models.NewError(l.resolve, models.CodeSessionNotFound)
	}
	device := s.Device
	l.mu.Unlock()

	return l.gateway.RequestInvoice(ctx, amount, device)
}

// MintTokens mints amount sats at the selected offer's mint through the
// gateway's mint proxy. The Lightning invoice to pay is published on the
// session as soon as the proxy produces it; the call then blocks until the
// minted tokens arrive or ctx expires.
func (l *SessionLogic) MintTokens(ctx context.Context, id string, amount uint64) ([]string, error) {
	l.mu.Lock()
	s, ok := l.sessionDAO.GetSession(id)
	if !ok {
		l.mu.Unlock()
		return nil, models.NewError(l.resolve, models.CodeSessionNotFound)
	}
	if s.Selected == nil {
		l.mu.Unlock()
		return nil, models.NewError(l.resolve, models.CodeNoOffersAvailable)
	}
	if l.mintProxyURL == "" {
		l.mu.Unlock()
		return nil, models.NewError(l.resolve, models.CodeMintingFailed)
	}
	mintURL := s.Selected.MintURL
	sideCtx := s.SideFlowContext()
	l.mu.Unlock()

	client, err := pkg.DialMintProxy(ctx, l.mintProxyURL)
	if err != nil {
		l.log.Warnf("mint proxy dial failed: %v", err)
		return nil, models.NewError(l.resolve, models.CodeMintingFailed)
	}
	defer client.Close()

	// Closing the session unblocks the pending proxy read.
	go func() {
		select {
		case <-sideCtx.Done():
			client.Close()
		case <-ctx.Done():
		}
	}()

	tokens, err := client.RequestTokens(ctx, mintURL, amount, func(invoice string, expiresAt int64) {
		l.mu.Lock()
		if cur, ok := l.sessionDAO.GetSession(id); ok {
			cur.MintInvoice = &models.MintQuote{Invoice: invoice, ExpiresAt: expiresAt}
		}
		l.mu.Unlock()
	})
	if err != nil {
		l.log.Warnf("minting %d at %s failed: %v", amount, mintURL, err)
		return nil, models.NewError(l.resolve, models.CodeMintingFailed)
	}
	return tokens, nil
}

// CloseSession tears the session down: the retry poller stops, the
// auto-close timer is disarmed and side flows are cancelled.
func (l *SessionLogic) CloseSession(id string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if s, ok := l.sessionDAO.GetSession(id); ok {
		s.Teardown()
		l.sessionDAO.DeleteSession(id)
	}
}

// refreshPreview recomputes the preview's allocation and funds warning
// after the selected offer changed. Called under the lock.
func (l *SessionLogic) refreshPreview(s *models.Session) {
	if s.Preview == nil || s.Preview.Value == nil {
		return
	}
	amount := decimal.NewFromInt(int64(s.Preview.Value.Amount))
	s.Preview.Allocation = l.allocator.Calculate(amount, s.Selected, s.Schedule)
	s.Preview.Warning = nil
	if s.Selected != nil && amount.LessThan(s.Selected.Price) {
		s.Preview.Warning = models.NewError(l.resolve, models.CodeInsufficientFunds)
	}
}

// populate turns a fetched announcement into session state. Called under
// the lock.
func (l *SessionLogic) populate(s *models.Session, info *pkg.PortalInfo) error {
	schedule, err := ParseSchedule(info.Announcement, l.resolve)
	if err != nil {
		return err
	}

	s.Announcement = info.Announcement
	s.GatewayPubkey = info.Announcement.PubKey
	s.Device = info.Device
	s.Schedule = schedule
	s.State = models.SessionReady
	s.LastError = nil

	if len(schedule.Offers) == 0 {
		s.Selected = nil
		s.LastError = models.NewError(l.resolve, models.CodeNoOffersAvailable)
	} else {
		// Default to the best ranked offer.
		best := schedule.Offers[0]
		s.Selected = &best
	}
	return nil
}

// enterErrorState records the failure and starts the retry poller, making
// sure at most one poller runs per session. Called under the lock.
func (l *SessionLogic) enterErrorState(s *models.Session, err error) {
	s.State = models.SessionError
	if pe, ok := models.AsPortalError(err); ok {
		s.LastError = pe
	} else {
		s.LastError = models.NewError(l.resolve, models.CodeGatewayUnreachable)
	}

	if s.StopRetry != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.StopRetry = cancel
	go l.retryLoop(ctx, s.ID.String())
}

// retryLoop polls the gateway at a fixed interval until the combined fetch
// succeeds, then stops for good. Session teardown cancels it through the
// context.
func (l *SessionLogic) retryLoop(ctx context.Context, id string) {
	ticker := time.NewTicker(l.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		info, err := l.gateway.FetchPortalInfo(ctx)
		if err != nil {
			l.log.Debugf("retry fetch for session %s failed: %v", id, err)
			continue
		}

		l.mu.Lock()
		s, ok := l.sessionDAO.GetSession(id)
		if !ok {
			l.mu.Unlock()
			return
		}
		if err := l.populate(s, info); err != nil {
			// Announcement arrived but is malformed; keep polling.
			s.LastError, _ = models.AsPortalError(err)
			l.mu.Unlock()
			continue
		}
		if s.StopRetry != nil {
			s.StopRetry()
			s.StopRetry = nil
		}
		l.mu.Unlock()
		l.log.Infof("gateway reachable again, session %s ready", id)
		return
	}
}

// armAutoClose schedules the advisory session close after the configured
// delay. Called under the lock.
func (l *SessionLogic) armAutoClose(s *models.Session) {
	if l.closeFunc == nil {
		return
	}
	id := s.ID
	s.CloseTimer = time.AfterFunc(l.autoClose, func() {
		l.closeFunc(id)
	})
}

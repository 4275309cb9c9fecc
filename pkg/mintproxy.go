package pkg

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
)

// MintProxyMessage is the wire shape of every mint proxy frame, request and
// response alike. Type selects which fields are populated.
type MintProxyMessage struct {
	Type      string   `json:"type"`
	RequestID string   `json:"request_id,omitempty"`
	MintURL   string   `json:"mint_url,omitempty"`
	Amount    uint64   `json:"amount,omitempty"`
	Invoice   string   `json:"invoice,omitempty"`
	ExpiresAt int64    `json:"expires_at,omitempty"`
	Tokens    []string `json:"tokens,omitempty"`
	Code      string   `json:"code,omitempty"`
	Message   string   `json:"message,omitempty"`
}

// MintProxyClient mints Cashu tokens through the gateway's websocket mint
// proxy: it sends a mint_request, relays the resulting Lightning invoice to
// the caller, and waits for the minted tokens once the invoice is paid.
type MintProxyClient struct {
	url  string
	conn *websocket.Conn
	mu   sync.Mutex
	log  *log.Entry
}

// DialMintProxy connects to the mint proxy websocket endpoint.
func DialMintProxy(ctx context.Context, url string) (*MintProxyClient, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial mint proxy %s: %w", url, err)
	}
	return &MintProxyClient{
		url:  url,
		conn: conn,
		log:  log.WithField("component", "mint_proxy"),
	}, nil
}

// RequestTokens asks the proxy to mint amount sats at mintURL. onInvoice is
// called as soon as the proxy produces an invoice for the user to pay; the
// call then blocks until the tokens arrive, the proxy reports an error, or
// ctx expires. One request is in flight at a time per client.
func (c *MintProxyClient) RequestTokens(ctx context.Context, mintURL string, amount uint64, onInvoice func(invoice string, expiresAt int64)) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	req := MintProxyMessage{Type: "mint_request", MintURL: mintURL, Amount: amount}
	if err := c.conn.WriteJSON(req); err != nil {
		return nil, fmt.Errorf("send mint request: %w", err)
	}

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(30 * time.Second)
	}
	if err := c.conn.SetReadDeadline(deadline); err != nil {
		return nil, err
	}

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		var msg MintProxyMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			return nil, fmt.Errorf("read mint proxy frame: %w", err)
		}

		switch msg.Type {
		case "invoice_ready":
			c.log.Debugf("invoice ready for request %s", msg.RequestID)
			if onInvoice != nil {
				onInvoice(msg.Invoice, msg.ExpiresAt)
			}
		case "tokens_ready":
			return msg.Tokens, nil
		case "error":
			return nil, fmt.Errorf("mint proxy error %s: %s", msg.Code, msg.Message)
		default:
			c.log.Warnf("unknown mint proxy message type %q", msg.Type)
		}
	}
}

// Close releases the websocket. Pending reads fail immediately, so waiters
// unblock on every exit path.
func (c *MintProxyClient) Close() error {
	return c.conn.Close()
}

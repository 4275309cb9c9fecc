package pkg

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/nbd-wtf/go-nostr"
	log "github.com/sirupsen/logrus"

	"github.com/OpenTollGate/tollgate-captive-portal-site/models"
)

// PortalInfo is the combined result of the initial gateway fetch: the
// pricing announcement plus the device identity, retrieved as one operation.
type PortalInfo struct {
	Announcement *nostr.Event      `json:"announcement"`
	Device       models.DeviceInfo `json:"device"`
}

// GatewayClient talks to the TollGate gateway's HTTP surface.
type GatewayClient struct {
	baseURL    string
	httpClient *http.Client
	resolve    func(string) string
	log        *log.Entry
}

// NewGatewayClient builds a client for the gateway at baseURL. Errors it
// returns are localized through the supplied label resolver.
func NewGatewayClient(baseURL string, resolve func(string) string) *GatewayClient {
	return &GatewayClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 10,
				MaxIdleConns:        10,
				IdleConnTimeout:     30 * time.Second,
			},
			Timeout: 15 * time.Second,
		},
		resolve: resolve,
		log:     log.WithField("component", "gateway_client"),
	}
}

// FetchPortalInfo retrieves the pricing announcement (GET /) and the device
// identity (GET /whoami). Any failure along the way surfaces as a single
// typed error; callers retry the whole operation.
func (c *GatewayClient) FetchPortalInfo(ctx context.Context) (*PortalInfo, error) {
	body, status, err := c.get(ctx, "/")
	if err != nil {
		return nil, models.NewError(c.resolve, models.CodeGatewayUnreachable)
	}
	if status != http.StatusOK {
		c.log.Warnf("announcement fetch returned status %d", status)
		return nil, models.NewError(c.resolve, models.CodeGatewayUnreachable)
	}

	var announcement nostr.Event
	if err := json.Unmarshal(body, &announcement); err != nil {
		c.log.Warnf("announcement is not a valid event: %v", err)
		return nil, models.NewError(c.resolve, models.CodeMalformedAnnouncement)
	}
	if ok, err := announcement.CheckSignature(); err != nil || !ok {
		c.log.Warn("announcement signature did not verify")
		return nil, models.NewError(c.resolve, models.CodeMalformedAnnouncement)
	}

	body, status, err = c.get(ctx, "/whoami")
	if err != nil || status != http.StatusOK {
		return nil, models.NewError(c.resolve, models.CodeGatewayUnreachable)
	}

	device, err := parseWhoami(string(body))
	if err != nil {
		c.log.Warnf("whoami unparseable: %v", err)
		return nil, models.NewError(c.resolve, models.CodeGatewayUnreachable)
	}

	return &PortalInfo{Announcement: &announcement, Device: device}, nil
}

// SubmitReceipt posts the signed payment receipt to the gateway root.
// 402 means the token was not accepted; other non-2xx statuses are generic
// server failures.
func (c *GatewayClient) SubmitReceipt(ctx context.Context, ev *nostr.Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return models.NewError(c.resolve, models.CodeServerError)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/", bytes.NewReader(payload))
	if err != nil {
		return models.NewError(c.resolve, models.CodeServerError)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return models.NewError(c.resolve, models.CodeGatewayUnreachable)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusPaymentRequired:
		c.log.Info("gateway rejected the payment token")
		return models.NewError(c.resolve, models.CodePaymentRejected)
	default:
		c.log.Warnf("gateway returned status %d for receipt", resp.StatusCode)
		return models.NewError(c.resolve, models.CodeServerError)
	}
}

// RequestInvoice asks the gateway for a Lightning invoice covering amount
// sats for the given device. The gateway answers with the bare invoice
// string.
func (c *GatewayClient) RequestInvoice(ctx context.Context, amount uint64, device models.DeviceInfo) (string, error) {
	payload, _ := json.Marshal(map[string]interface{}{
		"amount": amount,
		"device": device.Value,
	})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/ln-invoice", bytes.NewReader(payload))
	if err != nil {
		return "", models.NewError(c.resolve, models.CodeInvoiceRequestFailed)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", models.NewError(c.resolve, models.CodeGatewayUnreachable)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.log.Warnf("invoice request returned status %d", resp.StatusCode)
		return "", models.NewError(c.resolve, models.CodeInvoiceRequestFailed)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", models.NewError(c.resolve, models.CodeInvoiceRequestFailed)
	}

	invoice := strings.TrimSpace(string(body))
	if invoice == "" {
		return "", models.NewError(c.resolve, models.CodeInvoiceRequestFailed)
	}
	return invoice, nil
}

func (c *GatewayClient) get(ctx context.Context, path string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, 0, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, err
	}
	return body, resp.StatusCode, nil
}

// parseWhoami splits the gateway's "type=value" identity line, e.g.
// "mac=AA:BB:CC:DD:EE:FF". The value may itself contain '=' padding, so the
// split happens exactly once.
func parseWhoami(s string) (models.DeviceInfo, error) {
	parts := strings.SplitN(strings.TrimSpace(s), "=", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return models.DeviceInfo{}, fmt.Errorf("unexpected whoami format %q", s)
	}
	return models.DeviceInfo{Type: parts[0], Value: parts[1]}, nil
}

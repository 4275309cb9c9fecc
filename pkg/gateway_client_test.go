package pkg

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OpenTollGate/tollgate-captive-portal-site/models"
)

func testResolver(key string) string { return key }

func simOffers() [][]string {
	return [][]string{
		{"cashu", "210", "sat", "https://mint-a.example", "1"},
		{"cashu", "500", "sat", "https://mint-b.example", "3"},
	}
}

func TestFetchPortalInfo(t *testing.T) {
	sim := NewGatewaySim("milliseconds", "600000", simOffers())
	srv := httptest.NewServer(sim.Router())
	defer srv.Close()

	client := NewGatewayClient(srv.URL, testResolver)
	info, err := client.FetchPortalInfo(context.Background())
	require.NoError(t, err)

	require.NotNil(t, info.Announcement)
	assert.Equal(t, sim.Pubkey, info.Announcement.PubKey)
	ok, err := info.Announcement.CheckSignature()
	require.NoError(t, err)
	assert.True(t, ok)

	assert.Equal(t, models.DeviceInfo{Type: "mac", Value: "AA:BB:CC:DD:EE:FF"}, info.Device)
}

func TestFetchPortalInfoUnreachable(t *testing.T) {
	client := NewGatewayClient("http://127.0.0.1:1", testResolver)
	_, err := client.FetchPortalInfo(context.Background())
	require.Error(t, err)

	pe, ok := models.AsPortalError(err)
	require.True(t, ok)
	assert.Equal(t, models.CodeGatewayUnreachable, pe.Code)
}

func TestFetchPortalInfoMalformedAnnouncement(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"pubkey": 42}`))
	}))
	defer srv.Close()

	client := NewGatewayClient(srv.URL, testResolver)
	_, err := client.FetchPortalInfo(context.Background())
	require.Error(t, err)

	pe, ok := models.AsPortalError(err)
	require.True(t, ok)
	assert.Equal(t, models.CodeMalformedAnnouncement, pe.Code)
}

func TestSubmitReceiptStatuses(t *testing.T) {
	tests := []struct {
		name   string
		status int
		code   models.Code
	}{
		{"payment required", http.StatusPaymentRequired, models.CodePaymentRejected},
		{"server error", http.StatusInternalServerError, models.CodeServerError},
		{"forbidden", http.StatusForbidden, models.CodeServerError},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
			}))
			defer srv.Close()

			client := NewGatewayClient(srv.URL, testResolver)
			ev, err := BuildReceipt("deadbeef", models.DeviceInfo{Type: "mac", Value: "a"}, "cashuAx")
			require.NoError(t, err)

			err = client.SubmitReceipt(context.Background(), ev)
			require.Error(t, err)
			pe, ok := models.AsPortalError(err)
			require.True(t, ok)
			assert.Equal(t, tc.code, pe.Code)
		})
	}
}

func TestSubmitReceiptSuccess(t *testing.T) {
	var received []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		buf := make([]byte, r.ContentLength)
		r.Body.Read(buf)
		received = buf
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := NewGatewayClient(srv.URL, testResolver)
	ev, err := BuildReceipt("deadbeef", models.DeviceInfo{Type: "mac", Value: "a"}, "cashuAx")
	require.NoError(t, err)

	require.NoError(t, client.SubmitReceipt(context.Background(), ev))
	assert.Contains(t, string(received), `"kind":21000`)
}

func TestRequestInvoice(t *testing.T) {
	sim := NewGatewaySim("milliseconds", "600000", simOffers())
	srv := httptest.NewServer(sim.Router())
	defer srv.Close()

	client := NewGatewayClient(srv.URL, testResolver)
	invoice, err := client.RequestInvoice(context.Background(), 210, models.DeviceInfo{Type: "mac", Value: "a"})
	require.NoError(t, err)
	assert.Equal(t, sim.Invoice, invoice)
}

func TestParseWhoami(t *testing.T) {
	device, err := parseWhoami("mac=AA:BB:CC:DD:EE:FF\n")
	require.NoError(t, err)
	assert.Equal(t, models.DeviceInfo{Type: "mac", Value: "AA:BB:CC:DD:EE:FF"}, device)

	_, err = parseWhoami("garbage")
	assert.Error(t, err)
	_, err = parseWhoami("=value")
	assert.Error(t, err)
}

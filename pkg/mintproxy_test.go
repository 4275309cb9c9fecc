package pkg

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var upgrader = websocket.Upgrader{}

func mintProxyServer(t *testing.T, handle func(conn *websocket.Conn, req MintProxyMessage)) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		defer conn.Close()

		var req MintProxyMessage
		if err := conn.ReadJSON(&req); err != nil {
			return
		}
		handle(conn, req)
	}))
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestMintProxyRequestTokens(t *testing.T) {
	srv := mintProxyServer(t, func(conn *websocket.Conn, req MintProxyMessage) {
		assert.Equal(t, "mint_request", req.Type)
		assert.Equal(t, "https://mint.example", req.MintURL)
		assert.Equal(t, uint64(210), req.Amount)

		conn.WriteJSON(MintProxyMessage{
			Type:      "invoice_ready",
			RequestID: "r1",
			Invoice:   "lnbc2100n1test",
			ExpiresAt: time.Now().Add(time.Minute).Unix(),
		})
		conn.WriteJSON(MintProxyMessage{
			Type:      "tokens_ready",
			RequestID: "r1",
			Tokens:    []string{"cashuAminted"},
		})
	})
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client, err := DialMintProxy(ctx, wsURL(srv))
	require.NoError(t, err)
	defer client.Close()

	var invoice string
	tokens, err := client.RequestTokens(ctx, "https://mint.example", 210, func(inv string, _ int64) {
		invoice = inv
	})
	require.NoError(t, err)
	assert.Equal(t, "lnbc2100n1test", invoice)
	assert.Equal(t, []string{"cashuAminted"}, tokens)
}

func TestMintProxyError(t *testing.T) {
	srv := mintProxyServer(t, func(conn *websocket.Conn, req MintProxyMessage) {
		conn.WriteJSON(MintProxyMessage{
			Type:    "error",
			Code:    "mint_unreachable",
			Message: "mint did not answer",
		})
	})
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client, err := DialMintProxy(ctx, wsURL(srv))
	require.NoError(t, err)
	defer client.Close()

	_, err = client.RequestTokens(ctx, "https://mint.example", 210, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mint_unreachable")
}

func TestMintProxyDialFailure(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_, err := DialMintProxy(ctx, "ws://127.0.0.1:1/mint-proxy")
	assert.Error(t, err)
}

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runCtl(t *testing.T, ctx context.Context, baseURL string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--config", t.TempDir(), "--base-url", baseURL, "--log-level", "error"}, args...))
	err := cmd.ExecuteContext(ctx)
	return out.String(), err
}

func TestSubmitCommand(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/trade", r.URL.Path)
		var body map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, float64(555), body["ticket"])
		assert.Equal(t, "2024.06.03 11:59:00", body["open_time"])
		assert.Nil(t, body["take_profit"])
		assert.Equal(t, 1.09, body["stop_loss"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id": 7, "created": true, "message": "Trade recorded successfully"}`))
	}))
	defer server.Close()

	out, err := runCtl(t, context.Background(), server.URL,
		"submit", "--master", "1", "--ticket", "555", "--symbol", "EURUSD", "--volume", "1",
		"--open-price", "1.1", "--open-time", "2024.06.03 11:59:00", "--sl", "1.09")
	require.NoError(t, err)
	assert.Contains(t, out, `"created": true`)
}

func TestCloseCommandValidation(t *testing.T) {
	_, err := runCtl(t, context.Background(), "http://127.0.0.1:1", "close", "--master", "1", "--price", "1.1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--id or --ticket")

	_, err = runCtl(t, context.Background(), "http://127.0.0.1:1", "close", "--master", "1", "--id", "7", "--price", "1.1", "--time", "yesterday")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid time")
}

func TestWatchCommand(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/new-trades", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		if calls.Add(1) == 1 {
			_, _ = w.Write([]byte(`[{"id": 7, "symbol": "EURUSD", "trade_type": "buy", "volume": 1, "status": "open", "revision": 1}]`))
			return
		}
		_, _ = w.Write([]byte(`[]`))
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	out, err := runCtl(t, ctx, server.URL, "watch", "--slave", "9", "--master", "1", "--interval", "20ms")
	require.NoError(t, err)
	assert.Contains(t, out, "7 open EURUSD buy 1.00 rev=1")
	assert.GreaterOrEqual(t, calls.Load(), int32(2))
}

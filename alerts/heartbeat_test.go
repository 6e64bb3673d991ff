package alerts

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHeartbeat(t *testing.T, handler http.HandlerFunc) *Heartbeat {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	h := NewHeartbeat("123:secret", "-1001", 5*time.Second)
	h.BaseURL = srv.URL
	h.now = func() time.Time { return time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC) }
	return h
}

func TestHeartbeat_Ping(t *testing.T) {
	var got telegramRequest
	h := newTestHeartbeat(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/bot123:secret/sendMessage", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok": true, "result": {"message_id": 42}}`))
	})

	id, err := h.Ping(context.Background())

	require.NoError(t, err)
	assert.Equal(t, int64(42), id)
	assert.Equal(t, "-1001", got.ChatID)
	assert.True(t, strings.HasPrefix(got.Text, "push-dispatcher alive on "))
	assert.True(t, strings.HasSuffix(got.Text, "2024-03-01T12:00:00Z"))
}

func TestHeartbeat_HTTPError(t *testing.T) {
	h := newTestHeartbeat(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"ok": false, "error_code": 400, "description": "Bad Request: chat not found"}`))
	})

	_, err := h.Ping(context.Background())

	var tgErr *TelegramError
	require.True(t, errors.As(err, &tgErr))
	assert.Equal(t, http.StatusBadRequest, tgErr.StatusCode)
	assert.Equal(t, 400, tgErr.ErrorCode)
	assert.EqualError(t, err, "telegram error: 400 - Bad Request: chat not found (error_code: 400)")
}

func TestHeartbeat_NotOK(t *testing.T) {
	h := newTestHeartbeat(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"ok": false}`))
	})

	_, err := h.Send(context.Background(), "hello")

	assert.EqualError(t, err, "telegram error: 200 - unknown error (error_code: 0)")
}

func TestHeartbeat_UnparseableResponse(t *testing.T) {
	h := newTestHeartbeat(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(`<html>bad gateway</html>`))
	})

	_, err := h.Send(context.Background(), "hello")

	var tgErr *TelegramError
	require.True(t, errors.As(err, &tgErr))
	assert.Equal(t, http.StatusBadGateway, tgErr.StatusCode)
	assert.Contains(t, tgErr.Description, "bad gateway")
}

func TestHeartbeat_NetworkErrorHidesToken(t *testing.T) {
	h := NewHeartbeat("123:secret", "-1001", time.Second)
	h.BaseURL = "http://127.0.0.1:1"

	_, err := h.Send(context.Background(), "hello")

	require.Error(t, err)
	assert.NotContains(t, err.Error(), "123:secret")
	assert.True(t, strings.HasPrefix(err.Error(), "telegram request failed: "))
}

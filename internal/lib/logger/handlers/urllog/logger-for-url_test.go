package urllog_test

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/iwanyu/marketplace/internal/lib/logger/handlers/urllog"
	"github.com/stretchr/testify/assert"
)

func TestCustomLoggerMiddleware_LogsStatus(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	handler := urllog.CustomLoggerMiddleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/vendor/products", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusTeapot, rr.Code)
	out := buf.String()
	assert.Contains(t, out, `"msg":"request received"`)
	assert.Contains(t, out, `"url":"/api/vendor/products"`)
	assert.Contains(t, out, `"status":418`)
}

func TestCustomLoggerMiddleware_HidesAccessToken(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	handler := urllog.CustomLoggerMiddleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "eyJhbGciOi.secret.sig", r.URL.Query().Get("access_token"), "handler still sees the token")
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/messages/stream?access_token=eyJhbGciOi.secret.sig", nil)
	handler.ServeHTTP(httptest.NewRecorder(), req)

	out := buf.String()
	assert.NotContains(t, out, "eyJhbGciOi.secret.sig")
	assert.Contains(t, out, `"url":"/api/messages/stream?access_token=REDACTED"`)
}

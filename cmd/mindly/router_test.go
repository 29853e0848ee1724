package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/mindlyhq/mindly/internal/whatsapp"
)

func newTestRouter(rate int, onMessage whatsapp.MessageHandler) http.Handler {
	return newRouter(whatsapp.NewWebhookHandler("secret", onMessage, nil), rate, zap.NewNop())
}

func TestHealth(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestRouter(10, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestWebhookRoutes(t *testing.T) {
	var got []whatsapp.Inbound
	h := newTestRouter(10, func(_ context.Context, in whatsapp.Inbound) { got = append(got, in) })

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/webhook?hub.mode=subscribe&hub.verify_token=secret&hub.challenge=abc", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "abc", rec.Body.String())

	body := `{"object":"whatsapp_business_account","entry":[{"changes":[{"value":{"messages":[{"id":"m1","from":"5511","type":"text","text":{"body":"hi"}}]}}]}]}`
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(body)))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, got, 1)
}

func TestWebhookRateLimited(t *testing.T) {
	h := newTestRouter(2, nil)
	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/webhook?hub.mode=subscribe&hub.verify_token=secret&hub.challenge=x", nil))
		codes = append(codes, rec.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}

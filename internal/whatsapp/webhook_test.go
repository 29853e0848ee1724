package whatsapp

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const textPayload = `{
  "object": "whatsapp_business_account",
  "entry": [{
    "id": "WABA",
    "changes": [{
      "field": "messages",
      "value": {
        "messaging_product": "whatsapp",
        "contacts": [{"wa_id": "5511", "profile": {"name": "Ana"}}],
        "messages": [{"id": "wamid.1", "from": "5511", "type": "text", "text": {"body": "hi"}}]
      }
    }]
  }]
}`

const interactivePayload = `{
  "object": "whatsapp_business_account",
  "entry": [{"changes": [{"value": {
    "messages": [
      {"id": "wamid.2", "from": "5511", "type": "interactive",
       "interactive": {"type": "button_reply", "button_reply": {"id": "student_book", "title": "Book a session"}}},
      {"id": "wamid.3", "from": "5511", "type": "interactive",
       "interactive": {"type": "list_reply", "list_reply": {"id": "req_abc", "title": "Ana 10:00"}}},
      {"id": "wamid.4", "from": "5511", "type": "image"}
    ],
    "statuses": [{"id": "wamid.0", "status": "delivered"}]
  }}]}]
}`

type recorder struct {
	mu  sync.Mutex
	got []Inbound
}

func (r *recorder) handle(_ context.Context, in Inbound) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, in)
}

func TestHandleVerify(t *testing.T) {
	h := NewWebhookHandler("secret", nil, nil)

	tests := []struct {
		name     string
		query    string
		wantCode int
		wantBody string
	}{
		{"matching token", "hub.mode=subscribe&hub.verify_token=secret&hub.challenge=123", http.StatusOK, "123"},
		{"wrong token", "hub.mode=subscribe&hub.verify_token=nope&hub.challenge=123", http.StatusForbidden, ""},
		{"wrong mode", "hub.mode=unsubscribe&hub.verify_token=secret&hub.challenge=123", http.StatusForbidden, ""},
		{"missing params", "hub.challenge=123", http.StatusBadRequest, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.HandleVerify(rec, httptest.NewRequest(http.MethodGet, "/webhook?"+tt.query, nil))
			assert.Equal(t, tt.wantCode, rec.Code)
			if tt.wantBody != "" {
				assert.Equal(t, tt.wantBody, rec.Body.String())
			}
		})
	}
}

func TestHandleIncomingText(t *testing.T) {
	r := &recorder{}
	h := NewWebhookHandler("secret", r.handle, nil)

	rec := httptest.NewRecorder()
	h.HandleIncoming(rec, httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(textPayload)))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"success"}`, rec.Body.String())
	require.Len(t, r.got, 1)
	assert.Equal(t, Inbound{
		From:      "5511",
		MessageID: "wamid.1",
		Kind:      KindText,
		Text:      "hi",
	}, r.got[0])
}

func TestHandleIncomingInteractiveCarriesControlID(t *testing.T) {
	r := &recorder{}
	h := NewWebhookHandler("secret", r.handle, nil)

	rec := httptest.NewRecorder()
	h.HandleIncoming(rec, httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(interactivePayload)))

	assert.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, r.got, 2)
	assert.Equal(t, KindButtonReply, r.got[0].Kind)
	assert.Equal(t, "student_book", r.got[0].Text)
	assert.True(t, r.got[0].Structured)
	assert.Equal(t, KindListReply, r.got[1].Kind)
	assert.Equal(t, "req_abc", r.got[1].Text)
	assert.True(t, r.got[1].Structured)
}

func TestHandleIncomingMalformedBodyIsAcknowledged(t *testing.T) {
	h := NewWebhookHandler("secret", func(context.Context, Inbound) {
		t.Fatal("handler must not be called")
	}, nil)

	rec := httptest.NewRecorder()
	h.HandleIncoming(rec, httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader("{not json")))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"error"}`, rec.Body.String())
}

func TestHandleIncomingWrongObject(t *testing.T) {
	h := NewWebhookHandler("secret", func(context.Context, Inbound) {}, nil)

	rec := httptest.NewRecorder()
	h.HandleIncoming(rec, httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(`{"object":"page"}`)))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleIncomingRecoversPanics(t *testing.T) {
	h := NewWebhookHandler("secret", func(context.Context, Inbound) {
		panic("boom")
	}, nil)

	rec := httptest.NewRecorder()
	require.NotPanics(t, func() {
		h.HandleIncoming(rec, httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(textPayload)))
	})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"error"}`, rec.Body.String())
}

func TestHandleIncomingContextSurvivesClientCancel(t *testing.T) {
	var ctxErr error
	h := NewWebhookHandler("secret", func(ctx context.Context, _ Inbound) {
		ctxErr = ctx.Err()
	}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(textPayload)).WithContext(ctx)
	h.HandleIncoming(httptest.NewRecorder(), req)
	assert.NoError(t, ctxErr)
}

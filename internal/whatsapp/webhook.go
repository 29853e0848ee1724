package whatsapp

import (
	"context"
	"fmt"
	"net/http"

	"github.com/goccy/go-json"
	"go.uber.org/zap"
)

// Inbound message kinds.
const (
	KindText        = "text"
	KindButtonReply = "button_reply"
	KindListReply   = "list_reply"
)

// Inbound is one user message lifted out of the provider envelope.
type Inbound struct {
	From      string
	MessageID string
	Kind      string
	// Text is the typed body, or the control id for button and list replies.
	Text string
	// Structured is true when the user tapped a button or list row.
	Structured bool
}

// MessageHandler processes one inbound message.
type MessageHandler func(ctx context.Context, in Inbound)

type WebhookHandler struct {
	verifyToken string
	onMessage   MessageHandler
	log         *zap.Logger
}

func NewWebhookHandler(verifyToken string, onMessage MessageHandler, log *zap.Logger) *WebhookHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &WebhookHandler{
		verifyToken: verifyToken,
		onMessage:   onMessage,
		log:         log,
	}
}

// HandleVerify handles the GET webhook verification from Meta.
// Reference: https://developers.facebook.com/docs/whatsapp/cloud-api/get-started#webhook-verification
func (h *WebhookHandler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	mode := r.URL.Query().Get("hub.mode")
	token := r.URL.Query().Get("hub.verify_token")
	challenge := r.URL.Query().Get("hub.challenge")

	if mode == "" || token == "" {
		http.Error(w, "Verification failed", http.StatusBadRequest)
		return
	}
	if mode == "subscribe" && token == h.verifyToken {
		h.log.Info("whatsapp.WebhookHandler.HandleVerify webhook verified")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(challenge))
		return
	}

	http.Error(w, "Verification failed", http.StatusForbidden)
}

// HandleIncoming processes incoming webhook POST notifications.
// Every outcome except a non-WhatsApp object is acknowledged with 200 so Meta does not
// keep redelivering a payload we cannot process.
// Reference: https://developers.facebook.com/docs/whatsapp/cloud-api/webhooks/components
func (h *WebhookHandler) HandleIncoming(w http.ResponseWriter, r *http.Request) {
	var payload WebhookPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		h.log.Warn("whatsapp.WebhookHandler.HandleIncoming failed to decode payload", zap.Error(err))
		writeStatus(w, http.StatusOK, "error")
		return
	}

	if payload.Object != "whatsapp_business_account" {
		writeStatus(w, http.StatusNotFound, "not a whatsapp event")
		return
	}

	// The turn must finish even if Meta drops the connection.
	ctx := context.WithoutCancel(r.Context())

	failed := false
	for _, in := range Extract(payload) {
		if err := h.dispatch(ctx, in); err != nil {
			failed = true
			h.log.Error("whatsapp.WebhookHandler.HandleIncoming message processing fault",
				zap.String("from", in.From),
				zap.String("message_id", in.MessageID),
				zap.Error(err),
			)
		}
	}

	if failed {
		writeStatus(w, http.StatusOK, "error")
		return
	}
	writeStatus(w, http.StatusOK, "success")
}

func (h *WebhookHandler) dispatch(ctx context.Context, in Inbound) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	h.onMessage(ctx, in)
	return nil
}

// Extract flattens the envelope into user messages. Status callbacks and unsupported
// message types are skipped.
func Extract(payload WebhookPayload) []Inbound {
	var out []Inbound
	for _, entry := range payload.Entry {
		for _, change := range entry.Changes {
			for _, msg := range change.Value.Messages {
				in, ok := toInbound(msg)
				if !ok {
					continue
				}
				out = append(out, in)
			}
		}
	}
	return out
}

func toInbound(msg Message) (Inbound, bool) {
	in := Inbound{From: msg.From, MessageID: msg.ID}
	switch msg.Type {
	case "text":
		if msg.Text == nil {
			return in, false
		}
		in.Kind, in.Text = KindText, msg.Text.Body
	case "interactive":
		if msg.Interactive == nil {
			return in, false
		}
		switch msg.Interactive.Type {
		case "button_reply":
			if msg.Interactive.ButtonReply == nil {
				return in, false
			}
			in.Kind, in.Text = KindButtonReply, msg.Interactive.ButtonReply.ID
		case "list_reply":
			if msg.Interactive.ListReply == nil {
				return in, false
			}
			in.Kind, in.Text = KindListReply, msg.Interactive.ListReply.ID
		default:
			return in, false
		}
		in.Structured = true
	default:
		return in, false
	}
	return in, true
}

func writeStatus(w http.ResponseWriter, code int, status string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"status": status})
}

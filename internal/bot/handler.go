// Package bot runs one conversational turn per inbound WhatsApp message.
package bot

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/mindlyhq/mindly/internal/dialogue"
	"github.com/mindlyhq/mindly/internal/models"
	"github.com/mindlyhq/mindly/internal/render"
	"github.com/mindlyhq/mindly/internal/store"
	"github.com/mindlyhq/mindly/internal/whatsapp"
)

const msgUnavailable = "Sorry, Mindly is having trouble right now. Please try again in a few minutes."

type Sessions interface {
	Load(ctx context.Context, userID string) (models.Session, error)
	Save(ctx context.Context, userID string, state models.State, data models.SessionData) error
}

type Engine interface {
	Transition(ctx context.Context, in dialogue.Input, s models.Session) dialogue.Outcome
}

type Handler struct {
	sessions Sessions
	engine   Engine
	gateway  render.Gateway
	dedup    store.Deduper
	log      *zap.Logger
}

// NewHandler wires a turn handler. dedup may be nil, in which case redeliveries are
// processed again.
func NewHandler(sessions Sessions, engine Engine, gateway render.Gateway, dedup store.Deduper, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{sessions: sessions, engine: engine, gateway: gateway, dedup: dedup, log: log}
}

// HandleMessage loads the session, runs the transition, persists it and sends the reply.
// Failures are logged; the user always gets an answer when the gateway is reachable.
func (h *Handler) HandleMessage(ctx context.Context, in whatsapp.Inbound) {
	start := time.Now()
	log := h.log.With(zap.String("from", in.From), zap.String("message_id", in.MessageID))

	if h.duplicate(ctx, log, in) {
		return
	}

	sess, err := h.sessions.Load(ctx, in.From)
	if err != nil {
		log.Error("bot.Handler.HandleMessage failed to load session", zap.Error(err))
		h.send(ctx, log, in.From, render.Payload{Kind: render.KindText, Text: msgUnavailable})
		return
	}

	out := h.engine.Transition(ctx, dialogue.Input{
		UserID:     in.From,
		Text:       in.Text,
		Structured: in.Structured,
	}, sess)

	if err := h.sessions.Save(ctx, in.From, out.Next, out.Data); err != nil {
		log.Error("bot.Handler.HandleMessage failed to save session",
			zap.String("state", string(out.Next)),
			zap.Error(err),
		)
	}

	payload := render.Build(out.Reply)
	h.send(ctx, log, in.From, payload)

	log.Info("bot.Handler.HandleMessage turn complete",
		zap.String("kind", in.Kind),
		zap.String("from_state", string(sess.State)),
		zap.String("to_state", string(out.Next)),
		zap.Stringer("reply", payload.Kind),
		zap.Duration("elapsed", time.Since(start)),
	)
}

// duplicate reports whether the provider already delivered this message. A dedup error
// lets the message through.
func (h *Handler) duplicate(ctx context.Context, log *zap.Logger, in whatsapp.Inbound) bool {
	if h.dedup == nil || in.MessageID == "" {
		return false
	}
	first, err := h.dedup.MarkProcessed(ctx, in.MessageID)
	if err != nil {
		log.Warn("bot.Handler.duplicate dedup check failed, processing anyway", zap.Error(err))
		return false
	}
	if !first {
		log.Info("bot.Handler.duplicate skipping redelivered message")
		return true
	}
	return false
}

func (h *Handler) send(ctx context.Context, log *zap.Logger, to string, p render.Payload) {
	if err := render.Deliver(ctx, h.gateway, to, p); err != nil {
		log.Error("bot.Handler.send failed to deliver reply",
			zap.Stringer("kind", p.Kind),
			zap.Error(err),
		)
	}
}

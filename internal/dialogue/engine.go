// Package dialogue implements the conversation state machine. A transition reads the
// current session and one inbound message and decides the reply, the next state and the
// data to persist. Collaborators (stores, the risk service, notifications) are injected.
package dialogue

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/mindlyhq/mindly/internal/models"
	"github.com/mindlyhq/mindly/internal/store"
)

// DefaultMaxListed keeps request rows plus the three bulk rows within the 10-row list limit.
const DefaultMaxListed = 7

// Responder is the risk and response service used in emotional-support mode.
type Responder interface {
	Classify(ctx context.Context, text string) models.Tier
	Respond(ctx context.Context, text string, tier models.Tier) string
}

// Notifier delivers an out-of-band message to a student.
type Notifier interface {
	Notify(ctx context.Context, studentID, text string) error
}

type Options struct {
	// AutoActivateDoctors makes newly registered doctors active immediately instead of
	// waiting for an administrator.
	AutoActivateDoctors bool
	// MaxListed caps how many pending requests a doctor sees at once.
	MaxListed int
}

// Input is one inbound message.
type Input struct {
	UserID string
	Text   string
	// Structured is set when Text is a control id from a tapped button or list row.
	Structured bool
}

// Outcome is the result of a transition.
type Outcome struct {
	Reply Reply
	Next  models.State
	Data  models.SessionData
}

type Engine struct {
	profiles  store.ProfileStore
	appts     store.AppointmentStore
	responder Responder
	notifier  Notifier
	opts      Options
	log       *zap.Logger
}

func NewEngine(profiles store.ProfileStore, appts store.AppointmentStore, responder Responder, notifier Notifier, opts Options, log *zap.Logger) *Engine {
	if opts.MaxListed <= 0 || opts.MaxListed > DefaultMaxListed {
		opts.MaxListed = DefaultMaxListed
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{
		profiles:  profiles,
		appts:     appts,
		responder: responder,
		notifier:  notifier,
		opts:      opts,
		log:       log,
	}
}

// Transition computes the next step of the conversation. It never fails: store and
// collaborator errors become an apologetic reply and a valid state.
func (e *Engine) Transition(ctx context.Context, in Input, s models.Session) Outcome {
	in.Text = strings.TrimSpace(in.Text)
	state := s.State
	if !state.Valid() {
		state = models.StateStart
	}
	data := s.Data.ScopedTo(state)

	var out Outcome
	if isReset(in.Text) {
		out = e.reset(ctx, in)
	} else {
		out = e.dispatch(ctx, in, state, data)
	}

	if !out.Next.Valid() {
		e.log.Error("dialogue.Engine.Transition produced an unknown state",
			zap.String("user_id", in.UserID),
			zap.String("state", string(out.Next)),
		)
		out = fallback()
	}
	out.Data = out.Data.ScopedTo(out.Next)
	return out
}

func (e *Engine) dispatch(ctx context.Context, in Input, state models.State, data models.SessionData) Outcome {
	switch state {
	case models.StateStart:
		return next(models.StateRoleSelection, models.SessionData{}, rolePrompt(""))
	case models.StateRoleSelection:
		return e.onRoleSelection(in, data)
	case models.StateOtherFlow:
		return next(models.StateStart, models.SessionData{}, textReply(msgOtherThanks))

	case models.StateStudentRegName:
		return e.onStudentName(ctx, in, data)
	case models.StateStudentMenu:
		return e.onStudentMenu(ctx, in, data)
	case models.StateSupport:
		return e.onSupport(ctx, in, data)
	case models.StateBookingDate, models.StateBookingTime, models.StateBookingDesc:
		return e.onBooking(ctx, in, state, data)
	case models.StateMySessions:
		return e.onMySessions(ctx, in, data)
	case models.StateManageSession:
		return e.onManageSession(ctx, in, data)

	case models.StateDrRegName, models.StateDrRegQual, models.StateDrRegLicense,
		models.StateDrRegDays, models.StateDrRegSlots:
		return e.onDoctorRegistration(in, state, data)
	case models.StateDrRegConfirm:
		return e.onDoctorConfirm(ctx, in, data)
	case models.StateDoctorDashboard:
		return e.onDashboard(ctx, in, data)
	case models.StateDoctorList:
		return e.onRequestList(ctx, in, data)
	case models.StateDoctorManage:
		return e.onManageRequest(ctx, in, data)
	}
	return fallback()
}

// reset routes a returning user to their home screen, or starts first contact over.
func (e *Engine) reset(ctx context.Context, in Input) Outcome {
	p, err := e.profiles.GetProfile(ctx, in.UserID)
	if err != nil {
		e.log.Warn("dialogue.Engine.reset profile lookup failed, treating as first contact",
			zap.String("user_id", in.UserID),
			zap.Error(err),
		)
		p = nil
	}

	switch {
	case p != nil && p.Role == models.RoleDoctor:
		data := models.SessionData{Role: p.Role, Name: p.Name}
		return next(models.StateDoctorDashboard, data, e.dashboard(ctx, p, ""))
	case p != nil && p.Role == models.RoleStudent:
		data := models.SessionData{Role: p.Role, Name: p.Name}
		return next(models.StateStudentMenu, data, studentMenu(welcomeBack(p.Name)))
	}
	return e.dispatch(ctx, in, models.StateStart, models.SessionData{})
}

func (e *Engine) onRoleSelection(in Input, data models.SessionData) Outcome {
	switch {
	case roleStudent.matches(in.Text):
		return next(models.StateStudentRegName, models.SessionData{Role: models.RoleStudent}, textReply(msgAskStudentName))
	case roleDoctor.matches(in.Text):
		data := models.SessionData{Role: models.RoleDoctor, Doctor: &models.DoctorDraft{}}
		return next(models.StateDrRegName, data, textReply(msgDrAskName))
	case roleOther.matches(in.Text):
		return next(models.StateOtherFlow, models.SessionData{Role: models.RoleOther}, textReply(msgOtherAck))
	}
	return next(models.StateRoleSelection, data, rolePrompt(msgRoleInvalid))
}

func next(state models.State, data models.SessionData, r Reply) Outcome {
	return Outcome{Reply: r, Next: state, Data: data}
}

// fallback is the answer to any input the current state has no rule for.
func fallback() Outcome {
	return next(models.StateStart, models.SessionData{}, textReply(msgFallback))
}

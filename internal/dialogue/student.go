package dialogue

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/mindlyhq/mindly/internal/models"
	"github.com/mindlyhq/mindly/internal/store"
)

// maxSessionRows leaves room for the back row inside the 10-row list limit.
const maxSessionRows = 9

func (e *Engine) onStudentName(ctx context.Context, in Input, data models.SessionData) Outcome {
	if in.Structured || in.Text == "" {
		return next(models.StateStudentRegName, data, textReply(msgAskStudentName))
	}

	p := models.Profile{UserID: in.UserID, Role: models.RoleStudent, Name: in.Text}
	if err := e.profiles.UpsertProfile(ctx, p); err != nil {
		e.log.Error("dialogue.Engine.onStudentName failed to save profile",
			zap.String("user_id", in.UserID),
			zap.Error(err),
		)
		return next(models.StateStudentRegName, data, textReply(msgTryAgain))
	}

	data = models.SessionData{Role: models.RoleStudent, Name: in.Text}
	return next(models.StateStudentMenu, data, studentMenu(fmt.Sprintf("Nice to meet you, %s! 💙", in.Text)))
}

func (e *Engine) onStudentMenu(ctx context.Context, in Input, data models.SessionData) Outcome {
	switch {
	case menuSupport.matches(in.Text):
		return next(models.StateSupport, data, textReply(msgSupportIntro))
	case menuBook.matches(in.Text):
		data.Booking = &models.BookingDraft{}
		return next(models.StateBookingDate, data, textReply(msgBookAskDate))
	case menuSessions.matches(in.Text):
		return e.listMySessions(ctx, in.UserID, models.StateStudentMenu, data)
	}
	return next(models.StateStudentMenu, data, studentMenu(msgMenuInvalid))
}

func (e *Engine) onSupport(ctx context.Context, in Input, data models.SessionData) Outcome {
	if supportExit.matches(in.Text) {
		return next(models.StateStudentMenu, data, studentMenu("Back to Student Menu:"))
	}
	tier := e.responder.Classify(ctx, in.Text)
	e.log.Info("dialogue.Engine.onSupport classified message",
		zap.String("user_id", in.UserID),
		zap.String("tier", string(tier)),
	)
	return next(models.StateSupport, data, textReply(e.responder.Respond(ctx, in.Text, tier)))
}

// onBooking collects date, time and concern verbatim. No format validation is done.
func (e *Engine) onBooking(ctx context.Context, in Input, state models.State, data models.SessionData) Outcome {
	if in.Structured {
		return next(state, data, textReply(msgFreeTextExpected))
	}
	if data.Booking == nil {
		data.Booking = &models.BookingDraft{}
	}

	switch state {
	case models.StateBookingDate:
		data.Booking.Date = in.Text
		return next(models.StateBookingTime, data, textReply(msgBookAskTime))
	case models.StateBookingTime:
		data.Booking.Time = in.Text
		return next(models.StateBookingDesc, data, textReply(msgBookAskConcern))
	}

	data.Booking.Concern = in.Text
	a, err := e.appts.CreateAppointment(ctx, models.Appointment{
		StudentID:   in.UserID,
		StudentName: data.Name,
		Date:        data.Booking.Date,
		Time:        data.Booking.Time,
		Concern:     data.Booking.Concern,
	})
	if err != nil {
		e.log.Error("dialogue.Engine.onBooking failed to create appointment",
			zap.String("user_id", in.UserID),
			zap.Error(err),
		)
		return next(models.StateBookingDesc, data, textReply(msgTryAgain))
	}

	e.log.Info("dialogue.Engine.onBooking appointment requested",
		zap.String("user_id", in.UserID),
		zap.String("appointment_id", a.ID),
	)
	return next(models.StateStudentMenu, data.Identity(), studentMenu(msgBookSent))
}

// listMySessions shows the student's Pending and Approved requests. from is the state to
// stay in when the lookup fails.
func (e *Engine) listMySessions(ctx context.Context, userID string, from models.State, data models.SessionData) Outcome {
	appts, err := e.appts.ListStudentAppointments(ctx, userID, models.StatusPending, models.StatusApproved)
	if err != nil {
		e.log.Error("dialogue.Engine.listMySessions failed to list appointments",
			zap.String("user_id", userID),
			zap.Error(err),
		)
		return next(from, data, textReply(msgTryAgain))
	}
	if len(appts) == 0 {
		return next(models.StateStudentMenu, data.Identity(), studentMenu(msgNoSessions))
	}
	if len(appts) > maxSessionRows {
		appts = appts[:maxSessionRows]
	}

	rows := make([]Row, 0, len(appts)+1)
	for _, a := range appts {
		rows = append(rows, Row{
			ID:          sessionRowPrefix + a.ID,
			Title:       sessionTitle(a),
			Description: fmt.Sprintf("%s · %s", a.Status, a.Concern),
		})
	}
	rows = append(rows, sessBack.row("Back to menu", ""))

	r := Reply{
		Text: "Your upcoming sessions. Tap one to see details.",
		List: &List{
			ButtonText: "My Sessions",
			Sections:   []Section{{Title: "Sessions", Rows: rows}},
		},
	}
	return next(models.StateMySessions, data.Identity(), r)
}

func (e *Engine) onMySessions(ctx context.Context, in Input, data models.SessionData) Outcome {
	if sessBack.matches(in.Text) {
		return next(models.StateStudentMenu, data, studentMenu(""))
	}
	id, ok := rowTarget(in.Text, sessionRowPrefix)
	if !ok {
		return fallback()
	}

	a, err := e.appts.GetAppointment(ctx, id)
	if err != nil {
		e.log.Error("dialogue.Engine.onMySessions failed to load appointment",
			zap.String("user_id", in.UserID),
			zap.String("appointment_id", id),
			zap.Error(err),
		)
		return next(models.StateMySessions, data, textReply(msgTryAgain))
	}
	if a == nil || a.StudentID != in.UserID {
		return next(models.StateMySessions, data, textReply(msgSessionMissing))
	}

	buttons := []Button{sessBack.button("Back")}
	if !a.Status.Terminal() {
		buttons = []Button{sessCancel.button("Cancel request"), sessBack.button("Back")}
	}
	data.SelectedSessionID = a.ID
	r := Reply{Text: appointmentDetail("Session details:", a), Buttons: buttons}
	return next(models.StateManageSession, data, r)
}

func (e *Engine) onManageSession(ctx context.Context, in Input, data models.SessionData) Outcome {
	if sessBack.matches(in.Text) {
		return e.listMySessions(ctx, in.UserID, models.StateManageSession, data)
	}
	if !sessCancel.matches(in.Text) {
		return fallback()
	}

	a, changed, err := e.appts.TransitionAppointment(ctx, data.SelectedSessionID,
		[]models.Status{models.StatusPending}, models.StatusCancelled, in.UserID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return next(models.StateManageSession, data, textReply(msgSessionMissing))
	case err != nil:
		e.log.Error("dialogue.Engine.onManageSession failed to cancel appointment",
			zap.String("user_id", in.UserID),
			zap.String("appointment_id", data.SelectedSessionID),
			zap.Error(err),
		)
		return next(models.StateManageSession, data, textReply(msgTryAgain))
	case !changed:
		notice := fmt.Sprintf("This session is already %s and can no longer be cancelled.", a.Status)
		return next(models.StateStudentMenu, data.Identity(), studentMenu(notice))
	}

	e.log.Info("dialogue.Engine.onManageSession appointment cancelled",
		zap.String("user_id", in.UserID),
		zap.String("appointment_id", a.ID),
	)
	return next(models.StateStart, models.SessionData{}, textReply(msgSessCancelled))
}

// sessionTitle labels a session row. Date and time are free text and may both be empty.
func sessionTitle(a models.Appointment) string {
	if t := strings.TrimSpace(a.Date + " " + a.Time); t != "" {
		return t
	}
	return "Session request"
}

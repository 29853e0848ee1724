package dialogue

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/mindlyhq/mindly/internal/models"
	"github.com/mindlyhq/mindly/internal/store"
)

var pendingOnly = []models.Status{models.StatusPending}

func (e *Engine) onDoctorRegistration(in Input, state models.State, data models.SessionData) Outcome {
	if in.Structured {
		return next(state, data, textReply(msgFreeTextExpected))
	}
	if data.Doctor == nil {
		data.Doctor = &models.DoctorDraft{}
	}
	d := data.Doctor

	switch state {
	case models.StateDrRegName:
		d.Name = in.Text
		return next(models.StateDrRegQual, data, textReply(msgDrAskQual))
	case models.StateDrRegQual:
		d.Qualification = in.Text
		return next(models.StateDrRegLicense, data, textReply(msgDrAskLicense))
	case models.StateDrRegLicense:
		d.License = in.Text
		return next(models.StateDrRegDays, data, textReply(msgDrAskDays))
	case models.StateDrRegDays:
		d.WorkingDays = in.Text
		return next(models.StateDrRegSlots, data, textReply(msgDrAskSlots))
	}
	d.Slots = in.Text
	return next(models.StateDrRegConfirm, data, doctorRegistrationSummary(*d))
}

func (e *Engine) onDoctorConfirm(ctx context.Context, in Input, data models.SessionData) Outcome {
	switch {
	case regRestart.matches(in.Text):
		fresh := models.SessionData{Role: models.RoleDoctor, Doctor: &models.DoctorDraft{}}
		return next(models.StateDrRegName, fresh, textReply(msgDrRestart))
	case !regConfirm.matches(in.Text):
		return fallback()
	}

	var d models.DoctorDraft
	if data.Doctor != nil {
		d = *data.Doctor
	}
	p := models.Profile{
		UserID:        in.UserID,
		Role:          models.RoleDoctor,
		Name:          d.Name,
		Qualification: d.Qualification,
		License:       d.License,
		WorkingDays:   d.WorkingDays,
		Slots:         d.Slots,
		Active:        e.opts.AutoActivateDoctors,
	}
	if err := e.profiles.UpsertProfile(ctx, p); err != nil {
		e.log.Error("dialogue.Engine.onDoctorConfirm failed to save profile",
			zap.String("user_id", in.UserID),
			zap.Error(err),
		)
		return next(models.StateDrRegConfirm, data, textReply(msgTryAgain))
	}

	e.log.Info("dialogue.Engine.onDoctorConfirm doctor registered",
		zap.String("user_id", in.UserID),
		zap.Bool("active", p.Active),
	)
	msg := msgDrPending
	if p.Active {
		msg = msgDrActive
	}
	return next(models.StateStart, models.SessionData{}, textReply(msg))
}

// dashboard summarises the doctor's queue. notice, if any, is shown above it.
func (e *Engine) dashboard(ctx context.Context, p *models.Profile, notice string) Reply {
	title := "Mindly - Doctor Dashboard 🩺"
	if p.Name != "" {
		title = fmt.Sprintf("Welcome back, Dr. %s 🩺", p.Name)
	}
	if !p.Active {
		return textReply(title + "\n\n" + msgAwaitingReview).prefixed(notice)
	}

	text := title
	n, err := e.appts.CountPendingAppointments(ctx)
	if err != nil {
		e.log.Warn("dialogue.Engine.dashboard failed to count pending requests", zap.Error(err))
	} else {
		text += fmt.Sprintf("\nPending requests: %d", n)
	}
	return Reply{
		Text:    text,
		Buttons: []Button{dashView.button("View requests")},
	}.prefixed(notice)
}

// toDashboard returns the doctor to the dashboard with notice on top.
func (e *Engine) toDashboard(ctx context.Context, userID string, data models.SessionData, notice string) Outcome {
	p := e.doctorProfile(ctx, userID, data)
	return next(models.StateDoctorDashboard, data.Identity(), e.dashboard(ctx, p, notice))
}

// doctorProfile loads the doctor's profile. When the store cannot answer, the session
// identity stands in so the dashboard still renders.
func (e *Engine) doctorProfile(ctx context.Context, userID string, data models.SessionData) *models.Profile {
	p, err := e.profiles.GetProfile(ctx, userID)
	if err != nil {
		e.log.Warn("dialogue.Engine.doctorProfile lookup failed",
			zap.String("user_id", userID),
			zap.Error(err),
		)
	}
	if p == nil {
		return &models.Profile{UserID: userID, Role: models.RoleDoctor, Name: data.Name, Active: true}
	}
	return p
}

func (e *Engine) onDashboard(ctx context.Context, in Input, data models.SessionData) Outcome {
	if !dashView.matches(in.Text) {
		return fallback()
	}
	p := e.doctorProfile(ctx, in.UserID, data)
	if !p.Active {
		return next(models.StateDoctorDashboard, data, e.dashboard(ctx, p, ""))
	}
	return e.openRequestList(ctx, in.UserID, models.StateDoctorDashboard, data)
}

// openRequestList takes a fresh snapshot of the oldest pending requests. from is the
// state to stay in when the store fails.
func (e *Engine) openRequestList(ctx context.Context, userID string, from models.State, data models.SessionData) Outcome {
	appts, err := e.appts.ListPendingAppointments(ctx, e.opts.MaxListed)
	if err != nil {
		e.log.Error("dialogue.Engine.openRequestList failed to list pending requests",
			zap.String("user_id", userID),
			zap.Error(err),
		)
		return next(from, data, textReply(msgTryAgain))
	}
	if len(appts) == 0 {
		return e.toDashboard(ctx, userID, data, msgNoPending)
	}

	data = data.Identity()
	reqs := make([]listedRequest, len(appts))
	for i, a := range appts {
		data.Listed = append(data.Listed, a.ID)
		reqs[i] = listedRequest{pos: i + 1, appt: a}
	}
	return next(models.StateDoctorList, data, requestList(reqs, data))
}

// showSelection re-renders the current snapshot after a selection change.
func (e *Engine) showSelection(ctx context.Context, data models.SessionData, notice string) Outcome {
	reqs := make([]listedRequest, 0, len(data.Listed))
	for i, id := range data.Listed {
		a, err := e.appts.GetAppointment(ctx, id)
		if err != nil {
			e.log.Warn("dialogue.Engine.showSelection failed to load request",
				zap.String("appointment_id", id),
				zap.Error(err),
			)
			continue
		}
		if a == nil {
			continue
		}
		reqs = append(reqs, listedRequest{pos: i + 1, appt: *a})
	}
	return next(models.StateDoctorList, data, requestList(reqs, data).prefixed(notice))
}

func (e *Engine) onRequestList(ctx context.Context, in Input, data models.SessionData) Outcome {
	switch {
	case listApproveAll.matches(in.Text):
		return e.bulkDecide(ctx, in.UserID, data, data.Listed, models.StatusApproved)
	case listDeclineAll.matches(in.Text):
		return e.bulkDecide(ctx, in.UserID, data, data.Listed, models.StatusDeclined)
	case listSelectMultiple.matches(in.Text):
		data.MultiSelect = true
		return e.showSelection(ctx, data, "")
	case listApproveSelected.matches(in.Text):
		ids := selectedInListOrder(data)
		if len(ids) == 0 {
			data.MultiSelect = true
			return e.showSelection(ctx, data, msgNothingChosen)
		}
		return e.bulkDecide(ctx, in.UserID, data, ids, models.StatusApproved)
	case listExitSelection.matches(in.Text):
		data.MultiSelect = false
		data.Selection = nil
		return e.showSelection(ctx, data, "")
	case listBack.matches(in.Text):
		return e.toDashboard(ctx, in.UserID, data, "")
	}

	if id, ok := rowTarget(in.Text, toggleRowPrefix); ok {
		return e.showSelection(ctx, toggleRequests(data, id), "")
	}
	if id, ok := rowTarget(in.Text, requestRowPrefix); ok {
		return e.openRequest(ctx, in.UserID, id, data)
	}
	if !in.Structured {
		if positions := shorthandPositions(in.Text); len(positions) > 0 {
			return e.showSelection(ctx, togglePositions(data, positions), "")
		}
	}
	return fallback()
}

func (e *Engine) openRequest(ctx context.Context, userID, id string, data models.SessionData) Outcome {
	a, err := e.appts.GetAppointment(ctx, id)
	if err != nil {
		e.log.Error("dialogue.Engine.openRequest failed to load request",
			zap.String("user_id", userID),
			zap.String("appointment_id", id),
			zap.Error(err),
		)
		return next(models.StateDoctorList, data, textReply(msgTryAgain))
	}
	if a == nil {
		return next(models.StateDoctorList, data, textReply(msgRequestMissing))
	}

	buttons := []Button{reqBack.button("Back")}
	if !a.Status.Terminal() {
		buttons = []Button{reqApprove.button("Approve"), reqDecline.button("Decline"), reqBack.button("Back")}
	}
	out := data.Identity()
	out.SelectedRequestID = a.ID
	return next(models.StateDoctorManage, out, Reply{
		Text:    appointmentDetail("Request details:", a),
		Buttons: buttons,
	})
}

func (e *Engine) onManageRequest(ctx context.Context, in Input, data models.SessionData) Outcome {
	switch {
	case reqApprove.matches(in.Text):
		return e.decide(ctx, in.UserID, data, models.StatusApproved)
	case reqDecline.matches(in.Text):
		return e.decide(ctx, in.UserID, data, models.StatusDeclined)
	case reqBack.matches(in.Text):
		return e.openRequestList(ctx, in.UserID, models.StateDoctorManage, data)
	}
	return fallback()
}

// decide applies a single approve or decline. A request that already left Pending is
// reported and left alone, and its student is not notified again.
func (e *Engine) decide(ctx context.Context, doctorID string, data models.SessionData, to models.Status) Outcome {
	id := data.SelectedRequestID
	if id == "" {
		return next(models.StateDoctorManage, data, textReply(msgRequestMissing))
	}

	a, changed, err := e.appts.TransitionAppointment(ctx, id, pendingOnly, to, doctorID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return next(models.StateDoctorManage, data, textReply(msgRequestMissing))
	case err != nil:
		e.log.Error("dialogue.Engine.decide failed to update request",
			zap.String("user_id", doctorID),
			zap.String("appointment_id", id),
			zap.Error(err),
		)
		return next(models.StateDoctorManage, data, textReply(msgTryAgain))
	case !changed:
		return e.toDashboard(ctx, doctorID, data, fmt.Sprintf("This request was already %s.", a.Status))
	}

	e.log.Info("dialogue.Engine.decide request updated",
		zap.String("user_id", doctorID),
		zap.String("appointment_id", id),
		zap.String("status", string(to)),
	)
	verb, text := "declined", declinedNotice(*a)
	if to == models.StatusApproved {
		verb, text = "approved", approvedNotice(*a, data.Name)
	}
	notice := fmt.Sprintf("Request %s. The student has been notified.", verb)
	if !e.notify(ctx, a.StudentID, text) {
		notice = fmt.Sprintf("Request %s, but we could not notify the student.", verb)
	}
	return e.toDashboard(ctx, doctorID, data, notice)
}

// bulkDecide moves every id that is still Pending to status to. Ids outside the snapshot
// are never touched, and requests decided elsewhere in the meantime are skipped. Only
// approvals notify students.
func (e *Engine) bulkDecide(ctx context.Context, doctorID string, data models.SessionData, ids []string, to models.Status) Outcome {
	var changed []models.Appointment
	for _, id := range ids {
		if !listed(data, id) {
			continue
		}
		a, ok, err := e.appts.TransitionAppointment(ctx, id, pendingOnly, to, doctorID)
		if err != nil {
			if !errors.Is(err, store.ErrNotFound) {
				e.log.Error("dialogue.Engine.bulkDecide failed to update request",
					zap.String("user_id", doctorID),
					zap.String("appointment_id", id),
					zap.Error(err),
				)
			}
			continue
		}
		if ok {
			changed = append(changed, *a)
		}
	}

	e.log.Info("dialogue.Engine.bulkDecide requests updated",
		zap.String("user_id", doctorID),
		zap.String("status", string(to)),
		zap.Int("requested", len(ids)),
		zap.Int("changed", len(changed)),
	)

	verb := "Declined"
	failed := 0
	if to == models.StatusApproved {
		verb = "Approved"
		for _, a := range changed {
			if !e.notify(ctx, a.StudentID, approvedNotice(a, data.Name)) {
				failed++
			}
		}
	}
	notice := fmt.Sprintf("%s %s.", verb, plural(len(changed), "request"))
	if failed > 0 {
		notice += fmt.Sprintf(" %s could not be notified.", plural(failed, "student"))
	}
	return e.toDashboard(ctx, doctorID, data, notice)
}

// notify is best effort and reports whether the student was reached. A failed
// notification never undoes the status change.
func (e *Engine) notify(ctx context.Context, studentID, text string) bool {
	if e.notifier == nil {
		return false
	}
	if err := e.notifier.Notify(ctx, studentID, text); err != nil {
		e.log.Warn("dialogue.Engine.notify failed to notify student",
			zap.String("student_id", studentID),
			zap.Error(err),
		)
		return false
	}
	return true
}

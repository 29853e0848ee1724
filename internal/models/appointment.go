package models

import "time"

// Status is the lifecycle position of an appointment request.
type Status string

const (
	StatusPending   Status = "Pending"
	StatusApproved  Status = "Approved"
	StatusDeclined  Status = "Declined"
	StatusCancelled Status = "Cancelled"
)

// Terminal reports whether no further clinician or student action applies.
func (s Status) Terminal() bool {
	return s == StatusApproved || s == StatusDeclined || s == StatusCancelled
}

// Appointment is a counselling session request raised by a student.
type Appointment struct {
	ID          string    `json:"id" bson:"_id"`
	StudentID   string    `json:"student_wa_id" bson:"student_wa_id"`
	StudentName string    `json:"student_name,omitempty" bson:"student_name,omitempty"`
	Date        string    `json:"date" bson:"date"`
	Time        string    `json:"time" bson:"time"`
	Concern     string    `json:"concern" bson:"concern"`
	Status      Status    `json:"status" bson:"status"`
	ApprovedBy  string    `json:"approved_by,omitempty" bson:"approved_by,omitempty"`
	DeclinedBy  string    `json:"declined_by,omitempty" bson:"declined_by,omitempty"`
	CancelledBy string    `json:"cancelled_by,omitempty" bson:"cancelled_by,omitempty"`
	CreatedAt   time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" bson:"updated_at"`
}

// Stamp records actor against the audit field matching the new status.
func (a *Appointment) Stamp(to Status, actor string, at time.Time) {
	a.Status = to
	a.UpdatedAt = at
	switch to {
	case StatusApproved:
		a.ApprovedBy = actor
	case StatusDeclined:
		a.DeclinedBy = actor
	case StatusCancelled:
		a.CancelledBy = actor
	}
}

// AuditField names the persisted field Stamp writes for to.
func AuditField(to Status) string {
	switch to {
	case StatusApproved:
		return "approved_by"
	case StatusDeclined:
		return "declined_by"
	case StatusCancelled:
		return "cancelled_by"
	}
	return ""
}

package models

import "time"

// Session is the per-user dialogue position plus the fields gathered so far.
type Session struct {
	UserID    string      `json:"wa_id" bson:"wa_id"`
	State     State       `json:"state" bson:"state"`
	Data      SessionData `json:"data" bson:"data"`
	UpdatedAt time.Time   `json:"updated_at" bson:"updated_at"`
}

// DoctorDraft accumulates the DR_REG_* answers.
type DoctorDraft struct {
	Name          string `json:"name,omitempty" bson:"name,omitempty"`
	Qualification string `json:"qualification,omitempty" bson:"qualification,omitempty"`
	License       string `json:"license,omitempty" bson:"license,omitempty"`
	WorkingDays   string `json:"working_days,omitempty" bson:"working_days,omitempty"`
	Slots         string `json:"slots,omitempty" bson:"slots,omitempty"`
}

// BookingDraft accumulates the BOOKING_* answers.
type BookingDraft struct {
	Date    string `json:"booking_date" bson:"booking_date"`
	Time    string `json:"booking_time" bson:"booking_time"`
	Concern string `json:"concern" bson:"concern"`
}

// SessionData is the typed form state carried between turns.
type SessionData struct {
	Role Role   `json:"role,omitempty" bson:"role,omitempty"`
	Name string `json:"name,omitempty" bson:"name,omitempty"`

	Doctor  *DoctorDraft  `json:"doctor,omitempty" bson:"doctor,omitempty"`
	Booking *BookingDraft `json:"booking,omitempty" bson:"booking,omitempty"`

	SelectedSessionID string `json:"selected_session_id,omitempty" bson:"selected_session_id,omitempty"`
	SelectedRequestID string `json:"selected_request_id,omitempty" bson:"selected_request_id,omitempty"`

	// Listed is the ordered snapshot of request ids last shown to a doctor.
	// Numeric shorthand and bulk actions resolve against it.
	Listed      []string `json:"listed,omitempty" bson:"listed,omitempty"`
	Selection   []string `json:"selection,omitempty" bson:"selection,omitempty"`
	MultiSelect bool     `json:"multi_select,omitempty" bson:"multi_select,omitempty"`
}

// Identity returns only the role and display name.
func (d SessionData) Identity() SessionData {
	return SessionData{Role: d.Role, Name: d.Name}
}

// ScopedTo keeps the fields that belong to state's flow and drops the rest.
func (d SessionData) ScopedTo(state State) SessionData {
	out := d.Identity()
	switch state.flow() {
	case flowNone:
		return SessionData{}
	case flowOther:
		out.Name = ""
	case flowDoctorReg:
		out.Name = ""
		if d.Doctor != nil {
			draft := *d.Doctor
			out.Doctor = &draft
		}
	case flowBooking:
		if d.Booking != nil {
			draft := *d.Booking
			out.Booking = &draft
		}
	case flowStudentManage:
		out.SelectedSessionID = d.SelectedSessionID
	case flowDoctorList:
		out.Listed = append([]string(nil), d.Listed...)
		out.Selection = append([]string(nil), d.Selection...)
		out.MultiSelect = d.MultiSelect
	case flowDoctorManage:
		out.SelectedRequestID = d.SelectedRequestID
	}
	return out
}

// IsSelected reports whether id is in the multi-pick set.
func (d SessionData) IsSelected(id string) bool {
	for _, s := range d.Selection {
		if s == id {
			return true
		}
	}
	return false
}

// Toggle flips membership of id in the multi-pick set.
func (d *SessionData) Toggle(id string) {
	for i, s := range d.Selection {
		if s == id {
			d.Selection = append(d.Selection[:i:i], d.Selection[i+1:]...)
			return
		}
	}
	d.Selection = append(d.Selection, id)
}

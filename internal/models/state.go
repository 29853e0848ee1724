// Package models defines the dialogue, profile and appointment types shared by the
// store, engine and transport packages.
package models

import "strings"

// State is a node of the conversation state machine.
type State string

const (
	StateStart           State = "START"
	StateRoleSelection   State = "ROLE_SELECTION"
	StateOtherFlow       State = "OTHER_FLOW"
	StateStudentRegName  State = "STUDENT_REG_NAME"
	StateDrRegName       State = "DR_REG_NAME"
	StateDrRegQual       State = "DR_REG_QUAL"
	StateDrRegLicense    State = "DR_REG_LICENSE"
	StateDrRegDays       State = "DR_REG_DAYS"
	StateDrRegSlots      State = "DR_REG_SLOTS"
	StateDrRegConfirm    State = "DR_REG_CONFIRM"
	StateStudentMenu     State = "STUDENT_MENU"
	StateSupport         State = "EMOTIONAL_SUPPORT"
	StateBookingDate     State = "BOOKING_DATE"
	StateBookingTime     State = "BOOKING_TIME"
	StateBookingDesc     State = "BOOKING_DESC"
	StateMySessions      State = "STUDENT_MY_SESSIONS"
	StateManageSession   State = "STUDENT_MANAGE_SESS"
	StateDoctorDashboard State = "DOCTOR_DASHBOARD"
	StateDoctorList      State = "DOCTOR_LIST_REQS"
	StateDoctorManage    State = "DOCTOR_MANAGE_REQ"
)

// States lists every member of the enumeration.
var States = []State{
	StateStart, StateRoleSelection, StateOtherFlow,
	StateStudentRegName,
	StateDrRegName, StateDrRegQual, StateDrRegLicense, StateDrRegDays, StateDrRegSlots, StateDrRegConfirm,
	StateStudentMenu, StateSupport,
	StateBookingDate, StateBookingTime, StateBookingDesc,
	StateMySessions, StateManageSession,
	StateDoctorDashboard, StateDoctorList, StateDoctorManage,
}

var validStates = func() map[State]struct{} {
	m := make(map[State]struct{}, len(States))
	for _, s := range States {
		m[s] = struct{}{}
	}
	return m
}()

// Valid reports whether s belongs to the enumeration.
func (s State) Valid() bool {
	_, ok := validStates[s]
	return ok
}

// ParseState maps a persisted value back to a State. Unknown values become START.
func ParseState(v string) State {
	s := State(strings.ToUpper(strings.TrimSpace(v)))
	if !s.Valid() {
		return StateStart
	}
	return s
}

// flow groups states whose accumulated data is interchangeable.
type flow int

const (
	flowNone flow = iota
	flowOther
	flowDoctorReg
	flowStudent
	flowBooking
	flowStudentManage
	flowDoctor
	flowDoctorList
	flowDoctorManage
)

func (s State) flow() flow {
	switch s {
	case StateOtherFlow:
		return flowOther
	case StateDrRegName, StateDrRegQual, StateDrRegLicense, StateDrRegDays, StateDrRegSlots, StateDrRegConfirm:
		return flowDoctorReg
	case StateStudentRegName, StateStudentMenu, StateSupport, StateMySessions:
		return flowStudent
	case StateBookingDate, StateBookingTime, StateBookingDesc:
		return flowBooking
	case StateManageSession:
		return flowStudentManage
	case StateDoctorDashboard:
		return flowDoctor
	case StateDoctorList:
		return flowDoctorList
	case StateDoctorManage:
		return flowDoctorManage
	default:
		return flowNone
	}
}

package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseTier(t *testing.T) {
	cases := map[string]Tier{
		"LOW":                   TierLow,
		" critical\n":           TierCritical,
		"Moderate":              TierModerate,
		"The level is HIGH.":    TierHigh,
		"HIGH or CRITICAL":      TierCritical,
		"no idea":               TierLow,
		"":                      TierLow,
	}
	for in, want := range cases {
		assert.Equal(t, want, ParseTier(in), "input %q", in)
	}
}

func TestParseState(t *testing.T) {
	assert.Equal(t, StateDoctorList, ParseState("doctor_list_reqs"))
	assert.Equal(t, StateStart, ParseState("BOOKING_CONFIRM"))
	assert.Equal(t, StateStart, ParseState(""))
	for _, s := range States {
		assert.True(t, s.Valid(), s)
	}
}

func TestScopedToDropsForeignDrafts(t *testing.T) {
	d := SessionData{
		Role:    RoleStudent,
		Name:    "Ada",
		Doctor:  &DoctorDraft{Name: "Dr Who"},
		Booking: &BookingDraft{Date: "2024-05-20"},
		Listed:  []string{"a"},
	}

	booking := d.ScopedTo(StateBookingTime)
	assert.Nil(t, booking.Doctor)
	assert.Equal(t, "2024-05-20", booking.Booking.Date)
	assert.Empty(t, booking.Listed)
	assert.Equal(t, "Ada", booking.Name)

	reg := d.ScopedTo(StateDrRegQual)
	assert.Nil(t, reg.Booking)
	assert.Equal(t, "Dr Who", reg.Doctor.Name)

	assert.Equal(t, SessionData{}, d.ScopedTo(StateStart))
}

func TestScopedToCopiesSlices(t *testing.T) {
	d := SessionData{Listed: []string{"a", "b"}, Selection: []string{"a"}}
	out := d.ScopedTo(StateDoctorList)
	out.Listed[0] = "z"
	assert.Equal(t, "a", d.Listed[0])
}

func TestToggleIsItsOwnInverse(t *testing.T) {
	var d SessionData
	d.Toggle("x")
	d.Toggle("y")
	assert.True(t, d.IsSelected("x"))
	d.Toggle("x")
	assert.False(t, d.IsSelected("x"))
	assert.Equal(t, []string{"y"}, d.Selection)
	d.Toggle("y")
	assert.Empty(t, d.Selection)
}

func TestStatusTerminal(t *testing.T) {
	assert.False(t, StatusPending.Terminal())
	assert.True(t, StatusApproved.Terminal())
	assert.True(t, StatusDeclined.Terminal())
	assert.True(t, StatusCancelled.Terminal())
}

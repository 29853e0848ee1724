package models

import "time"

// Role is the registered kind of user.
type Role string

const (
	RoleStudent Role = "Student"
	RoleDoctor  Role = "Doctor"
	RoleOther   Role = "Other"
)

// Profile is a registered user keyed by WhatsApp id.
type Profile struct {
	UserID string `json:"wa_id" bson:"wa_id"`
	Role   Role   `json:"role" bson:"role"`
	Name   string `json:"name" bson:"name"`

	// Doctor-only attributes.
	Qualification string `json:"qualification,omitempty" bson:"qualification,omitempty"`
	License       string `json:"license,omitempty" bson:"license,omitempty"`
	WorkingDays   string `json:"working_days,omitempty" bson:"working_days,omitempty"`
	Slots         string `json:"slots,omitempty" bson:"slots,omitempty"`
	Active        bool   `json:"active" bson:"active"`

	CreatedAt time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at"`
}

package store

import (
	"context"
	"errors"
	"time"

	"github.com/mindlyhq/mindly/internal/models"
)

// ErrNotFound is returned by writes that target a record which does not exist.
// Reads report a missing record as (nil, nil).
var ErrNotFound = errors.New("store: record not found")

// SessionStore is the durable mapping from WhatsApp id to dialogue state.
type SessionStore interface {
	// LoadSession returns the session for userID, creating a START/empty one if absent.
	LoadSession(ctx context.Context, userID string) (*models.Session, error)
	// SaveSession replaces state and data and stamps updated_at.
	SaveSession(ctx context.Context, userID string, state models.State, data models.SessionData) error
	ResetSession(ctx context.Context, userID string) error
}

type ProfileStore interface {
	GetProfile(ctx context.Context, userID string) (*models.Profile, error)
	UpsertProfile(ctx context.Context, p models.Profile) error
}

type AppointmentStore interface {
	CreateAppointment(ctx context.Context, a models.Appointment) (*models.Appointment, error)
	GetAppointment(ctx context.Context, id string) (*models.Appointment, error)
	// ListStudentAppointments returns the student's requests in any of statuses, oldest first.
	ListStudentAppointments(ctx context.Context, studentID string, statuses ...models.Status) ([]models.Appointment, error)
	// ListPendingAppointments returns at most limit Pending requests, oldest first.
	ListPendingAppointments(ctx context.Context, limit int) ([]models.Appointment, error)
	CountPendingAppointments(ctx context.Context) (int, error)
	// TransitionAppointment moves id to status to if its current status is one of from.
	// The returned bool is false when the status was left untouched.
	TransitionAppointment(ctx context.Context, id string, from []models.Status, to models.Status, actor string) (*models.Appointment, bool, error)
}

// Deduper remembers provider message ids so redeliveries are processed once.
type Deduper interface {
	// MarkProcessed returns true the first time messageID is seen.
	MarkProcessed(ctx context.Context, messageID string) (bool, error)
}

// Pruner drops dedup records older than maxAge. Drivers with native expiry skip it.
type Pruner interface {
	PruneProcessed(ctx context.Context, maxAge time.Duration) (int, error)
}

type Store interface {
	SessionStore
	ProfileStore
	AppointmentStore
	Deduper
	Close() error
}

func statusIn(s models.Status, set []models.Status) bool {
	for _, v := range set {
		if v == s {
			return true
		}
	}
	return false
}

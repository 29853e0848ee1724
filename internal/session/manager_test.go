package session

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mindlyhq/mindly/internal/models"
	"github.com/mindlyhq/mindly/internal/store"
)

func newTestManager(t *testing.T) (*Manager, *store.BoltStore) {
	t.Helper()
	s, err := store.NewBoltStore(filepath.Join(t.TempDir(), "mindly.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return NewManager(s, nil), s
}

func TestLoadCreatesStart(t *testing.T) {
	m, _ := newTestManager(t)

	s, err := m.Load(context.Background(), "5511")
	require.NoError(t, err)
	assert.Equal(t, "5511", s.UserID)
	assert.Equal(t, models.StateStart, s.State)
	assert.Equal(t, models.SessionData{}, s.Data)
}

func TestSaveScopesData(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	data := models.SessionData{
		Role:    models.RoleStudent,
		Name:    "Ada",
		Doctor:  &models.DoctorDraft{License: "leak"},
		Booking: &models.BookingDraft{Date: "2024-05-20"},
	}
	require.NoError(t, m.Save(ctx, "5511", models.StateBookingTime, data))

	s, err := m.Load(ctx, "5511")
	require.NoError(t, err)
	assert.Equal(t, models.StateBookingTime, s.State)
	assert.Nil(t, s.Data.Doctor)
	require.NotNil(t, s.Data.Booking)
	assert.Equal(t, "2024-05-20", s.Data.Booking.Date)
}

func TestSaveRejectsUnknownState(t *testing.T) {
	m, _ := newTestManager(t)
	err := m.Save(context.Background(), "5511", models.State("BOGUS"), models.SessionData{})
	assert.Error(t, err)
}

func TestLoadRepairsUnknownPersistedState(t *testing.T) {
	m, s := newTestManager(t)
	ctx := context.Background()
	require.NoError(t, s.SaveSession(ctx, "5511", models.State("BOOKING_CONFIRM"), models.SessionData{Name: "Ada"}))

	got, err := m.Load(ctx, "5511")
	require.NoError(t, err)
	assert.Equal(t, models.StateStart, got.State)
	assert.Equal(t, models.SessionData{}, got.Data)
}

func TestReset(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()
	require.NoError(t, m.Save(ctx, "5511", models.StateStudentMenu, models.SessionData{Role: models.RoleStudent, Name: "Ada"}))

	require.NoError(t, m.Reset(ctx, "5511"))
	s, err := m.Load(ctx, "5511")
	require.NoError(t, err)
	assert.Equal(t, models.StateStart, s.State)
	assert.Equal(t, models.SessionData{}, s.Data)
}

type failingStore struct{ err error }

func (f failingStore) LoadSession(context.Context, string) (*models.Session, error) { return nil, f.err }
func (f failingStore) SaveSession(context.Context, string, models.State, models.SessionData) error {
	return f.err
}
func (f failingStore) ResetSession(context.Context, string) error { return f.err }

func TestStoreErrorsAreWrapped(t *testing.T) {
	boom := errors.New("disk full")
	m := NewManager(failingStore{err: boom}, nil)
	ctx := context.Background()

	_, err := m.Load(ctx, "5511")
	assert.ErrorIs(t, err, boom)
	assert.ErrorIs(t, m.Save(ctx, "5511", models.StateStart, models.SessionData{}), boom)
	assert.ErrorIs(t, m.Reset(ctx, "5511"), boom)
}

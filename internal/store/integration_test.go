package store

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mindlyhq/mindly/internal/models"
)

func getenvOrSkip(t *testing.T, key string) string {
	t.Helper()
	v := os.Getenv(key)
	if v == "" {
		t.Skipf("env %s not set", key)
	}
	return v
}

func TestMongoStore(t *testing.T) {
	uri := getenvOrSkip(t, "MONGO_URI")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	s, err := NewMongoStore(ctx, uri, "mindly_test_"+uuid.NewString()[:8])
	if err != nil {
		t.Skipf("mongo not available: %v", err)
	}
	defer func() {
		s.sessions.Database().Drop(ctx)
		s.Close()
	}()

	sess, err := s.LoadSession(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, models.StateStart, sess.State)

	require.NoError(t, s.SaveSession(ctx, "u1", models.StateBookingDate, models.SessionData{Role: models.RoleStudent}))
	sess, err = s.LoadSession(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, models.StateBookingDate, sess.State)

	a, err := s.CreateAppointment(ctx, models.Appointment{StudentID: "u1", Date: "2024-05-20"})
	require.NoError(t, err)

	_, changed, err := s.TransitionAppointment(ctx, a.ID, []models.Status{models.StatusPending}, models.StatusApproved, "d1")
	require.NoError(t, err)
	assert.True(t, changed)
	_, changed, err = s.TransitionAppointment(ctx, a.ID, []models.Status{models.StatusPending}, models.StatusApproved, "d1")
	require.NoError(t, err)
	assert.False(t, changed)

	first, err := s.MarkProcessed(ctx, "m1")
	require.NoError(t, err)
	assert.True(t, first)
	first, err = s.MarkProcessed(ctx, "m1")
	require.NoError(t, err)
	assert.False(t, first)
}

func TestRedisDeduper(t *testing.T) {
	addr := getenvOrSkip(t, "REDIS_ADDR")
	ctx := context.Background()

	rdb, err := NewRedisClient(ctx, addr, os.Getenv("REDIS_PASSWORD"))
	if err != nil {
		t.Skipf("redis not available: %v", err)
	}
	defer rdb.Close()

	d := NewRedisDeduper(rdb, time.Minute)
	id := "test-" + uuid.NewString()
	defer rdb.Del(ctx, processedKeyPrefix+id)

	first, err := d.MarkProcessed(ctx, id)
	require.NoError(t, err)
	assert.True(t, first)
	first, err = d.MarkProcessed(ctx, id)
	require.NoError(t, err)
	assert.False(t, first)
}

// Package session is the Session Store service the turn handler talks to. It sits on a
// store.SessionStore and keeps what is persisted consistent with the state machine.
package session

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/mindlyhq/mindly/internal/models"
	"github.com/mindlyhq/mindly/internal/store"
)

// Manager holds no per-user state of its own. Concurrent turns for the same user race
// on the store and the last save wins.
type Manager struct {
	store store.SessionStore
	log   *zap.Logger
}

func NewManager(s store.SessionStore, log *zap.Logger) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{store: s, log: log}
}

// Load returns the user's session, creating START/empty on first contact. A persisted
// state outside the enumeration is read back as START with empty data.
func (m *Manager) Load(ctx context.Context, userID string) (models.Session, error) {
	s, err := m.store.LoadSession(ctx, userID)
	if err != nil {
		return models.Session{}, fmt.Errorf("loading session %s: %w", userID, err)
	}

	if !s.State.Valid() {
		m.log.Warn("session.Manager.Load unknown persisted state, resetting",
			zap.String("user_id", userID),
			zap.String("state", string(s.State)),
		)
		s.State = models.StateStart
		s.Data = models.SessionData{}
	}
	s.Data = s.Data.ScopedTo(s.State)
	return *s, nil
}

// Save replaces the session. Data that does not belong to state is dropped first.
func (m *Manager) Save(ctx context.Context, userID string, state models.State, data models.SessionData) error {
	if !state.Valid() {
		return fmt.Errorf("saving session %s: invalid state %q", userID, state)
	}
	if err := m.store.SaveSession(ctx, userID, state, data.ScopedTo(state)); err != nil {
		return fmt.Errorf("saving session %s: %w", userID, err)
	}
	m.log.Debug("session.Manager.Save",
		zap.String("user_id", userID),
		zap.String("state", string(state)),
	)
	return nil
}

func (m *Manager) Reset(ctx context.Context, userID string) error {
	if err := m.store.ResetSession(ctx, userID); err != nil {
		return fmt.Errorf("resetting session %s: %w", userID, err)
	}
	m.log.Info("session.Manager.Reset", zap.String("user_id", userID))
	return nil
}

package store

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"

	"github.com/mindlyhq/mindly/internal/models"
)

var (
	sessionsBucket     = []byte("chat_sessions")
	usersBucket        = []byte("users")
	appointmentsBucket = []byte("counseling_sessions")
	processedBucket    = []byte("processed_messages")
)

type BoltStore struct {
	db  *bolt.DB
	now func() time.Time
}

func NewBoltStore(path string) (*BoltStore, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening bolt db: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, b := range [][]byte{sessionsBucket, usersBucket, appointmentsBucket, processedBucket} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating buckets: %w", err)
	}

	return &BoltStore{db: db, now: func() time.Time { return time.Now().UTC() }}, nil
}

// --- sessions ---

func (s *BoltStore) LoadSession(_ context.Context, userID string) (*models.Session, error) {
	var sess models.Session
	// Read and create inside one write transaction so two first contacts cannot both insert.
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(sessionsBucket)
		if v := b.Get([]byte(userID)); v != nil {
			return json.Unmarshal(v, &sess)
		}
		sess = models.Session{UserID: userID, State: models.StateStart, UpdatedAt: s.now()}
		return putJSON(b, userID, sess)
	})
	if err != nil {
		return nil, fmt.Errorf("loading session %s: %w", userID, err)
	}
	sess.State = models.ParseState(string(sess.State))
	return &sess, nil
}

func (s *BoltStore) SaveSession(_ context.Context, userID string, state models.State, data models.SessionData) error {
	sess := models.Session{UserID: userID, State: state, Data: data, UpdatedAt: s.now()}
	return s.db.Update(func(tx *bolt.Tx) error {
		return putJSON(tx.Bucket(sessionsBucket), userID, sess)
	})
}

func (s *BoltStore) ResetSession(ctx context.Context, userID string) error {
	return s.SaveSession(ctx, userID, models.StateStart, models.SessionData{})
}

// --- profiles ---

func (s *BoltStore) GetProfile(_ context.Context, userID string) (*models.Profile, error) {
	var p models.Profile
	found := false
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(usersBucket).Get([]byte(userID))
		if v == nil {
			return nil
		}
		found = true
		return json.Unmarshal(v, &p)
	})
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	return &p, nil
}

func (s *BoltStore) UpsertProfile(_ context.Context, p models.Profile) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(usersBucket)
		now := s.now()
		if v := b.Get([]byte(p.UserID)); v != nil {
			var existing models.Profile
			if err := json.Unmarshal(v, &existing); err == nil {
				p.CreatedAt = existing.CreatedAt
			}
		}
		if p.CreatedAt.IsZero() {
			p.CreatedAt = now
		}
		p.UpdatedAt = now
		return putJSON(b, p.UserID, p)
	})
}

// --- appointments ---

func (s *BoltStore) CreateAppointment(_ context.Context, a models.Appointment) (*models.Appointment, error) {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.Status == "" {
		a.Status = models.StatusPending
	}
	now := s.now()
	a.CreatedAt, a.UpdatedAt = now, now

	err := s.db.Update(func(tx *bolt.Tx) error {
		return putJSON(tx.Bucket(appointmentsBucket), a.ID, a)
	})
	if err != nil {
		return nil, fmt.Errorf("creating appointment: %w", err)
	}
	return &a, nil
}

func (s *BoltStore) GetAppointment(_ context.Context, id string) (*models.Appointment, error) {
	var a models.Appointment
	found := false
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(appointmentsBucket).Get([]byte(id))
		if v == nil {
			return nil
		}
		found = true
		return json.Unmarshal(v, &a)
	})
	if err != nil || !found {
		return nil, err
	}
	return &a, nil
}

func (s *BoltStore) ListStudentAppointments(_ context.Context, studentID string, statuses ...models.Status) ([]models.Appointment, error) {
	return s.scanAppointments(func(a models.Appointment) bool {
		return a.StudentID == studentID && (len(statuses) == 0 || statusIn(a.Status, statuses))
	}, 0)
}

func (s *BoltStore) ListPendingAppointments(_ context.Context, limit int) ([]models.Appointment, error) {
	return s.scanAppointments(func(a models.Appointment) bool {
		return a.Status == models.StatusPending
	}, limit)
}

func (s *BoltStore) CountPendingAppointments(ctx context.Context) (int, error) {
	pending, err := s.ListPendingAppointments(ctx, 0)
	return len(pending), err
}

func (s *BoltStore) TransitionAppointment(_ context.Context, id string, from []models.Status, to models.Status, actor string) (*models.Appointment, bool, error) {
	var (
		a       models.Appointment
		changed bool
	)
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(appointmentsBucket)
		v := b.Get([]byte(id))
		if v == nil {
			return ErrNotFound
		}
		if err := json.Unmarshal(v, &a); err != nil {
			return err
		}
		if !statusIn(a.Status, from) {
			return nil
		}
		a.Stamp(to, actor, s.now())
		changed = true
		return putJSON(b, id, a)
	})
	if err != nil {
		return nil, false, err
	}
	return &a, changed, nil
}

// scanAppointments returns matching records oldest first; limit <= 0 means no limit.
func (s *BoltStore) scanAppointments(match func(models.Appointment) bool, limit int) ([]models.Appointment, error) {
	var out []models.Appointment
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(appointmentsBucket).ForEach(func(_, v []byte) error {
			var a models.Appointment
			if err := json.Unmarshal(v, &a); err != nil {
				return err
			}
			if match(a) {
				out = append(out, a)
			}
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("scanning appointments: %w", err)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// --- dedup ---

func (s *BoltStore) MarkProcessed(_ context.Context, messageID string) (bool, error) {
	first := false
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(processedBucket)
		if b.Get([]byte(messageID)) != nil {
			return nil
		}
		first = true
		return b.Put([]byte(messageID), []byte(s.now().Format(time.RFC3339Nano)))
	})
	return first, err
}

func (s *BoltStore) PruneProcessed(_ context.Context, maxAge time.Duration) (int, error) {
	cutoff := s.now().Add(-maxAge)
	removed := 0
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(processedBucket)
		var stale [][]byte
		err := b.ForEach(func(k, v []byte) error {
			seen, err := time.Parse(time.RFC3339Nano, string(v))
			if err != nil || seen.Before(cutoff) {
				stale = append(stale, append([]byte(nil), k...))
			}
			return nil
		})
		if err != nil {
			return err
		}
		for _, k := range stale {
			if err := b.Delete(k); err != nil {
				return err
			}
		}
		removed = len(stale)
		return nil
	})
	return removed, err
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}

func putJSON(b *bolt.Bucket, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return b.Put([]byte(key), data)
}

package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mindlyhq/mindly/internal/models"
)

const (
	collectionSessions     = "chat_sessions"
	collectionUsers        = "users"
	collectionAppointments = "counseling_sessions"
	collectionProcessed    = "processed_messages"

	processedTTL = 48 * time.Hour
)

// MongoStore uses the collection layout shared with the web backend: chat_sessions
// and users keyed by wa_id, counseling_sessions keyed by request id.
type MongoStore struct {
	client       *mongo.Client
	sessions     *mongo.Collection
	users        *mongo.Collection
	appointments *mongo.Collection
	processed    *mongo.Collection
	now          func() time.Time
}

func NewMongoStore(ctx context.Context, uri, dbName string) (*MongoStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connecting to mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		client.Disconnect(ctx)
		return nil, fmt.Errorf("pinging mongo: %w", err)
	}

	db := client.Database(dbName)
	s := &MongoStore{
		client:       client,
		sessions:     db.Collection(collectionSessions),
		users:        db.Collection(collectionUsers),
		appointments: db.Collection(collectionAppointments),
		processed:    db.Collection(collectionProcessed),
		now:          func() time.Time { return time.Now().UTC() },
	}
	if err := s.ensureIndexes(ctx); err != nil {
		client.Disconnect(ctx)
		return nil, err
	}
	return s, nil
}

func (s *MongoStore) ensureIndexes(ctx context.Context) error {
	unique := options.Index().SetUnique(true)
	indexes := []struct {
		coll  *mongo.Collection
		model mongo.IndexModel
	}{
		{s.sessions, mongo.IndexModel{Keys: bson.D{{Key: "wa_id", Value: 1}}, Options: unique}},
		{s.users, mongo.IndexModel{Keys: bson.D{{Key: "wa_id", Value: 1}}, Options: unique}},
		{s.appointments, mongo.IndexModel{Keys: bson.D{{Key: "status", Value: 1}, {Key: "created_at", Value: 1}}}},
		{s.appointments, mongo.IndexModel{Keys: bson.D{{Key: "student_wa_id", Value: 1}}}},
		{s.processed, mongo.IndexModel{
			Keys:    bson.D{{Key: "created_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(int32(processedTTL.Seconds())),
		}},
	}
	for _, ix := range indexes {
		if _, err := ix.coll.Indexes().CreateOne(ctx, ix.model); err != nil {
			return fmt.Errorf("creating index on %s: %w", ix.coll.Name(), err)
		}
	}
	return nil
}

// --- sessions ---

func (s *MongoStore) LoadSession(ctx context.Context, userID string) (*models.Session, error) {
	filter := bson.M{"wa_id": userID}
	update := bson.M{"$setOnInsert": bson.M{
		"wa_id":      userID,
		"state":      models.StateStart,
		"data":       models.SessionData{},
		"updated_at": s.now(),
	}}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var sess models.Session
	err := s.sessions.FindOneAndUpdate(ctx, filter, update, opts).Decode(&sess)
	if mongo.IsDuplicateKeyError(err) {
		// Lost the insert race against a concurrent first contact; the winner's document exists now.
		err = s.sessions.FindOne(ctx, filter).Decode(&sess)
	}
	if err != nil {
		return nil, fmt.Errorf("loading session %s: %w", userID, err)
	}
	sess.State = models.ParseState(string(sess.State))
	return &sess, nil
}

func (s *MongoStore) SaveSession(ctx context.Context, userID string, state models.State, data models.SessionData) error {
	update := bson.M{"$set": bson.M{"state": state, "data": data, "updated_at": s.now()}}
	_, err := s.sessions.UpdateOne(ctx, bson.M{"wa_id": userID}, update, options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("saving session %s: %w", userID, err)
	}
	return nil
}

func (s *MongoStore) ResetSession(ctx context.Context, userID string) error {
	return s.SaveSession(ctx, userID, models.StateStart, models.SessionData{})
}

// --- profiles ---

func (s *MongoStore) GetProfile(ctx context.Context, userID string) (*models.Profile, error) {
	var p models.Profile
	err := s.users.FindOne(ctx, bson.M{"wa_id": userID}).Decode(&p)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("finding profile %s: %w", userID, err)
	}
	return &p, nil
}

func (s *MongoStore) UpsertProfile(ctx context.Context, p models.Profile) error {
	now := s.now()
	set := bson.M{
		"role":          p.Role,
		"name":          p.Name,
		"qualification": p.Qualification,
		"license":       p.License,
		"working_days":  p.WorkingDays,
		"slots":         p.Slots,
		"active":        p.Active,
		"updated_at":    now,
	}
	update := bson.M{
		"$set":         set,
		"$setOnInsert": bson.M{"wa_id": p.UserID, "created_at": now},
	}
	_, err := s.users.UpdateOne(ctx, bson.M{"wa_id": p.UserID}, update, options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("upserting profile %s: %w", p.UserID, err)
	}
	return nil
}

// --- appointments ---

func (s *MongoStore) CreateAppointment(ctx context.Context, a models.Appointment) (*models.Appointment, error) {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.Status == "" {
		a.Status = models.StatusPending
	}
	now := s.now()
	a.CreatedAt, a.UpdatedAt = now, now

	if _, err := s.appointments.InsertOne(ctx, a); err != nil {
		return nil, fmt.Errorf("inserting appointment: %w", err)
	}
	return &a, nil
}

func (s *MongoStore) GetAppointment(ctx context.Context, id string) (*models.Appointment, error) {
	var a models.Appointment
	err := s.appointments.FindOne(ctx, bson.M{"_id": id}).Decode(&a)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("finding appointment %s: %w", id, err)
	}
	return &a, nil
}

func (s *MongoStore) ListStudentAppointments(ctx context.Context, studentID string, statuses ...models.Status) ([]models.Appointment, error) {
	filter := bson.M{"student_wa_id": studentID}
	if len(statuses) > 0 {
		filter["status"] = bson.M{"$in": statuses}
	}
	return s.findAppointments(ctx, filter, 0)
}

func (s *MongoStore) ListPendingAppointments(ctx context.Context, limit int) ([]models.Appointment, error) {
	return s.findAppointments(ctx, bson.M{"status": models.StatusPending}, limit)
}

func (s *MongoStore) CountPendingAppointments(ctx context.Context) (int, error) {
	n, err := s.appointments.CountDocuments(ctx, bson.M{"status": models.StatusPending})
	if err != nil {
		return 0, fmt.Errorf("counting pending appointments: %w", err)
	}
	return int(n), nil
}

func (s *MongoStore) TransitionAppointment(ctx context.Context, id string, from []models.Status, to models.Status, actor string) (*models.Appointment, bool, error) {
	set := bson.M{"status": to, "updated_at": s.now()}
	if field := models.AuditField(to); field != "" {
		set[field] = actor
	}
	filter := bson.M{"_id": id, "status": bson.M{"$in": from}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var a models.Appointment
	err := s.appointments.FindOneAndUpdate(ctx, filter, bson.M{"$set": set}, opts).Decode(&a)
	if err == nil {
		return &a, true, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, false, fmt.Errorf("transitioning appointment %s: %w", id, err)
	}

	current, err := s.GetAppointment(ctx, id)
	if err != nil {
		return nil, false, err
	}
	if current == nil {
		return nil, false, ErrNotFound
	}
	return current, false, nil
}

func (s *MongoStore) findAppointments(ctx context.Context, filter bson.M, limit int) ([]models.Appointment, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	cur, err := s.appointments.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("finding appointments: %w", err)
	}
	defer cur.Close(ctx)

	var out []models.Appointment
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decoding appointments: %w", err)
	}
	return out, nil
}

// --- dedup ---

func (s *MongoStore) MarkProcessed(ctx context.Context, messageID string) (bool, error) {
	_, err := s.processed.InsertOne(ctx, bson.M{"_id": messageID, "created_at": s.now()})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return false, nil
		}
		return false, fmt.Errorf("recording message %s: %w", messageID, err)
	}
	return true, nil
}

func (s *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

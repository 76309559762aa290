package sessionRepo

import (
	"context"
	"fmt"
	"time"

	"shutterhub/database"
	"shutterhub/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoSessionRepo implements SessionRepository using MongoDB.
type MongoSessionRepo struct {
	coll *mongo.Collection
}

// NewMongoSessionRepo creates a new instance of SessionRepository using MongoDB.
func NewMongoSessionRepo() SessionRepository {
	repo := &MongoSessionRepo{coll: database.Collection("sessions")}
	if err := repo.ensureIndexes(); err != nil {
		fmt.Printf("failed to create session indexes: %v\n", err)
	}
	return repo
}

// newContext creates a context with the given timeout.
func newContext(timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), timeout)
}

func (r *MongoSessionRepo) ensureIndexes() error {
	ctx, cancel := newContext(10 * time.Second)
	defer cancel()

	indexModels := []mongo.IndexModel{
		{Keys: bson.D{{Key: "id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "published", Value: 1}, {Key: "opens_at", Value: 1}}},
		{Keys: bson.D{{Key: "booking_mode", Value: 1}, {Key: "lottery.lottery_date", Value: 1}}},
	}

	_, err := r.coll.Indexes().CreateMany(ctx, indexModels)
	if err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}
	return nil
}

func (r *MongoSessionRepo) GetByID(id string) (*models.PhotoSession, error) {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	var session models.PhotoSession
	if err := r.coll.FindOne(ctx, bson.M{"id": id}).Decode(&session); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, fmt.Errorf("session with id %s not found", id)
		}
		return nil, fmt.Errorf("failed to fetch session %s: %w", id, err)
	}
	return &session, nil
}

func (r *MongoSessionRepo) ListPublished() ([]models.PhotoSession, error) {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	cursor, err := r.coll.Find(ctx, bson.M{"published": true},
		options.Find().SetSort(bson.D{{Key: "opens_at", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer cursor.Close(ctx)

	var sessions []models.PhotoSession
	if err := cursor.All(ctx, &sessions); err != nil {
		return nil, fmt.Errorf("failed to decode sessions: %w", err)
	}
	return sessions, nil
}

func (r *MongoSessionRepo) Create(session *models.PhotoSession) error {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	if _, err := r.coll.InsertOne(ctx, session); err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

func (r *MongoSessionRepo) Update(session *models.PhotoSession) error {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	session.UpdatedAt = time.Now()
	res, err := r.coll.ReplaceOne(ctx, bson.M{"id": session.ID}, session)
	if err != nil {
		return fmt.Errorf("failed to update session %s: %w", session.ID, err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("session with id %s not found", session.ID)
	}
	return nil
}

func (r *MongoSessionRepo) Delete(id string) error {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	res, err := r.coll.DeleteOne(ctx, bson.M{"id": id})
	if err != nil {
		return fmt.Errorf("failed to delete session %s: %w", id, err)
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("session with id %s not found", id)
	}
	return nil
}

func (r *MongoSessionRepo) SetPublished(id string, published bool) error {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	res, err := r.coll.UpdateOne(ctx, bson.M{"id": id}, bson.M{
		"$set": bson.M{"published": published, "updated_at": time.Now()},
	})
	if err != nil {
		return fmt.Errorf("failed to set published on session %s: %w", id, err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("session with id %s not found", id)
	}
	return nil
}

// ReserveSeat performs the guarded increment that backs the capacity tracker.
// The filter admits the document only while current_count < capacity, so two
// racing requests for the last seat cannot both match.
func (r *MongoSessionRepo) ReserveSeat(ctx context.Context, id string) (bool, error) {
	filter := bson.M{
		"id":    id,
		"$expr": bson.M{"$lt": bson.A{"$current_count", "$capacity"}},
	}
	update := bson.M{
		"$inc": bson.M{"current_count": 1},
		"$set": bson.M{"updated_at": time.Now()},
	}

	res, err := r.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, fmt.Errorf("failed to reserve seat on session %s: %w", id, err)
	}
	return res.ModifiedCount == 1, nil
}

// ReleaseSeat decrements current_count, guarded so the counter never goes
// below zero.
func (r *MongoSessionRepo) ReleaseSeat(ctx context.Context, id string) (bool, error) {
	filter := bson.M{
		"id":            id,
		"current_count": bson.M{"$gt": 0},
	}
	update := bson.M{
		"$inc": bson.M{"current_count": -1},
		"$set": bson.M{"updated_at": time.Now()},
	}

	res, err := r.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, fmt.Errorf("failed to release seat on session %s: %w", id, err)
	}
	return res.ModifiedCount == 1, nil
}

// MarkDrawn flips lottery.drawn with a conditional update so the draw runs at
// most once per session.
func (r *MongoSessionRepo) MarkDrawn(ctx context.Context, id string, seed string, at time.Time) (bool, error) {
	filter := bson.M{
		"id":            id,
		"lottery.drawn": false,
	}
	update := bson.M{
		"$set": bson.M{
			"lottery.drawn":     true,
			"lottery.draw_seed": seed,
			"lottery.drawn_at":  at,
			"updated_at":        at,
		},
	}

	res, err := r.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, fmt.Errorf("failed to mark session %s drawn: %w", id, err)
	}
	return res.ModifiedCount == 1, nil
}

func (r *MongoSessionRepo) ListDueLotteries(now time.Time) ([]models.PhotoSession, error) {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	filter := bson.M{
		"published":            true,
		"booking_mode":         models.ModeLottery,
		"lottery.drawn":        false,
		"lottery.lottery_date": bson.M{"$lte": now},
	}

	cursor, err := r.coll.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list due lotteries: %w", err)
	}
	defer cursor.Close(ctx)

	var sessions []models.PhotoSession
	if err := cursor.All(ctx, &sessions); err != nil {
		return nil, fmt.Errorf("failed to decode due lotteries: %w", err)
	}
	return sessions, nil
}

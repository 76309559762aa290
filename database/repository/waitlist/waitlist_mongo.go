package waitlistRepo

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

// MongoWaitlistRepo implements WaitlistRepository using MongoDB.
type MongoWaitlistRepo struct {
	coll *mongo.Collection
}

// NewMongoWaitlistRepo creates a new instance of WaitlistRepository using MongoDB.
func NewMongoWaitlistRepo() WaitlistRepository {
	repo := &MongoWaitlistRepo{coll: database.Collection("waitlist_entries")}
	if err := repo.ensureIndexes(); err != nil {
		fmt.Printf("failed to create waitlist indexes: %v\n", err)
	}
	return repo
}

func newContext(timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), timeout)
}

func (r *MongoWaitlistRepo) ensureIndexes() error {
	ctx, cancel := newContext(10 * time.Second)
	defer cancel()

	indexModels := []mongo.IndexModel{
		{Keys: bson.D{{Key: "id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "session_id", Value: 1}, {Key: "queue_position", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "promotion_deadline", Value: 1}}},
	}

	_, err := r.coll.Indexes().CreateMany(ctx, indexModels)
	if err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}
	return nil
}

func (r *MongoWaitlistRepo) Create(entry *models.WaitlistEntry) error {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	if _, err := r.coll.InsertOne(ctx, entry); err != nil {
		return fmt.Errorf("failed to create waitlist entry: %w", err)
	}
	return nil
}

func (r *MongoWaitlistRepo) GetByID(id string) (*models.WaitlistEntry, error) {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	var entry models.WaitlistEntry
	if err := r.coll.FindOne(ctx, bson.M{"id": id}).Decode(&entry); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, fmt.Errorf("waitlist entry with id %s not found", id)
		}
		return nil, fmt.Errorf("failed to fetch waitlist entry %s: %w", id, err)
	}
	return &entry, nil
}

func (r *MongoWaitlistRepo) MaxPosition(sessionID string) (int, error) {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	opts := options.FindOne().SetSort(bson.D{{Key: "queue_position", Value: -1}})
	var entry models.WaitlistEntry
	err := r.coll.FindOne(ctx, bson.M{"session_id": sessionID}, opts).Decode(&entry)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to query max queue position: %w", err)
	}
	return entry.QueuePosition, nil
}

func (r *MongoWaitlistRepo) FindActiveBySessionAndUser(sessionID, userID string) (*models.WaitlistEntry, error) {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	filter := bson.M{
		"session_id": sessionID,
		"user_id":    userID,
		"status":     bson.M{"$in": bson.A{models.WaitlistWaiting, models.WaitlistPromoted}},
	}

	var entry models.WaitlistEntry
	if err := r.coll.FindOne(ctx, filter).Decode(&entry); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query active waitlist entry: %w", err)
	}
	return &entry, nil
}

func (r *MongoWaitlistRepo) NextWaiting(sessionID string) (*models.WaitlistEntry, error) {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	opts := options.FindOne().SetSort(bson.D{{Key: "queue_position", Value: 1}})
	var entry models.WaitlistEntry
	err := r.coll.FindOne(ctx, bson.M{"session_id": sessionID, "status": models.WaitlistWaiting}, opts).Decode(&entry)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query next waiting entry: %w", err)
	}
	return &entry, nil
}

func (r *MongoWaitlistRepo) HasPromoted(sessionID string) (bool, error) {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	count, err := r.coll.CountDocuments(ctx, bson.M{"session_id": sessionID, "status": models.WaitlistPromoted})
	if err != nil {
		return false, fmt.Errorf("failed to count promoted entries: %w", err)
	}
	return count > 0, nil
}

func (r *MongoWaitlistRepo) MarkPromoted(id string, deadline time.Time, at time.Time) (bool, error) {
	return r.transition(id, models.WaitlistWaiting, bson.M{
		"status":             models.WaitlistPromoted,
		"promotion_deadline": deadline,
		"promoted_at":        at,
	})
}

func (r *MongoWaitlistRepo) MarkConfirmed(id, bookingID string) (bool, error) {
	return r.transition(id, models.WaitlistPromoted, bson.M{
		"status":     models.WaitlistConfirmed,
		"booking_id": bookingID,
	})
}

func (r *MongoWaitlistRepo) MarkExpired(id string) (bool, error) {
	return r.transition(id, models.WaitlistPromoted, bson.M{"status": models.WaitlistExpired})
}

func (r *MongoWaitlistRepo) MarkCancelled(id string) (bool, error) {
	return r.transition(id, models.WaitlistWaiting, bson.M{"status": models.WaitlistCancelled})
}

// transition performs a guarded status change; the from-status filter makes
// each transition run at most once.
func (r *MongoWaitlistRepo) transition(id, from string, set bson.M) (bool, error) {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	res, err := r.coll.UpdateOne(ctx, bson.M{"id": id, "status": from}, bson.M{"$set": set})
	if err != nil {
		return false, fmt.Errorf("failed to transition waitlist entry %s: %w", id, err)
	}
	return res.ModifiedCount == 1, nil
}

func (r *MongoWaitlistRepo) ListStalePromotions(now time.Time) ([]models.WaitlistEntry, error) {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	filter := bson.M{
		"status":             models.WaitlistPromoted,
		"promotion_deadline": bson.M{"$lte": now},
	}

	cursor, err := r.coll.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list stale promotions: %w", err)
	}
	defer cursor.Close(ctx)

	var entries []models.WaitlistEntry
	if err := cursor.All(ctx, &entries); err != nil {
		return nil, fmt.Errorf("failed to decode stale promotions: %w", err)
	}
	return entries, nil
}

func (r *MongoWaitlistRepo) ListBySession(sessionID string) ([]models.WaitlistEntry, error) {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	cursor, err := r.coll.Find(ctx, bson.M{"session_id": sessionID},
		options.Find().SetSort(bson.D{{Key: "queue_position", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to list waitlist entries: %w", err)
	}
	defer cursor.Close(ctx)

	var entries []models.WaitlistEntry
	if err := cursor.All(ctx, &entries); err != nil {
		return nil, fmt.Errorf("failed to decode waitlist entries: %w", err)
	}
	return entries, nil
}

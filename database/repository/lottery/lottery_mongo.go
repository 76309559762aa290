package lotteryRepo

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

// MongoLotteryRepo implements LotteryRepository using MongoDB.
type MongoLotteryRepo struct {
	coll        *mongo.Collection
	bookingColl *mongo.Collection
	sessionColl *mongo.Collection
}

// NewMongoLotteryRepo creates a new instance of LotteryRepository using MongoDB.
func NewMongoLotteryRepo() LotteryRepository {
	repo := &MongoLotteryRepo{
		coll:        database.Collection("lottery_entries"),
		bookingColl: database.Collection("bookings"),
		sessionColl: database.Collection("sessions"),
	}
	if err := repo.ensureIndexes(); err != nil {
		fmt.Printf("failed to create lottery indexes: %v\n", err)
	}
	return repo
}

func newContext(timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), timeout)
}

func (r *MongoLotteryRepo) ensureIndexes() error {
	ctx, cancel := newContext(10 * time.Second)
	defer cancel()

	indexModels := []mongo.IndexModel{
		{Keys: bson.D{{Key: "id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "session_id", Value: 1}, {Key: "user_id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "session_id", Value: 1}, {Key: "status", Value: 1}}},
	}

	_, err := r.coll.Indexes().CreateMany(ctx, indexModels)
	if err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}
	return nil
}

func (r *MongoLotteryRepo) Create(entry *models.LotteryEntry) error {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	if _, err := r.coll.InsertOne(ctx, entry); err != nil {
		return fmt.Errorf("failed to create lottery entry: %w", err)
	}
	return nil
}

func (r *MongoLotteryRepo) GetByID(id string) (*models.LotteryEntry, error) {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	var entry models.LotteryEntry
	if err := r.coll.FindOne(ctx, bson.M{"id": id}).Decode(&entry); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, fmt.Errorf("lottery entry with id %s not found", id)
		}
		return nil, fmt.Errorf("failed to fetch lottery entry %s: %w", id, err)
	}
	return &entry, nil
}

func (r *MongoLotteryRepo) FindBySessionAndUser(sessionID, userID string) (*models.LotteryEntry, error) {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	var entry models.LotteryEntry
	err := r.coll.FindOne(ctx, bson.M{"session_id": sessionID, "user_id": userID}).Decode(&entry)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query lottery entry: %w", err)
	}
	return &entry, nil
}

func (r *MongoLotteryRepo) ListBySession(sessionID string, statuses ...string) ([]models.LotteryEntry, error) {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	filter := bson.M{"session_id": sessionID}
	if len(statuses) > 0 {
		in := bson.A{}
		for _, s := range statuses {
			in = append(in, s)
		}
		filter["status"] = bson.M{"$in": in}
	}

	cursor, err := r.coll.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to list lottery entries: %w", err)
	}
	defer cursor.Close(ctx)

	var entries []models.LotteryEntry
	if err := cursor.All(ctx, &entries); err != nil {
		return nil, fmt.Errorf("failed to decode lottery entries: %w", err)
	}
	return entries, nil
}

func (r *MongoLotteryRepo) SetStatus(id, status, bookingID string, at time.Time) error {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	set := bson.M{"status": status, "resolved_at": at}
	if bookingID != "" {
		set["booking_id"] = bookingID
	}

	res, err := r.coll.UpdateOne(ctx, bson.M{"id": id}, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("failed to update lottery entry %s: %w", id, err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("lottery entry with id %s not found", id)
	}
	return nil
}

// ResolveDraw runs the draw result as one Mongo transaction so a crash cannot
// leave winners without bookings or the session counter out of step.
func (r *MongoLotteryRepo) ResolveDraw(ctx context.Context, sessionID string, winners map[string]*models.Booking, loserIDs []string, at time.Time) error {
	client := r.coll.Database().Client()
	sess, err := client.StartSession()
	if err != nil {
		return fmt.Errorf("could not start mongo session: %w", err)
	}
	defer sess.EndSession(ctx)

	txnFn := func(sc mongo.SessionContext) error {
		for entryID, booking := range winners {
			if _, err := r.bookingColl.InsertOne(sc, booking); err != nil {
				return fmt.Errorf("insert winner booking failed: %w", err)
			}
			res, err := r.coll.UpdateOne(sc,
				bson.M{"id": entryID, "status": models.EntryEntered},
				bson.M{"$set": bson.M{"status": models.EntryWon, "booking_id": booking.ID, "resolved_at": at}})
			if err != nil {
				return fmt.Errorf("mark entry %s won failed: %w", entryID, err)
			}
			if res.ModifiedCount == 0 {
				return fmt.Errorf("entry %s was not in entered state", entryID)
			}
		}

		if len(loserIDs) > 0 {
			in := bson.A{}
			for _, id := range loserIDs {
				in = append(in, id)
			}
			if _, err := r.coll.UpdateMany(sc,
				bson.M{"id": bson.M{"$in": in}, "status": models.EntryEntered},
				bson.M{"$set": bson.M{"status": models.EntryLost, "resolved_at": at}}); err != nil {
				return fmt.Errorf("mark losers failed: %w", err)
			}
		}

		if len(winners) > 0 {
			res, err := r.sessionColl.UpdateOne(sc,
				bson.M{"id": sessionID},
				bson.M{"$inc": bson.M{"current_count": len(winners)}, "$set": bson.M{"updated_at": at}})
			if err != nil {
				return fmt.Errorf("advance session counter failed: %w", err)
			}
			if res.MatchedCount == 0 {
				return fmt.Errorf("session %s not found", sessionID)
			}
		}
		return nil
	}

	if err := mongo.WithSession(ctx, sess, func(sc mongo.SessionContext) error {
		if err := sc.StartTransaction(); err != nil {
			return err
		}
		if err := txnFn(sc); err != nil {
			_ = sc.AbortTransaction(sc)
			return err
		}
		return sc.CommitTransaction(sc)
	}); err != nil {
		return fmt.Errorf("draw transaction failed: %w", err)
	}

	return nil
}

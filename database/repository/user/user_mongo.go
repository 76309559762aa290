package userRepo

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

// MongoUserRepo implements UserRepository using MongoDB.
type MongoUserRepo struct {
	coll       *mongo.Collection
	ticketColl *mongo.Collection
}

// NewMongoUserRepo creates a new instance of UserRepository using MongoDB.
func NewMongoUserRepo() UserRepository {
	repo := &MongoUserRepo{
		coll:       database.Collection("users"),
		ticketColl: database.Collection("priority_tickets"),
	}
	if err := repo.ensureIndexes(); err != nil {
		fmt.Printf("failed to create user indexes: %v\n", err)
	}
	return repo
}

func newContext(timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), timeout)
}

func (r *MongoUserRepo) ensureIndexes() error {
	ctx, cancel := newContext(10 * time.Second)
	defer cancel()

	userIndexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "location_geo", Value: "2dsphere"}}},
	}
	if _, err := r.coll.Indexes().CreateMany(ctx, userIndexes); err != nil {
		return fmt.Errorf("failed to create user indexes: %w", err)
	}

	ticketIndexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "session_id", Value: 1}}},
	}
	if _, err := r.ticketColl.Indexes().CreateMany(ctx, ticketIndexes); err != nil {
		return fmt.Errorf("failed to create ticket indexes: %w", err)
	}
	return nil
}

func (r *MongoUserRepo) GetByID(id string) (*models.User, error) {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	var user models.User
	if err := r.coll.FindOne(ctx, bson.M{"id": id}).Decode(&user); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, fmt.Errorf("user with id %s not found", id)
		}
		return nil, fmt.Errorf("failed to fetch user %s: %w", id, err)
	}
	return &user, nil
}

func (r *MongoUserRepo) GetByEmail(email string) (*models.User, error) {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	var user models.User
	if err := r.coll.FindOne(ctx, bson.M{"email": email}).Decode(&user); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, fmt.Errorf("user with email %s not found", email)
		}
		return nil, fmt.Errorf("failed to fetch user by email: %w", err)
	}
	return &user, nil
}

func (r *MongoUserRepo) Create(user *models.User) error {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	if _, err := r.coll.InsertOne(ctx, user); err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (r *MongoUserRepo) Update(user *models.User) error {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	user.UpdatedAt = time.Now()
	res, err := r.coll.ReplaceOne(ctx, bson.M{"id": user.ID}, user)
	if err != nil {
		return fmt.Errorf("failed to update user %s: %w", user.ID, err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("user with id %s not found", user.ID)
	}
	return nil
}

func (r *MongoUserRepo) Delete(id string) error {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	res, err := r.coll.DeleteOne(ctx, bson.M{"id": id})
	if err != nil {
		return fmt.Errorf("failed to delete user %s: %w", id, err)
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("user with id %s not found", id)
	}
	return nil
}

func (r *MongoUserRepo) CreateTicket(ticket *models.PriorityTicket) error {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	if _, err := r.ticketColl.InsertOne(ctx, ticket); err != nil {
		return fmt.Errorf("failed to create priority ticket: %w", err)
	}
	return nil
}

func (r *MongoUserRepo) FindUsableTicket(userID, sessionID string, now time.Time) (*models.PriorityTicket, error) {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	filter := bson.M{
		"user_id":     userID,
		"session_id":  sessionID,
		"consumed_at": nil,
		"expires_at":  bson.M{"$gt": now},
	}

	var ticket models.PriorityTicket
	if err := r.ticketColl.FindOne(ctx, filter).Decode(&ticket); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query priority ticket: %w", err)
	}
	return &ticket, nil
}

// ConsumeTicket is guarded on consumed_at so a ticket admits exactly one
// booking even under concurrent attempts.
func (r *MongoUserRepo) ConsumeTicket(ctx context.Context, ticketID string, now time.Time) (bool, error) {
	filter := bson.M{
		"id":          ticketID,
		"consumed_at": nil,
		"expires_at":  bson.M{"$gt": now},
	}
	update := bson.M{"$set": bson.M{"consumed_at": now}}

	res, err := r.ticketColl.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, fmt.Errorf("failed to consume ticket %s: %w", ticketID, err)
	}
	return res.ModifiedCount == 1, nil
}

// RestoreTicket undoes a consumption whose booking never materialized, so the
// single-use grant stays usable.
func (r *MongoUserRepo) RestoreTicket(ctx context.Context, ticketID string) error {
	filter := bson.M{"id": ticketID, "consumed_at": bson.M{"$ne": nil}}
	update := bson.M{"$set": bson.M{"consumed_at": nil}}

	res, err := r.ticketColl.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to restore ticket %s: %w", ticketID, err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("ticket %s is not consumed", ticketID)
	}
	return nil
}

func (r *MongoUserRepo) ListTicketsByUser(userID string) ([]models.PriorityTicket, error) {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	cursor, err := r.ticketColl.Find(ctx, bson.M{"user_id": userID},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to list tickets: %w", err)
	}
	defer cursor.Close(ctx)

	var tickets []models.PriorityTicket
	if err := cursor.All(ctx, &tickets); err != nil {
		return nil, fmt.Errorf("failed to decode tickets: %w", err)
	}
	return tickets, nil
}

func (r *MongoUserRepo) SearchNearbyPhotographers(location models.GeoPoint, radiusKm float64) ([]models.User, error) {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	filter := bson.M{
		"is_photographer": true,
		"available":       true,
		"location_geo": bson.M{
			"$nearSphere": bson.M{
				"$geometry":    location,
				"$maxDistance": radiusKm * 1000,
			},
		},
	}

	cursor, err := r.coll.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to search nearby photographers: %w", err)
	}
	defer cursor.Close(ctx)

	var photographers []models.User
	if err := cursor.All(ctx, &photographers); err != nil {
		return nil, fmt.Errorf("failed to decode photographers: %w", err)
	}
	return photographers, nil
}

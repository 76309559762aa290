package instantRepo

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

// MongoInstantRequestRepo implements InstantRequestRepository using MongoDB.
type MongoInstantRequestRepo struct {
	coll *mongo.Collection
}

// NewMongoInstantRequestRepo creates a new instance of InstantRequestRepository using MongoDB.
func NewMongoInstantRequestRepo() InstantRequestRepository {
	repo := &MongoInstantRequestRepo{coll: database.Collection("instant_requests")}
	if err := repo.ensureIndexes(); err != nil {
		fmt.Printf("failed to create instant request indexes: %v\n", err)
	}
	return repo
}

func newContext(timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), timeout)
}

func (r *MongoInstantRequestRepo) ensureIndexes() error {
	ctx, cancel := newContext(10 * time.Second)
	defer cancel()

	indexModels := []mongo.IndexModel{
		{Keys: bson.D{{Key: "id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}}},
	}

	_, err := r.coll.Indexes().CreateMany(ctx, indexModels)
	if err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}
	return nil
}

func (r *MongoInstantRequestRepo) Create(req *models.InstantRequest) error {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	if _, err := r.coll.InsertOne(ctx, req); err != nil {
		return fmt.Errorf("failed to create instant request: %w", err)
	}
	return nil
}

func (r *MongoInstantRequestRepo) GetByID(id string) (*models.InstantRequest, error) {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	var req models.InstantRequest
	if err := r.coll.FindOne(ctx, bson.M{"id": id}).Decode(&req); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, fmt.Errorf("instant request with id %s not found", id)
		}
		return nil, fmt.Errorf("failed to fetch instant request %s: %w", id, err)
	}
	return &req, nil
}

func (r *MongoInstantRequestRepo) Update(req *models.InstantRequest) error {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	res, err := r.coll.ReplaceOne(ctx, bson.M{"id": req.ID}, req)
	if err != nil {
		return fmt.Errorf("failed to update instant request %s: %w", req.ID, err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("instant request with id %s not found", req.ID)
	}
	return nil
}

func (r *MongoInstantRequestRepo) ListByUser(userID string) ([]models.InstantRequest, error) {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	cursor, err := r.coll.Find(ctx, bson.M{"user_id": userID},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to list instant requests for user %s: %w", userID, err)
	}
	defer cursor.Close(ctx)

	var reqs []models.InstantRequest
	if err := cursor.All(ctx, &reqs); err != nil {
		return nil, fmt.Errorf("failed to decode instant requests: %w", err)
	}
	return reqs, nil
}

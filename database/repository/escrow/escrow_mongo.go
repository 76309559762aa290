package escrowRepo

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

// MongoEscrowRepo implements EscrowRepository using MongoDB.
type MongoEscrowRepo struct {
	escrowColl  *mongo.Collection
	disputeColl *mongo.Collection
}

// NewMongoEscrowRepo creates a new instance of EscrowRepository using MongoDB.
func NewMongoEscrowRepo() EscrowRepository {
	repo := &MongoEscrowRepo{
		escrowColl:  database.Collection("escrow_payments"),
		disputeColl: database.Collection("disputes"),
	}
	if err := repo.ensureIndexes(); err != nil {
		fmt.Printf("failed to create escrow indexes: %v\n", err)
	}
	return repo
}

func newContext(timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), timeout)
}

func (r *MongoEscrowRepo) ensureIndexes() error {
	ctx, cancel := newContext(10 * time.Second)
	defer cancel()

	escrowIndexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "booking_id", Value: 1}}, Options: options.Index().SetUnique(true)},
	}
	if _, err := r.escrowColl.Indexes().CreateMany(ctx, escrowIndexes); err != nil {
		return fmt.Errorf("failed to create escrow indexes: %w", err)
	}

	disputeIndexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "created_at", Value: 1}}},
	}
	if _, err := r.disputeColl.Indexes().CreateMany(ctx, disputeIndexes); err != nil {
		return fmt.Errorf("failed to create dispute indexes: %w", err)
	}
	return nil
}

func (r *MongoEscrowRepo) CreateEscrow(payment *models.EscrowPayment) error {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	if _, err := r.escrowColl.InsertOne(ctx, payment); err != nil {
		return fmt.Errorf("failed to create escrow payment: %w", err)
	}
	return nil
}

func (r *MongoEscrowRepo) GetEscrowByID(id string) (*models.EscrowPayment, error) {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	var payment models.EscrowPayment
	if err := r.escrowColl.FindOne(ctx, bson.M{"id": id}).Decode(&payment); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, fmt.Errorf("escrow payment with id %s not found", id)
		}
		return nil, fmt.Errorf("failed to fetch escrow payment %s: %w", id, err)
	}
	return &payment, nil
}

func (r *MongoEscrowRepo) GetEscrowByBookingID(bookingID string) (*models.EscrowPayment, error) {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	var payment models.EscrowPayment
	if err := r.escrowColl.FindOne(ctx, bson.M{"booking_id": bookingID}).Decode(&payment); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, fmt.Errorf("no escrow payment for booking %s", bookingID)
		}
		return nil, fmt.Errorf("failed to fetch escrow payment for booking %s: %w", bookingID, err)
	}
	return &payment, nil
}

func (r *MongoEscrowRepo) UpdateEscrow(payment *models.EscrowPayment) error {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	payment.UpdatedAt = time.Now()
	res, err := r.escrowColl.ReplaceOne(ctx, bson.M{"id": payment.ID}, payment)
	if err != nil {
		return fmt.Errorf("failed to update escrow payment %s: %w", payment.ID, err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("escrow payment with id %s not found", payment.ID)
	}
	return nil
}

func (r *MongoEscrowRepo) CreateDispute(dispute *models.DisputeCase) error {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	if _, err := r.disputeColl.InsertOne(ctx, dispute); err != nil {
		return fmt.Errorf("failed to create dispute: %w", err)
	}
	return nil
}

func (r *MongoEscrowRepo) GetDisputeByID(id string) (*models.DisputeCase, error) {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	var dispute models.DisputeCase
	if err := r.disputeColl.FindOne(ctx, bson.M{"id": id}).Decode(&dispute); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, fmt.Errorf("dispute with id %s not found", id)
		}
		return nil, fmt.Errorf("failed to fetch dispute %s: %w", id, err)
	}
	return &dispute, nil
}

func (r *MongoEscrowRepo) UpdateDispute(dispute *models.DisputeCase) error {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	res, err := r.disputeColl.ReplaceOne(ctx, bson.M{"id": dispute.ID}, dispute)
	if err != nil {
		return fmt.Errorf("failed to update dispute %s: %w", dispute.ID, err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("dispute with id %s not found", dispute.ID)
	}
	return nil
}

func (r *MongoEscrowRepo) ListOpenDisputes() ([]models.DisputeCase, error) {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	filter := bson.M{"status": bson.M{"$in": bson.A{models.DisputePending, models.DisputeInvestigating, models.DisputeEscalated}}}
	cursor, err := r.disputeColl.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to list open disputes: %w", err)
	}
	defer cursor.Close(ctx)

	var disputes []models.DisputeCase
	if err := cursor.All(ctx, &disputes); err != nil {
		return nil, fmt.Errorf("failed to decode disputes: %w", err)
	}
	return disputes, nil
}

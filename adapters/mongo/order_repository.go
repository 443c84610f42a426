package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/satriahrh/voicerelay/domain/entities"
	"github.com/satriahrh/voicerelay/domain/repositories"
)

const ordersCollection = "orders"

type OrderRepository struct {
	collection *mongo.Collection
}

// NewOrderRepository creates a new MongoDB order repository
func NewOrderRepository(db *mongo.Database) repositories.OrderRepository {
	return &OrderRepository{
		collection: db.Collection(ordersCollection),
	}
}

// GetByID implements repositories.OrderRepository
func (r *OrderRepository) GetByID(ctx context.Context, orderID string) (*entities.Order, error) {
	if orderID == "" {
		return nil, errors.New("order ID cannot be empty")
	}

	var order entities.Order
	err := r.collection.FindOne(ctx, bson.M{"_id": orderID}).Decode(&order)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: %s", repositories.ErrOrderNotFound, orderID)
		}
		return nil, fmt.Errorf("failed to get order %s: %w", orderID, err)
	}

	return &order, nil
}

// Upsert implements repositories.OrderRepository
func (r *OrderRepository) Upsert(ctx context.Context, order *entities.Order) error {
	if order == nil {
		return errors.New("order cannot be nil")
	}
	if err := order.Validate(); err != nil {
		return fmt.Errorf("invalid order: %w", err)
	}

	order.UpdatedAt = time.Now()

	_, err := r.collection.ReplaceOne(
		ctx,
		bson.M{"_id": order.ID},
		order,
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert order: %w", err)
	}

	return nil
}

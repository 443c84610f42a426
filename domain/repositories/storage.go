package repositories

import (
	"context"
	"errors"

	"github.com/satriahrh/voicerelay/domain/entities"
)

// ErrOrderNotFound is returned when no order matches the requested ID
var ErrOrderNotFound = errors.New("order not found")

// OrderRepository defines data access methods for orders
type OrderRepository interface {
	GetByID(ctx context.Context, orderID string) (*entities.Order, error)
	Upsert(ctx context.Context, order *entities.Order) error
}

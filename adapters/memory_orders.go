package adapters

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/satriahrh/voicerelay/domain/entities"
)

// MemoryOrderRepository is an in-memory implementation of OrderRepository.
// Unknown order IDs get a synthesized record that is stable per ID, so a
// demo conversation sees consistent answers without a database.
type MemoryOrderRepository struct {
	mu     sync.RWMutex
	orders map[string]*entities.Order
}

// NewMemoryOrderRepository creates a repository seeded with the demo order SH1005
func NewMemoryOrderRepository() *MemoryOrderRepository {
	eta := "2024-05-30"
	shipped := "2024-05-25"
	return &MemoryOrderRepository{
		orders: map[string]*entities.Order{
			"SH1005": {
				ID:                "SH1005",
				Status:            entities.OrderStatusShipped,
				OrderDate:         "2024-05-20",
				ShipmentMethod:    "express",
				EstimatedDelivery: &eta,
				ShippedDate:       &shipped,
				Items:             []string{"Vanilla candles", "BOKHYLLA Stor"},
			},
		},
	}
}

// GetByID implements OrderRepository interface
func (m *MemoryOrderRepository) GetByID(ctx context.Context, orderID string) (*entities.Order, error) {
	if orderID == "" {
		return nil, errors.New("order ID cannot be empty")
	}

	m.mu.RLock()
	order, exists := m.orders[orderID]
	m.mu.RUnlock()

	if exists {
		copied := *order
		return &copied, nil
	}
	return synthesizeOrder(orderID), nil
}

// Upsert implements OrderRepository interface
func (m *MemoryOrderRepository) Upsert(ctx context.Context, order *entities.Order) error {
	if order == nil {
		return errors.New("order cannot be nil")
	}
	if err := order.Validate(); err != nil {
		return fmt.Errorf("invalid order: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	stored := *order
	stored.UpdatedAt = time.Now()
	m.orders[order.ID] = &stored
	return nil
}

var (
	synthesizedStatuses = []entities.OrderStatus{
		entities.OrderStatusProcessing,
		entities.OrderStatusShipped,
		entities.OrderStatusDelivered,
	}
	shipmentMethods = []string{"standard", "express", "next day", "international"}
)

// synthesizeOrder derives an order from the character sum of its ID
func synthesizeOrder(orderID string) *entities.Order {
	var seed int64
	for _, c := range orderID {
		seed += int64(c)
	}
	rng := rand.New(rand.NewSource(seed))

	day := func(month, from, to int) *string {
		d := fmt.Sprintf("2024-%02d-%02d", month, from+rng.Intn(to-from+1))
		return &d
	}

	order := &entities.Order{
		ID:             orderID,
		Status:         synthesizedStatuses[rng.Intn(len(synthesizedStatuses))],
		ShipmentMethod: shipmentMethods[rng.Intn(len(shipmentMethods))],
	}
	order.OrderDate = *day(5, 12, 28)

	switch order.Status {
	case entities.OrderStatusProcessing:
		order.EstimatedDelivery = day(6, 1, 15)
	case entities.OrderStatusShipped:
		order.ShippedDate = day(5, 1, 28)
		order.EstimatedDelivery = day(6, 1, 15)
	case entities.OrderStatusDelivered:
		order.ShippedDate = day(5, 1, 20)
		order.DeliveredDate = day(5, 21, 28)
	}

	return order
}

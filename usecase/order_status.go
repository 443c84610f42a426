package usecase

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/satriahrh/voicerelay/domain/repositories"
)

// OrderStatusService answers get_order_status tool calls
type OrderStatusService struct {
	orders repositories.OrderRepository
	logger *zap.Logger
}

// NewOrderStatusService creates a new order status tool
func NewOrderStatusService(orders repositories.OrderRepository, logger *zap.Logger) *OrderStatusService {
	return &OrderStatusService{
		orders: orders,
		logger: logger,
	}
}

func (s *OrderStatusService) Name() string {
	return "get_order_status"
}

func (s *OrderStatusService) Description() string {
	return "Get the current status and details of an order."
}

func (s *OrderStatusService) Parameters() []repositories.ToolParameter {
	return []repositories.ToolParameter{
		{Name: "order_id", Description: "The order ID to look up.", Required: true},
	}
}

// Call looks up the order and flattens it for the model
func (s *OrderStatusService) Call(ctx context.Context, args map[string]any) (map[string]any, error) {
	orderID, ok := stringArg(args, "order_id")
	if !ok {
		return nil, errors.New("order_id is required")
	}

	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, repositories.ErrOrderNotFound) {
			return map[string]any{"order_id": orderID, "error": "order not found"}, nil
		}
		return nil, fmt.Errorf("failed to look up order %s: %w", orderID, err)
	}

	s.logger.Info("Order status retrieved",
		zap.String("orderID", orderID),
		zap.String("status", string(order.Status)))
	return order.ToToolResult(), nil
}

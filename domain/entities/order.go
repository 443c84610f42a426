package entities

import (
	"errors"
	"time"
)

// OrderStatus represents where an order is in its fulfilment lifecycle
type OrderStatus string

const (
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
)

// Order is the record looked up by the order status tool
type Order struct {
	ID                string      `json:"order_id" bson:"_id"`
	Status            OrderStatus `json:"status" bson:"status"`
	OrderDate         string      `json:"order_date" bson:"order_date"`
	ShipmentMethod    string      `json:"shipment_method" bson:"shipment_method"`
	EstimatedDelivery *string     `json:"estimated_delivery" bson:"estimated_delivery,omitempty"`
	ShippedDate       *string     `json:"shipped_date,omitempty" bson:"shipped_date,omitempty"`
	DeliveredDate     *string     `json:"delivered_date,omitempty" bson:"delivered_date,omitempty"`
	Items             []string    `json:"items,omitempty" bson:"items,omitempty"`
	UpdatedAt         time.Time   `json:"-" bson:"updated_at"`
}

// IsInTransit reports whether the order has left the warehouse but not arrived
func (o *Order) IsInTransit() bool {
	return o.Status == OrderStatusShipped
}

// ToToolResult flattens the order into the map returned to the model.
// Optional dates are only present when set.
func (o *Order) ToToolResult() map[string]any {
	result := map[string]any{
		"order_id":           o.ID,
		"status":             string(o.Status),
		"order_date":         o.OrderDate,
		"shipment_method":    o.ShipmentMethod,
		"estimated_delivery": nil,
	}
	if o.EstimatedDelivery != nil {
		result["estimated_delivery"] = *o.EstimatedDelivery
	}
	if o.ShippedDate != nil {
		result["shipped_date"] = *o.ShippedDate
	}
	if o.DeliveredDate != nil {
		result["delivered_date"] = *o.DeliveredDate
	}
	if len(o.Items) > 0 {
		result["items"] = o.Items
	}
	return result
}

// Validate validates the order data
func (o *Order) Validate() error {
	if o.ID == "" {
		return errors.New("order_id is required")
	}

	switch o.Status {
	case OrderStatusProcessing, OrderStatusShipped, OrderStatusDelivered:
	default:
		return errors.New("invalid order status")
	}

	if o.Status == OrderStatusDelivered && o.DeliveredDate == nil {
		return errors.New("delivered orders need a delivered_date")
	}

	return nil
}

package entities

import (
	"testing"
)

func strPtr(s string) *string { return &s }

func TestOrderValidate(t *testing.T) {
	tests := []struct {
		name    string
		order   Order
		wantErr bool
	}{
		{"valid processing", Order{ID: "SH1", Status: OrderStatusProcessing}, false},
		{"missing id", Order{Status: OrderStatusShipped}, true},
		{"unknown status", Order{ID: "SH1", Status: "lost"}, true},
		{"delivered without date", Order{ID: "SH1", Status: OrderStatusDelivered}, true},
		{"delivered with date", Order{ID: "SH1", Status: OrderStatusDelivered, DeliveredDate: strPtr("2024-05-25")}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.order.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestOrderToToolResult(t *testing.T) {
	order := &Order{
		ID:                "SH1005",
		Status:            OrderStatusShipped,
		OrderDate:         "2024-05-20",
		ShipmentMethod:    "express",
		EstimatedDelivery: strPtr("2024-05-30"),
		ShippedDate:       strPtr("2024-05-25"),
		Items:             []string{"Vanilla candles"},
	}

	result := order.ToToolResult()

	if result["status"] != "shipped" {
		t.Errorf("Expected status shipped, got %v", result["status"])
	}
	if result["estimated_delivery"] != "2024-05-30" {
		t.Errorf("Expected estimated_delivery 2024-05-30, got %v", result["estimated_delivery"])
	}
	if _, ok := result["delivered_date"]; ok {
		t.Error("delivered_date should be omitted when unset")
	}
	if !order.IsInTransit() {
		t.Error("Shipped order should be in transit")
	}

	processing := &Order{ID: "X", Status: OrderStatusProcessing}
	if v, ok := processing.ToToolResult()["estimated_delivery"]; !ok || v != nil {
		t.Errorf("estimated_delivery should be present and nil, got %v", v)
	}
}

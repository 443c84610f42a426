package mongo

import (
	"context"
	"errors"
	"os"
	"testing"

	"go.uber.org/zap"

	"github.com/satriahrh/voicerelay/domain/entities"
	"github.com/satriahrh/voicerelay/domain/repositories"
)

// TestOrderRepository_Integration requires a running MongoDB instance
// (skipped if MONGODB_URI is not set)
func TestOrderRepository_Integration(t *testing.T) {
	mongoURI := os.Getenv("MONGODB_URI")
	if mongoURI == "" {
		t.Skip("Skipping MongoDB integration test - MONGODB_URI not set")
	}

	ctx := context.Background()
	client, err := NewClient(ctx, mongoURI, "voicerelay_test", zap.NewNop())
	if err != nil {
		t.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	defer func() {
		_ = client.Database.Drop(ctx)
		_ = client.Close(ctx)
	}()

	repo := NewOrderRepository(client.Database)

	t.Run("UpsertAndGet", func(t *testing.T) {
		eta := "2024-05-30"
		order := &entities.Order{
			ID:                "SH1005",
			Status:            entities.OrderStatusShipped,
			OrderDate:         "2024-05-20",
			ShipmentMethod:    "express",
			EstimatedDelivery: &eta,
			Items:             []string{"Vanilla candles"},
		}

		if err := repo.Upsert(ctx, order); err != nil {
			t.Fatalf("Failed to upsert order: %v", err)
		}

		got, err := repo.GetByID(ctx, "SH1005")
		if err != nil {
			t.Fatalf("Failed to get order: %v", err)
		}
		if got.Status != entities.OrderStatusShipped || *got.EstimatedDelivery != eta {
			t.Errorf("Unexpected order %+v", got)
		}

		order.Status = entities.OrderStatusProcessing
		if err := repo.Upsert(ctx, order); err != nil {
			t.Fatalf("Failed to update order: %v", err)
		}
		got, _ = repo.GetByID(ctx, "SH1005")
		if got.Status != entities.OrderStatusProcessing {
			t.Errorf("Expected status to be updated, got %s", got.Status)
		}
	})

	t.Run("NotFound", func(t *testing.T) {
		_, err := repo.GetByID(ctx, "missing")
		if !errors.Is(err, repositories.ErrOrderNotFound) {
			t.Errorf("Expected ErrOrderNotFound, got %v", err)
		}
	})

	t.Run("RejectsInvalid", func(t *testing.T) {
		if err := repo.Upsert(ctx, &entities.Order{ID: "x", Status: "lost"}); err == nil {
			t.Error("Expected validation error")
		}
	})
}

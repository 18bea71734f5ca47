package memory

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

func TestOutboxRepository_PullAndMark(t *testing.T) {
	store := NewStore()
	repos := store.Repositories()
	ctx := context.Background()

	product, err := repos.Products.Create(ctx, domain.Product{Name: "Tea", Price: decimal.NewFromInt(10), Stock: 5})
	if err != nil {
		t.Fatalf("create product failed: %v", err)
	}
	for i := 0; i < 2; i++ {
		_, err := repos.Orders.Create(ctx, domain.CreateOrderInput{
			Customer:    domain.CustomerInput{Name: "Ravi"},
			Items:       []domain.OrderItemInput{{ProductID: product.ID, Quantity: 1, PriceAtPurchase: decimal.NewFromInt(10)}},
			TotalAmount: decimal.NewFromInt(10),
		})
		if err != nil {
			t.Fatalf("create order failed: %v", err)
		}
	}

	pending, err := repos.Outbox.PullPending(ctx, 1)
	if err != nil {
		t.Fatalf("pull failed: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("expected limit to apply, got %d", len(pending))
	}

	if err := repos.Outbox.MarkSent(ctx, pending[0].ID); err != nil {
		t.Fatalf("mark sent failed: %v", err)
	}
	stats, err := repos.Outbox.Stats(ctx)
	if err != nil {
		t.Fatalf("stats failed: %v", err)
	}
	if stats.PendingCount != 1 || stats.OldestPendingAt.IsZero() {
		t.Fatalf("unexpected stats: %+v", stats)
	}

	rest, _ := repos.Outbox.PullPending(ctx, 0)
	if err := repos.Outbox.MarkFailed(ctx, rest[0].ID); err != nil {
		t.Fatalf("mark failed: %v", err)
	}
	if store.outbox[rest[0].ID].attemptCnt != 1 {
		t.Fatalf("expected attempt counter to grow")
	}

	if err := repos.Outbox.MarkFailed(ctx, "missing"); err == nil {
		t.Fatal("expected error for missing record")
	}
}

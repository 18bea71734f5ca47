package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

func TestProductRepository_PostgresCRUD(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	repos := store.Repositories()
	ctx := context.Background()

	rice := createRiceForIntegrationTest(t, repos, 50)
	if _, err := repos.Products.Create(ctx, domain.Product{
		Name:        "Sunflower Oil",
		Description: "Cold pressed, 100% natural",
		Price:       decimal.RequireFromString("189.50"),
		Stock:       10,
		Category:    "Oils",
	}); err != nil {
		t.Fatalf("create oil: %v", err)
	}

	found, err := repos.Products.List(ctx, domain.ProductFilter{Search: "100%"})
	if err != nil {
		t.Fatalf("search products: %v", err)
	}
	if len(found) != 1 || found[0].Name != "Sunflower Oil" {
		t.Fatalf("unexpected search result: %+v", found)
	}

	grains, err := repos.Products.List(ctx, domain.ProductFilter{Category: "Grains", Search: "rice"})
	if err != nil {
		t.Fatalf("filter products: %v", err)
	}
	if len(grains) != 1 || grains[0].ID != rice.ID {
		t.Fatalf("unexpected filter result: %+v", grains)
	}

	stock := 5
	updated, err := repos.Products.Update(ctx, rice.ID, domain.ProductUpdate{Stock: &stock})
	if err != nil {
		t.Fatalf("update product: %v", err)
	}
	if updated.Stock != 5 || updated.Name != rice.Name || !updated.Price.Equal(rice.Price) || updated.Category != rice.Category {
		t.Fatalf("partial update changed other fields: %+v", updated)
	}

	categories, err := repos.Products.Categories(ctx)
	if err != nil {
		t.Fatalf("categories: %v", err)
	}
	if len(categories) != 2 || categories[0] != "Grains" || categories[1] != "Oils" {
		t.Fatalf("unexpected categories: %v", categories)
	}

	if err := repos.Products.Delete(ctx, rice.ID); err != nil {
		t.Fatalf("delete product: %v", err)
	}
	if _, err := repos.Products.Get(ctx, rice.ID); !errors.Is(err, domain.ErrProductNotFound) {
		t.Fatalf("expected not found after delete, got %v", err)
	}
}

func TestProductRepository_PostgresMalformedIDIsNotFound(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	repos := store.Repositories()
	ctx := context.Background()

	if _, err := repos.Products.Get(ctx, "not-a-real-id"); !errors.Is(err, domain.ErrProductNotFound) {
		t.Fatalf("expected ErrProductNotFound, got %v", err)
	}
	if err := repos.Products.Delete(ctx, "not-a-real-id"); !errors.Is(err, domain.ErrProductNotFound) {
		t.Fatalf("expected ErrProductNotFound on delete, got %v", err)
	}
	if _, err := repos.Customers.Get(ctx, "42"); !errors.Is(err, domain.ErrCustomerNotFound) {
		t.Fatalf("expected ErrCustomerNotFound, got %v", err)
	}
}

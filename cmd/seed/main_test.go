package main

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/storage/memory"
)

func TestSeedInsertsCatalogOnce(t *testing.T) {
	ctx := context.Background()
	products := memory.NewStore().Repositories().Products
	logger := log.WithField("test", "seed")

	inserted, err := seed(ctx, products, demoCatalog, false, logger)
	require.NoError(t, err)
	assert.Equal(t, len(demoCatalog), inserted)

	inserted, err = seed(ctx, products, demoCatalog, false, logger)
	require.NoError(t, err)
	assert.Zero(t, inserted)

	all, err := products.List(ctx, domain.ProductFilter{})
	require.NoError(t, err)
	assert.Len(t, all, len(demoCatalog))

	categories, err := products.Categories(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Food", "Household", "Personal Care", "Stationery"}, categories)
}

func TestSeedForce(t *testing.T) {
	ctx := context.Background()
	products := memory.NewStore().Repositories().Products
	logger := log.WithField("test", "seed")

	_, err := seed(ctx, products, demoCatalog[:2], false, logger)
	require.NoError(t, err)
	inserted, err := seed(ctx, products, demoCatalog[:2], true, logger)
	require.NoError(t, err)
	assert.Equal(t, 2, inserted)
}

func TestSeedRejectsInvalidProduct(t *testing.T) {
	products := memory.NewStore().Repositories().Products
	catalog := []domain.Product{
		{Name: "Pen Set", Price: decimal.RequireFromString("30.00"), Stock: 1},
		{Name: "X", Price: decimal.NewFromInt(-1)},
	}

	inserted, err := seed(context.Background(), products, catalog, false, log.WithField("test", "seed"))
	require.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Equal(t, 1, inserted)
}

func TestDemoCatalogIsValid(t *testing.T) {
	for _, p := range demoCatalog {
		assert.Empty(t, p.Validate(), p.Name)
	}
}

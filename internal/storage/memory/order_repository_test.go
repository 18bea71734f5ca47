package memory_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/storage/memory"
)

func seedRice(t *testing.T, repos domain.Repositories, stock int) domain.Product {
	t.Helper()
	product, err := repos.Products.Create(context.Background(), domain.Product{
		Name:  "Rice 5kg",
		Price: decimal.RequireFromString("399.00"),
		Stock: stock,
	})
	require.NoError(t, err)
	return product
}

func riceOrder(productID string, qty int) domain.CreateOrderInput {
	price := decimal.RequireFromString("399.00")
	return domain.CreateOrderInput{
		Customer:    domain.CustomerInput{Name: "Asha Rao", Email: "asha@example.com"},
		Items:       []domain.OrderItemInput{{ProductID: productID, Quantity: qty, PriceAtPurchase: price}},
		TotalAmount: price.Mul(decimal.NewFromInt(int64(qty))),
	}
}

func TestOrderRepository_CreateDecrementsStock(t *testing.T) {
	store := memory.NewStore()
	repos := store.Repositories()
	ctx := context.Background()
	rice := seedRice(t, repos, 50)

	order, err := repos.Orders.Create(ctx, riceOrder(rice.ID, 3))
	require.NoError(t, err)

	assert.Equal(t, domain.OrderStatusPending, order.Status)
	assert.Equal(t, 3, order.TotalItems)
	assert.Equal(t, 1, order.ItemCount)
	assert.Equal(t, "Asha Rao", order.CustomerName)
	require.Len(t, order.Items, 1)
	assert.Equal(t, "Rice 5kg", order.Items[0].ProductName)

	stored, err := repos.Products.Get(ctx, rice.ID)
	require.NoError(t, err)
	assert.Equal(t, 47, stored.Stock)

	pending, err := repos.Outbox.PullPending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, order.ID, pending[0].AggregateID)
}

func TestOrderRepository_VerifiedPaymentConfirms(t *testing.T) {
	store := memory.NewStore()
	repos := store.Repositories()
	rice := seedRice(t, repos, 50)

	input := riceOrder(rice.ID, 3)
	input.Payment = &domain.PaymentRecord{GatewayOrderID: "order_1", PaymentID: "pay_1", Verified: true}

	order, err := repos.Orders.Create(context.Background(), input)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusConfirmed, order.Status)
	require.NotNil(t, order.Payment)
	assert.Equal(t, "pay_1", order.Payment.PaymentID)
}

func TestOrderRepository_UnknownProductLeavesNothing(t *testing.T) {
	store := memory.NewStore()
	repos := store.Repositories()
	ctx := context.Background()
	rice := seedRice(t, repos, 50)

	input := riceOrder(rice.ID, 3)
	input.Items = append(input.Items, domain.OrderItemInput{ProductID: "missing", Quantity: 1})

	_, err := repos.Orders.Create(ctx, input)
	require.ErrorIs(t, err, domain.ErrProductNotFound)

	assertUntouched(t, repos, rice.ID, 50)
}

func TestOrderRepository_InsufficientStock(t *testing.T) {
	store := memory.NewStore()
	repos := store.Repositories()
	rice := seedRice(t, repos, 2)

	_, err := repos.Orders.Create(context.Background(), riceOrder(rice.ID, 3))
	require.ErrorIs(t, err, domain.ErrInsufficientStock)

	var stockErr *domain.StockError
	require.True(t, errors.As(err, &stockErr))
	assert.Equal(t, 2, stockErr.Available)
	assert.Equal(t, 3, stockErr.Requested)

	assertUntouched(t, repos, rice.ID, 2)
}

func TestOrderRepository_DuplicateLinesShareStock(t *testing.T) {
	store := memory.NewStore()
	repos := store.Repositories()
	rice := seedRice(t, repos, 4)

	input := riceOrder(rice.ID, 3)
	input.Items = append(input.Items, input.Items[0])

	_, err := repos.Orders.Create(context.Background(), input)
	require.ErrorIs(t, err, domain.ErrInsufficientStock)

	// остаток и запрос сообщаются по товару целиком, а не по последней позиции
	var stockErr *domain.StockError
	require.True(t, errors.As(err, &stockErr))
	assert.Equal(t, rice.ID, stockErr.ProductID)
	assert.Equal(t, 4, stockErr.Available)
	assert.Equal(t, 6, stockErr.Requested)

	assertUntouched(t, repos, rice.ID, 4)
}

func TestOrderRepository_FailpointsRollBack(t *testing.T) {
	steps := []string{memory.FailpointCustomer, memory.FailpointStock, memory.FailpointOrder, memory.FailpointOutbox}

	for _, step := range steps {
		t.Run(step, func(t *testing.T) {
			store := memory.NewStore()
			repos := store.Repositories()
			rice := seedRice(t, repos, 50)

			injected := errors.New("boom")
			store.FailOn(step, injected)

			_, err := repos.Orders.Create(context.Background(), riceOrder(rice.ID, 3))
			require.ErrorIs(t, err, injected)

			assertUntouched(t, repos, rice.ID, 50)

			store.FailOn(step, nil)
			_, err = repos.Orders.Create(context.Background(), riceOrder(rice.ID, 3))
			require.NoError(t, err)
		})
	}
}

func TestOrderRepository_GetRoundTrip(t *testing.T) {
	store := memory.NewStore()
	repos := store.Repositories()
	ctx := context.Background()
	rice := seedRice(t, repos, 50)

	created, err := repos.Orders.Create(ctx, riceOrder(rice.ID, 2))
	require.NoError(t, err)

	got, err := repos.Orders.Get(ctx, created.ID)
	require.NoError(t, err)
	require.Len(t, got.Items, 1)
	assert.Equal(t, rice.ID, got.Items[0].ProductID)
	assert.Equal(t, 2, got.Items[0].Quantity)
	assert.True(t, got.Items[0].PriceAtPurchase.Equal(decimal.RequireFromString("399")))

	_, err = repos.Orders.Get(ctx, "not-a-real-id")
	require.ErrorIs(t, err, domain.ErrOrderNotFound)
}

func TestOrderRepository_ListNewestFirstWithoutItems(t *testing.T) {
	store := memory.NewStore()
	repos := store.Repositories()
	ctx := context.Background()
	rice := seedRice(t, repos, 50)

	first, err := repos.Orders.Create(ctx, riceOrder(rice.ID, 1))
	require.NoError(t, err)
	second, err := repos.Orders.Create(ctx, riceOrder(rice.ID, 4))
	require.NoError(t, err)

	orders, err := repos.Orders.List(ctx)
	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.Equal(t, second.ID, orders[0].ID)
	assert.Equal(t, first.ID, orders[1].ID)
	assert.Nil(t, orders[0].Items)
	assert.Equal(t, 4, orders[0].TotalItems)
	assert.Equal(t, 1, orders[0].ItemCount)
}

func TestOrderRepository_DeletedProductStillListed(t *testing.T) {
	store := memory.NewStore()
	repos := store.Repositories()
	ctx := context.Background()
	rice := seedRice(t, repos, 50)

	order, err := repos.Orders.Create(ctx, riceOrder(rice.ID, 1))
	require.NoError(t, err)
	require.NoError(t, repos.Products.Delete(ctx, rice.ID))

	got, err := repos.Orders.Get(ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, got.Items, 1)
	assert.Empty(t, got.Items[0].ProductName)
}

func TestOrderRepository_ConcurrentCheckoutNeverOversells(t *testing.T) {
	store := memory.NewStore()
	repos := store.Repositories()
	ctx := context.Background()
	rice := seedRice(t, repos, 10)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		accepted int
	)
	for i := 0; i < 25; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := repos.Orders.Create(ctx, riceOrder(rice.ID, 1)); err == nil {
				mu.Lock()
				accepted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 10, accepted)
	stored, err := repos.Products.Get(ctx, rice.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, stored.Stock)
}

func assertUntouched(t *testing.T, repos domain.Repositories, productID string, stock int) {
	t.Helper()
	ctx := context.Background()

	product, err := repos.Products.Get(ctx, productID)
	require.NoError(t, err)
	assert.Equal(t, stock, product.Stock)

	customers, err := repos.Customers.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, customers)

	orders, err := repos.Orders.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, orders)

	stats, err := repos.Outbox.Stats(ctx)
	require.NoError(t, err)
	assert.Zero(t, stats.PendingCount)
}

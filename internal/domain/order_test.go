package domain_test

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// helper для создания корректного запроса с одной позицией.
func makeInput() domain.CreateOrderInput {
	return domain.CreateOrderInput{
		Customer: domain.CustomerInput{Name: "Asha Rao", Email: "asha@example.com"},
		Items: []domain.OrderItemInput{
			{ProductID: "p-1", Quantity: 3, PriceAtPurchase: decimal.RequireFromString("399.00")},
		},
		TotalAmount: decimal.RequireFromString("1197.00"),
	}
}

func TestCreateOrderInputValidate_Ok(t *testing.T) {
	in := makeInput()
	if errs := in.Validate(); len(errs) != 0 {
		t.Fatalf("expected no validation errors, got %v", errs)
	}
}

func TestCreateOrderInputValidate_Errors(t *testing.T) {
	cases := []struct {
		name string
		mut  func(in *domain.CreateOrderInput)
		want error
	}{
		{
			name: "no customer name",
			mut:  func(in *domain.CreateOrderInput) { in.Customer.Name = "  " },
			want: domain.ErrCustomerNameRequired,
		},
		{
			name: "no items",
			mut:  func(in *domain.CreateOrderInput) { in.Items = nil },
			want: domain.ErrItemsRequired,
		},
		{
			name: "negative total",
			mut:  func(in *domain.CreateOrderInput) { in.TotalAmount = decimal.NewFromInt(-1) },
			want: domain.ErrTotalAmountNegative,
		},
		{
			name: "zero quantity",
			mut:  func(in *domain.CreateOrderInput) { in.Items[0].Quantity = 0 },
			want: domain.ErrItemQtyInvalid,
		},
		{
			name: "negative price",
			mut:  func(in *domain.CreateOrderInput) { in.Items[0].PriceAtPurchase = decimal.NewFromInt(-5) },
			want: domain.ErrItemPriceInvalid,
		},
		{
			name: "price below one cent",
			mut:  func(in *domain.CreateOrderInput) { in.Items[0].PriceAtPurchase = decimal.RequireFromString("1.005") },
			want: domain.ErrAmountScale,
		},
		{
			name: "total below one cent",
			mut:  func(in *domain.CreateOrderInput) { in.TotalAmount = decimal.RequireFromString("1197.001") },
			want: domain.ErrAmountScale,
		},
		{
			name: "quantity out of int32 range",
			mut:  func(in *domain.CreateOrderInput) { in.Items[0].Quantity = domain.MaxCount + 1 },
			want: domain.ErrItemQtyTooLarge,
		},
		{
			name: "duplicate lines overflow int32",
			mut: func(in *domain.CreateOrderInput) {
				in.Items[0].Quantity = domain.MaxCount
				in.Items = append(in.Items, domain.OrderItemInput{ProductID: "p-1", Quantity: 1})
			},
			want: domain.ErrItemQtyTooLarge,
		},
		{
			name: "missing product id",
			mut:  func(in *domain.CreateOrderInput) { in.Items[0].ProductID = "" },
			want: domain.ErrItemProductRequired,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := makeInput()
			in.Items = append([]domain.OrderItemInput(nil), in.Items...)
			tc.mut(&in)

			err := domain.NewValidationError(in.Validate())
			if !errors.Is(err, domain.ErrInvalidInput) {
				t.Fatalf("expected ErrInvalidInput, got %v", err)
			}
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v inside %v", tc.want, err)
			}
		})
	}
}

func TestCreateOrderInputValidate_ZeroTotal(t *testing.T) {
	in := makeInput()
	in.Items = []domain.OrderItemInput{{ProductID: "p-1", Quantity: 1, PriceAtPurchase: decimal.Zero}}
	in.TotalAmount = decimal.Zero

	if errs := in.Validate(); len(errs) != 0 {
		t.Fatalf("free items must be accepted, got %v", errs)
	}
}

func TestCreateOrderInputInitialStatus(t *testing.T) {
	tests := []struct {
		name    string
		payment *domain.PaymentRecord
		want    domain.OrderStatus
	}{
		{name: "no payment", payment: nil, want: domain.OrderStatusPending},
		{name: "unverified payment", payment: &domain.PaymentRecord{PaymentID: "pay_1"}, want: domain.OrderStatusPending},
		{name: "verified payment", payment: &domain.PaymentRecord{PaymentID: "pay_1", Verified: true}, want: domain.OrderStatusConfirmed},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			in := makeInput()
			in.Payment = tc.payment
			if got := in.InitialStatus(); got != tc.want {
				t.Fatalf("status=%s, want %s", got, tc.want)
			}
		})
	}
}

func TestCreateOrderInputStockDemand(t *testing.T) {
	in := makeInput()
	in.Items = append(in.Items,
		domain.OrderItemInput{ProductID: "p-2", Quantity: 1},
		domain.OrderItemInput{ProductID: "p-1", Quantity: 2},
	)

	demand := in.StockDemand()
	if demand["p-1"] != 5 || demand["p-2"] != 1 {
		t.Fatalf("unexpected demand: %v", demand)
	}
}

func TestOrderStatusValid(t *testing.T) {
	for _, s := range []domain.OrderStatus{
		domain.OrderStatusPending, domain.OrderStatusConfirmed, domain.OrderStatusShipped,
		domain.OrderStatusDelivered, domain.OrderStatusCancelled,
	} {
		if !s.Valid() {
			t.Fatalf("status %q must be valid", s)
		}
	}
	if domain.OrderStatus("paid").Valid() {
		t.Fatal("status paid must be invalid")
	}
}

func TestOrderViewSummarize(t *testing.T) {
	view := domain.OrderView{Items: []domain.OrderItemView{{Quantity: 3}, {Quantity: 2}}}
	view.Summarize()
	if view.ItemCount != 2 || view.TotalItems != 5 {
		t.Fatalf("unexpected summary: count=%d total=%d", view.ItemCount, view.TotalItems)
	}
}

func TestNewOrderCreatedMessage(t *testing.T) {
	in := makeInput()
	in.Payment = &domain.PaymentRecord{Verified: true}

	msg, err := domain.NewOrderCreatedMessage("msg-1", "order-1", "customer-1", in, time.Now())
	if err != nil {
		t.Fatalf("build message: %v", err)
	}
	if msg.EventType != domain.EventTypeOrderCreated || msg.AggregateID != "order-1" {
		t.Fatalf("unexpected message: %+v", msg)
	}

	var event domain.OrderCreatedEvent
	if err := json.Unmarshal(msg.Payload, &event); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if event.Status != domain.OrderStatusConfirmed {
		t.Fatalf("unexpected status in payload: %s", event.Status)
	}
	if len(event.Items) != 1 || event.Items[0].Quantity != 3 {
		t.Fatalf("unexpected items in payload: %+v", event.Items)
	}
}

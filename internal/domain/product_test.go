package domain

import (
	"errors"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
)

func TestProductValidate(t *testing.T) {
	tests := []struct {
		name    string
		product Product
		want    error
	}{
		{
			name:    "valid",
			product: Product{Name: "Rice 5kg", Price: decimal.RequireFromString("399.00"), Stock: 50},
		},
		{
			name:    "empty name",
			product: Product{Name: " ", Price: decimal.Zero},
			want:    ErrProductNameRequired,
		},
		{
			name:    "short name",
			product: Product{Name: "R", Price: decimal.Zero},
			want:    ErrProductNameLength,
		},
		{
			name:    "negative price",
			product: Product{Name: "Rice", Price: decimal.NewFromInt(-1)},
			want:    ErrProductPriceNegative,
		},
		{
			name:    "negative stock",
			product: Product{Name: "Rice", Stock: -1},
			want:    ErrProductStockNegative,
		},
		{
			name:    "trailing zeros are fine",
			product: Product{Name: "Rice", Price: decimal.RequireFromString("12.5000")},
		},
		{
			name:    "price below one cent",
			product: Product{Name: "Rice", Price: decimal.RequireFromString("1.005")},
			want:    ErrAmountScale,
		},
		{
			name:    "stock out of int32 range",
			product: Product{Name: "Rice", Stock: MaxCount + 1},
			want:    ErrProductStockTooLarge,
		},
		{
			name:    "long category",
			product: Product{Name: "Rice", Category: strings.Repeat("c", 101)},
			want:    ErrProductCategoryLong,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			errs := tc.product.Validate()
			if tc.want == nil {
				if len(errs) != 0 {
					t.Fatalf("expected no errors, got %v", errs)
				}
				return
			}
			if !errors.Is(errors.Join(errs...), tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, errs)
			}
		})
	}
}

func TestProductUpdateApplyKeepsAbsentFields(t *testing.T) {
	base := Product{
		ID:          "p-1",
		Name:        "Rice 5kg",
		Description: "Basmati",
		Price:       decimal.RequireFromString("399.00"),
		Stock:       50,
		Category:    "Food",
		ImagePath:   "/uploads/rice.png",
	}
	stock := 5

	got := ProductUpdate{Stock: &stock}.Apply(base)

	if got.Stock != 5 {
		t.Fatalf("stock=%d, want 5", got.Stock)
	}
	if got.Name != base.Name || got.Description != base.Description || !got.Price.Equal(base.Price) ||
		got.Category != base.Category || got.ImagePath != base.ImagePath {
		t.Fatalf("untouched fields changed: %+v", got)
	}
}

func TestProductUpdateValidate(t *testing.T) {
	empty := ""
	negative := -3

	if errs := (ProductUpdate{}).Validate(); len(errs) != 0 {
		t.Fatalf("empty update must be valid, got %v", errs)
	}
	if !(ProductUpdate{}).IsEmpty() {
		t.Fatal("empty update must report IsEmpty")
	}
	if errs := (ProductUpdate{Name: &empty}).Validate(); len(errs) == 0 {
		t.Fatal("expected error for empty name")
	}
	if errs := (ProductUpdate{Stock: &negative}).Validate(); len(errs) == 0 {
		t.Fatal("expected error for negative stock")
	}
	fraction := decimal.RequireFromString("0.001")
	if errs := (ProductUpdate{Price: &fraction}).Validate(); !errors.Is(errors.Join(errs...), ErrAmountScale) {
		t.Fatalf("expected ErrAmountScale, got %v", errs)
	}
}

func TestProductFilterMatches(t *testing.T) {
	p := Product{Name: "Rice 5kg", Description: "Long grain BASMATI", Category: "Food"}

	tests := []struct {
		name   string
		filter ProductFilter
		want   bool
	}{
		{name: "empty filter", filter: ProductFilter{}, want: true},
		{name: "category match", filter: ProductFilter{Category: "Food"}, want: true},
		{name: "category mismatch", filter: ProductFilter{Category: "food"}, want: false},
		{name: "search name case-insensitive", filter: ProductFilter{Search: "RICE"}, want: true},
		{name: "search description", filter: ProductFilter{Search: "basmati"}, want: true},
		{name: "search miss", filter: ProductFilter{Search: "oil"}, want: false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.filter.Matches(p); got != tc.want {
				t.Fatalf("Matches()=%v, want %v", got, tc.want)
			}
		})
	}
}

func TestStockErrorIsInsufficientStock(t *testing.T) {
	err := error(&StockError{ProductName: "Rice", Available: 1, Requested: 3})
	if !errors.Is(err, ErrInsufficientStock) {
		t.Fatal("StockError must unwrap to ErrInsufficientStock")
	}
	if !strings.Contains(err.Error(), "Available: 1, Requested: 3") {
		t.Fatalf("unexpected message: %s", err)
	}
	if !IsNotFound(ErrOrderNotFound) || IsNotFound(err) {
		t.Fatal("IsNotFound mismatch")
	}
}

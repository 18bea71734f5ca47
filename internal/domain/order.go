package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus описывает жизненный цикл заказа.
type OrderStatus string

const (
	// OrderStatusPending — заказ создан без подтверждённой оплаты.
	OrderStatusPending OrderStatus = "pending"
	// OrderStatusConfirmed — оплата подтверждена на момент создания.
	OrderStatusConfirmed OrderStatus = "confirmed"
	OrderStatusShipped   OrderStatus = "shipped"
	OrderStatusDelivered OrderStatus = "delivered"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// Valid проверяет, что статус относится к поддерживаемым значениям.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusConfirmed, OrderStatusShipped, OrderStatusDelivered, OrderStatusCancelled:
		return true
	default:
		return false
	}
}

// PaymentRecord — сведения о платеже, сохраняемые вместе с заказом.
type PaymentRecord struct {
	GatewayOrderID string `json:"orderId"`
	PaymentID      string `json:"paymentId"`
	Verified       bool   `json:"verified"`
}

// OrderItemInput — позиция заказа в запросе на создание.
type OrderItemInput struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
	// PriceAtPurchase — снимок цены, не зависит от текущей цены товара.
	PriceAtPurchase decimal.Decimal `json:"price_at_purchase"`
}

// CreateOrderInput — составной запрос на атомарное создание заказа.
type CreateOrderInput struct {
	Customer    CustomerInput    `json:"customer"`
	Items       []OrderItemInput `json:"items"`
	TotalAmount decimal.Decimal  `json:"totalAmount"`
	Payment     *PaymentRecord   `json:"payment,omitempty"`
}

// InitialStatus: confirmed только при verified-платеже, иначе pending.
func (in CreateOrderInput) InitialStatus() OrderStatus {
	if in.Payment != nil && in.Payment.Verified {
		return OrderStatusConfirmed
	}
	return OrderStatusPending
}

// Validate проверяет базовые инварианты заказа и возвращает список замечаний.
func (in CreateOrderInput) Validate() []error {
	var errs []error

	if strings.TrimSpace(in.Customer.Name) == "" {
		errs = append(errs, ErrCustomerNameRequired)
	}
	if len(in.Items) == 0 {
		errs = append(errs, ErrItemsRequired)
	}
	if in.TotalAmount.IsNegative() {
		errs = append(errs, ErrTotalAmountNegative)
	} else if !validAmountScale(in.TotalAmount) {
		errs = append(errs, ErrAmountScale)
	}
	qtyTooLarge := false
	for _, item := range in.Items {
		if strings.TrimSpace(item.ProductID) == "" {
			errs = append(errs, ErrItemProductRequired)
		}
		switch {
		case item.Quantity < 1:
			errs = append(errs, ErrItemQtyInvalid)
		case item.Quantity > MaxCount:
			qtyTooLarge = true
		}
		if item.PriceAtPurchase.IsNegative() {
			errs = append(errs, ErrItemPriceInvalid)
		} else if !validAmountScale(item.PriceAtPurchase) {
			errs = append(errs, ErrAmountScale)
		}
	}
	// повторяющиеся позиции списываются одной суммой
	for _, qty := range in.StockDemand() {
		if qty > MaxCount {
			qtyTooLarge = true
		}
	}
	if qtyTooLarge {
		errs = append(errs, ErrItemQtyTooLarge)
	}

	return errs
}

// StockDemand суммирует количество по товарам: одна позиция на товар при списании.
func (in CreateOrderInput) StockDemand() map[string]int {
	demand := make(map[string]int, len(in.Items))
	for _, item := range in.Items {
		demand[item.ProductID] += item.Quantity
	}
	return demand
}

// OrderItemView — позиция заказа с данными товара для чтения.
type OrderItemView struct {
	ID              string          `json:"id"`
	OrderID         string          `json:"order_id"`
	ProductID       string          `json:"product_id"`
	Quantity        int             `json:"quantity"`
	PriceAtPurchase decimal.Decimal `json:"price_at_purchase"`
	ProductName     string          `json:"product_name"`
	ImagePath       string          `json:"image_path"`
}

// OrderView — каноническое "плоское" представление заказа: поля клиента скопированы в заказ.
type OrderView struct {
	ID           string          `json:"id"`
	CustomerID   string          `json:"customer_id"`
	OrderDate    time.Time       `json:"order_date"`
	Status       OrderStatus     `json:"status"`
	TotalAmount  decimal.Decimal `json:"total_amount"`
	Payment      *PaymentRecord  `json:"payment_info"`
	CustomerName string          `json:"customer_name"`
	Email        string          `json:"email"`
	Phone        string          `json:"phone"`
	Address      string          `json:"address"`
	// Items заполняется только при чтении одного заказа.
	Items      []OrderItemView `json:"items,omitempty"`
	ItemCount  int             `json:"item_count"`
	TotalItems int             `json:"total_items"`
}

// Summarize пересчитывает item_count и total_items по загруженным позициям.
func (v *OrderView) Summarize() {
	v.ItemCount = len(v.Items)
	v.TotalItems = 0
	for _, item := range v.Items {
		v.TotalItems += item.Quantity
	}
}

package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput оборачивает все ошибки валидации входных данных.
	ErrInvalidInput = errors.New("invalid input")

	// Ошибки валидации товара.
	ErrProductNameRequired    = errors.New("product name is required")
	ErrProductNameLength      = errors.New("product name must be between 2 and 255 characters")
	ErrProductDescriptionLong = errors.New("description must be less than 2000 characters")
	ErrProductPriceNegative   = errors.New("price must be a non-negative number")
	ErrProductStockNegative   = errors.New("stock must be a non-negative integer")
	ErrProductCategoryLong    = errors.New("category must be less than 100 characters")
	ErrProductStockTooLarge   = errors.New("stock must not exceed 2147483647")

	// Ошибки валидации заказа.
	ErrCustomerNameRequired = errors.New("customer name is required")
	ErrItemsRequired        = errors.New("order must contain at least one item")
	ErrItemProductRequired  = errors.New("product id is required for all items")
	ErrItemQtyInvalid       = errors.New("quantity must be at least 1")
	ErrItemPriceInvalid     = errors.New("price at purchase must be a non-negative number")
	ErrTotalAmountNegative  = errors.New("total amount must be a non-negative number")
	ErrItemQtyTooLarge      = errors.New("quantity must not exceed 2147483647")

	// ErrAmountScale — у суммы больше двух знаков после запятой.
	ErrAmountScale = errors.New("amount must have at most 2 decimal places")

	// ErrProductNotFound возвращается, если товар не найден (или id некорректен).
	ErrProductNotFound = errors.New("product not found")
	// ErrCustomerNotFound возвращается, если клиент не найден.
	ErrCustomerNotFound = errors.New("customer not found")
	// ErrOrderNotFound возвращается, если заказ не найден.
	ErrOrderNotFound = errors.New("order not found")
	// ErrInsufficientStock — остатка недостаточно для списания.
	ErrInsufficientStock = errors.New("insufficient stock")

	// ErrPaymentSignatureInvalid — подпись платежа не прошла проверку HMAC.
	ErrPaymentSignatureInvalid = errors.New("invalid payment signature")
	// ErrPaymentNotConfigured — ключи платёжного шлюза не заданы.
	ErrPaymentNotConfigured = errors.New("payment gateway is not configured")
	// ErrPaymentGateway — шлюз вернул ошибку.
	ErrPaymentGateway = errors.New("payment gateway error")

	// ErrOutboxPublish — ошибка при публикации сообщения из outbox.
	ErrOutboxPublish = errors.New("outbox publish failed")
)

// NewValidationError собирает список нарушений в одну ошибку, совместимую с ErrInvalidInput.
// Возвращает nil для пустого списка.
func NewValidationError(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalidInput, errors.Join(errs...))
}

// IsNotFound проверяет, относится ли ошибка к отсутствующей сущности.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrProductNotFound) ||
		errors.Is(err, ErrCustomerNotFound) ||
		errors.Is(err, ErrOrderNotFound)
}

// StockError уточняет ErrInsufficientStock данными о товаре.
type StockError struct {
	ProductID   string
	ProductName string
	Available   int
	Requested   int
}

func (e *StockError) Error() string {
	name := e.ProductName
	if name == "" {
		name = e.ProductID
	}
	return fmt.Sprintf("Insufficient stock for product %s. Available: %d, Requested: %d", name, e.Available, e.Requested)
}

// Unwrap позволяет матчить StockError через errors.Is(err, ErrInsufficientStock).
func (e *StockError) Unwrap() error {
	return ErrInsufficientStock
}

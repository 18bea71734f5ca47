package payment

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// DefaultCurrency используется, если валюта не передана.
const DefaultCurrency = "INR"

// OrderRequest — запрос на создание платёжного заказа в шлюзе.
type OrderRequest struct {
	Amount   decimal.Decimal
	Currency string
	Receipt  string
	Notes    map[string]string
}

// Order — платёжный заказ, созданный шлюзом.
type Order struct {
	ID          string `json:"orderId"`
	AmountMinor int64  `json:"amount"`
	Currency    string `json:"currency"`
	KeyID       string `json:"keyId"`
}

// Proof — тройка, которую фронтенд получает от шлюза после оплаты.
type Proof struct {
	OrderID   string `json:"orderId"`
	PaymentID string `json:"paymentId"`
	Signature string `json:"signature"`
}

// Gateway создаёт платёжные заказы и проверяет подписи платежей.
type Gateway interface {
	CreateOrder(ctx context.Context, req OrderRequest) (Order, error)
	// Verify возвращает ErrPaymentSignatureInvalid, если подпись не совпала.
	Verify(proof Proof) error
	Name() string
}

// normalize проверяет сумму и заполняет значения по умолчанию.
func (r OrderRequest) normalize(now time.Time) (OrderRequest, int64, error) {
	if !r.Amount.IsPositive() {
		return OrderRequest{}, 0, fmt.Errorf("%w: amount is required and must be greater than 0", domain.ErrInvalidInput)
	}
	if r.Currency == "" {
		r.Currency = DefaultCurrency
	}
	if r.Receipt == "" {
		r.Receipt = "receipt_" + strconv.FormatInt(now.UnixMilli(), 10)
	}
	return r, ToMinorUnits(r.Amount), nil
}

// ToMinorUnits переводит сумму в минимальные единицы (пайсы), округляя до целого.
func ToMinorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

func verifyWithSecret(secret string, proof Proof) error {
	if proof.OrderID == "" || proof.PaymentID == "" || proof.Signature == "" {
		return fmt.Errorf("%w: order id, payment id and signature are required", domain.ErrInvalidInput)
	}
	if !VerifySignature(secret, proof.OrderID, proof.PaymentID, proof.Signature) {
		return domain.ErrPaymentSignatureInvalid
	}
	return nil
}

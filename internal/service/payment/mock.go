package payment

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MockGateway выдаёт заказы order_mock_<uuid> и подписывает их локальным секретом,
// чтобы весь сценарий оплаты работал без ключей Razorpay.
type MockGateway struct {
	secret string
	keyID  string
	now    func() time.Time

	mu      sync.Mutex
	created []Order
}

// NewMockGateway создаёт mock-шлюз с указанным секретом.
func NewMockGateway(secret string) *MockGateway {
	return &MockGateway{secret: secret, keyID: "rzp_mock", now: time.Now}
}

// CreateOrder запоминает и возвращает фиктивный заказ.
func (m *MockGateway) CreateOrder(_ context.Context, req OrderRequest) (Order, error) {
	req, minor, err := req.normalize(m.now())
	if err != nil {
		return Order{}, err
	}
	order := Order{ID: "order_mock_" + uuid.NewString(), AmountMinor: minor, Currency: req.Currency, KeyID: m.keyID}

	m.mu.Lock()
	m.created = append(m.created, order)
	m.mu.Unlock()

	return order, nil
}

// Pay имитирует успешную оплату и возвращает подписанное подтверждение.
func (m *MockGateway) Pay(orderID string) Proof {
	paymentID := "pay_mock_" + uuid.NewString()
	return Proof{OrderID: orderID, PaymentID: paymentID, Signature: Sign(m.secret, orderID, paymentID)}
}

// Verify проверяет подпись локальным секретом.
func (m *MockGateway) Verify(proof Proof) error {
	return verifyWithSecret(m.secret, proof)
}

// Name возвращает имя шлюза для логов.
func (m *MockGateway) Name() string {
	return "mock"
}

// Created возвращает копию созданных заказов.
func (m *MockGateway) Created() []Order {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Order(nil), m.created...)
}

var _ Gateway = (*MockGateway)(nil)

package checkout

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/metrics"
	"github.com/vladislavdragonenkov/storefront/internal/service/payment"
)

// PaymentVerifier проверяет подпись платежа.
type PaymentVerifier interface {
	Verify(proof payment.Proof) error
}

// PlaceOrderRequest — данные формы оформления заказа.
type PlaceOrderRequest struct {
	Customer    domain.CustomerInput
	Items       []domain.OrderItemInput
	TotalAmount decimal.Decimal
	// Payment — подтверждение оплаты от шлюза; без подписи записывается как неподтверждённое.
	Payment *payment.Proof
}

// Option настраивает Service.
type Option func(*Service)

// WithMetrics подключает метрики оформления.
func WithMetrics(m *metrics.CheckoutMetrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithLogger задаёт logger.
func WithLogger(logger *log.Entry) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// Service оформляет заказы: проверяет форму, остатки и оплату, затем
// делегирует атомарное создание заказа хранилищу.
type Service struct {
	products domain.ProductRepository
	orders   domain.OrderRepository
	verifier PaymentVerifier
	validate *validator.Validate
	metrics  *metrics.CheckoutMetrics
	logger   *log.Entry
}

// NewService создаёт Service. verifier может быть nil, тогда подписанные платежи отклоняются.
func NewService(repos domain.Repositories, verifier PaymentVerifier, opts ...Option) *Service {
	s := &Service{
		products: repos.Products,
		orders:   repos.Orders,
		verifier: verifier,
		validate: validator.New(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = log.WithField("component", "checkout")
	}
	return s
}

// PlaceOrder создаёт заказ. Возможные ошибки: domain.ErrInvalidInput,
// domain.ErrProductNotFound, domain.ErrInsufficientStock (*domain.StockError),
// domain.ErrPaymentSignatureInvalid, domain.ErrPaymentNotConfigured.
func (s *Service) PlaceOrder(ctx context.Context, req PlaceOrderRequest) (domain.OrderView, error) {
	done := s.metrics.Start()
	defer done()

	req.Customer = normalizeCustomer(req.Customer)
	if err := domain.NewValidationError(s.validateRequest(req)); err != nil {
		return domain.OrderView{}, s.reject(err, "invalid_input")
	}

	if err := s.checkStock(ctx, req.Items); err != nil {
		return domain.OrderView{}, s.reject(err, rejectReason(err))
	}

	record, err := s.paymentRecord(req.Payment)
	if err != nil {
		return domain.OrderView{}, s.reject(err, rejectReason(err))
	}

	order, err := s.orders.Create(ctx, domain.CreateOrderInput{
		Customer:    req.Customer,
		Items:       req.Items,
		TotalAmount: req.TotalAmount,
		Payment:     record,
	})
	if err != nil {
		return domain.OrderView{}, s.reject(err, rejectReason(err))
	}

	total, _ := order.TotalAmount.Float64()
	s.metrics.RecordPlaced(string(order.Status), order.TotalItems, total)
	s.logger.WithFields(log.Fields{
		"order_id":    order.ID,
		"customer_id": order.CustomerID,
		"status":      order.Status,
		"total":       order.TotalAmount.StringFixed(2),
		"items":       order.TotalItems,
	}).Info("order placed")

	return order, nil
}

// checkStock даёт понятную ошибку до транзакции; окончательная проверка
// выполняется условным списанием в хранилище.
func (s *Service) checkStock(ctx context.Context, items []domain.OrderItemInput) error {
	requested := make(map[string]int, len(items))
	ids := make([]string, 0, len(items))
	for _, item := range items {
		if _, seen := requested[item.ProductID]; !seen {
			ids = append(ids, item.ProductID)
		}
		requested[item.ProductID] += item.Quantity
	}

	for _, id := range ids {
		product, err := s.products.Get(ctx, id)
		if err != nil {
			if errors.Is(err, domain.ErrProductNotFound) {
				return fmt.Errorf("%w: %s", domain.ErrProductNotFound, id)
			}
			return fmt.Errorf("load product %s: %w", id, err)
		}
		if product.Stock < requested[id] {
			return &domain.StockError{
				ProductID:   id,
				ProductName: product.Name,
				Available:   product.Stock,
				Requested:   requested[id],
			}
		}
	}
	return nil
}

func (s *Service) paymentRecord(proof *payment.Proof) (*domain.PaymentRecord, error) {
	if proof == nil {
		return nil, nil
	}
	record := &domain.PaymentRecord{GatewayOrderID: proof.OrderID, PaymentID: proof.PaymentID}
	if proof.Signature == "" {
		return record, nil
	}
	if s.verifier == nil {
		return nil, domain.ErrPaymentNotConfigured
	}
	if err := s.verifier.Verify(*proof); err != nil {
		return nil, err
	}
	record.Verified = true
	return record, nil
}

func (s *Service) reject(err error, reason string) error {
	s.metrics.RecordRejected(reason)
	entry := s.logger.WithError(err).WithField("reason", reason)
	if reason == "error" {
		entry.Error("checkout failed")
	} else {
		entry.Warn("checkout rejected")
	}
	return err
}

func rejectReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, domain.ErrProductNotFound):
		return "product_not_found"
	case errors.Is(err, domain.ErrInsufficientStock):
		return "insufficient_stock"
	case errors.Is(err, domain.ErrPaymentSignatureInvalid):
		return "payment_invalid"
	case errors.Is(err, domain.ErrPaymentNotConfigured):
		return "payment_not_configured"
	default:
		return "error"
	}
}

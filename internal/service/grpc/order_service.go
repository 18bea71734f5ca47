package grpcsvc

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/service/checkout"
	"github.com/vladislavdragonenkov/storefront/internal/service/payment"
)

// OrderService реализует gRPC API заказов поверх checkout и репозитория.
type OrderService struct {
	orders   domain.OrderRepository
	checkout *checkout.Service
	logger   *log.Entry
}

// NewOrderService конструирует сервис с зависимостями.
func NewOrderService(orders domain.OrderRepository, checkoutSvc *checkout.Service, logger *log.Entry) *OrderService {
	if logger == nil {
		logger = log.WithField("component", "order-service")
	}
	return &OrderService{orders: orders, checkout: checkoutSvc, logger: logger}
}

// createOrderMessage — JSON-форма CreateOrder, совпадает с телом POST /api/orders.
type createOrderMessage struct {
	Customer    domain.CustomerInput    `json:"customer"`
	Items       []domain.OrderItemInput `json:"items"`
	TotalAmount decimal.Decimal         `json:"totalAmount"`
	Payment     *payment.Proof          `json:"payment"`
}

// GetOrder возвращает заказ с позициями.
func (s *OrderService) GetOrder(ctx context.Context, id *wrapperspb.StringValue) (*structpb.Struct, error) {
	orderID := strings.TrimSpace(id.GetValue())
	if orderID == "" {
		return nil, status.Error(codes.InvalidArgument, "order id is required")
	}

	order, err := s.orders.Get(ctx, orderID)
	if err != nil {
		return nil, s.toStatus(err, "GetOrder")
	}
	return toStruct(order)
}

// ListOrders возвращает все заказы без позиций, новые первыми.
func (s *OrderService) ListOrders(ctx context.Context, _ *emptypb.Empty) (*structpb.ListValue, error) {
	orders, err := s.orders.List(ctx)
	if err != nil {
		return nil, s.toStatus(err, "ListOrders")
	}

	list := &structpb.ListValue{Values: make([]*structpb.Value, 0, len(orders))}
	for _, order := range orders {
		st, err := toStruct(order)
		if err != nil {
			return nil, err
		}
		list.Values = append(list.Values, structpb.NewStructValue(st))
	}
	return list, nil
}

// CreateOrder оформляет заказ через checkout.
func (s *OrderService) CreateOrder(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}

	raw, err := protojson.Marshal(req)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, "malformed order payload")
	}
	var msg createOrderMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "malformed order payload: %v", err)
	}

	order, err := s.checkout.PlaceOrder(ctx, checkout.PlaceOrderRequest{
		Customer:    msg.Customer,
		Items:       msg.Items,
		TotalAmount: msg.TotalAmount,
		Payment:     msg.Payment,
	})
	if err != nil {
		return nil, s.toStatus(err, "CreateOrder")
	}
	return toStruct(order)
}

// toStatus переводит доменную ошибку в gRPC status.
func (s *OrderService) toStatus(err error, method string) error {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		return status.Error(codes.InvalidArgument, err.Error())
	case domain.IsNotFound(err):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, domain.ErrInsufficientStock),
		errors.Is(err, domain.ErrPaymentSignatureInvalid),
		errors.Is(err, domain.ErrPaymentNotConfigured):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	default:
		s.logger.WithError(err).WithField("method", method).Error("order service call failed")
		return status.Error(codes.Internal, "internal error")
	}
}

// toStruct сериализует значение через JSON-теги, чтобы gRPC и REST отдавали одну форму.
func toStruct(v any) (*structpb.Struct, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode response: %v", err)
	}
	st := &structpb.Struct{}
	if err := protojson.Unmarshal(raw, st); err != nil {
		return nil, status.Errorf(codes.Internal, "encode response: %v", err)
	}
	return st, nil
}

var _ OrderServiceServer = (*OrderService)(nil)

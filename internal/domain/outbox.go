package domain

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

const (
	// AggregateTypeOrder — тип агрегата для событий заказа.
	AggregateTypeOrder = "order"
	// EventTypeOrderCreated публикуется один раз на каждый созданный заказ.
	EventTypeOrderCreated = "order.created"
)

// OutboxMessage хранит данные для публикуемого события.
type OutboxMessage struct {
	ID            string
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

// OutboxStats описывает текущее состояние backlog transactional outbox.
type OutboxStats struct {
	PendingCount    int
	OldestPendingAt time.Time
}

// OutboxRepository читает и помечает сообщения outbox. Запись происходит внутри
// транзакции создания заказа, поэтому метода Enqueue в порте нет.
type OutboxRepository interface {
	PullPending(ctx context.Context, limit int) ([]OutboxMessage, error)
	Stats(ctx context.Context) (OutboxStats, error)
	MarkSent(ctx context.Context, id string) error
	MarkFailed(ctx context.Context, id string) error
}

// OutboxPublisher публикует события из transactional outbox.
type OutboxPublisher interface {
	// Publish передаёт событие наружу; должен быть идемпотентным.
	Publish(ctx context.Context, event OutboxMessage) error
}

// OrderCreatedEvent — полезная нагрузка события order.created.
type OrderCreatedEvent struct {
	OrderID     string                  `json:"order_id"`
	CustomerID  string                  `json:"customer_id"`
	Status      OrderStatus             `json:"status"`
	TotalAmount decimal.Decimal         `json:"total_amount"`
	Items       []OrderCreatedEventItem `json:"items"`
	OccurredAt  time.Time               `json:"occurred_at"`
}

// OrderCreatedEventItem — позиция в событии order.created.
type OrderCreatedEventItem struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

// NewOrderCreatedMessage формирует сообщение outbox для только что созданного заказа.
func NewOrderCreatedMessage(id, orderID, customerID string, input CreateOrderInput, at time.Time) (OutboxMessage, error) {
	event := OrderCreatedEvent{
		OrderID:     orderID,
		CustomerID:  customerID,
		Status:      input.InitialStatus(),
		TotalAmount: input.TotalAmount,
		Items:       make([]OrderCreatedEventItem, 0, len(input.Items)),
		OccurredAt:  at.UTC(),
	}
	for _, item := range input.Items {
		event.Items = append(event.Items, OrderCreatedEventItem{ProductID: item.ProductID, Quantity: item.Quantity})
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return OutboxMessage{}, fmt.Errorf("marshal order created event: %w", err)
	}

	return OutboxMessage{
		ID:            id,
		AggregateType: AggregateTypeOrder,
		AggregateID:   orderID,
		EventType:     EventTypeOrderCreated,
		Payload:       payload,
	}, nil
}

package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

type orderRepository struct {
	store *Store
}

// Create выполняет всю последовательность создания заказа под одной блокировкой.
// Изменения накапливаются в локальных копиях и применяются к хранилищу только
// после успеха всех шагов, поэтому ошибка на любом шаге ничего не оставляет.
func (r *orderRepository) Create(ctx context.Context, input domain.CreateOrderInput) (domain.OrderView, error) {
	if err := ctx.Err(); err != nil {
		return domain.OrderView{}, err
	}
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()

	if err := s.failpoint(FailpointCustomer); err != nil {
		return domain.OrderView{}, fmt.Errorf("insert customer: %w", err)
	}
	customer := newCustomer(input.Customer, now)

	// повторяющиеся позиции одного товара проверяются суммарно, как в postgres и mongo
	demand := input.StockDemand()
	ids := make([]string, 0, len(demand))
	for id := range demand {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	stock := make(map[string]int, len(ids))
	for _, id := range ids {
		if err := s.failpoint(FailpointStock); err != nil {
			return domain.OrderView{}, fmt.Errorf("decrement stock: %w", err)
		}
		rec, ok := s.products[id]
		if !ok {
			return domain.OrderView{}, fmt.Errorf("decrement stock for %s: %w", id, domain.ErrProductNotFound)
		}
		if rec.product.Stock < demand[id] {
			return domain.OrderView{}, &domain.StockError{
				ProductID:   id,
				ProductName: rec.product.Name,
				Available:   rec.product.Stock,
				Requested:   demand[id],
			}
		}
		stock[id] = rec.product.Stock - demand[id]
	}

	if err := s.failpoint(FailpointOrder); err != nil {
		return domain.OrderView{}, fmt.Errorf("insert order: %w", err)
	}
	order := &orderRecord{
		id:         uuid.NewString(),
		customerID: customer.ID,
		orderDate:  now,
		status:     input.InitialStatus(),
		total:      input.TotalAmount,
		payment:    clonePayment(input.Payment),
		items:      make([]itemRecord, 0, len(input.Items)),
	}
	for _, item := range input.Items {
		order.items = append(order.items, itemRecord{
			id:        uuid.NewString(),
			productID: item.ProductID,
			quantity:  item.Quantity,
			price:     item.PriceAtPurchase,
		})
	}

	if err := s.failpoint(FailpointOutbox); err != nil {
		return domain.OrderView{}, fmt.Errorf("enqueue outbox: %w", err)
	}
	msg, err := domain.NewOrderCreatedMessage(uuid.NewString(), order.id, customer.ID, input, now)
	if err != nil {
		return domain.OrderView{}, err
	}

	// commit
	s.customers[customer.ID] = &customerRecord{customer: customer, seq: s.nextSeq()}
	for id, left := range stock {
		rec := s.products[id]
		rec.product.Stock = left
		rec.product.UpdatedAt = now
	}
	order.seq = s.nextSeq()
	s.orders[order.id] = order
	s.outbox[msg.ID] = &outboxRecord{msg: msg, status: outboxStatusPending, createdAt: now, updatedAt: now, seq: s.nextSeq()}

	return s.viewLocked(order, true), nil
}

// Get возвращает заказ с позициями или ErrOrderNotFound.
func (r *orderRepository) Get(ctx context.Context, id string) (domain.OrderView, error) {
	if err := ctx.Err(); err != nil {
		return domain.OrderView{}, err
	}
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	order, ok := s.orders[id]
	if !ok {
		return domain.OrderView{}, domain.ErrOrderNotFound
	}
	return s.viewLocked(order, true), nil
}

// List возвращает все заказы без позиций, новые первыми.
func (r *orderRepository) List(ctx context.Context) ([]domain.OrderView, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	records := make([]*orderRecord, 0, len(s.orders))
	for _, order := range s.orders {
		records = append(records, order)
	}
	sort.Slice(records, func(i, j int) bool {
		if !records[i].orderDate.Equal(records[j].orderDate) {
			return records[i].orderDate.After(records[j].orderDate)
		}
		return records[i].seq > records[j].seq
	})

	result := make([]domain.OrderView, 0, len(records))
	for _, order := range records {
		result = append(result, s.viewLocked(order, false))
	}
	return result, nil
}

// viewLocked собирает плоское представление заказа. Вызывается под блокировкой.
func (s *Store) viewLocked(order *orderRecord, withItems bool) domain.OrderView {
	view := domain.OrderView{
		ID:          order.id,
		CustomerID:  order.customerID,
		OrderDate:   order.orderDate,
		Status:      order.status,
		TotalAmount: order.total,
		Payment:     clonePayment(order.payment),
	}
	if rec, ok := s.customers[order.customerID]; ok {
		view.CustomerName = rec.customer.Name
		view.Email = rec.customer.Email
		view.Phone = rec.customer.Phone
		view.Address = rec.customer.Address
	}

	items := make([]domain.OrderItemView, 0, len(order.items))
	for _, item := range order.items {
		itemView := domain.OrderItemView{
			ID:              item.id,
			OrderID:         order.id,
			ProductID:       item.productID,
			Quantity:        item.quantity,
			PriceAtPurchase: item.price,
		}
		// Товар мог быть удалён после оформления заказа.
		if rec, ok := s.products[item.productID]; ok {
			itemView.ProductName = rec.product.Name
			itemView.ImagePath = rec.product.ImagePath
		}
		items = append(items, itemView)
	}
	view.Items = items
	view.Summarize()
	if !withItems {
		view.Items = nil
	}
	return view
}

func clonePayment(p *domain.PaymentRecord) *domain.PaymentRecord {
	if p == nil {
		return nil
	}
	cp := *p
	return &cp
}

var _ domain.OrderRepository = (*orderRepository)(nil)

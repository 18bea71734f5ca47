package memory

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// Шаги транзакции создания заказа, на которые можно повесить failpoint.
const (
	FailpointCustomer = "customer"
	FailpointStock    = "stock"
	FailpointOrder    = "order"
	FailpointOutbox   = "outbox"
)

type productRecord struct {
	product domain.Product
	seq     uint64
}

type customerRecord struct {
	customer domain.Customer
	seq      uint64
}

type orderRecord struct {
	id         string
	customerID string
	orderDate  time.Time
	status     domain.OrderStatus
	total      decimal.Decimal
	payment    *domain.PaymentRecord
	items      []itemRecord
	seq        uint64
}

type itemRecord struct {
	id        string
	productID string
	quantity  int
	price     decimal.Decimal
}

// Store — общее in-memory состояние всех репозиториев. Все изменения
// выполняются под одной блокировкой, поэтому многошаговые операции атомарны.
type Store struct {
	mu         sync.RWMutex
	seq        uint64
	products   map[string]*productRecord
	customers  map[string]*customerRecord
	orders     map[string]*orderRecord
	outbox     map[string]*outboxRecord
	failpoints map[string]error
	now        func() time.Time
}

// NewStore создаёт пустое хранилище.
func NewStore() *Store {
	return &Store{
		products:   make(map[string]*productRecord),
		customers:  make(map[string]*customerRecord),
		orders:     make(map[string]*orderRecord),
		outbox:     make(map[string]*outboxRecord),
		failpoints: make(map[string]error),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Repositories возвращает набор репозиториев поверх хранилища.
func (s *Store) Repositories() domain.Repositories {
	return domain.Repositories{
		Products:  &productRepository{store: s},
		Customers: &customerRepository{store: s},
		Orders:    &orderRepository{store: s},
		Outbox:    &outboxRepository{store: s},
	}
}

// FailOn заставляет указанный шаг создания заказа вернуть err. nil снимает failpoint.
func (s *Store) FailOn(step string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err == nil {
		delete(s.failpoints, step)
		return
	}
	s.failpoints[step] = err
}

// Ping проверяет только отмену контекста.
func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}

// Close ничего не освобождает и нужен для единообразия бэкендов.
func (s *Store) Close(context.Context) error {
	return nil
}

func (s *Store) nextSeq() uint64 {
	s.seq++
	return s.seq
}

func (s *Store) failpoint(step string) error {
	return s.failpoints[step]
}

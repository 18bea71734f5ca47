package metrics

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// RepositoryMetrics измеряет длительность операций хранилища по бэкенду.
type RepositoryMetrics struct {
	duration *prometheus.HistogramVec
}

// NewRepositoryMetrics регистрирует гистограмму операций хранилища.
func NewRepositoryMetrics(registerer prometheus.Registerer) *RepositoryMetrics {
	return &RepositoryMetrics{
		duration: registerHistogramVec(registerer, prometheus.HistogramOpts{
			Name:    "storefront_repository_operation_duration_seconds",
			Help:    "Duration of storage operations in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"backend", "operation", "result"}),
	}
}

func (m *RepositoryMetrics) observe(backend, operation string, started time.Time, err error) {
	if m == nil {
		return
	}
	m.duration.WithLabelValues(backend, operation, resultLabel(err)).Observe(time.Since(started).Seconds())
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case domain.IsNotFound(err):
		return "not_found"
	case errors.Is(err, domain.ErrInsufficientStock):
		return "insufficient_stock"
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return "timeout"
	default:
		return "error"
	}
}

// InstrumentRepositories оборачивает репозитории бэкенда измерением длительности.
func InstrumentRepositories(repos domain.Repositories, backend string, m *RepositoryMetrics) domain.Repositories {
	if m == nil {
		return repos
	}
	return domain.Repositories{
		Products:  &productRepository{next: repos.Products, backend: backend, m: m},
		Customers: &customerRepository{next: repos.Customers, backend: backend, m: m},
		Orders:    &orderRepository{next: repos.Orders, backend: backend, m: m},
		Outbox:    repos.Outbox,
	}
}

type productRepository struct {
	next    domain.ProductRepository
	backend string
	m       *RepositoryMetrics
}

func (r *productRepository) List(ctx context.Context, filter domain.ProductFilter) ([]domain.Product, error) {
	started := time.Now()
	products, err := r.next.List(ctx, filter)
	r.m.observe(r.backend, "product_list", started, err)
	return products, err
}

func (r *productRepository) Get(ctx context.Context, id string) (domain.Product, error) {
	started := time.Now()
	product, err := r.next.Get(ctx, id)
	r.m.observe(r.backend, "product_get", started, err)
	return product, err
}

func (r *productRepository) Create(ctx context.Context, product domain.Product) (domain.Product, error) {
	started := time.Now()
	created, err := r.next.Create(ctx, product)
	r.m.observe(r.backend, "product_create", started, err)
	return created, err
}

func (r *productRepository) Update(ctx context.Context, id string, update domain.ProductUpdate) (domain.Product, error) {
	started := time.Now()
	updated, err := r.next.Update(ctx, id, update)
	r.m.observe(r.backend, "product_update", started, err)
	return updated, err
}

func (r *productRepository) Delete(ctx context.Context, id string) error {
	started := time.Now()
	err := r.next.Delete(ctx, id)
	r.m.observe(r.backend, "product_delete", started, err)
	return err
}

func (r *productRepository) Categories(ctx context.Context) ([]string, error) {
	started := time.Now()
	categories, err := r.next.Categories(ctx)
	r.m.observe(r.backend, "product_categories", started, err)
	return categories, err
}

type customerRepository struct {
	next    domain.CustomerRepository
	backend string
	m       *RepositoryMetrics
}

func (r *customerRepository) Create(ctx context.Context, input domain.CustomerInput) (domain.Customer, error) {
	started := time.Now()
	customer, err := r.next.Create(ctx, input)
	r.m.observe(r.backend, "customer_create", started, err)
	return customer, err
}

func (r *customerRepository) Get(ctx context.Context, id string) (domain.Customer, error) {
	started := time.Now()
	customer, err := r.next.Get(ctx, id)
	r.m.observe(r.backend, "customer_get", started, err)
	return customer, err
}

func (r *customerRepository) List(ctx context.Context) ([]domain.Customer, error) {
	started := time.Now()
	customers, err := r.next.List(ctx)
	r.m.observe(r.backend, "customer_list", started, err)
	return customers, err
}

type orderRepository struct {
	next    domain.OrderRepository
	backend string
	m       *RepositoryMetrics
}

func (r *orderRepository) Create(ctx context.Context, input domain.CreateOrderInput) (domain.OrderView, error) {
	started := time.Now()
	order, err := r.next.Create(ctx, input)
	r.m.observe(r.backend, "order_create", started, err)
	return order, err
}

func (r *orderRepository) Get(ctx context.Context, id string) (domain.OrderView, error) {
	started := time.Now()
	order, err := r.next.Get(ctx, id)
	r.m.observe(r.backend, "order_get", started, err)
	return order, err
}

func (r *orderRepository) List(ctx context.Context) ([]domain.OrderView, error) {
	started := time.Now()
	orders, err := r.next.List(ctx)
	r.m.observe(r.backend, "order_list", started, err)
	return orders, err
}

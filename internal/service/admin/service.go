package admin

import (
	"context"
	"crypto/subtle"
	"fmt"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

const recentOrdersLimit = 10

// Credentials — учётные данные администратора из конфигурации.
type Credentials struct {
	Username string
	Password string
}

// Stats — сводка для панели администратора.
type Stats struct {
	TotalCustomers int                        `json:"totalCustomers"`
	TotalOrders    int                        `json:"totalOrders"`
	TotalProducts  int                        `json:"totalProducts"`
	TotalRevenue   decimal.Decimal            `json:"totalRevenue"`
	TotalStock     int                        `json:"totalStock"`
	OrdersByStatus map[domain.OrderStatus]int `json:"ordersByStatus"`
	RecentOrders   []domain.OrderView         `json:"recentOrders"`
}

// Service обслуживает back-office: вход администратора, статистику и выгрузки.
type Service struct {
	repos       domain.Repositories
	credentials Credentials
	logger      *log.Entry
}

// NewService создаёт Service.
func NewService(repos domain.Repositories, credentials Credentials, logger *log.Entry) *Service {
	if logger == nil {
		logger = log.WithField("component", "admin")
	}
	return &Service{repos: repos, credentials: credentials, logger: logger}
}

// Authenticate сравнивает логин и пароль за постоянное время.
func (s *Service) Authenticate(username, password string) bool {
	if s.credentials.Username == "" || s.credentials.Password == "" {
		return false
	}
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(s.credentials.Username)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(password), []byte(s.credentials.Password)) == 1
	if !(userOK && passOK) {
		s.logger.WithField("username", username).Warn("admin login failed")
		return false
	}
	return true
}

// Customers возвращает всех клиентов, новые первыми.
func (s *Service) Customers(ctx context.Context) ([]domain.Customer, error) {
	customers, err := s.repos.Customers.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list customers: %w", err)
	}
	return customers, nil
}

// Orders возвращает все заказы без позиций, новые первыми.
func (s *Service) Orders(ctx context.Context) ([]domain.OrderView, error) {
	orders, err := s.repos.Orders.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return orders, nil
}

// Stats загружает клиентов, заказы и товары параллельно и агрегирует их.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	var (
		customers []domain.Customer
		orders    []domain.OrderView
		products  []domain.Product
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		customers, err = s.repos.Customers.List(gctx)
		if err != nil {
			return fmt.Errorf("list customers: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		orders, err = s.repos.Orders.List(gctx)
		if err != nil {
			return fmt.Errorf("list orders: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		products, err = s.repos.Products.List(gctx, domain.ProductFilter{})
		if err != nil {
			return fmt.Errorf("list products: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return Stats{}, err
	}

	stats := Stats{
		TotalCustomers: len(customers),
		TotalOrders:    len(orders),
		TotalProducts:  len(products),
		TotalRevenue:   decimal.Zero,
		OrdersByStatus: make(map[domain.OrderStatus]int),
	}
	for _, order := range orders {
		stats.TotalRevenue = stats.TotalRevenue.Add(order.TotalAmount)
		status := order.Status
		if status == "" {
			status = domain.OrderStatusPending
		}
		stats.OrdersByStatus[status]++
	}
	for _, product := range products {
		stats.TotalStock += product.Stock
	}

	recent := orders
	if len(recent) > recentOrdersLimit {
		recent = recent[:recentOrdersLimit]
	}
	stats.RecentOrders = append([]domain.OrderView{}, recent...)

	return stats, nil
}

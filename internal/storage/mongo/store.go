package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

const (
	defaultConnTimeout = 5 * time.Second
	opTimeout          = 5 * time.Second

	productsCollection  = "products"
	customersCollection = "customers"
	ordersCollection    = "orders"
	outboxCollection    = "outbox_messages"
)

// Store владеет клиентом MongoDB и базой данных магазина.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
}

// Connect подключается к MongoDB и проверяет доступность primary.
// Создание заказа использует транзакции, поэтому нужен replica set.
func Connect(ctx context.Context, uri, database string) (*Store, error) {
	connectCtx, cancel := context.WithTimeout(ctx, defaultConnTimeout)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().
		ApplyURI(uri).
		SetServerSelectionTimeout(defaultConnTimeout))
	if err != nil {
		return nil, fmt.Errorf("connect mongodb: %w", err)
	}
	if err := client.Ping(connectCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongodb: %w", err)
	}

	return &Store{client: client, db: client.Database(database)}, nil
}

// Database возвращает handle базы для низкоуровневого доступа.
func (s *Store) Database() *mongo.Database {
	return s.db
}

// Repositories возвращает репозитории поверх этой базы.
func (s *Store) Repositories() domain.Repositories {
	return domain.Repositories{
		Products:  &productRepository{coll: s.db.Collection(productsCollection)},
		Customers: &customerRepository{coll: s.db.Collection(customersCollection)},
		Orders:    &orderRepository{store: s},
		Outbox:    &outboxRepository{coll: s.db.Collection(outboxCollection)},
	}
}

// Ping проверяет доступность primary.
func (s *Store) Ping(ctx context.Context) error {
	if s == nil || s.client == nil {
		return fmt.Errorf("mongodb store is not initialized")
	}
	pingCtx, cancel := context.WithTimeout(ctx, defaultConnTimeout)
	defer cancel()
	return s.client.Ping(pingCtx, readpref.Primary())
}

// WithTransaction выполняет fn в multi-document транзакции. Драйвер сам повторяет
// попытку при TransientTransactionError, поэтому fn должна быть повторяемой.
func (s *Store) WithTransaction(ctx context.Context, fn func(sc mongo.SessionContext) error) error {
	if s == nil || s.client == nil {
		return fmt.Errorf("mongodb store is not initialized")
	}

	session, err := s.client.StartSession()
	if err != nil {
		return fmt.Errorf("start mongodb session: %w", err)
	}
	defer session.EndSession(context.Background())

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	return err
}

// EnsureIndexes создаёт индексы, на которые опираются выборки.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	indexes := map[string][]mongo.IndexModel{
		productsCollection: {
			{Keys: bson.D{{Key: "category", Value: 1}}},
			{Keys: bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}},
		},
		customersCollection: {
			{Keys: bson.D{{Key: "created_at", Value: -1}}},
		},
		ordersCollection: {
			{Keys: bson.D{{Key: "order_date", Value: -1}, {Key: "_id", Value: -1}}},
		},
		outboxCollection: {
			{Keys: bson.D{{Key: "status", Value: 1}, {Key: "created_at", Value: 1}}},
		},
	}

	for name, models := range indexes {
		if _, err := s.db.Collection(name).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("create indexes for %s: %w", name, err)
		}
	}
	return nil
}

// Close разрывает соединение с кластером.
func (s *Store) Close(ctx context.Context) error {
	if s == nil || s.client == nil {
		return nil
	}
	return s.client.Disconnect(ctx)
}

func withOpTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, opTimeout)
}

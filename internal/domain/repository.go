package domain

import "context"

// ProductRepository описывает требования к хранилищу каталога.
type ProductRepository interface {
	// List возвращает товары по фильтру, новые первыми.
	List(ctx context.Context, filter ProductFilter) ([]Product, error)
	// Get возвращает товар или ErrProductNotFound (в том числе для синтаксически неверного id).
	Get(ctx context.Context, id string) (Product, error)
	// Create сохраняет товар; идентификатор назначает хранилище.
	Create(ctx context.Context, product Product) (Product, error)
	// Update применяет частичное обновление и возвращает актуальную запись.
	Update(ctx context.Context, id string, update ProductUpdate) (Product, error)
	// Delete удаляет товар или возвращает ErrProductNotFound.
	Delete(ctx context.Context, id string) error
	// Categories возвращает отсортированный список непустых категорий без повторов.
	Categories(ctx context.Context) ([]string, error)
}

// CustomerRepository описывает хранилище клиентов.
type CustomerRepository interface {
	Create(ctx context.Context, input CustomerInput) (Customer, error)
	Get(ctx context.Context, id string) (Customer, error)
	// List возвращает всех клиентов, новые первыми.
	List(ctx context.Context) ([]Customer, error)
}

// OrderRepository описывает хранилище заказов.
type OrderRepository interface {
	// Create атомарно создаёт клиента, списывает остатки, сохраняет заказ с позициями
	// и событие outbox. При любой ошибке не остаётся ни одной частичной записи.
	Create(ctx context.Context, input CreateOrderInput) (OrderView, error)
	// Get возвращает заказ с клиентом и позициями или ErrOrderNotFound.
	Get(ctx context.Context, id string) (OrderView, error)
	// List возвращает все заказы без позиций (только item_count/total_items), новые первыми.
	// Пагинации нет: выборка растёт вместе с магазином.
	List(ctx context.Context) ([]OrderView, error)
}

// Repositories — набор репозиториев одного бэкенда, выбранного при старте.
type Repositories struct {
	Products  ProductRepository
	Customers CustomerRepository
	Orders    OrderRepository
	Outbox    OutboxRepository
}

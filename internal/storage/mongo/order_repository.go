package mongo

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

type orderRepository struct {
	store *Store
}

func (r *orderRepository) collection(name string) *mongo.Collection {
	return r.store.db.Collection(name)
}

// Create выполняет все шаги создания заказа в одной транзакции.
func (r *orderRepository) Create(ctx context.Context, input domain.CreateOrderInput) (domain.OrderView, error) {
	txCtx, cancel := withOpTimeout(ctx)
	defer cancel()

	// Идентификаторы товаров проверяются до транзакции: неверный hex — это отсутствующий товар.
	demand := make(map[primitive.ObjectID]int, len(input.Items))
	itemProducts := make([]primitive.ObjectID, 0, len(input.Items))
	for _, item := range input.Items {
		oid, err := parseObjectID(item.ProductID, domain.ErrProductNotFound)
		if err != nil {
			return domain.OrderView{}, fmt.Errorf("decrement stock for %s: %w", item.ProductID, err)
		}
		demand[oid] += item.Quantity
		itemProducts = append(itemProducts, oid)
	}

	var orderID primitive.ObjectID
	err := r.store.WithTransaction(txCtx, func(sc mongo.SessionContext) error {
		now := time.Now().UTC()

		customer, err := insertCustomer(sc, r.collection(customersCollection), input.Customer, now)
		if err != nil {
			return err
		}

		if err := r.decrementStock(sc, demand, now); err != nil {
			return err
		}

		doc, err := newOrderDoc(input, customer.ID, itemProducts, now)
		if err != nil {
			return err
		}
		if _, err := r.collection(ordersCollection).InsertOne(sc, doc); err != nil {
			return fmt.Errorf("insert order: %w", err)
		}

		msg, err := domain.NewOrderCreatedMessage(uuid.NewString(), doc.ID.Hex(), customer.ID.Hex(), input, now)
		if err != nil {
			return err
		}
		if err := insertOutboxMessage(sc, r.collection(outboxCollection), msg, now); err != nil {
			return err
		}

		orderID = doc.ID
		return nil
	})
	if err != nil {
		return domain.OrderView{}, err
	}

	return r.Get(ctx, orderID.Hex())
}

// decrementStock списывает остатки условным $inc в порядке id товаров.
func (r *orderRepository) decrementStock(sc mongo.SessionContext, demand map[primitive.ObjectID]int, now time.Time) error {
	ids := make([]primitive.ObjectID, 0, len(demand))
	for id := range demand {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].Hex() < ids[j].Hex() })

	products := r.collection(productsCollection)
	for _, id := range ids {
		qty := demand[id]
		res, err := products.UpdateOne(sc,
			bson.M{"_id": id, "stock": bson.M{"$gte": qty}},
			bson.M{"$inc": bson.M{"stock": -qty}, "$set": bson.M{"updated_at": now}},
		)
		if err != nil {
			return fmt.Errorf("decrement stock: %w", err)
		}
		if res.MatchedCount == 1 {
			continue
		}

		var current productDoc
		err = products.FindOne(sc, bson.M{"_id": id}).Decode(&current)
		if errors.Is(err, mongo.ErrNoDocuments) {
			return fmt.Errorf("decrement stock for %s: %w", id.Hex(), domain.ErrProductNotFound)
		}
		if err != nil {
			return fmt.Errorf("check stock: %w", err)
		}
		return &domain.StockError{ProductID: id.Hex(), ProductName: current.Name, Available: current.Stock, Requested: qty}
	}
	return nil
}

func newOrderDoc(input domain.CreateOrderInput, customerID primitive.ObjectID, productIDs []primitive.ObjectID, now time.Time) (orderDoc, error) {
	total, err := toDecimal128(input.TotalAmount)
	if err != nil {
		return orderDoc{}, err
	}
	doc := orderDoc{
		ID:          primitive.NewObjectID(),
		CustomerID:  customerID,
		OrderDate:   now,
		Status:      string(input.InitialStatus()),
		TotalAmount: total,
		Items:       make([]orderItemDoc, 0, len(input.Items)),
	}
	if input.Payment != nil {
		doc.PaymentInfo = &paymentDoc{
			GatewayOrderID: input.Payment.GatewayOrderID,
			PaymentID:      input.Payment.PaymentID,
			Verified:       input.Payment.Verified,
		}
	}
	for i, item := range input.Items {
		price, err := toDecimal128(item.PriceAtPurchase)
		if err != nil {
			return orderDoc{}, err
		}
		doc.Items = append(doc.Items, orderItemDoc{
			ID:              primitive.NewObjectID(),
			ProductID:       productIDs[i],
			Quantity:        item.Quantity,
			PriceAtPurchase: price,
		})
	}
	return doc, nil
}

func (r *orderRepository) Get(ctx context.Context, id string) (domain.OrderView, error) {
	oid, err := parseObjectID(id, domain.ErrOrderNotFound)
	if err != nil {
		return domain.OrderView{}, err
	}
	ctx, cancel := withOpTimeout(ctx)
	defer cancel()

	var doc orderDoc
	err = r.collection(ordersCollection).FindOne(ctx, bson.M{"_id": oid}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return domain.OrderView{}, domain.ErrOrderNotFound
	}
	if err != nil {
		return domain.OrderView{}, fmt.Errorf("find order: %w", err)
	}

	customers, err := loadCustomers(ctx, r.collection(customersCollection), []primitive.ObjectID{doc.CustomerID})
	if err != nil {
		return domain.OrderView{}, err
	}

	productIDs := make([]primitive.ObjectID, 0, len(doc.Items))
	for _, item := range doc.Items {
		productIDs = append(productIDs, item.ProductID)
	}
	products, err := r.loadProducts(ctx, productIDs)
	if err != nil {
		return domain.OrderView{}, err
	}

	return doc.toView(customers, products, true)
}

// List читает все заказы и клиентов двумя запросами; счётчики считаются по встроенным позициям.
func (r *orderRepository) List(ctx context.Context) ([]domain.OrderView, error) {
	ctx, cancel := withOpTimeout(ctx)
	defer cancel()

	cursor, err := r.collection(ordersCollection).Find(ctx, bson.M{},
		options.Find().SetSort(bson.D{{Key: "order_date", Value: -1}, {Key: "_id", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	var docs []orderDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode orders: %w", err)
	}

	customerIDs := make([]primitive.ObjectID, 0, len(docs))
	for _, doc := range docs {
		customerIDs = append(customerIDs, doc.CustomerID)
	}
	customers, err := loadCustomers(ctx, r.collection(customersCollection), customerIDs)
	if err != nil {
		return nil, err
	}

	orders := make([]domain.OrderView, 0, len(docs))
	for _, doc := range docs {
		view, err := doc.toView(customers, nil, false)
		if err != nil {
			return nil, err
		}
		orders = append(orders, view)
	}
	return orders, nil
}

func (r *orderRepository) loadProducts(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]productDoc, error) {
	result := make(map[primitive.ObjectID]productDoc, len(ids))
	if len(ids) == 0 {
		return result, nil
	}
	cursor, err := r.collection(productsCollection).Find(ctx, bson.M{"_id": bson.M{"$in": ids}},
		options.Find().SetProjection(bson.M{"name": 1, "image_path": 1}))
	if err != nil {
		return nil, fmt.Errorf("load products: %w", err)
	}
	var docs []productDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode products: %w", err)
	}
	for _, doc := range docs {
		result[doc.ID] = doc
	}
	return result, nil
}

var _ domain.OrderRepository = (*orderRepository)(nil)

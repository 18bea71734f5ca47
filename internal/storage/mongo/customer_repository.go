package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

type customerRepository struct {
	coll *mongo.Collection
}

func (r *customerRepository) Create(ctx context.Context, input domain.CustomerInput) (domain.Customer, error) {
	ctx, cancel := withOpTimeout(ctx)
	defer cancel()

	doc, err := insertCustomer(ctx, r.coll, input, time.Now().UTC())
	if err != nil {
		return domain.Customer{}, err
	}
	return doc.toDomain(), nil
}

func (r *customerRepository) Get(ctx context.Context, id string) (domain.Customer, error) {
	oid, err := parseObjectID(id, domain.ErrCustomerNotFound)
	if err != nil {
		return domain.Customer{}, err
	}
	ctx, cancel := withOpTimeout(ctx)
	defer cancel()

	var doc customerDoc
	err = r.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return domain.Customer{}, domain.ErrCustomerNotFound
	}
	if err != nil {
		return domain.Customer{}, fmt.Errorf("find customer: %w", err)
	}
	return doc.toDomain(), nil
}

func (r *customerRepository) List(ctx context.Context) ([]domain.Customer, error) {
	ctx, cancel := withOpTimeout(ctx)
	defer cancel()

	cursor, err := r.coll.Find(ctx, bson.M{},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("list customers: %w", err)
	}
	var docs []customerDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode customers: %w", err)
	}

	customers := make([]domain.Customer, 0, len(docs))
	for _, doc := range docs {
		customers = append(customers, doc.toDomain())
	}
	return customers, nil
}

// insertCustomer принимает и обычный контекст, и SessionContext транзакции.
func insertCustomer(ctx context.Context, coll *mongo.Collection, input domain.CustomerInput, now time.Time) (customerDoc, error) {
	doc := customerDoc{
		ID:        primitive.NewObjectID(),
		Name:      input.Name,
		Email:     input.Email,
		Phone:     input.Phone,
		Address:   input.Address,
		CreatedAt: now,
	}
	if _, err := coll.InsertOne(ctx, doc); err != nil {
		return customerDoc{}, fmt.Errorf("insert customer: %w", err)
	}
	return doc, nil
}

// loadCustomers загружает клиентов одним запросом $in.
func loadCustomers(ctx context.Context, coll *mongo.Collection, ids []primitive.ObjectID) (map[primitive.ObjectID]customerDoc, error) {
	result := make(map[primitive.ObjectID]customerDoc, len(ids))
	if len(ids) == 0 {
		return result, nil
	}
	cursor, err := coll.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, fmt.Errorf("load customers: %w", err)
	}
	var docs []customerDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode customers: %w", err)
	}
	for _, doc := range docs {
		result[doc.ID] = doc
	}
	return result, nil
}

var _ domain.CustomerRepository = (*customerRepository)(nil)

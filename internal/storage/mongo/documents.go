package mongo

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

type productDoc struct {
	ID          primitive.ObjectID   `bson:"_id,omitempty"`
	Name        string               `bson:"name"`
	Description string               `bson:"description"`
	Price       primitive.Decimal128 `bson:"price"`
	Stock       int                  `bson:"stock"`
	Category    string               `bson:"category"`
	ImagePath   string               `bson:"image_path"`
	CreatedAt   time.Time            `bson:"created_at"`
	UpdatedAt   time.Time            `bson:"updated_at"`
}

type customerDoc struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	Name      string             `bson:"name"`
	Email     string             `bson:"email"`
	Phone     string             `bson:"phone"`
	Address   string             `bson:"address"`
	CreatedAt time.Time          `bson:"created_at"`
}

type paymentDoc struct {
	GatewayOrderID string `bson:"orderId"`
	PaymentID      string `bson:"paymentId"`
	Verified       bool   `bson:"verified"`
}

// orderDoc хранит позиции внутри документа заказа.
type orderDoc struct {
	ID          primitive.ObjectID   `bson:"_id,omitempty"`
	CustomerID  primitive.ObjectID   `bson:"customer_id"`
	OrderDate   time.Time            `bson:"order_date"`
	Status      string               `bson:"status"`
	TotalAmount primitive.Decimal128 `bson:"total_amount"`
	PaymentInfo *paymentDoc          `bson:"payment_info,omitempty"`
	Items       []orderItemDoc       `bson:"items"`
}

type orderItemDoc struct {
	ID              primitive.ObjectID   `bson:"_id"`
	ProductID       primitive.ObjectID   `bson:"product_id"`
	Quantity        int                  `bson:"quantity"`
	PriceAtPurchase primitive.Decimal128 `bson:"price_at_purchase"`
}

type outboxDoc struct {
	ID            string    `bson:"_id"`
	AggregateType string    `bson:"aggregate_type"`
	AggregateID   string    `bson:"aggregate_id"`
	EventType     string    `bson:"event_type"`
	Payload       string    `bson:"payload"`
	Status        string    `bson:"status"`
	AttemptCount  int       `bson:"attempt_count"`
	CreatedAt     time.Time `bson:"created_at"`
	UpdatedAt     time.Time `bson:"updated_at"`
}

func toDecimal128(d decimal.Decimal) (primitive.Decimal128, error) {
	value, err := primitive.ParseDecimal128(d.String())
	if err != nil {
		return primitive.Decimal128{}, fmt.Errorf("convert %s to decimal128: %w", d, err)
	}
	return value, nil
}

func fromDecimal128(value primitive.Decimal128) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(value.String())
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("convert decimal128 %s: %w", value, err)
	}
	return d, nil
}

// parseObjectID возвращает notFound для синтаксически неверного идентификатора.
func parseObjectID(id string, notFound error) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, notFound
	}
	return oid, nil
}

func (d productDoc) toDomain() (domain.Product, error) {
	price, err := fromDecimal128(d.Price)
	if err != nil {
		return domain.Product{}, err
	}
	return domain.Product{
		ID:          d.ID.Hex(),
		Name:        d.Name,
		Description: d.Description,
		Price:       price,
		Stock:       d.Stock,
		Category:    d.Category,
		ImagePath:   d.ImagePath,
		CreatedAt:   d.CreatedAt.UTC(),
		UpdatedAt:   d.UpdatedAt.UTC(),
	}, nil
}

func newProductDoc(p domain.Product) (productDoc, error) {
	price, err := toDecimal128(p.Price)
	if err != nil {
		return productDoc{}, err
	}
	return productDoc{
		Name:        p.Name,
		Description: p.Description,
		Price:       price,
		Stock:       p.Stock,
		Category:    p.Category,
		ImagePath:   p.ImagePath,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}, nil
}

func (d customerDoc) toDomain() domain.Customer {
	return domain.Customer{
		ID:        d.ID.Hex(),
		Name:      d.Name,
		Email:     d.Email,
		Phone:     d.Phone,
		Address:   d.Address,
		CreatedAt: d.CreatedAt.UTC(),
	}
}

// toView разворачивает документ заказа в плоское представление. Клиент и товары
// передаются уже загруженными пачкой.
func (d orderDoc) toView(customers map[primitive.ObjectID]customerDoc, products map[primitive.ObjectID]productDoc, withItems bool) (domain.OrderView, error) {
	total, err := fromDecimal128(d.TotalAmount)
	if err != nil {
		return domain.OrderView{}, err
	}
	view := domain.OrderView{
		ID:          d.ID.Hex(),
		CustomerID:  d.CustomerID.Hex(),
		OrderDate:   d.OrderDate.UTC(),
		Status:      domain.OrderStatus(d.Status),
		TotalAmount: total,
	}
	if d.PaymentInfo != nil {
		view.Payment = &domain.PaymentRecord{
			GatewayOrderID: d.PaymentInfo.GatewayOrderID,
			PaymentID:      d.PaymentInfo.PaymentID,
			Verified:       d.PaymentInfo.Verified,
		}
	}
	if customer, ok := customers[d.CustomerID]; ok {
		view.CustomerName = customer.Name
		view.Email = customer.Email
		view.Phone = customer.Phone
		view.Address = customer.Address
	}

	view.Items = make([]domain.OrderItemView, 0, len(d.Items))
	for _, item := range d.Items {
		price, err := fromDecimal128(item.PriceAtPurchase)
		if err != nil {
			return domain.OrderView{}, err
		}
		itemView := domain.OrderItemView{
			ID:              item.ID.Hex(),
			OrderID:         view.ID,
			ProductID:       item.ProductID.Hex(),
			Quantity:        item.Quantity,
			PriceAtPurchase: price,
		}
		if product, ok := products[item.ProductID]; ok {
			itemView.ProductName = product.Name
			itemView.ImagePath = product.ImagePath
		}
		view.Items = append(view.Items, itemView)
	}
	view.Summarize()
	if !withItems {
		view.Items = nil
	}
	return view, nil
}

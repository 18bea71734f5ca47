package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

type orderRepository struct {
	store *Store
}

// Create выполняет вставку клиента, списание остатков, вставку заказа с позициями
// и события outbox в одной транзакции.
func (r *orderRepository) Create(ctx context.Context, input domain.CreateOrderInput) (domain.OrderView, error) {
	txCtx, cancel := withOpTimeout(ctx)
	defer cancel()

	now := time.Now().UTC()
	orderID := uuid.NewString()

	err := r.store.WithTx(txCtx, func(tx *sql.Tx) error {
		customer, err := insertCustomer(txCtx, tx, input.Customer, now)
		if err != nil {
			return err
		}

		if err := decrementStock(txCtx, tx, input.StockDemand(), now); err != nil {
			return err
		}

		payment, err := marshalPayment(input.Payment)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(txCtx, `
			INSERT INTO orders (id, customer_id, order_date, status, total_amount, payment_info)
			VALUES ($1,$2,$3,$4,$5,$6)
		`, orderID, customer.ID, now, string(input.InitialStatus()), input.TotalAmount, payment); err != nil {
			return fmt.Errorf("insert order: %w", err)
		}

		for i, item := range input.Items {
			if _, err := tx.ExecContext(txCtx, `
				INSERT INTO order_items (id, order_id, position, product_id, quantity, price_at_purchase)
				VALUES ($1,$2,$3,$4,$5,$6)
			`, uuid.NewString(), orderID, i, item.ProductID, item.Quantity, item.PriceAtPurchase); err != nil {
				return fmt.Errorf("insert order item: %w", err)
			}
		}

		msg, err := domain.NewOrderCreatedMessage(uuid.NewString(), orderID, customer.ID, input, now)
		if err != nil {
			return err
		}
		return insertOutboxMessage(txCtx, tx, msg, now)
	})
	if err != nil {
		return domain.OrderView{}, err
	}

	return r.Get(ctx, orderID)
}

// decrementStock списывает остатки условно (stock >= q). Товары обходятся в
// порядке id, чтобы параллельные заказы брали блокировки строк одинаково.
func decrementStock(ctx context.Context, tx *sql.Tx, demand map[string]int, now time.Time) error {
	ids := make([]string, 0, len(demand))
	for id := range demand {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		qty := demand[id]
		res, err := tx.ExecContext(ctx, `
			UPDATE products
			SET stock = stock - $2, updated_at = $3
			WHERE id = $1 AND stock >= $2
		`, id, qty, now)
		if err != nil {
			if isInvalidText(err) {
				return fmt.Errorf("decrement stock for %s: %w", id, domain.ErrProductNotFound)
			}
			return fmt.Errorf("decrement stock: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("rows affected: %w", err)
		}
		if affected == 1 {
			continue
		}

		var (
			name      string
			available int
		)
		err = tx.QueryRowContext(ctx, `SELECT name, stock FROM products WHERE id = $1`, id).Scan(&name, &available)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("decrement stock for %s: %w", id, domain.ErrProductNotFound)
		}
		if err != nil {
			return fmt.Errorf("check stock: %w", err)
		}
		return &domain.StockError{ProductID: id, ProductName: name, Available: available, Requested: qty}
	}
	return nil
}

func (r *orderRepository) Get(ctx context.Context, id string) (domain.OrderView, error) {
	if _, err := uuid.Parse(id); err != nil {
		return domain.OrderView{}, domain.ErrOrderNotFound
	}
	ctx, cancel := withOpTimeout(ctx)
	defer cancel()

	view, err := scanOrderHeader(r.store.db.QueryRowContext(ctx, `
		SELECT o.id, o.customer_id, o.order_date, o.status, o.total_amount, o.payment_info,
		       COALESCE(c.name, ''), COALESCE(c.email, ''), COALESCE(c.phone, ''), COALESCE(c.address, '')
		FROM orders o
		LEFT JOIN customers c ON c.id = o.customer_id
		WHERE o.id = $1
	`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.OrderView{}, domain.ErrOrderNotFound
	}
	if err != nil {
		return domain.OrderView{}, err
	}

	items, err := r.loadItems(ctx, view.ID)
	if err != nil {
		return domain.OrderView{}, err
	}
	view.Items = items
	view.Summarize()

	return view, nil
}

// List возвращает все заказы одним запросом с агрегатами по позициям.
func (r *orderRepository) List(ctx context.Context) ([]domain.OrderView, error) {
	ctx, cancel := withOpTimeout(ctx)
	defer cancel()

	rows, err := r.store.db.QueryContext(ctx, `
		SELECT o.id, o.customer_id, o.order_date, o.status, o.total_amount, o.payment_info,
		       COALESCE(c.name, ''), COALESCE(c.email, ''), COALESCE(c.phone, ''), COALESCE(c.address, ''),
		       COUNT(oi.id), COALESCE(SUM(oi.quantity), 0)
		FROM orders o
		LEFT JOIN customers c ON c.id = o.customer_id
		LEFT JOIN order_items oi ON oi.order_id = o.id
		GROUP BY o.id, c.id
		ORDER BY o.order_date DESC, o.id DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	orders := make([]domain.OrderView, 0)
	for rows.Next() {
		var (
			view    domain.OrderView
			status  string
			payment []byte
		)
		if err := rows.Scan(
			&view.ID, &view.CustomerID, &view.OrderDate, &status, &view.TotalAmount, &payment,
			&view.CustomerName, &view.Email, &view.Phone, &view.Address,
			&view.ItemCount, &view.TotalItems,
		); err != nil {
			return nil, fmt.Errorf("scan order row: %w", err)
		}
		if err := fillOrderHeader(&view, status, payment); err != nil {
			return nil, err
		}
		orders = append(orders, view)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order rows: %w", err)
	}

	return orders, nil
}

// loadItems читает позиции через LEFT JOIN: удалённый товар даёт пустое имя.
func (r *orderRepository) loadItems(ctx context.Context, orderID string) ([]domain.OrderItemView, error) {
	rows, err := r.store.db.QueryContext(ctx, `
		SELECT oi.id, oi.product_id, oi.quantity, oi.price_at_purchase,
		       COALESCE(p.name, ''), COALESCE(p.image_path, '')
		FROM order_items oi
		LEFT JOIN products p ON p.id = oi.product_id
		WHERE oi.order_id = $1
		ORDER BY oi.position ASC
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("load order items: %w", err)
	}
	defer rows.Close()

	items := make([]domain.OrderItemView, 0)
	for rows.Next() {
		item := domain.OrderItemView{OrderID: orderID}
		if err := rows.Scan(&item.ID, &item.ProductID, &item.Quantity, &item.PriceAtPurchase,
			&item.ProductName, &item.ImagePath); err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order items: %w", err)
	}

	return items, nil
}

func scanOrderHeader(row scanner) (domain.OrderView, error) {
	var (
		view    domain.OrderView
		status  string
		payment []byte
	)
	err := row.Scan(
		&view.ID, &view.CustomerID, &view.OrderDate, &status, &view.TotalAmount, &payment,
		&view.CustomerName, &view.Email, &view.Phone, &view.Address,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.OrderView{}, err
	}
	if err != nil {
		return domain.OrderView{}, fmt.Errorf("select order: %w", err)
	}
	if err := fillOrderHeader(&view, status, payment); err != nil {
		return domain.OrderView{}, err
	}
	return view, nil
}

func fillOrderHeader(view *domain.OrderView, status string, payment []byte) error {
	view.Status = domain.OrderStatus(status)
	view.OrderDate = view.OrderDate.UTC()
	if len(payment) == 0 {
		return nil
	}
	var record domain.PaymentRecord
	if err := json.Unmarshal(payment, &record); err != nil {
		return fmt.Errorf("decode payment_info of order %s: %w", view.ID, err)
	}
	view.Payment = &record
	return nil
}

// marshalPayment возвращает nil для отсутствующего платежа, чтобы в колонку попал NULL.
func marshalPayment(payment *domain.PaymentRecord) (any, error) {
	if payment == nil {
		return nil, nil
	}
	raw, err := json.Marshal(payment)
	if err != nil {
		return nil, fmt.Errorf("encode payment_info: %w", err)
	}
	return string(raw), nil
}

var _ domain.OrderRepository = (*orderRepository)(nil)

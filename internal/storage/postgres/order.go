package postgres

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lujangrego99/katsuda-store-sub000/internal/domain/order"
)

const (
	orderColumns = `id, number, status, payment_method, payment_status, shipping_method,
		subtotal, shipping_cost, discount, total, email, first_name, last_name, phone, notes,
		shipping_address, created_at, updated_at, session_id`

	insertOrderSQL = `INSERT INTO orders (` + orderColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)`

	insertOrderItemSQL = `INSERT INTO order_items
		(order_id, position, product_id, sku, name, quantity, unit_price, line_total)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	getOrderByNumberSQL = `SELECT ` + orderColumns + ` FROM orders WHERE number = $1`

	listOrderItemsSQL = `SELECT product_id, sku, name, quantity, unit_price, line_total
		FROM order_items WHERE order_id = $1 ORDER BY position`

	updateOrderStatusSQL = `UPDATE orders SET status = $3, updated_at = $4
		WHERE id = $1 AND status = $2`

	orderExistsSQL = `SELECT EXISTS (SELECT 1 FROM orders WHERE id = $1)`

	latestOrderNumberSQL = `SELECT number FROM orders WHERE number LIKE $1 ESCAPE '\'
		ORDER BY length(number) DESC, number DESC LIMIT 1`

	// The upsert takes a row lock held until commit, so concurrent
	// checkouts of the same day queue here and get distinct values.
	nextSequenceSQL = `INSERT INTO order_sequences (day_prefix, last_value) VALUES ($1, $2)
		ON CONFLICT (day_prefix) DO UPDATE
			SET last_value = GREATEST(order_sequences.last_value + 1, EXCLUDED.last_value)
		RETURNING last_value`
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL.
type OrderRepository struct {
	pool *pgxpool.Pool // nil inside a transaction
	q    querier
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool, q: pool}
}

// Create inserts the order and its items.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	_, err := withTx(ctx, r.pool, r.q, func(q querier) (struct{}, error) {
		_, err := q.Exec(ctx, insertOrderSQL,
			o.ID, o.Number, o.Status, o.PaymentMethod, o.PaymentStatus, o.ShippingMethod,
			o.Subtotal, o.ShippingCost, o.Discount, o.Total,
			o.Email, o.FirstName, o.LastName, o.Phone, o.Notes,
			o.ShippingAddress, o.CreatedAt, o.UpdatedAt, o.SessionID,
		)
		if err != nil {
			if pgCode(err) == codeUniqueViolation {
				return struct{}{}, errors.Wrapf(order.ErrConflict, "order number %s taken", o.Number)
			}
			return struct{}{}, errors.Wrap(err, "insert order")
		}

		for i, it := range o.Items {
			_, err := q.Exec(ctx, insertOrderItemSQL,
				o.ID, i+1, it.ProductID, it.SKU, it.Name, it.Quantity, it.UnitPrice, it.LineTotal,
			)
			if err != nil {
				return struct{}{}, errors.Wrapf(err, "insert order item %q", it.ProductID)
			}
		}
		return struct{}{}, nil
	})
	return err
}

// GetByNumber returns the order with its items.
func (r *OrderRepository) GetByNumber(ctx context.Context, number string) (*order.Order, error) {
	rows, err := r.q.Query(ctx, getOrderByNumberSQL, number)
	if err != nil {
		return nil, errors.Wrapf(err, "get order %q", number)
	}
	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, errors.Wrapf(err, "get order %q", number)
	}

	rows, err = r.q.Query(ctx, listOrderItemsSQL, o.ID)
	if err != nil {
		return nil, errors.Wrapf(err, "list items of order %q", number)
	}
	o.Items, err = pgx.CollectRows(rows, scanOrderItem)
	if err != nil {
		return nil, errors.Wrapf(err, "scan items of order %q", number)
	}
	return &o, nil
}

// UpdateStatus moves the order from one status to another. It fails with
// order.ErrConflict when the stored status is no longer from.
func (r *OrderRepository) UpdateStatus(ctx context.Context, id string, from, to order.Status, at time.Time) error {
	tag, err := r.q.Exec(ctx, updateOrderStatusSQL, id, from, to, at)
	if err != nil {
		return errors.Wrap(err, "update order status")
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	var exists bool
	if err := r.q.QueryRow(ctx, orderExistsSQL, id).Scan(&exists); err != nil {
		return errors.Wrap(err, "check order exists")
	}
	if !exists {
		return order.ErrNotFound
	}
	return order.ErrConflict
}

// LatestNumber returns the greatest order number starting with prefix.
func (r *OrderRepository) LatestNumber(ctx context.Context, prefix string) (string, error) {
	var number string
	err := r.q.QueryRow(ctx, latestOrderNumberSQL, escapeLike(prefix)+"%").Scan(&number)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil
		}
		return "", errors.Wrap(err, "latest order number")
	}
	return number, nil
}

// NextSequence reserves the next sequence of the day. A day without a
// counter row starts after the greatest existing order number.
func (r *OrderRepository) NextSequence(ctx context.Context, dayPrefix string) (int, error) {
	latest, err := r.LatestNumber(ctx, dayPrefix+"-")
	if err != nil {
		return 0, err
	}
	seed, err := order.SequenceAfter(latest)
	if err != nil {
		return 0, err
	}

	var next int
	if err := r.q.QueryRow(ctx, nextSequenceSQL, dayPrefix, seed).Scan(&next); err != nil {
		return 0, errors.Wrap(err, "reserve sequence")
	}
	return next, nil
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var o order.Order
	err := row.Scan(
		&o.ID, &o.Number, &o.Status, &o.PaymentMethod, &o.PaymentStatus, &o.ShippingMethod,
		&o.Subtotal, &o.ShippingCost, &o.Discount, &o.Total,
		&o.Email, &o.FirstName, &o.LastName, &o.Phone, &o.Notes,
		&o.ShippingAddress, &o.CreatedAt, &o.UpdatedAt, &o.SessionID,
	)
	return o, err
}

func scanOrderItem(row pgx.CollectableRow) (order.Item, error) {
	var it order.Item
	err := row.Scan(&it.ProductID, &it.SKU, &it.Name, &it.Quantity, &it.UnitPrice, &it.LineTotal)
	return it, err
}

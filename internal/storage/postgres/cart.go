package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lujangrego99/katsuda-store-sub000/internal/domain/cart"
)

const (
	findCartSQL = `SELECT id FROM carts WHERE session_id = $1`

	// Checkout locks the cart so the same cart cannot be ordered twice.
	findCartForUpdateSQL = findCartSQL + ` FOR UPDATE`

	listCartItemsSQL = `SELECT product_id, quantity FROM cart_items
		WHERE cart_id = $1 ORDER BY added_at, product_id`

	createCartSQL = `INSERT INTO carts (id, session_id) VALUES ($1, $2)
		ON CONFLICT (session_id) DO UPDATE SET updated_at = now()
		RETURNING id`

	addCartItemSQL = `INSERT INTO cart_items (cart_id, product_id, quantity) VALUES ($1, $2, $3)
		ON CONFLICT (cart_id, product_id) DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity`

	setCartItemQuantitySQL = `UPDATE cart_items SET quantity = $3 WHERE cart_id = $1 AND product_id = $2`

	removeCartItemSQL = `DELETE FROM cart_items WHERE cart_id = $1 AND product_id = $2`

	deleteCartItemsSQL = `DELETE FROM cart_items WHERE cart_id = $1`
)

var _ cart.Repository = (*CartRepository)(nil)

// CartRepository implements cart.Repository backed by PostgreSQL.
type CartRepository struct {
	q    querier
	inTx bool
}

// NewCartRepository returns a CartRepository that uses the given pool.
func NewCartRepository(pool *pgxpool.Pool) *CartRepository {
	return &CartRepository{q: pool}
}

// FindBySession returns the session cart with its items.
func (r *CartRepository) FindBySession(ctx context.Context, sessionID string) (*cart.Cart, error) {
	query := findCartSQL
	if r.inTx {
		query = findCartForUpdateSQL
	}

	c := &cart.Cart{SessionID: sessionID}
	if err := r.q.QueryRow(ctx, query, sessionID).Scan(&c.ID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, cart.ErrNotFound
		}
		return nil, errors.Wrap(err, "find cart")
	}
	items, err := r.items(ctx, c.ID)
	if err != nil {
		return nil, err
	}
	c.Items = items
	return c, nil
}

// Create returns the session cart, creating it when missing.
func (r *CartRepository) Create(ctx context.Context, sessionID string) (*cart.Cart, error) {
	c := &cart.Cart{SessionID: sessionID}
	if err := r.q.QueryRow(ctx, createCartSQL, uuid.NewString(), sessionID).Scan(&c.ID); err != nil {
		return nil, errors.Wrap(err, "create cart")
	}
	items, err := r.items(ctx, c.ID)
	if err != nil {
		return nil, err
	}
	c.Items = items
	return c, nil
}

// AddItem adds qty of the product, summing with an existing line.
func (r *CartRepository) AddItem(ctx context.Context, cartID, productID string, qty int) error {
	if _, err := r.q.Exec(ctx, addCartItemSQL, cartID, productID, qty); err != nil {
		switch pgCode(err) {
		case codeForeignKeyViolation:
			return cart.ErrNotFound
		case codeNumericOutOfRange:
			return cart.ErrInvalidQuantity
		}
		return errors.Wrap(err, "add cart item")
	}
	return nil
}

// SetQuantity replaces the quantity of an existing line.
func (r *CartRepository) SetQuantity(ctx context.Context, cartID, productID string, qty int) (bool, error) {
	tag, err := r.q.Exec(ctx, setCartItemQuantitySQL, cartID, productID, qty)
	if err != nil {
		if pgCode(err) == codeNumericOutOfRange {
			return false, cart.ErrInvalidQuantity
		}
		return false, errors.Wrap(err, "set cart item quantity")
	}
	return tag.RowsAffected() > 0, nil
}

// RemoveItem deletes the product line.
func (r *CartRepository) RemoveItem(ctx context.Context, cartID, productID string) (bool, error) {
	tag, err := r.q.Exec(ctx, removeCartItemSQL, cartID, productID)
	if err != nil {
		return false, errors.Wrap(err, "remove cart item")
	}
	return tag.RowsAffected() > 0, nil
}

// DeleteItems empties the cart.
func (r *CartRepository) DeleteItems(ctx context.Context, cartID string) error {
	if _, err := r.q.Exec(ctx, deleteCartItemsSQL, cartID); err != nil {
		return errors.Wrap(err, "delete cart items")
	}
	return nil
}

func (r *CartRepository) items(ctx context.Context, cartID string) ([]cart.Item, error) {
	rows, err := r.q.Query(ctx, listCartItemsSQL, cartID)
	if err != nil {
		return nil, errors.Wrap(err, "list cart items")
	}
	items, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (cart.Item, error) {
		var it cart.Item
		err := row.Scan(&it.ProductID, &it.Quantity)
		return it, err
	})
	if err != nil {
		return nil, errors.Wrap(err, "scan cart items")
	}
	return items, nil
}

package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lujangrego99/katsuda-store-sub000/internal/domain/product"
)

const (
	productColumns = `id, sku, name, price, compare_at_price, transfer_price, stock, active, free_shipping`

	listProductsSQL = `SELECT ` + productColumns + ` FROM products ORDER BY id`

	getProductByIDSQL = `SELECT ` + productColumns + ` FROM products WHERE id = $1`

	getProductsByIDsSQL = `SELECT ` + productColumns + ` FROM products WHERE id = ANY($1)`

	decrementStockSQL = `UPDATE products SET stock = stock - $2, updated_at = now()
		WHERE id = $1 AND stock >= $2`

	upsertProductSQL = `INSERT INTO products (` + productColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			sku = EXCLUDED.sku,
			name = EXCLUDED.name,
			price = EXCLUDED.price,
			compare_at_price = EXCLUDED.compare_at_price,
			transfer_price = EXCLUDED.transfer_price,
			stock = EXCLUDED.stock,
			active = EXCLUDED.active,
			free_shipping = EXCLUDED.free_shipping,
			updated_at = now()`
)

var _ product.Repository = (*ProductRepository)(nil)

// ProductRepository implements product.Repository backed by PostgreSQL.
type ProductRepository struct {
	q querier
}

// NewProductRepository returns a ProductRepository that uses the given pool.
func NewProductRepository(pool *pgxpool.Pool) *ProductRepository {
	return &ProductRepository{q: pool}
}

// List returns the whole catalog ordered by ID.
func (r *ProductRepository) List(ctx context.Context) ([]product.Product, error) {
	rows, err := r.q.Query(ctx, listProductsSQL)
	if err != nil {
		return nil, errors.Wrap(err, "list products")
	}
	return pgx.CollectRows(rows, scanProduct)
}

// GetByID returns a single product by its identifier.
func (r *ProductRepository) GetByID(ctx context.Context, id string) (*product.Product, error) {
	rows, err := r.q.Query(ctx, getProductByIDSQL, id)
	if err != nil {
		return nil, errors.Wrapf(err, "get product %q", id)
	}

	p, err := pgx.CollectExactlyOneRow(rows, scanProduct)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, product.ErrNotFound
		}
		return nil, errors.Wrapf(err, "get product %q", id)
	}
	return &p, nil
}

// GetByIDs returns products matching any of the given IDs.
func (r *ProductRepository) GetByIDs(ctx context.Context, ids []string) ([]product.Product, error) {
	rows, err := r.q.Query(ctx, getProductsByIDsSQL, ids)
	if err != nil {
		return nil, errors.Wrap(err, "get products by ids")
	}
	return pgx.CollectRows(rows, scanProduct)
}

// DecrementStock subtracts qty in a single conditional update, so stock
// never goes below zero whatever other transactions do.
func (r *ProductRepository) DecrementStock(ctx context.Context, id string, qty int) (bool, error) {
	tag, err := r.q.Exec(ctx, decrementStockSQL, id, qty)
	if err != nil {
		return false, errors.Wrapf(err, "decrement stock of %q", id)
	}
	return tag.RowsAffected() == 1, nil
}

// Upsert inserts or replaces a product. Used by the seeder.
func (r *ProductRepository) Upsert(ctx context.Context, p product.Product) error {
	_, err := r.q.Exec(ctx, upsertProductSQL,
		p.ID, p.SKU, p.Name, p.Price, p.CompareAtPrice, p.TransferPrice, p.Stock, p.Active, p.FreeShipping,
	)
	if err != nil {
		return errors.Wrapf(err, "upsert product %q", p.ID)
	}
	return nil
}

func scanProduct(row pgx.CollectableRow) (product.Product, error) {
	var p product.Product
	err := row.Scan(
		&p.ID, &p.SKU, &p.Name, &p.Price, &p.CompareAtPrice, &p.TransferPrice,
		&p.Stock, &p.Active, &p.FreeShipping,
	)
	return p, err
}

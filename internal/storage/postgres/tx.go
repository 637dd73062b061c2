package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lujangrego99/katsuda-store-sub000/internal/domain/cart"
	"github.com/lujangrego99/katsuda-store-sub000/internal/domain/checkout"
	"github.com/lujangrego99/katsuda-store-sub000/internal/domain/order"
	"github.com/lujangrego99/katsuda-store-sub000/internal/domain/product"
)

var _ checkout.Transactor = (*Transactor)(nil)

// Transactor runs checkout placements in a database transaction.
type Transactor struct {
	pool *pgxpool.Pool
}

// NewTransactor returns a Transactor over pool.
func NewTransactor(pool *pgxpool.Pool) *Transactor {
	return &Transactor{pool: pool}
}

// WithinTx implements checkout.Transactor.
func (t *Transactor) WithinTx(ctx context.Context, fn func(ctx context.Context, tx checkout.Tx) error) error {
	_, err := withTx(ctx, t.pool, nil, func(q querier) (struct{}, error) {
		return struct{}{}, fn(ctx, txStores{q: q})
	})
	return err
}

type txStores struct {
	q querier
}

func (t txStores) Carts() cart.Repository       { return &CartRepository{q: t.q, inTx: true} }
func (t txStores) Products() product.Repository { return &ProductRepository{q: t.q} }
func (t txStores) Orders() order.Repository     { return &OrderRepository{q: t.q} }

// Package memory implements every store in process memory.
//
// Transactions are serialized: WithinTx holds the store lock for the whole
// callback, works on a copy of the data and publishes the copy on success.
// Repositories obtained from the Store itself must not be used inside a
// WithinTx callback; use the ones handed to the callback instead.
package memory

import (
	"context"
	"maps"
	"sync"

	"github.com/lujangrego99/katsuda-store-sub000/internal/domain/cart"
	"github.com/lujangrego99/katsuda-store-sub000/internal/domain/checkout"
	"github.com/lujangrego99/katsuda-store-sub000/internal/domain/order"
	"github.com/lujangrego99/katsuda-store-sub000/internal/domain/product"
)

var _ checkout.Transactor = (*Store)(nil)

type state struct {
	products  map[string]product.Product
	carts     map[string]*cart.Cart // by cart ID
	sessions  map[string]string     // session ID -> cart ID
	orders    map[string]*order.Order
	numbers   map[string]string // order number -> order ID
	sequences map[string]int    // day prefix -> last reserved sequence
}

func newState() *state {
	return &state{
		products:  make(map[string]product.Product),
		carts:     make(map[string]*cart.Cart),
		sessions:  make(map[string]string),
		orders:    make(map[string]*order.Order),
		numbers:   make(map[string]string),
		sequences: make(map[string]int),
	}
}

func (s *state) clone() *state {
	c := &state{
		products:  maps.Clone(s.products),
		carts:     make(map[string]*cart.Cart, len(s.carts)),
		sessions:  maps.Clone(s.sessions),
		orders:    make(map[string]*order.Order, len(s.orders)),
		numbers:   maps.Clone(s.numbers),
		sequences: maps.Clone(s.sequences),
	}
	for id, ct := range s.carts {
		c.carts[id] = copyCart(ct)
	}
	for id, o := range s.orders {
		c.orders[id] = copyOrder(o)
	}
	return c
}

// accessor runs fn against the current state.
type accessor interface {
	with(fn func(st *state) error) error
}

// Store is an in-memory database.
type Store struct {
	mu sync.Mutex
	st *state
}

// New returns an empty Store.
func New() *Store {
	return &Store{st: newState()}
}

func (s *Store) with(fn func(st *state) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.st)
}

type txAccessor struct {
	st *state
}

func (a txAccessor) with(fn func(st *state) error) error {
	return fn(a.st)
}

// Carts returns the cart repository.
func (s *Store) Carts() *CartRepository { return &CartRepository{db: s} }

// Products returns the product repository.
func (s *Store) Products() *ProductRepository { return &ProductRepository{db: s} }

// Orders returns the order repository.
func (s *Store) Orders() *OrderRepository { return &OrderRepository{db: s} }

// WithinTx implements checkout.Transactor.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx checkout.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	work := s.st.clone()
	if err := fn(ctx, txStores{acc: txAccessor{st: work}}); err != nil {
		return err
	}
	s.st = work
	return nil
}

type txStores struct {
	acc accessor
}

func (t txStores) Carts() cart.Repository       { return &CartRepository{db: t.acc} }
func (t txStores) Products() product.Repository { return &ProductRepository{db: t.acc} }
func (t txStores) Orders() order.Repository     { return &OrderRepository{db: t.acc} }

// PutProduct inserts or replaces a product.
func (s *Store) PutProduct(p product.Product) {
	_ = s.with(func(st *state) error {
		st.products[p.ID] = p
		return nil
	})
}

// OrderCount returns the number of committed orders.
func (s *Store) OrderCount() int {
	n := 0
	_ = s.with(func(st *state) error {
		n = len(st.orders)
		return nil
	})
	return n
}

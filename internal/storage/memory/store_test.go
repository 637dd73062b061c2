package memory_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/lujangrego99/katsuda-store-sub000/internal/domain/auth"
	"github.com/lujangrego99/katsuda-store-sub000/internal/domain/cart"
	"github.com/lujangrego99/katsuda-store-sub000/internal/domain/checkout"
	"github.com/lujangrego99/katsuda-store-sub000/internal/domain/order"
	"github.com/lujangrego99/katsuda-store-sub000/internal/domain/product"
	"github.com/lujangrego99/katsuda-store-sub000/internal/domain/shipping"
	"github.com/lujangrego99/katsuda-store-sub000/internal/storage/memory"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newProduct(id string, stock int) product.Product {
	return product.Product{ID: id, SKU: "SKU-" + id, Name: "Product " + id, Price: decimal.NewFromInt(1000), Stock: stock, Active: true}
}

func TestProductRepository(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	s.PutProduct(newProduct("b", 3))
	s.PutProduct(newProduct("a", 1))

	list, err := s.Products().List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "a", list[0].ID)

	_, err = s.Products().GetByID(ctx, "missing")
	assert.ErrorIs(t, err, product.ErrNotFound)

	got, err := s.Products().GetByIDs(ctx, []string{"a", "missing", "b"})
	require.NoError(t, err)
	assert.Len(t, got, 2)

	ok, err := s.Products().DecrementStock(ctx, "b", 3)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.Products().DecrementStock(ctx, "b", 1)
	require.NoError(t, err)
	assert.False(t, ok, "stock must not go negative")

	p, err := s.Products().GetByID(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, 0, p.Stock)
}

func TestCartRepository(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	carts := s.Carts()

	_, err := carts.FindBySession(ctx, "sess")
	require.ErrorIs(t, err, cart.ErrNotFound)

	c, err := carts.Create(ctx, "sess")
	require.NoError(t, err)
	again, err := carts.Create(ctx, "sess")
	require.NoError(t, err)
	assert.Equal(t, c.ID, again.ID)

	require.NoError(t, carts.AddItem(ctx, c.ID, "p1", 2))
	require.NoError(t, carts.AddItem(ctx, c.ID, "p1", 1))
	require.NoError(t, carts.AddItem(ctx, c.ID, "p2", 1))

	got, err := carts.FindBySession(ctx, "sess")
	require.NoError(t, err)
	assert.Equal(t, []cart.Item{{ProductID: "p1", Quantity: 3}, {ProductID: "p2", Quantity: 1}}, got.Items)

	// Returned carts are copies.
	got.Items[0].Quantity = 100
	fresh, err := carts.FindBySession(ctx, "sess")
	require.NoError(t, err)
	assert.Equal(t, 3, fresh.Items[0].Quantity)

	ok, err := carts.SetQuantity(ctx, c.ID, "p2", 5)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = carts.SetQuantity(ctx, c.ID, "p3", 5)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = carts.RemoveItem(ctx, c.ID, "p1")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = carts.RemoveItem(ctx, c.ID, "p1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, carts.DeleteItems(ctx, c.ID))
	fresh, err = carts.FindBySession(ctx, "sess")
	require.NoError(t, err)
	assert.True(t, fresh.Empty())
}

func TestOrderRepository(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	orders := s.Orders()

	o := &order.Order{
		ID:     "o1",
		Number: "KAT-260115-0001",
		Status: order.StatusPending,
		Items:  []order.Item{{ProductID: "p1", Quantity: 1}},
	}
	require.NoError(t, orders.Create(ctx, o))
	err := orders.Create(ctx, &order.Order{ID: "o2", Number: o.Number})
	assert.ErrorIs(t, err, order.ErrConflict)

	got, err := orders.GetByNumber(ctx, o.Number)
	require.NoError(t, err)
	assert.Equal(t, o.ID, got.ID)

	_, err = orders.GetByNumber(ctx, "KAT-260115-0002")
	assert.ErrorIs(t, err, order.ErrNotFound)

	now := time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)
	require.NoError(t, orders.UpdateStatus(ctx, "o1", order.StatusPending, order.StatusConfirmed, now))
	err = orders.UpdateStatus(ctx, "o1", order.StatusPending, order.StatusCancelled, now)
	assert.ErrorIs(t, err, order.ErrConflict)
	err = orders.UpdateStatus(ctx, "missing", order.StatusPending, order.StatusConfirmed, now)
	assert.ErrorIs(t, err, order.ErrNotFound)

	got, err = orders.GetByNumber(ctx, o.Number)
	require.NoError(t, err)
	assert.Equal(t, order.StatusConfirmed, got.Status)
	assert.Equal(t, now, got.UpdatedAt)

	latest, err := orders.LatestNumber(ctx, "KAT-260115-")
	require.NoError(t, err)
	assert.Equal(t, o.Number, latest)
}

func TestOrderRepository_NextSequence(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	orders := s.Orders()

	n, err := orders.NextSequence(ctx, "KAT-260115")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	// Numbers inserted without reserving a sequence are skipped over.
	require.NoError(t, orders.Create(ctx, &order.Order{ID: "o1", Number: "KAT-260115-0007"}))
	n, err = orders.NextSequence(ctx, "KAT-260115")
	require.NoError(t, err)
	assert.Equal(t, 8, n)

	n, err = orders.NextSequence(ctx, "KAT-260116")
	require.NoError(t, err)
	assert.Equal(t, 1, n, "sequences restart every day")
}

func TestStore_WithinTxRollback(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	s.PutProduct(newProduct("p1", 5))

	boom := errors.New("boom")
	err := s.WithinTx(ctx, func(ctx context.Context, tx checkout.Tx) error {
		ok, err := tx.Products().DecrementStock(ctx, "p1", 2)
		require.NoError(t, err)
		require.True(t, ok)
		require.NoError(t, tx.Orders().Create(ctx, &order.Order{ID: "o1", Number: "KAT-260115-0001"}))
		return boom
	})
	require.ErrorIs(t, err, boom)

	p, err := s.Products().GetByID(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 5, p.Stock)
	assert.Zero(t, s.OrderCount())
}

func TestStore_WithinTxCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := memory.New().WithinTx(ctx, func(context.Context, checkout.Tx) error {
		called = true
		return nil
	})
	require.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}

func TestStore_ConcurrentSequences(t *testing.T) {
	ctx := context.Background()
	s := memory.New()

	const workers = 20
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		seen = make(map[int]bool)
	)
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.WithinTx(ctx, func(ctx context.Context, tx checkout.Tx) error {
				n, err := tx.Orders().NextSequence(ctx, "KAT-260115")
				if err != nil {
					return err
				}
				mu.Lock()
				seen[n] = true
				mu.Unlock()
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Len(t, seen, workers)
}

func TestZoneRepository(t *testing.T) {
	ctx := context.Background()
	price := decimal.NewFromInt(3500)
	zones := memory.NewZoneRepository(
		shipping.Zone{ID: "z0", Name: "Old", Province: "Mendoza", Price: price, Active: false},
		shipping.Zone{ID: "z1", Name: "Gran Mendoza", Province: "Mendoza", Price: price, Active: true},
	)
	zones.Put(shipping.Zone{ID: "z2", Name: "Cuyo", Province: "San Juan, San Luis", Price: price, Active: true})

	z, err := zones.FindActiveByProvince(ctx, "mendoza")
	require.NoError(t, err)
	assert.Equal(t, "z1", z.ID)

	z, err = zones.FindActiveByProvince(ctx, "San Luis")
	require.NoError(t, err)
	assert.Equal(t, "z2", z.ID)

	z, err = zones.FindActiveByName(ctx, "gran mendoza")
	require.NoError(t, err)
	assert.Equal(t, "z1", z.ID)

	_, err = zones.FindActiveByName(ctx, "Old")
	assert.ErrorIs(t, err, shipping.ErrZoneNotFound)

	list, err := zones.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestAPIKeyRepository(t *testing.T) {
	ctx := context.Background()
	keys := memory.NewAPIKeyRepository()
	hash := auth.HashKey([]byte("pepper"), "secret")
	keys.Put(auth.APIKeyInfo{ID: "k1", KeyHash: hash, Name: "staff", Scopes: []string{auth.ScopeOrdersWrite}})

	info, err := keys.FindByHash(ctx, hash)
	require.NoError(t, err)
	assert.True(t, info.HasScope(auth.ScopeOrdersWrite))

	_, err = keys.FindByHash(ctx, auth.HashKey([]byte("pepper"), "other"))
	assert.ErrorIs(t, err, auth.ErrKeyNotFound)
}

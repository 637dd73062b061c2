//go:build integration

package postgres_test

import (
	"context"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/lujangrego99/katsuda-store-sub000/internal/domain/auth"
	"github.com/lujangrego99/katsuda-store-sub000/internal/domain/cart"
	"github.com/lujangrego99/katsuda-store-sub000/internal/domain/checkout"
	"github.com/lujangrego99/katsuda-store-sub000/internal/domain/order"
	"github.com/lujangrego99/katsuda-store-sub000/internal/domain/product"
	"github.com/lujangrego99/katsuda-store-sub000/internal/domain/shipping"
	"github.com/lujangrego99/katsuda-store-sub000/internal/storage/postgres"
)

var cmpOpts = cmp.Options{
	cmp.Comparer(func(a, b decimal.Decimal) bool { return a.Equal(b) }),
	cmp.Comparer(func(a, b time.Time) bool { return a.Equal(b) }),
}

type storeSuite struct {
	suite.Suite

	container *tcpostgres.PostgresContainer
	pool      *pgxpool.Pool

	products *postgres.ProductRepository
	carts    *postgres.CartRepository
	zones    *postgres.ZoneRepository
	orders   *postgres.OrderRepository
	apikeys  *postgres.APIKeyRepository
	tx       *postgres.Transactor
}

func TestStoreSuite(t *testing.T) {
	suite.Run(t, new(storeSuite))
}

func (s *storeSuite) SetupSuite() {
	ctx := s.T().Context()

	container, err := tcpostgres.Run(ctx, "postgres:17.6-alpine3.22",
		tcpostgres.BasicWaitStrategies(),
	)
	s.Require().NoError(err)
	s.container = container

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	s.Require().NoError(err)

	s.pool, err = postgres.NewPool(ctx, connStr)
	s.Require().NoError(err)
	s.Require().NoError(postgres.RunMigrations(ctx, s.pool))
	// Migrations are idempotent.
	s.Require().NoError(postgres.RunMigrations(ctx, s.pool))

	s.products = postgres.NewProductRepository(s.pool)
	s.carts = postgres.NewCartRepository(s.pool)
	s.zones = postgres.NewZoneRepository(s.pool)
	s.orders = postgres.NewOrderRepository(s.pool)
	s.apikeys = postgres.NewAPIKeyRepository(s.pool)
	s.tx = postgres.NewTransactor(s.pool)
}

func (s *storeSuite) TearDownSuite() {
	if s.pool != nil {
		s.pool.Close()
	}
	s.NoError(testcontainers.TerminateContainer(s.container))
}

func (s *storeSuite) TearDownTest() {
	_, err := s.pool.Exec(context.Background(),
		`TRUNCATE products, carts, cart_items, shipping_zones, orders, order_items, order_sequences, api_keys CASCADE`)
	s.NoError(err)
}

func randomProduct(stock int) product.Product {
	transfer := decimal.NewFromInt(int64(gofakeit.IntRange(100, 900)) * 10)
	return product.Product{
		ID:            uuid.NewString(),
		SKU:           gofakeit.LetterN(3) + "-" + gofakeit.DigitN(6),
		Name:          gofakeit.ProductName(),
		Price:         transfer.Add(decimal.NewFromInt(1000)),
		TransferPrice: &transfer,
		Stock:         stock,
		Active:        true,
	}
}

func (s *storeSuite) putProduct(p product.Product) {
	s.Require().NoError(s.products.Upsert(s.T().Context(), p))
}

func (s *storeSuite) TestProducts() {
	ctx := s.T().Context()
	p := randomProduct(3)
	s.putProduct(p)

	got, err := s.products.GetByID(ctx, p.ID)
	s.Require().NoError(err)
	s.Empty(cmp.Diff(p, *got, cmpOpts))
	s.Nil(got.CompareAtPrice)

	_, err = s.products.GetByID(ctx, uuid.NewString())
	s.ErrorIs(err, product.ErrNotFound)

	ok, err := s.products.DecrementStock(ctx, p.ID, 2)
	s.Require().NoError(err)
	s.True(ok)
	ok, err = s.products.DecrementStock(ctx, p.ID, 2)
	s.Require().NoError(err)
	s.False(ok)

	got, err = s.products.GetByID(ctx, p.ID)
	s.Require().NoError(err)
	s.Equal(1, got.Stock)
}

func (s *storeSuite) TestCarts() {
	ctx := s.T().Context()
	p1, p2 := randomProduct(10), randomProduct(10)
	s.putProduct(p1)
	s.putProduct(p2)
	session := gofakeit.UUID()

	_, err := s.carts.FindBySession(ctx, session)
	s.Require().ErrorIs(err, cart.ErrNotFound)

	c, err := s.carts.Create(ctx, session)
	s.Require().NoError(err)
	again, err := s.carts.Create(ctx, session)
	s.Require().NoError(err)
	s.Equal(c.ID, again.ID)

	s.Require().NoError(s.carts.AddItem(ctx, c.ID, p1.ID, 1))
	s.Require().NoError(s.carts.AddItem(ctx, c.ID, p2.ID, 2))
	s.Require().NoError(s.carts.AddItem(ctx, c.ID, p1.ID, 2))
	s.ErrorIs(s.carts.AddItem(ctx, uuid.NewString(), p1.ID, 1), cart.ErrNotFound)

	got, err := s.carts.FindBySession(ctx, session)
	s.Require().NoError(err)
	s.Equal([]cart.Item{{ProductID: p1.ID, Quantity: 3}, {ProductID: p2.ID, Quantity: 2}}, got.Items)

	ok, err := s.carts.SetQuantity(ctx, c.ID, p2.ID, 5)
	s.Require().NoError(err)
	s.True(ok)
	ok, err = s.carts.RemoveItem(ctx, c.ID, p1.ID)
	s.Require().NoError(err)
	s.True(ok)
	ok, err = s.carts.RemoveItem(ctx, c.ID, p1.ID)
	s.Require().NoError(err)
	s.False(ok)

	s.Require().NoError(s.carts.DeleteItems(ctx, c.ID))
	got, err = s.carts.FindBySession(ctx, session)
	s.Require().NoError(err)
	s.True(got.Empty())
}

func (s *storeSuite) TestCartQuantityOutOfRange() {
	ctx := s.T().Context()
	p := randomProduct(10)
	s.putProduct(p)
	c, err := s.carts.Create(ctx, gofakeit.UUID())
	s.Require().NoError(err)

	s.Require().NoError(s.carts.AddItem(ctx, c.ID, p.ID, math.MaxInt32))
	s.ErrorIs(s.carts.AddItem(ctx, c.ID, p.ID, 1), cart.ErrInvalidQuantity)

	got, err := s.carts.FindBySession(ctx, c.SessionID)
	s.Require().NoError(err)
	s.Equal([]cart.Item{{ProductID: p.ID, Quantity: math.MaxInt32}}, got.Items)
}

func (s *storeSuite) TestZones() {
	ctx := s.T().Context()
	free := decimal.NewFromInt(150000)
	zones := []shipping.Zone{
		{ID: "gran-mendoza", Name: "Gran Mendoza", Province: "Mendoza", Cities: []string{"Godoy Cruz", "Guaymallén"}, Price: decimal.NewFromInt(3500), FreeShippingMin: &free, Active: true},
		{ID: "cuyo", Name: "Cuyo", Province: "San Juan, San Luis", Price: decimal.NewFromInt(6000), Active: true},
		{ID: "off", Name: "Apagada", Province: "Neuquén", Price: decimal.NewFromInt(1), Active: false},
	}
	for _, z := range zones {
		s.Require().NoError(s.zones.Upsert(ctx, z))
	}

	z, err := s.zones.FindActiveByProvince(ctx, "mendoza")
	s.Require().NoError(err)
	s.Empty(cmp.Diff(zones[0], *z, cmpOpts))

	z, err = s.zones.FindActiveByProvince(ctx, "san luis")
	s.Require().NoError(err)
	s.Equal("cuyo", z.ID)

	_, err = s.zones.FindActiveByProvince(ctx, "%")
	s.ErrorIs(err, shipping.ErrZoneNotFound, "wildcards match literally")

	_, err = s.zones.FindActiveByProvince(ctx, "Neuquén")
	s.ErrorIs(err, shipping.ErrZoneNotFound)

	z, err = s.zones.FindActiveByName(ctx, "GRAN MENDOZA")
	s.Require().NoError(err)
	s.Equal("gran-mendoza", z.ID)

	list, err := s.zones.List(ctx)
	s.Require().NoError(err)
	s.Len(list, 2)
}

func (s *storeSuite) TestOrders() {
	ctx := s.T().Context()
	now := time.Date(2026, 3, 14, 15, 0, 0, 0, time.UTC)
	o := &order.Order{
		ID:             uuid.NewString(),
		Number:         "KAT-260314-0001",
		SessionID:      gofakeit.UUID(),
		Status:         order.StatusPending,
		PaymentMethod:  order.PaymentTransfer,
		PaymentStatus:  order.PaymentPending,
		ShippingMethod: order.ShippingDelivery,
		Subtotal:       decimal.NewFromInt(9100),
		ShippingCost:   decimal.NewFromInt(3500),
		Discount:       decimal.Zero,
		Total:          decimal.NewFromInt(12600),
		Email:          gofakeit.Email(),
		FirstName:      gofakeit.FirstName(),
		LastName:       gofakeit.LastName(),
		Phone:          gofakeit.Phone(),
		ShippingAddress: &order.Address{
			Street:     gofakeit.Street(),
			Number:     "1234",
			City:       "Mendoza",
			Province:   "Mendoza",
			PostalCode: "5500",
		},
		Items: []order.Item{{
			ProductID: uuid.NewString(),
			SKU:       "GRF-001",
			Name:      "Grifo",
			Quantity:  1,
			UnitPrice: decimal.NewFromInt(9100),
			LineTotal: decimal.NewFromInt(9100),
		}},
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.Require().NoError(s.orders.Create(ctx, o))
	s.ErrorIs(s.orders.Create(ctx, &order.Order{ID: uuid.NewString(), Number: o.Number, Status: order.StatusPending, PaymentStatus: order.PaymentPending}), order.ErrConflict)

	got, err := s.orders.GetByNumber(ctx, o.Number)
	s.Require().NoError(err)
	s.Empty(cmp.Diff(o, got, cmpOpts))

	_, err = s.orders.GetByNumber(ctx, "KAT-260314-9999")
	s.ErrorIs(err, order.ErrNotFound)

	later := now.Add(time.Hour)
	s.Require().NoError(s.orders.UpdateStatus(ctx, o.ID, order.StatusPending, order.StatusConfirmed, later))
	s.ErrorIs(s.orders.UpdateStatus(ctx, o.ID, order.StatusPending, order.StatusCancelled, later), order.ErrConflict)
	s.ErrorIs(s.orders.UpdateStatus(ctx, uuid.NewString(), order.StatusPending, order.StatusConfirmed, later), order.ErrNotFound)

	got, err = s.orders.GetByNumber(ctx, o.Number)
	s.Require().NoError(err)
	s.Equal(order.StatusConfirmed, got.Status)
	s.True(got.UpdatedAt.Equal(later))
}

func (s *storeSuite) TestNextSequence() {
	ctx := s.T().Context()

	n, err := s.orders.NextSequence(ctx, "KAT-260314")
	s.Require().NoError(err)
	s.Equal(1, n)
	n, err = s.orders.NextSequence(ctx, "KAT-260314")
	s.Require().NoError(err)
	s.Equal(2, n)

	// A day with orders but no counter continues after the latest number.
	s.Require().NoError(s.orders.Create(ctx, &order.Order{
		ID: uuid.NewString(), Number: "KAT-260315-0041",
		Status: order.StatusPending, PaymentStatus: order.PaymentPending,
	}))
	n, err = s.orders.NextSequence(ctx, "KAT-260315")
	s.Require().NoError(err)
	s.Equal(42, n)
}

func (s *storeSuite) TestAPIKeys() {
	ctx := s.T().Context()
	hash := auth.HashKey([]byte("pepper"), gofakeit.Password(true, true, true, false, false, 32))
	info := auth.APIKeyInfo{ID: uuid.NewString(), KeyHash: hash, Name: "backoffice", Scopes: []string{auth.ScopeOrdersWrite}}
	s.Require().NoError(s.apikeys.Upsert(ctx, info))

	got, err := s.apikeys.FindByHash(ctx, hash)
	s.Require().NoError(err)
	s.Empty(cmp.Diff(info, *got))

	_, err = s.apikeys.FindByHash(ctx, "deadbeef")
	s.ErrorIs(err, auth.ErrKeyNotFound)
}

func (s *storeSuite) newCheckout() *checkout.Service {
	return checkout.NewService(s.tx, shipping.NewResolver(s.zones), order.NewGenerator("KAT"))
}

func (s *storeSuite) fillCart(session, productID string, qty int) {
	ctx := s.T().Context()
	c, err := s.carts.Create(ctx, session)
	s.Require().NoError(err)
	s.Require().NoError(s.carts.AddItem(ctx, c.ID, productID, qty))
}

func checkoutRequest(session string) checkout.Request {
	return checkout.Request{
		SessionID: session,
		Contact: checkout.Contact{
			Email:     gofakeit.Email(),
			FirstName: gofakeit.FirstName(),
			LastName:  gofakeit.LastName(),
		},
		ShippingMethod: order.ShippingPickup,
		PaymentMethod:  order.PaymentTransfer,
	}
}

func (s *storeSuite) TestCheckout() {
	ctx := s.T().Context()
	p := randomProduct(5)
	s.putProduct(p)
	session := gofakeit.UUID()
	s.fillCart(session, p.ID, 2)

	res, err := s.newCheckout().Checkout(ctx, checkoutRequest(session))
	s.Require().NoError(err)
	s.True(res.Order.Subtotal.Equal(p.TransferPrice.Mul(decimal.NewFromInt(2))))

	stored, err := s.orders.GetByNumber(ctx, res.Order.Number)
	s.Require().NoError(err)
	s.Len(stored.Items, 1)
	s.Equal(session, stored.SessionID)

	got, err := s.products.GetByID(ctx, p.ID)
	s.Require().NoError(err)
	s.Equal(3, got.Stock)

	c, err := s.carts.FindBySession(ctx, session)
	s.Require().NoError(err)
	s.True(c.Empty())
}

func (s *storeSuite) TestWithinTxRollsBackOnPanic() {
	ctx := s.T().Context()
	p := randomProduct(5)
	s.putProduct(p)

	s.PanicsWithValue("boom", func() {
		_ = s.tx.WithinTx(ctx, func(ctx context.Context, tx checkout.Tx) error {
			ok, err := tx.Products().DecrementStock(ctx, p.ID, 2)
			s.Require().NoError(err)
			s.Require().True(ok)
			panic("boom")
		})
	})

	got, err := s.products.GetByID(ctx, p.ID)
	s.Require().NoError(err)
	s.Equal(5, got.Stock)
	s.Zero(s.pool.Stat().AcquiredConns())
}

func (s *storeSuite) TestCheckoutConcurrent() {
	ctx := s.T().Context()
	p := randomProduct(1)
	s.putProduct(p)
	plenty := randomProduct(100)
	s.putProduct(plenty)

	const n = 10
	sessions := make([]string, n)
	for i := range sessions {
		sessions[i] = gofakeit.UUID()
		s.fillCart(sessions[i], plenty.ID, 1)
	}
	// Only the first two sessions compete for the last unit.
	s.fillCart(sessions[0], p.ID, 1)
	s.fillCart(sessions[1], p.ID, 1)

	svc := s.newCheckout()
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		numbers = make(map[string]bool)
		short   int
	)
	for _, session := range sessions {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := svc.Checkout(ctx, checkoutRequest(session))
			mu.Lock()
			defer mu.Unlock()
			var sErr *checkout.InsufficientStockError
			switch {
			case err == nil:
				numbers[res.Order.Number] = true
			case s.ErrorAs(err, &sErr):
				short++
			}
		}()
	}
	wg.Wait()

	s.Equal(1, short)
	s.Len(numbers, n-1)

	got, err := s.products.GetByID(ctx, p.ID)
	s.Require().NoError(err)
	s.Equal(0, got.Stock)
	got, err = s.products.GetByID(ctx, plenty.ID)
	s.Require().NoError(err)
	s.Equal(100-(n-1), got.Stock)
}

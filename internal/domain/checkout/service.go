package checkout

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"

	"github.com/lujangrego99/katsuda-store-sub000/internal/domain/cart"
	"github.com/lujangrego99/katsuda-store-sub000/internal/domain/order"
	"github.com/lujangrego99/katsuda-store-sub000/internal/domain/product"
)

// Service places orders from session carts.
type Service struct {
	tx        Transactor
	shipping  ShippingQuoter
	numbers   *order.Generator
	publisher Publisher
	now       func() time.Time

	tracer  trace.Tracer
	created metric.Int64Counter
}

// Option customizes a Service.
type Option func(*Service)

// WithPublisher sets the publisher notified of placed orders.
func WithPublisher(p Publisher) Option {
	return func(s *Service) { s.publisher = p }
}

// WithTelemetry instruments checkouts with the given providers.
func WithTelemetry(tp trace.TracerProvider, mp metric.MeterProvider) Option {
	return func(s *Service) {
		s.tracer = tp.Tracer("katsuda/checkout")
		// The counter falls back to a no-op when the meter rejects it.
		if c, err := mp.Meter("katsuda/checkout").Int64Counter("checkout.orders.created",
			metric.WithDescription("Orders placed through checkout"),
		); err == nil {
			s.created = c
		}
	}
}

// WithClock overrides the clock used for order timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a checkout Service.
func NewService(tx Transactor, quoter ShippingQuoter, numbers *order.Generator, opts ...Option) *Service {
	s := &Service{
		tx:        tx,
		shipping:  quoter,
		numbers:   numbers,
		publisher: nopPublisher{},
		now:       time.Now,
	}
	WithTelemetry(tracenoop.NewTracerProvider(), metricnoop.NewMeterProvider())(s)
	for _, o := range opts {
		o(s)
	}
	return s
}

// Checkout validates req, then atomically creates the order, decrements
// stock and empties the cart.
//
// Errors are *ValidationError, ErrEmptyCart, *InsufficientStockError or
// *TransactionError.
func (s *Service) Checkout(ctx context.Context, req Request) (_ *Result, rerr error) {
	ctx, span := s.tracer.Start(ctx, "checkout.Checkout")
	defer func() {
		if rerr != nil {
			span.RecordError(rerr)
			span.SetStatus(codes.Error, rerr.Error())
		}
		span.End()
	}()

	req.normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	var placed *order.Order
	err := s.tx.WithinTx(ctx, func(ctx context.Context, tx Tx) error {
		o, err := s.place(ctx, tx, req)
		if err != nil {
			return err
		}
		placed = o
		return nil
	})
	if err != nil {
		if isDomainError(err) {
			return nil, err
		}
		return nil, &TransactionError{Err: err}
	}

	span.SetAttributes(
		attribute.String("order.number", placed.Number),
		attribute.String("order.total", placed.Total.String()),
	)
	s.created.Add(ctx, 1, metric.WithAttributes(
		attribute.String("payment_method", placed.PaymentMethod),
		attribute.String("shipping_method", placed.ShippingMethod),
	))

	lg := zctx.From(ctx)
	lg.Info("Order placed",
		zap.String("number", placed.Number),
		zap.String("total", placed.Total.String()),
		zap.Int("items", len(placed.Items)),
	)
	if err := s.publisher.OrderCreated(ctx, placed); err != nil {
		lg.Warn("Publish order created", zap.String("number", placed.Number), zap.Error(err))
	}

	res := &Result{Order: placed}
	if placed.ShippingMethod == order.ShippingDelivery {
		res.Address = req.Address
	}
	return res, nil
}

func (s *Service) place(ctx context.Context, tx Tx, req Request) (*order.Order, error) {
	c, err := tx.Carts().FindBySession(ctx, req.SessionID)
	if err != nil {
		if errors.Is(err, cart.ErrNotFound) {
			return nil, ErrEmptyCart
		}
		return nil, errors.Wrap(err, "find cart")
	}
	if c.Empty() {
		return nil, ErrEmptyCart
	}

	ids := make([]string, len(c.Items))
	for i, it := range c.Items {
		ids[i] = it.ProductID
	}
	fetched, err := tx.Products().GetByIDs(ctx, ids)
	if err != nil {
		return nil, errors.Wrap(err, "get products")
	}
	byID := make(map[string]product.Product, len(fetched))
	for _, p := range fetched {
		byID[p.ID] = p
	}

	// Check every line before failing so the customer sees all shortages.
	var (
		shortages []Shortage
		items     = make([]order.Item, 0, len(c.Items))
		subtotal  = decimal.Zero
	)
	for _, it := range c.Items {
		p, ok := byID[it.ProductID]
		switch {
		case !ok || !p.Active:
			shortages = append(shortages, Shortage{
				ProductID: it.ProductID,
				Name:      p.Name,
				Requested: it.Quantity,
			})
			continue
		case it.Quantity > p.Stock:
			shortages = append(shortages, Shortage{
				ProductID: it.ProductID,
				Name:      p.Name,
				Requested: it.Quantity,
				Available: p.Stock,
			})
			continue
		}

		unit := p.UnitPrice(req.PaymentMethod)
		line := unit.Mul(decimal.NewFromInt(int64(it.Quantity)))
		items = append(items, order.Item{
			ProductID: p.ID,
			SKU:       p.SKU,
			Name:      p.Name,
			Quantity:  it.Quantity,
			UnitPrice: unit,
			LineTotal: line,
		})
		subtotal = subtotal.Add(line)
	}
	if len(shortages) > 0 {
		return nil, &InsufficientStockError{Items: shortages}
	}

	shippingCost := decimal.Zero
	if req.ShippingMethod == order.ShippingDelivery {
		q, err := s.shipping.CostForProvince(ctx, req.Address.Province, subtotal)
		if err != nil {
			return nil, errors.Wrap(err, "quote shipping")
		}
		shippingCost = q.Cost
	}

	number, err := s.numbers.Next(ctx, tx.Orders())
	if err != nil {
		return nil, err
	}

	now := s.now()
	o := &order.Order{
		ID:             uuid.NewString(),
		Number:         number,
		SessionID:      req.SessionID,
		Status:         order.StatusPending,
		PaymentMethod:  req.PaymentMethod,
		PaymentStatus:  order.PaymentPending,
		ShippingMethod: req.ShippingMethod,
		Subtotal:       subtotal,
		ShippingCost:   shippingCost,
		Discount:       decimal.Zero,
		Total:          order.ComputeTotal(subtotal, shippingCost, decimal.Zero),
		Email:          req.Contact.Email,
		FirstName:      req.Contact.FirstName,
		LastName:       req.Contact.LastName,
		Phone:          req.Contact.Phone,
		Notes:          req.Notes,
		Items:          items,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if req.ShippingMethod == order.ShippingDelivery {
		o.ShippingAddress = req.Address
	}

	if err := tx.Orders().Create(ctx, o); err != nil {
		return nil, errors.Wrap(err, "create order")
	}

	for _, it := range items {
		ok, err := tx.Products().DecrementStock(ctx, it.ProductID, it.Quantity)
		if err != nil {
			return nil, errors.Wrapf(err, "decrement stock of %s", it.ProductID)
		}
		if !ok {
			// Another checkout took the stock after the check above.
			return nil, s.lostStock(ctx, tx, it)
		}
	}

	if err := tx.Carts().DeleteItems(ctx, c.ID); err != nil {
		return nil, errors.Wrap(err, "clear cart")
	}
	return o, nil
}

func (s *Service) lostStock(ctx context.Context, tx Tx, it order.Item) error {
	sh := Shortage{ProductID: it.ProductID, Name: it.Name, Requested: it.Quantity}
	p, err := tx.Products().GetByID(ctx, it.ProductID)
	switch {
	case err == nil:
		sh.Available = p.Stock
	case !errors.Is(err, product.ErrNotFound):
		return errors.Wrapf(err, "reload product %s", it.ProductID)
	}
	return &InsufficientStockError{Items: []Shortage{sh}}
}

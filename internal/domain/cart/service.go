package cart

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/lujangrego99/katsuda-store-sub000/internal/domain/pricing"
	"github.com/lujangrego99/katsuda-store-sub000/internal/domain/product"
)

// Line is a cart item joined with its product.
type Line struct {
	Product   product.Product
	Quantity  int
	LineTotal decimal.Decimal
}

// View is a cart ready for display.
type View struct {
	Cart   *Cart
	Lines  []Line
	Totals pricing.Totals
}

// Service manages session carts.
type Service struct {
	carts    Repository
	products product.Repository
}

// NewService creates a cart Service.
func NewService(carts Repository, products product.Repository) *Service {
	return &Service{carts: carts, products: products}
}

// Get returns the session cart, creating an empty one on first access.
func (s *Service) Get(ctx context.Context, sessionID string) (*View, error) {
	c, err := s.resolve(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return s.view(ctx, c)
}

// MaxQuantity caps the units of one product in a cart.
const MaxQuantity = 999

// AddItem puts qty units of a product in the session cart. The resulting
// line may not exceed MaxQuantity.
func (s *Service) AddItem(ctx context.Context, sessionID, productID string, qty int) (*View, error) {
	if qty < 1 || qty > MaxQuantity {
		return nil, ErrInvalidQuantity
	}

	p, err := s.products.GetByID(ctx, productID)
	if err != nil {
		if errors.Is(err, product.ErrNotFound) {
			return nil, product.ErrNotFound
		}
		return nil, errors.Wrap(err, "get product")
	}
	if !p.Active {
		return nil, ErrProductInactive
	}

	c, err := s.resolve(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	for _, it := range c.Items {
		if it.ProductID == productID && it.Quantity+qty > MaxQuantity {
			return nil, ErrInvalidQuantity
		}
	}
	if err := s.carts.AddItem(ctx, c.ID, productID, qty); err != nil {
		return nil, errors.Wrap(err, "add cart item")
	}
	return s.Get(ctx, sessionID)
}

// UpdateQuantity sets the quantity of a product already in the cart.
// A zero quantity removes the line.
func (s *Service) UpdateQuantity(ctx context.Context, sessionID, productID string, qty int) (*View, error) {
	if qty < 0 || qty > MaxQuantity {
		return nil, ErrInvalidQuantity
	}
	if qty == 0 {
		return s.RemoveItem(ctx, sessionID, productID)
	}

	c, err := s.resolve(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	ok, err := s.carts.SetQuantity(ctx, c.ID, productID, qty)
	if err != nil {
		return nil, errors.Wrap(err, "set cart item quantity")
	}
	if !ok {
		return nil, ErrItemNotFound
	}
	return s.Get(ctx, sessionID)
}

// RemoveItem deletes a product from the cart.
func (s *Service) RemoveItem(ctx context.Context, sessionID, productID string) (*View, error) {
	c, err := s.resolve(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	ok, err := s.carts.RemoveItem(ctx, c.ID, productID)
	if err != nil {
		return nil, errors.Wrap(err, "remove cart item")
	}
	if !ok {
		return nil, ErrItemNotFound
	}
	return s.Get(ctx, sessionID)
}

func (s *Service) resolve(ctx context.Context, sessionID string) (*Cart, error) {
	if sessionID == "" {
		return nil, ErrSessionRequired
	}
	c, err := s.carts.FindBySession(ctx, sessionID)
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, errors.Wrap(err, "find cart")
	}
	c, err = s.carts.Create(ctx, sessionID)
	if err != nil {
		return nil, errors.Wrap(err, "create cart")
	}
	return c, nil
}

func (s *Service) view(ctx context.Context, c *Cart) (*View, error) {
	v := &View{Cart: c}
	if c.Empty() {
		return v, nil
	}

	ids := make([]string, len(c.Items))
	for i, it := range c.Items {
		ids[i] = it.ProductID
	}
	fetched, err := s.products.GetByIDs(ctx, ids)
	if err != nil {
		return nil, errors.Wrap(err, "get cart products")
	}
	byID := make(map[string]product.Product, len(fetched))
	for _, p := range fetched {
		byID[p.ID] = p
	}

	priced := make([]pricing.Line, 0, len(c.Items))
	for _, it := range c.Items {
		p, ok := byID[it.ProductID]
		if !ok {
			// Product deleted since it was added; checkout reports it.
			continue
		}
		v.Lines = append(v.Lines, Line{
			Product:   p,
			Quantity:  it.Quantity,
			LineTotal: p.Price.Mul(decimal.NewFromInt(int64(it.Quantity))),
		})
		priced = append(priced, pricing.Line{Price: p.Price, Quantity: it.Quantity})
	}
	v.Totals = pricing.CartTotals(priced)
	return v, nil
}

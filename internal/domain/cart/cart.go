package cart

import (
	"context"

	"github.com/go-faster/errors"
)

var (
	// ErrNotFound is returned by repositories when a session has no cart.
	ErrNotFound = errors.New("cart not found")
	// ErrItemNotFound is returned when the product is not in the cart.
	ErrItemNotFound = errors.New("cart item not found")
	// ErrInvalidQuantity is returned for quantities outside 1..MaxQuantity.
	ErrInvalidQuantity = errors.New("invalid quantity")
	// ErrProductInactive is returned when adding a product that is not for sale.
	ErrProductInactive = errors.New("product is not available")
	// ErrSessionRequired is returned when no session identifier was given.
	ErrSessionRequired = errors.New("session id required")
)

// Cart is the shopping cart of one browser session.
type Cart struct {
	ID        string
	SessionID string
	Items     []Item
}

// Item is a product in the cart. A product appears at most once per cart.
type Item struct {
	ProductID string
	Quantity  int
}

// Empty reports whether the cart holds no items.
func (c *Cart) Empty() bool {
	return c == nil || len(c.Items) == 0
}

// Repository defines persistence operations for carts.
type Repository interface {
	// FindBySession returns the session cart with its items, or ErrNotFound.
	FindBySession(ctx context.Context, sessionID string) (*Cart, error)
	// Create returns the session cart, creating it when missing.
	Create(ctx context.Context, sessionID string) (*Cart, error)
	// AddItem adds qty of the product, increasing the quantity of an
	// existing line instead of adding a second one.
	AddItem(ctx context.Context, cartID, productID string, qty int) error
	// SetQuantity replaces the quantity of an existing line.
	SetQuantity(ctx context.Context, cartID, productID string, qty int) (bool, error)
	RemoveItem(ctx context.Context, cartID, productID string) (bool, error)
	// DeleteItems empties the cart. The cart itself is kept.
	DeleteItems(ctx context.Context, cartID string) error
}

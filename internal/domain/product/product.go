package product

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/lujangrego99/katsuda-store-sub000/internal/domain/pricing"
)

// ErrNotFound is returned when a requested product does not exist.
var ErrNotFound = errors.New("product not found")

// PaymentTransfer is the payment method that unlocks transfer prices.
const PaymentTransfer = "transfer"

// Product represents a catalog item available for purchase.
type Product struct {
	ID             string
	SKU            string
	Name           string
	Price          decimal.Decimal
	CompareAtPrice *decimal.Decimal
	TransferPrice  *decimal.Decimal
	Stock          int
	Active         bool
	FreeShipping   bool
}

// UnitPrice returns the price charged per unit for the given payment method.
// Bank transfers use the stored transfer price when the product has one.
func (p Product) UnitPrice(paymentMethod string) decimal.Decimal {
	if paymentMethod == PaymentTransfer && p.TransferPrice != nil {
		return *p.TransferPrice
	}
	return p.Price
}

// DisplayTransferPrice is the transfer price shown on the storefront: the
// stored one, or the list price with the standard transfer discount.
func (p Product) DisplayTransferPrice() decimal.Decimal {
	if p.TransferPrice != nil {
		return *p.TransferPrice
	}
	return pricing.TransferPrice(p.Price)
}

// Repository defines catalog reads and the checkout stock decrement.
type Repository interface {
	List(ctx context.Context) ([]Product, error)
	GetByID(ctx context.Context, id string) (*Product, error)
	GetByIDs(ctx context.Context, ids []string) ([]Product, error)
	// DecrementStock subtracts qty from the product stock only when enough
	// stock is left. It reports false when nothing was updated.
	DecrementStock(ctx context.Context, id string, qty int) (bool, error)
}

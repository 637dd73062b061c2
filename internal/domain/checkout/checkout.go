// Package checkout turns a session cart into a placed order.
//
// The whole placement (stock check, pricing, order number reservation, order
// insert, stock decrement and cart clearing) runs in one transaction provided
// by a Transactor, so a failure at any step leaves no partial writes behind.
package checkout

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/lujangrego99/katsuda-store-sub000/internal/domain/cart"
	"github.com/lujangrego99/katsuda-store-sub000/internal/domain/order"
	"github.com/lujangrego99/katsuda-store-sub000/internal/domain/product"
	"github.com/lujangrego99/katsuda-store-sub000/internal/domain/shipping"
)

// Contact holds the guest customer details.
type Contact struct {
	Email     string `json:"email" validate:"required,email"`
	FirstName string `json:"firstName" validate:"required"`
	LastName  string `json:"lastName" validate:"required"`
	Phone     string `json:"phone,omitempty" validate:"max=40"`
}

// Request is a submitted checkout form.
type Request struct {
	SessionID string  `json:"sessionId" validate:"required"`
	Contact   Contact `json:"contact"`
	// Address is required for delivery and ignored for pickup.
	Address        *order.Address `json:"address,omitempty" validate:"-"`
	ShippingMethod string         `json:"shippingMethod" validate:"required,oneof=pickup delivery"`
	PaymentMethod  string         `json:"paymentMethod" validate:"required,oneof=transfer mercadopago cash"`
	Notes          string         `json:"notes,omitempty" validate:"max=1000"`
}

func (r *Request) normalize() {
	r.SessionID = strings.TrimSpace(r.SessionID)
	r.Contact.Email = strings.TrimSpace(r.Contact.Email)
	r.Contact.FirstName = strings.TrimSpace(r.Contact.FirstName)
	r.Contact.LastName = strings.TrimSpace(r.Contact.LastName)
	r.Contact.Phone = strings.TrimSpace(r.Contact.Phone)
	r.ShippingMethod = strings.ToLower(strings.TrimSpace(r.ShippingMethod))
	r.PaymentMethod = strings.ToLower(strings.TrimSpace(r.PaymentMethod))
	r.Notes = strings.TrimSpace(r.Notes)
	if a := r.Address; a != nil {
		a.Street = strings.TrimSpace(a.Street)
		a.Number = strings.TrimSpace(a.Number)
		a.Apartment = strings.TrimSpace(a.Apartment)
		a.City = strings.TrimSpace(a.City)
		a.Province = strings.TrimSpace(a.Province)
		a.PostalCode = strings.TrimSpace(a.PostalCode)
	}
}

// Result is a placed order. Address echoes the delivery address for the
// confirmation page and is nil for pickup.
type Result struct {
	Order   *order.Order
	Address *order.Address
}

// Tx exposes the stores bound to one transaction.
type Tx interface {
	Carts() cart.Repository
	Products() product.Repository
	Orders() order.Repository
}

// Transactor runs fn in a transaction. The transaction commits when fn
// returns nil and rolls back otherwise; the error of fn is returned as is.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

// ShippingQuoter prices delivery to a province.
type ShippingQuoter interface {
	CostForProvince(ctx context.Context, province string, subtotal decimal.Decimal) (shipping.Quote, error)
}

// Publisher announces placed orders to other systems.
type Publisher interface {
	OrderCreated(ctx context.Context, o *order.Order) error
}

type nopPublisher struct{}

func (nopPublisher) OrderCreated(context.Context, *order.Order) error { return nil }

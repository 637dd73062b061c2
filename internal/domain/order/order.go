package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

var (
	// ErrNotFound is returned when no order has the requested number.
	ErrNotFound = errors.New("order not found")
	// ErrConflict is returned when an order changed between read and write,
	// or when an order number is already taken.
	ErrConflict = errors.New("order was modified concurrently")
)

// Shipping methods.
const (
	ShippingPickup   = "pickup"
	ShippingDelivery = "delivery"
)

// Payment methods.
const (
	PaymentTransfer    = "transfer"
	PaymentMercadoPago = "mercadopago"
	PaymentCash        = "cash"
)

// Order is a placed customer order. Totals are computed once at checkout
// and never recomputed. SessionID is the shopper session that placed it.
type Order struct {
	ID              string
	Number          string
	SessionID       string
	Status          Status
	PaymentMethod   string
	PaymentStatus   PaymentStatus
	ShippingMethod  string
	Subtotal        decimal.Decimal
	ShippingCost    decimal.Decimal
	Discount        decimal.Decimal
	Total           decimal.Decimal
	Email           string
	FirstName       string
	LastName        string
	Phone           string
	Notes           string
	ShippingAddress *Address
	Items           []Item
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Item is an order line. UnitPrice is the price at purchase time.
type Item struct {
	ProductID string
	SKU       string
	Name      string
	Quantity  int
	UnitPrice decimal.Decimal
	LineTotal decimal.Decimal
}

// Address is the delivery address submitted at checkout.
type Address struct {
	Street     string `json:"street" validate:"required"`
	Number     string `json:"number" validate:"required"`
	Apartment  string `json:"apartment,omitempty"`
	City       string `json:"city" validate:"required"`
	Province   string `json:"province" validate:"required"`
	PostalCode string `json:"postalCode" validate:"required"`
}

// ComputeTotal returns subtotal + shipping - discount.
func ComputeTotal(subtotal, shipping, discount decimal.Decimal) decimal.Decimal {
	return subtotal.Add(shipping).Sub(discount)
}

// Repository defines persistence operations for orders.
type Repository interface {
	SequenceRepository

	// Create inserts the order and its items.
	Create(ctx context.Context, o *Order) error
	GetByNumber(ctx context.Context, number string) (*Order, error)
	// UpdateStatus moves the order from one status to another. It returns
	// ErrConflict when the stored status is no longer from.
	UpdateStatus(ctx context.Context, id string, from, to Status, at time.Time) error
}

package checkout

import (
	"fmt"
	"strings"

	"github.com/go-faster/errors"
)

// ErrEmptyCart is returned when the session has no cart or the cart has no
// items.
var ErrEmptyCart = errors.New("cart is empty")

// FieldError describes one rejected form field.
type FieldError struct {
	Field  string
	Reason string
}

// ValidationError lists every invalid field of a checkout request.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = f.Field + " (" + f.Reason + ")"
	}
	return "invalid checkout request: " + strings.Join(parts, ", ")
}

// Shortage is a cart line that cannot be fulfilled.
type Shortage struct {
	ProductID string
	Name      string
	Requested int
	Available int
}

// InsufficientStockError lists every cart line exceeding available stock.
type InsufficientStockError struct {
	Items []Shortage
}

func (e *InsufficientStockError) Error() string {
	parts := make([]string, len(e.Items))
	for i, s := range e.Items {
		parts[i] = fmt.Sprintf("%s (requested %d, available %d)", s.ProductID, s.Requested, s.Available)
	}
	return "insufficient stock: " + strings.Join(parts, ", ")
}

// TransactionError means the order could not be committed. Nothing was
// written; the customer may retry.
type TransactionError struct {
	Err error
}

func (e *TransactionError) Error() string {
	return "checkout transaction failed: " + e.Err.Error()
}

func (e *TransactionError) Unwrap() error { return e.Err }

// isDomainError reports whether err is a customer-facing checkout outcome
// rather than an infrastructure failure.
func isDomainError(err error) bool {
	var (
		vErr *ValidationError
		sErr *InsufficientStockError
	)
	return errors.Is(err, ErrEmptyCart) || errors.As(err, &vErr) || errors.As(err, &sErr)
}

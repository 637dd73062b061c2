package order

import (
	"fmt"
	"strings"

	"github.com/go-faster/errors"
)

// Status is the fulfilment state of an order.
type Status string

// Order statuses.
const (
	StatusPending    Status = "PENDING"
	StatusConfirmed  Status = "CONFIRMED"
	StatusProcessing Status = "PROCESSING"
	StatusShipped    Status = "SHIPPED"
	StatusDelivered  Status = "DELIVERED"
	StatusCancelled  Status = "CANCELLED"
)

// PaymentStatus is the payment state of an order.
type PaymentStatus string

// Payment statuses.
const (
	PaymentPending  PaymentStatus = "PENDING"
	PaymentPaid     PaymentStatus = "PAID"
	PaymentFailed   PaymentStatus = "FAILED"
	PaymentRefunded PaymentStatus = "REFUNDED"
)

// ErrUnknownStatus is returned by ParseStatus for unsupported values.
var ErrUnknownStatus = errors.New("unknown order status")

var transitions = map[Status][]Status{
	StatusPending:    {StatusConfirmed, StatusCancelled},
	StatusConfirmed:  {StatusProcessing, StatusCancelled},
	StatusProcessing: {StatusShipped, StatusCancelled},
	StatusShipped:    {StatusDelivered, StatusCancelled},
	StatusDelivered:  nil,
	StatusCancelled:  nil,
}

// InvalidTransitionError indicates a status change outside the allowed table.
type InvalidTransitionError struct {
	From Status
	To   Status
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot move order from %s to %s", e.From, e.To)
}

// ParseStatus converts s (case-insensitive) to a known Status.
func ParseStatus(s string) (Status, error) {
	st := Status(strings.ToUpper(strings.TrimSpace(s)))
	if _, ok := transitions[st]; !ok {
		return "", errors.Wrapf(ErrUnknownStatus, "%q", s)
	}
	return st, nil
}

// CanTransitionTo reports whether an order in s may move to target.
func (s Status) CanTransitionTo(target Status) bool {
	for _, next := range transitions[s] {
		if next == target {
			return true
		}
	}
	return false
}

// Terminal reports whether no further transitions are possible.
func (s Status) Terminal() bool {
	return len(transitions[s]) == 0
}

package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"
)

// Service handles back office order lookups and status changes.
type Service struct {
	orders Repository
	now    func() time.Time
}

// NewService creates an order Service.
func NewService(orders Repository) *Service {
	return &Service{orders: orders, now: time.Now}
}

// Get returns the order with the given number.
func (s *Service) Get(ctx context.Context, number string) (*Order, error) {
	o, err := s.orders.GetByNumber(ctx, number)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "get order")
	}
	return o, nil
}

// UpdateStatus moves the order to target if the transition table allows it.
// Disallowed targets fail with *InvalidTransitionError.
func (s *Service) UpdateStatus(ctx context.Context, number string, target Status) (*Order, error) {
	o, err := s.Get(ctx, number)
	if err != nil {
		return nil, err
	}

	if !o.Status.CanTransitionTo(target) {
		return nil, &InvalidTransitionError{From: o.Status, To: target}
	}

	now := s.now()
	if err := s.orders.UpdateStatus(ctx, o.ID, o.Status, target, now); err != nil {
		if errors.Is(err, ErrConflict) {
			return nil, ErrConflict
		}
		return nil, errors.Wrap(err, "update order status")
	}

	o.Status = target
	o.UpdatedAt = now
	return o, nil
}

package memory

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/go-faster/errors"

	"github.com/lujangrego99/katsuda-store-sub000/internal/domain/order"
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository in memory.
type OrderRepository struct {
	db accessor
}

// Create stores a copy of the order.
func (r *OrderRepository) Create(_ context.Context, o *order.Order) error {
	return r.db.with(func(st *state) error {
		if _, taken := st.numbers[o.Number]; taken {
			return errors.Wrapf(order.ErrConflict, "order number %s taken", o.Number)
		}
		st.orders[o.ID] = copyOrder(o)
		st.numbers[o.Number] = o.ID
		return nil
	})
}

// GetByNumber returns a copy of the order.
func (r *OrderRepository) GetByNumber(_ context.Context, number string) (*order.Order, error) {
	var o *order.Order
	err := r.db.with(func(st *state) error {
		id, ok := st.numbers[number]
		if !ok {
			return order.ErrNotFound
		}
		o = copyOrder(st.orders[id])
		return nil
	})
	return o, err
}

// UpdateStatus moves the order from one status to another.
func (r *OrderRepository) UpdateStatus(_ context.Context, id string, from, to order.Status, at time.Time) error {
	return r.db.with(func(st *state) error {
		o, ok := st.orders[id]
		if !ok {
			return order.ErrNotFound
		}
		if o.Status != from {
			return order.ErrConflict
		}
		o.Status = to
		o.UpdatedAt = at
		return nil
	})
}

// LatestNumber returns the greatest order number starting with prefix.
func (r *OrderRepository) LatestNumber(_ context.Context, prefix string) (string, error) {
	var latest string
	err := r.db.with(func(st *state) error {
		latest = latestNumber(st, prefix)
		return nil
	})
	return latest, err
}

// NextSequence reserves the next sequence of the day. Transactions are
// serialized, so reading the latest number and incrementing is safe here.
func (r *OrderRepository) NextSequence(_ context.Context, dayPrefix string) (int, error) {
	var next int
	err := r.db.with(func(st *state) error {
		n, err := order.SequenceAfter(latestNumber(st, dayPrefix+"-"))
		if err != nil {
			return err
		}
		next = max(n, st.sequences[dayPrefix]+1)
		st.sequences[dayPrefix] = next
		return nil
	})
	return next, err
}

func latestNumber(st *state, prefix string) string {
	var latest string
	for number := range st.numbers {
		if strings.HasPrefix(number, prefix) && number > latest {
			latest = number
		}
	}
	return latest
}

func copyOrder(o *order.Order) *order.Order {
	if o == nil {
		return nil
	}
	cp := *o
	cp.Items = slices.Clone(o.Items)
	if o.ShippingAddress != nil {
		addr := *o.ShippingAddress
		cp.ShippingAddress = &addr
	}
	return &cp
}

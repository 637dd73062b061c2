package memory

import (
	"context"
	"slices"

	"github.com/google/uuid"

	"github.com/lujangrego99/katsuda-store-sub000/internal/domain/cart"
)

var _ cart.Repository = (*CartRepository)(nil)

// CartRepository implements cart.Repository in memory.
type CartRepository struct {
	db accessor
}

// FindBySession returns a copy of the session cart.
func (r *CartRepository) FindBySession(_ context.Context, sessionID string) (*cart.Cart, error) {
	var found *cart.Cart
	err := r.db.with(func(st *state) error {
		id, ok := st.sessions[sessionID]
		if !ok {
			return cart.ErrNotFound
		}
		found = copyCart(st.carts[id])
		return nil
	})
	return found, err
}

// Create returns the session cart, creating it when missing.
func (r *CartRepository) Create(_ context.Context, sessionID string) (*cart.Cart, error) {
	var c *cart.Cart
	err := r.db.with(func(st *state) error {
		if id, ok := st.sessions[sessionID]; ok {
			c = copyCart(st.carts[id])
			return nil
		}
		created := &cart.Cart{ID: uuid.NewString(), SessionID: sessionID}
		st.carts[created.ID] = created
		st.sessions[sessionID] = created.ID
		c = copyCart(created)
		return nil
	})
	return c, err
}

// AddItem adds qty to the product line, creating it when missing.
func (r *CartRepository) AddItem(_ context.Context, cartID, productID string, qty int) error {
	return r.db.with(func(st *state) error {
		c, ok := st.carts[cartID]
		if !ok {
			return cart.ErrNotFound
		}
		for i := range c.Items {
			if c.Items[i].ProductID == productID {
				c.Items[i].Quantity += qty
				return nil
			}
		}
		c.Items = append(c.Items, cart.Item{ProductID: productID, Quantity: qty})
		return nil
	})
}

// SetQuantity replaces the quantity of an existing line.
func (r *CartRepository) SetQuantity(_ context.Context, cartID, productID string, qty int) (bool, error) {
	updated := false
	err := r.db.with(func(st *state) error {
		c, ok := st.carts[cartID]
		if !ok {
			return nil
		}
		for i := range c.Items {
			if c.Items[i].ProductID == productID {
				c.Items[i].Quantity = qty
				updated = true
				return nil
			}
		}
		return nil
	})
	return updated, err
}

// RemoveItem deletes the product line.
func (r *CartRepository) RemoveItem(_ context.Context, cartID, productID string) (bool, error) {
	removed := false
	err := r.db.with(func(st *state) error {
		c, ok := st.carts[cartID]
		if !ok {
			return nil
		}
		n := len(c.Items)
		c.Items = slices.DeleteFunc(c.Items, func(it cart.Item) bool { return it.ProductID == productID })
		removed = len(c.Items) < n
		return nil
	})
	return removed, err
}

// DeleteItems empties the cart.
func (r *CartRepository) DeleteItems(_ context.Context, cartID string) error {
	return r.db.with(func(st *state) error {
		if c, ok := st.carts[cartID]; ok {
			c.Items = nil
		}
		return nil
	})
}

func copyCart(c *cart.Cart) *cart.Cart {
	if c == nil {
		return nil
	}
	cp := *c
	cp.Items = slices.Clone(c.Items)
	return &cp
}

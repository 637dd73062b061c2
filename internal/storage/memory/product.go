package memory

import (
	"context"
	"slices"
	"strings"

	"github.com/lujangrego99/katsuda-store-sub000/internal/domain/product"
)

var _ product.Repository = (*ProductRepository)(nil)

// ProductRepository implements product.Repository in memory.
type ProductRepository struct {
	db accessor
}

// List returns all products ordered by ID.
func (r *ProductRepository) List(_ context.Context) ([]product.Product, error) {
	var out []product.Product
	err := r.db.with(func(st *state) error {
		out = make([]product.Product, 0, len(st.products))
		for _, p := range st.products {
			out = append(out, p)
		}
		return nil
	})
	slices.SortFunc(out, func(a, b product.Product) int { return strings.Compare(a.ID, b.ID) })
	return out, err
}

// GetByID returns a single product.
func (r *ProductRepository) GetByID(_ context.Context, id string) (*product.Product, error) {
	var p product.Product
	err := r.db.with(func(st *state) error {
		var ok bool
		if p, ok = st.products[id]; !ok {
			return product.ErrNotFound
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// GetByIDs returns the products that exist among ids.
func (r *ProductRepository) GetByIDs(_ context.Context, ids []string) ([]product.Product, error) {
	var out []product.Product
	err := r.db.with(func(st *state) error {
		for _, id := range ids {
			if p, ok := st.products[id]; ok {
				out = append(out, p)
			}
		}
		return nil
	})
	return out, err
}

// DecrementStock subtracts qty when at least qty units are left.
func (r *ProductRepository) DecrementStock(_ context.Context, id string, qty int) (bool, error) {
	ok := false
	err := r.db.with(func(st *state) error {
		p, found := st.products[id]
		if !found || p.Stock < qty {
			return nil
		}
		p.Stock -= qty
		st.products[id] = p
		ok = true
		return nil
	})
	return ok, err
}

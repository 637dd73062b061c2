package shipping

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrZoneNotFound is returned by repositories when no active zone matches.
// Resolver callers never see it: a missing zone is handled with a fallback.
var ErrZoneNotFound = errors.New("shipping zone not found")

// Zone is a delivery area with a flat price and an optional free shipping
// threshold.
type Zone struct {
	ID              string
	Name            string
	Province        string
	Cities          []string
	Price           decimal.Decimal
	FreeShippingMin *decimal.Decimal
	Active          bool
}

// CostFor returns the shipping cost of subtotal in this zone and whether the
// free shipping threshold was reached.
func (z Zone) CostFor(subtotal decimal.Decimal) (decimal.Decimal, bool) {
	if z.FreeShippingMin != nil && subtotal.GreaterThanOrEqual(*z.FreeShippingMin) {
		return decimal.Zero, true
	}
	return z.Price, false
}

// Repository provides read access to configured shipping zones.
type Repository interface {
	// FindActiveByProvince returns the first active zone whose province
	// contains the given text, ignoring case.
	FindActiveByProvince(ctx context.Context, province string) (*Zone, error)
	// FindActiveByName returns the active zone with the given name, ignoring case.
	FindActiveByName(ctx context.Context, name string) (*Zone, error)
	List(ctx context.Context) ([]Zone, error)
}

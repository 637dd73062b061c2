package shipping

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/lujangrego99/katsuda-store-sub000/internal/domain/pricing"
)

// DefaultPrice is charged for delivery when no zone matches the province.
var DefaultPrice = decimal.NewFromInt(5000)

// Quote is the shipping cost of an order being placed.
type Quote struct {
	Cost decimal.Decimal
	Zone *Zone
	Free bool
	// Fallback is set when no zone matched and DefaultPrice was used.
	Fallback bool
}

// Estimate is the pre-checkout shipping estimate for a postal code.
type Estimate struct {
	PostalCode string
	// Available is false when the code is outside every delivery zone; the
	// customer can only pick the order up at the store.
	Available       bool
	Province        string
	Zone            string
	Cost            decimal.Decimal
	FreeShippingMin *decimal.Decimal
	Free            bool
	Remaining       decimal.Decimal
}

// Resolver computes shipping costs from configured zones.
type Resolver struct {
	zones        Repository
	ranges       []PostalRange
	defaultPrice decimal.Decimal
}

// ResolverOption customizes a Resolver.
type ResolverOption func(*Resolver)

// WithDefaultPrice overrides the price used when no zone matches.
func WithDefaultPrice(price decimal.Decimal) ResolverOption {
	return func(r *Resolver) { r.defaultPrice = price }
}

// WithPostalRanges replaces the postal code table.
func WithPostalRanges(ranges []PostalRange) ResolverOption {
	return func(r *Resolver) { r.ranges = ranges }
}

// NewResolver creates a Resolver backed by zones.
func NewResolver(zones Repository, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		zones:        zones,
		ranges:       PostalRanges,
		defaultPrice: DefaultPrice,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// DefaultPrice returns the fallback delivery price.
func (r *Resolver) DefaultPrice() decimal.Decimal { return r.defaultPrice }

// CostForProvince prices delivery of subtotal to province. A province with
// no active zone is charged the default price.
func (r *Resolver) CostForProvince(ctx context.Context, province string, subtotal decimal.Decimal) (Quote, error) {
	z, err := r.zones.FindActiveByProvince(ctx, province)
	if err != nil {
		if errors.Is(err, ErrZoneNotFound) {
			return Quote{Cost: r.defaultPrice, Fallback: true}, nil
		}
		return Quote{}, errors.Wrap(err, "find zone by province")
	}

	cost, free := z.CostFor(subtotal)
	return Quote{Cost: cost, Zone: z, Free: free}, nil
}

// Estimate prices delivery of subtotal to postalCode. Codes outside the
// postal table, or whose zone is not configured, come back unavailable.
func (r *Resolver) Estimate(ctx context.Context, postalCode string, subtotal decimal.Decimal) (Estimate, error) {
	est := Estimate{PostalCode: postalCode}

	code, ok := ParsePostalCode(postalCode)
	if !ok {
		return est, nil
	}
	rng, ok := ClassifyPostalCode(r.ranges, code)
	if !ok {
		return est, nil
	}
	est.Province = rng.Province
	est.Zone = rng.Zone

	z, err := r.zones.FindActiveByName(ctx, rng.Zone)
	if err != nil {
		if errors.Is(err, ErrZoneNotFound) {
			return est, nil
		}
		return Estimate{}, errors.Wrap(err, "find zone by name")
	}

	est.Available = true
	est.Cost, est.Free = z.CostFor(subtotal)
	est.FreeShippingMin = z.FreeShippingMin
	est.Remaining = decimal.Zero
	if z.FreeShippingMin != nil {
		est.Remaining = pricing.RemainingForFreeShipping(subtotal, *z.FreeShippingMin)
	}
	return est, nil
}

// Zones lists the active zones.
func (r *Resolver) Zones(ctx context.Context) ([]Zone, error) {
	zones, err := r.zones.List(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list zones")
	}
	return zones, nil
}

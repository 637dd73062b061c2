package memory

import (
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/lujangrego99/katsuda-store-sub000/internal/domain/shipping"
)

var _ shipping.Repository = (*ZoneRepository)(nil)

// ZoneRepository implements shipping.Repository in memory. It has its own
// lock so zone lookups may run inside a Store transaction.
type ZoneRepository struct {
	mu    sync.RWMutex
	zones []shipping.Zone
}

// NewZoneRepository returns a repository holding zones in the given order.
func NewZoneRepository(zones ...shipping.Zone) *ZoneRepository {
	return &ZoneRepository{zones: slices.Clone(zones)}
}

// Put appends a zone.
func (r *ZoneRepository) Put(z shipping.Zone) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.zones = append(r.zones, z)
}

// FindActiveByProvince returns the first active zone whose province contains
// province, ignoring case.
func (r *ZoneRepository) FindActiveByProvince(_ context.Context, province string) (*shipping.Zone, error) {
	needle := strings.ToLower(province)
	return r.find(func(z shipping.Zone) bool {
		return strings.Contains(strings.ToLower(z.Province), needle)
	})
}

// FindActiveByName returns the active zone with the given name.
func (r *ZoneRepository) FindActiveByName(_ context.Context, name string) (*shipping.Zone, error) {
	return r.find(func(z shipping.Zone) bool { return strings.EqualFold(z.Name, name) })
}

// List returns the active zones.
func (r *ZoneRepository) List(_ context.Context) ([]shipping.Zone, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]shipping.Zone, 0, len(r.zones))
	for _, z := range r.zones {
		if z.Active {
			out = append(out, z)
		}
	}
	return out, nil
}

func (r *ZoneRepository) find(match func(shipping.Zone) bool) (*shipping.Zone, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, z := range r.zones {
		if z.Active && match(z) {
			return &z, nil
		}
	}
	return nil, shipping.ErrZoneNotFound
}

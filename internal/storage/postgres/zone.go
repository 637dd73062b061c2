package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lujangrego99/katsuda-store-sub000/internal/domain/shipping"
)

const (
	zoneColumns = `id, name, province, cities, price, free_shipping_min, active`

	findZoneByProvinceSQL = `SELECT ` + zoneColumns + ` FROM shipping_zones
		WHERE active AND province ILIKE '%' || $1 || '%' ESCAPE '\'
		ORDER BY created_at, id LIMIT 1`

	findZoneByNameSQL = `SELECT ` + zoneColumns + ` FROM shipping_zones
		WHERE active AND lower(name) = lower($1)`

	listZonesSQL = `SELECT ` + zoneColumns + ` FROM shipping_zones
		WHERE active ORDER BY created_at, id`

	upsertZoneSQL = `INSERT INTO shipping_zones (` + zoneColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			province = EXCLUDED.province,
			cities = EXCLUDED.cities,
			price = EXCLUDED.price,
			free_shipping_min = EXCLUDED.free_shipping_min,
			active = EXCLUDED.active`
)

var _ shipping.Repository = (*ZoneRepository)(nil)

// ZoneRepository implements shipping.Repository backed by PostgreSQL.
type ZoneRepository struct {
	q querier
}

// NewZoneRepository returns a ZoneRepository that uses the given pool.
func NewZoneRepository(pool *pgxpool.Pool) *ZoneRepository {
	return &ZoneRepository{q: pool}
}

// FindActiveByProvince returns the oldest active zone whose province
// contains province, ignoring case. Wildcards in province match literally.
func (r *ZoneRepository) FindActiveByProvince(ctx context.Context, province string) (*shipping.Zone, error) {
	return r.findOne(ctx, findZoneByProvinceSQL, escapeLike(province))
}

// FindActiveByName returns the active zone with the given name.
func (r *ZoneRepository) FindActiveByName(ctx context.Context, name string) (*shipping.Zone, error) {
	return r.findOne(ctx, findZoneByNameSQL, name)
}

// List returns the active zones.
func (r *ZoneRepository) List(ctx context.Context) ([]shipping.Zone, error) {
	rows, err := r.q.Query(ctx, listZonesSQL)
	if err != nil {
		return nil, errors.Wrap(err, "list zones")
	}
	return pgx.CollectRows(rows, scanZone)
}

// Upsert inserts or replaces a zone. Used by the seeder.
func (r *ZoneRepository) Upsert(ctx context.Context, z shipping.Zone) error {
	cities := z.Cities
	if cities == nil {
		cities = []string{}
	}
	_, err := r.q.Exec(ctx, upsertZoneSQL, z.ID, z.Name, z.Province, cities, z.Price, z.FreeShippingMin, z.Active)
	if err != nil {
		return errors.Wrapf(err, "upsert zone %q", z.ID)
	}
	return nil
}

func (r *ZoneRepository) findOne(ctx context.Context, query string, arg string) (*shipping.Zone, error) {
	rows, err := r.q.Query(ctx, query, arg)
	if err != nil {
		return nil, errors.Wrap(err, "find zone")
	}
	z, err := pgx.CollectExactlyOneRow(rows, scanZone)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shipping.ErrZoneNotFound
		}
		return nil, errors.Wrap(err, "find zone")
	}
	return &z, nil
}

func scanZone(row pgx.CollectableRow) (shipping.Zone, error) {
	var z shipping.Zone
	err := row.Scan(&z.ID, &z.Name, &z.Province, &z.Cities, &z.Price, &z.FreeShippingMin, &z.Active)
	return z, err
}

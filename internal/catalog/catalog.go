// Package catalog loads product and shipping zone fixtures.
//
// A catalog file is a JSON object with "products" and "zones" arrays. Files
// ending in .gz are gzip compressed. Money fields accept JSON strings or
// numbers.
package catalog

import (
	"context"
	"io"
	"os"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"

	"github.com/lujangrego99/katsuda-store-sub000/internal/domain/product"
	"github.com/lujangrego99/katsuda-store-sub000/internal/domain/shipping"
)

// Catalog is a set of products and shipping zones.
type Catalog struct {
	Products []product.Product
	Zones    []shipping.Zone
}

// Writer stores catalog entries, replacing existing ones with the same ID.
type Writer interface {
	PutProduct(ctx context.Context, p product.Product) error
	PutZone(ctx context.Context, z shipping.Zone) error
}

// Funcs adapts two functions to Writer.
type Funcs struct {
	Product func(ctx context.Context, p product.Product) error
	Zone    func(ctx context.Context, z shipping.Zone) error
}

// PutProduct implements Writer.
func (f Funcs) PutProduct(ctx context.Context, p product.Product) error { return f.Product(ctx, p) }

// PutZone implements Writer.
func (f Funcs) PutZone(ctx context.Context, z shipping.Zone) error { return f.Zone(ctx, z) }

// Apply writes every entry of c to w.
func (c *Catalog) Apply(ctx context.Context, w Writer) error {
	for _, p := range c.Products {
		if err := w.PutProduct(ctx, p); err != nil {
			return errors.Wrapf(err, "put product %s", p.ID)
		}
	}
	for _, z := range c.Zones {
		if err := w.PutZone(ctx, z); err != nil {
			return errors.Wrapf(err, "put zone %s", z.ID)
		}
	}
	return nil
}

// Load reads the catalog file at path.
func Load(path string) (_ *Catalog, rerr error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open catalog")
	}
	defer func() {
		if err := f.Close(); err != nil && rerr == nil {
			rerr = errors.Wrap(err, "close catalog")
		}
	}()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := pgzip.NewReader(f)
		if err != nil {
			return nil, errors.Wrap(err, "open gzip")
		}
		defer func() { _ = gz.Close() }()
		r = gz
	}
	return Decode(r)
}

// Decode parses a catalog document.
func Decode(r io.Reader) (*Catalog, error) {
	var c Catalog
	err := jx.Decode(r, 64*1024).Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "products":
			return d.Arr(func(d *jx.Decoder) error {
				p := product.Product{Active: true}
				if err := d.Obj(func(d *jx.Decoder, key string) error {
					return decodeProductField(d, key, &p)
				}); err != nil {
					return err
				}
				if p.ID == "" || p.Name == "" {
					return errors.New("product without id or name")
				}
				c.Products = append(c.Products, p)
				return nil
			})
		case "zones":
			return d.Arr(func(d *jx.Decoder) error {
				z := shipping.Zone{Active: true}
				if err := d.Obj(func(d *jx.Decoder, key string) error {
					return decodeZoneField(d, key, &z)
				}); err != nil {
					return err
				}
				if z.ID == "" || z.Name == "" || z.Province == "" {
					return errors.New("zone without id, name or province")
				}
				c.Zones = append(c.Zones, z)
				return nil
			})
		default:
			return d.Skip()
		}
	})
	if err != nil {
		return nil, errors.Wrap(err, "decode catalog")
	}
	return &c, nil
}

func decodeProductField(d *jx.Decoder, key string, p *product.Product) error {
	var err error
	switch key {
	case "id":
		p.ID, err = d.Str()
	case "sku":
		p.SKU, err = d.Str()
	case "name":
		p.Name, err = d.Str()
	case "price":
		p.Price, err = money(d)
	case "compareAtPrice":
		p.CompareAtPrice, err = optMoney(d)
	case "transferPrice":
		p.TransferPrice, err = optMoney(d)
	case "stock":
		p.Stock, err = d.Int()
	case "active":
		p.Active, err = d.Bool()
	case "freeShipping":
		p.FreeShipping, err = d.Bool()
	default:
		err = d.Skip()
	}
	if err != nil {
		return errors.Wrapf(err, "product %q", key)
	}
	return nil
}

func decodeZoneField(d *jx.Decoder, key string, z *shipping.Zone) error {
	var err error
	switch key {
	case "id":
		z.ID, err = d.Str()
	case "name":
		z.Name, err = d.Str()
	case "province":
		z.Province, err = d.Str()
	case "cities":
		err = d.Arr(func(d *jx.Decoder) error {
			city, err := d.Str()
			z.Cities = append(z.Cities, city)
			return err
		})
	case "price":
		z.Price, err = money(d)
	case "freeShippingMin":
		z.FreeShippingMin, err = optMoney(d)
	case "active":
		z.Active, err = d.Bool()
	default:
		err = d.Skip()
	}
	if err != nil {
		return errors.Wrapf(err, "zone %q", key)
	}
	return nil
}

func money(d *jx.Decoder) (decimal.Decimal, error) {
	var raw string
	switch d.Next() {
	case jx.String:
		s, err := d.Str()
		if err != nil {
			return decimal.Zero, err
		}
		raw = s
	case jx.Number:
		n, err := d.Num()
		if err != nil {
			return decimal.Zero, err
		}
		raw = string(n)
	default:
		return decimal.Zero, errors.New("money must be a string or a number")
	}
	v, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, err
	}
	if v.IsNegative() {
		return decimal.Zero, errors.Errorf("negative amount %s", raw)
	}
	return v, nil
}

func optMoney(d *jx.Decoder) (*decimal.Decimal, error) {
	if d.Next() == jx.Null {
		return nil, d.Null()
	}
	v, err := money(d)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

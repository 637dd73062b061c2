// Command seed-db loads the product catalog, the shipping zones and a back
// office API key into PostgreSQL. It is safe to run repeatedly.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"

	"github.com/go-faster/errors"

	"github.com/lujangrego99/katsuda-store-sub000/internal/catalog"
	"github.com/lujangrego99/katsuda-store-sub000/internal/domain/auth"
	"github.com/lujangrego99/katsuda-store-sub000/internal/domain/product"
	"github.com/lujangrego99/katsuda-store-sub000/internal/domain/shipping"
	"github.com/lujangrego99/katsuda-store-sub000/internal/storage/postgres"
)

func main() {
	var (
		databaseURL  string
		catalogFile  string
		apiKey       string
		apiKeyPepper string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&catalogFile, "catalog", "db/seed/catalog.json", "catalog file, .json or .json.gz")
	flag.StringVar(&apiKey, "api-key", "", "back office API key to seed (or KATSUDA_SEED_API_KEY env)")
	flag.StringVar(&apiKeyPepper, "api-key-pepper", "", "HMAC pepper for API key hashing (or KATSUDA_API_KEY_PEPPER env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	if apiKey == "" {
		apiKey = os.Getenv("KATSUDA_SEED_API_KEY")
	}
	if apiKeyPepper == "" {
		apiKeyPepper = os.Getenv("KATSUDA_API_KEY_PEPPER")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, catalogFile, apiKey, apiKeyPepper); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, catalogFile, apiKey, pepper string) error {
	slog.Info("reading catalog", slog.String("path", catalogFile))
	c, err := catalog.Load(catalogFile)
	if err != nil {
		return err
	}

	slog.Info("connecting to database")
	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")
	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	products := postgres.NewProductRepository(pool)
	zones := postgres.NewZoneRepository(pool)
	err = c.Apply(ctx, catalog.Funcs{
		Product: func(ctx context.Context, p product.Product) error {
			if err := products.Upsert(ctx, p); err != nil {
				return err
			}
			slog.Info("upserted product", slog.String("id", p.ID), slog.String("sku", p.SKU), slog.Int("stock", p.Stock))
			return nil
		},
		Zone: func(ctx context.Context, z shipping.Zone) error {
			if err := zones.Upsert(ctx, z); err != nil {
				return err
			}
			slog.Info("upserted zone", slog.String("name", z.Name), slog.String("price", z.Price.String()))
			return nil
		},
	})
	if err != nil {
		return errors.Wrap(err, "seed catalog")
	}

	if apiKey == "" {
		slog.Warn("no API key given, back office routes stay locked")
		return nil
	}
	if err := seedAPIKey(ctx, postgres.NewAPIKeyRepository(pool), apiKey, pepper); err != nil {
		return errors.Wrap(err, "seed api key")
	}
	return nil
}

func seedAPIKey(ctx context.Context, keys *postgres.APIKeyRepository, apiKey, pepper string) error {
	info := auth.APIKeyInfo{
		ID:      "backoffice",
		KeyHash: auth.HashKey([]byte(pepper), apiKey),
		Name:    "Back office",
		Scopes:  []string{auth.ScopeOrdersRead, auth.ScopeOrdersWrite},
	}
	if err := keys.Upsert(ctx, info); err != nil {
		return errors.Wrap(err, "upsert API key")
	}

	slog.Info("upserted API key", slog.String("id", info.ID), slog.String("name", info.Name))
	return nil
}

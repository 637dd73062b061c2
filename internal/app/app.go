package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/lujangrego99/katsuda-store-sub000/internal/catalog"
	"github.com/lujangrego99/katsuda-store-sub000/internal/domain/auth"
	"github.com/lujangrego99/katsuda-store-sub000/internal/domain/cart"
	"github.com/lujangrego99/katsuda-store-sub000/internal/domain/checkout"
	"github.com/lujangrego99/katsuda-store-sub000/internal/domain/order"
	"github.com/lujangrego99/katsuda-store-sub000/internal/domain/product"
	"github.com/lujangrego99/katsuda-store-sub000/internal/domain/shipping"
	"github.com/lujangrego99/katsuda-store-sub000/internal/events"
	"github.com/lujangrego99/katsuda-store-sub000/internal/handler"
	"github.com/lujangrego99/katsuda-store-sub000/internal/storage/memory"
	"github.com/lujangrego99/katsuda-store-sub000/internal/storage/postgres"
	"github.com/lujangrego99/katsuda-store-sub000/pkg/health"
	"github.com/lujangrego99/katsuda-store-sub000/pkg/httpmiddleware"
)

const serviceName = "katsuda-api"

// stores is the storage backend selected by Config.Storage.
type stores struct {
	products product.Repository
	carts    cart.Repository
	orders   order.Repository
	zones    shipping.Repository
	apiKeys  auth.Repository
	tx       checkout.Transactor
	// db is nil for memory storage.
	db    health.Pinger
	close func()
}

func openPostgres(ctx context.Context, cfg *Config) (*stores, error) {
	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, errors.Wrap(err, "create db pool")
	}
	if err := postgres.RunMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, errors.Wrap(err, "run migrations")
	}
	return &stores{
		products: postgres.NewProductRepository(pool),
		carts:    postgres.NewCartRepository(pool),
		orders:   postgres.NewOrderRepository(pool),
		zones:    postgres.NewZoneRepository(pool),
		apiKeys:  postgres.NewAPIKeyRepository(pool),
		tx:       postgres.NewTransactor(pool),
		db:       pool,
		close:    pool.Close,
	}, nil
}

func openMemory(ctx context.Context, cfg *Config) (*stores, error) {
	store := memory.New()
	zones := memory.NewZoneRepository()
	keys := memory.NewAPIKeyRepository()

	if cfg.Memory.Catalog != "" {
		c, err := catalog.Load(cfg.Memory.Catalog)
		if err != nil {
			return nil, errors.Wrap(err, "load catalog")
		}
		err = c.Apply(ctx, catalog.Funcs{
			Product: func(_ context.Context, p product.Product) error {
				store.PutProduct(p)
				return nil
			},
			Zone: func(_ context.Context, z shipping.Zone) error {
				zones.Put(z)
				return nil
			},
		})
		if err != nil {
			return nil, errors.Wrap(err, "seed memory storage")
		}
		zctx.From(ctx).Info("Catalog loaded",
			zap.String("path", cfg.Memory.Catalog),
			zap.Int("products", len(c.Products)),
			zap.Int("zones", len(c.Zones)),
		)
	}
	if cfg.Memory.AdminKey != "" {
		keys.Put(auth.APIKeyInfo{
			ID:      "memory-admin",
			KeyHash: auth.HashKey([]byte(cfg.APIKeyPepper), cfg.Memory.AdminKey),
			Name:    "memory admin",
			Scopes:  []string{auth.ScopeOrdersRead, auth.ScopeOrdersWrite},
		})
	}

	return &stores{
		products: store.Products(),
		carts:    store.Carts(),
		orders:   store.Orders(),
		zones:    zones,
		apiKeys:  keys,
		tx:       store,
		close:    func() {},
	}, nil
}

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing",
		zap.String("addr", cfg.Addr),
		zap.String("storage", cfg.Storage),
		zap.String("currency", cfg.Currency),
	)
	ctx = zctx.Base(ctx, lg)

	open := openPostgres
	if cfg.Storage == StorageMemory {
		open = openMemory
	}
	st, err := open(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.close()

	healthSvc := health.New()
	healthSvc.Register(health.Liveness, health.Check{
		Name: "goroutines",
		Func: health.GoroutineCheck(cfg.Health.GoroutineLimit),
	})
	if st.db != nil {
		healthSvc.Register(health.Readiness, health.Check{
			Name:    "postgres",
			Timeout: 5 * time.Second,
			Func:    health.PingCheck(st.db),
		})
	}

	var pub checkout.Publisher
	if len(cfg.Kafka.Brokers) > 0 {
		kp := events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		defer func() {
			if err := kp.Close(); err != nil {
				lg.Warn("Close kafka publisher", zap.Error(err))
			}
		}()
		pub = kp

		// Order events are best effort and stay out of the probes.
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		if err := kp.Ping(pingCtx); err != nil {
			lg.Warn("Kafka unreachable, order events will be dropped", zap.Error(err))
		}
		cancel()
	}

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler:           newRouter(ctx, lg, cfg, st, healthSvc, pub, m.TracerProvider(), m.MeterProvider()),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return healthSvc.Run(gctx, cfg.Health.Interval)
	})
	g.Go(func() error {
		lg.Info("Server listening", zap.String("addr", cfg.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "server")
		}
		return nil
	})
	g.Go(func() error {
		// Graceful shutdown: wait for cancellation, drain, then stop.
		<-gctx.Done()
		healthSvc.SetReady(false)
		lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
		time.Sleep(cfg.Graceful.ReadinessDelay)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			return errors.Wrap(err, "shutdown")
		}
		return nil
	})
	healthSvc.SetReady(true)

	return g.Wait()
}

// newRouter builds the domain services and the instrumented HTTP handler
// serving them. pub may be nil.
func newRouter(
	ctx context.Context,
	lg *zap.Logger,
	cfg *Config,
	st *stores,
	healthSvc *health.Health,
	pub checkout.Publisher,
	tp trace.TracerProvider,
	mp metric.MeterProvider,
) http.Handler {
	resolver := shipping.NewResolver(st.zones, shipping.WithDefaultPrice(cfg.ShippingPrice()))
	checkoutOpts := []checkout.Option{checkout.WithTelemetry(tp, mp)}
	if pub != nil {
		checkoutOpts = append(checkoutOpts, checkout.WithPublisher(pub))
	}

	h := handler.NewHandler(
		handler.HandlerConfig{
			Currency:      cfg.Currency,
			APIKeyPepper:  []byte(cfg.APIKeyPepper),
			SecureCookies: cfg.SecureCookies,
		},
		handler.Services{
			Products: st.products,
			Carts:    cart.NewService(st.carts, st.products),
			Shipping: resolver,
			Checkout: checkout.NewService(st.tx, resolver, order.NewGenerator(cfg.OrderPrefix), checkoutOpts...),
			Orders:   order.NewService(st.orders),
			APIKeys:  st.apiKeys,
		},
	)

	// Mux: health endpoints + API routes on one server.
	mux := http.NewServeMux()
	healthSvc.Routes(mux)
	h.Register(mux)
	routeFinder := httpmiddleware.MakeRouteFinder(mux)

	return httpmiddleware.Wrap(mux,
		httpmiddleware.Recovery(),
		httpmiddleware.CORS(httpmiddleware.CORSConfig{
			Origins:          cfg.CORS.Origins,
			Methods:          []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete},
			Headers:          []string{"Content-Type", handler.HeaderSessionID, handler.HeaderAPIKey, httpmiddleware.HeaderRequestID},
			Expose:           []string{handler.HeaderSessionID, httpmiddleware.HeaderRequestID},
			AllowCredentials: cfg.CORS.AllowCredentials,
			MaxAge:           86400,
		}),
		httpmiddleware.RateLimitWithCleanup(ctx, httpmiddleware.RateLimitConfig{
			Max:     cfg.RateLimit.Max,
			Window:  cfg.RateLimit.Window,
			KeyFunc: httpmiddleware.SessionOrIP(handler.HeaderSessionID, handler.CookieSession),
		}),
		httpmiddleware.InjectLogger(lg),
		httpmiddleware.RequestID(),
		httpmiddleware.Instrument(serviceName, routeFinder, tp, mp),
		httpmiddleware.LogRequests(routeFinder),
	)
}

package app

import (
	"os"
	"strings"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
)

// Storage backends.
const (
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

const defaultAddr = "0.0.0.0:8080"

// Config holds the complete application configuration, loadable from
// environment variables (KATSUDA_ prefix), flags, or YAML config files.
type Config struct {
	Addr        string `default:"0.0.0.0:8080" usage:"API server listen address"`
	DatabaseURL string `usage:"PostgreSQL connection URL (KATSUDA_DATABASE_URL or DATABASE_URL)" flag:"database-url"`
	Storage     string `default:"postgres" usage:"Storage backend: postgres or memory"`

	Currency             string `default:"ARS" usage:"ISO 4217 code of the store currency"`
	OrderPrefix          string `default:"KAT" usage:"Prefix of public order numbers" flag:"order-prefix"`
	DefaultShippingPrice string `default:"5000" usage:"Delivery price when no zone matches the province" flag:"default-shipping-price"`

	APIKeyPepper  string `usage:"HMAC pepper for API key hashing (KATSUDA_API_KEY_PEPPER)" flag:"api-key-pepper"`
	SecureCookies bool   `default:"false" usage:"Mark the session cookie Secure" flag:"secure-cookies"`

	Memory    MemoryConfig
	RateLimit RateLimitConfig
	CORS      CORSConfig
	Kafka     KafkaConfig
	Health    HealthConfig
	Graceful  GracefulConfig
}

// MemoryConfig seeds the memory backend at startup.
type MemoryConfig struct {
	Catalog  string `usage:"Catalog file (.json or .json.gz) loaded into memory storage"`
	AdminKey string `usage:"Back office API key accepted by memory storage"`
}

// RateLimitConfig controls the per-client sliding window rate limiter.
type RateLimitConfig struct {
	Max    int           `default:"120" usage:"Max requests per window"`
	Window time.Duration `default:"1m"  usage:"Rate limit window duration"`
}

// CORSConfig controls Cross-Origin Resource Sharing headers.
type CORSConfig struct {
	Origins          []string `default:"*" usage:"Allowed CORS origins"`
	AllowCredentials bool     `default:"true" usage:"Allow credentials (session cookie)" flag:"cors-credentials"`
}

// KafkaConfig enables order events. Events are off when Brokers is empty.
type KafkaConfig struct {
	Brokers []string `usage:"Kafka bootstrap brokers"`
	Topic   string   `default:"katsuda.orders" usage:"Topic for order events"`
}

// HealthConfig controls background dependency checks.
type HealthConfig struct {
	Interval       time.Duration `default:"10s" usage:"Interval between dependency checks" flag:"health-interval"`
	GoroutineLimit int           `default:"10000" usage:"Liveness fails above this many goroutines" flag:"health-goroutine-limit"`
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"3s"  usage:"Delay after readiness=false before shutdown" flag:"readiness-delay"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration" flag:"shutdown-timeout"`
}

// LoadConfig loads configuration from environment variables, flags and YAML
// config files, then applies platform defaults and validates the result.
func LoadConfig() (*Config, error) {
	return loadConfig(aconfig.Config{
		EnvPrefix: "KATSUDA",
		Files:     []string{"config.yaml", "/etc/katsuda/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
}

func loadConfig(ac aconfig.Config) (*Config, error) {
	var cfg Config
	if err := aconfig.LoaderFor(&cfg, ac).Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()
	if err := cfg.validate(); err != nil {
		return nil, errors.Wrap(err, "invalid config")
	}
	return &cfg, nil
}

// applyPlatformDefaults maps platform-provided environment variables (Railway,
// Render, etc.) that use standard names like DATABASE_URL and PORT to the
// application's KATSUDA_-prefixed configuration.
func (c *Config) applyPlatformDefaults() {
	if c.DatabaseURL == "" {
		c.DatabaseURL = os.Getenv("DATABASE_URL")
	}
	if port := os.Getenv("PORT"); port != "" && c.Addr == defaultAddr {
		c.Addr = "0.0.0.0:" + port
	}
}

func (c *Config) validate() error {
	c.Storage = strings.ToLower(strings.TrimSpace(c.Storage))
	switch c.Storage {
	case StoragePostgres:
		if c.DatabaseURL == "" {
			return errors.New("database URL is required: set KATSUDA_DATABASE_URL or DATABASE_URL")
		}
	case StorageMemory:
	default:
		return errors.Errorf("unknown storage %q", c.Storage)
	}

	unit, err := currency.ParseISO(c.Currency)
	if err != nil {
		return errors.Wrapf(err, "currency %q", c.Currency)
	}
	c.Currency = unit.String()

	c.OrderPrefix = strings.ToUpper(strings.TrimSpace(c.OrderPrefix))
	if c.OrderPrefix == "" || strings.Contains(c.OrderPrefix, "-") {
		return errors.Errorf("order prefix %q must be non-empty and contain no dash", c.OrderPrefix)
	}

	price, err := decimal.NewFromString(c.DefaultShippingPrice)
	if err != nil || price.IsNegative() {
		return errors.Errorf("default shipping price %q must be a non-negative number", c.DefaultShippingPrice)
	}
	c.DefaultShippingPrice = price.String()

	if c.RateLimit.Max <= 0 || c.RateLimit.Window <= 0 {
		return errors.New("rate limit max and window must be positive")
	}
	if len(c.Kafka.Brokers) > 0 && c.Kafka.Topic == "" {
		return errors.New("kafka topic is required when brokers are set")
	}
	return nil
}

// ShippingPrice returns the fallback delivery price. The config must have
// been validated.
func (c *Config) ShippingPrice() decimal.Decimal {
	return decimal.RequireFromString(c.DefaultShippingPrice)
}

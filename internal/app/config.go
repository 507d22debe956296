package app

import (
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/bookie/internal/domain/order"
)

// Storage backends.
const (
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
	BackendMemory   = "memory"
)

// Config holds the complete application configuration, loadable from
// environment variables (BOOKIE_ prefix), flags, or YAML config files.
type Config struct {
	Addr        string `default:"0.0.0.0:8080" usage:"API server listen address"`
	DatabaseURL string `usage:"PostgreSQL connection URL (BOOKIE_DATABASE_URL or DATABASE_URL)" flag:"database-url"`
	Storage     StorageConfig
	Redis       RedisConfig
	Auth        AuthConfig
	Shipping    ShippingConfig
	Catalog     CatalogConfig
	Payment     PaymentConfig
	RateLimit   RateLimitConfig
	CORS        CORSConfig
	Graceful    GracefulConfig
}

// StorageConfig selects the backing stores.
type StorageConfig struct {
	Orders string `default:"postgres" usage:"Order storage: postgres or memory"`
	Carts  string `default:"redis" usage:"Cart storage: redis or memory"`
}

// RedisConfig locates the cart store.
type RedisConfig struct {
	Addr     string        `default:"" usage:"Redis address host:port"`
	URL      string        `default:"" usage:"Redis URL, overrides addr (BOOKIE_REDIS_URL or REDIS_URL)"`
	Password string        `default:"" usage:"Redis password"`
	DB       int           `default:"0" usage:"Redis database number"`
	CartTTL  time.Duration `default:"720h" usage:"Idle cart expiry, 0 keeps carts forever" flag:"cart-ttl"`
}

// AuthConfig controls session token verification.
type AuthConfig struct {
	Secret   string        `usage:"HS256 secret for session tokens (BOOKIE_AUTH_SECRET)" flag:"auth-secret"`
	Issuer   string        `default:"bookie" usage:"Expected token issuer"`
	TokenTTL time.Duration `default:"24h" usage:"Lifetime of tokens minted by tools" flag:"token-ttl"`
}

// ShippingConfig holds the checkout surcharge rule. Amounts are decimal
// strings.
type ShippingConfig struct {
	FreeOver string `default:"50" usage:"Subtotal above which shipping is free" flag:"free-over"`
	FlatFee  string `default:"5.99" usage:"Flat shipping fee" flag:"flat-fee"`
	Currency string `default:"USD" usage:"Currency assumed for items without one"`
}

// Policy parses the configured amounts.
func (s ShippingConfig) Policy() (order.ShippingPolicy, error) {
	freeOver, err := decimal.NewFromString(s.FreeOver)
	if err != nil {
		return order.ShippingPolicy{}, errors.Wrap(err, "shipping free-over")
	}
	fee, err := decimal.NewFromString(s.FlatFee)
	if err != nil {
		return order.ShippingPolicy{}, errors.Wrap(err, "shipping flat fee")
	}
	if freeOver.IsNegative() || fee.IsNegative() {
		return order.ShippingPolicy{}, errors.New("shipping amounts must not be negative")
	}
	return order.ShippingPolicy{FreeOver: freeOver, FlatFee: fee}, nil
}

// CatalogConfig points at the book search service.
type CatalogConfig struct {
	BaseURL string        `default:"https://www.googleapis.com/books/v1/volumes" usage:"Books API volumes endpoint" flag:"catalog-url"`
	APIKey  string        `default:"" usage:"Books API key" flag:"catalog-api-key"`
	Timeout time.Duration `default:"5s" usage:"Catalog request timeout" flag:"catalog-timeout"`
}

// PaymentConfig points at the card processor. Without a secret key the
// sandbox tokenizer is used.
type PaymentConfig struct {
	BaseURL   string        `default:"https://api.stripe.com" usage:"Payment API root" flag:"payment-url"`
	SecretKey string        `default:"" usage:"Payment API secret key (BOOKIE_PAYMENT_SECRET_KEY)" flag:"payment-secret"`
	Timeout   time.Duration `default:"10s" usage:"Payment request timeout" flag:"payment-timeout"`
}

// RateLimitConfig controls the per-client token bucket.
type RateLimitConfig struct {
	Max    int           `default:"100" usage:"Max requests per window"`
	Window time.Duration `default:"1m"  usage:"Rate limit window duration"`
}

// CORSConfig controls Cross-Origin Resource Sharing headers.
type CORSConfig struct {
	Origins          []string `default:"*" usage:"Allowed CORS origins"`
	AllowCredentials bool     `default:"false" usage:"Allow credentials (cookies, auth headers)" flag:"cors-credentials"`
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
		EnvPrefix: "BOOKIE",
		Files:     []string{"config.yaml", "/etc/bookie/config.yaml"},
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
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports the first missing or inconsistent setting.
func (c *Config) Validate() error {
	switch c.Storage.Orders {
	case BackendPostgres:
		if c.DatabaseURL == "" {
			return errors.New("database URL is required: set BOOKIE_DATABASE_URL or DATABASE_URL")
		}
	case BackendMemory:
	default:
		return errors.Errorf("unknown order storage %q", c.Storage.Orders)
	}
	switch c.Storage.Carts {
	case BackendRedis:
		if c.Redis.Addr == "" && c.Redis.URL == "" {
			return errors.New("redis address is required: set BOOKIE_REDIS_ADDR or REDIS_URL")
		}
	case BackendMemory:
	default:
		return errors.Errorf("unknown cart storage %q", c.Storage.Carts)
	}
	if c.Auth.Secret == "" {
		return errors.New("auth secret is required: set BOOKIE_AUTH_SECRET")
	}
	if _, err := c.Shipping.Policy(); err != nil {
		return err
	}
	if c.RateLimit.Max < 1 || c.RateLimit.Window <= 0 {
		return errors.New("rate limit max and window must be positive")
	}
	return nil
}

// applyPlatformDefaults maps platform-provided environment variables (Railway,
// Render, etc.) that use standard names like DATABASE_URL and PORT to the
// application's BOOKIE_-prefixed configuration.
func (c *Config) applyPlatformDefaults() {
	if c.DatabaseURL == "" {
		if v := os.Getenv("DATABASE_URL"); v != "" {
			c.DatabaseURL = v
		}
	}
	if c.Redis.URL == "" {
		if v := os.Getenv("REDIS_URL"); v != "" {
			c.Redis.URL = v
		}
	}
	if port := os.Getenv("PORT"); port != "" && c.Addr == "0.0.0.0:8080" {
		c.Addr = "0.0.0.0:" + port
	}
}

package app

import (
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"

	"github.com/xenking/order-factory/internal/domain/order"
)

// Config holds the complete application configuration, loadable from
// environment variables (ORDERS_ prefix), flags, or YAML config files.
type Config struct {
	Addr        string `default:"0.0.0.0:8080" usage:"API server listen address"`
	DatabaseURL string `usage:"PostgreSQL connection URL (ORDERS_DATABASE_URL or DATABASE_URL)" flag:"database-url"`
	Auth        AuthConfig
	Kafka       KafkaConfig
	Outbox      OutboxConfig
	Factory     FactoryConfig
	RateLimit   RateLimitConfig
	Graceful    GracefulConfig
}

// AuthConfig configures bearer token verification.
type AuthConfig struct {
	JWTSecret string `env:"JWT_SECRET" usage:"HS256 secret for customer tokens (ORDERS_AUTH_JWT_SECRET)" flag:"jwt-secret"`
}

// KafkaConfig selects the brokers and topics order events are published to.
type KafkaConfig struct {
	Brokers      []string `default:"localhost:9092" usage:"Kafka seed brokers"`
	OrdersTopic  string   `default:"orders.events" usage:"Topic for order.created events" flag:"orders-topic"`
	ReindexTopic string   `default:"search.reindex" usage:"Topic for search.reindex_requested events" flag:"reindex-topic"`
}

// OutboxConfig controls the outbox relay.
type OutboxConfig struct {
	Interval  time.Duration `default:"1s" usage:"Outbox poll interval" flag:"outbox-interval"`
	BatchSize int           `default:"100" usage:"Events published per batch" flag:"outbox-batch"`
}

// FactoryConfig is converted once into order.Config at startup.
type FactoryConfig struct {
	DefaultStoreID int64    `default:"0" usage:"Store assigned to orders without one (0 = none)" flag:"default-store-id"`
	StockStatuses  []string `usage:"Order statuses under which lines hold stock (default: open statuses)" flag:"stock-statuses"`
	NumberPrefix   string   `default:"WEB" usage:"Prefix of generated order numbers" flag:"number-prefix"`
}

// OrderConfig validates the section and returns the factory configuration.
func (c FactoryConfig) OrderConfig() (order.Config, error) {
	var cfg order.Config
	if c.DefaultStoreID > 0 {
		id := c.DefaultStoreID
		cfg.DefaultStoreID = &id
	}
	for _, s := range c.StockStatuses {
		st, ok := order.ParseStatus(s)
		if !ok {
			return order.Config{}, errors.Errorf("unknown stock status %q", s)
		}
		cfg.StockStatuses = append(cfg.StockStatuses, st)
	}
	return cfg, nil
}

// RateLimitConfig controls the per-caller sliding window rate limiter on the
// order API.
type RateLimitConfig struct {
	Max    int           `default:"60" usage:"Max order requests per window per caller (0 disables)"`
	Window time.Duration `default:"1m" usage:"Rate limit window duration"`
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"3s"  usage:"Delay after readiness=false before shutdown" flag:"readiness-delay"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration" flag:"shutdown-timeout"`
}

// LoadConfig loads configuration from environment variables, YAML config files,
// and applies platform-specific defaults.
func LoadConfig() (*Config, error) {
	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "ORDERS",
		Files:     []string{"config.yaml", "/etc/orders/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()

	if cfg.DatabaseURL == "" {
		return nil, errors.New("database URL is required: set ORDERS_DATABASE_URL or DATABASE_URL")
	}
	if cfg.Auth.JWTSecret == "" {
		return nil, errors.New("JWT secret is required: set ORDERS_AUTH_JWT_SECRET")
	}
	return &cfg, nil
}

// applyPlatformDefaults maps platform-provided DATABASE_URL and PORT to the
// ORDERS_-prefixed configuration.
func (c *Config) applyPlatformDefaults() {
	if c.DatabaseURL == "" {
		if v := os.Getenv("DATABASE_URL"); v != "" {
			c.DatabaseURL = v
		}
	}
	if port := os.Getenv("PORT"); port != "" && c.Addr == "0.0.0.0:8080" {
		c.Addr = "0.0.0.0:" + port
	}
}

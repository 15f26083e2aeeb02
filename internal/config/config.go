package config

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"

	"github.com/couchcryptid/trip-enrichment-etl/internal/domain"
)

// Config holds all run settings, populated from environment variables.
type Config struct {
	LogLevel        string        `env:"LOG_LEVEL, default=info"`
	LogFormat       string        `env:"LOG_FORMAT, default=json"`
	MetricsAddr     string        `env:"METRICS_ADDR"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT, default=10s"`

	Store  StoreConfig
	Lookup LookupConfig
	Redis  RedisConfig
	Kafka  KafkaConfig
	Run    RunConfig
}

// StoreConfig locates the relational store holding trips and results.
// DSN, when set, is used verbatim and the remaining fields are ignored.
type StoreConfig struct {
	Driver   string `env:"STORE_DRIVER, default=mysql"`
	DSN      string `env:"STORE_DSN"`
	Host     string `env:"STORE_HOST, default=localhost:3306"`
	User     string `env:"STORE_USER, default=root"`
	Password string `env:"STORE_PASSWORD"`
	Database string `env:"STORE_DATABASE, default=taxi"`
	PageSize int    `env:"STORE_PAGE_SIZE, default=1000"`
}

// LookupConfig configures the routing lookup service.
type LookupConfig struct {
	APIKey    string        `env:"LOOKUP_API_KEY"`
	BaseURL   string        `env:"LOOKUP_BASE_URL, default=https://maps.googleapis.com/maps/api/distancematrix/json"`
	Timeout   time.Duration `env:"LOOKUP_TIMEOUT, default=10s"`
	Delay     time.Duration `env:"LOOKUP_DELAY, default=1s"`
	Cache     string        `env:"LOOKUP_CACHE, default=none"`
	CacheSize int           `env:"LOOKUP_CACHE_SIZE, default=1000"`
}

// RedisConfig is used when LOOKUP_CACHE=redis.
type RedisConfig struct {
	Addr string        `env:"REDIS_ADDR, default=localhost:6379"`
	DB   int           `env:"REDIS_DB, default=0"`
	TTL  time.Duration `env:"REDIS_TTL, default=24h"`
}

// KafkaConfig enables publishing of stored results when Brokers is non-empty.
type KafkaConfig struct {
	Brokers []string `env:"KAFKA_BROKERS"`
	Topic   string   `env:"KAFKA_TOPIC, default=trip-distances"`
}

// RunConfig scopes and shapes one pipeline run.
type RunConfig struct {
	IDFrom       string `env:"ID_FROM"`
	IDTo         string `env:"ID_TO"`
	SkipEnrich   bool   `env:"SKIP_ENRICH, default=false"`
	CleanMode    string `env:"CLEAN_MODE, default=filter"`
	ReportFormat string `env:"REPORT_FORMAT, default=table"`
}

// Clean modes.
const (
	CleanFilter = "filter"
	CleanDelete = "delete"
)

// Lookup cache backends.
const (
	CacheNone   = "none"
	CacheMemory = "memory"
	CacheRedis  = "redis"
)

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(context.Background(), &cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadStore reads only the store and logging settings. Tools that never
// call the routing service use it so LOOKUP_API_KEY is not required.
func LoadStore() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(context.Background(), &cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Store.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// IDRange returns the configured extraction bounds.
func (c *Config) IDRange() domain.IDRange {
	return domain.IDRange{From: c.Run.IDFrom, To: c.Run.IDTo}
}

func (s StoreConfig) validate() error {
	switch s.Driver {
	case "mysql", "postgres":
	default:
		return fmt.Errorf("invalid STORE_DRIVER %q: want mysql or postgres", s.Driver)
	}
	if s.DSN == "" && s.Database == "" {
		return errors.New("STORE_DATABASE is required when STORE_DSN is not set")
	}
	if s.PageSize <= 0 {
		return errors.New("invalid STORE_PAGE_SIZE: must be positive")
	}
	return nil
}

func (c *Config) validate() error {
	if err := c.Store.validate(); err != nil {
		return err
	}
	if c.ShutdownTimeout <= 0 {
		return errors.New("invalid SHUTDOWN_TIMEOUT: must be positive")
	}
	if c.Lookup.Timeout <= 0 {
		return errors.New("invalid LOOKUP_TIMEOUT: must be positive")
	}
	if c.Lookup.Delay < 0 {
		return errors.New("invalid LOOKUP_DELAY: must not be negative")
	}
	if !c.Run.SkipEnrich && c.Lookup.APIKey == "" {
		return fmt.Errorf("%w: LOOKUP_API_KEY is required unless SKIP_ENRICH is true", domain.ErrMissingCredential)
	}
	switch c.Lookup.Cache {
	case CacheNone, CacheMemory, CacheRedis:
	default:
		return fmt.Errorf("invalid LOOKUP_CACHE %q: want none, memory or redis", c.Lookup.Cache)
	}
	if c.Lookup.Cache == CacheMemory && c.Lookup.CacheSize <= 0 {
		return errors.New("invalid LOOKUP_CACHE_SIZE: must be positive")
	}
	switch c.Run.CleanMode {
	case CleanFilter, CleanDelete:
	default:
		return fmt.Errorf("invalid CLEAN_MODE %q: want filter or delete", c.Run.CleanMode)
	}
	switch c.Run.ReportFormat {
	case "table", "json":
	default:
		return fmt.Errorf("invalid REPORT_FORMAT %q: want table or json", c.Run.ReportFormat)
	}
	if len(c.Kafka.Brokers) > 0 && c.Kafka.Topic == "" {
		return errors.New("KAFKA_TOPIC is required when KAFKA_BROKERS is set")
	}
	return nil
}

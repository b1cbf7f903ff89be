// File: internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"reseller-billing/internal/domain/model"
)

type RuntimeConfig struct {
	Dev bool
}

type HTTPConfig struct {
	Port           int           `yaml:"port"`
	AllowedOrigins []string      `yaml:"allowed_origins"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type DatabaseConfig struct {
	URL string `yaml:"url"`
}

type RedisConfig struct {
	URL      string        `yaml:"url"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
}

type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret"`
	Issuer    string `yaml:"issuer"`
}

type PlanConfig struct {
	Name         string `yaml:"name"`
	Price        *int64 `yaml:"price"`
	ItemLimit    *int   `yaml:"item_limit"` // -1 for unlimited
	DurationDays int    `yaml:"duration_days"`
}

type CatalogConfig struct {
	Currency string                `yaml:"currency"`
	Plans    map[string]PlanConfig `yaml:"plans"` // keyed by tier
}

type BillingConfig struct {
	WarningWindow       time.Duration `yaml:"warning_window"`
	InvoiceRateLimit    int           `yaml:"invoice_rate_limit"` // invoices per account per window
	InvoiceRateWindow   time.Duration `yaml:"invoice_rate_window"`
	ProofMaxBytes       int64         `yaml:"proof_max_bytes"`
	ExpiryLockTTL       time.Duration `yaml:"expiry_lock_ttl"`
	AccountCacheEnabled bool          `yaml:"account_cache_enabled"`
}

type SchedulerConfig struct {
	ExpiryInterval  time.Duration `yaml:"expiry_interval"`
	SweepInterval   time.Duration `yaml:"sweep_interval"`
	OutboxInterval  time.Duration `yaml:"outbox_interval"`
	DisableExpiry   bool          `yaml:"disable_expiry"` // when an external cron runs cmd/expiry-job
	DBStatsInterval time.Duration `yaml:"db_stats_interval"`
}

type NotifyConfig struct {
	EmailEndpoint string `yaml:"email_endpoint"` // serverless send-email function
	EmailAPIKey   string `yaml:"email_api_key"`
	TelegramToken string `yaml:"telegram_token"`
}

type StorageConfig struct {
	URL        string `yaml:"url"`
	ServiceKey string `yaml:"service_key"`
	Bucket     string `yaml:"bucket"`
}

type OutboxConfig struct {
	BatchSize   int `yaml:"batch_size"`
	MaxAttempts int `yaml:"max_attempts"`
	Workers     int `yaml:"workers"`
}

type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Log       LogConfig       `yaml:"log"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Auth      AuthConfig      `yaml:"auth"`
	Catalog   CatalogConfig   `yaml:"catalog"`
	Billing   BillingConfig   `yaml:"billing"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Notify    NotifyConfig    `yaml:"notify"`
	Storage   StorageConfig   `yaml:"storage"`
	Outbox    OutboxConfig    `yaml:"outbox"`

	Runtime RuntimeConfig `yaml:"-"`
}

// LoadConfig reads the YAML file at path, fills defaults and validates required fields.
func LoadConfig(path string, dev bool) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(b, dev)
}

// Parse is LoadConfig without the file read.
func Parse(b []byte, dev bool) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	// defaults
	if cfg.HTTP.Port <= 0 {
		cfg.HTTP.Port = 8080
	}
	if cfg.HTTP.RequestTimeout <= 0 {
		cfg.HTTP.RequestTimeout = 15 * time.Second
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	cfg.Redis.TTL = normalizeTTL(cfg.Redis.TTL)
	if cfg.Catalog.Currency == "" {
		cfg.Catalog.Currency = "PKR"
	}
	if cfg.Billing.WarningWindow <= 0 {
		cfg.Billing.WarningWindow = 7 * 24 * time.Hour
	}
	if cfg.Billing.InvoiceRateLimit <= 0 {
		cfg.Billing.InvoiceRateLimit = 5
	}
	if cfg.Billing.InvoiceRateWindow <= 0 {
		cfg.Billing.InvoiceRateWindow = time.Hour
	}
	if cfg.Billing.ProofMaxBytes <= 0 {
		cfg.Billing.ProofMaxBytes = 5 << 20
	}
	if cfg.Billing.ExpiryLockTTL <= 0 {
		cfg.Billing.ExpiryLockTTL = 10 * time.Minute
	}
	if cfg.Scheduler.ExpiryInterval <= 0 {
		cfg.Scheduler.ExpiryInterval = time.Hour
	}
	if cfg.Scheduler.SweepInterval <= 0 {
		cfg.Scheduler.SweepInterval = 15 * time.Minute
	}
	if cfg.Scheduler.OutboxInterval <= 0 {
		cfg.Scheduler.OutboxInterval = 10 * time.Second
	}
	if cfg.Scheduler.DBStatsInterval <= 0 {
		cfg.Scheduler.DBStatsInterval = 30 * time.Second
	}
	if cfg.Storage.Bucket == "" {
		cfg.Storage.Bucket = "payment-proofs"
	}
	if cfg.Outbox.BatchSize <= 0 {
		cfg.Outbox.BatchSize = 100
	}
	// Delivery is fire-and-forget: one attempt unless configured otherwise.
	if cfg.Outbox.MaxAttempts <= 0 {
		cfg.Outbox.MaxAttempts = 1
	}
	if cfg.Outbox.Workers <= 0 {
		cfg.Outbox.Workers = 4
	}

	// Minimal validation
	if cfg.Database.URL == "" {
		return nil, errors.New("database.url is required")
	}
	if cfg.Redis.URL == "" {
		return nil, errors.New("redis.url is required")
	}
	if cfg.Auth.JWTSecret == "" {
		return nil, errors.New("auth.jwt_secret is required")
	}

	cfg.Runtime.Dev = dev
	return &cfg, nil
}

// TierCatalog builds the immutable catalog from the catalog section.
func (c *Config) TierCatalog() (*model.TierCatalog, error) {
	overrides := make(map[model.Tier]model.PlanOverride, len(c.Catalog.Plans))
	for name, p := range c.Catalog.Plans {
		t, err := model.ParseTier(name)
		if err != nil {
			return nil, fmt.Errorf("catalog.plans: %w", err)
		}
		overrides[t] = model.PlanOverride{
			Name:         p.Name,
			Price:        p.Price,
			ItemLimit:    p.ItemLimit,
			DurationDays: p.DurationDays,
		}
	}
	return model.NewTierCatalog(c.Catalog.Currency, overrides)
}

func normalizeTTL(d time.Duration) time.Duration {
	if d <= 0 {
		return time.Hour
	}
	return d
}

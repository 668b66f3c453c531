package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	Log       LogConfig
	HTTP      HTTPConfig
	Webhook   WebhookConfig
	Supplier  SupplierConfig
	Dispatch  DispatchConfig
	Scheduler SchedulerConfig
	Telemetry TelemetryConfig
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
	Port string
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int // in minutes
	ConnMaxIdleTime int // in minutes
}

// DSN returns the Postgres connection string
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// Addr returns the host:port address
func (c *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// JWTConfig holds operator API token settings
type JWTConfig struct {
	Secret     string
	Issuer     string
	Expiration time.Duration
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	MaxHeaderBytes int
	MaxBodySize    int64
	TrustedProxies []string
}

// WebhookConfig holds webhook gateway configuration
type WebhookConfig struct {
	// Secrets maps a webhook source to its shared HMAC secret
	Secrets map[string]string
	// ProcessorEnabled starts the background interpretation worker
	ProcessorEnabled bool
	// PollInterval is how often the processor claims due events
	PollInterval time.Duration
	// BatchSize is how many due events one poll claims
	BatchSize int
	// DedupTTL bounds the redis fast-path dedup window
	DedupTTL time.Duration
	// CleanupRetention is how long processed events are kept
	CleanupRetention time.Duration
	// StripeTolerance is the timestamp tolerance for stripe-style signatures
	StripeTolerance time.Duration
}

// SupplierEntry is one supplier the line items of an order may reference
type SupplierEntry struct {
	ID   string
	Code string
	Name string
}

// SupplierConfig holds supplier integration settings
type SupplierConfig struct {
	// Directory lists the suppliers known to this deployment
	Directory []SupplierEntry
	// BaseURLs maps a supplier code to its API base URL
	BaseURLs map[string]string
	// APIKeys maps a supplier code to its API credential
	APIKeys map[string]string
	// RateLimit is the request rate allowed per supplier API, in requests
	// per second
	RateLimit float64
	// RateBurst is the burst size for the per-supplier limiter
	RateBurst int
}

// DispatchConfig holds fulfillment dispatcher configuration
type DispatchConfig struct {
	// PlacementTimeout bounds one supplier placement call
	PlacementTimeout time.Duration
	// MaxAttempts bounds transient-error retries per placement
	MaxAttempts int
	// RetryBackoff is the base delay between placement retries
	RetryBackoff time.Duration
	// BulkConcurrency bounds the bulk dispatch worker pool
	BulkConcurrency int
	// LockTTL bounds how long a (order, supplier) advisory lock may be held
	LockTTL time.Duration
}

// SchedulerConfig holds the periodic job configuration
type SchedulerConfig struct {
	Enabled bool
	// SweepSchedule is the cron expression for the stuck-order sweep
	SweepSchedule string
	// SweepStuckAfter is how long a Placing/Shipped supplier order may sit
	// untouched before the sweep re-drives it
	SweepStuckAfter time.Duration
	// SyncSchedule is the cron expression for periodic storefront sync
	SyncSchedule string
}

// TelemetryConfig holds OpenTelemetry configuration
type TelemetryConfig struct {
	Enabled           bool
	CollectorEndpoint string
	ServiceName       string
	SamplingRatio     float64
	Insecure          bool
}

// Load loads configuration from a TOML file and environment variables.
// Priority (highest to lowest):
//  1. Environment variables with DROPSHIP_ prefix (e.g., DROPSHIP_DATABASE_PASSWORD)
//  2. config.toml
//  3. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// No config file is fine; defaults and env vars apply.
	}

	v.SetEnvPrefix("DROPSHIP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
			Port: v.GetString("app.port"),
		},
		Database: DatabaseConfig{
			Host:            v.GetString("database.host"),
			Port:            v.GetInt("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			DBName:          v.GetString("database.dbname"),
			SSLMode:         v.GetString("database.sslmode"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetInt("database.conn_max_lifetime"),
			ConnMaxIdleTime: v.GetInt("database.conn_max_idle_time"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		JWT: JWTConfig{
			Secret:     v.GetString("jwt.secret"),
			Issuer:     v.GetString("jwt.issuer"),
			Expiration: v.GetDuration("jwt.expiration"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:    v.GetDuration("http.read_timeout"),
			WriteTimeout:   v.GetDuration("http.write_timeout"),
			IdleTimeout:    v.GetDuration("http.idle_timeout"),
			MaxHeaderBytes: v.GetInt("http.max_header_bytes"),
			MaxBodySize:    v.GetInt64("http.max_body_size"),
			TrustedProxies: v.GetStringSlice("http.trusted_proxies"),
		},
		Webhook: WebhookConfig{
			Secrets:          v.GetStringMapString("webhook.secrets"),
			ProcessorEnabled: v.GetBool("webhook.processor_enabled"),
			PollInterval:     v.GetDuration("webhook.poll_interval"),
			BatchSize:        v.GetInt("webhook.batch_size"),
			DedupTTL:         v.GetDuration("webhook.dedup_ttl"),
			CleanupRetention: v.GetDuration("webhook.cleanup_retention"),
			StripeTolerance:  v.GetDuration("webhook.stripe_tolerance"),
		},
		Supplier: SupplierConfig{
			BaseURLs:  v.GetStringMapString("supplier.base_urls"),
			APIKeys:   v.GetStringMapString("supplier.api_keys"),
			RateLimit: v.GetFloat64("supplier.rate_limit"),
			RateBurst: v.GetInt("supplier.rate_burst"),
		},
		Dispatch: DispatchConfig{
			PlacementTimeout: v.GetDuration("dispatch.placement_timeout"),
			MaxAttempts:      v.GetInt("dispatch.max_attempts"),
			RetryBackoff:     v.GetDuration("dispatch.retry_backoff"),
			BulkConcurrency:  v.GetInt("dispatch.bulk_concurrency"),
			LockTTL:          v.GetDuration("dispatch.lock_ttl"),
		},
		Scheduler: SchedulerConfig{
			Enabled:         v.GetBool("scheduler.enabled"),
			SweepSchedule:   v.GetString("scheduler.sweep_schedule"),
			SweepStuckAfter: v.GetDuration("scheduler.sweep_stuck_after"),
			SyncSchedule:    v.GetString("scheduler.sync_schedule"),
		},
		Telemetry: TelemetryConfig{
			Enabled:           v.GetBool("telemetry.enabled"),
			CollectorEndpoint: v.GetString("telemetry.collector_endpoint"),
			ServiceName:       v.GetString("telemetry.service_name"),
			SamplingRatio:     v.GetFloat64("telemetry.sampling_ratio"),
			Insecure:          v.GetBool("telemetry.insecure"),
		},
	}

	if err := v.UnmarshalKey("supplier.directory", &cfg.Supplier.Directory); err != nil {
		return nil, fmt.Errorf("error parsing supplier directory: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// setDefaults applies built-in defaults
func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "dropship-backend")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "dropship")
	v.SetDefault("database.dbname", "dropship")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.conn_max_lifetime", 30)
	v.SetDefault("database.conn_max_idle_time", 10)

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)

	v.SetDefault("jwt.issuer", "dropship-backend")
	v.SetDefault("jwt.expiration", 24*time.Hour)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.output", "stdout")

	v.SetDefault("http.read_timeout", 15*time.Second)
	v.SetDefault("http.write_timeout", 15*time.Second)
	v.SetDefault("http.idle_timeout", 60*time.Second)
	v.SetDefault("http.max_header_bytes", 1<<20)
	v.SetDefault("http.max_body_size", int64(1<<20))

	v.SetDefault("webhook.processor_enabled", true)
	v.SetDefault("webhook.poll_interval", time.Second)
	v.SetDefault("webhook.batch_size", 50)
	v.SetDefault("webhook.dedup_ttl", 24*time.Hour)
	v.SetDefault("webhook.cleanup_retention", 30*24*time.Hour)
	v.SetDefault("webhook.stripe_tolerance", 5*time.Minute)

	v.SetDefault("supplier.rate_limit", 5.0)
	v.SetDefault("supplier.rate_burst", 10)

	v.SetDefault("dispatch.placement_timeout", 30*time.Second)
	v.SetDefault("dispatch.max_attempts", 3)
	v.SetDefault("dispatch.retry_backoff", time.Second)
	v.SetDefault("dispatch.bulk_concurrency", 16)
	v.SetDefault("dispatch.lock_ttl", 45*time.Second)

	v.SetDefault("scheduler.enabled", true)
	v.SetDefault("scheduler.sweep_schedule", "*/5 * * * *")
	v.SetDefault("scheduler.sweep_stuck_after", 10*time.Minute)
	v.SetDefault("scheduler.sync_schedule", "*/15 * * * *")

	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.collector_endpoint", "localhost:4317")
	v.SetDefault("telemetry.service_name", "dropship-backend")
	v.SetDefault("telemetry.sampling_ratio", 1.0)
	v.SetDefault("telemetry.insecure", true)
}

// Validate checks configuration invariants that would otherwise surface as
// confusing runtime failures
func (c *Config) Validate() error {
	if c.Dispatch.BulkConcurrency < 1 {
		return fmt.Errorf("dispatch.bulk_concurrency must be at least 1, got %d", c.Dispatch.BulkConcurrency)
	}
	if c.Dispatch.MaxAttempts < 1 {
		return fmt.Errorf("dispatch.max_attempts must be at least 1, got %d", c.Dispatch.MaxAttempts)
	}
	if c.Dispatch.LockTTL <= c.Dispatch.PlacementTimeout {
		return fmt.Errorf("dispatch.lock_ttl (%s) must exceed dispatch.placement_timeout (%s)",
			c.Dispatch.LockTTL, c.Dispatch.PlacementTimeout)
	}
	if c.Supplier.RateLimit <= 0 {
		return fmt.Errorf("supplier.rate_limit must be positive, got %v", c.Supplier.RateLimit)
	}
	if c.Webhook.BatchSize < 1 {
		return fmt.Errorf("webhook.batch_size must be at least 1, got %d", c.Webhook.BatchSize)
	}
	if c.App.Env == "production" && c.JWT.Secret == "" {
		return fmt.Errorf("jwt.secret is required in production")
	}
	return nil
}

// IsProduction returns true when running in the production environment
func (c *Config) IsProduction() bool {
	return c.App.Env == "production"
}

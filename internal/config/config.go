package config

import (
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strings"
	"time"

	pkgconfig "github.com/yangxb919/prspares-website/pkg/config"
	"github.com/yangxb919/prspares-website/pkg/database"
	"github.com/yangxb919/prspares-website/pkg/tracing"
)

// DefaultSessionSecret is only accepted in development.
const DefaultSessionSecret = "dev-only-session-secret-change-me"

// Config holds all configuration for the catalog service.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	Version     string `env:"SERVICE_VERSION" envDefault:"dev"`

	// HTTP server
	HTTPPort int `env:"HTTP_PORT" envDefault:"8080"`

	// PostgreSQL
	PostgresHost string `env:"POSTGRES_HOST" envDefault:"localhost"`
	PostgresPort int    `env:"POSTGRES_PORT" envDefault:"5432"`
	PostgresUser string `env:"POSTGRES_USER" envDefault:"prspares"`
	PostgresPass string `env:"POSTGRES_PASSWORD" envDefault:"prspares_secret"`
	PostgresDB   string `env:"CATALOG_DB_NAME" envDefault:"prspares_catalog"`
	PostgresSSL  string `env:"POSTGRES_SSL_MODE" envDefault:"disable"`

	// Database pool
	DBMaxConns            int32 `env:"DB_MAX_CONNS" envDefault:"10"`
	DBMinConns            int32 `env:"DB_MIN_CONNS" envDefault:"2"`
	DBMaxConnLifetimeMins int   `env:"DB_MAX_CONN_LIFETIME_MINUTES" envDefault:"60"`
	DBMaxConnIdleTimeMins int   `env:"DB_MAX_CONN_IDLE_TIME_MINUTES" envDefault:"30"`
	RunMigrations         bool  `env:"RUN_MIGRATIONS" envDefault:"true"`

	// Redis
	RedisHost           string `env:"REDIS_HOST" envDefault:"localhost"`
	RedisPort           int    `env:"REDIS_PORT" envDefault:"6379"`
	RedisPass           string `env:"REDIS_PASSWORD" envDefault:""`
	RedisDB             int    `env:"REDIS_DB" envDefault:"0"`
	CatalogCacheTTLSecs int    `env:"CATALOG_CACHE_TTL_SECONDS" envDefault:"0"`
	UserCacheTTLSecs    int    `env:"USER_CACHE_TTL_SECONDS" envDefault:"300"`

	// Kafka
	KafkaEnabled       bool     `env:"KAFKA_ENABLED" envDefault:"false"`
	KafkaBrokers       []string `env:"KAFKA_BROKERS" envDefault:"localhost:9092" envSeparator:","`
	KafkaConsumerGroup string   `env:"KAFKA_CONSUMER_GROUP" envDefault:"prspares-catalog"`

	// OpenTelemetry
	OTELEnabled    bool    `env:"OTEL_ENABLED" envDefault:"false"`
	OTELEndpoint   string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4318"`
	OTELInsecure   bool    `env:"OTEL_EXPORTER_OTLP_INSECURE" envDefault:"true"`
	OTELSampleRate float64 `env:"OTEL_SAMPLE_RATE" envDefault:"1.0"`

	// Sessions and the access gate
	SessionSecret     string `env:"SESSION_SECRET" envDefault:"dev-only-session-secret-change-me"`
	SessionCookieName string `env:"SESSION_COOKIE_NAME" envDefault:"prs_session"`
	LoginPath         string `env:"LOGIN_PATH" envDefault:"/login"`

	// Catalog data endpoint as seen by the pricing page. Empty derives the
	// origin from each incoming request.
	CatalogAPIBaseURL string `env:"CATALOG_API_BASE_URL" envDefault:""`

	// Per-IP limit on /api routes
	APIRateLimitRPS   float64 `env:"API_RATE_LIMIT_RPS" envDefault:"20"`
	APIRateLimitBurst int     `env:"API_RATE_LIMIT_BURST" envDefault:"40"`

	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`

	// Pprof debug endpoints (IP allowlist in CIDR notation)
	PprofAllowedCIDRs []string `env:"PPROF_ALLOWED_CIDRS" envDefault:"10.0.0.0/8,172.16.0.0/12,192.168.0.0/16,127.0.0.0/8,::1/128" envSeparator:","`

	// Slow query logging
	SlowQueryThresholdMs int `env:"LOG_SLOW_QUERY_MS" envDefault:"500"`
}

// Load reads configuration from the process environment.
func Load() (*Config, error) {
	return LoadFrom(nil)
}

// LoadFrom reads configuration from environment, or from the process
// environment when environment is nil.
func LoadFrom(environment map[string]string) (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.LoadWithEnv(cfg, environment); err != nil {
		return nil, fmt.Errorf("load catalog config: %w", err)
	}
	return cfg, nil
}

// Validate checks values env tags cannot express.
func (c *Config) Validate() error {
	var errs []error
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		errs = append(errs, fmt.Errorf("invalid HTTP port: %d", c.HTTPPort))
	}
	if c.PostgresHost == "" {
		errs = append(errs, errors.New("POSTGRES_HOST is required"))
	}
	if c.PostgresUser == "" {
		errs = append(errs, errors.New("POSTGRES_USER is required"))
	}
	if c.KafkaEnabled && (len(c.KafkaBrokers) == 0 || slices.Contains(c.KafkaBrokers, "")) {
		errs = append(errs, fmt.Errorf("KAFKA_BROKERS must list broker addresses, got %q", c.KafkaBrokers))
	}
	if c.OTELSampleRate < 0 || c.OTELSampleRate > 1.0 {
		errs = append(errs, fmt.Errorf("OTEL_SAMPLE_RATE must be between 0.0 and 1.0, got %f", c.OTELSampleRate))
	}
	if len(c.SessionSecret) < 16 {
		errs = append(errs, errors.New("SESSION_SECRET must be at least 16 bytes"))
	}
	if c.SessionSecret == DefaultSessionSecret && !c.IsDevelopment() {
		errs = append(errs, fmt.Errorf("SESSION_SECRET must be set outside development (environment %q)", c.Environment))
	}
	if !strings.HasPrefix(c.LoginPath, "/") && !isAbsoluteURL(c.LoginPath) {
		errs = append(errs, fmt.Errorf("LOGIN_PATH must be a path or absolute URL, got %q", c.LoginPath))
	}
	if c.CatalogAPIBaseURL != "" && !isAbsoluteURL(c.CatalogAPIBaseURL) {
		errs = append(errs, fmt.Errorf("CATALOG_API_BASE_URL must be an absolute http(s) URL, got %q", c.CatalogAPIBaseURL))
	}
	if c.APIRateLimitRPS <= 0 || c.APIRateLimitBurst < 1 {
		errs = append(errs, errors.New("API_RATE_LIMIT_RPS and API_RATE_LIMIT_BURST must be positive"))
	}
	if c.CatalogCacheTTLSecs < 0 || c.UserCacheTTLSecs < 0 {
		errs = append(errs, errors.New("cache TTLs must not be negative"))
	}
	return errors.Join(errs...)
}

// IsDevelopment reports whether the service runs in a development environment.
func (c *Config) IsDevelopment() bool {
	switch strings.ToLower(c.Environment) {
	case "development", "dev", "local", "test":
		return true
	}
	return false
}

// Postgres returns the pool configuration.
func (c *Config) Postgres() database.PostgresConfig {
	return database.PostgresConfig{
		Host:            c.PostgresHost,
		Port:            c.PostgresPort,
		User:            c.PostgresUser,
		Password:        c.PostgresPass,
		DBName:          c.PostgresDB,
		SSLMode:         c.PostgresSSL,
		MaxConns:        c.DBMaxConns,
		MinConns:        c.DBMinConns,
		MaxConnLifetime: time.Duration(c.DBMaxConnLifetimeMins) * time.Minute,
		MaxConnIdleTime: time.Duration(c.DBMaxConnIdleTimeMins) * time.Minute,
	}
}

// Redis returns the Redis client configuration.
func (c *Config) Redis() database.RedisConfig {
	cfg := database.DefaultRedisConfig()
	cfg.Host = c.RedisHost
	cfg.Port = c.RedisPort
	cfg.Password = c.RedisPass
	cfg.DB = c.RedisDB
	return cfg
}

// Tracing returns the OpenTelemetry configuration for serviceName.
func (c *Config) Tracing(serviceName string) tracing.Config {
	return tracing.Config{
		ServiceName:    serviceName,
		ServiceVersion: c.Version,
		Environment:    c.Environment,
		Endpoint:       c.OTELEndpoint,
		Insecure:       c.OTELInsecure,
		SampleRate:     c.OTELSampleRate,
		Enabled:        c.OTELEnabled,
	}
}

// CatalogCacheTTL is how long a cached catalog page lives. Zero, the
// default, reads every request from Postgres.
func (c *Config) CatalogCacheTTL() time.Duration {
	return time.Duration(c.CatalogCacheTTLSecs) * time.Second
}

// UserCacheTTL is how long a cached user lives.
func (c *Config) UserCacheTTL() time.Duration {
	return time.Duration(c.UserCacheTTLSecs) * time.Second
}

// SlowQueryThreshold returns the slow query log threshold; zero disables it.
func (c *Config) SlowQueryThreshold() time.Duration {
	return time.Duration(c.SlowQueryThresholdMs) * time.Millisecond
}

func isAbsoluteURL(s string) bool {
	u, err := url.Parse(s)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

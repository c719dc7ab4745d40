package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the Kirk analytics service.
type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	ClickHouse ClickHouseConfig
	Auth       AuthConfig
	RateLimit  RateLimitConfig
	Log        LogConfig
	Metrics    MetricsConfig
	Geo        GeoConfig
	Reporting  ReportingConfig
}

type ServerConfig struct {
	Addr            string
	Env             string
	ShutdownTimeout time.Duration
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
	MaxConns int
	MinConns int
}

// DSN returns the PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// ClickHouseConfig configures the analytics fact warehouse.
type ClickHouseConfig struct {
	Addr     string
	Database string
	User     string
	Password string
}

type AuthConfig struct {
	Enabled   bool
	MasterKey string
	SkipPaths []string
}

type RateLimitConfig struct {
	Enabled bool
	RPS     float64
	Burst   int
}

type LogConfig struct {
	Level  string
	Format string
}

// MetricsConfig configures Prometheus metrics.
type MetricsConfig struct {
	Enabled bool
	Path    string
}

// GeoConfig configures GeoIP lookup for scan ingestion.
type GeoConfig struct {
	Enabled      bool
	DatabasePath string
	CacheSize    int
	CacheTTL     time.Duration
}

// ReportingConfig holds aggregation layer settings.
type ReportingConfig struct {
	// TopCampaignLimit caps top-N campaign rankings to bound payload size.
	TopCampaignLimit int
	// DefaultWindowDays is the trailing window used when no range is given.
	DefaultWindowDays int
	// MonthlyBucketDays is the window length above which time series switch
	// from daily to monthly buckets.
	MonthlyBucketDays int
}

// Load reads configuration from environment variables with sensible defaults.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Addr:            getEnv("KIRK_HTTP_ADDR", ":8080"),
			Env:             getEnv("KIRK_ENV", "development"),
			ShutdownTimeout: getDurationEnv("KIRK_SHUTDOWN_TIMEOUT", 30*time.Second),
		},
		Database: DatabaseConfig{
			Host:     getEnv("KIRK_DB_HOST", "localhost"),
			Port:     getIntEnv("KIRK_DB_PORT", 5432),
			User:     getEnv("KIRK_DB_USER", "kirk"),
			Password: getEnv("KIRK_DB_PASSWORD", "kirk_secret"),
			DBName:   getEnv("KIRK_DB_NAME", "kirk"),
			SSLMode:  getEnv("KIRK_DB_SSLMODE", "disable"),
			MaxConns: getIntEnv("KIRK_DB_MAX_CONNS", 25),
			MinConns: getIntEnv("KIRK_DB_MIN_CONNS", 5),
		},
		Redis: RedisConfig{
			Addr:     getEnv("KIRK_REDIS_ADDR", "localhost:6379"),
			Password: getEnv("KIRK_REDIS_PASSWORD", ""),
			DB:       getIntEnv("KIRK_REDIS_DB", 0),
		},
		ClickHouse: ClickHouseConfig{
			Addr:     getEnv("KIRK_CLICKHOUSE_ADDR", "localhost:9000"),
			Database: getEnv("KIRK_CLICKHOUSE_DB", "kirk"),
			User:     getEnv("KIRK_CLICKHOUSE_USER", "default"),
			Password: getEnv("KIRK_CLICKHOUSE_PASSWORD", ""),
		},
		Auth: AuthConfig{
			Enabled:   getBoolEnv("KIRK_AUTH_ENABLED", true),
			MasterKey: getEnv("KIRK_API_KEY_MASTER", ""),
			SkipPaths: getSliceEnv("KIRK_AUTH_SKIP_PATHS", []string{"/health", "/metrics", "/t/scan"}),
		},
		RateLimit: RateLimitConfig{
			Enabled: getBoolEnv("KIRK_RATE_LIMIT_ENABLED", true),
			RPS:     getFloatEnv("KIRK_RATE_LIMIT_RPS", 100),
			Burst:   getIntEnv("KIRK_RATE_LIMIT_BURST", 20),
		},
		Log: LogConfig{
			Level:  getEnv("KIRK_LOG_LEVEL", "info"),
			Format: getEnv("KIRK_LOG_FORMAT", "json"),
		},
		Metrics: MetricsConfig{
			Enabled: getBoolEnv("KIRK_METRICS_ENABLED", true),
			Path:    getEnv("KIRK_METRICS_PATH", "/metrics"),
		},
		Geo: GeoConfig{
			Enabled:      getBoolEnv("KIRK_GEO_ENABLED", false),
			DatabasePath: getEnv("KIRK_GEO_DB_PATH", "/app/data/GeoLite2-Country.mmdb"),
			CacheSize:    getIntEnv("KIRK_GEO_CACHE_SIZE", 10000),
			CacheTTL:     getDurationEnv("KIRK_GEO_CACHE_TTL", 1*time.Hour),
		},
		Reporting: ReportingConfig{
			TopCampaignLimit:  getIntEnv("KIRK_REPORT_TOP_CAMPAIGNS", 50),
			DefaultWindowDays: getIntEnv("KIRK_REPORT_DEFAULT_WINDOW_DAYS", 30),
			MonthlyBucketDays: getIntEnv("KIRK_REPORT_MONTHLY_BUCKET_DAYS", 92),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that required configuration is present.
func (c *Config) Validate() error {
	if c.Auth.Enabled && c.Auth.MasterKey == "" {
		return fmt.Errorf("KIRK_API_KEY_MASTER is required when auth is enabled")
	}
	if c.Reporting.TopCampaignLimit <= 0 {
		return fmt.Errorf("KIRK_REPORT_TOP_CAMPAIGNS must be positive")
	}
	if c.Reporting.DefaultWindowDays <= 0 {
		return fmt.Errorf("KIRK_REPORT_DEFAULT_WINDOW_DAYS must be positive")
	}
	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Server.Env == "development"
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.Server.Env == "production"
}

// Helper functions for reading environment variables

func getEnv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func getIntEnv(key string, def int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getFloatEnv(key string, def float64) float64 {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getBoolEnv(key string, def bool) bool {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func getDurationEnv(key string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func getSliceEnv(key string, def []string) []string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				result = append(result, p)
			}
		}
		return result
	}
	return def
}

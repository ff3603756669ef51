package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/platinummonkey/masthead/pkg/audit"
	"github.com/platinummonkey/masthead/pkg/observability"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Server ServerConfig `yaml:"server"`

	// Database holding the audit log, and optionally the CMS users and posts
	Database DatabaseConfig `yaml:"database"`

	// Redis configuration, used by the retention lock
	Redis RedisConfig `yaml:"redis"`

	// Retention configuration
	Retention RetentionConfig `yaml:"retention"`

	// Security configuration
	Security SecurityConfig `yaml:"security"`

	// Observers configuration
	Observers ObserversConfig `yaml:"observers"`

	// Site seeds the in-memory site when Database.SiteSource is "memory"
	Site SiteSeed `yaml:"site"`

	// Observability configuration
	Observability ObservabilityConfig `yaml:"observability"`

	// File is the YAML file the configuration was overlaid from, if any
	File string `yaml:"-"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            string        `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// Health/metrics server (separate port for k8s probes)
	HealthPort string `yaml:"health_port"`
}

// Site sources
const (
	SiteSourceMemory = "memory"
	SiteSourceSQL    = "sql"
)

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Driver       string `yaml:"driver"` // postgres or sqlite3
	DSN          string `yaml:"dsn"`
	Table        string `yaml:"table"`
	MaxOpenConns int    `yaml:"max_open_conns"`

	// SiteSource selects where users, posts and categories are read from
	SiteSource string `yaml:"site_source"`
}

// RedisConfig holds redis connection settings
type RedisConfig struct {
	URL      string `yaml:"url"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// Archive kinds
const (
	ArchiveNone = ""
	ArchiveS3   = "s3"
	ArchiveFile = "file"
)

// RetentionConfig holds audit retention settings
type RetentionConfig struct {
	// Days is the initial window. 0 means the default.
	Days     int    `yaml:"days"`
	Schedule string `yaml:"schedule"`

	// Lock makes replicas share one retention pass through redis
	Lock bool `yaml:"lock"`

	Archive ArchiveConfig `yaml:"archive"`
}

// ArchiveConfig selects where expired entries are copied before deletion
type ArchiveConfig struct {
	Kind string `yaml:"kind"`
	Dir  string `yaml:"dir"`

	S3Bucket       string `yaml:"s3_bucket"`
	S3Prefix       string `yaml:"s3_prefix"`
	S3Region       string `yaml:"s3_region"`
	S3Endpoint     string `yaml:"s3_endpoint"`
	S3AccessKey    string `yaml:"s3_access_key"`
	S3SecretKey    string `yaml:"s3_secret_key"`
	S3UsePathStyle bool   `yaml:"s3_use_path_style"`
}

// SecurityConfig holds secrets and access settings
type SecurityConfig struct {
	NonceSecret   string `yaml:"nonce_secret"`
	WebhookSecret string `yaml:"webhook_secret"`

	// WebhookRateLimit is the number of deliveries a sender may make per
	// WebhookRatePeriod. 0 disables the limit.
	WebhookRateLimit  int           `yaml:"webhook_rate_limit"`
	WebhookRatePeriod time.Duration `yaml:"webhook_rate_period"`

	// APITokens maps bearer tokens to CMS user IDs
	APITokens map[string]int64 `yaml:"api_tokens"`

	ReadCapability string `yaml:"read_capability"`
}

// ObserversConfig extends the built-in observer settings
type ObserversConfig struct {
	DeniedOptionKeys     []string      `yaml:"denied_option_keys"`
	DeniedOptionPrefixes []string      `yaml:"denied_option_prefixes"`
	TermCacheSize        int           `yaml:"term_cache_size"`
	TermCacheTTL         time.Duration `yaml:"term_cache_ttl"`
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	// Logging
	LogLevel string `yaml:"log_level"`

	// Metrics
	MetricsEnabled bool `yaml:"metrics_enabled"`

	// OpenTelemetry
	OTelEnabled        bool   `yaml:"otel_enabled"`
	OTelEndpoint       string `yaml:"otel_endpoint"`
	OTelServiceName    string `yaml:"otel_service_name"`
	OTelServiceVersion string `yaml:"otel_service_version"`
	OTelInsecure       bool   `yaml:"otel_insecure"` // Use insecure gRPC connection

	// OTelSampleRatio is the fraction of root spans kept; 0 keeps all
	OTelSampleRatio float64 `yaml:"otel_sample_ratio"`
}

// Level returns the parsed log level
func (o ObservabilityConfig) Level() observability.LogLevel {
	return parseLogLevel(o.LogLevel)
}

// LoadConfig loads configuration from environment variables, then overlays
// the YAML file named by MASTHEAD_CONFIG_FILE
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Server:        loadServerConfig(),
		Database:      loadDatabaseConfig(),
		Redis:         loadRedisConfig(),
		Retention:     loadRetentionConfig(),
		Security:      loadSecurityConfig(),
		Observability: loadObservabilityConfig(),
	}

	if path := getEnv("MASTHEAD_CONFIG_FILE", ""); path != "" {
		if err := cfg.overlayFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// overlayFile decodes the YAML file on top of cfg. Keys missing from the
// file keep their current values.
func (c *Config) overlayFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	c.File = path
	return nil
}

// loadServerConfig loads server configuration from environment
func loadServerConfig() ServerConfig {
	return ServerConfig{
		Host:            getEnv("MASTHEAD_HOST", "0.0.0.0"),
		Port:            getEnv("MASTHEAD_PORT", "8080"),
		ReadTimeout:     getEnvDuration("MASTHEAD_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:    getEnvDuration("MASTHEAD_WRITE_TIMEOUT", 60*time.Second),
		IdleTimeout:     getEnvDuration("MASTHEAD_IDLE_TIMEOUT", 60*time.Second),
		ShutdownTimeout: getEnvDuration("MASTHEAD_SHUTDOWN_TIMEOUT", 30*time.Second),
		HealthPort:      getEnv("MASTHEAD_HEALTH_PORT", "9090"),
	}
}

// loadDatabaseConfig loads database configuration from environment
func loadDatabaseConfig() DatabaseConfig {
	return DatabaseConfig{
		Driver:       getEnv("MASTHEAD_DB_DRIVER", "sqlite3"),
		DSN:          getEnv("MASTHEAD_DB_DSN", "masthead.db"),
		Table:        getEnv("MASTHEAD_AUDIT_TABLE", audit.DefaultTableName),
		MaxOpenConns: getEnvInt("MASTHEAD_DB_MAX_OPEN_CONNS", 10),
		SiteSource:   getEnv("MASTHEAD_SITE_SOURCE", SiteSourceMemory),
	}
}

// loadRedisConfig loads redis configuration from environment
func loadRedisConfig() RedisConfig {
	return RedisConfig{
		URL:      getEnv("MASTHEAD_REDIS_URL", ""),
		Password: getEnv("MASTHEAD_REDIS_PASSWORD", ""),
		DB:       getEnvInt("MASTHEAD_REDIS_DB", 0),
	}
}

// loadRetentionConfig loads retention configuration from environment
func loadRetentionConfig() RetentionConfig {
	return RetentionConfig{
		Days:     getEnvInt("MASTHEAD_RETENTION_DAYS", audit.DefaultRetentionDays),
		Schedule: getEnv("MASTHEAD_RETENTION_SCHEDULE", audit.DefaultRetentionSchedule),
		Lock:     getEnvBool("MASTHEAD_RETENTION_LOCK", false),
		Archive: ArchiveConfig{
			Kind:           strings.ToLower(getEnv("MASTHEAD_ARCHIVE", ArchiveNone)),
			Dir:            getEnv("MASTHEAD_ARCHIVE_DIR", ""),
			S3Bucket:       getEnv("MASTHEAD_S3_BUCKET", ""),
			S3Prefix:       getEnv("MASTHEAD_S3_PREFIX", audit.DefaultTableName),
			S3Region:       getEnv("MASTHEAD_S3_REGION", "us-east-1"),
			S3Endpoint:     getEnv("MASTHEAD_S3_ENDPOINT", ""),
			S3AccessKey:    getEnv("MASTHEAD_S3_ACCESS_KEY", ""),
			S3SecretKey:    getEnv("MASTHEAD_S3_SECRET_KEY", ""),
			S3UsePathStyle: getEnvBool("MASTHEAD_S3_USE_PATH_STYLE", false),
		},
	}
}

// loadSecurityConfig loads secrets from environment
func loadSecurityConfig() SecurityConfig {
	return SecurityConfig{
		NonceSecret:       getEnv("MASTHEAD_NONCE_SECRET", ""),
		WebhookSecret:     getEnv("MASTHEAD_WEBHOOK_SECRET", ""),
		WebhookRateLimit:  getEnvInt("MASTHEAD_WEBHOOK_RATE_LIMIT", 600),
		WebhookRatePeriod: getEnvDuration("MASTHEAD_WEBHOOK_RATE_PERIOD", 100*time.Millisecond),
		ReadCapability:    getEnv("MASTHEAD_READ_CAPABILITY", audit.DefaultReadCapability),
	}
}

// loadObservabilityConfig loads observability configuration from environment
func loadObservabilityConfig() ObservabilityConfig {
	return ObservabilityConfig{
		LogLevel:           getEnv("MASTHEAD_LOG_LEVEL", "info"),
		MetricsEnabled:     getEnvBool("MASTHEAD_METRICS_ENABLED", true),
		OTelEnabled:        getEnvBool("MASTHEAD_OTEL_ENABLED", false),
		OTelEndpoint:       getEnv("MASTHEAD_OTEL_ENDPOINT", "localhost:4317"),
		OTelServiceName:    getEnv("MASTHEAD_OTEL_SERVICE_NAME", "masthead"),
		OTelServiceVersion: getEnv("MASTHEAD_OTEL_SERVICE_VERSION", "1.0.0"),
		OTelInsecure:       getEnvBool("MASTHEAD_OTEL_INSECURE", true),
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	// Validate server config
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if c.Server.HealthPort == "" {
		return fmt.Errorf("health port is required")
	}
	if c.Server.Port == c.Server.HealthPort {
		return fmt.Errorf("server port and health port must be different")
	}

	// Validate database config
	switch c.Database.Driver {
	case "postgres", "sqlite3":
	default:
		return fmt.Errorf("invalid database driver: %s (must be postgres or sqlite3)", c.Database.Driver)
	}
	if c.Database.DSN == "" {
		return fmt.Errorf("database DSN is required")
	}
	switch c.Database.SiteSource {
	case SiteSourceMemory, SiteSourceSQL:
	default:
		return fmt.Errorf("invalid site source: %s (must be memory or sql)", c.Database.SiteSource)
	}

	if err := c.Retention.Validate(); err != nil {
		return err
	}
	if c.Retention.Lock && c.Redis.URL == "" {
		return fmt.Errorf("redis URL is required for the retention lock")
	}

	// Validate secrets
	if len(c.Security.NonceSecret) < 16 {
		return fmt.Errorf("nonce secret must be at least 16 bytes")
	}
	if c.Security.WebhookSecret == "" {
		return fmt.Errorf("webhook secret is required")
	}
	if c.Security.WebhookRateLimit > 0 && c.Security.WebhookRatePeriod <= 0 {
		return fmt.Errorf("webhook rate period must be positive")
	}

	// Validate OpenTelemetry config
	if c.Observability.OTelEnabled {
		if c.Observability.OTelEndpoint == "" {
			return fmt.Errorf("OpenTelemetry endpoint is required when OTel is enabled")
		}
		if c.Observability.OTelServiceName == "" {
			return fmt.Errorf("OpenTelemetry service name is required when OTel is enabled")
		}
	}

	return nil
}

// Validate checks the retention window and archive settings
func (r RetentionConfig) Validate() error {
	if r.Days != 0 && (r.Days < audit.MinRetentionDays || r.Days > audit.MaxRetentionDays) {
		return fmt.Errorf("retention days must be between %d and %d, got %d",
			audit.MinRetentionDays, audit.MaxRetentionDays, r.Days)
	}
	switch r.Archive.Kind {
	case ArchiveNone:
	case ArchiveS3:
		if r.Archive.S3Bucket == "" {
			return fmt.Errorf("S3 bucket is required for S3 archiving")
		}
	case ArchiveFile:
		if r.Archive.Dir == "" {
			return fmt.Errorf("archive directory is required for file archiving")
		}
	default:
		return fmt.Errorf("invalid archive kind: %s (must be s3 or file)", r.Archive.Kind)
	}
	return nil
}

// parseLogLevel parses a log level string
func parseLogLevel(level string) observability.LogLevel {
	switch strings.ToLower(level) {
	case "debug":
		return observability.DebugLevel
	case "info":
		return observability.InfoLevel
	case "warn", "warning":
		return observability.WarnLevel
	case "error":
		return observability.ErrorLevel
	default:
		return observability.InfoLevel
	}
}

// getEnv returns an environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool returns a boolean environment variable or a default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable or a default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvDuration returns a duration environment variable or a default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

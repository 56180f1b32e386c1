package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config aggregates all configuration settings for the application.
type Config struct {
	// Environment indicates the running environment (e.g., "development", "production").
	Environment string `mapstructure:"environment"`
	// LogLevel sets the global logging verbosity.
	LogLevel string `mapstructure:"log_level"`
	// Server holds configuration for the HTTP server.
	Server ServerConfig `mapstructure:"server"`
	// Database holds configuration for the PostgreSQL connection.
	Database DatabaseConfig `mapstructure:"database"`
	// Redis holds configuration for the response cache.
	Redis RedisConfig `mapstructure:"redis"`
	// Auth holds configuration for API authentication.
	Auth AuthConfig `mapstructure:"auth"`
	// Telemetry holds configuration for OpenTelemetry integration.
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	// Analysis holds configuration for the resolution pipeline.
	Analysis AnalysisConfig `mapstructure:"analysis"`
	// Registry holds configuration for the function catalog.
	Registry RegistryConfig `mapstructure:"registry"`
}

// ServerConfig defines the HTTP server settings.
type ServerConfig struct {
	// Port is the TCP port the server listens on.
	Port int `mapstructure:"port"`
	// AllowedOrigins is a list of CORS allowed origins.
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// DatabaseConfig defines the PostgreSQL connection settings.
type DatabaseConfig struct {
	// Host is the database server hostname or IP.
	Host string `mapstructure:"host"`
	// Port is the database server port.
	Port int `mapstructure:"port"`
	// User is the database username.
	User string `mapstructure:"user"`
	// Password is the database password.
	Password string `mapstructure:"password"`
	// DBName is the name of the database to connect to.
	DBName string `mapstructure:"dbname"`
	// SSLMode defines the SSL connection mode.
	SSLMode string `mapstructure:"sslmode"`
	// DatabaseURL is a connection string that overrides individual fields.
	DatabaseURL string `mapstructure:"database_url"`
}

// RedisConfig defines the Redis connection settings.
type RedisConfig struct {
	// Host is the Redis server hostname.
	Host string `mapstructure:"host"`
	// Port is the Redis server port.
	Port int `mapstructure:"port"`
	// Password is the Redis authentication password.
	Password string `mapstructure:"password"`
	// DB is the Redis database index to use.
	DB int `mapstructure:"db"`
}

// AuthConfig defines API authentication settings.
type AuthConfig struct {
	// JWTSecret signs and verifies API bearer tokens. Auth is disabled
	// when empty.
	JWTSecret string `mapstructure:"jwt_secret"`
}

// TelemetryConfig defines settings for OpenTelemetry.
type TelemetryConfig struct {
	// Enabled controls whether telemetry is active.
	Enabled bool `mapstructure:"enabled"`
	// Endpoint is the OTLP HTTP endpoint; stdout export is used when empty.
	Endpoint string `mapstructure:"endpoint"`
	// ServiceName is the name of the service for tracing.
	ServiceName string `mapstructure:"service_name"`
	// ServiceVersion is the version of the service.
	ServiceVersion string `mapstructure:"service_version"`
}

// AnalysisConfig defines settings for the resolution pipeline.
type AnalysisConfig struct {
	// RecentDays is the window length for recent_performance scope.
	RecentDays int `mapstructure:"recent_days"`
	// HistoricalDays is the window length for historical_pattern scope.
	HistoricalDays int `mapstructure:"historical_days"`
	// MaxAlternates caps the alternate function names recorded on a plan.
	MaxAlternates int `mapstructure:"max_alternates"`
	// ExecutorTimeout is the duration string for one adapter call.
	ExecutorTimeout string `mapstructure:"executor_timeout"`
	// CacheEnabled controls the Redis response cache.
	CacheEnabled bool `mapstructure:"cache_enabled"`
	// CacheTTL is the duration string for cached responses.
	CacheTTL string `mapstructure:"cache_ttl"`
}

// ExecutorTimeoutDuration parses ExecutorTimeout, defaulting to 30s.
func (c AnalysisConfig) ExecutorTimeoutDuration() time.Duration {
	if d, err := time.ParseDuration(c.ExecutorTimeout); err == nil && d > 0 {
		return d
	}
	return 30 * time.Second
}

// CacheTTLDuration parses CacheTTL, defaulting to 5m.
func (c AnalysisConfig) CacheTTLDuration() time.Duration {
	if d, err := time.ParseDuration(c.CacheTTL); err == nil && d > 0 {
		return d
	}
	return 5 * time.Minute
}

// RegistryConfig defines where the static catalog and mapping data live.
type RegistryConfig struct {
	// CatalogPath is the JSON function catalog file.
	CatalogPath string `mapstructure:"catalog_path"`
	// MappingPath is an optional JSON parameter mapping override; the
	// built-in table is used when empty.
	MappingPath string `mapstructure:"mapping_path"`
}

// Load reads configuration from config.yaml and the environment.
func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./configs")

	setDefaults()

	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	_ = viper.BindEnv("database.database_url", "DATABASE_URL")
	_ = viper.BindEnv("auth.jwt_secret", "JWT_SECRET")
	_ = viper.BindEnv("telemetry.endpoint", "OTEL_EXPORTER_OTLP_ENDPOINT")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &config, nil
}

func setDefaults() {
	viper.SetDefault("environment", "development")
	viper.SetDefault("log_level", "info")

	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.allowed_origins", []string{"http://localhost:3000"})

	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.user", "postgres")
	viper.SetDefault("database.password", "change-me-in-production")
	viper.SetDefault("database.dbname", "ict_backtest")
	viper.SetDefault("database.sslmode", "disable")
	viper.SetDefault("database.database_url", "")

	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)

	viper.SetDefault("auth.jwt_secret", "")

	viper.SetDefault("telemetry.enabled", false)
	viper.SetDefault("telemetry.endpoint", "")
	viper.SetDefault("telemetry.service_name", "backtest-engine")
	viper.SetDefault("telemetry.service_version", "1.0.0")

	viper.SetDefault("analysis.recent_days", 30)
	viper.SetDefault("analysis.historical_days", 90)
	viper.SetDefault("analysis.max_alternates", 4)
	viper.SetDefault("analysis.executor_timeout", "30s")
	viper.SetDefault("analysis.cache_enabled", true)
	viper.SetDefault("analysis.cache_ttl", "5m")

	viper.SetDefault("registry.catalog_path", "configs/function_catalog.json")
	viper.SetDefault("registry.mapping_path", "")
}

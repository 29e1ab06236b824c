package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/scouttools/basecamp/pkg/identity"
	"github.com/scouttools/basecamp/pkg/observability"
	"github.com/scouttools/basecamp/pkg/storage"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Server ServerConfig

	// Database and redis connections
	Storage storage.Config

	// Identity provider
	Keycloak identity.KeycloakConfig

	// Cache tuning
	Cache CacheConfig

	// Observability configuration
	Observability ObservabilityConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	// Health/metrics server (separate port for k8s probes)
	HealthPort string
}

// CacheConfig tunes the group and directory caches.
type CacheConfig struct {
	// GroupTTL bounds how stale a cached group membership may be. Access
	// revocation in the directory takes at most this long to propagate.
	GroupTTL time.Duration

	// DirectorySize is the LRU capacity for well-known group lookups.
	DirectorySize int
	DirectoryTTL  time.Duration
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	LogLevel       observability.LogLevel
	MetricsEnabled bool
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Server:        loadServerConfig(),
		Storage:       loadStorageConfig(),
		Keycloak:      loadKeycloakConfig(),
		Cache:         loadCacheConfig(),
		Observability: loadObservabilityConfig(),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// loadServerConfig loads server configuration from environment
func loadServerConfig() ServerConfig {
	return ServerConfig{
		Host:            getEnv("BASECAMP_HOST", "0.0.0.0"),
		Port:            getEnv("BASECAMP_PORT", "8080"),
		ReadTimeout:     getEnvDuration("BASECAMP_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:    getEnvDuration("BASECAMP_WRITE_TIMEOUT", 15*time.Second),
		IdleTimeout:     getEnvDuration("BASECAMP_IDLE_TIMEOUT", 60*time.Second),
		ShutdownTimeout: getEnvDuration("BASECAMP_SHUTDOWN_TIMEOUT", 30*time.Second),
		HealthPort:      getEnv("BASECAMP_HEALTH_PORT", "9090"),
	}
}

// loadStorageConfig loads database configuration from environment
func loadStorageConfig() storage.Config {
	cfg := storage.DefaultConfig()

	if pgURL := getEnv("BASECAMP_POSTGRES_URL", ""); pgURL != "" {
		cfg.PostgresURL = pgURL
	}
	if replicaURLs := getEnv("BASECAMP_POSTGRES_REPLICA_URLS", ""); replicaURLs != "" {
		cfg.PostgresReplicaURLs = splitList(replicaURLs)
	}
	if maxConns := getEnvInt("BASECAMP_POSTGRES_MAX_CONNS", 0); maxConns > 0 {
		cfg.PostgresMaxConns = maxConns
	}
	if minConns := getEnvInt("BASECAMP_POSTGRES_MIN_CONNS", 0); minConns > 0 {
		cfg.PostgresMinConns = minConns
	}
	if timeout := getEnvDuration("BASECAMP_POSTGRES_TIMEOUT", 0); timeout > 0 {
		cfg.PostgresTimeout = timeout
	}

	if redisURL := getEnv("BASECAMP_REDIS_URL", ""); redisURL != "" {
		cfg.RedisURL = redisURL
	}
	if redisPassword := getEnv("BASECAMP_REDIS_PASSWORD", ""); redisPassword != "" {
		cfg.RedisPassword = redisPassword
	}
	if redisDB := getEnvInt("BASECAMP_REDIS_DB", -1); redisDB >= 0 {
		cfg.RedisDB = redisDB
	}
	if redisMaxRetries := getEnvInt("BASECAMP_REDIS_MAX_RETRIES", 0); redisMaxRetries > 0 {
		cfg.RedisMaxRetries = redisMaxRetries
	}
	if redisPoolSize := getEnvInt("BASECAMP_REDIS_POOL_SIZE", 0); redisPoolSize > 0 {
		cfg.RedisPoolSize = redisPoolSize
	}

	return cfg
}

// loadKeycloakConfig loads identity provider configuration from environment
func loadKeycloakConfig() identity.KeycloakConfig {
	return identity.KeycloakConfig{
		IssuerURL:      getEnv("BASECAMP_KEYCLOAK_ISSUER_URL", ""),
		AdminBaseURL:   getEnv("BASECAMP_KEYCLOAK_ADMIN_URL", ""),
		ClientID:       getEnv("BASECAMP_KEYCLOAK_CLIENT_ID", ""),
		ClientSecret:   getEnv("BASECAMP_KEYCLOAK_CLIENT_SECRET", ""),
		RequestTimeout: getEnvDuration("BASECAMP_KEYCLOAK_TIMEOUT", 10*time.Second),
	}
}

// loadCacheConfig loads cache tuning from environment
func loadCacheConfig() CacheConfig {
	return CacheConfig{
		GroupTTL:      getEnvDuration("BASECAMP_GROUP_CACHE_TTL", 5*time.Minute),
		DirectorySize: getEnvInt("BASECAMP_DIRECTORY_CACHE_SIZE", 128),
		DirectoryTTL:  getEnvDuration("BASECAMP_DIRECTORY_CACHE_TTL", time.Hour),
	}
}

// loadObservabilityConfig loads observability configuration from environment
func loadObservabilityConfig() ObservabilityConfig {
	return ObservabilityConfig{
		LogLevel:       parseLogLevel(getEnv("BASECAMP_LOG_LEVEL", "info")),
		MetricsEnabled: getEnvBool("BASECAMP_METRICS_ENABLED", true),
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if c.Server.HealthPort == "" {
		return fmt.Errorf("health port is required")
	}
	if c.Server.Port == c.Server.HealthPort {
		return fmt.Errorf("server port and health port must be different")
	}

	if c.Storage.PostgresURL == "" {
		return fmt.Errorf("postgres URL is required")
	}

	if c.Keycloak.IssuerURL == "" {
		return fmt.Errorf("keycloak issuer URL is required")
	}
	if c.Keycloak.AdminBaseURL == "" {
		return fmt.Errorf("keycloak admin URL is required")
	}
	if c.Keycloak.ClientID == "" || c.Keycloak.ClientSecret == "" {
		return fmt.Errorf("keycloak service account credentials are required")
	}

	if c.Cache.GroupTTL <= 0 {
		return fmt.Errorf("group cache TTL must be positive")
	}
	if c.Cache.DirectorySize <= 0 {
		return fmt.Errorf("directory cache size must be positive")
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

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
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

// Package storage manages the backing connections: the postgres primary
// with optional read replicas, and the redis client used for group caching.
package storage

import "time"

// Config holds database and cache connection configuration
type Config struct {
	// PostgreSQL
	PostgresURL         string
	PostgresReplicaURLs []string
	PostgresMaxConns    int
	PostgresMinConns    int
	PostgresTimeout     time.Duration
	PostgresMaxLifetime time.Duration
	PostgresMaxIdleTime time.Duration

	// Redis
	RedisURL        string
	RedisPassword   string
	RedisDB         int
	RedisMaxRetries int
	RedisPoolSize   int
}

// DefaultConfig returns the default connection configuration
func DefaultConfig() Config {
	return Config{
		PostgresURL:         "postgres://localhost:5432/basecamp?sslmode=disable",
		PostgresMaxConns:    25,
		PostgresMinConns:    5,
		PostgresTimeout:     10 * time.Second,
		PostgresMaxLifetime: 30 * time.Minute,
		PostgresMaxIdleTime: 5 * time.Minute,
		RedisURL:            "redis://localhost:6379/0",
		RedisDB:             -1,
	}
}

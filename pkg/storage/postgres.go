package storage

import (
	"context"
	"database/sql"
	"fmt"
	"sync/atomic"

	_ "github.com/lib/pq" // PostgreSQL driver

	"github.com/scouttools/basecamp/pkg/observability"
)

// ConnectionManager manages the PostgreSQL primary and read replica
// connections. Writes always go to the primary; read-heavy list queries may
// use a replica.
type ConnectionManager struct {
	primary  *sql.DB
	replicas []*sql.DB
	current  uint32 // round-robin replica selection
}

// NewConnectionManager opens and verifies the primary connection and any
// configured replicas. Replicas are optional: a replica that fails to
// connect is skipped with a warning.
func NewConnectionManager(cfg Config, logger *observability.Logger) (*ConnectionManager, error) {
	primary, err := openPool(cfg, cfg.PostgresURL, cfg.PostgresMaxConns)
	if err != nil {
		return nil, fmt.Errorf("primary connection failed: %w", err)
	}

	cm := &ConnectionManager{primary: primary}

	for i, replicaURL := range cfg.PostgresReplicaURLs {
		replicaMaxConns := cfg.PostgresMaxConns / 2
		if replicaMaxConns < 2 {
			replicaMaxConns = 2
		}
		replica, err := openPool(cfg, replicaURL, replicaMaxConns)
		if err != nil {
			if logger != nil {
				logger.WithError(err).WithField("replica", i).Warn("read replica unavailable; continuing without it")
			}
			continue
		}
		cm.replicas = append(cm.replicas, replica)
	}

	if logger != nil {
		logger.WithField("replicas", len(cm.replicas)).Info("database connections established")
	}
	return cm, nil
}

func openPool(cfg Config, url string, maxConns int) (*sql.DB, error) {
	db, err := sql.Open("postgres", url)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(maxConns)
	db.SetMaxIdleConns(cfg.PostgresMinConns)
	db.SetConnMaxLifetime(cfg.PostgresMaxLifetime)
	db.SetConnMaxIdleTime(cfg.PostgresMaxIdleTime)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.PostgresTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// Primary returns the primary database connection (for writes)
func (cm *ConnectionManager) Primary() *sql.DB {
	return cm.primary
}

// Replica returns a read replica using round-robin selection, falling back
// to the primary when none are available.
func (cm *ConnectionManager) Replica() *sql.DB {
	if len(cm.replicas) == 0 {
		return cm.primary
	}
	n := atomic.AddUint32(&cm.current, 1)
	return cm.replicas[int(n-1)%len(cm.replicas)]
}

// Close closes the primary and all replicas, returning the first error.
func (cm *ConnectionManager) Close() error {
	err := cm.primary.Close()
	for _, replica := range cm.replicas {
		if closeErr := replica.Close(); err == nil {
			err = closeErr
		}
	}
	return err
}

package storage

import (
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mockDB(t *testing.T) *sql.DB {
	t.Helper()
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestReplicaSelection(t *testing.T) {
	t.Run("falls back to primary without replicas", func(t *testing.T) {
		primary := mockDB(t)
		cm := &ConnectionManager{primary: primary}

		assert.Same(t, primary, cm.Replica())
		assert.Same(t, primary, cm.Primary())
	})

	t.Run("round robins across replicas", func(t *testing.T) {
		primary := mockDB(t)
		r1 := mockDB(t)
		r2 := mockDB(t)
		cm := &ConnectionManager{primary: primary, replicas: []*sql.DB{r1, r2}}

		first := cm.Replica()
		second := cm.Replica()
		third := cm.Replica()

		assert.NotSame(t, first, second)
		assert.Same(t, first, third)
		assert.Same(t, primary, cm.Primary())
	})
}

func TestRedisClientRejectsBadURL(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RedisURL = "not-a-url"

	_, err := NewRedisClient(cfg)
	assert.Error(t, err)
}

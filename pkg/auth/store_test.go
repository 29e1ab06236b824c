package auth

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetByExternalID(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := NewPostgresStore(db)
	ctx := context.Background()
	now := time.Now()

	t.Run("returns full profile", func(t *testing.T) {
		rows := sqlmock.NewRows([]string{
			"id", "external_id", "username", "email", "full_name", "scout_organisation_id",
			"is_superuser", "is_active", "created_at", "updated_at", "last_login_at",
		}).AddRow(1, "kc-1", "akela", "akela@example.org", "A. Kela", 5, false, true, now, now, now)

		mock.ExpectQuery(`SELECT .+ FROM users WHERE external_id = \$1`).
			WithArgs("kc-1").
			WillReturnRows(rows)

		user, err := store.GetByExternalID(ctx, "kc-1")
		require.NoError(t, err)
		assert.Equal(t, int64(1), user.ID)
		assert.Equal(t, "akela", user.Username)
		require.NotNil(t, user.ScoutOrganisationID)
		assert.Equal(t, int64(5), *user.ScoutOrganisationID)
		assert.False(t, user.IsSuperuser)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("nullable fields stay zero", func(t *testing.T) {
		rows := sqlmock.NewRows([]string{
			"id", "external_id", "username", "email", "full_name", "scout_organisation_id",
			"is_superuser", "is_active", "created_at", "updated_at", "last_login_at",
		}).AddRow(2, "kc-2", "balu", nil, nil, nil, true, true, now, now, nil)

		mock.ExpectQuery(`SELECT .+ FROM users WHERE external_id = \$1`).
			WithArgs("kc-2").
			WillReturnRows(rows)

		user, err := store.GetByExternalID(ctx, "kc-2")
		require.NoError(t, err)
		assert.Empty(t, user.Email)
		assert.Nil(t, user.ScoutOrganisationID)
		assert.Nil(t, user.LastLoginAt)
		assert.True(t, user.IsSuperuser)
	})

	t.Run("missing user maps to ErrUserNotFound", func(t *testing.T) {
		mock.ExpectQuery(`SELECT .+ FROM users WHERE external_id = \$1`).
			WithArgs("kc-3").
			WillReturnRows(sqlmock.NewRows([]string{"id"}))

		_, err := store.GetByExternalID(ctx, "kc-3")
		assert.ErrorIs(t, err, ErrUserNotFound)
	})
}

func TestUpsert(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := NewPostgresStore(db)
	now := time.Now()

	orgID := int64(5)
	user := &User{
		ExternalID:          "kc-1",
		Username:            "akela",
		Email:               "akela@example.org",
		ScoutOrganisationID: &orgID,
		IsActive:            true,
	}

	mock.ExpectQuery(`INSERT INTO users`).
		WithArgs("kc-1", "akela", "akela@example.org", "", int64(5), false, true, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(7, now))

	require.NoError(t, store.Upsert(context.Background(), user))
	assert.Equal(t, int64(7), user.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

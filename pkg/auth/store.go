package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrUserNotFound indicates no local profile exists for the lookup key.
var ErrUserNotFound = errors.New("auth: user not found")

// Store persists local user profiles.
type Store interface {
	Get(ctx context.Context, id int64) (*User, error)
	GetByExternalID(ctx context.Context, externalID string) (*User, error)
	Upsert(ctx context.Context, user *User) error
	TouchLogin(ctx context.Context, id int64) error
}

// PostgresStore is the postgres-backed user store.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a postgres-backed user store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const userColumns = `id, external_id, username, email, full_name, scout_organisation_id, is_superuser, is_active, created_at, updated_at, last_login_at`

// Get returns the user with the given local id.
func (s *PostgresStore) Get(ctx context.Context, id int64) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return s.queryOne(ctx, query, id)
}

// GetByExternalID returns the user linked to the given directory account.
func (s *PostgresStore) GetByExternalID(ctx context.Context, externalID string) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE external_id = $1`
	return s.queryOne(ctx, query, externalID)
}

// Upsert creates or refreshes the local profile for a directory account.
// Called on first login and whenever the directory reports changed profile
// fields.
func (s *PostgresStore) Upsert(ctx context.Context, user *User) error {
	query := `
		INSERT INTO users (external_id, username, email, full_name, scout_organisation_id, is_superuser, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
		ON CONFLICT (external_id)
		DO UPDATE SET username = EXCLUDED.username, email = EXCLUDED.email, full_name = EXCLUDED.full_name,
		              scout_organisation_id = EXCLUDED.scout_organisation_id, updated_at = EXCLUDED.updated_at
		RETURNING id, created_at
	`

	now := time.Now()
	err := s.db.QueryRowContext(ctx, query,
		user.ExternalID,
		user.Username,
		user.Email,
		user.FullName,
		user.ScoutOrganisationID,
		user.IsSuperuser,
		user.IsActive,
		now,
	).Scan(&user.ID, &user.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert user %s: %w", user.ExternalID, err)
	}
	user.UpdatedAt = now
	return nil
}

// TouchLogin records a successful login.
func (s *PostgresStore) TouchLogin(ctx context.Context, id int64) error {
	query := `UPDATE users SET last_login_at = $2 WHERE id = $1`
	if _, err := s.db.ExecContext(ctx, query, id, time.Now()); err != nil {
		return fmt.Errorf("failed to record login for user %d: %w", id, err)
	}
	return nil
}

func (s *PostgresStore) queryOne(ctx context.Context, query string, arg interface{}) (*User, error) {
	var user User
	var email, fullName sql.NullString
	var scoutOrg sql.NullInt64
	var lastLogin sql.NullTime

	err := s.db.QueryRowContext(ctx, query, arg).Scan(
		&user.ID,
		&user.ExternalID,
		&user.Username,
		&email,
		&fullName,
		&scoutOrg,
		&user.IsSuperuser,
		&user.IsActive,
		&user.CreatedAt,
		&user.UpdatedAt,
		&lastLogin,
	)
	if err == sql.ErrNoRows {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if email.Valid {
		user.Email = email.String
	}
	if fullName.Valid {
		user.FullName = fullName.String
	}
	if scoutOrg.Valid {
		id := scoutOrg.Int64
		user.ScoutOrganisationID = &id
	}
	if lastLogin.Valid {
		at := lastLogin.Time
		user.LastLoginAt = &at
	}
	return &user, nil
}

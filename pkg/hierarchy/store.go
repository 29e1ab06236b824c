package hierarchy

import (
	"context"
	"database/sql"
	"fmt"
)

// Store provides read access to the organizational tree. Mutations happen
// through administrative tooling and fixtures; the permission core only
// reads.
type Store interface {
	// Get returns the unit with the given id, or ErrUnitNotFound.
	Get(ctx context.Context, id int64) (*OrgUnit, error)

	// Children returns the direct children of the given unit, ordered by name.
	Children(ctx context.Context, id int64) ([]*OrgUnit, error)
}

// PostgresStore reads org units from PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a postgres-backed hierarchy store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const orgUnitColumns = `id, name, level, parent_id, grandparent_id, great_grandparent_id, external_group_id`

// Get returns the unit with the given id.
func (s *PostgresStore) Get(ctx context.Context, id int64) (*OrgUnit, error) {
	query := `SELECT ` + orgUnitColumns + ` FROM org_units WHERE id = $1`

	unit, err := scanOrgUnit(s.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, ErrUnitNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get org unit %d: %w", id, err)
	}
	return unit, nil
}

// Children returns the direct children of the given unit.
func (s *PostgresStore) Children(ctx context.Context, id int64) ([]*OrgUnit, error) {
	query := `SELECT ` + orgUnitColumns + ` FROM org_units WHERE parent_id = $1 ORDER BY name ASC`

	rows, err := s.db.QueryContext(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list children of org unit %d: %w", id, err)
	}
	defer rows.Close()

	var units []*OrgUnit
	for rows.Next() {
		unit, err := scanOrgUnit(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan org unit: %w", err)
		}
		units = append(units, unit)
	}
	return units, rows.Err()
}

// scanOrgUnit scans a unit from a database row.
func scanOrgUnit(scanner interface {
	Scan(dest ...interface{}) error
}) (*OrgUnit, error) {
	var unit OrgUnit
	var parent, grandparent, greatGrandparent sql.NullInt64
	var externalGroup sql.NullString

	err := scanner.Scan(
		&unit.ID,
		&unit.Name,
		&unit.Level,
		&parent,
		&grandparent,
		&greatGrandparent,
		&externalGroup,
	)
	if err != nil {
		return nil, err
	}

	if parent.Valid {
		id := parent.Int64
		unit.ParentID = &id
	}
	if grandparent.Valid {
		id := grandparent.Int64
		unit.GrandparentID = &id
	}
	if greatGrandparent.Valid {
		id := greatGrandparent.Int64
		unit.GreatGrandparentID = &id
	}
	if externalGroup.Valid {
		unit.ExternalGroupID = externalGroup.String
	}

	return &unit, nil
}

package events

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/scouttools/basecamp/pkg/hierarchy"
)

// Store persists events.
type Store interface {
	Get(ctx context.Context, id int64) (*Event, error)
	Create(ctx context.Context, event *Event, creatorID int64) error
	Update(ctx context.Context, event *Event) error
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context) ([]*Event, error)
	AddResponsiblePerson(ctx context.Context, eventID, userID int64) error
}

// PostgresStore is the postgres-backed event store.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a postgres-backed event store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const eventColumns = `id, name, description, location, start_at, end_at, registration_start, registration_deadline,
	       view_group_id, admin_group_id, registration_level, view_allow_subgroup, created_at, updated_at`

// Get returns the event with its responsible persons and invited groups.
func (s *PostgresStore) Get(ctx context.Context, id int64) (*Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE id = $1`

	event, err := scanEvent(s.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, ErrEventNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get event %d: %w", id, err)
	}

	if event.ResponsiblePersons, err = s.responsiblePersons(ctx, id); err != nil {
		return nil, err
	}
	if event.InvitedGroups, err = s.invitedGroups(ctx, id); err != nil {
		return nil, err
	}
	return event, nil
}

// Create inserts the event and registers the creator as the sole initial
// responsible person.
func (s *PostgresStore) Create(ctx context.Context, event *Event, creatorID int64) error {
	if err := ValidateTimeline(nil, event); err != nil {
		return err
	}
	if event.RegistrationLevel == 0 {
		event.RegistrationLevel = hierarchy.LevelStamm
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO events (name, description, location, start_at, end_at, registration_start, registration_deadline,
		                    view_group_id, admin_group_id, registration_level, view_allow_subgroup, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $12)
		RETURNING id
	`
	now := time.Now()
	err = tx.QueryRowContext(ctx, query,
		event.Name,
		event.Description,
		event.Location,
		event.StartAt,
		event.EndAt,
		event.RegistrationStart,
		event.RegistrationDeadline,
		nullableString(event.ViewGroupID),
		nullableString(event.AdminGroupID),
		int(event.RegistrationLevel),
		event.ViewAllowSubgroup,
		now,
	).Scan(&event.ID)
	if err != nil {
		return fmt.Errorf("failed to create event: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO event_responsible_persons (event_id, user_id) VALUES ($1, $2)`,
		event.ID, creatorID,
	); err != nil {
		return fmt.Errorf("failed to add creator as responsible person: %w", err)
	}

	for _, ref := range event.InvitedGroups {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO event_invited_groups (event_id, group_id, tag) VALUES ($1, $2, $3)`,
			event.ID, ref.ID, ref.Tag,
		); err != nil {
			return fmt.Errorf("failed to add invited group: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit event creation: %w", err)
	}

	event.ResponsiblePersons = []int64{creatorID}
	event.CreatedAt = now
	event.UpdatedAt = now
	return nil
}

// Update rewrites the event's scalar fields. The timeline ordering is
// re-validated only when a temporal field changed.
func (s *PostgresStore) Update(ctx context.Context, event *Event) error {
	stored, err := s.Get(ctx, event.ID)
	if err != nil {
		return err
	}
	if err := ValidateTimeline(stored, event); err != nil {
		return err
	}

	query := `
		UPDATE events
		SET name = $2, description = $3, location = $4, start_at = $5, end_at = $6,
		    registration_start = $7, registration_deadline = $8, view_group_id = $9,
		    admin_group_id = $10, registration_level = $11, view_allow_subgroup = $12, updated_at = $13
		WHERE id = $1
	`
	result, err := s.db.ExecContext(ctx, query,
		event.ID,
		event.Name,
		event.Description,
		event.Location,
		event.StartAt,
		event.EndAt,
		event.RegistrationStart,
		event.RegistrationDeadline,
		nullableString(event.ViewGroupID),
		nullableString(event.AdminGroupID),
		int(event.RegistrationLevel),
		event.ViewAllowSubgroup,
		time.Now(),
	)
	if err != nil {
		return fmt.Errorf("failed to update event %d: %w", event.ID, err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return ErrEventNotFound
	}
	return nil
}

// Delete removes the event. Association rows cascade in the schema.
func (s *PostgresStore) Delete(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM events WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete event %d: %w", id, err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return ErrEventNotFound
	}
	return nil
}

// List returns all events ordered by start time. Visibility filtering is the
// caller's job; the permission gate decides per event.
func (s *PostgresStore) List(ctx context.Context) ([]*Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events ORDER BY start_at ASC`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	defer rows.Close()

	var events []*Event
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, event := range events {
		if event.ResponsiblePersons, err = s.responsiblePersons(ctx, event.ID); err != nil {
			return nil, err
		}
		if event.InvitedGroups, err = s.invitedGroups(ctx, event.ID); err != nil {
			return nil, err
		}
	}
	return events, nil
}

// AddResponsiblePerson appends a user to the explicit override list.
func (s *PostgresStore) AddResponsiblePerson(ctx context.Context, eventID, userID int64) error {
	query := `INSERT INTO event_responsible_persons (event_id, user_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`
	if _, err := s.db.ExecContext(ctx, query, eventID, userID); err != nil {
		return fmt.Errorf("failed to add responsible person: %w", err)
	}
	return nil
}

func (s *PostgresStore) responsiblePersons(ctx context.Context, eventID int64) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT user_id FROM event_responsible_persons WHERE event_id = $1 ORDER BY user_id`, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to list responsible persons: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *PostgresStore) invitedGroups(ctx context.Context, eventID int64) ([]GroupRef, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT group_id, tag FROM event_invited_groups WHERE event_id = $1 ORDER BY group_id`, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to list invited groups: %w", err)
	}
	defer rows.Close()

	var refs []GroupRef
	for rows.Next() {
		var ref GroupRef
		var tag sql.NullString
		if err := rows.Scan(&ref.ID, &tag); err != nil {
			return nil, err
		}
		if tag.Valid {
			ref.Tag = tag.String
		}
		refs = append(refs, ref)
	}
	return refs, rows.Err()
}

func scanEvent(scanner interface {
	Scan(dest ...interface{}) error
}) (*Event, error) {
	var event Event
	var description, location, viewGroup, adminGroup sql.NullString
	var level int

	err := scanner.Scan(
		&event.ID,
		&event.Name,
		&description,
		&location,
		&event.StartAt,
		&event.EndAt,
		&event.RegistrationStart,
		&event.RegistrationDeadline,
		&viewGroup,
		&adminGroup,
		&level,
		&event.ViewAllowSubgroup,
		&event.CreatedAt,
		&event.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if description.Valid {
		event.Description = description.String
	}
	if location.Valid {
		event.Location = location.String
	}
	if viewGroup.Valid {
		event.ViewGroupID = viewGroup.String
	}
	if adminGroup.Valid {
		event.AdminGroupID = adminGroup.String
	}
	event.RegistrationLevel = hierarchy.Level(level)
	return &event, nil
}

func nullableString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

package registrations

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/scouttools/basecamp/pkg/hierarchy"
)

// Store persists registrations and their nested records. Every list
// operation takes a hierarchy.Predicate that narrows results to the
// caller's visibility scope; the predicate is rendered against the
// registration's org-unit row.
type Store interface {
	Get(ctx context.Context, id int64) (*Registration, error)
	Create(ctx context.Context, reg *Registration, creatorID int64) error
	Delete(ctx context.Context, id int64) error
	SetConfirmed(ctx context.Context, id int64, confirmed bool) error

	List(ctx context.Context, eventID int64, scope hierarchy.Predicate) ([]*Registration, error)
	ListParticipants(ctx context.Context, eventID int64, scope hierarchy.Predicate) ([]*Participant, error)
	ListAttributes(ctx context.Context, eventID int64, scope hierarchy.Predicate) ([]*Attribute, error)
	ListCashIncomes(ctx context.Context, eventID int64, scope hierarchy.Predicate) ([]*CashIncome, error)
	Summary(ctx context.Context, eventID int64, scope hierarchy.Predicate) ([]*UnitSummary, error)

	CountParticipants(ctx context.Context, registrationID int64) (int, error)
	AddParticipant(ctx context.Context, p *Participant) error
	AddAttribute(ctx context.Context, a *Attribute) error
	AddCashIncome(ctx context.Context, c *CashIncome) error
}

// PostgresStore is the postgres-backed registration store.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a postgres-backed registration store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Get returns the registration with its responsible persons.
func (s *PostgresStore) Get(ctx context.Context, id int64) (*Registration, error) {
	query := `
		SELECT id, event_id, scout_organisation_id, is_confirmed, created_at, updated_at
		FROM registrations
		WHERE id = $1
	`
	var reg Registration
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&reg.ID,
		&reg.EventID,
		&reg.ScoutOrganisationID,
		&reg.IsConfirmed,
		&reg.CreatedAt,
		&reg.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrRegistrationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get registration %d: %w", id, err)
	}

	if reg.ResponsiblePersons, err = s.responsiblePersons(ctx, id); err != nil {
		return nil, err
	}
	return &reg, nil
}

// Create inserts the registration with the creator as its first responsible
// person.
func (s *PostgresStore) Create(ctx context.Context, reg *Registration, creatorID int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO registrations (event_id, scout_organisation_id, is_confirmed, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $4)
		RETURNING id
	`
	now := time.Now()
	if err := tx.QueryRowContext(ctx, query,
		reg.EventID, reg.ScoutOrganisationID, reg.IsConfirmed, now,
	).Scan(&reg.ID); err != nil {
		return fmt.Errorf("failed to create registration: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO registration_responsible_persons (registration_id, user_id) VALUES ($1, $2)`,
		reg.ID, creatorID,
	); err != nil {
		return fmt.Errorf("failed to add creator as responsible person: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit registration creation: %w", err)
	}

	reg.ResponsiblePersons = []int64{creatorID}
	reg.CreatedAt = now
	reg.UpdatedAt = now
	return nil
}

// Delete removes the registration. Deadline rules are checked by the caller
// through CanDelete before this is reached.
func (s *PostgresStore) Delete(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM registrations WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete registration %d: %w", id, err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return ErrRegistrationNotFound
	}
	return nil
}

// SetConfirmed flips the confirmation flag. The calling layer emits the
// confirmation notification; nothing fires implicitly here.
func (s *PostgresStore) SetConfirmed(ctx context.Context, id int64, confirmed bool) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE registrations SET is_confirmed = $2, updated_at = $3 WHERE id = $1`,
		id, confirmed, time.Now())
	if err != nil {
		return fmt.Errorf("failed to update registration %d: %w", id, err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return ErrRegistrationNotFound
	}
	return nil
}

// List returns the event's registrations inside the given scope.
func (s *PostgresStore) List(ctx context.Context, eventID int64, scope hierarchy.Predicate) ([]*Registration, error) {
	args := hierarchy.NewArgList(1)
	clause := scope.SQL("o", args)
	query := `
		SELECT r.id, r.event_id, r.scout_organisation_id, r.is_confirmed, r.created_at, r.updated_at
		FROM registrations r
		JOIN org_units o ON o.id = r.scout_organisation_id
		WHERE r.event_id = $1 AND ` + clause + `
		ORDER BY r.id ASC
	`

	rows, err := s.db.QueryContext(ctx, query, prepend(eventID, args.Values())...)
	if err != nil {
		return nil, fmt.Errorf("failed to list registrations: %w", err)
	}
	defer rows.Close()

	var regs []*Registration
	for rows.Next() {
		var reg Registration
		if err := rows.Scan(&reg.ID, &reg.EventID, &reg.ScoutOrganisationID, &reg.IsConfirmed, &reg.CreatedAt, &reg.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan registration: %w", err)
		}
		regs = append(regs, &reg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, reg := range regs {
		if reg.ResponsiblePersons, err = s.responsiblePersons(ctx, reg.ID); err != nil {
			return nil, err
		}
	}
	return regs, nil
}

// ListParticipants returns participants of the event's registrations inside
// the given scope. The filter always goes through the registration's org
// unit.
func (s *PostgresStore) ListParticipants(ctx context.Context, eventID int64, scope hierarchy.Predicate) ([]*Participant, error) {
	args := hierarchy.NewArgList(1)
	clause := scope.SQL("o", args)
	query := `
		SELECT p.id, p.registration_id, p.first_name, p.last_name, p.birthday, p.eat_habit, p.created_at
		FROM participants p
		JOIN registrations r ON r.id = p.registration_id
		JOIN org_units o ON o.id = r.scout_organisation_id
		WHERE r.event_id = $1 AND ` + clause + `
		ORDER BY p.id ASC
	`

	rows, err := s.db.QueryContext(ctx, query, prepend(eventID, args.Values())...)
	if err != nil {
		return nil, fmt.Errorf("failed to list participants: %w", err)
	}
	defer rows.Close()

	var participants []*Participant
	for rows.Next() {
		var p Participant
		var birthday sql.NullTime
		var eatHabit sql.NullString
		if err := rows.Scan(&p.ID, &p.RegistrationID, &p.FirstName, &p.LastName, &birthday, &eatHabit, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan participant: %w", err)
		}
		if birthday.Valid {
			b := birthday.Time
			p.Birthday = &b
		}
		if eatHabit.Valid {
			p.EatHabit = eatHabit.String
		}
		participants = append(participants, &p)
	}
	return participants, rows.Err()
}

// ListAttributes returns attribute values of the event's registrations
// inside the given scope.
func (s *PostgresStore) ListAttributes(ctx context.Context, eventID int64, scope hierarchy.Predicate) ([]*Attribute, error) {
	args := hierarchy.NewArgList(1)
	clause := scope.SQL("o", args)
	query := `
		SELECT a.id, a.registration_id, a.name, a.kind, a.value
		FROM registration_attributes a
		JOIN registrations r ON r.id = a.registration_id
		JOIN org_units o ON o.id = r.scout_organisation_id
		WHERE r.event_id = $1 AND ` + clause + `
		ORDER BY a.id ASC
	`

	rows, err := s.db.QueryContext(ctx, query, prepend(eventID, args.Values())...)
	if err != nil {
		return nil, fmt.Errorf("failed to list attributes: %w", err)
	}
	defer rows.Close()

	var attrs []*Attribute
	for rows.Next() {
		var a Attribute
		if err := rows.Scan(&a.ID, &a.RegistrationID, &a.Name, &a.Kind, &a.Value); err != nil {
			return nil, fmt.Errorf("failed to scan attribute: %w", err)
		}
		attrs = append(attrs, &a)
	}
	return attrs, rows.Err()
}

// ListCashIncomes returns booked payments of the event's registrations
// inside the given scope.
func (s *PostgresStore) ListCashIncomes(ctx context.Context, eventID int64, scope hierarchy.Predicate) ([]*CashIncome, error) {
	args := hierarchy.NewArgList(1)
	clause := scope.SQL("o", args)
	query := `
		SELECT c.id, c.registration_id, c.amount_cents, c.transfer_subject, c.transferred_at, c.booked_at
		FROM cash_incomes c
		JOIN registrations r ON r.id = c.registration_id
		JOIN org_units o ON o.id = r.scout_organisation_id
		WHERE r.event_id = $1 AND ` + clause + `
		ORDER BY c.booked_at ASC
	`

	rows, err := s.db.QueryContext(ctx, query, prepend(eventID, args.Values())...)
	if err != nil {
		return nil, fmt.Errorf("failed to list cash incomes: %w", err)
	}
	defer rows.Close()

	var incomes []*CashIncome
	for rows.Next() {
		var c CashIncome
		var subject sql.NullString
		if err := rows.Scan(&c.ID, &c.RegistrationID, &c.AmountCents, &subject, &c.TransferredAt, &c.BookedAt); err != nil {
			return nil, fmt.Errorf("failed to scan cash income: %w", err)
		}
		if subject.Valid {
			c.TransferSubject = subject.String
		}
		incomes = append(incomes, &c)
	}
	return incomes, rows.Err()
}

// Summary aggregates registrations and participants per org unit inside the
// given scope.
func (s *PostgresStore) Summary(ctx context.Context, eventID int64, scope hierarchy.Predicate) ([]*UnitSummary, error) {
	args := hierarchy.NewArgList(1)
	clause := scope.SQL("o", args)
	query := `
		SELECT o.id, o.name, COUNT(DISTINCT r.id), COUNT(p.id),
		       COUNT(DISTINCT r.id) FILTER (WHERE r.is_confirmed)
		FROM registrations r
		JOIN org_units o ON o.id = r.scout_organisation_id
		LEFT JOIN participants p ON p.registration_id = r.id
		WHERE r.event_id = $1 AND ` + clause + `
		GROUP BY o.id, o.name
		ORDER BY o.name ASC
	`

	rows, err := s.db.QueryContext(ctx, query, prepend(eventID, args.Values())...)
	if err != nil {
		return nil, fmt.Errorf("failed to summarize registrations: %w", err)
	}
	defer rows.Close()

	var summaries []*UnitSummary
	for rows.Next() {
		var u UnitSummary
		if err := rows.Scan(&u.OrgUnitID, &u.OrgUnitName, &u.Registrations, &u.Participants, &u.Confirmed); err != nil {
			return nil, fmt.Errorf("failed to scan summary row: %w", err)
		}
		summaries = append(summaries, &u)
	}
	return summaries, rows.Err()
}

// CountParticipants returns the number of participants under a registration.
func (s *PostgresStore) CountParticipants(ctx context.Context, registrationID int64) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM participants WHERE registration_id = $1`, registrationID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count participants: %w", err)
	}
	return count, nil
}

// AddParticipant inserts a participant under a registration.
func (s *PostgresStore) AddParticipant(ctx context.Context, p *Participant) error {
	query := `
		INSERT INTO participants (registration_id, first_name, last_name, birthday, eat_habit, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`
	now := time.Now()
	var birthday sql.NullTime
	if p.Birthday != nil {
		birthday = sql.NullTime{Time: *p.Birthday, Valid: true}
	}
	err := s.db.QueryRowContext(ctx, query,
		p.RegistrationID, p.FirstName, p.LastName, birthday, nullableString(p.EatHabit), now,
	).Scan(&p.ID)
	if err != nil {
		return fmt.Errorf("failed to add participant: %w", err)
	}
	p.CreatedAt = now
	return nil
}

// AddAttribute inserts an attribute value under a registration.
func (s *PostgresStore) AddAttribute(ctx context.Context, a *Attribute) error {
	query := `
		INSERT INTO registration_attributes (registration_id, name, kind, value)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`
	if err := s.db.QueryRowContext(ctx, query, a.RegistrationID, a.Name, a.Kind, a.Value).Scan(&a.ID); err != nil {
		return fmt.Errorf("failed to add attribute: %w", err)
	}
	return nil
}

// AddCashIncome books a payment under a registration.
func (s *PostgresStore) AddCashIncome(ctx context.Context, c *CashIncome) error {
	query := `
		INSERT INTO cash_incomes (registration_id, amount_cents, transfer_subject, transferred_at, booked_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`
	if c.BookedAt.IsZero() {
		c.BookedAt = time.Now()
	}
	err := s.db.QueryRowContext(ctx, query,
		c.RegistrationID, c.AmountCents, nullableString(c.TransferSubject), c.TransferredAt, c.BookedAt,
	).Scan(&c.ID)
	if err != nil {
		return fmt.Errorf("failed to add cash income: %w", err)
	}
	return nil
}

func (s *PostgresStore) responsiblePersons(ctx context.Context, registrationID int64) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT user_id FROM registration_responsible_persons WHERE registration_id = $1 ORDER BY user_id`,
		registrationID)
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

func prepend(first interface{}, rest []interface{}) []interface{} {
	out := make([]interface{}, 0, len(rest)+1)
	out = append(out, first)
	return append(out, rest...)
}

func nullableString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

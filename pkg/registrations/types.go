package registrations

import (
	"errors"
	"time"

	"github.com/scouttools/basecamp/pkg/events"
)

var (
	// ErrRegistrationNotFound indicates a referenced registration does not
	// exist.
	ErrRegistrationNotFound = errors.New("registrations: registration not found")

	// ErrDeadlinePassed indicates a registration with participants cannot be
	// deleted after the event's registration deadline.
	ErrDeadlinePassed = errors.New("registrations: registration deadline passed")
)

// Registration records that an org unit takes part in an event. The unit is
// typically at the event's configured registration level (stamm by default).
type Registration struct {
	ID                  int64 `json:"id"`
	EventID             int64 `json:"event_id"`
	ScoutOrganisationID int64 `json:"scout_organisation_id"`

	// ResponsiblePersons may edit this registration regardless of event
	// authority.
	ResponsiblePersons []int64 `json:"responsible_persons"`

	IsConfirmed bool      `json:"is_confirmed"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// IsResponsible reports whether the user may edit this registration on their
// own authority.
func (r *Registration) IsResponsible(userID int64) bool {
	for _, id := range r.ResponsiblePersons {
		if id == userID {
			return true
		}
	}
	return false
}

// CanDelete reports whether the registration may be destroyed: always while
// it has no participants, otherwise only before the event's registration
// deadline.
func CanDelete(reg *Registration, event *events.Event, participantCount int, now time.Time) error {
	if participantCount == 0 {
		return nil
	}
	if now.After(event.RegistrationDeadline) {
		return ErrDeadlinePassed
	}
	return nil
}

// Participant is a person attending under a registration.
type Participant struct {
	ID             int64      `json:"id"`
	RegistrationID int64      `json:"registration_id"`
	FirstName      string     `json:"first_name"`
	LastName       string     `json:"last_name"`
	Birthday       *time.Time `json:"birthday,omitempty"`

	// EatHabit feeds the food planning downstream (vegetarian, vegan, and
	// similar directives); the nutrition engine interprets it.
	EatHabit string `json:"eat_habit,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// Attribute is one value of a per-event custom attribute attached to a
// registration. Kind tells the consumer how to interpret Value.
type Attribute struct {
	ID             int64  `json:"id"`
	RegistrationID int64  `json:"registration_id"`
	Name           string `json:"name"`
	Kind           string `json:"kind"` // string, integer, boolean, choice
	Value          string `json:"value"`
}

// CashIncome is a booked payment attributed to a registration. Amounts are
// kept in euro cents.
type CashIncome struct {
	ID              int64     `json:"id"`
	RegistrationID  int64     `json:"registration_id"`
	AmountCents     int64     `json:"amount_cents"`
	TransferSubject string    `json:"transfer_subject,omitempty"`
	TransferredAt   time.Time `json:"transferred_at"`
	BookedAt        time.Time `json:"booked_at"`
}

// UnitSummary aggregates registrations per org unit for the statistics
// endpoints available to sub-tree leaders.
type UnitSummary struct {
	OrgUnitID     int64  `json:"org_unit_id"`
	OrgUnitName   string `json:"org_unit_name"`
	Registrations int    `json:"registrations"`
	Participants  int    `json:"participants"`
	Confirmed     int    `json:"confirmed"`
}

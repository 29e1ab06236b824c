package events

import (
	"errors"
	"time"

	"github.com/scouttools/basecamp/pkg/hierarchy"
)

// ErrEventNotFound indicates a referenced event does not exist.
var ErrEventNotFound = errors.New("events: event not found")

// ErrInvalidTimeline indicates the temporal fields violate their ordering.
var ErrInvalidTimeline = errors.New("events: end >= start >= registration deadline >= registration start required")

// GroupRef references a directory group an event is wired to. Tag is the
// short organizational tag the invite was issued under (e.g. "DPV" for a
// federation-wide invite); it selects the leadership pathway during role
// resolution.
type GroupRef struct {
	ID  string `json:"id"`
	Tag string `json:"tag,omitempty"`
}

// Event is a camp, training, or assembly that org units register for.
type Event struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Location    string `json:"location,omitempty"`

	StartAt              time.Time `json:"start_at"`
	EndAt                time.Time `json:"end_at"`
	RegistrationStart    time.Time `json:"registration_start"`
	RegistrationDeadline time.Time `json:"registration_deadline"`

	// ResponsiblePersons is the explicit override list: these users are
	// event admins regardless of any group membership. The creator is added
	// on create and is the sole initial admin.
	ResponsiblePersons []int64 `json:"responsible_persons"`

	// ViewGroupID and AdminGroupID reference the directory groups whose
	// members get view and admin authority over the event.
	ViewGroupID  string `json:"view_group_id,omitempty"`
	AdminGroupID string `json:"admin_group_id,omitempty"`

	// InvitedGroups lists the directory groups (with their structural
	// descendants) the event is visible to.
	InvitedGroups []GroupRef `json:"invited_groups,omitempty"`

	// RegistrationLevel is the org-unit level registrations are recorded at.
	RegistrationLevel hierarchy.Level `json:"registration_level"`

	// ViewAllowSubgroup enables the leadership-role read pathway for
	// federation and region leaders.
	ViewAllowSubgroup bool `json:"view_allow_subgroup"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsResponsible reports whether the user is on the explicit override list.
func (e *Event) IsResponsible(userID int64) bool {
	for _, id := range e.ResponsiblePersons {
		if id == userID {
			return true
		}
	}
	return false
}

// HasInvitedTag reports whether any invited group carries the given tag.
func (e *Event) HasInvitedTag(tag string) bool {
	for _, ref := range e.InvitedGroups {
		if ref.Tag == tag {
			return true
		}
	}
	return false
}

// RegistrationOpen reports whether registrations are accepted at the given
// time.
func (e *Event) RegistrationOpen(at time.Time) bool {
	return !at.Before(e.RegistrationStart) && !at.After(e.RegistrationDeadline)
}

// timelineChanged reports whether any temporal field differs between the two
// versions.
func timelineChanged(old, updated *Event) bool {
	return !old.StartAt.Equal(updated.StartAt) ||
		!old.EndAt.Equal(updated.EndAt) ||
		!old.RegistrationStart.Equal(updated.RegistrationStart) ||
		!old.RegistrationDeadline.Equal(updated.RegistrationDeadline)
}

// ValidateTimeline enforces end >= start >= registration deadline >=
// registration start. The ordering is checked only when a temporal field
// changes: old is the stored version (nil on create), updated the incoming
// one. Existing events with historic inconsistencies stay readable and
// editable in their non-temporal fields.
func ValidateTimeline(old, updated *Event) error {
	if old != nil && !timelineChanged(old, updated) {
		return nil
	}

	if updated.EndAt.Before(updated.StartAt) ||
		updated.StartAt.Before(updated.RegistrationDeadline) ||
		updated.RegistrationDeadline.Before(updated.RegistrationStart) {
		return ErrInvalidTimeline
	}
	return nil
}

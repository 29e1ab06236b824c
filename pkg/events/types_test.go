package events

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func day(offset int) time.Time {
	base := time.Date(2026, 7, 1, 12, 0, 0, 0, time.UTC)
	return base.AddDate(0, 0, offset)
}

func validEvent() *Event {
	return &Event{
		Name:                 "Bundeslager",
		RegistrationStart:    day(0),
		RegistrationDeadline: day(30),
		StartAt:              day(60),
		EndAt:                day(70),
	}
}

func TestValidateTimeline(t *testing.T) {
	t.Run("ordered timeline passes on create", func(t *testing.T) {
		assert.NoError(t, ValidateTimeline(nil, validEvent()))
	})

	t.Run("end before start fails", func(t *testing.T) {
		event := validEvent()
		event.EndAt = day(59)
		assert.ErrorIs(t, ValidateTimeline(nil, event), ErrInvalidTimeline)
	})

	t.Run("start before deadline fails", func(t *testing.T) {
		event := validEvent()
		event.StartAt = day(20)
		assert.ErrorIs(t, ValidateTimeline(nil, event), ErrInvalidTimeline)
	})

	t.Run("deadline before registration start fails", func(t *testing.T) {
		event := validEvent()
		event.RegistrationDeadline = day(-1)
		assert.ErrorIs(t, ValidateTimeline(nil, event), ErrInvalidTimeline)
	})

	t.Run("zero-length event on a single day passes", func(t *testing.T) {
		event := validEvent()
		event.EndAt = event.StartAt
		assert.NoError(t, ValidateTimeline(nil, event))
	})

	t.Run("unchanged broken timeline is not re-validated", func(t *testing.T) {
		// Historic data may violate the ordering; editing a non-temporal
		// field must still be possible.
		stored := validEvent()
		stored.EndAt = day(50)

		updated := *stored
		updated.Name = "renamed"
		assert.NoError(t, ValidateTimeline(stored, &updated))
	})

	t.Run("touching a temporal field re-validates everything", func(t *testing.T) {
		stored := validEvent()
		stored.EndAt = day(50)

		updated := *stored
		updated.EndAt = day(55) // still before start
		assert.ErrorIs(t, ValidateTimeline(stored, &updated), ErrInvalidTimeline)
	})
}

func TestEventHelpers(t *testing.T) {
	event := validEvent()
	event.ResponsiblePersons = []int64{7, 9}
	event.InvitedGroups = []GroupRef{
		{ID: "g-dpv", Tag: "DPV"},
		{ID: "g-other"},
	}

	assert.True(t, event.IsResponsible(7))
	assert.False(t, event.IsResponsible(8))

	assert.True(t, event.HasInvitedTag("DPV"))
	assert.False(t, event.HasInvitedTag("DPBM"))

	assert.True(t, event.RegistrationOpen(day(15)))
	assert.False(t, event.RegistrationOpen(day(31)))
	assert.False(t, event.RegistrationOpen(day(-1)))
}

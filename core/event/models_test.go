package event

import (
	"strings"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/innocell/innocell/core"
)

func newValidate() *validator.Validate {
	validate := validator.New()
	core.InitValidators(validate, core.NewTranslator())
	return validate
}

func fieldErrors(t *testing.T, err error) []core.FieldError {
	t.Helper()
	vErr, ok := err.(*core.ValidationError)
	require.True(t, ok, "got %T: %v", err, err)
	return vErr.Fields
}

func TestEvent_RegistrationClosesAt(t *testing.T) {
	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	deadline := start.Add(-24 * time.Hour)

	assert.Equal(t, start, Event{StartsAt: start}.RegistrationClosesAt())
	assert.Equal(t, deadline, Event{StartsAt: start, RegistrationDeadline: deadline}.RegistrationClosesAt())
	assert.True(t, Event{Fee: 1}.IsPaid())
	assert.False(t, Event{}.IsPaid())
}

func TestParticipationStatus_Active(t *testing.T) {
	assert.True(t, StatusRegistered.Active())
	assert.True(t, StatusPendingPayment.Active())
	assert.False(t, StatusCancelled.Active())
}

func TestValidateSchedule(t *testing.T) {
	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	assert.NoError(t, validateSchedule(start, time.Time{}, false, 0))
	assert.NoError(t, validateSchedule(start, start, true, 4))
	assert.Equal(t,
		[]core.FieldError{{Field: "registration_deadline", Error: "must not be after starts_at"}},
		fieldErrors(t, validateSchedule(start, start.Add(time.Minute), false, 0)),
	)
	assert.Equal(t,
		[]core.FieldError{{Field: "max_team_size", Error: "team events need a max team size"}},
		fieldErrors(t, validateSchedule(start, time.Time{}, true, 0)),
	)
}

func TestNewEvent_Validate(t *testing.T) {
	validate := newValidate()
	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	ne := NewEvent{Title: "  Demo Day ", Slug: " Demo-Day ", StartsAt: start, EndsAt: start.Add(time.Hour)}
	require.NoError(t, ne.Validate(validate))
	assert.Equal(t, "Demo Day", ne.Title)
	assert.Equal(t, "demo-day", ne.Slug)

	ne = NewEvent{Title: "Demo Day", StartsAt: start, EndsAt: start.Add(-time.Hour)}
	assert.Error(t, ne.Validate(validate))

	ne = NewEvent{Title: "Demo Day", Slug: "demo day", StartsAt: start, EndsAt: start}
	assert.Error(t, ne.Validate(validate))
}

func TestUpdateEvent_Apply(t *testing.T) {
	validate := newValidate()
	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	orig := Event{
		ID: "1", Title: "Demo Day", Slug: "demo-day", Venue: "Hall A",
		StartsAt: start, EndsAt: start.Add(3 * time.Hour), Capacity: 100, IsPublished: true,
	}

	t.Run("nil fields keep values", func(t *testing.T) {
		uu := UpdateEvent{Title: " Demo Night "}
		got, err := uu.Apply(orig, validate)
		require.NoError(t, err)
		want := orig
		want.Title = "Demo Night"
		assert.Equal(t, want, got)
	})

	t.Run("fields are replaced", func(t *testing.T) {
		venue, capacity, fee, published := "  ", 0, int64(5000), false
		uu := UpdateEvent{Venue: &venue, Capacity: &capacity, Fee: &fee, IsPublished: &published}
		got, err := uu.Apply(orig, validate)
		require.NoError(t, err)
		assert.Equal(t, "", got.Venue)
		assert.Equal(t, 0, got.Capacity)
		assert.Equal(t, int64(5000), got.Fee)
		assert.False(t, got.IsPublished)
		assert.Equal(t, "demo-day", got.Slug)
	})

	t.Run("times are stored in UTC", func(t *testing.T) {
		ist := time.FixedZone("IST", 5*3600+1800)
		newStart := time.Date(2026, 3, 2, 10, 0, 0, 0, ist)
		newEnd := newStart.Add(2 * time.Hour)
		uu := UpdateEvent{StartsAt: &newStart, EndsAt: &newEnd}
		got, err := uu.Apply(orig, validate)
		require.NoError(t, err)
		assert.Equal(t, time.UTC, got.StartsAt.Location())
		assert.True(t, got.StartsAt.Equal(newStart))
	})

	t.Run("schedule checked on the result", func(t *testing.T) {
		earlyEnd := start.Add(-time.Hour)
		uu := UpdateEvent{EndsAt: &earlyEnd}
		_, err := uu.Apply(orig, validate)
		assert.Equal(t, []core.FieldError{{Field: "ends_at", Error: "must be after starts_at"}}, fieldErrors(t, err))

		teamEvent := true
		uu = UpdateEvent{IsTeamEvent: &teamEvent}
		_, err = uu.Apply(orig, validate)
		assert.Equal(t, []core.FieldError{{Field: "max_team_size", Error: "team events need a max team size"}}, fieldErrors(t, err))
	})

	t.Run("invalid values", func(t *testing.T) {
		capacity := -1
		uu := UpdateEvent{Title: "ab", Capacity: &capacity}
		_, err := uu.Apply(orig, validate)
		assert.IsType(t, validator.ValidationErrors{}, err)
	})
}

func TestAttendance_Validate(t *testing.T) {
	validate := newValidate()
	id := "6ba7b810-9dad-11d1-80b4-00c04fd430c8"

	att := Attendance{UserIDs: []string{id, " " + strings.ToUpper(id), "", id}}
	require.NoError(t, att.Validate(validate))
	assert.Equal(t, []string{id}, att.UserIDs)
	assert.True(t, att.IsAttended())

	att = Attendance{UserIDs: []string{"  "}}
	assert.Error(t, att.Validate(validate))
}

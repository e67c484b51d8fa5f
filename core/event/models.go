package event

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/innocell/innocell/core"
)

type Event struct {
	ID                   string    `json:"id"`
	Title                string    `json:"title"`
	Slug                 string    `json:"slug"`
	Description          string    `json:"description"`
	Venue                string    `json:"venue"`
	StartsAt             time.Time `json:"starts_at"`
	EndsAt               time.Time `json:"ends_at"`
	RegistrationDeadline time.Time `json:"registration_deadline"`
	Capacity             int       `json:"capacity"` // 0: unlimited
	Fee                  int64     `json:"fee"`      // minor units (paise)
	IsTeamEvent          bool      `json:"is_team_event"`
	MaxTeamSize          int       `json:"max_team_size"`
	IsPublished          bool      `json:"is_published"`
	CreatedBy            string    `json:"created_by,omitempty"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
}

func (e Event) IsPaid() bool { return e.Fee > 0 }

// RegistrationClosesAt returns the registration deadline, defaulting to the start of the event.
func (e Event) RegistrationClosesAt() time.Time {
	if !e.RegistrationDeadline.IsZero() {
		return e.RegistrationDeadline
	}
	return e.StartsAt
}

// ParticipationStatus is the state of a user's registration to an event.
type ParticipationStatus string

const (
	StatusRegistered     ParticipationStatus = "registered"
	StatusPendingPayment ParticipationStatus = "pending_payment"
	StatusCancelled      ParticipationStatus = "cancelled"
)

// Active reports whether the participation holds a seat.
func (s ParticipationStatus) Active() bool {
	return s == StatusRegistered || s == StatusPendingPayment
}

type Participation struct {
	ID           string              `json:"id"`
	EventID      string              `json:"event_id"`
	UserID       string              `json:"user_id"`
	TeamID       string              `json:"team_id,omitempty"`
	Status       ParticipationStatus `json:"status"`
	Attended     bool                `json:"attended"`
	AttendedAt   time.Time           `json:"attended_at"`
	RegisteredAt time.Time           `json:"registered_at"`

	// read-only, joined from the user table
	UserName  string `json:"user_name,omitempty"`
	UserEmail string `json:"user_email,omitempty"`
}

// NewEvent is the event creation form.
type NewEvent struct {
	Title                string    `json:"title" validate:"required,min=3,max=255"`
	Slug                 string    `json:"slug" validate:"omitempty,max=255,slug"`
	Description          string    `json:"description"`
	Venue                string    `json:"venue" validate:"max=255"`
	StartsAt             time.Time `json:"starts_at" validate:"required"`
	EndsAt               time.Time `json:"ends_at" validate:"required,gtefield=StartsAt"`
	RegistrationDeadline time.Time `json:"registration_deadline"`
	Capacity             int       `json:"capacity" validate:"min=0"`
	Fee                  int64     `json:"fee" validate:"min=0"`
	IsTeamEvent          bool      `json:"is_team_event"`
	MaxTeamSize          int       `json:"max_team_size" validate:"min=0,max=20"`
	IsPublished          bool      `json:"is_published"`
}

func (ne *NewEvent) Validate(validate *validator.Validate) error {
	ne.Title = core.CleanString(ne.Title)
	ne.Slug = core.CleanString(ne.Slug, true /* lower */)
	ne.Description = core.CleanString(ne.Description)
	ne.Venue = core.CleanString(ne.Venue)
	if err := validate.Struct(ne); err != nil {
		return err
	}
	return validateSchedule(ne.StartsAt, ne.RegistrationDeadline, ne.IsTeamEvent, ne.MaxTeamSize)
}

// UpdateEvent replaces the editable fields of an event; nil pointers keep the current value.
type UpdateEvent struct {
	Title                string     `json:"title" validate:"omitempty,min=3,max=255"`
	Description          *string    `json:"description"`
	Venue                *string    `json:"venue" validate:"omitempty,max=255"`
	StartsAt             *time.Time `json:"starts_at"`
	EndsAt               *time.Time `json:"ends_at"`
	RegistrationDeadline *time.Time `json:"registration_deadline"`
	Capacity             *int       `json:"capacity" validate:"omitempty,min=0"`
	Fee                  *int64     `json:"fee" validate:"omitempty,min=0"`
	IsTeamEvent          *bool      `json:"is_team_event"`
	MaxTeamSize          *int       `json:"max_team_size" validate:"omitempty,min=0,max=20"`
	IsPublished          *bool      `json:"is_published"`
}

// Apply validates uu against orig and returns the updated event.
func (uu *UpdateEvent) Apply(orig Event, validate *validator.Validate) (Event, error) {
	uu.Title = core.CleanString(uu.Title)
	if err := validate.Struct(uu); err != nil {
		return Event{}, err
	}

	evt := orig
	if uu.Title != "" {
		evt.Title = uu.Title
	}
	if uu.Description != nil {
		evt.Description = core.CleanString(*uu.Description)
	}
	if uu.Venue != nil {
		evt.Venue = core.CleanString(*uu.Venue)
	}
	if uu.StartsAt != nil {
		evt.StartsAt = uu.StartsAt.UTC()
	}
	if uu.EndsAt != nil {
		evt.EndsAt = uu.EndsAt.UTC()
	}
	if uu.RegistrationDeadline != nil {
		evt.RegistrationDeadline = uu.RegistrationDeadline.UTC()
	}
	if uu.Capacity != nil {
		evt.Capacity = *uu.Capacity
	}
	if uu.Fee != nil {
		evt.Fee = *uu.Fee
	}
	if uu.IsTeamEvent != nil {
		evt.IsTeamEvent = *uu.IsTeamEvent
	}
	if uu.MaxTeamSize != nil {
		evt.MaxTeamSize = *uu.MaxTeamSize
	}
	if uu.IsPublished != nil {
		evt.IsPublished = *uu.IsPublished
	}

	if evt.EndsAt.Before(evt.StartsAt) {
		return Event{}, core.NewFieldError("ends_at", "must be after starts_at")
	}
	if err := validateSchedule(evt.StartsAt, evt.RegistrationDeadline, evt.IsTeamEvent, evt.MaxTeamSize); err != nil {
		return Event{}, err
	}
	return evt, nil
}

func validateSchedule(startsAt, deadline time.Time, isTeamEvent bool, maxTeamSize int) error {
	if !deadline.IsZero() && deadline.After(startsAt) {
		return core.NewFieldError("registration_deadline", "must not be after starts_at")
	}
	if isTeamEvent && maxTeamSize < 1 {
		return core.NewFieldError("max_team_size", "team events need a max team size")
	}
	return nil
}

// RegisterRequest is sent by a user registering to an event.
type RegisterRequest struct {
	TeamID string `json:"team_id" validate:"omitempty,uuid"`
}

// Attendance marks the listed participants as (not) attended.
type Attendance struct {
	UserIDs  []string `json:"user_ids" validate:"required,min=1,dive,uuid"`
	Attended *bool    `json:"attended"`
}

func (a *Attendance) Validate(validate *validator.Validate) error {
	a.UserIDs = core.UniqueStrings(core.CleanStrings(a.UserIDs, true /* lower */))
	return validate.Struct(a)
}

// IsAttended defaults to true.
func (a Attendance) IsAttended() bool {
	return a.Attended == nil || *a.Attended
}

type QueryFilter struct {
	Search    string `query:"search"`
	When      string `query:"when"` // upcoming | past
	Published *bool  `query:"published"`
	TeamEvent *bool  `query:"team_event"`

	Now time.Time `query:"-"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.When = core.CleanString(qf.When, true /* lower */)
	if qf.When != "upcoming" && qf.When != "past" {
		qf.When = ""
	}
}

type GetFilter struct {
	ID   string
	Slug string
}

type ParticipationFilter struct {
	EventID  string
	UserID   string
	TeamID   string
	Statuses []ParticipationStatus
	Attended *bool `query:"attended"`
}

// Stats aggregates participations across all events.
type Stats struct {
	Participations int `json:"participations"`
	Attended       int `json:"attended"`
	Upcoming       int `json:"upcoming_events"`
}

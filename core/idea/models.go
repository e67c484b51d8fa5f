package idea

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/innocell/innocell/core"
)

// Status is the moderation state of an Idea.
type Status string

const (
	StatusPending     Status = "Pending"
	StatusApproved    Status = "Approved"
	StatusRejected    Status = "Rejected"
	StatusImplemented Status = "Implemented"
)

var (
	Statuses = []Status{StatusPending, StatusApproved, StatusRejected, StatusImplemented}

	Categories = []string{
		"edtech", "healthcare", "agritech", "fintech", "sustainability",
		"social", "hardware", "software", "campus", "other",
	}

	// transitions lists the statuses reachable from each status.
	transitions = map[Status][]Status{
		StatusPending:     {StatusApproved, StatusRejected},
		StatusApproved:    {StatusImplemented},
		StatusRejected:    {StatusPending},
		StatusImplemented: {},
	}
)

func (s Status) Valid() bool {
	_, ok := transitions[s]
	return ok
}

// CanTransitionTo reports whether moderation may move an idea from s to next.
func (s Status) CanTransitionTo(next Status) bool {
	for _, st := range transitions[s] {
		if st == next {
			return true
		}
	}
	return false
}

// Public reports whether ideas in this status are visible to every user.
func (s Status) Public() bool {
	return s == StatusApproved || s == StatusImplemented
}

type Idea struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Summary     string    `json:"summary"`
	Description string    `json:"description"`
	Category    string    `json:"category"`
	Status      Status    `json:"status"`
	SubmittedBy string    `json:"submitted_by"`
	TeamID      string    `json:"team_id,omitempty"`
	ReviewedBy  string    `json:"reviewed_by,omitempty"`
	ReviewNote  string    `json:"review_note,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	ReviewedAt  time.Time `json:"reviewed_at"`
}

// NewIdea is the idea submission form.
type NewIdea struct {
	Title       string `json:"title" validate:"required,min=5,max=255"`
	Summary     string `json:"summary" validate:"max=500"`
	Description string `json:"description" validate:"required,min=20"`
	Category    string `json:"category" validate:"required,ideacategory"`
	TeamID      string `json:"team_id" validate:"omitempty,uuid"`
}

func (ni *NewIdea) Validate(validate *validator.Validate) error {
	ni.Title = core.CleanString(ni.Title)
	ni.Summary = core.CleanString(ni.Summary)
	ni.Description = core.CleanString(ni.Description)
	ni.Category = core.CleanString(ni.Category, true /* lower */)
	ni.TeamID = core.CleanString(ni.TeamID, true /* lower */)
	return validate.Struct(ni)
}

// UpdateIdea carries the fields an owner may change while the idea is pending.
type UpdateIdea struct {
	Title       string `json:"title" validate:"omitempty,min=5,max=255"`
	Summary     string `json:"summary" validate:"max=500"`
	Description string `json:"description" validate:"omitempty,min=20"`
	Category    string `json:"category" validate:"omitempty,ideacategory"`
}

func (ui *UpdateIdea) Validate(orig Idea, validate *validator.Validate) error {
	if ui.Title = core.CleanString(ui.Title); ui.Title == "" {
		ui.Title = orig.Title
	}
	if ui.Summary = core.CleanString(ui.Summary); ui.Summary == "" {
		ui.Summary = orig.Summary
	}
	if ui.Description = core.CleanString(ui.Description); ui.Description == "" {
		ui.Description = orig.Description
	}
	if ui.Category = core.CleanString(ui.Category, true /* lower */); ui.Category == "" {
		ui.Category = orig.Category
	}
	return validate.Struct(ui)
}

// Moderation is a reviewer's decision on an idea.
type Moderation struct {
	Status Status `json:"status" validate:"required,ideastatus"`
	Note   string `json:"note" validate:"max=2000"`
}

func (m *Moderation) Validate(validate *validator.Validate) error {
	m.Note = core.CleanString(m.Note)
	return validate.Struct(m)
}

type QueryFilter struct {
	Search      string   `query:"search"`
	Statuses    []string `query:"status"`
	Categories  []string `query:"category"`
	SubmittedBy string   `query:"submitted_by"`
	TeamID      string   `query:"team_id"`

	// VisibleTo restricts results to public ideas plus the ideas submitted by this user.
	VisibleTo string `query:"-"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.Statuses = core.CleanStrings(qf.Statuses)
	qf.Categories = core.CleanStrings(qf.Categories, true /* lower */)
	qf.SubmittedBy = core.CleanString(qf.SubmittedBy, true /* lower */)
	qf.TeamID = core.CleanString(qf.TeamID, true /* lower */)
}

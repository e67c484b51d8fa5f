package page

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/innocell/innocell/core"
)

type Page struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Slug        string    `json:"slug"`
	Content     string    `json:"content"` // HTML
	IsPublished bool      `json:"is_published"`
	ShowInNav   bool      `json:"show_in_nav"`
	NavOrder    int       `json:"nav_order"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// NavItem is a published page linked from the site navigation.
type NavItem struct {
	Title string `json:"title"`
	Slug  string `json:"slug"`
}

type NewPage struct {
	Title       string `json:"title" validate:"required,max=255"`
	Slug        string `json:"slug" validate:"omitempty,max=255,slug"`
	Content     string `json:"content"`
	IsPublished bool   `json:"is_published"`
	ShowInNav   bool   `json:"show_in_nav"`
	NavOrder    int    `json:"nav_order" validate:"min=0,max=1000"`
}

func (np *NewPage) Validate(validate *validator.Validate) error {
	np.Title = core.CleanString(np.Title)
	np.Slug = core.CleanString(np.Slug, true /* lower */)
	return validate.Struct(np)
}

type UpdatePage struct {
	Title       string  `json:"title" validate:"omitempty,max=255"`
	Slug        string  `json:"slug" validate:"omitempty,max=255,slug"`
	Content     *string `json:"content"`
	IsPublished *bool   `json:"is_published"`
	ShowInNav   *bool   `json:"show_in_nav"`
	NavOrder    *int    `json:"nav_order" validate:"omitempty,min=0,max=1000"`
}

func (up *UpdatePage) Validate(validate *validator.Validate) error {
	up.Title = core.CleanString(up.Title)
	up.Slug = core.CleanString(up.Slug, true /* lower */)
	return validate.Struct(up)
}

type QueryFilter struct {
	Search    string `query:"search"`
	Published *bool  `query:"published"`
	InNav     *bool  `query:"in_nav"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
}

type GetFilter struct {
	ID   string
	Slug string
}

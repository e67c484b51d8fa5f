package team

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/innocell/innocell/core"
)

const (
	RoleLeader = "leader"
	RoleMember = "member"

	// DefaultMaxSize applies to teams not bound to an event and created without a size.
	DefaultMaxSize = 4
	MaxSizeLimit   = 20
	JoinCodeLength = 8
)

type Team struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	JoinCode  string    `json:"join_code,omitempty"`
	LeaderID  string    `json:"leader_id"`
	EventID   string    `json:"event_id,omitempty"`
	MaxSize   int       `json:"max_size"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Members []Member `json:"members,omitempty"`
}

type Member struct {
	TeamID   string    `json:"team_id"`
	UserID   string    `json:"user_id"`
	Role     string    `json:"role"`
	JoinedAt time.Time `json:"joined_at"`

	// read-only, joined from the user table
	UserName string `json:"user_name,omitempty"`
}

// HasMember reports whether userID is listed in t.Members.
func (t Team) HasMember(userID string) bool {
	for _, m := range t.Members {
		if m.UserID == userID {
			return true
		}
	}
	return false
}

type NewTeam struct {
	Name    string `json:"name" validate:"required,min=2,max=100"`
	EventID string `json:"event_id" validate:"omitempty,uuid"`
	MaxSize int    `json:"max_size" validate:"min=0,max=20"`
}

func (nt *NewTeam) Validate(validate *validator.Validate) error {
	nt.Name = core.CleanString(nt.Name)
	nt.EventID = core.CleanString(nt.EventID, true /* lower */)
	return validate.Struct(nt)
}

type UpdateTeam struct {
	Name string `json:"name" validate:"required,min=2,max=100"`
}

func (ut *UpdateTeam) Validate(validate *validator.Validate) error {
	ut.Name = core.CleanString(ut.Name)
	return validate.Struct(ut)
}

type JoinRequest struct {
	Code string `json:"code" validate:"required,len=8,alphanum"`
}

func (jr *JoinRequest) Validate(validate *validator.Validate) error {
	jr.Code = NormalizeCode(jr.Code)
	return validate.Struct(jr)
}

// NormalizeCode upper-cases a user supplied join code and strips surrounding whitespace.
func NormalizeCode(code string) string {
	return strings.ToUpper(core.CleanString(code))
}

type QueryFilter struct {
	Search  string `query:"search"`
	EventID string `query:"event_id"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.EventID = core.CleanString(qf.EventID, true /* lower */)
}

type GetFilter struct {
	ID       string
	JoinCode string
}

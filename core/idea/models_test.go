package idea

import (
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"

	"github.com/innocell/innocell/core"
)

func TestStatus_CanTransitionTo(t *testing.T) {
	tests := []struct {
		from Status
		to   Status
		want bool
	}{
		{StatusPending, StatusApproved, true},
		{StatusPending, StatusRejected, true},
		{StatusPending, StatusImplemented, false},
		{StatusPending, StatusPending, false},
		{StatusApproved, StatusImplemented, true},
		{StatusApproved, StatusRejected, false},
		{StatusApproved, StatusPending, false},
		{StatusRejected, StatusPending, true},
		{StatusRejected, StatusApproved, false},
		{StatusImplemented, StatusApproved, false},
		{StatusImplemented, StatusRejected, false},
		{"Unknown", StatusApproved, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestStatus_Public(t *testing.T) {
	assert.False(t, StatusPending.Public())
	assert.True(t, StatusApproved.Public())
	assert.False(t, StatusRejected.Public())
	assert.True(t, StatusImplemented.Public())
	assert.False(t, Status("pending").Valid())
}

func newValidate() *validator.Validate {
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	InitValidators(validate, translator)
	return validate
}

func failedTags(err error) map[string]string {
	tags := make(map[string]string)
	if vErrs, ok := err.(validator.ValidationErrors); ok {
		for _, fe := range vErrs {
			tags[fe.Field()] = fe.Tag()
		}
	}
	return tags
}

func TestNewIdea_Validate(t *testing.T) {
	validate := newValidate()

	tests := []struct {
		name     string
		data     NewIdea
		wantTags map[string]string
	}{
		{
			name:     "required fields",
			data:     NewIdea{Title: "   "},
			wantTags: map[string]string{"title": "required", "description": "required", "category": "required"},
		},
		{
			name: "unknown category and bad team",
			data: NewIdea{
				Title: "Solar benches", Description: "Benches that charge phones on campus", Category: "space", TeamID: "team-1",
			},
			wantTags: map[string]string{"category": "ideacategory", "team_id": "uuid"},
		},
		{
			name: "valid",
			data: NewIdea{
				Title: " Solar benches ", Description: "Benches that charge phones on campus", Category: " Hardware ",
			},
			wantTags: map[string]string{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.data.Validate(validate)
			assert.Equal(t, tt.wantTags, failedTags(err))
		})
	}

	t.Run("cleaned", func(t *testing.T) {
		ni := NewIdea{Title: " Solar benches ", Description: "Benches that charge phones on campus", Category: " Hardware "}
		assert.NoError(t, ni.Validate(validate))
		assert.Equal(t, "Solar benches", ni.Title)
		assert.Equal(t, "hardware", ni.Category)
	})
}

func TestUpdateIdea_Validate(t *testing.T) {
	validate := newValidate()
	orig := Idea{Title: "Solar benches", Summary: "Charge phones", Description: "Benches that charge phones on campus", Category: "hardware"}

	ui := UpdateIdea{Summary: "  Charge phones outside  "}
	assert.NoError(t, ui.Validate(orig, validate))
	assert.Equal(t, UpdateIdea{
		Title:       orig.Title,
		Summary:     "Charge phones outside",
		Description: orig.Description,
		Category:    orig.Category,
	}, ui)

	ui = UpdateIdea{Description: "too short", Category: "space"}
	assert.Equal(t, map[string]string{"description": "min", "category": "ideacategory"}, failedTags(ui.Validate(orig, validate)))
}

func TestModeration_Validate(t *testing.T) {
	validate := newValidate()

	m := Moderation{Status: StatusApproved, Note: "  Nice  "}
	assert.NoError(t, m.Validate(validate))
	assert.Equal(t, "Nice", m.Note)

	m = Moderation{Status: "approved"}
	assert.Equal(t, map[string]string{"status": "ideastatus"}, failedTags(m.Validate(validate)))
	m = Moderation{}
	assert.Equal(t, map[string]string{"status": "required"}, failedTags(m.Validate(validate)))
}

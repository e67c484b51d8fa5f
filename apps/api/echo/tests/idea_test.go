package tests

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/innocell/innocell/core"
	"github.com/innocell/innocell/core/idea"
	"github.com/innocell/innocell/core/user"
)

func createIdea(t *testing.T, submitter user.User, title string, status idea.Status) idea.Idea {
	t.Helper()
	now := core.Now()
	i, err := ideaRepo.CreateIdea(context.Background(), idea.Idea{
		Title:       title,
		Description: "A long enough description of " + title,
		Category:    "campus",
		Status:      status,
		SubmittedBy: submitter.ID,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	require.NoError(t, err)
	return i
}

func Test_ideaApi_submit(t *testing.T) {
	resetDB()

	student := createStudent(t, "hero")
	other := createStudent(t, "other")
	tm := createTeam(t, "Builders", "BUILD001", other, "", 4)
	token := getToken(t, student)

	valid := idea.NewIdea{
		Title:       "Smart canteen queue",
		Summary:     "Cut the lunch queue",
		Description: "Students order from their phones and pick up when notified.",
		Category:    "Campus",
	}

	tests := []httpTest{
		{name: "Auth required", body: marshalObj(t, valid), wantCode: http.StatusUnauthorized, wantData: marshalObj(t, errMissingToken)},
		{
			name: "invalid form", token: token, wantCode: http.StatusBadRequest,
			body: marshalObj(t, idea.NewIdea{Title: "Lol", Description: "too short", Category: "lol"}),
			wantData: marshalObj(t, map[string]string{
				"title":       "title must be at least 5 characters in length",
				"description": "description must be at least 20 characters in length",
				"category":    "unknown idea category",
			}),
		},
		{
			name: "not a team member", token: token, wantCode: http.StatusBadRequest,
			body:     marshalObj(t, idea.NewIdea{Title: valid.Title, Description: valid.Description, Category: valid.Category, TeamID: tm.ID}),
			wantData: marshalObj(t, map[string]string{"team_id": "you are not a member of this team"}),
		},
	}
	for i := range tests {
		tests[i].method = http.MethodPost
		tests[i].path = "/v1/ideas"
	}
	runHTTPTests(t, tests)

	t.Run("submitted", func(t *testing.T) {
		rec := do(t, http.MethodPost, "/v1/ideas", token, valid)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		var got idea.Idea
		decode(t, rec, &got)
		assert.NotEmpty(t, got.ID)
		assert.Equal(t, idea.StatusPending, got.Status)
		assert.Equal(t, "campus", got.Category)
		assert.Equal(t, student.ID, got.SubmittedBy)
	})
}

func Test_ideaApi_visibility(t *testing.T) {
	resetDB()

	author := createStudent(t, "author")
	other := createStudent(t, "other")
	mentor := createUser(t, "Mentor", "mentor", "mentor@test.in", "LolC@t123", []string{user.RoleMentor}, true)

	pending := createIdea(t, author, "Pending idea", idea.StatusPending)
	approved := createIdea(t, author, "Approved idea", idea.StatusApproved)
	rejected := createIdea(t, other, "Rejected idea", idea.StatusRejected)

	ids := func(t *testing.T, token string) []string {
		rec := do(t, http.MethodGet, "/v1/ideas", token, nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var ideas []idea.Idea
		decode(t, rec, &ideas)
		out := make([]string, 0, len(ideas))
		for _, i := range ideas {
			out = append(out, i.ID)
		}
		return out
	}

	t.Run("author sees own and public ideas", func(t *testing.T) {
		assert.ElementsMatch(t, []string{pending.ID, approved.ID}, ids(t, getToken(t, author)))
	})
	t.Run("other student sees public and own ideas", func(t *testing.T) {
		assert.ElementsMatch(t, []string{approved.ID, rejected.ID}, ids(t, getToken(t, other)))
	})
	t.Run("mentor sees everything", func(t *testing.T) {
		assert.ElementsMatch(t, []string{pending.ID, approved.ID, rejected.ID}, ids(t, getToken(t, mentor)))
	})

	runHTTPTests(t, []httpTest{
		{
			name: "pending idea hidden from others", method: http.MethodGet, path: "/v1/ideas/" + pending.ID,
			token: getToken(t, other), wantCode: http.StatusNotFound, wantData: marshalObj(t, httpErr{Error: "idea not found"}),
		},
		{name: "approved idea visible", method: http.MethodGet, path: "/v1/ideas/" + approved.ID, token: getToken(t, other)},
		{name: "categories", method: http.MethodGet, path: "/v1/ideas/categories", token: getToken(t, other), wantData: marshalObj(t, idea.Categories)},
	})
}

func Test_ideaApi_moderate(t *testing.T) {
	resetDB()

	author := createStudent(t, "author")
	mentor := createUser(t, "Mentor", "mentor", "mentor@test.in", "LolC@t123", []string{user.RoleMentor}, true)
	pending := createIdea(t, author, "Pending idea", idea.StatusPending)
	mentorToken := getToken(t, mentor)
	path := "/v1/ideas/" + pending.ID + "/moderate"

	runHTTPTests(t, []httpTest{
		{
			name: "students cannot moderate", method: http.MethodPost, path: path, token: getToken(t, author),
			body: marshalObj(t, idea.Moderation{Status: idea.StatusApproved}), wantCode: http.StatusForbidden,
		},
		{
			name: "unknown status", method: http.MethodPost, path: path, token: mentorToken,
			body:     marshalObj(t, idea.Moderation{Status: "Maybe"}),
			wantCode: http.StatusBadRequest, wantData: marshalObj(t, map[string]string{"status": "status must be one of Pending, Approved, Rejected, Implemented"}),
		},
		{
			name: "pending cannot be implemented", method: http.MethodPost, path: path, token: mentorToken,
			body:     marshalObj(t, idea.Moderation{Status: idea.StatusImplemented}),
			wantCode: http.StatusBadRequest, wantData: marshalObj(t, map[string]string{"status": "cannot move a Pending idea to Implemented"}),
		},
	})

	t.Run("approved", func(t *testing.T) {
		mailSvc.Reset()
		rec := do(t, http.MethodPost, path, mentorToken, idea.Moderation{Status: idea.StatusApproved, Note: "  Great work  "})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var got idea.Idea
		decode(t, rec, &got)
		assert.Equal(t, idea.StatusApproved, got.Status)
		assert.Equal(t, "Great work", got.ReviewNote)
		assert.Equal(t, mentor.ID, got.ReviewedBy)
		assert.False(t, got.ReviewedAt.IsZero())

		sent := mailSvc.Sent()
		require.Len(t, sent, 1)
		assert.Equal(t, author.Email, sent[0].To[0].Address)
	})

	runHTTPTests(t, []httpTest{
		{
			name: "approved cannot be rejected", method: http.MethodPost, path: path, token: mentorToken,
			body:     marshalObj(t, idea.Moderation{Status: idea.StatusRejected}),
			wantCode: http.StatusBadRequest, wantData: marshalObj(t, map[string]string{"status": "cannot move a Approved idea to Rejected"}),
		},
		{
			name: "approved ideas are frozen for their author", method: http.MethodPut, path: "/v1/ideas/" + pending.ID,
			token: getToken(t, author), body: marshalObj(t, idea.UpdateIdea{Title: "Another title"}),
			wantCode: http.StatusForbidden, wantData: marshalObj(t, httpErr{Error: "only pending ideas can be changed"}),
		},
		{
			name: "author cannot delete approved idea", method: http.MethodDelete, path: "/v1/ideas/" + pending.ID,
			token: getToken(t, author), wantCode: http.StatusForbidden,
		},
	})
}

func Test_ideaApi_updateAndDelete(t *testing.T) {
	resetDB()

	author := createStudent(t, "author")
	other := createStudent(t, "other")
	admin := createAdmin(t, "admin")
	pending := createIdea(t, author, "Pending idea", idea.StatusPending)
	approved := createIdea(t, other, "Approved idea", idea.StatusApproved)

	t.Run("owner updates pending idea", func(t *testing.T) {
		rec := do(t, http.MethodPut, "/v1/ideas/"+pending.ID, getToken(t, author), idea.UpdateIdea{Title: "Better title", Category: "fintech"})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var got idea.Idea
		decode(t, rec, &got)
		assert.Equal(t, "Better title", got.Title)
		assert.Equal(t, "fintech", got.Category)
		assert.Equal(t, pending.Description, got.Description)
	})

	runHTTPTests(t, []httpTest{
		{
			name: "others cannot update", method: http.MethodPut, path: "/v1/ideas/" + approved.ID, token: getToken(t, author),
			body: marshalObj(t, idea.UpdateIdea{Title: "Hijacked title"}), wantCode: http.StatusForbidden,
		},
		{name: "owner deletes pending idea", method: http.MethodDelete, path: "/v1/ideas/" + pending.ID, token: getToken(t, author), wantCode: http.StatusNoContent},
		{name: "admin deletes any idea", method: http.MethodDelete, path: "/v1/ideas/" + approved.ID, token: getToken(t, admin), wantCode: http.StatusNoContent},
		{name: "deleted", method: http.MethodGet, path: "/v1/ideas/" + approved.ID, token: getToken(t, admin), wantCode: http.StatusNotFound},
	})
}

package tests

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/innocell/innocell/core/event"
	"github.com/innocell/innocell/core/feedback"
)

func Test_feedbackApi_submit(t *testing.T) {
	resetDB()

	student := createStudent(t, "hero")
	token := getToken(t, student)
	attended := createEvent(t, event.Event{Slug: "meetup", IsPublished: true})
	unpaid := createEvent(t, event.Event{Slug: "workshop", IsPublished: true, Fee: 1000})
	createParticipation(t, attended, student, event.StatusRegistered)
	createParticipation(t, unpaid, student, event.StatusPendingPayment)
	notParticipant := marshalObj(t, map[string]string{"event_id": "only participants can give feedback on this event"})

	runHTTPTests(t, []httpTest{
		{name: "Auth required", method: http.MethodPost, path: "/v1/feedback", wantCode: http.StatusUnauthorized, wantData: marshalObj(t, errMissingToken)},
		{
			name: "invalid form", method: http.MethodPost, path: "/v1/feedback", token: token,
			body:     marshalObj(t, feedback.NewFeedback{Rating: 9, Message: "ok"}),
			wantCode: http.StatusBadRequest,
			wantData: marshalObj(t, map[string]string{
				"rating":  "rating must be 5 or less",
				"message": "message must be at least 3 characters in length",
			}),
		},
		{
			name: "unknown event", method: http.MethodPost, path: "/v1/feedback", token: token,
			body:     marshalObj(t, feedback.NewFeedback{EventID: student.ID, Rating: 4, Message: "Great"}),
			wantCode: http.StatusBadRequest, wantData: marshalObj(t, map[string]string{"event_id": "event not found"}),
		},
		{
			name: "pending payment", method: http.MethodPost, path: "/v1/feedback", token: token,
			body:     marshalObj(t, feedback.NewFeedback{EventID: unpaid.ID, Rating: 4, Message: "Great"}),
			wantCode: http.StatusBadRequest, wantData: notParticipant,
		},
		{
			name: "not registered", method: http.MethodPost, path: "/v1/feedback", token: getToken(t, createStudent(t, "other")),
			body:     marshalObj(t, feedback.NewFeedback{EventID: attended.ID, Rating: 4, Message: "Great"}),
			wantCode: http.StatusBadRequest, wantData: notParticipant,
		},
	})

	for name, nf := range map[string]feedback.NewFeedback{
		"event feedback":   {EventID: attended.ID, Rating: 5, Message: "  Loved it "},
		"general feedback": {Rating: 3, Message: "More hackathons please"},
	} {
		t.Run(name, func(t *testing.T) {
			rec := do(t, http.MethodPost, "/v1/feedback", token, nf)
			require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
			var got feedback.Feedback
			decode(t, rec, &got)
			assert.NotEmpty(t, got.ID)
			assert.Equal(t, student.ID, got.UserID)
			assert.Equal(t, nf.EventID, got.EventID)
			assert.Equal(t, nf.Rating, got.Rating)
		})
	}
}

func Test_feedbackApi_admin(t *testing.T) {
	resetDB()

	admin := createAdmin(t, "admin")
	adminToken := getToken(t, admin)
	student := createStudent(t, "hero")
	evt := createEvent(t, event.Event{Slug: "meetup", IsPublished: true})
	createParticipation(t, evt, student, event.StatusRegistered)

	for _, nf := range []feedback.NewFeedback{
		{EventID: evt.ID, Rating: 5, Message: "Great event"},
		{EventID: evt.ID, Rating: 2, Message: "Too crowded"},
		{Rating: 4, Message: "Nice website"},
	} {
		rec := do(t, http.MethodPost, "/v1/feedback", getToken(t, student), nf)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	}

	list := func(t *testing.T, path string) []feedback.Feedback {
		rec := do(t, http.MethodGet, path, adminToken, nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var items []feedback.Feedback
		decode(t, rec, &items)
		return items
	}

	runHTTPTests(t, []httpTest{
		{name: "Admin required", method: http.MethodGet, path: "/v1/feedback", token: getToken(t, student), wantCode: http.StatusForbidden},
		{
			name: "event summary", method: http.MethodGet, path: "/v1/feedback/summary?event_id=" + evt.ID, token: adminToken,
			wantData: []byte(`{"count":2,"average":3.5,"histogram":{"1":0,"2":1,"3":0,"4":0,"5":1}}`),
		},
		{
			name: "overall summary", method: http.MethodGet, path: "/v1/feedback/summary", token: adminToken,
			wantData: []byte(`{"count":3,"average":3.6666666666666665,"histogram":{"1":0,"2":1,"3":0,"4":1,"5":1}}`),
		},
	})

	t.Run("filters", func(t *testing.T) {
		assert.Len(t, list(t, "/v1/feedback"), 3)
		assert.Len(t, list(t, "/v1/feedback?event_id="+evt.ID), 2)
		assert.Len(t, list(t, "/v1/feedback?min_rating=4"), 2)
		general := list(t, "/v1/feedback?general=true")
		require.Len(t, general, 1)
		assert.Equal(t, "Nice website", general[0].Message)
	})

	t.Run("deleted", func(t *testing.T) {
		items := list(t, "/v1/feedback?max_rating=2")
		require.Len(t, items, 1)
		rec := do(t, http.MethodDelete, "/v1/feedback/"+items[0].ID, adminToken, nil)
		assert.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())
		assert.Len(t, list(t, "/v1/feedback"), 2)

		rec = do(t, http.MethodDelete, "/v1/feedback/"+items[0].ID, adminToken, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code, rec.Body.String())
	})
}

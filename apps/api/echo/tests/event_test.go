package tests

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	echoapi "github.com/innocell/innocell/apps/api/echo"
	"github.com/innocell/innocell/core"
	"github.com/innocell/innocell/core/event"
)

func Test_eventApi_create(t *testing.T) {
	resetDB()

	student := createStudent(t, "hero")
	adminToken := getToken(t, createAdmin(t, "admin"))
	startsAt := core.Now().Add(48 * time.Hour).Truncate(time.Second)
	form := event.NewEvent{
		Title:       "Hack Night",
		Venue:       "Lab 3",
		StartsAt:    startsAt,
		EndsAt:      startsAt.Add(5 * time.Hour),
		IsPublished: true,
	}

	runHTTPTests(t, []httpTest{
		{name: "Auth required", method: http.MethodPost, path: "/v1/events", body: marshalObj(t, form), wantCode: http.StatusUnauthorized},
		{name: "Admin required", method: http.MethodPost, path: "/v1/events", token: getToken(t, student), body: marshalObj(t, form), wantCode: http.StatusForbidden},
		{
			name: "team event without team size", method: http.MethodPost, path: "/v1/events", token: adminToken,
			body: marshalObj(t, event.NewEvent{
				Title: form.Title, StartsAt: form.StartsAt, EndsAt: form.EndsAt, IsTeamEvent: true,
			}),
			wantCode: http.StatusBadRequest, wantData: marshalObj(t, map[string]string{"max_team_size": "team events need a max team size"}),
		},
		{
			name: "deadline after start", method: http.MethodPost, path: "/v1/events", token: adminToken,
			body: marshalObj(t, event.NewEvent{
				Title: form.Title, StartsAt: form.StartsAt, EndsAt: form.EndsAt, RegistrationDeadline: form.EndsAt,
			}),
			wantCode: http.StatusBadRequest, wantData: marshalObj(t, map[string]string{"registration_deadline": "must not be after starts_at"}),
		},
	})

	t.Run("required fields", func(t *testing.T) {
		rec := do(t, http.MethodPost, "/v1/events", adminToken, event.NewEvent{})
		require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
		var errs map[string]string
		decode(t, rec, &errs)
		assert.Equal(t, "this field is required", errs["title"])
		assert.Equal(t, "this field is required", errs["starts_at"])
	})

	t.Run("slugs are unique", func(t *testing.T) {
		for _, want := range []string{"hack-night", "hack-night-2"} {
			rec := do(t, http.MethodPost, "/v1/events", adminToken, form)
			require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
			var got event.Event
			decode(t, rec, &got)
			assert.Equal(t, want, got.Slug)
			assert.Equal(t, "Lab 3", got.Venue)
			assert.True(t, got.StartsAt.Equal(startsAt))
		}
	})
}

func Test_eventApi_visibility(t *testing.T) {
	resetDB()

	published := createEvent(t, event.Event{Slug: "open-day", IsPublished: true})
	draft := createEvent(t, event.Event{Slug: "draft-day"})
	past := createEvent(t, event.Event{
		Slug: "last-year", IsPublished: true,
		StartsAt: core.Now().Add(-365 * 24 * time.Hour),
	})
	adminToken := getToken(t, createAdmin(t, "admin"))

	slugs := func(t *testing.T, path, token string) []string {
		rec := do(t, http.MethodGet, path, token, nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var events []event.Event
		decode(t, rec, &events)
		out := make([]string, 0, len(events))
		for _, e := range events {
			out = append(out, e.Slug)
		}
		return out
	}

	t.Run("anonymous visitors see published events", func(t *testing.T) {
		assert.ElementsMatch(t, []string{published.Slug, past.Slug}, slugs(t, "/v1/events", ""))
	})
	t.Run("upcoming only", func(t *testing.T) {
		assert.Equal(t, []string{published.Slug}, slugs(t, "/v1/events?when=upcoming", ""))
	})
	t.Run("admins see drafts", func(t *testing.T) {
		assert.ElementsMatch(t, []string{published.Slug, draft.Slug, past.Slug}, slugs(t, "/v1/events", adminToken))
	})

	runHTTPTests(t, []httpTest{
		{name: "published", method: http.MethodGet, path: "/v1/events/open-day"},
		{
			name: "draft hidden", method: http.MethodGet, path: "/v1/events/draft-day",
			wantCode: http.StatusNotFound, wantData: marshalObj(t, httpErr{Error: "event not found"}),
		},
		{name: "draft visible to admins", method: http.MethodGet, path: "/v1/events/draft-day", token: adminToken},
	})
}

func Test_eventApi_register(t *testing.T) {
	resetDB()

	student := createStudent(t, "hero")
	token := getToken(t, student)
	free := createEvent(t, event.Event{Slug: "free", Title: "Free talk", IsPublished: true})
	paid := createEvent(t, event.Event{Slug: "paid", IsPublished: true, Fee: 25000})
	closed := createEvent(t, event.Event{
		Slug: "closed", IsPublished: true,
		RegistrationDeadline: core.Now().Add(-time.Hour),
	})
	full := createEvent(t, event.Event{Slug: "full", IsPublished: true, Capacity: 1})
	createParticipation(t, full, createStudent(t, "early"), event.StatusRegistered)
	createEvent(t, event.Event{Slug: "teams", IsPublished: true, IsTeamEvent: true, MaxTeamSize: 3})

	t.Run("free event", func(t *testing.T) {
		rec := do(t, http.MethodPost, "/v1/events/free/register", token, event.RegisterRequest{})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		var p event.Participation
		decode(t, rec, &p)
		assert.Equal(t, event.StatusRegistered, p.Status)
		assert.Equal(t, free.ID, p.EventID)
		assert.Equal(t, student.ID, p.UserID)

		sent := mailSvc.Sent()
		require.Len(t, sent, 1)
		assert.Equal(t, "Registration: Free talk", sent[0].Subject)
	})

	t.Run("paid event waits for payment", func(t *testing.T) {
		rec := do(t, http.MethodPost, "/v1/events/paid/register", token, nil)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		var p event.Participation
		decode(t, rec, &p)
		assert.Equal(t, event.StatusPendingPayment, p.Status)
		assert.Equal(t, paid.ID, p.EventID)
	})

	runHTTPTests(t, []httpTest{
		{name: "Auth required", method: http.MethodPost, path: "/v1/events/free/register", wantCode: http.StatusUnauthorized},
		{
			name: "already registered", method: http.MethodPost, path: "/v1/events/free/register", token: token,
			wantCode: http.StatusBadRequest, wantData: marshalObj(t, httpErr{Error: "already registered for this event"}),
		},
		{
			name: "deadline passed", method: http.MethodPost, path: "/v1/events/" + closed.Slug + "/register", token: token,
			wantCode: http.StatusBadRequest, wantData: marshalObj(t, httpErr{Error: "registration for this event is closed"}),
		},
		{
			name: "event full", method: http.MethodPost, path: "/v1/events/full/register", token: token,
			wantCode: http.StatusBadRequest, wantData: marshalObj(t, httpErr{Error: "this event is full"}),
		},
		{
			name: "team required", method: http.MethodPost, path: "/v1/events/teams/register", token: token,
			wantCode: http.StatusBadRequest, wantData: marshalObj(t, map[string]string{"team_id": "this is a team event, a team is required"}),
		},
		{
			name: "unknown event", method: http.MethodPost, path: "/v1/events/nope/register", token: token,
			wantCode: http.StatusNotFound, wantData: marshalObj(t, httpErr{Error: "event not found"}),
		},
	})
}

func Test_eventApi_teamRegistration(t *testing.T) {
	resetDB()

	leader := createStudent(t, "leader")
	mate := createStudent(t, "mate")
	outsider := createStudent(t, "outsider")
	evt := createEvent(t, event.Event{Slug: "hackathon", IsPublished: true, IsTeamEvent: true, MaxTeamSize: 2})
	tm := createTeam(t, "Builders", "BUILD001", leader, evt.ID, 4, mate)
	crowd := createTeam(t, "Crowd", "CROWD001", outsider, evt.ID, 4, createStudent(t, "c1"), createStudent(t, "c2"))

	runHTTPTests(t, []httpTest{
		{
			name: "not a member", method: http.MethodPost, path: "/v1/events/hackathon/register", token: getToken(t, outsider),
			body:     marshalObj(t, event.RegisterRequest{TeamID: tm.ID}),
			wantCode: http.StatusBadRequest, wantData: marshalObj(t, map[string]string{"team_id": "you are not a member of this team"}),
		},
		{
			name: "team too large", method: http.MethodPost, path: "/v1/events/hackathon/register", token: getToken(t, outsider),
			body:     marshalObj(t, event.RegisterRequest{TeamID: crowd.ID}),
			wantCode: http.StatusBadRequest, wantData: marshalObj(t, map[string]string{"team_id": "your team exceeds the event's max team size"}),
		},
		{
			name: "registered with team", method: http.MethodPost, path: "/v1/events/hackathon/register", token: getToken(t, leader),
			body: marshalObj(t, event.RegisterRequest{TeamID: tm.ID}), wantCode: http.StatusCreated,
		},
	})
}

func Test_eventApi_cancel(t *testing.T) {
	resetDB()

	student := createStudent(t, "hero")
	token := getToken(t, student)
	evt := createEvent(t, event.Event{Slug: "talk", IsPublished: true, Capacity: 1})
	started := createEvent(t, event.Event{Slug: "started", IsPublished: true, StartsAt: core.Now().Add(-time.Hour)})
	createParticipation(t, evt, student, event.StatusRegistered)
	createParticipation(t, started, student, event.StatusRegistered)

	runHTTPTests(t, []httpTest{
		{
			name: "cancelled", method: http.MethodPost, path: "/v1/events/talk/cancel", token: token,
			wantData: marshalObj(t, echoapi.SuccessResponse{Success: "Your registration has been cancelled."}),
		},
		{
			name: "nothing to cancel", method: http.MethodPost, path: "/v1/events/talk/cancel", token: token,
			wantCode: http.StatusNotFound, wantData: marshalObj(t, httpErr{Error: "participation not found"}),
		},
		{
			name: "event started", method: http.MethodPost, path: "/v1/events/started/cancel", token: token,
			wantCode: http.StatusBadRequest, wantData: marshalObj(t, httpErr{Error: "registration for this event is closed"}),
		},
	})

	t.Run("cancelled seat is freed", func(t *testing.T) {
		other := createStudent(t, "other")
		rec := do(t, http.MethodPost, "/v1/events/talk/register", getToken(t, other), nil)
		assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	})

	t.Run("participation status", func(t *testing.T) {
		rec := do(t, http.MethodGet, "/v1/events/talk/participation", token, nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var p event.Participation
		decode(t, rec, &p)
		assert.Equal(t, event.StatusCancelled, p.Status)
	})
}

func Test_eventApi_participantsAndAttendance(t *testing.T) {
	resetDB()

	adminToken := getToken(t, createAdmin(t, "admin"))
	evt := createEvent(t, event.Event{Slug: "demo-day", IsPublished: true})
	s1, s2, s3 := createStudent(t, "s1"), createStudent(t, "s2"), createStudent(t, "s3")
	createParticipation(t, evt, s1, event.StatusRegistered)
	createParticipation(t, evt, s2, event.StatusPendingPayment)
	createParticipation(t, evt, s3, event.StatusCancelled)

	userIDs := func(t *testing.T, path string) []string {
		rec := do(t, http.MethodGet, path, adminToken, nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var parts []event.Participation
		decode(t, rec, &parts)
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			out = append(out, p.UserID)
		}
		return out
	}

	t.Run("active participants", func(t *testing.T) {
		assert.ElementsMatch(t, []string{s1.ID, s2.ID}, userIDs(t, "/v1/events/demo-day/participants"))
	})
	t.Run("by status", func(t *testing.T) {
		assert.Equal(t, []string{s3.ID}, userIDs(t, "/v1/events/demo-day/participants?status=cancelled"))
	})

	runHTTPTests(t, []httpTest{
		{
			name: "students cannot list participants", method: http.MethodGet, path: "/v1/events/demo-day/participants",
			token: getToken(t, s1), wantCode: http.StatusForbidden,
		},
		{
			name: "invalid ids", method: http.MethodPost, path: "/v1/events/demo-day/attendance", token: adminToken,
			body: marshalObj(t, event.Attendance{UserIDs: []string{"lol"}}), wantCode: http.StatusBadRequest,
		},
		{
			name: "cancelled participants and repeated ids are skipped", method: http.MethodPost, path: "/v1/events/demo-day/attendance", token: adminToken,
			body:     marshalObj(t, event.Attendance{UserIDs: []string{s1.ID, s3.ID, " " + s1.ID}}),
			wantData: marshalObj(t, echoapi.AttendanceResponse{Updated: 1}),
		},
	})

	t.Run("attended filter", func(t *testing.T) {
		assert.Equal(t, []string{s1.ID}, userIDs(t, "/v1/events/demo-day/participants?attended=true"))
		assert.Equal(t, []string{s2.ID}, userIDs(t, "/v1/events/demo-day/participants?attended=false"))
	})
}

func Test_eventApi_updateAndDelete(t *testing.T) {
	resetDB()

	adminToken := getToken(t, createAdmin(t, "admin"))
	evt := createEvent(t, event.Event{Slug: "expo", IsPublished: true, Capacity: 10})
	earlier := evt.StartsAt.Add(-time.Hour)
	capacity := 50

	t.Run("partial update", func(t *testing.T) {
		rec := do(t, http.MethodPut, "/v1/events/expo", adminToken, event.UpdateEvent{Title: "Expo 2.0", Capacity: &capacity})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var got event.Event
		decode(t, rec, &got)
		assert.Equal(t, "Expo 2.0", got.Title)
		assert.Equal(t, "expo", got.Slug)
		assert.Equal(t, 50, got.Capacity)
		assert.True(t, got.IsPublished)
	})

	runHTTPTests(t, []httpTest{
		{
			name: "ends before start", method: http.MethodPut, path: "/v1/events/expo", token: adminToken,
			body:     marshalObj(t, event.UpdateEvent{EndsAt: &earlier}),
			wantCode: http.StatusBadRequest, wantData: marshalObj(t, map[string]string{"ends_at": "must be after starts_at"}),
		},
		{name: "deleted", method: http.MethodDelete, path: "/v1/events/expo", token: adminToken, wantCode: http.StatusNoContent},
		{name: "gone", method: http.MethodGet, path: "/v1/events/expo", token: adminToken, wantCode: http.StatusNotFound},
	})
}

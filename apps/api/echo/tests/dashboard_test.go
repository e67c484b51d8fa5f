package tests

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/innocell/innocell/core"
	"github.com/innocell/innocell/core/dashboard"
	"github.com/innocell/innocell/core/event"
	"github.com/innocell/innocell/core/feedback"
	"github.com/innocell/innocell/core/idea"
	"github.com/innocell/innocell/core/payment"
	"github.com/innocell/innocell/core/user"
)

func Test_dashboardApi(t *testing.T) {
	resetDB()
	ctx := context.Background()

	admin := createAdmin(t, "admin")
	student := createStudent(t, "hero")
	other := createStudent(t, "other")
	createUser(t, "Mentor", "mentor", "mentor@test.in", "LolC@t123", []string{user.RoleMentor}, true)

	mine := createIdea(t, student, "My pending idea", idea.StatusPending)
	createIdea(t, other, "Their approved idea", idea.StatusApproved)
	createIdea(t, other, "Their rejected idea", idea.StatusRejected)

	evt := createEvent(t, event.Event{Slug: "workshop", IsPublished: true, Fee: 25050})
	createEvent(t, event.Event{Slug: "draft"})
	createParticipation(t, evt, student, event.StatusRegistered)
	createParticipation(t, evt, other, event.StatusCancelled)
	_, err := evtRepo.MarkAttendance(ctx, evt.ID, []string{student.ID}, true, core.Now())
	require.NoError(t, err)

	tm := createTeam(t, "Builders", "BUILD001", student, "", 4)
	createTeam(t, "Others", "OTHER001", other, "", 4)

	now := core.Now()
	for _, p := range []payment.Payment{
		{UserID: student.ID, EventID: evt.ID, Amount: 25050, Currency: "INR", OrderID: "order_1", Status: payment.StatusPaid},
		{UserID: other.ID, EventID: evt.ID, Amount: 25050, Currency: "INR", OrderID: "order_2", Status: payment.StatusFailed},
	} {
		p.Provider, p.CreatedAt, p.UpdatedAt = "dummy", now, now
		_, err = pmtRepo.CreatePayment(ctx, p)
		require.NoError(t, err)
	}
	_, err = fbRepo.CreateFeedback(ctx, feedback.Feedback{UserID: student.ID, EventID: evt.ID, Rating: 4, Message: "Good", CreatedAt: now})
	require.NoError(t, err)

	runHTTPTests(t, []httpTest{
		{name: "Auth required", method: http.MethodGet, path: "/v1/dashboard", wantCode: http.StatusUnauthorized},
		{name: "Admin required", method: http.MethodGet, path: "/v1/dashboard", token: getToken(t, student), wantCode: http.StatusForbidden},
	})

	t.Run("admin", func(t *testing.T) {
		rec := do(t, http.MethodGet, "/v1/dashboard", getToken(t, admin), nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var got dashboard.AdminStats
		decode(t, rec, &got)

		assert.Equal(t, map[string]int{"admin": 1, "mentor": 1, "student": 2}, got.Users)
		assert.Equal(t, map[idea.Status]int{
			idea.StatusPending: 1, idea.StatusApproved: 1, idea.StatusRejected: 1, idea.StatusImplemented: 0,
		}, got.Ideas)
		assert.Equal(t, 1, got.UpcomingEvents)
		assert.Equal(t, 1, got.Participations)
		assert.Equal(t, 1, got.Attended)
		assert.Equal(t, 2, got.Teams)
		assert.Equal(t, int64(25050), got.Revenue)
		assert.Equal(t, "250.50", got.RevenueDisplay)
		assert.Equal(t, 1, got.Feedback.Count)
		assert.Equal(t, 4.0, got.Feedback.Average)
	})

	t.Run("personal", func(t *testing.T) {
		rec := do(t, http.MethodGet, "/v1/dashboard/me", getToken(t, student), nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var got dashboard.Personal
		decode(t, rec, &got)

		require.Len(t, got.Ideas, 1)
		assert.Equal(t, mine.ID, got.Ideas[0].ID)
		require.Len(t, got.Participations, 1)
		assert.Equal(t, evt.ID, got.Participations[0].EventID)
		assert.True(t, got.Participations[0].Attended)
		require.Len(t, got.Teams, 1)
		assert.Equal(t, tm.ID, got.Teams[0].ID)
	})
}

func Test_dashboardApi_usersCountedOncePerGroup(t *testing.T) {
	resetDB()

	owner := createUser(t, "Owner", "owner", "owner@test.in", "LolC@t123", user.AllRoles, true)
	createStudent(t, "hero")

	rec := do(t, http.MethodGet, "/v1/dashboard", getToken(t, owner), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var got dashboard.AdminStats
	decode(t, rec, &got)
	assert.Equal(t, map[string]int{"admin": 1, "mentor": 1, "student": 2}, got.Users)
}

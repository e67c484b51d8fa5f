package tests

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	echoapi "github.com/innocell/innocell/apps/api/echo"
	"github.com/innocell/innocell/core"
	"github.com/innocell/innocell/core/event"
	"github.com/innocell/innocell/core/team"
	"github.com/innocell/innocell/core/user"
)

var errMissingToken = httpErr{Error: "missing or malformed jwt"}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
}

// resetDB empties every table and forgets sent emails.
func resetDB() {
	db.Flush()
	mailSvc.Reset()
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req, httptest.NewRecorder()
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

// do serves a request carrying obj (when not nil) as JSON body.
func do(t *testing.T, method, path, token string, obj interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var body []byte
	if obj != nil {
		body = marshalObj(t, obj)
	}
	req, rec := newAuthRequest(method, path, token, body)
	app.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, dest interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), dest), rec.Body.String())
}

func getToken(t *testing.T, usr user.User) string {
	t.Helper()
	token, err := echoapi.GenerateToken(echoapi.GetUserClaims(usr))
	require.NoError(t, err)
	return token
}

func marshalObj(t *testing.T, obj interface{}) []byte {
	t.Helper()
	data, err := json.Marshal(obj)
	require.NoError(t, err)
	return data
}

func marshalList(t *testing.T, objs ...interface{}) []byte {
	t.Helper()
	if objs == nil {
		objs = []interface{}{}
	}
	return marshalObj(t, objs)
}

func jsonBytesEqual(t *testing.T, b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	return reflect.DeepEqual(j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	t.Helper()
	assert.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(t, rec.Body.Bytes(), tt.wantData)
	if assert.NoError(t, err) && !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}

func runHTTPTests(t *testing.T, tests []httpTest) {
	t.Helper()
	for _, tt := range tests {
		if tt.wantCode == 0 {
			tt.wantCode = http.StatusOK
		}
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

// Fixtures

func createUser(t *testing.T, name, uname, email, pwd string, roles []string, active bool) user.User {
	t.Helper()
	if roles == nil {
		roles = []string{user.RoleStudent}
	}
	now := core.Now()
	usr := user.User{
		Name:      name,
		Username:  uname,
		Email:     email,
		Roles:     roles,
		CreatedAt: now,
		UpdatedAt: now,
	}
	usr.SetActive(active)
	require.NoError(t, usr.SetPassword(pwd))
	usr, err := usrRepo.CreateUser(context.Background(), usr)
	require.NoError(t, err)
	return usr
}

func createStudent(t *testing.T, uname string) user.User {
	t.Helper()
	return createUser(t, "Student "+uname, uname, uname+"@test.in", "LolC@t123", nil, true)
}

func createAdmin(t *testing.T, uname string) user.User {
	t.Helper()
	return createUser(t, "Admin "+uname, uname, uname+"@test.in", "LolC@t123", []string{user.RoleAdmin}, true)
}

// createEvent stores evt, filling a schedule one week ahead when none is set.
func createEvent(t *testing.T, evt event.Event) event.Event {
	t.Helper()
	now := core.Now()
	if evt.StartsAt.IsZero() {
		evt.StartsAt = now.Add(7 * 24 * time.Hour)
	}
	if evt.EndsAt.IsZero() {
		evt.EndsAt = evt.StartsAt.Add(3 * time.Hour)
	}
	if evt.Title == "" {
		evt.Title = "Event " + evt.Slug
	}
	evt.CreatedAt, evt.UpdatedAt = now, now
	evt, err := evtRepo.CreateEvent(context.Background(), evt)
	require.NoError(t, err)
	return evt
}

func createParticipation(t *testing.T, evt event.Event, usr user.User, status event.ParticipationStatus) event.Participation {
	t.Helper()
	p, err := evtRepo.CreateParticipation(context.Background(), event.Participation{
		EventID:      evt.ID,
		UserID:       usr.ID,
		Status:       status,
		RegisteredAt: core.Now(),
	}, 0)
	require.NoError(t, err)
	return p
}

func createTeam(t *testing.T, name, code string, leader user.User, eventID string, maxSize int, members ...user.User) team.Team {
	t.Helper()
	ctx := context.Background()
	now := core.Now()
	tm, err := teamRepo.CreateTeam(ctx, team.Team{
		Name:      name,
		JoinCode:  code,
		LeaderID:  leader.ID,
		EventID:   eventID,
		MaxSize:   maxSize,
		CreatedAt: now,
		UpdatedAt: now,
	}, team.Member{UserID: leader.ID, Role: team.RoleLeader, JoinedAt: now})
	require.NoError(t, err)
	for i, m := range members {
		_, err = teamRepo.AddMember(ctx, team.Member{
			TeamID:   tm.ID,
			UserID:   m.ID,
			Role:     team.RoleMember,
			JoinedAt: now.Add(time.Duration(i+1) * time.Second),
		}, maxSize)
		require.NoError(t, err)
	}
	return tm
}

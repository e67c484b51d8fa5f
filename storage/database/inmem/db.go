package inmemdb

import (
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/innocell/innocell/core"
	"github.com/innocell/innocell/core/event"
	"github.com/innocell/innocell/core/feedback"
	"github.com/innocell/innocell/core/idea"
	"github.com/innocell/innocell/core/page"
	"github.com/innocell/innocell/core/payment"
	"github.com/innocell/innocell/core/setting"
	"github.com/innocell/innocell/core/team"
	"github.com/innocell/innocell/core/user"
)

// DB is an in-memory store shared by the repositories of this package.
// A single lock guards every table so that cross-table reads (joins, cascades) are consistent.
type DB struct {
	mu sync.RWMutex

	users          map[string]*user.User
	ideas          map[string]*idea.Idea
	events         map[string]*event.Event
	participations map[string]*event.Participation
	teams          map[string]*team.Team
	members        map[string]map[string]*team.Member // {team ID: {user ID: member}}
	payments       map[string]*payment.Payment
	feedback       map[string]*feedback.Feedback
	pages          map[string]*page.Page
	settings       setting.Settings
}

func Open() *DB {
	return &DB{
		users:          make(map[string]*user.User),
		ideas:          make(map[string]*idea.Idea),
		events:         make(map[string]*event.Event),
		participations: make(map[string]*event.Participation),
		teams:          make(map[string]*team.Team),
		members:        make(map[string]map[string]*team.Member),
		payments:       make(map[string]*payment.Payment),
		feedback:       make(map[string]*feedback.Feedback),
		pages:          make(map[string]*page.Page),
		settings:       make(setting.Settings),
	}
}

// Flush empties every table.
func (db *DB) Flush() {
	fresh := Open()
	db.mu.Lock()
	defer db.mu.Unlock()
	db.users = fresh.users
	db.ideas = fresh.ideas
	db.events = fresh.events
	db.participations = fresh.participations
	db.teams = fresh.teams
	db.members = fresh.members
	db.payments = fresh.payments
	db.feedback = fresh.feedback
	db.pages = fresh.pages
	db.settings = fresh.settings
}

func newID() string {
	return uuid.New().String()
}

// contains does a case-insensitive substring match of term in any of fields.
func contains(term string, fields ...string) bool {
	term = strings.ToLower(term)
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), term) {
			return true
		}
	}
	return false
}

// paginate returns the page window of items.
func paginate[T any](items []T, page core.Pagination) []T {
	start, end := page.Page(len(items))
	return items[start:end]
}

package inmemdb

import (
	"context"
	"sort"
	"time"

	"github.com/innocell/innocell/core"
	"github.com/innocell/innocell/core/event"
)

type eventRepository struct {
	db *DB
}

var _ event.Repository = (*eventRepository)(nil)

func NewEventRepository(db *DB) event.Repository {
	return &eventRepository{db: db}
}

func (repo *eventRepository) CreateEvent(_ context.Context, evt event.Event) (event.Event, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	evt.ID = newID()
	repo.db.events[evt.ID] = &evt
	return evt, nil
}

func matchesEvent(evt *event.Event, filter *event.QueryFilter) bool {
	if filter == nil {
		return true
	}
	if filter.Search != "" && !contains(filter.Search, evt.Title, evt.Description, evt.Venue) {
		return false
	}
	switch filter.When {
	case "upcoming":
		if evt.EndsAt.Before(filter.Now) {
			return false
		}
	case "past":
		if !evt.EndsAt.Before(filter.Now) {
			return false
		}
	}
	if filter.Published != nil && evt.IsPublished != *filter.Published {
		return false
	}
	if filter.TeamEvent != nil && evt.IsTeamEvent != *filter.TeamEvent {
		return false
	}
	return true
}

func (repo *eventRepository) QueryEvents(_ context.Context, filter *event.QueryFilter, ordering []core.DBOrdering, page core.Pagination) ([]event.Event, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	events := make([]event.Event, 0)
	for _, evt := range repo.db.events {
		if matchesEvent(evt, filter) {
			events = append(events, *evt)
		}
	}
	asc := len(ordering) == 0 || ordering[0].Ascending
	sort.SliceStable(events, func(i, j int) bool {
		x, y := events[i], events[j]
		if !x.StartsAt.Equal(y.StartsAt) {
			return x.StartsAt.Before(y.StartsAt) == asc
		}
		return x.Slug < y.Slug
	})
	return paginate(events, page), nil
}

func (repo *eventRepository) GetEvent(_ context.Context, filter event.GetFilter) (event.Event, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if filter.ID != "" {
		if evt, ok := repo.db.events[filter.ID]; ok {
			return *evt, nil
		}
		return event.Event{}, event.ErrNotFound
	}
	for _, evt := range repo.db.events {
		if filter.Slug != "" && evt.Slug == filter.Slug {
			return *evt, nil
		}
	}
	return event.Event{}, event.ErrNotFound
}

func (repo *eventRepository) UpdateEvent(_ context.Context, evt event.Event) (event.Event, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.events[evt.ID]; !ok {
		return event.Event{}, event.ErrNotFound
	}
	repo.db.events[evt.ID] = &evt
	return evt, nil
}

func (repo *eventRepository) DeleteEvent(_ context.Context, id string) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.events[id]; !ok {
		return event.ErrNotFound
	}
	delete(repo.db.events, id)
	for pid, p := range repo.db.participations {
		if p.EventID == id {
			delete(repo.db.participations, pid)
		}
	}
	for _, t := range repo.db.teams {
		if t.EventID == id {
			t.EventID = ""
		}
	}
	return nil
}

func (repo *eventRepository) SlugExists(_ context.Context, slug, excludeID string) (bool, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	for _, evt := range repo.db.events {
		if evt.Slug == slug && evt.ID != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (repo *eventRepository) CountUpcomingEvents(_ context.Context, now time.Time) (int, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	var n int
	for _, evt := range repo.db.events {
		if evt.IsPublished && !evt.EndsAt.Before(now) {
			n++
		}
	}
	return n, nil
}

// withUser fills the read-only user fields of p. Callers hold the lock.
func (repo *eventRepository) withUser(p event.Participation) event.Participation {
	if usr, ok := repo.db.users[p.UserID]; ok {
		p.UserName = usr.Name
		p.UserEmail = usr.Email
	}
	return p
}

func (repo *eventRepository) findParticipation(eventID, userID string) *event.Participation {
	for _, p := range repo.db.participations {
		if p.EventID == eventID && p.UserID == userID {
			return p
		}
	}
	return nil
}

func (repo *eventRepository) CreateParticipation(_ context.Context, p event.Participation, capacity int) (event.Participation, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	existing := repo.findParticipation(p.EventID, p.UserID)
	if existing != nil && existing.Status.Active() {
		return event.Participation{}, event.ErrAlreadyRegistered
	}
	if capacity > 0 {
		var taken int
		for _, other := range repo.db.participations {
			if other.EventID == p.EventID && other.Status.Active() {
				taken++
			}
		}
		if taken >= capacity {
			return event.Participation{}, event.ErrEventFull
		}
	}

	if existing != nil {
		p.ID = existing.ID
	} else {
		p.ID = newID()
	}
	repo.db.participations[p.ID] = &p
	return repo.withUser(p), nil
}

func (repo *eventRepository) GetParticipation(_ context.Context, eventID, userID string) (event.Participation, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if p := repo.findParticipation(eventID, userID); p != nil {
		return repo.withUser(*p), nil
	}
	return event.Participation{}, event.ErrParticipationNotFound
}

func (repo *eventRepository) UpdateParticipation(_ context.Context, p event.Participation) (event.Participation, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.participations[p.ID]; !ok {
		return event.Participation{}, event.ErrParticipationNotFound
	}
	p.UserName, p.UserEmail = "", ""
	repo.db.participations[p.ID] = &p
	return repo.withUser(p), nil
}

func matchesParticipation(p *event.Participation, filter event.ParticipationFilter) bool {
	if filter.EventID != "" && p.EventID != filter.EventID {
		return false
	}
	if filter.UserID != "" && p.UserID != filter.UserID {
		return false
	}
	if filter.TeamID != "" && p.TeamID != filter.TeamID {
		return false
	}
	if filter.Attended != nil && p.Attended != *filter.Attended {
		return false
	}
	if len(filter.Statuses) > 0 {
		for _, st := range filter.Statuses {
			if p.Status == st {
				return true
			}
		}
		return false
	}
	return true
}

func (repo *eventRepository) QueryParticipations(_ context.Context, filter event.ParticipationFilter) ([]event.Participation, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	ps := make([]event.Participation, 0)
	for _, p := range repo.db.participations {
		if matchesParticipation(p, filter) {
			ps = append(ps, repo.withUser(*p))
		}
	}
	sort.SliceStable(ps, func(i, j int) bool {
		if !ps[i].RegisteredAt.Equal(ps[j].RegisteredAt) {
			return ps[i].RegisteredAt.Before(ps[j].RegisteredAt)
		}
		return ps[i].ID < ps[j].ID
	})
	return ps, nil
}

func (repo *eventRepository) MarkAttendance(_ context.Context, eventID string, userIDs []string, attended bool, at time.Time) (int, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	var n int
	for _, uid := range userIDs {
		p := repo.findParticipation(eventID, uid)
		if p == nil || p.Status != event.StatusRegistered {
			continue
		}
		p.Attended = attended
		p.AttendedAt = time.Time{}
		if attended {
			p.AttendedAt = at
		}
		n++
	}
	return n, nil
}

func (repo *eventRepository) CountParticipations(_ context.Context) (total int, attended int, err error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	for _, p := range repo.db.participations {
		if !p.Status.Active() {
			continue
		}
		total++
		if p.Attended {
			attended++
		}
	}
	return total, attended, nil
}

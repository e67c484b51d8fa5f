package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/innocell/innocell/core"
	"github.com/innocell/innocell/core/event"
)

const (
	eventColumns = `id, title, slug, description, venue, starts_at, ends_at, registration_deadline, capacity, fee,
	is_team_event, max_team_size, is_published, created_by, created_at, updated_at`

	participationColumns = `p.id, p.event_id, p.user_id, p.team_id, p.status, p.attended, p.attended_at,
	p.registered_at, u.name AS user_name, u.email AS user_email`

	participationFrom = ` FROM participation p JOIN "user" u ON u.id = p.user_id`
)

var eventOrdering = map[string]string{
	"title":      "title",
	"starts_at":  "starts_at",
	"created_at": "created_at",
	"fee":        "fee",
}

type eventRow struct {
	ID                   string      `db:"id"`
	Title                string      `db:"title"`
	Slug                 string      `db:"slug"`
	Description          string      `db:"description"`
	Venue                string      `db:"venue"`
	StartsAt             time.Time   `db:"starts_at"`
	EndsAt               time.Time   `db:"ends_at"`
	RegistrationDeadline null.Time   `db:"registration_deadline"`
	Capacity             int         `db:"capacity"`
	Fee                  int64       `db:"fee"`
	IsTeamEvent          bool        `db:"is_team_event"`
	MaxTeamSize          int         `db:"max_team_size"`
	IsPublished          bool        `db:"is_published"`
	CreatedBy            null.String `db:"created_by"`
	CreatedAt            time.Time   `db:"created_at"`
	UpdatedAt            time.Time   `db:"updated_at"`
}

func toEventRow(evt event.Event) eventRow {
	return eventRow{
		ID:                   evt.ID,
		Title:                evt.Title,
		Slug:                 evt.Slug,
		Description:          evt.Description,
		Venue:                evt.Venue,
		StartsAt:             evt.StartsAt.UTC(),
		EndsAt:               evt.EndsAt.UTC(),
		RegistrationDeadline: null.NewTime(evt.RegistrationDeadline.UTC(), !evt.RegistrationDeadline.IsZero()),
		Capacity:             evt.Capacity,
		Fee:                  evt.Fee,
		IsTeamEvent:          evt.IsTeamEvent,
		MaxTeamSize:          evt.MaxTeamSize,
		IsPublished:          evt.IsPublished,
		CreatedBy:            null.NewString(evt.CreatedBy, evt.CreatedBy != ""),
		CreatedAt:            evt.CreatedAt.UTC(),
		UpdatedAt:            evt.UpdatedAt.UTC(),
	}
}

func (r eventRow) event() event.Event {
	return event.Event{
		ID:                   r.ID,
		Title:                r.Title,
		Slug:                 r.Slug,
		Description:          r.Description,
		Venue:                r.Venue,
		StartsAt:             r.StartsAt,
		EndsAt:               r.EndsAt,
		RegistrationDeadline: r.RegistrationDeadline.Time,
		Capacity:             r.Capacity,
		Fee:                  r.Fee,
		IsTeamEvent:          r.IsTeamEvent,
		MaxTeamSize:          r.MaxTeamSize,
		IsPublished:          r.IsPublished,
		CreatedBy:            r.CreatedBy.String,
		CreatedAt:            r.CreatedAt,
		UpdatedAt:            r.UpdatedAt,
	}
}

type participationRow struct {
	ID           string      `db:"id"`
	EventID      string      `db:"event_id"`
	UserID       string      `db:"user_id"`
	TeamID       null.String `db:"team_id"`
	Status       string      `db:"status"`
	Attended     bool        `db:"attended"`
	AttendedAt   null.Time   `db:"attended_at"`
	RegisteredAt time.Time   `db:"registered_at"`
	UserName     null.String `db:"user_name"`
	UserEmail    null.String `db:"user_email"`
}

func toParticipationRow(p event.Participation) participationRow {
	return participationRow{
		ID:           p.ID,
		EventID:      p.EventID,
		UserID:       p.UserID,
		TeamID:       null.NewString(p.TeamID, p.TeamID != ""),
		Status:       string(p.Status),
		Attended:     p.Attended,
		AttendedAt:   null.NewTime(p.AttendedAt.UTC(), !p.AttendedAt.IsZero()),
		RegisteredAt: p.RegisteredAt.UTC(),
	}
}

func (r participationRow) participation() event.Participation {
	return event.Participation{
		ID:           r.ID,
		EventID:      r.EventID,
		UserID:       r.UserID,
		TeamID:       r.TeamID.String,
		Status:       event.ParticipationStatus(r.Status),
		Attended:     r.Attended,
		AttendedAt:   r.AttendedAt.Time,
		RegisteredAt: r.RegisteredAt,
		UserName:     r.UserName.String,
		UserEmail:    r.UserEmail.String,
	}
}

type eventRepository struct {
	db core.DB
}

var _ event.Repository = (*eventRepository)(nil)

func NewEventRepository(db core.DB) event.Repository {
	return &eventRepository{db: db}
}

func (repo *eventRepository) CreateEvent(ctx context.Context, evt event.Event) (event.Event, error) {
	evt.ID = uuid.New().String()
	q := `INSERT INTO event (` + eventColumns + `) VALUES (
		:id, :title, :slug, :description, :venue, :starts_at, :ends_at, :registration_deadline, :capacity, :fee,
		:is_team_event, :max_team_size, :is_published, :created_by, :created_at, :updated_at)`
	if _, err := namedExec(ctx, repo.db, q, toEventRow(evt)); err != nil {
		if isUniqueViolation(err, "event_slug_key") {
			return event.Event{}, core.NewFieldError("slug", "an event with this slug already exists")
		}
		return event.Event{}, errors.Wrap(err, "inserting event")
	}
	return evt, nil
}

func (repo *eventRepository) QueryEvents(ctx context.Context, filter *event.QueryFilter, ordering []core.DBOrdering, page core.Pagination) ([]event.Event, error) {
	var w where
	if filter != nil {
		if filter.Search != "" {
			val := likeArg(filter.Search)
			w.add("title ILIKE ? OR description ILIKE ? OR venue ILIKE ?", val, val, val)
		}
		switch filter.When {
		case "upcoming":
			w.add("ends_at >= ?", filter.Now.UTC())
		case "past":
			w.add("ends_at < ?", filter.Now.UTC())
		}
		if filter.Published != nil {
			w.add("is_published = ?", *filter.Published)
		}
		if filter.TeamEvent != nil {
			w.add("is_team_event = ?", *filter.TeamEvent)
		}
	}

	q := `SELECT ` + eventColumns + ` FROM event` + w.String() +
		` ORDER BY ` + core.OrderByClause(ordering, eventOrdering, "starts_at ASC") + w.limit(page)
	var rows []eventRow
	if err := repo.db.SelectContext(ctx, &rows, q, w.args...); err != nil {
		return nil, errors.Wrap(err, "querying events")
	}
	events := make([]event.Event, 0, len(rows))
	for _, r := range rows {
		events = append(events, r.event())
	}
	return events, nil
}

func (repo *eventRepository) GetEvent(ctx context.Context, filter event.GetFilter) (event.Event, error) {
	var w where
	switch {
	case filter.ID != "":
		if _, err := uuid.Parse(filter.ID); err != nil {
			return event.Event{}, event.ErrNotFound
		}
		w.add("id = ?", filter.ID)
	case filter.Slug != "":
		w.add("slug = ?", filter.Slug)
	default:
		return event.Event{}, event.ErrNotFound
	}

	var r eventRow
	if err := repo.db.GetContext(ctx, &r, `SELECT `+eventColumns+` FROM event`+w.String(), w.args...); err != nil {
		return event.Event{}, trapNoRowsErr(err, event.ErrNotFound, "getting event")
	}
	return r.event(), nil
}

func (repo *eventRepository) UpdateEvent(ctx context.Context, evt event.Event) (event.Event, error) {
	q := `UPDATE event SET title = :title, slug = :slug, description = :description, venue = :venue,
		starts_at = :starts_at, ends_at = :ends_at, registration_deadline = :registration_deadline,
		capacity = :capacity, fee = :fee, is_team_event = :is_team_event, max_team_size = :max_team_size,
		is_published = :is_published, updated_at = :updated_at
		WHERE id = :id`
	res, err := namedExec(ctx, repo.db, q, toEventRow(evt))
	if err != nil {
		return event.Event{}, errors.Wrap(err, "updating event")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return event.Event{}, event.ErrNotFound
	}
	return evt, nil
}

func (repo *eventRepository) DeleteEvent(ctx context.Context, id string) error {
	res, err := repo.db.ExecContext(ctx, `DELETE FROM event WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "deleting event")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return event.ErrNotFound
	}
	return nil
}

func (repo *eventRepository) SlugExists(ctx context.Context, slug, excludeID string) (bool, error) {
	var exists bool
	q := `SELECT EXISTS (SELECT 1 FROM event WHERE slug = $1 AND id::text <> $2)`
	err := repo.db.GetContext(ctx, &exists, q, slug, excludeID)
	return exists, errors.Wrap(err, "checking event slug")
}

func (repo *eventRepository) CountUpcomingEvents(ctx context.Context, now time.Time) (int, error) {
	var n int
	err := repo.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM event WHERE is_published AND ends_at >= $1`, now.UTC())
	return n, errors.Wrap(err, "counting upcoming events")
}

// CreateParticipation locks the event row so concurrent registrations cannot exceed its capacity.
func (repo *eventRepository) CreateParticipation(ctx context.Context, p event.Participation, capacity int) (event.Participation, error) {
	err := withTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `SELECT id FROM event WHERE id = $1 FOR UPDATE`, p.EventID); err != nil {
			return errors.Wrap(err, "locking event")
		}

		var existing participationRow
		err := tx.GetContext(ctx, &existing,
			`SELECT p.id, p.status FROM participation p WHERE p.event_id = $1 AND p.user_id = $2`, p.EventID, p.UserID)
		switch {
		case err == nil:
			if event.ParticipationStatus(existing.Status).Active() {
				return event.ErrAlreadyRegistered
			}
		case errors.Cause(err) != sql.ErrNoRows:
			return errors.Wrap(err, "checking participation")
		}

		if capacity > 0 {
			var taken int
			q := `SELECT COUNT(*) FROM participation WHERE event_id = $1 AND status = ANY($2)`
			active := pq.Array([]string{string(event.StatusRegistered), string(event.StatusPendingPayment)})
			if err = tx.GetContext(ctx, &taken, q, p.EventID, active); err != nil {
				return errors.Wrap(err, "counting participations")
			}
			if taken >= capacity {
				return event.ErrEventFull
			}
		}

		if existing.ID != "" {
			p.ID = existing.ID
			q := `UPDATE participation SET team_id = :team_id, status = :status, attended = :attended,
				attended_at = :attended_at, registered_at = :registered_at WHERE id = :id`
			_, err = namedExec(ctx, tx, q, toParticipationRow(p))
			return errors.Wrap(err, "reviving participation")
		}
		p.ID = uuid.New().String()
		q := `INSERT INTO participation (id, event_id, user_id, team_id, status, attended, attended_at, registered_at)
			VALUES (:id, :event_id, :user_id, :team_id, :status, :attended, :attended_at, :registered_at)`
		if _, err = namedExec(ctx, tx, q, toParticipationRow(p)); err != nil {
			if isUniqueViolation(err) {
				return event.ErrAlreadyRegistered
			}
			return errors.Wrap(err, "inserting participation")
		}
		return nil
	})
	if err != nil {
		return event.Participation{}, err
	}
	return repo.GetParticipation(ctx, p.EventID, p.UserID)
}

func (repo *eventRepository) GetParticipation(ctx context.Context, eventID, userID string) (event.Participation, error) {
	var r participationRow
	q := `SELECT ` + participationColumns + participationFrom + ` WHERE p.event_id = $1 AND p.user_id = $2`
	if err := repo.db.GetContext(ctx, &r, q, eventID, userID); err != nil {
		return event.Participation{}, trapNoRowsErr(err, event.ErrParticipationNotFound, "getting participation")
	}
	return r.participation(), nil
}

func (repo *eventRepository) UpdateParticipation(ctx context.Context, p event.Participation) (event.Participation, error) {
	q := `UPDATE participation SET team_id = :team_id, status = :status, attended = :attended,
		attended_at = :attended_at WHERE id = :id`
	res, err := namedExec(ctx, repo.db, q, toParticipationRow(p))
	if err != nil {
		return event.Participation{}, errors.Wrap(err, "updating participation")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return event.Participation{}, event.ErrParticipationNotFound
	}
	return p, nil
}

func (repo *eventRepository) QueryParticipations(ctx context.Context, filter event.ParticipationFilter) ([]event.Participation, error) {
	var w where
	if filter.EventID != "" {
		w.add("p.event_id = ?", filter.EventID)
	}
	if filter.UserID != "" {
		w.add("p.user_id = ?", filter.UserID)
	}
	if filter.TeamID != "" {
		w.add("p.team_id = ?", filter.TeamID)
	}
	if filter.Attended != nil {
		w.add("p.attended = ?", *filter.Attended)
	}
	if len(filter.Statuses) > 0 {
		statuses := make([]string, 0, len(filter.Statuses))
		for _, st := range filter.Statuses {
			statuses = append(statuses, string(st))
		}
		w.add("p.status = ANY(?)", pq.Array(statuses))
	}

	var rows []participationRow
	q := `SELECT ` + participationColumns + participationFrom + w.String() + ` ORDER BY p.registered_at, p.id`
	if err := repo.db.SelectContext(ctx, &rows, q, w.args...); err != nil {
		return nil, errors.Wrap(err, "querying participations")
	}
	ps := make([]event.Participation, 0, len(rows))
	for _, r := range rows {
		ps = append(ps, r.participation())
	}
	return ps, nil
}

func (repo *eventRepository) MarkAttendance(ctx context.Context, eventID string, userIDs []string, attended bool, at time.Time) (int, error) {
	attendedAt := null.NewTime(at.UTC(), attended)
	q := `UPDATE participation SET attended = $1, attended_at = $2
		WHERE event_id = $3 AND user_id = ANY($4) AND status = $5`
	res, err := repo.db.ExecContext(ctx, q, attended, attendedAt, eventID, pq.Array(userIDs), string(event.StatusRegistered))
	if err != nil {
		return 0, errors.Wrap(err, "marking attendance")
	}
	n, err := res.RowsAffected()
	return int(n), errors.Wrap(err, "counting marked participations")
}

func (repo *eventRepository) CountParticipations(ctx context.Context) (total int, attended int, err error) {
	var counts struct {
		Total    int `db:"total"`
		Attended int `db:"attended"`
	}
	q := `SELECT COUNT(*) AS total, COUNT(*) FILTER (WHERE attended) AS attended
		FROM participation WHERE status = ANY($1)`
	active := pq.Array([]string{string(event.StatusRegistered), string(event.StatusPendingPayment)})
	if err = repo.db.GetContext(ctx, &counts, q, active); err != nil {
		return 0, 0, errors.Wrap(err, "counting participations")
	}
	return counts.Total, counts.Attended, nil
}

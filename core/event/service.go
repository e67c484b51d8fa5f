package event

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gosimple/slug"
	"github.com/pkg/errors"

	"github.com/innocell/innocell/core"
	"github.com/innocell/innocell/core/user"
)

var (
	// errors
	ErrNotFound              = core.NewNotFoundError("event")
	ErrParticipationNotFound = core.NewNotFoundError("participation")
	ErrAlreadyRegistered     = core.NewValidationError(errors.New("already registered for this event"))
	ErrEventFull             = core.NewValidationError(errors.New("this event is full"))
	ErrRegistrationClosed    = core.NewValidationError(errors.New("registration for this event is closed"))
	ErrPaidRegistration      = core.NewValidationError(errors.New("paid registrations cannot be cancelled, please contact the organisers"))

	errTeamRequired  = core.NewFieldError("team_id", "this is a team event, a team is required")
	errNotTeamMember = core.NewFieldError("team_id", "you are not a member of this team")
	errTeamTooLarge  = core.NewFieldError("team_id", "your team exceeds the event's max team size")
	errNoTeams       = core.NewFieldError("team_id", "this event does not take teams")
)

const maxSlugAttempts = 50

type (
	Repository interface {
		CreateEvent(ctx context.Context, evt Event) (Event, error)
		QueryEvents(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering, page core.Pagination) ([]Event, error)
		GetEvent(ctx context.Context, filter GetFilter) (Event, error)
		UpdateEvent(ctx context.Context, evt Event) (Event, error)
		DeleteEvent(ctx context.Context, id string) error
		SlugExists(ctx context.Context, slug, excludeID string) (bool, error)
		CountUpcomingEvents(ctx context.Context, now time.Time) (int, error)

		// CreateParticipation atomically checks capacity (0: unlimited) and inserts the participation,
		// reviving a cancelled one for the same event & user.
		// It returns ErrEventFull or ErrAlreadyRegistered.
		CreateParticipation(ctx context.Context, p Participation, capacity int) (Participation, error)
		GetParticipation(ctx context.Context, eventID, userID string) (Participation, error)
		UpdateParticipation(ctx context.Context, p Participation) (Participation, error)
		QueryParticipations(ctx context.Context, filter ParticipationFilter) ([]Participation, error)
		// MarkAttendance updates active participations of eventID whose user is in userIDs.
		MarkAttendance(ctx context.Context, eventID string, userIDs []string, attended bool, at time.Time) (int, error)
		CountParticipations(ctx context.Context) (total int, attended int, err error)
	}

	// TeamInfo gives the team facts needed to register a team to an event.
	TeamInfo interface {
		IsMember(ctx context.Context, teamID, userID string) (bool, error)
		CountMembers(ctx context.Context, teamID string) (int, error)
	}

	// PaymentLedger tells whether a user already paid for an event.
	PaymentLedger interface {
		HasPaid(ctx context.Context, eventID, userID string) (bool, error)
	}

	Service interface {
		Create(ctx context.Context, actor user.User, ne NewEvent) (Event, error)
		Query(ctx context.Context, viewer user.User, filter *QueryFilter, ordering []core.DBOrdering, page core.Pagination) ([]Event, error)
		GetByID(ctx context.Context, id string) (Event, error)
		GetBySlug(ctx context.Context, viewer user.User, slug string) (Event, error)
		Update(ctx context.Context, slug string, uu UpdateEvent) (Event, error)
		Delete(ctx context.Context, slug string) error

		Register(ctx context.Context, usr user.User, slug string, req RegisterRequest) (Participation, error)
		Cancel(ctx context.Context, usr user.User, slug string) error
		GetParticipation(ctx context.Context, eventID, userID string) (Participation, error)
		ConfirmPayment(ctx context.Context, eventID, userID string) (Participation, error)
		Participants(ctx context.Context, slug string, filter ParticipationFilter) ([]Participation, error)
		UserParticipations(ctx context.Context, userID string) ([]Participation, error)
		MarkAttendance(ctx context.Context, slug string, att Attendance) (int, error)
		Stats(ctx context.Context) (Stats, error)
	}

	service struct {
		repo     Repository
		teams    TeamInfo
		payments PaymentLedger
		mailSvc  core.EmailService
		validate *validator.Validate
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, teams TeamInfo, payments PaymentLedger, mailSvc core.EmailService, validate *validator.Validate) Service {
	return &service{repo: repo, teams: teams, payments: payments, mailSvc: mailSvc, validate: validate}
}

func (svc *service) hasPaid(ctx context.Context, evt Event, userID string) (bool, error) {
	if !evt.IsPaid() {
		return false, nil
	}
	paid, err := svc.payments.HasPaid(ctx, evt.ID, userID)
	return paid, errors.Wrap(err, "checking payments")
}

// uniqueSlug derives a slug from base that no other event (but excludeID) uses.
func (svc *service) uniqueSlug(ctx context.Context, base, excludeID string) (string, error) {
	base = slug.Make(base)
	if base == "" {
		base = "event"
	}
	candidate := base
	for i := 2; i <= maxSlugAttempts; i++ {
		exists, err := svc.repo.SlugExists(ctx, candidate, excludeID)
		if err != nil {
			return "", errors.Wrap(err, "checking slug")
		}
		if !exists {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", base, i)
	}
	return "", core.NewFieldError("slug", "could not generate a unique slug, please provide one")
}

func (svc *service) Create(ctx context.Context, actor user.User, ne NewEvent) (Event, error) {
	base := ne.Slug
	if base == "" {
		base = ne.Title
	}
	evtSlug, err := svc.uniqueSlug(ctx, base, "")
	if err != nil {
		return Event{}, err
	}

	now := core.Now()
	return svc.repo.CreateEvent(ctx, Event{
		Title:                ne.Title,
		Slug:                 evtSlug,
		Description:          ne.Description,
		Venue:                ne.Venue,
		StartsAt:             ne.StartsAt.UTC(),
		EndsAt:               ne.EndsAt.UTC(),
		RegistrationDeadline: ne.RegistrationDeadline.UTC(),
		Capacity:             ne.Capacity,
		Fee:                  ne.Fee,
		IsTeamEvent:          ne.IsTeamEvent,
		MaxTeamSize:          ne.MaxTeamSize,
		IsPublished:          ne.IsPublished,
		CreatedBy:            actor.ID,
		CreatedAt:            now,
		UpdatedAt:            now,
	})
}

func (svc *service) Query(ctx context.Context, viewer user.User, filter *QueryFilter, ordering []core.DBOrdering, page core.Pagination) ([]Event, error) {
	if filter == nil {
		filter = new(QueryFilter)
	}
	if !viewer.IsAdmin() {
		published := true
		filter.Published = &published
	}
	filter.Now = core.Now()
	return svc.repo.QueryEvents(ctx, filter, ordering, page)
}

func (svc *service) GetByID(ctx context.Context, id string) (Event, error) {
	return svc.repo.GetEvent(ctx, GetFilter{ID: id})
}

func (svc *service) GetBySlug(ctx context.Context, viewer user.User, evtSlug string) (Event, error) {
	evt, err := svc.repo.GetEvent(ctx, GetFilter{Slug: core.CleanString(evtSlug, true /* lower */)})
	if err != nil {
		return Event{}, err
	}
	if !evt.IsPublished && !viewer.IsAdmin() {
		return Event{}, ErrNotFound
	}
	return evt, nil
}

func (svc *service) Update(ctx context.Context, evtSlug string, uu UpdateEvent) (Event, error) {
	orig, err := svc.repo.GetEvent(ctx, GetFilter{Slug: evtSlug})
	if err != nil {
		return Event{}, err
	}
	evt, err := uu.Apply(orig, svc.validate)
	if err != nil {
		return Event{}, err
	}
	evt.UpdatedAt = core.Now()
	return svc.repo.UpdateEvent(ctx, evt)
}

func (svc *service) Delete(ctx context.Context, evtSlug string) error {
	evt, err := svc.repo.GetEvent(ctx, GetFilter{Slug: evtSlug})
	if err != nil {
		return err
	}
	return svc.repo.DeleteEvent(ctx, evt.ID)
}

func (svc *service) checkTeam(ctx context.Context, evt Event, usr user.User, teamID string) error {
	if !evt.IsTeamEvent {
		if teamID != "" {
			return errNoTeams
		}
		return nil
	}
	if teamID == "" {
		return errTeamRequired
	}
	ok, err := svc.teams.IsMember(ctx, teamID, usr.ID)
	if err != nil {
		return errors.Wrap(err, "checking team membership")
	}
	if !ok {
		return errNotTeamMember
	}
	cnt, err := svc.teams.CountMembers(ctx, teamID)
	if err != nil {
		return errors.Wrap(err, "counting team members")
	}
	if evt.MaxTeamSize > 0 && cnt > evt.MaxTeamSize {
		return errTeamTooLarge
	}
	return nil
}

func (svc *service) Register(ctx context.Context, usr user.User, evtSlug string, req RegisterRequest) (Participation, error) {
	evt, err := svc.GetBySlug(ctx, usr, evtSlug)
	if err != nil {
		return Participation{}, err
	}
	now := core.Now()
	if !evt.IsPublished || now.After(evt.RegistrationClosesAt()) {
		return Participation{}, ErrRegistrationClosed
	}
	if err = svc.checkTeam(ctx, evt, usr, req.TeamID); err != nil {
		return Participation{}, err
	}

	paid, err := svc.hasPaid(ctx, evt, usr.ID)
	if err != nil {
		return Participation{}, err
	}
	status := StatusRegistered
	if evt.IsPaid() && !paid {
		status = StatusPendingPayment
	}
	p, err := svc.repo.CreateParticipation(ctx, Participation{
		EventID:      evt.ID,
		UserID:       usr.ID,
		TeamID:       req.TeamID,
		Status:       status,
		RegisteredAt: now,
	}, evt.Capacity)
	if err != nil {
		return Participation{}, err
	}

	if usr.Email != "" {
		svc.mailSvc.SendMessages(&core.EmailMessage{
			To:           []mail.Address{{Name: usr.Name, Address: usr.Email}},
			Subject:      "Registration: " + evt.Title,
			TemplateName: "event_registered",
			TemplateData: map[string]interface{}{
				"Name":           usr.Name,
				"Title":          evt.Title,
				"Slug":           evt.Slug,
				"Venue":          evt.Venue,
				"StartsAt":       evt.StartsAt.Format("Mon, 02 Jan 2006 15:04 MST"),
				"PendingPayment": status == StatusPendingPayment,
			},
		})
	}
	return p, nil
}

func (svc *service) Cancel(ctx context.Context, usr user.User, evtSlug string) error {
	evt, err := svc.GetBySlug(ctx, usr, evtSlug)
	if err != nil {
		return err
	}
	p, err := svc.repo.GetParticipation(ctx, evt.ID, usr.ID)
	if err != nil {
		return err
	}
	if !p.Status.Active() {
		return ErrParticipationNotFound
	}
	if !core.Now().Before(evt.StartsAt) {
		return ErrRegistrationClosed
	}
	paid, err := svc.hasPaid(ctx, evt, usr.ID)
	if err != nil {
		return err
	}
	if paid {
		return ErrPaidRegistration
	}
	p.Status = StatusCancelled
	_, err = svc.repo.UpdateParticipation(ctx, p)
	return err
}

func (svc *service) GetParticipation(ctx context.Context, eventID, userID string) (Participation, error) {
	return svc.repo.GetParticipation(ctx, eventID, userID)
}

// ConfirmPayment registers the participation of a paying user.
// A participation cancelled while its payment was in flight is revived.
func (svc *service) ConfirmPayment(ctx context.Context, eventID, userID string) (Participation, error) {
	p, err := svc.repo.GetParticipation(ctx, eventID, userID)
	if err != nil {
		return Participation{}, err
	}
	if p.Status == StatusRegistered {
		return p, nil
	}
	p.Status = StatusRegistered
	return svc.repo.UpdateParticipation(ctx, p)
}

func (svc *service) Participants(ctx context.Context, evtSlug string, filter ParticipationFilter) ([]Participation, error) {
	evt, err := svc.repo.GetEvent(ctx, GetFilter{Slug: evtSlug})
	if err != nil {
		return nil, err
	}
	filter.EventID = evt.ID
	if filter.Statuses == nil {
		filter.Statuses = []ParticipationStatus{StatusRegistered, StatusPendingPayment}
	}
	return svc.repo.QueryParticipations(ctx, filter)
}

func (svc *service) UserParticipations(ctx context.Context, userID string) ([]Participation, error) {
	return svc.repo.QueryParticipations(ctx, ParticipationFilter{
		UserID:   userID,
		Statuses: []ParticipationStatus{StatusRegistered, StatusPendingPayment},
	})
}

func (svc *service) MarkAttendance(ctx context.Context, evtSlug string, att Attendance) (int, error) {
	evt, err := svc.repo.GetEvent(ctx, GetFilter{Slug: evtSlug})
	if err != nil {
		return 0, err
	}
	return svc.repo.MarkAttendance(ctx, evt.ID, att.UserIDs, att.IsAttended(), core.Now())
}

func (svc *service) Stats(ctx context.Context) (Stats, error) {
	total, attended, err := svc.repo.CountParticipations(ctx)
	if err != nil {
		return Stats{}, errors.Wrap(err, "counting participations")
	}
	upcoming, err := svc.repo.CountUpcomingEvents(ctx, core.Now())
	if err != nil {
		return Stats{}, errors.Wrap(err, "counting upcoming events")
	}
	return Stats{Participations: total, Attended: attended, Upcoming: upcoming}, nil
}

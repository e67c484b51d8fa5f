package feedback

import (
	"context"

	"github.com/pkg/errors"

	"github.com/innocell/innocell/core"
	"github.com/innocell/innocell/core/event"
	"github.com/innocell/innocell/core/user"
)

var (
	// errors
	ErrNotFound = core.NewNotFoundError("feedback")

	errNotParticipant = core.NewFieldError("event_id", "only participants can give feedback on this event")
	errUnknownEvent   = core.NewFieldError("event_id", "event not found")
)

type (
	Repository interface {
		CreateFeedback(ctx context.Context, fb Feedback) (Feedback, error)
		QueryFeedback(ctx context.Context, filter *QueryFilter, page core.Pagination) ([]Feedback, error)
		// Ratings returns the ratings of the feedback matching filter.
		Ratings(ctx context.Context, filter *QueryFilter) ([]int, error)
		DeleteFeedback(ctx context.Context, id string) error
	}

	Service interface {
		Submit(ctx context.Context, usr user.User, nf NewFeedback) (Feedback, error)
		Query(ctx context.Context, filter *QueryFilter, page core.Pagination) ([]Feedback, error)
		// Summary aggregates feedback of eventID, or all feedback when eventID is empty.
		Summary(ctx context.Context, eventID string) (Summary, error)
		Delete(ctx context.Context, id string) error
	}

	service struct {
		repo   Repository
		evtSvc event.Service
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, evtSvc event.Service) Service {
	return &service{repo: repo, evtSvc: evtSvc}
}

// Submit records feedback; event feedback requires a registration (or attendance) to the event.
func (svc *service) Submit(ctx context.Context, usr user.User, nf NewFeedback) (Feedback, error) {
	if nf.EventID != "" {
		if _, err := svc.evtSvc.GetByID(ctx, nf.EventID); err != nil {
			if core.IsNotFound(err) {
				return Feedback{}, errUnknownEvent
			}
			return Feedback{}, errors.Wrap(err, "getting event")
		}
		p, err := svc.evtSvc.GetParticipation(ctx, nf.EventID, usr.ID)
		if err != nil {
			if core.IsNotFound(err) {
				return Feedback{}, errNotParticipant
			}
			return Feedback{}, errors.Wrap(err, "getting participation")
		}
		if p.Status != event.StatusRegistered && !p.Attended {
			return Feedback{}, errNotParticipant
		}
	}

	return svc.repo.CreateFeedback(ctx, Feedback{
		UserID:    usr.ID,
		EventID:   nf.EventID,
		Rating:    nf.Rating,
		Message:   nf.Message,
		CreatedAt: core.Now(),
	})
}

func (svc *service) Query(ctx context.Context, filter *QueryFilter, page core.Pagination) ([]Feedback, error) {
	return svc.repo.QueryFeedback(ctx, filter, page)
}

func (svc *service) Summary(ctx context.Context, eventID string) (Summary, error) {
	ratings, err := svc.repo.Ratings(ctx, &QueryFilter{EventID: eventID})
	if err != nil {
		return Summary{}, errors.Wrap(err, "listing ratings")
	}
	return Summarize(ratings), nil
}

func (svc *service) Delete(ctx context.Context, id string) error {
	return svc.repo.DeleteFeedback(ctx, id)
}

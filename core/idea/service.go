package idea

import (
	"context"
	"fmt"
	"net/mail"

	"github.com/pkg/errors"

	"github.com/innocell/innocell/core"
	"github.com/innocell/innocell/core/user"
)

var (
	// errors
	ErrNotFound = core.NewNotFoundError("idea")

	errNotOwner      = core.NewPermissionError("only the submitter can change this idea")
	errNotPending    = core.NewPermissionError("only pending ideas can be changed")
	errCannotReview  = core.NewPermissionError("not allowed to moderate ideas")
	errNotTeamMember = core.NewFieldError("team_id", "you are not a member of this team")
)

type (
	Repository interface {
		CreateIdea(ctx context.Context, idea Idea) (Idea, error)
		QueryIdeas(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering, page core.Pagination) ([]Idea, error)
		GetIdea(ctx context.Context, id string) (Idea, error)
		UpdateIdea(ctx context.Context, idea Idea) (Idea, error)
		DeleteIdea(ctx context.Context, id string) error
		CountIdeasByStatus(ctx context.Context) (map[Status]int, error)
	}

	// TeamChecker tells whether a user belongs to a team.
	TeamChecker interface {
		IsMember(ctx context.Context, teamID, userID string) (bool, error)
	}

	Service interface {
		Submit(ctx context.Context, submitter user.User, ni NewIdea) (Idea, error)
		Query(ctx context.Context, viewer user.User, filter *QueryFilter, ordering []core.DBOrdering, page core.Pagination) ([]Idea, error)
		Get(ctx context.Context, viewer user.User, id string) (Idea, error)
		Update(ctx context.Context, actor user.User, id string, ui UpdateIdea) (Idea, error)
		Moderate(ctx context.Context, reviewer user.User, id string, m Moderation) (Idea, error)
		Delete(ctx context.Context, actor user.User, id string) error
		CountByStatus(ctx context.Context) (map[Status]int, error)
	}

	service struct {
		repo    Repository
		usrSvc  user.Service
		teams   TeamChecker
		mailSvc core.EmailService
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, usrSvc user.Service, teams TeamChecker, mailSvc core.EmailService) Service {
	return &service{repo: repo, usrSvc: usrSvc, teams: teams, mailSvc: mailSvc}
}

func (svc *service) Submit(ctx context.Context, submitter user.User, ni NewIdea) (Idea, error) {
	if ni.TeamID != "" {
		ok, err := svc.teams.IsMember(ctx, ni.TeamID, submitter.ID)
		if err != nil {
			return Idea{}, errors.Wrap(err, "checking team membership")
		}
		if !ok {
			return Idea{}, errNotTeamMember
		}
	}

	now := core.Now()
	return svc.repo.CreateIdea(ctx, Idea{
		Title:       ni.Title,
		Summary:     ni.Summary,
		Description: ni.Description,
		Category:    ni.Category,
		Status:      StatusPending,
		SubmittedBy: submitter.ID,
		TeamID:      ni.TeamID,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
}

func (svc *service) Query(ctx context.Context, viewer user.User, filter *QueryFilter, ordering []core.DBOrdering, page core.Pagination) ([]Idea, error) {
	if filter == nil {
		filter = new(QueryFilter)
	}
	if !viewer.CanModerate() {
		filter.VisibleTo = viewer.ID
	}
	return svc.repo.QueryIdeas(ctx, filter, ordering, page)
}

func (svc *service) Get(ctx context.Context, viewer user.User, id string) (Idea, error) {
	idea, err := svc.repo.GetIdea(ctx, id)
	if err != nil {
		return Idea{}, err
	}
	if !(idea.Status.Public() || idea.SubmittedBy == viewer.ID || viewer.CanModerate()) {
		return Idea{}, ErrNotFound
	}
	return idea, nil
}

func (svc *service) Update(ctx context.Context, actor user.User, id string, ui UpdateIdea) (Idea, error) {
	idea, err := svc.Get(ctx, actor, id)
	if err != nil {
		return Idea{}, err
	}
	if idea.SubmittedBy != actor.ID {
		return Idea{}, errNotOwner
	}
	if idea.Status != StatusPending {
		return Idea{}, errNotPending
	}

	idea.Title = ui.Title
	idea.Summary = ui.Summary
	idea.Description = ui.Description
	idea.Category = ui.Category
	idea.UpdatedAt = core.Now()
	return svc.repo.UpdateIdea(ctx, idea)
}

func (svc *service) Moderate(ctx context.Context, reviewer user.User, id string, m Moderation) (Idea, error) {
	if !reviewer.CanModerate() {
		return Idea{}, errCannotReview
	}
	idea, err := svc.repo.GetIdea(ctx, id)
	if err != nil {
		return Idea{}, err
	}
	if !idea.Status.CanTransitionTo(m.Status) {
		msg := fmt.Sprintf("cannot move a %s idea to %s", idea.Status, m.Status)
		return Idea{}, core.NewFieldError("status", msg)
	}

	now := core.Now()
	idea.Status = m.Status
	idea.ReviewNote = m.Note
	idea.ReviewedBy = reviewer.ID
	idea.ReviewedAt = now
	idea.UpdatedAt = now
	if idea, err = svc.repo.UpdateIdea(ctx, idea); err != nil {
		return Idea{}, errors.Wrap(err, "updating idea")
	}

	svc.notifySubmitter(ctx, idea)
	return idea, nil
}

func (svc *service) notifySubmitter(ctx context.Context, idea Idea) {
	submitter, err := svc.usrSvc.GetByID(ctx, idea.SubmittedBy)
	if err != nil || submitter.Email == "" {
		return
	}
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: submitter.Name, Address: submitter.Email}},
		Subject:      "Your idea was reviewed",
		TemplateName: "idea_moderated",
		TemplateData: map[string]interface{}{
			"Name":   submitter.Name,
			"Title":  idea.Title,
			"Status": string(idea.Status),
			"Note":   idea.ReviewNote,
			"IdeaID": idea.ID,
		},
	})
}

func (svc *service) Delete(ctx context.Context, actor user.User, id string) error {
	idea, err := svc.Get(ctx, actor, id)
	if err != nil {
		return err
	}
	if !actor.IsAdmin() {
		if idea.SubmittedBy != actor.ID {
			return errNotOwner
		}
		if idea.Status != StatusPending {
			return errNotPending
		}
	}
	return svc.repo.DeleteIdea(ctx, id)
}

func (svc *service) CountByStatus(ctx context.Context) (map[Status]int, error) {
	return svc.repo.CountIdeasByStatus(ctx)
}

package dashboard

import (
	"context"

	"github.com/pkg/errors"

	"github.com/innocell/innocell/core"
	"github.com/innocell/innocell/core/event"
	"github.com/innocell/innocell/core/feedback"
	"github.com/innocell/innocell/core/idea"
	"github.com/innocell/innocell/core/payment"
	"github.com/innocell/innocell/core/team"
	"github.com/innocell/innocell/core/user"
)

type (
	AdminStats struct {
		Users          map[string]int      `json:"users"` // {role group: count}
		Ideas          map[idea.Status]int `json:"ideas"`
		UpcomingEvents int                 `json:"upcoming_events"`
		Participations int                 `json:"participations"`
		Attended       int                 `json:"attended"`
		Teams          int                 `json:"teams"`
		Revenue        int64               `json:"revenue"`
		RevenueDisplay string              `json:"revenue_display"`
		Feedback       feedback.Summary    `json:"feedback"`
	}

	Personal struct {
		Ideas          []idea.Idea           `json:"ideas"`
		Participations []event.Participation `json:"participations"`
		Teams          []team.Team           `json:"teams"`
	}

	Service interface {
		Admin(ctx context.Context) (AdminStats, error)
		Personal(ctx context.Context, usr user.User) (Personal, error)
	}

	service struct {
		usrSvc  user.Service
		ideaSvc idea.Service
		evtSvc  event.Service
		teamSvc team.Service
		pmtSvc  payment.Service
		fbSvc   feedback.Service
	}
)

var _ Service = (*service)(nil)

func NewService(
	usrSvc user.Service,
	ideaSvc idea.Service,
	evtSvc event.Service,
	teamSvc team.Service,
	pmtSvc payment.Service,
	fbSvc feedback.Service,
) Service {
	return &service{
		usrSvc:  usrSvc,
		ideaSvc: ideaSvc,
		evtSvc:  evtSvc,
		teamSvc: teamSvc,
		pmtSvc:  pmtSvc,
		fbSvc:   fbSvc,
	}
}

// roleGroups fills the missing role groups of byGroup with 0.
func roleGroups(byGroup map[string]int) map[string]int {
	groups := map[string]int{"admin": 0, "mentor": 0, "student": 0}
	for group, cnt := range byGroup {
		groups[group] = cnt
	}
	return groups
}

func (svc *service) Admin(ctx context.Context) (AdminStats, error) {
	var (
		stats AdminStats
		err   error
	)

	byGroup, err := svc.usrSvc.CountByRoleGroup(ctx)
	if err != nil {
		return AdminStats{}, errors.Wrap(err, "counting users")
	}
	stats.Users = roleGroups(byGroup)

	if stats.Ideas, err = svc.ideaSvc.CountByStatus(ctx); err != nil {
		return AdminStats{}, errors.Wrap(err, "counting ideas")
	}
	for _, st := range idea.Statuses {
		if _, ok := stats.Ideas[st]; !ok {
			stats.Ideas[st] = 0
		}
	}

	evtStats, err := svc.evtSvc.Stats(ctx)
	if err != nil {
		return AdminStats{}, err
	}
	stats.UpcomingEvents = evtStats.Upcoming
	stats.Participations = evtStats.Participations
	stats.Attended = evtStats.Attended

	if stats.Teams, err = svc.teamSvc.Count(ctx); err != nil {
		return AdminStats{}, errors.Wrap(err, "counting teams")
	}
	if stats.Revenue, err = svc.pmtSvc.TotalPaid(ctx); err != nil {
		return AdminStats{}, errors.Wrap(err, "summing payments")
	}
	stats.RevenueDisplay = payment.FormatAmount(stats.Revenue)

	if stats.Feedback, err = svc.fbSvc.Summary(ctx, ""); err != nil {
		return AdminStats{}, err
	}
	return stats, nil
}

func (svc *service) Personal(ctx context.Context, usr user.User) (Personal, error) {
	var (
		dash Personal
		err  error
	)
	if dash.Ideas, err = svc.ideaSvc.Query(ctx, usr, &idea.QueryFilter{SubmittedBy: usr.ID}, nil, core.Pagination{}); err != nil {
		return Personal{}, errors.Wrap(err, "listing ideas")
	}
	if dash.Participations, err = svc.evtSvc.UserParticipations(ctx, usr.ID); err != nil {
		return Personal{}, errors.Wrap(err, "listing participations")
	}
	if dash.Teams, err = svc.teamSvc.ListForUser(ctx, usr.ID); err != nil {
		return Personal{}, errors.Wrap(err, "listing teams")
	}
	return dash, nil
}

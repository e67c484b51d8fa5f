package team

import (
	"context"

	"github.com/pkg/errors"

	"github.com/innocell/innocell/core"
	"github.com/innocell/innocell/core/event"
	"github.com/innocell/innocell/core/user"
)

var (
	// errors
	ErrNotFound      = core.NewNotFoundError("team")
	ErrNotMember     = core.NewNotFoundError("team member")
	ErrJoinCodeTaken = errors.New("join code already in use")
	ErrTeamFull      = core.NewValidationError(errors.New("this team is full"))
	ErrAlreadyMember = core.NewValidationError(errors.New("already a member of this team"))

	errNotLeader       = core.NewPermissionError("only the team leader can do this")
	errAlreadyInTeam   = core.NewFieldError("event_id", "you already belong to a team for this event")
	errNotTeamEvent    = core.NewFieldError("event_id", "this event does not take teams")
	errMaxSizeTooLarge = core.NewFieldError("max_size", "larger than the event's max team size")
	errRemoveSelf      = core.NewFieldError("user_id", "use leave to quit your own team")
)

const codeAttempts = 5

type (
	Repository interface {
		// CreateTeam inserts t and its leader membership; ErrJoinCodeTaken when the code is not unique.
		CreateTeam(ctx context.Context, t Team, leader Member) (Team, error)
		GetTeam(ctx context.Context, filter GetFilter) (Team, error)
		QueryTeams(ctx context.Context, filter *QueryFilter, page core.Pagination) ([]Team, error)
		// UpdateTeam saves name, join code, leader and max size; ErrJoinCodeTaken when the code is not unique.
		UpdateTeam(ctx context.Context, t Team) (Team, error)
		DeleteTeam(ctx context.Context, id string) error
		TeamsForUser(ctx context.Context, userID string) ([]Team, error)
		CountTeams(ctx context.Context) (int, error)

		// AddMember atomically checks the team size and inserts m.
		// It returns ErrTeamFull or ErrAlreadyMember.
		AddMember(ctx context.Context, m Member, maxSize int) (Member, error)
		RemoveMember(ctx context.Context, teamID, userID string) error
		// SetLeader makes userID the leader of teamID, demoting the current one.
		SetLeader(ctx context.Context, teamID, userID string) error
		// QueryMembers lists members of teamID, longest-standing first.
		QueryMembers(ctx context.Context, teamID string) ([]Member, error)
		IsMember(ctx context.Context, teamID, userID string) (bool, error)
		CountMembers(ctx context.Context, teamID string) (int, error)
	}

	Service interface {
		Create(ctx context.Context, leader user.User, nt NewTeam) (Team, error)
		Query(ctx context.Context, filter *QueryFilter, page core.Pagination) ([]Team, error)
		Get(ctx context.Context, viewer user.User, id string) (Team, error)
		Update(ctx context.Context, actor user.User, id string, ut UpdateTeam) (Team, error)
		Join(ctx context.Context, usr user.User, code string) (Team, error)
		Leave(ctx context.Context, usr user.User, id string) error
		RemoveMember(ctx context.Context, actor user.User, id, userID string) error
		RegenerateCode(ctx context.Context, actor user.User, id string) (Team, error)
		Delete(ctx context.Context, actor user.User, id string) error
		ListForUser(ctx context.Context, userID string) ([]Team, error)
		Members(ctx context.Context, id string) ([]Member, error)
		IsMember(ctx context.Context, teamID, userID string) (bool, error)
		Count(ctx context.Context) (int, error)
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

// withUniqueCode retries fn with fresh join codes while the repository reports a collision.
func withUniqueCode(fn func(code string) (Team, error)) (Team, error) {
	for i := 0; i < codeAttempts; i++ {
		code, err := core.RandomCode(JoinCodeLength)
		if err != nil {
			return Team{}, errors.Wrap(err, "generating join code")
		}
		t, err := fn(code)
		if errors.Cause(err) == ErrJoinCodeTaken {
			continue
		}
		return t, err
	}
	return Team{}, errors.New("could not generate a unique join code")
}

// inEventTeam reports whether userID already belongs to a team bound to eventID.
func (svc *service) inEventTeam(ctx context.Context, userID, eventID string) (bool, error) {
	teams, err := svc.repo.TeamsForUser(ctx, userID)
	if err != nil {
		return false, errors.Wrap(err, "listing user teams")
	}
	for _, t := range teams {
		if t.EventID == eventID {
			return true, nil
		}
	}
	return false, nil
}

func (svc *service) Create(ctx context.Context, leader user.User, nt NewTeam) (Team, error) {
	maxSize := nt.MaxSize
	if nt.EventID != "" {
		evt, err := svc.evtSvc.GetByID(ctx, nt.EventID)
		if err != nil {
			if core.IsNotFound(err) {
				return Team{}, core.NewFieldError("event_id", err.Error())
			}
			return Team{}, err
		}
		if !evt.IsTeamEvent {
			return Team{}, errNotTeamEvent
		}
		if maxSize == 0 {
			maxSize = evt.MaxTeamSize
		} else if maxSize > evt.MaxTeamSize {
			return Team{}, errMaxSizeTooLarge
		}
		taken, err := svc.inEventTeam(ctx, leader.ID, evt.ID)
		if err != nil {
			return Team{}, err
		}
		if taken {
			return Team{}, errAlreadyInTeam
		}
	}
	if maxSize == 0 {
		maxSize = DefaultMaxSize
	}

	now := core.Now()
	return withUniqueCode(func(code string) (Team, error) {
		return svc.repo.CreateTeam(ctx, Team{
			Name:      nt.Name,
			JoinCode:  code,
			LeaderID:  leader.ID,
			EventID:   nt.EventID,
			MaxSize:   maxSize,
			CreatedAt: now,
			UpdatedAt: now,
		}, Member{UserID: leader.ID, Role: RoleLeader, JoinedAt: now})
	})
}

func (svc *service) Query(ctx context.Context, filter *QueryFilter, page core.Pagination) ([]Team, error) {
	return svc.repo.QueryTeams(ctx, filter, page)
}

func (svc *service) get(ctx context.Context, id string) (Team, error) {
	t, err := svc.repo.GetTeam(ctx, GetFilter{ID: id})
	if err != nil {
		return Team{}, err
	}
	if t.Members, err = svc.repo.QueryMembers(ctx, t.ID); err != nil {
		return Team{}, errors.Wrap(err, "listing members")
	}
	return t, nil
}

// Get returns the team with its members. The join code is only shown to members and admins.
func (svc *service) Get(ctx context.Context, viewer user.User, id string) (Team, error) {
	t, err := svc.get(ctx, id)
	if err != nil {
		return Team{}, err
	}
	if !viewer.IsAdmin() && !t.HasMember(viewer.ID) {
		t.JoinCode = ""
	}
	return t, nil
}

func (svc *service) leaderOrAdmin(ctx context.Context, actor user.User, id string) (Team, error) {
	t, err := svc.repo.GetTeam(ctx, GetFilter{ID: id})
	if err != nil {
		return Team{}, err
	}
	if t.LeaderID != actor.ID && !actor.IsAdmin() {
		return Team{}, errNotLeader
	}
	return t, nil
}

func (svc *service) Update(ctx context.Context, actor user.User, id string, ut UpdateTeam) (Team, error) {
	t, err := svc.leaderOrAdmin(ctx, actor, id)
	if err != nil {
		return Team{}, err
	}
	t.Name = ut.Name
	t.UpdatedAt = core.Now()
	return svc.repo.UpdateTeam(ctx, t)
}

func (svc *service) Join(ctx context.Context, usr user.User, code string) (Team, error) {
	t, err := svc.repo.GetTeam(ctx, GetFilter{JoinCode: NormalizeCode(code)})
	if err != nil {
		return Team{}, err
	}

	maxSize := t.MaxSize
	if t.EventID != "" {
		evt, err := svc.evtSvc.GetByID(ctx, t.EventID)
		if err != nil {
			return Team{}, errors.Wrap(err, "getting team event")
		}
		if evt.MaxTeamSize > 0 && evt.MaxTeamSize < maxSize {
			maxSize = evt.MaxTeamSize
		}
		ok, err := svc.repo.IsMember(ctx, t.ID, usr.ID)
		if err != nil {
			return Team{}, errors.Wrap(err, "checking membership")
		}
		if ok {
			return Team{}, ErrAlreadyMember
		}
		taken, err := svc.inEventTeam(ctx, usr.ID, t.EventID)
		if err != nil {
			return Team{}, err
		}
		if taken {
			return Team{}, errAlreadyInTeam
		}
	}

	if _, err = svc.repo.AddMember(ctx, Member{
		TeamID:   t.ID,
		UserID:   usr.ID,
		Role:     RoleMember,
		JoinedAt: core.Now(),
	}, maxSize); err != nil {
		return Team{}, err
	}
	return svc.get(ctx, t.ID)
}

// Leave removes usr from the team. A leaving leader hands over to the longest-standing member;
// the last member leaving deletes the team.
func (svc *service) Leave(ctx context.Context, usr user.User, id string) error {
	t, err := svc.get(ctx, id)
	if err != nil {
		return err
	}
	if !t.HasMember(usr.ID) {
		return ErrNotMember
	}
	if len(t.Members) == 1 {
		return svc.repo.DeleteTeam(ctx, t.ID)
	}

	if t.LeaderID == usr.ID {
		for _, m := range t.Members {
			if m.UserID != usr.ID {
				if err = svc.repo.SetLeader(ctx, t.ID, m.UserID); err != nil {
					return errors.Wrap(err, "handing over leadership")
				}
				break
			}
		}
	}
	return svc.repo.RemoveMember(ctx, t.ID, usr.ID)
}

func (svc *service) RemoveMember(ctx context.Context, actor user.User, id, userID string) error {
	t, err := svc.leaderOrAdmin(ctx, actor, id)
	if err != nil {
		return err
	}
	if userID == t.LeaderID {
		return errRemoveSelf
	}
	return svc.repo.RemoveMember(ctx, t.ID, userID)
}

func (svc *service) RegenerateCode(ctx context.Context, actor user.User, id string) (Team, error) {
	t, err := svc.leaderOrAdmin(ctx, actor, id)
	if err != nil {
		return Team{}, err
	}
	return withUniqueCode(func(code string) (Team, error) {
		t.JoinCode = code
		t.UpdatedAt = core.Now()
		return svc.repo.UpdateTeam(ctx, t)
	})
}

func (svc *service) Delete(ctx context.Context, actor user.User, id string) error {
	t, err := svc.leaderOrAdmin(ctx, actor, id)
	if err != nil {
		return err
	}
	return svc.repo.DeleteTeam(ctx, t.ID)
}

func (svc *service) ListForUser(ctx context.Context, userID string) ([]Team, error) {
	return svc.repo.TeamsForUser(ctx, userID)
}

func (svc *service) Members(ctx context.Context, id string) ([]Member, error) {
	if _, err := svc.repo.GetTeam(ctx, GetFilter{ID: id}); err != nil {
		return nil, err
	}
	return svc.repo.QueryMembers(ctx, id)
}

func (svc *service) IsMember(ctx context.Context, teamID, userID string) (bool, error) {
	return svc.repo.IsMember(ctx, teamID, userID)
}

func (svc *service) Count(ctx context.Context) (int, error) {
	return svc.repo.CountTeams(ctx)
}

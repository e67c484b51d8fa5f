package inmemdb

import (
	"context"
	"sort"

	"github.com/innocell/innocell/core"
	"github.com/innocell/innocell/core/team"
)

type teamRepository struct {
	db *DB
}

var _ team.Repository = (*teamRepository)(nil)

func NewTeamRepository(db *DB) team.Repository {
	return &teamRepository{db: db}
}

// codeTaken reports whether code belongs to a team other than excludeID. Callers hold the lock.
func (repo *teamRepository) codeTaken(code, excludeID string) bool {
	for _, t := range repo.db.teams {
		if t.JoinCode == code && t.ID != excludeID {
			return true
		}
	}
	return false
}

func (repo *teamRepository) CreateTeam(_ context.Context, t team.Team, leader team.Member) (team.Team, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if repo.codeTaken(t.JoinCode, "") {
		return team.Team{}, team.ErrJoinCodeTaken
	}
	t.ID = newID()
	t.Members = nil
	leader.TeamID = t.ID
	repo.db.teams[t.ID] = &t
	repo.db.members[t.ID] = map[string]*team.Member{leader.UserID: &leader}
	return t, nil
}

func (repo *teamRepository) GetTeam(_ context.Context, filter team.GetFilter) (team.Team, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if filter.ID != "" {
		if t, ok := repo.db.teams[filter.ID]; ok {
			return *t, nil
		}
		return team.Team{}, team.ErrNotFound
	}
	for _, t := range repo.db.teams {
		if filter.JoinCode != "" && t.JoinCode == filter.JoinCode {
			return *t, nil
		}
	}
	return team.Team{}, team.ErrNotFound
}

func sortTeams(teams []team.Team) {
	sort.SliceStable(teams, func(i, j int) bool {
		if !teams[i].CreatedAt.Equal(teams[j].CreatedAt) {
			return teams[i].CreatedAt.After(teams[j].CreatedAt)
		}
		return teams[i].ID < teams[j].ID
	})
}

func (repo *teamRepository) QueryTeams(_ context.Context, filter *team.QueryFilter, page core.Pagination) ([]team.Team, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	teams := make([]team.Team, 0)
	for _, t := range repo.db.teams {
		if filter != nil {
			if filter.Search != "" && !contains(filter.Search, t.Name) {
				continue
			}
			if filter.EventID != "" && t.EventID != filter.EventID {
				continue
			}
		}
		teams = append(teams, *t)
	}
	sortTeams(teams)
	return paginate(teams, page), nil
}

func (repo *teamRepository) UpdateTeam(_ context.Context, t team.Team) (team.Team, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	orig, ok := repo.db.teams[t.ID]
	if !ok {
		return team.Team{}, team.ErrNotFound
	}
	if repo.codeTaken(t.JoinCode, t.ID) {
		return team.Team{}, team.ErrJoinCodeTaken
	}
	orig.Name = t.Name
	orig.JoinCode = t.JoinCode
	orig.LeaderID = t.LeaderID
	orig.MaxSize = t.MaxSize
	orig.UpdatedAt = t.UpdatedAt
	return *orig, nil
}

func (repo *teamRepository) DeleteTeam(_ context.Context, id string) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.teams[id]; !ok {
		return team.ErrNotFound
	}
	delete(repo.db.teams, id)
	delete(repo.db.members, id)
	for _, p := range repo.db.participations {
		if p.TeamID == id {
			p.TeamID = ""
		}
	}
	for _, i := range repo.db.ideas {
		if i.TeamID == id {
			i.TeamID = ""
		}
	}
	return nil
}

func (repo *teamRepository) TeamsForUser(_ context.Context, userID string) ([]team.Team, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	teams := make([]team.Team, 0)
	for teamID, members := range repo.db.members {
		if _, ok := members[userID]; ok {
			if t, ok := repo.db.teams[teamID]; ok {
				teams = append(teams, *t)
			}
		}
	}
	sortTeams(teams)
	return teams, nil
}

func (repo *teamRepository) CountTeams(_ context.Context) (int, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()
	return len(repo.db.teams), nil
}

func (repo *teamRepository) AddMember(_ context.Context, m team.Member, maxSize int) (team.Member, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	members, ok := repo.db.members[m.TeamID]
	if !ok {
		return team.Member{}, team.ErrNotFound
	}
	if _, ok = members[m.UserID]; ok {
		return team.Member{}, team.ErrAlreadyMember
	}
	if maxSize > 0 && len(members) >= maxSize {
		return team.Member{}, team.ErrTeamFull
	}
	members[m.UserID] = &m
	return m, nil
}

func (repo *teamRepository) RemoveMember(_ context.Context, teamID, userID string) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	members, ok := repo.db.members[teamID]
	if !ok {
		return team.ErrNotFound
	}
	if _, ok = members[userID]; !ok {
		return team.ErrNotMember
	}
	delete(members, userID)
	return nil
}

func (repo *teamRepository) SetLeader(_ context.Context, teamID, userID string) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	t, ok := repo.db.teams[teamID]
	if !ok {
		return team.ErrNotFound
	}
	members := repo.db.members[teamID]
	next, ok := members[userID]
	if !ok {
		return team.ErrNotMember
	}
	if cur, ok := members[t.LeaderID]; ok {
		cur.Role = team.RoleMember
	}
	next.Role = team.RoleLeader
	t.LeaderID = userID
	return nil
}

func (repo *teamRepository) QueryMembers(_ context.Context, teamID string) ([]team.Member, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	members := make([]team.Member, 0, len(repo.db.members[teamID]))
	for _, m := range repo.db.members[teamID] {
		mem := *m
		if usr, ok := repo.db.users[m.UserID]; ok {
			mem.UserName = usr.Name
		}
		members = append(members, mem)
	}
	sort.SliceStable(members, func(i, j int) bool {
		if !members[i].JoinedAt.Equal(members[j].JoinedAt) {
			return members[i].JoinedAt.Before(members[j].JoinedAt)
		}
		// leader first among members who joined together
		return members[i].Role == team.RoleLeader && members[j].Role != team.RoleLeader
	})
	return members, nil
}

func (repo *teamRepository) IsMember(_ context.Context, teamID, userID string) (bool, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	_, ok := repo.db.members[teamID][userID]
	return ok, nil
}

func (repo *teamRepository) CountMembers(_ context.Context, teamID string) (int, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()
	return len(repo.db.members[teamID]), nil
}

package sqlxrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/innocell/innocell/core"
	"github.com/innocell/innocell/core/team"
)

const (
	teamColumns   = `t.id, t.name, t.join_code, t.leader_id, t.event_id, t.max_size, t.created_at, t.updated_at`
	memberColumns = `m.team_id, m.user_id, m.role, m.joined_at, u.name AS user_name`
)

type teamRow struct {
	ID        string      `db:"id"`
	Name      string      `db:"name"`
	JoinCode  string      `db:"join_code"`
	LeaderID  string      `db:"leader_id"`
	EventID   null.String `db:"event_id"`
	MaxSize   int         `db:"max_size"`
	CreatedAt time.Time   `db:"created_at"`
	UpdatedAt time.Time   `db:"updated_at"`
}

func toTeamRow(t team.Team) teamRow {
	return teamRow{
		ID:        t.ID,
		Name:      t.Name,
		JoinCode:  t.JoinCode,
		LeaderID:  t.LeaderID,
		EventID:   null.NewString(t.EventID, t.EventID != ""),
		MaxSize:   t.MaxSize,
		CreatedAt: t.CreatedAt.UTC(),
		UpdatedAt: t.UpdatedAt.UTC(),
	}
}

func (r teamRow) team() team.Team {
	return team.Team{
		ID:        r.ID,
		Name:      r.Name,
		JoinCode:  r.JoinCode,
		LeaderID:  r.LeaderID,
		EventID:   r.EventID.String,
		MaxSize:   r.MaxSize,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

func teamsFromRows(rows []teamRow) []team.Team {
	teams := make([]team.Team, 0, len(rows))
	for _, r := range rows {
		teams = append(teams, r.team())
	}
	return teams
}

type memberRow struct {
	TeamID   string      `db:"team_id"`
	UserID   string      `db:"user_id"`
	Role     string      `db:"role"`
	JoinedAt time.Time   `db:"joined_at"`
	UserName null.String `db:"user_name"`
}

type teamRepository struct {
	db core.DB
}

var _ team.Repository = (*teamRepository)(nil)

func NewTeamRepository(db core.DB) team.Repository {
	return &teamRepository{db: db}
}

func (repo *teamRepository) CreateTeam(ctx context.Context, t team.Team, leader team.Member) (team.Team, error) {
	t.ID = uuid.New().String()
	t.Members = nil
	err := withTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		q := `INSERT INTO team (id, name, join_code, leader_id, event_id, max_size, created_at, updated_at)
			VALUES (:id, :name, :join_code, :leader_id, :event_id, :max_size, :created_at, :updated_at)`
		if _, err := namedExec(ctx, tx, q, toTeamRow(t)); err != nil {
			if isUniqueViolation(err, "team_join_code_key") {
				return team.ErrJoinCodeTaken
			}
			return errors.Wrap(err, "inserting team")
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO team_member (team_id, user_id, role, joined_at) VALUES ($1, $2, $3, $4)`,
			t.ID, leader.UserID, leader.Role, leader.JoinedAt.UTC())
		return errors.Wrap(err, "inserting team leader")
	})
	if err != nil {
		return team.Team{}, err
	}
	return t, nil
}

func (repo *teamRepository) GetTeam(ctx context.Context, filter team.GetFilter) (team.Team, error) {
	var w where
	switch {
	case filter.ID != "":
		if _, err := uuid.Parse(filter.ID); err != nil {
			return team.Team{}, team.ErrNotFound
		}
		w.add("t.id = ?", filter.ID)
	case filter.JoinCode != "":
		w.add("t.join_code = ?", filter.JoinCode)
	default:
		return team.Team{}, team.ErrNotFound
	}

	var r teamRow
	if err := repo.db.GetContext(ctx, &r, `SELECT `+teamColumns+` FROM team t`+w.String(), w.args...); err != nil {
		return team.Team{}, trapNoRowsErr(err, team.ErrNotFound, "getting team")
	}
	return r.team(), nil
}

func (repo *teamRepository) QueryTeams(ctx context.Context, filter *team.QueryFilter, page core.Pagination) ([]team.Team, error) {
	var w where
	if filter != nil {
		if filter.Search != "" {
			w.add("t.name ILIKE ?", likeArg(filter.Search))
		}
		if filter.EventID != "" {
			w.add("t.event_id = ?", filter.EventID)
		}
	}
	var rows []teamRow
	q := `SELECT ` + teamColumns + ` FROM team t` + w.String() + ` ORDER BY t.created_at DESC, t.id` + w.limit(page)
	if err := repo.db.SelectContext(ctx, &rows, q, w.args...); err != nil {
		return nil, errors.Wrap(err, "querying teams")
	}
	return teamsFromRows(rows), nil
}

func (repo *teamRepository) UpdateTeam(ctx context.Context, t team.Team) (team.Team, error) {
	q := `UPDATE team SET name = :name, join_code = :join_code, leader_id = :leader_id, max_size = :max_size,
		updated_at = :updated_at WHERE id = :id`
	res, err := namedExec(ctx, repo.db, q, toTeamRow(t))
	if err != nil {
		if isUniqueViolation(err, "team_join_code_key") {
			return team.Team{}, team.ErrJoinCodeTaken
		}
		return team.Team{}, errors.Wrap(err, "updating team")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return team.Team{}, team.ErrNotFound
	}
	return t, nil
}

func (repo *teamRepository) DeleteTeam(ctx context.Context, id string) error {
	res, err := repo.db.ExecContext(ctx, `DELETE FROM team WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "deleting team")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return team.ErrNotFound
	}
	return nil
}

func (repo *teamRepository) TeamsForUser(ctx context.Context, userID string) ([]team.Team, error) {
	var rows []teamRow
	q := `SELECT ` + teamColumns + ` FROM team t JOIN team_member m ON m.team_id = t.id
		WHERE m.user_id = $1 ORDER BY t.created_at DESC, t.id`
	if err := repo.db.SelectContext(ctx, &rows, q, userID); err != nil {
		return nil, errors.Wrap(err, "querying user teams")
	}
	return teamsFromRows(rows), nil
}

func (repo *teamRepository) CountTeams(ctx context.Context) (int, error) {
	var n int
	err := repo.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM team`)
	return n, errors.Wrap(err, "counting teams")
}

// AddMember locks the team row so concurrent joins cannot exceed maxSize.
func (repo *teamRepository) AddMember(ctx context.Context, m team.Member, maxSize int) (team.Member, error) {
	err := withTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		var id string
		if err := tx.GetContext(ctx, &id, `SELECT id FROM team WHERE id = $1 FOR UPDATE`, m.TeamID); err != nil {
			return trapNoRowsErr(err, team.ErrNotFound, "locking team")
		}
		var count int
		if err := tx.GetContext(ctx, &count, `SELECT COUNT(*) FROM team_member WHERE team_id = $1`, m.TeamID); err != nil {
			return errors.Wrap(err, "counting members")
		}
		if maxSize > 0 && count >= maxSize {
			return team.ErrTeamFull
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO team_member (team_id, user_id, role, joined_at) VALUES ($1, $2, $3, $4)`,
			m.TeamID, m.UserID, m.Role, m.JoinedAt.UTC())
		if isUniqueViolation(err) {
			return team.ErrAlreadyMember
		}
		return errors.Wrap(err, "inserting member")
	})
	if err != nil {
		return team.Member{}, err
	}
	return m, nil
}

func (repo *teamRepository) RemoveMember(ctx context.Context, teamID, userID string) error {
	res, err := repo.db.ExecContext(ctx, `DELETE FROM team_member WHERE team_id = $1 AND user_id = $2`, teamID, userID)
	if err != nil {
		return errors.Wrap(err, "removing member")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return team.ErrNotMember
	}
	return nil
}

func (repo *teamRepository) SetLeader(ctx context.Context, teamID, userID string) error {
	return withTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE team_member SET role = CASE WHEN user_id = $2 THEN $3 ELSE $4 END WHERE team_id = $1`,
			teamID, userID, team.RoleLeader, team.RoleMember)
		if err != nil {
			return errors.Wrap(err, "updating member roles")
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return team.ErrNotMember
		}
		_, err = tx.ExecContext(ctx, `UPDATE team SET leader_id = $2, updated_at = $3 WHERE id = $1`,
			teamID, userID, core.Now())
		return errors.Wrap(err, "updating team leader")
	})
}

func (repo *teamRepository) QueryMembers(ctx context.Context, teamID string) ([]team.Member, error) {
	var rows []memberRow
	q := `SELECT ` + memberColumns + ` FROM team_member m JOIN "user" u ON u.id = m.user_id
		WHERE m.team_id = $1 ORDER BY m.joined_at, (m.role = 'leader') DESC, m.user_id`
	if err := repo.db.SelectContext(ctx, &rows, q, teamID); err != nil {
		return nil, errors.Wrap(err, "querying members")
	}
	members := make([]team.Member, 0, len(rows))
	for _, r := range rows {
		members = append(members, team.Member{
			TeamID:   r.TeamID,
			UserID:   r.UserID,
			Role:     r.Role,
			JoinedAt: r.JoinedAt,
			UserName: r.UserName.String,
		})
	}
	return members, nil
}

func (repo *teamRepository) IsMember(ctx context.Context, teamID, userID string) (bool, error) {
	if _, err := uuid.Parse(teamID); err != nil {
		return false, nil
	}
	var exists bool
	q := `SELECT EXISTS (SELECT 1 FROM team_member WHERE team_id = $1 AND user_id = $2)`
	err := repo.db.GetContext(ctx, &exists, q, teamID, userID)
	return exists, errors.Wrap(err, "checking membership")
}

func (repo *teamRepository) CountMembers(ctx context.Context, teamID string) (int, error) {
	var n int
	err := repo.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM team_member WHERE team_id = $1`, teamID)
	return n, errors.Wrap(err, "counting members")
}

package sqlxrepos

import (
	"context"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/innocell/innocell/core"
	"github.com/innocell/innocell/core/idea"
)

const ideaColumns = `id, title, summary, description, category, status, submitted_by, team_id, reviewed_by,
	review_note, created_at, updated_at, reviewed_at`

var ideaOrdering = map[string]string{
	"title":       "title",
	"status":      "status",
	"category":    "category",
	"created_at":  "created_at",
	"reviewed_at": "reviewed_at",
}

type ideaRow struct {
	ID          string      `db:"id"`
	Title       string      `db:"title"`
	Summary     string      `db:"summary"`
	Description string      `db:"description"`
	Category    string      `db:"category"`
	Status      string      `db:"status"`
	SubmittedBy string      `db:"submitted_by"`
	TeamID      null.String `db:"team_id"`
	ReviewedBy  null.String `db:"reviewed_by"`
	ReviewNote  null.String `db:"review_note"`
	CreatedAt   null.Time   `db:"created_at"`
	UpdatedAt   null.Time   `db:"updated_at"`
	ReviewedAt  null.Time   `db:"reviewed_at"`
}

func toIdeaRow(i idea.Idea) ideaRow {
	return ideaRow{
		ID:          i.ID,
		Title:       i.Title,
		Summary:     i.Summary,
		Description: i.Description,
		Category:    i.Category,
		Status:      string(i.Status),
		SubmittedBy: i.SubmittedBy,
		TeamID:      null.NewString(i.TeamID, i.TeamID != ""),
		ReviewedBy:  null.NewString(i.ReviewedBy, i.ReviewedBy != ""),
		ReviewNote:  null.NewString(i.ReviewNote, i.ReviewNote != ""),
		CreatedAt:   null.NewTime(i.CreatedAt.UTC(), !i.CreatedAt.IsZero()),
		UpdatedAt:   null.NewTime(i.UpdatedAt.UTC(), !i.UpdatedAt.IsZero()),
		ReviewedAt:  null.NewTime(i.ReviewedAt.UTC(), !i.ReviewedAt.IsZero()),
	}
}

func (r ideaRow) idea() idea.Idea {
	return idea.Idea{
		ID:          r.ID,
		Title:       r.Title,
		Summary:     r.Summary,
		Description: r.Description,
		Category:    r.Category,
		Status:      idea.Status(r.Status),
		SubmittedBy: r.SubmittedBy,
		TeamID:      r.TeamID.String,
		ReviewedBy:  r.ReviewedBy.String,
		ReviewNote:  r.ReviewNote.String,
		CreatedAt:   r.CreatedAt.Time,
		UpdatedAt:   r.UpdatedAt.Time,
		ReviewedAt:  r.ReviewedAt.Time,
	}
}

type ideaRepository struct {
	db core.DB
}

var _ idea.Repository = (*ideaRepository)(nil)

func NewIdeaRepository(db core.DB) idea.Repository {
	return &ideaRepository{db: db}
}

func (repo *ideaRepository) CreateIdea(ctx context.Context, i idea.Idea) (idea.Idea, error) {
	i.ID = uuid.New().String()
	q := `INSERT INTO idea (` + ideaColumns + `) VALUES (
		:id, :title, :summary, :description, :category, :status, :submitted_by, :team_id, :reviewed_by,
		:review_note, :created_at, :updated_at, :reviewed_at)`
	if _, err := namedExec(ctx, repo.db, q, toIdeaRow(i)); err != nil {
		return idea.Idea{}, errors.Wrap(err, "inserting idea")
	}
	return i, nil
}

func (repo *ideaRepository) QueryIdeas(ctx context.Context, filter *idea.QueryFilter, ordering []core.DBOrdering, page core.Pagination) ([]idea.Idea, error) {
	var w where
	if filter != nil {
		if filter.VisibleTo != "" {
			w.add("status IN ('Approved', 'Implemented') OR submitted_by = ?", filter.VisibleTo)
		}
		if filter.Search != "" {
			val := likeArg(filter.Search)
			w.add("title ILIKE ? OR summary ILIKE ? OR description ILIKE ?", val, val, val)
		}
		if len(filter.Statuses) > 0 {
			w.add("status = ANY(?)", pq.Array(filter.Statuses))
		}
		if len(filter.Categories) > 0 {
			w.add("category = ANY(?)", pq.Array(filter.Categories))
		}
		if filter.SubmittedBy != "" {
			w.add("submitted_by = ?", filter.SubmittedBy)
		}
		if filter.TeamID != "" {
			w.add("team_id = ?", filter.TeamID)
		}
	}

	q := `SELECT ` + ideaColumns + ` FROM idea` + w.String() +
		` ORDER BY ` + core.OrderByClause(ordering, ideaOrdering, "created_at DESC") + w.limit(page)
	var rows []ideaRow
	if err := repo.db.SelectContext(ctx, &rows, q, w.args...); err != nil {
		return nil, errors.Wrap(err, "querying ideas")
	}
	ideas := make([]idea.Idea, 0, len(rows))
	for _, r := range rows {
		ideas = append(ideas, r.idea())
	}
	return ideas, nil
}

func (repo *ideaRepository) GetIdea(ctx context.Context, id string) (idea.Idea, error) {
	if _, err := uuid.Parse(id); err != nil {
		return idea.Idea{}, idea.ErrNotFound
	}
	var r ideaRow
	if err := repo.db.GetContext(ctx, &r, `SELECT `+ideaColumns+` FROM idea WHERE id = $1`, id); err != nil {
		return idea.Idea{}, trapNoRowsErr(err, idea.ErrNotFound, "getting idea")
	}
	return r.idea(), nil
}

func (repo *ideaRepository) UpdateIdea(ctx context.Context, i idea.Idea) (idea.Idea, error) {
	q := `UPDATE idea SET title = :title, summary = :summary, description = :description, category = :category,
		status = :status, team_id = :team_id, reviewed_by = :reviewed_by, review_note = :review_note,
		updated_at = :updated_at, reviewed_at = :reviewed_at
		WHERE id = :id`
	res, err := namedExec(ctx, repo.db, q, toIdeaRow(i))
	if err != nil {
		return idea.Idea{}, errors.Wrap(err, "updating idea")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return idea.Idea{}, idea.ErrNotFound
	}
	return i, nil
}

func (repo *ideaRepository) DeleteIdea(ctx context.Context, id string) error {
	res, err := repo.db.ExecContext(ctx, `DELETE FROM idea WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "deleting idea")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return idea.ErrNotFound
	}
	return nil
}

func (repo *ideaRepository) CountIdeasByStatus(ctx context.Context) (map[idea.Status]int, error) {
	var rows []struct {
		Status string `db:"status"`
		Count  int    `db:"count"`
	}
	if err := repo.db.SelectContext(ctx, &rows, `SELECT status, COUNT(*) AS count FROM idea GROUP BY status`); err != nil {
		return nil, errors.Wrap(err, "counting ideas by status")
	}
	counts := make(map[idea.Status]int, len(rows))
	for _, r := range rows {
		counts[idea.Status(r.Status)] = r.Count
	}
	return counts, nil
}

package sqlxrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/innocell/innocell/core"
	"github.com/innocell/innocell/core/feedback"
)

const feedbackColumns = `id, user_id, event_id, rating, message, created_at`

type feedbackRow struct {
	ID        string      `db:"id"`
	UserID    null.String `db:"user_id"`
	EventID   null.String `db:"event_id"`
	Rating    int         `db:"rating"`
	Message   string      `db:"message"`
	CreatedAt time.Time   `db:"created_at"`
}

type feedbackRepository struct {
	db core.DB
}

var _ feedback.Repository = (*feedbackRepository)(nil)

func NewFeedbackRepository(db core.DB) feedback.Repository {
	return &feedbackRepository{db: db}
}

func (repo *feedbackRepository) CreateFeedback(ctx context.Context, fb feedback.Feedback) (feedback.Feedback, error) {
	fb.ID = uuid.New().String()
	q := `INSERT INTO feedback (` + feedbackColumns + `) VALUES (:id, :user_id, :event_id, :rating, :message, :created_at)`
	row := feedbackRow{
		ID:        fb.ID,
		UserID:    null.NewString(fb.UserID, fb.UserID != ""),
		EventID:   null.NewString(fb.EventID, fb.EventID != ""),
		Rating:    fb.Rating,
		Message:   fb.Message,
		CreatedAt: fb.CreatedAt.UTC(),
	}
	if _, err := namedExec(ctx, repo.db, q, row); err != nil {
		return feedback.Feedback{}, errors.Wrap(err, "inserting feedback")
	}
	return fb, nil
}

func feedbackWhere(filter *feedback.QueryFilter) *where {
	w := new(where)
	if filter == nil {
		return w
	}
	if filter.EventID != "" {
		w.add("event_id = ?", filter.EventID)
	}
	if filter.General {
		w.add("event_id IS NULL")
	}
	if filter.UserID != "" {
		w.add("user_id = ?", filter.UserID)
	}
	if filter.MinRating > 0 {
		w.add("rating >= ?", filter.MinRating)
	}
	if filter.MaxRating > 0 {
		w.add("rating <= ?", filter.MaxRating)
	}
	return w
}

func (repo *feedbackRepository) QueryFeedback(ctx context.Context, filter *feedback.QueryFilter, page core.Pagination) ([]feedback.Feedback, error) {
	w := feedbackWhere(filter)
	var rows []feedbackRow
	q := `SELECT ` + feedbackColumns + ` FROM feedback` + w.String() + ` ORDER BY created_at DESC, id` + w.limit(page)
	if err := repo.db.SelectContext(ctx, &rows, q, w.args...); err != nil {
		return nil, errors.Wrap(err, "querying feedback")
	}
	fbs := make([]feedback.Feedback, 0, len(rows))
	for _, r := range rows {
		fbs = append(fbs, feedback.Feedback{
			ID:        r.ID,
			UserID:    r.UserID.String,
			EventID:   r.EventID.String,
			Rating:    r.Rating,
			Message:   r.Message,
			CreatedAt: r.CreatedAt,
		})
	}
	return fbs, nil
}

func (repo *feedbackRepository) Ratings(ctx context.Context, filter *feedback.QueryFilter) ([]int, error) {
	w := feedbackWhere(filter)
	var ratings []int
	if err := repo.db.SelectContext(ctx, &ratings, `SELECT rating FROM feedback`+w.String(), w.args...); err != nil {
		return nil, errors.Wrap(err, "listing ratings")
	}
	return ratings, nil
}

func (repo *feedbackRepository) DeleteFeedback(ctx context.Context, id string) error {
	res, err := repo.db.ExecContext(ctx, `DELETE FROM feedback WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "deleting feedback")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return feedback.ErrNotFound
	}
	return nil
}

package inmemdb

import (
	"context"
	"sort"

	"github.com/innocell/innocell/core"
	"github.com/innocell/innocell/core/feedback"
)

type feedbackRepository struct {
	db *DB
}

var _ feedback.Repository = (*feedbackRepository)(nil)

func NewFeedbackRepository(db *DB) feedback.Repository {
	return &feedbackRepository{db: db}
}

func (repo *feedbackRepository) CreateFeedback(_ context.Context, fb feedback.Feedback) (feedback.Feedback, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	fb.ID = newID()
	repo.db.feedback[fb.ID] = &fb
	return fb, nil
}

// query returns feedback matching filter, newest first. Callers hold the lock.
func (repo *feedbackRepository) query(filter *feedback.QueryFilter) []feedback.Feedback {
	fbs := make([]feedback.Feedback, 0)
	for _, fb := range repo.db.feedback {
		if filter != nil {
			if filter.EventID != "" && fb.EventID != filter.EventID {
				continue
			}
			if filter.General && fb.EventID != "" {
				continue
			}
			if filter.UserID != "" && fb.UserID != filter.UserID {
				continue
			}
			if filter.MinRating > 0 && fb.Rating < filter.MinRating {
				continue
			}
			if filter.MaxRating > 0 && fb.Rating > filter.MaxRating {
				continue
			}
		}
		fbs = append(fbs, *fb)
	}
	sort.SliceStable(fbs, func(i, j int) bool {
		if !fbs[i].CreatedAt.Equal(fbs[j].CreatedAt) {
			return fbs[i].CreatedAt.After(fbs[j].CreatedAt)
		}
		return fbs[i].ID < fbs[j].ID
	})
	return fbs
}

func (repo *feedbackRepository) QueryFeedback(_ context.Context, filter *feedback.QueryFilter, page core.Pagination) ([]feedback.Feedback, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()
	return paginate(repo.query(filter), page), nil
}

func (repo *feedbackRepository) Ratings(_ context.Context, filter *feedback.QueryFilter) ([]int, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	fbs := repo.query(filter)
	ratings := make([]int, 0, len(fbs))
	for _, fb := range fbs {
		ratings = append(ratings, fb.Rating)
	}
	return ratings, nil
}

func (repo *feedbackRepository) DeleteFeedback(_ context.Context, id string) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.feedback[id]; !ok {
		return feedback.ErrNotFound
	}
	delete(repo.db.feedback, id)
	return nil
}

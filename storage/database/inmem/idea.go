package inmemdb

import (
	"context"
	"sort"

	"github.com/innocell/innocell/core"
	"github.com/innocell/innocell/core/idea"
)

type ideaRepository struct {
	db *DB
}

var _ idea.Repository = (*ideaRepository)(nil)

func NewIdeaRepository(db *DB) idea.Repository {
	return &ideaRepository{db: db}
}

func (repo *ideaRepository) CreateIdea(_ context.Context, i idea.Idea) (idea.Idea, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	i.ID = newID()
	repo.db.ideas[i.ID] = &i
	return i, nil
}

func matchesIdea(i *idea.Idea, filter *idea.QueryFilter) bool {
	if filter == nil {
		return true
	}
	if filter.VisibleTo != "" && !i.Status.Public() && i.SubmittedBy != filter.VisibleTo {
		return false
	}
	if filter.Search != "" && !contains(filter.Search, i.Title, i.Summary, i.Description) {
		return false
	}
	if len(filter.Statuses) > 0 && !core.StringInSlice(string(i.Status), filter.Statuses) {
		return false
	}
	if len(filter.Categories) > 0 && !core.StringInSlice(i.Category, filter.Categories) {
		return false
	}
	if filter.SubmittedBy != "" && i.SubmittedBy != filter.SubmittedBy {
		return false
	}
	if filter.TeamID != "" && i.TeamID != filter.TeamID {
		return false
	}
	return true
}

func (repo *ideaRepository) QueryIdeas(_ context.Context, filter *idea.QueryFilter, ordering []core.DBOrdering, page core.Pagination) ([]idea.Idea, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	ideas := make([]idea.Idea, 0)
	for _, i := range repo.db.ideas {
		if matchesIdea(i, filter) {
			ideas = append(ideas, *i)
		}
	}
	asc := len(ordering) > 0 && ordering[0].Ascending
	sort.SliceStable(ideas, func(a, b int) bool {
		x, y := ideas[a], ideas[b]
		if len(ordering) > 0 && ordering[0].Field == "title" && x.Title != y.Title {
			return (x.Title < y.Title) == asc
		}
		if !x.CreatedAt.Equal(y.CreatedAt) {
			return x.CreatedAt.Before(y.CreatedAt) == asc
		}
		return x.ID < y.ID
	})
	return paginate(ideas, page), nil
}

func (repo *ideaRepository) GetIdea(_ context.Context, id string) (idea.Idea, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if i, ok := repo.db.ideas[id]; ok {
		return *i, nil
	}
	return idea.Idea{}, idea.ErrNotFound
}

func (repo *ideaRepository) UpdateIdea(_ context.Context, i idea.Idea) (idea.Idea, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.ideas[i.ID]; !ok {
		return idea.Idea{}, idea.ErrNotFound
	}
	repo.db.ideas[i.ID] = &i
	return i, nil
}

func (repo *ideaRepository) DeleteIdea(_ context.Context, id string) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.ideas[id]; !ok {
		return idea.ErrNotFound
	}
	delete(repo.db.ideas, id)
	return nil
}

func (repo *ideaRepository) CountIdeasByStatus(_ context.Context) (map[idea.Status]int, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	counts := make(map[idea.Status]int)
	for _, i := range repo.db.ideas {
		counts[i.Status]++
	}
	return counts, nil
}

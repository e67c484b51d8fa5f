package inmemdb

import (
	"context"
	"sort"

	"github.com/innocell/innocell/core/page"
)

type pageRepository struct {
	db *DB
}

var _ page.Repository = (*pageRepository)(nil)

func NewPageRepository(db *DB) page.Repository {
	return &pageRepository{db: db}
}

func (repo *pageRepository) CreatePage(_ context.Context, p page.Page) (page.Page, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	p.ID = newID()
	repo.db.pages[p.ID] = &p
	return p, nil
}

func (repo *pageRepository) QueryPages(_ context.Context, filter *page.QueryFilter) ([]page.Page, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	pages := make([]page.Page, 0)
	for _, p := range repo.db.pages {
		if filter != nil {
			if filter.Search != "" && !contains(filter.Search, p.Title, p.Content) {
				continue
			}
			if filter.Published != nil && p.IsPublished != *filter.Published {
				continue
			}
			if filter.InNav != nil && p.ShowInNav != *filter.InNav {
				continue
			}
		}
		pages = append(pages, *p)
	}
	sort.SliceStable(pages, func(i, j int) bool {
		if pages[i].NavOrder != pages[j].NavOrder {
			return pages[i].NavOrder < pages[j].NavOrder
		}
		return pages[i].Title < pages[j].Title
	})
	return pages, nil
}

func (repo *pageRepository) GetPage(_ context.Context, filter page.GetFilter) (page.Page, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if filter.ID != "" {
		if p, ok := repo.db.pages[filter.ID]; ok {
			return *p, nil
		}
		return page.Page{}, page.ErrNotFound
	}
	for _, p := range repo.db.pages {
		if filter.Slug != "" && p.Slug == filter.Slug {
			return *p, nil
		}
	}
	return page.Page{}, page.ErrNotFound
}

func (repo *pageRepository) UpdatePage(_ context.Context, p page.Page) (page.Page, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.pages[p.ID]; !ok {
		return page.Page{}, page.ErrNotFound
	}
	repo.db.pages[p.ID] = &p
	return p, nil
}

func (repo *pageRepository) DeletePage(_ context.Context, id string) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.pages[id]; !ok {
		return page.ErrNotFound
	}
	delete(repo.db.pages, id)
	return nil
}

func (repo *pageRepository) SlugExists(_ context.Context, slug, excludeID string) (bool, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	for _, p := range repo.db.pages {
		if p.Slug == slug && p.ID != excludeID {
			return true, nil
		}
	}
	return false, nil
}

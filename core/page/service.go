package page

import (
	"context"

	"github.com/gosimple/slug"
	"github.com/pkg/errors"

	"github.com/innocell/innocell/core"
)

var (
	// errors
	ErrNotFound = core.NewNotFoundError("page")
	ErrSlugUsed = core.NewFieldError("slug", "a page with this slug already exists")
)

type (
	Repository interface {
		CreatePage(ctx context.Context, p Page) (Page, error)
		// QueryPages orders by nav_order then title.
		QueryPages(ctx context.Context, filter *QueryFilter) ([]Page, error)
		GetPage(ctx context.Context, filter GetFilter) (Page, error)
		UpdatePage(ctx context.Context, p Page) (Page, error)
		DeletePage(ctx context.Context, id string) error
		SlugExists(ctx context.Context, slug, excludeID string) (bool, error)
	}

	Service interface {
		Create(ctx context.Context, np NewPage) (Page, error)
		Query(ctx context.Context, filter *QueryFilter) ([]Page, error)
		Get(ctx context.Context, id string) (Page, error)
		Update(ctx context.Context, id string, up UpdatePage) (Page, error)
		Delete(ctx context.Context, id string) error
		GetPublished(ctx context.Context, slug string) (Page, error)
		Nav(ctx context.Context) ([]NavItem, error)
	}

	service struct {
		repo Repository
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (svc *service) checkSlug(ctx context.Context, pageSlug, excludeID string) error {
	exists, err := svc.repo.SlugExists(ctx, pageSlug, excludeID)
	if err != nil {
		return errors.Wrap(err, "checking slug")
	}
	if exists {
		return ErrSlugUsed
	}
	return nil
}

func (svc *service) Create(ctx context.Context, np NewPage) (Page, error) {
	pageSlug := np.Slug
	if pageSlug == "" {
		pageSlug = slug.Make(np.Title)
	}
	if pageSlug == "" {
		return Page{}, core.NewFieldError("slug", "this field is required")
	}
	if err := svc.checkSlug(ctx, pageSlug, ""); err != nil {
		return Page{}, err
	}

	now := core.Now()
	return svc.repo.CreatePage(ctx, Page{
		Title:       np.Title,
		Slug:        pageSlug,
		Content:     np.Content,
		IsPublished: np.IsPublished,
		ShowInNav:   np.ShowInNav,
		NavOrder:    np.NavOrder,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
}

func (svc *service) Query(ctx context.Context, filter *QueryFilter) ([]Page, error) {
	return svc.repo.QueryPages(ctx, filter)
}

func (svc *service) Get(ctx context.Context, id string) (Page, error) {
	return svc.repo.GetPage(ctx, GetFilter{ID: id})
}

func (svc *service) Update(ctx context.Context, id string, up UpdatePage) (Page, error) {
	p, err := svc.repo.GetPage(ctx, GetFilter{ID: id})
	if err != nil {
		return Page{}, err
	}
	if up.Title != "" {
		p.Title = up.Title
	}
	if up.Slug != "" && up.Slug != p.Slug {
		if err = svc.checkSlug(ctx, up.Slug, p.ID); err != nil {
			return Page{}, err
		}
		p.Slug = up.Slug
	}
	if up.Content != nil {
		p.Content = *up.Content
	}
	if up.IsPublished != nil {
		p.IsPublished = *up.IsPublished
	}
	if up.ShowInNav != nil {
		p.ShowInNav = *up.ShowInNav
	}
	if up.NavOrder != nil {
		p.NavOrder = *up.NavOrder
	}
	p.UpdatedAt = core.Now()
	return svc.repo.UpdatePage(ctx, p)
}

func (svc *service) Delete(ctx context.Context, id string) error {
	return svc.repo.DeletePage(ctx, id)
}

func (svc *service) GetPublished(ctx context.Context, pageSlug string) (Page, error) {
	p, err := svc.repo.GetPage(ctx, GetFilter{Slug: core.CleanString(pageSlug, true /* lower */)})
	if err != nil {
		return Page{}, err
	}
	if !p.IsPublished {
		return Page{}, ErrNotFound
	}
	return p, nil
}

func (svc *service) Nav(ctx context.Context) ([]NavItem, error) {
	yes := true
	pages, err := svc.repo.QueryPages(ctx, &QueryFilter{Published: &yes, InNav: &yes})
	if err != nil {
		return nil, err
	}
	nav := make([]NavItem, 0, len(pages))
	for _, p := range pages {
		nav = append(nav, NavItem{Title: p.Title, Slug: p.Slug})
	}
	return nav, nil
}

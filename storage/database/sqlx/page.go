package sqlxrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/innocell/innocell/core"
	"github.com/innocell/innocell/core/page"
)

const pageColumns = `id, title, slug, content, is_published, show_in_nav, nav_order, created_at, updated_at`

type pageRow struct {
	ID          string    `db:"id"`
	Title       string    `db:"title"`
	Slug        string    `db:"slug"`
	Content     string    `db:"content"`
	IsPublished bool      `db:"is_published"`
	ShowInNav   bool      `db:"show_in_nav"`
	NavOrder    int       `db:"nav_order"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

func (r pageRow) page() page.Page {
	return page.Page(r)
}

func toPageRow(p page.Page) pageRow {
	r := pageRow(p)
	r.CreatedAt, r.UpdatedAt = p.CreatedAt.UTC(), p.UpdatedAt.UTC()
	return r
}

type pageRepository struct {
	db core.DB
}

var _ page.Repository = (*pageRepository)(nil)

func NewPageRepository(db core.DB) page.Repository {
	return &pageRepository{db: db}
}

func (repo *pageRepository) CreatePage(ctx context.Context, p page.Page) (page.Page, error) {
	p.ID = uuid.New().String()
	q := `INSERT INTO page (` + pageColumns + `) VALUES (
		:id, :title, :slug, :content, :is_published, :show_in_nav, :nav_order, :created_at, :updated_at)`
	if _, err := namedExec(ctx, repo.db, q, toPageRow(p)); err != nil {
		if isUniqueViolation(err, "page_slug_key") {
			return page.Page{}, page.ErrSlugUsed
		}
		return page.Page{}, errors.Wrap(err, "inserting page")
	}
	return p, nil
}

func (repo *pageRepository) QueryPages(ctx context.Context, filter *page.QueryFilter) ([]page.Page, error) {
	var w where
	if filter != nil {
		if filter.Search != "" {
			val := likeArg(filter.Search)
			w.add("title ILIKE ? OR content ILIKE ?", val, val)
		}
		if filter.Published != nil {
			w.add("is_published = ?", *filter.Published)
		}
		if filter.InNav != nil {
			w.add("show_in_nav = ?", *filter.InNav)
		}
	}
	var rows []pageRow
	q := `SELECT ` + pageColumns + ` FROM page` + w.String() + ` ORDER BY nav_order, title`
	if err := repo.db.SelectContext(ctx, &rows, q, w.args...); err != nil {
		return nil, errors.Wrap(err, "querying pages")
	}
	pages := make([]page.Page, 0, len(rows))
	for _, r := range rows {
		pages = append(pages, r.page())
	}
	return pages, nil
}

func (repo *pageRepository) GetPage(ctx context.Context, filter page.GetFilter) (page.Page, error) {
	var w where
	switch {
	case filter.ID != "":
		if _, err := uuid.Parse(filter.ID); err != nil {
			return page.Page{}, page.ErrNotFound
		}
		w.add("id = ?", filter.ID)
	case filter.Slug != "":
		w.add("slug = ?", filter.Slug)
	default:
		return page.Page{}, page.ErrNotFound
	}
	var r pageRow
	if err := repo.db.GetContext(ctx, &r, `SELECT `+pageColumns+` FROM page`+w.String(), w.args...); err != nil {
		return page.Page{}, trapNoRowsErr(err, page.ErrNotFound, "getting page")
	}
	return r.page(), nil
}

func (repo *pageRepository) UpdatePage(ctx context.Context, p page.Page) (page.Page, error) {
	q := `UPDATE page SET title = :title, slug = :slug, content = :content, is_published = :is_published,
		show_in_nav = :show_in_nav, nav_order = :nav_order, updated_at = :updated_at WHERE id = :id`
	res, err := namedExec(ctx, repo.db, q, toPageRow(p))
	if err != nil {
		if isUniqueViolation(err, "page_slug_key") {
			return page.Page{}, page.ErrSlugUsed
		}
		return page.Page{}, errors.Wrap(err, "updating page")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return page.Page{}, page.ErrNotFound
	}
	return p, nil
}

func (repo *pageRepository) DeletePage(ctx context.Context, id string) error {
	res, err := repo.db.ExecContext(ctx, `DELETE FROM page WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "deleting page")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return page.ErrNotFound
	}
	return nil
}

func (repo *pageRepository) SlugExists(ctx context.Context, slug, excludeID string) (bool, error) {
	var exists bool
	q := `SELECT EXISTS (SELECT 1 FROM page WHERE slug = $1 AND id::text <> $2)`
	err := repo.db.GetContext(ctx, &exists, q, slug, excludeID)
	return exists, errors.Wrap(err, "checking page slug")
}

package tests

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/innocell/innocell/core"
	"github.com/innocell/innocell/core/page"
)

func createPage(t *testing.T, pg page.Page) page.Page {
	t.Helper()
	pg.CreatedAt, pg.UpdatedAt = core.Now(), core.Now()
	pg, err := pageRepo.CreatePage(context.Background(), pg)
	require.NoError(t, err)
	return pg
}

func Test_pageApi_admin(t *testing.T) {
	resetDB()

	adminToken := getToken(t, createAdmin(t, "admin"))
	createPage(t, page.Page{Title: "About", Slug: "about", IsPublished: true})

	runHTTPTests(t, []httpTest{
		{name: "Auth required", method: http.MethodGet, path: "/v1/pages", wantCode: http.StatusUnauthorized},
		{name: "Admin required", method: http.MethodGet, path: "/v1/pages", token: getToken(t, createStudent(t, "hero")), wantCode: http.StatusForbidden},
		{
			name: "required title", method: http.MethodPost, path: "/v1/pages", token: adminToken,
			body:     marshalObj(t, page.NewPage{Content: "<p>hi</p>"}),
			wantCode: http.StatusBadRequest, wantData: marshalObj(t, map[string]string{"title": "this field is required"}),
		},
		{
			name: "slug taken", method: http.MethodPost, path: "/v1/pages", token: adminToken,
			body:     marshalObj(t, page.NewPage{Title: "About"}),
			wantCode: http.StatusBadRequest, wantData: marshalObj(t, map[string]string{"slug": "a page with this slug already exists"}),
		},
	})

	var created page.Page
	t.Run("created", func(t *testing.T) {
		rec := do(t, http.MethodPost, "/v1/pages", adminToken, page.NewPage{Title: "Code of Conduct", Content: "<p>Be nice</p>"})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		decode(t, rec, &created)
		assert.Equal(t, "code-of-conduct", created.Slug)
		assert.False(t, created.IsPublished)
	})

	t.Run("updated", func(t *testing.T) {
		published, inNav := true, true
		rec := do(t, http.MethodPut, "/v1/pages/"+created.ID, adminToken, page.UpdatePage{Slug: "conduct", IsPublished: &published, ShowInNav: &inNav})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var got page.Page
		decode(t, rec, &got)
		assert.Equal(t, "conduct", got.Slug)
		assert.Equal(t, "Code of Conduct", got.Title)
		assert.Equal(t, "<p>Be nice</p>", got.Content)
		assert.True(t, got.IsPublished)
	})

	runHTTPTests(t, []httpTest{
		{
			name: "rename onto another slug", method: http.MethodPut, path: "/v1/pages/" + created.ID, token: adminToken,
			body:     marshalObj(t, page.UpdatePage{Slug: "about"}),
			wantCode: http.StatusBadRequest, wantData: marshalObj(t, map[string]string{"slug": "a page with this slug already exists"}),
		},
		{name: "deleted", method: http.MethodDelete, path: "/v1/pages/" + created.ID, token: adminToken, wantCode: http.StatusNoContent},
		{
			name: "gone", method: http.MethodGet, path: "/v1/pages/" + created.ID, token: adminToken,
			wantCode: http.StatusNotFound, wantData: marshalObj(t, httpErr{Error: "page not found"}),
		},
	})
}

func Test_pageApi_public(t *testing.T) {
	resetDB()

	createPage(t, page.Page{Title: "FAQ", Slug: "faq", Content: "<p>Ask away</p>", IsPublished: true, ShowInNav: true, NavOrder: 2})
	createPage(t, page.Page{Title: "About", Slug: "about", Content: "<p>We build things</p>", IsPublished: true, ShowInNav: true, NavOrder: 1})
	createPage(t, page.Page{Title: "Rules", Slug: "rules", IsPublished: true})
	createPage(t, page.Page{Title: "Draft", Slug: "draft", ShowInNav: true})

	runHTTPTests(t, []httpTest{
		{
			name: "nav", method: http.MethodGet, path: "/v1/pages/nav",
			wantData: marshalList(t, page.NavItem{Title: "About", Slug: "about"}, page.NavItem{Title: "FAQ", Slug: "faq"}),
		},
		{name: "published page", method: http.MethodGet, path: "/v1/pages/public/rules"},
		{
			name: "draft page", method: http.MethodGet, path: "/v1/pages/public/draft",
			wantCode: http.StatusNotFound, wantData: marshalObj(t, httpErr{Error: "page not found"}),
		},
		{name: "draft view", method: http.MethodGet, path: "/p/draft", wantCode: http.StatusNotFound},
	})

	t.Run("rendered", func(t *testing.T) {
		req, rec := newRequest(http.MethodGet, "/p/ABOUT")
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
		body := rec.Body.String()
		assert.Contains(t, body, "<title>About | Innovation Cell</title>")
		assert.Contains(t, body, "<p>We build things</p>")
		assert.Contains(t, body, `<a href="/p/faq">FAQ</a>`)
		assert.NotContains(t, body, "/p/draft")
	})
}

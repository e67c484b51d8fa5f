package echoapi

import (
	"html/template"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/innocell/innocell/core"
	"github.com/innocell/innocell/core/page"
	"github.com/innocell/innocell/core/setting"
	appfs "github.com/innocell/innocell/fs"
)

const (
	pageViewPath        = "/p/:slug"
	pageTemplate        = "page.gohtml"
	maintenanceTemplate = "maintenance.gohtml"
)

var pageTemplates = template.Must(template.ParseFS(appfs.FS, "assets/templates/pages/*.gohtml"))

type (
	templateRenderer struct {
		templates *template.Template
	}

	pageView struct {
		SiteName string
		Page     page.Page
		Content  template.HTML
		Nav      []page.NavItem
	}

	maintenanceView struct {
		SiteName string
		Message  string
	}
)

func newTemplateRenderer() echo.Renderer {
	return &templateRenderer{templates: pageTemplates}
}

func (r *templateRenderer) Render(w io.Writer, name string, data interface{}, _ echo.Context) error {
	return r.templates.ExecuteTemplate(w, name, data)
}

// registerPageViews serves published CMS pages as HTML.
func registerPageViews(app *echo.Echo, svc page.Service, settingSvc setting.Service) {
	app.GET(pageViewPath, func(ctx echo.Context) error {
		reqCtx := ctx.Request().Context()
		pg, err := svc.GetPublished(reqCtx, core.CleanString(ctx.Param("slug"), true /* lower */))
		if err != nil {
			return err
		}
		nav, err := svc.Nav(reqCtx)
		if err != nil {
			return errors.Wrap(err, "listing nav pages")
		}
		settings, err := settingSvc.All(reqCtx)
		if err != nil {
			return errors.Wrap(err, "reading settings")
		}
		return ctx.Render(http.StatusOK, pageTemplate, pageView{
			SiteName: settings.SiteName(),
			Page:     pg,
			Content:  template.HTML(pg.Content), // authored by admins
			Nav:      nav,
		})
	})
}

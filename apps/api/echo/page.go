package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/innocell/innocell/core"
	"github.com/innocell/innocell/core/page"
)

type pageApi struct {
	svc      page.Service
	validate *validator.Validate
}

func registerPageAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc page.Service, validate *validator.Validate) {
	api := pageApi{svc: svc, validate: validate}

	pg := g.Group("/pages")
	pg.GET("/nav", api.nav)
	pg.GET("/public/:slug", api.published)

	ag := pg.Group("", jwt, adminMiddleware())
	ag.GET("", api.query)
	ag.POST("", api.create)
	ag.GET("/:id", api.retrieve)
	ag.PUT("/:id", api.update)
	ag.DELETE("/:id", api.destroy)
}

func (api *pageApi) nav(ctx echo.Context) error {
	items, err := api.svc.Nav(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "listing nav pages")
	}
	if items == nil {
		items = []page.NavItem{}
	}
	return ctx.JSON(http.StatusOK, items)
}

func (api *pageApi) published(ctx echo.Context) error {
	pg, err := api.svc.GetPublished(ctx.Request().Context(), core.CleanString(ctx.Param("slug"), true /* lower */))
	if err != nil {
		return errors.Wrap(err, "getting page")
	}
	return ctx.JSON(http.StatusOK, pg)
}

func (api *pageApi) query(ctx echo.Context) error {
	filter := &page.QueryFilter{
		Search:    ctx.QueryParam("search"),
		Published: boolParam(ctx, "published"),
		InNav:     boolParam(ctx, "in_nav"),
	}
	filter.Clean()

	pages, err := api.svc.Query(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying pages")
	}
	if pages == nil {
		pages = []page.Page{}
	}
	return ctx.JSON(http.StatusOK, pages)
}

func (api *pageApi) create(ctx echo.Context) error {
	var data page.NewPage
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewPage")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	pg, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating page")
	}
	return ctx.JSON(http.StatusCreated, pg)
}

func (api *pageApi) retrieve(ctx echo.Context) error {
	pg, err := api.svc.Get(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting page")
	}
	return ctx.JSON(http.StatusOK, pg)
}

func (api *pageApi) update(ctx echo.Context) error {
	var data page.UpdatePage
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdatePage")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	pg, err := api.svc.Update(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating page")
	}
	return ctx.JSON(http.StatusOK, pg)
}

func (api *pageApi) destroy(ctx echo.Context) error {
	if err := api.svc.Delete(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting page")
	}
	return ctx.NoContent(http.StatusNoContent)
}

package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/innocell/innocell/core/idea"
	"github.com/innocell/innocell/core/user"
)

type ideaApi struct {
	svc      idea.Service
	usrSvc   user.Service
	validate *validator.Validate
}

func registerIdeaAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc idea.Service, usrSvc user.Service, validate *validator.Validate) {
	api := ideaApi{svc: svc, usrSvc: usrSvc, validate: validate}

	ig := g.Group("/ideas", jwt)
	ig.GET("", api.query)
	ig.POST("", api.submit)
	ig.GET("/categories", api.categories)
	ig.GET("/:id", api.retrieve)
	ig.PUT("/:id", api.update)
	ig.DELETE("/:id", api.destroy)
	ig.POST("/:id/moderate", api.moderate, moderatorMiddleware())
}

func (api *ideaApi) submit(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	var data idea.NewIdea
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewIdea")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	created, err := api.svc.Submit(ctx.Request().Context(), usr, data)
	if err != nil {
		return errors.Wrap(err, "submitting idea")
	}
	return ctx.JSON(http.StatusCreated, created)
}

func (api *ideaApi) query(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	filter := new(idea.QueryFilter)
	if err = ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []idea.Idea{})
	}
	filter.Clean()
	ordering := new(Ordering)
	ordering.Bind(ctx)

	ideas, err := api.svc.Query(ctx.Request().Context(), usr, filter, ordering.Orderings, bindPagination(ctx))
	if err != nil {
		return errors.Wrap(err, "querying ideas")
	}
	if ideas == nil {
		ideas = []idea.Idea{}
	}
	return ctx.JSON(http.StatusOK, ideas)
}

func (api *ideaApi) categories(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, idea.Categories)
}

func (api *ideaApi) retrieve(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	found, err := api.svc.Get(ctx.Request().Context(), usr, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting idea")
	}
	return ctx.JSON(http.StatusOK, found)
}

func (api *ideaApi) update(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	orig, err := api.svc.Get(ctx.Request().Context(), usr, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting idea")
	}

	var data idea.UpdateIdea
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateIdea")
	}
	if err = data.Validate(orig, api.validate); err != nil {
		return err
	}

	updated, err := api.svc.Update(ctx.Request().Context(), usr, orig.ID, data)
	if err != nil {
		return errors.Wrap(err, "updating idea")
	}
	return ctx.JSON(http.StatusOK, updated)
}

func (api *ideaApi) moderate(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	var data idea.Moderation
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Moderation")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	moderated, err := api.svc.Moderate(ctx.Request().Context(), usr, ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "moderating idea")
	}
	return ctx.JSON(http.StatusOK, moderated)
}

func (api *ideaApi) destroy(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	if err = api.svc.Delete(ctx.Request().Context(), usr, ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting idea")
	}
	return ctx.NoContent(http.StatusNoContent)
}

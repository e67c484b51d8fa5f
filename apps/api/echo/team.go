package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/innocell/innocell/core"
	"github.com/innocell/innocell/core/team"
	"github.com/innocell/innocell/core/user"
)

type teamApi struct {
	svc      team.Service
	usrSvc   user.Service
	validate *validator.Validate
}

func registerTeamAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc team.Service, usrSvc user.Service, validate *validator.Validate) {
	api := teamApi{svc: svc, usrSvc: usrSvc, validate: validate}

	tg := g.Group("/teams", jwt)
	tg.GET("", api.query)
	tg.POST("", api.create)
	tg.POST("/join", api.join)
	tg.GET("/:id", api.retrieve)
	tg.PUT("/:id", api.update)
	tg.DELETE("/:id", api.destroy)
	tg.GET("/:id/members", api.members)
	tg.DELETE("/:id/members/:user_id", api.removeMember)
	tg.POST("/:id/leave", api.leave)
	tg.POST("/:id/regenerate-code", api.regenerateCode)
}

func (api *teamApi) create(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	var data team.NewTeam
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewTeam")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	t, err := api.svc.Create(ctx.Request().Context(), usr, data)
	if err != nil {
		return errors.Wrap(err, "creating team")
	}
	return ctx.JSON(http.StatusCreated, t)
}

func (api *teamApi) query(ctx echo.Context) error {
	filter := &team.QueryFilter{
		Search:  core.CleanString(ctx.QueryParam("search")),
		EventID: core.CleanString(ctx.QueryParam("event_id"), true /* lower */),
	}
	teams, err := api.svc.Query(ctx.Request().Context(), filter, bindPagination(ctx))
	if err != nil {
		return errors.Wrap(err, "querying teams")
	}
	// join codes are only shown on team details
	for i := range teams {
		teams[i].JoinCode = ""
	}
	if teams == nil {
		teams = []team.Team{}
	}
	return ctx.JSON(http.StatusOK, teams)
}

func (api *teamApi) retrieve(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	t, err := api.svc.Get(ctx.Request().Context(), usr, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting team")
	}
	return ctx.JSON(http.StatusOK, t)
}

func (api *teamApi) update(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	var data team.UpdateTeam
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateTeam")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	t, err := api.svc.Update(ctx.Request().Context(), usr, ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating team")
	}
	return ctx.JSON(http.StatusOK, t)
}

func (api *teamApi) join(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	var data team.JoinRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to JoinRequest")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	t, err := api.svc.Join(ctx.Request().Context(), usr, data.Code)
	if err != nil {
		return errors.Wrap(err, "joining team")
	}
	return ctx.JSON(http.StatusOK, t)
}

func (api *teamApi) leave(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	if err = api.svc.Leave(ctx.Request().Context(), usr, ctx.Param("id")); err != nil {
		return errors.Wrap(err, "leaving team")
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: "You have left the team."})
}

func (api *teamApi) members(ctx echo.Context) error {
	members, err := api.svc.Members(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "listing members")
	}
	if members == nil {
		members = []team.Member{}
	}
	return ctx.JSON(http.StatusOK, members)
}

func (api *teamApi) removeMember(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	if err = api.svc.RemoveMember(ctx.Request().Context(), usr, ctx.Param("id"), ctx.Param("user_id")); err != nil {
		return errors.Wrap(err, "removing member")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *teamApi) regenerateCode(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	t, err := api.svc.RegenerateCode(ctx.Request().Context(), usr, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "regenerating join code")
	}
	return ctx.JSON(http.StatusOK, t)
}

func (api *teamApi) destroy(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	if err = api.svc.Delete(ctx.Request().Context(), usr, ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting team")
	}
	return ctx.NoContent(http.StatusNoContent)
}

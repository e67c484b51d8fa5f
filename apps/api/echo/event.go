package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/innocell/innocell/core"
	"github.com/innocell/innocell/core/event"
	"github.com/innocell/innocell/core/user"
)

type eventApi struct {
	svc      event.Service
	usrSvc   user.Service
	validate *validator.Validate
}

func registerEventAPI(
	g *echo.Group,
	jwt, optJWT echo.MiddlewareFunc,
	svc event.Service,
	usrSvc user.Service,
	validate *validator.Validate,
) {
	api := eventApi{svc: svc, usrSvc: usrSvc, validate: validate}

	eg := g.Group("/events")

	// anonymous visitors see published events
	eg.GET("", api.query, optJWT)
	eg.GET("/:slug", api.retrieve, optJWT)

	ag := eg.Group("", jwt)
	ag.POST("/:slug/register", api.register)
	ag.POST("/:slug/cancel", api.cancel)
	ag.GET("/:slug/participation", api.myParticipation)

	// admin endpoints
	ag.POST("", api.create, adminMiddleware())
	ag.PUT("/:slug", api.update, adminMiddleware())
	ag.DELETE("/:slug", api.destroy, adminMiddleware())
	ag.GET("/:slug/participants", api.participants, adminMiddleware())
	ag.POST("/:slug/attendance", api.markAttendance, adminMiddleware())
}

func (api *eventApi) create(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	var data event.NewEvent
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewEvent")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	evt, err := api.svc.Create(ctx.Request().Context(), usr, data)
	if err != nil {
		return errors.Wrap(err, "creating event")
	}
	return ctx.JSON(http.StatusCreated, evt)
}

func (api *eventApi) query(ctx echo.Context) error {
	viewer, err := getViewer(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting viewer")
	}
	filter := &event.QueryFilter{
		Search:    ctx.QueryParam("search"),
		When:      ctx.QueryParam("when"),
		Published: boolParam(ctx, "published"),
		TeamEvent: boolParam(ctx, "team_event"),
	}
	filter.Clean()
	ordering := new(Ordering)
	ordering.Bind(ctx)

	events, err := api.svc.Query(ctx.Request().Context(), viewer, filter, ordering.Orderings, bindPagination(ctx))
	if err != nil {
		return errors.Wrap(err, "querying events")
	}
	if events == nil {
		events = []event.Event{}
	}
	return ctx.JSON(http.StatusOK, events)
}

func (api *eventApi) retrieve(ctx echo.Context) error {
	viewer, err := getViewer(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting viewer")
	}
	evt, err := api.svc.GetBySlug(ctx.Request().Context(), viewer, ctx.Param("slug"))
	if err != nil {
		return errors.Wrap(err, "getting event")
	}
	return ctx.JSON(http.StatusOK, evt)
}

func (api *eventApi) update(ctx echo.Context) error {
	var data event.UpdateEvent
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateEvent")
	}
	evt, err := api.svc.Update(ctx.Request().Context(), ctx.Param("slug"), data)
	if err != nil {
		return errors.Wrap(err, "updating event")
	}
	return ctx.JSON(http.StatusOK, evt)
}

func (api *eventApi) destroy(ctx echo.Context) error {
	if err := api.svc.Delete(ctx.Request().Context(), ctx.Param("slug")); err != nil {
		return errors.Wrap(err, "deleting event")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *eventApi) register(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	var data event.RegisterRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to RegisterRequest")
	}
	data.TeamID = core.CleanString(data.TeamID, true /* lower */)
	if err = api.validate.Struct(data); err != nil {
		return err
	}

	p, err := api.svc.Register(ctx.Request().Context(), usr, ctx.Param("slug"), data)
	if err != nil {
		return errors.Wrap(err, "registering to event")
	}
	return ctx.JSON(http.StatusCreated, p)
}

func (api *eventApi) cancel(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	if err = api.svc.Cancel(ctx.Request().Context(), usr, ctx.Param("slug")); err != nil {
		return errors.Wrap(err, "cancelling participation")
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: "Your registration has been cancelled."})
}

func (api *eventApi) myParticipation(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	reqCtx := ctx.Request().Context()
	evt, err := api.svc.GetBySlug(reqCtx, usr, ctx.Param("slug"))
	if err != nil {
		return errors.Wrap(err, "getting event")
	}
	p, err := api.svc.GetParticipation(reqCtx, evt.ID, usr.ID)
	if err != nil {
		return errors.Wrap(err, "getting participation")
	}
	return ctx.JSON(http.StatusOK, p)
}

func (api *eventApi) participants(ctx echo.Context) error {
	filter := event.ParticipationFilter{Attended: boolParam(ctx, "attended")}
	for _, st := range core.CleanStrings(ctx.QueryParams()["status"], true /* lower */) {
		filter.Statuses = append(filter.Statuses, event.ParticipationStatus(st))
	}

	parts, err := api.svc.Participants(ctx.Request().Context(), ctx.Param("slug"), filter)
	if err != nil {
		return errors.Wrap(err, "listing participants")
	}
	if parts == nil {
		parts = []event.Participation{}
	}
	return ctx.JSON(http.StatusOK, parts)
}

func (api *eventApi) markAttendance(ctx echo.Context) error {
	var data event.Attendance
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Attendance")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	n, err := api.svc.MarkAttendance(ctx.Request().Context(), ctx.Param("slug"), data)
	if err != nil {
		return errors.Wrap(err, "marking attendance")
	}
	return ctx.JSON(http.StatusOK, AttendanceResponse{Updated: n})
}

type AttendanceResponse struct {
	Updated int `json:"updated"`
}

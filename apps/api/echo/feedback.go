package echoapi

import (
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/innocell/innocell/core"
	"github.com/innocell/innocell/core/feedback"
	"github.com/innocell/innocell/core/user"
)

type feedbackApi struct {
	svc      feedback.Service
	usrSvc   user.Service
	validate *validator.Validate
}

func registerFeedbackAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc feedback.Service, usrSvc user.Service, validate *validator.Validate) {
	api := feedbackApi{svc: svc, usrSvc: usrSvc, validate: validate}

	fg := g.Group("/feedback", jwt)
	fg.POST("", api.submit)
	fg.GET("", api.query, adminMiddleware())
	fg.GET("/summary", api.summary, adminMiddleware())
	fg.DELETE("/:id", api.destroy, adminMiddleware())
}

func (api *feedbackApi) submit(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	var data feedback.NewFeedback
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewFeedback")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	fb, err := api.svc.Submit(ctx.Request().Context(), usr, data)
	if err != nil {
		return errors.Wrap(err, "submitting feedback")
	}
	return ctx.JSON(http.StatusCreated, fb)
}

func (api *feedbackApi) query(ctx echo.Context) error {
	filter := &feedback.QueryFilter{
		EventID: ctx.QueryParam("event_id"),
		UserID:  ctx.QueryParam("user_id"),
	}
	if v, err := strconv.Atoi(ctx.QueryParam("min_rating")); err == nil {
		filter.MinRating = v
	}
	if v, err := strconv.Atoi(ctx.QueryParam("max_rating")); err == nil {
		filter.MaxRating = v
	}
	if general := boolParam(ctx, "general"); general != nil {
		filter.General = *general
	}
	filter.Clean()

	items, err := api.svc.Query(ctx.Request().Context(), filter, bindPagination(ctx))
	if err != nil {
		return errors.Wrap(err, "querying feedback")
	}
	if items == nil {
		items = []feedback.Feedback{}
	}
	return ctx.JSON(http.StatusOK, items)
}

func (api *feedbackApi) summary(ctx echo.Context) error {
	eventID := core.CleanString(ctx.QueryParam("event_id"), true /* lower */)
	sum, err := api.svc.Summary(ctx.Request().Context(), eventID)
	if err != nil {
		return errors.Wrap(err, "summarizing feedback")
	}
	return ctx.JSON(http.StatusOK, sum)
}

func (api *feedbackApi) destroy(ctx echo.Context) error {
	if err := api.svc.Delete(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting feedback")
	}
	return ctx.NoContent(http.StatusNoContent)
}

package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/innocell/innocell/core"
	"github.com/innocell/innocell/core/setting"
)

type settingApi struct {
	svc setting.Service
}

func registerSettingAPI(g *echo.Group, jwt, optJWT echo.MiddlewareFunc, svc setting.Service) {
	api := settingApi{svc: svc}

	sg := g.Group("/settings")
	sg.GET("", api.retrieve, optJWT)

	ag := sg.Group("", jwt, adminMiddleware())
	ag.PUT("", api.update)
	ag.POST("/maintenance", api.maintenance)
}

// retrieve returns every setting to admins and the public ones to everybody else.
func (api *settingApi) retrieve(ctx echo.Context) error {
	settings, err := api.svc.All(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "reading settings")
	}
	if claims, err := getContextClaims(ctx); err == nil && claims.IsAdmin {
		return ctx.JSON(http.StatusOK, settings)
	}
	return ctx.JSON(http.StatusOK, settings.Public())
}

func (api *settingApi) update(ctx echo.Context) error {
	var data map[string]string
	if err := ctx.Bind(&data); err != nil {
		return core.NewValidationError(errors.New("settings must be an object of strings"))
	}
	settings, err := api.svc.Update(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "updating settings")
	}
	return ctx.JSON(http.StatusOK, settings)
}

func (api *settingApi) maintenance(ctx echo.Context) error {
	var data MaintenanceRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to MaintenanceRequest")
	}
	if data.On == nil {
		return core.NewFieldError("on", "this field is required")
	}
	if err := api.svc.SetMaintenance(ctx.Request().Context(), *data.On, core.CleanString(data.Message)); err != nil {
		return errors.Wrap(err, "setting maintenance mode")
	}
	return api.retrieve(ctx)
}

type MaintenanceRequest struct {
	On      *bool  `json:"on"`
	Message string `json:"message"`
}

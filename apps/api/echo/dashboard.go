package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/innocell/innocell/core/dashboard"
	"github.com/innocell/innocell/core/user"
)

type dashboardApi struct {
	svc    dashboard.Service
	usrSvc user.Service
}

func registerDashboardAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc dashboard.Service, usrSvc user.Service) {
	api := dashboardApi{svc: svc, usrSvc: usrSvc}

	dg := g.Group("/dashboard", jwt)
	dg.GET("", api.admin, adminMiddleware())
	dg.GET("/me", api.personal)
}

func (api *dashboardApi) admin(ctx echo.Context) error {
	stats, err := api.svc.Admin(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "computing admin dashboard")
	}
	return ctx.JSON(http.StatusOK, stats)
}

func (api *dashboardApi) personal(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	stats, err := api.svc.Personal(ctx.Request().Context(), usr)
	if err != nil {
		return errors.Wrap(err, "computing dashboard")
	}
	return ctx.JSON(http.StatusOK, stats)
}

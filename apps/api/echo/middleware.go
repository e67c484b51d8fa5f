package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/innocell/innocell/core/setting"
)

func adminMiddleware(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return err
			}
			if claims.IsAdmin && contextHasAnyRole(ctx, roles) {
				return next(ctx)
			}
			return errHttpForbidden
		}
	}
}

// moderatorMiddleware lets admins and mentors through.
func moderatorMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return err
			}
			if claims.IsAdmin || claims.IsMentor {
				return next(ctx)
			}
			return errHttpForbidden
		}
	}
}

// routes reachable while the site is in maintenance.
var maintenanceAllowed = map[string]bool{
	http.MethodPost + " /v1/users/login":      true,
	http.MethodGet + " /v1/settings":          true,
	http.MethodPost + " /v1/payments/webhook": true,
}

// maintenanceMiddleware answers 503 to non-admin requests while maintenance mode is on.
// Page views get the maintenance page, API calls a JSON error.
func maintenanceMiddleware(svc setting.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			on, msg := svc.IsMaintenance(ctx.Request().Context())
			if !on || maintenanceAllowed[ctx.Request().Method+" "+ctx.Path()] {
				return next(ctx)
			}
			if claims, ok := parseToken(ctx.Request().Header.Get(echo.HeaderAuthorization)); ok && claims.IsAdmin {
				return next(ctx)
			}

			if ctx.Path() == pageViewPath {
				settings, err := svc.All(ctx.Request().Context())
				if err != nil {
					return err
				}
				return ctx.Render(http.StatusServiceUnavailable, maintenanceTemplate, maintenanceView{
					SiteName: settings.SiteName(),
					Message:  msg,
				})
			}
			return ctx.JSON(http.StatusServiceUnavailable, echo.Map{"error": msg})
		}
	}
}

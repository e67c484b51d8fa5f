package echoapi

import (
	"io"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/innocell/innocell/core"
	"github.com/innocell/innocell/core/payment"
	"github.com/innocell/innocell/core/user"
)

const (
	webhookSignatureHeader = "X-Razorpay-Signature"
	maxWebhookBody         = 1 << 20
)

type paymentApi struct {
	svc      payment.Service
	usrSvc   user.Service
	validate *validator.Validate
}

func registerPaymentAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc payment.Service, usrSvc user.Service, validate *validator.Validate) {
	api := paymentApi{svc: svc, usrSvc: usrSvc, validate: validate}

	pg := g.Group("/payments")
	pg.POST("/webhook", api.webhook)

	ag := pg.Group("", jwt)
	ag.GET("", api.query)
	ag.POST("/orders", api.createOrder)
	ag.POST("/verify", api.verify)
}

func (api *paymentApi) createOrder(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	var data OrderRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to OrderRequest")
	}
	data.EventSlug = core.CleanString(data.EventSlug, true /* lower */)
	if err = api.validate.Struct(data); err != nil {
		return err
	}

	checkout, err := api.svc.CreateOrder(ctx.Request().Context(), usr, data.EventSlug)
	if err != nil {
		return errors.Wrap(err, "creating order")
	}
	return ctx.JSON(http.StatusCreated, checkout)
}

func (api *paymentApi) verify(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	var data payment.VerifyRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to VerifyRequest")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	pmt, err := api.svc.Verify(ctx.Request().Context(), usr, data)
	if err != nil {
		return errors.Wrap(err, "verifying payment")
	}
	return ctx.JSON(http.StatusOK, pmt)
}

// webhook receives provider notifications, authenticated by their body signature.
func (api *paymentApi) webhook(ctx echo.Context) error {
	body, err := io.ReadAll(io.LimitReader(ctx.Request().Body, maxWebhookBody))
	if err != nil {
		return errors.Wrap(err, "reading webhook body")
	}
	signature := ctx.Request().Header.Get(webhookSignatureHeader)
	if err = api.svc.HandleWebhook(ctx.Request().Context(), body, signature); err != nil {
		return errors.Wrap(err, "handling webhook")
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: "ok"})
}

func (api *paymentApi) query(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	filter := &payment.QueryFilter{
		UserID:   core.CleanString(ctx.QueryParam("user_id"), true /* lower */),
		EventID:  core.CleanString(ctx.QueryParam("event_id"), true /* lower */),
		Statuses: core.CleanStrings(ctx.QueryParams()["status"], true /* lower */),
	}

	payments, err := api.svc.Query(ctx.Request().Context(), usr, filter, bindPagination(ctx))
	if err != nil {
		return errors.Wrap(err, "querying payments")
	}
	if payments == nil {
		payments = []payment.Payment{}
	}
	return ctx.JSON(http.StatusOK, payments)
}

type OrderRequest struct {
	EventSlug string `json:"event_slug" validate:"required,slug"`
}

package paymentsvc

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/pkg/errors"
	"github.com/sendgrid/rest"

	"github.com/innocell/innocell/core"
	"github.com/innocell/innocell/core/payment"
)

const (
	defaultRazorpayURL = "https://api.razorpay.com"
	ordersEndpoint     = "/v1/orders"
)

var sendFunc = rest.SendWithContext // mockable

type razorpayGateway struct {
	baseURL string
	auth    string
	logger  core.Logger
}

var _ payment.Gateway = (*razorpayGateway)(nil)

func NewRazorpayGateway(conf *core.Config, logger core.Logger) payment.Gateway {
	baseURL := strings.TrimSuffix(conf.Payment.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultRazorpayURL
	}
	creds := conf.Payment.KeyID + ":" + conf.Payment.KeySecret
	return &razorpayGateway{
		baseURL: baseURL,
		auth:    "Basic " + base64.StdEncoding.EncodeToString([]byte(creds)),
		logger:  logger,
	}
}

func (gw *razorpayGateway) Name() string { return "razorpay" }

type (
	orderBody struct {
		Amount   int64             `json:"amount"`
		Currency string            `json:"currency"`
		Receipt  string            `json:"receipt,omitempty"`
		Notes    map[string]string `json:"notes,omitempty"`
	}

	orderResponse struct {
		ID       string `json:"id"`
		Amount   int64  `json:"amount"`
		Currency string `json:"currency"`
		Status   string `json:"status"`
	}

	errorResponse struct {
		Error struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	}
)

func (gw *razorpayGateway) CreateOrder(ctx context.Context, req payment.OrderRequest) (payment.Order, error) {
	body, err := json.Marshal(orderBody{
		Amount:   req.Amount,
		Currency: req.Currency,
		Receipt:  req.Receipt,
		Notes:    req.Notes,
	})
	if err != nil {
		return payment.Order{}, errors.Wrap(err, "encoding order")
	}

	res, err := sendFunc(ctx, rest.Request{
		Method:  rest.Post,
		BaseURL: gw.baseURL + ordersEndpoint,
		Headers: map[string]string{
			"Authorization": gw.auth,
			"Content-Type":  "application/json",
		},
		Body: body,
	})
	if err != nil {
		return payment.Order{}, errors.Wrap(err, "sending order request")
	}
	if res.StatusCode != http.StatusOK {
		var eRes errorResponse
		_ = json.Unmarshal([]byte(res.Body), &eRes)
		gw.logger.Error(fmt.Sprintf("creating razorpay order - status: %d - body: %s", res.StatusCode, res.Body))
		return payment.Order{}, errors.Errorf("razorpay: %d %s", res.StatusCode, eRes.Error.Description)
	}

	var order orderResponse
	if err = json.Unmarshal([]byte(res.Body), &order); err != nil {
		return payment.Order{}, errors.Wrap(err, "decoding order")
	}
	return payment.Order{ID: order.ID, Amount: order.Amount, Currency: order.Currency}, nil
}

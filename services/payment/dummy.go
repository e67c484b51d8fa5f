package paymentsvc

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/innocell/innocell/core/payment"
)

// dummyGateway accepts every order locally. Checkouts are completed by signing
// "order_id|payment_id" with the configured key secret.
type dummyGateway struct{}

var _ payment.Gateway = dummyGateway{}

func NewDummyGateway() payment.Gateway {
	return dummyGateway{}
}

func (dummyGateway) Name() string { return "dummy" }

func (dummyGateway) CreateOrder(_ context.Context, req payment.OrderRequest) (payment.Order, error) {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	return payment.Order{ID: "order_" + id[:14], Amount: req.Amount, Currency: req.Currency}, nil
}

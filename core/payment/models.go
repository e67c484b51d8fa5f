package payment

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/innocell/innocell/core"
)

type Status string

const (
	StatusCreated Status = "created"
	StatusPaid    Status = "paid"
	StatusFailed  Status = "failed"
)

type Payment struct {
	ID                string    `json:"id"`
	UserID            string    `json:"user_id"`
	EventID           string    `json:"event_id"`
	Amount            int64     `json:"amount"` // minor units
	Currency          string    `json:"currency"`
	Provider          string    `json:"provider"`
	OrderID           string    `json:"order_id"`
	ProviderPaymentID string    `json:"provider_payment_id,omitempty"`
	Status            Status    `json:"status"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// Checkout is what a client needs to open the provider's checkout for a payment.
type Checkout struct {
	Payment
	KeyID string `json:"key_id"`
}

// Order is a payment order created at the provider.
type Order struct {
	ID       string
	Amount   int64
	Currency string
}

type OrderRequest struct {
	Amount   int64
	Currency string
	Receipt  string
	Notes    map[string]string
}

type VerifyRequest struct {
	OrderID   string `json:"razorpay_order_id" validate:"required"`
	PaymentID string `json:"razorpay_payment_id" validate:"required"`
	Signature string `json:"razorpay_signature" validate:"required,hexadecimal"`
}

func (vr *VerifyRequest) Validate(validate *validator.Validate) error {
	vr.OrderID = core.CleanString(vr.OrderID)
	vr.PaymentID = core.CleanString(vr.PaymentID)
	vr.Signature = core.CleanString(vr.Signature, true /* lower */)
	return validate.Struct(vr)
}

// webhookEvent is the subset of a provider webhook payload we act on.
type webhookEvent struct {
	Event   string `json:"event"`
	Payload struct {
		Payment struct {
			Entity struct {
				ID      string `json:"id"`
				OrderID string `json:"order_id"`
				Status  string `json:"status"`
			} `json:"entity"`
		} `json:"payment"`
	} `json:"payload"`
}

const (
	webhookCaptured = "payment.captured"
	webhookFailed   = "payment.failed"
)

type QueryFilter struct {
	UserID   string   `query:"user_id"`
	EventID  string   `query:"event_id"`
	Statuses []string `query:"status"`
}

func (qf *QueryFilter) Clean() {
	qf.UserID = core.CleanString(qf.UserID, true /* lower */)
	qf.EventID = core.CleanString(qf.EventID, true /* lower */)
	qf.Statuses = core.CleanStrings(qf.Statuses, true /* lower */)
}

type GetFilter struct {
	ID      string
	OrderID string
}

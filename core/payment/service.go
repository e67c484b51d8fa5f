package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"net/mail"

	"github.com/pkg/errors"

	"github.com/innocell/innocell/core"
	"github.com/innocell/innocell/core/event"
	"github.com/innocell/innocell/core/user"
)

var (
	// errors
	ErrNotFound         = core.NewNotFoundError("payment")
	ErrInvalidSignature = core.NewValidationError(errors.New("invalid payment signature"))
	ErrNothingToPay     = core.NewValidationError(errors.New("no pending payment for this event"))
	ErrAlreadyPaid      = core.NewValidationError(errors.New("this event is already paid for"))

	errNotOwner = core.NewPermissionError("this payment belongs to another user")
)

type (
	// Gateway creates orders at a payment provider.
	Gateway interface {
		Name() string
		CreateOrder(ctx context.Context, req OrderRequest) (Order, error)
	}

	Repository interface {
		CreatePayment(ctx context.Context, p Payment) (Payment, error)
		GetPayment(ctx context.Context, filter GetFilter) (Payment, error)
		QueryPayments(ctx context.Context, filter *QueryFilter, page core.Pagination) ([]Payment, error)
		UpdatePayment(ctx context.Context, p Payment) (Payment, error)
		// HasPaid reports whether userID has a paid payment for eventID.
		HasPaid(ctx context.Context, eventID, userID string) (bool, error)
		// SumPaid returns the total amount of paid payments.
		SumPaid(ctx context.Context) (int64, error)
	}

	Service interface {
		CreateOrder(ctx context.Context, usr user.User, eventSlug string) (Checkout, error)
		Verify(ctx context.Context, usr user.User, req VerifyRequest) (Payment, error)
		HandleWebhook(ctx context.Context, body []byte, signature string) error
		Query(ctx context.Context, viewer user.User, filter *QueryFilter, page core.Pagination) ([]Payment, error)
		TotalPaid(ctx context.Context) (int64, error)
	}

	service struct {
		repo    Repository
		gateway Gateway
		evtSvc  event.Service
		usrSvc  user.Service
		mailSvc core.EmailService
		conf    core.PaymentConfig
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, gateway Gateway, evtSvc event.Service, usrSvc user.Service, mailSvc core.EmailService, conf core.PaymentConfig) Service {
	return &service{repo: repo, gateway: gateway, evtSvc: evtSvc, usrSvc: usrSvc, mailSvc: mailSvc, conf: conf}
}

// CreateOrder opens a provider order for the fee of an event usr registered to.
// An open order for the same event is reused.
func (svc *service) CreateOrder(ctx context.Context, usr user.User, eventSlug string) (Checkout, error) {
	evt, err := svc.evtSvc.GetBySlug(ctx, usr, eventSlug)
	if err != nil {
		return Checkout{}, err
	}
	p, err := svc.evtSvc.GetParticipation(ctx, evt.ID, usr.ID)
	if err != nil {
		if core.IsNotFound(err) {
			return Checkout{}, ErrNothingToPay
		}
		return Checkout{}, err
	}
	if !p.Status.Active() || !evt.IsPaid() {
		return Checkout{}, ErrNothingToPay
	}
	paid, err := svc.repo.HasPaid(ctx, evt.ID, usr.ID)
	if err != nil {
		return Checkout{}, errors.Wrap(err, "checking paid payments")
	}
	if paid {
		if _, err = svc.evtSvc.ConfirmPayment(ctx, evt.ID, usr.ID); err != nil {
			return Checkout{}, errors.Wrap(err, "confirming participation")
		}
		return Checkout{}, ErrAlreadyPaid
	}
	if p.Status != event.StatusPendingPayment {
		return Checkout{}, ErrNothingToPay
	}

	open, err := svc.repo.QueryPayments(ctx, &QueryFilter{
		UserID:   usr.ID,
		EventID:  evt.ID,
		Statuses: []string{string(StatusCreated)},
	}, core.Pagination{Limit: 1})
	if err != nil {
		return Checkout{}, errors.Wrap(err, "querying open payments")
	}
	for _, pmt := range open {
		if pmt.Amount == evt.Fee {
			return Checkout{Payment: pmt, KeyID: svc.conf.KeyID}, nil
		}
	}

	order, err := svc.gateway.CreateOrder(ctx, OrderRequest{
		Amount:   evt.Fee,
		Currency: svc.conf.Currency,
		Receipt:  p.ID,
		Notes:    map[string]string{"event": evt.Slug, "user": usr.ID},
	})
	if err != nil {
		return Checkout{}, errors.Wrap(err, "creating provider order")
	}

	now := core.Now()
	pmt, err := svc.repo.CreatePayment(ctx, Payment{
		UserID:    usr.ID,
		EventID:   evt.ID,
		Amount:    order.Amount,
		Currency:  order.Currency,
		Provider:  svc.gateway.Name(),
		OrderID:   order.ID,
		Status:    StatusCreated,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		return Checkout{}, err
	}
	return Checkout{Payment: pmt, KeyID: svc.conf.KeyID}, nil
}

func (svc *service) Verify(ctx context.Context, usr user.User, req VerifyRequest) (Payment, error) {
	pmt, err := svc.repo.GetPayment(ctx, GetFilter{OrderID: req.OrderID})
	if err != nil {
		return Payment{}, err
	}
	if pmt.UserID != usr.ID {
		return Payment{}, errNotOwner
	}
	if !validSignature(svc.conf.KeySecret, []byte(req.OrderID+"|"+req.PaymentID), req.Signature) {
		return Payment{}, ErrInvalidSignature
	}
	return svc.markPaid(ctx, pmt, req.PaymentID)
}

// markPaid confirms the participation, records a captured payment and mails a receipt.
// The payment is only saved as paid once the participation holds a seat.
// Already paid payments are returned unchanged.
func (svc *service) markPaid(ctx context.Context, pmt Payment, providerPaymentID string) (Payment, error) {
	if pmt.Status == StatusPaid {
		return pmt, nil
	}
	if _, err := svc.evtSvc.ConfirmPayment(ctx, pmt.EventID, pmt.UserID); err != nil {
		return Payment{}, errors.Wrap(err, "confirming participation")
	}
	pmt.Status = StatusPaid
	pmt.ProviderPaymentID = providerPaymentID
	pmt.UpdatedAt = core.Now()
	pmt, err := svc.repo.UpdatePayment(ctx, pmt)
	if err != nil {
		return Payment{}, errors.Wrap(err, "updating payment")
	}

	usr, err := svc.usrSvc.GetByID(ctx, pmt.UserID)
	if err != nil {
		return Payment{}, errors.Wrap(err, "getting payer")
	}
	evt, err := svc.evtSvc.GetByID(ctx, pmt.EventID)
	if err != nil {
		return Payment{}, errors.Wrap(err, "getting event")
	}
	if usr.Email != "" {
		svc.mailSvc.SendMessages(&core.EmailMessage{
			To:           []mail.Address{{Name: usr.Name, Address: usr.Email}},
			Subject:      "Payment receipt: " + evt.Title,
			TemplateName: "payment_receipt",
			TemplateData: map[string]interface{}{
				"Name":       usr.Name,
				"Amount":     FormatAmount(pmt.Amount),
				"Currency":   pmt.Currency,
				"EventTitle": evt.Title,
				"OrderID":    pmt.OrderID,
				"PaymentID":  pmt.ProviderPaymentID,
			},
		})
	}
	return pmt, nil
}

// HandleWebhook applies a provider notification. Unknown events and orders are ignored.
func (svc *service) HandleWebhook(ctx context.Context, body []byte, signature string) error {
	if !validSignature(svc.conf.WebhookSecret, body, core.CleanString(signature, true /* lower */)) {
		return ErrInvalidSignature
	}
	var evt webhookEvent
	if err := json.Unmarshal(body, &evt); err != nil {
		return core.NewValidationError(errors.Wrap(err, "decoding webhook"))
	}
	entity := evt.Payload.Payment.Entity
	if evt.Event != webhookCaptured && evt.Event != webhookFailed {
		return nil
	}

	pmt, err := svc.repo.GetPayment(ctx, GetFilter{OrderID: entity.OrderID})
	if err != nil {
		if core.IsNotFound(err) {
			return nil
		}
		return err
	}

	switch evt.Event {
	case webhookCaptured:
		_, err = svc.markPaid(ctx, pmt, entity.ID)
		return err
	default:
		if pmt.Status == StatusPaid {
			return nil
		}
		pmt.Status = StatusFailed
		pmt.ProviderPaymentID = entity.ID
		pmt.UpdatedAt = core.Now()
		_, err = svc.repo.UpdatePayment(ctx, pmt)
		return err
	}
}

func (svc *service) Query(ctx context.Context, viewer user.User, filter *QueryFilter, page core.Pagination) ([]Payment, error) {
	if filter == nil {
		filter = new(QueryFilter)
	}
	if !viewer.IsAdmin() {
		filter.UserID = viewer.ID
	}
	return svc.repo.QueryPayments(ctx, filter, page)
}

func (svc *service) TotalPaid(ctx context.Context) (int64, error) {
	return svc.repo.SumPaid(ctx)
}

// FormatAmount renders minor units as a decimal amount, e.g. 25050 -> "250.50".
func FormatAmount(amount int64) string {
	sign := ""
	if amount < 0 {
		sign, amount = "-", -amount
	}
	return fmt.Sprintf("%s%d.%02d", sign, amount/100, amount%100)
}

package sqlxrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/innocell/innocell/core"
	"github.com/innocell/innocell/core/payment"
)

const paymentColumns = `id, user_id, event_id, amount, currency, provider, order_id, provider_payment_id, status,
	created_at, updated_at`

type paymentRow struct {
	ID                string      `db:"id"`
	UserID            string      `db:"user_id"`
	EventID           string      `db:"event_id"`
	Amount            int64       `db:"amount"`
	Currency          string      `db:"currency"`
	Provider          string      `db:"provider"`
	OrderID           string      `db:"order_id"`
	ProviderPaymentID null.String `db:"provider_payment_id"`
	Status            string      `db:"status"`
	CreatedAt         time.Time   `db:"created_at"`
	UpdatedAt         time.Time   `db:"updated_at"`
}

func toPaymentRow(p payment.Payment) paymentRow {
	return paymentRow{
		ID:                p.ID,
		UserID:            p.UserID,
		EventID:           p.EventID,
		Amount:            p.Amount,
		Currency:          p.Currency,
		Provider:          p.Provider,
		OrderID:           p.OrderID,
		ProviderPaymentID: null.NewString(p.ProviderPaymentID, p.ProviderPaymentID != ""),
		Status:            string(p.Status),
		CreatedAt:         p.CreatedAt.UTC(),
		UpdatedAt:         p.UpdatedAt.UTC(),
	}
}

func (r paymentRow) payment() payment.Payment {
	return payment.Payment{
		ID:                r.ID,
		UserID:            r.UserID,
		EventID:           r.EventID,
		Amount:            r.Amount,
		Currency:          r.Currency,
		Provider:          r.Provider,
		OrderID:           r.OrderID,
		ProviderPaymentID: r.ProviderPaymentID.String,
		Status:            payment.Status(r.Status),
		CreatedAt:         r.CreatedAt,
		UpdatedAt:         r.UpdatedAt,
	}
}

type paymentRepository struct {
	db core.DB
}

var _ payment.Repository = (*paymentRepository)(nil)

func NewPaymentRepository(db core.DB) payment.Repository {
	return &paymentRepository{db: db}
}

func (repo *paymentRepository) CreatePayment(ctx context.Context, p payment.Payment) (payment.Payment, error) {
	p.ID = uuid.New().String()
	q := `INSERT INTO payment (` + paymentColumns + `) VALUES (
		:id, :user_id, :event_id, :amount, :currency, :provider, :order_id, :provider_payment_id, :status,
		:created_at, :updated_at)`
	if _, err := namedExec(ctx, repo.db, q, toPaymentRow(p)); err != nil {
		return payment.Payment{}, errors.Wrap(err, "inserting payment")
	}
	return p, nil
}

func (repo *paymentRepository) GetPayment(ctx context.Context, filter payment.GetFilter) (payment.Payment, error) {
	var w where
	switch {
	case filter.ID != "":
		if _, err := uuid.Parse(filter.ID); err != nil {
			return payment.Payment{}, payment.ErrNotFound
		}
		w.add("id = ?", filter.ID)
	case filter.OrderID != "":
		w.add("order_id = ?", filter.OrderID)
	default:
		return payment.Payment{}, payment.ErrNotFound
	}

	var r paymentRow
	if err := repo.db.GetContext(ctx, &r, `SELECT `+paymentColumns+` FROM payment`+w.String(), w.args...); err != nil {
		return payment.Payment{}, trapNoRowsErr(err, payment.ErrNotFound, "getting payment")
	}
	return r.payment(), nil
}

func (repo *paymentRepository) QueryPayments(ctx context.Context, filter *payment.QueryFilter, page core.Pagination) ([]payment.Payment, error) {
	var w where
	if filter != nil {
		if filter.UserID != "" {
			w.add("user_id = ?", filter.UserID)
		}
		if filter.EventID != "" {
			w.add("event_id = ?", filter.EventID)
		}
		if len(filter.Statuses) > 0 {
			w.add("status = ANY(?)", pq.Array(filter.Statuses))
		}
	}
	var rows []paymentRow
	q := `SELECT ` + paymentColumns + ` FROM payment` + w.String() + ` ORDER BY created_at DESC, id` + w.limit(page)
	if err := repo.db.SelectContext(ctx, &rows, q, w.args...); err != nil {
		return nil, errors.Wrap(err, "querying payments")
	}
	pmts := make([]payment.Payment, 0, len(rows))
	for _, r := range rows {
		pmts = append(pmts, r.payment())
	}
	return pmts, nil
}

func (repo *paymentRepository) UpdatePayment(ctx context.Context, p payment.Payment) (payment.Payment, error) {
	q := `UPDATE payment SET provider_payment_id = :provider_payment_id, status = :status, updated_at = :updated_at
		WHERE id = :id`
	res, err := namedExec(ctx, repo.db, q, toPaymentRow(p))
	if err != nil {
		return payment.Payment{}, errors.Wrap(err, "updating payment")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return payment.Payment{}, payment.ErrNotFound
	}
	return p, nil
}

func (repo *paymentRepository) HasPaid(ctx context.Context, eventID, userID string) (bool, error) {
	var paid bool
	q := `SELECT EXISTS (SELECT 1 FROM payment WHERE event_id = $1 AND user_id = $2 AND status = $3)`
	err := repo.db.GetContext(ctx, &paid, q, eventID, userID, string(payment.StatusPaid))
	return paid, errors.Wrap(err, "checking paid payments")
}

func (repo *paymentRepository) SumPaid(ctx context.Context) (int64, error) {
	var total int64
	err := repo.db.GetContext(ctx, &total, `SELECT COALESCE(SUM(amount), 0) FROM payment WHERE status = $1`, string(payment.StatusPaid))
	return total, errors.Wrap(err, "summing payments")
}

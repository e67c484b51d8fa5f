package inmemdb

import (
	"context"
	"sort"

	"github.com/innocell/innocell/core"
	"github.com/innocell/innocell/core/payment"
)

type paymentRepository struct {
	db *DB
}

var _ payment.Repository = (*paymentRepository)(nil)

func NewPaymentRepository(db *DB) payment.Repository {
	return &paymentRepository{db: db}
}

func (repo *paymentRepository) CreatePayment(_ context.Context, p payment.Payment) (payment.Payment, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	p.ID = newID()
	repo.db.payments[p.ID] = &p
	return p, nil
}

func (repo *paymentRepository) GetPayment(_ context.Context, filter payment.GetFilter) (payment.Payment, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if filter.ID != "" {
		if p, ok := repo.db.payments[filter.ID]; ok {
			return *p, nil
		}
		return payment.Payment{}, payment.ErrNotFound
	}
	for _, p := range repo.db.payments {
		if filter.OrderID != "" && p.OrderID == filter.OrderID {
			return *p, nil
		}
	}
	return payment.Payment{}, payment.ErrNotFound
}

func (repo *paymentRepository) QueryPayments(_ context.Context, filter *payment.QueryFilter, page core.Pagination) ([]payment.Payment, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	pmts := make([]payment.Payment, 0)
	for _, p := range repo.db.payments {
		if filter != nil {
			if filter.UserID != "" && p.UserID != filter.UserID {
				continue
			}
			if filter.EventID != "" && p.EventID != filter.EventID {
				continue
			}
			if len(filter.Statuses) > 0 && !core.StringInSlice(string(p.Status), filter.Statuses) {
				continue
			}
		}
		pmts = append(pmts, *p)
	}
	sort.SliceStable(pmts, func(i, j int) bool {
		if !pmts[i].CreatedAt.Equal(pmts[j].CreatedAt) {
			return pmts[i].CreatedAt.After(pmts[j].CreatedAt)
		}
		return pmts[i].ID < pmts[j].ID
	})
	return paginate(pmts, page), nil
}

func (repo *paymentRepository) UpdatePayment(_ context.Context, p payment.Payment) (payment.Payment, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.payments[p.ID]; !ok {
		return payment.Payment{}, payment.ErrNotFound
	}
	repo.db.payments[p.ID] = &p
	return p, nil
}

func (repo *paymentRepository) HasPaid(_ context.Context, eventID, userID string) (bool, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	for _, p := range repo.db.payments {
		if p.EventID == eventID && p.UserID == userID && p.Status == payment.StatusPaid {
			return true, nil
		}
	}
	return false, nil
}

func (repo *paymentRepository) SumPaid(_ context.Context) (int64, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	var total int64
	for _, p := range repo.db.payments {
		if p.Status == payment.StatusPaid {
			total += p.Amount
		}
	}
	return total, nil
}

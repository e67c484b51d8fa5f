package inmemdb

import (
	"context"
	"time"

	"github.com/innocell/innocell/core/setting"
)

type settingRepository struct {
	db *DB
}

var _ setting.Repository = (*settingRepository)(nil)

func NewSettingRepository(db *DB) setting.Repository {
	return &settingRepository{db: db}
}

func (repo *settingRepository) AllSettings(_ context.Context) (setting.Settings, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	vals := make(setting.Settings, len(repo.db.settings))
	for k, v := range repo.db.settings {
		vals[k] = v
	}
	return vals, nil
}

func (repo *settingRepository) UpsertSettings(_ context.Context, values setting.Settings, _ time.Time) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	for k, v := range values {
		repo.db.settings[k] = v
	}
	return nil
}

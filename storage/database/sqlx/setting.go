package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/innocell/innocell/core"
	"github.com/innocell/innocell/core/setting"
)

type settingRepository struct {
	db core.DB
}

var _ setting.Repository = (*settingRepository)(nil)

func NewSettingRepository(db core.DB) setting.Repository {
	return &settingRepository{db: db}
}

func (repo *settingRepository) AllSettings(ctx context.Context) (setting.Settings, error) {
	var rows []struct {
		Key   string `db:"key"`
		Value string `db:"value"`
	}
	if err := repo.db.SelectContext(ctx, &rows, `SELECT key, value FROM setting`); err != nil {
		return nil, errors.Wrap(err, "querying settings")
	}
	vals := make(setting.Settings, len(rows))
	for _, r := range rows {
		vals[r.Key] = r.Value
	}
	return vals, nil
}

func (repo *settingRepository) UpsertSettings(ctx context.Context, values setting.Settings, at time.Time) error {
	return withTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		q := `INSERT INTO setting (key, value, updated_at) VALUES ($1, $2, $3)
			ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`
		for k, v := range values {
			if _, err := tx.ExecContext(ctx, q, k, v, at.UTC()); err != nil {
				return errors.Wrapf(err, "saving setting %q", k)
			}
		}
		return nil
	})
}

package cache

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/innocell/innocell/core"
	"github.com/innocell/innocell/core/setting"
)

const (
	settingsKey        = "innocell:settings"
	defaultSettingsTTL = 5 * time.Minute
)

// Connect returns a redis client for conf, or nil when no redis address is configured.
func Connect(ctx context.Context, conf *core.Config) (*redis.Client, error) {
	if conf.Redis.Addr == "" {
		return nil, nil
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     conf.Redis.Addr,
		Password: conf.Redis.Password,
		DB:       conf.Redis.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, errors.Wrap(err, "connecting to redis")
	}
	return rdb, nil
}

// SettingsCache keeps the site settings in a redis hash.
type SettingsCache struct {
	rdb *redis.Client
	ttl time.Duration
}

var _ setting.Cache = (*SettingsCache)(nil)

func NewSettingsCache(rdb *redis.Client, ttl time.Duration) *SettingsCache {
	if ttl <= 0 {
		ttl = defaultSettingsTTL
	}
	return &SettingsCache{rdb: rdb, ttl: ttl}
}

func (c *SettingsCache) Get(ctx context.Context) (setting.Settings, bool, error) {
	vals, err := c.rdb.HGetAll(ctx, settingsKey).Result()
	if err != nil {
		return nil, false, errors.Wrap(err, "reading cached settings")
	}
	if len(vals) == 0 {
		return nil, false, nil
	}
	return setting.Settings(vals), true, nil
}

func (c *SettingsCache) Set(ctx context.Context, values setting.Settings) error {
	if len(values) == 0 {
		return nil
	}
	fields := make(map[string]interface{}, len(values))
	for k, v := range values {
		fields[k] = v
	}
	_, err := c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, settingsKey)
		pipe.HSet(ctx, settingsKey, fields)
		pipe.Expire(ctx, settingsKey, c.ttl)
		return nil
	})
	return errors.Wrap(err, "caching settings")
}

func (c *SettingsCache) Invalidate(ctx context.Context) error {
	return errors.Wrap(c.rdb.Del(ctx, settingsKey).Err(), "invalidating cached settings")
}

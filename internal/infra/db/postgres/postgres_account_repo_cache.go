package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"reseller-billing/internal/domain/model"
	"reseller-billing/internal/domain/ports/repository"
	"reseller-billing/internal/infra/metrics"
	red "reseller-billing/internal/infra/redis"
)

var _ repository.AccountRepository = (*accountRepoCacheDecorator)(nil)

// accountRepoCacheDecorator caches FindByID outside transactions. Reads inside a
// transaction always hit Postgres so the row lock is taken.
type accountRepoCacheDecorator struct {
	inner repository.AccountRepository
	cache red.RedisClient
	ttl   time.Duration
}

func NewAccountRepoCacheDecorator(inner repository.AccountRepository, cache red.RedisClient, ttl time.Duration) repository.AccountRepository {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &accountRepoCacheDecorator{inner: inner, cache: cache, ttl: ttl}
}

func accountKey(id string) string { return fmt.Sprintf("account:id:%s", id) }

// invalidate drops the cached row now and, inside a transaction, once more
// after commit so a read racing the commit cannot re-cache the old row.
func (d *accountRepoCacheDecorator) invalidate(ctx context.Context, tx repository.Tx, id string) {
	key := accountKey(id)
	_ = d.cache.Del(ctx, key)
	if tx != nil {
		repository.AfterCommit(ctx, func(ctx context.Context) { _ = d.cache.Del(ctx, key) })
	}
}

func (d *accountRepoCacheDecorator) Create(ctx context.Context, tx repository.Tx, a *model.Account) (bool, error) {
	created, err := d.inner.Create(ctx, tx, a)
	if created {
		d.invalidate(ctx, tx, a.ID)
	}
	return created, err
}

func (d *accountRepoCacheDecorator) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Account, error) {
	if tx != nil {
		metrics.IncCacheRequest("account", "bypass")
		return d.inner.FindByID(ctx, tx, id)
	}
	key := accountKey(id)
	if val, err := d.cache.Get(ctx, key); err == nil {
		var acc model.Account
		if json.Unmarshal([]byte(val), &acc) == nil {
			metrics.IncCacheRequest("account", "hit")
			return &acc, nil
		}
	}

	metrics.IncCacheRequest("account", "miss")
	acc, err := d.inner.FindByID(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if b, err := json.Marshal(acc); err == nil {
		_ = d.cache.Set(ctx, key, b, d.ttl)
	}
	return acc, nil
}

func (d *accountRepoCacheDecorator) UpdateTier(ctx context.Context, tx repository.Tx, id string, tier model.Tier, expiresAt *time.Time) error {
	d.invalidate(ctx, tx, id)
	return d.inner.UpdateTier(ctx, tx, id, tier, expiresAt)
}

func (d *accountRepoCacheDecorator) UpdateRole(ctx context.Context, tx repository.Tx, id string, role model.Role) error {
	d.invalidate(ctx, tx, id)
	return d.inner.UpdateRole(ctx, tx, id, role)
}

func (d *accountRepoCacheDecorator) DowngradeIfExpired(ctx context.Context, tx repository.Tx, id string, tier model.Tier, now time.Time) (bool, error) {
	ok, err := d.inner.DowngradeIfExpired(ctx, tx, id, tier, now)
	if ok {
		d.invalidate(ctx, tx, id)
	}
	return ok, err
}

// Pass-through methods that don't need caching
func (d *accountRepoCacheDecorator) ListExpiringBetween(ctx context.Context, tx repository.Tx, lowest model.Tier, from, to time.Time) ([]*model.Account, error) {
	return d.inner.ListExpiringBetween(ctx, tx, lowest, from, to)
}

func (d *accountRepoCacheDecorator) ListExpiredBefore(ctx context.Context, tx repository.Tx, lowest model.Tier, before time.Time) ([]*model.Account, error) {
	return d.inner.ListExpiredBefore(ctx, tx, lowest, before)
}

func (d *accountRepoCacheDecorator) CountByTier(ctx context.Context, tx repository.Tx) (map[model.Tier]int, error) {
	return d.inner.CountByTier(ctx, tx)
}

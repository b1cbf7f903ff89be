//go:build !integration

package postgres

import (
	"context"
	"time"

	"reseller-billing/internal/domain/model"
	"reseller-billing/internal/domain/ports/repository"
	red "reseller-billing/internal/infra/redis"
)

// --- Mocks for Cache Decorator Tests ---

// mockInnerAccountRepo mocks the database repository that the Account decorator wraps.
type mockInnerAccountRepo struct {
	CreateFunc              func(ctx context.Context, tx repository.Tx, a *model.Account) (bool, error)
	UpdateRoleFunc          func(ctx context.Context, tx repository.Tx, id string, role model.Role) error
	FindByIDFunc            func(ctx context.Context, tx repository.Tx, id string) (*model.Account, error)
	UpdateTierFunc          func(ctx context.Context, tx repository.Tx, id string, tier model.Tier, expiresAt *time.Time) error
	DowngradeIfExpiredFunc  func(ctx context.Context, tx repository.Tx, id string, tier model.Tier, now time.Time) (bool, error)
	ListExpiringBetweenFunc func(ctx context.Context, tx repository.Tx, lowest model.Tier, from, to time.Time) ([]*model.Account, error)
	ListExpiredBeforeFunc   func(ctx context.Context, tx repository.Tx, lowest model.Tier, before time.Time) ([]*model.Account, error)
	CountByTierFunc         func(ctx context.Context, tx repository.Tx) (map[model.Tier]int, error)
}

func (m *mockInnerAccountRepo) Create(ctx context.Context, tx repository.Tx, a *model.Account) (bool, error) {
	return m.CreateFunc(ctx, tx, a)
}
func (m *mockInnerAccountRepo) UpdateRole(ctx context.Context, tx repository.Tx, id string, role model.Role) error {
	return m.UpdateRoleFunc(ctx, tx, id, role)
}
func (m *mockInnerAccountRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Account, error) {
	return m.FindByIDFunc(ctx, tx, id)
}
func (m *mockInnerAccountRepo) UpdateTier(ctx context.Context, tx repository.Tx, id string, tier model.Tier, expiresAt *time.Time) error {
	return m.UpdateTierFunc(ctx, tx, id, tier, expiresAt)
}
func (m *mockInnerAccountRepo) DowngradeIfExpired(ctx context.Context, tx repository.Tx, id string, tier model.Tier, now time.Time) (bool, error) {
	return m.DowngradeIfExpiredFunc(ctx, tx, id, tier, now)
}
func (m *mockInnerAccountRepo) ListExpiringBetween(ctx context.Context, tx repository.Tx, lowest model.Tier, from, to time.Time) ([]*model.Account, error) {
	return m.ListExpiringBetweenFunc(ctx, tx, lowest, from, to)
}
func (m *mockInnerAccountRepo) ListExpiredBefore(ctx context.Context, tx repository.Tx, lowest model.Tier, before time.Time) ([]*model.Account, error) {
	return m.ListExpiredBeforeFunc(ctx, tx, lowest, before)
}
func (m *mockInnerAccountRepo) CountByTier(ctx context.Context, tx repository.Tx) (map[model.Tier]int, error) {
	return m.CountByTierFunc(ctx, tx)
}

// mockRedisClient mocks our Redis client wrapper.
type mockRedisClient struct {
	GetFunc         func(ctx context.Context, key string) (string, error)
	SetFunc         func(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	SetNXFunc       func(ctx context.Context, key string, value interface{}, expiration time.Duration) (bool, error)
	DelFunc         func(ctx context.Context, keys ...string) error
	DelIfEqualsFunc func(ctx context.Context, key, value string) (bool, error)
	PingFunc        func(ctx context.Context) error
	IncrFunc        func(ctx context.Context, key string) (int64, error)
	ExpireFunc      func(ctx context.Context, key string, expiration time.Duration) error
	CloseFunc       func() error
}

var _ red.RedisClient = &mockRedisClient{}

func (m *mockRedisClient) Get(ctx context.Context, key string) (string, error) {
	return m.GetFunc(ctx, key)
}
func (m *mockRedisClient) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	return m.SetFunc(ctx, key, value, expiration)
}
func (m *mockRedisClient) SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) (bool, error) {
	return m.SetNXFunc(ctx, key, value, expiration)
}
func (m *mockRedisClient) Del(ctx context.Context, keys ...string) error {
	return m.DelFunc(ctx, keys...)
}
func (m *mockRedisClient) DelIfEquals(ctx context.Context, key, value string) (bool, error) {
	return m.DelIfEqualsFunc(ctx, key, value)
}
func (m *mockRedisClient) Ping(ctx context.Context) error { return m.PingFunc(ctx) }
func (m *mockRedisClient) Incr(ctx context.Context, key string) (int64, error) {
	return m.IncrFunc(ctx, key)
}
func (m *mockRedisClient) Expire(ctx context.Context, key string, expiration time.Duration) error {
	return m.ExpireFunc(ctx, key, expiration)
}
func (m *mockRedisClient) Close() error { return m.CloseFunc() }

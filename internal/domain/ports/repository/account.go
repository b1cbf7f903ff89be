package repository

import (
	"context"
	"time"

	"reseller-billing/internal/domain/model"
)

// -----------------------------
// Accounts
// -----------------------------

type AccountRepository interface {
	// Create inserts a new account and never overwrites an existing row.
	// Reports false when the id is already taken.
	Create(ctx context.Context, tx Tx, a *model.Account) (bool, error)
	FindByID(ctx context.Context, tx Tx, id string) (*model.Account, error)
	// UpdateTier overwrites tier and expiry unconditionally.
	UpdateTier(ctx context.Context, tx Tx, id string, tier model.Tier, expiresAt *time.Time) error
	UpdateRole(ctx context.Context, tx Tx, id string, role model.Role) error
	// DowngradeIfExpired moves the account to tier and clears expires_at only if
	// expires_at is still before now. Reports whether a row changed.
	DowngradeIfExpired(ctx context.Context, tx Tx, id string, tier model.Tier, now time.Time) (bool, error)
	// ListExpiringBetween returns paid accounts whose expires_at is in [from, to).
	ListExpiringBetween(ctx context.Context, tx Tx, lowest model.Tier, from, to time.Time) ([]*model.Account, error)
	// ListExpiredBefore returns paid accounts whose expires_at < before.
	ListExpiredBefore(ctx context.Context, tx Tx, lowest model.Tier, before time.Time) ([]*model.Account, error)
	CountByTier(ctx context.Context, tx Tx) (map[model.Tier]int, error)
}

// -----------------------------
// Tier transitions
// -----------------------------

type TierTransitionRepository interface {
	Append(ctx context.Context, tx Tx, t *model.TierTransition) error
	ListByAccount(ctx context.Context, tx Tx, accountID string) ([]*model.TierTransition, error)
}

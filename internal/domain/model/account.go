package model

import (
	"time"

	"reseller-billing/internal/domain"

	"github.com/google/uuid"
)

// Account is a reseller tenant. Tier changes only through a paid invoice,
// the expiry job, or an administrator override.
type Account struct {
	ID             string     `json:"id"`
	Email          string     `json:"email"`
	DisplayName    string     `json:"display_name"`
	TelegramChatID *int64     `json:"telegram_chat_id,omitempty"`
	Role           Role       `json:"role"`
	Tier           Tier       `json:"tier"`
	ExpiresAt      *time.Time `json:"expires_at,omitempty"` // nil for non-expiring tiers
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// NewAccount creates a signup on the free tier.
func NewAccount(id, email, displayName string) (*Account, error) {
	if id == "" {
		id = uuid.NewString()
	}
	if email == "" {
		return nil, domain.ErrInvalidArgument
	}
	now := time.Now()
	return &Account{
		ID:          id,
		Email:       email,
		DisplayName: displayName,
		Role:        RoleUser,
		Tier:        TierStarterKit,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

func (a *Account) IsZero() bool { return a == nil || a.ID == "" }

// Expired reports whether the paid period ended before now.
func (a *Account) Expired(now time.Time) bool {
	return a.ExpiresAt != nil && a.ExpiresAt.Before(now)
}

// DaysRemaining rounds up to whole days; zero for non-expiring accounts.
func (a *Account) DaysRemaining(now time.Time) int {
	if a.ExpiresAt == nil || !a.ExpiresAt.After(now) {
		return 0
	}
	d := a.ExpiresAt.Sub(now)
	days := int(d / (24 * time.Hour))
	if d%(24*time.Hour) != 0 {
		days++
	}
	return days
}

type TransitionAction string

const (
	TransitionManualUpdate TransitionAction = "manual_update"
	TransitionUpgraded     TransitionAction = "upgraded"
	TransitionDowngraded   TransitionAction = "downgraded"
)

// TierTransition is one append-only entry of an account's tier history.
type TierTransition struct {
	ID        string           `json:"id"`
	AccountID string           `json:"account_id"`
	FromTier  Tier             `json:"from_tier"`
	ToTier    Tier             `json:"to_tier"`
	Action    TransitionAction `json:"action"`
	Reason    string           `json:"reason"`
	ActorID   string           `json:"actor_id,omitempty"` // empty for system transitions
	CreatedAt time.Time        `json:"created_at"`
}

func NewTierTransition(accountID string, from, to Tier, action TransitionAction, reason, actorID string) *TierTransition {
	return &TierTransition{
		ID:        uuid.NewString(),
		AccountID: accountID,
		FromTier:  from,
		ToTier:    to,
		Action:    action,
		Reason:    reason,
		ActorID:   actorID,
		CreatedAt: time.Now(),
	}
}

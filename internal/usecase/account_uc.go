// File: internal/usecase/account_uc.go
package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"reseller-billing/internal/domain"
	"reseller-billing/internal/domain/model"
	"reseller-billing/internal/domain/ports/repository"
)

// Compile-time check
var _ AccountUseCase = (*accountUC)(nil)

type AccountUseCase interface {
	// Register creates the account on first sign-in; the identity provider owns credentials.
	Register(ctx context.Context, id, email, displayName string) (*model.Account, error)
	Get(ctx context.Context, actor model.Actor, accountID string) (*model.Account, error)
	// SetTier is the administrator override; it records a manual_update transition.
	SetTier(ctx context.Context, actor model.Actor, accountID string, tier model.Tier, expiresAt *time.Time, reason string) (*model.Account, error)
	SetRole(ctx context.Context, actor model.Actor, accountID string, role model.Role) (*model.Account, error)
	TierHistory(ctx context.Context, actor model.Actor, accountID string) ([]*model.TierTransition, error)
}

type accountUC struct {
	catalog     *model.TierCatalog
	accounts    repository.AccountRepository
	transitions repository.TierTransitionRepository
	tm          repository.TransactionManager
	log         *zerolog.Logger
}

func NewAccountUseCase(catalog *model.TierCatalog, accounts repository.AccountRepository, transitions repository.TierTransitionRepository, tm repository.TransactionManager, logger *zerolog.Logger) *accountUC {
	compLog := logger.With().Str("component", "AccountUseCase").Logger()
	return &accountUC{catalog: catalog, accounts: accounts, transitions: transitions, tm: tm, log: &compLog}
}

// Register only ever inserts. Lookup failures other than not-found are returned.
func (u *accountUC) Register(ctx context.Context, id, email, displayName string) (*model.Account, error) {
	existing, err := u.accounts.FindByID(ctx, repository.NoTX, id)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("register %s: %w", id, err)
	}
	acc, err := model.NewAccount(id, strings.TrimSpace(email), strings.TrimSpace(displayName))
	if err != nil {
		return nil, err
	}
	created, err := u.accounts.Create(ctx, repository.NoTX, acc)
	if err != nil {
		return nil, err
	}
	if !created {
		// Lost a race with a concurrent first request.
		return u.accounts.FindByID(ctx, repository.NoTX, id)
	}
	u.log.Info().Str("account_id", acc.ID).Msg("account registered")
	return acc, nil
}

func (u *accountUC) Get(ctx context.Context, actor model.Actor, accountID string) (*model.Account, error) {
	if accountID != actor.AccountID && !actor.Can(model.ActionManageUsers) {
		return nil, domain.ErrUnauthorized
	}
	return u.accounts.FindByID(ctx, repository.NoTX, accountID)
}

func (u *accountUC) SetTier(ctx context.Context, actor model.Actor, accountID string, tier model.Tier, expiresAt *time.Time, reason string) (*model.Account, error) {
	if !actor.Can(model.ActionManageSubscriptions) {
		return nil, domain.ErrUnauthorized
	}
	if !tier.Valid() {
		return nil, fmt.Errorf("%w: unknown tier %q", domain.ErrInvalidArgument, string(tier))
	}
	if tier == u.catalog.Lowest() {
		expiresAt = nil
	}
	if reason == "" {
		reason = "manual override"
	}

	err := u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		acc, err := u.accounts.FindByID(ctx, tx, accountID)
		if err != nil {
			return err
		}
		if err := u.accounts.UpdateTier(ctx, tx, acc.ID, tier, expiresAt); err != nil {
			return err
		}
		return u.transitions.Append(ctx, tx, model.NewTierTransition(acc.ID, acc.Tier, tier, model.TransitionManualUpdate, reason, actor.AccountID))
	})
	if err != nil {
		return nil, err
	}
	u.log.Warn().Str("account_id", accountID).Str("tier", string(tier)).Str("actor", actor.AccountID).Msg("tier set manually")
	return u.accounts.FindByID(ctx, repository.NoTX, accountID)
}

func (u *accountUC) SetRole(ctx context.Context, actor model.Actor, accountID string, role model.Role) (*model.Account, error) {
	if !actor.Can(model.ActionManageUsers) {
		return nil, domain.ErrUnauthorized
	}
	if !role.Valid() {
		return nil, fmt.Errorf("%w: unknown role %q", domain.ErrInvalidArgument, string(role))
	}
	if err := u.accounts.UpdateRole(ctx, repository.NoTX, accountID, role); err != nil {
		return nil, err
	}
	u.log.Warn().Str("account_id", accountID).Str("role", string(role)).Str("actor", actor.AccountID).Msg("role changed")
	return u.accounts.FindByID(ctx, repository.NoTX, accountID)
}

func (u *accountUC) TierHistory(ctx context.Context, actor model.Actor, accountID string) ([]*model.TierTransition, error) {
	if accountID != actor.AccountID && !actor.Can(model.ActionViewSystemLogs) {
		return nil, domain.ErrUnauthorized
	}
	return u.transitions.ListByAccount(ctx, repository.NoTX, accountID)
}

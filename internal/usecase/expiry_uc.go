package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"reseller-billing/internal/domain"
	"reseller-billing/internal/domain/model"
	"reseller-billing/internal/domain/ports/repository"
	uc "reseller-billing/internal/domain/ports/usecase"
	"reseller-billing/internal/infra/metrics"
)

// Compile-time check
var _ uc.ExpiryRunner = (*ExpiryUseCase)(nil)

// DefaultWarningWindow is how far ahead of expires_at the warning pass looks.
const DefaultWarningWindow = 7 * 24 * time.Hour

// ExpiryUseCase warns accounts about to expire and downgrades expired ones.
type ExpiryUseCase struct {
	catalog       *model.TierCatalog
	accounts      repository.AccountRepository
	transitions   repository.TierTransitionRepository
	warnings      repository.ExpiryWarningRepository
	notifications repository.NotificationRepository
	outbox        repository.OutboxRepository
	tm            repository.TransactionManager
	window        time.Duration
	log           *zerolog.Logger
}

func NewExpiryUseCase(
	catalog *model.TierCatalog,
	accounts repository.AccountRepository,
	transitions repository.TierTransitionRepository,
	warnings repository.ExpiryWarningRepository,
	notifications repository.NotificationRepository,
	outbox repository.OutboxRepository,
	tm repository.TransactionManager,
	window time.Duration,
	logger *zerolog.Logger,
) *ExpiryUseCase {
	if window <= 0 {
		window = DefaultWarningWindow
	}
	compLog := logger.With().Str("component", "ExpiryUseCase").Logger()
	return &ExpiryUseCase{
		catalog:       catalog,
		accounts:      accounts,
		transitions:   transitions,
		warnings:      warnings,
		notifications: notifications,
		outbox:        outbox,
		tm:            tm,
		window:        window,
		log:           &compLog,
	}
}

// RunOnce performs the warning pass, then the downgrade pass. A failure on one
// account is logged and counted; the remaining accounts are still processed.
func (e *ExpiryUseCase) RunOnce(ctx context.Context, now time.Time) (uc.ExpiryReport, error) {
	var rep uc.ExpiryReport

	warned, failed, err := e.warnPass(ctx, now)
	rep.Warned, rep.Failed = warned, failed
	if err != nil {
		return rep, err
	}

	downgraded, failed, err := e.downgradePass(ctx, now)
	rep.Downgraded = downgraded
	rep.Failed += failed
	if err != nil {
		return rep, err
	}

	metrics.ObserveExpiryRun(rep.Warned, rep.Downgraded, rep.Failed)
	e.log.Info().Int("warned", rep.Warned).Int("downgraded", rep.Downgraded).Int("failed", rep.Failed).Msg("expiry sweep finished")
	return rep, nil
}

func (e *ExpiryUseCase) warnPass(ctx context.Context, now time.Time) (int, int, error) {
	lowest := e.catalog.Lowest()
	accs, err := e.accounts.ListExpiringBetween(ctx, repository.NoTX, lowest, now, now.Add(e.window))
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return 0, 0, err
	}
	warned, failed := 0, 0
	for _, acc := range accs {
		ok, err := e.warn(ctx, acc, now)
		if err != nil {
			failed++
			e.log.Error().Err(err).Str("account_id", acc.ID).Msg("expiry warning failed")
			continue
		}
		if ok {
			warned++
		}
	}
	return warned, failed, nil
}

// warn sends at most one warning per (account, expires_at).
func (e *ExpiryUseCase) warn(ctx context.Context, acc *model.Account, now time.Time) (bool, error) {
	if acc.ExpiresAt == nil || acc.Tier == e.catalog.Lowest() {
		return false, nil
	}
	sent := false
	err := e.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		first, err := e.warnings.Record(ctx, tx, acc.ID, *acc.ExpiresAt)
		if err != nil || !first {
			return err
		}
		planName := e.catalog.Plan(acc.Tier).Name
		days := acc.DaysRemaining(now)
		n := model.NewNotification(acc.ID, model.NotificationExpiryWarning, "Subscription expiring soon",
			expiryWarningMessage(planName, days, *acc.ExpiresAt))
		if _, err := e.notifications.CreateIfAbsent(ctx, tx, n, nil); err != nil {
			return err
		}
		sent = true
		return e.outbox.Enqueue(ctx, tx, model.NewOutboxEvent(model.OutboxExpiryWarning, acc.ID, map[string]interface{}{
			"tier":           string(acc.Tier),
			"plan_name":      planName,
			"days_remaining": days,
			"expires_at":     acc.ExpiresAt.Format(time.RFC3339),
		}))
	})
	if err != nil {
		return false, err
	}
	return sent, nil
}

func (e *ExpiryUseCase) downgradePass(ctx context.Context, now time.Time) (int, int, error) {
	lowest := e.catalog.Lowest()
	accs, err := e.accounts.ListExpiredBefore(ctx, repository.NoTX, lowest, now)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return 0, 0, err
	}
	downgraded, failed := 0, 0
	for _, acc := range accs {
		ok, err := e.downgrade(ctx, acc, now)
		if err != nil {
			failed++
			e.log.Error().Err(err).Str("account_id", acc.ID).Msg("downgrade failed")
			continue
		}
		if ok {
			downgraded++
		}
	}
	return downgraded, failed, nil
}

// downgrade re-checks expires_at against now inside the transaction, so an
// account renewed after the listing query is left alone.
func (e *ExpiryUseCase) downgrade(ctx context.Context, acc *model.Account, now time.Time) (bool, error) {
	lowest := e.catalog.Lowest()
	changed := false
	err := e.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		current, err := e.accounts.FindByID(ctx, tx, acc.ID)
		if err != nil {
			return err
		}
		if current.Tier == lowest || !current.Expired(now) {
			return nil
		}
		ok, err := e.accounts.DowngradeIfExpired(ctx, tx, current.ID, lowest, now)
		if err != nil || !ok {
			return err
		}
		if err := e.transitions.Append(ctx, tx, model.NewTierTransition(current.ID, current.Tier, lowest,
			model.TransitionDowngraded, "subscription expired", "")); err != nil {
			return err
		}
		fromName, toName := e.catalog.Plan(current.Tier).Name, e.catalog.Plan(lowest).Name
		n := model.NewNotification(current.ID, model.NotificationDowngraded, "Subscription expired", downgradeMessage(fromName, toName))
		if _, err := e.notifications.CreateIfAbsent(ctx, tx, n, nil); err != nil {
			return err
		}
		changed = true
		return e.outbox.Enqueue(ctx, tx, model.NewOutboxEvent(model.OutboxDowngradeNotice, current.ID, map[string]interface{}{
			"from_tier":      string(current.Tier),
			"from_plan_name": fromName,
			"to_tier":        string(lowest),
			"to_plan_name":   toName,
		}))
	})
	if err != nil {
		return false, err
	}
	return changed, nil
}

package sched

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"reseller-billing/internal/domain"
	uc "reseller-billing/internal/domain/ports/usecase"
	"reseller-billing/internal/infra/metrics"
	red "reseller-billing/internal/infra/redis"
)

// ExpiryLockKey serialises expiry runs across replicas and the one-shot job.
const ExpiryLockKey = "lock:subscription-expiry"

// ExpiryWorker periodically runs the expiry sweep. The Redis lock keeps replicas
// from sweeping at the same time.
type ExpiryWorker struct {
	interval time.Duration
	lockTTL  time.Duration
	runner   uc.ExpiryRunner
	locker   red.Locker
	now      func() time.Time
	log      *zerolog.Logger
}

func NewExpiryWorker(interval, lockTTL time.Duration, runner uc.ExpiryRunner, locker red.Locker, logger *zerolog.Logger) *ExpiryWorker {
	exprLog := logger.With().Str("component", "ExpiryWorker").Logger()
	if interval <= 0 {
		interval = time.Hour
	}
	if lockTTL <= 0 {
		lockTTL = 10 * time.Minute
	}
	return &ExpiryWorker{
		interval: interval,
		lockTTL:  lockTTL,
		runner:   runner,
		locker:   locker,
		now:      time.Now,
		log:      &exprLog,
	}
}

func (w *ExpiryWorker) Run(ctx context.Context) error {
	w.log.Info().Dur("interval", w.interval).Msg("Starting expiry worker")
	w.tick(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Stopping expiry worker")
			return ctx.Err()
		case <-ticker.C:
			w.tick(ctx)
		}
	}
}

func (w *ExpiryWorker) tick(ctx context.Context) {
	if w.locker != nil {
		token, err := w.locker.TryLock(ctx, ExpiryLockKey, w.lockTTL)
		if err != nil {
			if errors.Is(err, domain.ErrLockNotAcquired) {
				metrics.IncJobRun("expiry", "skipped")
				w.log.Debug().Msg("another replica holds the expiry lock")
				return
			}
			w.log.Error().Err(err).Msg("expiry lock failed")
			metrics.IncJobRun("expiry", "error")
			return
		}
		defer func() { _ = w.locker.Unlock(context.Background(), ExpiryLockKey, token) }()
	}

	rep, err := w.runner.RunOnce(ctx, w.now())
	if err != nil {
		metrics.IncJobRun("expiry", "error")
		w.log.Error().Err(err).Msg("expiry sweep failed")
		return
	}
	metrics.IncJobRun("expiry", "ok")
	if rep.Warned+rep.Downgraded+rep.Failed > 0 {
		w.log.Info().Int("warned", rep.Warned).Int("downgraded", rep.Downgraded).Int("failed", rep.Failed).Msg("expiry sweep done")
	}
}

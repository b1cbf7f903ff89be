// Command expiry-job runs one expiry sweep and exits. It is meant for an
// external scheduler (cron, a Kubernetes CronJob) when the app runs with
// scheduler.disable_expiry.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"reseller-billing/internal/config"
	"reseller-billing/internal/domain"
	pg "reseller-billing/internal/infra/db/postgres"
	"reseller-billing/internal/infra/logging"
	red "reseller-billing/internal/infra/redis"
	"reseller-billing/internal/infra/sched"
	"reseller-billing/internal/usecase"
)

func main() {
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, false)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	logger := logging.New(cfg.Log, false)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Billing.ExpiryLockTTL)
	defer cancel()

	catalog, err := cfg.TierCatalog()
	if err != nil {
		logger.Fatal().Err(err).Msg("catalog")
	}
	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres")
	}
	defer pool.Close()

	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis")
	}
	defer redisClient.Close()

	locker := red.NewLocker(redisClient)
	token, err := locker.TryLock(ctx, sched.ExpiryLockKey, cfg.Billing.ExpiryLockTTL)
	if errors.Is(err, domain.ErrLockNotAcquired) {
		logger.Info().Msg("another expiry run holds the lock; exiting")
		return
	}
	if err != nil {
		logger.Fatal().Err(err).Msg("lock")
	}
	defer func() { _ = locker.Unlock(context.Background(), sched.ExpiryLockKey, token) }()

	expiryUC := usecase.NewExpiryUseCase(catalog,
		pg.NewAccountRepo(pool),
		pg.NewTierTransitionRepo(pool),
		pg.NewExpiryWarningRepo(pool),
		pg.NewNotificationRepo(pool),
		pg.NewOutboxRepo(pool),
		pg.NewTxManager(pool),
		cfg.Billing.WarningWindow,
		logger,
	)
	rep, err := expiryUC.RunOnce(ctx, time.Now())
	if err != nil {
		logger.Fatal().Err(err).Msg("expiry run failed")
	}
	logger.Info().Int("warned", rep.Warned).Int("downgraded", rep.Downgraded).Int("failed", rep.Failed).Msg("expiry run complete")
}

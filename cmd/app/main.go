// File: cmd/app/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/rs/zerolog"

	"reseller-billing/internal/config"
	"reseller-billing/internal/domain/ports/adapter"
	"reseller-billing/internal/domain/ports/repository"
	notify "reseller-billing/internal/infra/adapters/notify"
	"reseller-billing/internal/infra/adapters/storage"
	"reseller-billing/internal/infra/api"
	pg "reseller-billing/internal/infra/db/postgres"
	"reseller-billing/internal/infra/logging"
	"reseller-billing/internal/infra/metrics"
	red "reseller-billing/internal/infra/redis"
	"reseller-billing/internal/infra/sched"
	"reseller-billing/internal/infra/worker"
	"reseller-billing/internal/usecase"
)

var (
	version = "dev"
	commit  = "none"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (console logs, verbose errors)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Warn().Msg("[DEV MODE] Enabled")
	}

	// ---- Metrics ----
	metrics.MustRegister()
	metrics.SetBuildInfo(version, commit)

	catalog, err := cfg.TierCatalog()
	if err != nil {
		logger.Fatal().Err(err).Msg("catalog")
	}

	// ---- Postgres ----
	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres")
	}
	defer pool.Close()

	// ---- Redis ----
	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis")
	}
	defer redisClient.Close()
	locker := red.NewLocker(redisClient)
	rateLimiter := red.NewRateLimiter(redisClient)

	// ---- Repositories ----
	var accountRepo repository.AccountRepository = pg.NewAccountRepo(pool)
	if cfg.Billing.AccountCacheEnabled {
		accountRepo = pg.NewAccountRepoCacheDecorator(accountRepo, redisClient, cfg.Redis.TTL)
	}
	transitionRepo := pg.NewTierTransitionRepo(pool)
	invoiceRepo := pg.NewInvoiceRepo(pool)
	notificationRepo := pg.NewNotificationRepo(pool)
	warningRepo := pg.NewExpiryWarningRepo(pool)
	outboxRepo := pg.NewOutboxRepo(pool)
	tm := pg.NewTxManager(pool)

	// ---- Adapters ----
	notifier := buildNotifier(cfg, logger)
	var fileStorage adapter.FileStorage
	if cfg.Storage.URL != "" {
		s, err := storage.NewSupabaseStorage(cfg.Storage.URL, cfg.Storage.ServiceKey, cfg.Storage.Bucket)
		if err != nil {
			logger.Fatal().Err(err).Msg("storage")
		}
		fileStorage = s
	} else {
		logger.Warn().Msg("storage.url not set; payment proofs cannot be uploaded")
	}

	// ---- Use cases ----
	accountUC := usecase.NewAccountUseCase(catalog, accountRepo, transitionRepo, tm, logger)
	invoiceUC := usecase.NewInvoiceUseCase(catalog, invoiceRepo, accountRepo, transitionRepo, notificationRepo, outboxRepo, fileStorage, tm, logger)
	expiryUC := usecase.NewExpiryUseCase(catalog, accountRepo, transitionRepo, warningRepo, notificationRepo, outboxRepo, tm, cfg.Billing.WarningWindow, logger)
	notificationUC := usecase.NewNotificationUseCase(notificationRepo, logger)
	statsUC := usecase.NewStatsUseCase(accountRepo, invoiceRepo, logger)
	planUC := usecase.NewPlanUseCase(catalog)
	entitlementUC := usecase.NewEntitlementUseCase(catalog, accountRepo)

	// ---- Background workers ----
	workerPool := worker.NewPool(cfg.Outbox.Workers, logger)
	workerPool.Start(ctx)
	defer workerPool.Stop()

	if !cfg.Scheduler.DisableExpiry {
		expiry := sched.NewExpiryWorker(cfg.Scheduler.ExpiryInterval, cfg.Billing.ExpiryLockTTL, expiryUC, locker, logger)
		go func() { _ = expiry.Run(ctx) }()
	} else {
		logger.Info().Msg("in-process expiry worker disabled; expecting cmd/expiry-job on an external schedule")
	}
	sweeper := sched.NewInvoiceSweeper(cfg.Scheduler.SweepInterval, invoiceUC, logger)
	go func() { _ = sweeper.Run(ctx) }()

	dispatcher := sched.NewOutboxDispatcher(outboxRepo, accountRepo, notifier, workerPool, locker,
		cfg.Scheduler.OutboxInterval, cfg.Outbox.BatchSize, cfg.Outbox.MaxAttempts, logger)
	go func() { _ = dispatcher.Run(ctx) }()

	go reportPoolStats(ctx, pool, cfg.Scheduler.DBStatsInterval)

	// ---- HTTP ----
	srv := api.NewServer(cfg, api.Deps{
		Accounts:      accountUC,
		Invoices:      invoiceUC,
		Entitlements:  entitlementUC,
		Notifications: notificationUC,
		Stats:         statsUC,
		Plans:         planUC,
		Expiry:        expiryUC,
		Limiter:       rateLimiter,
		Verifier:      api.NewTokenVerifier(cfg.Auth.JWTSecret, cfg.Auth.Issuer),
	}, logger)
	go func() {
		if err := srv.Start(); err != nil {
			logger.Error().Err(err).Msg("http server error")
			cancel()
		}
	}()

	// ---- Graceful shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigc:
		logger.Info().Msg("shutdown requested")
	case <-ctx.Done():
	}
	cancel()

	shutdownCtx, done := context.WithTimeout(context.Background(), 15*time.Second)
	defer done()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown")
	}
}

// buildNotifier fans out to every configured channel; with none configured it logs instead.
func buildNotifier(cfg *config.Config, logger *zerolog.Logger) adapter.Notifier {
	var channels []adapter.Notifier
	if cfg.Notify.EmailEndpoint != "" {
		email, err := notify.NewEmailNotifier(cfg.Notify.EmailEndpoint, cfg.Notify.EmailAPIKey)
		if err != nil {
			logger.Fatal().Err(err).Msg("email notifier")
		}
		channels = append(channels, email)
	}
	if cfg.Notify.TelegramToken != "" {
		tg, err := notify.NewTelegramNotifier(cfg.Notify.TelegramToken)
		if err != nil {
			logger.Fatal().Err(err).Msg("telegram notifier")
		}
		channels = append(channels, tg)
	}
	if len(channels) == 0 {
		logger.Warn().Msg("no notification channel configured; deliveries will only be logged")
		channels = append(channels, notify.NewNoopNotifier(logger))
	}
	return notify.NewMultiNotifier(channels...)
}

func reportPoolStats(ctx context.Context, pool *pgxpool.Pool, every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			st := pool.Stat()
			metrics.SetDBPoolStats(metrics.DBPoolStats{
				Total:         st.TotalConns(),
				Idle:          st.IdleConns(),
				InUse:         st.AcquiredConns(),
				Max:           st.MaxConns(),
				EmptyAcquires: st.EmptyAcquireCount(),
			})
		}
	}
}

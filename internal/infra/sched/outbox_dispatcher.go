package sched

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"reseller-billing/internal/domain"
	"reseller-billing/internal/domain/model"
	"reseller-billing/internal/domain/ports/adapter"
	"reseller-billing/internal/domain/ports/repository"
	"reseller-billing/internal/infra/metrics"
	red "reseller-billing/internal/infra/redis"
	"reseller-billing/internal/infra/worker"
)

const outboxLockKey = "lock:outbox-dispatch"

// OutboxDispatcher delivers pending outbox events through the notifier. A failed
// delivery is recorded on the event and never touches the state change that
// produced it.
type OutboxDispatcher struct {
	outbox      repository.OutboxRepository
	accounts    repository.AccountRepository
	notifier    adapter.Notifier
	pool        *worker.Pool
	locker      red.Locker
	interval    time.Duration
	batchSize   int
	maxAttempts int
	log         *zerolog.Logger
}

func NewOutboxDispatcher(
	outbox repository.OutboxRepository,
	accounts repository.AccountRepository,
	notifier adapter.Notifier,
	pool *worker.Pool,
	locker red.Locker,
	interval time.Duration,
	batchSize, maxAttempts int,
	logger *zerolog.Logger,
) *OutboxDispatcher {
	compLog := logger.With().Str("component", "OutboxDispatcher").Logger()
	if interval <= 0 {
		interval = 10 * time.Second
	}
	if batchSize <= 0 {
		batchSize = 100
	}
	if maxAttempts <= 0 {
		maxAttempts = 1
	}
	return &OutboxDispatcher{
		outbox:      outbox,
		accounts:    accounts,
		notifier:    notifier,
		pool:        pool,
		locker:      locker,
		interval:    interval,
		batchSize:   batchSize,
		maxAttempts: maxAttempts,
		log:         &compLog,
	}
}

func (d *OutboxDispatcher) Run(ctx context.Context) error {
	d.log.Info().Msg("Starting outbox dispatcher")
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			d.log.Info().Msg("Stopping outbox dispatcher")
			return ctx.Err()
		case <-ticker.C:
			d.DispatchOnce(ctx)
		}
	}
}

// DispatchOnce sends one batch and waits for it to finish. Returns the number
// of events handed to the pool.
func (d *OutboxDispatcher) DispatchOnce(ctx context.Context) int {
	if d.locker != nil {
		token, err := d.locker.TryLock(ctx, outboxLockKey, 2*d.interval)
		if err != nil {
			if !errors.Is(err, domain.ErrLockNotAcquired) {
				d.log.Error().Err(err).Msg("outbox lock failed")
			}
			return 0
		}
		defer func() { _ = d.locker.Unlock(context.Background(), outboxLockKey, token) }()
	}

	events, err := d.outbox.ListPending(ctx, repository.NoTX, d.maxAttempts, d.batchSize)
	if err != nil {
		metrics.IncJobRun("outbox", "error")
		d.log.Error().Err(err).Msg("list pending outbox events failed")
		return 0
	}

	var wg sync.WaitGroup
	submitted := 0
	for _, ev := range events {
		ev := ev
		wg.Add(1)
		err := d.pool.Submit(func(ctx context.Context) error {
			defer wg.Done()
			return d.deliver(ctx, ev)
		})
		if err != nil {
			// Left pending for the next tick.
			wg.Done()
			d.log.Warn().Err(err).Str("event_id", ev.ID).Msg("outbox event not submitted")
			continue
		}
		submitted++
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		// Queued deliveries see the cancelled ctx and leave their events pending.
		d.log.Warn().Int("submitted", submitted).Msg("outbox dispatch interrupted")
		metrics.IncJobRun("outbox", "cancelled")
		return submitted
	}
	metrics.IncJobRun("outbox", "ok")
	return submitted
}

func (d *OutboxDispatcher) deliver(ctx context.Context, ev *model.OutboxEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	acc, err := d.accounts.FindByID(ctx, repository.NoTX, ev.AccountID)
	if err != nil {
		return d.fail(ctx, ev, err)
	}
	to := adapter.Recipient{
		AccountID:      acc.ID,
		Email:          acc.Email,
		Name:           acc.DisplayName,
		TelegramChatID: acc.TelegramChatID,
	}
	if err := d.notifier.Notify(ctx, string(ev.Kind), to, ev.Payload); err != nil {
		return d.fail(ctx, ev, err)
	}
	if err := d.outbox.MarkSent(ctx, repository.NoTX, ev.ID, time.Now()); err != nil {
		d.log.Error().Err(err).Str("event_id", ev.ID).Msg("mark outbox event sent failed")
		return err
	}
	return nil
}

func (d *OutboxDispatcher) fail(ctx context.Context, ev *model.OutboxEvent, cause error) error {
	if ctx.Err() != nil {
		// Shutdown, not a delivery failure; the event stays pending.
		return ctx.Err()
	}
	terminal := ev.Attempts+1 >= d.maxAttempts
	d.log.Warn().Err(cause).Str("event_id", ev.ID).Str("kind", string(ev.Kind)).Bool("terminal", terminal).Msg("notification delivery failed")
	if err := d.outbox.MarkFailed(ctx, repository.NoTX, ev.ID, cause.Error(), terminal); err != nil {
		d.log.Error().Err(err).Str("event_id", ev.ID).Msg("mark outbox event failed failed")
	}
	return nil
}

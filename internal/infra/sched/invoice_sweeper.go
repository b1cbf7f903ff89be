package sched

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"reseller-billing/internal/infra/metrics"
)

// OverdueSweeper is the slice of the invoice use case the sweeper needs.
type OverdueSweeper interface {
	SweepOverdue(ctx context.Context, now time.Time) (expired int, reminded int, err error)
}

// InvoiceSweeper expires overdue invoices and sends due-soon reminders.
type InvoiceSweeper struct {
	interval time.Duration
	invoices OverdueSweeper
	now      func() time.Time
	log      *zerolog.Logger
}

func NewInvoiceSweeper(interval time.Duration, invoices OverdueSweeper, logger *zerolog.Logger) *InvoiceSweeper {
	compLog := logger.With().Str("component", "InvoiceSweeper").Logger()
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	return &InvoiceSweeper{interval: interval, invoices: invoices, now: time.Now, log: &compLog}
}

func (w *InvoiceSweeper) Run(ctx context.Context) error {
	w.log.Info().Msg("Starting invoice sweeper")
	// Run once on startup, then on every tick
	w.tick(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Stopping invoice sweeper")
			return ctx.Err()
		case <-ticker.C:
			w.tick(ctx)
		}
	}
}

func (w *InvoiceSweeper) tick(ctx context.Context) {
	expired, reminded, err := w.invoices.SweepOverdue(ctx, w.now())
	if err != nil {
		metrics.IncJobRun("invoice_sweep", "error")
		w.log.Error().Err(err).Msg("invoice sweep failed")
		return
	}
	metrics.IncJobRun("invoice_sweep", "ok")
	if expired+reminded > 0 {
		w.log.Info().Int("expired", expired).Int("reminded", reminded).Msg("invoice sweep done")
	}
}

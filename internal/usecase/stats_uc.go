package usecase

import (
	"context"

	"reseller-billing/internal/domain"
	"reseller-billing/internal/domain/model"
	"reseller-billing/internal/domain/ports/repository"
	"reseller-billing/internal/infra/metrics"

	"github.com/rs/zerolog"
)

// Compile-time check
var _ StatsUseCase = (*statsUC)(nil)

type StatsUseCase interface {
	Totals(ctx context.Context, actor model.Actor) (byTier map[model.Tier]int, byStatus map[model.InvoiceStatus]int, err error)
	Revenue(ctx context.Context, actor model.Actor) (week int64, month int64, year int64, err error)
}

type statsUC struct {
	accounts repository.AccountRepository
	invoices repository.InvoiceRepository

	log *zerolog.Logger
}

func NewStatsUseCase(accounts repository.AccountRepository, invoices repository.InvoiceRepository, logger *zerolog.Logger) *statsUC {
	return &statsUC{accounts: accounts, invoices: invoices, log: logger}
}

func (s *statsUC) Totals(ctx context.Context, actor model.Actor) (map[model.Tier]int, map[model.InvoiceStatus]int, error) {
	if !actor.Can(model.ActionViewSystemLogs) {
		return nil, nil, domain.ErrUnauthorized
	}
	byTier, err := s.accounts.CountByTier(ctx, repository.NoTX)
	if err != nil {
		return nil, nil, err
	}
	byStatus, err := s.invoices.CountByStatus(ctx, repository.NoTX)
	if err != nil {
		return nil, nil, err
	}
	metrics.SetAccountsByTier(byTier)
	return byTier, byStatus, nil
}

func (s *statsUC) Revenue(ctx context.Context, actor model.Actor) (int64, int64, int64, error) {
	if !actor.Can(model.ActionViewSystemLogs) {
		return 0, 0, 0, domain.ErrUnauthorized
	}
	w, err := s.invoices.SumPaidByPeriod(ctx, repository.NoTX, "week")
	if err != nil {
		return 0, 0, 0, err
	}
	m, err := s.invoices.SumPaidByPeriod(ctx, repository.NoTX, "month")
	if err != nil {
		return 0, 0, 0, err
	}
	y, err := s.invoices.SumPaidByPeriod(ctx, repository.NoTX, "year")
	if err != nil {
		return 0, 0, 0, err
	}
	return w, m, y, nil
}

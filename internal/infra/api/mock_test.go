//go:build !integration

package api

import (
	"context"
	"time"

	"reseller-billing/internal/domain"
	"reseller-billing/internal/domain/model"
	uc "reseller-billing/internal/domain/ports/usecase"
	"reseller-billing/internal/usecase"
)

type mockAccounts struct {
	usecase.AccountUseCase
	byID map[string]*model.Account
}

func (m *mockAccounts) Register(_ context.Context, id, email, name string) (*model.Account, error) {
	if acc, ok := m.byID[id]; ok {
		return acc, nil
	}
	acc, err := model.NewAccount(id, email, name)
	if err != nil {
		return nil, err
	}
	m.byID[id] = acc
	return acc, nil
}

func (m *mockAccounts) Get(_ context.Context, actor model.Actor, id string) (*model.Account, error) {
	if !actor.Can(model.ActionManageUsers) {
		return nil, domain.ErrUnauthorized
	}
	acc, ok := m.byID[id]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	return acc, nil
}

type mockInvoices struct {
	usecase.InvoiceUseCase
	createErr error
	created   int
}

func (m *mockInvoices) CreateInvoice(_ context.Context, actor model.Actor, plan model.Tier) (*model.Invoice, error) {
	if m.createErr != nil {
		return nil, m.createErr
	}
	m.created++
	return &model.Invoice{ID: "inv-1", Number: model.FormatInvoiceNumber(int64(m.created)), AccountID: actor.AccountID,
		Plan: plan, Amount: 600, Status: model.InvoiceStatusUnpaid}, nil
}

type mockStats struct {
	usecase.StatsUseCase
}

func (mockStats) Totals(context.Context, model.Actor) (map[model.Tier]int, map[model.InvoiceStatus]int, error) {
	return map[model.Tier]int{model.TierStarterKit: 2}, map[model.InvoiceStatus]int{model.InvoiceStatusPaid: 1}, nil
}

func (mockStats) Revenue(context.Context, model.Actor) (int64, int64, int64, error) {
	return 600, 600, 1200, nil
}

type mockExpiry struct{ runs int }

func (m *mockExpiry) RunOnce(context.Context, time.Time) (uc.ExpiryReport, error) {
	m.runs++
	return uc.ExpiryReport{Downgraded: 1}, nil
}

type mockLimiter struct{ allow bool }

func (m mockLimiter) Allow(context.Context, string, int, time.Duration) (bool, error) {
	return m.allow, nil
}

//go:build integration

package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"reseller-billing/internal/domain"
	"reseller-billing/internal/domain/model"
	"reseller-billing/internal/domain/ports/repository"

	"github.com/jackc/pgx/v4"
)

func TestAccountRepo_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode.")
	}
	ctx := context.Background()
	repo := NewAccountRepo(testPool)
	transitions := NewTierTransitionRepo(testPool)
	tm := NewTxManager(testPool)

	t.Run("should create and find an account", func(t *testing.T) {
		cleanup(t)
		acc, _ := model.NewAccount("", "shop@example.com", "Shop")
		if created, err := repo.Create(ctx, nil, acc); err != nil || !created {
			t.Fatalf("Create failed: created=%v err=%v", created, err)
		}
		got, err := repo.FindByID(ctx, nil, acc.ID)
		if err != nil {
			t.Fatalf("FindByID failed: %v", err)
		}
		if got.Tier != model.TierStarterKit || got.Role != model.RoleUser {
			t.Errorf("unexpected account %+v", got)
		}
	})

	t.Run("should never overwrite an existing account on create", func(t *testing.T) {
		cleanup(t)
		acc, _ := model.NewAccount("", "paid@example.com", "Paid")
		acc.Role, acc.Tier = model.RoleAdmin, model.TierEmpirePlan
		exp := time.Now().Add(24 * time.Hour)
		acc.ExpiresAt = &exp
		if _, err := repo.Create(ctx, nil, acc); err != nil {
			t.Fatalf("Create failed: %v", err)
		}

		fresh, _ := model.NewAccount(acc.ID, "other@example.com", "Other")
		created, err := repo.Create(ctx, nil, fresh)
		if err != nil || created {
			t.Fatalf("expected a no-op create, created=%v err=%v", created, err)
		}
		got, _ := repo.FindByID(ctx, nil, acc.ID)
		if got.Role != model.RoleAdmin || got.Tier != model.TierEmpirePlan || got.ExpiresAt == nil || got.Email != "paid@example.com" {
			t.Errorf("existing account was modified: %+v", got)
		}
	})

	t.Run("should change only the role", func(t *testing.T) {
		cleanup(t)
		acc, _ := model.NewAccount("", "role@example.com", "Role")
		acc.Tier = model.TierDealerPack
		_, _ = repo.Create(ctx, nil, acc)

		if err := repo.UpdateRole(ctx, nil, acc.ID, model.RoleStaff); err != nil {
			t.Fatalf("UpdateRole failed: %v", err)
		}
		got, _ := repo.FindByID(ctx, nil, acc.ID)
		if got.Role != model.RoleStaff || got.Tier != model.TierDealerPack {
			t.Errorf("unexpected account %+v", got)
		}
		if err := repo.UpdateRole(ctx, nil, "missing", model.RoleStaff); !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("expected not found, got %v", err)
		}
	})

	t.Run("should return ErrAccountNotFound for a missing id", func(t *testing.T) {
		cleanup(t)
		_, err := repo.FindByID(ctx, nil, "missing")
		if !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("expected not found, got %v", err)
		}
	})

	t.Run("should downgrade only expired accounts", func(t *testing.T) {
		cleanup(t)
		now := time.Now()
		past, future := now.Add(-time.Hour), now.Add(time.Hour)

		expired, _ := model.NewAccount("", "old@example.com", "Old")
		expired.Tier, expired.ExpiresAt = model.TierEmpirePlan, &past
		active, _ := model.NewAccount("", "new@example.com", "New")
		active.Tier, active.ExpiresAt = model.TierDealerPack, &future
		_, _ = repo.Create(ctx, nil, expired)
		_, _ = repo.Create(ctx, nil, active)

		list, err := repo.ListExpiredBefore(ctx, nil, model.TierStarterKit, now)
		if err != nil {
			t.Fatalf("ListExpiredBefore failed: %v", err)
		}
		if len(list) != 1 || list[0].ID != expired.ID {
			t.Fatalf("expected only the expired account, got %d", len(list))
		}

		ok, err := repo.DowngradeIfExpired(ctx, nil, active.ID, model.TierStarterKit, now)
		if err != nil || ok {
			t.Errorf("active account must not be downgraded, ok=%v err=%v", ok, err)
		}
		ok, err = repo.DowngradeIfExpired(ctx, nil, expired.ID, model.TierStarterKit, now)
		if err != nil || !ok {
			t.Fatalf("expected downgrade, ok=%v err=%v", ok, err)
		}
		ok, _ = repo.DowngradeIfExpired(ctx, nil, expired.ID, model.TierStarterKit, now)
		if ok {
			t.Error("second downgrade should be a no-op")
		}
		got, _ := repo.FindByID(ctx, nil, expired.ID)
		if got.Tier != model.TierStarterKit || got.ExpiresAt != nil {
			t.Errorf("unexpected state after downgrade: %+v", got)
		}
	})

	t.Run("should append transitions inside a transaction", func(t *testing.T) {
		cleanup(t)
		acc, _ := model.NewAccount("", "tx@example.com", "Tx")
		_, _ = repo.Create(ctx, nil, acc)

		err := tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
			exp := time.Now().Add(30 * 24 * time.Hour)
			if err := repo.UpdateTier(ctx, tx, acc.ID, model.TierDealerPack, &exp); err != nil {
				return err
			}
			return transitions.Append(ctx, tx, model.NewTierTransition(acc.ID, model.TierStarterKit, model.TierDealerPack, model.TransitionUpgraded, "invoice INV-000001", "admin-1"))
		})
		if err != nil {
			t.Fatalf("WithTx failed: %v", err)
		}
		hist, err := transitions.ListByAccount(ctx, nil, acc.ID)
		if err != nil || len(hist) != 1 {
			t.Fatalf("expected one transition, got %d (%v)", len(hist), err)
		}
		if hist[0].Action != model.TransitionUpgraded || hist[0].ActorID != "admin-1" {
			t.Errorf("unexpected transition %+v", hist[0])
		}
		counts, _ := repo.CountByTier(ctx, nil)
		if counts[model.TierDealerPack] != 1 {
			t.Errorf("expected one dealer_pack account, got %v", counts)
		}
	})

	t.Run("should run commit hooks only after a successful commit", func(t *testing.T) {
		cleanup(t)
		ran := 0
		err := tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
			repository.AfterCommit(ctx, func(context.Context) { ran++ })
			if ran != 0 {
				t.Error("hook ran before commit")
			}
			return nil
		})
		if err != nil || ran != 1 {
			t.Fatalf("expected one hook run after commit, ran=%d err=%v", ran, err)
		}

		boom := errors.New("boom")
		err = tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
			repository.AfterCommit(ctx, func(context.Context) { ran++ })
			return boom
		})
		if !errors.Is(err, boom) || ran != 1 {
			t.Fatalf("hook must not run on rollback, ran=%d err=%v", ran, err)
		}
	})
}

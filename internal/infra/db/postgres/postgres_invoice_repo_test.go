//go:build integration

package postgres

import (
	"context"
	"sync"
	"testing"
	"time"

	"reseller-billing/internal/domain/model"

	"github.com/google/uuid"
)

func TestInvoiceRepo_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode.")
	}
	ctx := context.Background()
	repo := NewInvoiceRepo(testPool)
	accounts := NewAccountRepo(testPool)

	acc, _ := model.NewAccount("", "inv@example.com", "Invoices")
	setup := func(t *testing.T) {
		cleanup(t)
		if _, err := accounts.Create(ctx, nil, acc); err != nil {
			t.Fatalf("failed to save account: %v", err)
		}
	}
	newInvoice := func(t *testing.T, due time.Time) *model.Invoice {
		t.Helper()
		seq, err := repo.NextNumber(ctx, nil)
		if err != nil {
			t.Fatalf("NextNumber failed: %v", err)
		}
		inv := &model.Invoice{
			ID: uuid.NewString(), Number: model.FormatInvoiceNumber(seq), AccountID: acc.ID,
			Plan: model.TierDealerPack, Amount: 600, Currency: "PKR", Status: model.InvoiceStatusUnpaid,
			InvoiceDate: time.Now(), DueDate: due, UpdatedAt: time.Now(),
		}
		if err := repo.Save(ctx, nil, inv); err != nil {
			t.Fatalf("Save failed: %v", err)
		}
		return inv
	}

	t.Run("should hand out distinct numbers under concurrency", func(t *testing.T) {
		setup(t)
		var mu sync.Mutex
		seen := map[int64]bool{}
		var wg sync.WaitGroup
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				n, err := repo.NextNumber(ctx, nil)
				if err != nil {
					t.Errorf("NextNumber failed: %v", err)
					return
				}
				mu.Lock()
				seen[n] = true
				mu.Unlock()
			}()
		}
		wg.Wait()
		if len(seen) != 20 {
			t.Errorf("expected 20 distinct numbers, got %d", len(seen))
		}
	})

	t.Run("should move UNPAID to PAID exactly once", func(t *testing.T) {
		setup(t)
		inv := newInvoice(t, time.Now().Add(72*time.Hour))
		admin, now := "admin-1", time.Now()

		ok, err := repo.UpdateStatusIfUnpaid(ctx, nil, inv.ID, model.InvoiceStatusPaid, &admin, &now)
		if err != nil || !ok {
			t.Fatalf("first update failed, ok=%v err=%v", ok, err)
		}
		ok, _ = repo.UpdateStatusIfUnpaid(ctx, nil, inv.ID, model.InvoiceStatusExpired, nil, nil)
		if ok {
			t.Error("PAID invoice must not move again")
		}
		got, _ := repo.FindByID(ctx, nil, inv.ID)
		if got.Status != model.InvoiceStatusPaid || got.VerifiedBy == nil || *got.VerifiedBy != admin {
			t.Errorf("unexpected invoice %+v", got)
		}
		sum, err := repo.SumPaidByPeriod(ctx, nil, "month")
		if err != nil || sum != 600 {
			t.Errorf("expected 600 paid this month, got %d (%v)", sum, err)
		}
	})

	t.Run("should refuse evidence on a terminal invoice", func(t *testing.T) {
		setup(t)
		inv := newInvoice(t, time.Now().Add(72*time.Hour))
		ref := "TX-1"
		ok, err := repo.SetEvidence(ctx, nil, inv.ID, &ref, nil)
		if err != nil || !ok {
			t.Fatalf("expected evidence to be stored, ok=%v err=%v", ok, err)
		}
		_ = repo.ForceStatus(ctx, nil, inv.ID, model.InvoiceStatusExpired, "admin-1")
		ok, _ = repo.SetEvidence(ctx, nil, inv.ID, &ref, nil)
		if ok {
			t.Error("evidence on an EXPIRED invoice must be refused")
		}
	})

	t.Run("should list overdue unpaid invoices", func(t *testing.T) {
		setup(t)
		overdue := newInvoice(t, time.Now().Add(-time.Hour))
		_ = newInvoice(t, time.Now().Add(48*time.Hour))

		list, err := repo.ListUnpaidDueBefore(ctx, nil, time.Now(), 10)
		if err != nil {
			t.Fatalf("ListUnpaidDueBefore failed: %v", err)
		}
		if len(list) != 1 || list[0].ID != overdue.ID {
			t.Errorf("expected only the overdue invoice, got %d", len(list))
		}
		counts, _ := repo.CountByStatus(ctx, nil)
		if counts[model.InvoiceStatusUnpaid] != 2 {
			t.Errorf("expected 2 unpaid, got %v", counts)
		}
	})
}

package repository

import (
	"context"
	"time"

	"reseller-billing/internal/domain/model"
)

// -----------------------------
// Invoices
// -----------------------------

type InvoiceRepository interface {
	// NextNumber allocates the next value of the shared invoice sequence.
	NextNumber(ctx context.Context, tx Tx) (int64, error)
	Save(ctx context.Context, tx Tx, inv *model.Invoice) error
	// FindByID locks the row when called inside a transaction.
	FindByID(ctx context.Context, tx Tx, id string) (*model.Invoice, error)
	ListByAccount(ctx context.Context, tx Tx, accountID string) ([]*model.Invoice, error)
	ListByStatus(ctx context.Context, tx Tx, status model.InvoiceStatus, limit int) ([]*model.Invoice, error)
	// ListUnpaidDueBefore returns UNPAID invoices with due_date < before.
	ListUnpaidDueBefore(ctx context.Context, tx Tx, before time.Time, limit int) ([]*model.Invoice, error)
	// SetEvidence stores proof URL and/or transaction id while the invoice is UNPAID.
	SetEvidence(ctx context.Context, tx Tx, id string, transactionID, proofURL *string) (bool, error)
	// UpdateStatusIfUnpaid atomically moves an UNPAID invoice to status.
	UpdateStatusIfUnpaid(ctx context.Context, tx Tx, id string, status model.InvoiceStatus, verifiedBy *string, paidAt *time.Time) (bool, error)
	// ForceStatus sets status with no guard.
	ForceStatus(ctx context.Context, tx Tx, id string, status model.InvoiceStatus, actorID string) error
	Delete(ctx context.Context, tx Tx, id string) error

	// --- Statistics read-only methods ---
	CountByStatus(ctx context.Context, tx Tx) (map[model.InvoiceStatus]int, error)
	// SumPaidByPeriod sums PAID amounts since the start of the current week|month|year.
	SumPaidByPeriod(ctx context.Context, tx Tx, period string) (int64, error)
}

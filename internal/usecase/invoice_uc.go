// File: internal/usecase/invoice_uc.go
package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"reseller-billing/internal/domain"
	"reseller-billing/internal/domain/model"
	"reseller-billing/internal/domain/ports/adapter"
	"reseller-billing/internal/domain/ports/repository"
	"reseller-billing/internal/infra/metrics"
)

// Compile-time check
var _ InvoiceUseCase = (*invoiceUC)(nil)

type InvoiceUseCase interface {
	CreateInvoice(ctx context.Context, actor model.Actor, plan model.Tier) (*model.Invoice, error)
	AttachPaymentEvidence(ctx context.Context, actor model.Actor, invoiceID string, ev PaymentEvidence) (*model.Invoice, error)
	VerifyAndMarkPaid(ctx context.Context, actor model.Actor, invoiceID string) (*model.Invoice, error)
	MarkExpired(ctx context.Context, actor model.Actor, invoiceID string) (*model.Invoice, error)
	DeleteInvoice(ctx context.Context, actor model.Actor, invoiceID string) error
	ForceStatus(ctx context.Context, actor model.Actor, invoiceID string, status model.InvoiceStatus) (*model.Invoice, error)

	Get(ctx context.Context, actor model.Actor, invoiceID string) (*model.Invoice, error)
	ListMine(ctx context.Context, actor model.Actor) ([]*model.Invoice, error)
	ListByStatus(ctx context.Context, actor model.Actor, status model.InvoiceStatus, limit int) ([]*model.Invoice, error)

	// SweepOverdue expires UNPAID invoices past due and reminds owners of invoices due within a day.
	SweepOverdue(ctx context.Context, now time.Time) (expired int, reminded int, err error)
}

// PaymentEvidence is what a payer attaches to an UNPAID invoice. The system never
// checks it; an administrator reviews it before VerifyAndMarkPaid.
type PaymentEvidence struct {
	TransactionID string
	Proof         io.Reader
	ProofName     string
	ContentType   string
}

type invoiceUC struct {
	catalog       *model.TierCatalog
	invoices      repository.InvoiceRepository
	accounts      repository.AccountRepository
	transitions   repository.TierTransitionRepository
	notifications repository.NotificationRepository
	outbox        repository.OutboxRepository
	storage       adapter.FileStorage
	tm            repository.TransactionManager
	log           *zerolog.Logger
}

func NewInvoiceUseCase(
	catalog *model.TierCatalog,
	invoices repository.InvoiceRepository,
	accounts repository.AccountRepository,
	transitions repository.TierTransitionRepository,
	notifications repository.NotificationRepository,
	outbox repository.OutboxRepository,
	storage adapter.FileStorage,
	tm repository.TransactionManager,
	logger *zerolog.Logger,
) *invoiceUC {
	compLog := logger.With().Str("component", "InvoiceUseCase").Logger()
	return &invoiceUC{
		catalog:       catalog,
		invoices:      invoices,
		accounts:      accounts,
		transitions:   transitions,
		notifications: notifications,
		outbox:        outbox,
		storage:       storage,
		tm:            tm,
		log:           &compLog,
	}
}

func (u *invoiceUC) CreateInvoice(ctx context.Context, actor model.Actor, plan model.Tier) (*model.Invoice, error) {
	if !actor.Can(model.ActionRequestUpgrade) {
		return nil, domain.ErrUnauthorized
	}
	if !plan.Valid() {
		return nil, fmt.Errorf("%w: unknown plan %q", domain.ErrInvalidPlanTransition, string(plan))
	}
	if plan == u.catalog.Lowest() {
		return nil, fmt.Errorf("%w: %s is free and cannot be purchased", domain.ErrInvalidPlanTransition, plan)
	}

	var inv *model.Invoice
	err := u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		acc, err := u.accounts.FindByID(ctx, tx, actor.AccountID)
		if err != nil {
			return err
		}
		if acc.Tier == plan {
			return fmt.Errorf("%w: account is already on %s", domain.ErrInvalidPlanTransition, plan)
		}

		seq, err := u.invoices.NextNumber(ctx, tx)
		if err != nil {
			return err
		}
		now := time.Now()
		inv = &model.Invoice{
			ID:          uuid.NewString(),
			Number:      model.FormatInvoiceNumber(seq),
			AccountID:   acc.ID,
			Plan:        plan,
			Amount:      u.catalog.PriceOf(plan),
			Currency:    u.catalog.Currency(),
			Status:      model.InvoiceStatusUnpaid,
			InvoiceDate: now,
			DueDate:     now.Add(model.InvoiceDueAfter),
			UpdatedAt:   now,
		}
		return u.invoices.Save(ctx, tx, inv)
	})
	if err != nil {
		return nil, err
	}

	metrics.IncInvoiceCreated(string(plan))
	u.log.Info().Str("invoice", inv.Number).Str("account_id", inv.AccountID).Str("plan", string(plan)).Int64("amount", inv.Amount).Msg("invoice created")
	return inv, nil
}

func (u *invoiceUC) AttachPaymentEvidence(ctx context.Context, actor model.Actor, invoiceID string, ev PaymentEvidence) (*model.Invoice, error) {
	inv, err := u.invoices.FindByID(ctx, repository.NoTX, invoiceID)
	if err != nil {
		return nil, err
	}
	if inv.AccountID != actor.AccountID {
		return nil, domain.ErrInvoiceNotFound
	}
	if inv.Status != model.InvoiceStatusUnpaid {
		return nil, domain.ErrInvalidInvoiceState
	}

	var txID, proofURL *string
	if s := strings.TrimSpace(ev.TransactionID); s != "" {
		txID = &s
	}
	if ev.Proof != nil {
		if u.storage == nil {
			return nil, fmt.Errorf("%w: file storage is not configured", domain.ErrOperationFailed)
		}
		key := path.Join(inv.AccountID, inv.ID, uuid.NewString()+path.Ext(ev.ProofName))
		url, err := u.storage.Upload(ctx, key, ev.ContentType, ev.Proof)
		if err != nil {
			u.log.Error().Err(err).Str("invoice", inv.Number).Msg("payment proof upload failed")
			return nil, fmt.Errorf("upload payment proof: %w", domain.ErrOperationFailed)
		}
		proofURL = &url
	}
	if txID == nil && proofURL == nil {
		return nil, fmt.Errorf("%w: transaction id or payment proof required", domain.ErrInvalidArgument)
	}

	ok, err := u.invoices.SetEvidence(ctx, repository.NoTX, inv.ID, txID, proofURL)
	if err != nil {
		return nil, err
	}
	if !ok {
		// status moved on between the read and the write
		return nil, domain.ErrInvalidInvoiceState
	}
	if txID != nil {
		inv.TransactionID = txID
	}
	if proofURL != nil {
		inv.PaymentProofURL = proofURL
	}
	u.log.Info().Str("invoice", inv.Number).Bool("proof", proofURL != nil).Bool("transaction_id", txID != nil).Msg("payment evidence attached")
	return inv, nil
}

// VerifyAndMarkPaid applies the paid invoice to the account in one transaction.
// Calling it again on a PAID invoice is a no-op.
func (u *invoiceUC) VerifyAndMarkPaid(ctx context.Context, actor model.Actor, invoiceID string) (*model.Invoice, error) {
	if !actor.Can(model.ActionVerifyPayments) {
		return nil, domain.ErrUnauthorized
	}

	applied := false
	err := u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		inv, err := u.invoices.FindByID(ctx, tx, invoiceID)
		if err != nil {
			return err
		}
		switch inv.Status {
		case model.InvoiceStatusPaid:
			return nil
		case model.InvoiceStatusExpired:
			return domain.ErrInvalidInvoiceState
		}

		now := time.Now()
		verifier := actor.AccountID
		ok, err := u.invoices.UpdateStatusIfUnpaid(ctx, tx, inv.ID, model.InvoiceStatusPaid, &verifier, &now)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}

		acc, err := u.accounts.FindByID(ctx, tx, inv.AccountID)
		if err != nil {
			return err
		}
		expires := now.Add(time.Duration(u.catalog.DurationDaysOf(inv.Plan)) * 24 * time.Hour)
		if err := u.accounts.UpdateTier(ctx, tx, acc.ID, inv.Plan, &expires); err != nil {
			return err
		}
		reason := fmt.Sprintf("invoice %s paid", inv.Number)
		if err := u.transitions.Append(ctx, tx, model.NewTierTransition(acc.ID, acc.Tier, inv.Plan, model.TransitionUpgraded, reason, verifier)); err != nil {
			return err
		}

		planName := u.catalog.Plan(inv.Plan).Name
		n := model.NewNotification(acc.ID, model.NotificationPaymentConfirmed, "Payment confirmed",
			paymentConfirmedMessage(inv.Number, planName, expires))
		if _, err := u.notifications.CreateIfAbsent(ctx, tx, n, nil); err != nil {
			return err
		}
		if err := u.outbox.Enqueue(ctx, tx, model.NewOutboxEvent(model.OutboxPaymentConfirmed, acc.ID, map[string]interface{}{
			"invoice_number": inv.Number,
			"plan":           string(inv.Plan),
			"plan_name":      planName,
			"amount":         inv.Amount,
			"currency":       inv.Currency,
			"expires_at":     expires.Format(time.RFC3339),
		})); err != nil {
			return err
		}
		applied = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	inv, err := u.invoices.FindByID(ctx, repository.NoTX, invoiceID)
	if err != nil {
		return nil, err
	}
	if applied {
		metrics.IncInvoiceTransition(string(model.InvoiceStatusPaid))
		metrics.AddInvoiceRevenue(inv.Currency, inv.Amount)
		u.log.Info().Str("invoice", inv.Number).Str("account_id", inv.AccountID).Str("verified_by", actor.AccountID).Msg("invoice paid, tier upgraded")
	} else {
		u.log.Debug().Str("invoice", inv.Number).Msg("invoice already paid; nothing to apply")
	}
	return inv, nil
}

// MarkExpired closes an UNPAID invoice. The account tier is untouched.
func (u *invoiceUC) MarkExpired(ctx context.Context, actor model.Actor, invoiceID string) (*model.Invoice, error) {
	if !actor.Can(model.ActionVerifyPayments) {
		return nil, domain.ErrUnauthorized
	}
	if _, err := u.expire(ctx, invoiceID); err != nil {
		return nil, err
	}
	return u.invoices.FindByID(ctx, repository.NoTX, invoiceID)
}

func (u *invoiceUC) expire(ctx context.Context, invoiceID string) (bool, error) {
	inv, err := u.invoices.FindByID(ctx, repository.NoTX, invoiceID)
	if err != nil {
		return false, err
	}
	switch inv.Status {
	case model.InvoiceStatusExpired:
		return false, nil
	case model.InvoiceStatusPaid:
		return false, domain.ErrInvalidInvoiceState
	}
	ok, err := u.invoices.UpdateStatusIfUnpaid(ctx, repository.NoTX, inv.ID, model.InvoiceStatusExpired, nil, nil)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, domain.ErrInvalidInvoiceState
	}
	metrics.IncInvoiceTransition(string(model.InvoiceStatusExpired))
	u.log.Info().Str("invoice", inv.Number).Msg("invoice expired")
	return true, nil
}

func (u *invoiceUC) DeleteInvoice(ctx context.Context, actor model.Actor, invoiceID string) error {
	if !actor.Can(model.ActionManageSubscriptions) {
		return domain.ErrUnauthorized
	}
	inv, err := u.invoices.FindByID(ctx, repository.NoTX, invoiceID)
	if err != nil {
		return err
	}
	if err := u.invoices.Delete(ctx, repository.NoTX, inv.ID); err != nil {
		return err
	}
	u.log.Warn().Str("invoice", inv.Number).Str("status", string(inv.Status)).Str("actor", actor.AccountID).Msg("invoice hard-deleted")
	return nil
}

// ForceStatus is the administrative escape hatch: any status, no guards, no account effects.
func (u *invoiceUC) ForceStatus(ctx context.Context, actor model.Actor, invoiceID string, status model.InvoiceStatus) (*model.Invoice, error) {
	if !actor.Can(model.ActionManageSubscriptions) {
		return nil, domain.ErrUnauthorized
	}
	inv, err := u.invoices.FindByID(ctx, repository.NoTX, invoiceID)
	if err != nil {
		return nil, err
	}
	if err := u.invoices.ForceStatus(ctx, repository.NoTX, inv.ID, status, actor.AccountID); err != nil {
		return nil, err
	}
	u.log.Warn().Str("invoice", inv.Number).Str("from", string(inv.Status)).Str("to", string(status)).Str("actor", actor.AccountID).Msg("invoice status forced")
	return u.invoices.FindByID(ctx, repository.NoTX, invoiceID)
}

func (u *invoiceUC) Get(ctx context.Context, actor model.Actor, invoiceID string) (*model.Invoice, error) {
	inv, err := u.invoices.FindByID(ctx, repository.NoTX, invoiceID)
	if err != nil {
		return nil, err
	}
	// Non-owners get the same answer as for a missing invoice.
	if inv.AccountID != actor.AccountID && !actor.Can(model.ActionVerifyPayments) {
		return nil, domain.ErrInvoiceNotFound
	}
	return inv, nil
}

func (u *invoiceUC) ListMine(ctx context.Context, actor model.Actor) ([]*model.Invoice, error) {
	return u.invoices.ListByAccount(ctx, repository.NoTX, actor.AccountID)
}

func (u *invoiceUC) ListByStatus(ctx context.Context, actor model.Actor, status model.InvoiceStatus, limit int) ([]*model.Invoice, error) {
	if !actor.Can(model.ActionVerifyPayments) {
		return nil, domain.ErrUnauthorized
	}
	return u.invoices.ListByStatus(ctx, repository.NoTX, status, limit)
}

const sweepBatch = 200

func (u *invoiceUC) SweepOverdue(ctx context.Context, now time.Time) (int, int, error) {
	overdue, err := u.invoices.ListUnpaidDueBefore(ctx, repository.NoTX, now, sweepBatch)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return 0, 0, err
	}
	expired := 0
	for _, inv := range overdue {
		ok, err := u.expire(ctx, inv.ID)
		if err != nil {
			u.log.Error().Err(err).Str("invoice", inv.Number).Msg("expire overdue invoice failed")
			continue
		}
		if ok {
			expired++
		}
	}

	dueSoon, err := u.invoices.ListUnpaidDueBefore(ctx, repository.NoTX, now.Add(24*time.Hour), sweepBatch)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return expired, 0, err
	}
	reminded := 0
	for _, inv := range dueSoon {
		if inv.Overdue(now) {
			continue
		}
		sent, err := u.remind(ctx, inv)
		if err != nil {
			u.log.Error().Err(err).Str("invoice", inv.Number).Msg("payment reminder failed")
			continue
		}
		if sent {
			reminded++
		}
	}
	return expired, reminded, nil
}

func (u *invoiceUC) remind(ctx context.Context, inv *model.Invoice) (bool, error) {
	sent := false
	err := u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		n := model.NewNotification(inv.AccountID, model.NotificationPaymentReminder, "Payment reminder",
			paymentReminderMessage(inv.Number, inv.Amount, inv.Currency, inv.DueDate))
		created, err := u.notifications.CreateIfAbsent(ctx, tx, n, nil)
		if err != nil || !created {
			return err
		}
		sent = true
		return u.outbox.Enqueue(ctx, tx, model.NewOutboxEvent(model.OutboxPaymentReminder, inv.AccountID, map[string]interface{}{
			"invoice_number": inv.Number,
			"amount":         inv.Amount,
			"currency":       inv.Currency,
			"due_date":       inv.DueDate.Format(time.RFC3339),
		}))
	})
	return sent, err
}

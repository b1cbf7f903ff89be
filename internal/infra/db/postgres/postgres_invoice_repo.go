package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"reseller-billing/internal/domain"
	"reseller-billing/internal/domain/model"
	"reseller-billing/internal/domain/ports/repository"
)

var _ repository.InvoiceRepository = (*invoiceRepo)(nil)

type invoiceRepo struct{ pool *pgxpool.Pool }

func NewInvoiceRepo(pool *pgxpool.Pool) *invoiceRepo {
	return &invoiceRepo{pool: pool}
}

const invoiceColumns = `id, number, account_id, plan, amount, currency, status, invoice_date, due_date, transaction_id, payment_proof_url, verified_by, paid_at, updated_at`

func scanInvoice(row pgx.Row) (*model.Invoice, error) {
	inv := &model.Invoice{}
	var plan, status string
	if err := row.Scan(&inv.ID, &inv.Number, &inv.AccountID, &plan, &inv.Amount, &inv.Currency, &status, &inv.InvoiceDate, &inv.DueDate, &inv.TransactionID, &inv.PaymentProofURL, &inv.VerifiedBy, &inv.PaidAt, &inv.UpdatedAt); err != nil {
		return nil, err
	}
	inv.Plan, inv.Status = model.Tier(plan), model.InvoiceStatus(status)
	return inv, nil
}

// NextNumber draws from invoice_number_seq; values are unique across concurrent callers.
func (r *invoiceRepo) NextNumber(ctx context.Context, tx repository.Tx) (int64, error) {
	row, err := pickRow(ctx, r.pool, tx, `SELECT nextval('invoice_number_seq');`)
	if err != nil {
		return 0, err
	}
	var n int64
	if err := row.Scan(&n); err != nil {
		return 0, domain.ErrOperationFailed
	}
	return n, nil
}

func (r *invoiceRepo) Save(ctx context.Context, tx repository.Tx, inv *model.Invoice) error {
	const q = `
INSERT INTO invoices (` + invoiceColumns + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14);`
	_, err := execSQL(ctx, r.pool, tx, q, inv.ID, inv.Number, inv.AccountID, string(inv.Plan), inv.Amount, inv.Currency, string(inv.Status), inv.InvoiceDate, inv.DueDate, inv.TransactionID, inv.PaymentProofURL, inv.VerifiedBy, inv.PaidAt, inv.UpdatedAt)
	return mapExecErr(err)
}

func (r *invoiceRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Invoice, error) {
	q := forUpdate(`SELECT `+invoiceColumns+` FROM invoices WHERE id=$1`, tx)
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	inv, err := scanInvoice(row)
	if err != nil {
		return nil, mapScanErr(err, domain.ErrInvoiceNotFound)
	}
	return inv, nil
}

func (r *invoiceRepo) ListByAccount(ctx context.Context, tx repository.Tx, accountID string) ([]*model.Invoice, error) {
	const q = `SELECT ` + invoiceColumns + ` FROM invoices WHERE account_id=$1 ORDER BY invoice_date DESC;`
	return r.list(ctx, tx, q, accountID)
}

func (r *invoiceRepo) ListByStatus(ctx context.Context, tx repository.Tx, status model.InvoiceStatus, limit int) ([]*model.Invoice, error) {
	if limit <= 0 {
		limit = 100
	}
	const q = `SELECT ` + invoiceColumns + ` FROM invoices WHERE status=$1 ORDER BY invoice_date DESC LIMIT $2;`
	return r.list(ctx, tx, q, string(status), limit)
}

func (r *invoiceRepo) ListUnpaidDueBefore(ctx context.Context, tx repository.Tx, before time.Time, limit int) ([]*model.Invoice, error) {
	if limit <= 0 {
		limit = 100
	}
	const q = `SELECT ` + invoiceColumns + ` FROM invoices
WHERE status='UNPAID' AND due_date < $1 ORDER BY due_date ASC LIMIT $2;`
	return r.list(ctx, tx, q, before, limit)
}

func (r *invoiceRepo) list(ctx context.Context, tx repository.Tx, q string, args ...interface{}) ([]*model.Invoice, error) {
	rows, err := queryRows(ctx, r.pool, tx, q, args...)
	if err != nil {
		return nil, mapExecErr(err)
	}
	defer rows.Close()

	var out []*model.Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		out = append(out, inv)
	}
	if rows.Err() != nil {
		return nil, domain.ErrOperationFailed
	}
	return out, nil
}

func (r *invoiceRepo) SetEvidence(ctx context.Context, tx repository.Tx, id string, transactionID, proofURL *string) (bool, error) {
	const q = `
    UPDATE invoices
       SET transaction_id = COALESCE($2, transaction_id),
           payment_proof_url = COALESCE($3, payment_proof_url),
           updated_at = NOW()
     WHERE id = $1
       AND status = 'UNPAID'`
	cmd, err := execSQL(ctx, r.pool, tx, q, id, transactionID, proofURL)
	if err != nil {
		return false, mapExecErr(err)
	}
	return cmd.RowsAffected() >= 1, nil
}

// UpdateStatusIfUnpaid atomically moves the invoice out of UNPAID; a second
// caller racing on the same row sees zero rows affected.
func (r *invoiceRepo) UpdateStatusIfUnpaid(
	ctx context.Context, tx repository.Tx, id string, status model.InvoiceStatus, verifiedBy *string, paidAt *time.Time,
) (bool, error) {
	const q = `
    UPDATE invoices
       SET status = $2,
           verified_by = COALESCE($3, verified_by),
           paid_at = COALESCE($4, paid_at),
           updated_at = NOW()
     WHERE id = $1
       AND status = 'UNPAID'`
	cmd, err := execSQL(ctx, r.pool, tx, q, id, string(status), verifiedBy, paidAt)
	if err != nil {
		return false, mapExecErr(err)
	}
	return cmd.RowsAffected() >= 1, nil
}

func (r *invoiceRepo) ForceStatus(ctx context.Context, tx repository.Tx, id string, status model.InvoiceStatus, actorID string) error {
	const q = `UPDATE invoices SET status=$2, verified_by=NULLIF($3,''), updated_at=NOW() WHERE id=$1;`
	cmd, err := execSQL(ctx, r.pool, tx, q, id, string(status), actorID)
	if err != nil {
		return mapExecErr(err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrInvoiceNotFound
	}
	return nil
}

func (r *invoiceRepo) Delete(ctx context.Context, tx repository.Tx, id string) error {
	cmd, err := execSQL(ctx, r.pool, tx, `DELETE FROM invoices WHERE id=$1;`, id)
	if err != nil {
		return mapExecErr(err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrInvoiceNotFound
	}
	return nil
}

func (r *invoiceRepo) CountByStatus(ctx context.Context, tx repository.Tx) (map[model.InvoiceStatus]int, error) {
	rows, err := queryRows(ctx, r.pool, tx, `SELECT status, COUNT(*) FROM invoices GROUP BY status;`)
	if err != nil {
		return nil, mapExecErr(err)
	}
	defer rows.Close()

	out := make(map[model.InvoiceStatus]int, 3)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		out[model.InvoiceStatus(status)] = n
	}
	return out, nil
}

func (r *invoiceRepo) SumPaidByPeriod(ctx context.Context, tx repository.Tx, period string) (int64, error) {
	switch period {
	case "week", "month", "year":
	default:
		return 0, fmt.Errorf("%w: period %q", domain.ErrInvalidArgument, period)
	}
	const q = `SELECT COALESCE(SUM(amount),0) FROM invoices WHERE status='PAID' AND paid_at >= DATE_TRUNC($1, NOW());`
	row, err := pickRow(ctx, r.pool, tx, q, period)
	if err != nil {
		return 0, err
	}
	var sum int64
	if err := row.Scan(&sum); err != nil {
		return 0, domain.ErrReadDatabaseRow
	}
	return sum, nil
}

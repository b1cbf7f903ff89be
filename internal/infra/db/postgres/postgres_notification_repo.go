package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"reseller-billing/internal/domain"
	"reseller-billing/internal/domain/model"
	"reseller-billing/internal/domain/ports/repository"
)

var _ repository.NotificationRepository = (*notificationRepo)(nil)

type notificationRepo struct{ pool *pgxpool.Pool }

func NewNotificationRepo(pool *pgxpool.Pool) *notificationRepo {
	return &notificationRepo{pool: pool}
}

// CreateIfAbsent takes a transaction-scoped advisory lock on the dedup key
// before the existence check. Under READ COMMITTED a second caller blocks on
// the lock and its INSERT snapshot then sees the first caller's committed row.
// Without a caller transaction a short one is opened here.
func (r *notificationRepo) CreateIfAbsent(ctx context.Context, tx repository.Tx, n *model.Notification, since *time.Time) (bool, error) {
	if t, ok := tx.(pgx.Tx); ok {
		return r.createLocked(ctx, t, n, since)
	}
	t, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return false, mapExecErr(err)
	}
	defer func() { _ = t.Rollback(ctx) }()

	created, err := r.createLocked(ctx, t, n, since)
	if err != nil {
		return false, err
	}
	if err := t.Commit(ctx); err != nil {
		return false, mapExecErr(err)
	}
	return created, nil
}

func (r *notificationRepo) createLocked(ctx context.Context, tx pgx.Tx, n *model.Notification, since *time.Time) (bool, error) {
	const lockQ = `SELECT pg_advisory_xact_lock(hashtext('notifications'), hashtext($1));`
	key := n.AccountID + "|" + string(n.Type) + "|" + n.Message
	if _, err := tx.Exec(ctx, lockQ, key); err != nil {
		return false, mapExecErr(err)
	}

	const q = `
INSERT INTO notifications (id, account_id, type, title, message, is_read, created_at)
SELECT $1::text, $2::text, $3::text, $4::text, $5::text, FALSE, $6::timestamptz
 WHERE NOT EXISTS (
   SELECT 1 FROM notifications
    WHERE account_id=$2 AND type=$3 AND message=$5 AND is_read=FALSE
      AND ($7::timestamptz IS NULL OR created_at >= $7)
 );`
	cmd, err := tx.Exec(ctx, q, n.ID, n.AccountID, string(n.Type), n.Title, n.Message, n.CreatedAt, since)
	if err != nil {
		return false, mapExecErr(err)
	}
	return cmd.RowsAffected() >= 1, nil
}

func (r *notificationRepo) ListByAccount(ctx context.Context, tx repository.Tx, accountID string, unreadOnly bool, limit int) ([]*model.Notification, error) {
	if limit <= 0 {
		limit = 50
	}
	const q = `
SELECT id, account_id, type, title, message, is_read, created_at
  FROM notifications
 WHERE account_id=$1 AND ($2 = FALSE OR is_read = FALSE)
 ORDER BY created_at DESC LIMIT $3;`
	rows, err := queryRows(ctx, r.pool, tx, q, accountID, unreadOnly, limit)
	if err != nil {
		return nil, mapExecErr(err)
	}
	defer rows.Close()

	var out []*model.Notification
	for rows.Next() {
		n := new(model.Notification)
		var typ string
		if err := rows.Scan(&n.ID, &n.AccountID, &typ, &n.Title, &n.Message, &n.IsRead, &n.CreatedAt); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		n.Type = model.NotificationType(typ)
		out = append(out, n)
	}
	return out, nil
}

func (r *notificationRepo) MarkRead(ctx context.Context, tx repository.Tx, accountID, id string) error {
	cmd, err := execSQL(ctx, r.pool, tx, `UPDATE notifications SET is_read=TRUE WHERE id=$1 AND account_id=$2;`, id, accountID)
	if err != nil {
		return mapExecErr(err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

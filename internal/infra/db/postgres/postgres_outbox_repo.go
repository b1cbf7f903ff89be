package postgres

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"reseller-billing/internal/domain"
	"reseller-billing/internal/domain/model"
	"reseller-billing/internal/domain/ports/repository"
)

var _ repository.OutboxRepository = (*outboxRepo)(nil)

type outboxRepo struct{ pool *pgxpool.Pool }

func NewOutboxRepo(pool *pgxpool.Pool) *outboxRepo {
	return &outboxRepo{pool: pool}
}

func (r *outboxRepo) Enqueue(ctx context.Context, tx repository.Tx, e *model.OutboxEvent) error {
	payload, err := json.Marshal(e.Payload)
	if err != nil {
		return domain.ErrInvalidArgument
	}
	const q = `
INSERT INTO outbox_events (id, kind, account_id, payload, attempts, created_at)
VALUES ($1,$2,$3,$4::jsonb,0,$5);`
	_, err = execSQL(ctx, r.pool, tx, q, e.ID, string(e.Kind), e.AccountID, string(payload), e.CreatedAt)
	return mapExecErr(err)
}

// ListPending returns undelivered events oldest first. SKIP LOCKED lets
// several dispatchers share the table when called inside a transaction.
func (r *outboxRepo) ListPending(ctx context.Context, tx repository.Tx, maxAttempts, limit int) ([]*model.OutboxEvent, error) {
	if limit <= 0 {
		limit = 100
	}
	if maxAttempts <= 0 {
		maxAttempts = 1
	}
	q := `
SELECT id, kind, account_id, payload, attempts, last_error, created_at
  FROM outbox_events
 WHERE sent_at IS NULL AND failed_at IS NULL AND attempts < $1
 ORDER BY id ASC LIMIT $2`
	if _, ok := tx.(pgx.Tx); ok {
		q += " FOR UPDATE SKIP LOCKED"
	}
	rows, err := queryRows(ctx, r.pool, tx, q, maxAttempts, limit)
	if err != nil {
		return nil, mapExecErr(err)
	}
	defer rows.Close()

	var out []*model.OutboxEvent
	for rows.Next() {
		e := new(model.OutboxEvent)
		var kind string
		var raw []byte
		if err := rows.Scan(&e.ID, &kind, &e.AccountID, &raw, &e.Attempts, &e.LastError, &e.CreatedAt); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		e.Kind = model.OutboxKind(kind)
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, &e.Payload); err != nil {
				return nil, domain.ErrReadDatabaseRow
			}
		}
		out = append(out, e)
	}
	return out, nil
}

func (r *outboxRepo) MarkSent(ctx context.Context, tx repository.Tx, id string, at time.Time) error {
	const q = `UPDATE outbox_events SET sent_at=$2, attempts=attempts+1, last_error=NULL WHERE id=$1;`
	_, err := execSQL(ctx, r.pool, tx, q, id, at)
	return mapExecErr(err)
}

// MarkFailed records the attempt; terminal failures are never picked up again.
func (r *outboxRepo) MarkFailed(ctx context.Context, tx repository.Tx, id string, reason string, terminal bool) error {
	const q = `
UPDATE outbox_events
   SET attempts = attempts + 1,
       last_error = $2,
       failed_at = CASE WHEN $3 THEN NOW() ELSE failed_at END
 WHERE id = $1;`
	_, err := execSQL(ctx, r.pool, tx, q, id, reason, terminal)
	return mapExecErr(err)
}

package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"

	"reseller-billing/internal/domain/ports/repository"
)

var _ repository.ExpiryWarningRepository = (*expiryWarningRepo)(nil)

type expiryWarningRepo struct{ pool *pgxpool.Pool }

func NewExpiryWarningRepo(pool *pgxpool.Pool) *expiryWarningRepo {
	return &expiryWarningRepo{pool: pool}
}

// Record inserts the (account, expires_at) marker; a renewal yields a new
// expires_at and therefore a fresh warning.
func (r *expiryWarningRepo) Record(ctx context.Context, tx repository.Tx, accountID string, expiresAt time.Time) (bool, error) {
	const q = `
INSERT INTO expiry_warnings (account_id, expires_at, warned_at)
VALUES ($1, $2, NOW())
ON CONFLICT (account_id, expires_at) DO NOTHING;`
	cmd, err := execSQL(ctx, r.pool, tx, q, accountID, expiresAt)
	if err != nil {
		return false, mapExecErr(err)
	}
	return cmd.RowsAffected() >= 1, nil
}

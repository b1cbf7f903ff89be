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

var _ repository.AccountRepository = (*accountRepo)(nil)

type accountRepo struct{ pool *pgxpool.Pool }

func NewAccountRepo(pool *pgxpool.Pool) *accountRepo {
	return &accountRepo{pool: pool}
}

const accountColumns = `id, email, display_name, telegram_chat_id, role, tier, expires_at, created_at, updated_at`

func scanAccount(row pgx.Row) (*model.Account, error) {
	a := &model.Account{}
	var role, tier string
	if err := row.Scan(&a.ID, &a.Email, &a.DisplayName, &a.TelegramChatID, &role, &tier, &a.ExpiresAt, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return nil, err
	}
	a.Role, a.Tier = model.Role(role), model.Tier(tier)
	return a, nil
}

func (r *accountRepo) Create(ctx context.Context, tx repository.Tx, a *model.Account) (bool, error) {
	const q = `
INSERT INTO accounts (` + accountColumns + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
ON CONFLICT (id) DO NOTHING;`
	cmd, err := execSQL(ctx, r.pool, tx, q, a.ID, a.Email, a.DisplayName, a.TelegramChatID, string(a.Role), string(a.Tier), a.ExpiresAt, a.CreatedAt, a.UpdatedAt)
	if err != nil {
		return false, mapExecErr(err)
	}
	return cmd.RowsAffected() == 1, nil
}

func (r *accountRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Account, error) {
	q := forUpdate(`SELECT `+accountColumns+` FROM accounts WHERE id=$1`, tx)
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	a, err := scanAccount(row)
	if err != nil {
		return nil, mapScanErr(err, domain.ErrAccountNotFound)
	}
	return a, nil
}

func (r *accountRepo) UpdateTier(ctx context.Context, tx repository.Tx, id string, tier model.Tier, expiresAt *time.Time) error {
	const q = `UPDATE accounts SET tier=$2, expires_at=$3, updated_at=NOW() WHERE id=$1;`
	cmd, err := execSQL(ctx, r.pool, tx, q, id, string(tier), expiresAt)
	if err != nil {
		return mapExecErr(err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrAccountNotFound
	}
	return nil
}

func (r *accountRepo) UpdateRole(ctx context.Context, tx repository.Tx, id string, role model.Role) error {
	const q = `UPDATE accounts SET role=$2, updated_at=NOW() WHERE id=$1;`
	cmd, err := execSQL(ctx, r.pool, tx, q, id, string(role))
	if err != nil {
		return mapExecErr(err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrAccountNotFound
	}
	return nil
}

// DowngradeIfExpired is the conditional update the expiry sweep relies on; a
// concurrent renewal moves expires_at forward and makes this a no-op.
func (r *accountRepo) DowngradeIfExpired(ctx context.Context, tx repository.Tx, id string, tier model.Tier, now time.Time) (bool, error) {
	const q = `
    UPDATE accounts
       SET tier = $2,
           expires_at = NULL,
           updated_at = NOW()
     WHERE id = $1
       AND tier <> $2
       AND expires_at IS NOT NULL
       AND expires_at < $3`
	cmd, err := execSQL(ctx, r.pool, tx, q, id, string(tier), now)
	if err != nil {
		return false, mapExecErr(err)
	}
	return cmd.RowsAffected() >= 1, nil
}

func (r *accountRepo) ListExpiringBetween(ctx context.Context, tx repository.Tx, lowest model.Tier, from, to time.Time) ([]*model.Account, error) {
	const q = `SELECT ` + accountColumns + ` FROM accounts
WHERE tier <> $1 AND expires_at >= $2 AND expires_at < $3 ORDER BY expires_at ASC;`
	return r.list(ctx, tx, q, string(lowest), from, to)
}

func (r *accountRepo) ListExpiredBefore(ctx context.Context, tx repository.Tx, lowest model.Tier, before time.Time) ([]*model.Account, error) {
	const q = `SELECT ` + accountColumns + ` FROM accounts
WHERE tier <> $1 AND expires_at IS NOT NULL AND expires_at < $2 ORDER BY expires_at ASC;`
	return r.list(ctx, tx, q, string(lowest), before)
}

func (r *accountRepo) list(ctx context.Context, tx repository.Tx, q string, args ...interface{}) ([]*model.Account, error) {
	rows, err := queryRows(ctx, r.pool, tx, q, args...)
	if err != nil {
		return nil, mapExecErr(err)
	}
	defer rows.Close()

	var out []*model.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		out = append(out, a)
	}
	if rows.Err() != nil {
		return nil, domain.ErrOperationFailed
	}
	return out, nil
}

func (r *accountRepo) CountByTier(ctx context.Context, tx repository.Tx) (map[model.Tier]int, error) {
	const q = `SELECT tier, COUNT(*) FROM accounts GROUP BY tier;`
	rows, err := queryRows(ctx, r.pool, tx, q)
	if err != nil {
		return nil, mapExecErr(err)
	}
	defer rows.Close()

	out := make(map[model.Tier]int, 3)
	for rows.Next() {
		var tier string
		var n int
		if err := rows.Scan(&tier, &n); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		out[model.Tier(tier)] = n
	}
	return out, nil
}

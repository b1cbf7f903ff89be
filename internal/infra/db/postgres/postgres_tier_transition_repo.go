package postgres

import (
	"context"

	"github.com/jackc/pgx/v4/pgxpool"

	"reseller-billing/internal/domain"
	"reseller-billing/internal/domain/model"
	"reseller-billing/internal/domain/ports/repository"
)

var _ repository.TierTransitionRepository = (*tierTransitionRepo)(nil)

type tierTransitionRepo struct{ pool *pgxpool.Pool }

func NewTierTransitionRepo(pool *pgxpool.Pool) *tierTransitionRepo {
	return &tierTransitionRepo{pool: pool}
}

// Append never updates; the history is append-only.
func (r *tierTransitionRepo) Append(ctx context.Context, tx repository.Tx, t *model.TierTransition) error {
	const q = `
INSERT INTO tier_transitions (id, account_id, from_tier, to_tier, action, reason, actor_id, created_at)
VALUES ($1,$2,$3,$4,$5,$6,NULLIF($7,''),$8);`
	_, err := execSQL(ctx, r.pool, tx, q, t.ID, t.AccountID, string(t.FromTier), string(t.ToTier), string(t.Action), t.Reason, t.ActorID, t.CreatedAt)
	return mapExecErr(err)
}

func (r *tierTransitionRepo) ListByAccount(ctx context.Context, tx repository.Tx, accountID string) ([]*model.TierTransition, error) {
	const q = `
SELECT id, account_id, from_tier, to_tier, action, reason, COALESCE(actor_id,''), created_at
  FROM tier_transitions WHERE account_id=$1 ORDER BY created_at ASC;`
	rows, err := queryRows(ctx, r.pool, tx, q, accountID)
	if err != nil {
		return nil, mapExecErr(err)
	}
	defer rows.Close()

	var out []*model.TierTransition
	for rows.Next() {
		t := new(model.TierTransition)
		var from, to, action string
		if err := rows.Scan(&t.ID, &t.AccountID, &from, &to, &action, &t.Reason, &t.ActorID, &t.CreatedAt); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		t.FromTier, t.ToTier, t.Action = model.Tier(from), model.Tier(to), model.TransitionAction(action)
		out = append(out, t)
	}
	return out, nil
}

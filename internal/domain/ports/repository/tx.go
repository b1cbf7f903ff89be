package repository

import (
	"context"
	"sync"

	"github.com/jackc/pgx/v4"
)

type Tx interface{}

var NoTX interface{}

// TransactionManager runs fn inside a database transaction and passes the
// storage-specific handle as tx. Repositories accept a nil tx and fall back
// to the non-transactional path.
//
//	tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
//		inv, err := invoices.FindByID(ctx, tx, id) // row lock inside tx
//		...
//	})
type TransactionManager interface {
	WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx Tx) error) error
}

type commitHooksKey struct{}

type commitHooks struct {
	mu  sync.Mutex
	fns []func(context.Context)
}

// WithCommitHooks returns a context that collects AfterCommit callbacks and a
// function that runs them. Transaction managers call run only after a
// successful commit.
func WithCommitHooks(ctx context.Context) (context.Context, func(context.Context)) {
	h := &commitHooks{}
	run := func(ctx context.Context) {
		h.mu.Lock()
		fns := h.fns
		h.fns = nil
		h.mu.Unlock()
		for _, fn := range fns {
			fn(ctx)
		}
	}
	return context.WithValue(ctx, commitHooksKey{}, h), run
}

// AfterCommit schedules fn for after the enclosing transaction commits.
// Returns false when ctx carries no transaction scope.
func AfterCommit(ctx context.Context, fn func(context.Context)) bool {
	h, ok := ctx.Value(commitHooksKey{}).(*commitHooks)
	if !ok {
		return false
	}
	h.mu.Lock()
	h.fns = append(h.fns, fn)
	h.mu.Unlock()
	return true
}

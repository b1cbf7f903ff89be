//go:build !integration

package sched

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"reseller-billing/internal/domain"
	"reseller-billing/internal/domain/model"
	"reseller-billing/internal/domain/ports/adapter"
	"reseller-billing/internal/domain/ports/repository"
	uc "reseller-billing/internal/domain/ports/usecase"
)

func newTestLogger() *zerolog.Logger {
	l := zerolog.New(io.Discard)
	return &l
}

// --- outbox ---

type memOutbox struct {
	mu     sync.Mutex
	events []*model.OutboxEvent
	sent   map[string]bool
	failed map[string]bool
}

func newMemOutbox(events ...*model.OutboxEvent) *memOutbox {
	return &memOutbox{events: events, sent: map[string]bool{}, failed: map[string]bool{}}
}

func (m *memOutbox) Enqueue(ctx context.Context, tx repository.Tx, e *model.OutboxEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, e)
	return nil
}

func (m *memOutbox) ListPending(ctx context.Context, tx repository.Tx, maxAttempts, limit int) ([]*model.OutboxEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.OutboxEvent
	for _, e := range m.events {
		if !m.sent[e.ID] && !m.failed[e.ID] && e.Attempts < maxAttempts {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *memOutbox) MarkSent(ctx context.Context, tx repository.Tx, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent[id] = true
	return nil
}

func (m *memOutbox) MarkFailed(ctx context.Context, tx repository.Tx, id, reason string, terminal bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.events {
		if e.ID == id {
			e.Attempts++
		}
	}
	if terminal {
		m.failed[id] = true
	}
	return nil
}

// --- accounts ---

type memAccounts struct {
	repository.AccountRepository
	byID map[string]*model.Account
}

func (m *memAccounts) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Account, error) {
	if a, ok := m.byID[id]; ok {
		return a, nil
	}
	return nil, domain.ErrAccountNotFound
}

// --- notifier ---

type recordingNotifier struct {
	mu    sync.Mutex
	kinds []string
	err   error
}

func (r *recordingNotifier) Name() string { return "recording" }

func (r *recordingNotifier) Notify(ctx context.Context, kind string, to adapter.Recipient, data map[string]interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.kinds = append(r.kinds, kind)
	return r.err
}

// --- expiry runner & locker ---

type countingRunner struct {
	mu    sync.Mutex
	calls int
}

func (c *countingRunner) RunOnce(ctx context.Context, now time.Time) (uc.ExpiryReport, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	return uc.ExpiryReport{Downgraded: 1}, nil
}

type stubLocker struct {
	held     bool
	unlocked bool
}

func (s *stubLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (string, error) {
	if s.held {
		return "", domain.ErrLockNotAcquired
	}
	return "token", nil
}

func (s *stubLocker) Unlock(ctx context.Context, key, token string) error {
	s.unlocked = true
	return nil
}

type stubSweeper struct{ calls int }

func (s *stubSweeper) SweepOverdue(ctx context.Context, now time.Time) (int, int, error) {
	s.calls++
	return 1, 0, nil
}

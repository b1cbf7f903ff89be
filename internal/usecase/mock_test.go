//go:build !integration

package usecase_test

import (
	"context"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"reseller-billing/internal/domain"
	"reseller-billing/internal/domain/model"
	"reseller-billing/internal/domain/ports/adapter"
	"reseller-billing/internal/domain/ports/repository"
)

// -----------------------------
// Utilities: tiny helpers
// -----------------------------

func timeptr(t time.Time) *time.Time { return &t }

// =============================
// Repositories
// =============================

// ---- Mock AccountRepository ----

type MockAccountRepo struct {
	mu   sync.Mutex
	byID map[string]*model.Account

	FindByIDFunc func(ctx context.Context, tx repository.Tx, id string) (*model.Account, error)
	Creates      int
	// ErrOn makes DowngradeIfExpired fail for the given account ids.
	ErrOn map[string]error
}

var _ repository.AccountRepository = (*MockAccountRepo)(nil)

func NewMockAccountRepo() *MockAccountRepo {
	return &MockAccountRepo{byID: map[string]*model.Account{}, ErrOn: map[string]error{}}
}

// put stores an account directly, bypassing the use case.
func (r *MockAccountRepo) put(a *model.Account) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *a
	r.byID[a.ID] = &cp
}

func (r *MockAccountRepo) Create(ctx context.Context, tx repository.Tx, a *model.Account) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[a.ID]; ok {
		return false, nil
	}
	cp := *a
	r.byID[a.ID] = &cp
	r.Creates++
	return true, nil
}

func (r *MockAccountRepo) UpdateRole(ctx context.Context, tx repository.Tx, id string, role model.Role) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.byID[id]
	if !ok {
		return domain.ErrAccountNotFound
	}
	a.Role = role
	a.UpdatedAt = time.Now()
	return nil
}

func (r *MockAccountRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Account, error) {
	if r.FindByIDFunc != nil {
		return r.FindByIDFunc(ctx, tx, id)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	cp := *a
	return &cp, nil
}

func (r *MockAccountRepo) UpdateTier(ctx context.Context, tx repository.Tx, id string, tier model.Tier, expiresAt *time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.byID[id]
	if !ok {
		return domain.ErrAccountNotFound
	}
	a.Tier = tier
	a.ExpiresAt = expiresAt
	a.UpdatedAt = time.Now()
	return nil
}

func (r *MockAccountRepo) DowngradeIfExpired(ctx context.Context, tx repository.Tx, id string, tier model.Tier, now time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err, bad := r.ErrOn[id]; bad {
		return false, err
	}
	a, ok := r.byID[id]
	if !ok || a.Tier == tier || a.ExpiresAt == nil || !a.ExpiresAt.Before(now) {
		return false, nil
	}
	a.Tier = tier
	a.ExpiresAt = nil
	a.UpdatedAt = now
	return true, nil
}

func (r *MockAccountRepo) ListExpiringBetween(ctx context.Context, tx repository.Tx, lowest model.Tier, from, to time.Time) ([]*model.Account, error) {
	return r.filter(func(a *model.Account) bool {
		return a.Tier != lowest && a.ExpiresAt != nil && !a.ExpiresAt.Before(from) && a.ExpiresAt.Before(to)
	}), nil
}

func (r *MockAccountRepo) ListExpiredBefore(ctx context.Context, tx repository.Tx, lowest model.Tier, before time.Time) ([]*model.Account, error) {
	return r.filter(func(a *model.Account) bool {
		return a.Tier != lowest && a.ExpiresAt != nil && a.ExpiresAt.Before(before)
	}), nil
}

func (r *MockAccountRepo) CountByTier(ctx context.Context, tx repository.Tx) (map[model.Tier]int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := map[model.Tier]int{}
	for _, a := range r.byID {
		out[a.Tier]++
	}
	return out, nil
}

func (r *MockAccountRepo) filter(keep func(*model.Account) bool) []*model.Account {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Account
	for _, a := range r.byID {
		if keep(a) {
			cp := *a
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ---- Mock TierTransitionRepository ----

type MockTransitionRepo struct {
	mu      sync.Mutex
	Entries []*model.TierTransition
}

var _ repository.TierTransitionRepository = (*MockTransitionRepo)(nil)

func NewMockTransitionRepo() *MockTransitionRepo { return &MockTransitionRepo{} }

func (r *MockTransitionRepo) Append(ctx context.Context, tx repository.Tx, t *model.TierTransition) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Entries = append(r.Entries, t)
	return nil
}

func (r *MockTransitionRepo) ListByAccount(ctx context.Context, tx repository.Tx, accountID string) ([]*model.TierTransition, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.TierTransition
	for _, t := range r.Entries {
		if t.AccountID == accountID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (r *MockTransitionRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.Entries)
}

// ---- Mock InvoiceRepository ----

type MockInvoiceRepo struct {
	mu   sync.Mutex
	seq  int64
	byID map[string]*model.Invoice
}

var _ repository.InvoiceRepository = (*MockInvoiceRepo)(nil)

func NewMockInvoiceRepo() *MockInvoiceRepo {
	return &MockInvoiceRepo{byID: map[string]*model.Invoice{}}
}

func (r *MockInvoiceRepo) NextNumber(ctx context.Context, tx repository.Tx) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	return r.seq, nil
}

func (r *MockInvoiceRepo) Save(ctx context.Context, tx repository.Tx, inv *model.Invoice) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, other := range r.byID {
		if other.Number == inv.Number && other.ID != inv.ID {
			return domain.ErrAlreadyExists
		}
	}
	cp := *inv
	r.byID[inv.ID] = &cp
	return nil
}

func (r *MockInvoiceRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Invoice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	inv, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrInvoiceNotFound
	}
	cp := *inv
	return &cp, nil
}

func (r *MockInvoiceRepo) ListByAccount(ctx context.Context, tx repository.Tx, accountID string) ([]*model.Invoice, error) {
	return r.filter(func(inv *model.Invoice) bool { return inv.AccountID == accountID }, 0), nil
}

func (r *MockInvoiceRepo) ListByStatus(ctx context.Context, tx repository.Tx, status model.InvoiceStatus, limit int) ([]*model.Invoice, error) {
	return r.filter(func(inv *model.Invoice) bool { return inv.Status == status }, limit), nil
}

func (r *MockInvoiceRepo) ListUnpaidDueBefore(ctx context.Context, tx repository.Tx, before time.Time, limit int) ([]*model.Invoice, error) {
	return r.filter(func(inv *model.Invoice) bool {
		return inv.Status == model.InvoiceStatusUnpaid && inv.DueDate.Before(before)
	}, limit), nil
}

func (r *MockInvoiceRepo) SetEvidence(ctx context.Context, tx repository.Tx, id string, transactionID, proofURL *string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	inv, ok := r.byID[id]
	if !ok || inv.Status != model.InvoiceStatusUnpaid {
		return false, nil
	}
	if transactionID != nil {
		inv.TransactionID = transactionID
	}
	if proofURL != nil {
		inv.PaymentProofURL = proofURL
	}
	return true, nil
}

func (r *MockInvoiceRepo) UpdateStatusIfUnpaid(ctx context.Context, tx repository.Tx, id string, status model.InvoiceStatus, verifiedBy *string, paidAt *time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	inv, ok := r.byID[id]
	if !ok || inv.Status != model.InvoiceStatusUnpaid {
		return false, nil
	}
	inv.Status = status
	inv.VerifiedBy = verifiedBy
	inv.PaidAt = paidAt
	inv.UpdatedAt = time.Now()
	return true, nil
}

func (r *MockInvoiceRepo) ForceStatus(ctx context.Context, tx repository.Tx, id string, status model.InvoiceStatus, actorID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	inv, ok := r.byID[id]
	if !ok {
		return domain.ErrInvoiceNotFound
	}
	inv.Status = status
	return nil
}

func (r *MockInvoiceRepo) Delete(ctx context.Context, tx repository.Tx, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[id]; !ok {
		return domain.ErrInvoiceNotFound
	}
	delete(r.byID, id)
	return nil
}

func (r *MockInvoiceRepo) CountByStatus(ctx context.Context, tx repository.Tx) (map[model.InvoiceStatus]int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := map[model.InvoiceStatus]int{}
	for _, inv := range r.byID {
		out[inv.Status]++
	}
	return out, nil
}

// SumPaidByPeriod ignores the period boundary; every PAID invoice counts.
func (r *MockInvoiceRepo) SumPaidByPeriod(ctx context.Context, tx repository.Tx, period string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var sum int64
	for _, inv := range r.byID {
		if inv.Status == model.InvoiceStatusPaid {
			sum += inv.Amount
		}
	}
	return sum, nil
}

func (r *MockInvoiceRepo) filter(keep func(*model.Invoice) bool, limit int) []*model.Invoice {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Invoice
	for _, inv := range r.byID {
		if keep(inv) {
			cp := *inv
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// ---- Mock NotificationRepository ----

type MockNotificationRepo struct {
	mu    sync.Mutex
	Items []*model.Notification
}

var _ repository.NotificationRepository = (*MockNotificationRepo)(nil)

func NewMockNotificationRepo() *MockNotificationRepo { return &MockNotificationRepo{} }

func (r *MockNotificationRepo) CreateIfAbsent(ctx context.Context, tx repository.Tx, n *model.Notification, since *time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, x := range r.Items {
		if x.IsRead || x.AccountID != n.AccountID || x.Type != n.Type || x.Message != n.Message {
			continue
		}
		if since != nil && x.CreatedAt.Before(*since) {
			continue
		}
		return false, nil
	}
	cp := *n
	r.Items = append(r.Items, &cp)
	return true, nil
}

func (r *MockNotificationRepo) ListByAccount(ctx context.Context, tx repository.Tx, accountID string, unreadOnly bool, limit int) ([]*model.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Notification
	for _, x := range r.Items {
		if x.AccountID == accountID && (!unreadOnly || !x.IsRead) {
			cp := *x
			out = append(out, &cp)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *MockNotificationRepo) MarkRead(ctx context.Context, tx repository.Tx, accountID, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, x := range r.Items {
		if x.ID == id && x.AccountID == accountID {
			x.IsRead = true
			return nil
		}
	}
	return domain.ErrNotFound
}

func (r *MockNotificationRepo) countOf(typ model.NotificationType) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, x := range r.Items {
		if x.Type == typ {
			n++
		}
	}
	return n
}

// ---- Mock ExpiryWarningRepository ----

type MockWarningRepo struct {
	mu   sync.Mutex
	seen map[string]bool
}

var _ repository.ExpiryWarningRepository = (*MockWarningRepo)(nil)

func NewMockWarningRepo() *MockWarningRepo { return &MockWarningRepo{seen: map[string]bool{}} }

func (r *MockWarningRepo) Record(ctx context.Context, tx repository.Tx, accountID string, expiresAt time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := accountID + "|" + expiresAt.UTC().Format(time.RFC3339Nano)
	if r.seen[key] {
		return false, nil
	}
	r.seen[key] = true
	return true, nil
}

// ---- Mock OutboxRepository ----

type MockOutboxRepo struct {
	mu     sync.Mutex
	Events []*model.OutboxEvent
}

var _ repository.OutboxRepository = (*MockOutboxRepo)(nil)

func NewMockOutboxRepo() *MockOutboxRepo { return &MockOutboxRepo{} }

func (r *MockOutboxRepo) Enqueue(ctx context.Context, tx repository.Tx, e *model.OutboxEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Events = append(r.Events, e)
	return nil
}

func (r *MockOutboxRepo) ListPending(ctx context.Context, tx repository.Tx, maxAttempts, limit int) ([]*model.OutboxEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.OutboxEvent
	for _, e := range r.Events {
		if e.SentAt == nil && e.FailedAt == nil && e.Attempts < maxAttempts {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *MockOutboxRepo) MarkSent(ctx context.Context, tx repository.Tx, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.Events {
		if e.ID == id {
			e.SentAt = &at
		}
	}
	return nil
}

func (r *MockOutboxRepo) MarkFailed(ctx context.Context, tx repository.Tx, id string, reason string, terminal bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.Events {
		if e.ID == id {
			e.Attempts++
			e.LastError = &reason
			if terminal {
				now := time.Now()
				e.FailedAt = &now
			}
		}
	}
	return nil
}

func (r *MockOutboxRepo) kinds() []model.OutboxKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.OutboxKind, 0, len(r.Events))
	for _, e := range r.Events {
		out = append(out, e.Kind)
	}
	return out
}

// ---- Mock TransactionManager ----

// MockTxManager serialises transactions, which is enough to stand in for row
// locks in concurrency tests. There is no rollback.
type MockTxManager struct {
	mu sync.Mutex

	WithTxFunc func(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error
}

var _ repository.TransactionManager = (*MockTxManager)(nil)

func NewMockTxManager() *MockTxManager { return &MockTxManager{} }

func (m *MockTxManager) WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	if m.WithTxFunc != nil {
		return m.WithTxFunc(ctx, txOpt, fn)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return fn(ctx, repository.NoTX)
}

// =============================
// Adapters
// =============================

// ---- Mock FileStorage ----

type MockStorage struct {
	mu    sync.Mutex
	Paths []string

	UploadFunc func(ctx context.Context, path, contentType string, body io.Reader) (string, error)
}

var _ adapter.FileStorage = (*MockStorage)(nil)

func (s *MockStorage) Upload(ctx context.Context, path, contentType string, body io.Reader) (string, error) {
	if s.UploadFunc != nil {
		return s.UploadFunc(ctx, path, contentType, body)
	}
	if _, err := io.Copy(io.Discard, body); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Paths = append(s.Paths, path)
	return "https://storage.test/payment-proofs/" + path, nil
}

// newTestLogger creates a silent zerolog.Logger for use in tests.
func newTestLogger() *zerolog.Logger {
	logger := zerolog.New(io.Discard)
	return &logger
}

// ---- fixture ----

// fixture wires every use case against one set of in-memory repositories.
type fixture struct {
	catalog       *model.TierCatalog
	accounts      *MockAccountRepo
	transitions   *MockTransitionRepo
	invoices      *MockInvoiceRepo
	notifications *MockNotificationRepo
	warnings      *MockWarningRepo
	outbox        *MockOutboxRepo
	storage       *MockStorage
	tm            *MockTxManager
}

func newFixture() *fixture {
	return &fixture{
		catalog:       model.DefaultTierCatalog(),
		accounts:      NewMockAccountRepo(),
		transitions:   NewMockTransitionRepo(),
		invoices:      NewMockInvoiceRepo(),
		notifications: NewMockNotificationRepo(),
		warnings:      NewMockWarningRepo(),
		outbox:        NewMockOutboxRepo(),
		storage:       &MockStorage{},
		tm:            NewMockTxManager(),
	}
}

// account seeds an account and returns the actor acting as it.
func (f *fixture) account(id string, role model.Role, tier model.Tier, expiresAt *time.Time) model.Actor {
	acc, err := model.NewAccount(id, id+"@example.com", id)
	if err != nil {
		panic(err)
	}
	acc.Role, acc.Tier, acc.ExpiresAt = role, tier, expiresAt
	f.accounts.put(acc)
	return model.Actor{AccountID: id, Role: role}
}

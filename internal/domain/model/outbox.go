package model

import (
	"crypto/rand"
	"time"

	"github.com/oklog/ulid/v2"
)

type OutboxKind string

const (
	OutboxPaymentConfirmed OutboxKind = "payment_confirmed"
	OutboxExpiryWarning    OutboxKind = "expiry_warning"
	OutboxDowngradeNotice  OutboxKind = "downgrade_notice"
	OutboxPaymentReminder  OutboxKind = "payment_reminder"
)

// OutboxEvent is an external notification recorded in the same transaction as
// the state change that caused it and delivered later by the dispatcher.
type OutboxEvent struct {
	ID        string // ULID, sortable by creation
	Kind      OutboxKind
	AccountID string
	Payload   map[string]interface{}
	Attempts  int
	LastError *string
	CreatedAt time.Time
	SentAt    *time.Time
	FailedAt  *time.Time
}

func NewOutboxEvent(kind OutboxKind, accountID string, payload map[string]interface{}) *OutboxEvent {
	now := time.Now()
	return &OutboxEvent{
		ID:        ulid.MustNew(ulid.Timestamp(now), rand.Reader).String(),
		Kind:      kind,
		AccountID: accountID,
		Payload:   payload,
		CreatedAt: now,
	}
}

package repository

import (
	"context"
	"time"

	"reseller-billing/internal/domain/model"
)

// -----------------------------
// Notifications
// -----------------------------

type NotificationRepository interface {
	// CreateIfAbsent inserts n unless an unread notification with the same
	// (account, type, message) exists. For same-day types the window is limited to
	// notifications created on or after since. Reports whether a row was inserted.
	CreateIfAbsent(ctx context.Context, tx Tx, n *model.Notification, since *time.Time) (bool, error)
	ListByAccount(ctx context.Context, tx Tx, accountID string, unreadOnly bool, limit int) ([]*model.Notification, error)
	MarkRead(ctx context.Context, tx Tx, accountID, id string) error
}

// -----------------------------
// Expiry warnings
// -----------------------------

type ExpiryWarningRepository interface {
	// Record returns false when a warning for (account, expiresAt) already exists.
	Record(ctx context.Context, tx Tx, accountID string, expiresAt time.Time) (bool, error)
}

// -----------------------------
// Outbox
// -----------------------------

type OutboxRepository interface {
	Enqueue(ctx context.Context, tx Tx, e *model.OutboxEvent) error
	ListPending(ctx context.Context, tx Tx, maxAttempts, limit int) ([]*model.OutboxEvent, error)
	MarkSent(ctx context.Context, tx Tx, id string, at time.Time) error
	MarkFailed(ctx context.Context, tx Tx, id string, reason string, terminal bool) error
}

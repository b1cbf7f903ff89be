package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"reseller-billing/internal/domain"
	"reseller-billing/internal/domain/model"
	"reseller-billing/internal/domain/ports/repository"
	"reseller-billing/internal/infra/metrics"
)

// Compile-time check
var _ NotificationUseCase = (*notificationUC)(nil)

type NotificationUseCase interface {
	// Notify creates an in-app notification unless an unread copy already exists.
	Notify(ctx context.Context, accountID string, typ model.NotificationType, title, message string) (bool, error)
	// NotifyStockLevel raises low_stock / out_of_stock alerts, at most one unread per item per day.
	NotifyStockLevel(ctx context.Context, actor model.Actor, item string, quantity, threshold int) (bool, error)
	List(ctx context.Context, actor model.Actor, unreadOnly bool, limit int) ([]*model.Notification, error)
	MarkRead(ctx context.Context, actor model.Actor, id string) error
}

type notificationUC struct {
	notifications repository.NotificationRepository
	log           *zerolog.Logger
}

func NewNotificationUseCase(notifications repository.NotificationRepository, logger *zerolog.Logger) *notificationUC {
	compLog := logger.With().Str("component", "NotificationUseCase").Logger()
	return &notificationUC{notifications: notifications, log: &compLog}
}

func (n *notificationUC) Notify(ctx context.Context, accountID string, typ model.NotificationType, title, message string) (bool, error) {
	if accountID == "" || typ == "" || strings.TrimSpace(message) == "" {
		return false, domain.ErrInvalidArgument
	}
	var since *time.Time
	if typ.SameDayDedup() {
		now := time.Now()
		day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
		since = &day
	}
	created, err := n.notifications.CreateIfAbsent(ctx, repository.NoTX, model.NewNotification(accountID, typ, title, message), since)
	if err != nil {
		return false, err
	}
	if created {
		metrics.IncNotificationCreated(string(typ))
	} else {
		n.log.Debug().Str("account_id", accountID).Str("type", string(typ)).Msg("duplicate notification skipped")
	}
	return created, nil
}

func (n *notificationUC) NotifyStockLevel(ctx context.Context, actor model.Actor, item string, quantity, threshold int) (bool, error) {
	if !actor.Can(model.ActionManageInventory) {
		return false, domain.ErrUnauthorized
	}
	item = strings.TrimSpace(item)
	if item == "" || quantity < 0 {
		return false, fmt.Errorf("%w: item and a non-negative quantity are required", domain.ErrInvalidArgument)
	}
	switch {
	case quantity == 0:
		return n.Notify(ctx, actor.AccountID, model.NotificationOutOfStock, "Out of stock", outOfStockMessage(item))
	case quantity <= threshold:
		return n.Notify(ctx, actor.AccountID, model.NotificationLowStock, "Low stock", lowStockMessage(item, quantity))
	}
	return false, nil
}

func (n *notificationUC) List(ctx context.Context, actor model.Actor, unreadOnly bool, limit int) ([]*model.Notification, error) {
	if limit <= 0 {
		limit = 50
	}
	return n.notifications.ListByAccount(ctx, repository.NoTX, actor.AccountID, unreadOnly, limit)
}

func (n *notificationUC) MarkRead(ctx context.Context, actor model.Actor, id string) error {
	return n.notifications.MarkRead(ctx, repository.NoTX, actor.AccountID, id)
}

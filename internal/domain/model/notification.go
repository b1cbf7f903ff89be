package model

import (
	"time"

	"github.com/google/uuid"
)

type NotificationType string

const (
	NotificationExpiryWarning    NotificationType = "subscription_expiry_warning"
	NotificationDowngraded       NotificationType = "subscription_downgraded"
	NotificationPaymentConfirmed NotificationType = "payment_confirmed"
	NotificationPaymentReminder  NotificationType = "payment_reminder"
	NotificationLowStock         NotificationType = "low_stock"
	NotificationOutOfStock       NotificationType = "out_of_stock"
)

// SameDayDedup reports types deduplicated per calendar day rather than per unread copy.
func (t NotificationType) SameDayDedup() bool {
	return t == NotificationLowStock || t == NotificationOutOfStock
}

// Notification is an in-app message addressed to one account.
type Notification struct {
	ID        string           `json:"id"`
	AccountID string           `json:"account_id"`
	Type      NotificationType `json:"type"`
	Title     string           `json:"title"`
	Message   string           `json:"message"`
	IsRead    bool             `json:"is_read"`
	CreatedAt time.Time        `json:"created_at"`
}

func NewNotification(accountID string, typ NotificationType, title, message string) *Notification {
	return &Notification{
		ID:        uuid.NewString(),
		AccountID: accountID,
		Type:      typ,
		Title:     title,
		Message:   message,
		CreatedAt: time.Now(),
	}
}

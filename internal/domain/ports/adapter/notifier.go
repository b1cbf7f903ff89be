package adapter

import "context"

// Recipient is where a notification is delivered.
type Recipient struct {
	AccountID      string
	Email          string
	Name           string
	TelegramChatID *int64
}

// Notifier is a fire-and-forget delivery channel (email, Telegram).
type Notifier interface {
	Name() string
	Notify(ctx context.Context, kind string, to Recipient, data map[string]interface{}) error
}

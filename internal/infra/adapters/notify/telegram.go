package notify

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"reseller-billing/internal/domain/ports/adapter"
)

var _ adapter.Notifier = (*TelegramNotifier)(nil)

type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TelegramNotifier delivers to accounts that linked a Telegram chat.
type TelegramNotifier struct {
	bot sender
}

func NewTelegramNotifier(token string) (*TelegramNotifier, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram bot: %w", err)
	}
	return &TelegramNotifier{bot: bot}, nil
}

func (t *TelegramNotifier) Name() string { return "telegram" }

func (t *TelegramNotifier) Notify(ctx context.Context, kind string, to adapter.Recipient, data map[string]interface{}) error {
	if to.TelegramChatID == nil {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	subject, body := render(kind, to.Name, data)
	msg := tgbotapi.NewMessage(*to.TelegramChatID, subject+"\n\n"+body)
	_, err := t.bot.Send(msg)
	return err
}

package notify

import (
	"context"

	"github.com/rs/zerolog"

	"reseller-billing/internal/domain/ports/adapter"
)

var _ adapter.Notifier = (*NoopNotifier)(nil)

// NoopNotifier logs instead of delivering; used when no channel is configured.
type NoopNotifier struct {
	log *zerolog.Logger
}

func NewNoopNotifier(logger *zerolog.Logger) *NoopNotifier {
	l := logger.With().Str("component", "NoopNotifier").Logger()
	return &NoopNotifier{log: &l}
}

func (n *NoopNotifier) Name() string { return "noop" }

func (n *NoopNotifier) Notify(ctx context.Context, kind string, to adapter.Recipient, data map[string]interface{}) error {
	n.log.Debug().Str("kind", kind).Str("account_id", to.AccountID).Msg("notification dropped")
	return nil
}

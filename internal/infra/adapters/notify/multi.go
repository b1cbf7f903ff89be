package notify

import (
	"context"
	"errors"
	"fmt"

	"reseller-billing/internal/domain"
	"reseller-billing/internal/domain/ports/adapter"
	"reseller-billing/internal/infra/metrics"
)

var _ adapter.Notifier = (*MultiNotifier)(nil)

// MultiNotifier fans one notification out to every channel. It fails only if
// every channel failed.
type MultiNotifier struct {
	channels []adapter.Notifier
}

func NewMultiNotifier(channels ...adapter.Notifier) *MultiNotifier {
	return &MultiNotifier{channels: channels}
}

func (m *MultiNotifier) Name() string { return "multi" }

func (m *MultiNotifier) Notify(ctx context.Context, kind string, to adapter.Recipient, data map[string]interface{}) error {
	var errs []error
	for _, ch := range m.channels {
		if err := ch.Notify(ctx, kind, to, data); err != nil {
			metrics.IncNotificationDispatch(ch.Name(), kind, "error")
			errs = append(errs, fmt.Errorf("%s: %w", ch.Name(), err))
			continue
		}
		metrics.IncNotificationDispatch(ch.Name(), kind, "sent")
	}
	if len(errs) > 0 && len(errs) == len(m.channels) {
		return fmt.Errorf("%w: %v", domain.ErrNotificationDispatch, errors.Join(errs...))
	}
	return nil
}

package alert

import (
	"context"
	"fmt"

	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Dispatcher fans an alert out to every channel. Delivery is best-effort
// per channel: failures are logged and swallowed, never returned.
type Dispatcher struct {
	notifiers []Notifier
	logger    *zap.Logger
}

// NewDispatcher creates a dispatcher over the given channels.
func NewDispatcher(logger *zap.Logger, notifiers ...Notifier) *Dispatcher {
	return &Dispatcher{notifiers: notifiers, logger: logger.Named("alerts")}
}

// Alert notifies every channel. It never fails.
func (d *Dispatcher) Alert(ctx context.Context, subject, body string) {
	var errs error
	for _, n := range d.notifiers {
		if err := n.Notify(ctx, subject, body); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", n.Name(), err))
		}
	}
	if errs != nil {
		d.logger.Warn("Alert delivery incomplete",
			zap.String("subject", subject),
			zap.Int("failedChannels", len(multierr.Errors(errs))),
			zap.Int("channels", len(d.notifiers)),
			zap.Error(errs))
		return
	}
	d.logger.Debug("Alert dispatched", zap.String("subject", subject),
		zap.Int("channels", len(d.notifiers)))
}

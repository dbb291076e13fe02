// Package notify delivers workflow notifications. Delivery is fire-and-forget:
// the core logs a failed notification as a warning and moves on.
package notify

import (
	"context"
	"errors"
	"log/slog"

	"tradeflow/internal/core/ports"
)

// LogNotifier writes every notification to the structured log.
type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger.With("component", "notifier")}
}

func (n *LogNotifier) Notify(ctx context.Context, target, event string, payload map[string]any) error {
	attrs := make([]any, 0, 4+2*len(payload))
	attrs = append(attrs, "target", target, "event", event)
	for k, v := range payload {
		attrs = append(attrs, k, v)
	}
	n.logger.InfoContext(ctx, "notification", attrs...)
	return nil
}

// Fanout hands each notification to every delivery channel. A failing
// channel does not stop the others; their errors are joined.
type Fanout struct {
	targets []ports.Notifier
}

func NewFanout(targets ...ports.Notifier) *Fanout {
	return &Fanout{targets: targets}
}

func (f *Fanout) Notify(ctx context.Context, target, event string, payload map[string]any) error {
	var errList []error
	for _, n := range f.targets {
		if err := n.Notify(ctx, target, event, payload); err != nil {
			errList = append(errList, err)
		}
	}
	return errors.Join(errList...)
}

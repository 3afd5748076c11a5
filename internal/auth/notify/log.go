package notify

import (
	"context"
	"log/slog"
	"time"
)

// LogDispatcher writes the code to the structured log instead of
// sending it anywhere. Development only; it defeats the point of a
// second factor in production.
type LogDispatcher struct {
	logger *slog.Logger
}

var _ Dispatcher = (*LogDispatcher)(nil)

func NewLogDispatcher(logger *slog.Logger) *LogDispatcher {
	return &LogDispatcher{logger: logger}
}

func (d *LogDispatcher) Send(ctx context.Context, address, code string, ttl time.Duration) error {
	d.logger.WarnContext(ctx, "otp dispatched to log, do not use outside development",
		slog.String("address", address),
		slog.String("code", code),
		slog.Duration("ttl", ttl),
	)
	return nil
}

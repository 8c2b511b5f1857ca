package worker

import (
	"LocalVault/internal/notify"
	"context"
	"log/slog"
)

// subscriber streams notifications from a pub/sub channel.
type subscriber interface {
	Subscribe(ctx context.Context) (<-chan notify.Notification, error)
}

// RunRedisRelay logs every notification broadcast on the Redis channel until ctx
// ends or the subscription closes.
func RunRedisRelay(ctx context.Context, sub subscriber, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	stream, err := sub.Subscribe(ctx)
	if err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case n, ok := <-stream:
			if !ok {
				return nil
			}
			logNotification(ctx, logger, "redis", n)
		}
	}
}

package worker

import (
	"LocalVault/config"
	"LocalVault/internal/mq"
	"LocalVault/internal/notify"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"golang.org/x/time/rate"
)

type dlqMessage struct {
	Body     string    `json:"body"`
	Error    string    `json:"error"`
	FailedAt time.Time `json:"failed_at"`
}

// deadLetterer parks undecodable messages.
type deadLetterer interface {
	PublishDLQ(ctx context.Context, body []byte) error
}

// RunNotifyWorker consumes notifications published by the server and writes
// them to the worker log.
func RunNotifyWorker(ctx context.Context, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	client, err := mq.Dial(config.AppConfig.RabbitMQURL, mq.NotifyTopology())
	if err != nil {
		return err
	}
	defer client.Close()

	if err := client.DeclareTopology(); err != nil {
		return err
	}

	prefetch := config.AppConfig.RabbitMQPrefetch
	if prefetch <= 0 {
		prefetch = 1
	}
	if err := client.Channel.Qos(prefetch, 0, false); err != nil {
		return err
	}

	deliveries, err := client.Channel.Consume(
		client.Topology.Queue,
		"",
		false,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return err
	}

	sem := make(chan struct{}, prefetch)
	limiter := newLimiter(config.AppConfig.NotifyWorkerRate, config.AppConfig.NotifyWorkerBurst)

	for {
		select {
		case <-ctx.Done():
			return nil
		case delivery, ok := <-deliveries:
			if !ok {
				return errors.New("notify worker: delivery channel closed")
			}
			sem <- struct{}{}
			go func(d amqp.Delivery) {
				defer func() { <-sem }()
				handleNotifyMessage(ctx, client, limiter, d, logger)
			}(delivery)
		}
	}
}

func newLimiter(limit float64, burst int) *rate.Limiter {
	if burst <= 0 {
		burst = 1
	}
	if limit <= 0 {
		return rate.NewLimiter(rate.Inf, burst)
	}
	return rate.NewLimiter(rate.Limit(limit), burst)
}

func handleNotifyMessage(ctx context.Context, dlq deadLetterer, limiter *rate.Limiter, delivery amqp.Delivery, logger *slog.Logger) {
	n, err := decodeNotification(delivery.Body)
	if err != nil {
		logger.Warn("notify worker: invalid message", slog.String("error", err.Error()))
		if err := deadLetter(ctx, dlq, delivery.Body, err); err != nil {
			logger.Error("notify worker: dlq publish failed", slog.String("error", err.Error()))
			_ = delivery.Nack(false, true)
			return
		}
		_ = delivery.Ack(false)
		return
	}

	if limiter != nil {
		if err := limiter.Wait(ctx); err != nil {
			_ = delivery.Nack(false, true)
			return
		}
	}

	logNotification(ctx, logger, "amqp", n)
	_ = delivery.Ack(false)
}

func logNotification(ctx context.Context, logger *slog.Logger, source string, n notify.Notification) {
	logger.Log(ctx, levelFor(n.Level), n.Message,
		slog.String("source", source),
		slog.String("id", n.ID),
		slog.String("op", n.Op),
		slog.String("level", string(n.Level)),
		slog.String("error", n.Error),
		slog.Time("time", n.Time),
	)
}

func decodeNotification(body []byte) (notify.Notification, error) {
	var n notify.Notification
	if err := json.Unmarshal(body, &n); err != nil {
		return n, err
	}
	switch n.Level {
	case notify.LevelSuccess, notify.LevelError, notify.LevelInfo:
	default:
		return n, fmt.Errorf("unknown level %q", n.Level)
	}
	if n.Message == "" {
		return n, errors.New("empty message")
	}
	return n, nil
}

func deadLetter(ctx context.Context, dlq deadLetterer, body []byte, cause error) error {
	payload, err := json.Marshal(dlqMessage{
		Body:     string(body),
		Error:    cause.Error(),
		FailedAt: time.Now(),
	})
	if err != nil {
		return err
	}
	return dlq.PublishDLQ(ctx, payload)
}

func levelFor(level notify.Level) slog.Level {
	if level == notify.LevelError {
		return slog.LevelWarn
	}
	return slog.LevelInfo
}

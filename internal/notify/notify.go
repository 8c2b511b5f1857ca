// Package notify carries the user-visible toast messages emitted by registry actions.
package notify

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Level is the toast style.
type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
	LevelInfo    Level = "info"
)

// OpStartup tags notifications raised while the process wires its sinks.
const OpStartup = "startup"

// Notification is one transient message.
type Notification struct {
	ID      string    `json:"id"`
	Level   Level     `json:"level"`
	Op      string    `json:"op"`
	Message string    `json:"message"`
	Error   string    `json:"error,omitempty"`
	Time    time.Time `json:"time"`
}

// Notifier delivers notifications to one sink.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// Success builds a success notification for op.
func Success(op, message string) Notification {
	return build(LevelSuccess, op, message, nil)
}

// Failure builds an error notification; err is kept for logs and API clients.
func Failure(op, message string, err error) Notification {
	return build(LevelError, op, message, err)
}

// Info builds an informational notification.
func Info(op, message string) Notification {
	return build(LevelInfo, op, message, nil)
}

func build(level Level, op, message string, err error) Notification {
	n := Notification{
		ID:      uuid.NewString(),
		Level:   level,
		Op:      op,
		Message: message,
		Time:    time.Now().UTC(),
	}
	if err != nil {
		n.Error = err.Error()
	}
	return n
}

// Multi fans a notification out to every sink and joins their errors.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, n Notification) error {
	var errs []error
	for _, sink := range m {
		if sink == nil {
			continue
		}
		if err := sink.Notify(ctx, n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Discard drops every notification.
type Discard struct{}

func (Discard) Notify(context.Context, Notification) error { return nil }

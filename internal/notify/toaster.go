package notify

import (
	"context"
	"log/slog"
	"sync"
)

// Toaster keeps the most recent notifications in a bounded ring until a client drains them.
type Toaster struct {
	logger *slog.Logger

	mu    sync.Mutex
	buf   []Notification
	start int
	count int
}

// NewToaster creates a toaster holding at most size notifications.
func NewToaster(size int, logger *slog.Logger) *Toaster {
	if size <= 0 {
		size = 64
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Toaster{
		logger: logger.With(slog.String("component", "toaster")),
		buf:    make([]Notification, size),
	}
}

// Notify appends n, overwriting the oldest entry when full.
func (t *Toaster) Notify(_ context.Context, n Notification) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	idx := (t.start + t.count) % len(t.buf)
	t.buf[idx] = n
	if t.count < len(t.buf) {
		t.count++
	} else {
		t.start = (t.start + 1) % len(t.buf)
	}

	t.logger.Debug("toast",
		slog.String("level", string(n.Level)),
		slog.String("op", n.Op),
		slog.String("message", n.Message),
	)
	return nil
}

// Recent returns the buffered notifications, oldest first, without removing them.
func (t *Toaster) Recent() []Notification {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snapshot()
}

// Drain returns and clears the buffered notifications.
func (t *Toaster) Drain() []Notification {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := t.snapshot()
	t.start, t.count = 0, 0
	clear(t.buf)
	return out
}

// Len returns the number of buffered notifications.
func (t *Toaster) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.count
}

func (t *Toaster) snapshot() []Notification {
	out := make([]Notification, t.count)
	for i := 0; i < t.count; i++ {
		out[i] = t.buf[(t.start+i)%len(t.buf)]
	}
	return out
}

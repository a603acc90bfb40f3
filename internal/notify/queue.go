// Package notify delivers committed notifications outside the request path.
package notify

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/vanshika/debtledger/backend/internal/domain"
)

// Sender delivers a single notification to its recipient.
type Sender interface {
	Send(ctx context.Context, n domain.Notification) error
}

// Queue hands notifications to a Sender on background workers. Enqueue never
// blocks: when the buffer is full the notification is dropped and logged.
// The persisted row stays the record of truth either way.
type Queue struct {
	sender  Sender
	logger  *slog.Logger
	ch      chan domain.Notification
	workers int

	wg      sync.WaitGroup
	once    sync.Once
	closed  atomic.Bool
	dropped atomic.Int64
	mu      sync.RWMutex
}

// NewQueue creates a Queue buffering up to size notifications.
func NewQueue(sender Sender, size, workers int, logger *slog.Logger) *Queue {
	if size <= 0 {
		size = 256
	}
	if workers <= 0 {
		workers = 1
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Queue{
		sender:  sender,
		logger:  logger,
		ch:      make(chan domain.Notification, size),
		workers: workers,
	}
}

// Start launches the workers. They exit once Close is called and the buffer
// has drained.
func (q *Queue) Start(ctx context.Context) {
	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.work(ctx)
	}
}

// Enqueue offers n for delivery without blocking.
func (q *Queue) Enqueue(n domain.Notification) {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed.Load() {
		q.logger.Warn("notification dropped after shutdown", "notification_id", n.ID)
		return
	}
	select {
	case q.ch <- n:
	default:
		q.dropped.Add(1)
		q.logger.Warn("notification queue full, dropping", "notification_id", n.ID, "user_id", n.UserID)
	}
}

// Dropped reports how many notifications were discarded because the buffer
// was full.
func (q *Queue) Dropped() int64 {
	return q.dropped.Load()
}

// Close stops accepting work and waits for the workers to drain the buffer.
func (q *Queue) Close() {
	q.once.Do(func() {
		q.mu.Lock()
		q.closed.Store(true)
		close(q.ch)
		q.mu.Unlock()
	})
	q.wg.Wait()
}

func (q *Queue) work(ctx context.Context) {
	defer q.wg.Done()
	for n := range q.ch {
		if err := q.sender.Send(ctx, n); err != nil {
			q.logger.Warn("notification delivery failed", "notification_id", n.ID, "user_id", n.UserID, "error", err)
		}
	}
}

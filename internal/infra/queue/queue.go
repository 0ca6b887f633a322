// internal/infra/queue/queue.go
package queue

import (
	"context"
	"errors"
	"log"
	"sync"
)

// Task is a detached unit of background work. The only producer today is
// payment confirmation enqueueing invoice issuance.
type Task struct {
	Kind    string `json:"kind"`
	OrderID string `json:"orderId"`
}

const KindIssueInvoice = "issue_invoice"

// Enqueuer is the outbound port used by usecases. Enqueue must return
// without waiting for the task to run.
type Enqueuer interface {
	Enqueue(ctx context.Context, t Task) error
}

// Handler consumes one task. Errors are the handler's to capture; the
// queue only logs them.
type Handler func(ctx context.Context, t Task) error

var ErrClosed = errors.New("queue: closed")

// InProcess is the default, single-service queue: a buffered channel
// drained by one worker goroutine, independent of the transaction that
// enqueued the task.
type InProcess struct {
	tasks chan Task

	mu     sync.Mutex
	closed bool
	done   chan struct{}
}

func NewInProcess(buffer int) *InProcess {
	if buffer <= 0 {
		buffer = 64
	}
	return &InProcess{
		tasks: make(chan Task, buffer),
		done:  make(chan struct{}),
	}
}

var _ Enqueuer = (*InProcess)(nil)

func (q *InProcess) Enqueue(ctx context.Context, t Task) error {
	q.mu.Lock()
	closed := q.closed
	q.mu.Unlock()
	if closed {
		return ErrClosed
	}
	select {
	case q.tasks <- t:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Start drains the queue with handler until ctx is cancelled or Close is
// called. It blocks; run it in its own goroutine.
func (q *InProcess) Start(ctx context.Context, handler Handler) {
	for {
		select {
		case t, ok := <-q.tasks:
			if !ok {
				return
			}
			if err := handler(ctx, t); err != nil {
				log.Printf("[queue] task failed kind=%s orderId=%s err=%v", t.Kind, t.OrderID, err)
			}
		case <-ctx.Done():
			return
		case <-q.done:
			return
		}
	}
}

func (q *InProcess) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return nil
	}
	q.closed = true
	close(q.done)
	return nil
}

package queue

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInProcessDeliversTasks(t *testing.T) {
	q := NewInProcess(4)
	defer q.Close()

	var (
		mu  sync.Mutex
		got []Task
	)
	done := make(chan struct{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		q.Start(ctx, func(_ context.Context, task Task) error {
			mu.Lock()
			got = append(got, task)
			if len(got) == 2 {
				close(done)
			}
			mu.Unlock()
			return nil
		})
	}()

	require.NoError(t, q.Enqueue(ctx, Task{Kind: KindIssueInvoice, OrderID: "ord-1"}))
	require.NoError(t, q.Enqueue(ctx, Task{Kind: KindIssueInvoice, OrderID: "ord-2"}))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("tasks were not delivered")
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "ord-1", got[0].OrderID)
	assert.Equal(t, "ord-2", got[1].OrderID)
}

func TestInProcessEnqueueAfterClose(t *testing.T) {
	q := NewInProcess(1)
	require.NoError(t, q.Close())

	err := q.Enqueue(context.Background(), Task{Kind: KindIssueInvoice, OrderID: "ord-1"})
	require.ErrorIs(t, err, ErrClosed)

	// Close is idempotent.
	require.NoError(t, q.Close())
}

func TestInProcessEnqueueRespectsContext(t *testing.T) {
	q := NewInProcess(1)
	defer q.Close()

	// Fill the buffer; the next enqueue blocks until ctx expires.
	require.NoError(t, q.Enqueue(context.Background(), Task{OrderID: "a"}))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err := q.Enqueue(ctx, Task{OrderID: "b"})
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

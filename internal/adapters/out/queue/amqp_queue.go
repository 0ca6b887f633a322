// internal/adapters/out/queue/amqp_queue.go
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"log"

	amqp "github.com/rabbitmq/amqp091-go"

	taskq "academy/internal/infra/queue"
)

const taskQueueName = "academy.tasks"

// AMQPQueue is the broker-backed alternative to the in-process queue,
// for deployments where background work must survive a restart. It
// implements queue.Enqueuer on the producing side and drains the same
// queue on the consuming side.
type AMQPQueue struct {
	conn *amqp.Connection
	ch   *amqp.Channel
}

func NewAMQPQueue(url string) (*AMQPQueue, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	if _, err := ch.QueueDeclare(taskQueueName, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}
	return &AMQPQueue{conn: conn, ch: ch}, nil
}

var _ taskq.Enqueuer = (*AMQPQueue)(nil)

func (q *AMQPQueue) Enqueue(ctx context.Context, t taskq.Task) error {
	if q.ch == nil {
		return errors.New("amqp channel is nil")
	}

	body, err := json.Marshal(t)
	if err != nil {
		return err
	}
	return q.ch.PublishWithContext(ctx, "", taskQueueName, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         body,
	})
}

// Start consumes tasks until ctx is cancelled. Handler errors reject the
// delivery without requeue; the payment signal's own redelivery is the
// retry path.
func (q *AMQPQueue) Start(ctx context.Context, handler taskq.Handler) error {
	deliveries, err := q.ch.Consume(taskQueueName, "", false, false, false, false, nil)
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-deliveries:
			if !ok {
				return errors.New("amqp deliveries channel closed")
			}

			var t taskq.Task
			if err := json.Unmarshal(d.Body, &t); err != nil {
				log.Printf("[amqp_queue] unparseable task dropped: %v", err)
				_ = d.Reject(false)
				continue
			}
			if err := handler(ctx, t); err != nil {
				log.Printf("[amqp_queue] task failed kind=%s orderId=%s err=%v", t.Kind, t.OrderID, err)
				_ = d.Reject(false)
				continue
			}
			_ = d.Ack(false)
		}
	}
}

func (q *AMQPQueue) Close() error {
	if q.ch != nil {
		_ = q.ch.Close()
	}
	if q.conn != nil {
		return q.conn.Close()
	}
	return nil
}

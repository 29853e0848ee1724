package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

const DefaultQueue = "mindly_student_notifications"

type publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

type declarer interface {
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
}

// Queue publishes notifications to a durable queue.
type Queue struct {
	ch    publisher
	queue string
	log   *zap.Logger
	now   func() time.Time
}

// NewQueue opens a channel on conn and declares the queue.
func NewQueue(conn *amqp.Connection, queue string, log *zap.Logger) (*Queue, *amqp.Channel, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, nil, fmt.Errorf("opening channel: %w", err)
	}
	if err := declare(ch, queue); err != nil {
		ch.Close()
		return nil, nil, err
	}
	return newQueue(ch, queue, log), ch, nil
}

func newQueue(ch publisher, queue string, log *zap.Logger) *Queue {
	if queue == "" {
		queue = DefaultQueue
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Queue{ch: ch, queue: queue, log: log, now: time.Now}
}

func declare(ch declarer, queue string) error {
	if queue == "" {
		queue = DefaultQueue
	}
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declaring queue %s: %w", queue, err)
	}
	return nil
}

func (q *Queue) Notify(ctx context.Context, studentID, text string) error {
	body, err := json.Marshal(Job{To: studentID, Text: text, CreatedAt: q.now()})
	if err != nil {
		return fmt.Errorf("marshaling notification: %w", err)
	}

	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         body,
		Headers: amqp.Table{
			"message_type":     "JSON",
			"requeue_strategy": "DROP",
		},
	}
	if err := q.ch.PublishWithContext(ctx, "", q.queue, false, false, msg); err != nil {
		q.log.Error("notify.Queue.Notify error publishing message",
			zap.String("queue", q.queue),
			zap.String("student_id", studentID),
			zap.Error(err),
		)
		return fmt.Errorf("publishing to %s: %w", q.queue, err)
	}

	q.log.Info("notify.Queue.Notify published",
		zap.String("queue", q.queue),
		zap.String("student_id", studentID),
	)
	return nil
}

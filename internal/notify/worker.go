package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

type consumer interface {
	declarer
	Qos(prefetchCount, prefetchSize int, global bool) error
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
}

// Worker drains the notification queue into the gateway. A delivery that fails to send
// is requeued once; a second failure or an unreadable body drops it.
type Worker struct {
	ch      consumer
	queue   string
	sender  TextSender
	timeout time.Duration
	log     *zap.Logger
}

func NewWorker(ch *amqp.Channel, queue string, sender TextSender, timeout time.Duration, log *zap.Logger) *Worker {
	return newWorker(ch, queue, sender, timeout, log)
}

func newWorker(ch consumer, queue string, sender TextSender, timeout time.Duration, log *zap.Logger) *Worker {
	if queue == "" {
		queue = DefaultQueue
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Worker{ch: ch, queue: queue, sender: sender, timeout: timeout, log: log}
}

// Run consumes until ctx is done or the channel closes.
func (w *Worker) Run(ctx context.Context) error {
	if err := declare(w.ch, w.queue); err != nil {
		return err
	}
	if err := w.ch.Qos(1, 0, false); err != nil {
		return fmt.Errorf("setting qos: %w", err)
	}
	deliveries, err := w.ch.Consume(w.queue, "mindly-notify", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consuming %s: %w", w.queue, err)
	}

	w.log.Info("notify.Worker.Run consuming", zap.String("queue", w.queue))
	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-deliveries:
			if !ok {
				return fmt.Errorf("delivery channel for %s closed", w.queue)
			}
			w.handle(ctx, d)
		}
	}
}

func (w *Worker) handle(ctx context.Context, d amqp.Delivery) {
	var job Job
	if err := json.Unmarshal(d.Body, &job); err != nil || job.To == "" {
		w.log.Error("notify.Worker.handle dropping unreadable job", zap.Error(err))
		w.settle(d.Nack(false, false))
		return
	}

	sendCtx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()
	if err := w.sender.SendText(sendCtx, job.To, job.Text); err != nil {
		requeue := !d.Redelivered
		w.log.Warn("notify.Worker.handle send failed",
			zap.String("student_id", job.To),
			zap.Bool("requeue", requeue),
			zap.Error(err),
		)
		w.settle(d.Nack(false, requeue))
		return
	}
	w.settle(d.Ack(false))
}

func (w *Worker) settle(err error) {
	if err != nil {
		w.log.Error("notify.Worker.settle failed to acknowledge delivery", zap.Error(err))
	}
}

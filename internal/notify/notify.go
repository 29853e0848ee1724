// Package notify sends out-of-band messages to students, either straight through the
// WhatsApp gateway or via a RabbitMQ queue drained by a Worker.
package notify

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// TextSender is the slice of the delivery gateway notifications need.
type TextSender interface {
	SendText(ctx context.Context, to, body string) error
}

// Job is the queued form of a notification.
type Job struct {
	To        string    `json:"to"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// Direct sends each notification synchronously.
type Direct struct {
	sender TextSender
	log    *zap.Logger
}

func NewDirect(sender TextSender, log *zap.Logger) *Direct {
	if log == nil {
		log = zap.NewNop()
	}
	return &Direct{sender: sender, log: log}
}

func (d *Direct) Notify(ctx context.Context, studentID, text string) error {
	if err := d.sender.SendText(ctx, studentID, text); err != nil {
		return fmt.Errorf("notifying %s: %w", studentID, err)
	}
	d.log.Info("notify.Direct.Notify sent", zap.String("student_id", studentID))
	return nil
}

package preflight

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gregdel/pushover"
)

type Notifier interface {
	Notify(ctx context.Context, title, message string) error
}

// LogNotifier is used when no push service is configured.
type LogNotifier struct{}

func (LogNotifier) Notify(_ context.Context, title, message string) error {
	slog.Warn(title, slog.String("message", message))
	return nil
}

type PushoverNotifier struct {
	app       *pushover.Pushover
	recipient *pushover.Recipient
}

func NewPushoverNotifier(token, recipient string) *PushoverNotifier {
	return &PushoverNotifier{
		app:       pushover.New(token),
		recipient: pushover.NewRecipient(recipient),
	}
}

func (p *PushoverNotifier) Notify(_ context.Context, title, message string) error {
	msg := &pushover.Message{
		Message:   message,
		Title:     title,
		Priority:  pushover.PriorityHigh,
		Timestamp: time.Now().Unix(),
	}
	if _, err := p.app.SendMessage(msg, p.recipient); err != nil {
		return fmt.Errorf("send pushover message: %w", err)
	}
	return nil
}

// NewNotifier prefers Pushover when both credentials are present.
func NewNotifier(token, recipient string) Notifier {
	if token != "" && recipient != "" {
		return NewPushoverNotifier(token, recipient)
	}
	return LogNotifier{}
}

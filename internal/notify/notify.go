// Package notify posts participation notifications and builds share links.
// Every sender is fire-and-forget from the caller's point of view: errors
// are returned for logging, never for the user.
package notify

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"basepool/internal/pricing"
)

// Message is a user-facing notification.
type Message struct {
	Title string
	Body  string
}

// Sender delivers a notification.
type Sender interface {
	Notify(ctx context.Context, msg Message) error
}

// LogSender writes notifications to the log only.
type LogSender struct {
	logger *zap.Logger
}

func NewLogSender(logger *zap.Logger) *LogSender {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSender{logger: logger}
}

func (s *LogSender) Notify(_ context.Context, msg Message) error {
	s.logger.Info("notification", zap.String("title", msg.Title), zap.String("body", msg.Body))
	return nil
}

// Multi fans a notification out to several senders and joins their errors.
type Multi []Sender

func (m Multi) Notify(ctx context.Context, msg Message) error {
	var errs []error
	for _, sender := range m {
		if sender == nil {
			continue
		}
		if err := sender.Notify(ctx, msg); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Participation builds the notification sent after a confirmed entry.
func Participation(amountETH string, numbers int64) Message {
	return Message{
		Title: "BasePool Participation",
		Body: fmt.Sprintf("I just participated in BasePool and sent %s ETH for %d %s to join the pool! 🎲\n\n%s",
			amountETH, numbers, pricing.Plural(numbers, "number"), AppURL),
	}
}

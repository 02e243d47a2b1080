package notify

import (
	"context"
	"fmt"

	"github.com/resend/resend-go/v2"
	"go.uber.org/zap"
)

// ResendSender delivers notifications as email through Resend.
type ResendSender struct {
	client *resend.Client
	from   string
	to     []string
	logger *zap.Logger
}

func NewResendSender(apiKey string, from string, to []string, logger *zap.Logger) *ResendSender {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ResendSender{
		client: resend.NewClient(apiKey),
		from:   from,
		to:     to,
		logger: logger,
	}
}

func (s *ResendSender) Notify(_ context.Context, msg Message) error {
	if len(s.to) == 0 {
		return fmt.Errorf("no notification recipients configured")
	}

	params := &resend.SendEmailRequest{
		From:    s.from,
		To:      s.to,
		Subject: msg.Title,
		Text:    msg.Body,
		Tags: []resend.Tag{
			{Name: "category", Value: "participation"},
		},
	}

	sent, err := s.client.Emails.Send(params)
	if err != nil {
		return fmt.Errorf("send notification email: %w", err)
	}

	s.logger.Info("notification email sent", zap.String("email_id", sent.Id), zap.Strings("to", s.to))
	return nil
}

package resend

import (
	"context"
	"fmt"

	"github.com/resend/resend-go/v2"
	"github.com/tamales-preorder/internal/config"
	"github.com/tamales-preorder/internal/infrastructure/mail"
)

// Sender delivers email through the Resend API.
type Sender struct {
	client *resend.Client
	from   string
}

// NewSender builds a Sender. A missing RESEND_API_KEY is not fatal at startup;
// every Send then fails with mail.ErrNotConfigured.
func NewSender(cfg *config.Config) *Sender {
	var client *resend.Client
	if cfg.ResendAPIKey != "" {
		client = resend.NewClient(cfg.ResendAPIKey)
	}
	return NewSenderWithClient(client, cfg.FromEmail)
}

func NewSenderWithClient(client *resend.Client, from string) *Sender {
	return &Sender{client: client, from: from}
}

func (s *Sender) Send(ctx context.Context, msg mail.Message) error {
	if s.client == nil {
		return fmt.Errorf("RESEND_API_KEY not configured: %w", mail.ErrNotConfigured)
	}
	from := msg.From
	if from == "" {
		from = s.from
	}
	_, err := s.client.Emails.SendWithContext(ctx, &resend.SendEmailRequest{
		From:    from,
		To:      msg.To,
		Subject: msg.Subject,
		Html:    msg.HTML,
	})
	if err != nil {
		return fmt.Errorf("resend api error: %w", err)
	}
	return nil
}

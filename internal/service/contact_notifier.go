package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/prn-tf/minimarket/internal/config"
)

// LogNotifier writes contact messages to the log.
type LogNotifier struct {
	logger zerolog.Logger
}

// NewLogNotifier creates a LogNotifier.
func NewLogNotifier(logger zerolog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger.With().Str("notifier", "log").Logger()}
}

func (n *LogNotifier) Notify(_ context.Context, msg ContactMessage) error {
	n.logger.Info().
		Str("name", msg.Name).
		Str("email", msg.Email).
		Int("length", len(msg.Message)).
		Time("received_at", msg.ReceivedAt).
		Msg("contact message received")
	return nil
}

// SendGridNotifier emails contact messages through SendGrid.
type SendGridNotifier struct {
	client *sendgrid.Client
	from   *sgmail.Email
	to     *sgmail.Email
}

// NewSendGridNotifier creates a notifier from the contact configuration.
func NewSendGridNotifier(cfg config.ContactConfig) *SendGridNotifier {
	return &SendGridNotifier{
		client: sendgrid.NewSendClient(cfg.SendGridAPIKey),
		from:   sgmail.NewEmail("Mini Market", cfg.FromEmail),
		to:     sgmail.NewEmail("Mini Market Support", cfg.ToEmail),
	}
}

func (n *SendGridNotifier) Notify(ctx context.Context, msg ContactMessage) error {
	subject := "Contact form: " + msg.Name
	body := fmt.Sprintf("From: %s <%s>\nReceived: %s\n\n%s",
		msg.Name, msg.Email, msg.ReceivedAt.Format(time.RFC3339), msg.Message)

	email := sgmail.NewSingleEmailPlainText(n.from, subject, n.to, body)
	email.SetReplyTo(sgmail.NewEmail(msg.Name, msg.Email))

	resp, err := n.client.SendWithContext(ctx, email)
	if err != nil {
		return fmt.Errorf("sendgrid request failed: %w", err)
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("sendgrid returned status %d", resp.StatusCode)
	}
	return nil
}

// NewContactNotifier picks SendGrid when an API key is configured.
func NewContactNotifier(cfg config.ContactConfig, logger zerolog.Logger) ContactNotifier {
	if cfg.SendGridAPIKey != "" {
		return NewSendGridNotifier(cfg)
	}
	return NewLogNotifier(logger)
}

package messaging

import (
	"context"
	"fmt"

	"gopkg.in/gomail.v2"

	"github.com/spec-kit/repair-desk/internal/config"
)

// Email is a single outbound message with plain and HTML bodies. Kind labels
// the message in delivery metrics.
type Email struct {
	Kind      string
	To        string
	Subject   string
	PlainBody string
	HTMLBody  string
}

// Mailer delivers email.
type Mailer interface {
	Send(ctx context.Context, email Email) error
}

// SMTPMailer sends mail through an SMTP relay.
type SMTPMailer struct {
	from   string
	dialer *gomail.Dialer
}

// NewSMTPMailer returns nil when no SMTP host is configured.
func NewSMTPMailer(cfg config.NotificationConfig) *SMTPMailer {
	if cfg.SMTPHost == "" {
		return nil
	}
	return &SMTPMailer{
		from:   cfg.EmailFrom,
		dialer: gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword),
	}
}

func (s *SMTPMailer) Send(ctx context.Context, email Email) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", email.To)
	m.SetHeader("Subject", email.Subject)
	m.SetBody("text/plain", email.PlainBody)
	if email.HTMLBody != "" {
		m.AddAlternative("text/html", email.HTMLBody)
	}

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

package notifications

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"gopkg.in/gomail.v2"
)

type mailDialer interface {
	DialAndSend(m ...*gomail.Message) error
}

// EmailSender delivers over SMTP.
type EmailSender struct {
	from   string
	dialer mailDialer
}

func NewEmailSender(host string, port int, user, pass, from string) *EmailSender {
	return &EmailSender{from: from, dialer: gomail.NewDialer(host, port, user, pass)}
}

func (s *EmailSender) Name() string { return "email" }

func (s *EmailSender) Deliver(ctx context.Context, m Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if m.To == "" {
		return fmt.Errorf("email: empty recipient")
	}
	msg := gomail.NewMessage()
	msg.SetHeader("From", s.from)
	msg.SetHeader("To", m.To)
	msg.SetHeader("Subject", m.Subject)
	msg.SetBody("text/plain", m.Body)
	if err := s.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("email to %s: %w", m.To, err)
	}
	return nil
}

// LogSender stands in for email when no SMTP host is configured.
type LogSender struct {
	log zerolog.Logger
}

func NewLogSender(log zerolog.Logger) *LogSender {
	return &LogSender{log: log}
}

func (s *LogSender) Name() string { return "log" }

func (s *LogSender) Deliver(_ context.Context, m Message) error {
	s.log.Info().Str("to", m.To).Str("subject", m.Subject).Msg("notification (email disabled)")
	return nil
}

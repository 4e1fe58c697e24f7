package mail

import (
	"context"

	gomail "gopkg.in/gomail.v2"

	"homestay/pkg/config"
)

// Mailer sends booking notification emails over SMTP.
type Mailer interface {
	Send(ctx context.Context, to string, subject string, htmlBody string) error
}

type smtpMailer struct {
	dialer *gomail.Dialer
	from   string
}

func NewSMTPMailer(cfg *config.Config) Mailer {
	return &smtpMailer{
		dialer: gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword),
		from:   cfg.MailFrom,
	}
}

// Send delivers a single message. gomail dials synchronously without
// honoring a context, so the dial runs in a goroutine and the result is
// abandoned when ctx expires first.
func (m *smtpMailer) Send(ctx context.Context, to string, subject string, htmlBody string) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", htmlBody)

	done := make(chan error, 1)
	go func() {
		done <- m.dialer.DialAndSend(msg)
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Package mailer delivers recovery codes over SMTP.
package mailer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wneessen/go-mail"
)

// Config holds SMTP connection settings.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	Subject  string
}

// SMTP is a [Notifier]-shaped sender backed by go-mail.
type SMTP struct {
	cfg Config
}

func NewSMTP(cfg Config) (*SMTP, error) {
	if cfg.Host == "" {
		return nil, errors.New("smtp host required")
	}
	if cfg.From == "" {
		return nil, errors.New("smtp from address required")
	}
	if cfg.Subject == "" {
		cfg.Subject = "Your verification code"
	}

	return &SMTP{cfg: cfg}, nil
}

// DeliverOTP sends the code to email. The connection is established per
// call; the caller bounds the whole delivery with ctx.
func (s *SMTP) DeliverOTP(ctx context.Context, email, code string, validity time.Duration) error {
	msg := mail.NewMsg()
	if err := msg.From(s.cfg.From); err != nil {
		return err
	}
	if err := msg.To(email); err != nil {
		return err
	}
	msg.Subject(s.cfg.Subject)
	msg.SetBodyString(mail.TypeTextHTML, otpBody(code, validity))

	opts := []mail.Option{
		mail.WithPort(s.cfg.Port),
	}
	if s.cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(s.cfg.Username),
			mail.WithPassword(s.cfg.Password),
		)
	}

	client, err := mail.NewClient(s.cfg.Host, opts...)
	if err != nil {
		return err
	}

	return client.DialAndSendWithContext(ctx, msg)
}

func otpBody(code string, validity time.Duration) string {
	minutes := int(validity.Round(time.Minute) / time.Minute)
	if minutes < 1 {
		minutes = 1
	}
	return fmt.Sprintf(
		"<p>Your verification code is <b>%s</b>.</p><p>It expires in %d minutes. If you did not request it, ignore this message.</p>",
		code, minutes,
	)
}

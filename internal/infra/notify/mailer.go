// File: internal/infra/notify/mailer.go
package notify

import (
	"context"
	"fmt"
	"net/smtp"

	"github.com/jordan-wright/email"
	"github.com/rs/zerolog"

	"course-marketplace/internal/config"
	"course-marketplace/internal/domain/ports/adapter"
)

var _ adapter.Mailer = (*SMTPMailer)(nil)

// SMTPMailer sends buyer-facing notices over plain SMTP. Every send is
// best-effort; the settlement path never blocks on it.
type SMTPMailer struct {
	addr string
	auth smtp.Auth
	from string
	log  *zerolog.Logger
}

func NewSMTPMailer(cfg config.SMTPConfig, logger *zerolog.Logger) *SMTPMailer {
	return &SMTPMailer{
		addr: fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		auth: smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host),
		from: cfg.From,
		log:  logger,
	}
}

func (m *SMTPMailer) SendPurchaseConfirmation(ctx context.Context, to, courseTitle string) error {
	subject := fmt.Sprintf("You're enrolled: %s", courseTitle)
	body := fmt.Sprintf("Your payment was received and you now have access to %q. Happy learning!", courseTitle)
	return m.send(ctx, to, subject, body)
}

func (m *SMTPMailer) SendPaymentFailed(ctx context.Context, to, courseTitle string) error {
	subject := fmt.Sprintf("Payment issue for %s", courseTitle)
	body := fmt.Sprintf("We could not complete your payment for %q. No charge was made; please try again.", courseTitle)
	return m.send(ctx, to, subject, body)
}

func (m *SMTPMailer) send(ctx context.Context, to, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	e := email.NewEmail()
	e.From = m.from
	e.To = []string{to}
	e.Subject = subject
	e.Text = []byte(body)
	if err := e.Send(m.addr, m.auth); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	m.log.Debug().Str("to", to).Str("subject", subject).Msg("email sent")
	return nil
}

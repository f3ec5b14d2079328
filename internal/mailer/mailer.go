package mailer

import (
	"context"
	"fmt"
	"net/smtp"

	"github.com/rs/zerolog"

	"reviewhub/pkg/utils"
)

// Mailer delivers confirmation codes out-of-band. Delivery failures are
// returned to the caller; the signup handler surfaces them as hard errors
// rather than queueing or retrying.
type Mailer interface {
	SendConfirmationCode(ctx context.Context, to, username, code string) error
}

// New picks the SMTP mailer when a host is configured, otherwise the
// log-only mailer used in development and tests.
func New(cfg utils.SMTPConfig, log zerolog.Logger) Mailer {
	if cfg.Host == "" {
		return &LogMailer{Log: log}
	}
	return &SMTPMailer{cfg: cfg}
}

type SMTPMailer struct {
	cfg utils.SMTPConfig
}

func (m *SMTPMailer) SendConfirmationCode(_ context.Context, to, username, code string) error {
	addr := fmt.Sprintf("%s:%d", m.cfg.Host, m.cfg.Port)

	var auth smtp.Auth
	if m.cfg.Username != "" {
		auth = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	}

	msg := fmt.Sprintf(
		"From: %s\r\nTo: %s\r\nSubject: Your confirmation code\r\n\r\nHi %s,\r\n\r\nYour confirmation code: %s\r\n",
		m.cfg.From, to, username, code,
	)

	if err := smtp.SendMail(addr, auth, m.cfg.From, []string{to}, []byte(msg)); err != nil {
		return fmt.Errorf("send confirmation mail: %w", err)
	}
	return nil
}

// LogMailer writes the code to the log instead of sending mail.
type LogMailer struct {
	Log zerolog.Logger
}

func (m *LogMailer) SendConfirmationCode(_ context.Context, to, username, code string) error {
	m.Log.Info().
		Str("to", to).
		Str("username", username).
		Str("code", code).
		Msg("confirmation code issued (log-only mailer)")
	return nil
}

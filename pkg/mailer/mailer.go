package mailer

import (
	"fmt"
	"net/smtp"
	"strings"

	"go.uber.org/zap"

	"github.com/peerlink-support/backend/config"
)

// Mailer sends plain-text mail over SMTP. With no SMTP host configured it
// logs the message instead, which is what you want in development.
type Mailer struct {
	cfg    config.EmailConfig
	logger *zap.Logger
}

// New creates a mailer.
func New(cfg config.EmailConfig, logger *zap.Logger) *Mailer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Mailer{cfg: cfg, logger: logger}
}

// Send delivers a plain-text message to one recipient.
func (m *Mailer) Send(to, subject, body string) error {
	if m.cfg.SMTPHost == "" {
		m.logger.Info("smtp not configured, logging email instead",
			zap.String("to", to),
			zap.String("subject", subject),
		)
		return nil
	}

	from := m.cfg.FromAddress
	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s <%s>\r\n", m.cfg.FromName, from)
	fmt.Fprintf(&msg, "To: %s\r\n", to)
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	msg.WriteString("MIME-Version: 1.0\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n")
	msg.WriteString(body)

	addr := fmt.Sprintf("%s:%d", m.cfg.SMTPHost, m.cfg.SMTPPort)
	var auth smtp.Auth
	if m.cfg.SMTPUser != "" {
		auth = smtp.PlainAuth("", m.cfg.SMTPUser, m.cfg.SMTPPass, m.cfg.SMTPHost)
	}
	if err := smtp.SendMail(addr, auth, from, []string{to}, []byte(msg.String())); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}

package email

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"go.uber.org/zap"

	"fchat-backend/pkg/logger"
)

// Email represents an email to be sent
type Email struct {
	To      []string
	Subject string
	HTML    string
	Text    string
}

// Sender defines the interface for sending emails
type Sender interface {
	Send(ctx context.Context, email *Email) error
}

// MockSender logs instead of sending; used in development and tests
type MockSender struct{}

// Send logs the email (mock implementation)
func (m *MockSender) Send(ctx context.Context, email *Email) error {
	logger.Info("Mock email sent",
		zap.Strings("to", email.To),
		zap.String("subject", email.Subject))
	return nil
}

// SMTPConfig holds SMTP server settings
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// SMTPSender sends mail through a plain SMTP relay
type SMTPSender struct {
	cfg *SMTPConfig
}

// NewSMTPSender creates a new SMTP-backed sender
func NewSMTPSender(cfg *SMTPConfig) *SMTPSender {
	return &SMTPSender{cfg: cfg}
}

// Send delivers the email via SMTP. The HTML body is preferred; the text
// body is used when no HTML is set.
func (s *SMTPSender) Send(ctx context.Context, email *Email) error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)

	var auth smtp.Auth
	if s.cfg.Username != "" {
		auth = smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	}

	body := email.HTML
	contentType := "text/html; charset=\"UTF-8\""
	if body == "" {
		body = email.Text
		contentType = "text/plain; charset=\"UTF-8\""
	}

	var msg strings.Builder
	msg.WriteString(fmt.Sprintf("From: %s\r\n", s.cfg.From))
	msg.WriteString(fmt.Sprintf("To: %s\r\n", strings.Join(email.To, ", ")))
	msg.WriteString(fmt.Sprintf("Subject: %s\r\n", email.Subject))
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString(fmt.Sprintf("Content-Type: %s\r\n", contentType))
	msg.WriteString("\r\n")
	msg.WriteString(body)

	if err := smtp.SendMail(addr, auth, s.cfg.From, email.To, []byte(msg.String())); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	return nil
}

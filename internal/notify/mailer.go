package notify

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/smtp"
	"net/textproto"
	"strings"
	"time"

	"github.com/Veraticus/shelfwise/internal/common"
)

// SMTPConfig holds outbound mail server settings.
type SMTPConfig struct {
	Host     string
	Username string
	Password string
	From     string
	Port     int
	Timeout  time.Duration
	UseTLS   bool
}

// Validate checks that the settings are usable.
func (c SMTPConfig) Validate() error {
	if c.Host == "" {
		return fmt.Errorf("%w: mail.host", common.ErrMissingConfig)
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("%w: mail.port %d", common.ErrInvalidConfig, c.Port)
	}
	if c.From == "" {
		return fmt.Errorf("%w: mail.from", common.ErrMissingConfig)
	}
	return nil
}

// SMTPMailer sends messages through an SMTP server with STARTTLS.
type SMTPMailer struct {
	cfg   SMTPConfig
	retry common.RetryOptions
}

// NewSMTPMailer creates a mailer for the given server.
func NewSMTPMailer(cfg SMTPConfig) (*SMTPMailer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &SMTPMailer{
		cfg: cfg,
		retry: common.RetryOptions{
			MaxAttempts:  3,
			InitialDelay: time.Second,
			MaxDelay:     10 * time.Second,
			Multiplier:   2,
		},
	}, nil
}

// Send delivers msg, retrying transient failures.
func (m *SMTPMailer) Send(ctx context.Context, msg Message) error {
	body := buildMessage(m.cfg.From, msg)
	return common.WithRetry(ctx, func() error {
		return m.sendOnce(ctx, msg.To, body)
	}, m.retry)
}

func (m *SMTPMailer) sendOnce(ctx context.Context, to, body string) error {
	addr := net.JoinHostPort(m.cfg.Host, fmt.Sprint(m.cfg.Port))

	dialer := &net.Dialer{Timeout: m.cfg.Timeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return &common.RetryableError{Err: fmt.Errorf("failed to connect to SMTP server: %w", err), Retryable: true}
	}
	defer func() { _ = conn.Close() }()

	client, err := smtp.NewClient(conn, m.cfg.Host)
	if err != nil {
		return classifySMTPError(fmt.Errorf("failed to create SMTP client: %w", err))
	}
	defer func() { _ = client.Close() }()

	if m.cfg.UseTLS {
		tlsConfig := &tls.Config{
			ServerName: m.cfg.Host,
			MinVersion: tls.VersionTLS12,
		}
		if err := client.StartTLS(tlsConfig); err != nil {
			return classifySMTPError(fmt.Errorf("failed to start TLS: %w", err))
		}
	}

	if m.cfg.Username != "" && m.cfg.Password != "" {
		auth := smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("SMTP authentication failed: %w", err)
		}
	}

	if err := client.Mail(m.cfg.From); err != nil {
		return classifySMTPError(fmt.Errorf("failed to set sender: %w", err))
	}
	if err := client.Rcpt(to); err != nil {
		return classifySMTPError(fmt.Errorf("failed to set recipient: %w", err))
	}

	w, err := client.Data()
	if err != nil {
		return classifySMTPError(fmt.Errorf("failed to open data writer: %w", err))
	}
	if _, err := w.Write([]byte(body)); err != nil {
		return classifySMTPError(fmt.Errorf("failed to write message: %w", err))
	}
	if err := w.Close(); err != nil {
		return classifySMTPError(fmt.Errorf("failed to finish message: %w", err))
	}

	return client.Quit()
}

// classifySMTPError marks 4xx replies as transient.
func classifySMTPError(err error) error {
	var protoErr *textproto.Error
	if errors.As(err, &protoErr) && protoErr.Code >= 400 && protoErr.Code < 500 {
		return fmt.Errorf("%w: %w", common.ErrMailTransient, err)
	}
	return err
}

func buildMessage(from string, msg Message) string {
	var b strings.Builder
	fmt.Fprintf(&b, "From: GRD Library <%s>\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", msg.To)
	fmt.Fprintf(&b, "Subject: %s\r\n", msg.Subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=UTF-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(msg.HTML)
	return b.String()
}

// LogMailer logs messages instead of sending them. It is used when mail
// delivery is disabled.
type LogMailer struct {
	logger *slog.Logger
}

// NewLogMailer creates a LogMailer writing to logger, or the default logger.
func NewLogMailer(logger *slog.Logger) *LogMailer {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogMailer{logger: logger}
}

// Send logs the message envelope.
func (m *LogMailer) Send(ctx context.Context, msg Message) error {
	m.logger.InfoContext(ctx, "mail delivery disabled, skipping send",
		"to", msg.To,
		"subject", msg.Subject,
		"bytes", len(msg.HTML))
	return nil
}

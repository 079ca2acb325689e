package email

import (
	"context"
	"crypto/tls"
	"fmt"
	"mime"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"hrms/internal/domain/notifications"
	"hrms/internal/platform/config"
)

type noopMailer struct{}

func (noopMailer) Send(ctx context.Context, from, to, subject, body string) error {
	return nil
}

// New picks the delivery provider from EMAIL_PROVIDER. Anything missing its
// credentials degrades to a mailer that drops messages.
func New(cfg config.Config) notifications.Mailer {
	if !cfg.EmailEnabled {
		return noopMailer{}
	}
	switch cfg.EmailProvider {
	case "sendgrid":
		if cfg.SendGridAPIKey != "" {
			return NewSendGrid(cfg.SendGridAPIKey)
		}
	default:
		if cfg.SMTPHost != "" {
			return newSMTPMailer(cfg)
		}
	}
	return noopMailer{}
}

// smtpMailer speaks SMTP directly so delivery honours the caller's context.
// Port 465 gets implicit TLS; otherwise STARTTLS is used when enabled.
type smtpMailer struct {
	host        string
	addr        string
	auth        smtp.Auth
	startTLS    bool
	implicitTLS bool
	timeout     time.Duration
	dial        func(ctx context.Context, addr string) (net.Conn, error)
}

func newSMTPMailer(cfg config.Config) *smtpMailer {
	m := &smtpMailer{
		host:        cfg.SMTPHost,
		addr:        net.JoinHostPort(cfg.SMTPHost, strconv.Itoa(cfg.SMTPPort)),
		implicitTLS: cfg.SMTPUseTLS && cfg.SMTPPort == 465,
		timeout:     15 * time.Second,
	}
	m.startTLS = cfg.SMTPUseTLS && !m.implicitTLS
	if cfg.SMTPUser != "" {
		m.auth = smtp.PlainAuth("", cfg.SMTPUser, cfg.SMTPPassword, cfg.SMTPHost)
	}
	m.dial = func(ctx context.Context, addr string) (net.Conn, error) {
		d := net.Dialer{Timeout: m.timeout}
		return d.DialContext(ctx, "tcp", addr)
	}
	return m
}

func (m *smtpMailer) Send(ctx context.Context, from, to, subject, body string) error {
	if strings.TrimSpace(to) == "" {
		return nil
	}
	conn, err := m.dial(ctx, m.addr)
	if err != nil {
		return fmt.Errorf("smtp dial: %w", err)
	}
	deadline := time.Now().Add(m.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	_ = conn.SetDeadline(deadline)
	if m.implicitTLS {
		conn = tls.Client(conn, &tls.Config{ServerName: m.host})
	}

	client, err := smtp.NewClient(conn, m.host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("smtp greeting: %w", err)
	}
	defer client.Close()

	if m.startTLS {
		if err := client.StartTLS(&tls.Config{ServerName: m.host}); err != nil {
			return fmt.Errorf("smtp starttls: %w", err)
		}
	}
	if m.auth != nil {
		if err := client.Auth(m.auth); err != nil {
			return fmt.Errorf("smtp auth: %w", err)
		}
	}
	if err := client.Mail(from); err != nil {
		return fmt.Errorf("smtp mail from: %w", err)
	}
	if err := client.Rcpt(to); err != nil {
		return fmt.Errorf("smtp rcpt: %w", err)
	}
	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("smtp data: %w", err)
	}
	if _, err := w.Write(buildMessage(from, to, subject, body, time.Now())); err != nil {
		_ = w.Close()
		return err
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("smtp data: %w", err)
	}
	return client.Quit()
}

// buildMessage renders a plain text message. The subject is Q-encoded when
// it is not ASCII; line breaks in headers are flattened.
func buildMessage(from, to, subject, body string, now time.Time) []byte {
	domain := "localhost"
	if at := strings.LastIndex(from, "@"); at >= 0 && at < len(from)-1 {
		domain = from[at+1:]
	}
	var b strings.Builder
	header := func(name, value string) {
		b.WriteString(name)
		b.WriteString(": ")
		b.WriteString(sanitizeHeader(value))
		b.WriteString("\r\n")
	}
	header("From", from)
	header("To", to)
	header("Subject", mime.QEncoding.Encode("utf-8", sanitizeHeader(subject)))
	header("Date", now.Format(time.RFC1123Z))
	header("Message-ID", "<"+uuid.NewString()+"@"+domain+">")
	header("MIME-Version", "1.0")
	header("Content-Type", `text/plain; charset="UTF-8"`)
	b.WriteString("\r\n")
	b.WriteString(strings.ReplaceAll(strings.ReplaceAll(body, "\r\n", "\n"), "\n", "\r\n"))
	return []byte(b.String())
}

func sanitizeHeader(value string) string {
	return strings.NewReplacer("\r", " ", "\n", " ").Replace(value)
}

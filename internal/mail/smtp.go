package mail

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/emersion/go-sasl"
	"github.com/emersion/go-smtp"

	"github.com/zgpcy/status-exporter/internal/config"
	"github.com/zgpcy/status-exporter/internal/logger"
)

type smtpMailer struct {
	addr     string
	username string
	password string
	log      *logger.Logger
}

func newSMTP(cfg config.SMTPConfig, log *logger.Logger) *smtpMailer {
	port := cfg.Port
	if port == 0 {
		port = 587
	}
	return &smtpMailer{
		addr:     net.JoinHostPort(cfg.Host, strconv.Itoa(port)),
		username: cfg.Username,
		password: cfg.Password,
		log:      log,
	}
}

// Send delivers the message over SMTP, upgrading to STARTTLS when the
// server offers it and authenticating with PLAIN when a username is
// configured. The SMTP client has no context hook, so cancellation is
// only checked before dialing.
func (m *smtpMailer) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	var auth sasl.Client
	if m.username != "" {
		auth = sasl.NewPlainClient("", m.username, m.password)
	}
	r := strings.NewReader(buildMessage(msg, time.Now()))
	if err := smtp.SendMail(m.addr, auth, msg.From, msg.Recipients(), r); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	m.log.Info("Sent email", "provider", "smtp", "to", strings.Join(msg.To, ","), "subject", msg.Subject)
	return nil
}

// buildMessage renders the RFC 822 payload.
func buildMessage(msg Message, now time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", msg.From)
	fmt.Fprintf(&b, "To: %s\r\n", strings.Join(msg.To, ", "))
	if len(msg.Cc) > 0 {
		fmt.Fprintf(&b, "Cc: %s\r\n", strings.Join(msg.Cc, ", "))
	}
	fmt.Fprintf(&b, "Date: %s\r\n", now.Format(time.RFC1123Z))
	fmt.Fprintf(&b, "Subject: %s\r\n", msg.Subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(strings.ReplaceAll(msg.Body, "\n", "\r\n"))
	return b.String()
}

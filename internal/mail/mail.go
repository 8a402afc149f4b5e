// Package mail delivers the weekly subscriber summaries. Two transports
// are supported, selected by the mail.provider config key: Amazon SES
// (the default) and plain SMTP with STARTTLS.
package mail

import (
	"context"
	"fmt"

	"github.com/zgpcy/status-exporter/internal/config"
	"github.com/zgpcy/status-exporter/internal/logger"
)

// Message is one outgoing email.
type Message struct {
	From    string
	To      []string
	Cc      []string
	Subject string
	Body    string
}

// Recipients returns every envelope recipient of the message.
func (m Message) Recipients() []string {
	out := make([]string, 0, len(m.To)+len(m.Cc))
	out = append(out, m.To...)
	out = append(out, m.Cc...)
	return out
}

// Mailer delivers messages.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// New builds the transport selected by the config. An empty provider
// means SES.
func New(ctx context.Context, cfg config.MailConfig, log *logger.Logger) (Mailer, error) {
	switch cfg.Provider {
	case "", "ses":
		return newSES(ctx, cfg.SES, log)
	case "smtp":
		return newSMTP(cfg.SMTP, log), nil
	default:
		return nil, fmt.Errorf("unknown mail provider %q", cfg.Provider)
	}
}

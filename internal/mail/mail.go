package mail

import (
	"context"
	"sync"

	"github.com/gofiber/fiber/v2/log"

	"fintrack/internal/config"
)

type Email struct {
	Subject      string
	Body         string
	From         string
	To           []string
	Template     string
	TemplateVars map[string]any
}

type Mailer interface {
	SendMail(ctx context.Context, e *Email) error
}

// New picks the mail transport from the configuration: SMTP when a host is
// set, Mailgun when an API key is set, and the log mailer otherwise.
func New(cfg *config.Config) Mailer {
	switch {
	case cfg.SMTPHost != "":
		return NewSMTP(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass)
	case cfg.MailgunAPIKey != "":
		return NewMailer(cfg.MailgunDomain, cfg.MailgunAPIKey, cfg.MailgunAPIBase)
	default:
		return LogMailer{}
	}
}

// LogMailer writes mail to the log instead of delivering it.
type LogMailer struct{}

func (LogMailer) SendMail(ctx context.Context, e *Email) error {
	log.Infow("mail not delivered, no transport configured",
		"to", e.To,
		"subject", e.Subject,
		"body", e.Body,
	)
	return nil
}

// Recorder keeps sent mail in memory and can be told to fail.
type Recorder struct {
	mu   sync.Mutex
	sent []*Email
	Err  error
}

func (r *Recorder) SendMail(ctx context.Context, e *Email) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	r.sent = append(r.sent, e)
	return nil
}

func (r *Recorder) Sent() []*Email {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*Email(nil), r.sent...)
}

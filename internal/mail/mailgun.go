package mail

import (
	"context"
	"time"

	"github.com/mailgun/mailgun-go/v4"
)

type Mailgun struct {
	domain  string
	apiKey  string
	apiBase string
}

func NewMailer(domain, apiKey, apiBase string) *Mailgun {
	return &Mailgun{
		domain:  domain,
		apiKey:  apiKey,
		apiBase: apiBase,
	}
}

func (m *Mailgun) client() *mailgun.MailgunImpl {
	mg := mailgun.NewMailgun(m.domain, m.apiKey)
	if m.apiBase != "" {
		mg.SetAPIBase(m.apiBase)
	}
	return mg
}

// SendMail sends e through Mailgun. A template name takes precedence over the
// plain body.
func (m *Mailgun) SendMail(ctx context.Context, e *Email) error {
	if e.Template != "" {
		return m.SendTemplatedMail(ctx, e)
	}

	message := mailgun.NewMessage(e.From, e.Subject, e.Body, e.To...)

	ctx, cancel := context.WithTimeout(ctx, time.Second*5)
	defer cancel()

	_, _, err := m.client().Send(ctx, message)
	return err
}

func (m *Mailgun) SendTemplatedMail(ctx context.Context, e *Email) error {
	message := mailgun.NewMessage(e.From, e.Subject, "", e.To...)
	message.SetTemplate(e.Template)

	for k, v := range e.TemplateVars {
		if err := message.AddTemplateVariable(k, v); err != nil {
			return err
		}
	}

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	_, _, err := m.client().Send(ctx, message)
	return err
}

package mail

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/mail"
	"net/url"

	"github.com/dajohi/goemail"
)

// SMTP delivers plain text mail over implicit TLS. Recipients are addressed
// as BCC so a message to several users never leaks addresses.
type SMTP struct {
	host     string
	port     int
	user     string
	password string
}

func NewSMTP(host string, port int, user, password string) *SMTP {
	return &SMTP{host: host, port: port, user: user, password: password}
}

func (s *SMTP) url() string {
	u := url.URL{
		Scheme: "smtps",
		Host:   fmt.Sprintf("%s:%d", s.host, s.port),
	}
	if s.user != "" {
		u.User = url.UserPassword(s.user, s.password)
	}
	return u.String()
}

// SendMail ignores ctx once the message is handed to the SMTP client, which
// has no cancellation support.
func (s *SMTP) SendMail(ctx context.Context, e *Email) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	from, err := mail.ParseAddress(e.From)
	if err != nil {
		return fmt.Errorf("invalid sender address: %w", err)
	}

	client, err := goemail.NewSMTP(s.url(), &tls.Config{ServerName: s.host})
	if err != nil {
		return err
	}

	msg := goemail.NewMessage(from.Address, e.Subject, e.Body)
	msg.SetName(from.Name)
	for _, to := range e.To {
		msg.AddBCC(to)
	}

	return client.Send(msg)
}

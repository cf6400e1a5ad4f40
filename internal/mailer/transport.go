package mailer

import (
	"context"
	"crypto/tls"
	"fmt"

	mail "github.com/go-mail/mail"
	"github.com/google/uuid"
)

// Transport is a single outbound delivery channel. Implementations perform
// exactly one attempt per call; retry and fallback policy belongs to the
// orchestrator.
type Transport interface {
	Name() string
	Send(ctx context.Context, msg Message) (Receipt, error)
}

// SMTPConfig holds the connection settings for one SMTP transport.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	UseTLS   bool
}

// SMTPTransport delivers messages over SMTP using a fresh dialer per send.
type SMTPTransport struct {
	name string
	cfg  SMTPConfig
}

// NewSMTPTransport constructs a named SMTP transport.
func NewSMTPTransport(name string, cfg SMTPConfig) *SMTPTransport {
	return &SMTPTransport{name: name, cfg: cfg}
}

// Name returns the transport's wiring name, e.g. "primary".
func (t *SMTPTransport) Name() string { return t.name }

// Send delivers one message and returns a receipt with the generated
// Message-ID.
func (t *SMTPTransport) Send(ctx context.Context, msg Message) (Receipt, error) {
	if err := ctx.Err(); err != nil {
		return Receipt{}, err
	}
	if len(msg.To) == 0 {
		return Receipt{}, fmt.Errorf("smtp %s: no recipients", t.name)
	}

	m := mail.NewMessage()
	m.SetAddressHeader("From", msg.From.Address, msg.From.Name)
	to := make([]string, 0, len(msg.To))
	for _, rcpt := range msg.To {
		to = append(to, m.FormatAddress(rcpt.Address, rcpt.Name))
	}
	m.SetHeader("To", to...)
	m.SetHeader("Subject", msg.Subject)
	messageID := fmt.Sprintf("<%s@%s>", uuid.NewString(), t.cfg.Host)
	m.SetHeader("Message-ID", messageID)
	m.SetBody("text/html", msg.HTML)

	d := mail.NewDialer(t.cfg.Host, t.cfg.Port, t.cfg.Username, t.cfg.Password)
	d.TLSConfig = &tls.Config{ServerName: t.cfg.Host}
	if t.cfg.UseTLS {
		d.SSL = true
	}

	if err := d.DialAndSend(m); err != nil {
		return Receipt{}, fmt.Errorf("smtp %s: %w", t.name, err)
	}
	return Receipt{
		MessageID: messageID,
		Response:  fmt.Sprintf("accepted by %s:%d", t.cfg.Host, t.cfg.Port),
	}, nil
}

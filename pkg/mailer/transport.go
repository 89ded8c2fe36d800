package mailer

import (
	"context"
	"crypto/tls"
	"io"
	"time"

	"github.com/charmbracelet/log"
	"gopkg.in/gomail.v2"

	"github.com/matzehuels/ticketblaster/pkg/config"
	"github.com/matzehuels/ticketblaster/pkg/errors"
	"github.com/matzehuels/ticketblaster/pkg/observability"
)

// Transport delivers assembled messages.
type Transport interface {
	Send(ctx context.Context, m *gomail.Message) error
}

// SMTPTransport sends through a single SMTP relay, one session per message.
type SMTPTransport struct {
	dialer *gomail.Dialer
	logger *log.Logger
}

// NewSMTPTransport creates a transport for cfg authenticated with creds.
// Authentication only happens when the server advertises AUTH.
func NewSMTPTransport(cfg config.SMTP, creds config.Credentials, logger *log.Logger) *SMTPTransport {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	d := gomail.NewDialer(cfg.Host, cfg.Port, creds.Username, creds.Password)
	d.SSL = cfg.SSL
	if cfg.InsecureSkipVerify {
		logger.Warn("TLS certificate verification disabled", "host", cfg.Host)
		d.TLSConfig = &tls.Config{InsecureSkipVerify: true, ServerName: cfg.Host}
	}
	return &SMTPTransport{dialer: d, logger: logger}
}

// Host returns the relay host name.
func (t *SMTPTransport) Host() string {
	return t.dialer.Host
}

// Send opens a session, authenticates and transmits m to all recipients.
// Every failure is reported as a TRANSPORT error. Cancelling ctx stops
// waiting for the session; there are no retries.
func (t *SMTPTransport) Send(ctx context.Context, m *gomail.Message) error {
	hooks := observability.Mail()
	recipients := len(m.GetHeader("To"))
	hooks.OnSendStart(ctx, t.dialer.Host, recipients)
	start := time.Now()

	done := make(chan error, 1)
	go func() { done <- t.dialer.DialAndSend(m) }()

	var err error
	select {
	case err = <-done:
	case <-ctx.Done():
		err = ctx.Err()
	}
	hooks.OnSendComplete(ctx, t.dialer.Host, time.Since(start), err)

	if err != nil {
		t.logger.Debug("smtp session failed", "host", t.dialer.Host, "port", t.dialer.Port, "err", err)
		return errors.Wrap(errors.ErrCodeTransport, err, "email delivery failed")
	}
	t.logger.Debug("smtp session complete", "host", t.dialer.Host, "recipients", recipients)
	return nil
}

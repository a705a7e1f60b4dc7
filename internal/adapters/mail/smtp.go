package mail

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/smtp"

	"invoicedesk/internal/domain"
)

// Client is the subset of the net/smtp conversation the transport drives.
// Tests substitute a fake; production uses the real *smtp.Client.
type Client interface {
	Hello(localName string) error
	Extension(ext string) (bool, string)
	StartTLS(config *tls.Config) error
	Auth(a smtp.Auth) error
	Mail(from string) error
	Rcpt(to string) error
	Data() (io.WriteCloser, error)
	Quit() error
	Close() error
}

// Dialer opens an SMTP conversation to addr.
type Dialer interface {
	Dial(addr string) (Client, error)
}

// NetDialer dials with net/smtp.
type NetDialer struct{}

func (NetDialer) Dial(addr string) (Client, error) {
	return smtp.Dial(addr)
}

// authFunc produces the SASL mechanism for one conversation. OAuth2-backed
// transports refresh the access token here, so every dial authenticates with
// a token the provider just vouched for.
type authFunc func(ctx context.Context) (smtp.Auth, error)

// SMTPTransport sends messages over one configured SMTP account.
type SMTPTransport struct {
	dialer   Dialer
	host     string
	port     int
	from     string
	fromName string
	auth     authFunc
}

func (t *SMTPTransport) addr() string {
	return fmt.Sprintf("%s:%d", t.host, t.port)
}

// connect dials, negotiates STARTTLS when offered, and authenticates.
func (t *SMTPTransport) connect(ctx context.Context) (Client, error) {
	client, err := t.dialer.Dial(t.addr())
	if err != nil {
		return nil, fmt.Errorf("%w: dial %s: %v", domain.ErrTransportConfig, t.addr(), err)
	}
	if err := client.Hello("localhost"); err != nil {
		client.Close()
		return nil, fmt.Errorf("smtp hello: %w", err)
	}
	if ok, _ := client.Extension("STARTTLS"); ok {
		if err := client.StartTLS(&tls.Config{ServerName: t.host, MinVersion: tls.VersionTLS12}); err != nil {
			client.Close()
			return nil, fmt.Errorf("smtp starttls: %w", err)
		}
	}
	if t.auth != nil {
		auth, err := t.auth(ctx)
		if err != nil {
			client.Close()
			return nil, err
		}
		if err := client.Auth(auth); err != nil {
			client.Close()
			return nil, fmt.Errorf("smtp auth: %w", err)
		}
	}
	return client, nil
}

// Send delivers msg and returns the generated Message-ID.
func (t *SMTPTransport) Send(ctx context.Context, msg *domain.Message) (string, error) {
	client, err := t.connect(ctx)
	if err != nil {
		return "", err
	}
	defer client.Close()

	if err := client.Mail(t.from); err != nil {
		return "", fmt.Errorf("smtp mail from: %w", err)
	}
	recipients := append([]string{msg.To}, msg.CC...)
	for _, rcpt := range recipients {
		if err := client.Rcpt(rcpt); err != nil {
			return "", fmt.Errorf("smtp rcpt %s: %w", rcpt, err)
		}
	}

	w, err := client.Data()
	if err != nil {
		return "", fmt.Errorf("smtp data: %w", err)
	}
	messageID := newMessageID(t.from)
	out := msg
	if out.From == "" {
		cp := *msg
		cp.From = t.from
		cp.FromName = t.fromName
		out = &cp
	}
	if _, err := w.Write(buildMIME(out, messageID)); err != nil {
		w.Close()
		return "", fmt.Errorf("smtp write body: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("smtp close body: %w", err)
	}
	if err := client.Quit(); err != nil {
		return "", fmt.Errorf("smtp quit: %w", err)
	}
	return messageID, nil
}

// Verify exercises the handshake and login without sending a message.
func (t *SMTPTransport) Verify(ctx context.Context) error {
	client, err := t.connect(ctx)
	if err != nil {
		return err
	}
	defer client.Close()
	return client.Quit()
}

package mailer

import (
	"bytes"
	"context"
	"crypto"
	"crypto/tls"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/emersion/go-msgauth/dkim"
	"github.com/emersion/go-sasl"
	"github.com/emersion/go-smtp"

	"contactguard/internal/config"
)

// SMTPDispatcher submits each message over its own connection to a relay.
// With Secure set the connection is TLS from the first byte; otherwise
// STARTTLS is used when the relay offers it.
type SMTPDispatcher struct {
	cfg       config.SMTPConfig
	tlsConfig *tls.Config
	dkim      *dkim.SignOptions
	now       func() time.Time
}

func NewSMTPDispatcher(cfg config.SMTPConfig) (*SMTPDispatcher, error) {
	d := &SMTPDispatcher{
		cfg:       cfg,
		tlsConfig: &tls.Config{ServerName: cfg.Host, MinVersion: tls.VersionTLS12},
		now:       time.Now,
	}

	if cfg.DKIM.KeyFile != "" {
		signer, err := loadDKIMKey(cfg.DKIM.KeyFile)
		if err != nil {
			return nil, err
		}
		selector := cfg.DKIM.Selector
		if selector == "" {
			selector = "default"
		}
		d.dkim = &dkim.SignOptions{
			Domain:   cfg.DKIM.Domain,
			Selector: selector,
			Signer:   signer,
		}
	}

	return d, nil
}

func (d *SMTPDispatcher) Send(ctx context.Context, env Envelope) error {
	from, err := envelopeAddress(env.From)
	if err != nil {
		return fmt.Errorf("invalid from address: %w", err)
	}
	to, err := envelopeAddress(env.To)
	if err != nil {
		return fmt.Errorf("invalid to address: %w", err)
	}

	raw, err := buildMessage(env, d.now())
	if err != nil {
		return fmt.Errorf("failed to build message: %w", err)
	}

	if d.dkim != nil {
		var signed bytes.Buffer
		if err := dkim.Sign(&signed, bytes.NewReader(raw), d.dkim); err != nil {
			return fmt.Errorf("failed to sign message: %w", err)
		}
		raw = signed.Bytes()
	}

	client, stop, err := d.connect(ctx)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("smtp send aborted: %w", ctxErr)
		}
		return err
	}
	defer stop()
	defer client.Close()

	if err := d.submit(client, from, to, raw); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("smtp send aborted: %w", ctxErr)
		}
		return err
	}
	return nil
}

// connect opens a session ready for MAIL FROM. On a plain connection the
// relay's EHLO decides whether to upgrade. go-smtp only upgrades inside
// NewClientStartTLS, so an offered STARTTLS means a second connection.
func (d *SMTPDispatcher) connect(ctx context.Context) (*smtp.Client, func() bool, error) {
	conn, stop, err := d.open(ctx)
	if err != nil {
		return nil, nil, err
	}

	client := smtp.NewClient(conn)
	if err := d.hello(client); err != nil {
		stop()
		client.Close()
		return nil, nil, err
	}
	if d.cfg.Secure {
		return client, stop, nil
	}

	if ok, _ := client.Extension("STARTTLS"); !ok {
		return client, stop, nil
	}
	_ = client.Quit()
	stop()

	conn, stop, err = d.open(ctx)
	if err != nil {
		return nil, nil, err
	}
	client, err = smtp.NewClientStartTLS(conn, d.tlsConfig)
	if err != nil {
		stop()
		return nil, nil, fmt.Errorf("STARTTLS failed: %w", err)
	}
	if err := d.hello(client); err != nil {
		stop()
		client.Close()
		return nil, nil, err
	}
	return client, stop, nil
}

// open dials the relay and ties the connection to ctx. The returned stop
// releases that tie.
func (d *SMTPDispatcher) open(ctx context.Context) (net.Conn, func() bool, error) {
	conn, err := d.dial(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to %s: %w", d.addr(), err)
	}

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}
	// Unblock any pending read or write if the caller gives up early.
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	return conn, stop, nil
}

func (d *SMTPDispatcher) hello(client *smtp.Client) error {
	if d.cfg.HeloName == "" {
		return nil
	}
	if err := client.Hello(d.cfg.HeloName); err != nil {
		return fmt.Errorf("EHLO failed: %w", err)
	}
	return nil
}

func (d *SMTPDispatcher) submit(client *smtp.Client, from, to string, raw []byte) error {
	if d.cfg.User != "" {
		if err := client.Auth(sasl.NewPlainClient("", d.cfg.User, d.cfg.Password)); err != nil {
			return fmt.Errorf("AUTH failed: %w", err)
		}
	}

	if err := client.Mail(from, nil); err != nil {
		return fmt.Errorf("MAIL FROM failed: %w", err)
	}
	if err := client.Rcpt(to, nil); err != nil {
		return fmt.Errorf("RCPT TO failed: %w", err)
	}

	wc, err := client.Data()
	if err != nil {
		return fmt.Errorf("DATA failed: %w", err)
	}
	if _, err := wc.Write(raw); err != nil {
		_ = wc.Close()
		return fmt.Errorf("failed to write message: %w", err)
	}
	if err := wc.Close(); err != nil {
		return fmt.Errorf("message rejected: %w", err)
	}

	return client.Quit()
}

func (d *SMTPDispatcher) addr() string {
	return net.JoinHostPort(d.cfg.Host, strconv.Itoa(d.cfg.Port))
}

func (d *SMTPDispatcher) dial(ctx context.Context) (net.Conn, error) {
	if d.cfg.Secure {
		dialer := &tls.Dialer{Config: d.tlsConfig}
		return dialer.DialContext(ctx, "tcp", d.addr())
	}
	var dialer net.Dialer
	return dialer.DialContext(ctx, "tcp", d.addr())
}

func loadDKIMKey(path string) (crypto.Signer, error) {
	keyData, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read DKIM key: %w", err)
	}

	block, _ := pem.Decode(keyData)
	if block == nil {
		return nil, fmt.Errorf("failed to decode DKIM key PEM block")
	}

	if key, err := x509.ParsePKCS1PrivateKey(block.Bytes); err == nil {
		return key, nil
	}

	key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse DKIM key (tried PKCS1 and PKCS8): %w", err)
	}
	signer, ok := key.(crypto.Signer)
	if !ok {
		return nil, fmt.Errorf("DKIM key of type %T cannot sign", key)
	}
	return signer, nil
}

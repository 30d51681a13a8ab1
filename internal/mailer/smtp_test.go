package mailer

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"errors"
	"io"
	"math/big"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/emersion/go-sasl"
	"github.com/emersion/go-smtp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"contactguard/internal/config"
	"contactguard/pkg/models"
)

type receivedMail struct {
	from string
	to   []string
	data []byte
	user string
	tls  bool
}

// relayBackend is an in-memory SMTP relay for tests.
type relayBackend struct {
	mu       sync.Mutex
	messages []receivedMail
	user     string
	password string
}

func (b *relayBackend) NewSession(c *smtp.Conn) (smtp.Session, error) {
	return &relaySession{backend: b, conn: c}, nil
}

func (b *relayBackend) received() []receivedMail {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]receivedMail(nil), b.messages...)
}

type relaySession struct {
	backend *relayBackend
	conn    *smtp.Conn
	current receivedMail
}

func (s *relaySession) AuthMechanisms() []string {
	if s.backend.user == "" {
		return nil
	}
	return []string{sasl.Plain}
}

func (s *relaySession) Auth(mech string) (sasl.Server, error) {
	return sasl.NewPlainServer(func(identity, username, password string) error {
		if username != s.backend.user || password != s.backend.password {
			return errors.New("invalid credentials")
		}
		s.current.user = username
		return nil
	}), nil
}

func (s *relaySession) Mail(from string, _ *smtp.MailOptions) error {
	if s.backend.user != "" && s.current.user == "" {
		return smtp.ErrAuthRequired
	}
	s.current.from = from
	_, s.current.tls = s.conn.TLSConnectionState()
	return nil
}

func (s *relaySession) Rcpt(to string, _ *smtp.RcptOptions) error {
	s.current.to = append(s.current.to, to)
	return nil
}

func (s *relaySession) Data(r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	s.current.data = data

	s.backend.mu.Lock()
	s.backend.messages = append(s.backend.messages, s.current)
	s.backend.mu.Unlock()
	return nil
}

func (s *relaySession) Reset() {
	s.current = receivedMail{user: s.current.user}
}

func (s *relaySession) Logout() error {
	return nil
}

func startRelay(t *testing.T, backend *relayBackend) config.SMTPConfig {
	return startRelayWith(t, backend, nil, false)
}

// startRelayWith offers STARTTLS when tlsConfig is set, or speaks TLS from
// the first byte when implicit is also set.
func startRelayWith(t *testing.T, backend *relayBackend, tlsConfig *tls.Config, implicit bool) config.SMTPConfig {
	t.Helper()

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	server := smtp.NewServer(backend)
	server.Domain = "relay.test"
	server.AllowInsecureAuth = true
	server.ReadTimeout = 5 * time.Second
	server.WriteTimeout = 5 * time.Second

	var serveOn net.Listener = l
	if tlsConfig != nil {
		if implicit {
			serveOn = tls.NewListener(l, tlsConfig)
		} else {
			server.TLSConfig = tlsConfig
		}
	}

	go func() {
		_ = server.Serve(serveOn)
	}()
	t.Cleanup(func() { _ = server.Close() })

	host, port, err := net.SplitHostPort(l.Addr().String())
	require.NoError(t, err)
	portNum, err := strconv.Atoi(port)
	require.NoError(t, err)

	return config.SMTPConfig{Host: host, Port: portNum, Secure: tlsConfig != nil && implicit, HeloName: "contact.test"}
}

// selfSignedRelayTLS returns a server config for 127.0.0.1 and a client
// config that trusts it.
func selfSignedRelayTLS(t *testing.T) (*tls.Config, *tls.Config) {
	t.Helper()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	template := &x509.Certificate{
		SerialNumber:          big.NewInt(1),
		Subject:               pkix.Name{CommonName: "relay.test"},
		IPAddresses:           []net.IP{net.ParseIP("127.0.0.1")},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(time.Hour),
		KeyUsage:              x509.KeyUsageDigitalSignature | x509.KeyUsageCertSign,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
		IsCA:                  true,
	}
	der, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	require.NoError(t, err)
	cert, err := x509.ParseCertificate(der)
	require.NoError(t, err)

	pool := x509.NewCertPool()
	pool.AddCert(cert)

	server := &tls.Config{Certificates: []tls.Certificate{{Certificate: [][]byte{der}, PrivateKey: key}}}
	client := &tls.Config{ServerName: "127.0.0.1", RootCAs: pool, MinVersion: tls.VersionTLS12}
	return server, client
}

func testEnvelope() Envelope {
	return Compose("site@example.com", "owner@example.com", models.ContactMessage{
		Name:    "Alice",
		Email:   "alice@example.org",
		Subject: "Quote",
		Message: "<script>alert('x')</script> please call me",
	})
}

func TestSMTPDispatcher_Send(t *testing.T) {
	backend := &relayBackend{}
	cfg := startRelay(t, backend)

	d, err := NewSMTPDispatcher(cfg)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, d.Send(ctx, testEnvelope()))

	received := backend.received()
	require.Len(t, received, 1)
	assert.Equal(t, "site@example.com", received[0].from)
	assert.Equal(t, []string{"owner@example.com"}, received[0].to)

	parsed := parseMessage(t, received[0].data)
	assert.Equal(t, "<alice@example.org>", parsed.header.Get("Reply-To"))
	assert.Equal(t, "Quote (Contact form)", parsed.header.Get("Subject"))
	assert.Contains(t, parsed.text, "<script>alert('x')</script> please call me")
	assert.Contains(t, parsed.html, "&lt;script&gt;alert(&#39;x&#39;)&lt;/script&gt;")
}

func TestSMTPDispatcher_StartTLSWhenOffered(t *testing.T) {
	serverTLS, clientTLS := selfSignedRelayTLS(t)
	backend := &relayBackend{user: "relay-user", password: "s3cret"}
	cfg := startRelayWith(t, backend, serverTLS, false)
	cfg.User = "relay-user"
	cfg.Password = "s3cret"

	d, err := NewSMTPDispatcher(cfg)
	require.NoError(t, err)
	d.tlsConfig = clientTLS

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, d.Send(ctx, testEnvelope()))

	received := backend.received()
	require.Len(t, received, 1)
	assert.True(t, received[0].tls)
	assert.Equal(t, "relay-user", received[0].user)
}

func TestSMTPDispatcher_StartTLSUntrustedRelay(t *testing.T) {
	serverTLS, _ := selfSignedRelayTLS(t)
	backend := &relayBackend{}
	cfg := startRelayWith(t, backend, serverTLS, false)

	d, err := NewSMTPDispatcher(cfg)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err = d.Send(ctx, testEnvelope())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "STARTTLS")
	assert.Empty(t, backend.received())
}

func TestSMTPDispatcher_PlainWithoutStartTLS(t *testing.T) {
	backend := &relayBackend{}
	cfg := startRelay(t, backend)

	d, err := NewSMTPDispatcher(cfg)
	require.NoError(t, err)
	require.NoError(t, d.Send(context.Background(), testEnvelope()))

	received := backend.received()
	require.Len(t, received, 1)
	assert.False(t, received[0].tls)
}

func TestSMTPDispatcher_ImplicitTLS(t *testing.T) {
	serverTLS, clientTLS := selfSignedRelayTLS(t)
	backend := &relayBackend{}
	cfg := startRelayWith(t, backend, serverTLS, true)
	require.True(t, cfg.Secure)

	d, err := NewSMTPDispatcher(cfg)
	require.NoError(t, err)
	d.tlsConfig = clientTLS

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, d.Send(ctx, testEnvelope()))

	received := backend.received()
	require.Len(t, received, 1)
	assert.True(t, received[0].tls)
}

func TestSMTPDispatcher_Auth(t *testing.T) {
	backend := &relayBackend{user: "relay-user", password: "s3cret"}
	cfg := startRelay(t, backend)

	cfg.User = "relay-user"
	cfg.Password = "s3cret"
	d, err := NewSMTPDispatcher(cfg)
	require.NoError(t, err)
	require.NoError(t, d.Send(context.Background(), testEnvelope()))
	assert.Len(t, backend.received(), 1)

	cfg.Password = "wrong"
	d, err = NewSMTPDispatcher(cfg)
	require.NoError(t, err)
	assert.Error(t, d.Send(context.Background(), testEnvelope()))
	assert.Len(t, backend.received(), 1)
}

func TestSMTPDispatcher_ConnectionRefused(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().(*net.TCPAddr)
	require.NoError(t, l.Close())

	d, err := NewSMTPDispatcher(config.SMTPConfig{Host: "127.0.0.1", Port: addr.Port})
	require.NoError(t, err)

	assert.Error(t, d.Send(context.Background(), testEnvelope()))
}

func TestSMTPDispatcher_DeadlineOnSilentRelay(t *testing.T) {
	// Accepts connections but never sends a greeting.
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()
	go func() {
		for {
			conn, err := l.Accept()
			if err != nil {
				return
			}
			defer conn.Close()
		}
	}()

	addr := l.Addr().(*net.TCPAddr)
	d, err := NewSMTPDispatcher(config.SMTPConfig{Host: "127.0.0.1", Port: addr.Port})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	err = d.Send(ctx, testEnvelope())

	assert.Error(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestSMTPDispatcher_DKIM(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	keyFile := filepath.Join(t.TempDir(), "dkim.key")
	pemBytes := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)})
	require.NoError(t, os.WriteFile(keyFile, pemBytes, 0o600))

	backend := &relayBackend{}
	cfg := startRelay(t, backend)
	cfg.DKIM = config.DKIMConfig{Domain: "example.com", Selector: "mail", KeyFile: keyFile}

	d, err := NewSMTPDispatcher(cfg)
	require.NoError(t, err)
	require.NoError(t, d.Send(context.Background(), testEnvelope()))

	received := backend.received()
	require.Len(t, received, 1)

	parsed := parseMessage(t, received[0].data)
	signature := parsed.header.Get("DKIM-Signature")
	assert.Contains(t, signature, "d=example.com")
	assert.Contains(t, signature, "s=mail")
}

func TestNewSMTPDispatcher_BadDKIMKey(t *testing.T) {
	keyFile := filepath.Join(t.TempDir(), "dkim.key")
	require.NoError(t, os.WriteFile(keyFile, []byte("not a key"), 0o600))

	_, err := NewSMTPDispatcher(config.SMTPConfig{
		Host: "localhost",
		Port: 25,
		DKIM: config.DKIMConfig{Domain: "example.com", KeyFile: keyFile},
	})
	assert.Error(t, err)
}

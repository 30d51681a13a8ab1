package mailer

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"contactguard/internal/config"
	"contactguard/pkg/circuitbreaker"
)

type recordingDispatcher struct {
	mu    sync.Mutex
	sent  []Envelope
	err   error
	calls int
}

func (d *recordingDispatcher) Send(ctx context.Context, env Envelope) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls++
	if d.err != nil {
		return d.err
	}
	d.sent = append(d.sent, env)
	return nil
}

func TestCircuitBreakerDispatcher_OpensOnRepeatedFailure(t *testing.T) {
	next := &recordingDispatcher{err: errors.New("relay down")}
	d := NewCircuitBreakerDispatcher(next, circuitbreaker.DefaultConfig("test-mail"))

	for i := 0; i < 3; i++ {
		assert.Error(t, d.Send(context.Background(), testEnvelope()))
	}
	err := d.Send(context.Background(), testEnvelope())

	assert.True(t, circuitbreaker.IsRejection(err))
	assert.Equal(t, 3, next.calls)
}

func TestThrottledDispatcher_RespectsDeadline(t *testing.T) {
	next := &recordingDispatcher{}
	d := NewThrottledDispatcher(next, 0.001, 1)

	require.NoError(t, d.Send(context.Background(), testEnvelope()))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err := d.Send(ctx, testEnvelope())

	assert.Error(t, err)
	assert.Equal(t, 1, next.calls)
}

func TestInstrumentedDispatcher_PassesThrough(t *testing.T) {
	cause := errors.New("boom")
	next := &recordingDispatcher{err: cause}

	err := NewInstrumentedDispatcher(next, "smtp").Send(context.Background(), testEnvelope())
	assert.ErrorIs(t, err, cause)
}

func TestNew_SelectsTransport(t *testing.T) {
	cfg := config.MailConfig{
		Transport:     "smtp",
		From:          "site@example.com",
		To:            "owner@example.com",
		RatePerSecond: 5,
		Burst:         10,
		SMTP:          config.SMTPConfig{Host: "localhost", Port: 2525},
	}

	d, err := New(context.Background(), cfg, config.CircuitBreakerConfig{Enabled: true}, nil)
	require.NoError(t, err)
	assert.IsType(t, &ThrottledDispatcher{}, d)

	cfg.RatePerSecond = 0
	d, err = New(context.Background(), cfg, config.CircuitBreakerConfig{}, nil)
	require.NoError(t, err)
	assert.IsType(t, &InstrumentedDispatcher{}, d)

	cfg.Transport = "carrier-pigeon"
	_, err = New(context.Background(), cfg, config.CircuitBreakerConfig{}, nil)
	assert.Error(t, err)
}

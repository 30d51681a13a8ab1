package mailer

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"contactguard/pkg/circuitbreaker"
	"contactguard/pkg/metrics"
)

// CircuitBreakerDispatcher fails fast while the relay keeps failing.
type CircuitBreakerDispatcher struct {
	next Dispatcher
	cb   *circuitbreaker.Wrapper
}

func NewCircuitBreakerDispatcher(next Dispatcher, cfg circuitbreaker.Config) *CircuitBreakerDispatcher {
	return &CircuitBreakerDispatcher{
		next: next,
		cb:   circuitbreaker.NewWrapper(cfg),
	}
}

func (d *CircuitBreakerDispatcher) Send(ctx context.Context, env Envelope) error {
	_, err := d.cb.ExecuteWithContext(ctx, func() (interface{}, error) {
		return nil, d.next.Send(ctx, env)
	})
	if err != nil && circuitbreaker.IsRejection(err) {
		return fmt.Errorf("circuit breaker %s: %w", d.cb.Name(), err)
	}
	return err
}

// ThrottledDispatcher caps the outbound rate across all requests. Waiting for
// a token counts against the caller's deadline.
type ThrottledDispatcher struct {
	next    Dispatcher
	limiter *rate.Limiter
}

func NewThrottledDispatcher(next Dispatcher, perSecond float64, burst int) *ThrottledDispatcher {
	if burst < 1 {
		burst = 1
	}
	return &ThrottledDispatcher{
		next:    next,
		limiter: rate.NewLimiter(rate.Limit(perSecond), burst),
	}
}

func (d *ThrottledDispatcher) Send(ctx context.Context, env Envelope) error {
	if err := d.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("outbound mail throttled: %w", err)
	}
	return d.next.Send(ctx, env)
}

// InstrumentedDispatcher records dispatch counts and latency per transport.
type InstrumentedDispatcher struct {
	next      Dispatcher
	transport string
}

func NewInstrumentedDispatcher(next Dispatcher, transport string) *InstrumentedDispatcher {
	return &InstrumentedDispatcher{next: next, transport: transport}
}

func (d *InstrumentedDispatcher) Send(ctx context.Context, env Envelope) error {
	start := time.Now()
	err := d.next.Send(ctx, env)

	status := "success"
	if err != nil {
		status = "failure"
	}
	metrics.ObserveMailDispatch(d.transport, status, time.Since(start))
	return err
}

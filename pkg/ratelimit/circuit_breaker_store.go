package ratelimit

import (
	"context"
	"fmt"
	"time"

	"contactguard/pkg/circuitbreaker"
)

// CircuitBreakerStore stops calling a failing shared store for a while so
// that requests fall back immediately instead of waiting out the timeout.
type CircuitBreakerStore struct {
	store Store
	cb    *circuitbreaker.Wrapper
}

func NewCircuitBreakerStore(store Store, cfg circuitbreaker.Config) *CircuitBreakerStore {
	return &CircuitBreakerStore{
		store: store,
		cb:    circuitbreaker.NewWrapper(cfg),
	}
}

func (s *CircuitBreakerStore) Name() string {
	return s.store.Name()
}

func (s *CircuitBreakerStore) Admit(ctx context.Context, key string, now time.Time, window time.Duration, limit int) (Decision, error) {
	result, err := s.cb.ExecuteWithContext(ctx, func() (interface{}, error) {
		return s.store.Admit(ctx, key, now, window, limit)
	})
	if err != nil {
		if circuitbreaker.IsRejection(err) {
			return Decision{}, fmt.Errorf("circuit breaker %s: %w", s.cb.Name(), err)
		}
		return Decision{}, err
	}

	decision, ok := result.(Decision)
	if !ok {
		return Decision{}, fmt.Errorf("store returned invalid result type %T", result)
	}
	return decision, nil
}

func (s *CircuitBreakerStore) State() string {
	return s.cb.State().String()
}

// Check fails while the breaker is open, i.e. while every admission is
// being decided by the local fallback.
func (s *CircuitBreakerStore) Check(context.Context) error {
	if s.cb.IsOpen() {
		return fmt.Errorf("circuit breaker %s is %s, using local fallback", s.cb.Name(), s.State())
	}
	return nil
}

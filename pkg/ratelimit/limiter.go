package ratelimit

import (
	"context"
	"errors"
	"time"

	"contactguard/internal/constants"
	"contactguard/internal/logger"
	"contactguard/pkg/metrics"
)

type Config struct {
	Window       time.Duration
	MaxRequests  int
	StoreTimeout time.Duration
}

func DefaultConfig() Config {
	return Config{
		Window:       60 * time.Second,
		MaxRequests:  3,
		StoreTimeout: 250 * time.Millisecond,
	}
}

type Option func(*Limiter)

// WithSharedStore makes store the primary store. The local store then only
// answers while the shared one is failing.
func WithSharedStore(store Store) Option {
	return func(l *Limiter) {
		l.shared = store
	}
}

func WithClock(now func() time.Time) Option {
	return func(l *Limiter) {
		l.now = now
	}
}

// Limiter admits at most MaxRequests per identity in any trailing Window.
type Limiter struct {
	cfg    Config
	local  *MemoryStore
	shared Store
	now    func() time.Time
	logger logger.Logger
}

func NewLimiter(cfg Config, local *MemoryStore, log logger.Logger, opts ...Option) *Limiter {
	defaults := DefaultConfig()
	if cfg.Window <= 0 {
		cfg.Window = defaults.Window
	}
	if cfg.MaxRequests < 1 {
		cfg.MaxRequests = defaults.MaxRequests
	}
	if cfg.StoreTimeout <= 0 {
		cfg.StoreTimeout = defaults.StoreTimeout
	}
	if local == nil {
		local = NewMemoryStore(defaultShards)
	}
	if log == nil {
		log = logger.NopLogger()
	}

	l := &Limiter{
		cfg:    cfg,
		local:  local,
		now:    time.Now,
		logger: log,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Admit records an attempt for identity and reports whether it is within the
// limit. It never fails: if the shared store errors or exceeds the store
// timeout, the decision comes from the local store instead.
func (l *Limiter) Admit(ctx context.Context, identity string) Decision {
	now := l.now()

	if l.shared != nil {
		storeCtx, cancel := context.WithTimeout(ctx, l.cfg.StoreTimeout)
		decision, err := l.shared.Admit(storeCtx, identity, now, l.cfg.Window, l.cfg.MaxRequests)
		cancel()
		if err == nil {
			l.record(decision)
			return decision
		}

		reason := "store_error"
		if errors.Is(storeCtx.Err(), context.DeadlineExceeded) {
			reason = "store_timeout"
		}
		metrics.IncFallbackUsage("ratelimit", constants.FallbackLocal, reason)
		l.logger.WarnwCtx(ctx, "Shared rate store unavailable, using local store",
			"store", l.shared.Name(),
			"reason", reason,
			"error", err,
		)
	}

	// The in-process store cannot fail.
	decision, _ := l.local.Admit(ctx, identity, now, l.cfg.Window, l.cfg.MaxRequests)
	l.record(decision)
	return decision
}

func (l *Limiter) record(decision Decision) {
	status := "allowed"
	if !decision.Allowed {
		status = "limited"
	}
	metrics.IncRateLimitRequest(status, decision.Store)
}

// Local exposes the in-process store for sweeping and size reporting.
func (l *Limiter) Local() *MemoryStore {
	return l.local
}

func (l *Limiter) Window() time.Duration {
	return l.cfg.Window
}

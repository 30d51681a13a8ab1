package mailer

import (
	"context"
	"fmt"
	"strings"

	"contactguard/internal/config"
	"contactguard/internal/constants"
	"contactguard/internal/logger"
	"contactguard/pkg/circuitbreaker"
)

// New builds the dispatcher chain for cfg: transport, then metrics, circuit
// breaker when enabled, and the outbound throttle outermost.
func New(ctx context.Context, cfg config.MailConfig, cbCfg config.CircuitBreakerConfig, log logger.Logger) (Dispatcher, error) {
	transport := strings.ToLower(cfg.Transport)
	if transport == "" {
		transport = constants.TransportSMTP
	}

	var (
		d   Dispatcher
		err error
	)
	switch transport {
	case constants.TransportSMTP:
		d, err = NewSMTPDispatcher(cfg.SMTP)
	case constants.TransportSES:
		d, err = NewSESDispatcher(ctx, cfg.SES)
	default:
		return nil, fmt.Errorf("unknown mail transport: %s", cfg.Transport)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create %s dispatcher: %w", transport, err)
	}

	d = NewInstrumentedDispatcher(d, transport)

	if cbCfg.Enabled {
		d = NewCircuitBreakerDispatcher(d, circuitbreaker.ConfigFor("mail-"+transport, cbCfg))
	}

	if cfg.RatePerSecond > 0 {
		d = NewThrottledDispatcher(d, cfg.RatePerSecond, cfg.Burst)
	}

	if log != nil {
		log.Infow("Mail dispatcher configured",
			"transport", transport,
			"circuit_breaker", cbCfg.Enabled,
			"rate_per_second", cfg.RatePerSecond,
		)
	}

	return d, nil
}

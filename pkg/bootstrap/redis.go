package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"contactguard/internal/config"
	"contactguard/internal/constants"
	"contactguard/internal/logger"
	"contactguard/pkg/retry"
)

type RedisConnector struct {
	Config config.RedisConfig
	Logger logger.Logger
	Policy retry.Policy
}

func NewRedisConnector(cfg config.RedisConfig, log logger.Logger) *RedisConnector {
	return &RedisConnector{
		Config: cfg,
		Logger: log,
		Policy: retry.Policy{
			MaxAttempts:     3,
			InitialInterval: 500 * time.Millisecond,
			MaxInterval:     2 * time.Second,
			Multiplier:      2.0,
			MaxElapsedTime:  10 * time.Second,
		},
	}
}

// InitRedis returns nil when no shared store is configured. An unreachable
// server is not fatal: the client reconnects on its own and the limiter
// answers from the local store meanwhile.
func (rc *RedisConnector) InitRedis(ctx context.Context) (*redis.Client, error) {
	if !rc.Config.Enabled() {
		return nil, nil
	}

	addr := fmt.Sprintf("%s:%d", rc.Config.Host, rc.Config.Port)
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: rc.Config.Password,
		DB:       rc.Config.DB,
	})

	ping := func() error {
		pingCtx, cancel := context.WithTimeout(ctx, constants.RedisPingTimeout)
		defer cancel()
		err := rdb.Ping(pingCtx).Err()
		// A reply error such as NOAUTH will not change between attempts.
		var replyErr redis.Error
		if errors.As(err, &replyErr) {
			return retry.Permanent(err)
		}
		return err
	}
	onRetry := func(attempt int, err error, next time.Duration) {
		rc.Logger.Warnw("Redis ping failed, retrying",
			"addr", addr,
			"attempt", attempt,
			"next_retry", next,
			"error", err,
		)
	}

	if err := retry.RetryWithCallback(ctx, rc.Policy, ping, onRetry); err != nil {
		if ctx.Err() != nil {
			rdb.Close()
			return nil, fmt.Errorf("failed to connect to Redis: %w", ctx.Err())
		}
		rc.Logger.Warnw("Redis unreachable, rate limiting starts on the local store", "addr", addr, "error", err)
		return rdb, nil
	}

	rc.Logger.Infow("Redis connected successfully", "addr", addr)
	return rdb, nil
}

func (rc *RedisConnector) Shutdown(rdb *redis.Client) []error {
	if rdb == nil {
		return nil
	}
	if err := rdb.Close(); err != nil {
		return []error{fmt.Errorf("redis close error: %w", err)}
	}
	return nil
}

package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func fastPolicy(attempts int) Policy {
	return Policy{
		MaxAttempts:     attempts,
		InitialInterval: time.Millisecond,
		MaxInterval:     2 * time.Millisecond,
		Multiplier:      2,
	}
}

func TestRetry_SucceedsAfterFailures(t *testing.T) {
	calls := 0
	err := RetryWithCallback(context.Background(), fastPolicy(3), func() error {
		calls++
		if calls < 3 {
			return errors.New("not yet")
		}
		return nil
	}, nil)

	assert.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetry_StopsAtMaxAttempts(t *testing.T) {
	calls := 0
	var retried []int
	err := RetryWithCallback(context.Background(), fastPolicy(2), func() error {
		calls++
		return errors.New("down")
	}, func(attempt int, err error, next time.Duration) {
		retried = append(retried, attempt)
	})

	assert.EqualError(t, err, "down")
	assert.Equal(t, 2, calls)
	assert.Equal(t, []int{1}, retried)
}

func TestRetry_PermanentStopsImmediately(t *testing.T) {
	calls := 0
	cause := errors.New("bad credentials")
	err := RetryWithCallback(context.Background(), fastPolicy(5), func() error {
		calls++
		return Permanent(cause)
	}, nil)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, 1, calls)
}

func TestNextDelay(t *testing.T) {
	p := Policy{InitialInterval: 100 * time.Millisecond, MaxInterval: time.Second, Multiplier: 2}

	assert.Equal(t, 100*time.Millisecond, nextDelay(1, p))
	assert.Equal(t, 400*time.Millisecond, nextDelay(3, p))
	assert.Equal(t, time.Second, nextDelay(10, p))
}

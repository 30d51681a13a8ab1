package retry

import (
	"time"

	"github.com/cenkalti/backoff/v4"
)

func newBackoff(policy Policy) backoff.BackOff {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = policy.InitialInterval
	exp.MaxInterval = policy.MaxInterval
	exp.Multiplier = policy.Multiplier
	exp.MaxElapsedTime = policy.MaxElapsedTime
	return exp
}

// nextDelay is the nominal delay before the given attempt, without jitter.
func nextDelay(attempt int, policy Policy) time.Duration {
	delay := float64(policy.InitialInterval)
	for i := 1; i < attempt; i++ {
		delay *= policy.Multiplier
		if delay >= float64(policy.MaxInterval) {
			return policy.MaxInterval
		}
	}
	return time.Duration(delay)
}

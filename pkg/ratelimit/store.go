package ratelimit

import (
	"context"
	"math"
	"time"
)

// Decision is the outcome of a single admission check.
type Decision struct {
	Allowed           bool
	RetryAfterSeconds int
	Remaining         int
	Store             string
}

// Store keeps a sliding-window log per key. Admit drops entries older than
// window, denies when limit entries remain, and otherwise records now.
// Implementations must serialize calls for the same key.
type Store interface {
	Admit(ctx context.Context, key string, now time.Time, window time.Duration, limit int) (Decision, error)
	Name() string
}

// retryAfterSeconds is the whole number of seconds until oldest leaves the
// window, never less than one.
func retryAfterSeconds(oldest, now time.Time, window time.Duration) int {
	remaining := oldest.Add(window).Sub(now)
	secs := int(math.Ceil(remaining.Seconds()))
	if secs < 1 {
		return 1
	}
	return secs
}

package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserveIntake(t *testing.T) {
	before := testutil.ToFloat64(IntakeRequestsTotal.WithLabelValues("dispatched"))

	ObserveIntake("dispatched", 12*time.Millisecond)

	assert.Equal(t, before+1, testutil.ToFloat64(IntakeRequestsTotal.WithLabelValues("dispatched")))
}

func TestSetRateLimitTrackedIdentities(t *testing.T) {
	SetRateLimitTrackedIdentities(7)
	assert.Equal(t, float64(7), testutil.ToFloat64(RateLimitTrackedIdentities))
}

func TestIncFallbackUsage(t *testing.T) {
	counter := FallbackUsageTotal.WithLabelValues("ratelimit", "local", "store_error")
	before := testutil.ToFloat64(counter)

	IncFallbackUsage("ratelimit", "local", "store_error")

	assert.Equal(t, before+1, testutil.ToFloat64(counter))
}

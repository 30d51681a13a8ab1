package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	IntakeRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "intake_requests_total",
			Help: "Total number of contact submissions by terminal outcome (count)",
		},
		[]string{"outcome"},
	)

	IntakeRejectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "intake_rejections_total",
			Help: "Total number of rejected contact submissions by reason code (count)",
		},
		[]string{"reason"},
	)

	IntakeProcessingDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "intake_processing_duration_ms",
			Help:    "Processing duration of contact submissions in milliseconds",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 15000},
		},
		[]string{"outcome"},
	)

	RateLimitRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rate_limit_requests_total",
			Help: "Total number of requests checked against rate limit (count)",
		},
		[]string{"status", "store"},
	)

	RateLimitTrackedIdentities = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "rate_limit_tracked_identities",
			Help: "Number of client identities held by the in-process rate store (count)",
		},
	)

	FallbackUsageTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fallback_usage_total",
			Help: "Total number of times fallback strategies were used (count)",
		},
		[]string{"service", "strategy", "reason"},
	)

	MailDispatchTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mail_dispatch_total",
			Help: "Total number of outbound mail dispatch attempts (count)",
		},
		[]string{"transport", "status"},
	)

	MailDispatchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mail_dispatch_duration_ms",
			Help:    "Duration of outbound mail dispatch in milliseconds",
			Buckets: []float64{10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000, 15000},
		},
		[]string{"transport"},
	)

	IntakeEventsPublishedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "intake_events_published_total",
			Help: "Total number of intake diagnostic events published (count)",
		},
		[]string{"topic", "status"},
	)

	KafkaWriteDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "kafka_write_duration_ms",
			Help:    "Duration of writing messages to Kafka in milliseconds",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
		},
		[]string{"service", "topic"},
	)

	CircuitBreakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open) (state code)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker (count)",
		},
		[]string{"name", "state"},
	)

	CircuitBreakerFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_failures_total",
			Help: "Total number of failures through circuit breaker (count)",
		},
		[]string{"name"},
	)
)

func RegisterIntakeMetrics() {
	prometheus.MustRegister(IntakeRequestsTotal)
	prometheus.MustRegister(IntakeRejectionsTotal)
	prometheus.MustRegister(IntakeProcessingDuration)
	prometheus.MustRegister(FallbackUsageTotal)
}

func RegisterRateLimitMetrics() {
	prometheus.MustRegister(RateLimitRequestsTotal)
	prometheus.MustRegister(RateLimitTrackedIdentities)
}

func RegisterMailMetrics() {
	prometheus.MustRegister(MailDispatchTotal)
	prometheus.MustRegister(MailDispatchDuration)
}

func RegisterBrokerMetrics() {
	prometheus.MustRegister(IntakeEventsPublishedTotal)
	prometheus.MustRegister(KafkaWriteDuration)
}

func RegisterCircuitBreakerMetrics() {
	prometheus.MustRegister(CircuitBreakerState)
	prometheus.MustRegister(CircuitBreakerRequests)
	prometheus.MustRegister(CircuitBreakerFailures)
}

func ObserveIntake(outcome string, duration time.Duration) {
	IntakeRequestsTotal.WithLabelValues(outcome).Inc()
	IntakeProcessingDuration.WithLabelValues(outcome).Observe(float64(duration.Milliseconds()))
}

func IncIntakeRejection(reason string) {
	IntakeRejectionsTotal.WithLabelValues(reason).Inc()
}

func IncRateLimitRequest(status, store string) {
	RateLimitRequestsTotal.WithLabelValues(status, store).Inc()
}

func SetRateLimitTrackedIdentities(count int) {
	RateLimitTrackedIdentities.Set(float64(count))
}

func IncFallbackUsage(service, strategy, reason string) {
	FallbackUsageTotal.WithLabelValues(service, strategy, reason).Inc()
}

func ObserveMailDispatch(transport, status string, duration time.Duration) {
	MailDispatchTotal.WithLabelValues(transport, status).Inc()
	MailDispatchDuration.WithLabelValues(transport).Observe(float64(duration.Milliseconds()))
}

func IncIntakeEventPublished(topic, status string) {
	IntakeEventsPublishedTotal.WithLabelValues(topic, status).Inc()
}

func ObserveKafkaWriteDuration(service, topic string, duration time.Duration) {
	KafkaWriteDuration.WithLabelValues(service, topic).Observe(float64(duration.Milliseconds()))
}

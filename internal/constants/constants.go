package constants

import "time"

const (
	ServiceName = "contact-service"
)

const (
	KafkaBatchTimeout = 10 * time.Millisecond
	KafkaWriteTimeout = 10 * time.Second
)

const (
	ShutdownTimeout  = 5 * time.Second
	RedisPingTimeout = 5 * time.Second
)

const (
	// Maximum field lengths, counted in characters.
	MaxNameLength    = 100
	MaxEmailLength   = 254
	MaxSubjectLength = 200
	MinMessageLength = 10
	MaxMessageLength = 5000
)

const (
	DefaultMinSubmitTime = 3 * time.Second
	DefaultMaxFormAge    = time.Hour
)

const (
	MaxURLs              = 3
	MinCapsLetters       = 20
	CapsRatioThreshold   = 0.7
	MinRepeatRunLength   = 7
	ClientFingerprintLen = 16
)

const (
	UnknownIdentity = "unknown"
)

const (
	StoreMemory = "memory"
	StoreRedis  = "redis"
)

const (
	TransportSMTP = "smtp"
	TransportSES  = "ses"
)

const (
	FallbackLocal = "local"
)

const (
	HeaderRetryAfter   = "Retry-After"
	HeaderForwardedFor = "X-Forwarded-For"
	HeaderRealIP       = "X-Real-IP"
)

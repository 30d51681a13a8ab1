package models

type ReasonCode string

const (
	ReasonHoneypotTriggered     ReasonCode = "honeypot_triggered"
	ReasonTooFast               ReasonCode = "too_fast"
	ReasonSessionExpired        ReasonCode = "session_expired"
	ReasonInvalidPayload        ReasonCode = "invalid_payload"
	ReasonInvalidName           ReasonCode = "invalid_name"
	ReasonInvalidEmail          ReasonCode = "invalid_email"
	ReasonSubjectTooLong        ReasonCode = "subject_too_long"
	ReasonInvalidMessageLength  ReasonCode = "invalid_message_length"
	ReasonTooManyURLs           ReasonCode = "too_many_urls"
	ReasonSpamKeywords          ReasonCode = "spam_keywords"
	ReasonExcessiveCaps         ReasonCode = "excessive_caps"
	ReasonRepeatedChars         ReasonCode = "repeated_chars"
	ReasonSuspiciousEmailDomain ReasonCode = "suspicious_email_domain"
	ReasonCustomRule            ReasonCode = "custom_rule"
	ReasonRateLimited           ReasonCode = "rate_limited"
	ReasonDispatchFailed        ReasonCode = "dispatch_failed"
)

// Verdict is the outcome of the intake pipeline for one request. The concrete
// types below are the only implementations.
type Verdict interface {
	verdict()
}

// Accepted carries a message that passed every check and may be dispatched.
type Accepted struct {
	Message ContactMessage
}

// RejectedVisible is a failure the caller can correct. Display is shown as-is.
type RejectedVisible struct {
	Code    ReasonCode
	Display string
}

// RejectedSilent is an abuse detection. The caller is told the request succeeded.
type RejectedSilent struct {
	Reason ReasonCode
	// Rule names the operator rule that matched, when Reason is ReasonCustomRule.
	Rule string
}

type RateLimited struct {
	RetryAfterSeconds int
}

func (Accepted) verdict()        {}
func (RejectedVisible) verdict() {}
func (RejectedSilent) verdict()  {}
func (RateLimited) verdict()     {}

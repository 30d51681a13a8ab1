package models

import "time"

type Outcome string

const (
	OutcomeDispatched      Outcome = "dispatched"
	OutcomeDispatchFailed  Outcome = "dispatch_failed"
	OutcomeRejectedVisible Outcome = "rejected_visible"
	OutcomeRejectedSilent  Outcome = "rejected_silent"
	OutcomeRateLimited     Outcome = "rate_limited"
)

// IntakeEvent is the operator-facing record of one intake decision. It never
// carries message content.
type IntakeEvent struct {
	ID                string     `json:"id"`
	Timestamp         time.Time  `json:"timestamp"`
	Outcome           Outcome    `json:"outcome"`
	Reason            ReasonCode `json:"reason,omitempty"`
	Rule              string     `json:"rule,omitempty"`
	ClientFingerprint string     `json:"client_fingerprint"`
	RequestID         string     `json:"request_id,omitempty"`
	TraceID           string     `json:"trace_id,omitempty"`
	Cause             string     `json:"cause,omitempty"`
	DurationMs        int64      `json:"duration_ms"`
}

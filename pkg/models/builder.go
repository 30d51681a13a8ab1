package models

import (
	"time"

	"github.com/google/uuid"
)

type IntakeEventBuilder struct {
	event *IntakeEvent
}

func NewIntakeEventBuilder() *IntakeEventBuilder {
	return &IntakeEventBuilder{
		event: &IntakeEvent{},
	}
}

func (b *IntakeEventBuilder) WithOutcome(outcome Outcome, reason ReasonCode) *IntakeEventBuilder {
	b.event.Outcome = outcome
	b.event.Reason = reason
	return b
}

func (b *IntakeEventBuilder) WithRule(rule string) *IntakeEventBuilder {
	b.event.Rule = rule
	return b
}

func (b *IntakeEventBuilder) WithClientFingerprint(fingerprint string) *IntakeEventBuilder {
	b.event.ClientFingerprint = fingerprint
	return b
}

func (b *IntakeEventBuilder) WithRequestID(requestID string) *IntakeEventBuilder {
	b.event.RequestID = requestID
	return b
}

func (b *IntakeEventBuilder) WithTraceID(traceID string) *IntakeEventBuilder {
	b.event.TraceID = traceID
	return b
}

func (b *IntakeEventBuilder) WithCause(err error) *IntakeEventBuilder {
	if err != nil {
		b.event.Cause = err.Error()
	}
	return b
}

func (b *IntakeEventBuilder) WithDuration(d time.Duration) *IntakeEventBuilder {
	b.event.DurationMs = d.Milliseconds()
	return b
}

func (b *IntakeEventBuilder) WithTimestamp(timestamp time.Time) *IntakeEventBuilder {
	b.event.Timestamp = timestamp
	return b
}

func (b *IntakeEventBuilder) Build() *IntakeEvent {
	if b.event.ID == "" {
		b.event.ID = uuid.NewString()
	}
	if b.event.Timestamp.IsZero() {
		b.event.Timestamp = time.Now()
	}
	return b.event
}

package intake

import (
	"context"
	"io"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"contactguard/internal/constants"
	"contactguard/internal/logger"
	"contactguard/internal/mailer"
	"contactguard/internal/spam"
	"contactguard/internal/validation"
	"contactguard/pkg/errors"
	"contactguard/pkg/logging"
	"contactguard/pkg/metrics"
	"contactguard/pkg/models"
	"contactguard/pkg/ratelimit"
	"contactguard/pkg/tracing"
)

const defaultSendTimeout = 10 * time.Second

type Admitter interface {
	Admit(ctx context.Context, identity string) ratelimit.Decision
}

type Classifier interface {
	Evaluate(ctx context.Context, msg models.ContactMessage) spam.Result
}

type Dependencies struct {
	Limiter    Admitter
	Validator  *validation.Validator
	Classifier Classifier
	Dispatcher mailer.Dispatcher
	Events     EventPublisher
}

type MailSettings struct {
	From        string
	To          string
	SendTimeout time.Duration
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// Service runs one submission through rate control, validation, spam
// classification and dispatch.
type Service struct {
	limiter    Admitter
	validator  *validation.Validator
	classifier Classifier
	dispatcher mailer.Dispatcher
	events     EventPublisher
	mail       MailSettings
	now        func() time.Time
	logger     logger.Logger
}

func NewService(deps Dependencies, mail MailSettings, log logger.Logger, opts ...Option) *Service {
	if mail.SendTimeout <= 0 {
		mail.SendTimeout = defaultSendTimeout
	}
	if deps.Events == nil {
		deps.Events = NopPublisher{}
	}

	s := &Service{
		limiter:    deps.Limiter,
		validator:  deps.Validator,
		classifier: deps.Classifier,
		dispatcher: deps.Dispatcher,
		events:     deps.Events,
		mail:       mail,
		now:        time.Now,
		logger:     log,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Submit decides the fate of one request body. The body is not read when the
// identity is over its rate. A dispatch failure is returned as
// errors.ErrDispatchFailed; every other outcome is a verdict.
func (s *Service) Submit(ctx context.Context, identity string, body io.Reader) (models.Verdict, error) {
	ctx, span := tracing.GetTracer(constants.ServiceName).Start(ctx, "intake.submit")
	defer span.End()

	start := s.now()
	fingerprint := logging.ClientFingerprint(identity)

	decision := s.limiter.Admit(ctx, identity)
	span.SetAttributes(
		attribute.Bool("ratelimit.allowed", decision.Allowed),
		attribute.String("ratelimit.store", decision.Store),
	)
	if !decision.Allowed {
		s.logger.InfowCtx(ctx, "Rate limit exceeded", logger.IdentityKey, identity)
		s.finish(ctx, start, fingerprint, models.OutcomeRateLimited, models.ReasonRateLimited, "", nil)
		return models.RateLimited{RetryAfterSeconds: decision.RetryAfterSeconds}, nil
	}

	verdict := s.validate(body)
	if accepted, ok := verdict.(models.Accepted); ok {
		if result := s.classifier.Evaluate(ctx, accepted.Message); result.IsSpam {
			verdict = models.RejectedSilent{Reason: result.Reason, Rule: result.Rule}
		}
	}

	switch v := verdict.(type) {
	case models.RejectedVisible:
		span.SetAttributes(attribute.String("intake.reason", string(v.Code)))
		s.logger.DebugwCtx(ctx, "Submission rejected", "reason", v.Code, "client", fingerprint)
		s.finish(ctx, start, fingerprint, models.OutcomeRejectedVisible, v.Code, "", nil)
		return v, nil

	case models.RejectedSilent:
		span.SetAttributes(attribute.String("intake.reason", string(v.Reason)))
		s.logger.InfowCtx(ctx, "Submission silently dropped", "reason", v.Reason, "rule", v.Rule, "client", fingerprint)
		s.finish(ctx, start, fingerprint, models.OutcomeRejectedSilent, v.Reason, v.Rule, nil)
		return v, nil
	}

	accepted := verdict.(models.Accepted)
	if err := s.dispatch(ctx, accepted.Message); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "dispatch failed")
		s.logger.ErrorwCtx(ctx, "Mail dispatch failed", "client", fingerprint, "error", err)
		s.finish(ctx, start, fingerprint, models.OutcomeDispatchFailed, models.ReasonDispatchFailed, "", err)
		return nil, errors.ErrDispatchFailed.WithCause(err)
	}

	s.logger.InfowCtx(ctx, "Submission dispatched", "client", fingerprint)
	s.finish(ctx, start, fingerprint, models.OutcomeDispatched, "", "", nil)
	return accepted, nil
}

func (s *Service) validate(body io.Reader) models.Verdict {
	if body == nil {
		return validation.InvalidPayload()
	}

	data, err := io.ReadAll(body)
	if err != nil {
		return validation.InvalidPayload()
	}

	raw, err := models.DecodeRawSubmission(data)
	if err != nil {
		return validation.InvalidPayload()
	}

	return s.validator.Validate(raw, s.now())
}

func (s *Service) dispatch(ctx context.Context, msg models.ContactMessage) error {
	ctx, cancel := context.WithTimeout(ctx, s.mail.SendTimeout)
	defer cancel()

	env := mailer.Compose(s.mail.From, s.mail.To, msg)
	return s.dispatcher.Send(ctx, env)
}

func (s *Service) finish(ctx context.Context, start time.Time, fingerprint string, outcome models.Outcome, reason models.ReasonCode, rule string, cause error) {
	elapsed := s.now().Sub(start)

	metrics.ObserveIntake(string(outcome), elapsed)
	if reason != "" {
		metrics.IncIntakeRejection(string(reason))
	}

	event := models.NewIntakeEventBuilder().
		WithOutcome(outcome, reason).
		WithRule(rule).
		WithClientFingerprint(fingerprint).
		WithRequestID(logging.GetRequestID(ctx)).
		WithTraceID(tracing.TraceID(ctx)).
		WithCause(cause).
		WithDuration(elapsed).
		WithTimestamp(s.now()).
		Build()

	s.events.Publish(ctx, *event)
}

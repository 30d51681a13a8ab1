package intake

import (
	"context"
	"sync"
	"time"

	"contactguard/internal/broker"
	"contactguard/internal/logger"
	"contactguard/pkg/metrics"
	"contactguard/pkg/models"
)

const defaultPublishTimeout = 2 * time.Second

// EventPublisher receives one event per terminal outcome. Publish must not
// block the request.
type EventPublisher interface {
	Publish(ctx context.Context, event models.IntakeEvent)
}

type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, models.IntakeEvent) {}

// BrokerPublisher sends events to the broker in the background. Failures are
// logged and counted.
type BrokerPublisher struct {
	producer broker.Producer
	topic    string
	timeout  time.Duration
	logger   logger.Logger
	wg       sync.WaitGroup
}

func NewBrokerPublisher(producer broker.Producer, topic string, timeout time.Duration, log logger.Logger) *BrokerPublisher {
	if timeout <= 0 {
		timeout = defaultPublishTimeout
	}
	return &BrokerPublisher{
		producer: producer,
		topic:    topic,
		timeout:  timeout,
		logger:   log,
	}
}

func (p *BrokerPublisher) Publish(ctx context.Context, event models.IntakeEvent) {
	ctx = context.WithoutCancel(ctx)

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()

		pubCtx, cancel := context.WithTimeout(ctx, p.timeout)
		defer cancel()

		if err := p.producer.Publish(pubCtx, p.topic, event); err != nil {
			metrics.IncIntakeEventPublished(p.topic, "error")
			p.logger.WarnwCtx(ctx, "Failed to publish intake event",
				"event_id", event.ID,
				"outcome", event.Outcome,
				"error", err,
			)
			return
		}
		metrics.IncIntakeEventPublished(p.topic, "success")
	}()
}

// Wait blocks until every in-flight publish has finished.
func (p *BrokerPublisher) Wait() {
	p.wg.Wait()
}

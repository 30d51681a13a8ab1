package broker

import (
	"context"

	"contactguard/internal/config"
	"contactguard/internal/logger"
	"contactguard/pkg/models"
)

// NewProducer returns a Kafka producer when the broker is enabled and a no-op
// producer otherwise.
func NewProducer(cfg config.BrokerConfig, log logger.Logger) Producer {
	if !cfg.Enabled {
		return NopProducer{}
	}
	return NewKafkaProducer(cfg.Kafka, log)
}

type NopProducer struct{}

func (NopProducer) Publish(context.Context, string, models.IntakeEvent) error {
	return nil
}

func (NopProducer) Close() error {
	return nil
}

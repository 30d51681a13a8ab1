package bootstrap

import (
	"context"
	"fmt"

	"contactguard/internal/broker"
	"contactguard/internal/config"
	"contactguard/internal/logger"
)

type Base struct {
	Config   *config.Config
	Logger   logger.Logger
	Producer broker.Producer
}

func NewBase(cfg *config.Config, log logger.Logger) *Base {
	return &Base{
		Config: cfg,
		Logger: log,
	}
}

func (b *Base) InitBroker() {
	b.Producer = broker.NewProducer(b.Config.Broker, b.Logger)
	if b.Config.Broker.Enabled {
		b.Logger.Infow("Intake events enabled",
			"brokers", b.Config.Broker.Kafka.Brokers,
			"topic", b.Config.Broker.Kafka.EventsTopic,
		)
	}
}

func (b *Base) ShutdownBroker() []error {
	var errs []error

	if b.Producer != nil {
		if err := b.Producer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("producer close error: %w", err))
		}
	}

	return errs
}

func (b *Base) Shutdown(ctx context.Context, additionalShutdown func(ctx context.Context) []error) error {
	b.Logger.Info("Shutting down application...")

	var errs []error

	if additionalShutdown != nil {
		errs = append(errs, additionalShutdown(ctx)...)
	}

	errs = append(errs, b.ShutdownBroker()...)

	if len(errs) > 0 {
		return fmt.Errorf("shutdown errors: %v", errs)
	}

	b.Logger.Info("Application exited successfully")
	return nil
}

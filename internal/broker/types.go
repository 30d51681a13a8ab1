package broker

import (
	"context"

	"contactguard/pkg/models"
)

type Producer interface {
	Publish(ctx context.Context, topic string, event models.IntakeEvent) error
	Close() error
}

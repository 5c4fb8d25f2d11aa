package events

import (
	"context"
	"log/slog"

	"github.com/Apurer/storefront-orders/internal/domains/orders/domain"
	"github.com/Apurer/storefront-orders/internal/domains/orders/ports"
)

var _ ports.EventPublisher = (*LogPublisher)(nil)

// LogPublisher writes events to the structured log when no broker is configured.
type LogPublisher struct {
	logger *slog.Logger
}

func NewLogPublisher(logger *slog.Logger) *LogPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Publish(ctx context.Context, event domain.Event) error {
	payload, err := encode(event)
	if err != nil {
		return err
	}
	p.logger.LogAttrs(ctx, slog.LevelInfo, "order event",
		slog.String("event", event.EventName()),
		slog.String("order.id", event.AggregateID()),
		slog.String("payload", string(payload)),
	)
	return nil
}

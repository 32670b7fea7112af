package events

import (
	"context"
	"log/slog"

	"github.com/Collinsarusei/giftme-sub000/internal/contracts"
	"github.com/Collinsarusei/giftme-sub000/internal/ports"
)

type LoggingPublisher struct {
	logger *slog.Logger
}

func NewLoggingPublisher(logger *slog.Logger) *LoggingPublisher {
	return &LoggingPublisher{logger: logger}
}

func (p *LoggingPublisher) Publish(ctx context.Context, eventType string, payload []byte, partitionKey string) error {
	p.logger.InfoContext(ctx, "event published",
		"module", "events.publisher",
		"layer", "adapter",
		"operation", "publish",
		"outcome", "success",
		"event_type", eventType,
		"partition_key", partitionKey,
		"payload_bytes", len(payload),
	)
	return nil
}

// LoggingAlerter reports operator alerts at ERROR level. It is the fallback
// when no broker is configured and is always chained behind KafkaAlerter.
type LoggingAlerter struct {
	logger *slog.Logger
}

func NewLoggingAlerter(logger *slog.Logger) *LoggingAlerter {
	return &LoggingAlerter{logger: logger}
}

func (a *LoggingAlerter) Escalate(ctx context.Context, alert contracts.EventEnvelope) error {
	a.logger.ErrorContext(ctx, "operator alert",
		"module", "events.alerter",
		"layer", "adapter",
		"operation", "escalate",
		"outcome", "escalated",
		"event_type", alert.EventType,
		"event_id", alert.EventID,
		"partition_key", alert.PartitionKey,
		"data", string(alert.Data),
	)
	return nil
}

// FanoutAlerter hands an alert to every sink and reports the first failure.
// Later sinks still run when an earlier one fails.
type FanoutAlerter struct {
	sinks []ports.AlertPublisher
}

func NewFanoutAlerter(sinks ...ports.AlertPublisher) *FanoutAlerter {
	return &FanoutAlerter{sinks: sinks}
}

func (a *FanoutAlerter) Escalate(ctx context.Context, alert contracts.EventEnvelope) error {
	var first error
	for _, sink := range a.sinks {
		if err := sink.Escalate(ctx, alert); err != nil && first == nil {
			first = err
		}
	}
	return first
}

var (
	_ ports.EventPublisher = (*LoggingPublisher)(nil)
	_ ports.AlertPublisher = (*LoggingAlerter)(nil)
	_ ports.AlertPublisher = (*FanoutAlerter)(nil)
)

package kafka

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/stridetech/mcm-service/internal/core/domain"
	"github.com/stridetech/mcm-service/internal/core/port"
)

// StubPublisher logs events instead of sending them to Kafka. Useful for
// development environments and tests.
type StubPublisher struct {
	logger *zap.Logger
}

// NewStubPublisher constructs a development-friendly event publisher.
func NewStubPublisher(logger *zap.Logger) *StubPublisher {
	return &StubPublisher{logger: logger}
}

func (p *StubPublisher) logEvent(eventType, entity string, at time.Time, payload any) {
	if at.IsZero() {
		at = time.Now().UTC()
	}

	p.logger.Info("stub event published",
		zap.String("event_type", eventType),
		zap.String("entity", entity),
		zap.Time("timestamp", at.UTC()),
		zap.Any("payload", payload),
	)
}

// PublishStatusChanged logs mcm.<kind>.status.changed events.
func (p *StubPublisher) PublishStatusChanged(_ context.Context, event domain.StatusChangedEvent) error {
	payload := map[string]any{
		"entity":          event.Key.String(),
		"kind":            string(event.Key.Kind),
		"previous_status": string(event.Previous),
		"status":          string(event.Status),
		"effective_date":  event.EffectiveDate,
	}
	p.logEvent(statusEventType(event.Key.Kind), event.Key.String(), event.EffectiveDate, payload)
	return nil
}

// PublishOwnerChanged logs mcm.campaign.owner.changed events.
func (p *StubPublisher) PublishOwnerChanged(_ context.Context, event domain.OwnerChangedEvent) error {
	payload := map[string]any{
		"tracker":          event.Tracker,
		"business_unit_id": event.BusinessUnitID,
		"effective_date":   event.EffectiveDate,
	}
	p.logEvent("mcm.campaign.owner.changed", event.Tracker, event.EffectiveDate, payload)
	return nil
}

var _ port.EventPublisher = (*StubPublisher)(nil)

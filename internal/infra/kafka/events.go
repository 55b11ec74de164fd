package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/stridetech/mcm-service/internal/core/domain"
	"github.com/stridetech/mcm-service/internal/core/port"
	"github.com/stridetech/mcm-service/internal/infra/config"
)

const schemaVersion = "1.0"

// EventPublisher implements port.EventPublisher using Kafka.
type EventPublisher struct {
	producer *Producer
	logger   *zap.Logger
	appCfg   config.AppSettings
}

// NewEventPublisher constructs a Kafka-backed event publisher.
func NewEventPublisher(producer *Producer, appCfg config.AppSettings, logger *zap.Logger) *EventPublisher {
	return &EventPublisher{producer: producer, appCfg: appCfg, logger: logger}
}

type envelopeMetadata map[string]string

type eventEnvelope struct {
	EventID   string           `json:"event_id"`
	EventType string           `json:"event_type"`
	Entity    string           `json:"entity,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
	Version   string           `json:"version"`
	Payload   any              `json:"payload"`
	Metadata  envelopeMetadata `json:"metadata,omitempty"`
}

func (p *EventPublisher) publish(ctx context.Context, eventID, eventType, entity string, ts time.Time, payload any) error {
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	id := eventID
	if id == "" {
		id = uuid.NewString()
	}

	metadata := envelopeMetadata{
		"service":     p.appCfg.Name,
		"environment": p.appCfg.Env,
	}

	envelope := eventEnvelope{
		EventID:   id,
		EventType: eventType,
		Entity:    entity,
		Timestamp: ts.UTC(),
		Version:   schemaVersion,
		Payload:   payload,
		Metadata:  metadata,
	}

	bytes, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("marshal event envelope: %w", err)
	}

	message := &sarama.ProducerMessage{
		Topic: p.producer.TopicName(eventType),
		Key:   sarama.StringEncoder(entity),
		Value: sarama.ByteEncoder(bytes),
	}

	select {
	case p.producer.Producer().Input() <- message:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func statusEventType(kind domain.EntityKind) string {
	switch kind {
	case domain.KindBusinessUnit:
		return "mcm.business_unit.status.changed"
	case domain.KindMarketplace:
		return "mcm.marketplace.status.changed"
	case domain.KindProduct:
		return "mcm.product.status.changed"
	default:
		return "mcm.campaign.status.changed"
	}
}

// PublishStatusChanged publishes mcm.<kind>.status.changed events.
func (p *EventPublisher) PublishStatusChanged(ctx context.Context, event domain.StatusChangedEvent) error {
	payload := struct {
		Entity        string    `json:"entity"`
		Kind          string    `json:"kind"`
		Previous      string    `json:"previous_status,omitempty"`
		Status        string    `json:"status"`
		EffectiveDate time.Time `json:"effective_date"`
	}{
		Entity:        event.Key.String(),
		Kind:          string(event.Key.Kind),
		Previous:      string(event.Previous),
		Status:        string(event.Status),
		EffectiveDate: event.EffectiveDate.UTC(),
	}

	return p.publish(ctx, event.EventID, statusEventType(event.Key.Kind), event.Key.String(), event.EffectiveDate, payload)
}

// PublishOwnerChanged publishes mcm.campaign.owner.changed events.
func (p *EventPublisher) PublishOwnerChanged(ctx context.Context, event domain.OwnerChangedEvent) error {
	payload := struct {
		Tracker        string    `json:"tracker"`
		BusinessUnitID int64     `json:"business_unit_id"`
		EffectiveDate  time.Time `json:"effective_date"`
	}{
		Tracker:        event.Tracker,
		BusinessUnitID: event.BusinessUnitID,
		EffectiveDate:  event.EffectiveDate.UTC(),
	}

	return p.publish(ctx, event.EventID, "mcm.campaign.owner.changed", event.Tracker, event.EffectiveDate, payload)
}

var _ port.EventPublisher = (*EventPublisher)(nil)

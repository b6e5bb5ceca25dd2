package dispatcher

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"EFacturaPlatform/pkg/errors"
	"EFacturaPlatform/pkg/logger"
	"EFacturaPlatform/pkg/rabbitmq"
	"EFacturaPlatform/services/compliance-engine/internal/domain"
)

// wireEvent событие в том виде, в котором оно пришло из очереди
type wireEvent struct {
	Type          domain.EventType `json:"type"`
	Payload       json.RawMessage  `json:"payload"`
	Timestamp     time.Time        `json:"timestamp"`
	CorrelationID string           `json:"correlationId"`
}

// tenantEnvelope минимальная часть payload, нужная для маршрутизации
type tenantEnvelope struct {
	TenantID string `json:"tenantId"`
}

// EventBridge читает события из очереди и раздает их push подписчикам
type EventBridge struct {
	consumer *rabbitmq.Consumer
	hub      *Hub
	queue    string
	logger   logger.Logger
}

// NewEventBridge создает новый экземпляр EventBridge
func NewEventBridge(consumer *rabbitmq.Consumer, hub *Hub, queue string, log logger.Logger) *EventBridge {
	return &EventBridge{
		consumer: consumer,
		hub:      hub,
		queue:    queue,
		logger:   log,
	}
}

// Start регистрирует обработчик и запускает потребление очереди
func (b *EventBridge) Start(ctx context.Context) error {
	b.consumer.RegisterHandler(b.queue, b.handle)
	return b.consumer.Start(ctx)
}

func (b *EventBridge) handle(ctx context.Context, msg amqp091.Delivery) error {
	var wire wireEvent
	if err := json.Unmarshal(msg.Body, &wire); err != nil {
		return errors.Wrap(err, errors.ErrInternal, "failed to decode event from queue").
			WithContext(ctx)
	}

	var envelope tenantEnvelope
	if err := json.Unmarshal(wire.Payload, &envelope); err != nil || envelope.TenantID == "" {
		// Событие без арендатора раздать некому
		b.logger.Warn("event without tenant in payload, skipping",
			logger.String("event_type", string(wire.Type)),
			logger.String("event_correlation_id", wire.CorrelationID),
		)
		return nil
	}

	b.hub.Broadcast(envelope.TenantID, &domain.Event{
		Type:          wire.Type,
		Payload:       wire.Payload,
		Timestamp:     wire.Timestamp,
		CorrelationID: wire.CorrelationID,
	})

	return nil
}

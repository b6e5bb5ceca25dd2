package dispatcher

import (
	"context"
	"encoding/json"

	"EFacturaPlatform/pkg/config"
	"EFacturaPlatform/pkg/errors"
	"EFacturaPlatform/pkg/logger"
	"EFacturaPlatform/pkg/metrics"
	"EFacturaPlatform/pkg/rabbitmq"
	"EFacturaPlatform/services/compliance-engine/internal/domain"
)

// Publisher определяет интерфейс публикации доменных событий
type Publisher interface {
	// Publish публикует событие
	Publish(ctx context.Context, event *domain.Event) error
}

// EventPublisher публикует доменные события в RabbitMQ.
// Публикация best-effort: потеря события не должна ронять операцию,
// состояние всегда доступно через pull endpoints.
type EventPublisher struct {
	producer   *rabbitmq.Producer
	exchange   string
	routingKey string
	logger     logger.Logger
	metrics    *metrics.Metrics
}

// NewEventPublisher создает новый экземпляр EventPublisher
func NewEventPublisher(producer *rabbitmq.Producer, cfg config.RabbitMQConfig, log logger.Logger, m *metrics.Metrics) *EventPublisher {
	return &EventPublisher{
		producer:   producer,
		exchange:   cfg.Exchange,
		routingKey: cfg.RoutingKey,
		logger:     log,
		metrics:    m,
	}
}

// Publish публикует событие
func (p *EventPublisher) Publish(ctx context.Context, event *domain.Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return errors.Wrap(err, errors.ErrInternal, "failed to marshal event").
			WithContext(ctx)
	}

	err = p.producer.Publish(ctx, body,
		rabbitmq.WithExchange(p.exchange),
		rabbitmq.WithRoutingKey(p.routingKey),
		rabbitmq.WithCorrelationID(event.CorrelationID),
	)
	if err != nil {
		return errors.Wrap(err, errors.ErrInternal, "failed to publish event").
			WithDetails(string(event.Type)).
			WithContext(ctx)
	}

	if p.metrics != nil {
		p.metrics.ObserveEventPublished(string(event.Type))
	}

	p.logger.Debug("event published",
		logger.CtxField(ctx),
		logger.String("event_type", string(event.Type)),
		logger.String("event_correlation_id", event.CorrelationID),
	)

	return nil
}

package rabbitmq

import (
	"context"
	"fmt"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"EFacturaPlatform/pkg/connection"
)

// Producer представляет продюсера сообщений
type Producer struct {
	conn     *Connection
	config   *Config
	confirms chan amqp091.Confirmation
}

// NewProducer создает нового продюсера. Канал переводится в confirm mode
// один раз при создании, подтверждения брокера читаются при каждой публикации.
func NewProducer(conn *Connection, config *Config) (*Producer, error) {
	if conn.Channel() == nil {
		return nil, fmt.Errorf("rabbitmq channel is not initialized")
	}

	if err := conn.Channel().Confirm(false); err != nil {
		return nil, fmt.Errorf("failed to enable confirm mode: %w", err)
	}

	confirms := conn.Channel().NotifyPublish(make(chan amqp091.Confirmation, 1))

	return &Producer{conn: conn, config: config, confirms: confirms}, nil
}

// Publish публикует сообщение в RabbitMQ и ждет подтверждения брокера
func (p *Producer) Publish(ctx context.Context, body []byte, options ...PublishOption) error {
	opts := &PublishOptions{
		Exchange:   p.config.Exchange,
		RoutingKey: p.config.RoutingKey,
		Mandatory:  false,
		Immediate:  false,
	}

	for _, option := range options {
		option(opts)
	}

	msg := amqp091.Publishing{
		ContentType:  "application/json",
		Body:         body,
		DeliveryMode: amqp091.Persistent,
		Timestamp:    time.Now(),
	}
	if len(opts.Headers) > 0 {
		msg.Headers = opts.Headers
	}
	if opts.CorrelationID != "" {
		msg.CorrelationId = opts.CorrelationID
	}

	if err := p.conn.Channel().PublishWithContext(ctx,
		opts.Exchange,
		opts.RoutingKey,
		opts.Mandatory,
		opts.Immediate,
		msg,
	); err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}

	// Ожидаем подтверждение
	select {
	case confirm := <-p.confirms:
		if !confirm.Ack {
			return fmt.Errorf("message rejected by broker")
		}
	case <-ctx.Done():
		return fmt.Errorf("context cancelled while waiting for confirmation: %w", ctx.Err())
	case <-time.After(10 * time.Second):
		return fmt.Errorf("timeout waiting for confirmation")
	}

	return nil
}

// PublishWithRetry публикует сообщение с retry логикой
func (p *Producer) PublishWithRetry(ctx context.Context, body []byte, maxRetries int, retryInterval time.Duration, options ...PublishOption) error {
	retryConfig := connection.RetryConfig{
		MaxAttempts:  maxRetries + 1,
		InitialDelay: retryInterval,
		MaxDelay:     time.Minute,
		Multiplier:   1.0,
		Jitter:       false,
	}

	err := connection.WithRetry(ctx, retryConfig, func(ctx context.Context) error {
		return p.Publish(ctx, body, options...)
	})
	if err != nil {
		return fmt.Errorf("failed to publish message after %d retries: %w", maxRetries, err)
	}
	return nil
}

// IsConnected проверяет доступность соединения продюсера
func (p *Producer) IsConnected() bool {
	return p.conn != nil && p.conn.IsConnected()
}

// PublishOptions представляет опции для публикации сообщения
type PublishOptions struct {
	Exchange      string
	RoutingKey    string
	Mandatory     bool
	Immediate     bool
	Headers       amqp091.Table
	CorrelationID string
}

// PublishOption функция для настройки опций публикации
type PublishOption func(*PublishOptions)

// WithExchange устанавливает exchange
func WithExchange(exchange string) PublishOption {
	return func(opts *PublishOptions) {
		opts.Exchange = exchange
	}
}

// WithRoutingKey устанавливает routing key
func WithRoutingKey(routingKey string) PublishOption {
	return func(opts *PublishOptions) {
		opts.RoutingKey = routingKey
	}
}

// WithMandatory устанавливает mandatory флаг
func WithMandatory(mandatory bool) PublishOption {
	return func(opts *PublishOptions) {
		opts.Mandatory = mandatory
	}
}

// WithHeaders устанавливает заголовки
func WithHeaders(headers amqp091.Table) PublishOption {
	return func(opts *PublishOptions) {
		opts.Headers = headers
	}
}

// WithCorrelationID устанавливает correlation id сообщения
func WithCorrelationID(correlationID string) PublishOption {
	return func(opts *PublishOptions) {
		opts.CorrelationID = correlationID
	}
}

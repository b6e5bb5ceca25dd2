package rabbitmq

import (
	"context"
	"fmt"
	"time"

	"github.com/rabbitmq/amqp091-go"
)

// Consumer представляет консьюмера сообщений
type Consumer struct {
	conn     *Connection
	config   *Config
	handlers map[string]MessageHandler
}

// MessageHandler функция для обработки сообщения
type MessageHandler func(context.Context, amqp091.Delivery) error

// NewConsumer создает нового консьюмера
func NewConsumer(conn *Connection, config *Config) *Consumer {
	return &Consumer{
		conn:     conn,
		config:   config,
		handlers: make(map[string]MessageHandler),
	}
}

// RegisterHandler регистрирует обработчик для конкретной очереди
func (c *Consumer) RegisterHandler(queueName string, handler MessageHandler) {
	c.handlers[queueName] = handler
}

// Start запускает консьюмера для всех зарегистрированных очередей.
// Блокируется до завершения контекста.
func (c *Consumer) Start(ctx context.Context) error {
	for queueName, handler := range c.handlers {
		go func(queue string, h MessageHandler) {
			for {
				select {
				case <-ctx.Done():
					return
				default:
					if err := c.consume(ctx, queue, h); err != nil {
						fmt.Printf("Error consuming from queue %s: %v. Reconnecting in %s...\n", queue, err, c.config.ReconnectInterval)
						time.Sleep(c.config.ReconnectInterval)
					}
				}
			}
		}(queueName, handler)
	}

	<-ctx.Done()
	return ctx.Err()
}

// consume обрабатывает сообщения из очереди
func (c *Consumer) consume(ctx context.Context, queueName string, handler MessageHandler) error {
	if c.conn.Channel() == nil {
		return fmt.Errorf("rabbitmq channel is not initialized")
	}

	_, err := c.conn.Channel().QueueDeclare(
		queueName,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		return fmt.Errorf("failed to declare queue %s: %w", queueName, err)
	}

	// Привязываем очередь к exchange, если задан
	if c.config.Exchange != "" {
		err = c.conn.Channel().QueueBind(
			queueName,
			c.config.RoutingKey,
			c.config.Exchange,
			false,
			nil,
		)
		if err != nil {
			return fmt.Errorf("failed to bind queue %s to exchange %s: %w", queueName, c.config.Exchange, err)
		}
	}

	msgs, err := c.conn.Channel().Consume(
		queueName,
		"",    // consumer
		false, // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,   // args
	)
	if err != nil {
		return fmt.Errorf("failed to register a consumer: %w", err)
	}

	for msg := range msgs {
		msgCtx, cancel := context.WithTimeout(ctx, 30*time.Second)

		err := handler(msgCtx, msg)

		if err == nil {
			if err := msg.Ack(false); err != nil {
				fmt.Printf("Error sending ack for delivery %d: %v\n", msg.DeliveryTag, err)
			}
		} else {
			// После трех неудачных доставок сообщение уходит в DLQ
			if retryCount(msg) < 3 {
				if err := msg.Nack(false, true); err != nil {
					fmt.Printf("Error sending nack with requeue for delivery %d: %v\n", msg.DeliveryTag, err)
				}
			} else {
				if err := msg.Nack(false, false); err != nil {
					fmt.Printf("Error sending nack without requeue for delivery %d: %v\n", msg.DeliveryTag, err)
				}
			}
		}

		cancel()
	}

	return fmt.Errorf("consumer channel closed")
}

// retryCount возвращает количество предыдущих доставок по заголовку x-death
func retryCount(msg amqp091.Delivery) int {
	if xDeath, ok := msg.Headers["x-death"]; ok {
		if deaths, ok := xDeath.([]interface{}); ok {
			return len(deaths)
		}
	}
	return 0
}

// HealthCheck проверяет состояние подключения к RabbitMQ
func (c *Consumer) HealthCheck(ctx context.Context) error {
	if c.conn == nil || c.conn.conn == nil {
		return fmt.Errorf("rabbitmq connection is not initialized")
	}

	channel, err := c.conn.conn.Channel()
	if err != nil {
		return fmt.Errorf("failed to create channel: %w", err)
	}
	return channel.Close()
}

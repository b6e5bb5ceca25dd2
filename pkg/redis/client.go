package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"EFacturaPlatform/pkg/connection"
)

// Client представляет подключение к Redis
type Client struct {
	Client *redis.Client
}

// Config представляет конфигурацию Redis
type Config struct {
	Addr     string
	Password string
	DB       int
	// Connection pool settings
	PoolSize    int
	MinIdleConn int
	// Retry settings
	MaxRetries    int
	RetryInterval time.Duration
}

// NewConfig создает конфигурацию по умолчанию
func NewConfig() *Config {
	return &Config{
		Addr:          "localhost:6379",
		Password:      "",
		DB:            0,
		PoolSize:      10,
		MinIdleConn:   2,
		MaxRetries:    3,
		RetryInterval: 1 * time.Second,
	}
}

// Connect устанавливает подключение к Redis с retry логикой
func Connect(ctx context.Context, config *Config) (*Client, error) {
	retryConfig := connection.RetryConfig{
		MaxAttempts:  config.MaxRetries + 1,
		InitialDelay: config.RetryInterval,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
		Jitter:       false,
	}

	var client *redis.Client
	err := connection.WithRetry(ctx, retryConfig, func(ctx context.Context) error {
		client = redis.NewClient(&redis.Options{
			Addr:         config.Addr,
			Password:     config.Password,
			DB:           config.DB,
			PoolSize:     config.PoolSize,
			MinIdleConns: config.MinIdleConn,
			// Таймауты
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
			PoolTimeout:  4 * time.Second,
		})

		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return fmt.Errorf("failed to ping redis: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to redis after %d retries: %w", config.MaxRetries, err)
	}

	return &Client{Client: client}, nil
}

// Close закрывает подключение к Redis
func (r *Client) Close() error {
	if r.Client != nil {
		return r.Client.Close()
	}
	return nil
}

// HealthCheck проверяет состояние подключения к Redis
func (r *Client) HealthCheck(ctx context.Context) error {
	if r.Client == nil {
		return fmt.Errorf("redis client is not initialized")
	}

	return r.Client.Ping(ctx).Err()
}

package connection

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"
)

// RetryConfig содержит конфигурацию повторных попыток
type RetryConfig struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
	Jitter       bool
}

// DefaultRetryConfig возвращает конфигурацию по умолчанию
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:  5,
		InitialDelay: 1 * time.Second,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
		Jitter:       true,
	}
}

// RetryFunc представляет функцию для повторной попытки
type RetryFunc func(ctx context.Context) error

// WithRetry выполняет функцию с retry логикой
func WithRetry(ctx context.Context, config RetryConfig, operation RetryFunc) error {
	var lastErr error

	for attempt := 1; attempt <= config.MaxAttempts; attempt++ {
		err := operation(ctx)
		if err == nil {
			return nil
		}

		lastErr = err

		if attempt < config.MaxAttempts {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(Delay(attempt, config)):
				// Продолжаем следующую попытку
			}
		}
	}

	return fmt.Errorf("operation failed after %d attempts: %w", config.MaxAttempts, lastErr)
}

// Delay вычисляет экспоненциальную задержку для очередной попытки.
// Первая попытка получает InitialDelay, каждая следующая умножается
// на Multiplier, но не превышает MaxDelay.
func Delay(attempt int, config RetryConfig) time.Duration {
	if attempt < 1 {
		attempt = 1
	}

	delay := time.Duration(float64(config.InitialDelay) *
		math.Pow(config.Multiplier, float64(attempt-1)))

	if delay > config.MaxDelay || delay <= 0 {
		delay = config.MaxDelay
	}

	if config.Jitter {
		delay = addJitter(delay)
	}

	return delay
}

// addJitter добавляет случайную вариацию ±25% к задержке
func addJitter(delay time.Duration) time.Duration {
	jitter := time.Duration((rand.Float64() - 0.5) * 0.5 * float64(delay))
	return delay + jitter
}

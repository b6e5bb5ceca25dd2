package database

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"EFacturaPlatform/pkg/connection"
)

// Postgres представляет подключение к PostgreSQL
type Postgres struct {
	Pool *pgxpool.Pool
}

// Config представляет конфигурацию PostgreSQL
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
	// Connection pool settings
	MaxConns    int
	MinConns    int
	MaxConnLife time.Duration
	MaxConnIdle time.Duration
	HealthCheck time.Duration
	// Retry settings
	MaxRetries    int
	RetryInterval time.Duration
}

// NewConfig создает конфигурацию по умолчанию
func NewConfig() *Config {
	return &Config{
		Host:          "localhost",
		Port:          5432,
		User:          "postgres",
		Password:      "postgres",
		Database:      "postgres",
		SSLMode:       "disable",
		MaxConns:      20,
		MinConns:      5,
		MaxConnLife:   30 * time.Minute,
		MaxConnIdle:   5 * time.Minute,
		HealthCheck:   30 * time.Second,
		MaxRetries:    3,
		RetryInterval: 1 * time.Second,
	}
}

// ConnString возвращает строку подключения pgx
func (c *Config) ConnString() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Database, c.SSLMode,
	)
}

// Connect устанавливает подключение к PostgreSQL с retry логикой
func Connect(ctx context.Context, config *Config) (*Postgres, error) {
	poolConfig, err := pgxpool.ParseConfig(config.ConnString())
	if err != nil {
		return nil, fmt.Errorf("failed to parse pool config: %w", err)
	}

	poolConfig.MaxConns = int32(config.MaxConns)
	poolConfig.MinConns = int32(config.MinConns)
	poolConfig.MaxConnLifetime = config.MaxConnLife
	poolConfig.MaxConnIdleTime = config.MaxConnIdle
	poolConfig.HealthCheckPeriod = config.HealthCheck
	poolConfig.MaxConnLifetimeJitter = 30 * time.Second

	retryConfig := connection.RetryConfig{
		MaxAttempts:  config.MaxRetries + 1,
		InitialDelay: config.RetryInterval,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
		Jitter:       false,
	}

	var pool *pgxpool.Pool
	err = connection.WithRetry(ctx, retryConfig, func(ctx context.Context) error {
		var connErr error
		pool, connErr = pgxpool.NewWithConfig(ctx, poolConfig)
		if connErr != nil {
			return fmt.Errorf("failed to connect to database: %w", connErr)
		}
		if connErr = pool.Ping(ctx); connErr != nil {
			pool.Close()
			return fmt.Errorf("failed to ping database: %w", connErr)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database after %d retries: %w", config.MaxRetries, err)
	}

	return &Postgres{Pool: pool}, nil
}

// Close закрывает подключение к базе данных
func (p *Postgres) Close() {
	if p.Pool != nil {
		p.Pool.Close()
	}
}

// HealthCheck проверяет состояние подключения к базе данных
func (p *Postgres) HealthCheck(ctx context.Context) error {
	if p.Pool == nil {
		return fmt.Errorf("database pool is not initialized")
	}

	var result string
	return p.Pool.QueryRow(ctx, "SELECT 'healthy'").Scan(&result)
}

// GetConfig возвращает конфигурацию из переменных окружения
func GetConfig() *Config {
	config := NewConfig()

	if host := os.Getenv("DB_HOST"); host != "" {
		config.Host = host
	}
	if port := os.Getenv("DB_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Port = p
		}
	}
	if user := os.Getenv("DB_USER"); user != "" {
		config.User = user
	}
	if password := os.Getenv("DB_PASSWORD"); password != "" {
		config.Password = password
	}
	if database := os.Getenv("DB_NAME"); database != "" {
		config.Database = database
	}
	if sslmode := os.Getenv("DB_SSLMODE"); sslmode != "" {
		config.SSLMode = sslmode
	}
	if maxConns := os.Getenv("DB_MAX_CONNS"); maxConns != "" {
		if mc, err := strconv.Atoi(maxConns); err == nil {
			config.MaxConns = mc
		}
	}
	if minConns := os.Getenv("DB_MIN_CONNS"); minConns != "" {
		if mc, err := strconv.Atoi(minConns); err == nil {
			config.MinConns = mc
		}
	}
	if maxRetries := os.Getenv("DB_MAX_RETRIES"); maxRetries != "" {
		if mr, err := strconv.Atoi(maxRetries); err == nil {
			config.MaxRetries = mr
		}
	}
	if retryInterval := os.Getenv("DB_RETRY_INTERVAL"); retryInterval != "" {
		if ri, err := time.ParseDuration(retryInterval); err == nil {
			config.RetryInterval = ri
		}
	}

	return config
}

package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"EFacturaPlatform/pkg/config"
	"EFacturaPlatform/pkg/database"
	"EFacturaPlatform/pkg/errors"
	"EFacturaPlatform/pkg/health"
	"EFacturaPlatform/pkg/logger"
	"EFacturaPlatform/pkg/metrics"
	pkg_rabbitmq "EFacturaPlatform/pkg/rabbitmq"
	"EFacturaPlatform/pkg/ratelimit"
	pkg_redis "EFacturaPlatform/pkg/redis"
	"EFacturaPlatform/pkg/validation"

	"EFacturaPlatform/services/compliance-engine/internal/anaf"
	"EFacturaPlatform/services/compliance-engine/internal/dispatcher"
	httpHandler "EFacturaPlatform/services/compliance-engine/internal/handler/http"
	"EFacturaPlatform/services/compliance-engine/internal/handler/middleware"
	"EFacturaPlatform/services/compliance-engine/internal/poller"
	"EFacturaPlatform/services/compliance-engine/internal/repository/postgres"
	redisrepo "EFacturaPlatform/services/compliance-engine/internal/repository/redis"
	"EFacturaPlatform/services/compliance-engine/internal/service"
	"EFacturaPlatform/services/compliance-engine/internal/token"
	"EFacturaPlatform/services/compliance-engine/internal/ubl"
)

func main() {
	// Инициализация конфигурации
	cfg, err := config.LoadConfig("config/config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Инициализация логгера
	appLogger, err := logger.NewLogger(cfg.Environment, cfg.Logger.Level, "compliance-engine")
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() {
		if err := appLogger.Sync(); err != nil {
			log.Printf("Error syncing logger: %v", err)
		}
	}()

	appLogger.Info("Starting Compliance Engine service")

	// Инициализация метрик
	if err := metrics.InitializeOpenTelemetry("compliance-engine"); err != nil {
		appLogger.Error("Failed to initialize OpenTelemetry", logger.Error(err))
		os.Exit(1)
	}
	appMetrics := metrics.NewMetrics("compliance-engine")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Подключение к PostgreSQL
	dbConfig := database.NewConfig()
	dbConfig.Host = cfg.Database.Host
	dbConfig.Port = cfg.Database.Port
	dbConfig.User = cfg.Database.User
	dbConfig.Password = cfg.Database.Password
	dbConfig.Database = cfg.Database.Name

	db, err := database.Connect(ctx, dbConfig)
	if err != nil {
		appLogger.Error("Failed to connect to PostgreSQL", logger.Error(err))
		os.Exit(1)
	}
	defer db.Close()

	// Подключение к Redis
	redisConfig := pkg_redis.NewConfig()
	redisConfig.Addr = cfg.Redis.Addr
	redisConfig.Password = cfg.Redis.Password
	redisConfig.DB = cfg.Redis.DB
	redisConfig.PoolSize = cfg.Redis.PoolSize
	redisConfig.MinIdleConn = cfg.Redis.MinIdleConn
	redisConfig.MaxRetries = cfg.Redis.MaxRetries
	redisConfig.RetryInterval = parseDuration(cfg.Redis.RetryInterval, time.Second)

	redisClient, err := pkg_redis.Connect(ctx, redisConfig)
	if err != nil {
		appLogger.Error("Failed to connect to Redis", logger.Error(err))
		os.Exit(1)
	}
	defer redisClient.Client.Close()

	// Подключение к RabbitMQ
	rabbitmqConfig := pkg_rabbitmq.NewConfig()
	rabbitmqConfig.URL = cfg.RabbitMQ.URL
	rabbitmqConfig.Exchange = cfg.RabbitMQ.Exchange
	rabbitmqConfig.RoutingKey = cfg.RabbitMQ.RoutingKey
	rabbitmqConfig.Queue = cfg.RabbitMQ.Queue

	rabbitmqConn, err := pkg_rabbitmq.Connect(ctx, rabbitmqConfig)
	if err != nil {
		appLogger.Error("Failed to connect to RabbitMQ", logger.Error(err))
		os.Exit(1)
	}
	defer rabbitmqConn.Close()

	producer, err := pkg_rabbitmq.NewProducer(rabbitmqConn, rabbitmqConfig)
	if err != nil {
		appLogger.Error("Failed to create RabbitMQ producer", logger.Error(err))
		os.Exit(1)
	}
	publisher := dispatcher.NewEventPublisher(producer, cfg.RabbitMQ, appLogger, appMetrics)

	// Шифрование токенов в БД
	cipher, err := postgres.NewTokenCipher(cfg.ANAF.TokenKey)
	if err != nil {
		appLogger.Error("Failed to create token cipher", logger.Error(err))
		os.Exit(1)
	}

	// Репозитории
	tokenRepo := postgres.NewTokenRepository(db.Pool, cipher)
	tenantRepo := postgres.NewTenantRepository(db.Pool)
	submissionRepo := postgres.NewSubmissionRepository(db.Pool)
	transportRepo := postgres.NewTransportRepository(db.Pool)
	messageRepo := postgres.NewMessageRepository(db.Pool)
	syncLogRepo := postgres.NewSyncLogRepository(db.Pool)
	oauthStateRepo := redisrepo.NewOAuthStateRepository(redisClient.Client)
	pollStateRepo := redisrepo.NewPollStateRepository(redisClient.Client)

	// Клиенты шлюза ANAF
	limiter := ratelimit.NewRedisRateLimiter(redisClient.Client)
	gateway := anaf.NewHTTPClient(cfg.ANAF, limiter, appMetrics, appLogger)
	oauthClient := anaf.NewHTTPOAuthClient(cfg.ANAF, appLogger)

	// Менеджер токенов SPV
	safetyMargin := parseDuration(cfg.ANAF.OAuth.SafetyMargin, 60*time.Second)
	tokenManager := token.NewTokenManager(tokenRepo, oauthStateRepo, oauthClient, safetyMargin, appLogger, appMetrics)

	// Сервисы
	interCallDelay := parseDuration(cfg.ANAF.InterCallDelay, 200*time.Millisecond)
	submissionService := service.NewSubmissionService(
		submissionRepo, tenantRepo, syncLogRepo,
		tokenManager, gateway, ubl.NewValidator(), publisher, appLogger, interCallDelay,
	)
	transportService := service.NewTransportService(
		transportRepo, tenantRepo, syncLogRepo,
		tokenManager, gateway, validation.NewValidator(), publisher, appLogger,
	)
	inboxService := service.NewInboxService(
		messageRepo, tokenManager, gateway, publisher, appLogger, cfg.ANAF.InboxDays,
	)
	deadlineService := service.NewDeadlineService(cfg.Deadlines, publisher, appLogger)

	// Фоновый опрос статусов
	statusPoller := poller.NewPoller(
		cfg.Poller, cfg.ANAF,
		tenantRepo, submissionRepo, transportRepo, pollStateRepo,
		tokenManager, gateway, inboxService, deadlineService,
		publisher, appMetrics, appLogger,
	)
	if err := statusPoller.Start(ctx); err != nil {
		appLogger.Error("Failed to start status poller", logger.Error(err))
		os.Exit(1)
	}
	defer statusPoller.Stop()

	// Мост событий RabbitMQ -> push подписчики
	hub := dispatcher.NewHub(appLogger)
	consumer := pkg_rabbitmq.NewConsumer(rabbitmqConn, rabbitmqConfig)
	bridge := dispatcher.NewEventBridge(consumer, hub, cfg.RabbitMQ.Queue, appLogger)
	go func() {
		if err := bridge.Start(ctx); err != nil {
			appLogger.Error("Event bridge stopped", logger.Error(err))
		}
	}()

	// HTTP API
	handler := httpHandler.NewHTTPHandler(
		appLogger,
		submissionService, transportService, inboxService, deadlineService,
		tokenManager, hub,
	)

	healthChecker := health.NewAggregateHealthChecker("1.0.0")
	healthChecker.Register("postgres", db)
	healthChecker.Register("redis", redisClient)

	apiMux := http.NewServeMux()
	handler.RegisterRoutes(apiMux)

	var apiHandler http.Handler = apiMux
	if cfg.Auth.JWTSecret != "" {
		authMiddleware := middleware.NewAuthMiddleware(appLogger, cfg.Auth.JWTSecret, cfg.Auth.Issuer)
		apiHandler = authMiddleware.Authenticate(apiMux)
	} else {
		appLogger.Warn("API authentication is disabled: auth.jwt_secret is empty")
	}

	mux := http.NewServeMux()
	mux.Handle("/api/v1/", apiHandler)
	handler.RegisterPublicRoutes(mux)
	mux.Handle("/metrics", appMetrics.GetHandler())
	mux.HandleFunc("/health", health.Handler(healthChecker))
	mux.HandleFunc("/ready", health.ReadyHandler())
	mux.HandleFunc("/live", health.LiveHandler())

	listenAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:    listenAddr,
		Handler: errors.Middleware(appMetrics.Middleware(mux)),
	}

	// Канал для сигналов ОС
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		appLogger.Info("Starting HTTP server", logger.String("addr", listenAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Error("HTTP server failed", logger.Error(err))
			cancel()
		}
	}()

	// Ожидание сигнала
	select {
	case sig := <-sigChan:
		appLogger.Info("Received shutdown signal", logger.String("signal", sig.String()))
	case <-ctx.Done():
		appLogger.Error("Context cancelled, shutting down")
	}

	// Graceful shutdown
	appLogger.Info("Shutting down HTTP server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("HTTP server shutdown failed", logger.Error(err))
	}

	appLogger.Info("Compliance Engine stopped")
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}
	return d
}

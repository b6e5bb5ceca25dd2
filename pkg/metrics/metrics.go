package metrics

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/sdk/resource"
	tracesdk "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"
	"go.opentelemetry.io/otel/trace"
)

// Metrics представляет систему метрик
type Metrics struct {
	// Стандартные метрики Prometheus
	RequestCount    *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	ErrorsCount     *prometheus.CounterVec

	// Метрики взаимодействия со шлюзом ANAF
	GatewayCalls        *prometheus.CounterVec
	GatewayCallDuration *prometheus.HistogramVec
	TokenRefreshes      *prometheus.CounterVec
	PollCycleDuration   *prometheus.HistogramVec
	EventsPublished     *prometheus.CounterVec
	InFlightDocuments   *prometheus.GaugeVec

	// OpenTelemetry Tracer
	Tracer trace.Tracer `json:"-"`
}

// NewMetrics создает новую систему метрик
func NewMetrics(serviceName string) *Metrics {
	requestCount := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: serviceName,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: serviceName,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	errorsCount := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: serviceName,
			Subsystem: "http",
			Name:      "errors_total",
			Help:      "Total number of HTTP errors",
		},
		[]string{"method", "endpoint", "error_type"},
	)

	gatewayCalls := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: serviceName,
			Subsystem: "gateway",
			Name:      "calls_total",
			Help:      "Total number of outbound ANAF gateway calls",
		},
		[]string{"operation", "outcome"},
	)

	gatewayCallDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: serviceName,
			Subsystem: "gateway",
			Name:      "call_duration_seconds",
			Help:      "Duration of outbound ANAF gateway calls in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	tokenRefreshes := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: serviceName,
			Subsystem: "oauth",
			Name:      "token_refreshes_total",
			Help:      "Total number of OAuth token refresh attempts",
		},
		[]string{"outcome"},
	)

	pollCycleDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: serviceName,
			Subsystem: "poller",
			Name:      "cycle_duration_seconds",
			Help:      "Duration of one poll cycle in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"tenant"},
	)

	eventsPublished := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: serviceName,
			Subsystem: "events",
			Name:      "published_total",
			Help:      "Total number of domain events published",
		},
		[]string{"type"},
	)

	inFlightDocuments := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: serviceName,
			Subsystem: "documents",
			Name:      "in_flight",
			Help:      "Number of documents awaiting a gateway verdict",
		},
		[]string{"kind"},
	)

	collectors := []prometheus.Collector{
		requestCount, requestDuration, errorsCount,
		gatewayCalls, gatewayCallDuration, tokenRefreshes,
		pollCycleDuration, eventsPublished, inFlightDocuments,
	}
	for _, collector := range collectors {
		if err := prometheus.Register(collector); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
				panic(err)
			}
		}
	}

	tracer := otel.Tracer(serviceName)

	return &Metrics{
		RequestCount:        requestCount,
		RequestDuration:     requestDuration,
		ErrorsCount:         errorsCount,
		GatewayCalls:        gatewayCalls,
		GatewayCallDuration: gatewayCallDuration,
		TokenRefreshes:      tokenRefreshes,
		PollCycleDuration:   pollCycleDuration,
		EventsPublished:     eventsPublished,
		InFlightDocuments:   inFlightDocuments,
		Tracer:              tracer,
	}
}

// GetHandler возвращает HTTP обработчик для эндпоинта /metrics
func (m *Metrics) GetHandler() http.Handler {
	return promhttp.Handler()
}

// Middleware создает middleware для сбора метрик
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Начинаем трассировку с OpenTelemetry
		_, span := m.Tracer.Start(r.Context(), r.URL.Path)
		defer span.End()

		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		start := time.Now()

		next.ServeHTTP(wrapped, r)

		duration := time.Since(start).Seconds()
		endpoint := r.URL.Path

		m.RequestCount.WithLabelValues(r.Method, endpoint, fmt.Sprintf("%d", wrapped.statusCode)).Inc()
		m.RequestDuration.WithLabelValues(r.Method, endpoint).Observe(duration)

		if wrapped.statusCode >= 400 {
			errorType := "client_error"
			if wrapped.statusCode >= 500 {
				errorType = "server_error"
			}
			m.ErrorsCount.WithLabelValues(r.Method, endpoint, errorType).Inc()
		}

		span.SetAttributes(
			attribute.String("http.method", r.Method),
			attribute.String("http.url", r.URL.String()),
			attribute.Int("http.status_code", wrapped.statusCode),
			attribute.Float64("http.duration", duration),
		)
	})
}

// ObserveGatewayCall записывает метрики одного вызова шлюза
func (m *Metrics) ObserveGatewayCall(operation, outcome string, duration time.Duration) {
	m.GatewayCalls.WithLabelValues(operation, outcome).Inc()
	m.GatewayCallDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// ObserveTokenRefresh записывает результат обновления токена
func (m *Metrics) ObserveTokenRefresh(outcome string) {
	m.TokenRefreshes.WithLabelValues(outcome).Inc()
}

// ObservePollCycle записывает длительность цикла опроса
func (m *Metrics) ObservePollCycle(tenant string, duration time.Duration) {
	m.PollCycleDuration.WithLabelValues(tenant).Observe(duration.Seconds())
}

// ObserveEventPublished записывает публикацию доменного события
func (m *Metrics) ObserveEventPublished(eventType string) {
	m.EventsPublished.WithLabelValues(eventType).Inc()
}

// SetInFlightDocuments устанавливает число документов, ожидающих вердикта
func (m *Metrics) SetInFlightDocuments(kind string, count float64) {
	m.InFlightDocuments.WithLabelValues(kind).Set(count)
}

// responseWriter обертка для перехвата статуса ответа
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

// WriteHeader перехватывает установку статуса
func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// InitializeOpenTelemetry инициализирует OpenTelemetry с экспортером
func InitializeOpenTelemetry(serviceName string) error {
	tp := tracesdk.NewTracerProvider(
		tracesdk.WithSampler(tracesdk.AlwaysSample()),
		tracesdk.WithResource(resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceNameKey.String(serviceName),
			semconv.ServiceVersionKey.String("1.0.0"),
		)),
	)

	otel.SetTracerProvider(tp)

	return nil
}

package health

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// HealthChecker интерфейс для проверки здоровья сервиса
type HealthChecker interface {
	Check() *HealthStatus
}

// DependencyChecker проверяет доступность одной внешней зависимости
type DependencyChecker interface {
	HealthCheck(ctx context.Context) error
}

// HealthStatus представляет статус здоровья сервиса
type HealthStatus struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Services  map[string]Status `json:"services,omitempty"`
	Version   string            `json:"version,omitempty"`
}

// Status представляет статус сервиса
type Status struct {
	Status  string `json:"status"`
	Details string `json:"details,omitempty"`
}

// AggregateHealthChecker проверяет набор внешних зависимостей
type AggregateHealthChecker struct {
	version      string
	timeout      time.Duration
	dependencies map[string]DependencyChecker
}

// NewAggregateHealthChecker создает новый AggregateHealthChecker
func NewAggregateHealthChecker(version string) *AggregateHealthChecker {
	return &AggregateHealthChecker{
		version:      version,
		timeout:      5 * time.Second,
		dependencies: make(map[string]DependencyChecker),
	}
}

// Register добавляет зависимость под заданным именем
func (a *AggregateHealthChecker) Register(name string, dep DependencyChecker) {
	a.dependencies[name] = dep
}

// Check проверяет здоровье сервиса и всех зависимостей
func (a *AggregateHealthChecker) Check() *HealthStatus {
	status := &HealthStatus{
		Status:    "healthy",
		Timestamp: time.Now(),
		Version:   a.version,
		Services:  make(map[string]Status),
	}

	ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
	defer cancel()

	for name, dep := range a.dependencies {
		if err := dep.HealthCheck(ctx); err != nil {
			status.Status = "degraded"
			status.Services[name] = Status{Status: "unhealthy", Details: err.Error()}
		} else {
			status.Services[name] = Status{Status: "healthy"}
		}
	}

	return status
}

// Handler создает HTTP обработчик для health check эндпоинта
func Handler(checker HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := checker.Check()

		w.Header().Set("Content-Type", "application/json")
		if status.Status == "healthy" {
			w.WriteHeader(http.StatusOK)
		} else {
			w.WriteHeader(http.StatusServiceUnavailable)
		}

		json.NewEncoder(w).Encode(status)
	}
}

// ReadyHandler создает HTTP обработчик для ready check эндпоинта
// Возвращает 200 если сервис готов принимать трафик
func ReadyHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)

		json.NewEncoder(w).Encode(map[string]string{"status": "ready"})
	}
}

// LiveHandler создает HTTP обработчик для live check эндпоинта
// Возвращает 200 если сервис жив
func LiveHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)

		json.NewEncoder(w).Encode(map[string]string{"status": "alive"})
	}
}

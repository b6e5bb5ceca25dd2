package repository

import (
	"context"
	"time"
)

// PollStateRepository определяет интерфейс для переходного состояния
// опроса статусов. Состояние живет в Redis и не переживает его очистку:
// потеря флага или задержки лишь приводит к повторному опросу.
type PollStateRepository interface {
	// TryMarkInFlight ставит флаг выполняющегося опроса для документа.
	// Возвращает false, если опрос уже выполняется.
	TryMarkInFlight(ctx context.Context, documentID string, ttl time.Duration) (bool, error)

	// ClearInFlight снимает флаг выполняющегося опроса
	ClearInFlight(ctx context.Context, documentID string) error

	// SetBackoff откладывает следующий опрос документа на заданный интервал
	SetBackoff(ctx context.Context, documentID string, delay time.Duration) error

	// InBackoff проверяет, отложен ли опрос документа
	InBackoff(ctx context.Context, documentID string) (bool, error)

	// ClearBackoff снимает задержку опроса документа
	ClearBackoff(ctx context.Context, documentID string) error

	// SetTenantBackoff откладывает все обращения арендатора к шлюзу
	SetTenantBackoff(ctx context.Context, tenantID string, delay time.Duration) error

	// TenantInBackoff проверяет, отложены ли обращения арендатора
	TenantInBackoff(ctx context.Context, tenantID string) (bool, error)
}

// OAuthStateRepository определяет интерфейс хранения одноразовых
// значений state для OAuth авторизации
type OAuthStateRepository interface {
	// Save сохраняет state с привязкой к арендатору на время жизни ttl
	Save(ctx context.Context, state, tenantID string, ttl time.Duration) error

	// Consume возвращает арендатора по state и удаляет запись.
	// Повторное использование state невозможно.
	Consume(ctx context.Context, state string) (string, error)
}

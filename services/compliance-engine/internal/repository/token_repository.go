package repository

import (
	"context"

	"EFacturaPlatform/services/compliance-engine/internal/domain"
)

// TokenRepository определяет интерфейс для хранения OAuth токенов арендаторов.
// Реализация обязана шифровать токены перед записью.
type TokenRepository interface {
	// Save сохраняет или обновляет пару токенов арендатора
	Save(ctx context.Context, token *domain.OAuthToken) error

	// GetByTenantID возвращает пару токенов арендатора
	GetByTenantID(ctx context.Context, tenantID string) (*domain.OAuthToken, error)

	// UpdateStatus обновляет статус подключения без изменения токенов
	UpdateStatus(ctx context.Context, tenantID string, status domain.TokenStatus) error

	// ListActiveTenantIDs возвращает арендаторов с действующим подключением SPV
	ListActiveTenantIDs(ctx context.Context) ([]string, error)
}

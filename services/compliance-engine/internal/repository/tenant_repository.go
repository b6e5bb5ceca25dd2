package repository

import (
	"context"

	"EFacturaPlatform/services/compliance-engine/internal/domain"
)

// TenantRepository определяет интерфейс для работы с арендаторами в БД
type TenantRepository interface {
	// Create создает нового арендатора
	Create(ctx context.Context, tenant *domain.Tenant) error

	// GetByID возвращает арендатора по ID
	GetByID(ctx context.Context, id string) (*domain.Tenant, error)

	// ListActive возвращает активных арендаторов
	ListActive(ctx context.Context) ([]*domain.Tenant, error)
}

// SyncLogRepository определяет интерфейс журнала обменов со шлюзом
type SyncLogRepository interface {
	// Append добавляет запись в журнал
	Append(ctx context.Context, entry *domain.SyncLogEntry) error

	// ListByTenant возвращает последние записи журнала арендатора
	ListByTenant(ctx context.Context, tenantID string, limit int) ([]*domain.SyncLogEntry, error)
}

package repository

import (
	"context"

	"EFacturaPlatform/services/compliance-engine/internal/domain"
)

// TransportRepository определяет интерфейс для работы с транспортными
// декларациями e-Transport в БД
type TransportRepository interface {
	// Create создает новую транспортную декларацию
	Create(ctx context.Context, doc *domain.TransportDocument) error

	// GetByID возвращает декларацию по ID
	GetByID(ctx context.Context, id string) (*domain.TransportDocument, error)

	// Update обновляет декларацию
	Update(ctx context.Context, doc *domain.TransportDocument) error

	// ListByTenant возвращает декларации арендатора
	ListByTenant(ctx context.Context, tenantID string, limit, offset int) ([]*domain.TransportDocument, error)

	// ListPollable возвращает декларации арендатора, подлежащие опросу статуса
	ListPollable(ctx context.Context, tenantID string) ([]*domain.TransportDocument, error)
}

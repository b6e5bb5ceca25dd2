package repository

import (
	"context"

	"EFacturaPlatform/services/compliance-engine/internal/domain"
)

// SubmissionRepository определяет интерфейс для работы с подачами фактур в БД
type SubmissionRepository interface {
	// Create создает новую подачу
	Create(ctx context.Context, submission *domain.Submission) error

	// GetByID возвращает подачу по ID
	GetByID(ctx context.Context, id string) (*domain.Submission, error)

	// GetByTrackingID возвращает подачу по идентификатору загрузки шлюза
	GetByTrackingID(ctx context.Context, trackingID string) (*domain.Submission, error)

	// Update обновляет подачу
	Update(ctx context.Context, submission *domain.Submission) error

	// List возвращает подачи по фильтру
	List(ctx context.Context, filter domain.SubmissionFilter) ([]*domain.Submission, error)

	// ListPollable возвращает подачи арендатора, подлежащие опросу статуса
	ListPollable(ctx context.Context, tenantID string) ([]*domain.Submission, error)

	// CountNonTerminal возвращает количество подач арендатора в нетерминальных состояниях
	CountNonTerminal(ctx context.Context, tenantID string) (int, error)
}

package repository

import (
	"context"

	"EFacturaPlatform/services/compliance-engine/internal/domain"
)

// MessageRepository определяет интерфейс для работы с входящими
// сообщениями шлюза в БД
type MessageRepository interface {
	// Create сохраняет новое сообщение
	Create(ctx context.Context, message *domain.GatewayMessage) error

	// GetByID возвращает сообщение по ID
	GetByID(ctx context.Context, id string) (*domain.GatewayMessage, error)

	// ExistsByMessageID проверяет, было ли сообщение шлюза уже сохранено
	ExistsByMessageID(ctx context.Context, tenantID, messageID string) (bool, error)

	// List возвращает сообщения по фильтру
	List(ctx context.Context, filter domain.MessageFilter) ([]*domain.GatewayMessage, error)

	// MarkRead помечает сообщение прочитанным
	MarkRead(ctx context.Context, id string) error
}

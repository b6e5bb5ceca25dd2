package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"EFacturaPlatform/pkg/logger"
	"EFacturaPlatform/services/compliance-engine/internal/anaf"
	"EFacturaPlatform/services/compliance-engine/internal/dispatcher"
	"EFacturaPlatform/services/compliance-engine/internal/domain"
	"EFacturaPlatform/services/compliance-engine/internal/repository"
	"EFacturaPlatform/services/compliance-engine/internal/token"
)

// InboxService определяет интерфейс работы с входящими сообщениями SPV
type InboxService interface {
	// Sync забирает новые сообщения арендатора из шлюза.
	// Возвращает количество сохраненных сообщений.
	Sync(ctx context.Context, tenant *domain.Tenant) (int, error)

	// List возвращает сохраненные сообщения по фильтру
	List(ctx context.Context, filter domain.MessageFilter) ([]*domain.GatewayMessage, error)

	// MarkRead помечает сообщение прочитанным
	MarkRead(ctx context.Context, id string) error

	// Download скачивает ZIP архив документа, связанного с сообщением
	Download(ctx context.Context, id string) ([]byte, error)

	// DownloadXML скачивает архив и извлекает из него XML документа
	DownloadXML(ctx context.Context, id string) ([]byte, error)
}

// InboxServiceImpl реализация InboxService
type InboxServiceImpl struct {
	messages  repository.MessageRepository
	tokens    token.Manager
	gateway   anaf.Client
	publisher dispatcher.Publisher
	logger    logger.Logger
	inboxDays int
}

// NewInboxService создает новый экземпляр InboxService
func NewInboxService(
	messages repository.MessageRepository,
	tokens token.Manager,
	gateway anaf.Client,
	publisher dispatcher.Publisher,
	log logger.Logger,
	inboxDays int,
) InboxService {
	return &InboxServiceImpl{
		messages:  messages,
		tokens:    tokens,
		gateway:   gateway,
		publisher: publisher,
		logger:    log,
		inboxDays: inboxDays,
	}
}

// Sync забирает новые сообщения арендатора из шлюза.
// Сообщения дедуплицируются по идентификатору шлюза: повторная выдача
// того же сообщения не создает ни записи, ни события.
func (s *InboxServiceImpl) Sync(ctx context.Context, tenant *domain.Tenant) (int, error) {
	accessToken, err := s.tokens.GetValidToken(ctx, tenant.ID)
	if err != nil {
		return 0, err
	}

	inbox, err := s.gateway.ListMessages(ctx, accessToken, tenant.Cif, s.inboxDays, "")
	if err != nil {
		return 0, err
	}

	stored := 0
	for _, raw := range inbox {
		exists, err := s.messages.ExistsByMessageID(ctx, tenant.ID, raw.ID)
		if err != nil {
			return stored, err
		}
		if exists {
			continue
		}

		message := s.toDomain(tenant.ID, raw)
		if err := s.messages.Create(ctx, message); err != nil {
			return stored, err
		}
		stored++

		event := domain.NewEvent(domain.EventGatewayMessageReceived, domain.GatewayMessagePayload{
			TenantID:          tenant.ID,
			MessageID:         message.MessageID,
			MessageType:       message.Type,
			RelatedTrackingID: message.RelatedTrackingID,
		})
		if err := s.publisher.Publish(ctx, event); err != nil {
			s.logger.Warn("failed to publish gateway message event",
				logger.CtxField(ctx),
				logger.String("message_id", message.MessageID),
				logger.Error(err),
			)
		}
	}

	if stored > 0 {
		s.logger.Info("gateway inbox synchronized",
			logger.CtxField(ctx),
			logger.String("tenant_id", tenant.ID),
			logger.Int("new_messages", stored),
		)
	}

	return stored, nil
}

// List возвращает сохраненные сообщения по фильтру
func (s *InboxServiceImpl) List(ctx context.Context, filter domain.MessageFilter) ([]*domain.GatewayMessage, error) {
	return s.messages.List(ctx, filter)
}

// MarkRead помечает сообщение прочитанным. Локальная запись является
// источником истины; отметка на стороне шлюза выполняется по принципу
// best-effort и ее сбой не откатывает локальный флаг.
func (s *InboxServiceImpl) MarkRead(ctx context.Context, id string) error {
	message, err := s.messages.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if err := s.messages.MarkRead(ctx, id); err != nil {
		return err
	}

	accessToken, err := s.tokens.GetValidToken(ctx, message.TenantID)
	if err == nil {
		err = s.gateway.MarkRead(ctx, accessToken, message.MessageID)
	}
	if err != nil {
		s.logger.Warn("failed to mark message read at gateway",
			logger.CtxField(ctx),
			logger.String("message_id", message.MessageID),
			logger.Error(err),
		)
	}

	return nil
}

// Download скачивает ZIP архив документа, связанного с сообщением
func (s *InboxServiceImpl) Download(ctx context.Context, id string) ([]byte, error) {
	message, err := s.messages.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	accessToken, err := s.tokens.GetValidToken(ctx, message.TenantID)
	if err != nil {
		return nil, err
	}

	return s.gateway.Download(ctx, accessToken, message.MessageID)
}

// DownloadXML скачивает архив и извлекает из него XML документа
func (s *InboxServiceImpl) DownloadXML(ctx context.Context, id string) ([]byte, error) {
	archive, err := s.Download(ctx, id)
	if err != nil {
		return nil, err
	}
	return anaf.ExtractInvoiceXML(archive)
}

func (s *InboxServiceImpl) toDomain(tenantID string, raw anaf.InboxMessage) *domain.GatewayMessage {
	return &domain.GatewayMessage{
		ID:                uuid.NewString(),
		TenantID:          tenantID,
		MessageID:         raw.ID,
		Type:              classifyMessage(raw.Tip),
		RelatedTrackingID: raw.IDSolicitare,
		Details:           raw.Detalii,
		ReceivedAt:        parseGatewayTime(raw.DataCreare),
		CreatedAt:         time.Now(),
	}
}

// classifyMessage отображает словарь типов шлюза на локальные типы
func classifyMessage(tip string) domain.MessageType {
	upper := strings.ToUpper(tip)
	switch {
	case strings.Contains(upper, "ERORI"):
		return domain.MessageTypeError
	case strings.Contains(upper, "TRIMISA"):
		return domain.MessageTypeSuccess
	case strings.Contains(upper, "ATENTIE"):
		return domain.MessageTypeWarning
	default:
		return domain.MessageTypeInfo
	}
}

// parseGatewayTime разбирает метку времени шлюза формата yyyyMMddHHmm
func parseGatewayTime(value string) time.Time {
	parsed, err := time.Parse("200601021504", value)
	if err != nil {
		return time.Now()
	}
	return parsed
}

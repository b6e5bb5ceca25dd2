package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"EFacturaPlatform/pkg/errors"
	"EFacturaPlatform/services/compliance-engine/internal/domain"
	"EFacturaPlatform/services/compliance-engine/internal/repository"
)

// MessageRepository реализация репозитория входящих сообщений в PostgreSQL
type MessageRepository struct {
	pool *pgxpool.Pool
}

// NewMessageRepository создает новый экземпляр MessageRepository
func NewMessageRepository(pool *pgxpool.Pool) repository.MessageRepository {
	return &MessageRepository{
		pool: pool,
	}
}

const messageColumns = `id, tenant_id, message_id, type, related_tracking_id,
		details, read, received_at, created_at`

// Create сохраняет новое сообщение
func (r *MessageRepository) Create(ctx context.Context, message *domain.GatewayMessage) error {
	query := `
		INSERT INTO gateway_messages (` + messageColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.pool.Exec(ctx, query,
		message.ID,
		message.TenantID,
		message.MessageID,
		message.Type,
		nullString(message.RelatedTrackingID),
		message.Details,
		message.Read,
		message.ReceivedAt,
		message.CreatedAt,
	)

	if err != nil {
		return errors.Wrap(err, errors.ErrInternal, "failed to create gateway message").
			WithDetails(fmt.Sprintf("tenant_id: %s, message_id: %s", message.TenantID, message.MessageID)).
			WithContext(ctx)
	}

	return nil
}

// GetByID возвращает сообщение по ID
func (r *MessageRepository) GetByID(ctx context.Context, id string) (*domain.GatewayMessage, error) {
	query := `
		SELECT ` + messageColumns + `
		FROM gateway_messages
		WHERE id = $1
	`

	message, err := r.scanMessage(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, errors.New(errors.ErrNotFound, "gateway message not found").
				WithDetails(fmt.Sprintf("id: %s", id)).
				WithContext(ctx)
		}
		return nil, errors.Wrap(err, errors.ErrInternal, "failed to get gateway message").
			WithDetails(fmt.Sprintf("id: %s", id)).
			WithContext(ctx)
	}

	return message, nil
}

// ExistsByMessageID проверяет, было ли сообщение шлюза уже сохранено.
// Дедупликация идет по паре (tenant_id, message_id).
func (r *MessageRepository) ExistsByMessageID(ctx context.Context, tenantID, messageID string) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM gateway_messages WHERE tenant_id = $1 AND message_id = $2
		)
	`

	var exists bool
	if err := r.pool.QueryRow(ctx, query, tenantID, messageID).Scan(&exists); err != nil {
		return false, errors.Wrap(err, errors.ErrInternal, "failed to check gateway message existence").
			WithDetails(fmt.Sprintf("tenant_id: %s, message_id: %s", tenantID, messageID)).
			WithContext(ctx)
	}

	return exists, nil
}

// List возвращает сообщения по фильтру
func (r *MessageRepository) List(ctx context.Context, filter domain.MessageFilter) ([]*domain.GatewayMessage, error) {
	query := `
		SELECT ` + messageColumns + `
		FROM gateway_messages
		WHERE ($1 = '' OR tenant_id = $1)
			AND ($2::boolean IS NULL OR read = $2)
		ORDER BY received_at DESC
		LIMIT $3 OFFSET $4
	`

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}

	rows, err := r.pool.Query(ctx, query, filter.TenantID, filter.Read, limit, filter.Offset)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrInternal, "failed to list gateway messages").
			WithDetails(fmt.Sprintf("tenant_id: %s", filter.TenantID)).
			WithContext(ctx)
	}
	defer rows.Close()

	var messages []*domain.GatewayMessage
	for rows.Next() {
		message, err := r.scanMessage(rows)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrInternal, "failed to scan gateway message").
				WithContext(ctx)
		}
		messages = append(messages, message)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrInternal, "failed to iterate gateway messages").
			WithContext(ctx)
	}

	return messages, nil
}

// MarkRead помечает сообщение прочитанным
func (r *MessageRepository) MarkRead(ctx context.Context, id string) error {
	query := `UPDATE gateway_messages SET read = TRUE WHERE id = $1`

	tag, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return errors.Wrap(err, errors.ErrInternal, "failed to mark gateway message as read").
			WithDetails(fmt.Sprintf("id: %s", id)).
			WithContext(ctx)
	}

	if tag.RowsAffected() == 0 {
		return errors.New(errors.ErrNotFound, "gateway message not found").
			WithDetails(fmt.Sprintf("id: %s", id)).
			WithContext(ctx)
	}

	return nil
}

func (r *MessageRepository) scanMessage(row pgx.Row) (*domain.GatewayMessage, error) {
	var message domain.GatewayMessage
	var relatedTrackingID sql.NullString

	err := row.Scan(
		&message.ID,
		&message.TenantID,
		&message.MessageID,
		&message.Type,
		&relatedTrackingID,
		&message.Details,
		&message.Read,
		&message.ReceivedAt,
		&message.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if relatedTrackingID.Valid {
		message.RelatedTrackingID = relatedTrackingID.String
	}

	return &message, nil
}

package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"EFacturaPlatform/pkg/errors"
	"EFacturaPlatform/services/compliance-engine/internal/repository"
)

// PollStateRepository реализация PollStateRepository поверх Redis.
// Флаги и задержки — обычные ключи с TTL: истечение ключа означает
// снятие флага или окончание задержки.
type PollStateRepository struct {
	client *redis.Client
}

// NewPollStateRepository создает новый экземпляр PollStateRepository
func NewPollStateRepository(client *redis.Client) repository.PollStateRepository {
	return &PollStateRepository{
		client: client,
	}
}

// TryMarkInFlight ставит флаг выполняющегося опроса для документа
func (r *PollStateRepository) TryMarkInFlight(ctx context.Context, documentID string, ttl time.Duration) (bool, error) {
	key := fmt.Sprintf("poll:inflight:%s", documentID)

	acquired, err := r.client.SetNX(ctx, key, 1, ttl).Result()
	if err != nil {
		return false, errors.Wrap(err, errors.ErrInternal, "failed to mark poll in flight").
			WithDetails(fmt.Sprintf("document_id: %s", documentID)).
			WithContext(ctx)
	}

	return acquired, nil
}

// ClearInFlight снимает флаг выполняющегося опроса
func (r *PollStateRepository) ClearInFlight(ctx context.Context, documentID string) error {
	key := fmt.Sprintf("poll:inflight:%s", documentID)

	if err := r.client.Del(ctx, key).Err(); err != nil {
		return errors.Wrap(err, errors.ErrInternal, "failed to clear in flight flag").
			WithDetails(fmt.Sprintf("document_id: %s", documentID)).
			WithContext(ctx)
	}

	return nil
}

// SetBackoff откладывает следующий опрос документа на заданный интервал
func (r *PollStateRepository) SetBackoff(ctx context.Context, documentID string, delay time.Duration) error {
	key := fmt.Sprintf("poll:backoff:%s", documentID)

	if err := r.client.Set(ctx, key, 1, delay).Err(); err != nil {
		return errors.Wrap(err, errors.ErrInternal, "failed to set poll backoff").
			WithDetails(fmt.Sprintf("document_id: %s, delay: %s", documentID, delay)).
			WithContext(ctx)
	}

	return nil
}

// InBackoff проверяет, отложен ли опрос документа
func (r *PollStateRepository) InBackoff(ctx context.Context, documentID string) (bool, error) {
	key := fmt.Sprintf("poll:backoff:%s", documentID)

	count, err := r.client.Exists(ctx, key).Result()
	if err != nil {
		return false, errors.Wrap(err, errors.ErrInternal, "failed to check poll backoff").
			WithDetails(fmt.Sprintf("document_id: %s", documentID)).
			WithContext(ctx)
	}

	return count > 0, nil
}

// ClearBackoff снимает задержку опроса документа
func (r *PollStateRepository) ClearBackoff(ctx context.Context, documentID string) error {
	key := fmt.Sprintf("poll:backoff:%s", documentID)

	if err := r.client.Del(ctx, key).Err(); err != nil {
		return errors.Wrap(err, errors.ErrInternal, "failed to clear poll backoff").
			WithDetails(fmt.Sprintf("document_id: %s", documentID)).
			WithContext(ctx)
	}

	return nil
}

// SetTenantBackoff откладывает все обращения арендатора к шлюзу
func (r *PollStateRepository) SetTenantBackoff(ctx context.Context, tenantID string, delay time.Duration) error {
	key := fmt.Sprintf("poll:tenant_backoff:%s", tenantID)

	if err := r.client.Set(ctx, key, 1, delay).Err(); err != nil {
		return errors.Wrap(err, errors.ErrInternal, "failed to set tenant backoff").
			WithDetails(fmt.Sprintf("tenant_id: %s, delay: %s", tenantID, delay)).
			WithContext(ctx)
	}

	return nil
}

// TenantInBackoff проверяет, отложены ли обращения арендатора
func (r *PollStateRepository) TenantInBackoff(ctx context.Context, tenantID string) (bool, error) {
	key := fmt.Sprintf("poll:tenant_backoff:%s", tenantID)

	count, err := r.client.Exists(ctx, key).Result()
	if err != nil {
		return false, errors.Wrap(err, errors.ErrInternal, "failed to check tenant backoff").
			WithDetails(fmt.Sprintf("tenant_id: %s", tenantID)).
			WithContext(ctx)
	}

	return count > 0, nil
}

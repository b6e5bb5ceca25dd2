package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"EFacturaPlatform/pkg/errors"
	"EFacturaPlatform/services/compliance-engine/internal/repository"
)

// OAuthStateRepository реализация OAuthStateRepository поверх Redis
type OAuthStateRepository struct {
	client *redis.Client
}

// NewOAuthStateRepository создает новый экземпляр OAuthStateRepository
func NewOAuthStateRepository(client *redis.Client) repository.OAuthStateRepository {
	return &OAuthStateRepository{
		client: client,
	}
}

// Save сохраняет state с привязкой к арендатору на время жизни ttl
func (r *OAuthStateRepository) Save(ctx context.Context, state, tenantID string, ttl time.Duration) error {
	key := fmt.Sprintf("oauth:state:%s", state)

	if err := r.client.Set(ctx, key, tenantID, ttl).Err(); err != nil {
		return errors.Wrap(err, errors.ErrInternal, "failed to save oauth state").
			WithDetails(fmt.Sprintf("tenant_id: %s", tenantID)).
			WithContext(ctx)
	}

	return nil
}

// Consume возвращает арендатора по state и удаляет запись
func (r *OAuthStateRepository) Consume(ctx context.Context, state string) (string, error) {
	key := fmt.Sprintf("oauth:state:%s", state)

	tenantID, err := r.client.GetDel(ctx, key).Result()
	if err != nil {
		if err == redis.Nil {
			return "", errors.New(errors.ErrUnauthorized, "oauth state is unknown or expired").
				WithContext(ctx)
		}
		return "", errors.Wrap(err, errors.ErrInternal, "failed to consume oauth state").
			WithContext(ctx)
	}

	return tenantID, nil
}

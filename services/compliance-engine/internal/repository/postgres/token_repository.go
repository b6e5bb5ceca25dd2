package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"EFacturaPlatform/pkg/errors"
	"EFacturaPlatform/services/compliance-engine/internal/domain"
	"EFacturaPlatform/services/compliance-engine/internal/repository"
)

// TokenRepository реализация репозитория OAuth токенов в PostgreSQL.
// Токены хранятся только в зашифрованном виде.
type TokenRepository struct {
	pool   *pgxpool.Pool
	cipher *TokenCipher
}

// NewTokenRepository создает новый экземпляр TokenRepository
func NewTokenRepository(pool *pgxpool.Pool, cipher *TokenCipher) repository.TokenRepository {
	return &TokenRepository{
		pool:   pool,
		cipher: cipher,
	}
}

// Save сохраняет или обновляет пару токенов арендатора
func (r *TokenRepository) Save(ctx context.Context, token *domain.OAuthToken) error {
	accessToken, err := r.cipher.Encrypt(token.AccessToken)
	if err != nil {
		return err
	}
	refreshToken, err := r.cipher.Encrypt(token.RefreshToken)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO oauth_tokens (tenant_id, access_token, refresh_token, expires_at, scope, status, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (tenant_id) DO UPDATE
		SET access_token = EXCLUDED.access_token,
			refresh_token = EXCLUDED.refresh_token,
			expires_at = EXCLUDED.expires_at,
			scope = EXCLUDED.scope,
			status = EXCLUDED.status,
			updated_at = EXCLUDED.updated_at
	`

	_, err = r.pool.Exec(ctx, query,
		token.TenantID,
		accessToken,
		refreshToken,
		token.ExpiresAt,
		token.Scope,
		token.Status,
		time.Now(),
	)

	if err != nil {
		return errors.Wrap(err, errors.ErrInternal, "failed to save oauth token").
			WithDetails(fmt.Sprintf("tenant_id: %s", token.TenantID)).
			WithContext(ctx)
	}

	return nil
}

// GetByTenantID возвращает пару токенов арендатора
func (r *TokenRepository) GetByTenantID(ctx context.Context, tenantID string) (*domain.OAuthToken, error) {
	query := `
		SELECT tenant_id, access_token, refresh_token, expires_at, scope, status, updated_at
		FROM oauth_tokens
		WHERE tenant_id = $1
	`

	var token domain.OAuthToken
	var accessToken, refreshToken string

	err := r.pool.QueryRow(ctx, query, tenantID).Scan(
		&token.TenantID,
		&accessToken,
		&refreshToken,
		&token.ExpiresAt,
		&token.Scope,
		&token.Status,
		&token.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, errors.New(errors.ErrNotFound, "oauth token not found").
				WithDetails(fmt.Sprintf("tenant_id: %s", tenantID)).
				WithContext(ctx)
		}
		return nil, errors.Wrap(err, errors.ErrInternal, "failed to get oauth token").
			WithDetails(fmt.Sprintf("tenant_id: %s", tenantID)).
			WithContext(ctx)
	}

	if token.AccessToken, err = r.cipher.Decrypt(accessToken); err != nil {
		return nil, err
	}
	if token.RefreshToken, err = r.cipher.Decrypt(refreshToken); err != nil {
		return nil, err
	}

	return &token, nil
}

// UpdateStatus обновляет статус подключения без изменения токенов
func (r *TokenRepository) UpdateStatus(ctx context.Context, tenantID string, status domain.TokenStatus) error {
	query := `UPDATE oauth_tokens SET status = $2, updated_at = $3 WHERE tenant_id = $1`

	tag, err := r.pool.Exec(ctx, query, tenantID, status, time.Now())
	if err != nil {
		return errors.Wrap(err, errors.ErrInternal, "failed to update oauth token status").
			WithDetails(fmt.Sprintf("tenant_id: %s", tenantID)).
			WithContext(ctx)
	}

	if tag.RowsAffected() == 0 {
		return errors.New(errors.ErrNotFound, "oauth token not found").
			WithDetails(fmt.Sprintf("tenant_id: %s", tenantID)).
			WithContext(ctx)
	}

	return nil
}

// ListActiveTenantIDs возвращает арендаторов с действующим подключением SPV
func (r *TokenRepository) ListActiveTenantIDs(ctx context.Context) ([]string, error) {
	query := `
		SELECT tenant_id
		FROM oauth_tokens
		WHERE status = 'ACTIVE'
		ORDER BY tenant_id
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrInternal, "failed to list active tenants").
			WithContext(ctx)
	}
	defer rows.Close()

	var tenantIDs []string
	for rows.Next() {
		var tenantID string
		if err := rows.Scan(&tenantID); err != nil {
			return nil, errors.Wrap(err, errors.ErrInternal, "failed to scan tenant id").
				WithContext(ctx)
		}
		tenantIDs = append(tenantIDs, tenantID)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrInternal, "failed to iterate active tenants").
			WithContext(ctx)
	}

	return tenantIDs, nil
}

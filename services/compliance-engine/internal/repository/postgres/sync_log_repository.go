package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"EFacturaPlatform/pkg/errors"
	"EFacturaPlatform/services/compliance-engine/internal/domain"
	"EFacturaPlatform/services/compliance-engine/internal/repository"
)

// SyncLogRepository реализация журнала обменов со шлюзом в PostgreSQL
type SyncLogRepository struct {
	pool *pgxpool.Pool
}

// NewSyncLogRepository создает новый экземпляр SyncLogRepository
func NewSyncLogRepository(pool *pgxpool.Pool) repository.SyncLogRepository {
	return &SyncLogRepository{
		pool: pool,
	}
}

// Append добавляет запись в журнал
func (r *SyncLogRepository) Append(ctx context.Context, entry *domain.SyncLogEntry) error {
	query := `
		INSERT INTO sync_log (id, tenant_id, operation, target_id, outcome, details, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.pool.Exec(ctx, query,
		entry.ID,
		entry.TenantID,
		entry.Operation,
		entry.TargetID,
		entry.Outcome,
		entry.Details,
		entry.CreatedAt,
	)

	if err != nil {
		return errors.Wrap(err, errors.ErrInternal, "failed to append sync log entry").
			WithDetails(fmt.Sprintf("tenant_id: %s, operation: %s", entry.TenantID, entry.Operation)).
			WithContext(ctx)
	}

	return nil
}

// ListByTenant возвращает последние записи журнала арендатора
func (r *SyncLogRepository) ListByTenant(ctx context.Context, tenantID string, limit int) ([]*domain.SyncLogEntry, error) {
	query := `
		SELECT id, tenant_id, operation, target_id, outcome, details, created_at
		FROM sync_log
		WHERE tenant_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	if limit <= 0 {
		limit = 100
	}

	rows, err := r.pool.Query(ctx, query, tenantID, limit)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrInternal, "failed to list sync log entries").
			WithDetails(fmt.Sprintf("tenant_id: %s", tenantID)).
			WithContext(ctx)
	}
	defer rows.Close()

	var entries []*domain.SyncLogEntry
	for rows.Next() {
		var entry domain.SyncLogEntry
		err := rows.Scan(
			&entry.ID,
			&entry.TenantID,
			&entry.Operation,
			&entry.TargetID,
			&entry.Outcome,
			&entry.Details,
			&entry.CreatedAt,
		)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrInternal, "failed to scan sync log entry").
				WithContext(ctx)
		}
		entries = append(entries, &entry)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrInternal, "failed to iterate sync log entries").
			WithContext(ctx)
	}

	return entries, nil
}

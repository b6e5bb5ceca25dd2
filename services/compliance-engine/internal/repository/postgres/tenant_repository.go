package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"EFacturaPlatform/pkg/errors"
	"EFacturaPlatform/services/compliance-engine/internal/domain"
	"EFacturaPlatform/services/compliance-engine/internal/repository"
)

// TenantRepository реализация репозитория арендаторов в PostgreSQL
type TenantRepository struct {
	pool *pgxpool.Pool
}

// NewTenantRepository создает новый экземпляр TenantRepository
func NewTenantRepository(pool *pgxpool.Pool) repository.TenantRepository {
	return &TenantRepository{
		pool: pool,
	}
}

// Create создает нового арендатора
func (r *TenantRepository) Create(ctx context.Context, tenant *domain.Tenant) error {
	query := `
		INSERT INTO tenants (id, name, cif, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.pool.Exec(ctx, query,
		tenant.ID,
		tenant.Name,
		tenant.Cif,
		tenant.Active,
		tenant.CreatedAt,
		tenant.UpdatedAt,
	)

	if err != nil {
		return errors.Wrap(err, errors.ErrInternal, "failed to create tenant").
			WithDetails(fmt.Sprintf("name: %s, cif: %s", tenant.Name, tenant.Cif)).
			WithContext(ctx)
	}

	return nil
}

// GetByID возвращает арендатора по ID
func (r *TenantRepository) GetByID(ctx context.Context, id string) (*domain.Tenant, error) {
	query := `
		SELECT id, name, cif, active, created_at, updated_at
		FROM tenants
		WHERE id = $1
	`

	var tenant domain.Tenant
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&tenant.ID,
		&tenant.Name,
		&tenant.Cif,
		&tenant.Active,
		&tenant.CreatedAt,
		&tenant.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, errors.New(errors.ErrNotFound, "tenant not found").
				WithDetails(fmt.Sprintf("tenant_id: %s", id)).
				WithContext(ctx)
		}
		return nil, errors.Wrap(err, errors.ErrInternal, "failed to get tenant").
			WithDetails(fmt.Sprintf("tenant_id: %s", id)).
			WithContext(ctx)
	}

	return &tenant, nil
}

// ListActive возвращает активных арендаторов
func (r *TenantRepository) ListActive(ctx context.Context) ([]*domain.Tenant, error) {
	query := `
		SELECT id, name, cif, active, created_at, updated_at
		FROM tenants
		WHERE active
		ORDER BY name
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrInternal, "failed to list active tenants").
			WithContext(ctx)
	}
	defer rows.Close()

	var tenants []*domain.Tenant
	for rows.Next() {
		var tenant domain.Tenant
		err := rows.Scan(
			&tenant.ID,
			&tenant.Name,
			&tenant.Cif,
			&tenant.Active,
			&tenant.CreatedAt,
			&tenant.UpdatedAt,
		)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrInternal, "failed to scan tenant").
				WithContext(ctx)
		}
		tenants = append(tenants, &tenant)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrInternal, "failed to iterate tenants").
			WithContext(ctx)
	}

	return tenants, nil
}

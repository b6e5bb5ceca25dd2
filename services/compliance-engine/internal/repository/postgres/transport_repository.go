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

// TransportRepository реализация репозитория транспортных деклараций в PostgreSQL
type TransportRepository struct {
	pool *pgxpool.Pool
}

// NewTransportRepository создает новый экземпляр TransportRepository
func NewTransportRepository(pool *pgxpool.Pool) repository.TransportRepository {
	return &TransportRepository{
		pool: pool,
	}
}

const transportColumns = `id, tenant_id, gateway_tracking_id, gateway_uit_code, status,
		vehicle_plate, route_from, route_to, carrier_cui, driver_cnp, last_checked_at,
		attempt_count, last_error, created_at, updated_at`

// Create создает новую транспортную декларацию
func (r *TransportRepository) Create(ctx context.Context, doc *domain.TransportDocument) error {
	query := `
		INSERT INTO transport_documents (` + transportColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`

	_, err := r.pool.Exec(ctx, query,
		doc.ID,
		doc.TenantID,
		nullString(doc.GatewayTrackingID),
		nullString(doc.GatewayUitCode),
		doc.Status,
		doc.VehiclePlate,
		doc.RouteFrom,
		doc.RouteTo,
		doc.CarrierCui,
		doc.DriverCnp,
		doc.LastCheckedAt,
		doc.AttemptCount,
		doc.LastError,
		doc.CreatedAt,
		doc.UpdatedAt,
	)

	if err != nil {
		return errors.Wrap(err, errors.ErrInternal, "failed to create transport document").
			WithDetails(fmt.Sprintf("tenant_id: %s, vehicle_plate: %s", doc.TenantID, doc.VehiclePlate)).
			WithContext(ctx)
	}

	return nil
}

// GetByID возвращает декларацию по ID
func (r *TransportRepository) GetByID(ctx context.Context, id string) (*domain.TransportDocument, error) {
	query := `
		SELECT ` + transportColumns + `
		FROM transport_documents
		WHERE id = $1
	`

	doc, err := r.scanDocument(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, errors.New(errors.ErrNotFound, "transport document not found").
				WithDetails(fmt.Sprintf("document_id: %s", id)).
				WithContext(ctx)
		}
		return nil, errors.Wrap(err, errors.ErrInternal, "failed to get transport document").
			WithDetails(fmt.Sprintf("document_id: %s", id)).
			WithContext(ctx)
	}

	return doc, nil
}

// Update обновляет декларацию
func (r *TransportRepository) Update(ctx context.Context, doc *domain.TransportDocument) error {
	query := `
		UPDATE transport_documents
		SET gateway_tracking_id = $2, gateway_uit_code = $3, status = $4,
			last_checked_at = $5, attempt_count = $6, last_error = $7, updated_at = $8
		WHERE id = $1
	`

	tag, err := r.pool.Exec(ctx, query,
		doc.ID,
		nullString(doc.GatewayTrackingID),
		nullString(doc.GatewayUitCode),
		doc.Status,
		doc.LastCheckedAt,
		doc.AttemptCount,
		doc.LastError,
		doc.UpdatedAt,
	)

	if err != nil {
		return errors.Wrap(err, errors.ErrInternal, "failed to update transport document").
			WithDetails(fmt.Sprintf("document_id: %s", doc.ID)).
			WithContext(ctx)
	}

	if tag.RowsAffected() == 0 {
		return errors.New(errors.ErrNotFound, "transport document not found").
			WithDetails(fmt.Sprintf("document_id: %s", doc.ID)).
			WithContext(ctx)
	}

	return nil
}

// ListByTenant возвращает декларации арендатора
func (r *TransportRepository) ListByTenant(ctx context.Context, tenantID string, limit, offset int) ([]*domain.TransportDocument, error) {
	query := `
		SELECT ` + transportColumns + `
		FROM transport_documents
		WHERE tenant_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	if limit <= 0 {
		limit = 50
	}

	rows, err := r.pool.Query(ctx, query, tenantID, limit, offset)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrInternal, "failed to list transport documents").
			WithDetails(fmt.Sprintf("tenant_id: %s", tenantID)).
			WithContext(ctx)
	}
	defer rows.Close()

	return r.scanDocuments(ctx, rows)
}

// ListPollable возвращает декларации арендатора, подлежащие опросу статуса
func (r *TransportRepository) ListPollable(ctx context.Context, tenantID string) ([]*domain.TransportDocument, error) {
	query := `
		SELECT ` + transportColumns + `
		FROM transport_documents
		WHERE tenant_id = $1 AND status = 'SUBMITTED' AND gateway_tracking_id IS NOT NULL
		ORDER BY created_at
	`

	rows, err := r.pool.Query(ctx, query, tenantID)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrInternal, "failed to list pollable transport documents").
			WithDetails(fmt.Sprintf("tenant_id: %s", tenantID)).
			WithContext(ctx)
	}
	defer rows.Close()

	return r.scanDocuments(ctx, rows)
}

func (r *TransportRepository) scanDocument(row pgx.Row) (*domain.TransportDocument, error) {
	var doc domain.TransportDocument
	var trackingID, uitCode sql.NullString
	var lastChecked sql.NullTime

	err := row.Scan(
		&doc.ID,
		&doc.TenantID,
		&trackingID,
		&uitCode,
		&doc.Status,
		&doc.VehiclePlate,
		&doc.RouteFrom,
		&doc.RouteTo,
		&doc.CarrierCui,
		&doc.DriverCnp,
		&lastChecked,
		&doc.AttemptCount,
		&doc.LastError,
		&doc.CreatedAt,
		&doc.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if trackingID.Valid {
		doc.GatewayTrackingID = trackingID.String
	}
	if uitCode.Valid {
		doc.GatewayUitCode = uitCode.String
	}
	if lastChecked.Valid {
		doc.LastCheckedAt = &lastChecked.Time
	}

	return &doc, nil
}

func (r *TransportRepository) scanDocuments(ctx context.Context, rows pgx.Rows) ([]*domain.TransportDocument, error) {
	var docs []*domain.TransportDocument
	for rows.Next() {
		doc, err := r.scanDocument(rows)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrInternal, "failed to scan transport document").
				WithContext(ctx)
		}
		docs = append(docs, doc)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrInternal, "failed to iterate transport documents").
			WithContext(ctx)
	}

	return docs, nil
}

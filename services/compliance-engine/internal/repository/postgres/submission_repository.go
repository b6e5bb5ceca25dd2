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

// SubmissionRepository реализация репозитория подач в PostgreSQL
type SubmissionRepository struct {
	pool *pgxpool.Pool
}

// NewSubmissionRepository создает новый экземпляр SubmissionRepository
func NewSubmissionRepository(pool *pgxpool.Pool) repository.SubmissionRepository {
	return &SubmissionRepository{
		pool: pool,
	}
}

const submissionColumns = `id, tenant_id, invoice_id, gateway_tracking_id, status,
		last_checked_at, attempt_count, last_error, cancelled_locally, created_at, updated_at`

// Create создает новую подачу
func (r *SubmissionRepository) Create(ctx context.Context, submission *domain.Submission) error {
	query := `
		INSERT INTO submissions (` + submissionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := r.pool.Exec(ctx, query,
		submission.ID,
		submission.TenantID,
		submission.InvoiceID,
		nullString(submission.GatewayTrackingID),
		submission.Status,
		submission.LastCheckedAt,
		submission.AttemptCount,
		submission.LastError,
		submission.CancelledLocally,
		submission.CreatedAt,
		submission.UpdatedAt,
	)

	if err != nil {
		return errors.Wrap(err, errors.ErrInternal, "failed to create submission").
			WithDetails(fmt.Sprintf("tenant_id: %s, invoice_id: %s", submission.TenantID, submission.InvoiceID)).
			WithContext(ctx)
	}

	return nil
}

// GetByID возвращает подачу по ID
func (r *SubmissionRepository) GetByID(ctx context.Context, id string) (*domain.Submission, error) {
	query := `
		SELECT ` + submissionColumns + `
		FROM submissions
		WHERE id = $1
	`

	submission, err := r.scanSubmission(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, errors.New(errors.ErrNotFound, "submission not found").
				WithDetails(fmt.Sprintf("submission_id: %s", id)).
				WithContext(ctx)
		}
		return nil, errors.Wrap(err, errors.ErrInternal, "failed to get submission").
			WithDetails(fmt.Sprintf("submission_id: %s", id)).
			WithContext(ctx)
	}

	return submission, nil
}

// GetByTrackingID возвращает подачу по идентификатору загрузки шлюза
func (r *SubmissionRepository) GetByTrackingID(ctx context.Context, trackingID string) (*domain.Submission, error) {
	query := `
		SELECT ` + submissionColumns + `
		FROM submissions
		WHERE gateway_tracking_id = $1
	`

	submission, err := r.scanSubmission(r.pool.QueryRow(ctx, query, trackingID))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, errors.New(errors.ErrNotFound, "submission not found").
				WithDetails(fmt.Sprintf("tracking_id: %s", trackingID)).
				WithContext(ctx)
		}
		return nil, errors.Wrap(err, errors.ErrInternal, "failed to get submission by tracking id").
			WithDetails(fmt.Sprintf("tracking_id: %s", trackingID)).
			WithContext(ctx)
	}

	return submission, nil
}

// Update обновляет подачу
func (r *SubmissionRepository) Update(ctx context.Context, submission *domain.Submission) error {
	query := `
		UPDATE submissions
		SET gateway_tracking_id = $2, status = $3, last_checked_at = $4,
			attempt_count = $5, last_error = $6, cancelled_locally = $7, updated_at = $8
		WHERE id = $1
	`

	tag, err := r.pool.Exec(ctx, query,
		submission.ID,
		nullString(submission.GatewayTrackingID),
		submission.Status,
		submission.LastCheckedAt,
		submission.AttemptCount,
		submission.LastError,
		submission.CancelledLocally,
		submission.UpdatedAt,
	)

	if err != nil {
		return errors.Wrap(err, errors.ErrInternal, "failed to update submission").
			WithDetails(fmt.Sprintf("submission_id: %s", submission.ID)).
			WithContext(ctx)
	}

	if tag.RowsAffected() == 0 {
		return errors.New(errors.ErrNotFound, "submission not found").
			WithDetails(fmt.Sprintf("submission_id: %s", submission.ID)).
			WithContext(ctx)
	}

	return nil
}

// List возвращает подачи по фильтру
func (r *SubmissionRepository) List(ctx context.Context, filter domain.SubmissionFilter) ([]*domain.Submission, error) {
	query := `
		SELECT ` + submissionColumns + `
		FROM submissions
		WHERE ($1 = '' OR tenant_id = $1)
			AND ($2 = '' OR invoice_id = $2)
			AND ($3::text IS NULL OR status = $3)
			AND (NOT $4::boolean OR status NOT IN ('ACCEPTED', 'REJECTED', 'ERROR', 'CANCELLED'))
		ORDER BY created_at DESC
		LIMIT $5 OFFSET $6
	`

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}

	var status *string
	if filter.Status != nil {
		s := string(*filter.Status)
		status = &s
	}

	rows, err := r.pool.Query(ctx, query, filter.TenantID, filter.InvoiceID, status, filter.NonTerminal, limit, filter.Offset)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrInternal, "failed to list submissions").
			WithDetails(fmt.Sprintf("tenant_id: %s", filter.TenantID)).
			WithContext(ctx)
	}
	defer rows.Close()

	return r.scanSubmissions(ctx, rows)
}

// ListPollable возвращает подачи арендатора, подлежащие опросу статуса.
// Условие отбора зеркалит доменное правило: есть идентификатор загрузки
// и подача либо нетерминальна, либо отменена локально после подачи.
func (r *SubmissionRepository) ListPollable(ctx context.Context, tenantID string) ([]*domain.Submission, error) {
	query := `
		SELECT ` + submissionColumns + `
		FROM submissions
		WHERE tenant_id = $1
			AND gateway_tracking_id IS NOT NULL
			AND (status IN ('SUBMITTED', 'IN_PROGRESS') OR (status = 'CANCELLED' AND cancelled_locally))
		ORDER BY created_at
	`

	rows, err := r.pool.Query(ctx, query, tenantID)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrInternal, "failed to list pollable submissions").
			WithDetails(fmt.Sprintf("tenant_id: %s", tenantID)).
			WithContext(ctx)
	}
	defer rows.Close()

	return r.scanSubmissions(ctx, rows)
}

// CountNonTerminal возвращает количество подач арендатора в нетерминальных состояниях
func (r *SubmissionRepository) CountNonTerminal(ctx context.Context, tenantID string) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM submissions
		WHERE tenant_id = $1
			AND status NOT IN ('ACCEPTED', 'REJECTED', 'ERROR', 'CANCELLED')
	`

	var count int
	if err := r.pool.QueryRow(ctx, query, tenantID).Scan(&count); err != nil {
		return 0, errors.Wrap(err, errors.ErrInternal, "failed to count non-terminal submissions").
			WithDetails(fmt.Sprintf("tenant_id: %s", tenantID)).
			WithContext(ctx)
	}

	return count, nil
}

func (r *SubmissionRepository) scanSubmission(row pgx.Row) (*domain.Submission, error) {
	var submission domain.Submission
	var trackingID sql.NullString
	var lastChecked sql.NullTime

	err := row.Scan(
		&submission.ID,
		&submission.TenantID,
		&submission.InvoiceID,
		&trackingID,
		&submission.Status,
		&lastChecked,
		&submission.AttemptCount,
		&submission.LastError,
		&submission.CancelledLocally,
		&submission.CreatedAt,
		&submission.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if trackingID.Valid {
		submission.GatewayTrackingID = trackingID.String
	}
	if lastChecked.Valid {
		submission.LastCheckedAt = &lastChecked.Time
	}

	return &submission, nil
}

func (r *SubmissionRepository) scanSubmissions(ctx context.Context, rows pgx.Rows) ([]*domain.Submission, error) {
	var submissions []*domain.Submission
	for rows.Next() {
		submission, err := r.scanSubmission(rows)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrInternal, "failed to scan submission").
				WithContext(ctx)
		}
		submissions = append(submissions, submission)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrInternal, "failed to iterate submissions").
			WithContext(ctx)
	}

	return submissions, nil
}

// nullString возвращает NULL для пустой строки
func nullString(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}

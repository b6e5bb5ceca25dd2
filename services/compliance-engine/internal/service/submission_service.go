package service

import (
	"context"
	"time"

	"EFacturaPlatform/pkg/errors"
	"EFacturaPlatform/pkg/logger"
	"EFacturaPlatform/services/compliance-engine/internal/anaf"
	"EFacturaPlatform/services/compliance-engine/internal/dispatcher"
	"EFacturaPlatform/services/compliance-engine/internal/domain"
	"EFacturaPlatform/services/compliance-engine/internal/repository"
	"EFacturaPlatform/services/compliance-engine/internal/token"
	"EFacturaPlatform/services/compliance-engine/internal/ubl"
)

// SubmissionService определяет интерфейс управления подачами фактур
type SubmissionService interface {
	// Submit проводит фактуру через локальную валидацию и загружает в шлюз
	Submit(ctx context.Context, tenantID string, invoice *ubl.Invoice) (*domain.Submission, error)

	// SubmitBatch последовательно подает несколько фактур
	SubmitBatch(ctx context.Context, tenantID string, invoices []*ubl.Invoice) []BatchResult

	// Get возвращает подачу по ID
	Get(ctx context.Context, id string) (*domain.Submission, error)

	// List возвращает подачи по фильтру
	List(ctx context.Context, filter domain.SubmissionFilter) ([]*domain.Submission, error)

	// Cancel отменяет подачу. После передачи в шлюз отмена локальная:
	// опрос продолжается до вердикта шлюза.
	Cancel(ctx context.Context, id string) (*domain.Submission, error)

	// Retry сбрасывает подачу из ERROR для повторной обработки
	Retry(ctx context.Context, id string) (*domain.Submission, error)
}

// BatchResult результат подачи одной фактуры из пакета
type BatchResult struct {
	InvoiceID    string             `json:"invoiceId"`
	Submission   *domain.Submission `json:"submission,omitempty"`
	ErrorMessage string             `json:"error,omitempty"`
	ErrorFields  []string           `json:"errorFields,omitempty"`
}

// SubmissionServiceImpl реализация SubmissionService
type SubmissionServiceImpl struct {
	submissions    repository.SubmissionRepository
	tenants        repository.TenantRepository
	syncLog        repository.SyncLogRepository
	tokens         token.Manager
	gateway        anaf.Client
	validator      *ubl.Validator
	publisher      dispatcher.Publisher
	logger         logger.Logger
	interCallDelay time.Duration
}

// NewSubmissionService создает новый экземпляр SubmissionService
func NewSubmissionService(
	submissions repository.SubmissionRepository,
	tenants repository.TenantRepository,
	syncLog repository.SyncLogRepository,
	tokens token.Manager,
	gateway anaf.Client,
	validator *ubl.Validator,
	publisher dispatcher.Publisher,
	log logger.Logger,
	interCallDelay time.Duration,
) SubmissionService {
	return &SubmissionServiceImpl{
		submissions:    submissions,
		tenants:        tenants,
		syncLog:        syncLog,
		tokens:         tokens,
		gateway:        gateway,
		validator:      validator,
		publisher:      publisher,
		logger:         log,
		interCallDelay: interCallDelay,
	}
}

// Submit проводит фактуру через локальную валидацию и загружает в шлюз
func (s *SubmissionServiceImpl) Submit(ctx context.Context, tenantID string, invoice *ubl.Invoice) (*domain.Submission, error) {
	submission := domain.NewSubmission(tenantID, invoice.ID)

	// Локальная валидация идет до какого-либо обращения к шлюзу.
	// Невалидная фактура остается в DRAFT с перечнем полей.
	if err := s.validator.Validate(invoice); err != nil {
		submission.LastError = err.Error()
		if createErr := s.submissions.Create(ctx, submission); createErr != nil {
			return nil, createErr
		}
		s.logger.Info("invoice failed local validation",
			logger.CtxField(ctx),
			logger.String("tenant_id", tenantID),
			logger.String("invoice_id", invoice.ID),
		)
		return submission, err
	}

	document, err := ubl.Build(invoice)
	if err != nil {
		return nil, err
	}

	tenant, err := s.tenants.GetByID(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	if err := submission.TransitionTo(domain.SubmissionStatusPending); err != nil {
		return nil, err
	}
	if err := s.submissions.Create(ctx, submission); err != nil {
		return nil, err
	}
	s.publishTransition(ctx, submission, domain.SubmissionStatusDraft, "")

	return s.upload(ctx, tenant, submission, document)
}

// upload выполняет загрузку документа и фиксирует исход
func (s *SubmissionServiceImpl) upload(ctx context.Context, tenant *domain.Tenant, submission *domain.Submission, document []byte) (*domain.Submission, error) {
	accessToken, err := s.tokens.GetValidToken(ctx, tenant.ID)
	if err != nil {
		return s.failUpload(ctx, submission, err)
	}

	submission.RecordAttempt()

	trackingID, err := s.gateway.Upload(ctx, accessToken, tenant.Cif, anaf.StandardUBL, document)
	if err != nil {
		s.appendSyncLog(ctx, tenant.ID, "upload", submission.ID, "error", err.Error())
		return s.failUpload(ctx, submission, err)
	}

	oldStatus := submission.Status
	if err := submission.MarkSubmitted(trackingID); err != nil {
		return nil, err
	}
	if err := s.submissions.Update(ctx, submission); err != nil {
		return nil, err
	}

	s.appendSyncLog(ctx, tenant.ID, "upload", submission.ID, "success", trackingID)
	s.publishTransition(ctx, submission, oldStatus, "")

	s.logger.Info("invoice submitted to gateway",
		logger.CtxField(ctx),
		logger.String("tenant_id", tenant.ID),
		logger.String("submission_id", submission.ID),
		logger.String("tracking_id", trackingID),
	)

	return submission, nil
}

// failUpload переводит подачу в ERROR, сохраняет и публикует событие.
// Исходная ошибка возвращается вызывающему.
func (s *SubmissionServiceImpl) failUpload(ctx context.Context, submission *domain.Submission, cause error) (*domain.Submission, error) {
	oldStatus := submission.Status
	if err := submission.MarkError(cause.Error()); err != nil {
		return nil, err
	}
	if err := s.submissions.Update(ctx, submission); err != nil {
		return nil, err
	}
	s.publishTransition(ctx, submission, oldStatus, cause.Error())

	s.logger.Error("invoice upload failed",
		logger.CtxField(ctx),
		logger.String("submission_id", submission.ID),
		logger.Error(cause),
	)

	return submission, cause
}

// SubmitBatch последовательно подает несколько фактур.
// Между загрузками выдерживается пауза, чтобы не выбирать бюджет шлюза.
func (s *SubmissionServiceImpl) SubmitBatch(ctx context.Context, tenantID string, invoices []*ubl.Invoice) []BatchResult {
	results := make([]BatchResult, 0, len(invoices))

	for i, invoice := range invoices {
		if i > 0 && s.interCallDelay > 0 {
			select {
			case <-time.After(s.interCallDelay):
			case <-ctx.Done():
				results = append(results, BatchResult{InvoiceID: invoice.ID, ErrorMessage: ctx.Err().Error()})
				continue
			}
		}

		submission, err := s.Submit(ctx, tenantID, invoice)
		result := BatchResult{InvoiceID: invoice.ID, Submission: submission}
		if err != nil {
			result.ErrorMessage = err.Error()
			result.ErrorFields = errors.Fields(err)
		}
		results = append(results, result)
	}

	return results
}

// Get возвращает подачу по ID
func (s *SubmissionServiceImpl) Get(ctx context.Context, id string) (*domain.Submission, error) {
	return s.submissions.GetByID(ctx, id)
}

// List возвращает подачи по фильтру
func (s *SubmissionServiceImpl) List(ctx context.Context, filter domain.SubmissionFilter) ([]*domain.Submission, error) {
	return s.submissions.List(ctx, filter)
}

// Cancel отменяет подачу
func (s *SubmissionServiceImpl) Cancel(ctx context.Context, id string) (*domain.Submission, error) {
	submission, err := s.submissions.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	oldStatus := submission.Status
	if err := submission.Cancel(); err != nil {
		return nil, err
	}
	if err := s.submissions.Update(ctx, submission); err != nil {
		return nil, err
	}
	s.publishTransition(ctx, submission, oldStatus, "cancelled by user")

	if submission.IsPollable() {
		s.logger.Info("submission cancelled locally, polling continues until gateway verdict",
			logger.CtxField(ctx),
			logger.String("submission_id", submission.ID),
			logger.String("tracking_id", submission.GatewayTrackingID),
		)
	}

	return submission, nil
}

// Retry сбрасывает подачу из ERROR для повторной обработки
func (s *SubmissionServiceImpl) Retry(ctx context.Context, id string) (*domain.Submission, error) {
	submission, err := s.submissions.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	oldStatus := submission.Status
	if err := submission.ResetForRetry(); err != nil {
		return nil, err
	}
	if err := s.submissions.Update(ctx, submission); err != nil {
		return nil, err
	}
	s.publishTransition(ctx, submission, oldStatus, "manual retry")

	return submission, nil
}

// publishTransition публикует событие смены статуса. Публикация
// best-effort: сбой канала событий не откатывает переход.
func (s *SubmissionServiceImpl) publishTransition(ctx context.Context, submission *domain.Submission, oldStatus domain.SubmissionStatus, reason string) {
	event := domain.NewEvent(domain.EventSubmissionStatusChanged, domain.SubmissionStatusPayload{
		SubmissionID:      submission.ID,
		TenantID:          submission.TenantID,
		InvoiceID:         submission.InvoiceID,
		GatewayTrackingID: submission.GatewayTrackingID,
		OldStatus:         oldStatus,
		NewStatus:         submission.Status,
		Reason:            reason,
	})

	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Warn("failed to publish submission event",
			logger.CtxField(ctx),
			logger.String("submission_id", submission.ID),
			logger.Error(err),
		)
	}
}

func (s *SubmissionServiceImpl) appendSyncLog(ctx context.Context, tenantID, operation, targetID, outcome, details string) {
	entry := domain.NewSyncLogEntry(tenantID, operation, targetID, outcome, details)
	if err := s.syncLog.Append(ctx, entry); err != nil {
		s.logger.Warn("failed to append sync log entry",
			logger.CtxField(ctx),
			logger.String("tenant_id", tenantID),
			logger.Error(err),
		)
	}
}

package domain

import (
	"time"

	"github.com/google/uuid"

	"EFacturaPlatform/pkg/errors"
)

// SubmissionStatus представляет статус подачи фактуры в шлюз
type SubmissionStatus string

const (
	SubmissionStatusDraft      SubmissionStatus = "DRAFT"
	SubmissionStatusPending    SubmissionStatus = "PENDING"
	SubmissionStatusSubmitted  SubmissionStatus = "SUBMITTED"
	SubmissionStatusInProgress SubmissionStatus = "IN_PROGRESS"
	SubmissionStatusAccepted   SubmissionStatus = "ACCEPTED"
	SubmissionStatusRejected   SubmissionStatus = "REJECTED"
	SubmissionStatusError      SubmissionStatus = "ERROR"
	SubmissionStatusCancelled  SubmissionStatus = "CANCELLED"
)

// submissionTransitions задает допустимые переходы статусов подачи.
// Переходы строго монотонны: назад состояние не двигается, отмена
// возможна из любого нетерминального состояния.
var submissionTransitions = map[SubmissionStatus][]SubmissionStatus{
	SubmissionStatusDraft:      {SubmissionStatusPending, SubmissionStatusCancelled},
	SubmissionStatusPending:    {SubmissionStatusSubmitted, SubmissionStatusError, SubmissionStatusCancelled},
	SubmissionStatusSubmitted:  {SubmissionStatusInProgress, SubmissionStatusAccepted, SubmissionStatusRejected, SubmissionStatusError, SubmissionStatusCancelled},
	SubmissionStatusInProgress: {SubmissionStatusAccepted, SubmissionStatusRejected, SubmissionStatusError, SubmissionStatusCancelled},
	SubmissionStatusAccepted:   {},
	SubmissionStatusRejected:   {},
	SubmissionStatusError:      {},
	SubmissionStatusCancelled:  {},
}

// Submission представляет путь одной фактуры через шлюз ANAF.
// Записи никогда не удаляются: исправленная повторная подача создает
// новую Submission со ссылкой на ту же фактуру.
type Submission struct {
	ID                string           `json:"id" db:"id"`
	TenantID          string           `json:"tenant_id" db:"tenant_id"`
	InvoiceID         string           `json:"invoice_id" db:"invoice_id"`
	GatewayTrackingID string           `json:"gateway_tracking_id,omitempty" db:"gateway_tracking_id"`
	Status            SubmissionStatus `json:"status" db:"status"`
	LastCheckedAt     *time.Time       `json:"last_checked_at,omitempty" db:"last_checked_at"`
	AttemptCount      int              `json:"attempt_count" db:"attempt_count"`
	LastError         string           `json:"last_error,omitempty" db:"last_error"`
	CancelledLocally  bool             `json:"cancelled_locally" db:"cancelled_locally"`
	CreatedAt         time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time        `json:"updated_at" db:"updated_at"`
}

// NewSubmission создает новую подачу в состоянии DRAFT
func NewSubmission(tenantID, invoiceID string) *Submission {
	now := time.Now()
	return &Submission{
		ID:        uuid.NewString(),
		TenantID:  tenantID,
		InvoiceID: invoiceID,
		Status:    SubmissionStatusDraft,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// IsTerminal проверяет, достигла ли подача терминального состояния
func (s *Submission) IsTerminal() bool {
	switch s.Status {
	case SubmissionStatusAccepted, SubmissionStatusRejected, SubmissionStatusError, SubmissionStatusCancelled:
		return true
	default:
		return false
	}
}

// CanTransitionTo проверяет допустимость перехода в указанный статус
func (s *Submission) CanTransitionTo(to SubmissionStatus) bool {
	for _, allowed := range submissionTransitions[s.Status] {
		if allowed == to {
			return true
		}
	}
	return false
}

// TransitionTo переводит подачу в новый статус. Недопустимый переход
// возвращает ошибку и не меняет состояние.
func (s *Submission) TransitionTo(to SubmissionStatus) error {
	if !s.CanTransitionTo(to) {
		return errors.New(errors.ErrInvalidTransition, "submission transition not allowed").
			WithDetails(string(s.Status) + " -> " + string(to))
	}
	s.Status = to
	s.UpdatedAt = time.Now()
	return nil
}

// MarkSubmitted фиксирует принятие загрузки шлюзом: tracking id
// назначается одновременно с переходом в SUBMITTED и больше не меняется.
func (s *Submission) MarkSubmitted(trackingID string) error {
	if err := s.TransitionTo(SubmissionStatusSubmitted); err != nil {
		return err
	}
	s.GatewayTrackingID = trackingID
	return nil
}

// MarkError переводит подачу в ERROR с сохранением причины.
// Tracking id не очищается: повторный опрос после ручного retry
// использует тот же идентификатор.
func (s *Submission) MarkError(reason string) error {
	if err := s.TransitionTo(SubmissionStatusError); err != nil {
		return err
	}
	s.LastError = reason
	return nil
}

// Cancel отменяет подачу локально. Начиная с SUBMITTED отмена носит
// рекомендательный характер: шлюз остается источником истины, опрос
// продолжается до терминального вердикта шлюза.
func (s *Submission) Cancel() error {
	if err := s.TransitionTo(SubmissionStatusCancelled); err != nil {
		return err
	}
	s.CancelledLocally = true
	return nil
}

// ResetForRetry сбрасывает счетчик попыток для ручного повтора после ERROR.
// Подача с назначенным tracking id возвращается к опросу, подача без
// него возвращается в DRAFT для повторной отправки.
func (s *Submission) ResetForRetry() error {
	if s.Status != SubmissionStatusError {
		return errors.New(errors.ErrInvalidTransition, "retry is only allowed from ERROR state").
			WithDetails(string(s.Status))
	}
	s.AttemptCount = 0
	s.LastError = ""
	if s.GatewayTrackingID != "" {
		s.Status = SubmissionStatusInProgress
	} else {
		s.Status = SubmissionStatusDraft
	}
	s.UpdatedAt = time.Now()
	return nil
}

// RecordAttempt увеличивает счетчик обращений к шлюзу
func (s *Submission) RecordAttempt() {
	s.AttemptCount++
	now := time.Now()
	s.LastCheckedAt = &now
	s.UpdatedAt = now
}

// IsPollable проверяет, подлежит ли подача опросу статуса. Локально
// отмененные подачи с tracking id продолжают опрашиваться до
// терминального состояния шлюза.
func (s *Submission) IsPollable() bool {
	if s.GatewayTrackingID == "" {
		return false
	}
	switch s.Status {
	case SubmissionStatusSubmitted, SubmissionStatusInProgress:
		return true
	case SubmissionStatusCancelled:
		return s.CancelledLocally
	default:
		return false
	}
}

// Reconcile применяет терминальный вердикт шлюза к локально отмененной
// подаче. Событие при этом не генерируется: пользователь уже отказался
// от подачи, запись обновляется только для аудита.
func (s *Submission) Reconcile(verdict SubmissionStatus) {
	s.Status = verdict
	s.CancelledLocally = false
	s.UpdatedAt = time.Now()
}

// SubmissionFilter представляет фильтры для поиска подач
type SubmissionFilter struct {
	TenantID    string            `json:"tenant_id,omitempty"`
	InvoiceID   string            `json:"invoice_id,omitempty"`
	Status      *SubmissionStatus `json:"status,omitempty"`
	NonTerminal bool              `json:"non_terminal,omitempty"`
	Limit       int               `json:"limit,omitempty"`
	Offset      int               `json:"offset,omitempty"`
}

// IsValidSubmissionStatus проверяет валидность статуса подачи
func IsValidSubmissionStatus(status SubmissionStatus) bool {
	_, ok := submissionTransitions[status]
	return ok
}

package domain

import (
	"time"

	"github.com/google/uuid"

	"EFacturaPlatform/pkg/errors"
)

// TransportStatus представляет статус транспортной декларации e-Transport
type TransportStatus string

const (
	TransportStatusDraft     TransportStatus = "DRAFT"
	TransportStatusValidated TransportStatus = "VALIDATED"
	TransportStatusSubmitted TransportStatus = "SUBMITTED"
	TransportStatusApproved  TransportStatus = "APPROVED"
	TransportStatusRejected  TransportStatus = "REJECTED"
	TransportStatusInTransit TransportStatus = "IN_TRANSIT"
	TransportStatusCompleted TransportStatus = "COMPLETED"
	TransportStatusCancelled TransportStatus = "CANCELLED"
)

// transportTransitions задает допустимые переходы транспортной декларации.
// Отмена возможна только до начала физической перевозки: движущийся
// транспорт локально не отменяется, действует только процедура
// корректировки самого шлюза.
var transportTransitions = map[TransportStatus][]TransportStatus{
	TransportStatusDraft:     {TransportStatusValidated, TransportStatusCancelled},
	TransportStatusValidated: {TransportStatusSubmitted, TransportStatusCancelled},
	TransportStatusSubmitted: {TransportStatusApproved, TransportStatusRejected, TransportStatusCancelled},
	TransportStatusApproved:  {TransportStatusInTransit, TransportStatusCancelled},
	TransportStatusInTransit: {TransportStatusCompleted},
	TransportStatusCompleted: {},
	TransportStatusRejected:  {},
	TransportStatusCancelled: {},
}

// TransportDocument представляет транспортную декларацию B2B перевозки
type TransportDocument struct {
	ID                string          `json:"id" db:"id"`
	TenantID          string          `json:"tenant_id" db:"tenant_id"`
	GatewayTrackingID string          `json:"gateway_tracking_id,omitempty" db:"gateway_tracking_id"`
	GatewayUitCode    string          `json:"gateway_uit_code,omitempty" db:"gateway_uit_code"`
	Status            TransportStatus `json:"status" db:"status"`
	VehiclePlate      string          `json:"vehicle_plate" db:"vehicle_plate"`
	RouteFrom         string          `json:"route_from" db:"route_from"`
	RouteTo           string          `json:"route_to" db:"route_to"`
	CarrierCui        string          `json:"carrier_cui" db:"carrier_cui"`
	DriverCnp         string          `json:"driver_cnp,omitempty" db:"driver_cnp"`
	LastCheckedAt     *time.Time      `json:"last_checked_at,omitempty" db:"last_checked_at"`
	AttemptCount      int             `json:"attempt_count" db:"attempt_count"`
	LastError         string          `json:"last_error,omitempty" db:"last_error"`
	CreatedAt         time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at" db:"updated_at"`
}

// NewTransportDocument создает новую транспортную декларацию в состоянии DRAFT
func NewTransportDocument(tenantID, vehiclePlate, routeFrom, routeTo, carrierCui string) *TransportDocument {
	now := time.Now()
	return &TransportDocument{
		ID:           uuid.NewString(),
		TenantID:     tenantID,
		Status:       TransportStatusDraft,
		VehiclePlate: vehiclePlate,
		RouteFrom:    routeFrom,
		RouteTo:      routeTo,
		CarrierCui:   carrierCui,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// IsTerminal проверяет, достигла ли декларация терминального состояния
func (t *TransportDocument) IsTerminal() bool {
	switch t.Status {
	case TransportStatusCompleted, TransportStatusRejected, TransportStatusCancelled:
		return true
	default:
		return false
	}
}

// CanTransitionTo проверяет допустимость перехода в указанный статус
func (t *TransportDocument) CanTransitionTo(to TransportStatus) bool {
	for _, allowed := range transportTransitions[t.Status] {
		if allowed == to {
			return true
		}
	}
	return false
}

// TransitionTo переводит декларацию в новый статус. Недопустимый переход
// возвращает ошибку и не меняет состояние.
func (t *TransportDocument) TransitionTo(to TransportStatus) error {
	if !t.CanTransitionTo(to) {
		return errors.New(errors.ErrInvalidTransition, "transport transition not allowed").
			WithDetails(string(t.Status) + " -> " + string(to))
	}
	t.Status = to
	t.UpdatedAt = time.Now()
	return nil
}

// MarkSubmitted фиксирует принятие загрузки шлюзом: tracking id
// назначается одновременно с переходом в SUBMITTED
func (t *TransportDocument) MarkSubmitted(trackingID string) error {
	if err := t.TransitionTo(TransportStatusSubmitted); err != nil {
		return err
	}
	t.GatewayTrackingID = trackingID
	return nil
}

// MarkApproved фиксирует одобрение шлюзом с назначением кода UIT
func (t *TransportDocument) MarkApproved(uitCode string) error {
	if err := t.TransitionTo(TransportStatusApproved); err != nil {
		return err
	}
	t.GatewayUitCode = uitCode
	return nil
}

// RecordAttempt увеличивает счетчик обращений к шлюзу
func (t *TransportDocument) RecordAttempt() {
	t.AttemptCount++
	now := time.Now()
	t.LastCheckedAt = &now
	t.UpdatedAt = now
}

// IsPollable проверяет, подлежит ли декларация опросу статуса
func (t *TransportDocument) IsPollable() bool {
	return t.Status == TransportStatusSubmitted && t.GatewayTrackingID != ""
}

// TransportFilter представляет фильтры для поиска транспортных деклараций
type TransportFilter struct {
	TenantID string           `json:"tenant_id,omitempty"`
	Status   *TransportStatus `json:"status,omitempty"`
	Limit    int              `json:"limit,omitempty"`
	Offset   int              `json:"offset,omitempty"`
}

// IsValidTransportStatus проверяет валидность статуса транспортной декларации
func IsValidTransportStatus(status TransportStatus) bool {
	_, ok := transportTransitions[status]
	return ok
}

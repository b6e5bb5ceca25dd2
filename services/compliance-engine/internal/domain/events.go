package domain

import (
	"time"

	"github.com/google/uuid"
)

// EventType представляет тип доменного события
type EventType string

const (
	EventSubmissionStatusChanged EventType = "SUBMISSION_STATUS_CHANGED"
	EventTransportStatusChanged  EventType = "TRANSPORT_STATUS_CHANGED"
	EventGatewayMessageReceived  EventType = "GATEWAY_MESSAGE_RECEIVED"
	EventDeadlineDueSoon         EventType = "DEADLINE_DUE_SOON"
)

// Event представляет доменное событие, рассылаемое подписчикам.
// Push-канал доставляет события best-effort: отключившийся подписчик
// восстанавливает актуальное состояние через pull-эндпоинты.
type Event struct {
	Type          EventType   `json:"type"`
	Payload       interface{} `json:"payload"`
	Timestamp     time.Time   `json:"timestamp"`
	CorrelationID string      `json:"correlationId"`
}

// NewEvent создает новое доменное событие с назначенным correlation id
func NewEvent(eventType EventType, payload interface{}) *Event {
	return &Event{
		Type:          eventType,
		Payload:       payload,
		Timestamp:     time.Now(),
		CorrelationID: uuid.NewString(),
	}
}

// SubmissionStatusPayload содержимое события смены статуса подачи
type SubmissionStatusPayload struct {
	SubmissionID      string           `json:"submissionId"`
	TenantID          string           `json:"tenantId"`
	InvoiceID         string           `json:"invoiceId"`
	GatewayTrackingID string           `json:"gatewayTrackingId,omitempty"`
	OldStatus         SubmissionStatus `json:"oldStatus"`
	NewStatus         SubmissionStatus `json:"newStatus"`
	Reason            string           `json:"reason,omitempty"`
}

// TransportStatusPayload содержимое события смены статуса транспортной декларации
type TransportStatusPayload struct {
	TransportID    string          `json:"transportId"`
	TenantID       string          `json:"tenantId"`
	GatewayUitCode string          `json:"gatewayUitCode,omitempty"`
	OldStatus      TransportStatus `json:"oldStatus"`
	NewStatus      TransportStatus `json:"newStatus"`
	Reason         string          `json:"reason,omitempty"`
}

// GatewayMessagePayload содержимое события нового сообщения шлюза
type GatewayMessagePayload struct {
	TenantID          string      `json:"tenantId"`
	MessageID         string      `json:"messageId"`
	MessageType       MessageType `json:"messageType"`
	RelatedTrackingID string      `json:"relatedTrackingId,omitempty"`
}

// DeadlinePayload содержимое события приближающегося срока отчетности
type DeadlinePayload struct {
	TenantID  string       `json:"tenantId"`
	Kind      DeadlineKind `json:"kind"`
	DueAt     time.Time    `json:"dueAt"`
	DaysUntil int          `json:"daysUntil"`
}

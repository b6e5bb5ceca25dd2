package domain

import (
	"time"
)

// MessageType представляет тип сообщения из почтового ящика шлюза
type MessageType string

const (
	MessageTypeSuccess MessageType = "SUCCESS"
	MessageTypeWarning MessageType = "WARNING"
	MessageTypeError   MessageType = "ERROR"
	MessageTypeInfo    MessageType = "INFO"
)

// GatewayMessage представляет сообщение, полученное из почтового ящика
// шлюза. Дедупликация выполняется по messageId, назначенному шлюзом;
// записи никогда не удаляются и хранятся для аудита.
type GatewayMessage struct {
	ID                string      `json:"id" db:"id"`
	TenantID          string      `json:"tenant_id" db:"tenant_id"`
	MessageID         string      `json:"message_id" db:"message_id"`
	Type              MessageType `json:"type" db:"type"`
	RelatedTrackingID string      `json:"related_tracking_id,omitempty" db:"related_tracking_id"`
	Details           string      `json:"details,omitempty" db:"details"`
	Read              bool        `json:"read" db:"read"`
	ReceivedAt        time.Time   `json:"received_at" db:"received_at"`
	CreatedAt         time.Time   `json:"created_at" db:"created_at"`
}

// MarkRead помечает сообщение прочитанным
func (m *GatewayMessage) MarkRead() {
	m.Read = true
}

// MessageFilter представляет фильтры для поиска сообщений
type MessageFilter struct {
	TenantID string `json:"tenant_id,omitempty"`
	Read     *bool  `json:"read,omitempty"`
	Limit    int    `json:"limit,omitempty"`
	Offset   int    `json:"offset,omitempty"`
}

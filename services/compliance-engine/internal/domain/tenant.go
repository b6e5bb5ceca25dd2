package domain

import (
	"time"

	"github.com/google/uuid"
)

// Tenant представляет арендатора платформы. Cif — фискальный код
// компании, от имени которой выполняются обращения к шлюзу.
type Tenant struct {
	ID        string    `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Cif       string    `json:"cif" db:"cif"`
	Active    bool      `json:"active" db:"active"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// NewTenant создает нового активного арендатора
func NewTenant(name, cif string) *Tenant {
	now := time.Now()
	return &Tenant{
		ID:        uuid.NewString(),
		Name:      name,
		Cif:       cif,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// SyncLogEntry запись журнала обменов со шлюзом
type SyncLogEntry struct {
	ID        string    `json:"id" db:"id"`
	TenantID  string    `json:"tenant_id" db:"tenant_id"`
	Operation string    `json:"operation" db:"operation"`
	TargetID  string    `json:"target_id,omitempty" db:"target_id"`
	Outcome   string    `json:"outcome" db:"outcome"`
	Details   string    `json:"details,omitempty" db:"details"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// NewSyncLogEntry создает новую запись журнала обменов
func NewSyncLogEntry(tenantID, operation, targetID, outcome, details string) *SyncLogEntry {
	return &SyncLogEntry{
		ID:        uuid.NewString(),
		TenantID:  tenantID,
		Operation: operation,
		TargetID:  targetID,
		Outcome:   outcome,
		Details:   details,
		CreatedAt: time.Now(),
	}
}

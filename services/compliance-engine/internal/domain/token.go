package domain

import (
	"time"
)

// TokenStatus представляет статус подключения тенанта к ANAF SPV
type TokenStatus string

const (
	TokenStatusPending TokenStatus = "PENDING"
	TokenStatusActive  TokenStatus = "ACTIVE"
	TokenStatusExpired TokenStatus = "EXPIRED"
	TokenStatusRevoked TokenStatus = "REVOKED"
	TokenStatusError   TokenStatus = "ERROR"
)

// OAuthToken представляет пару OAuth2 токенов тенанта. Владеет токеном
// исключительно менеджер токенов; за его пределы токен не выходит.
// При неудачном обновлении refresh token сохраняется: ручная повторная
// авторизация перезапишет его, а до этого retry может использовать
// еще действующий refresh token.
type OAuthToken struct {
	TenantID     string      `json:"tenant_id" db:"tenant_id"`
	AccessToken  string      `json:"-" db:"access_token"`
	RefreshToken string      `json:"-" db:"refresh_token"`
	ExpiresAt    time.Time   `json:"expires_at" db:"expires_at"`
	Scope        string      `json:"scope" db:"scope"`
	Status       TokenStatus `json:"status" db:"status"`
	UpdatedAt    time.Time   `json:"updated_at" db:"updated_at"`
}

// IsValidFor проверяет, действителен ли access token еще как минимум
// на указанный запас времени от текущего момента
func (t *OAuthToken) IsValidFor(margin time.Duration) bool {
	if t.AccessToken == "" {
		return false
	}
	return time.Now().Add(margin).Before(t.ExpiresAt)
}

// SpvConnection представляет состояние подключения тенанта для дашборда
type SpvConnection struct {
	TenantID  string      `json:"tenant_id"`
	Status    TokenStatus `json:"status"`
	ExpiresAt time.Time   `json:"expires_at,omitempty"`
	Scope     string      `json:"scope,omitempty"`
	UpdatedAt time.Time   `json:"updated_at"`
}

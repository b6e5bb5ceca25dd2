package token

import (
	"context"
	"sync"
	"time"

	"EFacturaPlatform/pkg/errors"
	"EFacturaPlatform/pkg/logger"
	"EFacturaPlatform/pkg/metrics"
	"EFacturaPlatform/services/compliance-engine/internal/anaf"
	"EFacturaPlatform/services/compliance-engine/internal/domain"
	"EFacturaPlatform/services/compliance-engine/internal/repository"
)

// Manager выдает действующие access токены для обращений к шлюзу.
// Обновление токена арендатора сериализуется: пока один вызов выполняет
// обмен с сервером авторизации, остальные ждут на мьютексе арендатора
// и после пробуждения перечитывают сохраненный результат.
type Manager interface {
	// GetValidToken возвращает действующий access token арендатора,
	// при необходимости обновляя его
	GetValidToken(ctx context.Context, tenantID string) (string, error)

	// BeginAuthorization начинает авторизацию арендатора в SPV и
	// возвращает URL для перенаправления пользователя
	BeginAuthorization(ctx context.Context, tenantID string) (string, error)

	// CompleteAuthorization завершает авторизацию по коду из callback
	CompleteAuthorization(ctx context.Context, state, code string) (string, error)

	// Connection возвращает состояние подключения арендатора к SPV
	Connection(ctx context.Context, tenantID string) (*domain.SpvConnection, error)
}

// стандартное время жизни state при авторизации
const oauthStateTTL = 10 * time.Minute

// TokenManager реализация Manager
type TokenManager struct {
	tokens       repository.TokenRepository
	states       repository.OAuthStateRepository
	oauth        anaf.OAuthClient
	logger       logger.Logger
	metrics      *metrics.Metrics
	safetyMargin time.Duration

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewTokenManager создает новый экземпляр TokenManager
func NewTokenManager(
	tokens repository.TokenRepository,
	states repository.OAuthStateRepository,
	oauth anaf.OAuthClient,
	safetyMargin time.Duration,
	log logger.Logger,
	m *metrics.Metrics,
) *TokenManager {
	return &TokenManager{
		tokens:       tokens,
		states:       states,
		oauth:        oauth,
		logger:       log,
		metrics:      m,
		safetyMargin: safetyMargin,
		locks:        make(map[string]*sync.Mutex),
	}
}

// GetValidToken возвращает действующий access token арендатора
func (m *TokenManager) GetValidToken(ctx context.Context, tenantID string) (string, error) {
	token, err := m.tokens.GetByTenantID(ctx, tenantID)
	if err != nil {
		return "", err
	}

	if token.IsValidFor(m.safetyMargin) {
		return token.AccessToken, nil
	}

	lock := m.tenantLock(tenantID)
	lock.Lock()
	defer lock.Unlock()

	// Пока мы ждали мьютекс, другой вызов мог уже обновить токен
	token, err = m.tokens.GetByTenantID(ctx, tenantID)
	if err != nil {
		return "", err
	}
	if token.IsValidFor(m.safetyMargin) {
		return token.AccessToken, nil
	}

	// Отзыв согласия уже зафиксирован предыдущей попыткой: не ходим
	// на сервер авторизации повторно, все ожидающие получают тот же отказ
	if token.Status == domain.TokenStatusRevoked {
		return "", errors.New(errors.ErrReauthorizationRequired, "spv consent revoked, tenant must re-authorize").
			WithContext(ctx)
	}

	return m.refresh(ctx, token)
}

// refresh выполняет обмен refresh токена и сохраняет результат до возврата
func (m *TokenManager) refresh(ctx context.Context, token *domain.OAuthToken) (string, error) {
	response, err := m.oauth.Refresh(ctx, token.RefreshToken)
	if err != nil {
		if errors.IsCode(err, errors.ErrReauthorizationRequired) {
			m.observeRefresh("reauthorization_required")
			// Refresh token сохраняется: повторная авторизация пользователя
			// может его реактивировать, а диагностика требует исходного значения
			if statusErr := m.tokens.UpdateStatus(ctx, token.TenantID, domain.TokenStatusRevoked); statusErr != nil {
				m.logger.Error("failed to persist revoked token status",
					logger.CtxField(ctx),
					logger.String("tenant_id", token.TenantID),
					logger.Error(statusErr),
				)
			}
			m.logger.Warn("spv consent revoked, re-authorization required",
				logger.CtxField(ctx),
				logger.String("tenant_id", token.TenantID),
			)
			return "", err
		}

		m.observeRefresh("transient_error")
		m.logger.Error("token refresh failed",
			logger.CtxField(ctx),
			logger.String("tenant_id", token.TenantID),
			logger.Error(err),
		)
		return "", err
	}

	refreshToken := response.RefreshToken
	if refreshToken == "" {
		// Сервер авторизации может не ротировать refresh token
		refreshToken = token.RefreshToken
	}

	updated := &domain.OAuthToken{
		TenantID:     token.TenantID,
		AccessToken:  response.AccessToken,
		RefreshToken: refreshToken,
		ExpiresAt:    time.Now().Add(time.Duration(response.ExpiresIn) * time.Second),
		Scope:        response.Scope,
		Status:       domain.TokenStatusActive,
		UpdatedAt:    time.Now(),
	}

	// Сохранение строго до возврата токена: выдать токен, которого нет
	// в хранилище, означает потерять его при падении процесса
	if err := m.tokens.Save(ctx, updated); err != nil {
		m.observeRefresh("persist_error")
		return "", err
	}

	m.observeRefresh("success")
	m.logger.Info("access token refreshed",
		logger.CtxField(ctx),
		logger.String("tenant_id", token.TenantID),
		logger.Time("expires_at", updated.ExpiresAt),
	)

	return updated.AccessToken, nil
}

// BeginAuthorization начинает авторизацию арендатора в SPV
func (m *TokenManager) BeginAuthorization(ctx context.Context, tenantID string) (string, error) {
	state, err := anaf.NewState()
	if err != nil {
		return "", err
	}

	if err := m.states.Save(ctx, state, tenantID, oauthStateTTL); err != nil {
		return "", err
	}

	m.logger.Info("spv authorization started",
		logger.CtxField(ctx),
		logger.String("tenant_id", tenantID),
	)

	return m.oauth.AuthorizeURL(state), nil
}

// CompleteAuthorization завершает авторизацию по коду из callback.
// Возвращает арендатора, которому принадлежал state.
func (m *TokenManager) CompleteAuthorization(ctx context.Context, state, code string) (string, error) {
	tenantID, err := m.states.Consume(ctx, state)
	if err != nil {
		return "", err
	}

	response, err := m.oauth.Exchange(ctx, code)
	if err != nil {
		return "", err
	}

	token := &domain.OAuthToken{
		TenantID:     tenantID,
		AccessToken:  response.AccessToken,
		RefreshToken: response.RefreshToken,
		ExpiresAt:    time.Now().Add(time.Duration(response.ExpiresIn) * time.Second),
		Scope:        response.Scope,
		Status:       domain.TokenStatusActive,
		UpdatedAt:    time.Now(),
	}

	if err := m.tokens.Save(ctx, token); err != nil {
		return "", err
	}

	m.logger.Info("spv authorization completed",
		logger.CtxField(ctx),
		logger.String("tenant_id", tenantID),
		logger.Time("expires_at", token.ExpiresAt),
	)

	return tenantID, nil
}

// Connection возвращает состояние подключения арендатора к SPV
func (m *TokenManager) Connection(ctx context.Context, tenantID string) (*domain.SpvConnection, error) {
	token, err := m.tokens.GetByTenantID(ctx, tenantID)
	if err != nil {
		if errors.IsCode(err, errors.ErrNotFound) {
			return &domain.SpvConnection{
				TenantID: tenantID,
				Status:   domain.TokenStatusPending,
			}, nil
		}
		return nil, err
	}

	status := token.Status
	if status == domain.TokenStatusActive && !token.IsValidFor(0) {
		status = domain.TokenStatusExpired
	}

	return &domain.SpvConnection{
		TenantID:  tenantID,
		Status:    status,
		ExpiresAt: token.ExpiresAt,
		Scope:     token.Scope,
		UpdatedAt: token.UpdatedAt,
	}, nil
}

func (m *TokenManager) tenantLock(tenantID string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()

	lock, ok := m.locks[tenantID]
	if !ok {
		lock = &sync.Mutex{}
		m.locks[tenantID] = lock
	}
	return lock
}

func (m *TokenManager) observeRefresh(outcome string) {
	if m.metrics != nil {
		m.metrics.ObserveTokenRefresh(outcome)
	}
}

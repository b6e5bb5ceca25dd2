package token

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"EFacturaPlatform/pkg/errors"
	"EFacturaPlatform/pkg/logger"
	"EFacturaPlatform/services/compliance-engine/internal/anaf"
	"EFacturaPlatform/services/compliance-engine/internal/domain"
)

// fakeTokenStore потокобезопасное хранилище токенов в памяти
type fakeTokenStore struct {
	mu     sync.Mutex
	tokens map[string]domain.OAuthToken
	saves  int
}

func newFakeTokenStore() *fakeTokenStore {
	return &fakeTokenStore{tokens: make(map[string]domain.OAuthToken)}
}

func (s *fakeTokenStore) Save(ctx context.Context, token *domain.OAuthToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[token.TenantID] = *token
	s.saves++
	return nil
}

func (s *fakeTokenStore) GetByTenantID(ctx context.Context, tenantID string) (*domain.OAuthToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	token, ok := s.tokens[tenantID]
	if !ok {
		return nil, errors.New(errors.ErrNotFound, "oauth token not found")
	}
	copied := token
	return &copied, nil
}

func (s *fakeTokenStore) UpdateStatus(ctx context.Context, tenantID string, status domain.TokenStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	token, ok := s.tokens[tenantID]
	if !ok {
		return errors.New(errors.ErrNotFound, "oauth token not found")
	}
	token.Status = status
	s.tokens[tenantID] = token
	return nil
}

func (s *fakeTokenStore) ListActiveTenantIDs(ctx context.Context) ([]string, error) {
	return nil, nil
}

func (s *fakeTokenStore) saveCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}

func (s *fakeTokenStore) stored(tenantID string) domain.OAuthToken {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tokens[tenantID]
}

// fakeOAuth считает обращения к серверу авторизации
type fakeOAuth struct {
	refreshCalls int64
	refreshErr   error
	response     *anaf.TokenResponse
}

func (f *fakeOAuth) AuthorizeURL(state string) string { return "https://auth.example.com?state=" + state }

func (f *fakeOAuth) Exchange(ctx context.Context, code string) (*anaf.TokenResponse, error) {
	return f.response, f.refreshErr
}

func (f *fakeOAuth) Refresh(ctx context.Context, refreshToken string) (*anaf.TokenResponse, error) {
	atomic.AddInt64(&f.refreshCalls, 1)
	if f.refreshErr != nil {
		return nil, f.refreshErr
	}
	return f.response, nil
}

// fakeStateStore хранилище oauth state в памяти
type fakeStateStore struct {
	mu     sync.Mutex
	states map[string]string
}

func newFakeStateStore() *fakeStateStore {
	return &fakeStateStore{states: make(map[string]string)}
}

func (s *fakeStateStore) Save(ctx context.Context, state, tenantID string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[state] = tenantID
	return nil
}

func (s *fakeStateStore) Consume(ctx context.Context, state string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tenantID, ok := s.states[state]
	if !ok {
		return "", errors.New(errors.ErrUnauthorized, "oauth state is unknown or expired")
	}
	delete(s.states, state)
	return tenantID, nil
}

func newTestManager(t *testing.T, store *fakeTokenStore, oauth *fakeOAuth) *TokenManager {
	t.Helper()

	log, err := logger.NewLogger("development", "error", "token-test")
	require.NoError(t, err)

	return NewTokenManager(store, newFakeStateStore(), oauth, 60*time.Second, log, nil)
}

func seedToken(store *fakeTokenStore, tenantID string, expiresIn time.Duration) {
	store.tokens[tenantID] = domain.OAuthToken{
		TenantID:     tenantID,
		AccessToken:  "current-access",
		RefreshToken: "current-refresh",
		ExpiresAt:    time.Now().Add(expiresIn),
		Status:       domain.TokenStatusActive,
	}
}

func TestGetValidToken_ReusesValidToken(t *testing.T) {
	store := newFakeTokenStore()
	seedToken(store, "tenant-1", time.Hour)
	oauth := &fakeOAuth{}

	manager := newTestManager(t, store, oauth)

	accessToken, err := manager.GetValidToken(context.Background(), "tenant-1")
	require.NoError(t, err)
	assert.Equal(t, "current-access", accessToken)
	assert.EqualValues(t, 0, atomic.LoadInt64(&oauth.refreshCalls))
}

func TestGetValidToken_ConcurrentReuseWithoutRefresh(t *testing.T) {
	store := newFakeTokenStore()
	seedToken(store, "tenant-1", time.Hour)
	oauth := &fakeOAuth{}

	manager := newTestManager(t, store, oauth)

	const workers = 10
	var wg sync.WaitGroup
	results := make([]string, workers)
	errs := make([]error, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = manager.GetValidToken(context.Background(), "tenant-1")
		}(i)
	}
	wg.Wait()

	for i := 0; i < workers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, "current-access", results[i])
	}

	// Живой токен отдается без единого обращения к серверу авторизации
	assert.EqualValues(t, 0, atomic.LoadInt64(&oauth.refreshCalls))
	assert.Equal(t, 0, store.saveCount())
}

func TestGetValidToken_RefreshesWithinSafetyMargin(t *testing.T) {
	store := newFakeTokenStore()
	// Токен формально жив, но истекает раньше запаса в 60 секунд
	seedToken(store, "tenant-1", 30*time.Second)
	oauth := &fakeOAuth{response: &anaf.TokenResponse{
		AccessToken:  "new-access",
		RefreshToken: "new-refresh",
		ExpiresIn:    3600,
	}}

	manager := newTestManager(t, store, oauth)

	accessToken, err := manager.GetValidToken(context.Background(), "tenant-1")
	require.NoError(t, err)
	assert.Equal(t, "new-access", accessToken)
	assert.EqualValues(t, 1, atomic.LoadInt64(&oauth.refreshCalls))

	// Результат обновления сохранен до возврата
	stored := store.stored("tenant-1")
	assert.Equal(t, "new-access", stored.AccessToken)
	assert.Equal(t, "new-refresh", stored.RefreshToken)
	assert.Equal(t, domain.TokenStatusActive, stored.Status)
	assert.Equal(t, 1, store.saveCount())
}

func TestGetValidToken_SerializesConcurrentRefresh(t *testing.T) {
	store := newFakeTokenStore()
	seedToken(store, "tenant-1", -time.Minute)
	oauth := &fakeOAuth{response: &anaf.TokenResponse{
		AccessToken:  "new-access",
		RefreshToken: "new-refresh",
		ExpiresIn:    3600,
	}}

	manager := newTestManager(t, store, oauth)

	const workers = 20
	var wg sync.WaitGroup
	results := make([]string, workers)
	errs := make([]error, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = manager.GetValidToken(context.Background(), "tenant-1")
		}(i)
	}
	wg.Wait()

	for i := 0; i < workers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, "new-access", results[i])
	}

	// Обновление выполнилось ровно один раз, остальные переиспользовали результат
	assert.EqualValues(t, 1, atomic.LoadInt64(&oauth.refreshCalls))
}

func TestGetValidToken_ReauthorizationRequired(t *testing.T) {
	store := newFakeTokenStore()
	seedToken(store, "tenant-1", -time.Minute)
	oauth := &fakeOAuth{refreshErr: errors.New(errors.ErrReauthorizationRequired, "authorization server refused the grant")}

	manager := newTestManager(t, store, oauth)

	_, err := manager.GetValidToken(context.Background(), "tenant-1")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrReauthorizationRequired))

	// Refresh token не затирается, статус фиксирует отзыв согласия
	stored := store.stored("tenant-1")
	assert.Equal(t, "current-refresh", stored.RefreshToken)
	assert.Equal(t, domain.TokenStatusRevoked, stored.Status)

	// Повторный вызов не ходит на сервер авторизации
	_, err = manager.GetValidToken(context.Background(), "tenant-1")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrReauthorizationRequired))
	assert.EqualValues(t, 1, atomic.LoadInt64(&oauth.refreshCalls))
}

func TestGetValidToken_TransientErrorKeepsToken(t *testing.T) {
	store := newFakeTokenStore()
	seedToken(store, "tenant-1", -time.Minute)
	oauth := &fakeOAuth{refreshErr: errors.New(errors.ErrAuthTransient, "authorization server unreachable")}

	manager := newTestManager(t, store, oauth)

	_, err := manager.GetValidToken(context.Background(), "tenant-1")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrAuthTransient))

	// Временный сбой не меняет сохраненное состояние
	stored := store.stored("tenant-1")
	assert.Equal(t, "current-refresh", stored.RefreshToken)
	assert.Equal(t, domain.TokenStatusActive, stored.Status)
}

func TestGetValidToken_KeepsRefreshTokenWhenNotRotated(t *testing.T) {
	store := newFakeTokenStore()
	seedToken(store, "tenant-1", -time.Minute)
	oauth := &fakeOAuth{response: &anaf.TokenResponse{
		AccessToken: "new-access",
		ExpiresIn:   3600,
	}}

	manager := newTestManager(t, store, oauth)

	_, err := manager.GetValidToken(context.Background(), "tenant-1")
	require.NoError(t, err)

	stored := store.stored("tenant-1")
	assert.Equal(t, "current-refresh", stored.RefreshToken)
}

func TestGetValidToken_UnknownTenant(t *testing.T) {
	manager := newTestManager(t, newFakeTokenStore(), &fakeOAuth{})

	_, err := manager.GetValidToken(context.Background(), "tenant-unknown")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrNotFound))
}

func TestAuthorizationFlow(t *testing.T) {
	store := newFakeTokenStore()
	states := newFakeStateStore()
	oauth := &fakeOAuth{response: &anaf.TokenResponse{
		AccessToken:  "access",
		RefreshToken: "refresh",
		ExpiresIn:    3600,
		Scope:        "SPVWebServiceAccess",
	}}

	log, err := logger.NewLogger("development", "error", "token-test")
	require.NoError(t, err)

	manager := NewTokenManager(store, states, oauth, 60*time.Second, log, nil)

	authURL, err := manager.BeginAuthorization(context.Background(), "tenant-1")
	require.NoError(t, err)
	require.Contains(t, authURL, "state=")

	state := authURL[len("https://auth.example.com?state="):]
	tenantID, err := manager.CompleteAuthorization(context.Background(), state, "auth-code")
	require.NoError(t, err)
	assert.Equal(t, "tenant-1", tenantID)

	stored := store.stored("tenant-1")
	assert.Equal(t, "access", stored.AccessToken)
	assert.Equal(t, domain.TokenStatusActive, stored.Status)

	// State одноразовый
	_, err = manager.CompleteAuthorization(context.Background(), state, "auth-code")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrUnauthorized))
}

func TestConnection_Statuses(t *testing.T) {
	store := newFakeTokenStore()
	manager := newTestManager(t, store, &fakeOAuth{})

	// Арендатор без токена
	conn, err := manager.Connection(context.Background(), "tenant-new")
	require.NoError(t, err)
	assert.Equal(t, domain.TokenStatusPending, conn.Status)

	// Активный токен
	seedToken(store, "tenant-1", time.Hour)
	conn, err = manager.Connection(context.Background(), "tenant-1")
	require.NoError(t, err)
	assert.Equal(t, domain.TokenStatusActive, conn.Status)

	// Истекший токен показывается как EXPIRED
	seedToken(store, "tenant-2", -time.Hour)
	conn, err = manager.Connection(context.Background(), "tenant-2")
	require.NoError(t, err)
	assert.Equal(t, domain.TokenStatusExpired, conn.Status)
}

package anaf

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"EFacturaPlatform/pkg/config"
	"EFacturaPlatform/pkg/errors"
	"EFacturaPlatform/pkg/logger"
)

// fakeLimiter управляемый лимитер для тестов
type fakeLimiter struct {
	exceeded bool
	calls    int
}

func (f *fakeLimiter) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	f.calls++
	return f.exceeded, nil
}

func testClient(t *testing.T, serverURL string, limiter *fakeLimiter) *HTTPClient {
	t.Helper()

	log, err := logger.NewLogger("development", "error", "anaf-test")
	require.NoError(t, err)

	cfg := config.ANAFConfig{
		BaseURL:        serverURL,
		UploadTimeout:  "5s",
		StatusTimeout:  "5s",
		CallsPerMinute: 10,
	}
	if limiter == nil {
		return NewHTTPClient(cfg, nil, nil, log)
	}
	return NewHTTPClient(cfg, limiter, nil, log)
}

func TestUpload_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/upload", r.URL.Path)
		assert.Equal(t, "UBL", r.URL.Query().Get("standard"))
		assert.Equal(t, "14399840", r.URL.Query().Get("cif"))
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		assert.Contains(t, r.Header.Get("Content-Type"), "multipart/form-data")

		require.NoError(t, r.ParseMultipartForm(1<<20))
		file, _, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()

		json.NewEncoder(w).Encode(UploadResponse{IndexIncarcare: "5001234"})
	}))
	defer server.Close()

	client := testClient(t, server.URL, nil)
	trackingID, err := client.Upload(context.Background(), "test-token", "14399840", StandardUBL, []byte("<Invoice/>"))

	require.NoError(t, err)
	assert.Equal(t, "5001234", trackingID)
}

func TestUpload_GatewayRejection(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(UploadResponse{
			Header: UploadHeader{
				ExecutionStatus: 1,
				Errors:          []UploadError{{ErrorMessage: "CIF invalid"}},
			},
		})
	}))
	defer server.Close()

	client := testClient(t, server.URL, nil)
	_, err := client.Upload(context.Background(), "test-token", "123", StandardUBL, []byte("<Invoice/>"))

	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrGatewayRejected))
	assert.Contains(t, err.(*errors.Error).Details, "CIF invalid")
}

func TestDo_StatusCodeMapping(t *testing.T) {
	tests := []struct {
		name       string
		httpStatus int
		wantCode   errors.ErrorCode
	}{
		{"unauthorized", http.StatusUnauthorized, errors.ErrUnauthorized},
		{"rate limited", http.StatusTooManyRequests, errors.ErrRateLimited},
		{"server error", http.StatusInternalServerError, errors.ErrGatewayOperational},
		{"bad gateway", http.StatusBadGateway, errors.ErrGatewayOperational},
		{"client error", http.StatusUnprocessableEntity, errors.ErrGatewayRejected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.httpStatus)
			}))
			defer server.Close()

			client := testClient(t, server.URL, nil)
			_, err := client.GetStatus(context.Background(), "test-token", "5001234")

			require.Error(t, err)
			assert.True(t, errors.IsCode(err, tt.wantCode))
		})
	}
}

func TestGetStatus_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/stareMesaj", r.URL.Path)
		assert.Equal(t, "5001234", r.URL.Query().Get("id_incarcare"))
		json.NewEncoder(w).Encode(StatusResponse{Stare: "ok", IDDescarcare: "9005678"})
	}))
	defer server.Close()

	client := testClient(t, server.URL, nil)
	status, err := client.GetStatus(context.Background(), "test-token", "5001234")

	require.NoError(t, err)
	assert.Equal(t, "ok", status.Stare)
	assert.Equal(t, "9005678", status.IDDescarcare)
}

func TestListMessages_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/listaMesaje", r.URL.Path)
		assert.Equal(t, "14399840", r.URL.Query().Get("cif"))
		assert.Equal(t, "30", r.URL.Query().Get("zile"))
		assert.Equal(t, "E", r.URL.Query().Get("filtru"))
		json.NewEncoder(w).Encode(InboxResponse{Mesaje: []InboxMessage{
			{ID: "msg-1", Tip: "ERORI FACTURA"},
			{ID: "msg-2", Tip: "FACTURA PRIMITA"},
		}})
	}))
	defer server.Close()

	client := testClient(t, server.URL, nil)
	messages, err := client.ListMessages(context.Background(), "test-token", "14399840", 30, "E")

	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, "msg-1", messages[0].ID)
}

func TestListMessages_EmptyInbox(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(InboxResponse{Eroare: "Nu exista mesaje in ultimele 30 zile"})
	}))
	defer server.Close()

	client := testClient(t, server.URL, nil)
	messages, err := client.ListMessages(context.Background(), "test-token", "14399840", 30, "")

	require.NoError(t, err)
	assert.Empty(t, messages)
}

func TestDownload_Success(t *testing.T) {
	payload := []byte("PK\x03\x04zip-bytes")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/descarcare", r.URL.Path)
		assert.Equal(t, "9005678", r.URL.Query().Get("id"))
		w.Write(payload)
	}))
	defer server.Close()

	client := testClient(t, server.URL, nil)
	data, err := client.Download(context.Background(), "test-token", "9005678")

	require.NoError(t, err)
	assert.Equal(t, payload, data)
}

func TestMarkRead_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/mesajCitit", r.URL.Path)
		assert.Equal(t, "3001234", r.URL.Query().Get("id"))
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
	}))
	defer server.Close()

	client := testClient(t, server.URL, nil)
	err := client.MarkRead(context.Background(), "test-token", "3001234")

	require.NoError(t, err)
}

func TestCheckBudget_Exhausted(t *testing.T) {
	// Сервер не должен получить ни одного запроса
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("request must not reach the gateway")
	}))
	defer server.Close()

	limiter := &fakeLimiter{exceeded: true}
	client := testClient(t, server.URL, limiter)

	_, err := client.GetStatus(context.Background(), "test-token", "5001234")

	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrRateLimited))
	assert.Equal(t, 1, limiter.calls)
}

func TestNewState(t *testing.T) {
	state, err := NewState()
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^[0-9a-f]{64}$`), state)

	other, err := NewState()
	require.NoError(t, err)
	assert.NotEqual(t, state, other)
}

func TestAuthorizeURL(t *testing.T) {
	log, err := logger.NewLogger("development", "error", "anaf-test")
	require.NoError(t, err)

	client := NewHTTPOAuthClient(config.ANAFConfig{
		OAuth: config.OAuthConfig{
			AuthorizeURL: "https://logincert.anaf.ro/anaf-oauth2/v1/authorize",
			ClientID:     "client-id",
			RedirectURL:  "https://app.example.com/oauth/callback",
			Scopes:       []string{"SPVWebServiceAccess", "SPVWebServiceUpload"},
		},
	}, log)

	raw := client.AuthorizeURL("abc123")
	parsed, err := parseURL(raw)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(raw, "https://logincert.anaf.ro/anaf-oauth2/v1/authorize?"))
	assert.Equal(t, "code", parsed.Get("response_type"))
	assert.Equal(t, "client-id", parsed.Get("client_id"))
	assert.Equal(t, "abc123", parsed.Get("state"))
	assert.Equal(t, "SPVWebServiceAccess SPVWebServiceUpload", parsed.Get("scope"))
}

func TestExchange_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "authorization_code", r.PostForm.Get("grant_type"))
		assert.Equal(t, "auth-code", r.PostForm.Get("code"))

		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "client-id", user)
		assert.Equal(t, "client-secret", pass)

		json.NewEncoder(w).Encode(TokenResponse{
			AccessToken:  "access-token",
			RefreshToken: "refresh-token",
			TokenType:    "Bearer",
			ExpiresIn:    3600,
		})
	}))
	defer server.Close()

	client := oauthTestClient(t, server.URL)
	token, err := client.Exchange(context.Background(), "auth-code")

	require.NoError(t, err)
	assert.Equal(t, "access-token", token.AccessToken)
	assert.Equal(t, "refresh-token", token.RefreshToken)
	assert.Equal(t, int64(3600), token.ExpiresIn)
}

func TestRefresh_GrantRefused(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{
			"error":             "invalid_grant",
			"error_description": "refresh token revoked",
		})
	}))
	defer server.Close()

	client := oauthTestClient(t, server.URL)
	_, err := client.Refresh(context.Background(), "revoked-token")

	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrReauthorizationRequired))
}

func TestRefresh_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := oauthTestClient(t, server.URL)
	_, err := client.Refresh(context.Background(), "refresh-token")

	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrAuthTransient))
}

func TestRefresh_Unreachable(t *testing.T) {
	client := oauthTestClient(t, "http://localhost:1")
	_, err := client.Refresh(context.Background(), "refresh-token")

	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrAuthTransient))
}

func parseURL(raw string) (url.Values, error) {
	parsed, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	return parsed.Query(), nil
}

func oauthTestClient(t *testing.T, tokenURL string) *HTTPOAuthClient {
	t.Helper()

	log, err := logger.NewLogger("development", "error", "anaf-test")
	require.NoError(t, err)

	return NewHTTPOAuthClient(config.ANAFConfig{
		RefreshTimeout: "5s",
		OAuth: config.OAuthConfig{
			TokenURL:     tokenURL,
			ClientID:     "client-id",
			ClientSecret: "client-secret",
			RedirectURL:  "https://app.example.com/oauth/callback",
		},
	}, log)
}

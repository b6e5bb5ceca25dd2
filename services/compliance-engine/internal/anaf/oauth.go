package anaf

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"EFacturaPlatform/pkg/config"
	"EFacturaPlatform/pkg/errors"
	"EFacturaPlatform/pkg/logger"
)

// OAuthClient интерфейс OAuth2 клиента сервера авторизации ANAF
type OAuthClient interface {
	// AuthorizeURL строит URL для перенаправления пользователя на авторизацию
	AuthorizeURL(state string) string
	// Exchange обменивает код авторизации на пару токенов
	Exchange(ctx context.Context, code string) (*TokenResponse, error)
	// Refresh обновляет пару токенов по refresh токену
	Refresh(ctx context.Context, refreshToken string) (*TokenResponse, error)
}

// HTTPOAuthClient реализация OAuthClient поверх net/http.
// Авторизация ANAF требует клиентского сертификата на уровне TLS,
// поэтому транспорт настраивается снаружи.
type HTTPOAuthClient struct {
	cfg        config.OAuthConfig
	httpClient *http.Client
	logger     logger.Logger
	timeout    time.Duration
}

// NewHTTPOAuthClient создает новый OAuth2 клиент
func NewHTTPOAuthClient(cfg config.ANAFConfig, log logger.Logger) *HTTPOAuthClient {
	return &HTTPOAuthClient{
		cfg:        cfg.OAuth,
		httpClient: &http.Client{},
		logger:     log,
		timeout:    parseDuration(cfg.RefreshTimeout, 30*time.Second),
	}
}

// NewState генерирует криптостойкое значение state для CSRF защиты
func NewState() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", errors.Wrap(err, errors.ErrInternal, "failed to generate oauth state")
	}
	return hex.EncodeToString(buf), nil
}

// AuthorizeURL строит URL авторизации с заданным state
func (c *HTTPOAuthClient) AuthorizeURL(state string) string {
	params := url.Values{}
	params.Set("response_type", "code")
	params.Set("client_id", c.cfg.ClientID)
	params.Set("redirect_uri", c.cfg.RedirectURL)
	params.Set("scope", strings.Join(c.cfg.Scopes, " "))
	params.Set("state", state)
	params.Set("token_content_type", "jwt")

	return c.cfg.AuthorizeURL + "?" + params.Encode()
}

// Exchange обменивает код авторизации на токены
func (c *HTTPOAuthClient) Exchange(ctx context.Context, code string) (*TokenResponse, error) {
	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	form.Set("redirect_uri", c.cfg.RedirectURL)
	form.Set("token_content_type", "jwt")

	return c.tokenRequest(ctx, form)
}

// Refresh обновляет токены по refresh токену.
// Отказ сервера авторизации в выдаче по refresh токену означает отзыв
// согласия и требует повторной авторизации пользователя.
func (c *HTTPOAuthClient) Refresh(ctx context.Context, refreshToken string) (*TokenResponse, error) {
	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", refreshToken)
	form.Set("token_content_type", "jwt")

	return c.tokenRequest(ctx, form)
}

func (c *HTTPOAuthClient) tokenRequest(ctx context.Context, form url.Values) (*TokenResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrInternal, "failed to create token request").WithContext(ctx)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(c.cfg.ClientID, c.cfg.ClientSecret)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrAuthTransient, "authorization server unreachable").WithContext(ctx)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrAuthTransient, "failed to read token response").WithContext(ctx)
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		var token TokenResponse
		if err := json.Unmarshal(data, &token); err != nil {
			return nil, errors.Wrap(err, errors.ErrAuthTransient, "failed to decode token response").WithContext(ctx)
		}
		if token.AccessToken == "" {
			return nil, errors.New(errors.ErrAuthTransient, "authorization server returned empty access token").WithContext(ctx)
		}
		return &token, nil
	case resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusUnauthorized:
		var oauthErr oauthErrorResponse
		_ = json.Unmarshal(data, &oauthErr)
		return nil, errors.New(errors.ErrReauthorizationRequired, "authorization server refused the grant").
			WithDetails(fmt.Sprintf("%s: %s", oauthErr.Error, oauthErr.ErrorDescription)).
			WithContext(ctx)
	default:
		return nil, errors.New(errors.ErrAuthTransient, "authorization server returned unexpected status").
			WithDetails(fmt.Sprintf("status %d: %s", resp.StatusCode, truncate(data))).
			WithContext(ctx)
	}
}

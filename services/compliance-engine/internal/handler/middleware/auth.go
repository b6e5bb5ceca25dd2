package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"EFacturaPlatform/pkg/errors"
	"EFacturaPlatform/pkg/logger"
)

type contextKey string

// tenantIDKey ключ tenant id в контексте запроса
const tenantIDKey contextKey = "tenant_id"

// AuthMiddleware проверяет JWT в заголовке Authorization
type AuthMiddleware struct {
	logger         logger.Logger
	secretKey      []byte
	expectedIssuer string
}

// Claims содержит claims токена доступа к API
type Claims struct {
	TenantID string `json:"tenant_id"`
	jwt.RegisteredClaims
}

// NewAuthMiddleware создает новый middleware для аутентификации
func NewAuthMiddleware(log logger.Logger, secretKey, expectedIssuer string) *AuthMiddleware {
	return &AuthMiddleware{
		logger:         log,
		secretKey:      []byte(secretKey),
		expectedIssuer: expectedIssuer,
	}
}

// Authenticate проверяет аутентификацию запроса и кладет tenant id
// из токена в контекст
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			m.unauthorized(w, "missing Authorization header")
			return
		}

		tokenParts := strings.Split(authHeader, " ")
		if len(tokenParts) != 2 || tokenParts[0] != "Bearer" {
			m.unauthorized(w, "invalid Authorization header format")
			return
		}

		tenantID, err := m.validateToken(tokenParts[1])
		if err != nil {
			m.logger.Warn("Token validation failed",
				logger.String("path", r.URL.Path),
				logger.Error(err),
			)
			m.unauthorized(w, "invalid token")
			return
		}

		ctx := context.WithValue(r.Context(), tenantIDKey, tenantID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// validateToken валидирует JWT и возвращает tenant id из claims
func (m *AuthMiddleware) validateToken(tokenString string) (string, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secretKey, nil
	})
	if err != nil {
		return "", err
	}
	if !parsed.Valid {
		return "", fmt.Errorf("token is not valid")
	}

	if m.expectedIssuer != "" {
		issuer, err := claims.GetIssuer()
		if err != nil || issuer != m.expectedIssuer {
			return "", fmt.Errorf("unexpected issuer: %s", issuer)
		}
	}
	if claims.TenantID == "" {
		return "", fmt.Errorf("token carries no tenant id")
	}
	return claims.TenantID, nil
}

func (m *AuthMiddleware) unauthorized(w http.ResponseWriter, message string) {
	errors.SendErrorResponse(w, errors.New(errors.ErrUnauthorized, message))
}

// TenantID возвращает tenant id аутентифицированного запроса
func TenantID(ctx context.Context) string {
	if tenantID, ok := ctx.Value(tenantIDKey).(string); ok {
		return tenantID
	}
	return ""
}

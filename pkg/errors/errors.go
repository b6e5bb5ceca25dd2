package errors

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// Error представляет кастомную ошибку с дополнительной информацией
type Error struct {
	Code    ErrorCode       `json:"code"`
	Message string          `json:"message"`
	Details string          `json:"details,omitempty"`
	Fields  []string        `json:"fields,omitempty"`
	Cause   error           `json:"-"`
	Context context.Context `json:"-"`
}

// ErrorCode представляет код ошибки
type ErrorCode string

// Определение кодов ошибок
const (
	ErrNotFound     ErrorCode = "NOT_FOUND"
	ErrValidation   ErrorCode = "VALIDATION_ERROR"
	ErrUnauthorized ErrorCode = "UNAUTHORIZED"
	ErrForbidden    ErrorCode = "FORBIDDEN"
	ErrInternal     ErrorCode = "INTERNAL_ERROR"
	ErrConflict     ErrorCode = "CONFLICT"

	// Коды для взаимодействия с шлюзом ANAF
	ErrReauthorizationRequired ErrorCode = "REAUTHORIZATION_REQUIRED"
	ErrAuthTransient           ErrorCode = "AUTH_TRANSIENT"
	ErrGatewayRejected         ErrorCode = "GATEWAY_REJECTED"
	ErrGatewayOperational      ErrorCode = "GATEWAY_OPERATIONAL"
	ErrRateLimited             ErrorCode = "RATE_LIMITED"
	ErrInvalidTransition       ErrorCode = "INVALID_TRANSITION"
)

// Error возвращает сообщение об ошибке
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap возвращает причину ошибки
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is проверяет, является ли ошибка указанного типа
func (e *Error) Is(target error) bool {
	if targetError, ok := target.(*Error); ok {
		return e.Code == targetError.Code
	}
	return false
}

// New создает новую кастомную ошибку
func New(code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

// Wrap оборачивает существующую ошибку в кастомную
func Wrap(err error, code ErrorCode, message string) *Error {
	if err == nil {
		return nil
	}
	return &Error{
		Code:    code,
		Message: message,
		Cause:   err,
	}
}

// WithDetails добавляет детали к ошибке
func (e *Error) WithDetails(details string) *Error {
	if e == nil {
		return nil
	}
	return &Error{
		Code:    e.Code,
		Message: e.Message,
		Details: details,
		Fields:  e.Fields,
		Cause:   e.Cause,
		Context: e.Context,
	}
}

// WithFields добавляет список полей, не прошедших валидацию
func (e *Error) WithFields(fields ...string) *Error {
	if e == nil {
		return nil
	}
	return &Error{
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
		Fields:  fields,
		Cause:   e.Cause,
		Context: e.Context,
	}
}

// WithContext добавляет контекст к ошибке
func (e *Error) WithContext(ctx context.Context) *Error {
	if e == nil {
		return nil
	}
	return &Error{
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
		Fields:  e.Fields,
		Cause:   e.Cause,
		Context: ctx,
	}
}

// Code возвращает код ошибки, либо ErrInternal для чужих ошибок
func Code(err error) ErrorCode {
	if err == nil {
		return ""
	}
	if customErr, ok := err.(*Error); ok {
		return customErr.Code
	}
	return ErrInternal
}

// IsCode проверяет, имеет ли ошибка указанный код
func IsCode(err error, code ErrorCode) bool {
	return Code(err) == code
}

// Fields возвращает список полей, не прошедших валидацию
func Fields(err error) []string {
	if customErr, ok := err.(*Error); ok {
		return customErr.Fields
	}
	return nil
}

// HTTPStatus возвращает соответствующий HTTP статус для ошибки
func (e *Error) HTTPStatus() int {
	if e == nil {
		return http.StatusOK
	}

	switch e.Code {
	case ErrNotFound:
		return http.StatusNotFound
	case ErrValidation:
		return http.StatusBadRequest
	case ErrInvalidTransition:
		return http.StatusConflict
	case ErrUnauthorized, ErrReauthorizationRequired:
		return http.StatusUnauthorized
	case ErrForbidden:
		return http.StatusForbidden
	case ErrConflict:
		return http.StatusConflict
	case ErrRateLimited:
		return http.StatusTooManyRequests
	case ErrGatewayRejected:
		return http.StatusUnprocessableEntity
	case ErrGatewayOperational, ErrAuthTransient:
		return http.StatusBadGateway
	case ErrInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// GetUserMessage возвращает пользовательское сообщение об ошибке
// Поддерживает локализацию через контекст
func (e *Error) GetUserMessage() string {
	if e == nil {
		return ""
	}

	if e.Context != nil {
		if localizedMsg, ok := e.Context.Value("localized_message").(string); ok {
			return localizedMsg
		}
	}

	switch e.Code {
	case ErrNotFound:
		return "Ресурс не найден"
	case ErrValidation:
		return "Ошибка валидации данных"
	case ErrUnauthorized:
		return "Не авторизован"
	case ErrForbidden:
		return "Доступ запрещен"
	case ErrConflict:
		return "Конфликт данных (например, дубликат)"
	case ErrReauthorizationRequired:
		return "Требуется повторная авторизация в ANAF SPV"
	case ErrAuthTransient:
		return "Временная ошибка авторизации, повторите попытку"
	case ErrGatewayRejected:
		return "Документ отклонен шлюзом ANAF"
	case ErrGatewayOperational:
		return "Шлюз ANAF временно недоступен"
	case ErrRateLimited:
		return "Превышен лимит запросов к шлюзу ANAF"
	case ErrInvalidTransition:
		return "Недопустимый переход состояния"
	case ErrInternal:
		return "Внутренняя ошибка сервера"
	default:
		return "Произошла ошибка"
	}
}

// Middleware обрабатывает ошибки в HTTP запросах
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		// Восстановление от паники в обработчике
		defer func() {
			if recovered := recover(); recovered != nil {
				err := New(ErrInternal, "Internal server error").
					WithDetails(fmt.Sprintf("panic: %v", recovered))

				SendErrorResponse(w, err)
			}
		}()

		next.ServeHTTP(wrapped, r)

		if wrapped.statusCode < 400 {
			return
		}

		if err, ok := r.Context().Value(errorContextKey{}).(*Error); ok {
			SendErrorResponse(w, err)
		}
	})
}

// SendErrorResponse отправляет JSON ответ с ошибкой
func SendErrorResponse(w http.ResponseWriter, err *Error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(err.HTTPStatus())

	response := map[string]interface{}{
		"error": map[string]interface{}{
			"code":    err.Code,
			"message": err.GetUserMessage(),
			"details": err.Details,
		},
	}
	if len(err.Fields) > 0 {
		response["error"].(map[string]interface{})["fields"] = err.Fields
	}

	jsonData, jsonErr := json.Marshal(response)
	if jsonErr != nil {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":{"code":"INTERNAL_ERROR","message":"Internal server error"}}`))
		return
	}

	w.Write(jsonData)
}

// errorContextKey ключ для хранения ошибки в контексте
type errorContextKey struct{}

// WithError добавляет ошибку в контекст
func WithError(ctx context.Context, err *Error) context.Context {
	return context.WithValue(ctx, errorContextKey{}, err)
}

// GetError извлекает ошибку из контекста
func GetError(ctx context.Context) *Error {
	if err, ok := ctx.Value(errorContextKey{}).(*Error); ok {
		return err
	}
	return nil
}

// WithLocalizedMessage добавляет локализованное сообщение в контекст
func WithLocalizedMessage(ctx context.Context, localizedMessage string) context.Context {
	return context.WithValue(ctx, "localized_message", localizedMessage)
}

// responseWriter обертка для перехвата статуса ответа
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

// WriteHeader перехватывает установку статуса
func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

package errors

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

// TestNewError проверяет создание новой ошибки
func TestNewError(t *testing.T) {
	e := New(ErrNotFound, "resource not found")
	if e == nil {
		t.Fatal("Expected error, got nil")
	}

	if e.Code != ErrNotFound {
		t.Errorf("Expected code %s, got %s", ErrNotFound, e.Code)
	}

	if e.Message != "resource not found" {
		t.Errorf("Expected message 'resource not found', got %s", e.Message)
	}

	if e.Cause != nil {
		t.Error("Expected cause to be nil")
	}
}

// TestWrapError проверяет оборачивание существующей ошибки
func TestWrapError(t *testing.T) {
	originalErr := fmt.Errorf("database error")
	e := Wrap(originalErr, ErrInternal, "failed to save resource")

	if e == nil {
		t.Fatal("Expected error, got nil")
	}

	if e.Code != ErrInternal {
		t.Errorf("Expected code %s, got %s", ErrInternal, e.Code)
	}

	if e.Cause == nil {
		t.Error("Expected cause, got nil")
	}

	if e.Cause.Error() != "database error" {
		t.Errorf("Expected cause message 'database error', got %s", e.Cause.Error())
	}

	if Wrap(nil, ErrInternal, "no-op") != nil {
		t.Error("Wrapping nil should return nil")
	}
}

// TestWithDetails проверяет добавление деталей к ошибке
func TestWithDetails(t *testing.T) {
	e := New(ErrValidation, "invalid input")
	eWithDetails := e.WithDetails("field 'cui' is required")

	if eWithDetails == nil {
		t.Fatal("Expected error with details, got nil")
	}

	if eWithDetails.Details != "field 'cui' is required" {
		t.Errorf("Expected details 'field 'cui' is required', got %s", eWithDetails.Details)
	}

	// Исходная ошибка не должна измениться
	if e.Details != "" {
		t.Error("Original error should not have details")
	}
}

// TestWithFields проверяет добавление списка невалидных полей
func TestWithFields(t *testing.T) {
	e := New(ErrValidation, "invalid invoice").WithFields("customerName", "customerCui")

	if len(e.Fields) != 2 {
		t.Fatalf("Expected 2 fields, got %d", len(e.Fields))
	}

	if e.Fields[0] != "customerName" || e.Fields[1] != "customerCui" {
		t.Errorf("Unexpected fields: %v", e.Fields)
	}
}

// TestErrorIs проверяет работу метода Is
func TestErrorIs(t *testing.T) {
	e := New(ErrNotFound, "resource not found")
	target := New(ErrNotFound, "another message")

	if !e.Is(target) {
		t.Error("Expected error to be of type ErrNotFound")
	}

	if e.Is(New(ErrInternal, "internal error")) {
		t.Error("Expected error not to be of type ErrInternal")
	}
}

// TestCode проверяет извлечение кода из произвольной ошибки
func TestCode(t *testing.T) {
	if code := Code(New(ErrRateLimited, "slow down")); code != ErrRateLimited {
		t.Errorf("Expected code %s, got %s", ErrRateLimited, code)
	}

	if code := Code(fmt.Errorf("plain error")); code != ErrInternal {
		t.Errorf("Expected code %s, got %s", ErrInternal, code)
	}

	if code := Code(nil); code != "" {
		t.Errorf("Expected empty code for nil, got %s", code)
	}

	if !IsCode(New(ErrGatewayRejected, "rejected"), ErrGatewayRejected) {
		t.Error("Expected IsCode to match")
	}
}

// TestHTTPStatus проверяет соответствие HTTP статусов
func TestHTTPStatus(t *testing.T) {
	testCases := []struct {
		code     ErrorCode
		expected int
	}{
		{ErrNotFound, http.StatusNotFound},
		{ErrValidation, http.StatusBadRequest},
		{ErrInvalidTransition, http.StatusConflict},
		{ErrUnauthorized, http.StatusUnauthorized},
		{ErrReauthorizationRequired, http.StatusUnauthorized},
		{ErrForbidden, http.StatusForbidden},
		{ErrConflict, http.StatusConflict},
		{ErrRateLimited, http.StatusTooManyRequests},
		{ErrGatewayRejected, http.StatusUnprocessableEntity},
		{ErrGatewayOperational, http.StatusBadGateway},
		{ErrAuthTransient, http.StatusBadGateway},
		{ErrInternal, http.StatusInternalServerError},
	}

	for _, tc := range testCases {
		e := New(tc.code, "test message")
		if status := e.HTTPStatus(); status != tc.expected {
			t.Errorf("For code %s, expected HTTP status %d, got %d", tc.code, tc.expected, status)
		}
	}
}

// TestGetUserMessage проверяет пользовательские сообщения
func TestGetUserMessage(t *testing.T) {
	testCases := []struct {
		code     ErrorCode
		expected string
	}{
		{ErrNotFound, "Ресурс не найден"},
		{ErrValidation, "Ошибка валидации данных"},
		{ErrReauthorizationRequired, "Требуется повторная авторизация в ANAF SPV"},
		{ErrGatewayRejected, "Документ отклонен шлюзом ANAF"},
		{ErrRateLimited, "Превышен лимит запросов к шлюзу ANAF"},
		{ErrInternal, "Внутренняя ошибка сервера"},
	}

	for _, tc := range testCases {
		e := New(tc.code, "test message")
		if message := e.GetUserMessage(); message != tc.expected {
			t.Errorf("For code %s, expected user message '%s', got '%s'", tc.code, tc.expected, message)
		}
	}
}

// TestMiddleware проверяет работу middleware
func TestMiddleware(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		err := New(ErrNotFound, "resource not found")
		r = r.WithContext(WithError(r.Context(), err))

		w.WriteHeader(http.StatusNotFound)
	})

	wrappedHandler := Middleware(handler)

	req := httptest.NewRequest("GET", "/test", nil)
	w := httptest.NewRecorder()

	wrappedHandler.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status code %d, got %d", http.StatusNotFound, w.Code)
	}
}

// TestMiddleware_Panic проверяет восстановление от паники
func TestMiddleware_Panic(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	})

	wrappedHandler := Middleware(handler)

	req := httptest.NewRequest("GET", "/test", nil)
	w := httptest.NewRecorder()

	wrappedHandler.ServeHTTP(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("Expected status code %d, got %d", http.StatusInternalServerError, w.Code)
	}
}

// TestWithErrorAndGetError проверяет работу с контекстом
func TestWithErrorAndGetError(t *testing.T) {
	ctx := context.Background()
	err := New(ErrUnauthorized, "access denied")

	ctx = WithError(ctx, err)

	extractedErr := GetError(ctx)

	if extractedErr == nil {
		t.Fatal("Expected error from context, got nil")
	}

	if extractedErr.Code != err.Code {
		t.Errorf("Expected code %s, got %s", err.Code, extractedErr.Code)
	}

	if GetError(context.Background()) != nil {
		t.Error("Expected nil error from empty context")
	}
}

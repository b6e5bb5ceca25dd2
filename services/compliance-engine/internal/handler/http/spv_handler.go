package http

import (
	"net/http"
)

// handleSpvConnection возвращает состояние подключения арендатора к SPV
func (h *HTTPHandler) handleSpvConnection(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}

	tenantID := r.URL.Query().Get("tenant_id")
	if tenantID == "" {
		http.Error(w, "tenant_id is required", http.StatusBadRequest)
		return
	}

	connection, err := h.tokens.Connection(r.Context(), tenantID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, connection)
}

// handleSpvAuthorize начинает OAuth авторизацию и возвращает URL
// для перенаправления пользователя на страницу ANAF
func (h *HTTPHandler) handleSpvAuthorize(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}

	tenantID := r.URL.Query().Get("tenant_id")
	if tenantID == "" {
		http.Error(w, "tenant_id is required", http.StatusBadRequest)
		return
	}

	authorizeURL, err := h.tokens.BeginAuthorization(r.Context(), tenantID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{"url": authorizeURL})
}

// handleSpvCallback завершает авторизацию по коду из редиректа ANAF
func (h *HTTPHandler) handleSpvCallback(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}

	query := r.URL.Query()
	state := query.Get("state")
	code := query.Get("code")
	if state == "" || code == "" {
		http.Error(w, "state and code are required", http.StatusBadRequest)
		return
	}

	tenantID, err := h.tokens.CompleteAuthorization(r.Context(), state, code)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{
		"tenantId": tenantID,
		"status":   "authorized",
	})
}

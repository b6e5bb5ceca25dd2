package http

import (
	"encoding/json"
	"net/http"
	"strings"

	"EFacturaPlatform/pkg/errors"
	pkglogger "EFacturaPlatform/pkg/logger"
	"EFacturaPlatform/services/compliance-engine/internal/dispatcher"
	"EFacturaPlatform/services/compliance-engine/internal/service"
	"EFacturaPlatform/services/compliance-engine/internal/token"
)

// HTTPHandler обрабатывает HTTP запросы Compliance Engine
type HTTPHandler struct {
	logger      pkglogger.Logger
	submissions service.SubmissionService
	transports  service.TransportService
	inbox       service.InboxService
	deadlines   service.DeadlineService
	tokens      token.Manager
	hub         *dispatcher.Hub
}

// NewHTTPHandler создает новый HTTP обработчик
func NewHTTPHandler(
	logger pkglogger.Logger,
	submissions service.SubmissionService,
	transports service.TransportService,
	inbox service.InboxService,
	deadlines service.DeadlineService,
	tokens token.Manager,
	hub *dispatcher.Hub,
) *HTTPHandler {
	return &HTTPHandler{
		logger:      logger,
		submissions: submissions,
		transports:  transports,
		inbox:       inbox,
		deadlines:   deadlines,
		tokens:      tokens,
		hub:         hub,
	}
}

// RegisterRoutes регистрирует HTTP маршруты
func (h *HTTPHandler) RegisterRoutes(mux *http.ServeMux) {
	// Подачи фактур
	mux.HandleFunc("/api/v1/submissions", h.handleSubmissions)
	mux.HandleFunc("/api/v1/submissions/batch", h.handleSubmitBatch)
	mux.HandleFunc("/api/v1/submissions/", h.handleSubmissionByID)

	// Транспортные декларации
	mux.HandleFunc("/api/v1/transports", h.handleTransports)
	mux.HandleFunc("/api/v1/transports/", h.handleTransportByID)

	// Почтовый ящик шлюза
	mux.HandleFunc("/api/v1/inbox", h.handleInbox)
	mux.HandleFunc("/api/v1/inbox/", h.handleInboxByID)

	// Регуляторные сроки
	mux.HandleFunc("/api/v1/deadlines", h.handleDeadlines)

	// Подключение SPV
	mux.HandleFunc("/api/v1/spv/connection", h.handleSpvConnection)
	mux.HandleFunc("/api/v1/spv/authorize", h.handleSpvAuthorize)

	// Push канал доменных событий
	mux.HandleFunc("/api/v1/events", h.handleEventStream)
}

// RegisterPublicRoutes регистрирует маршруты, доступные без
// аутентификации. Callback OAuth вызывается редиректом ANAF
// и не несет токена API.
func (h *HTTPHandler) RegisterPublicRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/v1/spv/callback", h.handleSpvCallback)
}

// writeJSON сериализует ответ в JSON
func (h *HTTPHandler) writeJSON(w http.ResponseWriter, statusCode int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("Failed to encode response", pkglogger.Error(err))
	}
}

// writeError конвертирует доменную ошибку в HTTP ответ
func (h *HTTPHandler) writeError(w http.ResponseWriter, err error) {
	if customErr, ok := err.(*errors.Error); ok {
		errors.SendErrorResponse(w, customErr)
		return
	}
	errors.SendErrorResponse(w, errors.Wrap(err, errors.ErrInternal, "internal server error"))
}

// pathSuffix отрезает префикс маршрута и возвращает остаток пути
func pathSuffix(r *http.Request, prefix string) string {
	return strings.Trim(strings.TrimPrefix(r.URL.Path, prefix), "/")
}

// methodNotAllowed отвечает стандартной ошибкой метода
func methodNotAllowed(w http.ResponseWriter) {
	http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
}

package http

import (
	"encoding/json"
	"fmt"
	"net/http"

	pkglogger "EFacturaPlatform/pkg/logger"
)

// handleEventStream транслирует события арендатора по SSE.
// Доставка негарантированная: при переполнении буфера подписчика
// события отбрасываются, актуальное состояние всегда доступно
// через pull эндпоинты
func (h *HTTPHandler) handleEventStream(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}

	tenantID := r.URL.Query().Get("tenant_id")
	if tenantID == "" {
		http.Error(w, "tenant_id is required", http.StatusBadRequest)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	events, unsubscribe := h.hub.Subscribe(tenantID)
	defer unsubscribe()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	h.logger.Info("Event stream opened", pkglogger.String("tenant_id", tenantID))

	for {
		select {
		case <-r.Context().Done():
			h.logger.Info("Event stream closed", pkglogger.String("tenant_id", tenantID))
			return
		case event, open := <-events:
			if !open {
				return
			}

			data, err := json.Marshal(event)
			if err != nil {
				h.logger.Error("Failed to marshal event", pkglogger.Error(err))
				continue
			}

			fmt.Fprintf(w, "event: %s\n", event.Type)
			fmt.Fprintf(w, "data: %s\n\n", data)
			flusher.Flush()
		}
	}
}

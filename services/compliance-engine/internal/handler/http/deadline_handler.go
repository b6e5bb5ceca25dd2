package http

import (
	"net/http"
	"time"
)

func (h *HTTPHandler) handleDeadlines(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}

	today := time.Now()
	deadlines := h.deadlines.Upcoming(today)
	if r.URL.Query().Get("due_soon") == "true" {
		deadlines = h.deadlines.DueSoon(today)
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"deadlines": deadlines,
		"count":     len(deadlines),
	})
}

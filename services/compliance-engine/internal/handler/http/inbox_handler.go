package http

import (
	"net/http"
	"strconv"
	"strings"

	"EFacturaPlatform/services/compliance-engine/internal/domain"
)

func (h *HTTPHandler) handleInbox(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}

	query := r.URL.Query()
	tenantID := query.Get("tenant_id")
	if tenantID == "" {
		http.Error(w, "tenant_id is required", http.StatusBadRequest)
		return
	}

	filter := domain.MessageFilter{TenantID: tenantID}
	if rawRead := query.Get("read"); rawRead != "" {
		read := rawRead == "true"
		filter.Read = &read
	}
	if limit, err := strconv.Atoi(query.Get("limit")); err == nil {
		filter.Limit = limit
	}
	if offset, err := strconv.Atoi(query.Get("offset")); err == nil {
		filter.Offset = offset
	}

	messages, err := h.inbox.List(r.Context(), filter)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"messages": messages,
		"count":    len(messages),
	})
}

func (h *HTTPHandler) handleInboxByID(w http.ResponseWriter, r *http.Request) {
	suffix := pathSuffix(r, "/api/v1/inbox/")
	parts := strings.Split(suffix, "/")
	if len(parts) != 2 {
		http.NotFound(w, r)
		return
	}

	id := parts[0]
	switch {
	case parts[1] == "read" && r.Method == http.MethodPost:
		if err := h.inbox.MarkRead(r.Context(), id); err != nil {
			h.writeError(w, err)
			return
		}
		h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	case parts[1] == "download" && r.Method == http.MethodGet:
		h.downloadMessage(w, r, id)
	default:
		http.NotFound(w, r)
	}
}

// downloadMessage отдает документ, связанный с сообщением: ZIP архив
// шлюза как есть либо извлеченный из него XML при format=xml
func (h *HTTPHandler) downloadMessage(w http.ResponseWriter, r *http.Request, id string) {
	asXML := r.URL.Query().Get("format") == "xml"

	var data []byte
	var err error
	if asXML {
		data, err = h.inbox.DownloadXML(r.Context(), id)
	} else {
		data, err = h.inbox.Download(r.Context(), id)
	}
	if err != nil {
		h.writeError(w, err)
		return
	}

	if asXML {
		w.Header().Set("Content-Type", "application/xml")
		w.Header().Set("Content-Disposition", "attachment; filename=\""+id+".xml\"")
	} else {
		w.Header().Set("Content-Type", "application/zip")
		w.Header().Set("Content-Disposition", "attachment; filename=\""+id+".zip\"")
	}
	if _, err := w.Write(data); err != nil {
		h.logger.Error("Failed to write download response")
	}
}

package http

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"EFacturaPlatform/pkg/errors"
	pkglogger "EFacturaPlatform/pkg/logger"
	"EFacturaPlatform/services/compliance-engine/internal/domain"
	"EFacturaPlatform/services/compliance-engine/internal/ubl"
)

// SubmitRequest запрос на подачу одной фактуры
type SubmitRequest struct {
	TenantID string       `json:"tenantId"`
	Invoice  *ubl.Invoice `json:"invoice"`
}

// SubmitBatchRequest запрос на пакетную подачу фактур
type SubmitBatchRequest struct {
	TenantID string         `json:"tenantId"`
	Invoices []*ubl.Invoice `json:"invoices"`
}

func (h *HTTPHandler) handleSubmissions(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.listSubmissions(w, r)
	case http.MethodPost:
		h.submitInvoice(w, r)
	default:
		methodNotAllowed(w)
	}
}

// submitInvoice проводит фактуру через валидацию и загружает в шлюз.
// Фактура, не прошедшая локальную валидацию, сохраняется в DRAFT, а
// ответ содержит полный перечень невалидных полей.
func (h *HTTPHandler) submitInvoice(w http.ResponseWriter, r *http.Request) {
	var req SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	if req.TenantID == "" || req.Invoice == nil {
		http.Error(w, "tenantId and invoice are required", http.StatusBadRequest)
		return
	}

	submission, err := h.submissions.Submit(r.Context(), req.TenantID, req.Invoice)
	if err != nil {
		if errors.IsCode(err, errors.ErrValidation) {
			h.writeJSON(w, http.StatusUnprocessableEntity, map[string]interface{}{
				"submission": submission,
				"fields":     errors.Fields(err),
				"message":    err.Error(),
			})
			return
		}
		// Сбой шлюза: подача сохранена, клиент получает ее состояние
		if submission != nil {
			h.writeJSON(w, http.StatusBadGateway, map[string]interface{}{
				"submission": submission,
				"message":    err.Error(),
			})
			return
		}
		h.writeError(w, err)
		return
	}

	h.logger.Info("Invoice submitted",
		pkglogger.CtxField(r.Context()),
		pkglogger.String("tenant_id", req.TenantID),
		pkglogger.String("submission_id", submission.ID),
	)
	h.writeJSON(w, http.StatusCreated, submission)
}

func (h *HTTPHandler) handleSubmitBatch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}

	var req SubmitBatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	if req.TenantID == "" || len(req.Invoices) == 0 {
		http.Error(w, "tenantId and invoices are required", http.StatusBadRequest)
		return
	}

	results := h.submissions.SubmitBatch(r.Context(), req.TenantID, req.Invoices)
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"results": results,
		"count":   len(results),
	})
}

// listSubmissions возвращает подачи по фильтру. Параметр non_terminal
// ограничивает выборку подачами, ожидающими вердикта.
func (h *HTTPHandler) listSubmissions(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	filter := domain.SubmissionFilter{
		TenantID:    query.Get("tenant_id"),
		InvoiceID:   query.Get("invoice_id"),
		NonTerminal: query.Get("non_terminal") == "true",
	}
	if rawStatus := query.Get("status"); rawStatus != "" {
		status := domain.SubmissionStatus(strings.ToUpper(rawStatus))
		if !domain.IsValidSubmissionStatus(status) {
			http.Error(w, "unknown status", http.StatusBadRequest)
			return
		}
		filter.Status = &status
	}
	if rawLimit := query.Get("limit"); rawLimit != "" {
		if limit, err := strconv.Atoi(rawLimit); err == nil {
			filter.Limit = limit
		}
	}
	if rawOffset := query.Get("offset"); rawOffset != "" {
		if offset, err := strconv.Atoi(rawOffset); err == nil {
			filter.Offset = offset
		}
	}

	submissions, err := h.submissions.List(r.Context(), filter)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"submissions": submissions,
		"count":       len(submissions),
	})
}

func (h *HTTPHandler) handleSubmissionByID(w http.ResponseWriter, r *http.Request) {
	suffix := pathSuffix(r, "/api/v1/submissions/")
	parts := strings.Split(suffix, "/")

	switch {
	case len(parts) == 1 && r.Method == http.MethodGet:
		h.getSubmission(w, r, parts[0])
	case len(parts) == 2 && parts[1] == "cancel" && r.Method == http.MethodPost:
		h.cancelSubmission(w, r, parts[0])
	case len(parts) == 2 && parts[1] == "retry" && r.Method == http.MethodPost:
		h.retrySubmission(w, r, parts[0])
	default:
		http.NotFound(w, r)
	}
}

func (h *HTTPHandler) getSubmission(w http.ResponseWriter, r *http.Request, id string) {
	submission, err := h.submissions.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, submission)
}

func (h *HTTPHandler) cancelSubmission(w http.ResponseWriter, r *http.Request, id string) {
	submission, err := h.submissions.Cancel(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, submission)
}

func (h *HTTPHandler) retrySubmission(w http.ResponseWriter, r *http.Request, id string) {
	submission, err := h.submissions.Retry(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, submission)
}

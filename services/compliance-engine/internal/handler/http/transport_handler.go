package http

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"EFacturaPlatform/services/compliance-engine/internal/domain"
)

// CreateTransportRequest запрос на создание транспортной декларации
type CreateTransportRequest struct {
	TenantID     string `json:"tenantId"`
	VehiclePlate string `json:"vehiclePlate"`
	RouteFrom    string `json:"routeFrom"`
	RouteTo      string `json:"routeTo"`
	CarrierCui   string `json:"carrierCui"`
	DriverCnp    string `json:"driverCnp,omitempty"`
}

func (h *HTTPHandler) handleTransports(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.listTransports(w, r)
	case http.MethodPost:
		h.createTransport(w, r)
	default:
		methodNotAllowed(w)
	}
}

func (h *HTTPHandler) createTransport(w http.ResponseWriter, r *http.Request) {
	var req CreateTransportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	if req.TenantID == "" {
		http.Error(w, "tenantId is required", http.StatusBadRequest)
		return
	}

	doc := &domain.TransportDocument{
		TenantID:     req.TenantID,
		VehiclePlate: req.VehiclePlate,
		RouteFrom:    req.RouteFrom,
		RouteTo:      req.RouteTo,
		CarrierCui:   req.CarrierCui,
		DriverCnp:    req.DriverCnp,
	}

	created, err := h.transports.Create(r.Context(), doc)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, created)
}

func (h *HTTPHandler) listTransports(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	tenantID := query.Get("tenant_id")
	if tenantID == "" {
		http.Error(w, "tenant_id is required", http.StatusBadRequest)
		return
	}

	limit, _ := strconv.Atoi(query.Get("limit"))
	offset, _ := strconv.Atoi(query.Get("offset"))

	docs, err := h.transports.List(r.Context(), tenantID, limit, offset)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"transports": docs,
		"count":      len(docs),
	})
}

func (h *HTTPHandler) handleTransportByID(w http.ResponseWriter, r *http.Request) {
	suffix := pathSuffix(r, "/api/v1/transports/")
	parts := strings.Split(suffix, "/")

	if len(parts) == 1 && r.Method == http.MethodGet {
		doc, err := h.transports.Get(r.Context(), parts[0])
		if err != nil {
			h.writeError(w, err)
			return
		}
		h.writeJSON(w, http.StatusOK, doc)
		return
	}

	if len(parts) != 2 || r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}

	id := parts[0]
	var doc *domain.TransportDocument
	var err error

	switch parts[1] {
	case "validate":
		doc, err = h.transports.Validate(r.Context(), id)
	case "submit":
		doc, err = h.transports.Submit(r.Context(), id)
	case "start":
		doc, err = h.transports.Start(r.Context(), id)
	case "complete":
		doc, err = h.transports.Complete(r.Context(), id)
	case "cancel":
		doc, err = h.transports.Cancel(r.Context(), id)
	default:
		http.NotFound(w, r)
		return
	}

	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, doc)
}

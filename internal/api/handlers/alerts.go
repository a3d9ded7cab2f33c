package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hugh/go-warden/internal/alerts"
	"github.com/hugh/go-warden/internal/api/dto"
	"github.com/hugh/go-warden/internal/database/models"
	"gorm.io/gorm"
)

type AlertHandler struct {
	store *alerts.Store
}

func NewAlertHandler(store *alerts.Store) *AlertHandler {
	return &AlertHandler{store: store}
}

// List handles GET /api/v1/alerts
func (h *AlertHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	if sev := q.Get("severity"); sev != "" && !models.Severity(sev).IsValid() {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid severity filter"})
		return
	}
	if st := q.Get("status"); st != "" && !models.AlertStatus(st).IsValid() {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid status filter"})
		return
	}

	filter := alerts.Filter{
		Provider:   q.Get("provider"),
		Severity:   q.Get("severity"),
		Status:     q.Get("status"),
		ResourceID: q.Get("resource_id"),
		PolicyID:   q.Get("policy_id"),
		AccountID:  q.Get("account_id"),
		Region:     q.Get("region"),
		SortBy:     q.Get("sort_by"),
		SortOrder:  q.Get("sort_order"),
	}

	if raw := q.Get("start_date"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid start_date, expected RFC3339"})
			return
		}
		filter.StartDate = &t
	}
	if raw := q.Get("end_date"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid end_date, expected RFC3339"})
			return
		}
		filter.EndDate = &t
	}

	filter.Skip, _ = strconv.Atoi(q.Get("skip"))
	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid limit"})
			return
		}
		filter.Limit = limit
	}

	list, total, err := h.store.List(r.Context(), filter)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to list alerts"})
		return
	}

	writeJSON(w, http.StatusOK, dto.ListResponse{
		Data:  list,
		Total: total,
		Skip:  filter.Skip,
		Limit: filter.Limit,
	})
}

// Summary handles GET /api/v1/alerts/summary
func (h *AlertHandler) Summary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.store.Summarize(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to summarize alerts"})
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// Get handles GET /api/v1/alerts/{id}
func (h *AlertHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := parseAlertID(w, r)
	if !ok {
		return
	}

	alert, err := h.store.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			writeJSON(w, http.StatusNotFound, dto.ErrorResponse{Error: "Alert not found"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to load alert"})
		return
	}
	writeJSON(w, http.StatusOK, alert)
}

// UpdateAlertRequest is the partial patch body for PUT /alerts/{id}. Omitted
// fields leave the stored values untouched.
type UpdateAlertRequest struct {
	Status         *string         `json:"status"`
	Severity       *string         `json:"severity"`
	Details        *models.Details `json:"details"`
	Recommendation *string         `json:"recommendation"`
}

// Update handles PUT /api/v1/alerts/{id}
func (h *AlertHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := parseAlertID(w, r)
	if !ok {
		return
	}

	var req UpdateAlertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request body"})
		return
	}

	patch := alerts.Patch{
		Details:        req.Details,
		Recommendation: req.Recommendation,
	}
	if req.Status != nil {
		status := models.AlertStatus(*req.Status)
		if !status.IsValid() {
			writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid status value"})
			return
		}
		patch.Status = &status
	}
	if req.Severity != nil {
		severity := models.Severity(*req.Severity)
		if !severity.IsValid() {
			writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid severity value"})
			return
		}
		patch.Severity = &severity
	}

	alert, err := h.store.Update(r.Context(), id, patch)
	if err != nil {
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			writeJSON(w, http.StatusNotFound, dto.ErrorResponse{Error: "Alert not found"})
		case errors.Is(err, alerts.ErrInvalidTransition):
			writeJSON(w, http.StatusConflict, dto.ErrorResponse{Error: err.Error()})
		default:
			writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to update alert"})
		}
		return
	}
	writeJSON(w, http.StatusOK, alert)
}

// Delete handles DELETE /api/v1/alerts/{id}
func (h *AlertHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseAlertID(w, r)
	if !ok {
		return
	}

	if err := h.store.Delete(r.Context(), id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			writeJSON(w, http.StatusNotFound, dto.ErrorResponse{Error: "Alert not found"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to delete alert"})
		return
	}
	writeJSON(w, http.StatusOK, dto.SuccessResponse{Message: "Alert deleted"})
}

func parseAlertID(w http.ResponseWriter, r *http.Request) (uint, bool) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid alert id"})
		return 0, false
	}
	return uint(id), true
}

package analytics_api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"ms-booking-finance/internal/analytics"
	"ms-booking-finance/internal/logger"
	"ms-booking-finance/internal/utils"

	"github.com/go-chi/chi/v5"
)

// AnalyticsService is what the handler needs from analytics.Service
type AnalyticsService interface {
	GetSchoolAnalytics(ctx context.Context, schoolID int64, days int) (*analytics.SchoolAnalytics, error)
	GetBatchSchoolAnalytics(ctx context.Context, schoolIDs []int64, days int) (map[int64]*analytics.SchoolAnalytics, map[int64]string, error)
}

// Handler handles analytics HTTP endpoints
type Handler struct {
	Service AnalyticsService
	Logger  *logger.Logger
}

// NewHandler creates a new analytics handler
func NewHandler(service AnalyticsService, logger *logger.Logger) *Handler {
	return &Handler{Service: service, Logger: logger}
}

// RegisterRoutes registers the analytics routes on a chi router
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api/finance/analytics", func(r chi.Router) {
		r.Get("/schools/{schoolId}", h.GetSchoolAnalytics)
		r.Post("/schools/batch", h.GetBatchSchoolAnalytics)
	})
}

// GetSchoolAnalytics handles GET /api/finance/analytics/schools/{schoolId}?days=30
func (h *Handler) GetSchoolAnalytics(w http.ResponseWriter, r *http.Request) {
	schoolID, err := strconv.ParseInt(chi.URLParam(r, "schoolId"), 10, 64)
	if err != nil || schoolID <= 0 {
		h.write(w, http.StatusBadRequest, utils.ErrorResponse("Invalid request", "schoolId must be a positive integer"))
		return
	}
	days, ok := h.daysParam(w, r)
	if !ok {
		return
	}
	if !h.verifySchoolScope(w, r, schoolID) {
		return
	}

	h.Logger.Info("ANALYTICS", fmt.Sprintf("School analytics requested: school=%d days=%d", schoolID, days))
	result, err := h.Service.GetSchoolAnalytics(r.Context(), schoolID, days)
	if err != nil {
		h.Logger.Error("ANALYTICS", fmt.Sprintf("Failed to compute analytics for school %d: %v", schoolID, err))
		h.write(w, http.StatusInternalServerError, utils.ErrorResponse("Failed to compute analytics", err.Error()))
		return
	}

	h.write(w, http.StatusOK, utils.SuccessResponse("School analytics", result))
}

type batchRequest struct {
	SchoolIDs []int64 `json:"school_ids"`
	Days      int     `json:"days"`
}

type batchResponse struct {
	Schools map[int64]*analytics.SchoolAnalytics `json:"schools"`
	Failed  map[int64]string                     `json:"failed,omitempty"`
}

// GetBatchSchoolAnalytics handles POST /api/finance/analytics/schools/batch
func (h *Handler) GetBatchSchoolAnalytics(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.write(w, http.StatusBadRequest, utils.ErrorResponse("Invalid request body", err.Error()))
		return
	}
	if len(req.SchoolIDs) == 0 {
		h.write(w, http.StatusBadRequest, utils.ErrorResponse("Invalid request body", "school_ids is required"))
		return
	}
	for _, id := range req.SchoolIDs {
		if !h.verifySchoolScope(w, r, id) {
			return
		}
	}

	schools, failed, err := h.Service.GetBatchSchoolAnalytics(r.Context(), req.SchoolIDs, req.Days)
	if err != nil {
		h.write(w, http.StatusBadRequest, utils.ErrorResponse("Invalid batch", err.Error()))
		return
	}
	if len(failed) > 0 {
		h.Logger.Warn("ANALYTICS", fmt.Sprintf("Batch analytics failed for %d of %d schools", len(failed), len(req.SchoolIDs)))
	}

	h.write(w, http.StatusOK, utils.SuccessResponse("Batch school analytics", batchResponse{Schools: schools, Failed: failed}))
}

func (h *Handler) daysParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := r.URL.Query().Get("days")
	if raw == "" {
		return analytics.DefaultTrendDays, true
	}
	days, err := strconv.Atoi(raw)
	if err != nil || days <= 0 {
		h.write(w, http.StatusBadRequest, utils.ErrorResponse("Invalid query", "days must be a positive integer"))
		return 0, false
	}
	return days, true
}

func (h *Handler) write(w http.ResponseWriter, status int, resp utils.APIResponse) {
	if err := utils.WriteJSON(w, status, resp); err != nil {
		h.Logger.Error("ANALYTICS", fmt.Sprintf("failed to encode response: %v", err))
	}
}

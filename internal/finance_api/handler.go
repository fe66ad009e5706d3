package finance_api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"ms-booking-finance/internal/auth"
	"ms-booking-finance/internal/logger"
	"ms-booking-finance/internal/models"
	"ms-booking-finance/internal/pricing"
	"ms-booking-finance/internal/reconciliation"
	"ms-booking-finance/internal/utils"

	"github.com/go-chi/chi/v5"
)

type FinanceService interface {
	AnalyzeBookingInScope(ctx context.Context, scope reconciliation.Scope, bookingID int64, refresh bool) (*reconciliation.FullReport, error)
	PriceBookingInScope(ctx context.Context, scope reconciliation.Scope, bookingID int64, opts pricing.Options) (*pricing.PriceBreakdown, error)
	RecalculateSchool(ctx context.Context, schoolID int64) (*reconciliation.BatchSummary, error)
}

type SnapshotReader interface {
	GetSnapshot(ctx context.Context, bookingID int64) (*models.FinancialSnapshot, error)
	ListInconsistentSnapshots(ctx context.Context, schoolID int64, limit int) ([]models.FinancialSnapshot, error)
}

const (
	defaultDiscrepancyLimit = 50
	maxDiscrepancyLimit     = 500
)

type Handler struct {
	Service   FinanceService
	Snapshots SnapshotReader
	Logger    *logger.Logger
}

func NewHandler(service FinanceService, snapshots SnapshotReader, log *logger.Logger) *Handler {
	return &Handler{Service: service, Snapshots: snapshots, Logger: log}
}

// Routes mounts the finance endpoints under /api/finance.
func (h *Handler) Routes(r chi.Router) {
	r.Route("/api/finance", func(r chi.Router) {
		r.Get("/bookings/{bookingId}/reality", h.GetFinancialReality)
		r.Get("/bookings/{bookingId}/price", h.GetPrice)
		r.Get("/bookings/{bookingId}/snapshot", h.GetSnapshot)
		r.Post("/schools/{schoolId}/recalculate", h.RecalculateSchool)
		r.Get("/schools/{schoolId}/discrepancies", h.ListDiscrepancies)
	})
}

func (h *Handler) GetFinancialReality(w http.ResponseWriter, r *http.Request) {
	bookingID, ok := h.idParam(w, r, "bookingId")
	if !ok {
		return
	}
	refresh, _ := strconv.ParseBool(r.URL.Query().Get("refresh"))
	h.Logger.Info("API", fmt.Sprintf("GetFinancialReality: bookingId=%d refresh=%t", bookingID, refresh))

	report, err := h.Service.AnalyzeBookingInScope(r.Context(), scopeOf(r), bookingID, refresh)
	if err != nil {
		h.writeServiceError(w, "GetFinancialReality", err)
		return
	}

	h.write(w, http.StatusOK, utils.SuccessResponse("Financial reality computed", report))
}

func (h *Handler) GetPrice(w http.ResponseWriter, r *http.Request) {
	bookingID, ok := h.idParam(w, r, "bookingId")
	if !ok {
		return
	}

	opts, err := parsePriceOptions(r)
	if err != nil {
		h.write(w, http.StatusBadRequest, utils.ErrorResponse("Invalid query", err.Error()))
		return
	}
	h.Logger.Info("API", fmt.Sprintf("GetPrice: bookingId=%d exclude=%d include_insurance=%t",
		bookingID, len(opts.ExcludeCourses), opts.IncludeInsurance))

	breakdown, err := h.Service.PriceBookingInScope(r.Context(), scopeOf(r), bookingID, opts)
	if err != nil {
		h.writeServiceError(w, "GetPrice", err)
		return
	}

	h.write(w, http.StatusOK, utils.SuccessResponse("Price computed", breakdown))
}

// GetSnapshot returns the last stored outcome without re-analyzing.
func (h *Handler) GetSnapshot(w http.ResponseWriter, r *http.Request) {
	bookingID, ok := h.idParam(w, r, "bookingId")
	if !ok {
		return
	}

	snapshot, err := h.Snapshots.GetSnapshot(r.Context(), bookingID)
	if err != nil {
		h.writeServiceError(w, "GetSnapshot", err)
		return
	}
	if !h.authorizeSchool(w, r, snapshot.SchoolID) {
		return
	}

	h.write(w, http.StatusOK, utils.SuccessResponse("Stored snapshot", snapshot))
}

func (h *Handler) RecalculateSchool(w http.ResponseWriter, r *http.Request) {
	schoolID, ok := h.idParam(w, r, "schoolId")
	if !ok {
		return
	}
	if !h.authorizeSchool(w, r, schoolID) {
		return
	}
	h.Logger.Info("API", fmt.Sprintf("RecalculateSchool: schoolId=%d by %s", schoolID, auth.UserID(r.Context())))

	summary, err := h.Service.RecalculateSchool(r.Context(), schoolID)
	if err != nil {
		h.writeServiceError(w, "RecalculateSchool", err)
		return
	}

	h.write(w, http.StatusOK, utils.SuccessResponse("School recalculated", summary))
}

func (h *Handler) ListDiscrepancies(w http.ResponseWriter, r *http.Request) {
	schoolID, ok := h.idParam(w, r, "schoolId")
	if !ok {
		return
	}
	if !h.authorizeSchool(w, r, schoolID) {
		return
	}

	limit := defaultDiscrepancyLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			h.write(w, http.StatusBadRequest, utils.ErrorResponse("Invalid query", "limit must be a positive integer"))
			return
		}
		limit = min(n, maxDiscrepancyLimit)
	}

	snapshots, err := h.Snapshots.ListInconsistentSnapshots(r.Context(), schoolID, limit)
	if err != nil {
		h.writeServiceError(w, "ListDiscrepancies", err)
		return
	}
	if snapshots == nil {
		snapshots = []models.FinancialSnapshot{}
	}

	h.write(w, http.StatusOK, utils.SuccessResponse("Inconsistent bookings", snapshots))
}

func parsePriceOptions(r *http.Request) (pricing.Options, error) {
	opts := pricing.DefaultOptions()
	q := r.URL.Query()

	if raw := q.Get("include_insurance"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return opts, fmt.Errorf("include_insurance must be a boolean")
		}
		opts.IncludeInsurance = v
	}

	if raw := q.Get("exclude_courses"); raw != "" {
		opts.ExcludeCourses = make(map[int64]bool)
		for _, part := range strings.Split(raw, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			id, err := strconv.ParseInt(part, 10, 64)
			if err != nil {
				return opts, fmt.Errorf("exclude_courses must be a comma separated list of ids")
			}
			opts.ExcludeCourses[id] = true
		}
	}
	return opts, nil
}

func (h *Handler) idParam(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		h.write(w, http.StatusBadRequest, utils.ErrorResponse("Invalid request", fmt.Sprintf("%s must be a positive integer", name)))
		return 0, false
	}
	return id, true
}

// scopeOf limits service calls to the school of a school-bound token.
func scopeOf(r *http.Request) reconciliation.Scope {
	if claims := auth.ClaimsFrom(r.Context()); claims != nil {
		return reconciliation.Scope{SchoolID: claims.SchoolID}
	}
	return reconciliation.Scope{}
}

// authorizeSchool rejects tokens scoped to another school. Unscoped tokens
// may read every school.
func (h *Handler) authorizeSchool(w http.ResponseWriter, r *http.Request, schoolID int64) bool {
	claims := auth.ClaimsFrom(r.Context())
	if claims == nil || claims.SchoolID == 0 || claims.SchoolID == schoolID {
		return true
	}
	h.Logger.LogSecurity("SCHOOL_SCOPE", fmt.Sprintf("%s scoped to school %d requested school %d", claims.Subject, claims.SchoolID, schoolID))
	h.write(w, http.StatusForbidden, utils.ErrorResponse("Forbidden", "token is not valid for this school"))
	return false
}

func (h *Handler) writeServiceError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, models.ErrBookingNotFound):
		h.Logger.Warn("API", fmt.Sprintf("%s: %v", op, err))
		h.write(w, http.StatusNotFound, utils.ErrorResponse("Booking not found", err.Error()))
	case errors.Is(err, models.ErrSnapshotNotFound):
		h.Logger.Warn("API", fmt.Sprintf("%s: %v", op, err))
		h.write(w, http.StatusNotFound, utils.ErrorResponse("Snapshot not found", err.Error()))
	case errors.Is(err, models.ErrForbiddenSchool):
		h.Logger.LogSecurity("SCHOOL_SCOPE", fmt.Sprintf("%s: %v", op, err))
		h.write(w, http.StatusForbidden, utils.ErrorResponse("Forbidden", "token is not valid for this school"))
	case errors.Is(err, models.ErrSchoolNotFound):
		h.Logger.Warn("API", fmt.Sprintf("%s: %v", op, err))
		h.write(w, http.StatusNotFound, utils.ErrorResponse("School not found", err.Error()))
	case errors.Is(err, models.ErrRecalculationBusy):
		h.Logger.Warn("API", fmt.Sprintf("%s: %v", op, err))
		h.write(w, http.StatusConflict, utils.ErrorResponse("Recalculation in progress", err.Error()))
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		h.Logger.Warn("API", fmt.Sprintf("%s: %v", op, err))
		h.write(w, http.StatusServiceUnavailable, utils.ErrorResponse("Request interrupted", err.Error()))
	default:
		h.Logger.Error("API", fmt.Sprintf("%s: %v", op, err))
		h.write(w, http.StatusInternalServerError, utils.ErrorResponse("Internal error", err.Error()))
	}
}

func (h *Handler) write(w http.ResponseWriter, status int, resp utils.APIResponse) {
	if err := utils.WriteJSON(w, status, resp); err != nil {
		h.Logger.Error("API", fmt.Sprintf("failed to encode response: %v", err))
	}
}

package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/jmoon/divtrack/internal/logger"
	"github.com/jmoon/divtrack/internal/models"
	"github.com/jmoon/divtrack/internal/queue"
	"github.com/jmoon/divtrack/internal/request"
	"github.com/jmoon/divtrack/internal/services/dividend"
	"github.com/jmoon/divtrack/internal/validation"
)

const (
	// MaxNameLength is the maximum length for a dividend name
	MaxNameLength = 200
)

// DividendHandler handles dividend-related requests
type DividendHandler struct {
	service *dividend.Service
	jobs    queue.JobQueue
	log     *zap.Logger
}

// NewDividendHandler creates a new dividend handler
func NewDividendHandler(service *dividend.Service, jobs queue.JobQueue, log *zap.Logger) *DividendHandler {
	return &DividendHandler{service: service, jobs: jobs, log: log}
}

// RegisterRoutes registers dividend routes on the given router
// The router should already have the /dividends prefix
func (h *DividendHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("", h.List).Methods("GET")
	r.HandleFunc("", h.Create).Methods("POST")
	r.HandleFunc("/statistics", h.Statistics).Methods("GET")
	r.HandleFunc("/{id}", h.Update).Methods("PUT")
	r.HandleFunc("/{id}", h.Delete).Methods("DELETE")
}

// CreateDividendRequest represents a create dividend request. The amount
// is a pointer so presence validation accepts a legitimate 0; amounts
// carry no sign restriction.
type CreateDividendRequest struct {
	Date     string   `json:"date" validate:"required"`
	Name     string   `json:"name" validate:"required,max=200"`
	Unit     string   `json:"unit" validate:"required,dividend_unit"`
	Dividend *float64 `json:"dividend" validate:"required"`
	Tax      *float64 `json:"tax,omitempty"`
}

// UpdateDividendRequest represents a partial update. Absent fields keep
// their stored values.
type UpdateDividendRequest struct {
	Date     *string  `json:"date,omitempty"`
	Name     *string  `json:"name,omitempty" validate:"omitempty,max=200"`
	Unit     *string  `json:"unit,omitempty" validate:"omitempty,dividend_unit"`
	Dividend *float64 `json:"dividend,omitempty"`
	Tax      *float64 `json:"tax,omitempty"`
}

// Create records a new dividend for the authenticated user
func (h *DividendHandler) Create(w http.ResponseWriter, r *http.Request) {
	user := request.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "user not found in context")
		return
	}

	var req CreateDividendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := validation.Validate.Struct(&req); err != nil {
		respondJSONError(w, http.StatusBadRequest, validationMessage(err))
		return
	}

	in := dividend.CreateInput{
		Date:     req.Date,
		Name:     validation.SanitizeText(req.Name),
		Unit:     models.DividendUnit(req.Unit),
		Dividend: *req.Dividend,
		Tax:      req.Tax,
	}
	if err := h.service.Create(r.Context(), user.ID, in); err != nil {
		if errors.Is(err, dividend.ErrInvalidDate) {
			respondJSONError(w, http.StatusBadRequest, "date must be an ISO 8601 date")
			return
		}
		h.log.Error("dividend_create_failed",
			zap.String("error", logger.SanitizeError(err)),
			zap.String("user_id", user.ID.String()),
		)
		respondJSONError(w, http.StatusInternalServerError, "failed to create dividend")
		return
	}

	h.enqueueInsightRefresh(r, user.ID)
	respondJSON(w, http.StatusCreated, nil)
}

// List returns one month of the user's dividends with pagination
func (h *DividendHandler) List(w http.ResponseWriter, r *http.Request) {
	user := request.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "user not found in context")
		return
	}

	q := dividend.ListQuery{
		Date: r.URL.Query().Get("date"),
	}
	if p := r.URL.Query().Get("page"); p != "" {
		if parsed, err := strconv.Atoi(p); err == nil {
			q.Page = parsed
		}
	}
	if pp := r.URL.Query().Get("perPage"); pp != "" {
		if parsed, err := strconv.Atoi(pp); err == nil {
			q.PerPage = parsed
		}
	}

	dividends, meta, err := h.service.List(r.Context(), user.ID, q)
	if err != nil {
		if errors.Is(err, dividend.ErrInvalidDate) {
			respondJSONError(w, http.StatusBadRequest, "date must be an ISO 8601 date")
			return
		}
		h.log.Error("dividend_list_failed",
			zap.String("error", logger.SanitizeError(err)),
			zap.String("user_id", user.ID.String()),
		)
		respondJSONError(w, http.StatusInternalServerError, "failed to list dividends")
		return
	}

	if dividends == nil {
		dividends = []*models.Dividend{}
	}
	respondJSONWithMeta(w, http.StatusOK, dividends, meta)
}

// Update applies a partial update to an owned dividend
func (h *DividendHandler) Update(w http.ResponseWriter, r *http.Request) {
	user := request.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "user not found in context")
		return
	}

	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "invalid dividend id")
		return
	}

	var req UpdateDividendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := validation.Validate.Struct(&req); err != nil {
		respondJSONError(w, http.StatusBadRequest, validationMessage(err))
		return
	}

	in := dividend.UpdateInput{
		Date:     req.Date,
		Dividend: req.Dividend,
		Tax:      req.Tax,
	}
	if req.Name != nil {
		name := validation.SanitizeText(*req.Name)
		in.Name = &name
	}
	if req.Unit != nil {
		unit := models.DividendUnit(*req.Unit)
		in.Unit = &unit
	}

	if err := h.service.Update(r.Context(), user.ID, id, in); err != nil {
		h.respondMutationError(w, err, user.ID, "dividend_update_failed")
		return
	}

	h.enqueueInsightRefresh(r, user.ID)
	respondJSON(w, http.StatusOK, nil)
}

// Delete removes an owned dividend
func (h *DividendHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user := request.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "user not found in context")
		return
	}

	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "invalid dividend id")
		return
	}

	if err := h.service.Delete(r.Context(), user.ID, id); err != nil {
		h.respondMutationError(w, err, user.ID, "dividend_delete_failed")
		return
	}

	h.enqueueInsightRefresh(r, user.ID)
	respondJSON(w, http.StatusOK, nil)
}

// Statistics returns per-month, per-currency aggregates over the user's
// full history
func (h *DividendHandler) Statistics(w http.ResponseWriter, r *http.Request) {
	user := request.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "user not found in context")
		return
	}

	stats, err := h.service.Statistics(r.Context(), user.ID)
	if err != nil {
		h.log.Error("dividend_statistics_failed",
			zap.String("error", logger.SanitizeError(err)),
			zap.String("user_id", user.ID.String()),
		)
		respondJSONError(w, http.StatusInternalServerError, "failed to compute statistics")
		return
	}

	respondJSON(w, http.StatusOK, stats)
}

func (h *DividendHandler) respondMutationError(w http.ResponseWriter, err error, userID uuid.UUID, event string) {
	switch {
	case errors.Is(err, dividend.ErrNotFound):
		respondJSONError(w, http.StatusNotFound, "dividend not found")
	case errors.Is(err, dividend.ErrForbidden):
		respondJSONError(w, http.StatusForbidden, "dividend does not belong to you")
	default:
		h.log.Error(event,
			zap.String("error", logger.SanitizeError(err)),
			zap.String("user_id", userID.String()),
		)
		respondJSONError(w, http.StatusInternalServerError, "internal server error")
	}
}

// enqueueInsightRefresh schedules a summary regeneration after a mutation.
// Failures are logged and ignored; the write already succeeded.
func (h *DividendHandler) enqueueInsightRefresh(r *http.Request, userID uuid.UUID) {
	if h.jobs == nil {
		return
	}
	job := queue.NewJob(queue.JobTypeInsightRefresh, userID)
	if err := h.jobs.Enqueue(r.Context(), job); err != nil {
		h.log.Warn("insight_refresh_enqueue_failed",
			zap.String("error", logger.SanitizeError(err)),
			zap.String("user_id", userID.String()),
		)
	}
}

// validationMessage flattens a validator error into a client-facing message
func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		switch fe.Tag() {
		case "required":
			return fe.Field() + " is required"
		case "dividend_unit":
			return "unit must be 'KRW' or 'USD'"
		case "max":
			return fe.Field() + " must be at most " + fe.Param() + " characters"
		case "min":
			return fe.Field() + " must be at least " + fe.Param() + " characters"
		case "email":
			return fe.Field() + " must be a valid email address"
		}
		return fe.Field() + " is invalid"
	}
	return "invalid request"
}

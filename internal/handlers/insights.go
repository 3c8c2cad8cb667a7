package handlers

import (
	"database/sql"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/jmoon/divtrack/internal/database"
	"github.com/jmoon/divtrack/internal/logger"
	"github.com/jmoon/divtrack/internal/models"
	"github.com/jmoon/divtrack/internal/queue"
	"github.com/jmoon/divtrack/internal/request"
)

// InsightHandler serves the stored dividend summary for the user
type InsightHandler struct {
	insights database.InsightRepositoryInterface
	jobs     queue.JobQueue
	log      *zap.Logger
}

// NewInsightHandler creates a new insight handler
func NewInsightHandler(insights database.InsightRepositoryInterface, jobs queue.JobQueue, log *zap.Logger) *InsightHandler {
	return &InsightHandler{insights: insights, jobs: jobs, log: log}
}

// RegisterRoutes registers insight routes on the given router
// The router should already have the /dividends prefix
func (h *InsightHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/insights", h.Get).Methods("GET")
}

// Get returns the latest stored summary. When none exists yet, a refresh
// job is queued and the client gets a 404 until the worker catches up.
func (h *InsightHandler) Get(w http.ResponseWriter, r *http.Request) {
	user := request.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "user not found in context")
		return
	}

	in, err := h.insights.GetByUserID(r.Context(), user.ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			h.enqueueRefresh(r, user)
			respondJSONError(w, http.StatusNotFound, "insights are not generated yet, try again shortly")
			return
		}
		h.log.Error("insight_lookup_failed",
			zap.String("error", logger.SanitizeError(err)),
			zap.String("user_id", user.ID.String()),
		)
		respondJSONError(w, http.StatusInternalServerError, "failed to load insights")
		return
	}

	respondJSON(w, http.StatusOK, in)
}

func (h *InsightHandler) enqueueRefresh(r *http.Request, user *models.User) {
	if h.jobs == nil {
		return
	}
	job := queue.NewJob(queue.JobTypeInsightRefresh, user.ID)
	if err := h.jobs.Enqueue(r.Context(), job); err != nil {
		h.log.Warn("insight_refresh_enqueue_failed",
			zap.String("error", logger.SanitizeError(err)),
			zap.String("user_id", user.ID.String()),
		)
	}
}

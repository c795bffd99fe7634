package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/declaro-arts/declaro-engine/pkg/apperrors"
	"github.com/declaro-arts/declaro-engine/pkg/models"
	"github.com/declaro-arts/declaro-engine/pkg/services"
)

// ============================================================================
// Request/Response Types
// ============================================================================

// SubmitResponse for POST /api/process-declarations. Reward is omitted when
// the submission carried no contributor id or the reward step failed.
type SubmitResponse struct {
	Success bool           `json:"success"`
	ID      uuid.UUID      `json:"id"`
	Reward  *models.Reward `json:"reward,omitempty"`
}

// ============================================================================
// Handler
// ============================================================================

// IngestHandler handles the process-declaration ingestion surface consumed
// by the browser extension. The extension posts from arbitrary origins, so
// the routes are wrapped in a permissive CORS policy scoped to this path.
type IngestHandler struct {
	rewardService services.RewardService
	statsService  services.StatsService
	logger        *zap.Logger
}

// NewIngestHandler creates a new ingest handler.
func NewIngestHandler(
	rewardService services.RewardService,
	statsService services.StatsService,
	logger *zap.Logger,
) *IngestHandler {
	return &IngestHandler{
		rewardService: rewardService,
		statsService:  statsService,
		logger:        logger,
	}
}

// RegisterRoutes registers the ingest handler's routes on the given mux.
func (h *IngestHandler) RegisterRoutes(mux *http.ServeMux) {
	// Any origin may submit; preflight answers 204 per the extension
	// contract. GET stays reachable same-origin for the stats pages.
	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
	})

	mux.Handle("POST /api/process-declarations", c.Handler(http.HandlerFunc(h.Submit)))
	mux.Handle("GET /api/process-declarations", c.Handler(http.HandlerFunc(h.Stats)))
	mux.Handle("OPTIONS /api/process-declarations", c.Handler(http.HandlerFunc(h.preflight)))
}

// preflight answers OPTIONS requests that the CORS layer did not already
// classify as a preflight and terminate itself.
func (h *IngestHandler) preflight(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

// Submit handles POST /api/process-declarations
func (h *IngestHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var input models.ProcessDeclarationInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid JSON payload")
		return
	}

	result, err := h.rewardService.Submit(r.Context(), &input)
	if err != nil {
		var vErr *apperrors.ValidationError
		switch {
		case errors.As(err, &vErr):
			h.writeError(w, http.StatusBadRequest, vErr.Error())
		case errors.Is(err, apperrors.ErrConflict):
			h.writeError(w, http.StatusConflict, "Process declaration already recorded")
		default:
			h.logger.Error("Failed to ingest process declaration", zap.Error(err))
			h.writeError(w, http.StatusInternalServerError, "Failed to record process declaration")
		}
		return
	}

	response := SubmitResponse{
		Success: true,
		ID:      result.ID,
		Reward:  result.Reward,
	}
	if err := WriteJSON(w, http.StatusCreated, response); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Stats handles GET /api/process-declarations
// With a contributorId query parameter it returns that contributor's public
// stats; without one it returns the consented aggregate.
func (h *IngestHandler) Stats(w http.ResponseWriter, r *http.Request) {
	contributorID := r.URL.Query().Get("contributorId")

	if contributorID != "" {
		stats, err := h.statsService.ContributorStats(r.Context(), contributorID)
		if err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				h.writeError(w, http.StatusNotFound, "Contributor not found")
				return
			}
			h.logger.Error("Failed to get contributor stats",
				zap.String("contributor_id", contributorID),
				zap.Error(err))
			h.writeError(w, http.StatusInternalServerError, "Failed to load contributor stats")
			return
		}

		if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: stats}); err != nil {
			h.logger.Error("Failed to write response", zap.Error(err))
		}
		return
	}

	stats, err := h.statsService.AggregateStats(r.Context())
	if err != nil {
		h.logger.Error("Failed to get aggregate stats", zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "Failed to load aggregate stats")
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: stats}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// writeError emits the {success:false, error} shape the extension expects.
func (h *IngestHandler) writeError(w http.ResponseWriter, statusCode int, message string) {
	if err := WriteJSON(w, statusCode, ApiResponse{Success: false, Error: message}); err != nil {
		h.logger.Error("Failed to write error response", zap.Error(err))
	}
}

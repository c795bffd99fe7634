package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/declaro-arts/declaro-engine/pkg/apperrors"
	"github.com/declaro-arts/declaro-engine/pkg/services"
)

// ============================================================================
// Request/Response Types
// ============================================================================

// UpdateTasteScoreRequest for POST /api/contributors/{cid}/taste-score
type UpdateTasteScoreRequest struct {
	AlignmentScore *float64 `json:"alignmentScore"`
}

// TasteScoreResponse reports the taste score after an update.
type TasteScoreResponse struct {
	TasteScore float64 `json:"tasteScore"`
}

// ============================================================================
// Handler
// ============================================================================

// ContributorsHandler handles contributor reputation HTTP requests.
type ContributorsHandler struct {
	rewardService services.RewardService
	logger        *zap.Logger
}

// NewContributorsHandler creates a new contributors handler.
func NewContributorsHandler(rewardService services.RewardService, logger *zap.Logger) *ContributorsHandler {
	return &ContributorsHandler{
		rewardService: rewardService,
		logger:        logger,
	}
}

// RegisterRoutes registers the contributors handler's routes on the given mux.
func (h *ContributorsHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/contributors/{cid}/taste-score", h.UpdateTasteScore)
}

// UpdateTasteScore handles POST /api/contributors/{cid}/taste-score
// Folds a consensus-alignment measurement into the contributor's taste
// score. Unknown contributors get the neutral score back without a record
// being created.
func (h *ContributorsHandler) UpdateTasteScore(w http.ResponseWriter, r *http.Request) {
	contributorID := r.PathValue("cid")
	if contributorID == "" {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_contributor_id", "Contributor ID is required"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	var req UpdateTasteScoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid request body"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}
	if req.AlignmentScore == nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "validation_failed", "alignmentScore: is required"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	newScore, err := h.rewardService.UpdateTasteScore(r.Context(), contributorID, *req.AlignmentScore)
	if err != nil {
		var vErr *apperrors.ValidationError
		if errors.As(err, &vErr) {
			if err := ErrorResponse(w, http.StatusBadRequest, "validation_failed", vErr.Error()); err != nil {
				h.logger.Error("Failed to write error response", zap.Error(err))
			}
			return
		}

		h.logger.Error("Failed to update taste score",
			zap.String("contributor_id", contributorID),
			zap.Error(err))
		if err := ErrorResponse(w, http.StatusInternalServerError, "update_taste_score_failed", err.Error()); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: TasteScoreResponse{TasteScore: newScore}}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

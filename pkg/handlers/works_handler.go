package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/declaro-arts/declaro-engine/pkg/apperrors"
	"github.com/declaro-arts/declaro-engine/pkg/services"
)

// ============================================================================
// Request/Response Types
// ============================================================================

// CreateRevisionRequest for POST /api/declarations/{did}/revisions.
// Omitted override fields mean the declaration value is unchanged.
type CreateRevisionRequest struct {
	ChangeNote   string  `json:"changeNote"`
	Intent       *string `json:"intent,omitempty"`
	Tools        *string `json:"tools,omitempty"`
	AIUsed       *bool   `json:"aiUsed,omitempty"`
	Contributors *string `json:"contributors,omitempty"`
}

// ============================================================================
// Handler
// ============================================================================

// WorksHandler handles the work ledger HTTP surface: creation, detail,
// revisions, and export.
type WorksHandler struct {
	ledgerService   services.LedgerService
	maxUploadMemory int64
	logger          *zap.Logger
}

// NewWorksHandler creates a new works handler.
func NewWorksHandler(
	ledgerService services.LedgerService,
	maxUploadMemory int64,
	logger *zap.Logger,
) *WorksHandler {
	return &WorksHandler{
		ledgerService:   ledgerService,
		maxUploadMemory: maxUploadMemory,
		logger:          logger,
	}
}

// RegisterRoutes registers the works handler's routes on the given mux.
func (h *WorksHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/works", h.Create)
	mux.HandleFunc("GET /api/works/{wid}", h.Get)
	mux.HandleFunc("GET /api/works/{wid}/export", h.Export)
	mux.HandleFunc("POST /api/declarations/{did}/revisions", h.CreateRevision)
}

// Create handles POST /api/works
// Accepts a multipart form with title/intent/tools/aiUsed/contributors plus
// zero or more audioFiles uploads, and creates the work with its declaration.
func (h *WorksHandler) Create(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(h.maxUploadMemory); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_form", "Invalid multipart form"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	input := services.CreateWorkInput{
		Title:        r.FormValue("title"),
		Intent:       r.FormValue("intent"),
		Tools:        r.FormValue("tools"),
		AIUsed:       parseCheckbox(r.FormValue("aiUsed")),
		Contributors: r.FormValue("contributors"),
	}

	for _, fh := range r.MultipartForm.File["audioFiles"] {
		file, err := fh.Open()
		if err != nil {
			if err := ErrorResponse(w, http.StatusBadRequest, "invalid_upload", fmt.Sprintf("Could not read upload %q", fh.Filename)); err != nil {
				h.logger.Error("Failed to write error response", zap.Error(err))
			}
			return
		}
		defer file.Close() //nolint:errcheck // read-only temp file, closed on handler exit

		input.AudioFiles = append(input.AudioFiles, services.AudioUpload{
			Filename: fh.Filename,
			Size:     fh.Size,
			Content:  file,
		})
	}

	detail, err := h.ledgerService.CreateWork(r.Context(), input)
	if err != nil {
		var vErr *apperrors.ValidationError
		if errors.As(err, &vErr) {
			if err := ErrorResponse(w, http.StatusBadRequest, "validation_failed", vErr.Error()); err != nil {
				h.logger.Error("Failed to write error response", zap.Error(err))
			}
			return
		}

		h.logger.Error("Failed to create work", zap.Error(err))
		if err := ErrorResponse(w, http.StatusInternalServerError, "create_work_failed", err.Error()); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	w.Header().Set("Location", "/works/"+detail.Work.ID.String())
	if err := WriteJSON(w, http.StatusCreated, ApiResponse{Success: true, Data: detail}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Get handles GET /api/works/{wid}
func (h *WorksHandler) Get(w http.ResponseWriter, r *http.Request) {
	workID, ok := ParseWorkID(w, r, h.logger)
	if !ok {
		return
	}

	detail, err := h.ledgerService.GetWork(r.Context(), workID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			if err := ErrorResponse(w, http.StatusNotFound, "work_not_found", "Work not found"); err != nil {
				h.logger.Error("Failed to write error response", zap.Error(err))
			}
			return
		}

		h.logger.Error("Failed to get work",
			zap.String("work_id", workID.String()),
			zap.Error(err))
		if err := ErrorResponse(w, http.StatusInternalServerError, "get_work_failed", err.Error()); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: detail}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Export handles GET /api/works/{wid}/export
// Returns the portable declaration document as a JSON download.
func (h *WorksHandler) Export(w http.ResponseWriter, r *http.Request) {
	workID, ok := ParseWorkID(w, r, h.logger)
	if !ok {
		return
	}

	doc, err := h.ledgerService.ExportWork(r.Context(), workID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			if err := ErrorResponse(w, http.StatusNotFound, "work_not_found", "Work not found"); err != nil {
				h.logger.Error("Failed to write error response", zap.Error(err))
			}
			return
		}

		h.logger.Error("Failed to export work",
			zap.String("work_id", workID.String()),
			zap.Error(err))
		if err := ErrorResponse(w, http.StatusInternalServerError, "export_work_failed", err.Error()); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"declaro-work-%s.json\"", workID))
	if err := WriteJSON(w, http.StatusOK, doc); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// CreateRevision handles POST /api/declarations/{did}/revisions
func (h *WorksHandler) CreateRevision(w http.ResponseWriter, r *http.Request) {
	declarationID, ok := ParseDeclarationID(w, r, h.logger)
	if !ok {
		return
	}

	var req CreateRevisionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid request body"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	input := services.CreateRevisionInput{
		ChangeNote:   req.ChangeNote,
		Intent:       req.Intent,
		Tools:        req.Tools,
		AIUsed:       req.AIUsed,
		Contributors: req.Contributors,
	}

	if err := h.ledgerService.CreateRevision(r.Context(), declarationID, input); err != nil {
		var vErr *apperrors.ValidationError
		switch {
		case errors.As(err, &vErr):
			if err := ErrorResponse(w, http.StatusBadRequest, "validation_failed", vErr.Error()); err != nil {
				h.logger.Error("Failed to write error response", zap.Error(err))
			}
		case errors.Is(err, apperrors.ErrNotFound):
			if err := ErrorResponse(w, http.StatusNotFound, "declaration_not_found", "Declaration not found"); err != nil {
				h.logger.Error("Failed to write error response", zap.Error(err))
			}
		default:
			h.logger.Error("Failed to append revision",
				zap.String("declaration_id", declarationID.String()),
				zap.Error(err))
			if err := ErrorResponse(w, http.StatusInternalServerError, "create_revision_failed", err.Error()); err != nil {
				h.logger.Error("Failed to write error response", zap.Error(err))
			}
		}
		return
	}

	if err := WriteJSON(w, http.StatusCreated, ApiResponse{Success: true, Message: "Revision appended"}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// parseCheckbox interprets the submitted value of an HTML checkbox.
func parseCheckbox(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "on", "true", "1", "yes":
		return true
	default:
		return false
	}
}

package services

import (
	"fmt"
	"strings"
	"time"

	"github.com/declaro-arts/declaro-engine/pkg/apperrors"
	"github.com/declaro-arts/declaro-engine/pkg/models"
)

// ValidateProcessInput is the structural gate in front of ingestion. Checks
// run in a fixed order and stop at the first failure; messages name the
// offending field, with the entry index for sequence elements.
func ValidateProcessInput(input *models.ProcessDeclarationInput) error {
	if strings.TrimSpace(input.Platform) == "" {
		return apperrors.NewValidationError("platform", "is required")
	}

	if strings.TrimSpace(input.SessionStartedAt) == "" {
		return apperrors.NewValidationError("sessionStartedAt", "is required")
	}
	if _, err := time.Parse(time.RFC3339, input.SessionStartedAt); err != nil {
		return apperrors.NewValidationError("sessionStartedAt", "must be a valid RFC 3339 timestamp")
	}

	if input.PromptLineage == nil {
		return apperrors.NewValidationError("promptLineage", "is required")
	}
	for i, pv := range input.PromptLineage {
		switch {
		case pv.ID == "":
			return apperrors.NewValidationError(fmt.Sprintf("promptLineage[%d].id", i), "is required")
		case pv.Content == "":
			return apperrors.NewValidationError(fmt.Sprintf("promptLineage[%d].content", i), "is required")
		case pv.Timestamp == "":
			return apperrors.NewValidationError(fmt.Sprintf("promptLineage[%d].timestamp", i), "is required")
		case pv.Mode == "":
			return apperrors.NewValidationError(fmt.Sprintf("promptLineage[%d].mode", i), "is required")
		}
	}

	if input.RejectedOutputs == nil {
		return apperrors.NewValidationError("rejectedOutputs", "is required")
	}
	for i, ro := range input.RejectedOutputs {
		switch {
		case ro.ID == "":
			return apperrors.NewValidationError(fmt.Sprintf("rejectedOutputs[%d].id", i), "is required")
		case ro.PromptVersionID == "":
			return apperrors.NewValidationError(fmt.Sprintf("rejectedOutputs[%d].promptVersionId", i), "is required")
		case ro.Timestamp == "":
			return apperrors.NewValidationError(fmt.Sprintf("rejectedOutputs[%d].timestamp", i), "is required")
		}
	}

	if so := input.SelectedOutput; so != nil {
		switch {
		case so.ID == "":
			return apperrors.NewValidationError("selectedOutput.id", "is required")
		case so.PromptVersionID == "":
			return apperrors.NewValidationError("selectedOutput.promptVersionId", "is required")
		case so.Timestamp == "":
			return apperrors.NewValidationError("selectedOutput.timestamp", "is required")
		}
	}

	if input.ConsentForTrainingData && (input.ConsentTimestamp == nil || *input.ConsentTimestamp == "") {
		return apperrors.NewValidationError("consentTimestamp", "is required when consent is granted")
	}

	return nil
}

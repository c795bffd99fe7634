package models

import (
	"time"

	"github.com/google/uuid"
)

// PromptVersion is one entry in a session's prompt lineage. Entry
// timestamps are recorded verbatim as the extension reported them.
type PromptVersion struct {
	ID        string  `json:"id"`
	Content   string  `json:"content"`
	Timestamp string  `json:"timestamp"`
	ParentID  *string `json:"parentId"`
	Mode      string  `json:"mode"`
	Platform  string  `json:"platform,omitempty"`
}

// RejectedOutput records one discarded generation and, optionally, why it
// was discarded.
type RejectedOutput struct {
	ID              string  `json:"id"`
	PromptVersionID string  `json:"promptVersionId"`
	Timestamp       string  `json:"timestamp"`
	Reason          *string `json:"reason,omitempty"`
	Feedback        *string `json:"feedback,omitempty"`
}

// SelectedOutput records the generation the contributor kept.
type SelectedOutput struct {
	ID              string  `json:"id"`
	PromptVersionID string  `json:"promptVersionId"`
	Timestamp       string  `json:"timestamp"`
	LikeReason      *string `json:"likeReason,omitempty"`
	Feedback        *string `json:"feedback,omitempty"`
	OutputHash      *string `json:"outputHash,omitempty"`
}

// ProcessDeclarationInput is the raw ingestion payload submitted by the
// browser extension. Timestamps arrive as strings so that validation can
// report field-level failures instead of opaque JSON decode errors.
type ProcessDeclarationInput struct {
	// ID is optional and extension-generated; resubmissions of the same
	// capture carry the same value, which surfaces as a duplicate-key
	// conflict rather than a second record.
	ID                     *string          `json:"id,omitempty"`
	Platform               string           `json:"platform"`
	ContributorID          *string          `json:"contributorId,omitempty"`
	SessionStartedAt       string           `json:"sessionStartedAt"`
	SessionEndedAt         *string          `json:"sessionEndedAt,omitempty"`
	SessionDuration        *int             `json:"sessionDuration,omitempty"` // seconds
	IterationCount         int              `json:"iterationCount"`
	PromptLineage          []PromptVersion  `json:"promptLineage"`
	RejectedOutputs        []RejectedOutput `json:"rejectedOutputs"`
	SelectedOutput         *SelectedOutput  `json:"selectedOutput,omitempty"`
	ConsentForTrainingData bool             `json:"consentForTrainingData"`
	ConsentTimestamp       *string          `json:"consentTimestamp,omitempty"`
	ConsentVersion         *string          `json:"consentVersion,omitempty"`
	ExpertiseTags          []string         `json:"expertiseTags,omitempty"`
}

// ProcessDeclaration is the persisted record of one AI-assisted creative
// session. Created once per submission; never mutated.
// Stored in declaro_process_declarations table.
type ProcessDeclaration struct {
	ID                     uuid.UUID        `json:"id"`
	Platform               Platform         `json:"platform"`
	ContributorID          *string          `json:"contributorId,omitempty"`
	SessionStartedAt       time.Time        `json:"sessionStartedAt"`
	SessionEndedAt         *time.Time       `json:"sessionEndedAt,omitempty"`
	SessionDuration        *int             `json:"sessionDuration,omitempty"` // seconds
	IterationCount         int              `json:"iterationCount"`
	PromptLineage          []PromptVersion  `json:"promptLineage"`
	RejectedOutputs        []RejectedOutput `json:"rejectedOutputs"`
	SelectedOutput         *SelectedOutput  `json:"selectedOutput,omitempty"`
	ConsentForTrainingData bool             `json:"consentForTrainingData"`
	ConsentTimestamp       *string          `json:"consentTimestamp,omitempty"`
	ConsentVersion         *string          `json:"consentVersion,omitempty"`
	ExpertiseTags          []string         `json:"expertiseTags,omitempty"`
	CreatedAt              time.Time        `json:"createdAt"`
}

package models

import (
	"time"

	"github.com/google/uuid"
)

// Declaration is the creation-time authorship claim for a Work. Its fields
// are never mutated once created; all changes are captured as child
// DeclarationRevision records.
// Stored in declaro_declarations table.
type Declaration struct {
	ID           uuid.UUID `json:"id"`
	WorkID       uuid.UUID `json:"workId"`
	Intent       string    `json:"intent"`
	Tools        string    `json:"tools"`
	AIUsed       bool      `json:"aiUsed"`
	Contributors *string   `json:"contributors"`
	CreatedAt    time.Time `json:"createdAt"`
}

// DeclarationRevision is an append-only amendment to a Declaration. A nil
// override field means "unchanged", never "cleared" — the distinction
// matters and must survive storage round-trips.
// Stored in declaro_declaration_revisions table.
type DeclarationRevision struct {
	ID            uuid.UUID `json:"id"`
	DeclarationID uuid.UUID `json:"declarationId"`
	ChangeNote    string    `json:"changeNote"`
	Intent        *string   `json:"intent"`
	Tools         *string   `json:"tools"`
	AIUsed        *bool     `json:"aiUsed"`
	Contributors  *string   `json:"contributors"`
	CreatedAt     time.Time `json:"createdAt"`
}

// AudioReference binds a SHA-256 digest of an audio artifact to a
// Declaration. The file itself is never stored. References are created only
// at declaration-creation time and never mutated afterward.
// Stored in declaro_audio_references table.
type AudioReference struct {
	ID            uuid.UUID `json:"id"`
	DeclarationID uuid.UUID `json:"declarationId"`
	Filename      string    `json:"filename"`
	SHA256        string    `json:"sha256"`
	Description   *string   `json:"description,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}

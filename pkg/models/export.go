package models

import "time"

// Export document identity. Bump ExportVersion when the document shape
// changes incompatibly.
const (
	ExportProtocol = "declaro.export"
	ExportVersion  = "1.0"
)

// WorkExport is the versioned portable document produced by the export
// endpoint. All timestamps are RFC 3339 in UTC. Revision override fields
// serialize as null when a revision left them unchanged.
type WorkExport struct {
	Protocol        string                 `json:"protocol"`
	Version         string                 `json:"version"`
	ExportedAt      time.Time              `json:"exportedAt"`
	Work            ExportWork             `json:"work"`
	Declaration     *ExportDeclaration     `json:"declaration"`
	AudioReferences []ExportAudioReference `json:"audioReferences"`
	Revisions       []ExportRevision       `json:"revisions"`
}

// ExportWork carries the work attributes in the export document.
type ExportWork struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"createdAt"`
}

// ExportDeclaration carries the original declaration verbatim.
type ExportDeclaration struct {
	ID           string    `json:"id"`
	Intent       string    `json:"intent"`
	Tools        string    `json:"tools"`
	AIUsed       bool      `json:"aiUsed"`
	Contributors *string   `json:"contributors"`
	CreatedAt    time.Time `json:"createdAt"`
}

// ExportAudioReference carries one audio fingerprint binding.
type ExportAudioReference struct {
	ID          string    `json:"id"`
	Filename    string    `json:"filename"`
	SHA256      string    `json:"sha256"`
	Description *string   `json:"description"`
	CreatedAt   time.Time `json:"createdAt"`
}

// ExportRevision carries one amendment entry. Null override fields mean
// the revision did not touch that attribute.
type ExportRevision struct {
	ID           string    `json:"id"`
	ChangeNote   string    `json:"changeNote"`
	Intent       *string   `json:"intent"`
	Tools        *string   `json:"tools"`
	AIUsed       *bool     `json:"aiUsed"`
	Contributors *string   `json:"contributors"`
	CreatedAt    time.Time `json:"createdAt"`
}

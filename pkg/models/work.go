// Package models contains domain types for declaro-engine.
package models

import (
	"time"

	"github.com/google/uuid"
)

// Work represents a creative artifact. Every Work owns exactly one
// Declaration, created atomically with it. A Work is immutable after
// creation except for the owned Declaration's sub-records.
// Stored in declaro_works table.
type Work struct {
	ID        uuid.UUID `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"createdAt"`
}

// WorkDetail bundles a Work with its full declaration history for read
// endpoints. Revisions are ordered oldest first, as are audio references.
type WorkDetail struct {
	Work            *Work                  `json:"work"`
	Declaration     *Declaration           `json:"declaration"`
	Revisions       []*DeclarationRevision `json:"revisions"`
	AudioReferences []*AudioReference      `json:"audioReferences"`
}

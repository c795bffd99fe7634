package models

import "time"

// Tier is a reputation bracket derived from cumulative points.
type Tier string

const (
	TierExplorer   Tier = "explorer"
	TierCurator    Tier = "curator"
	TierTastemaker Tier = "tastemaker"
	TierOracle     Tier = "oracle"
)

// Tier thresholds in cumulative points. Each tier covers [min, nextMin).
const (
	tierCuratorMin    = 100
	tierTastemakerMin = 500
	tierOracleMin     = 2000
)

// TierForPoints classifies a cumulative point total into a tier.
func TierForPoints(points int) Tier {
	switch {
	case points >= tierOracleMin:
		return TierOracle
	case points >= tierTastemakerMin:
		return TierTastemaker
	case points >= tierCuratorMin:
		return TierCurator
	default:
		return TierExplorer
	}
}

// NeutralTasteScore is the starting taste score for an unseen contributor.
const NeutralTasteScore = 0.5

// PlatformStat tracks per-platform counters for a contributor. Accuracy is
// a placeholder for a future consensus-alignment measure and is not yet
// updated by any operation.
type PlatformStat struct {
	Contributions int     `json:"contributions"`
	Accuracy      float64 `json:"accuracy"`
}

// Contributor is the cumulative reputation state for an anonymous
// identifier. Expertise tags only ever grow (set union); the tier is
// recomputed from the point total on every contribution.
// Stored in declaro_contributors table, keyed by anon_id.
type Contributor struct {
	AnonID             string                    `json:"anonId"`
	TotalContributions int                       `json:"totalContributions"`
	TotalPoints        int                       `json:"totalPoints"`
	CurrentTier        Tier                      `json:"currentTier"`
	TasteScore         float64                   `json:"tasteScore"`
	ExpertiseTags      []string                  `json:"expertiseTags"`
	PlatformStats      map[Platform]PlatformStat `json:"platformStats"`
	ConsentTraining    bool                      `json:"consentForTrainingData"`
	ConsentTimestamp   *string                   `json:"consentTimestamp,omitempty"`
	CreatedAt          time.Time                 `json:"createdAt"`
	UpdatedAt          time.Time                 `json:"updatedAt"`
}

// NewContributor returns the lazily-created initial state for an unseen
// anonymous identifier: neutral taste score, explorer tier, no history.
func NewContributor(anonID string) *Contributor {
	return &Contributor{
		AnonID:        anonID,
		CurrentTier:   TierExplorer,
		TasteScore:    NeutralTasteScore,
		ExpertiseTags: []string{},
		PlatformStats: map[Platform]PlatformStat{},
	}
}

// ContributorStats is the public per-contributor view returned by the
// ingestion endpoint. It omits consent metadata and the identifier itself.
type ContributorStats struct {
	TotalContributions int                       `json:"totalContributions"`
	TotalPoints        int                       `json:"totalPoints"`
	CurrentTier        Tier                      `json:"currentTier"`
	TasteScore         float64                   `json:"tasteScore"`
	ExpertiseTags      []string                  `json:"expertiseTags"`
	PlatformStats      map[Platform]PlatformStat `json:"platformStats"`
}

// AggregateStats summarizes contribution activity across contributors who
// granted training consent.
type AggregateStats struct {
	Contributors         int              `json:"contributors"`
	TotalContributions   int              `json:"totalContributions"`
	TotalPoints          int              `json:"totalPoints"`
	PlatformDistribution map[Platform]int `json:"platformDistribution"`
}

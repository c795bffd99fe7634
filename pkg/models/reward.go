package models

// TierChange reports a tier transition caused by a point award.
type TierChange struct {
	From Tier `json:"from"`
	To   Tier `json:"to"`
}

// Reward is the outcome of scoring one process declaration against a
// contributor's current state. TierChange is set only when the award moved
// the contributor across a tier boundary.
type Reward struct {
	PointsEarned      int         `json:"pointsEarned"`
	NewTotal          int         `json:"newTotal"`
	TierChange        *TierChange `json:"tierChange,omitempty"`
	QualityMultiplier float64     `json:"qualityMultiplier"`
	RarityBonus       float64     `json:"rarityBonus"`
}

package services

import (
	"math"
	"strings"

	"github.com/declaro-arts/declaro-engine/pkg/models"
)

// Scoring weights and caps for the contribution reward formula. The
// computation order is fixed: base points first, then the quality and
// rarity multipliers, then a single rounding step.
const (
	scoreBase             = 10
	scorePerPromptVersion = 2
	scorePromptLineageCap = 20
	scorePerRejection     = 3
	scoreRejectionCap     = 30
	scoreSelectedOutput   = 10
	scoreLikeReason       = 5
	scoreFeedback         = 10
	scorePerExpertiseTag  = 2
	scoreExpertiseTagCap  = 6

	qualityFloor = 0.5
)

// Session-length bonus thresholds, in minutes.
const (
	durationLongMinutes  = 15
	durationMidMinutes   = 5
	durationShortMinutes = 2
	durationLongBonus    = 10
	durationMidBonus     = 5
	durationShortBonus   = 2
)

// basePoints computes the raw point total for a process declaration before
// the quality and rarity multipliers are applied.
func basePoints(pd *models.ProcessDeclaration) int {
	points := scoreBase

	points += min(scorePerPromptVersion*len(pd.PromptLineage), scorePromptLineageCap)
	points += min(scorePerRejection*len(pd.RejectedOutputs), scoreRejectionCap)

	if so := pd.SelectedOutput; so != nil {
		points += scoreSelectedOutput
		if so.LikeReason != nil && *so.LikeReason != "" {
			points += scoreLikeReason
		}
		if so.Feedback != nil && *so.Feedback != "" {
			points += scoreFeedback
		}
	}

	points += durationBonus(pd.SessionDuration)
	points += min(scorePerExpertiseTag*len(pd.ExpertiseTags), scoreExpertiseTagCap)

	return points
}

// durationBonus rewards longer sessions. A missing duration contributes
// nothing rather than disqualifying the submission.
func durationBonus(durationSeconds *int) int {
	if durationSeconds == nil {
		return 0
	}

	minutes := *durationSeconds / 60
	switch {
	case minutes >= durationLongMinutes:
		return durationLongBonus
	case minutes >= durationMidMinutes:
		return durationMidBonus
	case minutes >= durationShortMinutes:
		return durationShortBonus
	default:
		return 0
	}
}

// computeReward scores a process declaration against the contributor's
// current state. Pure: identical inputs always yield the identical reward.
func computeReward(pd *models.ProcessDeclaration, contributor *models.Contributor) *models.Reward {
	base := basePoints(pd)
	quality := qualityFloor + contributor.TasteScore
	rarity := pd.Platform.RarityMultiplier()

	earned := int(math.Round(float64(base) * quality * rarity))
	newTotal := contributor.TotalPoints + earned

	reward := &models.Reward{
		PointsEarned:      earned,
		NewTotal:          newTotal,
		QualityMultiplier: quality,
		RarityBonus:       rarity,
	}

	newTier := models.TierForPoints(newTotal)
	if newTier != contributor.CurrentTier {
		reward.TierChange = &models.TierChange{From: contributor.CurrentTier, To: newTier}
	}

	return reward
}

// applyContribution folds one scored submission into a copy of the
// contributor's cumulative state. The tag set and platform counters are
// monotonic: they only ever grow.
func applyContribution(c *models.Contributor, pd *models.ProcessDeclaration, reward *models.Reward) *models.Contributor {
	updated := *c
	updated.TotalContributions = c.TotalContributions + 1
	updated.TotalPoints = reward.NewTotal
	updated.CurrentTier = models.TierForPoints(reward.NewTotal)
	updated.ExpertiseTags = unionTags(c.ExpertiseTags, pd.ExpertiseTags)

	stats := make(map[models.Platform]models.PlatformStat, len(c.PlatformStats)+1)
	for platform, stat := range c.PlatformStats {
		stats[platform] = stat
	}
	stat := stats[pd.Platform]
	stat.Contributions++
	stats[pd.Platform] = stat
	updated.PlatformStats = stats

	updated.ConsentTraining = pd.ConsentForTrainingData
	updated.ConsentTimestamp = nil
	if pd.ConsentForTrainingData {
		updated.ConsentTimestamp = pd.ConsentTimestamp
	}

	return &updated
}

// unionTags merges incoming tags into the existing set, preserving
// first-seen order and dropping blanks and duplicates.
func unionTags(existing, incoming []string) []string {
	seen := make(map[string]struct{}, len(existing)+len(incoming))
	merged := make([]string, 0, len(existing)+len(incoming))

	for _, tag := range append(append([]string{}, existing...), incoming...) {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		merged = append(merged, tag)
	}

	return merged
}

// clamp01 bounds v to [0, 1].
func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

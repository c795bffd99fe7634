package services

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/declaro-arts/declaro-engine/pkg/apperrors"
	"github.com/declaro-arts/declaro-engine/pkg/logging"
	"github.com/declaro-arts/declaro-engine/pkg/models"
	"github.com/declaro-arts/declaro-engine/pkg/repositories"
	"github.com/declaro-arts/declaro-engine/pkg/screening"
)

// contributorUpdateRetries bounds the guarded-update retry loop on
// contributor state. Contention on a single anonymous id is rare; when the
// loop is exhausted the reward is dropped, never the submission.
const contributorUpdateRetries = 3

// Exponential moving average weights for taste score updates.
const (
	tasteScoreKeep  = 0.8
	tasteScoreBlend = 0.2
)

// SubmissionResult reports the outcome of one ingestion submission. Reward
// is nil when the payload carried no contributor id, or when the reward
// step failed after the process declaration was committed.
type SubmissionResult struct {
	ID     uuid.UUID      `json:"id"`
	Reward *models.Reward `json:"reward,omitempty"`
}

// RewardService ingests process declarations and maintains contributor
// reputation state.
type RewardService interface {
	// Submit validates, screens, and persists one process capture, then
	// applies the contribution reward. A reward failure after the record
	// is committed is logged and swallowed; the submission still succeeds.
	Submit(ctx context.Context, input *models.ProcessDeclarationInput) (*SubmissionResult, error)

	// UpdateTasteScore folds a consensus-alignment measurement into a
	// contributor's taste score. Unknown contributors get the neutral
	// score back without a record being created.
	UpdateTasteScore(ctx context.Context, contributorID string, alignmentScore float64) (float64, error)
}

type rewardService struct {
	processRepo     repositories.ProcessRepository
	contributorRepo repositories.ContributorRepository
	screener        *screening.Screener
	logger          *zap.Logger
}

// NewRewardService creates a new RewardService.
func NewRewardService(
	processRepo repositories.ProcessRepository,
	contributorRepo repositories.ContributorRepository,
	screener *screening.Screener,
	logger *zap.Logger,
) RewardService {
	return &rewardService{
		processRepo:     processRepo,
		contributorRepo: contributorRepo,
		screener:        screener,
		logger:          logger.Named("reward-service"),
	}
}

var _ RewardService = (*rewardService)(nil)

func (s *rewardService) Submit(ctx context.Context, input *models.ProcessDeclarationInput) (*SubmissionResult, error) {
	if err := ValidateProcessInput(input); err != nil {
		return nil, err
	}

	s.screenInput(input)

	pd, err := buildProcessDeclaration(input)
	if err != nil {
		return nil, err
	}

	if err := s.processRepo.Create(ctx, pd); err != nil {
		return nil, fmt.Errorf("failed to store process declaration: %w", err)
	}

	result := &SubmissionResult{ID: pd.ID}

	if pd.ContributorID == nil {
		s.logger.Debug("Submission carried no contributor id, skipping reward",
			zap.String("process_id", pd.ID.String()))
		return result, nil
	}

	reward, err := s.applyReward(ctx, pd)
	if err != nil {
		// The process declaration is already committed. Reward failure is
		// logged and swallowed so the submission still succeeds.
		s.logger.Error("Reward update failed after submission was stored",
			zap.String("process_id", pd.ID.String()),
			zap.String("contributor_id", *pd.ContributorID),
			zap.String("error", logging.SanitizeError(err)))
		return result, nil
	}

	result.Reward = reward
	return result, nil
}

func (s *rewardService) UpdateTasteScore(ctx context.Context, contributorID string, alignmentScore float64) (float64, error) {
	if math.IsNaN(alignmentScore) || alignmentScore < 0 || alignmentScore > 1 {
		return 0, apperrors.NewValidationError("alignmentScore", "must be between 0 and 1")
	}

	for attempt := 0; attempt < contributorUpdateRetries; attempt++ {
		contributor, err := s.contributorRepo.GetByAnonID(ctx, contributorID)
		if err != nil {
			return 0, fmt.Errorf("failed to get contributor: %w", err)
		}
		if contributor == nil {
			// Unknown contributors report the neutral score; no record is
			// created for them.
			return models.NeutralTasteScore, nil
		}

		newScore := clamp01(contributor.TasteScore*tasteScoreKeep + alignmentScore*tasteScoreBlend)

		updated := *contributor
		updated.TasteScore = newScore

		ok, err := s.contributorRepo.UpdateGuarded(ctx, &updated, contributor.UpdatedAt)
		if err != nil {
			return 0, fmt.Errorf("failed to update taste score: %w", err)
		}
		if ok {
			s.logger.Info("Updated taste score",
				zap.String("contributor_id", contributorID),
				zap.Float64("alignment", alignmentScore),
				zap.Float64("taste_score", newScore))
			return newScore, nil
		}
	}

	return 0, fmt.Errorf("contributor %s update contended %d times", contributorID, contributorUpdateRetries)
}

// applyReward scores the submission and folds it into the contributor's
// state under an optimistic guard, re-reading and re-scoring on contention.
func (s *rewardService) applyReward(ctx context.Context, pd *models.ProcessDeclaration) (*models.Reward, error) {
	anonID := *pd.ContributorID

	for attempt := 0; attempt < contributorUpdateRetries; attempt++ {
		contributor, err := s.getOrCreateContributor(ctx, anonID)
		if err != nil {
			return nil, err
		}

		reward := computeReward(pd, contributor)
		updated := applyContribution(contributor, pd, reward)

		ok, err := s.contributorRepo.UpdateGuarded(ctx, updated, contributor.UpdatedAt)
		if err != nil {
			return nil, err
		}
		if ok {
			if reward.TierChange != nil {
				s.logger.Info("Contributor changed tier",
					zap.String("contributor_id", anonID),
					zap.String("from", string(reward.TierChange.From)),
					zap.String("to", string(reward.TierChange.To)))
			}
			return reward, nil
		}
	}

	return nil, fmt.Errorf("contributor %s update contended %d times", anonID, contributorUpdateRetries)
}

func (s *rewardService) getOrCreateContributor(ctx context.Context, anonID string) (*models.Contributor, error) {
	contributor, err := s.contributorRepo.GetByAnonID(ctx, anonID)
	if err != nil {
		return nil, err
	}
	if contributor != nil {
		return contributor, nil
	}

	if err := s.contributorRepo.Insert(ctx, models.NewContributor(anonID)); err != nil {
		return nil, err
	}

	// Re-read rather than trusting the insert: it may have lost a race
	// with a concurrent submission, and the row carries database-assigned
	// timestamps either way.
	contributor, err = s.contributorRepo.GetByAnonID(ctx, anonID)
	if err != nil {
		return nil, err
	}
	if contributor == nil {
		return nil, fmt.Errorf("contributor %s missing after insert", anonID)
	}
	return contributor, nil
}

// screenInput flags injection payloads in the short free-text fields that
// later surface in stats and review views. Prompt content is deliberately
// not screened: prompts are arbitrary creative text and would drown the
// log in false positives.
func (s *rewardService) screenInput(input *models.ProcessDeclarationInput) {
	fields := map[string]string{}

	if input.ContributorID != nil {
		fields["contributorId"] = *input.ContributorID
	}
	if so := input.SelectedOutput; so != nil {
		if so.LikeReason != nil {
			fields["selectedOutput.likeReason"] = *so.LikeReason
		}
		if so.Feedback != nil {
			fields["selectedOutput.feedback"] = *so.Feedback
		}
	}
	for i, ro := range input.RejectedOutputs {
		if ro.Reason != nil {
			fields[fmt.Sprintf("rejectedOutputs[%d].reason", i)] = *ro.Reason
		}
		if ro.Feedback != nil {
			fields[fmt.Sprintf("rejectedOutputs[%d].feedback", i)] = *ro.Feedback
		}
	}
	for i, tag := range input.ExpertiseTags {
		fields[fmt.Sprintf("expertiseTags[%d]", i)] = tag
	}

	s.screener.ScreenFields(fields)
}

// buildProcessDeclaration maps a validated input onto the persisted record:
// id assigned or parsed, platform normalized, timestamps parsed, duration
// derived from the session window when the extension omitted it.
func buildProcessDeclaration(input *models.ProcessDeclarationInput) (*models.ProcessDeclaration, error) {
	id := uuid.New()
	if input.ID != nil && *input.ID != "" {
		parsed, err := uuid.Parse(*input.ID)
		if err != nil {
			return nil, apperrors.NewValidationError("id", "must be a UUID")
		}
		id = parsed
	}

	startedAt, err := time.Parse(time.RFC3339, input.SessionStartedAt)
	if err != nil {
		return nil, apperrors.NewValidationError("sessionStartedAt", "must be a valid RFC 3339 timestamp")
	}

	var endedAt *time.Time
	if input.SessionEndedAt != nil {
		// The end timestamp is advisory; an unparseable value is treated
		// as absent rather than rejecting the whole capture.
		if parsed, parseErr := time.Parse(time.RFC3339, *input.SessionEndedAt); parseErr == nil {
			endedAt = &parsed
		}
	}

	duration := input.SessionDuration
	if duration == nil && endedAt != nil {
		secs := int(math.Round(endedAt.Sub(startedAt).Seconds()))
		duration = &secs
	}

	var contributorID *string
	if input.ContributorID != nil {
		if trimmed := strings.TrimSpace(*input.ContributorID); trimmed != "" {
			contributorID = &trimmed
		}
	}

	return &models.ProcessDeclaration{
		ID:                     id,
		Platform:               models.ParsePlatform(input.Platform),
		ContributorID:          contributorID,
		SessionStartedAt:       startedAt,
		SessionEndedAt:         endedAt,
		SessionDuration:        duration,
		IterationCount:         input.IterationCount,
		PromptLineage:          input.PromptLineage,
		RejectedOutputs:        input.RejectedOutputs,
		SelectedOutput:         input.SelectedOutput,
		ConsentForTrainingData: input.ConsentForTrainingData,
		ConsentTimestamp:       input.ConsentTimestamp,
		ConsentVersion:         input.ConsentVersion,
		ExpertiseTags:          input.ExpertiseTags,
	}, nil
}

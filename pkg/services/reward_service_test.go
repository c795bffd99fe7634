package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/declaro-arts/declaro-engine/pkg/apperrors"
	"github.com/declaro-arts/declaro-engine/pkg/models"
	"github.com/declaro-arts/declaro-engine/pkg/screening"
)

// ============================================================================
// Mock Implementations for Reward Service Tests
// ============================================================================

type mockProcessRepo struct {
	byID      map[uuid.UUID]*models.ProcessDeclaration
	created   []*models.ProcessDeclaration
	createErr error
}

func newMockProcessRepo() *mockProcessRepo {
	return &mockProcessRepo{byID: make(map[uuid.UUID]*models.ProcessDeclaration)}
}

func (m *mockProcessRepo) Create(ctx context.Context, pd *models.ProcessDeclaration) error {
	if m.createErr != nil {
		return m.createErr
	}
	if _, exists := m.byID[pd.ID]; exists {
		return apperrors.ErrConflict
	}
	pd.CreatedAt = time.Now()
	m.byID[pd.ID] = pd
	m.created = append(m.created, pd)
	return nil
}

func (m *mockProcessRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.ProcessDeclaration, error) {
	return m.byID[id], nil
}

type mockContributorRepo struct {
	contributors map[string]*models.Contributor
	getErr       error
	insertErr    error
	updateErr    error
	failUpdates  int // guarded updates to reject before letting one through
	aggregate    *models.AggregateStats
	aggregateErr error
}

func newMockContributorRepo() *mockContributorRepo {
	return &mockContributorRepo{contributors: make(map[string]*models.Contributor)}
}

func (m *mockContributorRepo) GetByAnonID(ctx context.Context, anonID string) (*models.Contributor, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	c, ok := m.contributors[anonID]
	if !ok {
		return nil, nil
	}
	clone := *c
	return &clone, nil
}

func (m *mockContributorRepo) Insert(ctx context.Context, c *models.Contributor) error {
	if m.insertErr != nil {
		return m.insertErr
	}
	if _, exists := m.contributors[c.AnonID]; exists {
		return nil
	}
	clone := *c
	now := time.Now()
	clone.CreatedAt = now
	clone.UpdatedAt = now
	m.contributors[c.AnonID] = &clone
	return nil
}

func (m *mockContributorRepo) UpdateGuarded(ctx context.Context, c *models.Contributor, expectedUpdatedAt time.Time) (bool, error) {
	if m.updateErr != nil {
		return false, m.updateErr
	}

	existing, ok := m.contributors[c.AnonID]
	if !ok {
		return false, nil
	}

	if m.failUpdates > 0 {
		m.failUpdates--
		// Simulate a concurrent writer landing first.
		existing.UpdatedAt = existing.UpdatedAt.Add(time.Millisecond)
		return false, nil
	}

	if !existing.UpdatedAt.Equal(expectedUpdatedAt) {
		return false, nil
	}

	clone := *c
	clone.UpdatedAt = existing.UpdatedAt.Add(time.Millisecond)
	m.contributors[c.AnonID] = &clone
	return true, nil
}

func (m *mockContributorRepo) AggregateConsentedStats(ctx context.Context) (*models.AggregateStats, error) {
	if m.aggregateErr != nil {
		return nil, m.aggregateErr
	}
	if m.aggregate != nil {
		return m.aggregate, nil
	}
	return &models.AggregateStats{PlatformDistribution: map[models.Platform]int{}}, nil
}

func newTestRewardService(processRepo *mockProcessRepo, contributorRepo *mockContributorRepo) RewardService {
	return NewRewardService(processRepo, contributorRepo, screening.NewScreener(zap.NewNop()), zap.NewNop())
}

// submissionInput returns a minimal valid submission for the given platform.
func submissionInput(platform string) *models.ProcessDeclarationInput {
	return &models.ProcessDeclarationInput{
		Platform:         platform,
		SessionStartedAt: "2026-05-01T10:00:00Z",
		PromptLineage:    []models.PromptVersion{},
		RejectedOutputs:  []models.RejectedOutput{},
	}
}

// ============================================================================
// Submit
// ============================================================================

func TestSubmit_WithoutContributorSkipsReward(t *testing.T) {
	processRepo := newMockProcessRepo()
	contributorRepo := newMockContributorRepo()
	svc := newTestRewardService(processRepo, contributorRepo)

	result, err := svc.Submit(context.Background(), submissionInput("suno"))
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, result.ID)
	assert.Nil(t, result.Reward)
	require.Len(t, processRepo.created, 1)
	assert.Equal(t, models.PlatformSuno, processRepo.created[0].Platform)
	assert.Empty(t, contributorRepo.contributors)
}

func TestSubmit_ValidationFailurePersistsNothing(t *testing.T) {
	processRepo := newMockProcessRepo()
	svc := newTestRewardService(processRepo, newMockContributorRepo())

	input := submissionInput("suno")
	input.SessionStartedAt = "not a timestamp"

	_, err := svc.Submit(context.Background(), input)
	require.Error(t, err)

	vErr, ok := apperrors.AsValidation(err)
	require.True(t, ok)
	assert.Equal(t, "sessionStartedAt", vErr.Field)
	assert.Empty(t, processRepo.created)
}

func TestSubmit_CreatesContributorAndRewards(t *testing.T) {
	processRepo := newMockProcessRepo()
	contributorRepo := newMockContributorRepo()
	svc := newTestRewardService(processRepo, contributorRepo)

	input := submissionInput("suno")
	cid := "anon-1"
	input.ContributorID = &cid

	result, err := svc.Submit(context.Background(), input)
	require.NoError(t, err)
	require.NotNil(t, result.Reward)

	// base 10, quality 1.0 for a fresh contributor, suno rarity 1.1
	assert.Equal(t, 11, result.Reward.PointsEarned)
	assert.Equal(t, 11, result.Reward.NewTotal)
	assert.Nil(t, result.Reward.TierChange)

	stored := contributorRepo.contributors["anon-1"]
	require.NotNil(t, stored)
	assert.Equal(t, 1, stored.TotalContributions)
	assert.Equal(t, 11, stored.TotalPoints)
	assert.Equal(t, models.TierExplorer, stored.CurrentTier)
	assert.Equal(t, 1, stored.PlatformStats[models.PlatformSuno].Contributions)
}

func TestSubmit_TierCrossingReported(t *testing.T) {
	processRepo := newMockProcessRepo()
	contributorRepo := newMockContributorRepo()

	existing := models.NewContributor("anon-1")
	existing.TotalPoints = 95
	existing.UpdatedAt = time.Now()
	contributorRepo.contributors["anon-1"] = existing

	svc := newTestRewardService(processRepo, contributorRepo)

	input := submissionInput("stable-diffusion")
	cid := "anon-1"
	input.ContributorID = &cid

	result, err := svc.Submit(context.Background(), input)
	require.NoError(t, err)
	require.NotNil(t, result.Reward)
	require.NotNil(t, result.Reward.TierChange)

	assert.Equal(t, models.TierExplorer, result.Reward.TierChange.From)
	assert.Equal(t, models.TierCurator, result.Reward.TierChange.To)
	assert.Equal(t, models.TierCurator, contributorRepo.contributors["anon-1"].CurrentTier)
}

func TestSubmit_UnionsExpertiseTags(t *testing.T) {
	processRepo := newMockProcessRepo()
	contributorRepo := newMockContributorRepo()

	existing := models.NewContributor("anon-1")
	existing.ExpertiseTags = []string{"electronic", "jazz"}
	existing.UpdatedAt = time.Now()
	contributorRepo.contributors["anon-1"] = existing

	svc := newTestRewardService(processRepo, contributorRepo)

	input := submissionInput("suno")
	cid := "anon-1"
	input.ContributorID = &cid
	input.ExpertiseTags = []string{"jazz", "ambient"}

	_, err := svc.Submit(context.Background(), input)
	require.NoError(t, err)

	assert.Equal(t, []string{"electronic", "jazz", "ambient"},
		contributorRepo.contributors["anon-1"].ExpertiseTags)
}

func TestSubmit_RewardFailureStillSucceeds(t *testing.T) {
	processRepo := newMockProcessRepo()
	contributorRepo := newMockContributorRepo()
	contributorRepo.getErr = errors.New("connection reset")

	svc := newTestRewardService(processRepo, contributorRepo)

	input := submissionInput("suno")
	cid := "anon-1"
	input.ContributorID = &cid

	result, err := svc.Submit(context.Background(), input)
	require.NoError(t, err, "reward failure must not fail the submission")
	assert.Nil(t, result.Reward)
	assert.Len(t, processRepo.created, 1, "process declaration stays committed")
}

func TestSubmit_DuplicateIDConflicts(t *testing.T) {
	processRepo := newMockProcessRepo()
	svc := newTestRewardService(processRepo, newMockContributorRepo())

	id := uuid.New().String()
	input := submissionInput("suno")
	input.ID = &id

	_, err := svc.Submit(context.Background(), input)
	require.NoError(t, err)

	replay := submissionInput("suno")
	replay.ID = &id
	_, err = svc.Submit(context.Background(), replay)
	assert.ErrorIs(t, err, apperrors.ErrConflict)
}

func TestSubmit_MalformedClientID(t *testing.T) {
	processRepo := newMockProcessRepo()
	svc := newTestRewardService(processRepo, newMockContributorRepo())

	bad := "not-a-uuid"
	input := submissionInput("suno")
	input.ID = &bad

	_, err := svc.Submit(context.Background(), input)
	require.Error(t, err)

	vErr, ok := apperrors.AsValidation(err)
	require.True(t, ok)
	assert.Equal(t, "id", vErr.Field)
	assert.Empty(t, processRepo.created)
}

func TestSubmit_DurationDerivedFromSessionWindow(t *testing.T) {
	processRepo := newMockProcessRepo()
	svc := newTestRewardService(processRepo, newMockContributorRepo())

	input := submissionInput("suno")
	ended := "2026-05-01T10:10:00Z"
	input.SessionEndedAt = &ended

	_, err := svc.Submit(context.Background(), input)
	require.NoError(t, err)

	require.Len(t, processRepo.created, 1)
	stored := processRepo.created[0]
	require.NotNil(t, stored.SessionDuration)
	assert.Equal(t, 600, *stored.SessionDuration)
}

func TestSubmit_ExplicitDurationWins(t *testing.T) {
	processRepo := newMockProcessRepo()
	svc := newTestRewardService(processRepo, newMockContributorRepo())

	input := submissionInput("suno")
	ended := "2026-05-01T10:10:00Z"
	input.SessionEndedAt = &ended
	input.SessionDuration = intPtr(42)

	_, err := svc.Submit(context.Background(), input)
	require.NoError(t, err)

	stored := processRepo.created[0]
	require.NotNil(t, stored.SessionDuration)
	assert.Equal(t, 42, *stored.SessionDuration)
}

func TestSubmit_RetriesContendedUpdate(t *testing.T) {
	processRepo := newMockProcessRepo()
	contributorRepo := newMockContributorRepo()

	existing := models.NewContributor("anon-1")
	existing.UpdatedAt = time.Now()
	contributorRepo.contributors["anon-1"] = existing
	contributorRepo.failUpdates = 1

	svc := newTestRewardService(processRepo, contributorRepo)

	input := submissionInput("suno")
	cid := "anon-1"
	input.ContributorID = &cid

	result, err := svc.Submit(context.Background(), input)
	require.NoError(t, err)
	require.NotNil(t, result.Reward, "reward granted on retry")
	assert.Equal(t, 1, contributorRepo.contributors["anon-1"].TotalContributions)
}

func TestSubmit_ContentionExhaustionDropsReward(t *testing.T) {
	processRepo := newMockProcessRepo()
	contributorRepo := newMockContributorRepo()

	existing := models.NewContributor("anon-1")
	existing.UpdatedAt = time.Now()
	contributorRepo.contributors["anon-1"] = existing
	contributorRepo.failUpdates = 10

	svc := newTestRewardService(processRepo, contributorRepo)

	input := submissionInput("suno")
	cid := "anon-1"
	input.ContributorID = &cid

	result, err := svc.Submit(context.Background(), input)
	require.NoError(t, err)
	assert.Nil(t, result.Reward)
	assert.Len(t, processRepo.created, 1)
	assert.Equal(t, 0, contributorRepo.contributors["anon-1"].TotalContributions)
}

// ============================================================================
// UpdateTasteScore
// ============================================================================

func TestUpdateTasteScore_MovesTowardAlignment(t *testing.T) {
	contributorRepo := newMockContributorRepo()
	existing := models.NewContributor("anon-1")
	existing.UpdatedAt = time.Now()
	contributorRepo.contributors["anon-1"] = existing

	svc := newTestRewardService(newMockProcessRepo(), contributorRepo)

	newScore, err := svc.UpdateTasteScore(context.Background(), "anon-1", 1.0)
	require.NoError(t, err)

	// 0.5*0.8 + 1.0*0.2
	assert.InDelta(t, 0.6, newScore, 1e-9)
	assert.InDelta(t, 0.6, contributorRepo.contributors["anon-1"].TasteScore, 1e-9)
}

func TestUpdateTasteScore_IdempotentAtFixedPoint(t *testing.T) {
	contributorRepo := newMockContributorRepo()
	existing := models.NewContributor("anon-1")
	existing.TasteScore = 0.75
	existing.UpdatedAt = time.Now()
	contributorRepo.contributors["anon-1"] = existing

	svc := newTestRewardService(newMockProcessRepo(), contributorRepo)

	newScore, err := svc.UpdateTasteScore(context.Background(), "anon-1", 0.75)
	require.NoError(t, err)
	assert.InDelta(t, 0.75, newScore, 1e-9)
}

func TestUpdateTasteScore_UnknownContributor(t *testing.T) {
	contributorRepo := newMockContributorRepo()
	svc := newTestRewardService(newMockProcessRepo(), contributorRepo)

	score, err := svc.UpdateTasteScore(context.Background(), "ghost", 0.9)
	require.NoError(t, err)
	assert.Equal(t, models.NeutralTasteScore, score)
	assert.Empty(t, contributorRepo.contributors, "no record is created")
}

func TestUpdateTasteScore_RejectsOutOfRange(t *testing.T) {
	svc := newTestRewardService(newMockProcessRepo(), newMockContributorRepo())

	for _, alignment := range []float64{-0.1, 1.1} {
		_, err := svc.UpdateTasteScore(context.Background(), "anon-1", alignment)
		require.Error(t, err)

		vErr, ok := apperrors.AsValidation(err)
		require.True(t, ok)
		assert.Equal(t, "alignmentScore", vErr.Field)
	}
}

package handlers

import (
	"context"

	"github.com/google/uuid"

	"github.com/declaro-arts/declaro-engine/pkg/models"
	"github.com/declaro-arts/declaro-engine/pkg/services"
)

// ============================================================================
// Shared Service Mocks
// ============================================================================

type mockLedgerService struct {
	createWorkFunc     func(ctx context.Context, input services.CreateWorkInput) (*models.WorkDetail, error)
	createRevisionFunc func(ctx context.Context, declarationID uuid.UUID, input services.CreateRevisionInput) error
	getWorkFunc        func(ctx context.Context, workID uuid.UUID) (*models.WorkDetail, error)
	exportWorkFunc     func(ctx context.Context, workID uuid.UUID) (*models.WorkExport, error)
}

func (m *mockLedgerService) CreateWork(ctx context.Context, input services.CreateWorkInput) (*models.WorkDetail, error) {
	if m.createWorkFunc != nil {
		return m.createWorkFunc(ctx, input)
	}
	return nil, nil
}

func (m *mockLedgerService) CreateRevision(ctx context.Context, declarationID uuid.UUID, input services.CreateRevisionInput) error {
	if m.createRevisionFunc != nil {
		return m.createRevisionFunc(ctx, declarationID, input)
	}
	return nil
}

func (m *mockLedgerService) GetWork(ctx context.Context, workID uuid.UUID) (*models.WorkDetail, error) {
	if m.getWorkFunc != nil {
		return m.getWorkFunc(ctx, workID)
	}
	return nil, nil
}

func (m *mockLedgerService) ExportWork(ctx context.Context, workID uuid.UUID) (*models.WorkExport, error) {
	if m.exportWorkFunc != nil {
		return m.exportWorkFunc(ctx, workID)
	}
	return nil, nil
}

type mockRewardService struct {
	submitFunc           func(ctx context.Context, input *models.ProcessDeclarationInput) (*services.SubmissionResult, error)
	updateTasteScoreFunc func(ctx context.Context, contributorID string, alignmentScore float64) (float64, error)
}

func (m *mockRewardService) Submit(ctx context.Context, input *models.ProcessDeclarationInput) (*services.SubmissionResult, error) {
	if m.submitFunc != nil {
		return m.submitFunc(ctx, input)
	}
	return &services.SubmissionResult{ID: uuid.New()}, nil
}

func (m *mockRewardService) UpdateTasteScore(ctx context.Context, contributorID string, alignmentScore float64) (float64, error) {
	if m.updateTasteScoreFunc != nil {
		return m.updateTasteScoreFunc(ctx, contributorID, alignmentScore)
	}
	return models.NeutralTasteScore, nil
}

type mockStatsService struct {
	contributorStatsFunc func(ctx context.Context, contributorID string) (*models.ContributorStats, error)
	aggregateStatsFunc   func(ctx context.Context) (*models.AggregateStats, error)
}

func (m *mockStatsService) ContributorStats(ctx context.Context, contributorID string) (*models.ContributorStats, error) {
	if m.contributorStatsFunc != nil {
		return m.contributorStatsFunc(ctx, contributorID)
	}
	return nil, nil
}

func (m *mockStatsService) AggregateStats(ctx context.Context) (*models.AggregateStats, error) {
	if m.aggregateStatsFunc != nil {
		return m.aggregateStatsFunc(ctx)
	}
	return &models.AggregateStats{}, nil
}

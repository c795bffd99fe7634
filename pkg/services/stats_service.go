package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/declaro-arts/declaro-engine/pkg/apperrors"
	"github.com/declaro-arts/declaro-engine/pkg/models"
	"github.com/declaro-arts/declaro-engine/pkg/repositories"
)

// Cache key and TTL for the consented aggregate document. The aggregate
// scans every consenting contributor row, so it is the one read worth
// caching.
const (
	aggregateStatsCacheKey = "declaro:stats:aggregate"
	aggregateStatsCacheTTL = time.Minute
)

// StatsService serves the public contributor stats surfaces.
type StatsService interface {
	// ContributorStats returns the public view of one contributor.
	ContributorStats(ctx context.Context, contributorID string) (*models.ContributorStats, error)

	// AggregateStats returns totals and the platform distribution across
	// contributors who granted training consent.
	AggregateStats(ctx context.Context) (*models.AggregateStats, error)
}

type statsService struct {
	contributorRepo repositories.ContributorRepository
	cache           *redis.Client // nil disables caching
	logger          *zap.Logger
}

// NewStatsService creates a new StatsService. A nil cache client serves
// every aggregate read from the database.
func NewStatsService(contributorRepo repositories.ContributorRepository, cache *redis.Client, logger *zap.Logger) StatsService {
	return &statsService{
		contributorRepo: contributorRepo,
		cache:           cache,
		logger:          logger.Named("stats-service"),
	}
}

var _ StatsService = (*statsService)(nil)

func (s *statsService) ContributorStats(ctx context.Context, contributorID string) (*models.ContributorStats, error) {
	contributor, err := s.contributorRepo.GetByAnonID(ctx, contributorID)
	if err != nil {
		return nil, fmt.Errorf("failed to get contributor: %w", err)
	}
	if contributor == nil {
		return nil, apperrors.ErrNotFound
	}

	return &models.ContributorStats{
		TotalContributions: contributor.TotalContributions,
		TotalPoints:        contributor.TotalPoints,
		CurrentTier:        contributor.CurrentTier,
		TasteScore:         contributor.TasteScore,
		ExpertiseTags:      contributor.ExpertiseTags,
		PlatformStats:      contributor.PlatformStats,
	}, nil
}

func (s *statsService) AggregateStats(ctx context.Context) (*models.AggregateStats, error) {
	if cached := s.readCache(ctx); cached != nil {
		return cached, nil
	}

	stats, err := s.contributorRepo.AggregateConsentedStats(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate stats: %w", err)
	}

	s.writeCache(ctx, stats)
	return stats, nil
}

// readCache returns the cached aggregate document, or nil on a miss or any
// cache failure. Redis being down never fails the request.
func (s *statsService) readCache(ctx context.Context) *models.AggregateStats {
	if s.cache == nil {
		return nil
	}

	payload, err := s.cache.Get(ctx, aggregateStatsCacheKey).Bytes()
	if err != nil {
		if err != redis.Nil {
			s.logger.Warn("Aggregate stats cache read failed", zap.Error(err))
		}
		return nil
	}

	var stats models.AggregateStats
	if err := json.Unmarshal(payload, &stats); err != nil {
		s.logger.Warn("Aggregate stats cache entry corrupt", zap.Error(err))
		return nil
	}
	return &stats
}

func (s *statsService) writeCache(ctx context.Context, stats *models.AggregateStats) {
	if s.cache == nil {
		return
	}

	payload, err := json.Marshal(stats)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, aggregateStatsCacheKey, payload, aggregateStatsCacheTTL).Err(); err != nil {
		s.logger.Warn("Aggregate stats cache write failed", zap.Error(err))
	}
}

package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/declaro-arts/declaro-engine/pkg/database"
	"github.com/declaro-arts/declaro-engine/pkg/models"
)

// ContributorRepository provides data access for contributor reputation state.
type ContributorRepository interface {
	// GetByAnonID retrieves a contributor. Returns nil when the anonymous
	// id has never been seen.
	GetByAnonID(ctx context.Context, anonID string) (*models.Contributor, error)

	// Insert creates the initial row for a new anonymous id. A concurrent
	// insert of the same id is not an error; callers re-read afterwards.
	Insert(ctx context.Context, c *models.Contributor) error

	// UpdateGuarded persists new cumulative state only if the row still
	// carries expectedUpdatedAt. Returns false when another writer got
	// there first; callers re-read and retry.
	UpdateGuarded(ctx context.Context, c *models.Contributor, expectedUpdatedAt time.Time) (bool, error)

	// AggregateConsentedStats computes contribution totals and the
	// per-platform distribution across contributors who granted training
	// consent.
	AggregateConsentedStats(ctx context.Context) (*models.AggregateStats, error)
}

// contributorRepository implements ContributorRepository using PostgreSQL.
type contributorRepository struct {
	db *database.DB
}

// NewContributorRepository creates a new contributor repository.
func NewContributorRepository(db *database.DB) ContributorRepository {
	return &contributorRepository{db: db}
}

var _ ContributorRepository = (*contributorRepository)(nil)

func (r *contributorRepository) GetByAnonID(ctx context.Context, anonID string) (*models.Contributor, error) {
	query := `
		SELECT anon_id, total_contributions, total_points, current_tier,
		       taste_score, expertise_tags, platform_stats, consent_training,
		       consent_timestamp, created_at, updated_at
		FROM declaro_contributors
		WHERE anon_id = $1`

	var c models.Contributor
	var tier string
	var stats []byte

	err := r.db.QueryRow(ctx, query, anonID).Scan(
		&c.AnonID,
		&c.TotalContributions,
		&c.TotalPoints,
		&tier,
		&c.TasteScore,
		&c.ExpertiseTags,
		&stats,
		&c.ConsentTraining,
		&c.ConsentTimestamp,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil // Contributor not found
		}
		return nil, fmt.Errorf("failed to get contributor: %w", err)
	}

	c.CurrentTier = models.Tier(tier)
	c.PlatformStats = map[models.Platform]models.PlatformStat{}
	if len(stats) > 0 && string(stats) != "null" {
		if err := json.Unmarshal(stats, &c.PlatformStats); err != nil {
			return nil, fmt.Errorf("failed to unmarshal platform stats: %w", err)
		}
	}

	return &c, nil
}

func (r *contributorRepository) Insert(ctx context.Context, c *models.Contributor) error {
	stats, err := json.Marshal(c.PlatformStats)
	if err != nil {
		return fmt.Errorf("failed to marshal platform stats: %w", err)
	}

	query := `
		INSERT INTO declaro_contributors (
			anon_id, total_contributions, total_points, current_tier,
			taste_score, expertise_tags, platform_stats, consent_training,
			consent_timestamp
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (anon_id) DO NOTHING`

	_, err = r.db.Exec(ctx, query,
		c.AnonID,
		c.TotalContributions,
		c.TotalPoints,
		string(c.CurrentTier),
		c.TasteScore,
		c.ExpertiseTags,
		stats,
		c.ConsentTraining,
		c.ConsentTimestamp,
	)
	if err != nil {
		return fmt.Errorf("failed to insert contributor: %w", err)
	}

	return nil
}

func (r *contributorRepository) UpdateGuarded(ctx context.Context, c *models.Contributor, expectedUpdatedAt time.Time) (bool, error) {
	stats, err := json.Marshal(c.PlatformStats)
	if err != nil {
		return false, fmt.Errorf("failed to marshal platform stats: %w", err)
	}

	query := `
		UPDATE declaro_contributors
		SET total_contributions = $2, total_points = $3, current_tier = $4,
		    taste_score = $5, expertise_tags = $6, platform_stats = $7,
		    consent_training = $8, consent_timestamp = $9,
		    updated_at = clock_timestamp()
		WHERE anon_id = $1 AND updated_at = $10`

	result, err := r.db.Exec(ctx, query,
		c.AnonID,
		c.TotalContributions,
		c.TotalPoints,
		string(c.CurrentTier),
		c.TasteScore,
		c.ExpertiseTags,
		stats,
		c.ConsentTraining,
		c.ConsentTimestamp,
		expectedUpdatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("failed to update contributor: %w", err)
	}

	return result.RowsAffected() == 1, nil
}

func (r *contributorRepository) AggregateConsentedStats(ctx context.Context) (*models.AggregateStats, error) {
	stats := &models.AggregateStats{
		PlatformDistribution: map[models.Platform]int{},
	}

	err := r.db.QueryRow(ctx, `
		SELECT COUNT(*),
		       COALESCE(SUM(total_contributions), 0),
		       COALESCE(SUM(total_points), 0)
		FROM declaro_contributors
		WHERE consent_training = true`,
	).Scan(&stats.Contributors, &stats.TotalContributions, &stats.TotalPoints)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate contributor totals: %w", err)
	}

	rows, err := r.db.Query(ctx, `
		SELECT ps.key, COALESCE(SUM((ps.value->>'contributions')::int), 0)
		FROM declaro_contributors c, jsonb_each(c.platform_stats) AS ps
		WHERE c.consent_training = true
		GROUP BY ps.key`)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate platform distribution: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var platform string
		var count int
		if err := rows.Scan(&platform, &count); err != nil {
			return nil, fmt.Errorf("failed to scan platform distribution: %w", err)
		}
		stats.PlatformDistribution[models.Platform(platform)] = count
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating platform distribution: %w", err)
	}

	return stats, nil
}

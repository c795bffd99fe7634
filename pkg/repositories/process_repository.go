package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/declaro-arts/declaro-engine/pkg/apperrors"
	"github.com/declaro-arts/declaro-engine/pkg/database"
	"github.com/declaro-arts/declaro-engine/pkg/models"
)

// ProcessRepository provides data access for process declarations.
type ProcessRepository interface {
	// Create inserts one process declaration. Resubmission of an existing
	// id returns apperrors.ErrConflict.
	Create(ctx context.Context, pd *models.ProcessDeclaration) error

	// GetByID retrieves a process declaration by ID. Returns nil when absent.
	GetByID(ctx context.Context, id uuid.UUID) (*models.ProcessDeclaration, error)
}

// processRepository implements ProcessRepository using PostgreSQL.
type processRepository struct {
	db *database.DB
}

// NewProcessRepository creates a new process declaration repository.
func NewProcessRepository(db *database.DB) ProcessRepository {
	return &processRepository{db: db}
}

var _ ProcessRepository = (*processRepository)(nil)

func (r *processRepository) Create(ctx context.Context, pd *models.ProcessDeclaration) error {
	lineage, err := json.Marshal(pd.PromptLineage)
	if err != nil {
		return fmt.Errorf("failed to marshal prompt lineage: %w", err)
	}

	rejected, err := json.Marshal(pd.RejectedOutputs)
	if err != nil {
		return fmt.Errorf("failed to marshal rejected outputs: %w", err)
	}

	var selected []byte
	if pd.SelectedOutput != nil {
		selected, err = json.Marshal(pd.SelectedOutput)
		if err != nil {
			return fmt.Errorf("failed to marshal selected output: %w", err)
		}
	}

	query := `
		INSERT INTO declaro_process_declarations (
			id, platform, contributor_id, session_started_at, session_ended_at,
			session_duration_secs, iteration_count, prompt_lineage,
			rejected_outputs, selected_output, consent_training,
			consent_timestamp, consent_version, expertise_tags
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING created_at`

	err = r.db.QueryRow(ctx, query,
		pd.ID,
		string(pd.Platform),
		pd.ContributorID,
		pd.SessionStartedAt,
		pd.SessionEndedAt,
		pd.SessionDuration,
		pd.IterationCount,
		lineage,
		rejected,
		selected,
		pd.ConsentForTrainingData,
		pd.ConsentTimestamp,
		pd.ConsentVersion,
		pd.ExpertiseTags,
	).Scan(&pd.CreatedAt)
	if err != nil {
		// Check for unique constraint violation (PostgreSQL error code 23505)
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return apperrors.ErrConflict
		}
		return fmt.Errorf("failed to create process declaration: %w", err)
	}

	return nil
}

func (r *processRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.ProcessDeclaration, error) {
	query := `
		SELECT id, platform, contributor_id, session_started_at, session_ended_at,
		       session_duration_secs, iteration_count, prompt_lineage,
		       rejected_outputs, selected_output, consent_training,
		       consent_timestamp, consent_version, expertise_tags, created_at
		FROM declaro_process_declarations
		WHERE id = $1`

	var pd models.ProcessDeclaration
	var platform string
	var lineage, rejected, selected []byte

	err := r.db.QueryRow(ctx, query, id).Scan(
		&pd.ID,
		&platform,
		&pd.ContributorID,
		&pd.SessionStartedAt,
		&pd.SessionEndedAt,
		&pd.SessionDuration,
		&pd.IterationCount,
		&lineage,
		&rejected,
		&selected,
		&pd.ConsentForTrainingData,
		&pd.ConsentTimestamp,
		&pd.ConsentVersion,
		&pd.ExpertiseTags,
		&pd.CreatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil // Process declaration not found
		}
		return nil, fmt.Errorf("failed to get process declaration: %w", err)
	}

	pd.Platform = models.Platform(platform)

	if err := json.Unmarshal(lineage, &pd.PromptLineage); err != nil {
		return nil, fmt.Errorf("failed to unmarshal prompt lineage: %w", err)
	}
	if err := json.Unmarshal(rejected, &pd.RejectedOutputs); err != nil {
		return nil, fmt.Errorf("failed to unmarshal rejected outputs: %w", err)
	}
	if len(selected) > 0 && string(selected) != "null" {
		pd.SelectedOutput = &models.SelectedOutput{}
		if err := json.Unmarshal(selected, pd.SelectedOutput); err != nil {
			return nil, fmt.Errorf("failed to unmarshal selected output: %w", err)
		}
	}

	return &pd, nil
}

package repositories

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/declaro-arts/declaro-engine/pkg/database"
	"github.com/declaro-arts/declaro-engine/pkg/models"
)

// WorkRepository provides data access for works and their creation-time
// declaration bundle.
type WorkRepository interface {
	// CreateWithDeclaration atomically inserts a work, its declaration, and
	// any audio references. Partial creation is never observable.
	CreateWithDeclaration(ctx context.Context, work *models.Work, decl *models.Declaration, refs []*models.AudioReference) error

	// GetByID retrieves a work by ID. Returns nil when the work does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*models.Work, error)

	// GetDeclarationByWorkID retrieves the declaration owned by a work.
	// Returns nil when absent.
	GetDeclarationByWorkID(ctx context.Context, workID uuid.UUID) (*models.Declaration, error)

	// ListAudioReferences retrieves a declaration's audio references, oldest first.
	ListAudioReferences(ctx context.Context, declarationID uuid.UUID) ([]*models.AudioReference, error)
}

// workRepository implements WorkRepository using PostgreSQL.
type workRepository struct {
	db *database.DB
}

// NewWorkRepository creates a new work repository.
func NewWorkRepository(db *database.DB) WorkRepository {
	return &workRepository{db: db}
}

var _ WorkRepository = (*workRepository)(nil)

func (r *workRepository) CreateWithDeclaration(ctx context.Context, work *models.Work, decl *models.Declaration, refs []*models.AudioReference) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback on defer is best-effort

	err = tx.QueryRow(ctx,
		`INSERT INTO declaro_works (title) VALUES ($1) RETURNING id, created_at`,
		work.Title,
	).Scan(&work.ID, &work.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create work: %w", err)
	}

	query := `
		INSERT INTO declaro_declarations (work_id, intent, tools, ai_used, contributors)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`

	err = tx.QueryRow(ctx, query,
		work.ID,
		decl.Intent,
		decl.Tools,
		decl.AIUsed,
		decl.Contributors,
	).Scan(&decl.ID, &decl.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create declaration: %w", err)
	}
	decl.WorkID = work.ID

	refQuery := `
		INSERT INTO declaro_audio_references (declaration_id, filename, sha256, description)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`

	for _, ref := range refs {
		err = tx.QueryRow(ctx, refQuery,
			decl.ID,
			ref.Filename,
			ref.SHA256,
			ref.Description,
		).Scan(&ref.ID, &ref.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to create audio reference: %w", err)
		}
		ref.DeclarationID = decl.ID
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

func (r *workRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Work, error) {
	query := `SELECT id, title, created_at FROM declaro_works WHERE id = $1`

	var w models.Work
	err := r.db.QueryRow(ctx, query, id).Scan(&w.ID, &w.Title, &w.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil // Work not found
		}
		return nil, fmt.Errorf("failed to get work: %w", err)
	}

	return &w, nil
}

func (r *workRepository) GetDeclarationByWorkID(ctx context.Context, workID uuid.UUID) (*models.Declaration, error) {
	query := `
		SELECT id, work_id, intent, tools, ai_used, contributors, created_at
		FROM declaro_declarations
		WHERE work_id = $1`

	row := r.db.QueryRow(ctx, query, workID)
	decl, err := scanDeclaration(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil // Declaration not found
		}
		return nil, err
	}

	return decl, nil
}

func (r *workRepository) ListAudioReferences(ctx context.Context, declarationID uuid.UUID) ([]*models.AudioReference, error) {
	query := `
		SELECT id, declaration_id, filename, sha256, description, created_at
		FROM declaro_audio_references
		WHERE declaration_id = $1
		ORDER BY created_at, id`

	rows, err := r.db.Query(ctx, query, declarationID)
	if err != nil {
		return nil, fmt.Errorf("failed to query audio references: %w", err)
	}
	defer rows.Close()

	var refs []*models.AudioReference
	for rows.Next() {
		var ref models.AudioReference
		err := rows.Scan(
			&ref.ID,
			&ref.DeclarationID,
			&ref.Filename,
			&ref.SHA256,
			&ref.Description,
			&ref.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan audio reference: %w", err)
		}
		refs = append(refs, &ref)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating audio references: %w", err)
	}

	return refs, nil
}

func scanDeclaration(row pgx.Row) (*models.Declaration, error) {
	var d models.Declaration
	err := row.Scan(
		&d.ID,
		&d.WorkID,
		&d.Intent,
		&d.Tools,
		&d.AIUsed,
		&d.Contributors,
		&d.CreatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan declaration: %w", err)
	}

	return &d, nil
}

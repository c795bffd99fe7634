package repositories

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/declaro-arts/declaro-engine/pkg/database"
	"github.com/declaro-arts/declaro-engine/pkg/models"
)

// DeclarationRepository provides data access for declarations and their
// append-only revision history. Declarations themselves are immutable: this
// interface deliberately exposes no update or delete operations.
type DeclarationRepository interface {
	// GetByID retrieves a declaration by ID. Returns nil when absent.
	GetByID(ctx context.Context, id uuid.UUID) (*models.Declaration, error)

	// AppendRevision inserts one amendment row. The parent declaration row
	// and all prior revisions are never touched.
	AppendRevision(ctx context.Context, rev *models.DeclarationRevision) error

	// ListRevisions retrieves a declaration's revisions, oldest first.
	ListRevisions(ctx context.Context, declarationID uuid.UUID) ([]*models.DeclarationRevision, error)
}

// declarationRepository implements DeclarationRepository using PostgreSQL.
type declarationRepository struct {
	db *database.DB
}

// NewDeclarationRepository creates a new declaration repository.
func NewDeclarationRepository(db *database.DB) DeclarationRepository {
	return &declarationRepository{db: db}
}

var _ DeclarationRepository = (*declarationRepository)(nil)

func (r *declarationRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Declaration, error) {
	query := `
		SELECT id, work_id, intent, tools, ai_used, contributors, created_at
		FROM declaro_declarations
		WHERE id = $1`

	row := r.db.QueryRow(ctx, query, id)
	decl, err := scanDeclaration(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil // Declaration not found
		}
		return nil, err
	}

	return decl, nil
}

func (r *declarationRepository) AppendRevision(ctx context.Context, rev *models.DeclarationRevision) error {
	query := `
		INSERT INTO declaro_declaration_revisions (
			declaration_id, change_note, intent, tools, ai_used, contributors
		) VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`

	err := r.db.QueryRow(ctx, query,
		rev.DeclarationID,
		rev.ChangeNote,
		rev.Intent,
		rev.Tools,
		rev.AIUsed,
		rev.Contributors,
	).Scan(&rev.ID, &rev.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to append revision: %w", err)
	}

	return nil
}

func (r *declarationRepository) ListRevisions(ctx context.Context, declarationID uuid.UUID) ([]*models.DeclarationRevision, error) {
	query := `
		SELECT id, declaration_id, change_note, intent, tools, ai_used, contributors, created_at
		FROM declaro_declaration_revisions
		WHERE declaration_id = $1
		ORDER BY created_at, id`

	rows, err := r.db.Query(ctx, query, declarationID)
	if err != nil {
		return nil, fmt.Errorf("failed to query revisions: %w", err)
	}
	defer rows.Close()

	var revisions []*models.DeclarationRevision
	for rows.Next() {
		var rev models.DeclarationRevision
		err := rows.Scan(
			&rev.ID,
			&rev.DeclarationID,
			&rev.ChangeNote,
			&rev.Intent,
			&rev.Tools,
			&rev.AIUsed,
			&rev.Contributors,
			&rev.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan revision: %w", err)
		}
		revisions = append(revisions, &rev)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating revisions: %w", err)
	}

	return revisions, nil
}

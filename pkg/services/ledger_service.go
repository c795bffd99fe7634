package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/declaro-arts/declaro-engine/pkg/apperrors"
	"github.com/declaro-arts/declaro-engine/pkg/models"
	"github.com/declaro-arts/declaro-engine/pkg/repositories"
	"github.com/declaro-arts/declaro-engine/pkg/screening"
)

// AudioUpload is one uploaded audio file to fingerprint. Content is
// streamed through SHA-256; the bytes themselves are never persisted.
type AudioUpload struct {
	Filename string
	Size     int64
	Content  io.Reader
}

// CreateWorkInput carries the create-work form fields.
type CreateWorkInput struct {
	Title        string
	Intent       string
	Tools        string
	AIUsed       bool
	Contributors string // optional free text
	AudioFiles   []AudioUpload
}

// CreateRevisionInput carries one amendment. Nil override fields mean
// "leave unchanged"; explicitly-empty strings are normalized to nil before
// storage so the two are indistinguishable once persisted.
type CreateRevisionInput struct {
	ChangeNote   string
	Intent       *string
	Tools        *string
	AIUsed       *bool
	Contributors *string
}

// LedgerService manages works, their immutable declarations, and the
// append-only amendment history.
type LedgerService interface {
	// CreateWork atomically creates a work, its declaration, and one audio
	// reference per non-empty upload.
	CreateWork(ctx context.Context, input CreateWorkInput) (*models.WorkDetail, error)

	// CreateRevision appends one amendment to an existing declaration.
	CreateRevision(ctx context.Context, declarationID uuid.UUID, input CreateRevisionInput) error

	// GetWork fetches a work with its declaration, revisions (oldest
	// first), and audio references (oldest first).
	GetWork(ctx context.Context, workID uuid.UUID) (*models.WorkDetail, error)

	// ExportWork renders a work into the versioned portable document.
	ExportWork(ctx context.Context, workID uuid.UUID) (*models.WorkExport, error)
}

type ledgerService struct {
	workRepo repositories.WorkRepository
	declRepo repositories.DeclarationRepository
	screener *screening.Screener
	logger   *zap.Logger
}

// NewLedgerService creates a new LedgerService.
func NewLedgerService(
	workRepo repositories.WorkRepository,
	declRepo repositories.DeclarationRepository,
	screener *screening.Screener,
	logger *zap.Logger,
) LedgerService {
	return &ledgerService{
		workRepo: workRepo,
		declRepo: declRepo,
		screener: screener,
		logger:   logger.Named("ledger-service"),
	}
}

var _ LedgerService = (*ledgerService)(nil)

func (s *ledgerService) CreateWork(ctx context.Context, input CreateWorkInput) (*models.WorkDetail, error) {
	title := strings.TrimSpace(input.Title)
	intent := strings.TrimSpace(input.Intent)
	tools := strings.TrimSpace(input.Tools)

	if title == "" {
		return nil, apperrors.NewValidationError("title", "is required")
	}
	if intent == "" {
		return nil, apperrors.NewValidationError("intent", "is required")
	}
	if tools == "" {
		return nil, apperrors.NewValidationError("tools", "is required")
	}

	s.screener.ScreenFields(map[string]string{
		"title":        title,
		"intent":       intent,
		"tools":        tools,
		"contributors": input.Contributors,
	})

	refs := []*models.AudioReference{}
	for _, upload := range input.AudioFiles {
		if upload.Size == 0 {
			continue
		}
		digest, err := hashAudio(upload.Content)
		if err != nil {
			return nil, fmt.Errorf("failed to hash %q: %w", upload.Filename, err)
		}
		refs = append(refs, &models.AudioReference{
			Filename: upload.Filename,
			SHA256:   digest,
		})
	}

	work := &models.Work{Title: title}
	decl := &models.Declaration{
		Intent:       intent,
		Tools:        tools,
		AIUsed:       input.AIUsed,
		Contributors: optionalText(input.Contributors),
	}

	if err := s.workRepo.CreateWithDeclaration(ctx, work, decl, refs); err != nil {
		return nil, fmt.Errorf("failed to create work: %w", err)
	}

	s.logger.Info("Created work",
		zap.String("work_id", work.ID.String()),
		zap.Int("audio_references", len(refs)))

	return &models.WorkDetail{
		Work:            work,
		Declaration:     decl,
		Revisions:       []*models.DeclarationRevision{},
		AudioReferences: refs,
	}, nil
}

func (s *ledgerService) CreateRevision(ctx context.Context, declarationID uuid.UUID, input CreateRevisionInput) error {
	if declarationID == uuid.Nil {
		return apperrors.NewValidationError("declarationId", "is required")
	}

	changeNote := strings.TrimSpace(input.ChangeNote)
	if changeNote == "" {
		return apperrors.NewValidationError("changeNote", "is required")
	}

	decl, err := s.declRepo.GetByID(ctx, declarationID)
	if err != nil {
		return fmt.Errorf("failed to look up declaration: %w", err)
	}
	if decl == nil {
		return apperrors.ErrNotFound
	}

	rev := &models.DeclarationRevision{
		DeclarationID: declarationID,
		ChangeNote:    changeNote,
		Intent:        normalizeOverride(input.Intent),
		Tools:         normalizeOverride(input.Tools),
		AIUsed:        input.AIUsed,
		Contributors:  normalizeOverride(input.Contributors),
	}

	fields := map[string]string{"changeNote": changeNote}
	for name, override := range map[string]*string{
		"intent":       rev.Intent,
		"tools":        rev.Tools,
		"contributors": rev.Contributors,
	} {
		if override != nil {
			fields[name] = *override
		}
	}
	s.screener.ScreenFields(fields)

	if err := s.declRepo.AppendRevision(ctx, rev); err != nil {
		return fmt.Errorf("failed to append revision: %w", err)
	}

	s.logger.Info("Appended declaration revision",
		zap.String("declaration_id", declarationID.String()),
		zap.String("revision_id", rev.ID.String()))

	return nil
}

func (s *ledgerService) GetWork(ctx context.Context, workID uuid.UUID) (*models.WorkDetail, error) {
	work, err := s.workRepo.GetByID(ctx, workID)
	if err != nil {
		return nil, fmt.Errorf("failed to get work: %w", err)
	}
	if work == nil {
		return nil, apperrors.ErrNotFound
	}

	detail := &models.WorkDetail{
		Work:            work,
		Revisions:       []*models.DeclarationRevision{},
		AudioReferences: []*models.AudioReference{},
	}

	decl, err := s.workRepo.GetDeclarationByWorkID(ctx, workID)
	if err != nil {
		return nil, fmt.Errorf("failed to get declaration: %w", err)
	}
	if decl == nil {
		// Creation is atomic, so this only happens for rows predating the
		// ledger or removed out-of-band. Surface the work as-is.
		return detail, nil
	}
	detail.Declaration = decl

	revisions, err := s.declRepo.ListRevisions(ctx, decl.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list revisions: %w", err)
	}
	if revisions != nil {
		detail.Revisions = revisions
	}

	refs, err := s.workRepo.ListAudioReferences(ctx, decl.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list audio references: %w", err)
	}
	if refs != nil {
		detail.AudioReferences = refs
	}

	return detail, nil
}

func (s *ledgerService) ExportWork(ctx context.Context, workID uuid.UUID) (*models.WorkExport, error) {
	detail, err := s.GetWork(ctx, workID)
	if err != nil {
		return nil, err
	}

	doc := &models.WorkExport{
		Protocol:   models.ExportProtocol,
		Version:    models.ExportVersion,
		ExportedAt: time.Now().UTC(),
		Work: models.ExportWork{
			ID:        detail.Work.ID.String(),
			Title:     detail.Work.Title,
			CreatedAt: detail.Work.CreatedAt.UTC(),
		},
		AudioReferences: []models.ExportAudioReference{},
		Revisions:       []models.ExportRevision{},
	}

	if decl := detail.Declaration; decl != nil {
		doc.Declaration = &models.ExportDeclaration{
			ID:           decl.ID.String(),
			Intent:       decl.Intent,
			Tools:        decl.Tools,
			AIUsed:       decl.AIUsed,
			Contributors: decl.Contributors,
			CreatedAt:    decl.CreatedAt.UTC(),
		}
	}

	for _, ref := range detail.AudioReferences {
		doc.AudioReferences = append(doc.AudioReferences, models.ExportAudioReference{
			ID:          ref.ID.String(),
			Filename:    ref.Filename,
			SHA256:      ref.SHA256,
			Description: ref.Description,
			CreatedAt:   ref.CreatedAt.UTC(),
		})
	}

	for _, rev := range detail.Revisions {
		doc.Revisions = append(doc.Revisions, models.ExportRevision{
			ID:           rev.ID.String(),
			ChangeNote:   rev.ChangeNote,
			Intent:       rev.Intent,
			Tools:        rev.Tools,
			AIUsed:       rev.AIUsed,
			Contributors: rev.Contributors,
			CreatedAt:    rev.CreatedAt.UTC(),
		})
	}

	return doc, nil
}

// hashAudio streams content through SHA-256 and returns the lowercase hex
// digest.
func hashAudio(content io.Reader) (string, error) {
	h := sha256.New()
	if _, err := io.Copy(h, content); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// optionalText normalizes a free-text form value: blank becomes absent.
func optionalText(s string) *string {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

// normalizeOverride maps an explicitly-empty revision override to
// "unchanged". Only the absent form is ever stored.
func normalizeOverride(v *string) *string {
	if v == nil {
		return nil
	}
	return optionalText(*v)
}

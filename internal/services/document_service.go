package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/yukikurage/task-macro-sync/internal/constants"
	"github.com/yukikurage/task-macro-sync/internal/dto"
	apperrors "github.com/yukikurage/task-macro-sync/internal/errors"
	"github.com/yukikurage/task-macro-sync/internal/events"
	"github.com/yukikurage/task-macro-sync/internal/markup"
	"github.com/yukikurage/task-macro-sync/internal/models"
	"github.com/yukikurage/task-macro-sync/internal/reference"
	"github.com/yukikurage/task-macro-sync/internal/repository"
	"github.com/yukikurage/task-macro-sync/internal/session"
)

var (
	ErrDocumentNotFound  = apperrors.NotFound("document not found")
	ErrRevisionNotFound  = apperrors.NotFound("document revision not found")
	ErrDocumentExists    = apperrors.InvalidInput("document already exists")
	ErrReferenceRequired = apperrors.InvalidInput("document reference is required")
)

// DocumentService loads and saves documents. Saving publishes
// DocumentSaving before anything is written, deleting publishes
// DocumentDeleting.
type DocumentService struct {
	docRepo repository.DocumentRepository
	bus     *events.Bus
	log     zerolog.Logger
}

var _ ReferenceChecker = (*DocumentService)(nil)

// NewDocumentService creates a new DocumentService
func NewDocumentService(docRepo repository.DocumentRepository, bus *events.Bus, log zerolog.Logger) *DocumentService {
	return &DocumentService{
		docRepo: docRepo,
		bus:     bus,
		log:     log.With().Str("cmp", "documents").Logger(),
	}
}

// Get returns the current version of a document
func (s *DocumentService) Get(ctx context.Context, ref reference.Reference) (*dto.Document, error) {
	doc, err := s.docRepo.Find(ctx, ref.String())
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDocumentNotFound
		}
		return nil, fmt.Errorf("failed to find document: %w", err)
	}
	return dto.ToDocumentDTO(*doc)
}

// Revision returns a past version of a document
func (s *DocumentService) Revision(ctx context.Context, ref reference.Reference, version int) (*dto.Document, error) {
	rev, err := s.docRepo.FindRevision(ctx, ref.String(), version)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRevisionNotFound
		}
		return nil, fmt.Errorf("failed to find revision: %w", err)
	}
	return dto.RevisionToDocumentDTO(*rev)
}

// Exists reports whether a document is stored under ref
func (s *DocumentService) Exists(ctx context.Context, ref reference.Reference) (bool, error) {
	exists, err := s.docRepo.Exists(ctx, ref.String())
	if err != nil {
		return false, fmt.Errorf("failed to check document: %w", err)
	}
	return exists, nil
}

// Create saves a new document from text written in syntax.
func (s *DocumentService) Create(ctx context.Context, ref reference.Reference, syntax, text string) (*dto.Document, error) {
	if ref.IsZero() {
		return nil, ErrReferenceRequired
	}
	exists, err := s.Exists(ctx, ref)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrDocumentExists
	}

	content, err := markup.Parse(text, syntax)
	if err != nil {
		return nil, fmt.Errorf("failed to parse document: %w", err)
	}

	doc := &dto.Document{Reference: ref, Syntax: syntax, Content: content}
	if err := s.Save(ctx, doc, "Created"); err != nil {
		return nil, err
	}
	return doc, nil
}

// Edit replaces the content of a document with text, written in the
// document's syntax.
func (s *DocumentService) Edit(ctx context.Context, ref reference.Reference, text, comment string) (*dto.Document, error) {
	doc, err := s.Get(ctx, ref)
	if err != nil {
		return nil, err
	}

	content, err := markup.Parse(text, doc.Syntax)
	if err != nil {
		return nil, fmt.Errorf("failed to parse document: %w", err)
	}
	doc.Content = content

	if err := s.Save(ctx, doc, comment); err != nil {
		return nil, err
	}
	return doc, nil
}

// Save stores doc as a new version. Subscribers of DocumentSaving may change
// doc.Content before it is written; their failures are logged and do not
// stop the save. On success doc.Version holds the new version.
func (s *DocumentService) Save(ctx context.Context, doc *dto.Document, comment string) error {
	if err := s.bus.PublishDocumentSaving(ctx, &events.DocumentSavingPayload{Document: doc, Comment: comment}); err != nil {
		s.log.Error().Ctx(ctx).Err(err).
			Str("document", doc.Reference.String()).
			Msg("document saving listener failed")
	}

	text, err := markup.RenderTree(doc.Content, doc.Syntax)
	if err != nil {
		return fmt.Errorf("failed to render document: %w", err)
	}

	record, err := s.docRepo.Find(ctx, doc.Reference.String())
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("failed to find document: %w", err)
		}
		record = &models.Document{Reference: doc.Reference.String()}
	}

	author := session.Actor(ctx)
	record.Syntax = doc.Syntax
	record.Content = text
	record.Version++
	record.Author = author

	rev := &models.DocumentRevision{
		ID:                uuid.NewString(),
		DocumentReference: record.Reference,
		Version:           record.Version,
		Syntax:            record.Syntax,
		Content:           record.Content,
		Author:            author,
		Comment:           comment,
	}
	if err := s.docRepo.SaveWithRevision(ctx, record, rev); err != nil {
		return fmt.Errorf("failed to save document: %w", err)
	}

	doc.Version = record.Version
	doc.Author = author
	return nil
}

// Delete removes a document and its history after DocumentDeleting
// subscribers ran.
func (s *DocumentService) Delete(ctx context.Context, ref reference.Reference) error {
	doc, err := s.Get(ctx, ref)
	if err != nil {
		return err
	}

	if err := s.bus.PublishDocumentDeleting(ctx, &events.DocumentDeletingPayload{Document: doc}); err != nil {
		s.log.Error().Ctx(ctx).Err(err).
			Str("document", ref.String()).
			Msg("document deleting listener failed")
	}

	if err := s.docRepo.Delete(ctx, ref.String()); err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	return nil
}

// RemoveTaskMacro removes the task macro for task from owner and saves it.
// Nothing is saved when owner has no such macro.
func (s *DocumentService) RemoveTaskMacro(ctx context.Context, owner, task reference.Reference) error {
	doc, err := s.Get(ctx, owner)
	if err != nil {
		if errors.Is(err, ErrDocumentNotFound) {
			return nil
		}
		return err
	}

	match := findTaskMacro(doc, task)
	if match == nil {
		return nil
	}
	markup.RemoveChild(match.Parent, match.Index)

	return s.Save(ctx, doc, fmt.Sprintf("Removed the task with the reference of [%s]", task))
}

// findTaskMacro returns the first task macro in doc whose reference resolves
// to task.
func findTaskMacro(doc *dto.Document, task reference.Reference) *markup.Match {
	for _, match := range markup.FindMacros(doc.Content, constants.MacroTask) {
		raw := match.Block.Params.Value(constants.ParamReference)
		if raw != "" && reference.Resolve(raw, doc.Reference).Equal(task) {
			return &match
		}
	}
	return nil
}

package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/yukikurage/task-macro-sync/internal/models"
)

// GormDocumentRepository is a GORM implementation of DocumentRepository
type GormDocumentRepository struct {
	db *gorm.DB
}

var _ DocumentRepository = (*GormDocumentRepository)(nil)

// NewDocumentRepository creates a new DocumentRepository
func NewDocumentRepository(db *gorm.DB) *GormDocumentRepository {
	return &GormDocumentRepository{db: db}
}

// Find finds the current version of a document
func (r *GormDocumentRepository) Find(ctx context.Context, reference string) (*models.Document, error) {
	var doc models.Document
	if err := r.db.WithContext(ctx).Where("reference = ?", reference).First(&doc).Error; err != nil {
		return nil, err
	}
	return &doc, nil
}

// Exists reports whether a document is stored under reference
func (r *GormDocumentRepository) Exists(ctx context.Context, reference string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Document{}).
		Where("reference = ?", reference).
		Count(&count).Error
	return count > 0, err
}

// SaveWithRevision stores the document and its revision snapshot in a single transaction
func (r *GormDocumentRepository) SaveWithRevision(ctx context.Context, doc *models.Document, rev *models.DocumentRevision) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(doc).Error; err != nil {
			return err
		}
		return tx.Create(rev).Error
	})
}

// FindRevision finds a past version of a document
func (r *GormDocumentRepository) FindRevision(ctx context.Context, reference string, version int) (*models.DocumentRevision, error) {
	var rev models.DocumentRevision
	err := r.db.WithContext(ctx).
		Where("document_reference = ? AND version = ?", reference, version).
		First(&rev).Error
	if err != nil {
		return nil, err
	}
	return &rev, nil
}

// Delete removes a document and its revisions in a transaction
func (r *GormDocumentRepository) Delete(ctx context.Context, reference string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("document_reference = ?", reference).Delete(&models.DocumentRevision{}).Error; err != nil {
			return err
		}

		return tx.Where("reference = ?", reference).Delete(&models.Document{}).Error
	})
}

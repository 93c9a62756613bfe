package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/yukikurage/task-macro-sync/internal/models"
)

// GormPermissionRepository is a GORM implementation of PermissionRepository
type GormPermissionRepository struct {
	db *gorm.DB
}

var _ PermissionRepository = (*GormPermissionRepository)(nil)

// NewPermissionRepository creates a new PermissionRepository
func NewPermissionRepository(db *gorm.DB) *GormPermissionRepository {
	return &GormPermissionRepository{db: db}
}

// Grant adds a permission
func (r *GormPermissionRepository) Grant(ctx context.Context, permission *models.Permission) error {
	return r.db.WithContext(ctx).Create(permission).Error
}

// Revoke removes the grants of subject on scope
func (r *GormPermissionRepository) Revoke(ctx context.Context, subject, scope string) error {
	return r.db.WithContext(ctx).
		Where("subject = ? AND scope = ?", subject, scope).
		Delete(&models.Permission{}).Error
}

// ListBySubjects lists the grants held by any of the subjects
func (r *GormPermissionRepository) ListBySubjects(ctx context.Context, subjects []string) ([]models.Permission, error) {
	if len(subjects) == 0 {
		return []models.Permission{}, nil
	}

	var permissions []models.Permission
	err := r.db.WithContext(ctx).
		Where("subject IN ?", subjects).
		Order("id").
		Find(&permissions).Error
	if err != nil {
		return nil, err
	}
	return permissions, nil
}

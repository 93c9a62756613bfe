package repository

import (
	"context"
	"time"

	"github.com/yukikurage/task-macro-sync/internal/models"
)

// TaskRepository defines the interface for task record access
type TaskRepository interface {
	// FindByReference finds a task by its serialized reference
	FindByReference(ctx context.Context, reference string) (*models.Task, error)

	// FindByNumber finds a task by its display number
	FindByNumber(ctx context.Context, number int) (*models.Task, error)

	// Save creates the task or overwrites the stored one
	Save(ctx context.Context, task *models.Task) error

	// Delete removes a task
	Delete(ctx context.Context, reference string) error

	// MaxNumber returns the highest assigned number, 0 when no task has one
	MaxNumber(ctx context.Context) (int, error)

	// ListReferencesByOwner lists the references of the tasks owned by a document
	ListReferencesByOwner(ctx context.Context, owner string) ([]string, error)

	// List retrieves tasks with filtering and pagination
	List(ctx context.Context, filter TaskFilter) ([]models.Task, int64, error)
}

// TaskFilter holds filtering options for listing tasks
type TaskFilter struct {
	Owner         *string
	Assignee      *string
	Reporter      *string
	Status        *models.TaskStatus
	DueDateFrom   *time.Time
	DueDateTo     *time.Time
	SortByDueDate bool
	Page          int
	PageSize      int
}

// DocumentRepository defines the interface for document storage
type DocumentRepository interface {
	// Find finds the current version of a document
	Find(ctx context.Context, reference string) (*models.Document, error)

	// Exists reports whether a document is stored under reference
	Exists(ctx context.Context, reference string) (bool, error)

	// SaveWithRevision stores the document and its revision snapshot in a
	// single transaction
	SaveWithRevision(ctx context.Context, doc *models.Document, rev *models.DocumentRevision) error

	// FindRevision finds a past version of a document
	FindRevision(ctx context.Context, reference string, version int) (*models.DocumentRevision, error)

	// Delete removes a document and its revisions
	Delete(ctx context.Context, reference string) error
}

// PermissionRepository defines the interface for access grants
type PermissionRepository interface {
	// Grant adds a permission
	Grant(ctx context.Context, permission *models.Permission) error

	// Revoke removes the grants of subject on scope
	Revoke(ctx context.Context, subject, scope string) error

	// ListBySubjects lists the grants held by any of the subjects
	ListBySubjects(ctx context.Context, subjects []string) ([]models.Permission, error)
}

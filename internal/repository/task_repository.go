package repository

import (
	"context"
	"database/sql"

	"gorm.io/gorm"

	"github.com/yukikurage/task-macro-sync/internal/database"
	"github.com/yukikurage/task-macro-sync/internal/models"
	"github.com/yukikurage/task-macro-sync/internal/utils"
)

// GormTaskRepository is a GORM implementation of TaskRepository
type GormTaskRepository struct {
	db *gorm.DB
}

var _ TaskRepository = (*GormTaskRepository)(nil)

// NewTaskRepository creates a new TaskRepository
func NewTaskRepository(db *gorm.DB) *GormTaskRepository {
	return &GormTaskRepository{db: db}
}

// FindByReference finds a task by its serialized reference
func (r *GormTaskRepository) FindByReference(ctx context.Context, reference string) (*models.Task, error) {
	var task models.Task
	if err := r.db.WithContext(ctx).Where("reference = ?", reference).First(&task).Error; err != nil {
		return nil, err
	}
	return &task, nil
}

// FindByNumber finds a task by its display number
func (r *GormTaskRepository) FindByNumber(ctx context.Context, number int) (*models.Task, error) {
	var task models.Task
	if err := r.db.WithContext(ctx).Where("number = ?", number).First(&task).Error; err != nil {
		return nil, err
	}
	return &task, nil
}

// Save creates the task or overwrites the stored one
func (r *GormTaskRepository) Save(ctx context.Context, task *models.Task) error {
	return r.db.WithContext(ctx).Save(task).Error
}

// Delete removes a task
func (r *GormTaskRepository) Delete(ctx context.Context, reference string) error {
	return r.db.WithContext(ctx).Where("reference = ?", reference).Delete(&models.Task{}).Error
}

// MaxNumber returns the highest assigned number, 0 when no task has one
func (r *GormTaskRepository) MaxNumber(ctx context.Context) (int, error) {
	var max sql.NullInt64
	err := r.db.WithContext(ctx).Model(&models.Task{}).Select("MAX(number)").Scan(&max).Error
	if err != nil {
		return 0, err
	}
	if !max.Valid {
		return 0, nil
	}
	return int(max.Int64), nil
}

// ListReferencesByOwner lists the references of the tasks owned by a document
func (r *GormTaskRepository) ListReferencesByOwner(ctx context.Context, owner string) ([]string, error) {
	var refs []string
	err := r.db.WithContext(ctx).Model(&models.Task{}).
		Where("owner = ?", owner).
		Order("reference").
		Pluck("reference", &refs).Error
	if err != nil {
		return nil, err
	}
	return refs, nil
}

// List retrieves tasks with filtering and pagination
func (r *GormTaskRepository) List(ctx context.Context, filter TaskFilter) ([]models.Task, int64, error) {
	var tasks []models.Task

	query := r.db.WithContext(ctx).Model(&models.Task{})

	// Apply filters
	if filter.Owner != nil {
		query = query.Where("tasks.owner = ?", *filter.Owner)
	}
	if filter.Assignee != nil {
		query = query.Where("tasks.assignee = ?", *filter.Assignee)
	}
	if filter.Reporter != nil {
		query = query.Where("tasks.reporter = ?", *filter.Reporter)
	}
	if filter.Status != nil {
		query = query.Where("tasks.status = ?", *filter.Status)
	}
	query = query.Scopes(database.DueWithin(filter.DueDateFrom, filter.DueDateTo))

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	listQuery := query.Scopes(database.ListingOrder(filter.SortByDueDate))

	if filter.Page > 0 && filter.PageSize > 0 {
		listQuery = listQuery.Scopes(database.Paginate(utils.NewPaginationParams(filter.Page, filter.PageSize)))
	}

	if err := listQuery.Find(&tasks).Error; err != nil {
		return nil, 0, err
	}

	return tasks, total, nil
}

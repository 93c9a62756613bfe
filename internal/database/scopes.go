package database

import (
	"time"

	"gorm.io/gorm"

	"github.com/yukikurage/task-macro-sync/internal/utils"
)

// Paginate applies pagination to a GORM query
func Paginate(params utils.PaginationParams) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Offset(params.Offset).Limit(params.Limit)
	}
}

// DueWithin keeps tasks due in [from, to). Nil bounds are open.
func DueWithin(from, to *time.Time) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if from != nil {
			db = db.Where("tasks.due_date >= ?", *from)
		}
		if to != nil {
			db = db.Where("tasks.due_date < ?", *to)
		}
		return db
	}
}

// ListingOrder orders tasks by number, or by due date with undated tasks
// last.
func ListingOrder(byDueDate bool) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if byDueDate {
			return db.Order("CASE WHEN tasks.due_date IS NULL THEN 1 ELSE 0 END, tasks.due_date ASC")
		}
		return db.Order("tasks.number ASC")
	}
}

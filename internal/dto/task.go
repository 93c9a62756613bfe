package dto

import (
	"time"

	"github.com/yukikurage/task-macro-sync/internal/models"
	"github.com/yukikurage/task-macro-sync/internal/reference"
	"github.com/yukikurage/task-macro-sync/internal/utils"
)

// Task is the value object exchanged between extraction, reconciliation and
// the record store.
type Task struct {
	Reference    reference.Reference
	Number       int
	Owner        reference.Reference
	Reporter     string
	Assignee     string
	Status       models.TaskStatus
	Name         string
	Render       string
	CreateDate   time.Time
	DueDate      *time.Time
	CompleteDate *time.Time

	// CreateDateDefaulted and DueDateDefaulted mark dates substituted with
	// the extraction time because the markup had none or an unparseable one.
	CreateDateDefaulted bool
	DueDateDefaulted    bool
}

// IsDone reports whether the task reached the terminal status.
func (t *Task) IsDone() bool {
	return t.Status == models.TaskStatusDone
}

// TaskPage represents a paginated list of tasks
type TaskPage struct {
	Tasks      []Task
	Page       int
	PageSize   int
	TotalCount int64
	TotalPages int
}

// Conversion functions

// ToTaskDTO converts a Task model to a Task value object
func ToTaskDTO(task models.Task) Task {
	return Task{
		Reference:    reference.Parse(task.Reference),
		Number:       task.Number,
		Owner:        reference.Parse(task.Owner),
		Reporter:     task.Reporter,
		Assignee:     task.Assignee,
		Status:       task.Status,
		Name:         task.Name,
		Render:       task.Render,
		CreateDate:   task.CreateDate,
		DueDate:      task.DueDate,
		CompleteDate: task.CompleteDate,
	}
}

// ApplyToModel copies every field of task onto record, keeping the
// record's bookkeeping timestamps.
func ApplyToModel(task Task, record *models.Task) {
	record.Reference = task.Reference.String()
	record.Number = task.Number
	record.Owner = task.Owner.String()
	record.Reporter = task.Reporter
	record.Assignee = task.Assignee
	record.Status = task.Status
	record.Name = task.Name
	record.Render = task.Render
	record.CreateDate = task.CreateDate
	record.DueDate = task.DueDate
	record.CompleteDate = task.CompleteDate
}

// ToTaskModel converts a Task value object to a new Task model
func ToTaskModel(task Task) *models.Task {
	record := &models.Task{}
	ApplyToModel(task, record)
	return record
}

// ToTaskPage converts a slice of tasks to a TaskPage
func ToTaskPage(tasks []models.Task, page, pageSize int, totalCount int64) TaskPage {
	items := make([]Task, len(tasks))
	for i, task := range tasks {
		items[i] = ToTaskDTO(task)
	}

	return TaskPage{
		Tasks:      items,
		Page:       page,
		PageSize:   pageSize,
		TotalCount: totalCount,
		TotalPages: utils.TotalPages(totalCount, pageSize),
	}
}

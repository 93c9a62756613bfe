package models

import (
	"time"
)

type TaskStatus string

// TaskStatusDone is the terminal status. Any other value is free form.
const TaskStatusDone TaskStatus = "done"

// Task is the stored record of a task. Reference, Owner, Reporter and
// Assignee hold serialized references.
type Task struct {
	Reference    string     `gorm:"primaryKey;type:varchar(255)" json:"reference"`
	Number       int        `gorm:"not null;default:0" json:"number"`
	Owner        string     `gorm:"type:varchar(255);not null;default:''" json:"owner"`
	Reporter     string     `gorm:"type:varchar(255)" json:"reporter"`
	Assignee     string     `gorm:"type:varchar(255)" json:"assignee"`
	Status       TaskStatus `gorm:"type:varchar(50)" json:"status"`
	Name         string     `gorm:"type:text" json:"name"`
	Render       string     `gorm:"type:text" json:"render"`
	CreateDate   time.Time  `json:"create_date"`
	DueDate      *time.Time `json:"due_date"`
	CompleteDate *time.Time `json:"complete_date"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// IsDone reports whether the task reached the terminal status.
func (t *Task) IsDone() bool {
	return t.Status == TaskStatusDone
}

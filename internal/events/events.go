// Package events is a synchronous publish/subscribe bus for the signals that
// drive reconciliation: a document or a task record about to be saved or
// deleted. Subscribers run in registration order on the publishing goroutine
// and may veto the operation by returning an error.
package events

import (
	"github.com/yukikurage/task-macro-sync/internal/dto"
)

// Event names a signal.
type Event string

const (
	DocumentSaving   Event = "document.saving"
	DocumentDeleting Event = "document.deleting"
	TaskSaving       Event = "task.saving"
	TaskDeleting     Event = "task.deleting"
)

// DocumentSavingPayload is published before a document version is stored.
// Subscribers may mutate Document.Content; the mutated tree is what gets
// persisted.
type DocumentSavingPayload struct {
	Document *dto.Document
	Comment  string
}

// DocumentDeletingPayload is published before a document is removed.
type DocumentDeletingPayload struct {
	Document *dto.Document
}

// TaskSavingPayload is published before a task record is stored.
// Subscribers may mutate Task.
type TaskSavingPayload struct {
	Task *dto.Task
}

// TaskDeletingPayload is published before a task record is removed.
type TaskDeletingPayload struct {
	Task *dto.Task
}

package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/yukikurage/task-macro-sync/internal/dto"
	"github.com/yukikurage/task-macro-sync/internal/events"
	"github.com/yukikurage/task-macro-sync/internal/logging"
	"github.com/yukikurage/task-macro-sync/internal/models"
	"github.com/yukikurage/task-macro-sync/internal/reference"
	"github.com/yukikurage/task-macro-sync/internal/repository"
	"github.com/yukikurage/task-macro-sync/internal/session"
)

// ActionKind is what a reconciliation pass did for one task.
type ActionKind string

const (
	ActionCreated             ActionKind = "created"
	ActionUpdated             ActionKind = "updated"
	ActionUnchanged           ActionKind = "unchanged"
	ActionDeleted             ActionKind = "deleted"
	ActionDisowned            ActionKind = "disowned"
	ActionSkippedNoRights     ActionKind = "skipped_no_rights"
	ActionSkippedForeignOwner ActionKind = "skipped_foreign_owner"
	ActionSkippedMissing      ActionKind = "skipped_missing"
	ActionSkippedDuplicate    ActionKind = "skipped_duplicate"
	ActionFailed              ActionKind = "failed"
)

// SyncAction is the result of a pass for one reference.
type SyncAction struct {
	Reference string
	Kind      ActionKind
	Err       error
}

// SyncReport lists what a pass did. Removed tasks come first.
type SyncReport struct {
	Document string
	PassID   string
	// Extraction is the result for the content being saved.
	Extraction ExtractResult
	Actions    []SyncAction
}

// Count returns how many actions are of kind.
func (r SyncReport) Count(kind ActionKind) int {
	n := 0
	for _, a := range r.Actions {
		if a.Kind == kind {
			n++
		}
	}
	return n
}

// Action returns the action taken for ref.
func (r SyncReport) Action(ref string) (SyncAction, bool) {
	for _, a := range r.Actions {
		if a.Reference == ref {
			return a, true
		}
	}
	return SyncAction{}, false
}

// RevisionSource loads past document versions.
type RevisionSource interface {
	Revision(ctx context.Context, ref reference.Reference, version int) (*dto.Document, error)
}

// MacroSync updates task records from the task macros of a document being
// saved.
type MacroSync struct {
	extractor *TaskExtractor
	revisions RevisionSource
	tasks     *TaskService
	taskRepo  repository.TaskRepository
	authz     Authorizer
	proc      *BlockProcessor
	log       zerolog.Logger
}

// NewMacroSync creates a new MacroSync
func NewMacroSync(extractor *TaskExtractor, revisions RevisionSource, tasks *TaskService, taskRepo repository.TaskRepository, authz Authorizer, proc *BlockProcessor, log zerolog.Logger) *MacroSync {
	return &MacroSync{
		extractor: extractor,
		revisions: revisions,
		tasks:     tasks,
		taskRepo:  taskRepo,
		authz:     authz,
		proc:      proc,
		log:       log.With().Str("cmp", "macro-sync").Logger(),
	}
}

// OnDocumentSaving reconciles the document unless the save comes from a
// pass that is already running.
func (s *MacroSync) OnDocumentSaving(ctx context.Context, p *events.DocumentSavingPayload) error {
	if session.IsReconciling(ctx) {
		return nil
	}
	s.Reconcile(ctx, p.Document)
	return nil
}

// Reconcile brings the records of the tasks in doc in line with its content.
// New task macros get a reference written into doc.Content, so the caller
// must store doc afterwards. Failures are reported per task and never stop
// the pass.
func (s *MacroSync) Reconcile(ctx context.Context, doc *dto.Document) SyncReport {
	passID := uuid.NewString()
	ctx = logging.WithDocument(ctx, doc.Reference.String())
	ctx = logging.WithPassID(ctx, passID)

	report := SyncReport{Document: doc.Reference.String(), PassID: passID}

	current := s.extractor.Extract(ctx, doc.Content, doc.Reference, doc.Syntax, ExtractOptions{AssignReferences: true})
	report.Extraction = current
	removed := s.removedTasks(ctx, doc, current.Tasks)

	if len(current.Tasks) == 0 && len(removed) == 0 {
		return report
	}

	ctx = session.WithReconciling(ctx)

	for _, task := range removed {
		kind, err := s.tasks.ReleaseOwnership(ctx, task.Reference, doc.Reference)
		if err != nil {
			s.log.Error().Ctx(ctx).Err(err).Str("reference", task.Reference.String()).Msg("failed to release removed task")
		}
		report.Actions = append(report.Actions, SyncAction{Reference: task.Reference.String(), Kind: kind, Err: err})
	}

	seen := make(map[string]bool, len(current.Tasks))
	for _, task := range current.Tasks {
		ref := task.Reference.String()
		if seen[ref] {
			s.log.Warn().Ctx(ctx).Str("reference", ref).Msg("task macro appears more than once, ignoring the repeat")
			report.Actions = append(report.Actions, SyncAction{Reference: ref, Kind: ActionSkippedDuplicate})
			continue
		}
		seen[ref] = true

		kind, err := s.syncTask(ctx, task, doc.Reference)
		if err != nil {
			s.log.Error().Ctx(ctx).Err(err).Str("reference", ref).Msg("failed to synchronize task")
		}
		report.Actions = append(report.Actions, SyncAction{Reference: ref, Kind: kind, Err: err})
	}

	s.log.Debug().Ctx(ctx).
		Int("tasks", len(current.Tasks)).
		Int("removed", len(removed)).
		Msg("reconciled document tasks")
	return report
}

// removedTasks lists the tasks of the previous version of doc that are no
// longer in current.
func (s *MacroSync) removedTasks(ctx context.Context, doc *dto.Document, current []dto.Task) []dto.Task {
	if doc.IsNew() {
		return nil
	}

	prev, err := s.revisions.Revision(ctx, doc.Reference, doc.Version)
	if err != nil {
		s.log.Warn().Ctx(ctx).Err(err).Int("version", doc.Version).Msg("failed to load the previous revision")
		return nil
	}
	previous := s.extractor.Extract(ctx, prev.Content, doc.Reference, prev.Syntax, ExtractOptions{})

	kept := make(map[string]bool, len(current))
	for _, task := range current {
		kept[task.Reference.String()] = true
	}

	var removed []dto.Task
	for _, task := range previous.Tasks {
		ref := task.Reference.String()
		if kept[ref] {
			continue
		}
		kept[ref] = true
		removed = append(removed, task)
	}
	return removed
}

func (s *MacroSync) syncTask(ctx context.Context, task dto.Task, owner reference.Reference) (ActionKind, error) {
	log := s.log.With().Str("reference", task.Reference.String()).Logger()

	if !s.authz.HasAccess(ctx, models.RightEdit, session.Actor(ctx), task.Reference) {
		log.Warn().Ctx(ctx).Msg("no edit right on the task, leaving its record as is")
		return ActionSkippedNoRights, nil
	}

	record, err := s.taskRepo.FindByReference(ctx, task.Reference.String())
	created := false
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		record = &models.Task{}
		created = true
	case err != nil:
		return ActionFailed, err
	case record.Owner != "" && !reference.Parse(record.Owner).Equal(owner):
		log.Debug().Ctx(ctx).Str("owner", record.Owner).Msg("task is owned by another document")
		return ActionSkippedForeignOwner, nil
	}

	if !s.apply(record, task, owner, created) {
		return ActionUnchanged, nil
	}
	if err := s.tasks.SaveRecord(ctx, record); err != nil {
		return ActionFailed, err
	}
	if created {
		return ActionCreated, nil
	}
	return ActionUpdated, nil
}

// apply copies the extracted fields onto record and reports whether any
// stored field changed. Dates the extractor made up keep the stored value
// of an existing record. Number and render belong to the record side.
func (s *MacroSync) apply(record *models.Task, task dto.Task, owner reference.Reference, created bool) bool {
	before := *record

	record.Reference = task.Reference.String()
	record.Owner = owner.String()
	record.Reporter = task.Reporter
	record.Assignee = task.Assignee
	record.Status = task.Status
	record.Name = task.Name
	if created || !task.CreateDateDefaulted {
		record.CreateDate = task.CreateDate
	}
	if created || !task.DueDateDefaulted {
		record.DueDate = task.DueDate
	}
	switch {
	case !task.IsDone():
		record.CompleteDate = nil
	case task.CompleteDate != nil:
		record.CompleteDate = task.CompleteDate
	case record.CompleteDate == nil:
		now := s.proc.Now()
		record.CompleteDate = &now
	}
	if created {
		record.Render = task.Render
	}

	return created || !sameFields(before, *record)
}

func sameFields(a, b models.Task) bool {
	return a.Reference == b.Reference &&
		a.Owner == b.Owner &&
		a.Reporter == b.Reporter &&
		a.Assignee == b.Assignee &&
		a.Status == b.Status &&
		a.Name == b.Name &&
		a.CreateDate.Equal(b.CreateDate) &&
		sameTime(a.DueDate, b.DueDate) &&
		sameTime(a.CompleteDate, b.CompleteDate)
}

func sameTime(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}

package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

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
	"github.com/yukikurage/task-macro-sync/internal/utils"
)

var (
	ErrTaskNotFound         = apperrors.NotFound("task not found")
	ErrTaskPermissionDenied = apperrors.Forbidden("user does not have permission on this task")
	ErrNameEmpty            = apperrors.InvalidInput("task name cannot be empty")
)

// TaskService handles task records. Saves and deletes go through the bus so
// the owner document follows record side edits.
type TaskService struct {
	taskRepo repository.TaskRepository
	authz    Authorizer
	bus      *events.Bus
	proc     *BlockProcessor
	log      zerolog.Logger
}

var _ ReferenceChecker = (*TaskService)(nil)

// NewTaskService creates a new TaskService
func NewTaskService(taskRepo repository.TaskRepository, authz Authorizer, bus *events.Bus, proc *BlockProcessor, log zerolog.Logger) *TaskService {
	return &TaskService{
		taskRepo: taskRepo,
		authz:    authz,
		bus:      bus,
		proc:     proc,
		log:      log.With().Str("cmp", "tasks").Logger(),
	}
}

// ListTasksInput represents filters for listing tasks
type ListTasksInput struct {
	Owner         *reference.Reference
	Assignee      *string
	Reporter      *string
	Status        *models.TaskStatus
	DueToday      bool
	SortByDueDate bool
	Page          int
	PageSize      int
}

// UpdateTaskInput represents a record side edit of a task
type UpdateTaskInput struct {
	Name         *string
	Assignee     *string
	DueDate      *time.Time
	ClearDueDate bool
}

// GetTask returns a task the actor may view
func (s *TaskService) GetTask(ctx context.Context, ref reference.Reference) (*dto.Task, error) {
	record, err := s.findRecord(ctx, ref)
	if err != nil {
		return nil, err
	}
	if !s.authz.HasAccess(ctx, models.RightView, session.Actor(ctx), ref) {
		return nil, ErrTaskPermissionDenied
	}
	task := dto.ToTaskDTO(*record)
	return &task, nil
}

// GetTaskByNumber returns the task with the given display number
func (s *TaskService) GetTaskByNumber(ctx context.Context, number int) (*dto.Task, error) {
	record, err := s.taskRepo.FindByNumber(ctx, number)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, apperrors.Store(fmt.Sprintf("failed to find task number %d", number), err)
	}
	task := dto.ToTaskDTO(*record)
	if !s.authz.HasAccess(ctx, models.RightView, session.Actor(ctx), task.Reference) {
		return nil, ErrTaskPermissionDenied
	}
	return &task, nil
}

// ListTasks returns the tasks matching input that the actor may view
func (s *TaskService) ListTasks(ctx context.Context, input ListTasksInput) (dto.TaskPage, error) {
	filter := repository.TaskFilter{
		Assignee:      input.Assignee,
		Reporter:      input.Reporter,
		Status:        input.Status,
		SortByDueDate: input.SortByDueDate,
	}
	if input.Owner != nil {
		owner := input.Owner.String()
		filter.Owner = &owner
	}
	if input.DueToday {
		now := s.proc.clock().In(s.proc.loc)
		startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
		endOfDay := startOfDay.Add(24 * time.Hour)
		filter.DueDateFrom = &startOfDay
		filter.DueDateTo = &endOfDay
	}

	// Rights are checked per task, so the page is cut after filtering.
	records, _, err := s.taskRepo.List(ctx, filter)
	if err != nil {
		return dto.TaskPage{}, fmt.Errorf("failed to list tasks: %w", err)
	}

	actor := session.Actor(ctx)
	visible := make([]models.Task, 0, len(records))
	for _, record := range records {
		if s.authz.HasAccess(ctx, models.RightView, actor, reference.Parse(record.Reference)) {
			visible = append(visible, record)
		}
	}

	params := utils.NewPaginationParams(input.Page, input.PageSize)
	start := min(params.Offset, len(visible))
	end := min(start+params.Limit, len(visible))
	return dto.ToTaskPage(visible[start:end], params.Page, params.Limit, int64(len(visible))), nil
}

// ChangeStatus sets the status of a task. Reaching done stamps the complete
// date, any other status clears it.
func (s *TaskService) ChangeStatus(ctx context.Context, ref reference.Reference, status models.TaskStatus) (*dto.Task, error) {
	return s.edit(ctx, ref, func(record *models.Task) error {
		record.Status = status
		if record.IsDone() {
			now := s.proc.Now()
			record.CompleteDate = &now
		} else {
			record.CompleteDate = nil
		}
		return nil
	})
}

// UpdateTask applies a record side edit and regenerates the markup
func (s *TaskService) UpdateTask(ctx context.Context, ref reference.Reference, input UpdateTaskInput) (*dto.Task, error) {
	return s.edit(ctx, ref, func(record *models.Task) error {
		if input.Name != nil {
			name := strings.TrimSpace(*input.Name)
			if name == "" {
				return ErrNameEmpty
			}
			record.Name = name
		}
		if input.Assignee != nil {
			record.Assignee = *input.Assignee
		}
		if input.ClearDueDate {
			record.DueDate = nil
		} else if input.DueDate != nil {
			due := *input.DueDate
			record.DueDate = &due
		}
		return nil
	})
}

func (s *TaskService) edit(ctx context.Context, ref reference.Reference, apply func(*models.Task) error) (*dto.Task, error) {
	record, err := s.findRecord(ctx, ref)
	if err != nil {
		return nil, err
	}
	if !s.authz.HasAccess(ctx, models.RightEdit, session.Actor(ctx), ref) {
		return nil, ErrTaskPermissionDenied
	}
	if err := apply(record); err != nil {
		return nil, err
	}
	if err := s.SaveRecord(ctx, record); err != nil {
		return nil, err
	}
	task := dto.ToTaskDTO(*record)
	return &task, nil
}

// RenderTasks renders the tasks with the given numbers as task macros, in
// order. Tasks the actor may not view, and unknown numbers, render as an
// error macro.
func (s *TaskService) RenderTasks(ctx context.Context, numbers []int, syntax string) (string, error) {
	actor := session.Actor(ctx)
	blocks := make([]*markup.Block, 0, len(numbers))

	for _, number := range numbers {
		record, err := s.taskRepo.FindByNumber(ctx, number)
		if err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return "", fmt.Errorf("failed to find task number %d: %w", number, err)
			}
			blocks = append(blocks, errorMacro(fmt.Sprintf("Task %d does not exist.", number)))
			continue
		}

		task := dto.ToTaskDTO(*record)
		if !s.authz.HasAccess(ctx, models.RightView, actor, task.Reference) {
			blocks = append(blocks, errorMacro(fmt.Sprintf("You are not allowed to view task %d.", number)))
			continue
		}

		macro, err := s.proc.TaskMacro(task)
		if err != nil {
			return "", fmt.Errorf("failed to build task %d: %w", number, err)
		}
		blocks = append(blocks, macro)
	}

	return s.proc.Render(blocks, syntax)
}

func errorMacro(message string) *markup.Block {
	return markup.NewMacro(constants.MacroError, nil, message, false)
}

// Exists reports whether a record is stored under ref
func (s *TaskService) Exists(ctx context.Context, ref reference.Reference) (bool, error) {
	_, err := s.taskRepo.FindByReference(ctx, ref.String())
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("failed to check task: %w", err)
	}
	return true, nil
}

// SaveRecord publishes TaskSaving, which may fill in the number and render,
// then stores record.
func (s *TaskService) SaveRecord(ctx context.Context, record *models.Task) error {
	task := dto.ToTaskDTO(*record)
	if err := s.bus.PublishTaskSaving(ctx, &events.TaskSavingPayload{Task: &task}); err != nil {
		s.log.Error().Ctx(ctx).Err(err).Str("reference", record.Reference).Msg("task saving listener failed")
	}
	dto.ApplyToModel(task, record)

	if err := s.taskRepo.Save(ctx, record); err != nil {
		return fmt.Errorf("failed to save task: %w", err)
	}
	return nil
}

// DeleteRecord publishes TaskDeleting, then removes record.
func (s *TaskService) DeleteRecord(ctx context.Context, record *models.Task) error {
	task := dto.ToTaskDTO(*record)
	if err := s.bus.PublishTaskDeleting(ctx, &events.TaskDeletingPayload{Task: &task}); err != nil {
		s.log.Error().Ctx(ctx).Err(err).Str("reference", record.Reference).Msg("task deleting listener failed")
	}

	if err := s.taskRepo.Delete(ctx, record.Reference); err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}
	return nil
}

// ReleaseOwnership detaches the task ref from owner once its macro is gone:
// the record is deleted when the actor may delete it, disowned when the
// actor may only edit it, and left alone otherwise. A record owned by
// another document is not touched.
func (s *TaskService) ReleaseOwnership(ctx context.Context, ref, owner reference.Reference) (ActionKind, error) {
	record, err := s.taskRepo.FindByReference(ctx, ref.String())
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ActionSkippedMissing, nil
		}
		return ActionFailed, fmt.Errorf("failed to find task: %w", err)
	}

	log := s.log.With().Str("reference", ref.String()).Str("document", owner.String()).Logger()

	if !reference.Parse(record.Owner).Equal(owner) {
		log.Debug().Ctx(ctx).Str("owner", record.Owner).Msg("task is owned by another document")
		return ActionSkippedForeignOwner, nil
	}

	actor := session.Actor(ctx)
	switch {
	case s.authz.HasAccess(ctx, models.RightDelete, actor, ref):
		if err := s.DeleteRecord(ctx, record); err != nil {
			return ActionFailed, err
		}
		return ActionDeleted, nil
	case s.authz.HasAccess(ctx, models.RightEdit, actor, ref):
		record.Owner = ""
		if err := s.SaveRecord(ctx, record); err != nil {
			return ActionFailed, err
		}
		return ActionDisowned, nil
	default:
		log.Warn().Ctx(ctx).Msg("no right to delete or disown the removed task, leaving it untouched")
		return ActionSkippedNoRights, nil
	}
}

// DeleteTasksByOwner releases every task owned by owner
func (s *TaskService) DeleteTasksByOwner(ctx context.Context, owner reference.Reference) ([]SyncAction, error) {
	refs, err := s.taskRepo.ListReferencesByOwner(ctx, owner.String())
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks of %s: %w", owner, err)
	}

	actions := make([]SyncAction, 0, len(refs))
	for _, raw := range refs {
		kind, err := s.ReleaseOwnership(ctx, reference.Parse(raw), owner)
		if err != nil {
			s.log.Error().Ctx(ctx).Err(err).Str("reference", raw).Msg("failed to release task")
		}
		actions = append(actions, SyncAction{Reference: raw, Kind: kind, Err: err})
	}
	return actions, nil
}

// OnDocumentDeleting releases the tasks owned by the deleted document. The
// owner document is going away, so its markup is not edited.
func (s *TaskService) OnDocumentDeleting(ctx context.Context, p *events.DocumentDeletingPayload) error {
	_, err := s.DeleteTasksByOwner(session.WithReconciling(ctx), p.Document.Reference)
	return err
}

func (s *TaskService) findRecord(ctx context.Context, ref reference.Reference) (*models.Task, error) {
	record, err := s.taskRepo.FindByReference(ctx, ref.String())
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, apperrors.Store("failed to find task", err)
	}
	return record, nil
}

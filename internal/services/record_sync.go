package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/yukikurage/task-macro-sync/internal/dto"
	"github.com/yukikurage/task-macro-sync/internal/events"
	"github.com/yukikurage/task-macro-sync/internal/markup"
	"github.com/yukikurage/task-macro-sync/internal/session"
)

// RecordSync keeps the owner document of a task in line with its record.
type RecordSync struct {
	docs    *DocumentService
	counter NumberSource
	proc    *BlockProcessor
	log     zerolog.Logger
}

// NewRecordSync creates a new RecordSync
func NewRecordSync(docs *DocumentService, counter NumberSource, proc *BlockProcessor, log zerolog.Logger) *RecordSync {
	return &RecordSync{
		docs:    docs,
		counter: counter,
		proc:    proc,
		log:     log.With().Str("cmp", "record-sync").Logger(),
	}
}

// OnTaskSaving numbers the task when needed, refreshes its canonical render
// and, outside a running pass, rewrites its macro in the owner document.
// Failures are logged so the record save goes through.
func (s *RecordSync) OnTaskSaving(ctx context.Context, p *events.TaskSavingPayload) error {
	task := p.Task
	log := s.log.With().Str("reference", task.Reference.String()).Logger()

	if task.Number == 0 {
		number, err := s.counter.Next(ctx)
		if err != nil {
			log.Error().Ctx(ctx).Err(err).Msg("failed to number task, will retry on next save")
		} else {
			task.Number = number
		}
	}

	if render, err := s.proc.CanonicalRender(*task); err != nil {
		log.Warn().Ctx(ctx).Err(err).Msg("failed to render task")
	} else {
		task.Render = render
	}

	if session.IsReconciling(ctx) || task.Owner.IsZero() {
		return nil
	}

	if err := s.updateMacro(session.WithReconciling(ctx), task); err != nil {
		log.Error().Ctx(ctx).Err(err).Str("owner", task.Owner.String()).Msg("failed to update task macro")
	}
	return nil
}

// OnTaskDeleting removes the macro of the task from its owner document.
func (s *RecordSync) OnTaskDeleting(ctx context.Context, p *events.TaskDeletingPayload) error {
	task := p.Task
	if session.IsReconciling(ctx) || task.Owner.IsZero() {
		return nil
	}

	if err := s.docs.RemoveTaskMacro(session.WithReconciling(ctx), task.Owner, task.Reference); err != nil {
		s.log.Error().Ctx(ctx).Err(err).
			Str("reference", task.Reference.String()).
			Str("owner", task.Owner.String()).
			Msg("failed to remove task macro")
	}
	return nil
}

// updateMacro regenerates the macro of task in place and saves the owner.
// A missing owner or macro is not an error.
func (s *RecordSync) updateMacro(ctx context.Context, task *dto.Task) error {
	doc, err := s.docs.Get(ctx, task.Owner)
	if err != nil {
		if errors.Is(err, ErrDocumentNotFound) {
			return nil
		}
		return err
	}

	match := findTaskMacro(doc, task.Reference)
	if match == nil {
		return nil
	}

	blocks, err := s.proc.Synthesize(task.Assignee, task.DueDate, task.Name)
	if err != nil {
		return err
	}
	content, err := s.proc.Render(blocks, doc.Syntax)
	if err != nil {
		return err
	}

	macro := match.Block.Clone()
	s.proc.ApplyTaskParams(macro, *task)
	macro.Content = content
	macro.HasContent = content != ""
	markup.ReplaceChild(match.Parent, match.Index, macro)

	return s.docs.Save(ctx, doc, fmt.Sprintf("Task [%s] has been updated!", task.Reference))
}

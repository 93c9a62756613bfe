package services

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/yukikurage/task-macro-sync/internal/constants"
	"github.com/yukikurage/task-macro-sync/internal/dto"
	"github.com/yukikurage/task-macro-sync/internal/markup"
	"github.com/yukikurage/task-macro-sync/internal/models"
	"github.com/yukikurage/task-macro-sync/internal/reference"
	"github.com/yukikurage/task-macro-sync/internal/session"
)

// Outcome is what extraction did with one task macro.
type Outcome int

const (
	OutcomeExtracted Outcome = iota
	OutcomeSkipped
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeExtracted:
		return "extracted"
	case OutcomeSkipped:
		return "skipped"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Skip reasons.
const (
	ReasonNoReference = "task macro has no reference"
)

// TaskOutcome records the result for the task macro at position Index, in
// document order.
type TaskOutcome struct {
	Index     int
	Reference string
	Outcome   Outcome
	Reason    string
	Err       error
	// Generated is set when the reference was created by this extraction.
	Generated bool
}

// ExtractResult lists the extracted tasks in document order.
type ExtractResult struct {
	Tasks    []dto.Task
	Outcomes []TaskOutcome
	// Mutated is set when references were written into the content.
	Mutated bool
}

// Count returns how many macros ended with outcome.
func (r ExtractResult) Count(outcome Outcome) int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Outcome == outcome {
			n++
		}
	}
	return n
}

// ExtractOptions tunes extraction.
type ExtractOptions struct {
	// AssignReferences generates references for macros that have none and
	// writes them into the content. Without it such macros are skipped.
	AssignReferences bool
}

// TaskExtractor reads task macros out of a content tree.
type TaskExtractor struct {
	refs ReferenceSource
	proc *BlockProcessor
	log  zerolog.Logger
}

// NewTaskExtractor creates a new TaskExtractor
func NewTaskExtractor(refs ReferenceSource, proc *BlockProcessor, log zerolog.Logger) *TaskExtractor {
	return &TaskExtractor{
		refs: refs,
		proc: proc,
		log:  log.With().Str("cmp", "extractor").Logger(),
	}
}

// Extract returns one task per task macro below content. source is the
// document holding content and syntax its syntax.
func (e *TaskExtractor) Extract(ctx context.Context, content *markup.Block, source reference.Reference, syntax string, opts ExtractOptions) ExtractResult {
	var result ExtractResult

	for i, match := range markup.FindMacros(content, constants.MacroTask) {
		task, outcome := e.extractOne(ctx, match.Block, source, syntax, opts)
		outcome.Index = i
		if outcome.Outcome == OutcomeExtracted {
			result.Tasks = append(result.Tasks, task)
		}
		if outcome.Generated {
			result.Mutated = true
		}
		result.Outcomes = append(result.Outcomes, outcome)
	}
	return result
}

func (e *TaskExtractor) extractOne(ctx context.Context, macro *markup.Block, source reference.Reference, syntax string, opts ExtractOptions) (dto.Task, TaskOutcome) {
	log := e.log.With().Str("document", source.String()).Logger()

	content, err := e.proc.ParseContent(macro.Content, syntax)
	if err != nil {
		log.Warn().Ctx(ctx).Err(err).
			Str("reference", macro.Params.Value(constants.ParamReference)).
			Msg("failed to parse task content, task dropped")
		return dto.Task{}, TaskOutcome{
			Reference: macro.Params.Value(constants.ParamReference),
			Outcome:   OutcomeFailed,
			Err:       err,
		}
	}

	task := dto.Task{Owner: source}
	generated := false

	raw := strings.TrimSpace(macro.Params.Value(constants.ParamReference))
	if raw == "" {
		if !opts.AssignReferences {
			return dto.Task{}, TaskOutcome{Outcome: OutcomeSkipped, Reason: ReasonNoReference}
		}
		ref, err := e.refs.Generate(ctx, source)
		if err != nil {
			log.Warn().Ctx(ctx).Err(err).Msg("failed to generate a task reference")
			return dto.Task{}, TaskOutcome{Outcome: OutcomeFailed, Err: err}
		}
		e.stampNew(ctx, macro, ref)
		task.Reference = ref
		generated = true
	} else {
		task.Reference = reference.Resolve(raw, source)
	}

	refString := task.Reference.String()
	log = log.With().Str("reference", refString).Logger()

	task.Reporter = macro.Params.Value(constants.ParamReporter)
	task.Status = models.TaskStatus(macro.Params.Value(constants.ParamStatus))

	task.CreateDate, task.CreateDateDefaulted = e.readDate(ctx, log, macro.Params, constants.ParamCreateDate)
	if value, ok := macro.Params.Get(constants.ParamCompleteDate); ok && value != "" {
		if t, err := e.proc.ParseDate(value); err != nil {
			log.Warn().Ctx(ctx).Err(err).Msg("invalid complete date, leaving it unset")
		} else {
			task.CompleteDate = &t
		}
	}

	if render, err := e.proc.Render([]*markup.Block{macro}, syntax); err != nil {
		log.Warn().Ctx(ctx).Err(err).Msg("failed to render task")
	} else {
		task.Render = render
	}

	name, err := e.proc.Render(content.Children, markup.SyntaxPlain)
	if err != nil {
		log.Warn().Ctx(ctx).Err(err).Msg("failed to render task name")
	}
	task.Name = strings.TrimSpace(name)

	if mention := markup.FirstMacro(content, constants.MacroMention); mention != nil {
		task.Assignee = mention.Params.Value(constants.ParamReference)
		if task.Assignee == "" {
			task.Assignee = mention.Params.Value(constants.ParamRef)
		}
	}

	due := e.proc.Now()
	task.DueDateDefaulted = true
	if date := markup.FirstMacro(content, constants.MacroDate); date != nil {
		if t, err := e.proc.ParseDate(date.Params.Value(constants.ParamDate)); err != nil {
			log.Warn().Ctx(ctx).Err(err).Msg("invalid due date, using the current time")
		} else {
			due = t
			task.DueDateDefaulted = false
		}
	}
	task.DueDate = &due

	return task, TaskOutcome{Reference: refString, Outcome: OutcomeExtracted, Generated: generated}
}

// stampNew writes the generated reference into the macro, together with the
// reporter and creation date when they are missing.
func (e *TaskExtractor) stampNew(ctx context.Context, macro *markup.Block, ref reference.Reference) {
	macro.Params.Set(constants.ParamReference, ref.String())
	if _, ok := macro.Params.Get(constants.ParamReporter); !ok {
		macro.Params.Set(constants.ParamReporter, session.Actor(ctx))
	}
	if v, ok := macro.Params.Get(constants.ParamCreateDate); !ok || v == "" {
		macro.Params.Set(constants.ParamCreateDate, e.proc.FormatDate(e.proc.Now()))
	}
}

// readDate parses the date parameter key, falling back to the current time.
// The boolean is true when the fallback was used.
func (e *TaskExtractor) readDate(ctx context.Context, log zerolog.Logger, params markup.Params, key string) (time.Time, bool) {
	value, ok := params.Get(key)
	if !ok || value == "" {
		return e.proc.Now(), true
	}
	t, err := e.proc.ParseDate(value)
	if err != nil {
		log.Warn().Ctx(ctx).Err(err).Str("param", key).Msg("invalid date, using the current time")
		return e.proc.Now(), true
	}
	return t, false
}

package services

import (
	"fmt"
	"time"

	"github.com/yukikurage/task-macro-sync/internal/config"
	"github.com/yukikurage/task-macro-sync/internal/constants"
	"github.com/yukikurage/task-macro-sync/internal/dto"
	apperrors "github.com/yukikurage/task-macro-sync/internal/errors"
	"github.com/yukikurage/task-macro-sync/internal/markup"
	"github.com/yukikurage/task-macro-sync/internal/utils"
)

// BlockProcessor converts between task fields and markup. It holds no state
// beyond its configuration and never touches storage.
type BlockProcessor struct {
	cfg    config.TaskConfig
	loc    *time.Location
	clock  func() time.Time
	anchor func(assignee string) (string, error)
}

// NewBlockProcessor creates a new BlockProcessor
func NewBlockProcessor(cfg config.TaskConfig) *BlockProcessor {
	return &BlockProcessor{
		cfg:   cfg,
		loc:   cfg.Location(),
		clock: time.Now,
		anchor: func(assignee string) (string, error) {
			return utils.GenerateAnchor(assignee, constants.AnchorSuffixLength)
		},
	}
}

// DefaultSyntax is the syntax of canonical task renders.
func (p *BlockProcessor) DefaultSyntax() string {
	return p.cfg.DefaultSyntax
}

// Render writes blocks in syntax. HTML output shows dates in the display
// format.
func (p *BlockProcessor) Render(blocks []*markup.Block, syntax string) (string, error) {
	var (
		out string
		err error
	)
	if syntax == markup.SyntaxHTML {
		out, err = markup.RenderHTML(blocks, markup.HTMLOptions{FormatDate: p.DisplayDate})
	} else {
		out, err = markup.Render(blocks, syntax)
	}
	if err != nil {
		return "", apperrors.Render(fmt.Sprintf("failed to render %s", syntax), err)
	}
	return out, nil
}

// ParseContent parses text written in syntax.
func (p *BlockProcessor) ParseContent(text, syntax string) (*markup.Block, error) {
	root, err := markup.Parse(text, syntax)
	if err != nil {
		return nil, apperrors.Parse(fmt.Sprintf("failed to parse %s content", syntax), err)
	}
	return root, nil
}

// Synthesize builds the content of a task macro: message as plain text,
// followed by a mention of assignee and the due date. The mention is left
// out when assignee is empty and the date when due is nil.
func (p *BlockProcessor) Synthesize(assignee string, due *time.Time, message string) ([]*markup.Block, error) {
	root, err := p.ParseContent(message, markup.SyntaxPlain)
	if err != nil {
		return nil, err
	}

	target := markup.FirstOfKind(root, markup.KindParagraph)
	if target == nil {
		target = root
	}
	appendInline := func(b *markup.Block) {
		if len(target.Children) > 0 {
			target.Children = append(target.Children, markup.NewText(" "))
		}
		target.Children = append(target.Children, b)
	}

	if assignee != "" {
		anchor, err := p.anchor(assignee)
		if err != nil {
			return nil, fmt.Errorf("failed to generate mention anchor: %w", err)
		}
		appendInline(markup.NewMacro(constants.MacroMention, markup.Params{
			{Key: constants.ParamStyle, Value: constants.MentionStyleFullName},
			{Key: constants.ParamReference, Value: assignee},
			{Key: constants.ParamAnchor, Value: anchor},
		}, "", true))
	}
	if due != nil {
		appendInline(markup.NewMacro(constants.MacroDate, markup.Params{
			{Key: constants.ParamDate, Value: p.FormatDate(*due)},
		}, "", true))
	}

	return root.Children, nil
}

// TaskMacro builds the canonical task macro for task, its content written in
// the default syntax.
func (p *BlockProcessor) TaskMacro(task dto.Task) (*markup.Block, error) {
	blocks, err := p.Synthesize(task.Assignee, task.DueDate, task.Name)
	if err != nil {
		return nil, err
	}
	content, err := p.Render(blocks, p.cfg.DefaultSyntax)
	if err != nil {
		return nil, err
	}

	macro := markup.NewMacro(constants.MacroTask, nil, content, false)
	p.ApplyTaskParams(macro, task)
	return macro, nil
}

// CanonicalRender renders the canonical task macro in the default syntax.
func (p *BlockProcessor) CanonicalRender(task dto.Task) (string, error) {
	macro, err := p.TaskMacro(task)
	if err != nil {
		return "", err
	}
	return p.Render([]*markup.Block{macro}, p.cfg.DefaultSyntax)
}

// ApplyTaskParams writes the record fields kept as parameters onto a task
// macro. A missing complete date removes the parameter.
func (p *BlockProcessor) ApplyTaskParams(macro *markup.Block, task dto.Task) {
	macro.Params.Set(constants.ParamReference, task.Reference.String())
	if task.CompleteDate != nil {
		macro.Params.Set(constants.ParamCompleteDate, p.FormatDate(*task.CompleteDate))
	} else {
		macro.Params.Delete(constants.ParamCompleteDate)
	}
	macro.Params.Set(constants.ParamCreateDate, p.FormatDate(task.CreateDate))
	macro.Params.Set(constants.ParamStatus, string(task.Status))
	macro.Params.Set(constants.ParamReporter, task.Reporter)
}

// FormatDate writes t in the storage format.
func (p *BlockProcessor) FormatDate(t time.Time) string {
	return t.In(p.loc).Format(p.cfg.StorageDateFormat)
}

// ParseDate reads a date written in the storage format.
func (p *BlockProcessor) ParseDate(s string) (time.Time, error) {
	t, err := time.ParseInLocation(p.cfg.StorageDateFormat, s, p.loc)
	if err != nil {
		return time.Time{}, apperrors.Parse(fmt.Sprintf("invalid date %q", s), err)
	}
	return t, nil
}

// DisplayDate rewrites a stored date in the display format. Unparseable
// values are returned unchanged.
func (p *BlockProcessor) DisplayDate(stored string) string {
	t, err := p.ParseDate(stored)
	if err != nil {
		return stored
	}
	return t.Format(p.cfg.DisplayDateFormat)
}

// Now returns the current time at the precision of the storage format, so a
// value written to markup reads back equal.
func (p *BlockProcessor) Now() time.Time {
	now := p.clock()
	t, err := p.ParseDate(p.FormatDate(now))
	if err != nil {
		return now
	}
	return t
}

package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/yukikurage/task-macro-sync/internal/dto"
	"github.com/yukikurage/task-macro-sync/internal/markup"
	"github.com/yukikurage/task-macro-sync/internal/models"
	"github.com/yukikurage/task-macro-sync/internal/reference"
	"github.com/yukikurage/task-macro-sync/internal/services"
)

type TaskCmd struct {
	flags *Flags

	// ls flags
	owner      string
	assignee   string
	status     string
	dueToday   bool
	page       int
	pageSize   int
	jsonOutput bool

	// render flags
	syntax string
}

// NewTaskCmd creates a new task command
func NewTaskCmd(flags *Flags) *TaskCmd {
	return &TaskCmd{flags: flags}
}

// Register adds the task command to the application
func (cmd *TaskCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:  "task",
		Usage: "Inspect and edit task records",
		Commands: []*cli.Command{
			{
				Name:      "ls",
				Usage:     "List the tasks you may view",
				UsageText: "tasksync task ls [--owner ref] [--assignee user] [--status s] [--due-today] [--json]",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "owner", Usage: "only tasks declared in this document", Destination: &cmd.owner},
					&cli.StringFlag{Name: "assignee", Usage: "only tasks assigned to this user", Destination: &cmd.assignee},
					&cli.StringFlag{Name: "status", Usage: "only tasks with this status", Destination: &cmd.status},
					&cli.BoolFlag{Name: "due-today", Usage: "only tasks due today", Destination: &cmd.dueToday},
					&cli.IntFlag{Name: "page", Value: 1, Destination: &cmd.page},
					&cli.IntFlag{Name: "page-size", Value: 20, Destination: &cmd.pageSize},
					&cli.BoolFlag{Name: "json", Usage: "output as JSON lines", Destination: &cmd.jsonOutput},
				},
				Action: cmd.runList,
			},
			{
				Name:      "status",
				Usage:     "Change the status of a task and rewrite its macro",
				UsageText: "tasksync task status <reference> <status>",
				Action:    cmd.runStatus,
			},
			{
				Name:      "render",
				Usage:     "Render tasks by number",
				UsageText: "tasksync task render <number>... [--syntax html/5.0]",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:        "syntax",
						Usage:       "output syntax",
						Value:       markup.SyntaxXWiki,
						Destination: &cmd.syntax,
					},
				},
				Action: cmd.runRender,
			},
		},
	})

	return app
}

func (cmd *TaskCmd) runList(ctx context.Context, c *cli.Command) error {
	input := services.ListTasksInput{
		DueToday:      cmd.dueToday,
		SortByDueDate: cmd.dueToday,
		Page:          cmd.page,
		PageSize:      cmd.pageSize,
	}
	if cmd.owner != "" {
		owner := reference.Parse(cmd.owner)
		input.Owner = &owner
	}
	if cmd.assignee != "" {
		input.Assignee = &cmd.assignee
	}
	if cmd.status != "" {
		status := models.TaskStatus(cmd.status)
		input.Status = &status
	}

	page, err := cmd.flags.App.Tasks.ListTasks(cmd.flags.Context(ctx), input)
	if err != nil {
		return fmt.Errorf("list tasks: %w", err)
	}

	out := c.Root().Writer
	if cmd.jsonOutput {
		enc := json.NewEncoder(out)
		for _, t := range page.Tasks {
			if err := enc.Encode(toTaskJSON(t)); err != nil {
				return err
			}
		}
		return nil
	}

	if err := printTasks(out, page.Tasks); err != nil {
		return err
	}
	if page.TotalPages > 1 {
		_, _ = fmt.Fprintf(out, "page %d of %d (%d tasks)\n", page.Page, page.TotalPages, page.TotalCount)
	}
	return nil
}

func (cmd *TaskCmd) runStatus(ctx context.Context, c *cli.Command) error {
	if c.NArg() < 2 {
		return fmt.Errorf("usage: tasksync task status <reference> <status>")
	}
	ref := reference.Parse(c.Args().Get(0))
	status := models.TaskStatus(c.Args().Get(1))

	task, err := cmd.flags.App.Tasks.ChangeStatus(cmd.flags.Context(ctx), ref, status)
	if err != nil {
		return fmt.Errorf("change status: %w", err)
	}
	return printTasks(c.Root().Writer, []dto.Task{*task})
}

func (cmd *TaskCmd) runRender(ctx context.Context, c *cli.Command) error {
	if c.NArg() < 1 {
		return fmt.Errorf("usage: tasksync task render <number>...")
	}
	numbers := make([]int, 0, c.NArg())
	for _, arg := range c.Args().Slice() {
		n, err := strconv.Atoi(arg)
		if err != nil {
			return fmt.Errorf("invalid task number %q", arg)
		}
		numbers = append(numbers, n)
	}

	out, err := cmd.flags.App.Tasks.RenderTasks(cmd.flags.Context(ctx), numbers, cmd.syntax)
	if err != nil {
		return fmt.Errorf("render tasks: %w", err)
	}
	_, _ = fmt.Fprintln(c.Root().Writer, out)
	return nil
}

func printTasks(out io.Writer, tasks []dto.Task) error {
	if len(tasks) == 0 {
		_, _ = fmt.Fprintln(out, "no tasks")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "#\tREFERENCE\tSTATUS\tASSIGNEE\tDUE\tNAME")
	for _, t := range tasks {
		_, _ = fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\n",
			t.Number, t.Reference, t.Status, t.Assignee, formatTime(t.DueDate), t.Name)
	}
	return w.Flush()
}

func formatTime(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Format(time.DateTime)
}

type taskJSON struct {
	Number       int        `json:"number"`
	Reference    string     `json:"reference"`
	Name         string     `json:"name"`
	Status       string     `json:"status"`
	Assignee     string     `json:"assignee,omitempty"`
	Reporter     string     `json:"reporter,omitempty"`
	Owner        string     `json:"owner,omitempty"`
	CreateDate   time.Time  `json:"create_date"`
	DueDate      *time.Time `json:"due_date,omitempty"`
	CompleteDate *time.Time `json:"complete_date,omitempty"`
}

func toTaskJSON(t dto.Task) taskJSON {
	return taskJSON{
		Number:       t.Number,
		Reference:    t.Reference.String(),
		Name:         t.Name,
		Status:       string(t.Status),
		Assignee:     t.Assignee,
		Reporter:     t.Reporter,
		Owner:        t.Owner.String(),
		CreateDate:   t.CreateDate,
		DueDate:      t.DueDate,
		CompleteDate: t.CompleteDate,
	}
}

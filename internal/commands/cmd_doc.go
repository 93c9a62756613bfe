package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/yukikurage/task-macro-sync/internal/dto"
	"github.com/yukikurage/task-macro-sync/internal/markup"
	"github.com/yukikurage/task-macro-sync/internal/reference"
	"github.com/yukikurage/task-macro-sync/internal/services"
)

type DocCmd struct {
	flags *Flags

	// flags
	syntax  string
	comment string
	version int
}

// NewDocCmd creates a new doc command
func NewDocCmd(flags *Flags) *DocCmd {
	return &DocCmd{flags: flags}
}

// Register adds the doc command to the application
func (cmd *DocCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:  "doc",
		Usage: "Save, show and delete documents",
		Commands: []*cli.Command{
			{
				Name:      "save",
				Usage:     "Save a document from a file, reconciling its tasks",
				UsageText: "tasksync doc save <reference> <file> [--syntax xwiki/2.1] [--comment text]",
				Description: `Creates the document when it does not exist, otherwise stores the file as a
new version. Task macros are extracted on save: new tasks get a reference and
a record, removed tasks are deleted or disowned depending on your rights.
Use "-" as the file to read standard input.`,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:        "syntax",
						Usage:       "syntax of a new document",
						Value:       markup.SyntaxXWiki,
						Destination: &cmd.syntax,
					},
					&cli.StringFlag{
						Name:        "comment",
						Usage:       "version comment",
						Destination: &cmd.comment,
					},
				},
				Action: cmd.runSave,
			},
			{
				Name:      "show",
				Usage:     "Print a document",
				UsageText: "tasksync doc show <reference> [--syntax html/5.0] [--version n]",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:        "syntax",
						Usage:       "output syntax (xwiki/2.1, plain/1.0, html/5.0), defaults to the document's",
						Destination: &cmd.syntax,
					},
					&cli.IntFlag{
						Name:        "version",
						Usage:       "print a past version",
						Destination: &cmd.version,
					},
				},
				Action: cmd.runShow,
			},
			{
				Name:      "delete",
				Usage:     "Delete a document and release its tasks",
				UsageText: "tasksync doc delete <reference>",
				Action:    cmd.runDelete,
			},
		},
	})

	return app
}

func (cmd *DocCmd) runSave(ctx context.Context, c *cli.Command) error {
	if c.NArg() < 2 {
		return fmt.Errorf("usage: tasksync doc save <reference> <file>")
	}
	ref := reference.Parse(c.Args().Get(0))
	text, err := readInput(c.Args().Get(1))
	if err != nil {
		return err
	}

	ctx = cmd.flags.Context(ctx)
	docs := cmd.flags.App.Documents

	var doc *dto.Document
	doc, err = docs.Edit(ctx, ref, text, cmd.comment)
	if errors.Is(err, services.ErrDocumentNotFound) {
		doc, err = docs.Create(ctx, ref, cmd.syntax, text)
	}
	if err != nil {
		return fmt.Errorf("save document: %w", err)
	}

	_, _ = fmt.Fprintf(c.Root().Writer, "saved %s version %d\n", doc.Reference, doc.Version)

	owner := doc.Reference
	page, err := cmd.flags.App.Tasks.ListTasks(ctx, services.ListTasksInput{Owner: &owner, PageSize: 100})
	if err != nil {
		return fmt.Errorf("list tasks: %w", err)
	}
	return printTasks(c.Root().Writer, page.Tasks)
}

func (cmd *DocCmd) runShow(ctx context.Context, c *cli.Command) error {
	if c.NArg() < 1 {
		return fmt.Errorf("usage: tasksync doc show <reference>")
	}
	ref := reference.Parse(c.Args().Get(0))
	docs := cmd.flags.App.Documents

	var (
		doc *dto.Document
		err error
	)
	if cmd.version > 0 {
		doc, err = docs.Revision(ctx, ref, cmd.version)
	} else {
		doc, err = docs.Get(ctx, ref)
	}
	if err != nil {
		return fmt.Errorf("load document: %w", err)
	}

	syntax := cmd.syntax
	if syntax == "" {
		syntax = doc.Syntax
	}
	out, err := cmd.flags.App.Processor.Render(doc.Content.Children, syntax)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintln(c.Root().Writer, out)
	return nil
}

func (cmd *DocCmd) runDelete(ctx context.Context, c *cli.Command) error {
	if c.NArg() < 1 {
		return fmt.Errorf("usage: tasksync doc delete <reference>")
	}
	ref := reference.Parse(c.Args().Get(0))
	if err := cmd.flags.App.Documents.Delete(cmd.flags.Context(ctx), ref); err != nil {
		return fmt.Errorf("delete document: %w", err)
	}

	_, _ = fmt.Fprintln(c.Root().Writer, "deleted")
	return nil
}

func readInput(path string) (string, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return string(data), nil
}

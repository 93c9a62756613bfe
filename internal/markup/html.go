package markup

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

var (
	markdown = goldmark.New(goldmark.WithExtensions(extension.Strikethrough))
	policy   = bluemonday.UGCPolicy()
)

// HTMLOptions tunes the display form of macros.
type HTMLOptions struct {
	// FormatDate rewrites the value of date macros. Nil keeps it as is.
	FormatDate func(string) string
}

// RenderHTML renders blocks as sanitized HTML. Text is treated as Markdown
// and macros get a display form.
func RenderHTML(blocks []*Block, opts HTMLOptions) (string, error) {
	r := htmlRenderer{opts: opts}
	src, err := r.toMarkdown(blocks)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := markdown.Convert([]byte(src), &buf); err != nil {
		return "", fmt.Errorf("convert markdown: %w", err)
	}
	return policy.Sanitize(buf.String()), nil
}

type htmlRenderer struct {
	opts HTMLOptions
}

func (r htmlRenderer) toMarkdown(blocks []*Block) (string, error) {
	var (
		sb       strings.Builder
		prevItem bool
	)
	for i, b := range blocks {
		part, item, err := r.markdownBlock(b)
		if err != nil {
			return "", err
		}
		if i > 0 && sb.Len() > 0 && (b.isBlockLevel() || blocks[i-1].isBlockLevel()) {
			if item && prevItem {
				sb.WriteString("\n")
			} else {
				sb.WriteString("\n\n")
			}
		}
		sb.WriteString(part)
		prevItem = item
	}
	return sb.String(), nil
}

// markdownBlock renders one block and reports whether it is a list item.
func (r htmlRenderer) markdownBlock(b *Block) (string, bool, error) {
	switch b.Kind {
	case KindRoot, KindParagraph:
		s, err := r.toMarkdown(b.Children)
		return s, false, err
	case KindText:
		return b.Text, false, nil
	case KindNewLine:
		return "  \n", false, nil
	case KindMacro:
		return r.markdownMacro(b)
	}
	return "", false, nil
}

func (r htmlRenderer) markdownMacro(m *Block) (string, bool, error) {
	switch m.Name {
	case "mention":
		ref := m.Params.Value("reference")
		if ref == "" {
			ref = m.Params.Value("ref")
		}
		return "**@" + ref + "**", false, nil
	case "date":
		date := m.Params.Value("date")
		if r.opts.FormatDate != nil {
			date = r.opts.FormatDate(date)
		}
		return "*" + date + "*", false, nil
	}

	if !m.HasContent {
		return "", false, nil
	}
	content, err := Parse(m.Content, SyntaxXWiki)
	if err != nil {
		return "", false, fmt.Errorf("render content of macro %q: %w", m.Name, err)
	}
	inner, err := r.toMarkdown(content.Children)
	if err != nil {
		return "", false, err
	}
	inner = strings.TrimSpace(inner)

	if m.Name == "task" {
		if m.Params.Value("status") == "done" {
			inner = "~~" + inner + "~~"
		}
		return "- " + inner, true, nil
	}
	return inner, false, nil
}

package markup

import (
	"fmt"
	"strings"
)

// Render writes blocks in the requested syntax.
func Render(blocks []*Block, syntax string) (string, error) {
	switch syntax {
	case SyntaxXWiki:
		var sb strings.Builder
		renderXWiki(&sb, blocks)
		return sb.String(), nil
	case SyntaxPlain:
		return renderPlain(blocks), nil
	case SyntaxHTML:
		return RenderHTML(blocks, HTMLOptions{})
	default:
		return "", fmt.Errorf("render %q: %w", syntax, ErrUnknownSyntax)
	}
}

// RenderTree renders the children of root.
func RenderTree(root *Block, syntax string) (string, error) {
	return Render(root.Children, syntax)
}

func renderXWiki(sb *strings.Builder, blocks []*Block) {
	for i, b := range blocks {
		if i > 0 && (b.isBlockLevel() || blocks[i-1].isBlockLevel()) {
			sb.WriteString("\n\n")
		}
		switch b.Kind {
		case KindRoot, KindParagraph:
			renderXWiki(sb, b.Children)
		case KindText:
			sb.WriteString(escapeText(b.Text))
		case KindNewLine:
			sb.WriteByte('\n')
		case KindMacro:
			renderMacroCall(sb, b)
		}
	}
}

func renderMacroCall(sb *strings.Builder, m *Block) {
	sb.WriteString("{{")
	sb.WriteString(m.Name)
	for _, p := range m.Params {
		sb.WriteByte(' ')
		sb.WriteString(p.Key)
		sb.WriteString(`="`)
		sb.WriteString(escapeValue(p.Value))
		sb.WriteByte('"')
	}
	if !m.HasContent && m.Content == "" {
		sb.WriteString("/}}")
		return
	}
	sb.WriteString("}}")
	sb.WriteString(m.Content)
	sb.WriteString("{{/")
	sb.WriteString(m.Name)
	sb.WriteString("}}")
}

func escapeText(s string) string {
	if !strings.ContainsAny(s, "~{") {
		return s
	}
	var sb strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '~':
			sb.WriteString("~~")
		case c == '{' && i+1 < len(s) && s[i+1] == '{':
			sb.WriteString("~{")
		default:
			sb.WriteByte(c)
		}
	}
	return sb.String()
}

func escapeValue(s string) string {
	s = strings.ReplaceAll(s, "~", "~~")
	return strings.ReplaceAll(s, `"`, `~"`)
}

func renderPlain(blocks []*Block) string {
	var sb strings.Builder
	prevBlock := false
	for _, b := range blocks {
		var part string
		switch b.Kind {
		case KindRoot, KindParagraph:
			part = renderPlain(b.Children)
		case KindText:
			part = b.Text
		case KindNewLine:
			part = "\n"
		case KindMacro:
			continue
		}

		block := b.isBlockLevel()
		if block && part == "" {
			continue
		}
		if sb.Len() > 0 && (block || prevBlock) {
			sb.WriteString("\n\n")
		}
		sb.WriteString(part)
		prevBlock = block
	}
	return sb.String()
}

package markup

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// ParseError describes malformed markup.
type ParseError struct {
	Offset int
	Msg    string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("malformed markup at offset %d: %s", e.Offset, e.Msg)
}

// Parse reads text written in syntax into a tree rooted at a KindRoot block.
func Parse(text, syntax string) (*Block, error) {
	text = strings.ReplaceAll(text, "\r\n", "\n")

	switch syntax {
	case SyntaxXWiki:
		p := &parser{src: text}
		return p.parseDocument()
	case SyntaxPlain:
		return parsePlain(text), nil
	default:
		return nil, fmt.Errorf("parse %q: %w", syntax, ErrUnknownSyntax)
	}
}

func parsePlain(text string) *Block {
	root := NewRoot()
	for _, para := range splitParagraphs(text) {
		var children []*Block
		for i, line := range strings.Split(para, "\n") {
			if i > 0 {
				children = append(children, NewLine())
			}
			if line != "" {
				children = append(children, NewText(line))
			}
		}
		root.Children = append(root.Children, NewParagraph(children...))
	}
	return root
}

func splitParagraphs(text string) []string {
	var (
		paras   []string
		current []string
	)
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) == "" {
			if len(current) > 0 {
				paras = append(paras, strings.Join(current, "\n"))
				current = nil
			}
			continue
		}
		current = append(current, line)
	}
	if len(current) > 0 {
		paras = append(paras, strings.Join(current, "\n"))
	}
	return paras
}

type parser struct {
	src string
	pos int
}

func (p *parser) eof() bool {
	return p.pos >= len(p.src)
}

func (p *parser) rest() string {
	return p.src[p.pos:]
}

func (p *parser) errorf(format string, args ...any) error {
	return &ParseError{Offset: p.pos, Msg: fmt.Sprintf(format, args...)}
}

func (p *parser) parseDocument() (*Block, error) {
	root := NewRoot()
	for {
		p.skipBlankLines()
		if p.eof() {
			return root, nil
		}

		children, err := p.parseParagraph()
		if err != nil {
			return nil, err
		}
		if len(children) == 0 {
			continue
		}

		// A macro alone in its paragraph is a standalone call.
		if len(children) == 1 && children[0].Kind == KindMacro {
			children[0].Inline = false
			root.Children = append(root.Children, children[0])
			continue
		}
		root.Children = append(root.Children, NewParagraph(children...))
	}
}

func (p *parser) skipBlankLines() {
	for !p.eof() {
		end := strings.IndexByte(p.rest(), '\n')
		if end < 0 {
			if strings.TrimSpace(p.rest()) == "" {
				p.pos = len(p.src)
			}
			return
		}
		if strings.TrimSpace(p.src[p.pos:p.pos+end]) != "" {
			return
		}
		p.pos += end + 1
	}
}

// atParagraphEnd reports whether the newline at p.pos is followed by a blank
// line or the end of input.
func (p *parser) atParagraphEnd() bool {
	next := p.src[p.pos+1:]
	end := strings.IndexByte(next, '\n')
	if end < 0 {
		return strings.TrimSpace(next) == ""
	}
	return strings.TrimSpace(next[:end]) == ""
}

func (p *parser) parseParagraph() ([]*Block, error) {
	var (
		children []*Block
		text     strings.Builder
	)
	flush := func() {
		if text.Len() > 0 {
			children = append(children, NewText(text.String()))
			text.Reset()
		}
	}

	for !p.eof() {
		c := p.src[p.pos]
		switch {
		case c == '~' && p.pos+1 < len(p.src):
			r, size := utf8.DecodeRuneInString(p.src[p.pos+1:])
			text.WriteRune(r)
			p.pos += 1 + size
		case c == '\n':
			if p.atParagraphEnd() {
				p.pos++
				flush()
				return children, nil
			}
			flush()
			children = append(children, NewLine())
			p.pos++
		case strings.HasPrefix(p.rest(), "{{/"):
			return nil, p.errorf("unexpected closing macro tag")
		case strings.HasPrefix(p.rest(), "{{"):
			flush()
			macro, err := p.parseMacro()
			if err != nil {
				return nil, err
			}
			macro.Inline = true
			children = append(children, macro)
		default:
			text.WriteByte(c)
			p.pos++
		}
	}

	flush()
	return children, nil
}

func (p *parser) parseMacro() (*Block, error) {
	p.pos += 2
	name := p.readName()
	if name == "" {
		return nil, p.errorf("missing macro name")
	}

	params, selfClosing, err := p.readParams()
	if err != nil {
		return nil, err
	}

	macro := NewMacro(name, params, "", false)
	if selfClosing {
		return macro, nil
	}

	content, err := p.readContent(name)
	if err != nil {
		return nil, err
	}
	macro.Content = content
	macro.HasContent = true
	return macro, nil
}

func (p *parser) readName() string {
	start := p.pos
	for !p.eof() {
		c := p.src[p.pos]
		if c == '_' || c == '-' || c == '.' ||
			(c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') {
			p.pos++
			continue
		}
		break
	}
	return p.src[start:p.pos]
}

func (p *parser) skipSpaces() {
	for !p.eof() && (p.src[p.pos] == ' ' || p.src[p.pos] == '\t') {
		p.pos++
	}
}

func (p *parser) readParams() (Params, bool, error) {
	var params Params
	for {
		p.skipSpaces()
		if p.eof() {
			return nil, false, p.errorf("unterminated macro tag")
		}
		if strings.HasPrefix(p.rest(), "/}}") {
			p.pos += 3
			return params, true, nil
		}
		if strings.HasPrefix(p.rest(), "}}") {
			p.pos += 2
			return params, false, nil
		}

		key := p.readName()
		if key == "" {
			return nil, false, p.errorf("malformed macro parameter")
		}
		if p.eof() || p.src[p.pos] != '=' {
			return nil, false, p.errorf("missing value for parameter %q", key)
		}
		p.pos++
		if p.eof() || p.src[p.pos] != '"' {
			return nil, false, p.errorf("unquoted value for parameter %q", key)
		}
		p.pos++

		value, err := p.readQuoted()
		if err != nil {
			return nil, false, err
		}
		params = append(params, Param{Key: key, Value: value})
	}
}

func (p *parser) readQuoted() (string, error) {
	var sb strings.Builder
	for !p.eof() {
		c := p.src[p.pos]
		switch {
		case c == '~' && p.pos+1 < len(p.src):
			r, size := utf8.DecodeRuneInString(p.src[p.pos+1:])
			sb.WriteRune(r)
			p.pos += 1 + size
		case c == '"':
			p.pos++
			return sb.String(), nil
		default:
			sb.WriteByte(c)
			p.pos++
		}
	}
	return "", p.errorf("unterminated parameter value")
}

// readContent returns the raw content up to the matching closing tag,
// counting nested calls of the same macro.
func (p *parser) readContent(name string) (string, error) {
	open := "{{" + name
	closing := "{{/" + name + "}}"
	depth := 1

	for i := p.pos; i < len(p.src); {
		switch {
		case p.src[i] == '~':
			i += 2
		case strings.HasPrefix(p.src[i:], closing):
			depth--
			if depth == 0 {
				content := p.src[p.pos:i]
				p.pos = i + len(closing)
				return content, nil
			}
			i += len(closing)
		case strings.HasPrefix(p.src[i:], open) && i+len(open) < len(p.src) && isTagBoundary(p.src[i+len(open)]):
			end := strings.Index(p.src[i:], "}}")
			if end < 0 {
				p.pos = i
				return "", p.errorf("unterminated macro tag")
			}
			if p.src[i+end-1] != '/' {
				depth++
			}
			i += end + 2
		default:
			i++
		}
	}

	return "", p.errorf("macro %q is never closed", name)
}

func isTagBoundary(c byte) bool {
	return c == ' ' || c == '\t' || c == '}' || c == '/'
}

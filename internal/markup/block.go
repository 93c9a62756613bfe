// Package markup is the content tree used by documents and task macros: a
// tree of paragraphs, text and macro calls, with a parser and renderers for
// the supported syntaxes.
package markup

import "errors"

// Supported syntax identifiers.
const (
	SyntaxXWiki = "xwiki/2.1"
	SyntaxPlain = "plain/1.0"
	SyntaxHTML  = "html/5.0"
)

// ErrUnknownSyntax is returned when a syntax identifier is not supported.
var ErrUnknownSyntax = errors.New("unknown syntax")

// Kind is the type of a Block.
type Kind int

const (
	KindRoot Kind = iota
	KindParagraph
	KindText
	KindNewLine
	KindMacro
)

// Param is a single macro parameter.
type Param struct {
	Key   string
	Value string
}

// Params keeps macro parameters in the order they were written.
type Params []Param

// Get returns the value for key and whether it was present.
func (p Params) Get(key string) (string, bool) {
	for _, param := range p {
		if param.Key == key {
			return param.Value, true
		}
	}
	return "", false
}

// Value returns the value for key or an empty string.
func (p Params) Value(key string) string {
	v, _ := p.Get(key)
	return v
}

// Set overwrites key in place or appends it.
func (p *Params) Set(key, value string) {
	for i := range *p {
		if (*p)[i].Key == key {
			(*p)[i].Value = value
			return
		}
	}
	*p = append(*p, Param{Key: key, Value: value})
}

// Delete removes key, keeping the order of the remaining parameters.
func (p *Params) Delete(key string) {
	out := (*p)[:0:0]
	for _, param := range *p {
		if param.Key != key {
			out = append(out, param)
		}
	}
	*p = out
}

// Clone copies the parameter list.
func (p Params) Clone() Params {
	if p == nil {
		return nil
	}
	out := make(Params, len(p))
	copy(out, p)
	return out
}

// Block is a node of the content tree.
type Block struct {
	Kind Kind
	// Text holds the characters of a KindText block.
	Text string
	// Name, Params, Content and Inline describe a KindMacro block. Content
	// is kept raw and parsed on demand.
	Name       string
	Params     Params
	Content    string
	HasContent bool
	Inline     bool
	Children   []*Block
}

// NewRoot creates a root block.
func NewRoot(children ...*Block) *Block {
	return &Block{Kind: KindRoot, Children: children}
}

// NewParagraph creates a paragraph block.
func NewParagraph(children ...*Block) *Block {
	return &Block{Kind: KindParagraph, Children: children}
}

// NewText creates a text block.
func NewText(text string) *Block {
	return &Block{Kind: KindText, Text: text}
}

// NewLine creates a line break.
func NewLine() *Block {
	return &Block{Kind: KindNewLine}
}

// NewMacro creates a macro call. An empty content renders as a self closing
// call.
func NewMacro(name string, params Params, content string, inline bool) *Block {
	return &Block{
		Kind:       KindMacro,
		Name:       name,
		Params:     params,
		Content:    content,
		HasContent: content != "",
		Inline:     inline,
	}
}

// IsMacro reports whether b is a call of the named macro.
func (b *Block) IsMacro(name string) bool {
	return b != nil && b.Kind == KindMacro && b.Name == name
}

// Clone deep copies the block and its children.
func (b *Block) Clone() *Block {
	if b == nil {
		return nil
	}
	out := *b
	out.Params = b.Params.Clone()
	if b.Children != nil {
		out.Children = make([]*Block, len(b.Children))
		for i, c := range b.Children {
			out.Children[i] = c.Clone()
		}
	}
	return &out
}

func (b *Block) isBlockLevel() bool {
	switch b.Kind {
	case KindRoot, KindParagraph:
		return true
	case KindMacro:
		return !b.Inline
	default:
		return false
	}
}

// Package reference serializes and resolves the identifiers of documents and
// task records. A reference is a space path plus a name, written as a dotted
// path: "Sandbox.Projects.Task_3". Dots and backslashes inside a segment are
// escaped with a backslash.
package reference

import (
	"strings"
)

// Reference identifies a document or a task record.
type Reference struct {
	Space []string
	Name  string
}

// New builds a reference from a dotted space path and a name.
func New(space, name string) Reference {
	ref := Reference{Name: name}
	if space != "" {
		ref.Space = splitSegments(space)
	}
	return ref
}

// IsZero reports whether the reference points nowhere.
func (r Reference) IsZero() bool {
	return r.Name == "" && len(r.Space) == 0
}

// String serializes the reference.
func (r Reference) String() string {
	if r.IsZero() {
		return ""
	}
	parts := make([]string, 0, len(r.Space)+1)
	for _, s := range r.Space {
		parts = append(parts, escape(s))
	}
	if r.Name != "" {
		parts = append(parts, escape(r.Name))
	}
	return strings.Join(parts, ".")
}

// SpaceString serializes only the space part.
func (r Reference) SpaceString() string {
	return Reference{Space: r.Space}.String()
}

// SpaceOf returns the reference of the space that contains r.
func (r Reference) SpaceOf() Reference {
	space := make([]string, len(r.Space))
	copy(space, r.Space)
	return Reference{Space: space}
}

// Child returns the document called name inside the space r.
func (r Reference) Child(name string) Reference {
	space := make([]string, 0, len(r.Space)+1)
	space = append(space, r.Space...)
	if r.Name != "" {
		space = append(space, r.Name)
	}
	return Reference{Space: space, Name: name}
}

// Path returns the slash separated form used for access scopes.
func (r Reference) Path() string {
	parts := make([]string, 0, len(r.Space)+1)
	parts = append(parts, r.Space...)
	if r.Name != "" {
		parts = append(parts, r.Name)
	}
	return strings.Join(parts, "/")
}

// Equal compares two references segment by segment.
func (r Reference) Equal(other Reference) bool {
	if r.Name != other.Name || len(r.Space) != len(other.Space) {
		return false
	}
	for i := range r.Space {
		if r.Space[i] != other.Space[i] {
			return false
		}
	}
	return true
}

// Parse reads a serialized reference. The last segment is the name.
func Parse(s string) Reference {
	segments := splitSegments(s)
	if len(segments) == 0 {
		return Reference{}
	}
	return Reference{
		Space: segments[:len(segments)-1],
		Name:  segments[len(segments)-1],
	}
}

// Resolve reads a serialized reference relative to context: a bare name
// lands in the space of context.
func Resolve(s string, context Reference) Reference {
	ref := Parse(s)
	if ref.IsZero() {
		return ref
	}
	if len(ref.Space) == 0 {
		ref.Space = context.SpaceOf().Space
	}
	return ref
}

func escape(segment string) string {
	segment = strings.ReplaceAll(segment, `\`, `\\`)
	return strings.ReplaceAll(segment, ".", `\.`)
}

func splitSegments(s string) []string {
	if s == "" {
		return nil
	}
	var (
		segments []string
		current  strings.Builder
	)
	for i := 0; i < len(s); i++ {
		switch c := s[i]; {
		case c == '\\' && i+1 < len(s):
			i++
			current.WriteByte(s[i])
		case c == '.':
			segments = append(segments, current.String())
			current.Reset()
		default:
			current.WriteByte(c)
		}
	}
	return append(segments, current.String())
}

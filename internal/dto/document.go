package dto

import (
	"fmt"

	"github.com/yukikurage/task-macro-sync/internal/markup"
	"github.com/yukikurage/task-macro-sync/internal/models"
	"github.com/yukikurage/task-macro-sync/internal/reference"
)

// Document is a parsed document version.
type Document struct {
	Reference reference.Reference
	Syntax    string
	Content   *markup.Block
	// Version is the stored version this value was loaded from, 0 for a
	// document that was never saved.
	Version int
	Author  string
}

// IsNew reports whether the document was never saved.
func (d *Document) IsNew() bool {
	return d.Version == 0
}

// Clone returns a copy with a deep copied content tree.
func (d *Document) Clone() *Document {
	out := *d
	out.Content = d.Content.Clone()
	return &out
}

// ToDocumentDTO parses a stored document
func ToDocumentDTO(doc models.Document) (*Document, error) {
	content, err := markup.Parse(doc.Content, doc.Syntax)
	if err != nil {
		return nil, fmt.Errorf("failed to parse document %s: %w", doc.Reference, err)
	}
	return &Document{
		Reference: reference.Parse(doc.Reference),
		Syntax:    doc.Syntax,
		Content:   content,
		Version:   doc.Version,
		Author:    doc.Author,
	}, nil
}

// RevisionToDocumentDTO parses a stored revision
func RevisionToDocumentDTO(rev models.DocumentRevision) (*Document, error) {
	content, err := markup.Parse(rev.Content, rev.Syntax)
	if err != nil {
		return nil, fmt.Errorf("failed to parse revision %d of %s: %w", rev.Version, rev.DocumentReference, err)
	}
	return &Document{
		Reference: reference.Parse(rev.DocumentReference),
		Syntax:    rev.Syntax,
		Content:   content,
		Version:   rev.Version,
		Author:    rev.Author,
	}, nil
}

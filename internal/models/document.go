package models

import "time"

// Document is the current version of a wiki document. Content is stored
// rendered in Syntax.
type Document struct {
	Reference string    `gorm:"primaryKey;type:varchar(255)" json:"reference"`
	Syntax    string    `gorm:"type:varchar(50);not null" json:"syntax"`
	Content   string    `gorm:"type:text" json:"content"`
	Version   int       `gorm:"not null;default:0" json:"version"`
	Author    string    `gorm:"type:varchar(255)" json:"author"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relations
	Revisions []DocumentRevision `gorm:"foreignKey:DocumentReference;references:Reference" json:"revisions,omitempty"`
}

// DocumentRevision is an immutable snapshot written on every save.
type DocumentRevision struct {
	ID                string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	DocumentReference string    `gorm:"type:varchar(255);not null;uniqueIndex:idx_revision_version" json:"document_reference"`
	Version           int       `gorm:"not null;uniqueIndex:idx_revision_version" json:"version"`
	Syntax            string    `gorm:"type:varchar(50);not null" json:"syntax"`
	Content           string    `gorm:"type:text" json:"content"`
	Author            string    `gorm:"type:varchar(255)" json:"author"`
	Comment           string    `gorm:"type:varchar(255)" json:"comment"`
	CreatedAt         time.Time `json:"created_at"`
}

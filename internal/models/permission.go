package models

import "time"

type Role string

const (
	RoleOwner  Role = "owner"
	RoleEditor Role = "editor"
	RoleViewer Role = "viewer"
)

// Right is an action checked against a reference.
type Right string

const (
	RightView   Right = "view"
	RightEdit   Right = "edit"
	RightDelete Right = "delete"
)

// SubjectEveryone matches every actor, including anonymous ones.
const SubjectEveryone = "*"

// Permission grants Role to Subject on every reference whose path matches
// the Scope glob.
type Permission struct {
	ID        uint64    `gorm:"primarykey" json:"id"`
	Subject   string    `gorm:"type:varchar(255);not null;index" json:"subject"`
	Scope     string    `gorm:"type:varchar(255);not null" json:"scope"`
	Role      Role      `gorm:"type:varchar(20);not null" json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// Allows reports whether the role includes right.
func (r Role) Allows(right Right) bool {
	switch r {
	case RoleOwner:
		return true
	case RoleEditor:
		return right == RightView || right == RightEdit
	case RoleViewer:
		return right == RightView
	default:
		return false
	}
}

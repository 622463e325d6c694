package models

import (
	"time"

	"gorm.io/gorm"
)

// GroupType is an optional classification of a group. GROUP3 groups do
// not admit sites.
type GroupType string

const (
	GroupType1 GroupType = "GROUP1"
	GroupType2 GroupType = "GROUP2"
	GroupType3 GroupType = "GROUP3"
)

// Valid reports whether the value is a known group type.
func (t GroupType) Valid() bool {
	return t == GroupType1 || t == GroupType2 || t == GroupType3
}

// Group is a node in the classification forest. A group has at most one
// parent, referenced by id; the parent relation is kept cycle-free by the
// ancestor walk in the groups service, not by the schema.
type Group struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
	Name      string         `gorm:"not null;index" json:"name"`
	Type      *GroupType     `gorm:"type:varchar(10);index" json:"type"`
	ParentID  *uint          `gorm:"index" json:"parent_id"`

	// Relationships
	Parent   *Group  `gorm:"foreignKey:ParentID" json:"parent,omitempty"`
	Children []Group `gorm:"foreignKey:ParentID" json:"children,omitempty"`
	Sites    []Site  `gorm:"many2many:site_groups;" json:"sites,omitempty"`
}

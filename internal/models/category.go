package models

import "time"

// Category organizes posts into a small, admin-managed taxonomy. A post may
// belong to at most one category.
type Category struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Name         string    `gorm:"size:100;uniqueIndex;not null" json:"name"`
	Slug         string    `gorm:"size:100;uniqueIndex;not null" json:"slug"`
	Description  string    `gorm:"type:text" json:"description,omitempty"`
	DisplayOrder int       `gorm:"default:0" json:"display_order"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`

	Posts []Post `gorm:"foreignKey:CategoryID" json:"posts,omitempty"`
}

// TableName specifies the table name for GORM.
func (Category) TableName() string {
	return "categories"
}

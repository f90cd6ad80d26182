package models

import "time"

// Tag is an independent label attachable to any number of posts.
type Tag struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:50;uniqueIndex;not null" json:"name"`
	Slug      string    `gorm:"size:60;uniqueIndex;not null" json:"slug"`
	Color     string    `gorm:"size:7;default:'#6c757d'" json:"color"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Posts []Post `gorm:"many2many:post_tags;joinForeignKey:TagID;joinReferences:PostID" json:"posts,omitempty"`
}

// TableName specifies the table name for GORM.
func (Tag) TableName() string {
	return "tags"
}

// PostTag is the post/tag association row. Declared explicitly so the
// attachment time is recorded and queryable.
type PostTag struct {
	PostID    uint      `gorm:"primaryKey" json:"post_id"`
	TagID     uint      `gorm:"primaryKey" json:"tag_id"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName specifies the table name for GORM.
func (PostTag) TableName() string {
	return "post_tags"
}

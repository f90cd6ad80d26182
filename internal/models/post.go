package models

import (
	"fmt"
	"time"
)

// PostStatus defines the lifecycle state of a post.
type PostStatus string

const (
	// StatusDraft is the initial authoring state.
	StatusDraft PostStatus = "DRAFT"
	// StatusPendingApproval means the post awaits a moderation decision.
	StatusPendingApproval PostStatus = "PENDING_APPROVAL"
	// StatusApproved is a reserved legacy state; no operation transitions
	// into it.
	StatusApproved PostStatus = "APPROVED"
	// StatusPublished means the post is publicly visible.
	StatusPublished PostStatus = "PUBLISHED"
	// StatusRejected means a moderator declined the post.
	StatusRejected PostStatus = "REJECTED"
)

// WorkflowAction names a lifecycle operation on a post.
type WorkflowAction string

const (
	ActionSubmit  WorkflowAction = "submit"
	ActionApprove WorkflowAction = "approve"
	ActionReject  WorkflowAction = "reject"
)

// transitions is the closed transition table of the post workflow. There is
// no path out of PUBLISHED or REJECTED: a rejected post is not resubmittable.
var transitions = map[PostStatus]map[WorkflowAction]PostStatus{
	StatusDraft: {
		ActionSubmit: StatusPendingApproval,
	},
	StatusPendingApproval: {
		ActionApprove: StatusPublished,
		ActionReject:  StatusRejected,
	},
}

// NextStatus resolves the workflow transition table for (from, action).
// An unmapped pair yields an INVALID_STATE error and no state change.
func NextStatus(from PostStatus, action WorkflowAction) (PostStatus, error) {
	if next, ok := transitions[from][action]; ok {
		return next, nil
	}
	return from, NewInvalidStateError(
		fmt.Sprintf("cannot %s a post in status %s", action, from))
}

// Post represents a content unit moving through the moderated workflow.
type Post struct {
	ID      uint       `gorm:"primaryKey" json:"id"`
	Title   string     `gorm:"size:200;not null" json:"title"`
	Content string     `gorm:"type:text;not null" json:"content"`
	Status  PostStatus `gorm:"type:varchar(20);not null;default:'DRAFT';index" json:"status"`

	CategoryID *uint     `gorm:"index" json:"category_id,omitempty"`
	Category   *Category `gorm:"foreignKey:CategoryID" json:"category,omitempty"`

	AuthorID uint `gorm:"not null;index" json:"author_id"`
	Author   User `gorm:"foreignKey:AuthorID" json:"author"`

	ReviewedByID    *uint      `json:"reviewed_by_id,omitempty"`
	ReviewedBy      *User      `gorm:"foreignKey:ReviewedByID" json:"reviewed_by,omitempty"`
	ReviewedAt      *time.Time `json:"reviewed_at,omitempty"`
	RejectionReason string     `gorm:"type:text" json:"rejection_reason,omitempty"`

	CreatedAt   time.Time  `gorm:"index" json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	PublishedAt *time.Time `json:"published_at,omitempty"`

	Media    []Media   `gorm:"foreignKey:PostID" json:"media,omitempty"`
	Comments []Comment `gorm:"foreignKey:PostID" json:"comments,omitempty"`
	Tags     []Tag     `gorm:"many2many:post_tags;joinForeignKey:PostID;joinReferences:TagID" json:"tags,omitempty"`

	// CommentsCount is not persisted; computed at query time
	CommentsCount int `gorm:"->" json:"comments_count"`
}

// TableName specifies the table name for GORM.
func (Post) TableName() string {
	return "posts"
}

// IsPublished reports whether the post is publicly visible.
func (p *Post) IsPublished() bool {
	return p.Status == StatusPublished
}

// CanEdit reports whether the user may edit this post: moderators always,
// authors only while the post is still a draft or pending review.
func (p *Post) CanEdit(u *User) bool {
	caps := u.CapabilitiesFor(p.AuthorID)
	if caps.CanModerate {
		return true
	}
	return caps.CanSelf && caps.CanAuthor &&
		(p.Status == StatusDraft || p.Status == StatusPendingApproval)
}

// CanDelete reports whether the user may delete this post: moderators always,
// authors only while the post is still a draft.
func (p *Post) CanDelete(u *User) bool {
	caps := u.CapabilitiesFor(p.AuthorID)
	if caps.CanModerate {
		return true
	}
	return caps.CanSelf && caps.CanAuthor && p.Status == StatusDraft
}

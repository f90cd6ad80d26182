package models

import "time"

// GuestDisplayName is the fallback shown for guest comments without a name.
const GuestDisplayName = "Khách"

// Comment belongs to exactly one post and is authored either by a registered
// user (UserID set) or a guest (GuestName set); never both.
type Comment struct {
	ID     uint `gorm:"primaryKey" json:"id"`
	PostID uint `gorm:"not null;index" json:"post_id"`

	UserID *uint `gorm:"index" json:"user_id,omitempty"`
	User   *User `gorm:"foreignKey:UserID" json:"user,omitempty"`

	GuestName string `gorm:"size:100" json:"guest_name,omitempty"`

	Content string `gorm:"type:text;not null" json:"content"`

	Approved bool `gorm:"not null;default:true" json:"approved"`
	Flagged  bool `gorm:"not null;default:false" json:"flagged"`

	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

// TableName specifies the table name for GORM.
func (Comment) TableName() string {
	return "comments"
}

// IsGuest reports whether the comment carries no registered identity.
func (c *Comment) IsGuest() bool {
	return c.UserID == nil
}

// AuthorName resolves the display name for the comment author.
func (c *Comment) AuthorName() string {
	if c.User != nil {
		return c.User.FullName
	}
	if c.GuestName != "" {
		return c.GuestName
	}
	return GuestDisplayName
}

// CanDelete reports whether the user may delete this comment: admins always,
// registered authors for their own comments. Guest comments hold no identity
// to check against, so only admins may remove them.
func (c *Comment) CanDelete(u *User) bool {
	var ownerID uint
	if c.UserID != nil {
		ownerID = *c.UserID
	}
	caps := u.CapabilitiesFor(ownerID)
	if caps.CanModerate {
		return true
	}
	return !c.IsGuest() && caps.CanSelf && caps.CanAuthor
}

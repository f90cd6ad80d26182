package models

import "time"

// NotificationType tags the event that produced a notification.
type NotificationType string

const (
	// NotifyAdminPost announces a newly published post.
	NotifyAdminPost NotificationType = "ADMIN_POST"
	// NotifyPostComment announces a new comment on the recipient's post.
	NotifyPostComment NotificationType = "POST_COMMENT"
)

// Notification is a per-recipient record created by the fan-out component.
type Notification struct {
	ID     uint `gorm:"primaryKey" json:"id"`
	UserID uint `gorm:"not null;index" json:"user_id"`

	Type    NotificationType `gorm:"type:varchar(20);not null" json:"type"`
	Title   string           `gorm:"size:200;not null" json:"title"`
	Message string           `gorm:"size:500;not null" json:"message"`
	Link    string           `gorm:"size:500" json:"link,omitempty"`

	Read      bool      `gorm:"not null;default:false;index" json:"read"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

// TableName specifies the table name for GORM.
func (Notification) TableName() string {
	return "notifications"
}

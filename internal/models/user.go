// Package models contains data structures for the application's domain models.
package models

import (
	"time"
)

// UserRole defines the authorization role of a user account.
type UserRole string

const (
	// RoleAdmin grants moderation and member-management rights.
	RoleAdmin UserRole = "ADMIN"
	// RoleMember is the default role for registered club members.
	RoleMember UserRole = "MEMBER"
)

// UserStatus defines whether an account may act on the platform.
type UserStatus string

const (
	// StatusActive indicates a usable account.
	StatusActive UserStatus = "ACTIVE"
	// StatusInactive indicates a disabled account.
	StatusInactive UserStatus = "INACTIVE"
)

// BeltOrder is the club's grading ladder from lowest to highest: the Kyu
// grades followed by the black-belt dan ranks. Promotion must move up this
// ladder; demotion is rejected.
var BeltOrder = []string{
	"Kuy 10",
	"Kuy 9",
	"Kuy 8",
	"Kuy 7",
	"Kuy 6",
	"Kuy 5",
	"Kuy 4",
	"Kuy 3",
	"Kuy 2",
	"Kuy 1",
	"Đai đen nhất đẳng",
	"Đai đen nhị đẳng",
	"Đai đen tam đẳng",
	"Đai đen tứ đẳng",
	"Đai đen ngũ đẳng",
}

// BeltIndex returns the position of a belt in the grading ladder, or -1 for
// an unknown belt name.
func BeltIndex(belt string) int {
	for i, b := range BeltOrder {
		if b == belt {
			return i
		}
	}
	return -1
}

// User represents a club member or administrator account.
type User struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	Username     string     `gorm:"size:80;uniqueIndex;not null" json:"username"`
	PasswordHash string     `gorm:"size:255;not null" json:"-"`
	Role         UserRole   `gorm:"type:varchar(20);not null;default:'MEMBER'" json:"role"`
	Status       UserStatus `gorm:"type:varchar(20);not null;default:'ACTIVE';index" json:"status"`

	FullName    string     `gorm:"size:120;not null" json:"full_name"`
	Email       *string    `gorm:"size:120;uniqueIndex" json:"email,omitempty"`
	StudentID   *string    `gorm:"size:20;uniqueIndex" json:"student_id,omitempty"`
	Belt        string     `gorm:"size:50" json:"belt,omitempty"`
	DateOfBirth *time.Time `json:"date_of_birth,omitempty"`
	PhoneNumber string     `gorm:"size:15" json:"phone_number,omitempty"`
	Avatar      string     `gorm:"size:255" json:"avatar,omitempty"`
	JoinDate    *time.Time `json:"join_date,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Posts []Post `gorm:"foreignKey:AuthorID" json:"posts,omitempty"`
}

// TableName specifies the table name for GORM.
func (User) TableName() string {
	return "users"
}

// IsAdmin reports whether the user holds the admin role.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// IsMember reports whether the user holds the member role.
func (u *User) IsMember() bool {
	return u.Role == RoleMember
}

// IsActive reports whether the account is usable.
func (u *User) IsActive() bool {
	return u.Status == StatusActive
}

// Capabilities is the resolved capability set of a user against a specific
// resource. All role and ownership checks flow through this one resolver so
// the gate and the workflow predicates cannot drift apart.
type Capabilities struct {
	// CanModerate grants approve/reject and moderation-level edit/delete.
	CanModerate bool
	// CanAuthor grants the right to create content at all.
	CanAuthor bool
	// CanSelf indicates the user owns the resource in question.
	CanSelf bool
}

// CapabilitiesFor resolves the user's capability set against a resource owned
// by ownerID. Inactive accounts hold no moderation or authoring capability,
// but ownership is still reported so self-scoped reads keep working.
func (u *User) CapabilitiesFor(ownerID uint) Capabilities {
	active := u.IsActive()
	return Capabilities{
		CanModerate: active && u.IsAdmin(),
		CanAuthor:   active && (u.IsAdmin() || u.IsMember()),
		CanSelf:     u.ID != 0 && u.ID == ownerID,
	}
}

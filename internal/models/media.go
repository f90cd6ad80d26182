package models

import "time"

// MediaType distinguishes uploaded images from embedded videos.
type MediaType string

const (
	// MediaImage is an uploaded, locally processed image file.
	MediaImage MediaType = "IMAGE"
	// MediaVideo is a video, either uploaded or registered as an embed link.
	MediaVideo MediaType = "VIDEO"
)

// Media is an attachment belonging to exactly one post. A row is either an
// uploaded file (FilePath set) or an embedded link (URL set), never both.
type Media struct {
	ID     uint      `gorm:"primaryKey" json:"id"`
	PostID uint      `gorm:"not null;index" json:"post_id"`
	Type   MediaType `gorm:"type:varchar(20);not null" json:"type"`

	// File information, populated for uploads only.
	FilePath string `gorm:"size:255" json:"file_path,omitempty"`
	Filename string `gorm:"size:255" json:"filename,omitempty"`
	MimeType string `gorm:"size:100" json:"mime_type,omitempty"`
	FileSize int64  `json:"file_size,omitempty"`
	Width    int    `json:"width,omitempty"`
	Height   int    `json:"height,omitempty"`

	// Embed information, populated for registered links only.
	URL       string `gorm:"size:500" json:"url,omitempty"`
	EmbedHTML string `gorm:"type:text" json:"embed_html,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// TableName specifies the table name for GORM.
func (Media) TableName() string {
	return "media"
}

// IsUploaded reports whether the media row has a backing file.
func (m *Media) IsUploaded() bool {
	return m.FilePath != ""
}

// IsEmbedded reports whether the media row is a registered embed link.
func (m *Media) IsEmbedded() bool {
	return m.URL != ""
}

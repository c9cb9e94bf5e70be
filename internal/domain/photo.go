package domain

import (
	"database/sql/driver"
	"errors"
	"strings"
	"time"
)

// EnrichmentStatus represents the AI enrichment state of a photo.
// Values include EnrichmentPending, EnrichmentProcessing, EnrichmentCompleted, and EnrichmentError.
type EnrichmentStatus string

const (
	EnrichmentPending    EnrichmentStatus = "pending"
	EnrichmentProcessing EnrichmentStatus = "processing"
	EnrichmentCompleted  EnrichmentStatus = "completed"
	EnrichmentError      EnrichmentStatus = "error"
)

// ErrPhotoNotFound is returned when no photo record matches an id.
var ErrPhotoNotFound = errors.New("photo not found")

// HashtagDelimiter separates hashtags in the stored column.
const HashtagDelimiter = ","

// Hashtags is an ordered tag list stored as a comma-delimited string.
type Hashtags []string

// Join returns the stored form of the tags.
func (h Hashtags) Join() string {
	return strings.Join(h, HashtagDelimiter)
}

// SplitHashtags parses the stored form. An empty string yields an empty list.
func SplitHashtags(s string) Hashtags {
	if s == "" {
		return Hashtags{}
	}
	return Hashtags(strings.Split(s, HashtagDelimiter))
}

// Value implements the driver.Valuer interface for database serialization.
func (h Hashtags) Value() (driver.Value, error) {
	return h.Join(), nil
}

// Scan implements the sql.Scanner interface for database deserialization.
func (h *Hashtags) Scan(value interface{}) error {
	switch v := value.(type) {
	case nil:
		*h = Hashtags{}
	case string:
		*h = SplitHashtags(v)
	case []byte:
		*h = SplitHashtags(string(v))
	default:
		return errors.New("failed to scan Hashtags")
	}
	return nil
}

// Photo is a gallery photo with activity metadata and AI enrichment output.
type Photo struct {
	ID           string `gorm:"type:text;primaryKey" json:"id"`
	FileID       string `gorm:"type:text" json:"fileId,omitempty"`
	FileName     string `gorm:"type:text;not null" json:"fileName"`
	FileURL      string `gorm:"type:text" json:"fileUrl,omitempty"`
	MimeType     string `gorm:"type:text" json:"mimeType,omitempty"`
	ActivityName string `gorm:"type:text;index:idx_photos_activity" json:"activityName,omitempty"`
	ActivityDate string `gorm:"type:text" json:"activityDate,omitempty"`
	Location     string `gorm:"type:text" json:"location,omitempty"`
	GroupName    string `gorm:"type:text" json:"groupName,omitempty"`
	Owner        string `gorm:"type:text" json:"owner,omitempty"`
	Width        int    `json:"width,omitempty"`
	Height       int    `json:"height,omitempty"`
	FileSize     int64  `json:"fileSize,omitempty"`

	Description      string           `gorm:"type:text" json:"description"`
	Hashtags         Hashtags         `gorm:"type:text" json:"hashtags"`
	EnrichmentStatus EnrichmentStatus `gorm:"type:text;index:idx_photos_enrichment_status;default:pending" json:"embeddingStatus"`

	CreatedAt time.Time `gorm:"index" json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// TableName returns the database table name for Photo.
func (Photo) TableName() string {
	return "photos"
}

// HasImage reports whether the photo has a retrievable image URL.
func (p *Photo) HasImage() bool {
	return strings.TrimSpace(p.FileURL) != ""
}

// PhotoFilter narrows photo listings. Zero values match everything.
type PhotoFilter struct {
	ActivityName string
	GroupName    string
	Status       EnrichmentStatus
	Limit        int
	Offset       int
}

// EnrichmentStats summarizes enrichment progress across all photos.
type EnrichmentStats struct {
	TotalPhotos int64 `json:"total_photos"`
	Analyzed    int64 `json:"analyzed"`
	Pending     int64 `json:"pending"` // pending + processing
	Errors      int64 `json:"errors"`
	IndexSize   int   `json:"index_size"`
}

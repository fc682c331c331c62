package domain

import (
	"time"
)

// Allowed content types for image uploads.
var AllowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
}

// Allowed content types for video uploads.
var AllowedVideoTypes = map[string]bool{
	"video/mp4":       true,
	"video/webm":      true,
	"video/quicktime": true,
}

// MaxImageSize is the maximum allowed image size in bytes (10 MB).
const MaxImageSize int64 = 10 * 1024 * 1024

// MaxVideoSize is the maximum allowed video size in bytes (200 MB).
const MaxVideoSize int64 = 200 * 1024 * 1024

// PropertyImage is a media record for one uploaded image linked to a property.
type PropertyImage struct {
	ID         string    `json:"id"`
	PropertyID string    `json:"property_id"`
	FileName   string    `json:"file_name"`
	URL        string    `json:"url"`
	Size       int64     `json:"size"`
	SortOrder  int       `json:"sort_order"`
	CreatedAt  time.Time `json:"created_at"`
}

// PropertyVideo is a media record for one uploaded video linked to a property.
// Duration and size are probed from the storage collaborator at link time.
type PropertyVideo struct {
	ID         string    `json:"id"`
	PropertyID string    `json:"property_id"`
	FileName   string    `json:"file_name"`
	URL        string    `json:"url"`
	Size       int64     `json:"size"`
	Duration   float64   `json:"duration_seconds"`
	SortOrder  int       `json:"sort_order"`
	CreatedAt  time.Time `json:"created_at"`
}

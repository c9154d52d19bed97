package models

import (
	"strings"
	"time"
)

// PreviewCategory decides how a file's content is rendered and transmitted.
type PreviewCategory string

const (
	PreviewImage       PreviewCategory = "image"
	PreviewPDF         PreviewCategory = "pdf"
	PreviewText        PreviewCategory = "text"
	PreviewUnsupported PreviewCategory = "unsupported"
)

// DefaultMediaType is recorded when a file arrives without a declared type.
const DefaultMediaType = "application/octet-stream"

// FileRecord is an ingested report file with its materialized content.
type FileRecord struct {
	ID         string          `json:"id"` // file_{uuid}
	Name       string          `json:"name"`
	Size       int64           `json:"size"`
	MediaType  string          `json:"media_type"`
	UploadedAt time.Time       `json:"uploaded_at"`
	Content    string          `json:"content,omitempty"`     // UTF-8 text or base64 data URL
	PreviewURL string          `json:"preview_url,omitempty"` // images only, same as Content
	BlobRef    string          `json:"blob_ref,omitempty"`    // transient, never persisted
	Preview    PreviewCategory `json:"preview"`

	SHA256    string `json:"sha256,omitempty"`
	PageCount int    `json:"page_count,omitempty"`
}

// IsDataURL reports whether Content holds a base64 data URL.
func (f *FileRecord) IsDataURL() bool {
	return strings.HasPrefix(f.Content, "data:") && strings.Contains(f.Content, ",")
}

// Persistable returns a copy suitable for storage: the transient reference is dropped.
func (f FileRecord) Persistable() FileRecord {
	f.BlobRef = ""
	return f
}

// SortField names the field a file listing is ordered by.
type SortField string

const (
	SortByName       SortField = "name"
	SortBySize       SortField = "size"
	SortByUploadDate SortField = "upload_date"
)

// SortOrder is the direction of a file listing.
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// ParseSortField maps user input to a SortField, defaulting to upload date.
func ParseSortField(s string) SortField {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "name":
		return SortByName
	case "size":
		return SortBySize
	default:
		return SortByUploadDate
	}
}

// ParseSortOrder maps user input to a SortOrder, defaulting to descending.
func ParseSortOrder(s string) SortOrder {
	if strings.EqualFold(strings.TrimSpace(s), "asc") {
		return SortAsc
	}
	return SortDesc
}

// FileStats backs the summary cards of the reports view.
type FileStats struct {
	TotalFiles    int                     `json:"total_files"`
	SelectedFiles int                     `json:"selected_files"`
	TotalBytes    int64                   `json:"total_bytes"`
	ByPreview     map[PreviewCategory]int `json:"by_preview"`
}

package ingest

import (
	"path/filepath"
	"strings"

	"github.com/ternarybob/marketlens/internal/models"
)

// textExtensions are treated as text regardless of declared media type
var textExtensions = map[string]bool{
	".txt":  true,
	".md":   true,
	".json": true,
}

// Classify maps a declared media type and file name to a preview category.
// Precedence: image/* > application/pdf > text/plain or a text extension > unsupported.
func Classify(mediaType, name string) models.PreviewCategory {
	mt := normalizeMediaType(mediaType)

	switch {
	case strings.HasPrefix(mt, "image/"):
		return models.PreviewImage
	case mt == "application/pdf":
		return models.PreviewPDF
	case mt == "text/plain" || textExtensions[strings.ToLower(filepath.Ext(name))]:
		return models.PreviewText
	default:
		return models.PreviewUnsupported
	}
}

// normalizeMediaType lowercases and drops parameters such as charset
func normalizeMediaType(mediaType string) string {
	if i := strings.IndexByte(mediaType, ';'); i >= 0 {
		mediaType = mediaType[:i]
	}
	return strings.ToLower(strings.TrimSpace(mediaType))
}

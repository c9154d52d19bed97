package analysis

import (
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/ternarybob/marketlens/internal/models"
	"github.com/ternarybob/marketlens/internal/services/ingest"
	"github.com/ternarybob/marketlens/internal/services/llm"
)

// isDocument reports whether a media type is a PDF or office document sent inline
func isDocument(mediaType string) bool {
	switch mediaType {
	case "application/pdf",
		"application/msword",
		"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
		"application/vnd.ms-excel",
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		"application/vnd.ms-powerpoint",
		"application/vnd.openxmlformats-officedocument.presentationml.presentation":
		return true
	}
	return false
}

// FilePart converts one record into its request part:
//   - images and office/PDF documents with a data URL go inline with the declared type
//   - text records go as "File name / Content" text
//   - everything else is a "File name / Type" stub
func FilePart(record models.FileRecord) llm.Part {
	inline := strings.HasPrefix(record.MediaType, "image/") || isDocument(record.MediaType)
	if inline && strings.Contains(record.Content, ",") {
		if payload, ok := ingest.Base64Payload(record.Content); ok {
			if data, err := base64.StdEncoding.DecodeString(payload); err == nil {
				return llm.InlinePart(record.MediaType, data)
			}
		}
	}

	if record.Preview == models.PreviewText && record.Content != "" {
		return llm.TextPart(fmt.Sprintf("File name: %s\nContent: %s\n", record.Name, record.Content))
	}

	return llm.TextPart(fmt.Sprintf("File name: %s\nType: %s\n", record.Name, record.MediaType))
}

// BuildParts returns the ordered request parts: one per file, then the
// customer profiles for the customer variant, then the instruction block.
func BuildParts(files []models.FileRecord, customers []models.Customer, variant models.AnalysisVariant, language string) []llm.Part {
	parts := make([]llm.Part, 0, len(files)+2)
	for _, record := range files {
		parts = append(parts, FilePart(record))
	}
	if variant == models.VariantCustomer && len(customers) > 0 {
		parts = append(parts, llm.TextPart(CustomerProfiles(customers)))
	}
	parts = append(parts, llm.TextPart(Instructions(variant, language)))
	return parts
}

package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ternarybob/marketlens/internal/models"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name      string
		mediaType string
		fileName  string
		want      models.PreviewCategory
	}{
		{"png image", "image/png", "chart.png", models.PreviewImage},
		{"image wins over text extension", "image/jpeg", "notes.txt", models.PreviewImage},
		{"pdf", "application/pdf", "report.pdf", models.PreviewPDF},
		{"pdf with params", "Application/PDF; charset=binary", "report.pdf", models.PreviewPDF},
		{"pdf wins over text extension", "application/pdf", "report.md", models.PreviewPDF},
		{"plain text", "text/plain", "report", models.PreviewText},
		{"plain text with charset", "text/plain; charset=utf-8", "x.bin", models.PreviewText},
		{"markdown by extension", "", "NOTES.MD", models.PreviewText},
		{"json by extension", "application/octet-stream", "data.json", models.PreviewText},
		{"txt by extension", "application/x-unknown", "a.Txt", models.PreviewText},
		{"docx", "application/vnd.openxmlformats-officedocument.wordprocessingml.document", "plan.docx", models.PreviewUnsupported},
		{"csv is not text", "text/csv", "prices.csv", models.PreviewUnsupported},
		{"empty", "", "", models.PreviewUnsupported},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.mediaType, tt.fileName)
			assert.Equal(t, tt.want, got)
			// Pure: same input, same output
			assert.Equal(t, got, Classify(tt.mediaType, tt.fileName))
		})
	}
}

package export

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/marketlens/internal/common"
	"github.com/ternarybob/marketlens/internal/models"
)

// Format names an export rendition
type Format string

const (
	FormatMarkdown Format = "md"
	FormatPDF      Format = "pdf"
	FormatXLSX     Format = "xlsx"
	FormatSnapshot Format = "png-pdf" // on-screen rendering rasterized into A4 pages
)

var (
	// ErrUnsupportedFormat is returned for an unknown format name
	ErrUnsupportedFormat = errors.New("unsupported export format")
	// ErrNoReport is returned when there is nothing to export
	ErrNoReport = errors.New("no analysis report to export")
)

// ParseFormat validates a format name. Empty input selects Markdown.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FormatMarkdown, nil
	case FormatMarkdown, FormatPDF, FormatXLSX, FormatSnapshot:
		return f, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
	}
}

// Document is a rendered export ready for download
type Document struct {
	Filename  string
	MediaType string
	Data      []byte
}

// Service renders analysis reports in the supported formats
type Service struct {
	config  common.ExportConfig
	logger  arbor.ILogger
	capture func(ctx context.Context, html string) ([]byte, error)
}

// NewService creates an export service
func NewService(config common.ExportConfig, logger arbor.ILogger) *Service {
	s := &Service{config: config, logger: logger}
	s.capture = s.captureFullPage
	return s
}

// Export renders the report. Exports are one-shot and synchronous.
func (s *Service) Export(ctx context.Context, report *models.AnalysisReport, format Format) (*Document, error) {
	if report == nil {
		return nil, ErrNoReport
	}

	markdown, err := Markdown(report)
	if err != nil {
		return nil, err
	}

	generated := report.GeneratedAt.Local()
	doc := &Document{}

	switch format {
	case FormatMarkdown:
		doc.Filename = Filename(generated, "md")
		doc.MediaType = "text/markdown; charset=utf-8"
		doc.Data = []byte(markdown)

	case FormatPDF:
		data, err := renderPDF(markdown, report.Result.Title, s.config.FontPath)
		if err != nil {
			return nil, err
		}
		doc.Filename = Filename(generated, "pdf")
		doc.MediaType = "application/pdf"
		doc.Data = data

	case FormatXLSX:
		data, err := Workbook(report)
		if err != nil {
			return nil, err
		}
		doc.Filename = Filename(generated, "xlsx")
		doc.MediaType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
		doc.Data = data

	case FormatSnapshot:
		html, err := reportHTML(markdown, report.Result.Title)
		if err != nil {
			return nil, err
		}
		png, err := s.capture(ctx, html)
		if err != nil {
			return nil, err
		}
		data, err := paginateImage(png, report.Result.Title)
		if err != nil {
			return nil, err
		}
		doc.Filename = Filename(generated, "pdf")
		doc.MediaType = "application/pdf"
		doc.Data = data

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}

	s.logger.Info().
		Str("format", string(format)).
		Str("filename", doc.Filename).
		Int("bytes", len(doc.Data)).
		Msg("Report exported")

	return doc, nil
}

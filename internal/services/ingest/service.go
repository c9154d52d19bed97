package ingest

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/gabriel-vasile/mimetype"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/marketlens/internal/common"
	"github.com/ternarybob/marketlens/internal/interfaces"
	"github.com/ternarybob/marketlens/internal/models"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

func init() {
	// Page counting needs no pdfcpu config directory on disk
	model.ConfigPath = "disable"
}

// Service turns uploaded files into FileRecords
type Service struct {
	blobs  interfaces.BlobStore
	config common.IngestConfig
	logger arbor.ILogger
}

// NewService creates a new ingestion service
func NewService(blobs interfaces.BlobStore, config common.IngestConfig, logger arbor.ILogger) *Service {
	if config.Concurrency <= 0 {
		config.Concurrency = 1
	}
	return &Service{
		blobs:  blobs,
		config: config,
		logger: logger,
	}
}

// BatchResult holds the records read from a batch, in input order, and the
// files that failed.
type BatchResult struct {
	Records  []models.FileRecord
	Failures []*FileError
}

// Read materializes one source into a record. Text becomes a UTF-8 string,
// anything else a base64 data URL; PDFs also get a transient blob reference.
func (s *Service) Read(ctx context.Context, src Source) (*models.FileRecord, error) {
	name := src.Name()
	if err := ctx.Err(); err != nil {
		return nil, &FileError{Name: name, Err: err}
	}

	limit := s.config.MaxFileSize
	if limit > 0 && src.Size() > limit {
		return nil, &FileError{Name: name, Err: fmt.Errorf("%w: %d > %d bytes", ErrFileTooLarge, src.Size(), limit)}
	}

	data, err := readAll(src, limit)
	if err != nil {
		return nil, &FileError{Name: name, Err: err}
	}

	mediaType := normalizeMediaType(src.MediaType())
	if mediaType == "" || mediaType == models.DefaultMediaType {
		if sniffed := normalizeMediaType(mimetype.Detect(data).String()); sniffed != "" {
			mediaType = sniffed
		}
	}
	if mediaType == "" {
		mediaType = models.DefaultMediaType
	}

	sum := sha256.Sum256(data)
	record := &models.FileRecord{
		ID:         common.NewFileID(),
		Name:       name,
		Size:       int64(len(data)),
		MediaType:  mediaType,
		UploadedAt: time.Now().UTC(),
		Preview:    Classify(mediaType, name),
		SHA256:     hex.EncodeToString(sum[:]),
	}

	switch record.Preview {
	case models.PreviewText:
		text := bytes.TrimPrefix(data, utf8BOM)
		if !utf8.Valid(text) {
			return nil, &FileError{Name: name, Err: ErrInvalidText}
		}
		record.Content = string(text)
	default:
		record.Content = DataURL(mediaType, data)
	}

	switch record.Preview {
	case models.PreviewImage:
		record.PreviewURL = record.Content
	case models.PreviewPDF:
		record.PageCount = s.pageCount(name, data)
		if s.blobs != nil {
			record.BlobRef = s.blobs.Put(mediaType, data)
		}
	}

	s.logger.Debug().
		Str("name", name).
		Str("media_type", mediaType).
		Str("preview", string(record.Preview)).
		Int64("size", record.Size).
		Msg("File read")

	return record, nil
}

// IngestBatch reads every source concurrently, bounded by ingest.concurrency.
// Records come back in input order; one failure does not abort the others.
// Upload times share one batch stamp offset by input position, so sorting by
// upload date reproduces input order regardless of read scheduling.
func (s *Service) IngestBatch(ctx context.Context, sources []Source) BatchResult {
	batchTime := time.Now().UTC()
	records := make([]*models.FileRecord, len(sources))
	failures := make([]*FileError, len(sources))

	sem := make(chan struct{}, s.config.Concurrency)
	var wg sync.WaitGroup

	for i, src := range sources {
		wg.Add(1)
		go func(i int, src Source) {
			defer wg.Done()
			defer common.Recover(s.logger, "ingest:"+src.Name(), func(err error) {
				failures[i] = &FileError{Name: src.Name(), Err: err}
			})

			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				failures[i] = &FileError{Name: src.Name(), Err: ctx.Err()}
				return
			}

			record, err := s.Read(ctx, src)
			if err != nil {
				failures[i] = asFileError(src.Name(), err)
				return
			}
			records[i] = record
		}(i, src)
	}
	wg.Wait()

	result := BatchResult{
		Records:  make([]models.FileRecord, 0, len(sources)),
		Failures: []*FileError{},
	}
	for i := range sources {
		if failures[i] != nil {
			s.logger.Warn().Str("name", failures[i].Name).Err(failures[i].Err).Msg("File ingestion failed")
			result.Failures = append(result.Failures, failures[i])
			continue
		}
		if records[i] != nil {
			records[i].UploadedAt = batchTime.Add(time.Duration(i))
			result.Records = append(result.Records, *records[i])
		}
	}

	s.logger.Info().
		Int("files", len(sources)).
		Int("ingested", len(result.Records)).
		Int("failed", len(result.Failures)).
		Msg("Batch ingestion complete")

	return result
}

// DataURL encodes data as a base64 data URL
func DataURL(mediaType string, data []byte) string {
	if mediaType == "" {
		mediaType = models.DefaultMediaType
	}
	return "data:" + mediaType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// DecodeDataURL returns the media type and payload of a base64 data URL
func DecodeDataURL(content string) (string, []byte, error) {
	header, payload, ok := cutDataURL(content)
	if !ok {
		return "", nil, fmt.Errorf("not a data URL")
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, fmt.Errorf("invalid base64 payload: %w", err)
	}
	return header, data, nil
}

// Base64Payload returns the part of a data URL after the first comma
func Base64Payload(content string) (string, bool) {
	_, payload, ok := cutDataURL(content)
	return payload, ok
}

func cutDataURL(content string) (mediaType, payload string, ok bool) {
	rest, found := strings.CutPrefix(content, "data:")
	if !found {
		return "", "", false
	}
	header, payload, found := strings.Cut(rest, ",")
	if !found {
		return "", "", false
	}
	if i := strings.IndexByte(header, ';'); i >= 0 {
		header = header[:i]
	}
	return header, payload, true
}

func (s *Service) pageCount(name string, data []byte) (count int) {
	defer common.Recover(s.logger, "pdf-page-count:"+name, nil)

	conf := model.NewDefaultConfiguration()
	count, err := api.PageCount(bytes.NewReader(data), conf)
	if err != nil {
		s.logger.Debug().Str("name", name).Err(err).Msg("Could not read PDF page count")
		return 0
	}
	return count
}

func readAll(src Source, limit int64) ([]byte, error) {
	rc, err := src.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	var r io.Reader = rc
	if limit > 0 {
		r = io.LimitReader(rc, limit+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if limit > 0 && int64(len(data)) > limit {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrFileTooLarge, limit)
	}
	return data, nil
}

func asFileError(name string, err error) *FileError {
	if fe, ok := err.(*FileError); ok {
		return fe
	}
	return &FileError{Name: name, Err: err}
}

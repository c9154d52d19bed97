package registry

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/marketlens/internal/interfaces"
	"github.com/ternarybob/marketlens/internal/models"
)

// ListOptions filters and orders a file listing
type ListOptions struct {
	Query string
	Sort  models.SortField
	Order models.SortOrder
}

// Files is the file registry and its selection set. Every mutation is
// persisted before it becomes visible; a failed save leaves state unchanged.
type Files struct {
	mu       sync.RWMutex
	records  []models.FileRecord
	selected map[string]struct{}

	storage interfaces.FileStorage
	blobs   interfaces.BlobStore
	events  interfaces.EventService
	logger  arbor.ILogger
}

// NewFiles creates an empty registry. Call Load to restore persisted records.
func NewFiles(storage interfaces.FileStorage, blobs interfaces.BlobStore, events interfaces.EventService, logger arbor.ILogger) *Files {
	return &Files{
		records:  []models.FileRecord{},
		selected: make(map[string]struct{}),
		storage:  storage,
		blobs:    blobs,
		events:   events,
		logger:   logger,
	}
}

// Load replaces the in-memory records with the persisted document.
// Restored records carry no transient reference.
func (f *Files) Load(ctx context.Context) error {
	records, err := f.storage.LoadFiles(ctx)
	if err != nil {
		return fmt.Errorf("failed to load file registry: %w", err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.releaseLocked(f.records...)
	for i := range records {
		records[i].BlobRef = ""
	}
	f.records = records
	f.selected = make(map[string]struct{})

	f.logger.Info().Int("records", len(records)).Msg("File registry loaded")
	return nil
}

// Add appends records in order. A record whose ID is already present
// replaces the existing one in place and releases its transient reference.
// Add owns the incoming records: when the save fails their transient
// references are released with them.
func (f *Files) Add(ctx context.Context, records ...models.FileRecord) error {
	if len(records) == 0 {
		return nil
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	next := slices.Clone(f.records)
	var replaced []models.FileRecord
	for _, record := range records {
		if i := indexOf(next, record.ID); i >= 0 {
			replaced = append(replaced, next[i])
			next[i] = record
			continue
		}
		next = append(next, record)
	}

	if err := f.storage.SaveFiles(ctx, next); err != nil {
		f.releaseLocked(uncommitted(f.records, records)...)
		return fmt.Errorf("failed to persist file registry: %w", err)
	}
	f.records = next
	f.releaseLocked(replaced...)

	f.logger.Info().Int("added", len(records)).Int("total", len(next)).Msg("Files added")
	f.publish(ctx, interfaces.EventFilesChanged)
	return nil
}

// Remove deletes the given records, releases their transient references and
// prunes them from the selection. Unknown ids are ignored; the ids actually
// removed are returned.
func (f *Files) Remove(ctx context.Context, ids ...string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	drop := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		drop[id] = struct{}{}
	}

	next := make([]models.FileRecord, 0, len(f.records))
	var removed []models.FileRecord
	for _, record := range f.records {
		if _, ok := drop[record.ID]; ok {
			removed = append(removed, record)
			continue
		}
		next = append(next, record)
	}
	if len(removed) == 0 {
		return []string{}, nil
	}

	if err := f.storage.SaveFiles(ctx, next); err != nil {
		return nil, fmt.Errorf("failed to persist file registry: %w", err)
	}
	f.records = next
	f.releaseLocked(removed...)

	removedIDs := make([]string, len(removed))
	selectionChanged := false
	for i, record := range removed {
		removedIDs[i] = record.ID
		if _, ok := f.selected[record.ID]; ok {
			delete(f.selected, record.ID)
			selectionChanged = true
		}
	}

	f.logger.Info().Int("removed", len(removed)).Int("total", len(next)).Msg("Files removed")
	f.publish(ctx, interfaces.EventFilesChanged)
	if selectionChanged {
		f.publish(ctx, interfaces.EventSelectionChanged)
	}
	return removedIDs, nil
}

// Get returns a copy of one record
func (f *Files) Get(id string) (models.FileRecord, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if i := indexOf(f.records, id); i >= 0 {
		return f.records[i], nil
	}
	return models.FileRecord{}, fmt.Errorf("file %s: %w", id, ErrNotFound)
}

// List returns the records whose name contains opts.Query (case-insensitive),
// stably sorted by the requested field and direction.
func (f *Files) List(opts ListOptions) []models.FileRecord {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.listLocked(opts)
}

func (f *Files) listLocked(opts ListOptions) []models.FileRecord {
	query := strings.ToLower(opts.Query)
	out := make([]models.FileRecord, 0, len(f.records))
	for _, record := range f.records {
		if strings.Contains(strings.ToLower(record.Name), query) {
			out = append(out, record)
		}
	}

	compare := compareBy(opts.Sort)
	if opts.Order == models.SortAsc {
		slices.SortStableFunc(out, compare)
	} else {
		slices.SortStableFunc(out, func(a, b models.FileRecord) int { return compare(b, a) })
	}
	return out
}

func compareBy(field models.SortField) func(a, b models.FileRecord) int {
	switch field {
	case models.SortByName:
		return func(a, b models.FileRecord) int {
			if c := cmp.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name)); c != 0 {
				return c
			}
			return cmp.Compare(a.Name, b.Name)
		}
	case models.SortBySize:
		return func(a, b models.FileRecord) int { return cmp.Compare(a.Size, b.Size) }
	default:
		return func(a, b models.FileRecord) int { return a.UploadedAt.Compare(b.UploadedAt) }
	}
}

// Stats summarizes the registry for the dashboard cards
func (f *Files) Stats() models.FileStats {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.statsLocked()
}

// Close releases every transient reference held by the registry
func (f *Files) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.releaseLocked(f.records...)
	for i := range f.records {
		f.records[i].BlobRef = ""
	}
}

func (f *Files) releaseLocked(records ...models.FileRecord) {
	if f.blobs == nil {
		return
	}
	for _, record := range records {
		f.blobs.Release(record.BlobRef)
	}
}

// uncommitted returns the incoming records whose blob refs are not held by
// any committed record.
func uncommitted(committed, incoming []models.FileRecord) []models.FileRecord {
	held := make(map[string]struct{}, len(committed))
	for _, record := range committed {
		if record.BlobRef != "" {
			held[record.BlobRef] = struct{}{}
		}
	}
	var out []models.FileRecord
	for _, record := range incoming {
		if _, ok := held[record.BlobRef]; !ok {
			out = append(out, record)
		}
	}
	return out
}

func (f *Files) publish(ctx context.Context, eventType interfaces.EventType) {
	if f.events == nil {
		return
	}
	_ = f.events.Publish(ctx, interfaces.Event{Type: eventType, Payload: f.statsLocked()})
}

// statsLocked is Stats for callers already holding the lock
func (f *Files) statsLocked() models.FileStats {
	stats := models.FileStats{
		TotalFiles:    len(f.records),
		SelectedFiles: len(f.selected),
		ByPreview:     make(map[models.PreviewCategory]int),
	}
	for _, record := range f.records {
		stats.TotalBytes += record.Size
		stats.ByPreview[record.Preview]++
	}
	return stats
}

func indexOf(records []models.FileRecord, id string) int {
	return slices.IndexFunc(records, func(r models.FileRecord) bool { return r.ID == id })
}

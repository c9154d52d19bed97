package registry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/marketlens/internal/common"
	"github.com/ternarybob/marketlens/internal/models"
	"github.com/ternarybob/marketlens/internal/services/blobs"
	"github.com/ternarybob/marketlens/internal/storage/badger"
)

// memoryStorage records every saved document
type memoryStorage struct {
	files     []models.FileRecord
	customers []models.Customer
	saves     int
	fail      error
}

func (m *memoryStorage) SaveFiles(ctx context.Context, records []models.FileRecord) error {
	if m.fail != nil {
		return m.fail
	}
	m.saves++
	m.files = make([]models.FileRecord, len(records))
	for i, r := range records {
		m.files[i] = r.Persistable()
	}
	return nil
}

func (m *memoryStorage) LoadFiles(ctx context.Context) ([]models.FileRecord, error) {
	return append([]models.FileRecord{}, m.files...), nil
}

func (m *memoryStorage) SaveCustomers(ctx context.Context, customers []models.Customer) error {
	if m.fail != nil {
		return m.fail
	}
	m.saves++
	m.customers = append([]models.Customer{}, customers...)
	return nil
}

func (m *memoryStorage) LoadCustomers(ctx context.Context) ([]models.Customer, error) {
	return append([]models.Customer{}, m.customers...), nil
}

var base = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

func record(id, name string, size int64, minute int) models.FileRecord {
	return models.FileRecord{
		ID:         id,
		Name:       name,
		Size:       size,
		MediaType:  "text/plain",
		UploadedAt: base.Add(time.Duration(minute) * time.Minute),
		Content:    name,
		Preview:    models.PreviewText,
	}
}

func seeded(t *testing.T) (*Files, *memoryStorage, *blobs.Store) {
	t.Helper()
	logger := arbor.NewLogger()
	storage := &memoryStorage{}
	store := blobs.NewStore(logger)
	files := NewFiles(storage, store, nil, logger)
	require.NoError(t, files.Add(context.Background(),
		record("1", "Steel Outlook.txt", 300, 1),
		record("2", "copper.md", 100, 3),
		record("3", "Oil prices.txt", 200, 2),
		record("4", "oil tanker.md", 100, 4),
	))
	return files, storage, store
}

func ids(records []models.FileRecord) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.ID
	}
	return out
}

func TestFiles_ListFilterAndSort(t *testing.T) {
	files, _, _ := seeded(t)

	tests := []struct {
		name string
		opts ListOptions
		want []string
	}{
		{"default is newest first", ListOptions{}, []string{"4", "2", "3", "1"}},
		{"upload date ascending", ListOptions{Sort: models.SortByUploadDate, Order: models.SortAsc}, []string{"1", "3", "2", "4"}},
		{"name ascending ignores case", ListOptions{Sort: models.SortByName, Order: models.SortAsc}, []string{"2", "3", "4", "1"}},
		{"name descending", ListOptions{Sort: models.SortByName, Order: models.SortDesc}, []string{"1", "4", "3", "2"}},
		{"size ascending is stable", ListOptions{Sort: models.SortBySize, Order: models.SortAsc}, []string{"2", "4", "3", "1"}},
		{"size descending keeps insertion order for ties", ListOptions{Sort: models.SortBySize, Order: models.SortDesc}, []string{"1", "3", "2", "4"}},
		{"filter is case-insensitive substring", ListOptions{Query: "OIL", Sort: models.SortByName, Order: models.SortAsc}, []string{"3", "4"}},
		{"filter with no match", ListOptions{Query: "gold"}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ids(files.List(tt.opts)))
		})
	}
}

func TestFiles_AddPersistsAndPreservesOrder(t *testing.T) {
	files, storage, _ := seeded(t)

	require.NoError(t, files.Add(context.Background(), record("5", "zinc.txt", 10, 5)))
	assert.Equal(t, 2, storage.saves)
	assert.Equal(t, []string{"1", "2", "3", "4", "5"}, ids(storage.files))
}

func TestFiles_PersistFailureLeavesStateUnchanged(t *testing.T) {
	files, storage, _ := seeded(t)
	storage.fail = errors.New("disk full")

	err := files.Add(context.Background(), record("5", "zinc.txt", 10, 5))
	require.Error(t, err)
	assert.Len(t, files.List(ListOptions{}), 4)

	_, err = files.Remove(context.Background(), "1")
	require.Error(t, err)
	_, err = files.Get("1")
	assert.NoError(t, err)
}

func TestFiles_PersistFailureReleasesIncomingBlobs(t *testing.T) {
	files, storage, store := seeded(t)

	kept := record("6", "kept.pdf", 10, 6)
	kept.BlobRef = store.Put("application/pdf", []byte("%PDF kept"))
	require.NoError(t, files.Add(context.Background(), kept))
	storage.fail = errors.New("disk full")

	incoming := record("5", "zinc.pdf", 10, 5)
	incoming.BlobRef = store.Put("application/pdf", []byte("%PDF zinc"))
	same := kept
	same.Name = "kept-renamed.pdf"

	err := files.Add(context.Background(), incoming, same)
	require.Error(t, err)

	_, _, ok := store.Get(incoming.BlobRef)
	assert.False(t, ok, "uncommitted blob must be released")
	_, _, ok = store.Get(kept.BlobRef)
	assert.True(t, ok, "blob held by a committed record survives")
	assert.Equal(t, 1, store.Len())
	_, err = files.Get("5")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFiles_RemovePrunesSelectionAndReleasesBlob(t *testing.T) {
	files, storage, store := seeded(t)
	ctx := context.Background()

	pdf := record("pdf", "deck.pdf", 50, 9)
	pdf.Preview = models.PreviewPDF
	pdf.BlobRef = store.Put("application/pdf", []byte("%PDF"))
	require.NoError(t, files.Add(ctx, pdf))
	assert.Empty(t, storage.files[len(storage.files)-1].BlobRef, "blob refs are never persisted")

	_, err := files.Toggle(ctx, "pdf")
	require.NoError(t, err)
	_, err = files.Toggle(ctx, "2")
	require.NoError(t, err)

	removed, err := files.Remove(ctx, "pdf", "missing")
	require.NoError(t, err)
	assert.Equal(t, []string{"pdf"}, removed)

	_, err = files.Get("pdf")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.False(t, files.IsSelected("pdf"))
	assert.Equal(t, []string{"2"}, files.SelectedIDs())
	assert.Equal(t, 0, store.Len())
	assert.NotContains(t, ids(storage.files), "pdf")
}

func TestFiles_RemoveNothing(t *testing.T) {
	files, storage, _ := seeded(t)

	removed, err := files.Remove(context.Background(), "nope")
	require.NoError(t, err)
	assert.Empty(t, removed)
	assert.Equal(t, 1, storage.saves, "no-op removal does not rewrite the document")
}

func TestFiles_ReplaceReleasesOldBlob(t *testing.T) {
	files, _, store := seeded(t)
	ctx := context.Background()

	first := record("pdf", "deck.pdf", 50, 9)
	first.BlobRef = store.Put("application/pdf", []byte("v1"))
	require.NoError(t, files.Add(ctx, first))

	second := first
	second.BlobRef = store.Put("application/pdf", []byte("v2"))
	require.NoError(t, files.Add(ctx, second))

	_, _, ok := store.Get(first.BlobRef)
	assert.False(t, ok)
	_, _, ok = store.Get(second.BlobRef)
	assert.True(t, ok)
	assert.Len(t, files.List(ListOptions{}), 5)
}

func TestFiles_ToggleAll(t *testing.T) {
	files, _, _ := seeded(t)
	ctx := context.Background()
	oil := ListOptions{Query: "oil"}

	// Nothing selected: select exactly the visible records
	assert.Equal(t, []string{"3", "4"}, files.ToggleAll(ctx, oil))

	// Every visible record selected: clear
	assert.Empty(t, files.ToggleAll(ctx, oil))

	// Partially selected: select exactly the visible records, dropping others
	_, err := files.Toggle(ctx, "1")
	require.NoError(t, err)
	_, err = files.Toggle(ctx, "3")
	require.NoError(t, err)
	assert.Equal(t, []string{"3", "4"}, files.ToggleAll(ctx, oil))

	// No visible records: selection becomes empty
	assert.Empty(t, files.ToggleAll(ctx, ListOptions{Query: "gold"}))
}

func TestFiles_ToggleUnknown(t *testing.T) {
	files, _, _ := seeded(t)

	_, err := files.Toggle(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	selected, err := files.Toggle(context.Background(), "1")
	require.NoError(t, err)
	assert.True(t, selected)
	selected, err = files.Toggle(context.Background(), "1")
	require.NoError(t, err)
	assert.False(t, selected)
}

func TestFiles_SelectedInRegistryOrder(t *testing.T) {
	files, _, _ := seeded(t)
	ctx := context.Background()

	require.NoError(t, files.Select(ctx, "4", "1"))
	assert.Equal(t, []string{"1", "4"}, ids(files.Selected()))

	assert.ErrorIs(t, files.Select(ctx, "zzz"), ErrNotFound)

	files.ClearSelection(ctx)
	assert.Empty(t, files.Selected())
}

func TestFiles_Stats(t *testing.T) {
	files, _, _ := seeded(t)
	_, err := files.Toggle(context.Background(), "2")
	require.NoError(t, err)

	stats := files.Stats()
	assert.Equal(t, 4, stats.TotalFiles)
	assert.Equal(t, 1, stats.SelectedFiles)
	assert.Equal(t, int64(700), stats.TotalBytes)
	assert.Equal(t, 4, stats.ByPreview[models.PreviewText])
}

func TestFiles_PersistReloadWithBadger(t *testing.T) {
	logger := arbor.NewLogger()
	dir := t.TempDir()
	ctx := context.Background()

	manager, err := badger.NewManager(logger, &common.BadgerConfig{Path: dir})
	require.NoError(t, err)

	store := blobs.NewStore(logger)
	files := NewFiles(manager.FileStorage(), store, nil, logger)

	text := record("t", "report.txt", 19, 1)
	text.Content = "Q3 outlook positive"
	image := record("i", "chart.png", 3, 2)
	image.MediaType = "image/png"
	image.Preview = models.PreviewImage
	image.Content = "data:image/png;base64,AAAA"
	image.PreviewURL = image.Content
	pdf := record("p", "deck.pdf", 4, 3)
	pdf.MediaType = "application/pdf"
	pdf.Preview = models.PreviewPDF
	pdf.Content = "data:application/pdf;base64,JVBERg=="
	pdf.BlobRef = store.Put("application/pdf", []byte("%PDF"))

	require.NoError(t, files.Add(ctx, text, image, pdf))
	before := files.List(ListOptions{Sort: models.SortByUploadDate, Order: models.SortAsc})
	files.Close()
	assert.Equal(t, 0, store.Len())
	require.NoError(t, manager.Close())

	manager, err = badger.NewManager(logger, &common.BadgerConfig{Path: dir})
	require.NoError(t, err)
	defer manager.Close()

	reloaded := NewFiles(manager.FileStorage(), blobs.NewStore(logger), nil, logger)
	require.NoError(t, reloaded.Load(ctx))
	after := reloaded.List(ListOptions{Sort: models.SortByUploadDate, Order: models.SortAsc})

	require.Len(t, after, 3)
	for i := range before {
		expected := before[i]
		expected.BlobRef = ""
		assert.Equal(t, expected.ID, after[i].ID)
		assert.Equal(t, expected.Content, after[i].Content)
		assert.Equal(t, expected.PreviewURL, after[i].PreviewURL)
		assert.Equal(t, expected.Preview, after[i].Preview)
		assert.True(t, expected.UploadedAt.Equal(after[i].UploadedAt))
		assert.Empty(t, after[i].BlobRef)
	}
	assert.Equal(t, "Q3 outlook positive", after[0].Content)
	assert.Empty(t, reloaded.SelectedIDs(), "selection is not persisted")
}

package badger

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/marketlens/internal/common"
	"github.com/ternarybob/marketlens/internal/interfaces"
	"github.com/ternarybob/marketlens/internal/models"
)

func newTestManager(t *testing.T, dir string) interfaces.StorageManager {
	t.Helper()
	manager, err := NewManager(arbor.NewLogger(), &common.BadgerConfig{Path: dir})
	require.NoError(t, err)
	return manager
}

func TestDocumentStorage_FilesRoundTrip(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	uploaded := time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC)

	records := []models.FileRecord{
		{
			ID:         "file_1",
			Name:       "report.txt",
			Size:       19,
			MediaType:  "text/plain",
			UploadedAt: uploaded,
			Content:    "Q3 outlook positive",
			Preview:    models.PreviewText,
		},
		{
			ID:         "file_2",
			Name:       "deck.pdf",
			Size:       4,
			MediaType:  "application/pdf",
			UploadedAt: uploaded.Add(time.Minute),
			Content:    "data:application/pdf;base64,JVBERg==",
			BlobRef:    "blob:live",
			Preview:    models.PreviewPDF,
			PageCount:  1,
		},
	}

	manager := newTestManager(t, dir)
	require.NoError(t, manager.FileStorage().SaveFiles(ctx, records))
	require.NoError(t, manager.Close())

	// Reopen to prove the document survives a restart
	manager = newTestManager(t, dir)
	defer manager.Close()

	loaded, err := manager.FileStorage().LoadFiles(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 2)

	assert.Equal(t, "report.txt", loaded[0].Name)
	assert.Equal(t, "Q3 outlook positive", loaded[0].Content)
	assert.True(t, loaded[0].UploadedAt.Equal(uploaded))
	assert.Equal(t, models.PreviewPDF, loaded[1].Preview)
	assert.Empty(t, loaded[1].BlobRef, "transient reference must not be persisted")
	assert.Equal(t, "blob:live", records[1].BlobRef, "caller's records are not mutated")
}

func TestDocumentStorage_EmptyWhenMissing(t *testing.T) {
	manager := newTestManager(t, t.TempDir())
	defer manager.Close()
	ctx := context.Background()

	files, err := manager.FileStorage().LoadFiles(ctx)
	require.NoError(t, err)
	assert.NotNil(t, files)
	assert.Empty(t, files)

	customers, err := manager.CustomerStorage().LoadCustomers(ctx)
	require.NoError(t, err)
	assert.NotNil(t, customers)
	assert.Empty(t, customers)
}

func TestDocumentStorage_SaveReplacesWholeDocument(t *testing.T) {
	manager := newTestManager(t, t.TempDir())
	defer manager.Close()
	ctx := context.Background()

	require.NoError(t, manager.FileStorage().SaveFiles(ctx, []models.FileRecord{{ID: "a"}, {ID: "b"}}))
	require.NoError(t, manager.FileStorage().SaveFiles(ctx, []models.FileRecord{{ID: "b"}}))

	loaded, err := manager.FileStorage().LoadFiles(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, "b", loaded[0].ID)
}

func TestDocumentStorage_Customers(t *testing.T) {
	manager := newTestManager(t, t.TempDir())
	defer manager.Close()
	ctx := context.Background()

	customers := []models.Customer{
		{ID: "cust_1", Name: "Acme Refining", Capacity: "120kt/y", GrossMargin: 12.5},
		{ID: "cust_2", Name: "Delta Polymers", Products: "PP, PE"},
	}
	require.NoError(t, manager.CustomerStorage().SaveCustomers(ctx, customers))

	loaded, err := manager.CustomerStorage().LoadCustomers(ctx)
	require.NoError(t, err)
	assert.Equal(t, customers, loaded)
}

func TestKVStorage(t *testing.T) {
	manager := newTestManager(t, t.TempDir())
	defer manager.Close()
	ctx := context.Background()
	kv := manager.KeyValueStorage()

	_, err := kv.Get(ctx, "gemini_api_key")
	assert.ErrorIs(t, err, interfaces.ErrKeyNotFound)

	require.NoError(t, kv.Set(ctx, "GEMINI_API_KEY", "secret", "Gemini key"))
	value, err := kv.Get(ctx, "gemini_api_key")
	require.NoError(t, err)
	assert.Equal(t, "secret", value, "keys are case-insensitive")

	pairs, err := kv.List(ctx)
	require.NoError(t, err)
	require.Len(t, pairs, 1)
	assert.Equal(t, "gemini_api_key", pairs[0].Key)

	require.NoError(t, kv.Delete(ctx, "gemini_api_key"))
	assert.ErrorIs(t, kv.Delete(ctx, "gemini_api_key"), interfaces.ErrKeyNotFound)
	assert.Error(t, kv.Set(ctx, "  ", "x", ""))
}

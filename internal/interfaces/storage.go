package interfaces

import (
	"context"

	"github.com/ternarybob/marketlens/internal/models"
)

// FileStorage persists the file registry as a single document.
// SaveFiles replaces the whole document; callers pass records in registry order.
type FileStorage interface {
	SaveFiles(ctx context.Context, records []models.FileRecord) error
	LoadFiles(ctx context.Context) ([]models.FileRecord, error)
}

// CustomerStorage persists the customer registry as a single document
type CustomerStorage interface {
	SaveCustomers(ctx context.Context, customers []models.Customer) error
	LoadCustomers(ctx context.Context) ([]models.Customer, error)
}

// StorageManager - composite interface for all storage operations
type StorageManager interface {
	FileStorage() FileStorage
	CustomerStorage() CustomerStorage
	KeyValueStorage() KeyValueStorage
	Close() error
}

// BlobStore holds transient in-memory content addressed by an opaque handle.
// Handles do not survive a restart.
type BlobStore interface {
	Put(mediaType string, data []byte) string
	Get(ref string) (mediaType string, data []byte, ok bool)
	Release(ref string)
	ReleaseAll()
	Len() int
}

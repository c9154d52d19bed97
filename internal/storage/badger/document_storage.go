package badger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/ternarybob/marketlens/internal/interfaces"
	"github.com/ternarybob/marketlens/internal/models"
)

// Document keys. The file key matches the one the browser build used for
// local storage so exported state stays recognizable.
const (
	FilesDocumentKey     = "market_reports_files_v2"
	CustomersDocumentKey = "market_customers_v1"
)

// fileDocument is the whole file registry stored under one key
type fileDocument struct {
	Records []models.FileRecord
	SavedAt time.Time
}

// customerDocument is the whole customer registry stored under one key
type customerDocument struct {
	Customers []models.Customer
	SavedAt   time.Time
}

// DocumentStorage implements FileStorage and CustomerStorage with one
// badgerhold entry per collection, rewritten whole on every save.
type DocumentStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

var (
	_ interfaces.FileStorage     = (*DocumentStorage)(nil)
	_ interfaces.CustomerStorage = (*DocumentStorage)(nil)
)

// NewDocumentStorage creates a new DocumentStorage instance
func NewDocumentStorage(db *BadgerDB, logger arbor.ILogger) *DocumentStorage {
	return &DocumentStorage{
		db:     db,
		logger: logger,
	}
}

// SaveFiles replaces the persisted file document. Transient references are stripped.
func (s *DocumentStorage) SaveFiles(ctx context.Context, records []models.FileRecord) error {
	doc := fileDocument{
		Records: make([]models.FileRecord, len(records)),
		SavedAt: time.Now(),
	}
	for i, record := range records {
		doc.Records[i] = record.Persistable()
	}

	if err := s.db.Store().Upsert(FilesDocumentKey, &doc); err != nil {
		return fmt.Errorf("failed to save file document: %w", err)
	}

	s.logger.Debug().Int("records", len(records)).Msg("File document saved")
	return nil
}

// LoadFiles returns the persisted file records in stored order. A missing
// document yields an empty slice.
func (s *DocumentStorage) LoadFiles(ctx context.Context) ([]models.FileRecord, error) {
	var doc fileDocument
	err := s.db.Store().Get(FilesDocumentKey, &doc)
	if errors.Is(err, badgerhold.ErrNotFound) {
		return []models.FileRecord{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load file document: %w", err)
	}

	records := make([]models.FileRecord, len(doc.Records))
	for i, record := range doc.Records {
		records[i] = record.Persistable()
	}
	return records, nil
}

// SaveCustomers replaces the persisted customer document
func (s *DocumentStorage) SaveCustomers(ctx context.Context, customers []models.Customer) error {
	doc := customerDocument{
		Customers: append([]models.Customer(nil), customers...),
		SavedAt:   time.Now(),
	}

	if err := s.db.Store().Upsert(CustomersDocumentKey, &doc); err != nil {
		return fmt.Errorf("failed to save customer document: %w", err)
	}

	s.logger.Debug().Int("customers", len(customers)).Msg("Customer document saved")
	return nil
}

// LoadCustomers returns the persisted customers. A missing document yields an empty slice.
func (s *DocumentStorage) LoadCustomers(ctx context.Context) ([]models.Customer, error) {
	var doc customerDocument
	err := s.db.Store().Get(CustomersDocumentKey, &doc)
	if errors.Is(err, badgerhold.ErrNotFound) {
		return []models.Customer{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load customer document: %w", err)
	}
	if doc.Customers == nil {
		doc.Customers = []models.Customer{}
	}
	return doc.Customers, nil
}

package app

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/marketlens/internal/common"
	"github.com/ternarybob/marketlens/internal/handlers"
	"github.com/ternarybob/marketlens/internal/interfaces"
	"github.com/ternarybob/marketlens/internal/services/analysis"
	"github.com/ternarybob/marketlens/internal/services/blobs"
	"github.com/ternarybob/marketlens/internal/services/events"
	"github.com/ternarybob/marketlens/internal/services/export"
	"github.com/ternarybob/marketlens/internal/services/ingest"
	"github.com/ternarybob/marketlens/internal/services/llm"
	"github.com/ternarybob/marketlens/internal/services/registry"
	"github.com/ternarybob/marketlens/internal/storage"
)

// App holds all application components and dependencies
type App struct {
	Config         *common.Config
	Logger         arbor.ILogger
	StorageManager interfaces.StorageManager

	// Core services
	Blobs        *blobs.Store
	EventService *events.Service
	Ingest       *ingest.Service
	Files        *registry.Files
	Customers    *registry.Customers
	LLM          *llm.ProviderFactory
	Analysis     *analysis.Service
	Session      *analysis.Session
	Export       *export.Service

	// HTTP handlers
	APIHandler       *handlers.APIHandler
	FileHandler      *handlers.FileHandler
	SelectionHandler *handlers.SelectionHandler
	CustomerHandler  *handlers.CustomerHandler
	AnalysisHandler  *handlers.AnalysisHandler
	KVHandler        *handlers.KVHandler
	WSHandler        *handlers.WebSocketHandler
}

// New initializes the application with all dependencies
func New(cfg *common.Config, logger arbor.ILogger) (*App, error) {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	if err := app.initDatabase(); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	if err := app.initServices(context.Background()); err != nil {
		app.Close()
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	app.initHandlers()

	logger.Info().
		Int("files", len(app.Files.List(registry.ListOptions{}))).
		Int("customers", len(app.Customers.List())).
		Str("default_model", app.LLM.DefaultModel()).
		Msg("Application initialization complete")

	return app, nil
}

// initDatabase initializes the storage layer (Badger)
func (a *App) initDatabase() error {
	storageManager, err := storage.NewStorageManager(a.Logger, a.Config)
	if err != nil {
		return fmt.Errorf("failed to create storage manager: %w", err)
	}

	a.StorageManager = storageManager
	a.Logger.Debug().
		Str("storage", "badger").
		Str("path", a.Config.Storage.Badger.Path).
		Msg("Storage layer initialized")
	return nil
}

// initServices creates the services in dependency order and restores the
// persisted registries
func (a *App) initServices(ctx context.Context) error {
	a.Blobs = blobs.NewStore(a.Logger)
	a.EventService = events.NewService(a.Logger)
	a.Ingest = ingest.NewService(a.Blobs, a.Config.Ingest, a.Logger)

	a.Files = registry.NewFiles(a.StorageManager.FileStorage(), a.Blobs, a.EventService, a.Logger)
	if err := a.Files.Load(ctx); err != nil {
		return fmt.Errorf("failed to load file registry: %w", err)
	}

	a.Customers = registry.NewCustomers(a.StorageManager.CustomerStorage(), a.EventService, a.Logger)
	if err := a.Customers.Load(ctx); err != nil {
		return fmt.Errorf("failed to load customers: %w", err)
	}

	a.LLM = llm.NewProviderFactory(
		&a.Config.Gemini,
		&a.Config.Claude,
		&a.Config.LLM,
		a.StorageManager.KeyValueStorage(),
		a.Logger,
	)
	a.Analysis = analysis.NewService(a.LLM, a.Config.Analysis, a.Logger)
	a.Session = analysis.NewSession(a.Analysis, a.Files, a.Customers, a.EventService, a.Logger)
	a.Export = export.NewService(a.Config.Export, a.Logger)

	return nil
}

func (a *App) initHandlers() {
	a.APIHandler = handlers.NewAPIHandler(a.Files, a.Customers, a.Session, a.Blobs, a.Logger)
	a.FileHandler = handlers.NewFileHandler(a.Files, a.Ingest, a.Blobs, a.Logger)
	a.SelectionHandler = handlers.NewSelectionHandler(a.Files, a.Logger)
	a.CustomerHandler = handlers.NewCustomerHandler(a.Customers, a.Logger)
	a.AnalysisHandler = handlers.NewAnalysisHandler(a.Session, a.Export, a.Logger)
	a.KVHandler = handlers.NewKVHandler(a.StorageManager.KeyValueStorage(), func() { a.LLM.Close() }, a.Logger)
	a.WSHandler = handlers.NewWebSocketHandler(a.EventService, a.Logger)
}

// Close releases transient references and closes all application resources
func (a *App) Close() error {
	if a.Files != nil {
		a.Files.Close()
	}
	if a.Blobs != nil {
		a.Blobs.ReleaseAll()
	}

	if a.LLM != nil {
		if err := a.LLM.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close LLM providers")
		}
	}

	if a.EventService != nil {
		if err := a.EventService.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close event service")
		}
	}

	if a.StorageManager != nil {
		if err := a.StorageManager.Close(); err != nil {
			return fmt.Errorf("failed to close storage: %w", err)
		}
		a.Logger.Info().Msg("Storage closed")
	}

	return nil
}

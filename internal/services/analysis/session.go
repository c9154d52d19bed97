package analysis

import (
	"context"
	"sync"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/marketlens/internal/interfaces"
	"github.com/ternarybob/marketlens/internal/models"
)

// FileSelection supplies the currently selected files
type FileSelection interface {
	Selected() []models.FileRecord
}

// CustomerSelection supplies the currently selected customers
type CustomerSelection interface {
	Selected() []models.Customer
}

// Status is the session state shown to the UI
type Status struct {
	InProgress bool                   `json:"in_progress"`
	Latest     *models.AnalysisReport `json:"latest,omitempty"`
	LastError  string                 `json:"last_error,omitempty"`
}

// Session tracks the in-progress flag and the latest report for the UI.
// Only one run may be outstanding; a failed run keeps the previous report.
type Session struct {
	service   *Service
	files     FileSelection
	customers CustomerSelection
	events    interfaces.EventService
	logger    arbor.ILogger

	mu         sync.RWMutex
	inProgress bool
	latest     *models.AnalysisReport
	lastErr    string
}

// NewSession creates a session reading the selection from the registries
func NewSession(service *Service, files FileSelection, customers CustomerSelection, events interfaces.EventService, logger arbor.ILogger) *Session {
	return &Session{
		service:   service,
		files:     files,
		customers: customers,
		events:    events,
		logger:    logger,
	}
}

// Run analyzes the current selection. A second call while one is running
// returns ErrAnalysisInProgress without touching the provider. A selection
// the service rejects publishes no events.
func (s *Session) Run(ctx context.Context, variant models.AnalysisVariant, model string) (*models.AnalysisReport, error) {
	s.mu.Lock()
	if s.inProgress {
		s.mu.Unlock()
		return nil, ErrAnalysisInProgress
	}
	s.inProgress = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.inProgress = false
		s.mu.Unlock()
	}()

	req := Request{
		Files:   s.files.Selected(),
		Variant: variant,
		Model:   model,
	}
	if s.customers != nil {
		req.Customers = s.customers.Selected()
	}

	if err := s.service.Validate(req); err != nil {
		s.mu.Lock()
		s.lastErr = err.Error()
		s.mu.Unlock()
		return nil, err
	}

	s.publish(ctx, interfaces.EventAnalysisStarted, map[string]interface{}{
		"variant": string(variant),
		"files":   len(req.Files),
	})

	report, err := s.service.Analyze(ctx, req)

	s.mu.Lock()
	if err != nil {
		s.lastErr = err.Error()
	} else {
		s.latest = report
		s.lastErr = ""
	}
	s.mu.Unlock()

	if err != nil {
		s.publish(ctx, interfaces.EventAnalysisFailed, map[string]interface{}{
			"error": err.Error(),
		})
		return nil, err
	}

	s.publish(ctx, interfaces.EventAnalysisCompleted, map[string]interface{}{
		"title":   report.Result.Title,
		"variant": string(report.Variant),
	})
	return report, nil
}

// Status returns a snapshot of the session
func (s *Session) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Status{InProgress: s.inProgress, Latest: s.latest, LastError: s.lastErr}
}

// Latest returns the most recent successful report, or nil
func (s *Session) Latest() *models.AnalysisReport {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest
}

// DefaultVariant exposes the service default for callers without a choice
func (s *Session) DefaultVariant() models.AnalysisVariant {
	return s.service.DefaultVariant()
}

func (s *Session) publish(ctx context.Context, eventType interfaces.EventType, payload map[string]interface{}) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, interfaces.Event{Type: eventType, Payload: payload}); err != nil {
		s.logger.Warn().Err(err).Str("event", string(eventType)).Msg("Failed to publish analysis event")
	}
}

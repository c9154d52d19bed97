package analysis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/marketlens/internal/common"
	"github.com/ternarybob/marketlens/internal/models"
	"github.com/ternarybob/marketlens/internal/services/llm"
)

// Request is one analysis invocation
type Request struct {
	Files     []models.FileRecord
	Customers []models.Customer
	Variant   models.AnalysisVariant
	Model     string // optional; provider default when empty
}

// Service turns selected files into a structured market analysis.
// It holds no per-run state and may be called concurrently.
type Service struct {
	generator llm.Generator
	config    common.AnalysisConfig
	logger    arbor.ILogger
	now       func() time.Time
}

// NewService creates an analysis service on top of a content generator
func NewService(generator llm.Generator, config common.AnalysisConfig, logger arbor.ILogger) *Service {
	return &Service{
		generator: generator,
		config:    config,
		logger:    logger,
		now:       time.Now,
	}
}

// DefaultVariant returns the configured variant, falling back to market
func (s *Service) DefaultVariant() models.AnalysisVariant {
	variant, err := models.ParseVariant(s.config.DefaultVariant)
	if err != nil {
		return models.VariantMarket
	}
	return variant
}

// Validate rejects a request whose selection cannot be analyzed, before any
// provider call is made.
func (s *Service) Validate(req Request) error {
	if len(req.Files) == 0 {
		return ErrNothingSelected
	}
	if s.resolveVariant(req.Variant) == models.VariantCustomer && len(req.Customers) == 0 {
		return ErrNoCustomersSelected
	}
	return nil
}

func (s *Service) resolveVariant(variant models.AnalysisVariant) models.AnalysisVariant {
	if variant == "" {
		return s.DefaultVariant()
	}
	return variant
}

// Analyze builds the request parts, calls the provider once and parses the
// reply. Nothing is sent when the file selection is empty.
func (s *Service) Analyze(ctx context.Context, req Request) (*models.AnalysisReport, error) {
	if err := s.Validate(req); err != nil {
		return nil, err
	}
	variant := s.resolveVariant(req.Variant)

	parts := BuildParts(req.Files, req.Customers, variant, s.config.Language)

	s.logger.Info().
		Str("variant", string(variant)).
		Int("files", len(req.Files)).
		Int("customers", len(req.Customers)).
		Int("parts", len(parts)).
		Msg("Starting analysis")

	start := time.Now()
	resp, err := s.generator.GenerateContent(ctx, &llm.ContentRequest{
		Parts:        parts,
		Model:        req.Model,
		OutputSchema: ReplySchema(variant),
	})
	if err != nil {
		err = classify(err)
		s.logger.Error().Err(err).Str("variant", string(variant)).Msg("Analysis request failed")
		return nil, err
	}

	result, err := ParseReply(resp.Text, variant)
	if err != nil {
		s.logger.Warn().Err(err).Int("reply_chars", len(resp.Text)).Msg("Analysis reply rejected")
		return nil, err
	}

	report := &models.AnalysisReport{
		Result:      *result,
		Variant:     variant,
		Model:       resp.Model,
		SourceFiles: make([]string, 0, len(req.Files)),
		GeneratedAt: s.now(),
	}
	for _, record := range req.Files {
		report.SourceFiles = append(report.SourceFiles, record.Name)
	}
	if variant == models.VariantCustomer {
		for _, customer := range req.Customers {
			report.Customers = append(report.Customers, customer.Name)
		}
	}

	s.logger.Info().
		Str("title", result.Title).
		Str("provider", string(resp.Provider)).
		Str("model", resp.Model).
		Dur("elapsed", time.Since(start).Round(time.Millisecond)).
		Msg("Analysis completed")

	return report, nil
}

// classify maps provider errors onto the analysis error taxonomy
func classify(err error) error {
	switch {
	case errors.Is(err, llm.ErrMissingAPIKey):
		return fmt.Errorf("%w: %v", ErrCredentialsNotConfigured, err)
	case errors.Is(err, llm.ErrEmptyResponse):
		return fmt.Errorf("%w: %v", ErrMalformedReply, err)
	default:
		return fmt.Errorf("%w: %w", ErrAnalysisFailed, err)
	}
}

package llm

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"
	"google.golang.org/genai"

	"github.com/ternarybob/marketlens/internal/common"
	"github.com/ternarybob/marketlens/internal/interfaces"
)

// ProviderType represents the AI provider type
type ProviderType string

const (
	ProviderGemini ProviderType = "gemini"
	ProviderClaude ProviderType = "claude"
)

// PartKind distinguishes text from inline binary content
type PartKind string

const (
	PartText   PartKind = "text"
	PartInline PartKind = "inline"
)

// Part is one ordered piece of request content
type Part struct {
	Kind      PartKind
	Text      string
	MediaType string
	Data      []byte
}

// TextPart creates a text part
func TextPart(text string) Part {
	return Part{Kind: PartText, Text: text}
}

// InlinePart creates a part carrying raw bytes with their media type
func InlinePart(mediaType string, data []byte) Part {
	return Part{Kind: PartInline, MediaType: mediaType, Data: data}
}

// ContentRequest represents a provider-agnostic content generation request
type ContentRequest struct {
	Parts             []Part
	Model             string
	Temperature       float32
	MaxTokens         int
	SystemInstruction string
	OutputSchema      map[string]interface{} // JSON schema the reply must satisfy
}

// ContentResponse represents a provider-agnostic content generation response
type ContentResponse struct {
	Text     string
	Provider ProviderType
	Model    string
}

// Generator produces content for a request
type Generator interface {
	GenerateContent(ctx context.Context, request *ContentRequest) (*ContentResponse, error)
}

// ProviderFactory routes requests to Gemini or Claude and owns their clients
type ProviderFactory struct {
	geminiConfig *common.GeminiConfig
	claudeConfig *common.ClaudeConfig
	llmConfig    *common.LLMConfig
	kvStorage    interfaces.KeyValueStorage
	logger       arbor.ILogger

	mu            sync.Mutex
	geminiClient  *genai.Client
	claudeClient  *anthropic.Client
	geminiLimiter *rate.Limiter
	claudeLimiter *rate.Limiter
}

var _ Generator = (*ProviderFactory)(nil)

// NewProviderFactory creates a new provider factory. Clients are created on first use.
func NewProviderFactory(
	geminiConfig *common.GeminiConfig,
	claudeConfig *common.ClaudeConfig,
	llmConfig *common.LLMConfig,
	kvStorage interfaces.KeyValueStorage,
	logger arbor.ILogger,
) *ProviderFactory {
	return &ProviderFactory{
		geminiConfig:  geminiConfig,
		claudeConfig:  claudeConfig,
		llmConfig:     llmConfig,
		kvStorage:     kvStorage,
		logger:        logger,
		geminiLimiter: newLimiter(geminiConfig.RateLimit),
		claudeLimiter: newLimiter(claudeConfig.RateLimit),
	}
}

// newLimiter spaces requests by the given interval; nil when unset
func newLimiter(interval string) *rate.Limiter {
	d := common.ParseOptionalDuration(interval)
	if d <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Every(d), 1)
}

// DetectProvider determines the provider type from a model string.
// Model strings can be:
// - "claude-sonnet-4-5" or "claude/claude-sonnet-4-5" -> Claude
// - "gemini-3-pro-preview" or "gemini/gemini-3-pro-preview" -> Gemini
// - Empty string -> default provider from config
func (f *ProviderFactory) DetectProvider(model string) ProviderType {
	model = strings.ToLower(model)

	switch {
	case strings.HasPrefix(model, "claude/"), strings.HasPrefix(model, "anthropic/"), strings.HasPrefix(model, "claude-"):
		return ProviderClaude
	case strings.HasPrefix(model, "gemini/"), strings.HasPrefix(model, "google/"), strings.HasPrefix(model, "gemini-"):
		return ProviderGemini
	}

	if f.llmConfig != nil && ProviderType(f.llmConfig.DefaultProvider) == ProviderClaude {
		return ProviderClaude
	}
	return ProviderGemini
}

// NormalizeModel removes provider prefix from model name if present
func (f *ProviderFactory) NormalizeModel(model string) string {
	for _, prefix := range []string{"claude/", "anthropic/", "gemini/", "google/"} {
		if strings.HasPrefix(strings.ToLower(model), prefix) {
			return model[len(prefix):]
		}
	}
	return model
}

// DefaultModel returns the model used when a request names none
func (f *ProviderFactory) DefaultModel() string {
	if f.DetectProvider("") == ProviderClaude {
		return f.claudeConfig.Model
	}
	return f.geminiConfig.Model
}

// ResolveModel returns the provider and bare model name for a request model
func (f *ProviderFactory) ResolveModel(model string) (ProviderType, string) {
	if model == "" {
		model = f.DefaultModel()
	}
	return f.DetectProvider(model), f.NormalizeModel(model)
}

// GenerateContent generates content using the provider the model belongs to
func (f *ProviderFactory) GenerateContent(ctx context.Context, request *ContentRequest) (*ContentResponse, error) {
	provider, model := f.ResolveModel(request.Model)

	f.logger.Debug().
		Str("provider", string(provider)).
		Str("model", model).
		Int("part_count", len(request.Parts)).
		Msg("Generating content with provider")

	switch provider {
	case ProviderClaude:
		return f.generateWithClaude(ctx, request, model)
	default:
		return f.generateWithGemini(ctx, request, model)
	}
}

// withTimeout applies a configured provider timeout, if any
func withTimeout(ctx context.Context, timeout string) (context.Context, context.CancelFunc) {
	if d := common.ParseOptionalDuration(timeout); d > 0 {
		return context.WithTimeout(ctx, d)
	}
	return ctx, func() {}
}

func wait(ctx context.Context, limiter *rate.Limiter) error {
	if limiter == nil {
		return nil
	}
	return limiter.Wait(ctx)
}

func (f *ProviderFactory) resolveKey(ctx context.Context, name, fallback string, provider ProviderType) (string, error) {
	apiKey, err := common.ResolveAPIKey(ctx, f.kvStorage, name, fallback)
	if err != nil {
		return "", fmt.Errorf("%s: %w", provider, ErrMissingAPIKey)
	}
	return apiKey, nil
}

// Close drops the provider clients; the next request recreates them
func (f *ProviderFactory) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.geminiClient = nil
	f.claudeClient = nil
	return nil
}

func elapsed(start time.Time) time.Duration {
	return time.Since(start).Round(time.Millisecond)
}

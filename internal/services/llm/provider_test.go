package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"google.golang.org/genai"

	"github.com/ternarybob/marketlens/internal/common"
)

func clearKeys(t *testing.T) {
	for _, name := range []string{
		"MARKETLENS_GEMINI_API_KEY", "GEMINI_API_KEY", "API_KEY",
		"MARKETLENS_CLAUDE_API_KEY", "ANTHROPIC_API_KEY",
	} {
		t.Setenv(name, "")
	}
}

func newFactory() *ProviderFactory {
	config := common.NewDefaultConfig()
	return NewProviderFactory(&config.Gemini, &config.Claude, &config.LLM, nil, arbor.NewLogger())
}

func TestDetectProvider(t *testing.T) {
	factory := newFactory()

	tests := []struct {
		model string
		want  ProviderType
	}{
		{"gemini-3-pro-preview", ProviderGemini},
		{"google/gemini-2.5-flash", ProviderGemini},
		{"claude-sonnet-4-5", ProviderClaude},
		{"anthropic/claude-opus-4", ProviderClaude},
		{"", ProviderGemini},
		{"something-else", ProviderGemini},
	}
	for _, tt := range tests {
		t.Run(tt.model, func(t *testing.T) {
			assert.Equal(t, tt.want, factory.DetectProvider(tt.model))
		})
	}

	assert.Equal(t, "claude-opus-4", factory.NormalizeModel("anthropic/claude-opus-4"))

	provider, model := factory.ResolveModel("")
	assert.Equal(t, ProviderGemini, provider)
	assert.Equal(t, "gemini-3-pro-preview", model)
}

func TestGenerateContent_MissingCredentialsFailsBeforeNetwork(t *testing.T) {
	clearKeys(t)
	factory := newFactory()

	for _, model := range []string{"gemini-3-pro-preview", "claude-sonnet-4-5"} {
		t.Run(model, func(t *testing.T) {
			_, err := factory.GenerateContent(context.Background(), &ContentRequest{
				Model: model,
				Parts: []Part{TextPart("hello")},
			})
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrMissingAPIKey))
		})
	}
	assert.Nil(t, factory.geminiClient, "no client is created without a key")
	assert.Nil(t, factory.claudeClient)
}

func TestToGeminiParts_PreservesOrder(t *testing.T) {
	parts := toGeminiParts([]Part{
		TextPart("first"),
		InlinePart("image/png", []byte{1, 2, 3}),
		TextPart("last"),
	})

	require.Len(t, parts, 3)
	assert.Equal(t, "first", parts[0].Text)
	require.NotNil(t, parts[1].InlineData)
	assert.Equal(t, "image/png", parts[1].InlineData.MIMEType)
	assert.Equal(t, []byte{1, 2, 3}, parts[1].InlineData.Data)
	assert.Equal(t, "last", parts[2].Text)
}

func TestClaudeSystemText(t *testing.T) {
	text, err := claudeSystemText(&ContentRequest{SystemInstruction: "Be brief."})
	require.NoError(t, err)
	assert.Equal(t, "Be brief.", text)

	text, err = claudeSystemText(&ContentRequest{
		SystemInstruction: "Be brief.",
		OutputSchema:      map[string]interface{}{"type": "object"},
	})
	require.NoError(t, err)
	assert.Contains(t, text, "Be brief.")
	assert.Contains(t, text, `"type": "object"`)
}

func TestConvertToGenaiSchema(t *testing.T) {
	schema, err := convertToGenaiSchema(map[string]interface{}{
		"type":     "object",
		"required": []string{"title"},
		"properties": map[string]interface{}{
			"title": map[string]interface{}{"type": "string"},
			"trends": map[string]interface{}{
				"type":  "array",
				"items": map[string]interface{}{"type": "string"},
			},
			"riskLevel": map[string]interface{}{
				"type": "string",
				"enum": []interface{}{"low", "medium", "high"},
			},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, genai.TypeObject, schema.Type)
	assert.Equal(t, []string{"title"}, schema.Required)
	assert.Equal(t, genai.TypeArray, schema.Properties["trends"].Type)
	assert.Equal(t, genai.TypeString, schema.Properties["trends"].Items.Type)
	assert.Equal(t, []string{"low", "medium", "high"}, schema.Properties["riskLevel"].Enum)

	_, err = convertToGenaiSchema(map[string]interface{}{"type": "tuple"})
	assert.Error(t, err)

	empty, err := convertToGenaiSchema(nil)
	assert.NoError(t, err)
	assert.Nil(t, empty)
}

func TestRetry(t *testing.T) {
	logger := arbor.NewLogger()

	t.Run("single attempt by default", func(t *testing.T) {
		calls := 0
		err := NewRetryConfig(0).do(context.Background(), logger, ProviderGemini, func() error {
			calls++
			return errors.New("boom")
		})
		assert.Error(t, err)
		assert.Equal(t, 1, calls)
	})

	t.Run("cancelled context stops retries", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		calls := 0
		err := NewRetryConfig(3).do(ctx, logger, ProviderGemini, func() error {
			calls++
			cancel()
			return errors.New("boom")
		})
		assert.Error(t, err)
		assert.Equal(t, 1, calls)
	})
}

func TestBackoffHelpers(t *testing.T) {
	err := errors.New("Error 429, Message: quota. Please retry in 12.5s., Status: RESOURCE_EXHAUSTED")
	assert.True(t, IsRateLimitError(err))
	assert.Equal(t, 12500*time.Millisecond, ExtractRetryDelay(err))
	assert.False(t, IsRateLimitError(errors.New("connection refused")))
	assert.Zero(t, ExtractRetryDelay(errors.New("nothing here")))

	config := NewRetryConfig(2)
	assert.Equal(t, DefaultInitialBackoff, config.CalculateBackoff(0, 0))
	assert.Equal(t, DefaultMaxBackoff, config.CalculateBackoff(5, 0))
	assert.Equal(t, 17500*time.Millisecond, config.CalculateBackoff(0, 12500*time.Millisecond))
}

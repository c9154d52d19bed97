package llm

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// claudeImageTypes are the image media types Claude accepts inline
var claudeImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

// getClaudeClient returns the Claude client, creating one if necessary
func (f *ProviderFactory) getClaudeClient(ctx context.Context) (*anthropic.Client, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.claudeClient != nil {
		return f.claudeClient, nil
	}

	apiKey, err := f.resolveKey(ctx, "claude_api_key", f.claudeConfig.APIKey, ProviderClaude)
	if err != nil {
		return nil, err
	}

	client := anthropic.NewClient(option.WithAPIKey(apiKey))
	f.claudeClient = &client
	return f.claudeClient, nil
}

// toClaudeBlocks maps request parts onto Claude content blocks. Media types
// Claude cannot take inline are described in text instead.
func toClaudeBlocks(parts []Part) []anthropic.ContentBlockParamUnion {
	blocks := make([]anthropic.ContentBlockParamUnion, 0, len(parts))
	for _, part := range parts {
		if part.Kind != PartInline {
			blocks = append(blocks, anthropic.NewTextBlock(part.Text))
			continue
		}

		encoded := base64.StdEncoding.EncodeToString(part.Data)
		switch {
		case claudeImageTypes[part.MediaType]:
			blocks = append(blocks, anthropic.NewImageBlockBase64(part.MediaType, encoded))
		case part.MediaType == "application/pdf":
			blocks = append(blocks, anthropic.NewDocumentBlock(anthropic.Base64PDFSourceParam{Data: encoded}))
		default:
			blocks = append(blocks, anthropic.NewTextBlock(
				fmt.Sprintf("[Attachment of type %s, %d bytes, not readable by this model]", part.MediaType, len(part.Data))))
		}
	}
	return blocks
}

// claudeSystemText appends the output schema to the instructions; Claude has
// no schema-constrained decoding so the reply is validated afterwards.
func claudeSystemText(request *ContentRequest) (string, error) {
	if len(request.OutputSchema) == 0 {
		return request.SystemInstruction, nil
	}
	schema, err := json.MarshalIndent(request.OutputSchema, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode output schema: %w", err)
	}

	var sb strings.Builder
	sb.WriteString(request.SystemInstruction)
	if sb.Len() > 0 {
		sb.WriteString("\n\n")
	}
	sb.WriteString("Reply with a single JSON object only, no prose and no code fences, matching this JSON schema:\n")
	sb.Write(schema)
	return sb.String(), nil
}

func (f *ProviderFactory) generateWithClaude(ctx context.Context, request *ContentRequest, model string) (*ContentResponse, error) {
	client, err := f.getClaudeClient(ctx)
	if err != nil {
		return nil, err
	}

	systemText, err := claudeSystemText(request)
	if err != nil {
		return nil, err
	}

	maxTokens := request.MaxTokens
	if maxTokens <= 0 {
		maxTokens = f.claudeConfig.MaxTokens
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: int64(maxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(toClaudeBlocks(request.Parts)...),
		},
	}

	temp := request.Temperature
	if temp <= 0 {
		temp = f.claudeConfig.Temperature
	}
	if temp > 0 {
		params.Temperature = anthropic.Float(float64(temp))
	}
	if systemText != "" {
		params.System = []anthropic.TextBlockParam{
			{Text: systemText},
		}
	}

	ctx, cancel := withTimeout(ctx, f.claudeConfig.Timeout)
	defer cancel()

	start := time.Now()
	var resp *anthropic.Message
	err = NewRetryConfig(f.llmConfig.MaxRetries).do(ctx, f.logger, ProviderClaude, func() error {
		if err := wait(ctx, f.claudeLimiter); err != nil {
			return err
		}
		var callErr error
		resp, callErr = client.Messages.New(ctx, params)
		return callErr
	})
	if err != nil {
		return nil, fmt.Errorf("Claude API call failed: %w", err)
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return nil, fmt.Errorf("claude: %w", ErrEmptyResponse)
	}

	f.logger.Info().
		Str("model", model).
		Int("parts", len(request.Parts)).
		Int("response_chars", text.Len()).
		Dur("elapsed", elapsed(start)).
		Msg("Claude content generated")

	return &ContentResponse{
		Text:     text.String(),
		Provider: ProviderClaude,
		Model:    model,
	}, nil
}

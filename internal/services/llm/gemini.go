package llm

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/genai"
)

// getGeminiClient returns the Gemini client, creating one if necessary
func (f *ProviderFactory) getGeminiClient(ctx context.Context) (*genai.Client, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.geminiClient != nil {
		return f.geminiClient, nil
	}

	apiKey, err := f.resolveKey(ctx, "gemini_api_key", f.geminiConfig.APIKey, ProviderGemini)
	if err != nil {
		return nil, err
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	f.geminiClient = client
	return client, nil
}

// toGeminiParts maps request parts onto genai parts, preserving order
func toGeminiParts(parts []Part) []*genai.Part {
	out := make([]*genai.Part, 0, len(parts))
	for _, part := range parts {
		switch part.Kind {
		case PartInline:
			out = append(out, genai.NewPartFromBytes(part.Data, part.MediaType))
		default:
			out = append(out, genai.NewPartFromText(part.Text))
		}
	}
	return out
}

func (f *ProviderFactory) generateWithGemini(ctx context.Context, request *ContentRequest, model string) (*ContentResponse, error) {
	client, err := f.getGeminiClient(ctx)
	if err != nil {
		return nil, err
	}

	temp := request.Temperature
	if temp <= 0 {
		temp = f.geminiConfig.Temperature
	}

	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(temp),
	}
	if request.SystemInstruction != "" {
		config.SystemInstruction = genai.NewContentFromText(request.SystemInstruction, genai.RoleUser)
	}
	if request.MaxTokens > 0 {
		config.MaxOutputTokens = int32(request.MaxTokens)
	}

	// With a schema Gemini enforces JSON output matching it
	if len(request.OutputSchema) > 0 {
		genaiSchema, err := convertToGenaiSchema(request.OutputSchema)
		if err != nil {
			return nil, fmt.Errorf("failed to convert output schema: %w", err)
		}
		config.ResponseMIMEType = "application/json"
		config.ResponseSchema = genaiSchema
	}

	contents := []*genai.Content{
		genai.NewContentFromParts(toGeminiParts(request.Parts), genai.RoleUser),
	}

	ctx, cancel := withTimeout(ctx, f.geminiConfig.Timeout)
	defer cancel()

	start := time.Now()
	var resp *genai.GenerateContentResponse
	err = NewRetryConfig(f.llmConfig.MaxRetries).do(ctx, f.logger, ProviderGemini, func() error {
		if err := wait(ctx, f.geminiLimiter); err != nil {
			return err
		}
		var callErr error
		resp, callErr = client.Models.GenerateContent(ctx, model, contents, config)
		return callErr
	})
	if err != nil {
		return nil, fmt.Errorf("Gemini API call failed: %w", err)
	}

	if resp == nil || len(resp.Candidates) == 0 {
		return nil, fmt.Errorf("gemini: %w", ErrEmptyResponse)
	}
	text := resp.Text()
	if text == "" {
		return nil, fmt.Errorf("gemini: %w", ErrEmptyResponse)
	}

	f.logger.Info().
		Str("model", model).
		Int("parts", len(request.Parts)).
		Int("response_chars", len(text)).
		Dur("elapsed", elapsed(start)).
		Msg("Gemini content generated")

	return &ContentResponse{
		Text:     text,
		Provider: ProviderGemini,
		Model:    model,
	}, nil
}

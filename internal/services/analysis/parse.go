package analysis

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/ternarybob/marketlens/internal/models"
)

var (
	compiledMu      sync.Mutex
	compiledSchemas = map[models.AnalysisVariant]*jsonschema.Schema{}
	validate        = validator.New()
)

func compiledSchema(variant models.AnalysisVariant) (*jsonschema.Schema, error) {
	compiledMu.Lock()
	defer compiledMu.Unlock()

	if schema, ok := compiledSchemas[variant]; ok {
		return schema, nil
	}

	b, err := json.Marshal(validationSchema(variant))
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	url := string(variant) + ".json"
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(url, bytes.NewReader(b)); err != nil {
		return nil, fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}

	compiledSchemas[variant] = schema
	return schema, nil
}

// stripCodeFence removes a surrounding ```json fence some models add
func stripCodeFence(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```")
	if nl := strings.IndexByte(text, '\n'); nl >= 0 {
		text = text[nl+1:]
	}
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	return strings.TrimSpace(text)
}

// ParseReply validates a reply document and decodes it into a result.
// Empty text, invalid JSON and schema violations are ErrMalformedReply;
// a malformed reply is never turned into an empty result.
func ParseReply(text string, variant models.AnalysisVariant) (*models.AnalysisResult, error) {
	body := stripCodeFence(text)
	if body == "" {
		return nil, fmt.Errorf("%w: empty reply", ErrMalformedReply)
	}

	var doc interface{}
	if err := json.Unmarshal([]byte(body), &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedReply, err)
	}

	schema, err := compiledSchema(variant)
	if err != nil {
		return nil, err
	}
	if err := schema.Validate(doc); err != nil {
		return nil, fmt.Errorf("%w: reply does not match schema: %v", ErrMalformedReply, err)
	}

	var result models.AnalysisResult
	if err := json.Unmarshal([]byte(body), &result); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedReply, err)
	}
	if err := validate.Struct(&result); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedReply, err)
	}

	result.Normalize(variant)
	return &result, nil
}

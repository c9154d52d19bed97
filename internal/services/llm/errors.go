package llm

import "errors"

var (
	// ErrMissingAPIKey is returned before any network call when no API key resolves
	ErrMissingAPIKey = errors.New("provider API key not configured")
	// ErrEmptyResponse is returned when the provider answered with no text
	ErrEmptyResponse = errors.New("empty response from provider")
)

package analysis

import "errors"

var (
	// ErrNothingSelected is returned when an analysis is requested with no files
	ErrNothingSelected = errors.New("no files selected for analysis")
	// ErrNoCustomersSelected is returned by the customer variant without customers
	ErrNoCustomersSelected = errors.New("no customers selected for strategy matching")
	// ErrCredentialsNotConfigured is returned before any network call when no API key is available
	ErrCredentialsNotConfigured = errors.New("analysis credentials not configured")
	// ErrAnalysisFailed wraps provider and network failures
	ErrAnalysisFailed = errors.New("analysis request failed")
	// ErrMalformedReply is returned when the reply is empty, not JSON, or violates the schema
	ErrMalformedReply = errors.New("malformed analysis reply")
	// ErrAnalysisInProgress is returned when a session already has a run outstanding
	ErrAnalysisInProgress = errors.New("analysis already in progress")
)

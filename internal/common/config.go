package common

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/ternarybob/marketlens/internal/interfaces"
)

// ErrAPIKeyNotFound is returned by ResolveAPIKey when no source holds the key
var ErrAPIKeyNotFound = errors.New("api key not configured")

// Config represents the application configuration
type Config struct {
	Server   ServerConfig   `toml:"server"`
	Storage  StorageConfig  `toml:"storage"`
	Logging  LoggingConfig  `toml:"logging"`
	Ingest   IngestConfig   `toml:"ingest"`
	Gemini   GeminiConfig   `toml:"gemini"`
	Claude   ClaudeConfig   `toml:"claude"`
	LLM      LLMConfig      `toml:"llm"`
	Analysis AnalysisConfig `toml:"analysis"`
	Export   ExportConfig   `toml:"export"`
}

type ServerConfig struct {
	Port int    `toml:"port"`
	Host string `toml:"host"`
}

type StorageConfig struct {
	Badger BadgerConfig `toml:"badger"`
}

// BadgerConfig represents BadgerDB-specific configuration
type BadgerConfig struct {
	Path           string `toml:"path"`             // Database directory path
	ResetOnStartup bool   `toml:"reset_on_startup"` // Delete database on startup
}

type LoggingConfig struct {
	Level  string   `toml:"level"`  // "debug", "info", "warn", "error"
	Output []string `toml:"output"` // "stdout", "file"
}

// IngestConfig controls file upload handling
type IngestConfig struct {
	MaxFileSize int64 `toml:"max_file_size"` // Bytes; 0 disables the limit
	Concurrency int   `toml:"concurrency"`   // Parallel file reads per batch
}

// GeminiConfig contains Google Gemini API configuration
type GeminiConfig struct {
	APIKey      string  `toml:"api_key"`
	Model       string  `toml:"model"`       // default: "gemini-3-pro-preview"
	Timeout     string  `toml:"timeout"`     // Empty means no deadline beyond the caller's context
	RateLimit   string  `toml:"rate_limit"`  // Minimum spacing between requests, empty disables
	Temperature float32 `toml:"temperature"` // default: 0.4
}

// ClaudeConfig contains Anthropic Claude API configuration
type ClaudeConfig struct {
	APIKey      string  `toml:"api_key"`
	Model       string  `toml:"model"`
	MaxTokens   int     `toml:"max_tokens"`
	Timeout     string  `toml:"timeout"`
	RateLimit   string  `toml:"rate_limit"`
	Temperature float32 `toml:"temperature"`
}

// LLMProvider represents the AI provider type
type LLMProvider string

const (
	LLMProviderGemini LLMProvider = "gemini"
	LLMProviderClaude LLMProvider = "claude"
)

// LLMConfig contains settings shared by all providers
type LLMConfig struct {
	DefaultProvider LLMProvider `toml:"default_provider"`
	MaxRetries      int         `toml:"max_retries"` // 0 = single attempt
}

// AnalysisConfig controls prompt construction
type AnalysisConfig struct {
	Language       string `toml:"language"`        // Output language named in the instructions
	DefaultVariant string `toml:"default_variant"` // market, energy or customer
}

// ExportConfig controls report exports
type ExportConfig struct {
	ChromePath      string `toml:"chrome_path"`      // Optional headless Chrome binary for snapshots
	SnapshotWidth   int    `toml:"snapshot_width"`   // Viewport width in pixels
	SnapshotTimeout string `toml:"snapshot_timeout"` // e.g. "30s"
	FontPath        string `toml:"font_path"`        // Optional UTF-8 TrueType font for PDF text (needed for CJK)
}

// NewDefaultConfig creates a configuration with default values
func NewDefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port: 8080,
			Host: "localhost",
		},
		Storage: StorageConfig{
			Badger: BadgerConfig{
				Path: "./data",
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Output: []string{"stdout", "file"},
		},
		Ingest: IngestConfig{
			MaxFileSize: 50 * 1024 * 1024, // 50 MB
			Concurrency: 4,
		},
		Gemini: GeminiConfig{
			Model:       "gemini-3-pro-preview",
			Temperature: 0.4,
		},
		Claude: ClaudeConfig{
			Model:       "claude-sonnet-4-5",
			MaxTokens:   8192,
			Temperature: 0.4,
		},
		LLM: LLMConfig{
			DefaultProvider: LLMProviderGemini,
			MaxRetries:      0,
		},
		Analysis: AnalysisConfig{
			Language:       "Simplified Chinese",
			DefaultVariant: "market",
		},
		Export: ExportConfig{
			SnapshotWidth:   1200,
			SnapshotTimeout: "30s",
		},
	}
}

// LoadFromFiles loads configuration from multiple files with priority: default -> file1 -> file2 -> ... -> env.
// Later files override earlier files. CLI flags are applied afterwards with ApplyFlagOverrides.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// applyEnvOverrides applies MARKETLENS_* environment variable overrides to config
func applyEnvOverrides(config *Config) {
	// Server configuration
	if port := os.Getenv("MARKETLENS_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if host := os.Getenv("MARKETLENS_SERVER_HOST"); host != "" {
		config.Server.Host = host
	}

	// Storage configuration
	if path := os.Getenv("MARKETLENS_STORAGE_BADGER_PATH"); path != "" {
		config.Storage.Badger.Path = path
	}

	// Logging configuration
	if level := os.Getenv("MARKETLENS_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if output := os.Getenv("MARKETLENS_LOG_OUTPUT"); output != "" {
		outputs := []string{}
		for _, o := range strings.Split(output, ",") {
			if trimmed := strings.TrimSpace(o); trimmed != "" {
				outputs = append(outputs, trimmed)
			}
		}
		if len(outputs) > 0 {
			config.Logging.Output = outputs
		}
	}

	// Ingest configuration
	if maxSize := os.Getenv("MARKETLENS_INGEST_MAX_FILE_SIZE"); maxSize != "" {
		if n, err := strconv.ParseInt(maxSize, 10, 64); err == nil {
			config.Ingest.MaxFileSize = n
		}
	}
	if concurrency := os.Getenv("MARKETLENS_INGEST_CONCURRENCY"); concurrency != "" {
		if n, err := strconv.Atoi(concurrency); err == nil && n > 0 {
			config.Ingest.Concurrency = n
		}
	}

	// Gemini configuration
	if model := os.Getenv("MARKETLENS_GEMINI_MODEL"); model != "" {
		config.Gemini.Model = model
	}
	if timeout := os.Getenv("MARKETLENS_GEMINI_TIMEOUT"); timeout != "" {
		config.Gemini.Timeout = timeout
	}
	if rateLimit := os.Getenv("MARKETLENS_GEMINI_RATE_LIMIT"); rateLimit != "" {
		config.Gemini.RateLimit = rateLimit
	}
	if temperature := os.Getenv("MARKETLENS_GEMINI_TEMPERATURE"); temperature != "" {
		if t, err := strconv.ParseFloat(temperature, 32); err == nil {
			config.Gemini.Temperature = float32(t)
		}
	}

	// Claude configuration
	if model := os.Getenv("MARKETLENS_CLAUDE_MODEL"); model != "" {
		config.Claude.Model = model
	}
	if maxTokens := os.Getenv("MARKETLENS_CLAUDE_MAX_TOKENS"); maxTokens != "" {
		if mt, err := strconv.Atoi(maxTokens); err == nil {
			config.Claude.MaxTokens = mt
		}
	}

	// LLM configuration
	if provider := os.Getenv("MARKETLENS_LLM_DEFAULT_PROVIDER"); provider != "" {
		config.LLM.DefaultProvider = LLMProvider(provider)
	}
	if retries := os.Getenv("MARKETLENS_LLM_MAX_RETRIES"); retries != "" {
		if r, err := strconv.Atoi(retries); err == nil && r >= 0 {
			config.LLM.MaxRetries = r
		}
	}

	// Analysis configuration
	if language := os.Getenv("MARKETLENS_ANALYSIS_LANGUAGE"); language != "" {
		config.Analysis.Language = language
	}

	// Export configuration
	if chromePath := os.Getenv("MARKETLENS_EXPORT_CHROME_PATH"); chromePath != "" {
		config.Export.ChromePath = chromePath
	}
	if fontPath := os.Getenv("MARKETLENS_EXPORT_FONT_PATH"); fontPath != "" {
		config.Export.FontPath = fontPath
	}
}

// ApplyFlagOverrides applies command-line flag overrides to config
func ApplyFlagOverrides(config *Config, port int, host string) {
	if port > 0 {
		config.Server.Port = port
	}
	if host != "" {
		config.Server.Host = host
	}
}

// apiKeyEnv maps KV store key names to the environment variables checked first, in order.
var apiKeyEnv = map[string][]string{
	"gemini_api_key": {"MARKETLENS_GEMINI_API_KEY", "GEMINI_API_KEY", "API_KEY"},
	"claude_api_key": {"MARKETLENS_CLAUDE_API_KEY", "ANTHROPIC_API_KEY"},
}

// ResolveAPIKey resolves an API key by name.
// Resolution order: environment variables → KV store → config fallback → ErrAPIKeyNotFound
func ResolveAPIKey(ctx context.Context, kvStorage interfaces.KeyValueStorage, name string, configFallback string) (string, error) {
	for _, envVarName := range apiKeyEnv[name] {
		if envValue := strings.TrimSpace(os.Getenv(envVarName)); envValue != "" {
			return envValue, nil
		}
	}

	if kvStorage != nil {
		apiKey, err := kvStorage.Get(ctx, name)
		if err == nil && apiKey != "" {
			return apiKey, nil
		}
	}

	if configFallback != "" {
		return configFallback, nil
	}

	return "", fmt.Errorf("%s: %w", name, ErrAPIKeyNotFound)
}

// ParseOptionalDuration parses a duration string, returning 0 for empty or invalid input
func ParseOptionalDuration(s string) time.Duration {
	if strings.TrimSpace(s) == "" {
		return 0
	}
	d, err := time.ParseDuration(s)
	if err != nil || d < 0 {
		return 0
	}
	return d
}

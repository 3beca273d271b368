package config

import (
	"strconv"
	"strings"
	"time"
)

// Environment variables read by the slug generator.
const (
	EnvAPIKey      = "OPENAI_API_KEY"
	EnvBaseURL     = "OPENAI_BASE_URL"
	EnvModel       = "SPEC_OPENAI_MODEL"
	EnvTimeout     = "SPEC_LLM_TIMEOUT_MS"
	EnvMaxAttempts = "SPEC_LLM_MAX_ATTEMPTS"
	EnvProvider    = "SPEC_LLM_PROVIDER"
)

// Generator defaults.
const (
	DefaultModel       = "gpt-5-mini"
	DefaultTimeout     = 8000 * time.Millisecond
	DefaultMaxAttempts = 3

	ProviderOpenAI    = "openai"
	ProviderHeuristic = "heuristic"
)

// GeneratorSettings configures the slug generator backend and its retry budget.
type GeneratorSettings struct {
	// Provider selects the backend: "openai" (default) or "heuristic".
	Provider string

	// APIKey is the hosted model credential. Required for the openai provider.
	APIKey string

	// BaseURL overrides the API endpoint (optional).
	BaseURL string

	// Model is the hosted model identifier.
	Model string

	// Timeout bounds a single backend call.
	Timeout time.Duration

	// MaxAttempts is the inner retry budget. Zero or negative is honored literally.
	MaxAttempts int
}

// LoadGeneratorSettings reads generator settings through getenv (usually os.Getenv).
// A non-positive or non-numeric timeout falls back to the default; a non-numeric
// attempt count falls back to the default.
func LoadGeneratorSettings(getenv func(string) string) GeneratorSettings {
	s := GeneratorSettings{
		Provider:    strings.ToLower(strings.TrimSpace(getenv(EnvProvider))),
		APIKey:      strings.TrimSpace(getenv(EnvAPIKey)),
		BaseURL:     strings.TrimSpace(getenv(EnvBaseURL)),
		Model:       strings.TrimSpace(getenv(EnvModel)),
		Timeout:     DefaultTimeout,
		MaxAttempts: DefaultMaxAttempts,
	}

	if s.Provider == "" {
		s.Provider = ProviderOpenAI
	}
	if s.Model == "" {
		s.Model = DefaultModel
	}

	if ms, err := strconv.Atoi(strings.TrimSpace(getenv(EnvTimeout))); err == nil && ms > 0 {
		s.Timeout = time.Duration(ms) * time.Millisecond
	}
	if n, err := strconv.Atoi(strings.TrimSpace(getenv(EnvMaxAttempts))); err == nil {
		s.MaxAttempts = n
	}

	return s
}

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidConfig is returned by Config.Validate for unusable settings.
var ErrInvalidConfig = errors.New("invalid configuration")

// HTTPConfig holds shared HTTP settings used by every engine adapter.
type HTTPConfig struct {
	// Timeout is the client-level HTTP request timeout. The orchestrator's
	// per-engine timeout normally fires first.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	// UserAgent is the User-Agent header sent to API backends.
	UserAgent string `json:"user_agent" yaml:"user_agent" mapstructure:"user_agent"`

	// MaxRetries bounds retries on HTTP 429/503 responses.
	MaxRetries int `json:"max_retries" yaml:"max_retries" mapstructure:"max_retries"`
}

// SearchConfig holds settings for engine fan-out and fusion.
type SearchConfig struct {
	HTTPConfig `yaml:",inline" mapstructure:",squash"`

	// Engines lists the enabled engines in registration order
	// (searxng, duckduckgo, qwant, wikipedia, wikidata, brave, arxiv, openalex).
	Engines []string `json:"engines" yaml:"engines" mapstructure:"engines"`

	// EngineTimeout bounds each engine call in batch mode (default 15s).
	EngineTimeout time.Duration `json:"engine_timeout" yaml:"engine_timeout" mapstructure:"engine_timeout"`

	// StreamTimeout bounds each engine call in streaming mode (default 8s).
	StreamTimeout time.Duration `json:"stream_timeout" yaml:"stream_timeout" mapstructure:"stream_timeout"`

	// MaxResultsPerEngine is passed to every engine (default 10).
	MaxResultsPerEngine int `json:"max_results_per_engine" yaml:"max_results_per_engine" mapstructure:"max_results_per_engine"`

	// DefaultResults is the number of fused results returned when a request
	// does not ask for a specific count (default 15).
	DefaultResults int `json:"default_results" yaml:"default_results" mapstructure:"default_results"`

	// MaxTotalResults caps the fused result count of any request (default 50).
	MaxTotalResults int `json:"max_total_results" yaml:"max_total_results" mapstructure:"max_total_results"`

	// SearXNGInstances is the pool of metasearch hosts drawn from at random.
	SearXNGInstances []string `json:"searxng_instances" yaml:"searxng_instances" mapstructure:"searxng_instances"`

	// SearXNGAttempts is how many instances are tried per search (default 3).
	SearXNGAttempts int `json:"searxng_attempts" yaml:"searxng_attempts" mapstructure:"searxng_attempts"`

	// BraveAPIKey enables the Brave engine when set.
	BraveAPIKey string `json:"brave_api_key,omitempty" yaml:"brave_api_key,omitempty" mapstructure:"brave_api_key"`

	// OpenAlexEmail is sent to OpenAlex for polite pool access.
	OpenAlexEmail string `json:"openalex_email,omitempty" yaml:"openalex_email,omitempty" mapstructure:"openalex_email"`
}

// LLMConfig holds settings for the optional Ollama-backed planner and
// decision engine.
type LLMConfig struct {
	// Enabled turns the LLM collaborators on. When the backend is unreachable
	// the deterministic paths are used regardless.
	Enabled bool `json:"enabled" yaml:"enabled" mapstructure:"enabled"`

	// Host is the Ollama server address.
	Host string `json:"host" yaml:"host" mapstructure:"host"`

	// Model is the Ollama model name.
	Model string `json:"model" yaml:"model" mapstructure:"model"`

	// ProbeTimeout bounds the one-off liveness probe (default 2s).
	ProbeTimeout time.Duration `json:"probe_timeout" yaml:"probe_timeout" mapstructure:"probe_timeout"`

	// PlanTimeout bounds one sub-query generation call (default 5s).
	PlanTimeout time.Duration `json:"plan_timeout" yaml:"plan_timeout" mapstructure:"plan_timeout"`

	// AdviceTimeout bounds one decision-engine call (default 20s).
	AdviceTimeout time.Duration `json:"advice_timeout" yaml:"advice_timeout" mapstructure:"advice_timeout"`

	// Advice attaches decision-engine output to responses.
	Advice bool `json:"advice" yaml:"advice" mapstructure:"advice"`
}

// ServerConfig holds settings for the HTTP/WebSocket surface.
type ServerConfig struct {
	Port int `json:"port" yaml:"port" mapstructure:"port"`

	// AllowedOrigins lists the origins accepted for WebSocket upgrades.
	// Empty accepts every origin.
	AllowedOrigins []string `json:"allowed_origins" yaml:"allowed_origins" mapstructure:"allowed_origins"`

	// ShutdownTimeout bounds graceful shutdown (default 10s).
	ShutdownTimeout time.Duration `json:"shutdown_timeout" yaml:"shutdown_timeout" mapstructure:"shutdown_timeout"`
}

// LogConfig selects the logger level and encoding.
type LogConfig struct {
	Level    string `json:"level" yaml:"level" mapstructure:"level"`
	Encoding string `json:"encoding" yaml:"encoding" mapstructure:"encoding"`
}

// Config groups every setting of the service.
type Config struct {
	Search SearchConfig `json:"search" yaml:"search" mapstructure:"search"`
	LLM    LLMConfig    `json:"llm" yaml:"llm" mapstructure:"llm"`
	Server ServerConfig `json:"server" yaml:"server" mapstructure:"server"`
	Log    LogConfig    `json:"log" yaml:"log" mapstructure:"log"`
}

// DefaultSearXNGInstances is the public metasearch pool used when none is
// configured.
var DefaultSearXNGInstances = []string{
	"https://searx.work",
	"https://search.ononoki.org",
	"https://searx.be",
	"https://searx.aicamp.cn",
	"https://searx.thegpm.org",
	"https://search.mdosch.de",
	"https://opensearch.vnet.solutions",
}

// MinSearXNGPool is the smallest accepted metasearch instance pool.
const MinSearXNGPool = 5

// DefaultConfig returns the stock configuration.
func DefaultConfig() Config {
	instances := make([]string, len(DefaultSearXNGInstances))
	copy(instances, DefaultSearXNGInstances)

	return Config{
		Search: SearchConfig{
			HTTPConfig: HTTPConfig{
				Timeout:    20 * time.Second,
				UserAgent:  "nexus-search/1.0 (+https://github.com/pdiddy/nexus-search)",
				MaxRetries: 2,
			},
			Engines:             []string{"searxng", "duckduckgo", "qwant", "wikipedia", "wikidata"},
			EngineTimeout:       15 * time.Second,
			StreamTimeout:       8 * time.Second,
			MaxResultsPerEngine: 10,
			DefaultResults:      15,
			MaxTotalResults:     50,
			SearXNGInstances:    instances,
			SearXNGAttempts:     3,
		},
		LLM: LLMConfig{
			Enabled:       true,
			Host:          "http://localhost:11434",
			Model:         "llama3",
			ProbeTimeout:  2 * time.Second,
			PlanTimeout:   5 * time.Second,
			AdviceTimeout: 20 * time.Second,
		},
		Server: ServerConfig{
			Port:            8000,
			ShutdownTimeout: 10 * time.Second,
		},
		Log: LogConfig{
			Level:    "info",
			Encoding: "console",
		},
	}
}

// Validate reports the first unusable setting, wrapped in ErrInvalidConfig.
func (c Config) Validate() error {
	s := c.Search
	switch {
	case s.EngineTimeout <= 0:
		return fmt.Errorf("%w: search.engine_timeout must be positive", ErrInvalidConfig)
	case s.MaxResultsPerEngine <= 0:
		return fmt.Errorf("%w: search.max_results_per_engine must be positive", ErrInvalidConfig)
	case s.MaxTotalResults <= 0:
		return fmt.Errorf("%w: search.max_total_results must be positive", ErrInvalidConfig)
	case len(s.SearXNGInstances) < MinSearXNGPool:
		return fmt.Errorf("%w: search.searxng_instances needs at least %d hosts, got %d",
			ErrInvalidConfig, MinSearXNGPool, len(s.SearXNGInstances))
	case s.SearXNGAttempts < 1:
		return fmt.Errorf("%w: search.searxng_attempts must be at least 1", ErrInvalidConfig)
	case len(s.Engines) == 0:
		return fmt.Errorf("%w: search.engines is empty", ErrInvalidConfig)
	}
	if c.LLM.Enabled && c.LLM.Host == "" {
		return fmt.Errorf("%w: llm.host is required when llm.enabled is set", ErrInvalidConfig)
	}
	return nil
}

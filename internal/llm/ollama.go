// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package llm wraps a local Ollama server as an advisory text generator.
// Callers treat it as optional: GenerateJSON never fails, and Ping lets a
// caller decide once whether to use the LLM at all.
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"go.uber.org/zap"

	"github.com/pdiddy/nexus-search/pkg/types"
)

// Token budgets for JSON answers. Quick calls classify, full calls critique.
const (
	quickMaxTokens = 100
	fullMaxTokens  = 200
	temperature    = 0.1
)

// jsonSuffix is appended to every JSON prompt.
const jsonSuffix = "\n\nRespond ONLY with valid JSON."

// Completer produces free text for a prompt.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// JSONGenerator produces a parsed JSON object for a prompt. Implementations
// return an empty map on any failure.
type JSONGenerator interface {
	GenerateJSON(ctx context.Context, prompt string, quick bool) map[string]any
}

// Client talks to one Ollama server and model.
type Client struct {
	host   string
	http   *http.Client
	model  llms.Model
	logger *zap.Logger
}

// New returns a client for cfg.Host and cfg.Model. It does not contact the
// server; use Ping for that.
func New(cfg types.LLMConfig, httpClient *http.Client, logger *zap.Logger) (*Client, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("%w: llm host is empty", types.ErrInvalidConfig)
	}
	if u, err := url.Parse(cfg.Host); err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("%w: llm host %q is not an absolute URL", types.ErrInvalidConfig, cfg.Host)
	}
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	model, err := ollama.New(
		ollama.WithServerURL(cfg.Host),
		ollama.WithModel(cfg.Model),
		ollama.WithHTTPClient(httpClient),
	)
	if err != nil {
		return nil, fmt.Errorf("creating ollama client: %w", err)
	}

	return &Client{
		host:   strings.TrimRight(cfg.Host, "/"),
		http:   httpClient,
		model:  model,
		logger: logger,
	}, nil
}

// Ping checks that the server answers GET /api/tags with 200.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.host+"/api/tags", nil)
	if err != nil {
		return fmt.Errorf("creating probe request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("probing %s: %w", c.host, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("probing %s: HTTP %d", c.host, resp.StatusCode)
	}
	return nil
}

// Probe pings the server within timeout and reports whether it is live.
func (c *Client) Probe(ctx context.Context, timeout time.Duration) bool {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	if err := c.Ping(ctx); err != nil {
		c.logger.Info("LLM backend unavailable, using deterministic fallbacks",
			zap.String("host", c.host),
			zap.Error(err))
		return false
	}
	c.logger.Debug("LLM backend available", zap.String("host", c.host))
	return true
}

// Complete returns the model's free-text answer to prompt.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	text, err := llms.GenerateFromSinglePrompt(ctx, c.model, prompt,
		llms.WithTemperature(temperature))
	if err != nil {
		return "", fmt.Errorf("generating completion: %w", err)
	}
	return text, nil
}

// GenerateJSON asks for a JSON object and parses the answer. Transport,
// status, and parse failures are logged and yield an empty map.
func (c *Client) GenerateJSON(ctx context.Context, prompt string, quick bool) map[string]any {
	maxTokens := fullMaxTokens
	if quick {
		maxTokens = quickMaxTokens
	}

	text, err := llms.GenerateFromSinglePrompt(ctx, c.model, prompt+jsonSuffix,
		llms.WithTemperature(temperature),
		llms.WithMaxTokens(maxTokens),
		llms.WithJSONMode())
	if err != nil {
		c.logger.Warn("LLM JSON generation failed", zap.Error(err))
		return map[string]any{}
	}

	obj, err := ParseJSONObject(text)
	if err != nil {
		c.logger.Warn("LLM returned unparseable JSON",
			zap.String("response", text),
			zap.Error(err))
		return map[string]any{}
	}
	return obj
}

// ParseJSONObject decodes a JSON object from model output, tolerating a
// surrounding markdown code fence.
func ParseJSONObject(text string) (map[string]any, error) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)

	var obj map[string]any
	if err := json.Unmarshal([]byte(text), &obj); err != nil {
		return nil, err
	}
	if obj == nil {
		obj = map[string]any{}
	}
	return obj, nil
}

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/pdiddy/nexus-search/internal/httputil"
	"github.com/pdiddy/nexus-search/pkg/types"
)

// defaultSearXNGAttempts is how many pool draws a search makes when the
// engine is not configured otherwise.
const defaultSearXNGAttempts = 3

// errNoInstances is returned when the metasearch pool is empty.
var errNoInstances = errors.New("no SearXNG instances configured")

// SearXNG queries a public SearXNG metasearch instance. Public instances
// come and go, so each search draws hosts at random from a fixed pool and
// stops at the first one that returns results.
type SearXNG struct {
	Client    *http.Client
	HTTP      types.HTTPConfig
	Instances []string
	Attempts  int
	Logger    *zap.Logger

	// Seed supplies the per-search random seed. Nil uses math/rand/v2.
	Seed func() uint64
}

// NewSearXNG returns a SearXNG engine over the configured instance pool.
func NewSearXNG(client *http.Client, cfg types.SearchConfig, logger *zap.Logger) *SearXNG {
	return &SearXNG{
		Client:    client,
		HTTP:      cfg.HTTPConfig,
		Instances: cfg.SearXNGInstances,
		Attempts:  cfg.SearXNGAttempts,
		Logger:    orNop(logger),
	}
}

// Name returns the engine identifier.
func (e *SearXNG) Name() string { return "SearXNG" }

// Kind returns KindMetasearch.
func (e *SearXNG) Kind() Kind { return KindMetasearch }

// Search tries up to Attempts randomly drawn instances.
func (e *SearXNG) Search(ctx context.Context, query string, maxResults int) []types.SearchResult {
	return guarded(ctx, orNop(e.Logger), e.Name(), query, maxResults, e.fetch)
}

// PickInstance returns the host drawn for one attempt of a search. The same
// seed and attempt always select the same host, so the draw is a pure
// function and needs no shared generator.
func PickInstance(pool []string, seed uint64, attempt int) string {
	if len(pool) == 0 {
		return ""
	}
	r := rand.New(rand.NewPCG(seed, uint64(attempt)))
	return pool[r.IntN(len(pool))]
}

func (e *SearXNG) fetch(ctx context.Context, query string, maxResults int) ([]types.SearchResult, error) {
	if len(e.Instances) == 0 {
		return nil, errNoInstances
	}
	attempts := e.Attempts
	if attempts <= 0 {
		attempts = defaultSearXNGAttempts
	}
	seed := rand.Uint64
	if e.Seed != nil {
		seed = e.Seed
	}
	s := seed()
	logger := orNop(e.Logger)

	for attempt := 0; attempt < attempts; attempt++ {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		instance := PickInstance(e.Instances, s, attempt)
		results, err := e.searchInstance(ctx, instance, query, maxResults)
		if err != nil {
			logger.Info("SearXNG instance failed",
				zap.String("instance", instance),
				zap.Int("attempt", attempt+1),
				zap.Error(err))
			continue
		}
		if len(results) > 0 {
			logger.Debug("SearXNG instance answered",
				zap.String("instance", instance),
				zap.Int("results", len(results)))
			return results, nil
		}
	}
	logger.Info("SearXNG instance pool exhausted",
		zap.String("query", query),
		zap.Int("attempts", attempts))
	return nil, nil
}

func (e *SearXNG) searchInstance(ctx context.Context, instance, query string, maxResults int) ([]types.SearchResult, error) {
	params := url.Values{
		"q":      {query},
		"format": {"json"},
		"pageno": {"1"},
	}
	reqURL := strings.TrimRight(instance, "/") + "/search?" + params.Encode()

	var sr searxngResponse
	// Instances are interchangeable; a throttled one is skipped, not retried.
	if err := httputil.GetJSON(ctx, e.Client, reqURL, headers(e.HTTP, nil), httputil.NoRetry, e.Logger, &sr); err != nil {
		return nil, fmt.Errorf("SearXNG %s: %w", instance, err)
	}

	var results []types.SearchResult
	for _, item := range sr.Results {
		if maxResults > 0 && len(results) >= maxResults {
			break
		}
		if item.URL == "" {
			continue
		}
		title := item.Title
		if title == "" {
			title = "No title"
		}
		engine := item.Engine
		if engine == "" {
			engine = "unknown"
		}
		results = append(results, types.SearchResult{
			Title:   title,
			Snippet: item.Content,
			URL:     item.URL,
			Source:  e.Name(),
			Metadata: map[string]any{
				"engine":   engine,
				"category": item.Category,
			},
		})
	}
	return results, nil
}

// SearXNG JSON structures.
type searxngResponse struct {
	Results []searxngResult `json:"results"`
}

type searxngResult struct {
	Title    string `json:"title"`
	Content  string `json:"content"`
	URL      string `json:"url"`
	Engine   string `json:"engine"`
	Category string `json:"category"`
}

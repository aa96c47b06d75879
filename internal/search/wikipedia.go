// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"go.uber.org/zap"

	"github.com/pdiddy/nexus-search/internal/httputil"
	"github.com/pdiddy/nexus-search/pkg/types"
)

// wikipediaAPIURL is the MediaWiki action API. Declared as a var so tests can
// substitute an httptest server.
var wikipediaAPIURL = "https://en.wikipedia.org/w/api.php"

// Wikipedia searches English Wikipedia article titles through the
// opensearch action.
type Wikipedia struct {
	Client *http.Client
	HTTP   types.HTTPConfig
	Logger *zap.Logger
}

// Name returns the engine identifier.
func (e *Wikipedia) Name() string { return "Wikipedia" }

// Kind returns KindEncyclopedia.
func (e *Wikipedia) Kind() Kind { return KindEncyclopedia }

// Search returns matching articles, one result per title.
func (e *Wikipedia) Search(ctx context.Context, query string, maxResults int) []types.SearchResult {
	return guarded(ctx, orNop(e.Logger), e.Name(), query, maxResults, e.fetch)
}

func (e *Wikipedia) fetch(ctx context.Context, query string, maxResults int) ([]types.SearchResult, error) {
	params := url.Values{
		"action":    {"opensearch"},
		"search":    {query},
		"limit":     {strconv.Itoa(maxResults)},
		"namespace": {"0"},
		"format":    {"json"},
	}

	// opensearch answers with a heterogeneous array:
	// [query, [titles], [descriptions], [urls]].
	var raw []json.RawMessage
	if err := httputil.GetJSON(ctx, e.Client, wikipediaAPIURL+"?"+params.Encode(), headers(e.HTTP, nil), e.HTTP.MaxRetries, e.Logger, &raw); err != nil {
		return nil, fmt.Errorf("Wikipedia search: %w", err)
	}
	if len(raw) < 4 {
		return nil, nil
	}

	var titles, descriptions, urls []string
	for i, dst := range []*[]string{&titles, &descriptions, &urls} {
		if err := json.Unmarshal(raw[i+1], dst); err != nil {
			return nil, fmt.Errorf("parsing Wikipedia opensearch field %d: %w", i+1, err)
		}
	}

	var results []types.SearchResult
	for i, title := range titles {
		if i >= len(urls) || urls[i] == "" {
			continue
		}
		snippet := ""
		if i < len(descriptions) {
			snippet = descriptions[i]
		}
		if snippet == "" {
			snippet = "Wikipedia article for " + title
		}
		results = append(results, types.SearchResult{
			Title:    title,
			Snippet:  snippet,
			URL:      urls[i],
			Source:   e.Name(),
			Metadata: map[string]any{"type": "article"},
		})
	}
	return results, nil
}

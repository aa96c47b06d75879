// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"go.uber.org/zap"

	"github.com/pdiddy/nexus-search/internal/httputil"
	"github.com/pdiddy/nexus-search/pkg/types"
)

// braveBaseURL is the Brave Search web endpoint. Declared as a var so tests
// can substitute an httptest server.
var braveBaseURL = "https://api.search.brave.com/res/v1/web/search"

// braveMaxCount is the largest page size the Brave API accepts.
const braveMaxCount = 20

// Brave queries the Brave Search API. Without an API key the engine is inert
// and returns no results.
type Brave struct {
	Client *http.Client
	HTTP   types.HTTPConfig
	APIKey string
	Logger *zap.Logger
}

// Name returns the engine identifier.
func (e *Brave) Name() string { return "Brave" }

// Kind returns KindWebIndex.
func (e *Brave) Kind() Kind { return KindWebIndex }

// Search queries Brave for up to maxResults web results.
func (e *Brave) Search(ctx context.Context, query string, maxResults int) []types.SearchResult {
	return guarded(ctx, orNop(e.Logger), e.Name(), query, maxResults, e.fetch)
}

func (e *Brave) fetch(ctx context.Context, query string, maxResults int) ([]types.SearchResult, error) {
	if e.APIKey == "" {
		orNop(e.Logger).Debug("Brave API key not configured, skipping")
		return nil, nil
	}

	count := maxResults
	if count <= 0 || count > braveMaxCount {
		count = braveMaxCount
	}
	params := url.Values{
		"q":     {query},
		"count": {strconv.Itoa(count)},
	}
	hdr := headers(e.HTTP, map[string]string{"X-Subscription-Token": e.APIKey})

	var br braveResponse
	if err := httputil.GetJSON(ctx, e.Client, braveBaseURL+"?"+params.Encode(), hdr, e.HTTP.MaxRetries, e.Logger, &br); err != nil {
		return nil, fmt.Errorf("Brave search: %w", err)
	}

	var results []types.SearchResult
	for _, item := range br.Web.Results {
		if item.URL == "" {
			continue
		}
		title := item.Title
		if title == "" {
			title = "No title"
		}
		results = append(results, types.SearchResult{
			Title:   title,
			Snippet: item.Description,
			URL:     item.URL,
			Source:  e.Name(),
			Metadata: map[string]any{
				"age":      item.Age,
				"language": item.Language,
			},
		})
	}
	return results, nil
}

// Brave JSON structures.
type braveResponse struct {
	Web struct {
		Results []braveResult `json:"results"`
	} `json:"web"`
}

type braveResult struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	URL         string `json:"url"`
	Age         string `json:"age"`
	Language    string `json:"language"`
}

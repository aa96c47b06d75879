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

// qwantBaseURL is the Qwant web search API. Declared as a var so tests can
// substitute an httptest server.
var qwantBaseURL = "https://api.qwant.com/v3/search/web"

// Qwant queries the keyless Qwant web search API.
type Qwant struct {
	Client *http.Client
	HTTP   types.HTTPConfig
	Logger *zap.Logger
}

// Name returns the engine identifier.
func (e *Qwant) Name() string { return "Qwant" }

// Kind returns KindOpenAPIIndex.
func (e *Qwant) Kind() Kind { return KindOpenAPIIndex }

// Search queries Qwant for up to maxResults web results.
func (e *Qwant) Search(ctx context.Context, query string, maxResults int) []types.SearchResult {
	return guarded(ctx, orNop(e.Logger), e.Name(), query, maxResults, e.fetch)
}

func (e *Qwant) fetch(ctx context.Context, query string, maxResults int) ([]types.SearchResult, error) {
	params := url.Values{
		"q":          {query},
		"count":      {strconv.Itoa(maxResults)},
		"t":          {"web"},
		"locale":     {"en_US"},
		"safesearch": {"1"},
	}
	// Qwant rejects requests that do not look like they come from its own site.
	hdr := map[string]string{
		"User-Agent":      browserUserAgent,
		"Accept-Language": "en-US,en;q=0.9",
		"Referer":         "https://www.qwant.com/",
		"Origin":          "https://www.qwant.com",
	}

	var qr qwantResponse
	if err := httputil.GetJSON(ctx, e.Client, qwantBaseURL+"?"+params.Encode(), hdr, e.HTTP.MaxRetries, e.Logger, &qr); err != nil {
		return nil, fmt.Errorf("Qwant search: %w", err)
	}

	var results []types.SearchResult
	for _, item := range qr.Data.Result.Items {
		if item.URL == "" {
			continue
		}
		title := item.Title
		if title == "" {
			title = "No title"
		}
		results = append(results, types.SearchResult{
			Title:   title,
			Snippet: item.Desc,
			URL:     item.URL,
			Source:  e.Name(),
			Metadata: map[string]any{
				"source":  item.Source,
				"favicon": item.Favicon,
			},
		})
	}
	return results, nil
}

// Qwant JSON structures.
type qwantResponse struct {
	Data struct {
		Result struct {
			Items []qwantItem `json:"items"`
		} `json:"result"`
	} `json:"data"`
}

type qwantItem struct {
	Title   string `json:"title"`
	Desc    string `json:"desc"`
	URL     string `json:"url"`
	Source  string `json:"source"`
	Favicon string `json:"favicon"`
}

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/pdiddy/nexus-search/internal/httputil"
	"github.com/pdiddy/nexus-search/pkg/types"
)

// arxivAPIBase is the arXiv search endpoint. Declared as a var so tests
// can substitute an httptest server.
var arxivAPIBase = "https://export.arxiv.org/api/query"

// arxivAbsBase prefixes canonical abstract page URLs.
const arxivAbsBase = "https://arxiv.org/abs/"

// Arxiv searches preprint metadata on arXiv. It is off by default; list
// "arxiv" in search.engines to enable it.
type Arxiv struct {
	Client *http.Client
	HTTP   types.HTTPConfig
	Logger *zap.Logger
}

// Name returns the engine identifier.
func (e *Arxiv) Name() string { return "arXiv" }

// Kind returns KindOpenAPIIndex.
func (e *Arxiv) Kind() Kind { return KindOpenAPIIndex }

// Search returns matching preprints, most relevant first.
func (e *Arxiv) Search(ctx context.Context, query string, maxResults int) []types.SearchResult {
	return guarded(ctx, orNop(e.Logger), e.Name(), query, maxResults, e.fetch)
}

func (e *Arxiv) fetch(ctx context.Context, query string, maxResults int) ([]types.SearchResult, error) {
	terms := strings.Fields(query)
	if len(terms) == 0 {
		return nil, nil
	}
	params := url.Values{
		"search_query": {"all:" + strings.Join(terms, " ")},
		"start":        {"0"},
		"max_results":  {strconv.Itoa(maxResults)},
		"sortBy":       {"relevance"},
		"sortOrder":    {"descending"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, arxivAPIBase+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	for k, v := range headers(e.HTTP, nil) {
		req.Header.Set(k, v)
	}

	resp, err := httputil.DoWithRetry(ctx, e.Client, req, e.HTTP.MaxRetries, e.Logger)
	if err != nil {
		return nil, fmt.Errorf("arXiv API request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, &httputil.StatusError{URL: req.URL.Host, StatusCode: resp.StatusCode}
	}

	var feed arxivFeed
	if err := xml.NewDecoder(resp.Body).Decode(&feed); err != nil {
		return nil, fmt.Errorf("parsing arXiv response: %w", err)
	}

	var results []types.SearchResult
	for _, entry := range feed.Entries {
		id := extractArxivID(entry.ID)
		if id == "" {
			continue
		}
		authors := make([]string, 0, len(entry.Authors))
		for _, a := range entry.Authors {
			authors = append(authors, strings.TrimSpace(a.Name))
		}
		results = append(results, types.SearchResult{
			Title:     collapseSpace(entry.Title),
			Snippet:   collapseSpace(entry.Summary),
			URL:       arxivAbsBase + id,
			Source:    e.Name(),
			Timestamp: entry.Published,
			Metadata: map[string]any{
				"arxiv_id": id,
				"authors":  authors,
				"type":     "preprint",
			},
		})
	}
	return results, nil
}

// arXiv Atom feed XML structures.
type arxivFeed struct {
	Entries []arxivEntry `xml:"entry"`
}

type arxivEntry struct {
	ID        string        `xml:"id"`
	Title     string        `xml:"title"`
	Summary   string        `xml:"summary"`
	Published string        `xml:"published"`
	Authors   []arxivAuthor `xml:"author"`
}

type arxivAuthor struct {
	Name string `xml:"name"`
}

// extractArxivID pulls the arXiv ID from the entry's <id> URL
// (e.g. "http://arxiv.org/abs/2301.07041v1" becomes "2301.07041").
func extractArxivID(idURL string) string {
	const prefix = "/abs/"
	idx := strings.Index(idURL, prefix)
	if idx < 0 {
		return ""
	}
	id := idURL[idx+len(prefix):]

	// Strip version suffix (e.g. "v1", "v2").
	if vIdx := strings.LastIndex(id, "v"); vIdx > 0 {
		if _, err := strconv.Atoi(id[vIdx+1:]); err == nil {
			id = id[:vIdx]
		}
	}
	return id
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

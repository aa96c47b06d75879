// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/net/html"

	"github.com/pdiddy/nexus-search/internal/httputil"
	"github.com/pdiddy/nexus-search/pkg/types"
)

// duckduckgoHTMLBase is the DuckDuckGo HTML endpoint. Declared as a var so
// tests can substitute an httptest server.
var duckduckgoHTMLBase = "https://html.duckduckgo.com/html/"

// maxHTMLBody bounds how much of a results page is read.
const maxHTMLBody = 1 << 20

// browserUserAgent is sent to endpoints that reject non-browser clients.
const browserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/115.0.0.0 Safari/537.36"

// DuckDuckGo scrapes the DuckDuckGo HTML results page. It needs no API key.
type DuckDuckGo struct {
	Client *http.Client
	HTTP   types.HTTPConfig
	Logger *zap.Logger
}

// Name returns the engine identifier.
func (e *DuckDuckGo) Name() string { return "DuckDuckGo" }

// Kind returns KindWebIndex.
func (e *DuckDuckGo) Kind() Kind { return KindWebIndex }

// Search fetches and parses one page of DuckDuckGo results.
func (e *DuckDuckGo) Search(ctx context.Context, query string, maxResults int) []types.SearchResult {
	return guarded(ctx, orNop(e.Logger), e.Name(), query, maxResults, e.fetch)
}

func (e *DuckDuckGo) fetch(ctx context.Context, query string, maxResults int) ([]types.SearchResult, error) {
	reqURL := duckduckgoHTMLBase + "?" + url.Values{"q": {query}}.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", browserUserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")

	resp, err := httputil.DoWithRetry(ctx, e.Client, req, e.HTTP.MaxRetries, e.Logger)
	if err != nil {
		return nil, fmt.Errorf("DuckDuckGo request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("DuckDuckGo returned HTTP %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxHTMLBody))
	if err != nil {
		return nil, fmt.Errorf("reading DuckDuckGo response: %w", err)
	}

	return parseDuckDuckGoHTML(string(body), e.Name(), maxResults)
}

// parseDuckDuckGoHTML extracts results from the result divs of a
// DuckDuckGo HTML page.
func parseDuckDuckGoHTML(page, source string, maxResults int) ([]types.SearchResult, error) {
	doc, err := html.Parse(strings.NewReader(page))
	if err != nil {
		return nil, fmt.Errorf("parsing DuckDuckGo HTML: %w", err)
	}

	var results []types.SearchResult
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if maxResults > 0 && len(results) >= maxResults {
			return
		}
		if n.Type == html.ElementNode && n.Data == "div" {
			class := attr(n, "class")
			if hasClass(class, "result") && !hasClass(class, "result--ad") {
				if r, ok := extractDuckDuckGoResult(n, source); ok {
					results = append(results, r)
				}
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return results, nil
}

func extractDuckDuckGoResult(n *html.Node, source string) (types.SearchResult, bool) {
	r := types.SearchResult{Source: source}

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			class := attr(n, "class")
			switch {
			case n.Data == "a" && hasClass(class, "result__a"):
				r.URL = unwrapDuckDuckGoRedirect(attr(n, "href"))
				r.Title = textContent(n)
			case hasClass(class, "result__snippet"):
				r.Snippet = textContent(n)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)

	if r.URL == "" || r.Title == "" {
		return r, false
	}
	return r, true
}

// unwrapDuckDuckGoRedirect returns the target of a "/l/?uddg=" redirect
// link, or href unchanged.
func unwrapDuckDuckGoRedirect(href string) string {
	if !strings.Contains(href, "duckduckgo.com/l/?") {
		return href
	}
	if strings.HasPrefix(href, "//") {
		href = "https:" + href
	}
	u, err := url.Parse(href)
	if err != nil {
		return href
	}
	if target := u.Query().Get("uddg"); target != "" {
		return target
	}
	return href
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func hasClass(classAttr, class string) bool {
	for _, c := range strings.Fields(classAttr) {
		if c == class {
			return true
		}
	}
	return false
}

// textContent returns the whitespace-collapsed text under n.
func textContent(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.Join(strings.Fields(b.String()), " ")
}

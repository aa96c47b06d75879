// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/pdiddy/nexus-search/internal/httputil"
	"github.com/pdiddy/nexus-search/pkg/types"
)

// openAlexSearchBase is the OpenAlex Works search endpoint. Declared as a
// var so tests can substitute an httptest server.
var openAlexSearchBase = "https://api.openalex.org/works"

// openAlexMaxPerPage is the largest page OpenAlex serves.
const openAlexMaxPerPage = 200

// OpenAlex searches the OpenAlex scholarly works graph. It is off by
// default; list "openalex" in search.engines to enable it.
type OpenAlex struct {
	Client *http.Client
	HTTP   types.HTTPConfig

	// Email is sent as the mailto parameter for polite pool access.
	Email string

	Logger *zap.Logger
}

// Name returns the engine identifier.
func (e *OpenAlex) Name() string { return "OpenAlex" }

// Kind returns KindKnowledgeBase.
func (e *OpenAlex) Kind() Kind { return KindKnowledgeBase }

// Search returns matching works, most relevant first.
func (e *OpenAlex) Search(ctx context.Context, query string, maxResults int) []types.SearchResult {
	return guarded(ctx, orNop(e.Logger), e.Name(), query, maxResults, e.fetch)
}

func (e *OpenAlex) fetch(ctx context.Context, query string, maxResults int) ([]types.SearchResult, error) {
	params := url.Values{
		"search":   {query},
		"per_page": {strconv.Itoa(min(maxResults, openAlexMaxPerPage))},
		"page":     {"1"},
	}
	if e.Email != "" {
		params.Set("mailto", e.Email)
	}

	var oar openAlexResponse
	if err := httputil.GetJSON(ctx, e.Client, openAlexSearchBase+"?"+params.Encode(), headers(e.HTTP, nil), e.HTTP.MaxRetries, e.Logger, &oar); err != nil {
		return nil, fmt.Errorf("OpenAlex search: %w", err)
	}

	var results []types.SearchResult
	for _, work := range oar.Results {
		link := work.DOI
		if link == "" {
			link = work.ID
		}
		if link == "" || work.Title == "" {
			continue
		}
		snippet := reconstructAbstract(work.AbstractInvertedIndex)
		if snippet == "" {
			snippet = "Scholarly work: " + work.Title
		}

		meta := map[string]any{"openalex_id": work.ID, "type": "scholarly_work"}
		if work.PublicationYear > 0 {
			meta["year"] = work.PublicationYear
		}
		if work.OpenAccess.OAURL != "" {
			meta["open_access_url"] = work.OpenAccess.OAURL
		}
		results = append(results, types.SearchResult{
			Title:     work.Title,
			Snippet:   snippet,
			URL:       link,
			Source:    e.Name(),
			Timestamp: work.PublicationDate,
			Metadata:  meta,
		})
	}
	return results, nil
}

// reconstructAbstract converts OpenAlex's abstract_inverted_index back to
// plain text. The inverted index maps each word to the positions where it
// appears.
func reconstructAbstract(invertedIndex map[string][]int) string {
	if len(invertedIndex) == 0 {
		return ""
	}

	type posWord struct {
		pos  int
		word string
	}
	var pairs []posWord
	for word, positions := range invertedIndex {
		for _, pos := range positions {
			pairs = append(pairs, posWord{pos: pos, word: word})
		}
	}
	sort.Slice(pairs, func(i, j int) bool {
		return pairs[i].pos < pairs[j].pos
	})

	words := make([]string, len(pairs))
	for i, p := range pairs {
		words[i] = p.word
	}
	return strings.Join(words, " ")
}

// OpenAlex API JSON structures.
type openAlexResponse struct {
	Results []openAlexWork `json:"results"`
}

type openAlexWork struct {
	ID                    string             `json:"id"`
	Title                 string             `json:"title"`
	DOI                   string             `json:"doi"`
	PublicationDate       string             `json:"publication_date"`
	PublicationYear       int                `json:"publication_year"`
	AbstractInvertedIndex map[string][]int   `json:"abstract_inverted_index"`
	OpenAccess            openAlexOpenAccess `json:"open_access"`
}

type openAlexOpenAccess struct {
	IsOA  bool   `json:"is_oa"`
	OAURL string `json:"oa_url"`
}

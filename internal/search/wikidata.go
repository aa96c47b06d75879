// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/pdiddy/nexus-search/internal/httputil"
	"github.com/pdiddy/nexus-search/pkg/types"
)

// wikidataSPARQLURL is the Wikidata query service. Declared as a var so tests
// can substitute an httptest server.
var wikidataSPARQLURL = "https://query.wikidata.org/sparql"

// wikidataEntityBase prefixes entity IDs to form result URLs.
const wikidataEntityBase = "https://www.wikidata.org/wiki/"

// Wikidata looks up entities through the SPARQL endpoint's EntitySearch
// service.
type Wikidata struct {
	Client *http.Client
	HTTP   types.HTTPConfig
	Logger *zap.Logger
}

// Name returns the engine identifier.
func (e *Wikidata) Name() string { return "Wikidata" }

// Kind returns KindKnowledgeBase.
func (e *Wikidata) Kind() Kind { return KindKnowledgeBase }

// Search returns matching entities with their English label and description.
func (e *Wikidata) Search(ctx context.Context, query string, maxResults int) []types.SearchResult {
	return guarded(ctx, orNop(e.Logger), e.Name(), query, maxResults, e.fetch)
}

func (e *Wikidata) fetch(ctx context.Context, query string, maxResults int) ([]types.SearchResult, error) {
	params := url.Values{
		"query":  {entitySearchSPARQL(query, maxResults)},
		"format": {"json"},
	}
	hdr := headers(e.HTTP, map[string]string{"Accept": "application/sparql-results+json"})

	var sr sparqlResponse
	if err := httputil.GetJSON(ctx, e.Client, wikidataSPARQLURL+"?"+params.Encode(), hdr, e.HTTP.MaxRetries, e.Logger, &sr); err != nil {
		return nil, fmt.Errorf("Wikidata search: %w", err)
	}

	var results []types.SearchResult
	for _, b := range sr.Results.Bindings {
		id := b.Item.Value[strings.LastIndex(b.Item.Value, "/")+1:]
		if id == "" {
			continue
		}
		label := b.ItemLabel.Value
		if label == "" {
			label = "No label"
		}
		snippet := b.ItemDescription.Value
		if snippet == "" {
			snippet = "Wikidata entity: " + label
		}
		results = append(results, types.SearchResult{
			Title:   label,
			Snippet: snippet,
			URL:     wikidataEntityBase + id,
			Source:  e.Name(),
			Metadata: map[string]any{
				"entity_id": id,
				"type":      "structured_data",
			},
		})
	}
	return results, nil
}

// entitySearchSPARQL builds an EntitySearch query for term. The term is
// escaped as a SPARQL string literal.
func entitySearchSPARQL(term string, limit int) string {
	if limit <= 0 {
		limit = 10
	}
	return fmt.Sprintf(`SELECT ?item ?itemLabel ?itemDescription WHERE {
  SERVICE wikibase:mwapi {
    bd:serviceParam wikibase:endpoint "www.wikidata.org";
                    wikibase:api "EntitySearch";
                    mwapi:search "%s";
                    mwapi:language "en".
    ?item wikibase:apiOutputItem mwapi:item.
  }
  SERVICE wikibase:label { bd:serviceParam wikibase:language "en". }
}
LIMIT %d`, escapeSPARQL(term), limit)
}

var sparqlEscaper = strings.NewReplacer(
	`\`, `\\`,
	`"`, `\"`,
	"\n", `\n`,
	"\r", `\r`,
	"\t", `\t`,
)

func escapeSPARQL(s string) string { return sparqlEscaper.Replace(s) }

// SPARQL JSON result structures.
type sparqlResponse struct {
	Results struct {
		Bindings []sparqlBinding `json:"bindings"`
	} `json:"results"`
}

type sparqlBinding struct {
	Item            sparqlValue `json:"item"`
	ItemLabel       sparqlValue `json:"itemLabel"`
	ItemDescription sparqlValue `json:"itemDescription"`
}

type sparqlValue struct {
	Value string `json:"value"`
}

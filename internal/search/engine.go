// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package search fans one query out to independent web search engines and
// collects their results. Each backend (SearXNG, DuckDuckGo, Qwant, Brave,
// Wikipedia, Wikidata, and the opt-in arXiv and OpenAlex) implements Engine; the
// Orchestrator runs them concurrently under per-engine timeouts in batch or
// streaming mode.
package search

import (
	"context"

	"go.uber.org/zap"

	"github.com/pdiddy/nexus-search/pkg/types"
)

// Engine searches a single backend. Search never fails: network errors,
// non-200 responses, and malformed bodies are logged by the adapter and
// yield an empty slice.
type Engine interface {
	// Name is the identifier stamped into every result's Source field.
	Name() string

	// Kind classifies the backend for authority scoring.
	Kind() Kind

	Search(ctx context.Context, query string, maxResults int) []types.SearchResult
}

// Kind classifies an engine by the kind of index it serves.
type Kind int

const (
	KindUnknown Kind = iota
	KindWebIndex
	KindOpenAPIIndex
	KindMetasearch
	KindKnowledgeBase
	KindEncyclopedia
)

// Priority returns the authority priority of the kind: encyclopedia 5,
// structured knowledge base 4, metasearch 3, web and open API indexes 2,
// anything else 1.
func (k Kind) Priority() int {
	switch k {
	case KindEncyclopedia:
		return 5
	case KindKnowledgeBase:
		return 4
	case KindMetasearch:
		return 3
	case KindWebIndex, KindOpenAPIIndex:
		return 2
	default:
		return 1
	}
}

func (k Kind) String() string {
	switch k {
	case KindWebIndex:
		return "web-index"
	case KindOpenAPIIndex:
		return "open-api-index"
	case KindMetasearch:
		return "metasearch"
	case KindKnowledgeBase:
		return "knowledge-base"
	case KindEncyclopedia:
		return "encyclopedia"
	default:
		return "unknown"
	}
}

// fetchFunc is the error-returning core of an adapter.
type fetchFunc func(ctx context.Context, query string, maxResults int) ([]types.SearchResult, error)

// guarded runs fetch and converts any failure into an empty result set,
// logging the cause. Results beyond maxResults are dropped.
func guarded(ctx context.Context, logger *zap.Logger, engine, query string, maxResults int, fetch fetchFunc) []types.SearchResult {
	results, err := fetch(ctx, query, maxResults)
	if err != nil {
		logger.Warn("engine search failed",
			zap.String("engine", engine),
			zap.String("query", query),
			zap.Error(err))
		return []types.SearchResult{}
	}
	if results == nil {
		results = []types.SearchResult{}
	}
	if maxResults > 0 && len(results) > maxResults {
		results = results[:maxResults]
	}
	logger.Debug("engine search complete",
		zap.String("engine", engine),
		zap.String("query", query),
		zap.Int("results", len(results)))
	return results
}

func orNop(logger *zap.Logger) *zap.Logger {
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}

func headers(cfg types.HTTPConfig, extra map[string]string) map[string]string {
	h := map[string]string{}
	if cfg.UserAgent != "" {
		h["User-Agent"] = cfg.UserAgent
	}
	for k, v := range extra {
		h[k] = v
	}
	return h
}

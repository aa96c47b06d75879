// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines the shared data structures of the nexus search pipeline:
// raw engine results, scored results, per-engine run output, and the fused
// synthesis returned to callers. Every value is created per request and
// discarded once the response is produced.
package types

import (
	"bytes"
	"encoding/json"
)

// SearchResult is one hit as reported by a single engine.
type SearchResult struct {
	// Title is the result title as returned by the backend.
	Title string `json:"title" yaml:"title"`

	// Snippet is the short description or excerpt shown under the title.
	Snippet string `json:"snippet" yaml:"snippet"`

	// URL is the raw, non-normalized link returned by the backend.
	URL string `json:"url" yaml:"url"`

	// Source is the identifier of the engine that produced the result
	// (e.g. "Wikipedia", "SearXNG"). Never empty.
	Source string `json:"source" yaml:"source"`

	// Score is an optional backend-provided score (default 0).
	Score float64 `json:"score" yaml:"score"`

	// Timestamp is an optional backend-provided date string.
	Timestamp string `json:"timestamp,omitempty" yaml:"timestamp,omitempty"`

	// Metadata carries backend-specific extras (engine, category, entity id...).
	Metadata map[string]any `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// ScoreBreakdown holds the four heuristic score components, each in [0,1].
type ScoreBreakdown struct {
	Relevance float64 `json:"relevance" yaml:"relevance"`
	Authority float64 `json:"authority" yaml:"authority"`
	Consensus float64 `json:"consensus" yaml:"consensus"`
	Quality   float64 `json:"quality" yaml:"quality"`
}

// ScoredResult is a deduplicated result with its score breakdown and the
// weighted final score. It is derived once and never mutated.
type ScoredResult struct {
	SearchResult `yaml:",inline"`

	Scores     ScoreBreakdown `json:"scores" yaml:"scores"`
	FinalScore float64        `json:"final_score" yaml:"final_score"`
}

// EngineRunResult maps engine identifiers to the results each engine
// returned. Unlike a plain map it remembers the order in which engines were
// added: registration order for batch runs, completion order for streamed
// runs. Fusion walks engines in this order, so dedup is deterministic for a
// given run.
type EngineRunResult struct {
	order   []string
	results map[string][]SearchResult
}

// NewEngineRunResult returns an empty run result.
func NewEngineRunResult() *EngineRunResult {
	return &EngineRunResult{results: make(map[string][]SearchResult)}
}

// Set records the results of one engine. A nil slice is stored as an empty
// one so failed engines still appear with zero results. Setting an engine a
// second time replaces its results but keeps its original position.
func (r *EngineRunResult) Set(engine string, results []SearchResult) {
	if results == nil {
		results = []SearchResult{}
	}
	if _, ok := r.results[engine]; !ok {
		r.order = append(r.order, engine)
	}
	r.results[engine] = results
}

// Get returns the results recorded for engine.
func (r *EngineRunResult) Get(engine string) ([]SearchResult, bool) {
	res, ok := r.results[engine]
	return res, ok
}

// Engines returns the engine identifiers in insertion order.
func (r *EngineRunResult) Engines() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Len returns the number of engines recorded.
func (r *EngineRunResult) Len() int { return len(r.order) }

// Total returns the number of raw results across all engines.
func (r *EngineRunResult) Total() int {
	n := 0
	for _, res := range r.results {
		n += len(res)
	}
	return n
}

// Flatten concatenates every engine's results in engine order.
func (r *EngineRunResult) Flatten() []SearchResult {
	all := make([]SearchResult, 0, r.Total())
	for _, name := range r.order {
		all = append(all, r.results[name]...)
	}
	return all
}

// Counts returns the raw per-engine result counts.
func (r *EngineRunResult) Counts() map[string]int {
	counts := make(map[string]int, len(r.order))
	for _, name := range r.order {
		counts[name] = len(r.results[name])
	}
	return counts
}

// MarshalJSON writes the run as a JSON object keyed by engine, in engine order.
func (r *EngineRunResult) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, name := range r.order {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(name)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(r.results[name])
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// SynthesisOutput is the fused answer set for one query.
type SynthesisOutput struct {
	// RankedResults is sorted by FinalScore descending and truncated to the
	// requested maximum.
	RankedResults []ScoredResult `json:"results" yaml:"results"`

	// Summary is a one-paragraph description of the findings.
	Summary string `json:"summary" yaml:"summary"`

	// EngineStats holds raw, pre-dedup result counts per engine.
	EngineStats map[string]int `json:"engine_stats" yaml:"engine_stats"`

	// TotalRaw is the number of results received from all engines.
	TotalRaw int `json:"total_raw" yaml:"total_raw"`

	// TotalUnique is the number of results left after deduplication.
	TotalUnique int `json:"total_unique" yaml:"total_unique"`
}

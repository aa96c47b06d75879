// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package decision gives advisory judgements about a query and its results:
// what kind of question it is, and whether the fused results look sufficient
// to answer it. Answers come from the LLM when one is available and from
// fixed rules otherwise. Nothing here changes ranking.
package decision

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/pdiddy/nexus-search/internal/llm"
	"github.com/pdiddy/nexus-search/internal/planner"
	"github.com/pdiddy/nexus-search/pkg/types"
)

// Suggested actions.
const (
	ActionAnswer     = "answer"
	ActionSearchMore = "search_more"
)

// evaluatedResults is how many top results are shown to the model.
const evaluatedResults = 5

// QueryAnalysis classifies a query before searching.
type QueryAnalysis struct {
	Intent            string `json:"intent" yaml:"intent"`
	NeedsRealtimeData bool   `json:"needs_realtime_data" yaml:"needs_realtime_data"`
	Complexity        string `json:"complexity" yaml:"complexity"`
	Reasoning         string `json:"reasoning" yaml:"reasoning"`
}

// Evaluation judges whether results answer a query.
type Evaluation struct {
	Sufficient      bool   `json:"sufficient" yaml:"sufficient"`
	MissingInfo     string `json:"missing_info,omitempty" yaml:"missing_info,omitempty"`
	SuggestedAction string `json:"suggested_action" yaml:"suggested_action"`
	RefinementQuery string `json:"refinement_query,omitempty" yaml:"refinement_query,omitempty"`
}

// Advice bundles both judgements for one request.
type Advice struct {
	Analysis   QueryAnalysis `json:"analysis" yaml:"analysis"`
	Evaluation Evaluation    `json:"evaluation" yaml:"evaluation"`
}

// Engine produces advice. A nil Generator makes every answer come from the
// fallback rules.
type Engine struct {
	Generator llm.JSONGenerator
	Timeout   time.Duration
	Logger    *zap.Logger
}

// New returns a decision engine over gen, which may be nil.
func New(gen llm.JSONGenerator, timeout time.Duration, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{Generator: gen, Timeout: timeout, Logger: logger}
}

// Advise runs AnalyzeQuery and EvaluateResults.
func (e *Engine) Advise(ctx context.Context, query string, results []types.ScoredResult) Advice {
	return Advice{
		Analysis:   e.AnalyzeQuery(ctx, query),
		Evaluation: e.EvaluateResults(ctx, query, results),
	}
}

// AnalyzeQuery classifies query by intent, freshness needs, and complexity.
func (e *Engine) AnalyzeQuery(ctx context.Context, query string) QueryAnalysis {
	fallback := analyzeByRules(query)

	prompt := fmt.Sprintf(`Query: %q
Classify intent: FACTUAL, TUTORIAL, OPINION, CREATIVE.
Real-time data needed? YES/NO.
Strategy: SHORT REASONING.

JSON:
{
    "intent": "...",
    "needs_realtime_data": true/false,
    "complexity": "low/medium/high",
    "reasoning": "..."
}`, query)

	obj := e.generate(ctx, prompt, true)
	if len(obj) == 0 {
		return fallback
	}
	return QueryAnalysis{
		Intent:            stringField(obj, "intent", fallback.Intent),
		NeedsRealtimeData: boolField(obj, "needs_realtime_data", fallback.NeedsRealtimeData),
		Complexity:        stringField(obj, "complexity", fallback.Complexity),
		Reasoning:         stringField(obj, "reasoning", fallback.Reasoning),
	}
}

// EvaluateResults judges whether the top results answer query.
func (e *Engine) EvaluateResults(ctx context.Context, query string, results []types.ScoredResult) Evaluation {
	fallback := evaluateByRules(query, results)
	if len(results) == 0 {
		return fallback
	}

	var listing strings.Builder
	for i, r := range results[:min(evaluatedResults, len(results))] {
		fmt.Fprintf(&listing, "[%d] %s: %s...\n", i+1, r.Title, firstRunes(r.Snippet, 150))
	}
	prompt := fmt.Sprintf(`I am answering the query: %q

I have found these search results:
%s
Evaluate if these results are sufficient to answer the query accurately and comprehensively.
Respond in JSON:
{
    "sufficient": true/false,
    "missing_info": "What key information is missing (if any)?",
    "suggested_action": "answer|search_more",
    "refinement_query": "Better search query if needed (or null)"
}`, query, listing.String())

	obj := e.generate(ctx, prompt, false)
	if len(obj) == 0 {
		return fallback
	}
	ev := Evaluation{
		Sufficient:      boolField(obj, "sufficient", fallback.Sufficient),
		MissingInfo:     stringField(obj, "missing_info", ""),
		SuggestedAction: stringField(obj, "suggested_action", fallback.SuggestedAction),
		RefinementQuery: stringField(obj, "refinement_query", ""),
	}
	if ev.SuggestedAction != ActionAnswer && ev.SuggestedAction != ActionSearchMore {
		ev.SuggestedAction = fallback.SuggestedAction
	}
	return ev
}

func (e *Engine) generate(ctx context.Context, prompt string, quick bool) map[string]any {
	if e.Generator == nil {
		return nil
	}
	if e.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.Timeout)
		defer cancel()
	}
	obj := e.Generator.GenerateJSON(ctx, prompt, quick)
	if len(obj) == 0 && e.Logger != nil {
		e.Logger.Debug("decision engine using rules")
	}
	return obj
}

// realtimeMarkers suggest the answer changes over time.
var realtimeMarkers = []string{"today", "latest", "current", "now", "news", "price", "weather", "score", "live", "this week"}

// analyzeByRules derives an analysis from the planner's intent classifier.
func analyzeByRules(query string) QueryAnalysis {
	intent := planner.DetectIntent(query)
	label := "FACTUAL"
	switch {
	case intent == planner.IntentHow:
		label = "TUTORIAL"
	case intent == planner.IntentWhy:
		label = "OPINION"
	}

	lower := strings.ToLower(query)
	realtime := false
	for _, m := range realtimeMarkers {
		if containsWord(lower, m) {
			realtime = true
			break
		}
	}

	complexity := "low"
	switch n := len(planner.Keywords(query)); {
	case n > 6:
		complexity = "high"
	case n > 3:
		complexity = "medium"
	}

	return QueryAnalysis{
		Intent:            label,
		NeedsRealtimeData: realtime,
		Complexity:        complexity,
		Reasoning:         fmt.Sprintf("rule-based: %s intent", intent),
	}
}

// evaluateByRules treats any result as sufficient.
func evaluateByRules(query string, results []types.ScoredResult) Evaluation {
	if len(results) > 0 {
		return Evaluation{Sufficient: true, SuggestedAction: ActionAnswer}
	}
	return Evaluation{
		Sufficient:      false,
		MissingInfo:     "no results",
		SuggestedAction: ActionSearchMore,
		RefinementQuery: strings.Join(planner.Keywords(query), " "),
	}
}

func stringField(obj map[string]any, key, def string) string {
	if v, ok := obj[key].(string); ok && v != "" {
		return v
	}
	return def
}

func boolField(obj map[string]any, key string, def bool) bool {
	switch v := obj[key].(type) {
	case bool:
		return v
	case string:
		switch strings.ToLower(v) {
		case "true", "yes":
			return true
		case "false", "no":
			return false
		}
	}
	return def
}

// containsWord reports whether word (possibly several words) appears in s on
// word boundaries. s must already be lower case.
func containsWord(s, word string) bool {
	padded := " " + strings.Join(strings.FieldsFunc(s, isSeparator), " ") + " "
	return strings.Contains(padded, " "+word+" ")
}

func isSeparator(r rune) bool {
	return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r >= utf8.RuneSelf)
}

func firstRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

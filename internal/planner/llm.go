// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package planner

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/pdiddy/nexus-search/internal/llm"
	"github.com/pdiddy/nexus-search/pkg/types"
)

// llmSubQueries is how many model lines are kept after the original query.
const llmSubQueries = 4

const breakdownPrompt = `Given this search query, generate 4 focused sub-queries that would help gather comprehensive information.
Each sub-query should target a specific aspect of the main query.

Query: %s

Respond with only the sub-queries, one per line, no numbering or explanation.`

// Backend is the LLM collaborator a planner needs: a liveness probe and
// free-text completion. *llm.Client satisfies it.
type Backend interface {
	llm.Completer
	Probe(ctx context.Context, timeout time.Duration) bool
}

// LLMPlanner asks a model for sub-queries. Any failure on a call, including
// an answer with no usable lines, returns RulePlanner's full plan for that
// call instead.
type LLMPlanner struct {
	Completer llm.Completer
	Timeout   time.Duration
	Fallback  RulePlanner
	Logger    *zap.Logger
}

// Breakdown returns the query followed by up to four model-generated
// sub-queries.
func (p *LLMPlanner) Breakdown(ctx context.Context, query string) []string {
	logger := p.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if p.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.Timeout)
		defer cancel()
	}

	text, err := p.Completer.Complete(ctx, fmt.Sprintf(breakdownPrompt, query))
	if err != nil {
		logger.Info("LLM query breakdown failed, using rules",
			zap.String("query", query),
			zap.Error(err))
		return p.Fallback.Breakdown(ctx, query)
	}

	lines := parseLines(text, llmSubQueries)
	if len(lines) == 0 {
		logger.Info("LLM query breakdown returned nothing usable, using rules",
			zap.String("query", query))
		return p.Fallback.Breakdown(ctx, query)
	}

	subs := append([]string{query}, lines...)
	if len(subs) > MaxSubQueries {
		subs = subs[:MaxSubQueries]
	}
	return subs
}

// parseLines splits model output into non-empty lines with leading
// enumeration markers ("1.", "2)", "-") removed, keeping at most limit.
func parseLines(text string, limit int) []string {
	var out []string
	for _, line := range strings.Split(strings.TrimSpace(text), "\n") {
		cleaned := strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(line), "0123456789.-) "))
		if cleaned == "" {
			continue
		}
		out = append(out, cleaned)
		if len(out) == limit {
			break
		}
	}
	return out
}

// New selects the planner for the lifetime of the process. When the LLM is
// disabled, missing, or fails its one liveness probe, the rule planner is
// returned and the LLM is never consulted again.
func New(ctx context.Context, cfg types.LLMConfig, backend Backend, logger *zap.Logger) Planner {
	if logger == nil {
		logger = zap.NewNop()
	}
	if !cfg.Enabled || backend == nil {
		logger.Debug("query planner: rules")
		return RulePlanner{}
	}
	if !backend.Probe(ctx, cfg.ProbeTimeout) {
		logger.Debug("query planner: rules (LLM probe failed)")
		return RulePlanner{}
	}
	logger.Debug("query planner: LLM", zap.String("model", cfg.Model))
	return &LLMPlanner{
		Completer: backend,
		Timeout:   cfg.PlanTimeout,
		Logger:    logger,
	}
}

// Describe names the strategy behind p for logs and CLI output.
func Describe(p Planner) string {
	switch p.(type) {
	case *LLMPlanner:
		return "llm"
	default:
		return "rules"
	}
}

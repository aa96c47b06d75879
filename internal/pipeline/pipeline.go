// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pipeline runs one search request end to end: plan the query, fan
// it out to every engine, fuse the results, and optionally attach advice.
// Run blocks until the answer is ready; RunStream reports progress events as
// engines settle; RunBatch processes many queries on a bounded worker pool.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"

	"github.com/pdiddy/nexus-search/internal/decision"
	"github.com/pdiddy/nexus-search/internal/fusion"
	"github.com/pdiddy/nexus-search/internal/llm"
	"github.com/pdiddy/nexus-search/internal/planner"
	"github.com/pdiddy/nexus-search/internal/search"
	"github.com/pdiddy/nexus-search/pkg/types"
)

// ErrEmptyQuery is returned for a request whose query is blank.
var ErrEmptyQuery = errors.New("query is empty")

// defaultBatchConcurrency is used when RunBatch is given no worker count.
const defaultBatchConcurrency = 4

// Advisor attaches decision support to a response. *decision.Engine
// satisfies it.
type Advisor interface {
	Advise(ctx context.Context, query string, results []types.ScoredResult) decision.Advice
}

// Request is one search to run.
type Request struct {
	Query      string `json:"query"`
	MaxResults int    `json:"max_results,omitempty"`
}

// Response is the fused answer to one request.
type Response struct {
	RequestID  string   `json:"request_id" yaml:"request_id"`
	Query      string   `json:"query" yaml:"query"`
	SubQueries []string `json:"sub_queries" yaml:"sub_queries"`

	types.SynthesisOutput `yaml:",inline"`

	Advice *decision.Advice `json:"advice,omitempty" yaml:"advice,omitempty"`

	// ProcessingTime is the wall time of the request in seconds.
	ProcessingTime float64 `json:"processing_time" yaml:"processing_time"`
}

// Pipeline wires planner, orchestrator, and fusion together. The zero value
// is not usable; construct with New or Build.
type Pipeline struct {
	Planner      planner.Planner
	Orchestrator *search.Orchestrator
	Synthesizer  *fusion.Synthesizer

	// Advisor is optional. When nil responses carry no advice.
	Advisor Advisor

	// DefaultResults applies to requests with MaxResults <= 0.
	DefaultResults int

	// MaxTotalResults caps the fused result count of any request.
	MaxTotalResults int

	Logger *zap.Logger
}

// New returns a pipeline over the given collaborators. advisor may be nil.
func New(pl planner.Planner, orch *search.Orchestrator, synth *fusion.Synthesizer, advisor Advisor, cfg types.SearchConfig, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		Planner:         pl,
		Orchestrator:    orch,
		Synthesizer:     synth,
		Advisor:         advisor,
		DefaultResults:  cfg.DefaultResults,
		MaxTotalResults: cfg.MaxTotalResults,
		Logger:          logger,
	}
}

// Build constructs the full production pipeline from cfg. The LLM backend is
// probed once here; when it is disabled or unreachable the planner and the
// advisor use their deterministic paths for the life of the pipeline.
func Build(ctx context.Context, cfg types.Config, client *http.Client, logger *zap.Logger) (*Pipeline, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	reg, err := search.Build(client, cfg.Search, logger)
	if err != nil {
		return nil, fmt.Errorf("building engines: %w", err)
	}
	orch, err := search.NewOrchestrator(reg, cfg.Search, logger)
	if err != nil {
		return nil, err
	}
	synth := fusion.New(reg.Priorities(), logger)

	var backend planner.Backend
	var gen llm.JSONGenerator
	if cfg.LLM.Enabled {
		c, err := llm.New(cfg.LLM, nil, logger)
		if err != nil {
			return nil, fmt.Errorf("creating LLM client: %w", err)
		}
		backend = c
	}
	pl := planner.New(ctx, cfg.LLM, backend, logger)
	if c, ok := backend.(*llm.Client); ok && planner.Describe(pl) == "llm" {
		gen = c
	}

	var advisor Advisor
	if cfg.LLM.Advice {
		advisor = decision.New(gen, cfg.LLM.AdviceTimeout, logger)
	}

	return New(pl, orch, synth, advisor, cfg.Search, logger), nil
}

// Limit resolves the fused result count for a requested maximum.
func (p *Pipeline) Limit(requested int) int {
	n := requested
	if n <= 0 {
		n = p.DefaultResults
	}
	if p.MaxTotalResults > 0 && n > p.MaxTotalResults {
		n = p.MaxTotalResults
	}
	return n
}

// Run plans, searches, and fuses req in one blocking call.
func (p *Pipeline) Run(ctx context.Context, req Request) (*Response, error) {
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return nil, ErrEmptyQuery
	}
	start := time.Now()
	id := uuid.NewString()
	logger := p.Logger.With(zap.String("request_id", id))

	subs := p.Planner.Breakdown(ctx, query)
	logger.Debug("query planned", zap.String("query", query), zap.Strings("sub_queries", subs))

	run := p.Orchestrator.SearchAll(ctx, query, subs)
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("searching %q: %w", query, err)
	}

	resp := p.finish(ctx, id, query, subs, run, req.MaxResults, start)
	logger.Info("request complete",
		zap.String("query", query),
		zap.Int("results", len(resp.RankedResults)),
		zap.Float64("seconds", resp.ProcessingTime))
	return resp, nil
}

func (p *Pipeline) finish(ctx context.Context, id, query string, subs []string, run *types.EngineRunResult, maxResults int, start time.Time) *Response {
	out := p.Synthesizer.Synthesize(query, run, p.Limit(maxResults))
	resp := &Response{
		RequestID:       id,
		Query:           query,
		SubQueries:      subs,
		SynthesisOutput: out,
	}
	if p.Advisor != nil {
		advice := p.Advisor.Advise(ctx, query, out.RankedResults)
		resp.Advice = &advice
	}
	resp.ProcessingTime = time.Since(start).Seconds()
	return resp
}

// BatchResult is the outcome of one query in RunBatch.
type BatchResult struct {
	Query    string
	Response *Response
	Err      error
}

// RunBatch runs every query through Run on a pool of concurrency workers.
// Results are returned in input order; a failed query records its error and
// does not stop the others.
func (p *Pipeline) RunBatch(ctx context.Context, queries []string, maxResults, concurrency int) ([]BatchResult, error) {
	if concurrency <= 0 {
		concurrency = defaultBatchConcurrency
	}
	pool, err := ants.NewPool(concurrency)
	if err != nil {
		return nil, fmt.Errorf("creating worker pool: %w", err)
	}
	defer pool.Release()

	results := make([]BatchResult, len(queries))
	var wg sync.WaitGroup
	for i, q := range queries {
		results[i].Query = q
		wg.Add(1)
		submitErr := pool.Submit(func() {
			defer wg.Done()
			results[i].Response, results[i].Err = p.Run(ctx, Request{Query: q, MaxResults: maxResults})
		})
		if submitErr != nil {
			wg.Done()
			results[i].Err = fmt.Errorf("submitting %q: %w", q, submitErr)
		}
	}
	wg.Wait()

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
		}
	}
	p.Logger.Info("batch complete",
		zap.Int("queries", len(queries)),
		zap.Int("failed", failed),
		zap.Int("workers", concurrency))
	return results, nil
}

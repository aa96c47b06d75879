// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/nexus-search/pkg/types"
)

// Orchestrator fans a query out to every registered engine. Each engine runs
// in its own goroutine under its own timeout; a slow, failing, or panicking
// engine contributes an empty result list and never affects its siblings.
type Orchestrator struct {
	engines []Engine
	logger  *zap.Logger

	// Timeout bounds each engine call in SearchAll.
	Timeout time.Duration

	// StreamTimeout bounds each engine call in Stream.
	StreamTimeout time.Duration

	// MaxResults is passed to every engine as its result cap.
	MaxResults int
}

// EngineOutcome is one settled engine in a streamed run.
type EngineOutcome struct {
	Engine  string
	Results []types.SearchResult
}

// NewOrchestrator returns an orchestrator over the engines of reg, using the
// timeouts and result cap of cfg.
func NewOrchestrator(reg *Registry, cfg types.SearchConfig, logger *zap.Logger) (*Orchestrator, error) {
	if reg == nil || reg.Len() == 0 {
		return nil, ErrNoEngines
	}
	return &Orchestrator{
		engines:       reg.Engines(),
		logger:        orNop(logger),
		Timeout:       cfg.EngineTimeout,
		StreamTimeout: cfg.StreamTimeout,
		MaxResults:    cfg.MaxResultsPerEngine,
	}, nil
}

// Engines returns the engines in registration order.
func (o *Orchestrator) Engines() []Engine {
	out := make([]Engine, len(o.engines))
	copy(out, o.engines)
	return out
}

// Assign returns the sub-query each engine receives: engine i gets
// subQueries[i mod len(subQueries)]. An empty list falls back to query.
func (o *Orchestrator) Assign(query string, subQueries []string) []string {
	if len(subQueries) == 0 {
		subQueries = []string{query}
	}
	assigned := make([]string, len(o.engines))
	for i := range o.engines {
		assigned[i] = subQueries[i%len(subQueries)]
	}
	return assigned
}

// SearchAll queries every engine concurrently and waits for all of them to
// settle. The result has one entry per engine, in registration order.
func (o *Orchestrator) SearchAll(ctx context.Context, query string, subQueries []string) *types.EngineRunResult {
	start := time.Now()
	assigned := o.Assign(query, subQueries)
	collected := make([][]types.SearchResult, len(o.engines))

	var g errgroup.Group
	for i, e := range o.engines {
		g.Go(func() error {
			collected[i] = o.run(ctx, e, assigned[i], o.Timeout)
			return nil
		})
	}
	// Engine tasks never return errors; failures are already empty slices.
	_ = g.Wait()

	run := types.NewEngineRunResult()
	for i, e := range o.engines {
		run.Set(e.Name(), collected[i])
	}
	o.logger.Info("search complete",
		zap.String("query", query),
		zap.Int("engines", run.Len()),
		zap.Int("results", run.Total()),
		zap.Duration("elapsed", time.Since(start)))
	return run
}

// Stream queries every engine concurrently and delivers each engine's
// outcome as soon as it settles. The channel yields exactly one outcome per
// engine, in completion order, and is closed after the last one. The
// channel is buffered, so abandoning it does not leak goroutines.
func (o *Orchestrator) Stream(ctx context.Context, query string, subQueries []string) <-chan EngineOutcome {
	assigned := o.Assign(query, subQueries)
	out := make(chan EngineOutcome, len(o.engines))

	var wg sync.WaitGroup
	for i, e := range o.engines {
		wg.Add(1)
		go func() {
			defer wg.Done()
			out <- EngineOutcome{
				Engine:  e.Name(),
				Results: o.run(ctx, e, assigned[i], o.StreamTimeout),
			}
		}()
	}

	go func() {
		wg.Wait()
		close(out)
	}()

	return out
}

// run calls one engine under timeout. Timeouts and panics become an empty
// slice.
func (o *Orchestrator) run(ctx context.Context, e Engine, query string, timeout time.Duration) []types.SearchResult {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	done := make(chan []types.SearchResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				o.logger.Error("engine panicked",
					zap.String("engine", e.Name()),
					zap.String("query", query),
					zap.String("panic", fmt.Sprint(r)))
				done <- nil
			}
		}()
		done <- e.Search(ctx, query, o.MaxResults)
	}()

	select {
	case results := <-done:
		if results == nil {
			return []types.SearchResult{}
		}
		return results
	case <-ctx.Done():
		o.logger.Warn("engine timed out",
			zap.String("engine", e.Name()),
			zap.String("query", query),
			zap.Duration("timeout", timeout),
			zap.Error(ctx.Err()))
		return []types.SearchResult{}
	}
}

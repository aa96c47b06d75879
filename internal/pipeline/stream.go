// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pdiddy/nexus-search/pkg/types"
)

// Event types emitted by RunStream.
const (
	EventStatus         = "status"
	EventBreakdown      = "breakdown"
	EventEngineComplete = "engine_complete"
	EventComplete       = "complete"
	EventError          = "error"
)

// Status values carried by EventStatus.
const (
	StatusBreakingQuery = "breaking_query"
	StatusSearching     = "searching"
	StatusSynthesizing  = "synthesizing"
)

// Event is one progress message of a streamed request.
type Event struct {
	Type      string `json:"type"`
	RequestID string `json:"request_id,omitempty"`

	Status  string `json:"status,omitempty"`
	Message string `json:"message,omitempty"`

	SubQueries []string `json:"sub_queries,omitempty"`

	Engine string `json:"engine,omitempty"`
	Count  *int   `json:"count,omitempty"`

	Response *Response `json:"response,omitempty"`
}

// RunStream processes req like Run but reports progress through emit: a
// status event per phase, the sub-queries, one engine_complete event per
// engine as it settles, and a final complete event carrying the response.
// An error from emit stops the request and is returned; engines still in
// flight are cancelled.
func (p *Pipeline) RunStream(ctx context.Context, req Request, emit func(Event) error) error {
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return ErrEmptyQuery
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	start := time.Now()
	id := uuid.NewString()
	logger := p.Logger.With(zap.String("request_id", id))
	send := func(e Event) error {
		e.RequestID = id
		if err := emit(e); err != nil {
			logger.Debug("stream consumer gone", zap.String("event", e.Type), zap.Error(err))
			return fmt.Errorf("emitting %s event: %w", e.Type, err)
		}
		return nil
	}

	if err := send(Event{Type: EventStatus, Status: StatusBreakingQuery, Message: "Breaking down query..."}); err != nil {
		return err
	}
	subs := p.Planner.Breakdown(ctx, query)
	if err := send(Event{Type: EventBreakdown, SubQueries: subs}); err != nil {
		return err
	}

	if err := send(Event{Type: EventStatus, Status: StatusSearching, Message: "Searching engines..."}); err != nil {
		return err
	}
	run := types.NewEngineRunResult()
	for outcome := range p.Orchestrator.Stream(ctx, query, subs) {
		run.Set(outcome.Engine, outcome.Results)
		count := len(outcome.Results)
		if err := send(Event{Type: EventEngineComplete, Engine: outcome.Engine, Count: &count}); err != nil {
			return err
		}
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("searching %q: %w", query, err)
	}

	if err := send(Event{Type: EventStatus, Status: StatusSynthesizing, Message: "Synthesizing results..."}); err != nil {
		return err
	}
	resp := p.finish(ctx, id, query, subs, run, req.MaxResults, start)
	logger.Info("stream complete",
		zap.String("query", query),
		zap.Int("results", len(resp.RankedResults)),
		zap.Float64("seconds", resp.ProcessingTime))
	return send(Event{Type: EventComplete, Response: resp})
}

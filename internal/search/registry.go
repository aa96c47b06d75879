// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/pdiddy/nexus-search/pkg/types"
)

// ErrNoEngines is returned when a registry or orchestrator has nothing to query.
var ErrNoEngines = errors.New("no search engines registered")

// EngineNames lists the engines Build knows how to construct. The scholarly
// engines (arxiv, openalex) are opt-in and absent from the default list.
var EngineNames = []string{"searxng", "duckduckgo", "qwant", "brave", "wikipedia", "wikidata", "arxiv", "openalex"}

// Registry holds engines in registration order. The order fixes sub-query
// assignment and batch output order.
type Registry struct {
	engines []Engine
	byName  map[string]Engine
}

// NewRegistry registers engines in the given order. Duplicate names are an
// error.
func NewRegistry(engines ...Engine) (*Registry, error) {
	r := &Registry{byName: make(map[string]Engine, len(engines))}
	for _, e := range engines {
		if err := r.Register(e); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register appends e to the registry.
func (r *Registry) Register(e Engine) error {
	if _, dup := r.byName[e.Name()]; dup {
		return fmt.Errorf("engine %q already registered", e.Name())
	}
	r.engines = append(r.engines, e)
	r.byName[e.Name()] = e
	return nil
}

// Engines returns the registered engines in order.
func (r *Registry) Engines() []Engine {
	out := make([]Engine, len(r.engines))
	copy(out, r.engines)
	return out
}

// Lookup returns the engine registered under name.
func (r *Registry) Lookup(name string) (Engine, bool) {
	e, ok := r.byName[name]
	return e, ok
}

// Len returns the number of registered engines.
func (r *Registry) Len() int { return len(r.engines) }

// Names returns engine identifiers in registration order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.engines))
	for i, e := range r.engines {
		names[i] = e.Name()
	}
	return names
}

// Priorities maps each engine identifier to the authority priority of its
// kind. Fusion uses it to break URL collisions and to score authority.
func (r *Registry) Priorities() map[string]int {
	p := make(map[string]int, len(r.engines))
	for _, e := range r.engines {
		p[e.Name()] = e.Kind().Priority()
	}
	return p
}

// Build constructs the engines named in cfg.Engines, in that order. Brave is
// appended when an API key is configured and it is not already listed.
func Build(client *http.Client, cfg types.SearchConfig, logger *zap.Logger) (*Registry, error) {
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	logger = orNop(logger)

	names := append([]string(nil), cfg.Engines...)
	if cfg.BraveAPIKey != "" && !containsFold(names, "brave") {
		names = append(names, "brave")
	}

	r := &Registry{byName: make(map[string]Engine, len(names))}
	for _, name := range names {
		e, err := newEngine(strings.ToLower(strings.TrimSpace(name)), client, cfg, logger)
		if err != nil {
			return nil, err
		}
		if err := r.Register(e); err != nil {
			return nil, err
		}
	}
	if r.Len() == 0 {
		return nil, ErrNoEngines
	}
	logger.Debug("engines registered", zap.Strings("engines", r.Names()))
	return r, nil
}

func newEngine(name string, client *http.Client, cfg types.SearchConfig, logger *zap.Logger) (Engine, error) {
	l := logger.With(zap.String("engine", name))
	switch name {
	case "searxng":
		return NewSearXNG(client, cfg, l), nil
	case "duckduckgo":
		return &DuckDuckGo{Client: client, HTTP: cfg.HTTPConfig, Logger: l}, nil
	case "qwant":
		return &Qwant{Client: client, HTTP: cfg.HTTPConfig, Logger: l}, nil
	case "brave":
		return &Brave{Client: client, HTTP: cfg.HTTPConfig, APIKey: cfg.BraveAPIKey, Logger: l}, nil
	case "wikipedia":
		return &Wikipedia{Client: client, HTTP: cfg.HTTPConfig, Logger: l}, nil
	case "wikidata":
		return &Wikidata{Client: client, HTTP: cfg.HTTPConfig, Logger: l}, nil
	case "arxiv":
		return &Arxiv{Client: client, HTTP: cfg.HTTPConfig, Logger: l}, nil
	case "openalex":
		return &OpenAlex{Client: client, HTTP: cfg.HTTPConfig, Email: cfg.OpenAlexEmail, Logger: l}, nil
	default:
		return nil, fmt.Errorf("%w: unknown engine %q (known: %s)",
			types.ErrInvalidConfig, name, strings.Join(EngineNames, ", "))
	}
}

func containsFold(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(strings.TrimSpace(v), s) {
			return true
		}
	}
	return false
}

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/pdiddy/nexus-search/pkg/types"
)

// fakeEngine returns canned results after an optional delay. It honours
// context cancellation so timed-out calls do not outlive the test.
type fakeEngine struct {
	name    string
	kind    Kind
	results []types.SearchResult
	delay   time.Duration
	panics  bool

	mu      sync.Mutex
	queries []string
}

func (f *fakeEngine) Name() string { return f.name }
func (f *fakeEngine) Kind() Kind   { return f.kind }

func (f *fakeEngine) Search(ctx context.Context, query string, maxResults int) []types.SearchResult {
	f.mu.Lock()
	f.queries = append(f.queries, query)
	f.mu.Unlock()

	if f.panics {
		panic("backend exploded")
	}
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil
		}
	}
	if maxResults > 0 && len(f.results) > maxResults {
		return f.results[:maxResults]
	}
	return f.results
}

func (f *fakeEngine) seen() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.queries...)
}

func results(source string, urls ...string) []types.SearchResult {
	out := make([]types.SearchResult, len(urls))
	for i, u := range urls {
		out[i] = types.SearchResult{Title: source + " " + u, Snippet: "snippet " + u, URL: u, Source: source}
	}
	return out
}

func newTestOrchestrator(t *testing.T, timeout time.Duration, engines ...Engine) *Orchestrator {
	t.Helper()
	reg, err := NewRegistry(engines...)
	require.NoError(t, err)
	o, err := NewOrchestrator(reg, types.SearchConfig{
		EngineTimeout:       timeout,
		StreamTimeout:       timeout,
		MaxResultsPerEngine: 10,
	}, nil)
	require.NoError(t, err)
	return o
}

func TestNewOrchestrator_NoEngines(t *testing.T) {
	reg, err := NewRegistry()
	require.NoError(t, err)
	_, err = NewOrchestrator(reg, types.SearchConfig{}, nil)
	assert.ErrorIs(t, err, ErrNoEngines)
}

func TestAssign_RoundRobin(t *testing.T) {
	engines := make([]Engine, 5)
	for i := range engines {
		engines[i] = &fakeEngine{name: string(rune('A' + i))}
	}
	o := newTestOrchestrator(t, time.Second, engines...)

	tests := []struct {
		name       string
		subQueries []string
		want       []string
	}{
		{"fewer sub-queries than engines", []string{"q", "q1", "q2"}, []string{"q", "q1", "q2", "q", "q1"}},
		{"single", []string{"only"}, []string{"only", "only", "only", "only", "only"}},
		{"empty falls back to query", nil, []string{"main", "main", "main", "main", "main"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, o.Assign("main", tt.subQueries))
		})
	}
}

func TestSearchAll_RegistrationOrderAndSubQueries(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	a := &fakeEngine{name: "A", results: results("A", "https://a/1", "https://a/2"), delay: 30 * time.Millisecond}
	b := &fakeEngine{name: "B", results: results("B", "https://b/1")}
	c := &fakeEngine{name: "C"}
	o := newTestOrchestrator(t, time.Second, a, b, c)

	run := o.SearchAll(context.Background(), "main", []string{"main", "sub"})

	assert.Equal(t, []string{"A", "B", "C"}, run.Engines())
	assert.Equal(t, 3, run.Total())
	got, ok := run.Get("C")
	require.True(t, ok, "failed engines still appear")
	assert.NotNil(t, got)
	assert.Empty(t, got)

	assert.Equal(t, []string{"main"}, a.seen())
	assert.Equal(t, []string{"sub"}, b.seen())
	assert.Equal(t, []string{"main"}, c.seen())
}

func TestSearchAll_TimeoutIsolated(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	slow := &fakeEngine{name: "Slow", results: results("Slow", "https://slow/1"), delay: 2 * time.Second}
	fast := &fakeEngine{name: "Fast", results: results("Fast", "https://fast/1", "https://fast/2")}
	o := newTestOrchestrator(t, 50*time.Millisecond, slow, fast)

	start := time.Now()
	run := o.SearchAll(context.Background(), "q", []string{"q"})
	elapsed := time.Since(start)

	slowRes, _ := run.Get("Slow")
	fastRes, _ := run.Get("Fast")
	assert.Empty(t, slowRes)
	assert.Len(t, fastRes, 2)
	assert.Less(t, elapsed, time.Second, "timed-out engine must not hold the barrier")
}

func TestSearchAll_PanicIsolated(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	bad := &fakeEngine{name: "Bad", panics: true}
	good := &fakeEngine{name: "Good", results: results("Good", "https://good/1")}
	o := newTestOrchestrator(t, time.Second, bad, good)

	run := o.SearchAll(context.Background(), "q", nil)

	badRes, ok := run.Get("Bad")
	require.True(t, ok)
	assert.Empty(t, badRes)
	goodRes, _ := run.Get("Good")
	assert.Len(t, goodRes, 1)
}

func TestStream_OneOutcomePerEngine(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	engines := []Engine{
		&fakeEngine{name: "A", results: results("A", "https://a/1", "https://a/2"), delay: 40 * time.Millisecond},
		&fakeEngine{name: "B", results: results("B", "https://b/1")},
		&fakeEngine{name: "C", delay: time.Second}, // times out
		&fakeEngine{name: "D", panics: true},
	}
	o := newTestOrchestrator(t, 100*time.Millisecond, engines...)

	counts := map[string]int{}
	for out := range o.Stream(context.Background(), "q", []string{"q"}) {
		_, dup := counts[out.Engine]
		assert.False(t, dup, "engine %s emitted twice", out.Engine)
		assert.NotNil(t, out.Results)
		counts[out.Engine] = len(out.Results)
	}

	assert.Equal(t, map[string]int{"A": 2, "B": 1, "C": 0, "D": 0}, counts)
}

func TestStream_TotalMatchesBatch(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	engines := []Engine{
		&fakeEngine{name: "A", results: results("A", "https://x/1", "https://x/2"), delay: 20 * time.Millisecond},
		&fakeEngine{name: "B", results: results("B", "https://x/1")},
		&fakeEngine{name: "C", results: results("C", "https://c/1", "https://c/2", "https://c/3"), delay: 10 * time.Millisecond},
		&fakeEngine{name: "D"},
		&fakeEngine{name: "E", results: results("E", "https://e/1")},
	}
	o := newTestOrchestrator(t, time.Second, engines...)
	subs := []string{"q", "q a", "q b"}

	batch := o.SearchAll(context.Background(), "q", subs)

	var streamed []string
	total := 0
	for out := range o.Stream(context.Background(), "q", subs) {
		total += len(out.Results)
		for _, r := range out.Results {
			streamed = append(streamed, out.Engine+"|"+r.URL)
		}
	}

	var batched []string
	for _, name := range batch.Engines() {
		res, _ := batch.Get(name)
		for _, r := range res {
			batched = append(batched, name+"|"+r.URL)
		}
	}

	assert.Equal(t, batch.Total(), total)
	sort.Strings(streamed)
	sort.Strings(batched)
	assert.Equal(t, batched, streamed, "streamed pairs must equal batch pairs as a multiset")
}

func TestSearchAll_ParentCancel(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	slow := &fakeEngine{name: "Slow", delay: 5 * time.Second}
	o := newTestOrchestrator(t, 10*time.Second, slow)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	run := o.SearchAll(ctx, "q", nil)
	res, ok := run.Get("Slow")
	require.True(t, ok)
	assert.Empty(t, res)
}

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/nexus-search/internal/httputil"
	"github.com/pdiddy/nexus-search/pkg/types"
)

// testHTTP disables retries so throttled responses fail fast.
var testHTTP = types.HTTPConfig{UserAgent: "nexus-test", MaxRetries: httputil.NoRetry}

// swap points *target at url for the duration of the test.
func swap(t *testing.T, target *string, url string) {
	t.Helper()
	old := *target
	*target = url
	t.Cleanup(func() { *target = old })
}

// --- SearXNG ---

func TestPickInstance_Deterministic(t *testing.T) {
	pool := types.DefaultSearXNGInstances
	for seed := uint64(0); seed < 20; seed++ {
		for attempt := 0; attempt < 3; attempt++ {
			a := PickInstance(pool, seed, attempt)
			b := PickInstance(pool, seed, attempt)
			if a != b {
				t.Errorf("PickInstance(seed=%d, attempt=%d) not stable: %q vs %q", seed, attempt, a, b)
			}
			if !contains(pool, a) {
				t.Errorf("PickInstance returned %q, not in pool", a)
			}
		}
	}
}

func TestPickInstance_EmptyPool(t *testing.T) {
	if got := PickInstance(nil, 1, 0); got != "" {
		t.Errorf("PickInstance(nil) = %q, want empty", got)
	}
}

func TestSearXNG_FirstInstanceAnswers(t *testing.T) {
	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		assert.Equal(t, "json", r.URL.Query().Get("format"))
		assert.Equal(t, "photosynthesis", r.URL.Query().Get("q"))
		fmt.Fprint(w, `{"results":[
			{"title":"Photosynthesis","content":"How plants make food","url":"https://example.org/p","engine":"bing","category":"general"},
			{"title":"","content":"untitled","url":"https://example.org/u"},
			{"title":"no link","content":"skipped"}
		]}`)
	}))
	defer ts.Close()

	e := &SearXNG{
		Client:    ts.Client(),
		HTTP:      testHTTP,
		Instances: fivePaths(ts.URL, "ok"),
		Attempts:  3,
		Seed:      func() uint64 { return 42 },
	}
	got := e.Search(context.Background(), "photosynthesis", 10)

	require.Len(t, got, 2)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	assert.Equal(t, "Photosynthesis", got[0].Title)
	assert.Equal(t, "How plants make food", got[0].Snippet)
	assert.Equal(t, "SearXNG", got[0].Source)
	assert.Equal(t, "bing", got[0].Metadata["engine"])
	assert.Equal(t, "No title", got[1].Title)
	assert.Equal(t, "unknown", got[1].Metadata["engine"])
}

func TestSearXNG_PoolExhausted(t *testing.T) {
	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer ts.Close()

	e := &SearXNG{
		Client:    ts.Client(),
		HTTP:      testHTTP,
		Instances: fivePaths(ts.URL, "down"),
		Attempts:  3,
		Seed:      func() uint64 { return 7 },
	}
	got := e.Search(context.Background(), "anything", 10)

	assert.NotNil(t, got)
	assert.Empty(t, got)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls), "one request per attempt, no per-instance retry")
}

func TestSearXNG_EmptyResultsTryNextInstance(t *testing.T) {
	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&calls, 1)
		fmt.Fprint(w, `{"results":[]}`)
	}))
	defer ts.Close()

	e := &SearXNG{Client: ts.Client(), HTTP: testHTTP, Instances: fivePaths(ts.URL, "empty"), Attempts: 2}
	assert.Empty(t, e.Search(context.Background(), "q", 5))
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestSearXNG_NoInstances(t *testing.T) {
	e := &SearXNG{HTTP: testHTTP}
	got := e.Search(context.Background(), "q", 5)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func fivePaths(base, tag string) []string {
	out := make([]string, 5)
	for i := range out {
		out[i] = fmt.Sprintf("%s/%s%d", base, tag, i)
	}
	return out
}

// --- DuckDuckGo ---

const duckduckgoPage = `<html><body>
<div class="result results_links result--ad">
  <a class="result__a" href="https://ads.example.com">Sponsored</a>
  <a class="result__snippet">Buy now</a>
</div>
<div class="result results_links web-result">
  <h2 class="result__title"><a class="result__a" href="//duckduckgo.com/l/?uddg=https%3A%2F%2Fen.wikipedia.org%2Fwiki%2FGo_(programming_language)&amp;rut=abc">Go (programming <b>language</b>)</a></h2>
  <a class="result__snippet" href="#">Go is a statically typed,
     compiled language.</a>
</div>
<div class="result results_links web-result">
  <a class="result__a" href="https://go.dev/">The Go Programming Language</a>
  <div class="result__snippet">Build simple, secure, scalable systems.</div>
</div>
<div class="result">
  <span>no link here</span>
</div>
</body></html>`

func TestParseDuckDuckGoHTML(t *testing.T) {
	got, err := parseDuckDuckGoHTML(duckduckgoPage, "DuckDuckGo", 10)
	require.NoError(t, err)

	want := []types.SearchResult{
		{
			Title:   "Go (programming language)",
			Snippet: "Go is a statically typed, compiled language.",
			URL:     "https://en.wikipedia.org/wiki/Go_(programming_language)",
			Source:  "DuckDuckGo",
		},
		{
			Title:   "The Go Programming Language",
			Snippet: "Build simple, secure, scalable systems.",
			URL:     "https://go.dev/",
			Source:  "DuckDuckGo",
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("parseDuckDuckGoHTML mismatch (-want +got):\n%s", diff)
	}
}

func TestParseDuckDuckGoHTML_MaxResults(t *testing.T) {
	got, err := parseDuckDuckGoHTML(duckduckgoPage, "DuckDuckGo", 1)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestUnwrapDuckDuckGoRedirect(t *testing.T) {
	tests := []struct {
		name string
		href string
		want string
	}{
		{"direct", "https://go.dev/", "https://go.dev/"},
		{"protocol relative", "//duckduckgo.com/l/?uddg=https%3A%2F%2Fgo.dev%2F", "https://go.dev/"},
		{"absolute", "https://duckduckgo.com/l/?uddg=https%3A%2F%2Fgo.dev%2Fdoc", "https://go.dev/doc"},
		{"missing target", "https://duckduckgo.com/l/?x=1", "https://duckduckgo.com/l/?x=1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := unwrapDuckDuckGoRedirect(tt.href); got != tt.want {
				t.Errorf("unwrapDuckDuckGoRedirect(%q) = %q, want %q", tt.href, got, tt.want)
			}
		})
	}
}

func TestDuckDuckGo_Search(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "golang", r.URL.Query().Get("q"))
		assert.Contains(t, r.Header.Get("User-Agent"), "Mozilla")
		fmt.Fprint(w, duckduckgoPage)
	}))
	defer ts.Close()
	swap(t, &duckduckgoHTMLBase, ts.URL+"/html/")

	e := &DuckDuckGo{Client: ts.Client(), HTTP: testHTTP}
	got := e.Search(context.Background(), "golang", 10)
	require.Len(t, got, 2)
	assert.Equal(t, KindWebIndex, e.Kind())
}

func TestDuckDuckGo_ServerError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer ts.Close()
	swap(t, &duckduckgoHTMLBase, ts.URL)

	e := &DuckDuckGo{Client: ts.Client(), HTTP: testHTTP}
	got := e.Search(context.Background(), "golang", 10)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

// --- Qwant ---

func TestQwant_Search(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "rust", q.Get("q"))
		assert.Equal(t, "3", q.Get("count"))
		assert.Equal(t, "en_US", q.Get("locale"))
		assert.Equal(t, "https://www.qwant.com/", r.Header.Get("Referer"))
		fmt.Fprint(w, `{"status":"success","data":{"result":{"items":[
			{"title":"Rust","desc":"A language empowering everyone","url":"https://www.rust-lang.org/","source":"rust-lang.org","favicon":"f.ico"},
			{"title":"","desc":"","url":"https://example.com/"},
			{"title":"dropped","desc":"no url"}
		]}}}`)
	}))
	defer ts.Close()
	swap(t, &qwantBaseURL, ts.URL)

	e := &Qwant{Client: ts.Client(), HTTP: testHTTP}
	got := e.Search(context.Background(), "rust", 3)
	require.Len(t, got, 2)
	assert.Equal(t, "Rust", got[0].Title)
	assert.Equal(t, "A language empowering everyone", got[0].Snippet)
	assert.Equal(t, "rust-lang.org", got[0].Metadata["source"])
	assert.Equal(t, "No title", got[1].Title)
	assert.Equal(t, "Qwant", got[1].Source)
}

func TestQwant_MalformedBody(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `<html>captcha</html>`)
	}))
	defer ts.Close()
	swap(t, &qwantBaseURL, ts.URL)

	e := &Qwant{Client: ts.Client(), HTTP: testHTTP}
	assert.Empty(t, e.Search(context.Background(), "rust", 3))
}

// --- Brave ---

func TestBrave_NoKeySkipsRequest(t *testing.T) {
	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))
	defer ts.Close()
	swap(t, &braveBaseURL, ts.URL)

	e := &Brave{Client: ts.Client(), HTTP: testHTTP}
	got := e.Search(context.Background(), "q", 10)
	assert.NotNil(t, got)
	assert.Empty(t, got)
	assert.Zero(t, atomic.LoadInt32(&calls))
}

func TestBrave_Search(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "secret", r.Header.Get("X-Subscription-Token"))
		assert.Equal(t, "20", r.URL.Query().Get("count"), "count is capped at 20")
		fmt.Fprint(w, `{"web":{"results":[
			{"title":"Brave","description":"Private search","url":"https://search.brave.com/","age":"2 days","language":"en"}
		]}}`)
	}))
	defer ts.Close()
	swap(t, &braveBaseURL, ts.URL)

	e := &Brave{Client: ts.Client(), HTTP: testHTTP, APIKey: "secret"}
	got := e.Search(context.Background(), "brave", 50)
	require.Len(t, got, 1)
	assert.Equal(t, "Private search", got[0].Snippet)
	assert.Equal(t, "2 days", got[0].Metadata["age"])
}

// --- Wikipedia ---

func TestWikipedia_Search(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "opensearch", q.Get("action"))
		assert.Equal(t, "photosynthesis", q.Get("search"))
		assert.Equal(t, "5", q.Get("limit"))
		assert.Equal(t, "nexus-test", r.Header.Get("User-Agent"))
		fmt.Fprint(w, `["photosynthesis",
			["Photosynthesis","Photosynthetic efficiency"],
			["Process used by plants",""],
			["https://en.wikipedia.org/wiki/Photosynthesis","https://en.wikipedia.org/wiki/Photosynthetic_efficiency"]]`)
	}))
	defer ts.Close()
	swap(t, &wikipediaAPIURL, ts.URL)

	e := &Wikipedia{Client: ts.Client(), HTTP: testHTTP}
	got := e.Search(context.Background(), "photosynthesis", 5)

	want := []types.SearchResult{
		{
			Title:    "Photosynthesis",
			Snippet:  "Process used by plants",
			URL:      "https://en.wikipedia.org/wiki/Photosynthesis",
			Source:   "Wikipedia",
			Metadata: map[string]any{"type": "article"},
		},
		{
			Title:    "Photosynthetic efficiency",
			Snippet:  "Wikipedia article for Photosynthetic efficiency",
			URL:      "https://en.wikipedia.org/wiki/Photosynthetic_efficiency",
			Source:   "Wikipedia",
			Metadata: map[string]any{"type": "article"},
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Wikipedia.Search mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, 5, e.Kind().Priority())
}

func TestWikipedia_ShortArray(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `["q",[]]`)
	}))
	defer ts.Close()
	swap(t, &wikipediaAPIURL, ts.URL)

	e := &Wikipedia{Client: ts.Client(), HTTP: testHTTP}
	got := e.Search(context.Background(), "q", 5)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

// --- Wikidata ---

func TestWikidata_Search(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sparql := r.URL.Query().Get("query")
		assert.Contains(t, sparql, `mwapi:search "Ada \"Countess\" Lovelace"`)
		assert.Contains(t, sparql, "LIMIT 4")
		fmt.Fprint(w, `{"results":{"bindings":[
			{"item":{"value":"http://www.wikidata.org/entity/Q7259"},"itemLabel":{"value":"Ada Lovelace"},"itemDescription":{"value":"English mathematician"}},
			{"item":{"value":"http://www.wikidata.org/entity/Q123"},"itemLabel":{"value":"Lovelace"}}
		]}}`)
	}))
	defer ts.Close()
	swap(t, &wikidataSPARQLURL, ts.URL)

	e := &Wikidata{Client: ts.Client(), HTTP: testHTTP}
	got := e.Search(context.Background(), `Ada "Countess" Lovelace`, 4)
	require.Len(t, got, 2)
	assert.Equal(t, "https://www.wikidata.org/wiki/Q7259", got[0].URL)
	assert.Equal(t, "English mathematician", got[0].Snippet)
	assert.Equal(t, "Q7259", got[0].Metadata["entity_id"])
	assert.Equal(t, "Wikidata entity: Lovelace", got[1].Snippet)
}

func TestEscapeSPARQL(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"plain", "plain"},
		{`say "hi"`, `say \"hi\"`},
		{`back\slash`, `back\\slash`},
		{"line\nbreak", `line\nbreak`},
	}
	for _, tt := range tests {
		if got := escapeSPARQL(tt.in); got != tt.want {
			t.Errorf("escapeSPARQL(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestKindPriority(t *testing.T) {
	tests := []struct {
		kind Kind
		want int
	}{
		{KindEncyclopedia, 5},
		{KindKnowledgeBase, 4},
		{KindMetasearch, 3},
		{KindWebIndex, 2},
		{KindOpenAPIIndex, 2},
		{KindUnknown, 1},
	}
	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			if got := tt.kind.Priority(); got != tt.want {
				t.Errorf("%s.Priority() = %d, want %d", tt.kind, got, tt.want)
			}
		})
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}

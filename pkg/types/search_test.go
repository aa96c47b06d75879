// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func res(source, url string) SearchResult {
	return SearchResult{Title: url, URL: url, Source: source}
}

// --- EngineRunResult ---

func TestEngineRunResult_Order(t *testing.T) {
	r := NewEngineRunResult()
	r.Set("Wikipedia", []SearchResult{res("Wikipedia", "w1")})
	r.Set("Qwant", []SearchResult{res("Qwant", "q1"), res("Qwant", "q2")})
	r.Set("Brave", nil)

	assert.Equal(t, []string{"Wikipedia", "Qwant", "Brave"}, r.Engines())
	assert.Equal(t, 3, r.Len())
	assert.Equal(t, 3, r.Total())

	got, ok := r.Get("Brave")
	require.True(t, ok)
	assert.NotNil(t, got, "nil results stored as empty")
	assert.Empty(t, got)

	_, ok = r.Get("SearXNG")
	assert.False(t, ok)
}

func TestEngineRunResult_SetReplaceKeepsPosition(t *testing.T) {
	r := NewEngineRunResult()
	r.Set("A", []SearchResult{res("A", "a1")})
	r.Set("B", []SearchResult{res("B", "b1")})
	r.Set("A", []SearchResult{res("A", "a2"), res("A", "a3")})

	assert.Equal(t, []string{"A", "B"}, r.Engines())
	want := []SearchResult{res("A", "a2"), res("A", "a3"), res("B", "b1")}
	if diff := cmp.Diff(want, r.Flatten()); diff != "" {
		t.Errorf("Flatten mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, map[string]int{"A": 2, "B": 1}, r.Counts())
}

func TestEngineRunResult_EnginesIsCopy(t *testing.T) {
	r := NewEngineRunResult()
	r.Set("A", nil)
	names := r.Engines()
	names[0] = "mutated"
	assert.Equal(t, []string{"A"}, r.Engines())
}

func TestEngineRunResult_MarshalJSON(t *testing.T) {
	r := NewEngineRunResult()
	r.Set("Zeta", nil)
	r.Set("Alpha", []SearchResult{{Title: "t", URL: "u", Source: "Alpha"}})

	data, err := json.Marshal(r)
	require.NoError(t, err)
	assert.JSONEq(t, `{"Zeta":[],"Alpha":[{"title":"t","snippet":"","url":"u","source":"Alpha","score":0}]}`, string(data))
	assert.Less(t, strings.Index(string(data), "Zeta"), strings.Index(string(data), "Alpha"), "engine order preserved")

	data, err = json.Marshal(NewEngineRunResult())
	require.NoError(t, err)
	assert.Equal(t, "{}", string(data))
}

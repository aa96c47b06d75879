// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package fusion merges the per-engine result lists of one query into a single
// ranked answer set. The pipeline is dedup, score, rank, truncate, summarize.
// Scoring is a fixed heuristic: a weighted sum of query relevance, source
// authority, cross-engine consensus, and snippet quality.
package fusion

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/pmezard/go-difflib/difflib"
	"go.uber.org/zap"

	"github.com/pdiddy/nexus-search/pkg/types"
)

// Score weights. They sum to 1 so the final score stays in [0,1].
const (
	WeightRelevance = 0.4
	WeightAuthority = 0.3
	WeightConsensus = 0.2
	WeightQuality   = 0.1
)

const (
	// MaxPriority is the highest authority priority; authority = priority / MaxPriority.
	MaxPriority = 5

	// DefaultPriority applies to sources missing from the priority table.
	DefaultPriority = 1

	// consensusEngines is the engine count at which consensus saturates.
	consensusEngines = 5

	// SimilarityThreshold is the snippet ratio above which a result is a
	// near-duplicate.
	SimilarityThreshold = 0.8

	// keyFindingLen is how many characters of the top snippet the summary quotes.
	keyFindingLen = 150

	// NoResults is the summary of an empty answer set.
	NoResults = "No results found."
)

// Synthesizer fuses engine output. Priorities maps an engine identifier to its
// authority priority (1..5); unknown engines get DefaultPriority.
type Synthesizer struct {
	Priorities map[string]int
	Logger     *zap.Logger
}

// New returns a synthesizer using the given source priorities.
func New(priorities map[string]int, logger *zap.Logger) *Synthesizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Synthesizer{Priorities: priorities, Logger: logger}
}

// Synthesize deduplicates, scores, ranks, and truncates the results of run
// and summarizes them. maxResults <= 0 keeps every result.
func (s *Synthesizer) Synthesize(query string, run *types.EngineRunResult, maxResults int) types.SynthesisOutput {
	if run == nil {
		run = types.NewEngineRunResult()
	}
	raw := run.Flatten()
	unique := s.Dedup(raw)
	ranked := Rank(s.Score(query, unique, run))
	if maxResults > 0 && len(ranked) > maxResults {
		ranked = ranked[:maxResults]
	}

	s.logger().Debug("fusion complete",
		zap.String("query", query),
		zap.Int("raw", len(raw)),
		zap.Int("unique", len(unique)),
		zap.Int("returned", len(ranked)))

	return types.SynthesisOutput{
		RankedResults: ranked,
		Summary:       Summarize(ranked, len(raw)),
		EngineStats:   run.Counts(),
		TotalRaw:      len(raw),
		TotalUnique:   len(unique),
	}
}

// Priority returns the authority priority of source.
func (s *Synthesizer) Priority(source string) int {
	if p, ok := s.Priorities[source]; ok {
		return p
	}
	return DefaultPriority
}

func (s *Synthesizer) logger() *zap.Logger {
	if s.Logger == nil {
		return zap.NewNop()
	}
	return s.Logger
}

// Dedup removes duplicates from results, keeping encounter order.
//
// Two results with the same canonical URL collapse to one: the result from
// the higher-priority source takes the slot, and on a tie the first seen
// stays. The winner keeps the loser's position rather than moving to the
// end, so it also keeps the earlier place when ranking breaks score ties. A result whose URL is new but whose snippet is more than
// SimilarityThreshold similar to an already accepted snippet is dropped;
// that check keeps the first accepted result regardless of priority.
func (s *Synthesizer) Dedup(results []types.SearchResult) []types.SearchResult {
	unique := make([]types.SearchResult, 0, len(results))
	byURL := make(map[string]int, len(results))

	for _, r := range results {
		key := NormalizeURL(r.URL)
		if i, ok := byURL[key]; ok {
			if s.Priority(r.Source) > s.Priority(unique[i].Source) {
				unique[i] = r
			}
			continue
		}

		duplicate := false
		for _, u := range unique {
			if SimilarSnippets(r.Snippet, u.Snippet) {
				duplicate = true
				break
			}
		}
		if duplicate {
			continue
		}

		byURL[key] = len(unique)
		unique = append(unique, r)
	}
	return unique
}

// Score computes the score breakdown and final score of every result.
// run supplies the per-engine lists used for consensus.
func (s *Synthesizer) Score(query string, results []types.SearchResult, run *types.EngineRunResult) []types.ScoredResult {
	queryWords := wordSet(query)

	engineURLs := make([]map[string]bool, 0, run.Len())
	for _, name := range run.Engines() {
		res, _ := run.Get(name)
		set := make(map[string]bool, len(res))
		for _, r := range res {
			set[NormalizeURL(r.URL)] = true
		}
		engineURLs = append(engineURLs, set)
	}

	scored := make([]types.ScoredResult, 0, len(results))
	for _, r := range results {
		b := types.ScoreBreakdown{
			Relevance: Relevance(queryWords, r),
			Authority: clamp01(float64(s.Priority(r.Source)) / MaxPriority),
			Consensus: consensus(NormalizeURL(r.URL), engineURLs),
			Quality:   Quality(r.Snippet),
		}
		scored = append(scored, types.ScoredResult{
			SearchResult: r,
			Scores:       b,
			FinalScore:   FinalScore(b),
		})
	}
	return scored
}

// FinalScore is the weighted sum of the four components.
func FinalScore(b types.ScoreBreakdown) float64 {
	return WeightRelevance*b.Relevance +
		WeightAuthority*b.Authority +
		WeightConsensus*b.Consensus +
		WeightQuality*b.Quality
}

// Relevance is the Jaccard similarity of the query's words and the words of
// the result's title and snippet. Words are lowercase, whitespace-separated.
func Relevance(queryWords map[string]bool, r types.SearchResult) float64 {
	text := wordSet(r.Title + " " + r.Snippet)
	union := len(text)
	inter := 0
	for w := range queryWords {
		if text[w] {
			inter++
		} else {
			union++
		}
	}
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

func consensus(key string, engineURLs []map[string]bool) float64 {
	count := 0
	for _, set := range engineURLs {
		if set[key] {
			count++
		}
	}
	return min(float64(count)/consensusEngines, 1.0)
}

// Quality buckets snippet length: empty 0, under 50 characters 0.3, under
// 150 characters 0.7, otherwise 1.
func Quality(snippet string) float64 {
	switch n := utf8.RuneCountInString(snippet); {
	case n == 0:
		return 0
	case n < 50:
		return 0.3
	case n < 150:
		return 0.7
	default:
		return 1
	}
}

// Rank orders results by final score, highest first. Equal scores keep
// their input order.
func Rank(scored []types.ScoredResult) []types.ScoredResult {
	ranked := make([]types.ScoredResult, len(scored))
	copy(ranked, scored)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].FinalScore > ranked[j].FinalScore
	})
	return ranked
}

// Summarize describes a ranked answer set in one paragraph. totalRaw is the
// pre-dedup result count across all engines.
func Summarize(ranked []types.ScoredResult, totalRaw int) string {
	if len(ranked) == 0 {
		return NoResults
	}

	var sources []string
	seen := map[string]bool{}
	for _, r := range ranked[:min(3, len(ranked))] {
		if !seen[r.Source] {
			seen[r.Source] = true
			sources = append(sources, r.Source)
		}
	}

	return fmt.Sprintf("Found %d relevant results from %d total sources. Top information from: %s. Key finding: %s...",
		len(ranked), totalRaw, strings.Join(sources, ", "), truncateRunes(ranked[0].Snippet, keyFindingLen))
}

// schemeRe matches a leading URL scheme such as "https://".
var schemeRe = regexp.MustCompile(`^[a-z][a-z0-9+.-]*://`)

// NormalizeURL returns the canonical dedup key of a URL: lowercase, with the
// scheme, a leading "www.", the query string, the fragment, and trailing
// slashes removed. NormalizeURL(NormalizeURL(u)) == NormalizeURL(u).
func NormalizeURL(raw string) string {
	u := strings.ToLower(strings.TrimSpace(raw))
	if i := strings.IndexAny(u, "?#"); i >= 0 {
		u = u[:i]
	}
	for {
		before := u
		u = schemeRe.ReplaceAllLiteralString(u, "")
		u = strings.TrimPrefix(u, "www.")
		if u == before {
			break
		}
	}
	return strings.TrimRight(u, "/")
}

// SimilarSnippets reports whether two snippets are near-duplicates. Empty
// snippets are never similar.
func SimilarSnippets(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	return SnippetSimilarity(a, b) > SimilarityThreshold
}

// SnippetSimilarity is the case-insensitive character sequence-match ratio
// of a and b, in [0,1].
func SnippetSimilarity(a, b string) float64 {
	m := difflib.NewMatcher(chars(strings.ToLower(a)), chars(strings.ToLower(b)))
	return m.Ratio()
}

func chars(s string) []string {
	out := make([]string, 0, len(s))
	for _, r := range s {
		out = append(out, string(r))
	}
	return out
}

func clamp01(v float64) float64 {
	return max(0, min(v, 1))
}

func wordSet(s string) map[string]bool {
	set := map[string]bool{}
	for _, w := range strings.Fields(strings.ToLower(s)) {
		set[w] = true
	}
	return set
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n])
}

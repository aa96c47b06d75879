// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package planner breaks a user query into a short list of focused
// sub-queries, one per engine slot. RulePlanner is deterministic and always
// available; LLMPlanner asks a local model and falls back to RulePlanner on
// any failure. New picks one of the two once, based on a liveness probe.
package planner

import (
	"context"
	"regexp"
	"strings"
	"unicode/utf8"
)

// MaxSubQueries caps every plan, the original query included.
const MaxSubQueries = 5

// Planner turns one query into an ordered list of sub-queries. The first
// entry is always the query itself.
type Planner interface {
	Breakdown(ctx context.Context, query string) []string
}

// Intent is the coarse question type of a query.
type Intent string

const (
	IntentPerson     Intent = "person"
	IntentLocation   Intent = "location"
	IntentTime       Intent = "time"
	IntentDefinition Intent = "definition"
	IntentHow        Intent = "how"
	IntentWhy        Intent = "why"
	IntentGeneral    Intent = "general"
)

// Factual reports whether the intent asks for a fact about a person, place,
// or date.
func (i Intent) Factual() bool {
	return i == IntentPerson || i == IntentLocation || i == IntentTime
}

// intentPatterns are tested in order; the first match wins.
var intentPatterns = []struct {
	intent Intent
	re     *regexp.Regexp
}{
	{IntentPerson, wordPattern("who", "person", "people", "scientist", "artist", "leader")},
	{IntentLocation, wordPattern("where", "place", "city", "country", "location")},
	{IntentTime, wordPattern("when", "date", "year", "time", "period", "age", "era")},
	{IntentDefinition, wordPattern("what is", "define", "meaning", "definition")},
	{IntentHow, wordPattern("how", "process", "method", "way")},
	{IntentWhy, wordPattern("why", "reason", "cause", "purpose")},
}

// wordPattern matches any of words as a whole word, case-insensitively.
// RE2's \b only knows ASCII word characters, so the boundaries are spelled
// out over Unicode letters and digits: "whoá" is not "who".
func wordPattern(words ...string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)(?:^|[^\p{L}\p{N}_])(?:` + strings.Join(words, "|") + `)(?:$|[^\p{L}\p{N}_])`)
}

// mainTermPatterns extract the subject of a definition question.
var mainTermPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)what is (?:a |an |the )?(.+?)(?:\?|$)`),
	regexp.MustCompile(`(?i)define (.+?)(?:\?|$)`),
	regexp.MustCompile(`(?i)explain (.+?)(?:\?|$)`),
}

var wordRe = regexp.MustCompile(`[\p{L}\p{N}_]+`)

var stopWords = map[string]bool{
	"a": true, "an": true, "the": true, "is": true, "are": true, "was": true,
	"were": true, "be": true, "been": true, "being": true, "have": true,
	"has": true, "had": true, "do": true, "does": true, "did": true,
	"what": true, "which": true, "who": true, "when": true, "where": true,
	"why": true, "how": true, "and": true, "or": true, "but": true, "in": true,
	"on": true, "at": true, "to": true, "for": true, "of": true, "with": true,
	"from": true, "about": true, "can": true, "could": true, "should": true,
	"would": true,
}

// DetectIntent classifies query by the first matching intent pattern.
func DetectIntent(query string) Intent {
	for _, p := range intentPatterns {
		if p.re.MatchString(query) {
			return p.intent
		}
	}
	return IntentGeneral
}

// Keywords returns the lowercase content words of query in order: stop words
// and words of two characters or fewer are dropped.
func Keywords(query string) []string {
	var out []string
	for _, w := range wordRe.FindAllString(strings.ToLower(query), -1) {
		if stopWords[w] || utf8.RuneCountInString(w) <= 2 {
			continue
		}
		out = append(out, w)
	}
	return out
}

// MainTerm extracts the subject of "what is X", "define X", or "explain X".
// It returns "" when no pattern matches.
func MainTerm(query string) string {
	for _, re := range mainTermPatterns {
		if m := re.FindStringSubmatch(query); m != nil {
			return strings.TrimSpace(m[1])
		}
	}
	return ""
}

// RulePlanner generates sub-queries from intent-specific templates.
type RulePlanner struct{}

// Breakdown returns the query followed by template variants, deduplicated
// case-insensitively and capped at MaxSubQueries.
func (RulePlanner) Breakdown(_ context.Context, query string) []string {
	subs := []string{query}
	keywords := Keywords(query)

	switch intent := DetectIntent(query); {
	case intent == IntentDefinition:
		if term := MainTerm(query); term != "" {
			subs = append(subs,
				term+" definition",
				term+" explanation",
				term+" examples")
		}
	case intent == IntentHow:
		subs = append(subs,
			query+" tutorial",
			query+" guide",
			query+" step by step")
	case intent.Factual():
		if len(keywords) > 0 {
			subs = append(subs,
				strings.Join(keywords[:min(3, len(keywords))], " "),
				keywords[0]+" facts")
		}
	default:
		if len(keywords) > 2 {
			subs = append(subs,
				strings.Join(keywords[:2], " "),
				strings.Join(keywords[len(keywords)-2:], " "))
			for _, kw := range keywords[:3] {
				subs = append(subs, kw+" overview")
			}
		}
	}

	return dedupe(subs, MaxSubQueries)
}

// dedupe keeps the first occurrence of each case-insensitive, trimmed entry,
// up to limit entries.
func dedupe(queries []string, limit int) []string {
	seen := make(map[string]bool, len(queries))
	out := make([]string, 0, min(len(queries), limit))
	for _, q := range queries {
		key := strings.ToLower(strings.TrimSpace(q))
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, q)
		if len(out) == limit {
			break
		}
	}
	return out
}

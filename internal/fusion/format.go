// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package fusion

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/nexus-search/pkg/types"
)

// FormatTable writes ranked results as a human-readable table to w, followed
// by the summary and per-engine counts.
func FormatTable(out types.SynthesisOutput, w io.Writer) {
	if len(out.RankedResults) == 0 {
		fmt.Fprintln(w, NoResults)
		writeEngineStats(out, w)
		return
	}

	fmt.Fprintf(w, "%-4s  %-50s  %-12s  %-6s  %s\n",
		"Rank", "Title", "Source", "Score", "URL")
	fmt.Fprintln(w, strings.Repeat("-", 110))

	for i, r := range out.RankedResults {
		fmt.Fprintf(w, "%-4d  %-50s  %-12s  %-6.3f  %s\n",
			i+1, truncate(r.Title, 50), truncate(r.Source, 12), r.FinalScore, r.URL)
	}

	fmt.Fprintf(w, "\n%d results (%d raw, %d unique)\n", len(out.RankedResults), out.TotalRaw, out.TotalUnique)
	fmt.Fprintln(w, out.Summary)
	writeEngineStats(out, w)
}

func writeEngineStats(out types.SynthesisOutput, w io.Writer) {
	if len(out.EngineStats) == 0 {
		return
	}
	names := make([]string, 0, len(out.EngineStats))
	for name := range out.EngineStats {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = fmt.Sprintf("%s=%d", name, out.EngineStats[name])
	}
	fmt.Fprintf(w, "engines: %s\n", strings.Join(parts, " "))
}

// FormatJSON writes the synthesis as indented JSON to w.
func FormatJSON(out types.SynthesisOutput, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

// FormatYAML writes the synthesis as YAML to w.
func FormatYAML(out types.SynthesisOutput, w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("encoding yaml: %w", err)
	}
	return enc.Close()
}

// Format writes out in the named format: "table", "json", or "yaml".
func Format(out types.SynthesisOutput, format string, w io.Writer) error {
	switch format {
	case "", "table":
		FormatTable(out, w)
		return nil
	case "json":
		return FormatJSON(out, w)
	case "yaml":
		return FormatYAML(out, w)
	default:
		return fmt.Errorf("unknown format %q (want table, json, or yaml)", format)
	}
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/nexus-search/internal/fusion"
	"github.com/pdiddy/nexus-search/internal/pipeline"
	"github.com/pdiddy/nexus-search/internal/planner"
	"github.com/pdiddy/nexus-search/internal/search"
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search every engine and print fused results",
	Long: `Search breaks the query into sub-queries, sends them to every enabled
engine concurrently, and prints one deduplicated, ranked result list.

Use --stream to watch engines report as they finish, --queries-file to run
many queries in one go, and --output to save a YAML report that
--from-report can print again later without searching.`,
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().Int("max-results", 0, "number of fused results (default from config, 15)")
	searchCmd.Flags().String("format", "table", "output format: table, json, or yaml")
	searchCmd.Flags().Bool("stream", false, "print per-engine progress while searching")
	searchCmd.Flags().String("output", "", "save the results as a YAML report")
	searchCmd.Flags().String("queries-file", "", "file with one query per line")
	searchCmd.Flags().Int("concurrency", 4, "queries run at once with --queries-file")
	searchCmd.Flags().String("from-report", "", "print a saved report instead of searching")
	searchCmd.Flags().Bool("advice", false, "attach query analysis and sufficiency advice")

	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")
	out := cmd.OutOrStdout()

	if path, _ := cmd.Flags().GetString("from-report"); path != "" {
		r, err := fusion.ReadReport(path)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Query: %s (saved %s)\n\n", r.Query, r.Timestamp.Format("2006-01-02 15:04"))
		return fusion.Format(r.Output, format, out)
	}

	queriesFile, _ := cmd.Flags().GetString("queries-file")
	query := strings.TrimSpace(strings.Join(args, " "))
	if query == "" && queriesFile == "" {
		return fmt.Errorf("provide a query or --queries-file")
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if advice, _ := cmd.Flags().GetBool("advice"); advice {
		cfg.LLM.Advice = true
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	p, err := pipeline.Build(ctx, cfg, nil, logger)
	if err != nil {
		return err
	}
	maxResults, _ := cmd.Flags().GetInt("max-results")

	if queriesFile != "" {
		concurrency, _ := cmd.Flags().GetInt("concurrency")
		return searchBatch(ctx, p, queriesFile, maxResults, concurrency, format, out)
	}

	var resp *pipeline.Response
	if stream, _ := cmd.Flags().GetBool("stream"); stream {
		resp, err = searchStream(ctx, p, pipeline.Request{Query: query, MaxResults: maxResults}, cmd.ErrOrStderr())
	} else {
		resp, err = p.Run(ctx, pipeline.Request{Query: query, MaxResults: maxResults})
	}
	if err != nil {
		return err
	}

	if err := printResponse(resp, format, out); err != nil {
		return err
	}

	if path, _ := cmd.Flags().GetString("output"); path != "" {
		r := fusion.Report{
			Query:      resp.Query,
			SubQueries: resp.SubQueries,
			Config: fusion.ReportConfig{
				MaxResults: p.Limit(maxResults),
				Engines:    engineNames(p.Orchestrator.Engines()),
				Planner:    planner.Describe(p.Planner),
			},
			Output: resp.SynthesisOutput,
		}
		if err := fusion.WriteReport(path, r); err != nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Report saved to %s\n", path)
	}
	return nil
}

// searchStream runs one query in streaming mode, reporting progress on w.
func searchStream(ctx context.Context, p *pipeline.Pipeline, req pipeline.Request, w io.Writer) (*pipeline.Response, error) {
	var resp *pipeline.Response
	err := p.RunStream(ctx, req, func(e pipeline.Event) error {
		switch e.Type {
		case pipeline.EventStatus:
			fmt.Fprintln(w, e.Message)
		case pipeline.EventBreakdown:
			fmt.Fprintf(w, "  sub-queries: %s\n", strings.Join(e.SubQueries, " | "))
		case pipeline.EventEngineComplete:
			fmt.Fprintf(w, "  %-12s %d results\n", e.Engine, *e.Count)
		case pipeline.EventComplete:
			resp = e.Response
		}
		return nil
	})
	return resp, err
}

// searchBatch runs every query in path and prints each result set.
func searchBatch(ctx context.Context, p *pipeline.Pipeline, path string, maxResults, concurrency int, format string, w io.Writer) error {
	queries, err := readQueries(path)
	if err != nil {
		return err
	}
	if len(queries) == 0 {
		return fmt.Errorf("no queries in %s", path)
	}

	results, err := p.RunBatch(ctx, queries, maxResults, concurrency)
	if err != nil {
		return err
	}

	failed := 0
	for _, r := range results {
		fmt.Fprintf(w, "== %s ==\n", r.Query)
		if r.Err != nil {
			failed++
			fmt.Fprintf(w, "error: %v\n\n", r.Err)
			continue
		}
		if err := printResponse(r.Response, format, w); err != nil {
			return err
		}
		fmt.Fprintln(w)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d queries failed", failed, len(results))
	}
	return nil
}

// readQueries returns the non-blank lines of path, skipping # comments.
func readQueries(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening queries file: %w", err)
	}
	defer f.Close()

	var queries []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		queries = append(queries, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading queries file: %w", err)
	}
	return queries, nil
}

// printResponse writes resp as a table with a header, or as the full
// response document in JSON or YAML.
func printResponse(resp *pipeline.Response, format string, w io.Writer) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(resp); err != nil {
			return fmt.Errorf("encoding yaml: %w", err)
		}
		return enc.Close()
	case "", "table":
	default:
		return fmt.Errorf("unknown format %q (want table, json, or yaml)", format)
	}
	fmt.Fprintf(w, "Query: %s\nSub-queries: %s\n\n", resp.Query, strings.Join(resp.SubQueries, " | "))
	fusion.FormatTable(resp.SynthesisOutput, w)
	if a := resp.Advice; a != nil {
		fmt.Fprintf(w, "\nIntent: %s (complexity %s, realtime %t)\n",
			a.Analysis.Intent, a.Analysis.Complexity, a.Analysis.NeedsRealtimeData)
		fmt.Fprintf(w, "Sufficient: %t, next: %s\n", a.Evaluation.Sufficient, a.Evaluation.SuggestedAction)
		if a.Evaluation.RefinementQuery != "" {
			fmt.Fprintf(w, "Try: %s\n", a.Evaluation.RefinementQuery)
		}
	}
	return nil
}

func engineNames(engines []search.Engine) []string {
	names := make([]string, len(engines))
	for i, e := range engines {
		names[i] = e.Name()
	}
	return names
}

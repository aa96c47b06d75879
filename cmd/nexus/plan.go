// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/nexus-search/internal/llm"
	"github.com/pdiddy/nexus-search/internal/planner"
)

var planCmd = &cobra.Command{
	Use:   "plan [query]",
	Short: "Show how a query would be broken into sub-queries",
	Long: `Plan prints the detected intent, the keywords, and the sub-queries a
search would send, without contacting any search engine. The Ollama model is
probed once and used when it answers.`,
	RunE: runPlan,
}

func init() {
	rootCmd.AddCommand(planCmd)
}

func runPlan(cmd *cobra.Command, args []string) error {
	query := strings.TrimSpace(strings.Join(args, " "))
	if query == "" {
		return fmt.Errorf("provide a query")
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	var backend planner.Backend
	if cfg.LLM.Enabled {
		c, err := llm.New(cfg.LLM, nil, logger)
		if err != nil {
			return err
		}
		backend = c
	}
	p := planner.New(ctx, cfg.LLM, backend, logger)

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Query:    %s\n", query)
	fmt.Fprintf(out, "Intent:   %s\n", planner.DetectIntent(query))
	fmt.Fprintf(out, "Keywords: %s\n", strings.Join(planner.Keywords(query), ", "))
	fmt.Fprintf(out, "Planner:  %s\n\n", planner.Describe(p))
	for i, sub := range p.Breakdown(ctx, query) {
		fmt.Fprintf(out, "%d. %s\n", i+1, sub)
	}
	return nil
}

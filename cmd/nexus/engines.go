// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pdiddy/nexus-search/internal/search"
)

var enginesCmd = &cobra.Command{
	Use:   "engines",
	Short: "List the enabled search engines",
	Long: `Engines lists the engines a search would query, in registration order,
with the kind of index each serves and its authority priority in ranking.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		reg, err := search.Build(nil, cfg.Search, logger)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%-12s  %-15s  %s\n", "Engine", "Kind", "Priority")
		for _, e := range reg.Engines() {
			fmt.Fprintf(out, "%-12s  %-15s  %d\n", e.Name(), e.Kind(), e.Kind().Priority())
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(enginesCmd)
}

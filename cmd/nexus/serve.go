// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/pdiddy/nexus-search/internal/pipeline"
	"github.com/pdiddy/nexus-search/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve search over HTTP and WebSocket",
	Long: `Serve starts the HTTP service: GET /health, POST /search for blocking
searches, and GET /ws/process for streamed searches that report each engine
as it finishes. SIGINT or SIGTERM shuts it down gracefully.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().Int("port", 0, "listen port (default from config, 8000)")
	_ = viper.BindPFlag("server.port", serveCmd.Flags().Lookup("port"))

	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	p, err := pipeline.Build(ctx, cfg, nil, logger)
	if err != nil {
		return err
	}
	info := server.Info{
		Name:    "nexus-search",
		Version: version,
		Engines: engineNames(p.Orchestrator.Engines()),
	}
	logger.Info("starting nexus",
		zap.Int("port", cfg.Server.Port),
		zap.Strings("engines", info.Engines),
		zap.Bool("advice", p.Advisor != nil))
	return server.New(p, info, cfg.Server, logger).ListenAndServe(ctx)
}

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the nexus CLI: multi-engine web search
// with result fusion, as a one-shot command or an HTTP/WebSocket service.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/pdiddy/nexus-search/internal/logging"
	"github.com/pdiddy/nexus-search/internal/secrets"
	"github.com/pdiddy/nexus-search/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// loadedSecrets holds API keys loaded from .secrets/ at startup.
var loadedSecrets map[string]string

// logger is built from configuration before any command runs.
var logger = zap.NewNop()

// rootCmd is the base command for the nexus CLI.
var rootCmd = &cobra.Command{
	Use:   "nexus",
	Short: "Search many engines at once and fuse the results",
	Long: `nexus sends a query to several independent search backends (SearXNG,
DuckDuckGo, Qwant, Wikipedia, Wikidata, and Brave when a key is configured),
then deduplicates, scores, and ranks the combined results.

Queries are broken into focused sub-queries first, by a local Ollama model
when one is reachable and by fixed rules otherwise.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		l, err := logging.New(cfg.Log)
		if err != nil {
			return err
		}
		logger = l

		dir, _ := cmd.Flags().GetString("secrets-dir")
		s, err := secrets.Load(dir, logger)
		if err != nil {
			return err
		}
		loadedSecrets = s
		if len(s) > 0 {
			keys := make([]string, 0, len(s))
			for k := range s {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			logger.Debug("loaded secrets", zap.Strings("keys", keys))
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./nexus.yaml or ~/.config/nexus/nexus.yaml)")
	rootCmd.PersistentFlags().String("secrets-dir", secrets.DefaultDir, "directory of API key files")
	rootCmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().Bool("no-llm", false, "never consult the Ollama model")

	_ = viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("nexus")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "nexus"))
		}
	}

	viper.SetEnvPrefix("NEXUS")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	setDefaults(viper.GetViper(), types.DefaultConfig())

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// setDefaults registers every configuration key so that NEXUS_* variables
// reach viper.Unmarshal even when the config file does not mention them.
func setDefaults(v *viper.Viper, d types.Config) {
	v.SetDefault("search.timeout", d.Search.Timeout)
	v.SetDefault("search.user_agent", d.Search.UserAgent)
	v.SetDefault("search.max_retries", d.Search.MaxRetries)
	v.SetDefault("search.engines", d.Search.Engines)
	v.SetDefault("search.engine_timeout", d.Search.EngineTimeout)
	v.SetDefault("search.stream_timeout", d.Search.StreamTimeout)
	v.SetDefault("search.max_results_per_engine", d.Search.MaxResultsPerEngine)
	v.SetDefault("search.default_results", d.Search.DefaultResults)
	v.SetDefault("search.max_total_results", d.Search.MaxTotalResults)
	v.SetDefault("search.searxng_instances", d.Search.SearXNGInstances)
	v.SetDefault("search.searxng_attempts", d.Search.SearXNGAttempts)
	v.SetDefault("search.brave_api_key", d.Search.BraveAPIKey)
	v.SetDefault("search.openalex_email", d.Search.OpenAlexEmail)

	v.SetDefault("llm.enabled", d.LLM.Enabled)
	v.SetDefault("llm.host", d.LLM.Host)
	v.SetDefault("llm.model", d.LLM.Model)
	v.SetDefault("llm.probe_timeout", d.LLM.ProbeTimeout)
	v.SetDefault("llm.plan_timeout", d.LLM.PlanTimeout)
	v.SetDefault("llm.advice_timeout", d.LLM.AdviceTimeout)
	v.SetDefault("llm.advice", d.LLM.Advice)

	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.allowed_origins", d.Server.AllowedOrigins)
	v.SetDefault("server.shutdown_timeout", d.Server.ShutdownTimeout)

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.encoding", d.Log.Encoding)
}

// loadConfig decodes the merged defaults, config file, environment, and
// bound flags, then layers in key files from the secrets directory. cmd is
// the executing command; its --no-llm flag disables the model.
func loadConfig(cmd *cobra.Command) (types.Config, error) {
	cfg := types.DefaultConfig()
	if err := viper.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("decoding configuration: %w", err)
	}
	secrets.Apply(&cfg, loadedSecrets)
	if noLLM, _ := cmd.Flags().GetBool("no-llm"); noLLM {
		cfg.LLM.Enabled = false
	}
	return cfg, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

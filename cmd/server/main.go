// Smart Fetcher: resource search over a generated catalog.
//
// This is the main entry point for the smart-fetcher service. It provides:
//   - Exact-tag semantic search (/search)
//   - Natural-language search with verified links (/nl/search)
//   - The experimental retrieval agent (/experimental/agent)
//   - An MCP endpoint exposing the agent tools (/mcp)
//   - Dataset validation (smartfetcher dataset validate)
package main

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/smartfetcher/smartfetcher/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:           "smartfetcher",
	Short:         "Smart resource fetcher",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		cfg = config.Load()
		setupLogging(cfg.Log)
	},
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd, datasetCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("Command failed")
		os.Exit(1)
	}
}

// setupLogging configures the global zerolog logger.
func setupLogging(lc config.LogConfig) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if lc.Format != "json" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}

	level, err := zerolog.ParseLevel(lc.Level)
	if err != nil || level == zerolog.NoLevel {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
		log.Warn().Str("level", lc.Level).Msg("Unknown LOG_LEVEL, using info")
		return
	}
	zerolog.SetGlobalLevel(level)
}

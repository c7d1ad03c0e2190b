// Package main provides the bibcheck CLI entry point.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/matsen/bibcheck/internal/config"
	"github.com/matsen/bibcheck/internal/logging"
)

// Version is set at build time via ldflags
var Version = "dev"

var (
	// humanOutput controls whether to use human-readable output
	humanOutput bool

	configPath  string
	logLevel    string
	metricsFile string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		// Print the error since we have SilenceErrors: true
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(ExitError)
	}
}

var rootCmd = &cobra.Command{
	Use:   "bibcheck",
	Short: "Verify bibliographies against library catalogs",
	Long: `bibcheck checks bibliographic references against public catalogs.

Core features:
  - Cascading verification (BnF, HAL, OpenLibrary, CrossRef, OpenAlex)
  - Retraction detection and hallucination-risk scoring
  - Duplicate detection and CSL-JSON format validation
  - Quality reports with a 0-100 score
  - A relay service forwarding browser requests to INIST Biblio-Ref

Input is a CSL-JSON array or one CSL-JSON object per line.
All commands output JSON by default for scripting.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	// A .env file in the working directory may provide BIBCHECK_* variables.
	_ = godotenv.Load()

	rootCmd.PersistentFlags().BoolVar(&humanOutput, "human", false, "Use human-readable output instead of JSON")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default $XDG_CONFIG_HOME/bibcheck/config.yml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error (overrides config)")
	rootCmd.PersistentFlags().StringVar(&metricsFile, "metrics-file", "", "Write catalog and verification counters to this file (Prometheus text format)")
	rootCmd.Version = Version
}

// mustLoadConfig loads, overlays and validates the configuration, exits on error.
func mustLoadConfig() *config.Config {
	cfg, err := config.Load(configPath)
	if err != nil {
		exitWithError(ExitConfigError, "loading config: %v", err)
	}
	cfg.ApplyEnv()
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if err := cfg.Validate(); err != nil {
		exitWithError(ExitConfigError, "invalid config: %v", err)
	}
	return cfg
}

// mustNewLogger builds the stderr logger for cfg, exits on error.
func mustNewLogger(cfg *config.Config) *zap.Logger {
	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		exitWithError(ExitConfigError, "building logger: %v", err)
	}
	return logger
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

package main

import (
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/matsen/bibcheck/internal/config"
)

var (
	configInit  bool
	configForce bool
)

func init() {
	configCmd.Flags().BoolVar(&configInit, "init", false, "Write the default configuration to the config file")
	configCmd.Flags().BoolVar(&configForce, "force", false, "With --init, overwrite an existing file")
	rootCmd.AddCommand(configCmd)
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or initialize the configuration",
	Long: `Show the effective configuration (file, then BIBCHECK_* environment
variables), or write the defaults with --init.

Usage:
  bibcheck config                     # Show effective config as JSON
  bibcheck config --human             # Show effective config as YAML
  bibcheck config --init              # Create $XDG_CONFIG_HOME/bibcheck/config.yml
  bibcheck config --init --config ./bibcheck.yml`,
	Args: cobra.NoArgs,
	RunE: runConfig,
}

func runConfig(cmd *cobra.Command, args []string) error {
	if configInit {
		return initConfig()
	}

	cfg := mustLoadConfig()
	if humanOutput {
		data, err := yaml.Marshal(cfg)
		if err != nil {
			exitWithError(ExitError, "encoding config: %v", err)
		}
		os.Stdout.Write(data)
		return nil
	}
	return outputJSON(cfg)
}

func initConfig() error {
	path := configPath
	if path == "" {
		path = config.Path()
	}
	if path == "" {
		exitWithError(ExitConfigError, "cannot determine config path; pass --config")
	}
	path = config.ExpandPath(path)

	if _, err := os.Stat(path); err == nil && !configForce {
		exitWithError(ExitConfigError, "%s already exists (use --force to overwrite)", path)
	}
	if err := config.Default().Save(path); err != nil {
		exitWithError(ExitError, "writing config: %v", err)
	}

	if humanOutput {
		outputHuman("Wrote default config to %s\n", path)
		return nil
	}
	return outputJSON(StatusResponse{Status: "created", Path: path})
}

package main

import (
	"github.com/spf13/cobra"

	"github.com/matsen/bibcheck/internal/metrics"
	"github.com/matsen/bibcheck/internal/relay"
)

var relayAddr string

func init() {
	relayCmd.Flags().StringVar(&relayAddr, "addr", "", "Listen address (overrides config relay.addr)")
	rootCmd.AddCommand(relayCmd)
}

var relayCmd = &cobra.Command{
	Use:   "relay",
	Short: "Run the INIST relay for browser front ends",
	Long: `Serve GET /health, POST /v1/validate and GET /metrics. Validate requests
are forwarded unchanged to the INIST Biblio-Ref service so that browser
front ends can reach it across origins.

Examples:
  bibcheck relay
  bibcheck relay --addr :3001
  BIBCHECK_INIST_URL=http://localhost:9000/v1/validate bibcheck relay`,
	Args: cobra.NoArgs,
	RunE: runRelay,
}

func runRelay(cmd *cobra.Command, args []string) error {
	cfg := mustLoadConfig()
	logger := mustNewLogger(cfg)
	defer logger.Sync()

	addr := cfg.Relay.Addr
	if relayAddr != "" {
		addr = relayAddr
	}

	srv := relay.New(
		relay.WithINISTURL(cfg.Relay.INISTURL),
		relay.WithTimeout(cfg.Relay.Timeout),
		relay.WithAllowedOrigins(cfg.Relay.AllowedOrigins),
		relay.WithLogger(logger.Named("relay")),
		relay.WithMetrics(metrics.New()),
	)

	ctx, cancel := signalContext()
	defer cancel()

	if err := srv.Run(ctx, addr); err != nil {
		exitWithError(ExitError, "%v", err)
	}
	return nil
}

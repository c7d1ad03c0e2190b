package main

import (
	"errors"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/matsen/bibcheck/internal/reference"
	"github.com/matsen/bibcheck/internal/storage"
)

var (
	verifyRaw string
	verifyOut string
)

func init() {
	verifyCmd.Flags().StringVar(&verifyRaw, "raw", "", "Verify one unparsed reference string instead of a file")
	verifyCmd.Flags().StringVarP(&verifyOut, "out", "o", "", "Write results as JSONL to this file")
	rootCmd.AddCommand(verifyCmd)
}

var verifyCmd = &cobra.Command{
	Use:   "verify [file]",
	Short: "Verify entries against the catalog cascade",
	Long: `Verify each entry against the configured catalogs, in order, and keep the
best match. Use "-" to read entries from stdin.

Examples:
  bibcheck verify refs.json
  bibcheck verify refs.jsonl --out results.jsonl
  cat refs.json | bibcheck verify - --human
  bibcheck verify --raw "Arendt H. The Human Condition. Chicago, 1958."`,
	Args: cobra.MaximumNArgs(1),
	RunE: runVerify,
}

// VerifySummary counts results by status.
type VerifySummary struct {
	Total     int    `json:"total"`
	Verified  int    `json:"verified"`
	Uncertain int    `json:"uncertain"`
	NotFound  int    `json:"not_found"`
	Path      string `json:"path,omitempty"`
}

func summarizeResults(results []reference.VerificationResult) VerifySummary {
	s := VerifySummary{Total: len(results)}
	for _, r := range results {
		switch r.Status {
		case reference.StatusVerified:
			s.Verified++
		case reference.StatusUncertain:
			s.Uncertain++
		default:
			s.NotFound++
		}
	}
	return s
}

func runVerify(cmd *cobra.Command, args []string) error {
	if verifyRaw == "" && len(args) == 0 {
		return errors.New("requires a file argument or --raw")
	}

	cfg := mustLoadConfig()
	logger := mustNewLogger(cfg)
	defer logger.Sync()

	m := cliMetrics()
	defer flushMetrics(m, logger)
	v, err := newVerifier(cfg, logger, m)
	if err != nil {
		exitWithError(ExitConfigError, "building verifier: %v", err)
	}

	ctx, cancel := signalContext()
	defer cancel()

	if verifyRaw != "" {
		res := v.VerifyRaw(ctx, verifyRaw)
		if humanOutput {
			outputHuman("%s: %s\n", res.Match.Status, formatCandidate(res.Candidate))
			if len(res.Match.Matched) > 0 {
				outputHuman("  matched: %v\n", res.Match.Matched)
			}
			return nil
		}
		return outputJSON(res)
	}

	entries, err := storage.LoadEntries(args[0])
	if err != nil {
		exitWithError(ExitDataError, "loading entries: %v", err)
	}

	results, err := v.VerifyBibliography(ctx, entries)
	if err != nil {
		logger.Warn("verification interrupted", zap.Error(err))
	}

	summary := summarizeResults(results)
	if verifyOut != "" {
		if err := storage.WriteResults(verifyOut, results); err != nil {
			exitWithError(ExitError, "writing results: %v", err)
		}
		summary.Path = verifyOut
	}

	if humanOutput {
		if verifyOut == "" {
			for i, r := range results {
				outputHuman("%3d. [%-9s] %-*s  %s\n", i+1, r.Status, TitleMaxLen,
					truncateString(r.Original.Title, TitleMaxLen), formatCandidate(r.Verified))
			}
		}
		outputHuman("%d entries: %d verified, %d uncertain, %d not found\n",
			summary.Total, summary.Verified, summary.Uncertain, summary.NotFound)
		if summary.Path != "" {
			outputHuman("Results written to %s\n", summary.Path)
		}
		return nil
	}

	if verifyOut != "" {
		return outputJSON(summary)
	}
	if results == nil {
		results = []reference.VerificationResult{}
	}
	return outputJSON(results)
}


package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/matsen/bibcheck/internal/reference"
	"github.com/matsen/bibcheck/internal/report"
	"github.com/matsen/bibcheck/internal/retraction"
	"github.com/matsen/bibcheck/internal/storage"
)

var (
	reportResults      string
	reportOut          string
	reportNoRetraction bool
)

func init() {
	reportCmd.Flags().StringVar(&reportResults, "results", "", "Reuse verification results from a JSONL file instead of verifying")
	reportCmd.Flags().StringVarP(&reportOut, "out", "o", "", "Write the report to this file")
	reportCmd.Flags().BoolVar(&reportNoRetraction, "no-retraction", false, "Skip CrossRef retraction checks")
	rootCmd.AddCommand(reportCmd)
}

var reportCmd = &cobra.Command{
	Use:   "report <file>",
	Short: "Build a quality report for a bibliography",
	Long: `Build a quality report: verification counts, retractions, hallucination
risk, format issues, duplicates, sources and a 0-100 quality score.

Entries are verified first unless --results points to the output of
'bibcheck verify --out'.

Examples:
  bibcheck report refs.json
  bibcheck report refs.json --results results.jsonl --out report.json
  bibcheck report refs.json --human`,
	Args: cobra.ExactArgs(1),
	RunE: runReport,
}

func runReport(cmd *cobra.Command, args []string) error {
	cfg := mustLoadConfig()
	logger := mustNewLogger(cfg)
	defer logger.Sync()

	entries, err := storage.LoadEntries(args[0])
	if err != nil {
		exitWithError(ExitDataError, "loading entries: %v", err)
	}

	ctx, cancel := signalContext()
	defer cancel()

	var results []reference.VerificationResult
	if reportResults != "" {
		results, err = storage.ReadResults(reportResults)
		if err != nil {
			exitWithError(ExitDataError, "loading results: %v", err)
		}
		if len(results) != len(entries) {
			exitWithError(ExitDataError, "%s has %d results for %d entries", reportResults, len(results), len(entries))
		}
	} else {
		m := cliMetrics()
		defer flushMetrics(m, logger)
		v, err := newVerifier(cfg, logger, m)
		if err != nil {
			exitWithError(ExitConfigError, "building verifier: %v", err)
		}
		results, err = v.VerifyBibliography(ctx, entries)
		if err != nil {
			logger.Warn("verification interrupted", zap.Error(err))
		}
	}

	opts := []report.Option{report.WithLogger(logger)}
	if !reportNoRetraction {
		opts = append(opts, report.WithRetractionChecker(retraction.NewDetector(crossRefFor(cfg), logger)))
	}
	r := report.NewGenerator(opts...).Generate(ctx, entries, results)

	if reportOut != "" {
		if err := storage.WriteJSON(reportOut, r); err != nil {
			exitWithError(ExitError, "writing report: %v", err)
		}
	}

	if humanOutput {
		printReportHuman(r)
		if reportOut != "" {
			outputHuman("\nReport written to %s\n", reportOut)
		}
		return nil
	}
	return outputJSON(r)
}

func printReportHuman(r report.QualityReport) {
	outputHuman("Quality score: %d/100 (%d entries)\n\n", r.QualityScore, r.TotalEntries)
	outputHuman("Verification:  %d verified, %d uncertain, %d not found\n",
		r.Verification.Verified, r.Verification.Uncertain, r.Verification.NotFound)
	outputHuman("Retracted:     %d\n", r.Integrity.Retracted)
	outputHuman("Risk:          %d high, %d medium, %d low\n",
		r.HallucinationRisk.High, r.HallucinationRisk.Medium, r.HallucinationRisk.Low)
	outputHuman("Format:        %d errors, %d warnings, %d info\n",
		r.Format.Errors, r.Format.Warnings, r.Format.Info)
	outputHuman("Duplicates:    %d\n", r.Duplicates.Count)

	for _, d := range r.Integrity.RetractionDetails {
		outputHuman("\n[retracted] #%d %s\n  %s\n", d.Index+1, truncateString(d.Title, TitleMaxLen), d.Details)
	}
	for _, d := range r.HallucinationRisk.Details {
		outputHuman("\n[risk %s %d] #%d %s\n", d.Level, d.RiskScore, d.Index+1, truncateString(d.Title, TitleMaxLen))
		for _, w := range d.Warnings {
			outputHuman("  - %s\n", w)
		}
	}
	for _, p := range r.Duplicates.Pairs {
		outputHuman("\n[%s %d] #%d and #%d\n", p.Recommendation, p.Score, p.Indices[0]+1, p.Indices[1]+1)
	}
}

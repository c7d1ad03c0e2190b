package main

import (
	"github.com/spf13/cobra"

	"github.com/matsen/bibcheck/internal/pdf"
	"github.com/matsen/bibcheck/internal/reference"
)

var (
	doiPages  int
	doiVerify bool
)

func init() {
	doiCmd.Flags().IntVar(&doiPages, "pages", pdf.DefaultPages, "Number of leading pages to search")
	doiCmd.Flags().BoolVar(&doiVerify, "verify", false, "Verify the extracted DOI and title against the catalogs")
	rootCmd.AddCommand(doiCmd)
}

var doiCmd = &cobra.Command{
	Use:   "doi <pdf>...",
	Short: "Extract the DOI and title from PDF files",
	Long: `Read the first pages of each PDF and report the DOI and the likely title.
With --verify the result is run through the catalog cascade.

Examples:
  bibcheck doi paper.pdf
  bibcheck doi --pages 1 *.pdf --human
  bibcheck doi paper.pdf --verify`,
	Args: cobra.MinimumNArgs(1),
	RunE: runDOI,
}

// DOIResult is the outcome for one PDF.
type DOIResult struct {
	pdf.Identity
	Error        string                        `json:"error,omitempty"`
	Verification *reference.VerificationResult `json:"verification,omitempty"`
}

func runDOI(cmd *cobra.Command, args []string) error {
	cfg := mustLoadConfig()
	logger := mustNewLogger(cfg)
	defer logger.Sync()

	ctx, cancel := signalContext()
	defer cancel()

	results := make([]DOIResult, 0, len(args))
	for _, path := range args {
		id, err := pdf.Identify(path, doiPages)
		if err != nil {
			results = append(results, DOIResult{Identity: pdf.Identity{Path: path}, Error: err.Error()})
			continue
		}
		results = append(results, DOIResult{Identity: id})
	}

	if doiVerify {
		m := cliMetrics()
		defer flushMetrics(m, logger)
		v, err := newVerifier(cfg, logger, m)
		if err != nil {
			exitWithError(ExitConfigError, "building verifier: %v", err)
		}
		for i := range results {
			r := &results[i]
			if r.Error != "" || (r.DOI == "" && r.Title == "") {
				continue
			}
			res := v.VerifyEntry(ctx, r.Entry())
			r.Verification = &res
		}
	}

	if !humanOutput {
		return outputJSON(results)
	}
	for _, r := range results {
		switch {
		case r.Error != "":
			outputHuman("%s: error: %s\n", r.Path, r.Error)
		case r.DOI == "":
			outputHuman("%s: no DOI found\n", r.Path)
		default:
			outputHuman("%s: %s\n", r.Path, r.DOI)
		}
		if r.Title != "" {
			outputHuman("  title: %s\n", r.Title)
		}
		if r.Verification != nil {
			outputHuman("  %s: %s\n", r.Verification.Status, formatCandidate(r.Verification.Verified))
		}
	}
	return nil
}

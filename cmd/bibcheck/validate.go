package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/matsen/bibcheck/internal/format"
	"github.com/matsen/bibcheck/internal/storage"
)

func init() {
	rootCmd.AddCommand(validateCmd)
}

var validateCmd = &cobra.Command{
	Use:   "validate <file>",
	Short: "Check CSL-JSON for missing fields and malformed values",
	Long: `Check a CSL-JSON array without contacting any catalog. Issues are graded
error, warning or info; the command exits with status 3 when any error is found.

Examples:
  bibcheck validate refs.json
  cat refs.json | bibcheck validate - --human`,
	Args: cobra.ExactArgs(1),
	RunE: runValidate,
}

func runValidate(cmd *cobra.Command, args []string) error {
	data, err := storage.ReadInput(args[0])
	if err != nil {
		exitWithError(ExitDataError, "%v", err)
	}

	res := format.ValidateJSON(data, time.Now())

	if humanOutput {
		for _, is := range res.Issues {
			where := "list"
			if is.Index != format.RootIndex {
				where = fmt.Sprintf("#%d", is.Index+1)
			}
			if is.Field != "" {
				where += " " + is.Field
			}
			outputHuman("%-7s %s: %s\n", is.Severity, where, is.Message)
		}
		outputHuman("%d errors, %d warnings, %d info\n", res.Stats.Errors, res.Stats.Warnings, res.Stats.Info)
	} else {
		outputJSON(res)
	}

	if !res.Valid {
		os.Exit(ExitDataError)
	}
	return nil
}

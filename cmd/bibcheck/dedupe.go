package main

import (
	"github.com/spf13/cobra"

	"github.com/matsen/bibcheck/internal/duplicate"
	"github.com/matsen/bibcheck/internal/reference"
	"github.com/matsen/bibcheck/internal/storage"
)

func init() {
	rootCmd.AddCommand(dedupeCmd)
}

var dedupeCmd = &cobra.Command{
	Use:   "dedupe <file>",
	Short: "Find entries that likely describe the same work",
	Long: `Compare every pair of entries by title, first author, year and DOI and
list the pairs that are likely duplicates. Nothing is modified.

Examples:
  bibcheck dedupe refs.json
  bibcheck dedupe refs.jsonl --human`,
	Args: cobra.ExactArgs(1),
	RunE: runDedupe,
}

// DuplicateGroup is a reported pair with the entries it refers to.
type DuplicateGroup struct {
	duplicate.Pair
	IDs    [2]string `json:"ids"`
	Titles [2]string `json:"titles"`
}

// DedupeResult represents the result of a dedupe run.
type DedupeResult struct {
	Total  int              `json:"total_entries"`
	Groups []DuplicateGroup `json:"duplicates"`
}

// findDuplicateGroups annotates the detected pairs with entry IDs and titles.
func findDuplicateGroups(entries []reference.Entry) []DuplicateGroup {
	pairs := duplicate.Detect(entries)
	groups := make([]DuplicateGroup, 0, len(pairs))
	for _, p := range pairs {
		a, b := entries[p.Indices[0]], entries[p.Indices[1]]
		groups = append(groups, DuplicateGroup{
			Pair:   p,
			IDs:    [2]string{a.ID, b.ID},
			Titles: [2]string{a.Title, b.Title},
		})
	}
	return groups
}

func runDedupe(cmd *cobra.Command, args []string) error {
	entries, err := storage.LoadEntries(args[0])
	if err != nil {
		exitWithError(ExitDataError, "loading entries: %v", err)
	}

	groups := findDuplicateGroups(entries)

	if !humanOutput {
		return outputJSON(DedupeResult{Total: len(entries), Groups: groups})
	}

	if len(groups) == 0 {
		outputHuman("No duplicates found.\n")
		return nil
	}
	for _, g := range groups {
		outputHuman("[%d] %s\n", g.Score, g.Recommendation)
		for i := range g.Indices {
			outputHuman("  #%d %s\n", g.Indices[i]+1, truncateString(g.Titles[i], TitleMaxLen))
		}
	}
	outputHuman("\n%d duplicate pairs in %d entries\n", len(groups), len(entries))
	return nil
}

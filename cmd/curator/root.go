package main

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "curator",
	Short: "Web corpus curation pipeline",
	Long: `curator cleans, deduplicates, masks, and oversamples a raw web text
corpus, one stage per subcommand, plus a "run" orchestrator that executes
the full ordered pipeline from a single config file.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(heuristicFilterCmd)
	rootCmd.AddCommand(piiMaskCmd)
	rootCmd.AddCommand(exactDedupCmd)
	rootCmd.AddCommand(nearDedupCmd)
	rootCmd.AddCommand(classifyApplyCmd)
	rootCmd.AddCommand(languageFilterCmd)
	rootCmd.AddCommand(safetyFilterCmd)
	rootCmd.AddCommand(sweepCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(runCmd)
}

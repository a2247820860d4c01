package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"webcorpus-curator/internal/config"
	"webcorpus-curator/internal/jobrunner"
	"webcorpus-curator/internal/logger"
)

var statsArgs struct {
	outDir string
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Aggregate every .meta.json sidecar in a directory into a summary",
	RunE:  runStats,
}

func init() {
	statsCmd.Flags().StringVar(&statsArgs.outDir, "out-dir", "", "directory of .meta.json sidecars (required)")
	_ = statsCmd.MarkFlagRequired("out-dir")
}

func runStats(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	log := logger.New("STATS", cfg.LogLevel)

	sum, err := jobrunner.Summarize(statsArgs.outDir)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(sum, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(os.Stdout, string(data))

	if sum.TotalFiles == 0 {
		log.Warn("no_meta_sidecars", "no .meta.json files found in "+statsArgs.outDir)
	}
	return nil
}

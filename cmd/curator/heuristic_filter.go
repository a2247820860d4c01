package main

import (
	"context"

	"github.com/spf13/cobra"

	"webcorpus-curator/internal/bundle"
	"webcorpus-curator/internal/config"
	"webcorpus-curator/internal/heuristic"
	"webcorpus-curator/internal/jobrunner"
	"webcorpus-curator/internal/logger"
)

var heuristicFilterFlags stageFlags

var heuristicFilterCmd = &cobra.Command{
	Use:   "heuristic-filter",
	Short: "Apply C4 and Gopher quality heuristics to each document",
	RunE:  runHeuristicFilter,
}

func init() {
	addStageFlags(heuristicFilterCmd, &heuristicFilterFlags)
}

func runHeuristicFilter(cmd *cobra.Command, args []string) error {
	f := heuristicFilterFlags
	cfg := config.Load()
	log := logger.New("HEURISTIC", cfg.LogLevel)

	if err := ensureOutDir(f.outDir); err != nil {
		return err
	}
	inputs, err := discoverFiles(f.dataDir, f.maxFiles)
	if err != nil {
		return err
	}
	log.Infof("start", "filtering %d files", len(inputs))

	task := func(ctx context.Context, inPath, outPath string) (jobrunner.MetaFields, error) {
		docs, err := bundle.ReadFile(inPath)
		if err != nil {
			return nil, err
		}

		var kept []bundle.Document
		rejected := map[string]int{}
		for _, doc := range docs {
			res := heuristic.Filter(cfg, doc.Join())
			if res.Kept {
				kept = append(kept, splitDocument(res.Filtered))
				continue
			}
			rejected[res.Reason]++
		}

		if err := bundle.WriteFileAtomic(outPath, kept); err != nil {
			return nil, err
		}
		return jobrunner.MetaFields{
			"docsTotal":       len(docs),
			"docsKept":        len(kept),
			"rejectedByReason": rejected,
		}, nil
	}

	results, err := jobrunner.Run(cmd.Context(), inputs, func(in string) string { return outPathIn(f.outDir, in) }, task, jobrunner.Options{
		Workers:     f.workers(),
		TaskTimeout: taskTimeout(cfg),
		JobsLogPath: jobsLogPath(f.outDir),
	})
	if err != nil {
		return err
	}
	return reportResults(log, results)
}

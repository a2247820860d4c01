package main

import (
	"context"
	"sync"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"webcorpus-curator/internal/config"
	"webcorpus-curator/internal/exactdedup"
	"webcorpus-curator/internal/jobrunner"
	"webcorpus-curator/internal/logger"
)

var exactDedupFlags stageFlags

var exactDedupCmd = &cobra.Command{
	Use:   "exact-dedup",
	Short: "Drop globally-duplicate lines across the whole corpus",
	Long: `exact-dedup is a two-pass, cross-file stage: pass one counts every
line's occurrences across all input files before pass two can decide which
lines survive, so pass one cannot be sharded into per-file jobrunner tasks
the way the per-file stages are — --mp/--single still bound how many files
are hashed concurrently within that pass. Pass two, once the global count
table exists, is an ordinary per-file task and runs through jobrunner like
every other stage, so its outputs get the same .meta.json sidecars,
reservation sentinels, and sweep/stats support.`,
	RunE: runExactDedup,
}

func init() {
	addStageFlags(exactDedupCmd, &exactDedupFlags)
}

func runExactDedup(cmd *cobra.Command, args []string) error {
	f := exactDedupFlags
	cfg := config.Load()
	log := logger.New("EXACTDEDUP", cfg.LogLevel)

	if err := ensureOutDir(f.outDir); err != nil {
		return err
	}
	inputs, err := discoverFiles(f.dataDir, f.maxFiles)
	if err != nil {
		return err
	}
	workers := resolveWorkerCount(f.workers())
	log.Infof("start", "pass 1: counting lines across %d files (%d workers)", len(inputs), workers)

	sem := make(chan struct{}, workers)
	g := new(errgroup.Group)
	var mu sync.Mutex
	counts := make(map[uint32]int64)

	for _, p := range inputs {
		p := p
		g.Go(func() error {
			sem <- struct{}{}
			defer func() { <-sem }()

			fc, err := exactdedup.CountFile(p)
			if err != nil {
				return err
			}
			mu.Lock()
			exactdedup.MergeCounts(counts, fc)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	dup := exactdedup.DupOnly(counts)
	log.Infof("pass1_done", "%d distinct lines appear more than once", len(dup))

	var total, unique int64
	var totalMu sync.Mutex
	task := func(ctx context.Context, inPath, outPath string) (jobrunner.MetaFields, error) {
		tl, ul, err := exactdedup.RewriteFile(inPath, dup, f.outDir, cfg.ExactDedupMinTokens)
		if err != nil {
			return nil, err
		}
		totalMu.Lock()
		total += tl
		unique += ul
		totalMu.Unlock()
		return jobrunner.MetaFields{
			"totalLines":  tl,
			"uniqueLines": ul,
		}, nil
	}

	results, err := jobrunner.Run(cmd.Context(), inputs, func(in string) string { return outPathIn(f.outDir, in) }, task, jobrunner.Options{
		Workers:     workers,
		TaskTimeout: taskTimeout(cfg),
		JobsLogPath: jobsLogPath(f.outDir),
	})
	if err != nil {
		return err
	}
	if err := reportResults(log, results); err != nil {
		return err
	}

	log.Infof("done", "%d total lines, %d unique lines retained", total, unique)
	return nil
}

func resolveWorkerCount(n int) int {
	if n <= 0 {
		return cpuCount()
	}
	return n
}

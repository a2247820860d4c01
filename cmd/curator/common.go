package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"webcorpus-curator/internal/config"
	"webcorpus-curator/internal/jobrunner"
	"webcorpus-curator/internal/logger"
)

var errConfigRequiresDirs = errors.New("config: dataDir and outDir are required")

// cpuCount reports runtime.NumCPU(), factored out so every subcommand
// resolves a 0 worker count (and --single's absence of --mp) the same way.
func cpuCount() int {
	return runtime.NumCPU()
}

// stageFlags holds the flags common to every per-stage subcommand.
type stageFlags struct {
	dataDir  string
	outDir   string
	maxFiles int
	single   bool
	mp       int
}

func addStageFlags(cmd *cobra.Command, f *stageFlags) {
	cmd.Flags().StringVar(&f.dataDir, "data-dir", "", "input directory of bundle files (required)")
	cmd.Flags().StringVar(&f.outDir, "out-dir", "", "output directory (required)")
	cmd.Flags().IntVar(&f.maxFiles, "max-files", 0, "limit the number of input files processed (0 = no limit)")
	cmd.Flags().BoolVar(&f.single, "single", false, "force sequential, single-worker execution")
	cmd.Flags().IntVar(&f.mp, "mp", 0, "worker count for parallel execution (0 = runtime.NumCPU())")
	_ = cmd.MarkFlagRequired("data-dir")
	_ = cmd.MarkFlagRequired("out-dir")
}

// workers resolves --single/--mp into the worker count jobrunner.Run expects.
func (f *stageFlags) workers() int {
	if f.single {
		return 1
	}
	return f.mp
}

// discoverFiles lists the regular files directly under dataDir in sorted
// order, truncated to maxFiles if positive.
func discoverFiles(dataDir string, maxFiles int) ([]string, error) {
	entries, err := os.ReadDir(dataDir)
	if err != nil {
		return nil, err
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		paths = append(paths, filepath.Join(dataDir, e.Name()))
	}
	sort.Strings(paths)

	if maxFiles > 0 && len(paths) > maxFiles {
		paths = paths[:maxFiles]
	}
	return paths, nil
}

func ensureOutDir(dir string) error {
	return os.MkdirAll(dir, 0o755)
}

// outPathIn mirrors an input file's base name into outDir.
func outPathIn(outDir, inPath string) string {
	return filepath.Join(outDir, filepath.Base(inPath))
}

func taskTimeout(cfg *config.Config) time.Duration {
	if cfg.TaskTimeoutSecs <= 0 {
		return 0
	}
	return time.Duration(cfg.TaskTimeoutSecs) * time.Second
}

func jobsLogPath(outDir string) string {
	return filepath.Join(outDir, ".jobs.jsonl")
}

// reportResults logs a summary line and returns an error if any task failed
// outright (as opposed to being skipped because its output already existed).
func reportResults(log *logger.Logger, results []jobrunner.Result) error {
	skipped, errored := 0, 0
	for _, r := range results {
		switch {
		case r.Skipped:
			skipped++
		case r.Err != nil:
			errored++
			log.Errorf("task_failed", "%s: %v", r.InputPath, r.Err)
		}
	}
	log.Infof("done", "%d processed, %d skipped, %d errored", len(results)-skipped-errored, skipped, errored)
	if errored > 0 {
		return fmt.Errorf("%d of %d tasks failed", errored, len(results))
	}
	return nil
}

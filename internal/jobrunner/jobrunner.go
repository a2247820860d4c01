// Package jobrunner implements a bounded worker pool that shards a list of
// input files across a fixed number of goroutines. Each file is dispatched
// as one Task: reserve its output path, run the stage function under a
// per-task timeout, record the outcome, and release or leave the
// reservation for a later sweep.
//
// The pool always runs the same code path regardless of worker count —
// "--single" is simply worker count 1, not a separate serial branch.
package jobrunner

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"webcorpus-curator/internal/reservation"
)

// TaskFunc processes a single input file and writes its output to outPath.
// It returns the meta fields to be merged into that file's Meta sidecar.
type TaskFunc func(ctx context.Context, inPath, outPath string) (MetaFields, error)

// MetaFields are the stage-specific facts recorded in a Meta sidecar on top
// of the fields jobrunner fills in itself (timing, error tag).
type MetaFields map[string]any

// Meta is the .meta.json sidecar written next to every task's output.
type Meta struct {
	InputPath  string         `json:"inputPath"`
	OutputPath string         `json:"outputPath"`
	StartedAt  time.Time      `json:"startedAt"`
	DurationMs int64          `json:"durationMs"`
	Errored    bool           `json:"errored"`
	ErrorTag   string         `json:"errorTag,omitempty"`
	ErrorMsg   string         `json:"errorMsg,omitempty"`
	Fields     MetaFields     `json:"fields,omitempty"`
}

// Options configures a pool run.
type Options struct {
	// Workers is the number of concurrent tasks. 0 means runtime.NumCPU().
	Workers int
	// TaskTimeout bounds each individual task's wall-clock time. Zero means
	// no per-task deadline.
	TaskTimeout time.Duration
	// JobsLogPath is the JSON-lines job-args log used by reservation.Sweep.
	// Empty disables job-log recording (reservations are still honored).
	JobsLogPath string
}

// resolveWorkers returns opts.Workers, substituting runtime.NumCPU() for 0,
// and never less than 1.
func resolveWorkers(n int) int {
	if n <= 0 {
		n = runtime.NumCPU()
	}
	if n < 1 {
		n = 1
	}
	return n
}

// Result is one task's outcome, keyed by input path.
type Result struct {
	InputPath string
	Skipped   bool // reservation already held; task was not dispatched
	Err       error
}

// Run shards inputs across a bounded pool of opts.Workers goroutines. For
// each input path, outPath(inPath) determines the output file; a file whose
// output is not Eligible (already produced, already reserved) is skipped,
// not re-run, matching reservation idempotence. Results are returned in
// input order once every task completes.
func Run(ctx context.Context, inputs []string, outPath func(string) string, fn TaskFunc, opts Options) ([]Result, error) {
	workers := resolveWorkers(opts.Workers)

	sem := make(chan struct{}, workers)
	g, gctx := errgroup.WithContext(ctx)

	results := make([]Result, len(inputs))
	for i, in := range inputs {
		i, in := i, in
		out := outPath(in)
		results[i] = Result{InputPath: in}

		g.Go(func() error {
			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-gctx.Done():
				return gctx.Err()
			}

			if !reservation.Eligible(out) {
				results[i].Skipped = true
				return nil
			}
			if err := reservation.Reserve(out); err != nil {
				// Lost the race to another dispatcher; treat as skipped.
				results[i].Skipped = true
				return nil
			}

			if opts.JobsLogPath != "" {
				entry := reservation.JobEntry{OutputPath: out, ClaimedAt: time.Now()}
				if logErr := reservation.AppendJobLog(opts.JobsLogPath, entry); logErr != nil {
					results[i].Err = logErr
					return nil
				}
			}

			taskCtx := gctx
			var cancel context.CancelFunc
			if opts.TaskTimeout > 0 {
				taskCtx, cancel = context.WithTimeout(gctx, opts.TaskTimeout)
				defer cancel()
			}

			start := time.Now()
			fields, taskErr := fn(taskCtx, in, out)
			duration := time.Since(start)

			meta := Meta{
				InputPath:  in,
				OutputPath: out,
				StartedAt:  start,
				DurationMs: duration.Milliseconds(),
				Fields:     fields,
			}
			if taskErr != nil {
				meta.Errored = true
				meta.ErrorTag = tagOf(taskErr)
				meta.ErrorMsg = taskErr.Error()
			}

			if metaErr := writeMeta(out, meta); metaErr != nil {
				results[i].Err = metaErr
				return nil
			}

			if taskErr != nil {
				results[i].Err = taskErr
				// A cancelled or failed task leaves its reservation in
				// place for the sweep to reclaim: it may still be running
				// elsewhere, or may need a retry, and Eligible already
				// treats a held reservation as not-yet-eligible.
				return nil
			}

			if relErr := reservation.Release(out); relErr != nil {
				results[i].Err = relErr
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, nil
}

// tagOf extracts the stable error tag of a tagged error, or "unknown_error".
func tagOf(err error) string {
	type tagged interface{ Tag() string }
	if t, ok := err.(tagged); ok {
		return t.Tag()
	}
	return "unknown_error"
}

func writeMeta(outPath string, meta Meta) error {
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return err
	}

	metaPath := outPath + ".meta.json"
	tmp := metaPath + fmt.Sprintf(".tmp-%d", os.Getpid())
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, metaPath); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}

// ReadMeta reads a single .meta.json sidecar.
func ReadMeta(path string) (Meta, error) {
	var m Meta
	data, err := os.ReadFile(path) //nolint:gosec // G703: path is an operator-controlled out-dir path
	if err != nil {
		return m, err
	}
	if err := json.Unmarshal(data, &m); err != nil {
		return m, err
	}
	return m, nil
}

// Summary is the aggregate produced by reading every .meta.json sidecar in
// a directory, backing the "curator stats" subcommand.
type Summary struct {
	TotalFiles      int            `json:"totalFiles"`
	Errored         int            `json:"errored"`
	RejectedByTag   map[string]int `json:"rejectedByTag,omitempty"`
	TotalDurationMs int64          `json:"totalDurationMs"`
}

// Summarize walks dir for *.meta.json sidecars and aggregates them.
func Summarize(dir string) (Summary, error) {
	var sum Summary
	sum.RejectedByTag = map[string]int{}

	matches, err := filepath.Glob(filepath.Join(dir, "*.meta.json"))
	if err != nil {
		return sum, err
	}
	sort.Strings(matches)

	for _, m := range matches {
		meta, err := ReadMeta(m)
		if err != nil {
			continue // unreadable sidecar: skip, don't fail the whole summary
		}
		sum.TotalFiles++
		sum.TotalDurationMs += meta.DurationMs
		if meta.Errored {
			sum.Errored++
			sum.RejectedByTag[meta.ErrorTag]++
		}
	}
	return sum, nil
}

package jobrunner

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"webcorpus-curator/internal/corpuserr"
)

func writeIn(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRun_ProcessesAllInputs(t *testing.T) {
	dir := t.TempDir()
	in1 := writeIn(t, dir, "a.txt", "aaa")
	in2 := writeIn(t, dir, "b.txt", "bbb")

	outPath := func(in string) string {
		return filepath.Join(dir, "out-"+filepath.Base(in))
	}

	var processed int32
	fn := func(ctx context.Context, in, out string) (MetaFields, error) {
		atomic.AddInt32(&processed, 1)
		data, err := os.ReadFile(in)
		if err != nil {
			return nil, err
		}
		if err := os.WriteFile(out, data, 0o600); err != nil {
			return nil, err
		}
		return MetaFields{"bytes": len(data)}, nil
	}

	results, err := Run(context.Background(), []string{in1, in2}, outPath, fn, Options{Workers: 2})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if processed != 2 {
		t.Fatalf("expected 2 tasks processed, got %d", processed)
	}
	for _, r := range results {
		if r.Err != nil {
			t.Errorf("unexpected task error for %s: %v", r.InputPath, r.Err)
		}
		if r.Skipped {
			t.Errorf("expected %s to not be skipped", r.InputPath)
		}
		if _, err := os.Stat(outPath(r.InputPath)); err != nil {
			t.Errorf("expected output for %s: %v", r.InputPath, err)
		}
		if _, err := os.Stat(outPath(r.InputPath) + ".meta.json"); err != nil {
			t.Errorf("expected meta sidecar for %s: %v", r.InputPath, err)
		}
	}
}

func TestRun_SkipsAlreadyProducedOutput(t *testing.T) {
	dir := t.TempDir()
	in := writeIn(t, dir, "a.txt", "aaa")
	out := filepath.Join(dir, "out.txt")
	if err := os.WriteFile(out, []byte("already there"), 0o600); err != nil {
		t.Fatal(err)
	}

	called := false
	fn := func(ctx context.Context, in, out string) (MetaFields, error) {
		called = true
		return nil, nil
	}

	results, err := Run(context.Background(), []string{in}, func(string) string { return out }, fn, Options{Workers: 1})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if called {
		t.Error("expected task function not to be called for an already-produced output")
	}
	if !results[0].Skipped {
		t.Error("expected result marked Skipped")
	}
}

func TestRun_SingleWorkerSameCodePath(t *testing.T) {
	dir := t.TempDir()
	in1 := writeIn(t, dir, "a.txt", "a")
	in2 := writeIn(t, dir, "b.txt", "b")
	outPath := func(in string) string { return filepath.Join(dir, "out-"+filepath.Base(in)) }

	fn := func(ctx context.Context, in, out string) (MetaFields, error) {
		return nil, os.WriteFile(out, []byte("x"), 0o600)
	}

	results, err := Run(context.Background(), []string{in1, in2}, outPath, fn, Options{Workers: 1})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
}

func TestRun_TaskErrorLeavesReservationForSweep(t *testing.T) {
	dir := t.TempDir()
	in := writeIn(t, dir, "a.txt", "a")
	out := filepath.Join(dir, "out.txt")

	fn := func(ctx context.Context, in, out string) (MetaFields, error) {
		return nil, &corpuserr.IoError{Path: in, Err: errors.New("boom")}
	}

	results, err := Run(context.Background(), []string{in}, func(string) string { return out }, fn, Options{Workers: 1})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if results[0].Err == nil {
		t.Fatal("expected task error to be reported")
	}
	if _, statErr := os.Stat(out + ".reservation.txt"); statErr != nil {
		t.Error("expected reservation sentinel to remain after a failed task")
	}
	meta, err := ReadMeta(out + ".meta.json")
	if err != nil {
		t.Fatalf("ReadMeta: %v", err)
	}
	if !meta.Errored || meta.ErrorTag != "io_error" {
		t.Errorf("got meta %+v, want errored io_error", meta)
	}
}

func TestRun_RespectsTaskTimeout(t *testing.T) {
	dir := t.TempDir()
	in := writeIn(t, dir, "a.txt", "a")
	out := filepath.Join(dir, "out.txt")

	fn := func(ctx context.Context, in, out string) (MetaFields, error) {
		select {
		case <-time.After(time.Second):
			return nil, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	results, err := Run(context.Background(), []string{in}, func(string) string { return out }, fn, Options{
		Workers:     1,
		TaskTimeout: 10 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if results[0].Err == nil {
		t.Fatal("expected timeout error")
	}
}

func TestRun_RecordsJobsLog(t *testing.T) {
	dir := t.TempDir()
	in := writeIn(t, dir, "a.txt", "a")
	out := filepath.Join(dir, "out.txt")
	logPath := filepath.Join(dir, "jobs.jsonl")

	fn := func(ctx context.Context, in, out string) (MetaFields, error) {
		return nil, os.WriteFile(out, []byte("x"), 0o600)
	}

	_, err := Run(context.Background(), []string{in}, func(string) string { return out }, fn, Options{
		Workers:     1,
		JobsLogPath: logPath,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	entries, err := readJobLogForTest(logPath)
	if err != nil {
		t.Fatalf("reading job log: %v", err)
	}
	if len(entries) != 1 || entries[0] != out {
		t.Errorf("got %v, want job log entry for %s", entries, out)
	}
}

func TestSummarize_AggregatesMetaSidecars(t *testing.T) {
	dir := t.TempDir()

	ok := Meta{InputPath: "a", OutputPath: "a.out", DurationMs: 5}
	bad := Meta{InputPath: "b", OutputPath: "b.out", DurationMs: 3, Errored: true, ErrorTag: "io_error"}

	if err := writeMeta(filepath.Join(dir, "a.out"), ok); err != nil {
		t.Fatal(err)
	}
	if err := writeMeta(filepath.Join(dir, "b.out"), bad); err != nil {
		t.Fatal(err)
	}

	sum, err := Summarize(dir)
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if sum.TotalFiles != 2 {
		t.Errorf("got %d total files, want 2", sum.TotalFiles)
	}
	if sum.Errored != 1 {
		t.Errorf("got %d errored, want 1", sum.Errored)
	}
	if sum.RejectedByTag["io_error"] != 1 {
		t.Errorf("got %d io_error, want 1", sum.RejectedByTag["io_error"])
	}
	if sum.TotalDurationMs != 8 {
		t.Errorf("got %d total duration ms, want 8", sum.TotalDurationMs)
	}
}

func readJobLogForTest(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var paths []string
	for _, line := range splitNonEmptyLines(string(data)) {
		var e struct {
			OutputPath string `json:"outputPath"`
		}
		if err := json.Unmarshal([]byte(line), &e); err != nil {
			return nil, err
		}
		paths = append(paths, e.OutputPath)
	}
	return paths, nil
}

func splitNonEmptyLines(s string) []string {
	var lines []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			if i > start {
				lines = append(lines, s[start:i])
			}
			start = i + 1
		}
	}
	if start < len(s) {
		lines = append(lines, s[start:])
	}
	return lines
}

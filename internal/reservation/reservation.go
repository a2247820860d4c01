// Package reservation implements the per-file reservation-sentinel
// protocol: a worker claims a file by creating an empty sentinel before
// starting work, and a separate sweep tool reclaims sentinels left behind
// by workers that crashed or were killed before finishing.
//
// The original pipeline matched stale reservations against a pickled
// per-worker submission log. Pickle has no Go equivalent and no process
// boundary to cross here (internal/jobrunner uses goroutines, not separate
// OS processes), so the job log is reimplemented as an append-only
// JSON-lines file recording which output path each dispatched task claimed.
package reservation

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"time"
)

const sentinelSuffix = ".reservation.txt"

// SentinelPath returns the reservation sentinel path for a given output
// file path.
func SentinelPath(outPath string) string {
	return outPath + sentinelSuffix
}

// Reserve atomically creates the reservation sentinel for outPath. It
// fails if the sentinel already exists (another worker holds it).
func Reserve(outPath string) error {
	f, err := os.OpenFile(SentinelPath(outPath), os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	return f.Close()
}

// Release removes the reservation sentinel for outPath. A missing
// sentinel is not an error — Release is also called defensively after
// successful completion.
func Release(outPath string) error {
	err := os.Remove(SentinelPath(outPath))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// IsReserved reports whether outPath currently has a reservation sentinel.
func IsReserved(outPath string) bool {
	_, err := os.Stat(SentinelPath(outPath))
	return err == nil
}

// Eligible reports whether outPath is eligible for (re)dispatch: neither
// the output file, its .meta.json sidecar, nor its reservation sentinel
// exist.
func Eligible(outPath string) bool {
	if _, err := os.Stat(outPath); err == nil {
		return false
	}
	if _, err := os.Stat(outPath + ".meta.json"); err == nil {
		return false
	}
	return !IsReserved(outPath)
}

// JobEntry is one record in the job log: the output path a task claimed,
// and when it claimed it.
type JobEntry struct {
	OutputPath string    `json:"outputPath"`
	ClaimedAt  time.Time `json:"claimedAt"`
}

// AppendJobLog appends one JobEntry as a JSON line to the log file at
// logPath, creating it if necessary.
func AppendJobLog(logPath string, entry JobEntry) error {
	f, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	defer f.Close()

	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	data = append(data, '\n')
	_, err = f.Write(data)
	return err
}

// ReadJobLog reads every JobEntry recorded in the job log at logPath. A
// missing log file yields an empty slice, not an error.
func ReadJobLog(logPath string) ([]JobEntry, error) {
	f, err := os.Open(logPath) //nolint:gosec // G703: logPath is an operator-configured path, not user input
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	var entries []JobEntry
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var e JobEntry
		if err := json.Unmarshal(line, &e); err != nil {
			continue // malformed line: skip, don't abort the sweep
		}
		entries = append(entries, e)
	}
	return entries, scanner.Err()
}

// Sweep clears stale reservation sentinels: for every output path recorded
// in the job log that completed (its output file or .meta.json sidecar now
// exists) but whose reservation sentinel is still present, the sentinel is
// removed so the file becomes eligible again only if genuinely abandoned.
// A reservation whose job-log entry exists but whose output never
// materialized is left in place — that worker may still be running or may
// have crashed without ever writing output, and Eligible already treats an
// existing reservation as not-yet-eligible until this sweep clears it.
//
// Sweep returns the output paths whose reservations were cleared.
func Sweep(logPath, outDir string) ([]string, error) {
	entries, err := ReadJobLog(logPath)
	if err != nil {
		return nil, err
	}

	var cleared []string
	for _, e := range entries {
		outPath := e.OutputPath
		if !IsReserved(outPath) {
			continue
		}

		completed := fileExists(outPath) || fileExists(outPath+".meta.json")
		if !completed {
			continue
		}

		if err := Release(outPath); err != nil {
			return cleared, err
		}
		cleared = append(cleared, outPath)
	}
	return cleared, nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// OrphanedSentinels lists every reservation sentinel in dir that has no
// entry at all in the job log, whether or not its output file or meta
// sidecar exists — typically a worker that crashed before ever recording a
// claim. These require operator judgment (or a longer grace period) before
// clearing, so OrphanedSentinels only reports them; it does not remove
// them.
func OrphanedSentinels(dir, logPath string) ([]string, error) {
	entries, err := ReadJobLog(logPath)
	if err != nil {
		return nil, err
	}
	logged := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		logged[SentinelPath(e.OutputPath)] = struct{}{}
	}

	matches, err := filepath.Glob(filepath.Join(dir, "*"+sentinelSuffix))
	if err != nil {
		return nil, err
	}

	var orphans []string
	for _, m := range matches {
		if _, ok := logged[m]; !ok {
			orphans = append(orphans, m)
		}
	}
	return orphans, nil
}

// Package exactdedup implements the ExactLineDedup stage: a two-pass exact
// line deduplication across a whole corpus. Pass one counts every content
// line's occurrences across all input files; pass two rewrites each file,
// dropping lines seen more than once anywhere in the corpus and dropping
// any document whose surviving content does not exceed the minimum word
// count.
//
// The two passes are exposed as separate per-file functions
// (CountFile/RewriteFile) so a caller can fan them out across files while
// this package stays agnostic to how concurrency is achieved (curator
// exact-dedup runs pass one under an errgroup and pass two through
// internal/jobrunner's bounded worker pool).
package exactdedup

import (
	"path/filepath"
	"strings"

	"webcorpus-curator/internal/bundle"
	"webcorpus-curator/internal/linehash"
)

// CountFile computes line-hash occurrence counts for all non-empty,
// stripped content lines across every document in one bundle file.
func CountFile(path string) (map[uint32]int64, error) {
	docs, err := bundle.ReadFile(path)
	if err != nil {
		return nil, err
	}

	counts := make(map[uint32]int64)
	for _, doc := range docs {
		for _, line := range doc {
			s := strings.TrimSpace(line)
			if s == "" {
				continue
			}
			counts[linehash.Hash(s)]++
		}
	}
	return counts, nil
}

// MergeCounts adds src's counts into dst in place.
func MergeCounts(dst, src map[uint32]int64) {
	for h, c := range src {
		dst[h] += c
	}
}

// DupOnly filters counts down to hashes seen more than once, discarding the
// rest so pass two's lookup table only needs to hold the lines that matter
// — the corpus-scale memory optimization the original pipeline relied on.
func DupOnly(counts map[uint32]int64) map[uint32]int64 {
	dup := make(map[uint32]int64, len(counts))
	for h, c := range counts {
		if c > 1 {
			dup[h] = c
		}
	}
	return dup
}

// RewriteFile rewrites one bundle file into outDir, keeping empty lines
// verbatim and keeping a content line only when its global count is 1.
// A document is kept only if at least one content line survived and the
// word count of its surviving lines exceeds minWords; it is dropped
// entirely otherwise. Returns (total_lines_seen, unique_lines_written).
func RewriteFile(path string, dupCounts map[uint32]int64, outDir string, minWords int) (int64, int64, error) {
	docs, err := bundle.ReadFile(path)
	if err != nil {
		return 0, 0, err
	}

	var totalLines, uniqueLines int64
	var kept []bundle.Document

	for _, doc := range docs {
		var buf bundle.Document
		contentWritten := false

		for _, line := range doc {
			totalLines++

			s := strings.TrimSpace(line)
			if s == "" {
				buf = append(buf, line)
				continue
			}

			if dupCounts[linehash.Hash(s)] > 1 {
				continue
			}

			contentWritten = true
			buf = append(buf, line)
		}

		if contentWritten && wordCount(buf) > minWords {
			uniqueLines += int64(len(buf))
			kept = append(kept, buf)
		}
	}

	outPath := filepath.Join(outDir, filepath.Base(path))
	if err := bundle.WriteFileAtomic(outPath, kept); err != nil {
		return 0, 0, err
	}

	return totalLines, uniqueLines, nil
}

func wordCount(doc bundle.Document) int {
	n := 0
	for _, line := range doc {
		n += len(strings.Fields(line))
	}
	return n
}

// Run orchestrates both passes sequentially over paths, for callers that
// don't need jobrunner's worker pool (e.g. --single mode, tests).
func Run(paths []string, outDir string, minWords int) (totalLines, uniqueLines int64, err error) {
	counts := make(map[uint32]int64)
	for _, p := range paths {
		fc, err := CountFile(p)
		if err != nil {
			return 0, 0, err
		}
		MergeCounts(counts, fc)
	}
	dup := DupOnly(counts)

	for _, p := range paths {
		tl, ul, err := RewriteFile(p, dup, outDir, minWords)
		if err != nil {
			return 0, 0, err
		}
		totalLines += tl
		uniqueLines += ul
	}
	return totalLines, uniqueLines, nil
}

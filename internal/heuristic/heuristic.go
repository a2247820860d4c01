// Package heuristic implements the HeuristicFilter stage: the C4 line-level
// quality rules composed with the Gopher document-level quality rules.
// A document survives C4 filtering line-by-line first (producing the
// filtered text that Gopher then scores as a whole), matching the
// pipeline's documented ordering: C4 narrows the document, Gopher decides
// whether what remains is worth keeping.
package heuristic

import (
	"math"
	"strings"
	"unicode"

	"webcorpus-curator/internal/config"
	"webcorpus-curator/internal/normalize"
)

// LineStats tallies why each line of a document was dropped or kept during
// the C4 pass, mirroring the pipeline's per-document diagnostics.
type LineStats struct {
	Short             int
	Blacklisted       int
	InvalidTerminator int
	Kept              int
}

// Result is the outcome of running HeuristicFilter on one document.
type Result struct {
	Kept     bool
	Filtered string // the C4-filtered text; empty when Kept is false
	Lines    LineStats
	Reason   string // set when Kept is false
}

var validLineTerminators = []string{".", "!", "?", "\"", "'"}

// Filter runs the C4 line filter followed by the Gopher document filter.
func Filter(cfg *config.Config, doc string) Result {
	res := c4Filter(cfg, doc)
	if !res.Kept {
		return res
	}
	if !gopherFilter(cfg, res.Filtered) {
		return Result{Kept: false, Reason: "gopher_quality", Lines: res.Lines}
	}
	return res
}

func c4Filter(cfg *config.Config, doc string) Result {
	docLower := strings.ToLower(doc)
	for _, word := range cfg.PageBlacklist {
		if strings.Contains(docLower, word) {
			return Result{Kept: false, Reason: "blacklisted"}
		}
	}

	var stats LineStats
	var kept []string

	for _, line := range strings.Split(doc, "\n") {
		s := strings.TrimSpace(line)
		words := normalize.Words(s)
		if s == "" || len(words) < cfg.MinLineWords {
			stats.Short++
			continue
		}

		if !endsWithAny(s, validLineTerminators) {
			stats.InvalidTerminator++
			continue
		}

		lineLower := strings.ToLower(s)
		if containsAny(lineLower, cfg.LineBlacklist) {
			stats.Blacklisted++
			continue
		}

		if len(words) < cfg.ShortLineMaxWords && containsAny(lineLower, cfg.ShortLineBlacklist) {
			stats.Blacklisted++
			continue
		}

		stats.Kept++
		kept = append(kept, line)
	}

	if len(kept) == 0 {
		return Result{Kept: false, Reason: "no_lines_kept", Lines: stats}
	}

	return Result{Kept: true, Filtered: strings.Join(kept, "\n"), Lines: stats}
}

func gopherFilter(cfg *config.Config, text string) bool {
	tokens := normalize.Tokenize(text)
	if len(tokens) < cfg.MinTokens || len(tokens) > cfg.MaxTokens {
		return false
	}

	totalLen := 0
	for _, tok := range tokens {
		totalLen += len(tok)
	}
	meanLen := float64(totalLen) / float64(len(tokens))
	if meanLen < cfg.MinMeanTokenLen || meanLen > cfg.MaxMeanTokenLen {
		return false
	}

	lines := strings.Split(text, "\n")
	ellipsisCt := 0
	for _, line := range lines {
		if strings.HasSuffix(line, "...") {
			ellipsisCt++
		}
	}
	if float64(ellipsisCt)/float64(len(lines)) > cfg.MaxEllipsisRatio {
		return false
	}

	minAlphaTokens := int(math.Ceil(float64(len(tokens)) * cfg.MinAlphaTokenRatio))
	maxNonAlphaTokens := len(tokens) - minAlphaTokens
	nonAlphaCt := 0
	for _, tok := range tokens {
		if !hasAlpha(tok) {
			nonAlphaCt++
		}
		if nonAlphaCt > maxNonAlphaTokens {
			return false
		}
	}

	return true
}

func endsWithAny(s string, suffixes []string) bool {
	for _, suf := range suffixes {
		if strings.HasSuffix(s, suf) {
			return true
		}
	}
	return false
}

func containsAny(s string, substrs []string) bool {
	for _, sub := range substrs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func hasAlpha(tok string) bool {
	for _, r := range tok {
		if unicode.IsLetter(r) {
			return true
		}
	}
	return false
}

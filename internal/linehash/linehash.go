// Package linehash computes the 32-bit line hash used by ExactLineDedup's
// two-pass counting algorithm and shares its base hash function with
// internal/minhash's signature construction, so both packages agree on one
// hashing primitive.
package linehash

import "github.com/twmb/murmur3"

// Hash returns the 32-bit MurmurHash3 of a line's bytes after trimming
// surrounding whitespace. Two lines that differ only in leading/trailing
// whitespace hash identically, matching ExactLineDedup's "strip before
// counting" rule.
func Hash(line string) uint32 {
	return murmur3.Sum32([]byte(stripWhitespace(line)))
}

func stripWhitespace(s string) string {
	start, end := 0, len(s)
	for start < end && isSpace(s[start]) {
		start++
	}
	for end > start && isSpace(s[end-1]) {
		end--
	}
	return s[start:end]
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r' || b == '\v' || b == '\f'
}

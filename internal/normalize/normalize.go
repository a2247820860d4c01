// Package normalize provides the text-normalization and tokenization
// primitives shared by HeuristicFilter's Gopher checks and MinHash's
// n-gram construction. Both callers must observe byte-identical output for
// the same input regardless of which one calls first, so normalization is
// centralized here rather than duplicated per package.
package normalize

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Normalize lowercases text, folds every rune that is neither a letter,
// digit, nor combining mark into a single space (combining marks are kept
// so the marks NFD produces survive a second pass), collapses runs of whitespace
// into one space, trims the result, and finally applies NFD Unicode
// normalization. It is idempotent: Normalize(Normalize(s)) == Normalize(s).
func Normalize(text string) string {
	lowered := strings.ToLower(text)

	var b strings.Builder
	b.Grow(len(lowered))
	lastWasSpace := false
	for _, r := range lowered {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsMark(r) {
			b.WriteRune(r)
			lastWasSpace = false
			continue
		}
		if !lastWasSpace {
			b.WriteRune(' ')
			lastWasSpace = true
		}
	}
	folded := strings.TrimSpace(b.String())
	return norm.NFD.String(folded)
}

// Tokenize splits text into whitespace-delimited word tokens plus
// single-character punctuation tokens, mirroring a conventional
// word-and-punctuation tokenizer. Consecutive punctuation characters are
// split into individual tokens so ellipsis runs ("...") can be detected by
// downstream Gopher checks.
func Tokenize(text string) []string {
	var tokens []string
	var cur strings.Builder

	flush := func() {
		if cur.Len() > 0 {
			tokens = append(tokens, cur.String())
			cur.Reset()
		}
	}

	for _, r := range text {
		switch {
		case unicode.IsSpace(r):
			flush()
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			flush()
			tokens = append(tokens, string(r))
		default:
			cur.WriteRune(r)
		}
	}
	flush()
	return tokens
}

// Words returns the whitespace-delimited fields of text — used by
// line-level word-count checks (C4's min-words-per-line rule). Punctuation
// attached to a word stays part of that field and adds no count of its own;
// a punctuation run standing alone between spaces counts as one field.
func Words(text string) []string {
	return strings.Fields(text)
}

// Package bundle reads and writes document-bundle files: plain-text files
// where documents are separated by a literal sentinel line sequence
// (spec.md §3/§6). The representation is fixed and must round-trip
// bit-exactly when no document is dropped.
package bundle

import (
	"os"
	"path/filepath"
	"strings"
)

// Sentinel is the exact 24-byte separator between documents in a bundle file.
const Sentinel = "\n\n---END_OF_DOC---\n\n"

// Document is an ordered sequence of lines. Each line excludes its newline;
// Join puts "\n" back between lines.
type Document []string

// Empty reports whether the document has no non-whitespace character.
func (d Document) Empty() bool {
	for _, line := range d {
		if strings.TrimSpace(line) != "" {
			return false
		}
	}
	return true
}

// Join reassembles a document's lines into one \n-separated string body
// (no trailing sentinel — callers append Sentinel between documents).
func (d Document) Join() string {
	return strings.Join(d, "\n")
}

// Split parses the raw contents of a bundle file into documents. A missing
// trailing sentinel is tolerated per spec.md §6. Splitting then rejoining
// with Sentinel reproduces the original byte stream exactly when no document
// is dropped and a trailing sentinel was present.
func Split(raw string) []Document {
	raw = strings.TrimSuffix(raw, Sentinel)
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, Sentinel)
	docs := make([]Document, len(parts))
	for i, p := range parts {
		docs[i] = splitLines(p)
	}
	return docs
}

// splitLines splits a document body on "\n" the way Python's
// str.split("\n") would, preserving empty lines (including a trailing empty
// line if the body ends with "\n").
func splitLines(body string) Document {
	if body == "" {
		return Document{}
	}
	return strings.Split(body, "\n")
}

// Render joins documents back into bundle-file contents, with a trailing
// sentinel always written after the last document (spec.md §6).
func Render(docs []Document) string {
	var b strings.Builder
	for _, d := range docs {
		b.WriteString(d.Join())
		b.WriteString(Sentinel)
	}
	return b.String()
}

// ReadFile reads and splits a bundle file as UTF-8. Decode errors are
// recovered by replacement: each run of invalid bytes becomes U+FFFD.
func ReadFile(path string) ([]Document, error) {
	data, err := os.ReadFile(path) //nolint:gosec // G703: path supplied by the orchestrator's file listing, not end-user input
	if err != nil {
		return nil, err
	}
	return Split(strings.ToValidUTF8(string(data), "�")), nil
}

// WriteFileAtomic writes docs to path atomically: write to a temp file in the
// same directory, then rename into place, so a crashed task never leaves a
// half-written file visible (spec.md §5).
func WriteFileAtomic(path string, docs []Document) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".bundle-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.WriteString(Render(docs)); err != nil {
		tmp.Close()        //nolint:errcheck // best-effort cleanup
		os.Remove(tmpName) //nolint:errcheck // #nosec G703 -- tmpName from os.CreateTemp, not user input
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName) //nolint:errcheck // #nosec G703 -- tmpName from os.CreateTemp, not user input
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName) //nolint:errcheck // #nosec G703 -- tmpName from os.CreateTemp, not user input
		return err
	}
	return nil
}

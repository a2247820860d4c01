// Package lsh implements banded locality-sensitive hashing over MinHash
// signatures: splitting a signature into num_bands striped bands and
// grouping documents that share an identical band, the standard
// approximate-nearest-neighbor filter ahead of exact Jaccard verification.
package lsh

import (
	"fmt"
	"strings"
)

// BandKey identifies one band's value for one document, suitable for use
// as a map key once combined with the band index (two documents matching
// in band 0 are unrelated to two documents matching in band 1 with the same
// values, so callers key per-band maps separately or prefix the index).
type BandKey string

// Band extracts the b-th striped band from a signature: every numBands-th
// element starting at offset b (sig[b], sig[b+numBands], sig[b+2*numBands],
// ...). This striped layout — not a contiguous slice — is the layout the
// reference pipeline used and is required for band b of one document to
// ever compare against band b (not some other band) of another.
func Band(sig []uint32, b, numBands int) BandKey {
	var parts []string
	for i := b; i < len(sig); i += numBands {
		parts = append(parts, fmt.Sprintf("%x", sig[i]))
	}
	return BandKey(strings.Join(parts, ","))
}

// Index buckets document identifiers (paths) by (band index, band key),
// producing candidate-duplicate pairs: two documents are emitted as a pair
// once for every band in which they share a bucket, so callers that need
// each pair once must de-duplicate across bands.
type Index struct {
	numBands int
	buckets  map[int]map[BandKey][]string
}

// NewIndex creates an empty banded index for signatures with the given
// number of bands.
func NewIndex(numBands int) *Index {
	return &Index{
		numBands: numBands,
		buckets:  make(map[int]map[BandKey][]string),
	}
}

// Add inserts one document's signature into every band bucket it belongs
// to, returning any new candidate pairs formed with documents already in
// the same bucket.
func (idx *Index) Add(path string, sig []uint32) []Pair {
	var pairs []Pair
	for b := 0; b < idx.numBands; b++ {
		key := Band(sig, b, idx.numBands)
		if idx.buckets[b] == nil {
			idx.buckets[b] = make(map[BandKey][]string)
		}
		bucket := idx.buckets[b][key]
		for _, other := range bucket {
			pairs = append(pairs, Pair{A: other, B: path})
		}
		idx.buckets[b][key] = append(bucket, path)
	}
	return pairs
}

// Pair is one candidate-duplicate pair of document identifiers.
type Pair struct {
	A, B string
}

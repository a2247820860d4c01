// Package minhash builds n-gram sets and MinHash signatures for NearDedup.
// A signature is num_hashes independent minimum-hash values computed with a
// single base hash function permuted by XOR-ing with each hash function's
// index — the same construction the original pipeline used, reimplemented
// with a corpus-native MurmurHash3 library instead of mmh3.
package minhash

import (
	"strings"

	"github.com/twmb/murmur3"

	"webcorpus-curator/internal/normalize"
)

// NoSignature is every signature slot's value when a document's n-gram set
// is empty (fewer words than the n-gram width) — the natural result of
// starting every slot at the maximum uint32 and never finding a smaller
// candidate.
const NoSignature uint32 = 0xFFFFFFFF

// NgramSet returns the set of normalized, whitespace-joined n-grams for
// text. Callers are expected to have already run normalize.Normalize on
// text; NgramSet only splits on whitespace and slides a window of n words.
func NgramSet(normalizedText string, n int) map[string]struct{} {
	words := strings.Fields(normalizedText)
	set := make(map[string]struct{})
	if len(words) < n {
		return set
	}
	for i := 0; i <= len(words)-n; i++ {
		set[strings.Join(words[i:i+n], " ")] = struct{}{}
	}
	return set
}

// NgramSetFromText normalizes text and returns its n-gram set in one step.
func NgramSetFromText(text string, n int) map[string]struct{} {
	return NgramSet(normalize.Normalize(text), n)
}

// Signature computes a numHashes-wide MinHash signature from an n-gram set.
// Each n-gram's base hash is MurmurHash3(ngram); the i-th hash function's
// value for that n-gram is base XOR i. The signature is the element-wise
// minimum of these permuted hashes across all n-grams. An empty set yields
// a signature of all NoSignature values.
func Signature(ngrams map[string]struct{}, numHashes int) []uint32 {
	sig := make([]uint32, numHashes)
	for i := range sig {
		sig[i] = NoSignature
	}

	for ngram := range ngrams {
		base := murmur3.Sum32([]byte(ngram))
		for i := 0; i < numHashes; i++ {
			v := base ^ uint32(i)
			if v < sig[i] {
				sig[i] = v
			}
		}
	}
	return sig
}

// Jaccard returns the Jaccard similarity |a ∩ b| / |a ∪ b| of two n-gram
// sets. Two empty sets are defined as dissimilar (0), matching the
// original pipeline's "skip if either side has no n-grams" behavior.
func Jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	inter := 0
	for ngram := range a {
		if _, ok := b[ngram]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

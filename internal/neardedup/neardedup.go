// Package neardedup orchestrates the NearDedup stage's four phases:
// signature construction, LSH candidate generation, verification and
// clustering, and materialization. Each phase is file-granular — NearDedup
// treats a whole input file as the unit of comparison, unlike
// HeuristicFilter/ExactLineDedup/PiiMasker which operate document-by-document
// within a bundle file.
package neardedup

import (
	"io"
	"os"
	"path/filepath"
	"sort"

	"webcorpus-curator/internal/lsh"
	"webcorpus-curator/internal/minhash"
	"webcorpus-curator/internal/normalize"
	"webcorpus-curator/internal/unionfind"
)

// Options bundles the tunables a NearDedup run needs, mirroring
// config.Config's NearDedup group so callers can pass it through directly.
type Options struct {
	Ngrams           int
	NumHashes        int
	NumBands         int
	JaccardThreshold float64
	CandidateBatch   int
}

// Signature is the result of Phase A for one file.
type Signature struct {
	Path   string
	Sig    []uint32
	Ngrams map[string]struct{}
}

// BuildSignature implements Phase A for one file: read, normalize, build
// the n-gram set, and compute its MinHash signature.
func BuildSignature(path string, opts Options) (Signature, error) {
	data, err := os.ReadFile(path) //nolint:gosec // G703: path from the orchestrator's file listing
	if err != nil {
		return Signature{}, err
	}
	normalized := normalize.Normalize(string(data))
	ngrams := minhash.NgramSet(normalized, opts.Ngrams)
	sig := minhash.Signature(ngrams, opts.NumHashes)
	return Signature{Path: path, Sig: sig, Ngrams: ngrams}, nil
}

// BuildCandidates implements Phase B: bucket every signature into its
// striped LSH bands and collect the candidate-duplicate pairs formed.
// Signatures are added in a deterministic (sorted-by-path) order so that
// re-running a fixed input set always produces the same candidate pair
// ordering, independent of upstream collection order.
func BuildCandidates(sigs []Signature, numBands int) []lsh.Pair {
	ordered := make([]Signature, len(sigs))
	copy(ordered, sigs)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Path < ordered[j].Path })

	idx := lsh.NewIndex(numBands)
	seen := make(map[lsh.Pair]struct{})
	var pairs []lsh.Pair
	for _, s := range ordered {
		for _, p := range idx.Add(s.Path, s.Sig) {
			key := normalizedPair(p)
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			pairs = append(pairs, key)
		}
	}
	return pairs
}

func normalizedPair(p lsh.Pair) lsh.Pair {
	if p.A > p.B {
		return lsh.Pair{A: p.B, B: p.A}
	}
	return p
}

// NgramLoader resolves a file's n-gram set, typically backed by
// internal/ngramcache so repeated lookups across many candidate pairs don't
// re-read and re-normalize the same file.
type NgramLoader func(path string) (map[string]struct{}, error)

// VerifyAndCluster implements Phase C: process candidate pairs in batches,
// verifying each with exact Jaccard similarity and union-find clustering
// the ones that clear threshold. Batching bounds how many n-gram sets are
// requested from loader in flight at once (the cache behind loader is what
// actually bounds memory; batches just bound request concurrency/ordering).
func VerifyAndCluster(pairs []lsh.Pair, loader NgramLoader, threshold float64, batchSize int) (*unionfind.UnionFind, error) {
	uf := unionfind.New()
	if batchSize <= 0 {
		batchSize = len(pairs)
		if batchSize == 0 {
			batchSize = 1
		}
	}

	for start := 0; start < len(pairs); start += batchSize {
		end := start + batchSize
		if end > len(pairs) {
			end = len(pairs)
		}
		for _, p := range pairs[start:end] {
			setA, err := loader(p.A)
			if err != nil {
				continue // unreadable file: excluded from candidacy, not fatal
			}
			setB, err := loader(p.B)
			if err != nil {
				continue
			}
			if minhash.Jaccard(setA, setB) >= threshold {
				uf.Union(p.A, p.B)
			}
		}
	}
	return uf, nil
}

// MaterializeResult summarizes Phase D's output.
type MaterializeResult struct {
	Written  []string
	Clusters int
}

// Materialize implements Phase D: copy every non-clustered file verbatim,
// plus exactly one deterministically-chosen representative per cluster
// (lexicographically smallest path), into outDir, preserving filenames.
func Materialize(allPaths []string, uf *unionfind.UnionFind, outDir string) (MaterializeResult, error) {
	clusters := uf.Clusters()

	clustered := make(map[string]struct{})
	for _, members := range clusters {
		for _, m := range members {
			clustered[m] = struct{}{}
		}
	}

	var toWrite []string
	for _, p := range allPaths {
		if _, inCluster := clustered[p]; !inCluster {
			toWrite = append(toWrite, p)
		}
	}
	for _, members := range clusters {
		toWrite = append(toWrite, representative(members))
	}
	sort.Strings(toWrite)

	for _, src := range toWrite {
		if err := copyFileAtomic(src, filepath.Join(outDir, filepath.Base(src))); err != nil {
			return MaterializeResult{}, err
		}
	}

	return MaterializeResult{Written: toWrite, Clusters: len(clusters)}, nil
}

// representative chooses the deterministic cluster representative:
// lexicographically smallest path, for reproducibility across runs.
func representative(members []string) string {
	best := members[0]
	for _, m := range members[1:] {
		if m < best {
			best = m
		}
	}
	return best
}

func copyFileAtomic(src, dst string) error {
	in, err := os.Open(src) //nolint:gosec // G703: path from orchestrator's file listing
	if err != nil {
		return err
	}
	defer in.Close()

	dir := filepath.Dir(dst)
	tmp, err := os.CreateTemp(dir, ".neardedup-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := io.Copy(tmp, in); err != nil {
		tmp.Close()        //nolint:errcheck // best-effort cleanup
		os.Remove(tmpName) //nolint:errcheck // #nosec G703 -- tmpName from os.CreateTemp
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName) //nolint:errcheck // #nosec G703 -- tmpName from os.CreateTemp
		return err
	}
	return os.Rename(tmpName, dst)
}

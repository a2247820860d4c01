package main

import (
	"sync"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"webcorpus-curator/internal/config"
	"webcorpus-curator/internal/logger"
	"webcorpus-curator/internal/neardedup"
	"webcorpus-curator/internal/ngramcache"
)

var nearDedupArgs struct {
	dataDir          string
	outDir           string
	maxFiles         int
	mp               int
	numHashes        int
	numBands         int
	ngrams           int
	jaccardThreshold float64
	signatures       string
	ngramCacheDir    string
}

var nearDedupCmd = &cobra.Command{
	Use:   "near-dedup",
	Short: "Cluster near-duplicate files by banded MinHash LSH and keep one representative per cluster",
	RunE:  runNearDedup,
}

func init() {
	a := &nearDedupArgs
	nearDedupCmd.Flags().StringVar(&a.dataDir, "data-dir", "", "input directory (required)")
	nearDedupCmd.Flags().StringVar(&a.outDir, "out-dir", "", "output directory (required)")
	nearDedupCmd.Flags().IntVar(&a.maxFiles, "max-files", 0, "limit the number of input files processed (0 = no limit)")
	nearDedupCmd.Flags().IntVar(&a.mp, "mp", 0, "worker count for Phase A signature construction (0 = runtime.NumCPU())")
	nearDedupCmd.Flags().IntVar(&a.numHashes, "num-hashes", 0, "MinHash signature width (0 = config default)")
	nearDedupCmd.Flags().IntVar(&a.numBands, "num-bands", 0, "LSH band count (0 = config default)")
	nearDedupCmd.Flags().IntVar(&a.ngrams, "ngrams", 0, "n-gram size (0 = config default)")
	nearDedupCmd.Flags().Float64Var(&a.jaccardThreshold, "jaccard-threshold", 0, "verification threshold (0 = config default)")
	nearDedupCmd.Flags().StringVar(&a.signatures, "signatures", "", "bbolt signature checkpoint path (empty = no checkpointing)")
	nearDedupCmd.Flags().StringVar(&a.ngramCacheDir, "ngram-cache-dir", "", "bbolt n-gram cache directory (empty = in-memory cache)")
	_ = nearDedupCmd.MarkFlagRequired("data-dir")
	_ = nearDedupCmd.MarkFlagRequired("out-dir")
}

func runNearDedup(cmd *cobra.Command, args []string) error {
	a := nearDedupArgs
	cfg := config.Load()
	log := logger.New("NEARDEDUP", cfg.LogLevel)

	opts := neardedup.Options{
		Ngrams:           firstPositive(a.ngrams, cfg.Ngrams),
		NumHashes:        firstPositive(a.numHashes, cfg.NumHashes),
		NumBands:         firstPositive(a.numBands, cfg.NumBands),
		JaccardThreshold: firstPositiveFloat(a.jaccardThreshold, cfg.JaccardThreshold),
		CandidateBatch:   cfg.CandidateBatch,
	}

	if err := ensureOutDir(a.outDir); err != nil {
		return err
	}
	inputs, err := discoverFiles(a.dataDir, a.maxFiles)
	if err != nil {
		return err
	}
	log.Infof("start", "phase A: signing %d files", len(inputs))

	var sigStore *ngramcache.SignatureStore
	if a.signatures != "" {
		sigStore, err = ngramcache.OpenSignatureStore(a.signatures, opts.NumHashes)
		if err != nil {
			return err
		}
		defer sigStore.Close()
	}

	sigs, err := buildSignatures(inputs, opts, sigStore, resolveWorkerCount(a.mp))
	if err != nil {
		return err
	}
	log.Infof("phaseA_done", "%d signatures built", len(sigs))

	pairs := neardedup.BuildCandidates(sigs, opts.NumBands)
	log.Infof("phaseB_done", "%d candidate pairs", len(pairs))

	var cacheStore ngramcache.Store
	if a.ngramCacheDir != "" {
		cacheStore, err = ngramcache.NewBoltStore(a.ngramCacheDir + "/ngrams.db")
		if err != nil {
			return err
		}
	} else {
		cacheStore = ngramcache.NewMemoryStore()
	}
	cache := ngramcache.NewCache(cacheStore, cfg.NgramCacheCap)
	defer cache.Close()

	bySig := make(map[string]map[string]struct{}, len(sigs))
	for _, s := range sigs {
		bySig[s.Path] = s.Ngrams
	}
	loader := func(path string) (map[string]struct{}, error) {
		if ng, ok := cache.Get(path); ok {
			return ng, nil
		}
		if ng, ok := bySig[path]; ok {
			cache.Set(path, ng)
			return ng, nil
		}
		sig, err := neardedup.BuildSignature(path, opts)
		if err != nil {
			return nil, err
		}
		cache.Set(path, sig.Ngrams)
		return sig.Ngrams, nil
	}

	uf, err := neardedup.VerifyAndCluster(pairs, loader, opts.JaccardThreshold, opts.CandidateBatch)
	if err != nil {
		return err
	}
	log.Infof("phaseC_done", "clustered %d groups", len(uf.Clusters()))

	result, err := neardedup.Materialize(inputs, uf, a.outDir)
	if err != nil {
		return err
	}
	log.Infof("done", "wrote %d files (%d clusters collapsed to representatives)", len(result.Written), result.Clusters)
	return nil
}

func buildSignatures(inputs []string, opts neardedup.Options, store *ngramcache.SignatureStore, workers int) ([]neardedup.Signature, error) {
	sem := make(chan struct{}, workers)
	g := new(errgroup.Group)
	var mu sync.Mutex
	sigs := make([]neardedup.Signature, 0, len(inputs))

	for _, p := range inputs {
		p := p
		g.Go(func() error {
			sem <- struct{}{}
			defer func() { <-sem }()

			if store != nil {
				if cached, ok, err := store.Get(p); err != nil {
					return err
				} else if ok {
					sig, sigErr := neardedup.BuildSignature(p, opts)
					if sigErr != nil {
						return sigErr
					}
					sig.Sig = cached
					mu.Lock()
					sigs = append(sigs, sig)
					mu.Unlock()
					return nil
				}
			}

			sig, err := neardedup.BuildSignature(p, opts)
			if err != nil {
				return err
			}
			if store != nil {
				if err := store.Set(p, sig.Sig); err != nil {
					return err
				}
			}
			mu.Lock()
			sigs = append(sigs, sig)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return sigs, nil
}

func firstPositive(v, fallback int) int {
	if v > 0 {
		return v
	}
	return fallback
}

func firstPositiveFloat(v, fallback float64) float64 {
	if v > 0 {
		return v
	}
	return fallback
}

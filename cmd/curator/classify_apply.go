package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"webcorpus-curator/internal/bundle"
	"webcorpus-curator/internal/classify"
	"webcorpus-curator/internal/config"
	"webcorpus-curator/internal/jobrunner"
	"webcorpus-curator/internal/logger"
)

var classifyApplyFlags stageFlags
var classifyApplyArgs struct {
	classifierPath string
	mode           string
	threshold      float64
}

var classifyApplyCmd = &cobra.Command{
	Use:   "classify-apply",
	Short: "Apply a quality classifier, keeping or oversampling each document",
	RunE:  runClassifyApply,
}

func init() {
	addStageFlags(classifyApplyCmd, &classifyApplyFlags)
	classifyApplyCmd.Flags().StringVar(&classifyApplyArgs.classifierPath, "classifier-path", "", "classifier model file (required)")
	classifyApplyCmd.Flags().StringVar(&classifyApplyArgs.mode, "mode", "", "threshold|bucket (empty = config default)")
	classifyApplyCmd.Flags().Float64Var(&classifyApplyArgs.threshold, "threshold", 0, "keep threshold for threshold mode (0 = config default)")
	_ = classifyApplyCmd.MarkFlagRequired("classifier-path")
}

func runClassifyApply(cmd *cobra.Command, args []string) error {
	f := classifyApplyFlags
	cfg := config.Load()
	log := logger.New("CLASSIFY", cfg.LogLevel)

	clf, err := classify.Load(classifyApplyArgs.classifierPath)
	if err != nil {
		return err
	}

	mode := classifyApplyArgs.mode
	if mode == "" {
		mode = cfg.ClassifierMode
	}
	threshold := classifyApplyArgs.threshold
	if threshold <= 0 {
		threshold = cfg.ClassifierThreshold
	}
	if mode != "threshold" && mode != "bucket" {
		return fmt.Errorf("invalid --mode %q: must be threshold or bucket", mode)
	}

	if err := ensureOutDir(f.outDir); err != nil {
		return err
	}
	inputs, err := discoverFiles(f.dataDir, f.maxFiles)
	if err != nil {
		return err
	}
	log.Infof("start", "classifying %d files in %s mode", len(inputs), mode)

	task := func(ctx context.Context, inPath, outPath string) (jobrunner.MetaFields, error) {
		docs, err := bundle.ReadFile(inPath)
		if err != nil {
			return nil, err
		}

		var out []bundle.Document
		kept, dropped := 0, 0
		for _, doc := range docs {
			label, confidence, err := clf.Classify(doc.Join())
			if err != nil {
				return nil, err
			}
			posScore := classify.PosScore(label, confidence)

			if mode == "threshold" {
				if classify.ApplyThreshold(posScore, threshold) {
					out = append(out, doc)
					kept++
				} else {
					dropped++
				}
				continue
			}

			repeat := classify.ApplyBucket(posScore, cfg.Buckets)
			for i := 0; i < repeat; i++ {
				out = append(out, doc)
			}
			if repeat > 0 {
				kept++
			} else {
				dropped++
			}
		}

		if err := bundle.WriteFileAtomic(outPath, out); err != nil {
			return nil, err
		}
		return jobrunner.MetaFields{"docsKept": kept, "docsDropped": dropped, "docsWritten": len(out)}, nil
	}

	results, err := jobrunner.Run(cmd.Context(), inputs, func(in string) string { return outPathIn(f.outDir, in) }, task, jobrunner.Options{
		Workers:     f.workers(),
		TaskTimeout: taskTimeout(cfg),
		JobsLogPath: jobsLogPath(f.outDir),
	})
	if err != nil {
		return err
	}
	return reportResults(log, results)
}

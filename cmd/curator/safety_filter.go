package main

import (
	"context"

	"github.com/spf13/cobra"

	"webcorpus-curator/internal/bundle"
	"webcorpus-curator/internal/classify"
	"webcorpus-curator/internal/config"
	"webcorpus-curator/internal/jobrunner"
	"webcorpus-curator/internal/logger"
)

var safetyFilterFlags stageFlags
var safetyFilterArgs struct {
	nsfwModel  string
	toxicModel string
}

var safetyFilterCmd = &cobra.Command{
	Use:   "safety-filter",
	Short: "Drop documents flagged as NSFW or toxic speech",
	RunE:  runSafetyFilter,
}

func init() {
	addStageFlags(safetyFilterCmd, &safetyFilterFlags)
	safetyFilterCmd.Flags().StringVar(&safetyFilterArgs.nsfwModel, "nsfw-model", "", "NSFW classifier model file (required)")
	safetyFilterCmd.Flags().StringVar(&safetyFilterArgs.toxicModel, "toxic-model", "", "toxic-speech classifier model file (required)")
	_ = safetyFilterCmd.MarkFlagRequired("nsfw-model")
	_ = safetyFilterCmd.MarkFlagRequired("toxic-model")
}

func runSafetyFilter(cmd *cobra.Command, args []string) error {
	f := safetyFilterFlags
	cfg := config.Load()
	log := logger.New("SAFETYFILTER", cfg.LogLevel)

	nsfw, err := classify.Load(safetyFilterArgs.nsfwModel)
	if err != nil {
		return err
	}
	toxic, err := classify.Load(safetyFilterArgs.toxicModel)
	if err != nil {
		return err
	}

	if err := ensureOutDir(f.outDir); err != nil {
		return err
	}
	inputs, err := discoverFiles(f.dataDir, f.maxFiles)
	if err != nil {
		return err
	}
	log.Infof("start", "safety-filtering %d files", len(inputs))

	task := func(ctx context.Context, inPath, outPath string) (jobrunner.MetaFields, error) {
		docs, err := bundle.ReadFile(inPath)
		if err != nil {
			return nil, err
		}

		var kept []bundle.Document
		rejectedNSFW, rejectedToxic := 0, 0
		for _, doc := range docs {
			text := doc.Join()

			nsfwLabel, _, err := nsfw.Classify(text)
			if err != nil {
				return nil, err
			}
			if nsfwLabel == classify.Positive {
				rejectedNSFW++
				continue
			}

			toxicLabel, _, err := toxic.Classify(text)
			if err != nil {
				return nil, err
			}
			if toxicLabel == classify.Positive {
				rejectedToxic++
				continue
			}

			kept = append(kept, doc)
		}

		if err := bundle.WriteFileAtomic(outPath, kept); err != nil {
			return nil, err
		}
		return jobrunner.MetaFields{
			"docsKept": len(kept),
			"rejectedByType": map[string]int{
				"nsfw":  rejectedNSFW,
				"toxic": rejectedToxic,
			},
		}, nil
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

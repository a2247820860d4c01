package main

import (
	"context"
	"strings"

	"github.com/spf13/cobra"

	"webcorpus-curator/internal/bundle"
	"webcorpus-curator/internal/config"
	"webcorpus-curator/internal/jobrunner"
	"webcorpus-curator/internal/logger"
	"webcorpus-curator/internal/pii"
)

var piiMaskFlags stageFlags

var piiMaskCmd = &cobra.Command{
	Use:   "pii-mask",
	Short: "Mask emails, phone numbers, and IP addresses in each document",
	RunE:  runPIIMask,
}

func init() {
	addStageFlags(piiMaskCmd, &piiMaskFlags)
}

func runPIIMask(cmd *cobra.Command, args []string) error {
	f := piiMaskFlags
	cfg := config.Load()
	log := logger.New("PIIMASK", cfg.LogLevel)

	if err := ensureOutDir(f.outDir); err != nil {
		return err
	}
	inputs, err := discoverFiles(f.dataDir, f.maxFiles)
	if err != nil {
		return err
	}
	log.Infof("start", "masking %d files", len(inputs))

	task := func(ctx context.Context, inPath, outPath string) (jobrunner.MetaFields, error) {
		docs, err := bundle.ReadFile(inPath)
		if err != nil {
			return nil, err
		}

		masked := make([]bundle.Document, len(docs))
		total := 0
		for i, doc := range docs {
			text, n := pii.MaskAll(doc.Join())
			total += n
			masked[i] = splitDocument(text)
		}

		if err := bundle.WriteFileAtomic(outPath, masked); err != nil {
			return nil, err
		}
		return jobrunner.MetaFields{"tokensReplaced": total}, nil
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

// splitDocument turns a masked document's text back into per-line form,
// mirroring how bundle.Document.Join() assembled it (lines joined by "\n").
func splitDocument(text string) bundle.Document {
	if text == "" {
		return bundle.Document{}
	}
	return strings.Split(text, "\n")
}

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

var languageFilterFlags stageFlags
var languageFilterArgs struct {
	model    string
	keepLang string
}

var languageFilterCmd = &cobra.Command{
	Use:   "language-filter",
	Short: "Drop documents not identified as the configured language",
	RunE:  runLanguageFilter,
}

func init() {
	addStageFlags(languageFilterCmd, &languageFilterFlags)
	languageFilterCmd.Flags().StringVar(&languageFilterArgs.model, "model", "", "language-id model file (required)")
	languageFilterCmd.Flags().StringVar(&languageFilterArgs.keepLang, "keep-lang", "en", "language code to keep")
	_ = languageFilterCmd.MarkFlagRequired("model")
}

func runLanguageFilter(cmd *cobra.Command, args []string) error {
	f := languageFilterFlags
	cfg := config.Load()
	log := logger.New("LANGFILTER", cfg.LogLevel)

	id, err := classify.LoadLanguageIdentifier(languageFilterArgs.model)
	if err != nil {
		return err
	}
	keepLang := languageFilterArgs.keepLang

	if err := ensureOutDir(f.outDir); err != nil {
		return err
	}
	inputs, err := discoverFiles(f.dataDir, f.maxFiles)
	if err != nil {
		return err
	}
	log.Infof("start", "language-filtering %d files, keeping %q", len(inputs), keepLang)

	task := func(ctx context.Context, inPath, outPath string) (jobrunner.MetaFields, error) {
		docs, err := bundle.ReadFile(inPath)
		if err != nil {
			return nil, err
		}

		var kept []bundle.Document
		rejected := 0
		for _, doc := range docs {
			lang, _, err := id.Identify(doc.Join())
			if err != nil {
				return nil, err
			}
			if lang == keepLang {
				kept = append(kept, doc)
			} else {
				rejected++
			}
		}

		if err := bundle.WriteFileAtomic(outPath, kept); err != nil {
			return nil, err
		}
		return jobrunner.MetaFields{"docsKept": len(kept), "rejectedByType": map[string]int{"language": rejected}}, nil
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

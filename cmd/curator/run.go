package main

import (
	"path/filepath"

	"github.com/spf13/cobra"

	"webcorpus-curator/internal/config"
	"webcorpus-curator/internal/logger"
)

var runArgs struct {
	configPath string
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the full ordered pipeline (S0a..S5) from a single config file",
	Long: `run executes every configured stage in order, piping each stage's
output directory into the next stage's input:

  S0a LanguageFilter (optional, enabled by runLanguageFilter)
  S0b SafetyFilter    (optional, enabled by runSafetyFilter)
  S1  HeuristicFilter
  S2  PiiMasker
  S3  ExactLineDedup
  S4  NearDedup
  S5  QualityClassifierApply

Each stage writes into its own subdirectory under outDir/stages/ so a failed
run can be resumed stage-by-stage without rereading the whole config.`,
	RunE: runPipeline,
}

func init() {
	runCmd.Flags().StringVar(&runArgs.configPath, "config", "", "pipeline config JSON file (required)")
	_ = runCmd.MarkFlagRequired("config")
}

func runPipeline(cmd *cobra.Command, args []string) error {
	cfg := config.LoadPath(runArgs.configPath)
	if err := cfg.Validate(); err != nil {
		return err
	}
	log := logger.New("RUN", cfg.LogLevel)

	if cfg.DataDir == "" || cfg.OutDir == "" {
		log.Error("config", "config file must set dataDir and outDir")
		return errConfigRequiresDirs
	}

	stagesDir := filepath.Join(cfg.OutDir, "stages")
	current := cfg.DataDir

	if cfg.RunLanguageFilter {
		out := filepath.Join(stagesDir, "00a-language")
		log.Info("stage", "S0a LanguageFilter: "+current+" -> "+out)
		languageFilterFlags = stageFlags{dataDir: current, outDir: out, mp: cfg.Workers}
		languageFilterArgs.model = cfg.LanguageModelPath
		if cfg.KeepLang != "" {
			languageFilterArgs.keepLang = cfg.KeepLang
		} else {
			languageFilterArgs.keepLang = "en"
		}
		if err := runLanguageFilter(cmd, nil); err != nil {
			return err
		}
		current = out
	}

	if cfg.RunSafetyFilter {
		out := filepath.Join(stagesDir, "00b-safety")
		log.Info("stage", "S0b SafetyFilter: "+current+" -> "+out)
		safetyFilterFlags = stageFlags{dataDir: current, outDir: out, mp: cfg.Workers}
		safetyFilterArgs.nsfwModel = cfg.NSFWModelPath
		safetyFilterArgs.toxicModel = cfg.ToxicModelPath
		if err := runSafetyFilter(cmd, nil); err != nil {
			return err
		}
		current = out
	}

	{
		out := filepath.Join(stagesDir, "01-heuristic")
		log.Info("stage", "S1 HeuristicFilter: "+current+" -> "+out)
		heuristicFilterFlags = stageFlags{dataDir: current, outDir: out, mp: cfg.Workers}
		if err := runHeuristicFilter(cmd, nil); err != nil {
			return err
		}
		current = out
	}

	{
		out := filepath.Join(stagesDir, "02-pii")
		log.Info("stage", "S2 PiiMasker: "+current+" -> "+out)
		piiMaskFlags = stageFlags{dataDir: current, outDir: out, mp: cfg.Workers}
		if err := runPIIMask(cmd, nil); err != nil {
			return err
		}
		current = out
	}

	{
		out := filepath.Join(stagesDir, "03-exactdedup")
		log.Info("stage", "S3 ExactLineDedup: "+current+" -> "+out)
		exactDedupFlags = stageFlags{dataDir: current, outDir: out, mp: cfg.Workers}
		if err := runExactDedup(cmd, nil); err != nil {
			return err
		}
		current = out
	}

	{
		out := filepath.Join(stagesDir, "04-neardedup")
		log.Info("stage", "S4 NearDedup: "+current+" -> "+out)
		nearDedupArgs.dataDir = current
		nearDedupArgs.outDir = out
		nearDedupArgs.mp = cfg.Workers
		nearDedupArgs.signatures = cfg.SignaturesPath
		nearDedupArgs.ngramCacheDir = cfg.NgramCacheDir
		if err := runNearDedup(cmd, nil); err != nil {
			return err
		}
		current = out
	}

	{
		log.Info("stage", "S5 QualityClassifierApply: "+current+" -> "+cfg.OutDir)
		classifyApplyFlags = stageFlags{dataDir: current, outDir: cfg.OutDir, mp: cfg.Workers}
		classifyApplyArgs.classifierPath = cfg.ClassifierPath
		classifyApplyArgs.mode = cfg.ClassifierMode
		classifyApplyArgs.threshold = cfg.ClassifierThreshold
		if err := runClassifyApply(cmd, nil); err != nil {
			return err
		}
	}

	log.Info("done", "pipeline complete, final output in "+cfg.OutDir)
	return nil
}

package main

import (
	"github.com/spf13/cobra"

	"webcorpus-curator/internal/config"
	"webcorpus-curator/internal/logger"
	"webcorpus-curator/internal/reservation"
)

var sweepArgs struct {
	outDir  string
	jobsLog string
}

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Clear reservation sentinels for jobs that completed but were never released",
	Long: `sweep reclaims stale "<outfile>.reservation.txt" sentinels: for every
output path recorded in the job log whose output (or .meta.json sidecar) now
exists, the sentinel is removed. Sentinels with no job-log entry at all are
only reported, under "orphaned" — clearing those needs operator judgment.`,
	RunE: runSweep,
}

func init() {
	sweepCmd.Flags().StringVar(&sweepArgs.outDir, "out-dir", "", "output directory to sweep (required)")
	sweepCmd.Flags().StringVar(&sweepArgs.jobsLog, "jobs-log", "", "job-args log path (default: <out-dir>/.jobs.jsonl)")
	_ = sweepCmd.MarkFlagRequired("out-dir")
}

func runSweep(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	log := logger.New("SWEEP", cfg.LogLevel)

	logPath := sweepArgs.jobsLog
	if logPath == "" {
		logPath = jobsLogPath(sweepArgs.outDir)
	}

	cleared, err := reservation.Sweep(logPath, sweepArgs.outDir)
	if err != nil {
		return err
	}
	log.Infof("cleared", "%d reservations cleared", len(cleared))
	for _, c := range cleared {
		log.Infof("cleared_path", c)
	}

	orphans, err := reservation.OrphanedSentinels(sweepArgs.outDir, logPath)
	if err != nil {
		return err
	}
	if len(orphans) > 0 {
		log.Warnf("orphaned", "%d sentinels have no job-log entry and were not cleared", len(orphans))
		for _, o := range orphans {
			log.Warnf("orphaned_path", o)
		}
	}
	return nil
}

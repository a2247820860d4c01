// Command curator runs the web-corpus curation pipeline: heuristic quality
// filtering, PII masking, exact and near line/document deduplication,
// classifier-driven oversampling, and the language/safety pre-filters,
// each as its own subcommand plus an orchestrator that runs the full
// ordered pipeline.
//
// Usage:
//
//	curator heuristic-filter --data-dir D --out-dir O
//	curator run --config curator-config.json
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// Package config loads and holds all pipeline configuration.
// Settings are layered: defaults → curator-config.json → environment
// variables (env vars win).
package config

import (
	"encoding/json"
	"log"
	"os"
	"strconv"

	"webcorpus-curator/internal/corpuserr"
)

// Config holds the full pipeline configuration shared by every stage.
type Config struct {
	LogLevel string `json:"logLevel"`

	// HeuristicFilter (C4 + Gopher)
	PageBlacklist      []string `json:"pageBlacklist"`
	LineBlacklist      []string `json:"lineBlacklist"`
	ShortLineBlacklist []string `json:"shortLineBlacklist"`
	MinTokens          int      `json:"minTokens"`
	MaxTokens          int      `json:"maxTokens"`
	MinMeanTokenLen    float64  `json:"minMeanTokenLen"`
	MaxMeanTokenLen    float64  `json:"maxMeanTokenLen"`
	MaxEllipsisRatio   float64  `json:"maxEllipsisLineRatio"`
	MinAlphaTokenRatio float64  `json:"minAlphaTokenRatio"`
	MinLineWords       int      `json:"minLineWords"`
	ShortLineMaxWords  int      `json:"shortLineMaxWords"`

	// ExactLineDedup
	ExactDedupMinTokens int `json:"exactDedupMinTokens"`

	// NearDedup
	NumHashes        int     `json:"numHashes"`
	NumBands         int     `json:"numBands"`
	Ngrams           int     `json:"ngrams"`
	JaccardThreshold float64 `json:"jaccardThreshold"`
	NgramCacheCap    int     `json:"ngramCacheCapacity"`
	CandidateBatch   int     `json:"candidateBatchSize"`

	// QualityClassifierApply
	ClassifierMode      string       `json:"classifierMode"` // "threshold" | "bucket"
	ClassifierThreshold float64      `json:"classifierThreshold"`
	Buckets             []BucketSpec `json:"buckets"`

	// Orchestrator / JobRunner
	Workers         int    `json:"workers"`
	TaskTimeoutSecs int    `json:"taskTimeoutSecs"`
	ManagementPort  int    `json:"managementPort"`
	ManagementToken string `json:"managementToken"`

	// Pipeline wiring, read only by "curator run": where the ordered S0a..S5
	// stages read their input and write their final output, and the model
	// paths each optional stage needs.
	DataDir            string `json:"dataDir"`
	OutDir             string `json:"outDir"`
	LanguageModelPath  string `json:"languageModelPath"`
	KeepLang           string `json:"keepLang"`
	NSFWModelPath      string `json:"nsfwModelPath"`
	ToxicModelPath     string `json:"toxicModelPath"`
	ClassifierPath     string `json:"classifierPath"`
	SignaturesPath     string `json:"signaturesPath"`
	NgramCacheDir      string `json:"ngramCacheDir"`
	RunLanguageFilter  bool   `json:"runLanguageFilter"`
	RunSafetyFilter    bool   `json:"runSafetyFilter"`
}

// BucketSpec is one (min_score, repeat_count) entry of the oversampling table.
type BucketSpec struct {
	MinScore    float64 `json:"minScore"`
	RepeatCount int     `json:"repeatCount"`
}

// Load returns config with defaults overridden by curator-config.json and env vars.
func Load() *Config {
	cfg := Defaults()
	loadFile(cfg, "curator-config.json")
	loadEnv(cfg)
	return cfg
}

// LoadPath is like Load but reads the named file instead of the fixed
// "curator-config.json" path, for subcommands (e.g. "curator run") invoked
// with an explicit --config flag.
func LoadPath(path string) *Config {
	cfg := Defaults()
	loadFile(cfg, path)
	loadEnv(cfg)
	return cfg
}

// Defaults returns the built-in configuration (spec.md §4 defaults).
func Defaults() *Config {
	return &Config{
		LogLevel: "info",

		PageBlacklist: []string{"lorem ipsum", "{"},
		LineBlacklist: []string{
			"javascript",
			"privacy policy",
			"terms of use",
			"cookie policy",
			"uses cookies",
			"use of cookies",
			"use cookies",
			"all rights reserved",
			"terms and conditions",
			"copyright ©",
			"© copyright",
		},
		ShortLineBlacklist: []string{"powered by", "designed by", "theme by", "template by", "website by"},
		MinTokens:          50,
		MaxTokens:          100000,
		MinMeanTokenLen:    3,
		MaxMeanTokenLen:    10,
		MaxEllipsisRatio:   0.3,
		MinAlphaTokenRatio: 0.8,
		MinLineWords:       5,
		ShortLineMaxWords:  15,

		ExactDedupMinTokens: 50,

		NumHashes:        100,
		NumBands:         10,
		Ngrams:           5,
		JaccardThreshold: 0.8,
		NgramCacheCap:    3000,
		CandidateBatch:   10000,

		ClassifierMode:      "threshold",
		ClassifierThreshold: 0.8,
		Buckets: []BucketSpec{
			{MinScore: 0.84, RepeatCount: 4},
			{MinScore: 0.72, RepeatCount: 3},
			{MinScore: 0.58, RepeatCount: 2},
			{MinScore: 0.36, RepeatCount: 1},
			{MinScore: 0.0, RepeatCount: 0},
		},

		Workers:         0, // 0 = runtime.NumCPU()
		TaskTimeoutSecs: 600,
		ManagementPort:  8090,
	}
}

func loadFile(cfg *Config, path string) {
	data, err := os.ReadFile(path) //nolint:gosec // G703: path is a controlled config file path, not user input
	if err != nil {
		return // file is optional
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		log.Printf("[CONFIG] Warning: could not parse %s: %v", path, err)
	} else {
		log.Printf("[CONFIG] Loaded %s", path)
	}
}

func loadEnv(cfg *Config) {
	if v := os.Getenv("CURATOR_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("CURATOR_NUM_HASHES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.NumHashes = n
		}
	}
	if v := os.Getenv("CURATOR_NUM_BANDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.NumBands = n
		}
	}
	if v := os.Getenv("CURATOR_NGRAMS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Ngrams = n
		}
	}
	if v := os.Getenv("CURATOR_JACCARD_THRESHOLD"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.JaccardThreshold = f
		}
	}
	if v := os.Getenv("CURATOR_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.Workers = n
		}
	}
	if v := os.Getenv("CURATOR_TASK_TIMEOUT_SECS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.TaskTimeoutSecs = n
		}
	}
	if v := os.Getenv("CURATOR_MANAGEMENT_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.ManagementPort = n
		}
	}
	if v := os.Getenv("CURATOR_MANAGEMENT_TOKEN"); v != "" {
		cfg.ManagementToken = v
	}
}

// Validate checks the invariants the runner depends on. It returns a
// corpuserr.ConfigError (fatal at startup per spec.md §7) on violation.
func (c *Config) Validate() error {
	if c.NumBands <= 0 || c.NumHashes <= 0 {
		return &corpuserr.ConfigError{Reason: "numHashes and numBands must be positive"}
	}
	if c.NumHashes%c.NumBands != 0 {
		return &corpuserr.ConfigError{Reason: "numHashes must be evenly divisible by numBands"}
	}
	return nil
}

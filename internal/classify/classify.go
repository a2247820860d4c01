// Package classify implements the QualityClassifierApply stage: applying a
// binary quality classifier to each document and deciding, in either
// threshold or bucket mode, how many copies of the document to emit.
package classify

import (
	"encoding/json"
	"os"
	"sort"
	"strings"

	"webcorpus-curator/internal/config"
	"webcorpus-curator/internal/corpuserr"
)

// Label is a classifier's binary verdict.
type Label string

const (
	Positive Label = "positive"
	Negative Label = "negative"
)

// Classifier scores one document, returning a label and a confidence in
// [0, 1].
type Classifier interface {
	Classify(text string) (label Label, confidence float64, err error)
}

// Load opens a classifier model file at path. A missing file is a fatal
// configuration error (spec.md §7's ClassifierUnavailable), not a
// recoverable per-document one — the coordinator must not silently fall
// back to no filtering.
func Load(path string) (Classifier, error) {
	data, err := os.ReadFile(path) //nolint:gosec // G703: path is an operator-supplied model path, not user input
	if err != nil {
		return nil, &corpuserr.ClassifierUnavailable{Path: path, Err: err}
	}

	var model heuristicModel
	if err := json.Unmarshal(data, &model); err != nil {
		return nil, &corpuserr.ClassifierUnavailable{Path: path, Err: err}
	}
	return &RegexHeuristicClassifier{model: model}, nil
}

// StaticClassifier always returns the same label/confidence; used in tests
// and dry runs where a real model is unavailable or unnecessary.
type StaticClassifier struct {
	Label      Label
	Confidence float64
}

// Classify returns the classifier's fixed label and confidence.
func (s StaticClassifier) Classify(string) (Label, float64, error) {
	return s.Label, s.Confidence, nil
}

// heuristicModel is the on-disk shape for RegexHeuristicClassifier: two
// weighted keyword lists. It stands in for a real trained model — no
// dependency in the corpus provides an ML inference runtime, so keyword
// scoring is the dependency-free fallback the pipeline can ship without an
// external model file format.
type heuristicModel struct {
	PositiveKeywords []string `json:"positiveKeywords"`
	NegativeKeywords []string `json:"negativeKeywords"`
}

// RegexHeuristicClassifier scores text by counting keyword occurrences
// from each list and normalizing into a confidence score. It is a
// dependency-free fallback classifier, not a trained model.
type RegexHeuristicClassifier struct {
	model heuristicModel
}

// Classify implements Classifier using simple keyword-occurrence scoring.
func (c *RegexHeuristicClassifier) Classify(text string) (Label, float64, error) {
	lower := strings.ToLower(text)
	pos, neg := 0, 0
	for _, kw := range c.model.PositiveKeywords {
		pos += strings.Count(lower, strings.ToLower(kw))
	}
	for _, kw := range c.model.NegativeKeywords {
		neg += strings.Count(lower, strings.ToLower(kw))
	}

	total := pos + neg
	if total == 0 {
		return Negative, 0.5, nil
	}
	confidence := float64(pos) / float64(total)
	if confidence >= 0.5 {
		return Positive, confidence, nil
	}
	return Negative, 1 - confidence, nil
}

// LanguageIdentifier identifies the dominant language of a document,
// backing the supplemented LanguageFilter orchestrator stage.
type LanguageIdentifier interface {
	Identify(text string) (lang string, confidence float64, err error)
}

// languageModel is the on-disk shape for RegexLanguageIdentifier: a set of
// languages, each with its own keyword list.
type languageModel struct {
	Languages map[string][]string `json:"languages"`
}

// LoadLanguageIdentifier opens a language-id model file at path. A missing
// or unparsable file is a fatal ClassifierUnavailable, matching Load's
// startup-time failure semantics.
func LoadLanguageIdentifier(path string) (LanguageIdentifier, error) {
	data, err := os.ReadFile(path) //nolint:gosec // G703: path is an operator-supplied model path, not user input
	if err != nil {
		return nil, &corpuserr.ClassifierUnavailable{Path: path, Err: err}
	}

	var model languageModel
	if err := json.Unmarshal(data, &model); err != nil {
		return nil, &corpuserr.ClassifierUnavailable{Path: path, Err: err}
	}
	return &RegexLanguageIdentifier{model: model}, nil
}

// RegexLanguageIdentifier identifies a language by keyword-occurrence
// scoring across every configured language's keyword list, the multi-class
// generalization of RegexHeuristicClassifier's binary scoring. It stands in
// for a real statistical language-id model (e.g. fastText's lid.176) for
// the same reason RegexHeuristicClassifier stands in for a trained quality
// model: no dependency in the corpus provides language-id inference.
type RegexLanguageIdentifier struct {
	model languageModel
}

// Identify returns the language whose keyword list matched most often, with
// confidence equal to that language's share of all keyword matches. An
// input matching no configured language's keywords at all returns ("", 0, nil).
func (r *RegexLanguageIdentifier) Identify(text string) (string, float64, error) {
	lower := strings.ToLower(text)

	type score struct {
		lang  string
		count int
	}
	var scores []score
	total := 0
	for lang, keywords := range r.model.Languages {
		n := 0
		for _, kw := range keywords {
			n += strings.Count(lower, strings.ToLower(kw))
		}
		scores = append(scores, score{lang: lang, count: n})
		total += n
	}
	if total == 0 {
		return "", 0, nil
	}

	sort.Slice(scores, func(i, j int) bool {
		if scores[i].count != scores[j].count {
			return scores[i].count > scores[j].count
		}
		return scores[i].lang < scores[j].lang // deterministic tie-break
	})
	best := scores[0]
	return best.lang, float64(best.count) / float64(total), nil
}

// PosScore converts a (label, confidence) pair into the single pos_score
// used by both threshold and bucket modes: confidence if positive,
// 1-confidence otherwise.
func PosScore(label Label, confidence float64) float64 {
	if label == Positive {
		return confidence
	}
	return 1 - confidence
}

// ApplyThreshold implements threshold mode: keep exactly one copy iff
// posScore >= threshold.
func ApplyThreshold(posScore, threshold float64) bool {
	return posScore >= threshold
}

// ApplyBucket implements bucket mode: find the largest bucket whose
// MinScore does not exceed posScore and return its RepeatCount. Buckets
// need not be pre-sorted; ApplyBucket sorts a copy descending by MinScore.
func ApplyBucket(posScore float64, buckets []config.BucketSpec) int {
	sorted := make([]config.BucketSpec, len(buckets))
	copy(sorted, buckets)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].MinScore > sorted[j].MinScore })

	for _, b := range sorted {
		if posScore >= b.MinScore {
			return b.RepeatCount
		}
	}
	return 0
}

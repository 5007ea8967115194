// Package mlmodel implements the trainable match-scoring ensemble: a
// logistic regression and a gradient-boosted tree model over features
// derived from a candidate's match reasons and heuristic score, blended
// into a single accept probability.
package mlmodel

import (
	"github.com/ludarr/ludarr/internal/agent"
	"github.com/ludarr/ludarr/internal/agent/scoring"
)

// HeuristicFeature is the name of the single continuous feature: the
// heuristic match score normalized to [0,1].
const HeuristicFeature = "heuristic_score"

// Extractor turns reasons + heuristic score into a dense feature vector
// with a stable feature ordering. A reason that maps to no known feature
// contributes nothing; a missing feature is 0.
type Extractor struct {
	names []string
	index map[string]int
}

// NewExtractor creates an extractor over the current rule table.
func NewExtractor() *Extractor {
	names := append(scoring.FeatureKeys(), HeuristicFeature)
	return NewExtractorWithNames(names)
}

// NewExtractorWithNames creates an extractor with a fixed feature ordering,
// used when loading a persisted model whose feature set must stay stable.
func NewExtractorWithNames(names []string) *Extractor {
	index := make(map[string]int, len(names))
	for i, n := range names {
		index[n] = i
	}
	return &Extractor{names: names, index: index}
}

// Names returns the feature names in vector order.
func (e *Extractor) Names() []string {
	return e.names
}

// Len returns the feature vector length.
func (e *Extractor) Len() int {
	return len(e.names)
}

// Extract builds the feature vector for a set of reasons and a heuristic
// score on the 0-150 scale.
func (e *Extractor) Extract(reasons []string, heuristicScore int) []float64 {
	vec := make([]float64, len(e.names))

	for _, reason := range reasons {
		key, ok := scoring.KeyForReason(reason)
		if !ok {
			continue
		}
		if i, ok := e.index[key]; ok {
			vec[i] = 1
		}
	}

	if i, ok := e.index[HeuristicFeature]; ok {
		normalized := float64(heuristicScore) / float64(scoring.MaxScore)
		if normalized < 0 {
			normalized = 0
		}
		if normalized > 1 {
			normalized = 1
		}
		vec[i] = normalized
	}

	return vec
}

// ExtractCandidate builds the feature vector for a scored candidate.
func (e *Extractor) ExtractCandidate(c *agent.Candidate) []float64 {
	return e.Extract(c.Reasons, c.MatchScore)
}

// Sample is one labeled training example.
type Sample struct {
	Reasons        []string `json:"reasons"`
	HeuristicScore int      `json:"heuristicScore"`
	Label          int      `json:"label"` // 1 = correct match, 0 = wrong
}

// BuildMatrix extracts feature vectors and labels for a sample set.
func (e *Extractor) BuildMatrix(samples []Sample) ([][]float64, []float64) {
	features := make([][]float64, len(samples))
	labels := make([]float64, len(samples))
	for i, s := range samples {
		features[i] = e.Extract(s.Reasons, s.HeuristicScore)
		labels[i] = float64(s.Label)
	}
	return features, labels
}

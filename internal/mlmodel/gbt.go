package mlmodel

import (
	"math"
	"math/rand"
	"sort"
)

// GBTModel is a gradient-boosted tree classifier over log-odds.
type GBTModel struct {
	Trees        []*Node `json:"trees"`
	LearningRate float64 `json:"learningRate"`
	BaseScore    float64 `json:"baseScore"` // log-odds of the positive rate
}

// GBTOptions control gradient-boosting training.
type GBTOptions struct {
	Rounds       int     // number of trees (default 50)
	LearningRate float64 // shrinkage per tree (default 0.1)
	MaxDepth     int     // default 3
	MinLeaf      int     // minimum rows per leaf (default 2)
	L2           float64 // leaf-value shrinkage (default 1.0)
	RowSubsample float64 // fraction of rows per tree (default 0.8)
	ColSubsample float64 // fraction of features per tree (default 0.8)
	Seed         int64   // subsampling seed; fixed seed gives identical models
}

// DefaultGBTOptions returns the default training options.
func DefaultGBTOptions() GBTOptions {
	return GBTOptions{
		Rounds:       50,
		LearningRate: 0.1,
		MaxDepth:     3,
		MinLeaf:      2,
		L2:           1.0,
		RowSubsample: 0.8,
		ColSubsample: 0.8,
		Seed:         42,
	}
}

// PredictProb returns the match probability for one feature vector.
func (m *GBTModel) PredictProb(features []float64) float64 {
	score := m.BaseScore
	for _, t := range m.Trees {
		score += m.LearningRate * t.Predict(features)
	}
	return sigmoid(score)
}

// PredictProbs returns probabilities for a feature matrix.
func (m *GBTModel) PredictProbs(features [][]float64) []float64 {
	probs := make([]float64, len(features))
	for i, f := range features {
		probs[i] = m.PredictProb(f)
	}
	return probs
}

// TrainGBT fits a boosted ensemble of regression trees on log-odds
// residuals. Subsampling uses a rand.Rand seeded from opts.Seed, so a fixed
// seed reproduces the exact same model.
func TrainGBT(features [][]float64, labels []float64, dim int, opts GBTOptions) *GBTModel {
	if opts.Rounds <= 0 {
		opts.Rounds = 50
	}
	if opts.LearningRate <= 0 {
		opts.LearningRate = 0.1
	}
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = 3
	}
	if opts.MinLeaf <= 0 {
		opts.MinLeaf = 2
	}
	if opts.RowSubsample <= 0 || opts.RowSubsample > 1 {
		opts.RowSubsample = 0.8
	}
	if opts.ColSubsample <= 0 || opts.ColSubsample > 1 {
		opts.ColSubsample = 0.8
	}

	model := &GBTModel{LearningRate: opts.LearningRate}

	n := len(features)
	if n == 0 {
		return model
	}

	positives := 0.0
	for _, l := range labels {
		if l >= 0.5 {
			positives++
		}
	}
	rate := positives / float64(n)
	// Clamp away from 0 and 1 so the base log-odds stays finite.
	if rate < 0.01 {
		rate = 0.01
	}
	if rate > 0.99 {
		rate = 0.99
	}
	model.BaseScore = math.Log(rate / (1 - rate))

	rng := rand.New(rand.NewSource(opts.Seed))

	scores := make([]float64, n)
	for i := range scores {
		scores[i] = model.BaseScore
	}
	residuals := make([]float64, n)

	rowCount := int(float64(n) * opts.RowSubsample)
	if rowCount < 1 {
		rowCount = 1
	}
	colCount := int(float64(dim) * opts.ColSubsample)
	if colCount < 1 {
		colCount = 1
	}

	for round := 0; round < opts.Rounds; round++ {
		for i := range residuals {
			residuals[i] = labels[i] - sigmoid(scores[i])
		}

		rows := samplePerm(rng, n, rowCount)
		cols := samplePerm(rng, dim, colCount)

		tree := buildTree(features, residuals, rows, 0, treeParams{
			MaxDepth:    opts.MaxDepth,
			MinLeaf:     opts.MinLeaf,
			L2:          opts.L2,
			ColFeatures: cols,
		})
		model.Trees = append(model.Trees, tree)

		for i := range scores {
			scores[i] += opts.LearningRate * tree.Predict(features[i])
		}
	}

	return model
}

// samplePerm draws k distinct indices out of n, sorted for deterministic
// tree construction.
func samplePerm(rng *rand.Rand, n, k int) []int {
	if k >= n {
		idx := make([]int, n)
		for i := range idx {
			idx[i] = i
		}
		return idx
	}
	idx := rng.Perm(n)[:k]
	sort.Ints(idx)
	return idx
}

// FeatureImportance sums, per feature, the number of splits using it across
// all trees. Returned slice is indexed by feature.
func (m *GBTModel) FeatureImportance(dim int) []int {
	counts := make([]int, dim)
	var walk func(n *Node)
	walk = func(n *Node) {
		if n == nil || n.Leaf {
			return
		}
		if n.Feature < dim {
			counts[n.Feature]++
		}
		walk(n.Left)
		walk(n.Right)
	}
	for _, t := range m.Trees {
		walk(t)
	}
	return counts
}

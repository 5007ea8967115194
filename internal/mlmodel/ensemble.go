package mlmodel

import "math/rand"

// Ensemble blends the logistic and boosted-tree probabilities:
// p = (1-w)*p_lr + w*p_gbt, accepted when p >= Threshold.
type Ensemble struct {
	Logistic  *LogisticModel `json:"logistic"`
	GBT       *GBTModel      `json:"gbt"`
	Weight    float64        `json:"weight"` // GBT share of the blend
	Threshold float64        `json:"threshold"`
	Features  []string       `json:"features"` // feature order both models were trained with
}

// TrainOptions control full ensemble training.
type TrainOptions struct {
	Logistic     LogisticOptions
	GBT          GBTOptions
	HoldoutFrac  float64 // fraction of samples held out for blend tuning (default 0.25)
	MinPrecision float64 // optional precision floor for threshold selection (<= 0 disables)
	Seed         int64   // split + GBT seed; fixed seed gives identical ensembles
}

// DefaultTrainOptions returns the default ensemble training options.
func DefaultTrainOptions() TrainOptions {
	return TrainOptions{
		Logistic:    DefaultLogisticOptions(),
		GBT:         DefaultGBTOptions(),
		HoldoutFrac: 0.25,
		Seed:        42,
	}
}

// PredictProb returns the blended match probability for one feature vector.
func (e *Ensemble) PredictProb(features []float64) float64 {
	pLR := e.Logistic.PredictProb(features)
	pGBT := e.GBT.PredictProb(features)
	return (1-e.Weight)*pLR + e.Weight*pGBT
}

// Accept reports whether the blended probability clears the threshold.
func (e *Ensemble) Accept(features []float64) (float64, bool) {
	p := e.PredictProb(features)
	return p, p >= e.Threshold
}

// blendWeights is the scanned grid for the GBT blend share.
func blendWeights() []float64 {
	ws := make([]float64, 0, 11)
	for i := 0; i <= 10; i++ {
		ws = append(ws, float64(i)*0.1)
	}
	return ws
}

// TrainEnsemble trains both models on a deterministic train/holdout split,
// then exhaustively grid-searches the blend weight and threshold maximizing
// F1 on the holdout (subject to the optional precision floor). Ties favor
// the lowest weight, then the lowest threshold.
func TrainEnsemble(extractor *Extractor, samples []Sample, opts TrainOptions) (*Ensemble, Metrics) {
	if opts.HoldoutFrac <= 0 || opts.HoldoutFrac >= 1 {
		opts.HoldoutFrac = 0.25
	}
	opts.GBT.Seed = opts.Seed

	features, labels := extractor.BuildMatrix(samples)
	trainIdx, holdIdx := splitIndices(len(samples), opts.HoldoutFrac, opts.Seed)

	trainF, trainL := gather(features, labels, trainIdx)
	holdF, holdL := gather(features, labels, holdIdx)
	if len(holdF) == 0 {
		holdF, holdL = trainF, trainL
	}

	dim := extractor.Len()
	lr := TrainLogistic(trainF, trainL, dim, opts.Logistic)
	gbt := TrainGBT(trainF, trainL, dim, opts.GBT)

	pLR := lr.PredictProbs(holdF)
	pGBT := gbt.PredictProbs(holdF)

	blended := make([]float64, len(holdF))
	thresholds := DefaultThresholds()

	bestW := 0.0
	bestT := 0.5
	best := Metrics{F1: -1}

	for _, w := range blendWeights() {
		for i := range blended {
			blended[i] = (1-w)*pLR[i] + w*pGBT[i]
		}
		t, m := BestThreshold(blended, holdL, thresholds, opts.MinPrecision)
		if m.F1 > best.F1 {
			best = m
			bestW = w
			bestT = t
		}
	}

	lr.Threshold = bestT

	ensemble := &Ensemble{
		Logistic:  lr,
		GBT:       gbt,
		Weight:    bestW,
		Threshold: bestT,
		Features:  extractor.Names(),
	}
	return ensemble, best
}

// splitIndices partitions 0..n-1 into train and holdout sets by a seeded
// shuffle, so the same seed always yields the same split.
func splitIndices(n int, holdoutFrac float64, seed int64) (train, holdout []int) {
	perm := rand.New(rand.NewSource(seed)).Perm(n)
	holdCount := int(float64(n) * holdoutFrac)
	if holdCount >= n {
		holdCount = n - 1
	}
	holdout = append(holdout, perm[:holdCount]...)
	train = append(train, perm[holdCount:]...)
	return train, holdout
}

func gather(features [][]float64, labels []float64, idx []int) ([][]float64, []float64) {
	f := make([][]float64, 0, len(idx))
	l := make([]float64, 0, len(idx))
	for _, i := range idx {
		f = append(f, features[i])
		l = append(l, labels[i])
	}
	return f, l
}

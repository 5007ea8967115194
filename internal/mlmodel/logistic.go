package mlmodel

import "math"

// LogisticModel is a trained logistic-regression classifier.
type LogisticModel struct {
	Weights   []float64 `json:"weights"` // aligned with the extractor's feature order
	Bias      float64   `json:"bias"`
	Threshold float64   `json:"threshold"`
}

// LogisticOptions control logistic training.
type LogisticOptions struct {
	Iterations   int     // fixed iteration count (default 500)
	LearningRate float64 // default 0.1
	L2           float64 // penalty on weights, never on bias (default 0.001)
}

// DefaultLogisticOptions returns the default training options.
func DefaultLogisticOptions() LogisticOptions {
	return LogisticOptions{
		Iterations:   500,
		LearningRate: 0.1,
		L2:           0.001,
	}
}

func sigmoid(z float64) float64 {
	return 1 / (1 + math.Exp(-z))
}

// PredictProb returns the match probability for one feature vector.
func (m *LogisticModel) PredictProb(features []float64) float64 {
	z := m.Bias
	n := len(m.Weights)
	if len(features) < n {
		n = len(features)
	}
	for i := 0; i < n; i++ {
		z += m.Weights[i] * features[i]
	}
	return sigmoid(z)
}

// PredictProbs returns probabilities for a feature matrix.
func (m *LogisticModel) PredictProbs(features [][]float64) []float64 {
	probs := make([]float64, len(features))
	for i, f := range features {
		probs[i] = m.PredictProb(f)
	}
	return probs
}

// TrainLogistic fits a logistic model by batch gradient descent with an L2
// penalty on the weights (not the bias). Training is deterministic: no
// shuffling, fixed iteration count.
func TrainLogistic(features [][]float64, labels []float64, dim int, opts LogisticOptions) *LogisticModel {
	if opts.Iterations <= 0 {
		opts.Iterations = 500
	}
	if opts.LearningRate <= 0 {
		opts.LearningRate = 0.1
	}

	model := &LogisticModel{
		Weights:   make([]float64, dim),
		Threshold: 0.5,
	}

	n := float64(len(features))
	if n == 0 {
		return model
	}

	gradW := make([]float64, dim)

	for iter := 0; iter < opts.Iterations; iter++ {
		for i := range gradW {
			gradW[i] = 0
		}
		gradB := 0.0

		for i, f := range features {
			err := model.PredictProb(f) - labels[i]
			for j := 0; j < dim && j < len(f); j++ {
				gradW[j] += err * f[j]
			}
			gradB += err
		}

		for j := 0; j < dim; j++ {
			gradW[j] = gradW[j]/n + opts.L2*model.Weights[j]
			model.Weights[j] -= opts.LearningRate * gradW[j]
		}
		model.Bias -= opts.LearningRate * (gradB / n)
	}

	return model
}

// FitThreshold chooses the decision threshold maximizing F1 on a held-out
// split and stores it on the model.
func (m *LogisticModel) FitThreshold(features [][]float64, labels []float64, minPrecision float64) Metrics {
	probs := m.PredictProbs(features)
	threshold, metrics := BestThreshold(probs, labels, DefaultThresholds(), minPrecision)
	m.Threshold = threshold
	return metrics
}

package mlmodel

// Metrics holds binary classification quality numbers.
type Metrics struct {
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1"`
	Accuracy  float64 `json:"accuracy"`
}

// Evaluate computes metrics for probability predictions at a threshold.
func Evaluate(probs, labels []float64, threshold float64) Metrics {
	var tp, fp, tn, fn int
	for i, p := range probs {
		predicted := p >= threshold
		actual := labels[i] >= 0.5
		switch {
		case predicted && actual:
			tp++
		case predicted && !actual:
			fp++
		case !predicted && actual:
			fn++
		default:
			tn++
		}
	}

	var m Metrics
	if tp+fp > 0 {
		m.Precision = float64(tp) / float64(tp+fp)
	}
	if tp+fn > 0 {
		m.Recall = float64(tp) / float64(tp+fn)
	}
	if m.Precision+m.Recall > 0 {
		m.F1 = 2 * m.Precision * m.Recall / (m.Precision + m.Recall)
	}
	if len(probs) > 0 {
		m.Accuracy = float64(tp+tn) / float64(len(probs))
	}
	return m
}

// BestThreshold scans candidate thresholds and returns the one maximizing F1
// on the given predictions, subject to an optional minimum-precision floor
// (minPrecision <= 0 disables the floor). Ties favor the first (lowest)
// threshold reaching the maximum.
func BestThreshold(probs, labels []float64, thresholds []float64, minPrecision float64) (float64, Metrics) {
	best := thresholds[0]
	bestMetrics := Metrics{F1: -1}

	for _, t := range thresholds {
		m := Evaluate(probs, labels, t)
		if minPrecision > 0 && m.Precision < minPrecision {
			continue
		}
		if m.F1 > bestMetrics.F1 {
			bestMetrics = m
			best = t
		}
	}

	// Nothing satisfied the precision floor; fall back to unconstrained best.
	if bestMetrics.F1 < 0 {
		return BestThreshold(probs, labels, thresholds, 0)
	}

	return best, bestMetrics
}

// DefaultThresholds returns the scanned threshold grid 0.05..0.95.
func DefaultThresholds() []float64 {
	ts := make([]float64, 0, 19)
	for i := 1; i <= 19; i++ {
		ts = append(ts, float64(i)*0.05)
	}
	return ts
}

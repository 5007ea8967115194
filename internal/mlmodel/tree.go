package mlmodel

import "sort"

// Node is one regression-tree node. Leaf nodes carry a prediction value;
// split nodes route on feature <= threshold.
type Node struct {
	Leaf      bool    `json:"leaf"`
	Value     float64 `json:"value,omitempty"`
	Feature   int     `json:"feature,omitempty"`
	Threshold float64 `json:"threshold,omitempty"`
	Left      *Node   `json:"left,omitempty"`
	Right     *Node   `json:"right,omitempty"`
}

// Predict walks the tree for one feature vector.
func (n *Node) Predict(features []float64) float64 {
	for !n.Leaf {
		if features[n.Feature] <= n.Threshold {
			n = n.Left
		} else {
			n = n.Right
		}
	}
	return n.Value
}

type treeParams struct {
	MaxDepth    int
	MinLeaf     int
	L2          float64 // shrinks leaf values toward zero
	ColFeatures []int   // candidate split features for this tree
}

// buildTree fits a regression tree on the given rows against residual
// targets, greedily choosing the split with the largest variance reduction.
func buildTree(features [][]float64, targets []float64, rows []int, depth int, p treeParams) *Node {
	if depth >= p.MaxDepth || len(rows) < 2*p.MinLeaf {
		return leafNode(targets, rows, p.L2)
	}

	feature, threshold, ok := bestSplit(features, targets, rows, p)
	if !ok {
		return leafNode(targets, rows, p.L2)
	}

	var left, right []int
	for _, r := range rows {
		if features[r][feature] <= threshold {
			left = append(left, r)
		} else {
			right = append(right, r)
		}
	}
	if len(left) < p.MinLeaf || len(right) < p.MinLeaf {
		return leafNode(targets, rows, p.L2)
	}

	return &Node{
		Feature:   feature,
		Threshold: threshold,
		Left:      buildTree(features, targets, left, depth+1, p),
		Right:     buildTree(features, targets, right, depth+1, p),
	}
}

// leafNode makes a leaf predicting the L2-shrunk mean residual.
func leafNode(targets []float64, rows []int, l2 float64) *Node {
	sum := 0.0
	for _, r := range rows {
		sum += targets[r]
	}
	return &Node{Leaf: true, Value: sum / (float64(len(rows)) + l2)}
}

// bestSplit finds the (feature, threshold) pair maximizing variance
// reduction over the candidate features. Thresholds are midpoints between
// adjacent distinct values; ties keep the first candidate found, so split
// choice is deterministic for a fixed feature order.
func bestSplit(features [][]float64, targets []float64, rows []int, p treeParams) (int, float64, bool) {
	parentSSE := sumSquaredError(targets, rows)

	bestGain := 1e-9
	bestFeature := -1
	bestThreshold := 0.0

	for _, f := range p.ColFeatures {
		values := distinctSortedValues(features, rows, f)
		for i := 0; i+1 < len(values); i++ {
			threshold := (values[i] + values[i+1]) / 2

			var leftSum, rightSum float64
			var leftN, rightN int
			for _, r := range rows {
				if features[r][f] <= threshold {
					leftSum += targets[r]
					leftN++
				} else {
					rightSum += targets[r]
					rightN++
				}
			}
			if leftN < p.MinLeaf || rightN < p.MinLeaf {
				continue
			}

			leftMean := leftSum / float64(leftN)
			rightMean := rightSum / float64(rightN)

			childSSE := 0.0
			for _, r := range rows {
				if features[r][f] <= threshold {
					d := targets[r] - leftMean
					childSSE += d * d
				} else {
					d := targets[r] - rightMean
					childSSE += d * d
				}
			}

			gain := parentSSE - childSSE
			if gain > bestGain {
				bestGain = gain
				bestFeature = f
				bestThreshold = threshold
			}
		}
	}

	if bestFeature < 0 {
		return 0, 0, false
	}
	return bestFeature, bestThreshold, true
}

func sumSquaredError(targets []float64, rows []int) float64 {
	if len(rows) == 0 {
		return 0
	}
	sum := 0.0
	for _, r := range rows {
		sum += targets[r]
	}
	mean := sum / float64(len(rows))

	sse := 0.0
	for _, r := range rows {
		d := targets[r] - mean
		sse += d * d
	}
	return sse
}

func distinctSortedValues(features [][]float64, rows []int, f int) []float64 {
	seen := make(map[float64]struct{}, len(rows))
	var values []float64
	for _, r := range rows {
		v := features[r][f]
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		values = append(values, v)
	}
	sort.Float64s(values)
	return values
}

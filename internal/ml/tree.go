package ml

import (
	"math"
	"sort"
)

// treeNode is one node of a depth-limited regression tree. Leaves carry the
// boosting leaf weight directly.
type treeNode struct {
	feature   int
	threshold float64
	left      *treeNode
	right     *treeNode
	value     float64
	leaf      bool
}

// regressionTree fits piecewise-constant predictions to gradient residuals.
// Splits minimize the summed squared error of the two children.
type regressionTree struct {
	root           *treeNode
	maxDepth       int
	minSamplesLeaf int
	numClasses     int
}

func newRegressionTree(maxDepth, minSamplesLeaf, numClasses int) *regressionTree {
	if minSamplesLeaf < 1 {
		minSamplesLeaf = 1
	}
	return &regressionTree{
		maxDepth:       maxDepth,
		minSamplesLeaf: minSamplesLeaf,
		numClasses:     numClasses,
	}
}

// fit grows the tree on the given sample indices. residuals are the
// class-wise softmax negative gradients the leaf weights are derived from.
func (t *regressionTree) fit(x [][]float64, residuals []float64, indices []int) {
	t.root = t.grow(x, residuals, indices, 0)
}

func (t *regressionTree) grow(x [][]float64, residuals []float64, indices []int, depth int) *treeNode {
	if depth >= t.maxDepth || len(indices) < 2*t.minSamplesLeaf || pure(residuals, indices) {
		return &treeNode{leaf: true, value: t.leafWeight(residuals, indices)}
	}

	feature, threshold, ok := t.bestSplit(x, residuals, indices)
	if !ok {
		return &treeNode{leaf: true, value: t.leafWeight(residuals, indices)}
	}

	left := make([]int, 0, len(indices))
	right := make([]int, 0, len(indices))
	for _, idx := range indices {
		if x[idx][feature] <= threshold {
			left = append(left, idx)
		} else {
			right = append(right, idx)
		}
	}

	return &treeNode{
		feature:   feature,
		threshold: threshold,
		left:      t.grow(x, residuals, left, depth+1),
		right:     t.grow(x, residuals, right, depth+1),
	}
}

// bestSplit scans every feature for the threshold with the largest squared
// error reduction, honoring the minimum leaf size on both sides.
func (t *regressionTree) bestSplit(x [][]float64, residuals []float64, indices []int) (int, float64, bool) {
	numFeatures := len(x[indices[0]])

	total := 0.0
	for _, idx := range indices {
		total += residuals[idx]
	}
	n := float64(len(indices))
	baseScore := total * total / n

	bestGain := 0.0
	bestFeature := -1
	bestThreshold := 0.0

	sorted := make([]int, len(indices))
	for feature := 0; feature < numFeatures; feature++ {
		copy(sorted, indices)
		sort.Slice(sorted, func(a, b int) bool {
			return x[sorted[a]][feature] < x[sorted[b]][feature]
		})

		leftSum := 0.0
		for pos := 0; pos < len(sorted)-1; pos++ {
			leftSum += residuals[sorted[pos]]

			cur := x[sorted[pos]][feature]
			next := x[sorted[pos+1]][feature]
			if cur == next {
				continue
			}

			leftCount := pos + 1
			rightCount := len(sorted) - leftCount
			if leftCount < t.minSamplesLeaf || rightCount < t.minSamplesLeaf {
				continue
			}

			rightSum := total - leftSum
			gain := leftSum*leftSum/float64(leftCount) + rightSum*rightSum/float64(rightCount) - baseScore
			if gain > bestGain+1e-12 {
				bestGain = gain
				bestFeature = feature
				bestThreshold = (cur + next) / 2
			}
		}
	}

	if bestFeature < 0 {
		return 0, 0, false
	}
	return bestFeature, bestThreshold, true
}

// leafWeight is the multiclass gradient-boosting leaf update
// (K-1)/K * sum(r) / sum(|r| * (1 - |r|)).
func (t *regressionTree) leafWeight(residuals []float64, indices []int) float64 {
	sum := 0.0
	denom := 0.0
	for _, idx := range indices {
		r := residuals[idx]
		sum += r
		denom += math.Abs(r) * (1 - math.Abs(r))
	}
	if denom < 1e-12 {
		return 0
	}
	k := float64(t.numClasses)
	return (k - 1) / k * sum / denom
}

// predict returns the leaf weight for one feature vector.
func (t *regressionTree) predict(features []float64) float64 {
	node := t.root
	for !node.leaf {
		if features[node.feature] <= node.threshold {
			node = node.left
		} else {
			node = node.right
		}
	}
	return node.value
}

// pure reports whether all residuals in the index set are identical, in
// which case no split can improve anything.
func pure(residuals []float64, indices []int) bool {
	first := residuals[indices[0]]
	for _, idx := range indices[1:] {
		if residuals[idx] != first {
			return false
		}
	}
	return true
}

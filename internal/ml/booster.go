package ml

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/yourusername/stock-prophet/internal/models"
)

// BoosterConfig holds the gradient boosting hyperparameters.
type BoosterConfig struct {
	Trees          int
	LearningRate   float64
	MaxDepth       int
	MinSamplesLeaf int
	SubsampleRatio float64
	Seed           int64
}

// DefaultBoosterConfig returns the hyperparameters documented in the
// trainer tests.
func DefaultBoosterConfig() BoosterConfig {
	return BoosterConfig{
		Trees:          120,
		LearningRate:   0.1,
		MaxDepth:       3,
		MinSamplesLeaf: 5,
		SubsampleRatio: 0.8,
		Seed:           42,
	}
}

// Booster is a multiclass gradient-boosted tree classifier with a softmax
// objective: each boosting round fits one regression tree per class to the
// class's negative gradient. Training is deterministic for a fixed seed.
type Booster struct {
	config     BoosterConfig
	numClasses int
	rounds     [][]*regressionTree // [round][class]
	fitted     bool
}

// NewBooster creates an unfitted booster for the standard three classes.
func NewBooster(config BoosterConfig) *Booster {
	return &Booster{config: config, numClasses: models.NumClasses}
}

// Fit trains the booster on the full sample set. Labels are class indices
// in [0, NumClasses).
func (b *Booster) Fit(x [][]float64, y []int) error {
	if len(x) == 0 || len(x) != len(y) {
		return fmt.Errorf("%w: %d rows, %d labels", ErrDimensionMismatch, len(x), len(y))
	}
	dim := len(x[0])
	for i, row := range x {
		if len(row) != dim {
			return fmt.Errorf("%w: row %d has %d features, want %d", ErrDimensionMismatch, i, len(row), dim)
		}
	}
	for i, label := range y {
		if label < 0 || label >= b.numClasses {
			return fmt.Errorf("%w: label %d out of range at row %d", ErrDimensionMismatch, label, i)
		}
	}

	n := len(x)
	rng := rand.New(rand.NewSource(b.config.Seed))

	// Raw additive scores per sample per class, softmaxed for probabilities.
	scores := make([][]float64, n)
	for i := range scores {
		scores[i] = make([]float64, b.numClasses)
	}

	residuals := make([]float64, n)
	b.rounds = make([][]*regressionTree, 0, b.config.Trees)

	for round := 0; round < b.config.Trees; round++ {
		probs := make([][]float64, n)
		for i := range probs {
			probs[i] = softmax(scores[i])
		}

		indices := b.subsample(rng, n)
		classTrees := make([]*regressionTree, b.numClasses)

		for class := 0; class < b.numClasses; class++ {
			for i := 0; i < n; i++ {
				target := 0.0
				if y[i] == class {
					target = 1.0
				}
				residuals[i] = target - probs[i][class]
			}

			tree := newRegressionTree(b.config.MaxDepth, b.config.MinSamplesLeaf, b.numClasses)
			tree.fit(x, residuals, indices)
			classTrees[class] = tree

			for i := 0; i < n; i++ {
				scores[i][class] += b.config.LearningRate * tree.predict(x[i])
			}
		}

		b.rounds = append(b.rounds, classTrees)
	}

	b.fitted = true
	return nil
}

// PredictProba returns the class probability vector for one feature vector.
func (b *Booster) PredictProba(features []float64) ([models.NumClasses]float64, error) {
	var out [models.NumClasses]float64
	if !b.fitted {
		return out, ErrNotFitted
	}

	scores := make([]float64, b.numClasses)
	for _, classTrees := range b.rounds {
		for class, tree := range classTrees {
			scores[class] += b.config.LearningRate * tree.predict(features)
		}
	}

	probs := softmax(scores)
	copy(out[:], probs)
	return out, nil
}

// PredictClass returns the argmax class for one feature vector.
func (b *Booster) PredictClass(features []float64) (models.Label, error) {
	probs, err := b.PredictProba(features)
	if err != nil {
		return 0, err
	}
	return argmax(probs[:]), nil
}

// subsample draws a sorted sample of row indices without replacement.
// Ratio 1 returns every index, keeping small-data runs deterministic.
func (b *Booster) subsample(rng *rand.Rand, n int) []int {
	size := int(float64(n) * b.config.SubsampleRatio)
	if size >= n || size < 2*b.config.MinSamplesLeaf {
		indices := make([]int, n)
		for i := range indices {
			indices[i] = i
		}
		return indices
	}

	perm := rng.Perm(n)[:size]
	// Index order affects split tie-breaking; keep it stable.
	sortInts(perm)
	return perm
}

func softmax(scores []float64) []float64 {
	max := scores[0]
	for _, s := range scores[1:] {
		if s > max {
			max = s
		}
	}
	out := make([]float64, len(scores))
	sum := 0.0
	for i, s := range scores {
		out[i] = math.Exp(s - max)
		sum += out[i]
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}

func argmax(values []float64) models.Label {
	best := 0
	for i, v := range values {
		if v > values[best] {
			best = i
		}
	}
	return models.Label(best)
}

func sortInts(values []int) {
	for i := 1; i < len(values); i++ {
		for j := i; j > 0 && values[j] < values[j-1]; j-- {
			values[j], values[j-1] = values[j-1], values[j]
		}
	}
}

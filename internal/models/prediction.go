package models

import (
	"math"
	"time"

	"github.com/google/uuid"
)

// ProbabilityTolerance is the allowed deviation of a probability vector sum
// from 1.0.
const ProbabilityTolerance = 1e-6

// BacktestStats summarizes classifier performance on the chronological
// holdout segment.
type BacktestStats struct {
	Accuracy float64 `json:"accuracy"`
	F1Macro  float64 `json:"f1_macro"`
	LogLoss  float64 `json:"log_loss"`
	NFolds   int     `json:"n_folds"`
	Rows     int     `json:"rows"`
}

// PredictionResult is the output of one trained model applied to the latest
// unlabeled row of a ticker. It is created once per run, never mutated, and
// discarded after serialization.
type PredictionResult struct {
	RunID         uuid.UUID
	Ticker        string
	Date          time.Time
	AdjClose      float64
	Probabilities [NumClasses]float64
	Label         Label
	Action        Action
	Backtest      BacktestStats
	FeatureNames  []string
	Features      []float64
}

// ValidProbabilities reports whether the probability vector is a proper
// 3-class distribution: non-negative entries summing to 1 within tolerance.
func (p *PredictionResult) ValidProbabilities() bool {
	sum := 0.0
	for _, v := range p.Probabilities {
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
		sum += v
	}
	return math.Abs(sum-1.0) <= ProbabilityTolerance
}

// ProbFall returns the probability of the Fall class.
func (p *PredictionResult) ProbFall() float64 { return p.Probabilities[LabelFall] }

// ProbNeutral returns the probability of the Neutral class.
func (p *PredictionResult) ProbNeutral() float64 { return p.Probabilities[LabelNeutral] }

// ProbRise returns the probability of the Rise class.
func (p *PredictionResult) ProbRise() float64 { return p.Probabilities[LabelRise] }

package ml

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/stock-prophet/internal/models"
)

// TrainerConfig bundles the booster hyperparameters with the guard rails of
// the training stage.
type TrainerConfig struct {
	Booster         BoosterConfig
	MinRows         int
	HoldoutFraction float64
}

// DefaultTrainerConfig returns the defaults documented in the trainer tests.
func DefaultTrainerConfig() TrainerConfig {
	return TrainerConfig{
		Booster:         DefaultBoosterConfig(),
		MinRows:         120,
		HoldoutFraction: 0.2,
	}
}

// Trainer fits the direction classifier once per run on all labeled history
// and scores it on a chronological holdout. Rows are never shuffled; the
// holdout is always the most recent segment so no future information leaks
// into training.
type Trainer struct {
	config TrainerConfig
	logger *logrus.Entry
}

// NewTrainer creates a trainer.
func NewTrainer(config TrainerConfig, logger *logrus.Entry) *Trainer {
	return &Trainer{config: config, logger: logger}
}

// TrainAndPredict trains on the labeled rows, evaluates on the holdout, then
// refits on the full history and predicts the unlabeled target row.
func (t *Trainer) TrainAndPredict(rows []models.LabeledRow, target models.FeatureRow, featureNames []string, runID uuid.UUID) (*models.PredictionResult, error) {
	start := time.Now()

	if len(rows) < t.config.MinRows {
		TrainingsTotal.WithLabelValues("failure").Inc()
		return nil, fmt.Errorf("%w: %v: %d labeled rows, need at least %d",
			models.ErrTraining, ErrTooFewRows, len(rows), t.config.MinRows)
	}

	x, y := toMatrix(rows)

	stats, err := t.evaluateHoldout(x, y)
	if err != nil {
		TrainingsTotal.WithLabelValues("failure").Inc()
		return nil, err
	}

	// Final model uses every labeled row; the holdout model exists only to
	// produce honest backtest statistics.
	final := NewBooster(t.config.Booster)
	if err := final.Fit(x, y); err != nil {
		TrainingsTotal.WithLabelValues("failure").Inc()
		return nil, fmt.Errorf("%w: %v", models.ErrTraining, err)
	}

	probs, err := final.PredictProba(target.Features)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrTraining, err)
	}
	label := argmax(probs[:])

	result := &models.PredictionResult{
		RunID:         runID,
		Ticker:        target.Ticker,
		Date:          target.Date,
		AdjClose:      target.AdjClose,
		Probabilities: probs,
		Label:         label,
		Action:        label.Action(),
		Backtest:      stats,
		FeatureNames:  featureNames,
		Features:      target.Features,
	}
	if !result.ValidProbabilities() {
		TrainingsTotal.WithLabelValues("failure").Inc()
		return nil, fmt.Errorf("%w: probability vector invalid for %s", models.ErrTraining, target.Ticker)
	}

	TrainingsTotal.WithLabelValues("success").Inc()
	PredictionsTotal.Inc()
	TrainingDuration.Observe(time.Since(start).Seconds())

	t.logger.WithFields(logrus.Fields{
		"ticker":   target.Ticker,
		"rows":     len(rows),
		"accuracy": stats.Accuracy,
		"action":   result.Action,
	}).Info("Trained direction classifier")

	return result, nil
}

// evaluateHoldout fits on the older segment and scores the newest one.
func (t *Trainer) evaluateHoldout(x [][]float64, y []int) (models.BacktestStats, error) {
	var stats models.BacktestStats

	holdout := int(float64(len(x)) * t.config.HoldoutFraction)
	if holdout < 1 || holdout >= len(x) {
		return stats, fmt.Errorf("%w: %v", models.ErrTraining, ErrDegenerateSplit)
	}
	split := len(x) - holdout

	booster := NewBooster(t.config.Booster)
	if err := booster.Fit(x[:split], y[:split]); err != nil {
		return stats, fmt.Errorf("%w: %v", models.ErrTraining, err)
	}

	correct := 0
	logLossSum := 0.0
	var confusion [models.NumClasses][models.NumClasses]int

	for i := split; i < len(x); i++ {
		probs, err := booster.PredictProba(x[i])
		if err != nil {
			return stats, fmt.Errorf("%w: %v", models.ErrTraining, err)
		}
		predicted := int(argmax(probs[:]))
		confusion[y[i]][predicted]++
		if predicted == y[i] {
			correct++
		}
		logLossSum += -math.Log(clampProb(probs[y[i]]))
	}

	stats.Rows = holdout
	stats.NFolds = 1
	stats.Accuracy = float64(correct) / float64(holdout)
	stats.LogLoss = logLossSum / float64(holdout)
	stats.F1Macro = macroF1(confusion)
	return stats, nil
}

// macroF1 averages per-class F1 over the classes present in the holdout.
func macroF1(confusion [models.NumClasses][models.NumClasses]int) float64 {
	sum := 0.0
	classes := 0
	for class := 0; class < models.NumClasses; class++ {
		tp := confusion[class][class]
		fn := 0
		fp := 0
		for other := 0; other < models.NumClasses; other++ {
			if other == class {
				continue
			}
			fn += confusion[class][other]
			fp += confusion[other][class]
		}
		if tp+fn == 0 {
			continue // class absent from holdout
		}
		classes++
		if tp == 0 {
			continue
		}
		precision := float64(tp) / float64(tp+fp)
		recall := float64(tp) / float64(tp+fn)
		sum += 2 * precision * recall / (precision + recall)
	}
	if classes == 0 {
		return 0
	}
	return sum / float64(classes)
}

func toMatrix(rows []models.LabeledRow) ([][]float64, []int) {
	x := make([][]float64, len(rows))
	y := make([]int, len(rows))
	for i, row := range rows {
		x[i] = row.Features
		y[i] = int(row.Label)
	}
	return x, y
}

func clampProb(p float64) float64 {
	const eps = 1e-15
	if p < eps {
		return eps
	}
	if p > 1-eps {
		return 1 - eps
	}
	return p
}

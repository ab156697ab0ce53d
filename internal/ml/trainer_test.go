package ml

import (
	"errors"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/stock-prophet/internal/models"
)

func testLogger() *logrus.Entry {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logrus.NewEntry(logger)
}

func testTrainerConfig() TrainerConfig {
	return TrainerConfig{
		Booster:         testBoosterConfig(),
		MinRows:         100,
		HoldoutFraction: 0.2,
	}
}

func labeledRows(n int) []models.LabeledRow {
	x, y := separableSamples(n)
	start := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

	rows := make([]models.LabeledRow, n)
	for i := 0; i < n; i++ {
		rows[i] = models.LabeledRow{
			FeatureRow: models.FeatureRow{
				Date:     start.AddDate(0, 0, i),
				Ticker:   "TEST",
				AdjClose: 100,
				Features: x[i],
			},
			Label: models.Label(y[i]),
		}
	}
	return rows
}

func TestTrainAndPredict(t *testing.T) {
	rows := labeledRows(150)
	target := models.FeatureRow{
		Date:     time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
		Ticker:   "TEST",
		AdjClose: 105,
		Features: []float64{0.9}, // rise cluster
	}
	runID := uuid.New()

	trainer := NewTrainer(testTrainerConfig(), testLogger())
	result, err := trainer.TrainAndPredict(rows, target, []string{"f0"}, runID)
	require.NoError(t, err)

	assert.Equal(t, runID, result.RunID)
	assert.Equal(t, "TEST", result.Ticker)
	assert.Equal(t, models.LabelRise, result.Label)
	assert.Equal(t, models.ActionBuy, result.Action)
	assert.True(t, result.ValidProbabilities())
	assert.Equal(t, []string{"f0"}, result.FeatureNames)

	// Holdout is the newest 20% of rows, scored chronologically.
	assert.Equal(t, 30, result.Backtest.Rows)
	assert.Equal(t, 1, result.Backtest.NFolds)
	assert.GreaterOrEqual(t, result.Backtest.Accuracy, 0.9)
	assert.GreaterOrEqual(t, result.Backtest.F1Macro, 0.9)
	assert.Greater(t, result.Backtest.LogLoss, 0.0)
}

func TestTrainAndPredictTooFewRows(t *testing.T) {
	rows := labeledRows(50)
	target := models.FeatureRow{Ticker: "TEST", Features: []float64{0.5}}

	trainer := NewTrainer(testTrainerConfig(), testLogger())
	_, err := trainer.TrainAndPredict(rows, target, []string{"f0"}, uuid.New())
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrTraining))
}

func TestTrainAndPredictDeterministic(t *testing.T) {
	rows := labeledRows(150)
	target := models.FeatureRow{Ticker: "TEST", AdjClose: 105, Features: []float64{0.1}}
	runID := uuid.MustParse("11111111-2222-3333-4444-555555555555")

	trainer := NewTrainer(testTrainerConfig(), testLogger())
	first, err := trainer.TrainAndPredict(rows, target, []string{"f0"}, runID)
	require.NoError(t, err)
	second, err := trainer.TrainAndPredict(rows, target, []string{"f0"}, runID)
	require.NoError(t, err)

	assert.Equal(t, first.Probabilities, second.Probabilities)
	assert.Equal(t, first.Backtest, second.Backtest)
}

func TestMacroF1PerfectPrediction(t *testing.T) {
	var confusion [models.NumClasses][models.NumClasses]int
	confusion[0][0] = 10
	confusion[1][1] = 10
	confusion[2][2] = 10
	assert.InDelta(t, 1.0, macroF1(confusion), 1e-12)
}

func TestMacroF1IgnoresAbsentClasses(t *testing.T) {
	var confusion [models.NumClasses][models.NumClasses]int
	// Only classes 0 and 1 appear; class 0 perfectly predicted, class 1 never.
	confusion[0][0] = 10
	confusion[1][0] = 10
	f1 := macroF1(confusion)
	assert.Greater(t, f1, 0.0)
	assert.Less(t, f1, 1.0)
}

func TestClampProb(t *testing.T) {
	assert.Greater(t, clampProb(0), 0.0)
	assert.Less(t, clampProb(1), 1.0)
	assert.Equal(t, 0.5, clampProb(0.5))
}

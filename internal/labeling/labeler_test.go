package labeling

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/stock-prophet/internal/features"
	"github.com/yourusername/stock-prophet/internal/models"
)

func TestClassify(t *testing.T) {
	deadband := 0.005

	tests := []struct {
		name          string
		forwardReturn float64
		expected      models.Label
	}{
		{"strong rise", 0.02, models.LabelRise},
		{"strong fall", -0.02, models.LabelFall},
		{"inside deadband positive", 0.004, models.LabelNeutral},
		{"inside deadband negative", -0.004, models.LabelNeutral},
		{"exactly at upper boundary", 0.005, models.LabelNeutral},
		{"exactly at lower boundary", -0.005, models.LabelNeutral},
		{"just above boundary", 0.0050001, models.LabelRise},
		{"just below boundary", -0.0050001, models.LabelFall},
		{"zero return", 0, models.LabelNeutral},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Classify(tt.forwardReturn, deadband))
		})
	}
}

func TestLabelExcludesHorizonRows(t *testing.T) {
	table := tableWithCloses(t, []float64{100, 102, 101, 103, 104})

	labeled, err := Label(Params{Deadband: 0.005, Horizon: 1}, table)
	require.NoError(t, err)

	// The last row has no forward return yet; it is the prediction target.
	require.Len(t, labeled, 4)
	last := labeled[len(labeled)-1]
	assert.Equal(t, table.Rows[3].Date, last.Date)
	assert.InDelta(t, 104.0/103.0-1, last.ForwardReturn, 1e-12)
	assert.Equal(t, models.LabelRise, last.Label)
}

func TestLabelThreeHundredRows(t *testing.T) {
	closes := make([]float64, 300)
	for i := range closes {
		closes[i] = 100 * (1 + 0.001*float64(i))
	}
	table := tableWithCloses(t, closes)

	labeled, err := Label(DefaultParams(), table)
	require.NoError(t, err)
	// Every row but the prediction target gets a label.
	assert.Len(t, labeled, 299)
}

func TestLabelLongerHorizon(t *testing.T) {
	table := tableWithCloses(t, []float64{100, 100, 100, 90, 80})

	labeled, err := Label(Params{Deadband: 0.005, Horizon: 2}, table)
	require.NoError(t, err)
	require.Len(t, labeled, 3)

	// Row 1 looks two rows ahead at 90.
	assert.InDelta(t, -0.10, labeled[1].ForwardReturn, 1e-12)
	assert.Equal(t, models.LabelFall, labeled[1].Label)
}

func TestLabelTooFewRows(t *testing.T) {
	table := tableWithCloses(t, []float64{100})

	_, err := Label(Params{Deadband: 0.005, Horizon: 1}, table)
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrInsufficientHistory))
}

func TestLabelRejectsZeroClose(t *testing.T) {
	table := tableWithCloses(t, []float64{100, 0, 100})

	_, err := Label(Params{Deadband: 0.005, Horizon: 1}, table)
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrInsufficientHistory))
}

func TestLabelRejectsZeroHorizon(t *testing.T) {
	table := tableWithCloses(t, []float64{100, 101})

	_, err := Label(Params{Deadband: 0.005, Horizon: 0}, table)
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrTraining))
}

func tableWithCloses(t *testing.T, closes []float64) *features.Table {
	t.Helper()
	start := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	table := &features.Table{Ticker: "TEST", Names: []string{"f0"}}
	for i, c := range closes {
		table.Rows = append(table.Rows, models.FeatureRow{
			Date:     start.AddDate(0, 0, i),
			Ticker:   "TEST",
			AdjClose: c,
			Features: []float64{float64(i)},
		})
	}
	return table
}

package artifact

import (
	"encoding/json"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/stock-prophet/internal/models"
)

var (
	testRunID = uuid.MustParse("11111111-2222-3333-4444-555555555555")
	testStamp = time.Date(2024, 6, 3, 22, 0, 0, 0, time.UTC)
)

func testBuildInput() BuildInput {
	start := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	history := make([]models.Observation, 0, 30)
	for i := 0; i < 30; i++ {
		history = append(history, models.Observation{
			Date:     start.AddDate(0, 0, i),
			Ticker:   "AAPL",
			AdjClose: 180 + float64(i),
		})
	}

	pred := &models.PredictionResult{
		RunID:         testRunID,
		Ticker:        "AAPL",
		Date:          history[len(history)-1].Date,
		AdjClose:      history[len(history)-1].AdjClose,
		Probabilities: [models.NumClasses]float64{0.2, 0.3, 0.5},
		Label:         models.LabelRise,
		Action:        models.ActionBuy,
		Backtest:      models.BacktestStats{Accuracy: 0.61, F1Macro: 0.55, LogLoss: 0.92, NFolds: 1, Rows: 40},
	}

	return BuildInput{
		GeneratedAt: testStamp,
		RunID:       testRunID,
		Tickers:     map[string]TickerInput{"AAPL": {Prediction: pred, History: history}},
		IndexSymbol: "^GSPC",
		IndexBars:   history,
		Economic:    EconomicSnapshot{InterestRate: 5.25, InflationRate: 310.3, InflationYoY: 3.1, UnemploymentRate: 3.9},
	}
}

func TestBuildDocument(t *testing.T) {
	doc, err := Build(testBuildInput(), 6)
	require.NoError(t, err)

	assert.Equal(t, "2024-06-03T22:00:00Z", doc.GeneratedAt)
	assert.Equal(t, testRunID.String(), doc.RunID)
	assert.Equal(t, []string{"AAPL"}, doc.Tickers)

	require.Len(t, doc.Predictions, 1)
	row := doc.Predictions[0]
	assert.Equal(t, "AAPL", row.Ticker)
	assert.Equal(t, "BUY", row.Action)
	assert.InDelta(t, 0.2, row.Down, 1e-12)
	assert.InDelta(t, 0.3, row.Flat, 1e-12)
	assert.InDelta(t, 0.5, row.Up, 1e-12)

	entry, ok := doc.BacktestResults["AAPL"]
	require.True(t, ok)
	assert.InDelta(t, 0.61, entry.Accuracy, 1e-12)
	assert.Equal(t, 1, entry.NFolds)

	assert.Len(t, doc.StockData, 30)
	assert.Contains(t, doc.MarketData, "^GSPC")

	buckets, ok := doc.PriceHistory["AAPL"]
	require.True(t, ok)
	assert.Contains(t, buckets, "max")
	assert.Len(t, buckets["max"].Prices, 30)
	// 15 calendar days back from the last bar keeps 16 bars.
	assert.Contains(t, buckets, "15d")
	assert.Len(t, buckets["15d"].Prices, 16)
}

func TestBuildDeterministic(t *testing.T) {
	first, err := Build(testBuildInput(), 6)
	require.NoError(t, err)
	second, err := Build(testBuildInput(), 6)
	require.NoError(t, err)

	firstJSON, err := json.Marshal(first)
	require.NoError(t, err)
	secondJSON, err := json.Marshal(second)
	require.NoError(t, err)
	assert.Equal(t, firstJSON, secondJSON)
}

func TestBuildRejectsNonFinite(t *testing.T) {
	in := testBuildInput()
	input := in.Tickers["AAPL"]
	input.Prediction.Backtest.LogLoss = math.NaN()
	in.Tickers["AAPL"] = input

	_, err := Build(in, 6)
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrSerialization))
}

func TestBuildRejectsInvalidProbabilities(t *testing.T) {
	in := testBuildInput()
	input := in.Tickers["AAPL"]
	input.Prediction.Probabilities = [models.NumClasses]float64{0.5, 0.5, 0.5}
	in.Tickers["AAPL"] = input

	_, err := Build(in, 6)
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrSerialization))
}

func TestBuildRoundsToPrecision(t *testing.T) {
	in := testBuildInput()
	input := in.Tickers["AAPL"]
	input.Prediction.Probabilities = [models.NumClasses]float64{0.123456789, 0.2, 0.676543211}
	in.Tickers["AAPL"] = input

	doc, err := Build(in, 4)
	require.NoError(t, err)
	assert.Equal(t, 0.1235, doc.Predictions[0].Down)
	assert.Equal(t, 0.6765, doc.Predictions[0].Up)
}

func TestWriterRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cached_results.json")

	doc, err := Build(testBuildInput(), 6)
	require.NoError(t, err)

	writer := NewWriter(path)
	require.NoError(t, writer.Write(doc))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var loaded Document
	require.NoError(t, json.Unmarshal(data, &loaded))
	assert.Equal(t, doc.GeneratedAt, loaded.GeneratedAt)
	assert.Equal(t, doc.RunID, loaded.RunID)

	// No leftover temp files after a successful rename.
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestWriterIdenticalBytesForIdenticalInput(t *testing.T) {
	dir := t.TempDir()
	pathA := filepath.Join(dir, "a.json")
	pathB := filepath.Join(dir, "b.json")

	doc, err := Build(testBuildInput(), 6)
	require.NoError(t, err)
	require.NoError(t, NewWriter(pathA).Write(doc))

	doc2, err := Build(testBuildInput(), 6)
	require.NoError(t, err)
	require.NoError(t, NewWriter(pathB).Write(doc2))

	a, err := os.ReadFile(pathA)
	require.NoError(t, err)
	b, err := os.ReadFile(pathB)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestWriterReplacesExistingFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cached_results.json")
	require.NoError(t, os.WriteFile(path, []byte("old contents"), 0o644))

	doc, err := Build(testBuildInput(), 6)
	require.NoError(t, err)
	require.NoError(t, NewWriter(path).Write(doc))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "old contents")
	assert.Contains(t, string(data), testRunID.String())
}

func TestReadGeneratedAt(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cached_results.json")

	_, ok := ReadGeneratedAt(path)
	assert.False(t, ok)

	require.NoError(t, os.WriteFile(path, []byte("not json"), 0o644))
	_, ok = ReadGeneratedAt(path)
	assert.False(t, ok)

	doc, err := Build(testBuildInput(), 6)
	require.NoError(t, err)
	require.NoError(t, NewWriter(path).Write(doc))

	stamp, ok := ReadGeneratedAt(path)
	require.True(t, ok)
	assert.Equal(t, "2024-06-03T22:00:00Z", stamp)
}

// Package artifact assembles and atomically writes the JSON document the
// static dashboard reads. The schema is a consumer contract: changes must be
// additive only, because the reader has no negotiation mechanism.
package artifact

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/yourusername/stock-prophet/internal/models"
)

// Capitalized JSON keys below mirror the dashboard's existing column names.

// Document is the top-level artifact object.
type Document struct {
	GeneratedAt     string                              `json:"generated_at"`
	RunID           string                              `json:"run_id"`
	Tickers         []string                            `json:"tickers"`
	Predictions     []PredictionRow                     `json:"predictions"`
	BacktestResults map[string]BacktestEntry            `json:"backtest_results"`
	EconomicData    EconomicSnapshot                    `json:"economic_data"`
	MarketData      map[string]MarketSeries             `json:"market_data"`
	StockData       []StockRow                          `json:"stock_data"`
	PriceHistory    map[string]map[string]PeriodSummary `json:"price_history"`
}

// PredictionRow is one ticker's prediction in dashboard column names.
// Down/Flat/Up are the Fall/Neutral/Rise class probabilities.
type PredictionRow struct {
	Ticker   string  `json:"Ticker"`
	Date     string  `json:"Date"`
	AdjClose float64 `json:"Adj Close"`
	Action   string  `json:"Action"`
	Down     float64 `json:"Down"`
	Flat     float64 `json:"Flat"`
	Up       float64 `json:"Up"`
}

// BacktestEntry is the holdout performance block per ticker.
type BacktestEntry struct {
	Accuracy float64 `json:"accuracy"`
	F1Macro  float64 `json:"f1_macro"`
	LogLoss  float64 `json:"log_loss"`
	NFolds   int     `json:"n_folds"`
}

// EconomicSnapshot is the latest value of each macro variable.
type EconomicSnapshot struct {
	InterestRate     float64 `json:"Interest_Rate"`
	InflationRate    float64 `json:"Inflation_Rate"`
	InflationYoY     float64 `json:"Inflation_YoY"`
	UnemploymentRate float64 `json:"Unemployment_Rate"`
}

// MarketSeries is a dates/prices pair for index charts.
type MarketSeries struct {
	Dates  []string  `json:"dates"`
	Prices []float64 `json:"prices"`
}

// StockRow is one raw price row for the dashboard's own charting.
type StockRow struct {
	Ticker   string  `json:"Ticker"`
	Date     string  `json:"Date"`
	AdjClose float64 `json:"Adj Close"`
}

// PeriodSummary is one horizon bucket of a ticker's price history.
type PeriodSummary struct {
	Dates     []string  `json:"dates"`
	Prices    []float64 `json:"prices"`
	ChangePct float64   `json:"change_pct"`
}

// historyBuckets are the fixed dashboard horizons in calendar days;
// 0 means the full series.
var historyBuckets = []struct {
	key  string
	days int
}{
	{"1d", 1},
	{"15d", 15},
	{"1mo", 30},
	{"5y", 1825},
	{"max", 0},
}

// TickerInput is everything the builder needs for one analyzed ticker.
type TickerInput struct {
	Prediction *models.PredictionResult
	History    []models.Observation
}

// BuildInput is the full material of one run.
type BuildInput struct {
	GeneratedAt time.Time
	RunID       uuid.UUID
	Tickers     map[string]TickerInput
	IndexSymbol string
	IndexBars   []models.Observation
	Economic    EconomicSnapshot
}

// Build assembles the document, rounding every numeric field to the given
// decimal precision so identical inputs always serialize identically. A
// non-finite value in any required field aborts with ErrSerialization.
func Build(in BuildInput, precision int32) (*Document, error) {
	r := rounder{precision: precision}

	doc := &Document{
		GeneratedAt:     in.GeneratedAt.UTC().Format(time.RFC3339),
		RunID:           in.RunID.String(),
		BacktestResults: make(map[string]BacktestEntry, len(in.Tickers)),
		MarketData:      make(map[string]MarketSeries, 1),
		PriceHistory:    make(map[string]map[string]PeriodSummary, len(in.Tickers)),
	}

	tickers := make([]string, 0, len(in.Tickers))
	for ticker := range in.Tickers {
		tickers = append(tickers, ticker)
	}
	sort.Strings(tickers)
	doc.Tickers = tickers

	for _, ticker := range tickers {
		input := in.Tickers[ticker]
		pred := input.Prediction
		if pred == nil {
			return nil, fmt.Errorf("%w: no prediction for %s", models.ErrSerialization, ticker)
		}
		if !pred.ValidProbabilities() {
			return nil, fmt.Errorf("%w: invalid probability vector for %s", models.ErrSerialization, ticker)
		}

		row := PredictionRow{
			Ticker: ticker,
			Date:   pred.Date.Format("2006-01-02"),
			Action: string(pred.Action),
		}
		var err error
		if row.AdjClose, err = r.round(pred.AdjClose); err != nil {
			return nil, fieldErr(ticker, "Adj Close", err)
		}
		if row.Down, err = r.round(pred.ProbFall()); err != nil {
			return nil, fieldErr(ticker, "Down", err)
		}
		if row.Flat, err = r.round(pred.ProbNeutral()); err != nil {
			return nil, fieldErr(ticker, "Flat", err)
		}
		if row.Up, err = r.round(pred.ProbRise()); err != nil {
			return nil, fieldErr(ticker, "Up", err)
		}
		doc.Predictions = append(doc.Predictions, row)

		entry := BacktestEntry{NFolds: pred.Backtest.NFolds}
		if entry.Accuracy, err = r.round(pred.Backtest.Accuracy); err != nil {
			return nil, fieldErr(ticker, "accuracy", err)
		}
		if entry.F1Macro, err = r.round(pred.Backtest.F1Macro); err != nil {
			return nil, fieldErr(ticker, "f1_macro", err)
		}
		if entry.LogLoss, err = r.round(pred.Backtest.LogLoss); err != nil {
			return nil, fieldErr(ticker, "log_loss", err)
		}
		doc.BacktestResults[ticker] = entry

		for _, bar := range input.History {
			adj, err := r.round(bar.AdjClose)
			if err != nil {
				return nil, fieldErr(ticker, "stock_data", err)
			}
			doc.StockData = append(doc.StockData, StockRow{
				Ticker:   ticker,
				Date:     bar.Date.Format("2006-01-02"),
				AdjClose: adj,
			})
		}

		buckets, err := r.buildBuckets(input.History)
		if err != nil {
			return nil, fieldErr(ticker, "price_history", err)
		}
		doc.PriceHistory[ticker] = buckets
	}

	indexSeries, err := r.buildSeries(in.IndexBars)
	if err != nil {
		return nil, fieldErr(in.IndexSymbol, "market_data", err)
	}
	doc.MarketData[in.IndexSymbol] = indexSeries

	if doc.EconomicData, err = r.roundSnapshot(in.Economic); err != nil {
		return nil, fmt.Errorf("%w: economic_data: %v", models.ErrSerialization, err)
	}

	return doc, nil
}

func (r rounder) buildBuckets(history []models.Observation) (map[string]PeriodSummary, error) {
	if len(history) == 0 {
		return nil, fmt.Errorf("empty price history")
	}
	end := history[len(history)-1].Date

	buckets := make(map[string]PeriodSummary, len(historyBuckets))
	for _, bucket := range historyBuckets {
		bars := history
		if bucket.days > 0 {
			cutoff := end.AddDate(0, 0, -bucket.days)
			first := sort.Search(len(history), func(i int) bool {
				return !history[i].Date.Before(cutoff)
			})
			bars = history[first:]
		}
		if len(bars) == 0 {
			continue
		}

		series, err := r.buildSeries(bars)
		if err != nil {
			return nil, err
		}

		summary := PeriodSummary{Dates: series.Dates, Prices: series.Prices}
		if start := bars[0].AdjClose; start != 0 {
			change, err := r.round((bars[len(bars)-1].AdjClose/start - 1) * 100)
			if err != nil {
				return nil, err
			}
			summary.ChangePct = change
		}
		buckets[bucket.key] = summary
	}
	return buckets, nil
}

func (r rounder) buildSeries(bars []models.Observation) (MarketSeries, error) {
	series := MarketSeries{
		Dates:  make([]string, 0, len(bars)),
		Prices: make([]float64, 0, len(bars)),
	}
	for _, bar := range bars {
		price, err := r.round(bar.AdjClose)
		if err != nil {
			return series, err
		}
		series.Dates = append(series.Dates, bar.Date.Format("2006-01-02"))
		series.Prices = append(series.Prices, price)
	}
	return series, nil
}

func (r rounder) roundSnapshot(snap EconomicSnapshot) (EconomicSnapshot, error) {
	var err error
	if snap.InterestRate, err = r.round(snap.InterestRate); err != nil {
		return snap, err
	}
	if snap.InflationRate, err = r.round(snap.InflationRate); err != nil {
		return snap, err
	}
	if snap.InflationYoY, err = r.round(snap.InflationYoY); err != nil {
		return snap, err
	}
	snap.UnemploymentRate, err = r.round(snap.UnemploymentRate)
	return snap, err
}

// rounder rounds floats to a fixed number of decimal places via decimal
// arithmetic, rejecting non-finite values.
type rounder struct {
	precision int32
}

func (r rounder) round(v float64) (float64, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("non-finite value %v", v)
	}
	rounded, _ := decimal.NewFromFloat(v).Round(r.precision).Float64()
	return rounded, nil
}

func fieldErr(ticker, field string, err error) error {
	return fmt.Errorf("%w: %s %s: %v", models.ErrSerialization, ticker, field, err)
}

// Package features aligns heterogeneous time series onto the target ticker's
// trading calendar and derives the model-ready feature table.
package features

import (
	"fmt"
	"math"
	"time"

	"github.com/yourusername/stock-prophet/internal/models"
)

// Params holds the rolling-window sizes of the feature builder. All windows
// are in trading days.
type Params struct {
	ReturnWindows    []int
	MomentumShort    int
	MomentumLong     int
	VolatilityWindow int
	RSIPeriod        int
}

// DefaultParams returns the windows documented in the builder tests.
func DefaultParams() Params {
	return Params{
		ReturnWindows:    []int{1, 5, 15, 21},
		MomentumShort:    5,
		MomentumLong:     21,
		VolatilityWindow: 21,
		RSIPeriod:        14,
	}
}

// LargestWindow returns the widest window any derived feature needs.
func (p Params) LargestWindow() int {
	largest := p.VolatilityWindow
	for _, w := range p.ReturnWindows {
		if w > largest {
			largest = w
		}
	}
	if p.MomentumLong > largest {
		largest = p.MomentumLong
	}
	if p.RSIPeriod > largest {
		largest = p.RSIPeriod
	}
	return largest
}

// Inputs are the raw per-source series for one ticker. Stock bars drive the
// calendar; everything else is aligned onto their dates.
type Inputs struct {
	Stock        []models.Observation
	Index        []models.Observation
	Sector       []models.Observation
	InterestRate []models.EconomicPoint
	InflationCPI []models.EconomicPoint // raw CPI index, YoY derived here
	Unemployment []models.EconomicPoint
}

// Table is the aligned, feature-complete output. Rows only contain dates
// where every feature is defined; early rows inside the warm-up window are
// dropped. Context is parallel to Rows.
type Table struct {
	Ticker  string
	Names   []string
	Rows    []models.FeatureRow
	Context []models.MarketContext
}

// Latest returns the most recent row, the prediction target.
func (t *Table) Latest() models.FeatureRow {
	return t.Rows[len(t.Rows)-1]
}

// Build derives the aligned feature table for one ticker. It fails with
// models.ErrInsufficientHistory when the series is shorter than the warm-up
// window or when the most recent row cannot be made feature-complete.
func Build(params Params, ticker string, in Inputs) (*Table, error) {
	warmup := params.LargestWindow()
	if len(in.Stock) <= warmup {
		return nil, fmt.Errorf("%w: %s has %d rows, need more than %d",
			models.ErrInsufficientHistory, ticker, len(in.Stock), warmup)
	}

	closes := adjCloses(in.Stock)
	dailyReturns := pctChanges(closes)

	indexByDate := closeByDate(in.Index)
	sectorByDate := closeByDate(in.Sector)

	rateFill := newForwardFill(in.InterestRate)
	inflationFill := newForwardFill(inflationYoY(in.InflationCPI))
	unemploymentFill := newForwardFill(in.Unemployment)

	indexCloses := alignedCloses(in.Stock, indexByDate)
	sectorCloses := alignedCloses(in.Stock, sectorByDate)
	indexReturns := pctChanges(indexCloses)
	sectorReturns := pctChanges(sectorCloses)

	names := featureNames(params)

	table := &Table{Ticker: ticker, Names: names}
	for i := range in.Stock {
		if i < warmup {
			continue
		}

		date := in.Stock[i].Date
		rate, rateOK := rateFill.valueAt(date)
		inflation, inflationOK := inflationFill.valueAt(date)
		unemployment, unemploymentOK := unemploymentFill.valueAt(date)
		if !rateOK || !inflationOK || !unemploymentOK {
			continue // macro series not yet published at this date
		}
		if indexCloses[i] == 0 || sectorCloses[i] == 0 {
			continue
		}

		ctx := models.MarketContext{
			Date:             date,
			IndexReturn:      indexReturns[i],
			IndexVolatility:  rollingStddev(indexReturns[:i+1], params.VolatilityWindow),
			SectorReturn:     sectorReturns[i],
			InterestRate:     rate,
			InflationYoY:     inflation,
			UnemploymentRate: unemployment,
		}

		vector := make([]float64, 0, len(names))
		for _, w := range params.ReturnWindows {
			vector = append(vector, windowReturn(closes, i, w))
		}
		vector = append(vector,
			momentum(closes, i, params.MomentumShort, params.MomentumLong),
			rollingStddev(dailyReturns[:i+1], params.VolatilityWindow),
			rsi(closes, i, params.RSIPeriod),
			drawdown(closes, i),
			ctx.IndexReturn,
			ctx.IndexVolatility,
			ctx.SectorReturn,
			ctx.InterestRate,
			ctx.InflationYoY,
			ctx.UnemploymentRate,
		)

		if !allFinite(vector) {
			continue
		}

		table.Rows = append(table.Rows, models.FeatureRow{
			Date:     date,
			Ticker:   ticker,
			AdjClose: closes[i],
			Features: vector,
		})
		table.Context = append(table.Context, ctx)
	}

	if len(table.Rows) == 0 {
		return nil, fmt.Errorf("%w: %s produced no feature-complete rows", models.ErrInsufficientHistory, ticker)
	}
	// The prediction target must be the last trading day of the input.
	if !table.Latest().Date.Equal(in.Stock[len(in.Stock)-1].Date) {
		return nil, fmt.Errorf("%w: latest row of %s is not feature-complete", models.ErrInsufficientHistory, ticker)
	}

	return table, nil
}

func featureNames(params Params) []string {
	names := make([]string, 0, len(params.ReturnWindows)+10)
	for _, w := range params.ReturnWindows {
		names = append(names, fmt.Sprintf("return_%dd", w))
	}
	names = append(names,
		"momentum",
		fmt.Sprintf("volatility_%dd", params.VolatilityWindow),
		fmt.Sprintf("rsi_%d", params.RSIPeriod),
		"drawdown",
		"index_return_1d",
		"index_volatility",
		"sector_return_1d",
		"interest_rate",
		"inflation_yoy",
		"unemployment_rate",
	)
	return names
}

func adjCloses(bars []models.Observation) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.AdjClose
	}
	return out
}

// pctChanges returns the 1-day simple return series, zero at index 0.
func pctChanges(closes []float64) []float64 {
	out := make([]float64, len(closes))
	for i := 1; i < len(closes); i++ {
		if closes[i-1] != 0 {
			out[i] = closes[i]/closes[i-1] - 1
		}
	}
	return out
}

// windowReturn is close[i]/close[i-w] - 1.
func windowReturn(closes []float64, i, w int) float64 {
	if i-w < 0 || closes[i-w] == 0 {
		return math.NaN()
	}
	return closes[i]/closes[i-w] - 1
}

// momentum compares the short-window average close against the long-window
// average: positive while recent prices run above the longer trend.
func momentum(closes []float64, i, short, long int) float64 {
	longSMA := sma(closes, i, long)
	if longSMA == 0 {
		return math.NaN()
	}
	return sma(closes, i, short)/longSMA - 1
}

// sma is the simple moving average of the window ending at index i.
func sma(closes []float64, i, w int) float64 {
	if i-w+1 < 0 || w < 1 {
		return math.NaN()
	}
	sum := 0.0
	for j := i - w + 1; j <= i; j++ {
		sum += closes[j]
	}
	return sum / float64(w)
}

// rollingStddev is the population standard deviation of the last window
// values of series. Mirrors the hand-rolled stats used by the backtest
// metrics rather than pulling in a numeric library.
func rollingStddev(series []float64, window int) float64 {
	if len(series) < window || window < 2 {
		return math.NaN()
	}
	tail := series[len(series)-window:]
	mean := 0.0
	for _, v := range tail {
		mean += v
	}
	mean /= float64(window)
	variance := 0.0
	for _, v := range tail {
		diff := v - mean
		variance += diff * diff
	}
	return math.Sqrt(variance / float64(window))
}

// rsi is the classic Wilder relative strength index over period bars
// ending at index i.
func rsi(closes []float64, i, period int) float64 {
	if i-period < 0 {
		return math.NaN()
	}
	gains := 0.0
	losses := 0.0
	for j := i - period + 1; j <= i; j++ {
		delta := closes[j] - closes[j-1]
		if delta > 0 {
			gains += delta
		} else {
			losses -= delta
		}
	}
	if losses == 0 {
		return 100
	}
	rs := gains / losses
	return 100 - 100/(1+rs)
}

// drawdown is the fractional distance below the running peak, <= 0.
func drawdown(closes []float64, i int) float64 {
	peak := closes[0]
	for j := 1; j <= i; j++ {
		if closes[j] > peak {
			peak = closes[j]
		}
	}
	if peak == 0 {
		return math.NaN()
	}
	return closes[i]/peak - 1
}

// alignedCloses maps each stock date to the other series' close, carrying
// the last known value forward across calendar mismatches.
func alignedCloses(stock []models.Observation, byDate map[time.Time]float64) []float64 {
	out := make([]float64, len(stock))
	last := 0.0
	for i, bar := range stock {
		if v, ok := byDate[bar.Date]; ok {
			last = v
		}
		out[i] = last
	}
	return out
}

func closeByDate(bars []models.Observation) map[time.Time]float64 {
	out := make(map[time.Time]float64, len(bars))
	for _, b := range bars {
		out[b.Date] = b.AdjClose
	}
	return out
}

// inflationYoY converts a raw CPI index into year-over-year percentage
// change. Points without a full year of history are dropped.
func inflationYoY(cpi []models.EconomicPoint) []models.EconomicPoint {
	out := make([]models.EconomicPoint, 0, len(cpi))
	for i, p := range cpi {
		cutoff := p.Date.AddDate(0, 0, -360)
		base := -1
		for j := i - 1; j >= 0; j-- {
			if !cpi[j].Date.After(cutoff) {
				base = j
				break
			}
		}
		if base < 0 || cpi[base].Value == 0 {
			continue
		}
		out = append(out, models.EconomicPoint{
			Date:  p.Date,
			Value: (p.Value/cpi[base].Value - 1) * 100,
		})
	}
	return out
}

// forwardFill resolves the latest published value of a sparse series at any
// date. Series points must be date-sorted.
type forwardFill struct {
	points []models.EconomicPoint
}

func newForwardFill(points []models.EconomicPoint) *forwardFill {
	return &forwardFill{points: points}
}

// valueAt returns the most recent value published on or before date.
func (f *forwardFill) valueAt(date time.Time) (float64, bool) {
	value := 0.0
	found := false
	for _, p := range f.points {
		if p.Date.After(date) {
			break
		}
		value = p.Value
		found = true
	}
	return value, found
}

func allFinite(values []float64) bool {
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

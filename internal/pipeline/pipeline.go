// Package pipeline wires the batch run: fetch, feature build, label, train,
// predict, serialize. A run is single-threaded and single-pass; any stage
// error aborts it and leaves the previous artifact untouched.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/stock-prophet/internal/artifact"
	"github.com/yourusername/stock-prophet/internal/config"
	"github.com/yourusername/stock-prophet/internal/datasource"
	"github.com/yourusername/stock-prophet/internal/features"
	"github.com/yourusername/stock-prophet/internal/labeling"
	"github.com/yourusername/stock-prophet/internal/metrics"
	"github.com/yourusername/stock-prophet/internal/ml"
	"github.com/yourusername/stock-prophet/internal/models"
)

// Pipeline owns one run of the prediction batch.
type Pipeline struct {
	cfg      *config.Config
	prices   datasource.PriceSource
	economic datasource.EconomicSource
	trainer  *ml.Trainer
	writer   *artifact.Writer
	logger   *logrus.Entry
}

// New creates a pipeline. Sources and writer are interfaces/values injected
// by the caller so tests can run on synthetic data.
func New(cfg *config.Config, prices datasource.PriceSource, economic datasource.EconomicSource, trainer *ml.Trainer, writer *artifact.Writer, logger *logrus.Entry) *Pipeline {
	return &Pipeline{
		cfg:      cfg,
		prices:   prices,
		economic: economic,
		trainer:  trainer,
		writer:   writer,
		logger:   logger,
	}
}

// Run executes one batch run stamped with the wall clock and a fresh run ID.
func (p *Pipeline) Run(ctx context.Context) error {
	return p.RunAt(ctx, time.Now().UTC(), uuid.New())
}

// RunAt executes one batch run with an explicit clock and run ID. Given
// frozen input data and fixed (now, runID), the output artifact is
// byte-identical across runs.
func (p *Pipeline) RunAt(ctx context.Context, now time.Time, runID uuid.UUID) error {
	start := time.Now()
	logger := p.logger.WithField("run_id", runID.String())
	logger.WithField("tickers", p.cfg.Analysis.Tickers).Info("Starting pipeline run")

	err := p.run(ctx, now, runID, logger)
	if err != nil {
		metrics.RecordRun("failure", time.Since(start).Seconds())
		logger.WithError(err).Error("Pipeline run failed, previous artifact left untouched")
		return err
	}

	metrics.RecordRun("success", time.Since(start).Seconds())
	metrics.LastRunTimestamp.Set(float64(now.Unix()))
	metrics.TickersAnalyzed.Set(float64(len(p.cfg.Analysis.Tickers)))
	logger.WithField("duration", time.Since(start)).Info("Pipeline run complete")
	return nil
}

func (p *Pipeline) run(ctx context.Context, now time.Time, runID uuid.UUID, logger *logrus.Entry) error {
	end := now
	startDate := end.AddDate(-p.cfg.Analysis.LookbackYears, 0, 0)

	fetchStart := time.Now()
	market, err := p.fetchMarket(ctx, startDate, end)
	if err != nil {
		return err
	}
	metrics.RecordStage("fetch", time.Since(fetchStart).Seconds())

	buildInput := artifact.BuildInput{
		GeneratedAt: now,
		RunID:       runID,
		Tickers:     make(map[string]artifact.TickerInput, len(p.cfg.Analysis.Tickers)),
		IndexSymbol: p.cfg.Analysis.MarketIndex,
		IndexBars:   market.index,
		Economic:    market.snapshot(),
	}

	featureParams := features.Params{
		ReturnWindows:    p.cfg.Features.ReturnWindows,
		MomentumShort:    p.cfg.Features.MomentumShort,
		MomentumLong:     p.cfg.Features.MomentumLong,
		VolatilityWindow: p.cfg.Features.VolatilityWindow,
		RSIPeriod:        p.cfg.Features.RSIPeriod,
	}
	labelParams := labeling.Params{
		Deadband: p.cfg.Labeling.Deadband,
		Horizon:  p.cfg.Labeling.HorizonDays,
	}

	for _, ticker := range p.cfg.Analysis.Tickers {
		result, history, err := p.analyzeTicker(ctx, ticker, startDate, end, market, featureParams, labelParams, runID, logger)
		if err != nil {
			return err
		}
		buildInput.Tickers[ticker] = artifact.TickerInput{Prediction: result, History: history}
	}

	serializeStart := time.Now()
	doc, err := artifact.Build(buildInput, int32(p.cfg.Output.Precision))
	if err != nil {
		return err
	}
	if err := p.writer.Write(doc); err != nil {
		return err
	}
	metrics.RecordStage("serialize", time.Since(serializeStart).Seconds())
	metrics.ArtifactWritesTotal.Inc()

	logger.WithField("path", p.writer.Path()).Info("Artifact written")
	return nil
}

// analyzeTicker runs feature building, labeling and training for one ticker.
func (p *Pipeline) analyzeTicker(ctx context.Context, ticker string, startDate, end time.Time, market *marketData, featureParams features.Params, labelParams labeling.Params, runID uuid.UUID, logger *logrus.Entry) (*models.PredictionResult, []models.Observation, error) {
	stock, err := p.fetchPrices(ctx, ticker, startDate, end)
	if err != nil {
		return nil, nil, err
	}

	sectorSymbol := p.cfg.SectorFor(ticker)
	sector := market.index
	if sectorSymbol != "" && sectorSymbol != p.cfg.Analysis.MarketIndex {
		if sector, err = p.fetchPrices(ctx, sectorSymbol, startDate, end); err != nil {
			return nil, nil, err
		}
	}

	featureStart := time.Now()
	table, err := features.Build(featureParams, ticker, features.Inputs{
		Stock:        stock,
		Index:        market.index,
		Sector:       sector,
		InterestRate: market.interestRate,
		InflationCPI: market.inflationCPI,
		Unemployment: market.unemployment,
	})
	if err != nil {
		return nil, nil, err
	}
	metrics.RecordStage("features", time.Since(featureStart).Seconds())

	labelStart := time.Now()
	labeled, err := labeling.Label(labelParams, table)
	if err != nil {
		return nil, nil, err
	}
	metrics.RecordStage("label", time.Since(labelStart).Seconds())

	logger.WithFields(logrus.Fields{
		"ticker":  ticker,
		"rows":    len(table.Rows),
		"labeled": len(labeled),
	}).Debug("Feature table built")

	trainStart := time.Now()
	result, err := p.trainer.TrainAndPredict(labeled, table.Latest(), table.Names, runID)
	if err != nil {
		return nil, nil, err
	}
	metrics.RecordStage("train", time.Since(trainStart).Seconds())

	return result, stock, nil
}

// marketData is the per-run shared series: index bars plus the three macro
// series every ticker joins against.
type marketData struct {
	index        []models.Observation
	interestRate []models.EconomicPoint
	inflationCPI []models.EconomicPoint
	unemployment []models.EconomicPoint
}

// snapshot returns the latest published value of each macro variable for
// the artifact's economic block.
func (m *marketData) snapshot() artifact.EconomicSnapshot {
	snap := artifact.EconomicSnapshot{}
	if n := len(m.interestRate); n > 0 {
		snap.InterestRate = m.interestRate[n-1].Value
	}
	if n := len(m.inflationCPI); n > 0 {
		snap.InflationRate = m.inflationCPI[n-1].Value
	}
	if yoy := latestYoY(m.inflationCPI); yoy != nil {
		snap.InflationYoY = *yoy
	}
	if n := len(m.unemployment); n > 0 {
		snap.UnemploymentRate = m.unemployment[n-1].Value
	}
	return snap
}

func (p *Pipeline) fetchMarket(ctx context.Context, start, end time.Time) (*marketData, error) {
	// Macro series need a year of lead so inflation YoY is defined from the
	// first trading day of the lookback.
	macroStart := start.AddDate(-1, -1, 0)

	index, err := p.fetchPrices(ctx, p.cfg.Analysis.MarketIndex, start, end)
	if err != nil {
		return nil, err
	}

	series := p.cfg.Sources.Economic.Series
	interestRate, err := p.fetchSeries(ctx, series["interest_rate"], macroStart, end)
	if err != nil {
		return nil, err
	}
	inflationCPI, err := p.fetchSeries(ctx, series["inflation"], macroStart, end)
	if err != nil {
		return nil, err
	}
	unemployment, err := p.fetchSeries(ctx, series["unemployment"], macroStart, end)
	if err != nil {
		return nil, err
	}

	return &marketData{
		index:        index,
		interestRate: interestRate,
		inflationCPI: inflationCPI,
		unemployment: unemployment,
	}, nil
}

func (p *Pipeline) fetchPrices(ctx context.Context, symbol string, start, end time.Time) ([]models.Observation, error) {
	bars, err := p.prices.FetchDailyHistory(ctx, symbol, start, end)
	if err != nil {
		metrics.RecordSourceFetch(p.prices.Name(), "failure")
		return nil, fmt.Errorf("fetch %s: %w", symbol, err)
	}
	metrics.RecordSourceFetch(p.prices.Name(), "success")
	return bars, nil
}

func (p *Pipeline) fetchSeries(ctx context.Context, seriesID string, start, end time.Time) ([]models.EconomicPoint, error) {
	points, err := p.economic.FetchSeries(ctx, seriesID, start, end)
	if err != nil {
		metrics.RecordSourceFetch(p.economic.Name(), "failure")
		return nil, fmt.Errorf("fetch series %s: %w", seriesID, err)
	}
	metrics.RecordSourceFetch(p.economic.Name(), "success")
	return points, nil
}

// latestYoY computes the year-over-year change of the newest CPI point,
// nil when the series spans less than a year.
func latestYoY(cpi []models.EconomicPoint) *float64 {
	if len(cpi) == 0 {
		return nil
	}
	latest := cpi[len(cpi)-1]
	cutoff := latest.Date.AddDate(0, 0, -360)
	for i := len(cpi) - 2; i >= 0; i-- {
		if !cpi[i].Date.After(cutoff) {
			if cpi[i].Value == 0 {
				return nil
			}
			yoy := (latest.Value/cpi[i].Value - 1) * 100
			return &yoy
		}
	}
	return nil
}

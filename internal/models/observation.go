// Package models defines the core domain types shared across the pipeline.
package models

import (
	"time"
)

// Observation is a single (date, ticker) row of raw daily price data.
// Observations are immutable once fetched and are always kept in strictly
// increasing date order.
type Observation struct {
	Date     time.Time `json:"date"`
	Ticker   string    `json:"ticker"`
	Open     float64   `json:"open"`
	High     float64   `json:"high"`
	Low      float64   `json:"low"`
	Close    float64   `json:"close"`
	AdjClose float64   `json:"adj_close"`
	Volume   float64   `json:"volume"`
}

// EconomicPoint is one dated value of a macroeconomic series. Macro series
// publish at a lower frequency than trading days and are forward-filled
// during alignment.
type EconomicPoint struct {
	Date  time.Time `json:"date"`
	Value float64   `json:"value"`
}

// MarketContext carries the per-date market and macro variables joined onto
// each observation during feature building.
type MarketContext struct {
	Date             time.Time `json:"date"`
	IndexReturn      float64   `json:"index_return"`
	IndexVolatility  float64   `json:"index_volatility"`
	SectorReturn     float64   `json:"sector_return"`
	InterestRate     float64   `json:"interest_rate"`
	InflationYoY     float64   `json:"inflation_yoy"`
	UnemploymentRate float64   `json:"unemployment_rate"`
}

// FeatureRow is an aligned, feature-complete row ready for labeling or
// prediction. FeatureNames and Features are parallel; the ordering is fixed
// for the lifetime of a run so the trained model and the prediction target
// agree on column meaning.
type FeatureRow struct {
	Date     time.Time
	Ticker   string
	AdjClose float64
	Features []float64
}

// LabeledRow is a FeatureRow whose forward return is known, carrying the
// class assigned by the deadband labeler. The most recent row of a table is
// never labeled; it is the prediction target.
type LabeledRow struct {
	FeatureRow
	ForwardReturn float64
	Label         Label
}

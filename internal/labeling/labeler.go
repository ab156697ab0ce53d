// Package labeling converts forward returns into three-class direction labels.
package labeling

import (
	"fmt"

	"github.com/yourusername/stock-prophet/internal/features"
	"github.com/yourusername/stock-prophet/internal/models"
)

// Params configures the deadband labeler. Deadband is the minimum absolute
// forward-return magnitude for a Rise/Fall classification; Horizon is the
// number of trading days the forward return spans.
type Params struct {
	Deadband float64
	Horizon  int
}

// DefaultParams returns a 0.5% deadband over a 1-day horizon.
func DefaultParams() Params {
	return Params{Deadband: 0.005, Horizon: 1}
}

// Classify maps a forward return to its class. Values exactly at the
// deadband boundary are Neutral.
func Classify(forwardReturn, deadband float64) models.Label {
	switch {
	case forwardReturn > deadband:
		return models.LabelRise
	case forwardReturn < -deadband:
		return models.LabelFall
	default:
		return models.LabelNeutral
	}
}

// Label assigns classes to every row of the table whose forward return is
// known. The last Horizon rows have no known forward return and are excluded;
// the final one of them is the prediction target.
func Label(params Params, table *features.Table) ([]models.LabeledRow, error) {
	if params.Horizon < 1 {
		return nil, fmt.Errorf("%w: horizon must be at least 1", models.ErrTraining)
	}
	if len(table.Rows) <= params.Horizon {
		return nil, fmt.Errorf("%w: %s has %d feature rows, horizon %d leaves nothing to label",
			models.ErrInsufficientHistory, table.Ticker, len(table.Rows), params.Horizon)
	}

	labeled := make([]models.LabeledRow, 0, len(table.Rows)-params.Horizon)
	for i := 0; i+params.Horizon < len(table.Rows); i++ {
		current := table.Rows[i]
		future := table.Rows[i+params.Horizon]
		if current.AdjClose == 0 {
			return nil, fmt.Errorf("%w: zero close at %s", models.ErrInsufficientHistory, current.Date.Format("2006-01-02"))
		}
		forward := future.AdjClose/current.AdjClose - 1
		labeled = append(labeled, models.LabeledRow{
			FeatureRow:    current,
			ForwardReturn: forward,
			Label:         Classify(forward, params.Deadband),
		})
	}

	return labeled, nil
}

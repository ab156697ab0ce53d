// Package datasource fetches external price and macroeconomic time series.
package datasource

import (
	"context"
	"time"

	"github.com/yourusername/stock-prophet/internal/models"
)

// PriceSource fetches daily OHLCV history for a symbol. Implementations must
// return bars sorted by strictly increasing date and treat an empty result as
// an error: the pipeline has no partial-success mode.
type PriceSource interface {
	// FetchDailyHistory retrieves daily bars for the inclusive date range.
	FetchDailyHistory(ctx context.Context, symbol string, start, end time.Time) ([]models.Observation, error)

	// Name returns the name of the data source
	Name() string
}

// EconomicSource fetches a macroeconomic series by provider series ID.
// Points are sparse (monthly or weekly) and get forward-filled onto the
// trading calendar downstream.
type EconomicSource interface {
	// FetchSeries retrieves observations of one series for the date range.
	FetchSeries(ctx context.Context, seriesID string, start, end time.Time) ([]models.EconomicPoint, error)

	// Name returns the name of the data source
	Name() string
}

// SourceError represents errors from data source operations
type SourceError struct {
	Source  string // Data source name
	Code    string // Error code (e.g., "empty_response")
	Message string // Error message
	Err     error  // Underlying error
}

func (e SourceError) Error() string {
	if e.Err != nil {
		return e.Source + ": " + e.Code + ": " + e.Message + " (" + e.Err.Error() + ")"
	}
	return e.Source + ": " + e.Code + ": " + e.Message
}

// Unwrap exposes the underlying transport or decode error.
func (e SourceError) Unwrap() error {
	return e.Err
}

// Is marks every source error as the run-fatal fetch sentinel so callers can
// classify with errors.Is(err, models.ErrSourceFetch).
func (e SourceError) Is(target error) bool {
	return target == models.ErrSourceFetch
}

// Common error codes
const (
	ErrCodeRateLimitExceeded    = "rate_limit_exceeded"
	ErrCodeAuthenticationFailed = "authentication_failed"
	ErrCodeEmptyResponse        = "empty_response"
	ErrCodeInvalidData          = "invalid_data"
	ErrCodeNetworkError         = "network_error"
	ErrCodeServerError          = "server_error"
)

// NewSourceError creates a new data source error
func NewSourceError(source, code, message string, err error) SourceError {
	return SourceError{
		Source:  source,
		Code:    code,
		Message: message,
		Err:     err,
	}
}

package datasource

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"sort"
	"time"

	"github.com/yourusername/stock-prophet/internal/models"
)

const yahooSourceName = "yahoo"

// YahooSource fetches daily price history from a Yahoo Finance style chart
// API. The base URL is configurable so tests can point it at a local server.
type YahooSource struct {
	baseURL string
	client  *RateLimitedHTTPClient
}

// NewYahooSource creates a price source backed by the chart API at baseURL.
func NewYahooSource(baseURL string, client *RateLimitedHTTPClient) *YahooSource {
	return &YahooSource{baseURL: baseURL, client: client}
}

// Name returns the name of the data source
func (s *YahooSource) Name() string { return yahooSourceName }

// yahooChart is the response structure of the chart API.
type yahooChart struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []*float64 `json:"open"`
					High   []*float64 `json:"high"`
					Low    []*float64 `json:"low"`
					Close  []*float64 `json:"close"`
					Volume []*float64 `json:"volume"`
				} `json:"quote"`
				AdjClose []struct {
					AdjClose []*float64 `json:"adjclose"`
				} `json:"adjclose"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// FetchDailyHistory retrieves daily bars for the inclusive date range,
// sorted by increasing date. Null bars (market holidays) are skipped.
func (s *YahooSource) FetchDailyHistory(ctx context.Context, symbol string, start, end time.Time) ([]models.Observation, error) {
	u := fmt.Sprintf("%s/v8/finance/chart/%s?interval=1d&period1=%d&period2=%d&events=div%%2Csplit",
		s.baseURL, url.PathEscape(symbol), start.Unix(), end.Add(24*time.Hour).Unix())

	resp, err := s.client.Get(ctx, u)
	if err != nil {
		return nil, NewSourceError(yahooSourceName, ErrCodeNetworkError, fmt.Sprintf("fetch %s", symbol), err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, NewSourceError(yahooSourceName, ErrCodeNetworkError, fmt.Sprintf("read body for %s", symbol), err)
	}
	if resp.StatusCode != 200 {
		return nil, NewSourceError(yahooSourceName, ErrCodeServerError, fmt.Sprintf("status %d for %s", resp.StatusCode, symbol), nil)
	}

	var chart yahooChart
	if err := json.Unmarshal(body, &chart); err != nil {
		return nil, NewSourceError(yahooSourceName, ErrCodeInvalidData, fmt.Sprintf("decode %s", symbol), err)
	}
	if chart.Chart.Error != nil {
		return nil, NewSourceError(yahooSourceName, ErrCodeServerError, chart.Chart.Error.Description, nil)
	}
	if len(chart.Chart.Result) == 0 || len(chart.Chart.Result[0].Timestamp) == 0 {
		return nil, NewSourceError(yahooSourceName, ErrCodeEmptyResponse, fmt.Sprintf("no data for %s", symbol), nil)
	}

	result := chart.Chart.Result[0]
	if len(result.Indicators.Quote) == 0 {
		return nil, NewSourceError(yahooSourceName, ErrCodeInvalidData, fmt.Sprintf("no quote block for %s", symbol), nil)
	}
	quote := result.Indicators.Quote[0]

	var adjClose []*float64
	if len(result.Indicators.AdjClose) > 0 {
		adjClose = result.Indicators.AdjClose[0].AdjClose
	}

	bars := make([]models.Observation, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		c := deref(at(quote.Close, i))
		if c == 0 {
			continue // null bar, holiday or halted session
		}
		adj := c
		if v := deref(at(adjClose, i)); v != 0 {
			adj = v
		}
		bars = append(bars, models.Observation{
			Date:     time.Unix(ts, 0).UTC().Truncate(24 * time.Hour),
			Ticker:   symbol,
			Open:     deref(at(quote.Open, i)),
			High:     deref(at(quote.High, i)),
			Low:      deref(at(quote.Low, i)),
			Close:    c,
			AdjClose: adj,
			Volume:   deref(at(quote.Volume, i)),
		})
	}

	if len(bars) == 0 {
		return nil, NewSourceError(yahooSourceName, ErrCodeEmptyResponse, fmt.Sprintf("all bars null for %s", symbol), nil)
	}

	sort.Slice(bars, func(i, j int) bool { return bars[i].Date.Before(bars[j].Date) })
	return bars, nil
}

func at(values []*float64, i int) *float64 {
	if i < 0 || i >= len(values) {
		return nil
	}
	return values[i]
}

func deref(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

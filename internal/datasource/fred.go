package datasource

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"sort"
	"strconv"
	"time"

	"github.com/yourusername/stock-prophet/internal/models"
)

const fredSourceName = "fred"

// FREDSource fetches macroeconomic series (rates, CPI, unemployment) from a
// FRED-style observations API. Requires an API key supplied via configuration.
type FREDSource struct {
	baseURL string
	apiKey  string
	client  *RateLimitedHTTPClient
}

// NewFREDSource creates an economic source backed by the API at baseURL.
func NewFREDSource(baseURL, apiKey string, client *RateLimitedHTTPClient) *FREDSource {
	return &FREDSource{baseURL: baseURL, apiKey: apiKey, client: client}
}

// Name returns the name of the data source
func (s *FREDSource) Name() string { return fredSourceName }

// fredObservations is the response structure of the observations endpoint.
// Values arrive as strings; missing observations are encoded as ".".
type fredObservations struct {
	Observations []struct {
		Date  string `json:"date"`
		Value string `json:"value"`
	} `json:"observations"`
	ErrorMessage string `json:"error_message"`
}

// FetchSeries retrieves observations of one series for the date range,
// sorted by increasing date. Missing values are dropped; an entirely empty
// series is an error.
func (s *FREDSource) FetchSeries(ctx context.Context, seriesID string, start, end time.Time) ([]models.EconomicPoint, error) {
	q := url.Values{}
	q.Set("series_id", seriesID)
	q.Set("api_key", s.apiKey)
	q.Set("file_type", "json")
	q.Set("observation_start", start.Format("2006-01-02"))
	q.Set("observation_end", end.Format("2006-01-02"))
	u := fmt.Sprintf("%s/fred/series/observations?%s", s.baseURL, q.Encode())

	resp, err := s.client.Get(ctx, u)
	if err != nil {
		return nil, NewSourceError(fredSourceName, ErrCodeNetworkError, fmt.Sprintf("fetch %s", seriesID), err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, NewSourceError(fredSourceName, ErrCodeNetworkError, fmt.Sprintf("read body for %s", seriesID), err)
	}
	if resp.StatusCode == 400 || resp.StatusCode == 403 {
		return nil, NewSourceError(fredSourceName, ErrCodeAuthenticationFailed, fmt.Sprintf("status %d for %s", resp.StatusCode, seriesID), nil)
	}
	if resp.StatusCode != 200 {
		return nil, NewSourceError(fredSourceName, ErrCodeServerError, fmt.Sprintf("status %d for %s", resp.StatusCode, seriesID), nil)
	}

	var decoded fredObservations
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, NewSourceError(fredSourceName, ErrCodeInvalidData, fmt.Sprintf("decode %s", seriesID), err)
	}
	if decoded.ErrorMessage != "" {
		return nil, NewSourceError(fredSourceName, ErrCodeServerError, decoded.ErrorMessage, nil)
	}

	points := make([]models.EconomicPoint, 0, len(decoded.Observations))
	for _, obs := range decoded.Observations {
		if obs.Value == "." || obs.Value == "" {
			continue // series not yet published for this date
		}
		value, err := strconv.ParseFloat(obs.Value, 64)
		if err != nil {
			return nil, NewSourceError(fredSourceName, ErrCodeInvalidData, fmt.Sprintf("bad value %q in %s", obs.Value, seriesID), err)
		}
		date, err := time.Parse("2006-01-02", obs.Date)
		if err != nil {
			return nil, NewSourceError(fredSourceName, ErrCodeInvalidData, fmt.Sprintf("bad date %q in %s", obs.Date, seriesID), err)
		}
		points = append(points, models.EconomicPoint{Date: date, Value: value})
	}

	if len(points) == 0 {
		return nil, NewSourceError(fredSourceName, ErrCodeEmptyResponse, fmt.Sprintf("no observations for %s", seriesID), nil)
	}

	sort.Slice(points, func(i, j int) bool { return points[i].Date.Before(points[j].Date) })
	return points, nil
}

package datasource

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/stock-prophet/internal/models"
)

func testHTTPClient() *RateLimitedHTTPClient {
	cfg := DefaultHTTPClientConfig()
	cfg.MaxRetries = 0
	cfg.RateLimit = 1000
	return NewRateLimitedHTTPClient(cfg, nil)
}

func chartJSON(timestamps []int64, closes []string) string {
	ts := ""
	for i, t := range timestamps {
		if i > 0 {
			ts += ","
		}
		ts += fmt.Sprintf("%d", t)
	}
	cs := ""
	for i, c := range closes {
		if i > 0 {
			cs += ","
		}
		cs += c
	}
	return fmt.Sprintf(`{"chart":{"result":[{"timestamp":[%s],"indicators":{"quote":[{"open":[%s],"high":[%s],"low":[%s],"close":[%s],"volume":[%s]}],"adjclose":[{"adjclose":[%s]}]}}],"error":null}}`,
		ts, cs, cs, cs, cs, cs, cs)
}

func TestYahooFetchDailyHistory(t *testing.T) {
	day := int64(24 * 60 * 60)
	base := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC).Unix()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, "/v8/finance/chart/AAPL")
		assert.Equal(t, "1d", r.URL.Query().Get("interval"))
		fmt.Fprint(w, chartJSON(
			[]int64{base, base + day, base + 2*day},
			[]string{"185.5", "186.2", "184.9"},
		))
	}))
	defer server.Close()

	source := NewYahooSource(server.URL, testHTTPClient())
	bars, err := source.FetchDailyHistory(context.Background(), "AAPL",
		time.Unix(base, 0), time.Unix(base+2*day, 0))
	require.NoError(t, err)

	require.Len(t, bars, 3)
	assert.Equal(t, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), bars[0].Date)
	assert.Equal(t, "AAPL", bars[0].Ticker)
	assert.Equal(t, 185.5, bars[0].AdjClose)
	assert.True(t, bars[0].Date.Before(bars[1].Date))
	assert.True(t, bars[1].Date.Before(bars[2].Date))
}

func TestYahooSkipsNullBars(t *testing.T) {
	day := int64(24 * 60 * 60)
	base := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC).Unix()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, chartJSON(
			[]int64{base, base + day, base + 2*day},
			[]string{"185.5", "null", "184.9"},
		))
	}))
	defer server.Close()

	source := NewYahooSource(server.URL, testHTTPClient())
	bars, err := source.FetchDailyHistory(context.Background(), "AAPL",
		time.Unix(base, 0), time.Unix(base+2*day, 0))
	require.NoError(t, err)
	require.Len(t, bars, 2)
	assert.Equal(t, 185.5, bars[0].AdjClose)
	assert.Equal(t, 184.9, bars[1].AdjClose)
}

func TestYahooChartError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found, symbol may be delisted"}}}`)
	}))
	defer server.Close()

	source := NewYahooSource(server.URL, testHTTPClient())
	_, err := source.FetchDailyHistory(context.Background(), "NOSUCH", time.Now().AddDate(0, -1, 0), time.Now())
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrSourceFetch))

	var srcErr SourceError
	require.True(t, errors.As(err, &srcErr))
	assert.Equal(t, yahooSourceName, srcErr.Source)
}

func TestYahooEmptyResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"chart":{"result":[{"timestamp":[],"indicators":{"quote":[]}}],"error":null}}`)
	}))
	defer server.Close()

	source := NewYahooSource(server.URL, testHTTPClient())
	_, err := source.FetchDailyHistory(context.Background(), "AAPL", time.Now().AddDate(0, -1, 0), time.Now())
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrSourceFetch))
}

func TestYahooHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	source := NewYahooSource(server.URL, testHTTPClient())
	_, err := source.FetchDailyHistory(context.Background(), "AAPL", time.Now().AddDate(0, -1, 0), time.Now())
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrSourceFetch))
}

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

func TestFREDFetchSeries(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/fred/series/observations", r.URL.Path)
		assert.Equal(t, "FEDFUNDS", r.URL.Query().Get("series_id"))
		assert.Equal(t, "test-key", r.URL.Query().Get("api_key"))
		assert.Equal(t, "json", r.URL.Query().Get("file_type"))
		fmt.Fprint(w, `{"observations":[
			{"date":"2024-01-01","value":"5.33"},
			{"date":"2024-02-01","value":"."},
			{"date":"2024-03-01","value":"5.25"}
		]}`)
	}))
	defer server.Close()

	source := NewFREDSource(server.URL, "test-key", testHTTPClient())
	points, err := source.FetchSeries(context.Background(), "FEDFUNDS",
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	// The "." observation is unpublished and dropped.
	require.Len(t, points, 2)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), points[0].Date)
	assert.Equal(t, 5.33, points[0].Value)
	assert.Equal(t, 5.25, points[1].Value)
}

func TestFREDAuthenticationError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"error_message":"Bad Request. The value for variable api_key is not registered."}`)
	}))
	defer server.Close()

	source := NewFREDSource(server.URL, "bad-key", testHTTPClient())
	_, err := source.FetchSeries(context.Background(), "FEDFUNDS", time.Now().AddDate(-1, 0, 0), time.Now())
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrSourceFetch))

	var srcErr SourceError
	require.True(t, errors.As(err, &srcErr))
	assert.Equal(t, ErrCodeAuthenticationFailed, srcErr.Code)
}

func TestFREDEmptySeries(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"observations":[{"date":"2024-01-01","value":"."}]}`)
	}))
	defer server.Close()

	source := NewFREDSource(server.URL, "test-key", testHTTPClient())
	_, err := source.FetchSeries(context.Background(), "UNRATE", time.Now().AddDate(-1, 0, 0), time.Now())
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrSourceFetch))
}

func TestFREDBadValue(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"observations":[{"date":"2024-01-01","value":"not-a-number"}]}`)
	}))
	defer server.Close()

	source := NewFREDSource(server.URL, "test-key", testHTTPClient())
	_, err := source.FetchSeries(context.Background(), "CPIAUCSL", time.Now().AddDate(-1, 0, 0), time.Now())
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrSourceFetch))
}

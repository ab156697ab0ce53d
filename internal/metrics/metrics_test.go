package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitRegistryIdempotent(t *testing.T) {
	first := InitRegistry()
	second := InitRegistry()
	assert.Same(t, first, second)
	assert.Same(t, first, GetRegistry())
}

func TestHandlerServesRecordedMetrics(t *testing.T) {
	InitRegistry()
	RecordRun("success", 1.5)
	RecordSourceFetch("yahoo", "success")
	RecordStage("train", 0.2)
	ArtifactWritesTotal.Inc()
	TickersAnalyzed.Set(5)

	recorder := httptest.NewRecorder()
	request := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	Handler().ServeHTTP(recorder, request)

	require.Equal(t, http.StatusOK, recorder.Code)
	body := recorder.Body.String()
	assert.Contains(t, body, "stock_prophet_runs_total")
	assert.Contains(t, body, "stock_prophet_source_fetches_total")
	assert.Contains(t, body, "stock_prophet_stage_duration_seconds")
	assert.Contains(t, body, "stock_prophet_artifact_writes_total")
	assert.Contains(t, body, "stock_prophet_tickers_analyzed")
}

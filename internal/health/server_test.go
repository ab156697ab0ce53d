package health

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandleHealth(t *testing.T) {
	s := NewServer(Config{ServiceName: "stock-prophet", Version: "test"})

	recorder := httptest.NewRecorder()
	s.handleHealth(recorder, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, recorder.Code)
	var resp HealthResponse
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "stock-prophet", resp.Service)
	assert.Equal(t, "test", resp.Version)
}

func TestHandleReady(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cached_results.json")
	s := NewServer(Config{
		ServiceName:  "stock-prophet",
		ArtifactPath: path,
		MaxAge:       12 * time.Hour,
	})

	// Not ready until the scheduler marks itself up.
	recorder := httptest.NewRecorder()
	s.handleReady(recorder, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, recorder.Code)

	s.SetReady(true)
	recorder = httptest.NewRecorder()
	s.handleReady(recorder, httptest.NewRequest(http.MethodGet, "/ready", nil))
	require.Equal(t, http.StatusOK, recorder.Code)

	var resp ReadyResponse
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	// Missing artifact reports stale without failing readiness.
	assert.Equal(t, "stale", resp.Checks["artifact"])

	stamp := time.Now().UTC().Add(-time.Hour).Format(time.RFC3339)
	require.NoError(t, os.WriteFile(path, []byte(`{"generated_at":"`+stamp+`"}`), 0o644))

	recorder = httptest.NewRecorder()
	s.handleReady(recorder, httptest.NewRequest(http.MethodGet, "/ready", nil))
	require.Equal(t, http.StatusOK, recorder.Code)
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &resp))
	assert.Equal(t, "fresh", resp.Checks["artifact"])
}

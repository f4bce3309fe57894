package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/phishguard/driftmon/internal/dataset"
	"github.com/phishguard/driftmon/internal/drift"
	"github.com/phishguard/driftmon/internal/generator"
	"github.com/phishguard/driftmon/internal/history"
	"github.com/phishguard/driftmon/internal/monitor"
	"github.com/phishguard/driftmon/internal/retrain"
	"github.com/phishguard/driftmon/internal/store"
)

func testServer(t *testing.T, seeded bool) *Server {
	t.Helper()
	logger := zap.NewNop().Sugar()
	dir := t.TempDir()
	st := store.New(
		filepath.Join(dir, "reference_data.csv"),
		filepath.Join(dir, "phishing_model.bin"),
		dataset.DefaultSchema(),
	)
	gen := generator.New(42)
	retrainer := retrain.New(logger, retrain.DefaultTrainer(), st)

	if seeded {
		training, err := gen.Generate(2000, generator.DriftNone)
		require.NoError(t, err)
		require.NoError(t, retrainer.Retrain(context.Background(), training))
	}

	driftConfig := drift.Config{PValueThreshold: 0.01, Aggregation: drift.AggregateAny}
	m, err := monitor.New(logger, driftConfig, st, gen, retrainer)
	require.NoError(t, err)

	h, err := history.Open(":memory:")
	require.NoError(t, err)
	m.SetCycleCompleteCallback(func(result *monitor.CycleResult) {
		require.NoError(t, h.Record(result))
	})

	return New(logger, m, h, 500)
}

func doJSON(t *testing.T, s *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func TestHealthz(t *testing.T) {
	s := testServer(t, true)
	w := doJSON(t, s, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestStatus(t *testing.T) {
	s := testServer(t, true)
	w := doJSON(t, s, http.MethodGet, "/api/v1/status", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Ready               bool   `json:"ready"`
		ReferenceGeneration uint64 `json:"reference_generation"`
		ReferenceRecords    int    `json:"reference_records"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.True(t, body.Ready)
	assert.Equal(t, uint64(1), body.ReferenceGeneration)
	assert.Equal(t, 2000, body.ReferenceRecords)
}

func TestProcessHealthyBatch(t *testing.T) {
	s := testServer(t, true)
	w := doJSON(t, s, http.MethodPost, "/api/v1/monitor/process",
		map[string]any{"batch_size": 500, "drift_kind": "none"})
	require.Equal(t, http.StatusOK, w.Code)

	var result monitor.CycleResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.False(t, result.DriftDetected)
	assert.False(t, result.Retrained)
	assert.Len(t, result.Report, 4)
}

func TestProcessDriftedBatch(t *testing.T) {
	s := testServer(t, true)
	w := doJSON(t, s, http.MethodPost, "/api/v1/monitor/process",
		map[string]any{"batch_size": 500, "drift_kind": "data_drift"})
	require.Equal(t, http.StatusOK, w.Code)

	var result monitor.CycleResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.True(t, result.DriftDetected)
	assert.True(t, result.Retrained)

	for name, res := range result.Report {
		assert.GreaterOrEqual(t, res.PValue, 0.0, "feature %s", name)
		assert.LessOrEqual(t, res.PValue, 1.0, "feature %s", name)
		assert.Contains(t, []string{drift.TestKS, drift.TestChiSquare}, res.Test)
	}
}

func TestProcessNotReady(t *testing.T) {
	s := testServer(t, false)
	w := doJSON(t, s, http.MethodPost, "/api/v1/monitor/process",
		map[string]any{"batch_size": 500})
	require.Equal(t, http.StatusConflict, w.Code)

	var result monitor.CycleResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.NotEmpty(t, result.Error)
}

func TestProcessRejectsUnknownDriftKind(t *testing.T) {
	s := testServer(t, true)
	w := doJSON(t, s, http.MethodPost, "/api/v1/monitor/process",
		map[string]any{"drift_kind": "label_drift"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestProcessBindsChunkedBody(t *testing.T) {
	s := testServer(t, true)

	// A chunked request has no Content-Length; the body must still be read.
	chunked := func(payload string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/monitor/process",
			io.NopCloser(strings.NewReader(payload)))
		req.Header.Set("Content-Type", "application/json")
		require.Equal(t, int64(-1), req.ContentLength)
		w := httptest.NewRecorder()
		s.Handler().ServeHTTP(w, req)
		return w
	}

	w := chunked(`{"drift_kind":"label_drift"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code, "chunked body must not be ignored")

	w = chunked(`{"batch_size":300,"drift_kind":"none"}`)
	require.Equal(t, http.StatusOK, w.Code)
	var result monitor.CycleResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Equal(t, 300, result.BatchSize)
}

func TestProcessDefaultsBatchSize(t *testing.T) {
	s := testServer(t, true)
	w := doJSON(t, s, http.MethodPost, "/api/v1/monitor/process", map[string]any{})
	require.Equal(t, http.StatusOK, w.Code)

	var result monitor.CycleResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Equal(t, 500, result.BatchSize)
}

func TestHistoryEndpoint(t *testing.T) {
	s := testServer(t, true)
	for i := 0; i < 3; i++ {
		w := doJSON(t, s, http.MethodPost, "/api/v1/monitor/process",
			map[string]any{"batch_size": 300, "drift_kind": "none"})
		require.Equal(t, http.StatusOK, w.Code)
	}

	w := doJSON(t, s, http.MethodGet, "/api/v1/history?limit=2", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Cycles []history.CycleRecord `json:"cycles"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Len(t, body.Cycles, 2)
}

func TestHistoryRejectsBadLimit(t *testing.T) {
	s := testServer(t, true)
	w := doJSON(t, s, http.MethodGet, "/api/v1/history?limit=zero", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

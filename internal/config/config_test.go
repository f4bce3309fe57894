package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phishguard/driftmon/internal/drift"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "models/reference_data.csv", cfg.ReferencePath)
	assert.Equal(t, 500, cfg.BatchSize)
	assert.Equal(t, drift.DefaultPValueThreshold, cfg.PValueThreshold)
	assert.Equal(t, drift.AggregateAny, cfg.Aggregation)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":9000")
	t.Setenv("BATCH_SIZE", "250")
	t.Setenv("AGGREGATION", "majority")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.HTTPAddr)
	assert.Equal(t, 250, cfg.BatchSize)
	assert.Equal(t, drift.AggregateMajority, cfg.Aggregation)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{name: "zero batch size", key: "BATCH_SIZE", value: "0"},
		{name: "threshold out of range", key: "P_VALUE_THRESHOLD", value: "1.5"},
		{name: "unknown aggregation", key: "AGGREGATION", value: "quorum"},
		{name: "negative seed samples", key: "SEED_SAMPLES", value: "-1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestDriftConfigProjection(t *testing.T) {
	t.Setenv("P_VALUE_THRESHOLD", "0.01")
	t.Setenv("AGGREGATION", "bonferroni")

	cfg, err := Load()
	require.NoError(t, err)

	dc := cfg.DriftConfig()
	assert.Equal(t, 0.01, dc.PValueThreshold)
	assert.Equal(t, drift.AggregateBonferroni, dc.Aggregation)
}

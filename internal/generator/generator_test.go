package generator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func columnMean(t *testing.T, values []float64) float64 {
	t.Helper()
	require.NotEmpty(t, values)
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func TestGenerateShapeAndLabels(t *testing.T) {
	g := New(1)
	batch, err := g.Generate(1000, DriftNone)
	require.NoError(t, err)

	assert.Equal(t, 1000, batch.Len())
	assert.True(t, batch.Labeled())

	labels, err := batch.Labels()
	require.NoError(t, err)
	var phishing float64
	for _, y := range labels {
		assert.Contains(t, []float64{0, 1}, y)
		phishing += y
	}
	// Around the 30% phishing rate.
	assert.InDelta(t, 0.3, phishing/1000, 0.08)

	for _, name := range []string{"has_ip_address", "https_token"} {
		col, err := batch.Column(name)
		require.NoError(t, err)
		for _, v := range col {
			assert.Contains(t, []float64{0, 1}, v)
		}
	}
}

func TestGenerateRejectsBadSize(t *testing.T) {
	g := New(1)
	_, err := g.Generate(0, DriftNone)
	assert.Error(t, err)
}

func TestDataDriftShiftsURLLength(t *testing.T) {
	base, err := New(7).Generate(2000, DriftNone)
	require.NoError(t, err)
	drifted, err := New(7).Generate(2000, DriftData)
	require.NoError(t, err)

	baseCol, err := base.Column("url_length")
	require.NoError(t, err)
	driftedCol, err := drifted.Column("url_length")
	require.NoError(t, err)

	// Identical seeds, so the +20 global shift is exact in the mean.
	assert.InDelta(t, columnMean(t, baseCol)+20, columnMean(t, driftedCol), 1e-9)
}

func TestConceptDriftNarrowsPhishingLengths(t *testing.T) {
	batch, err := New(11).Generate(4000, DriftConcept)
	require.NoError(t, err)

	lengths, err := batch.Column("url_length")
	require.NoError(t, err)
	labels, err := batch.Labels()
	require.NoError(t, err)

	var phishing, legit []float64
	for i, y := range labels {
		if y == 1 {
			phishing = append(phishing, lengths[i])
		} else {
			legit = append(legit, lengths[i])
		}
	}

	// Phishing URL lengths move toward the legitimate distribution:
	// means near 30 and 25 instead of 60 and 25.
	assert.InDelta(t, 30, columnMean(t, phishing), 2)
	assert.InDelta(t, 25, columnMean(t, legit), 2)
}

func TestParseDriftKind(t *testing.T) {
	tests := []struct {
		in      string
		want    DriftKind
		wantErr bool
	}{
		{in: "", want: DriftNone},
		{in: "none", want: DriftNone},
		{in: "data_drift", want: DriftData},
		{in: "concept_drift", want: DriftConcept},
		{in: "label_drift", wantErr: true},
	}
	for _, tt := range tests {
		got, err := ParseDriftKind(tt.in)
		if tt.wantErr {
			assert.Error(t, err, "input %q", tt.in)
			continue
		}
		require.NoError(t, err, "input %q", tt.in)
		assert.Equal(t, tt.want, got)
	}
}

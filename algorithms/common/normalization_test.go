package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPeakNormalize(t *testing.T) {
	n, err := NewNormalizer(PeakNorm, 0.95)
	require.NoError(t, err)

	in := []float64{0.1, -0.5, 0.25}
	out := n.Normalize(in)

	assert.InDelta(t, 0.95, Peak(out), 1e-12)
	assert.InDelta(t, 0.19, out[0], 1e-12)
	assert.Equal(t, []float64{0.1, -0.5, 0.25}, in, "input must not be mutated")

	assert.Equal(t, []float64{0, 0}, n.Normalize([]float64{0, 0}))
	assert.Empty(t, n.Normalize(nil))
}

func TestRMSNormalizeClipsPeak(t *testing.T) {
	n, err := NewNormalizer(RMSNorm, 0.1)
	require.NoError(t, err)

	out := n.Normalize([]float64{1, -1, 1, -1})
	assert.InDelta(t, 0.1, RMS(out), 1e-12)

	// a single spike would need a peak above 1.0 at the target RMS
	spike := make([]float64, 1000)
	spike[10] = 1
	n, err = NewNormalizer(RMSNorm, 0.5)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, Peak(n.Normalize(spike)), 1e-12)
}

func TestNormalizerRejectsBadTarget(t *testing.T) {
	_, err := NewNormalizer(PeakNorm, 0)
	assert.Error(t, err)

	_, err = NewNormalizer(PeakNorm, 1.5)
	assert.Error(t, err)
}

func TestParseNormalizationType(t *testing.T) {
	mode, err := ParseNormalizationType("rms")
	require.NoError(t, err)
	assert.Equal(t, RMSNorm, mode)
	assert.Equal(t, "rms", mode.String())

	mode, err = ParseNormalizationType("")
	require.NoError(t, err)
	assert.Equal(t, PeakNorm, mode)

	_, err = ParseNormalizationType("lufs")
	assert.Error(t, err)
}

func TestRemoveDCAndDownmix(t *testing.T) {
	out := RemoveDC([]float64{1, 2, 3})
	assert.InDeltaSlice(t, []float64{-1, 0, 1}, out, 1e-12)

	mono, err := Downmix([]float64{1, 3, -1, -3, 0.5, 0.5}, 2)
	require.NoError(t, err)
	assert.Equal(t, []float64{2, -2, 0.5}, mono)

	_, err = Downmix([]float64{1, 2, 3}, 2)
	assert.Error(t, err)

	_, err = Downmix([]float64{1}, 0)
	assert.Error(t, err)
}

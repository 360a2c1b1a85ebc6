package windowing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHannEndpoints(t *testing.T) {
	symmetric := NewHann(5, true).GetCoefficients()
	assert.InDelta(t, 0.0, symmetric[0], 1e-12)
	assert.InDelta(t, 1.0, symmetric[2], 1e-12)
	assert.InDelta(t, 0.0, symmetric[4], 1e-12)

	periodic := NewHann(4, false).GetCoefficients()
	assert.InDelta(t, 0.0, periodic[0], 1e-12)
	assert.InDelta(t, 1.0, periodic[2], 1e-12)
}

func TestHammingEndpoints(t *testing.T) {
	coeffs := NewHamming(5, true).GetCoefficients()
	assert.InDelta(t, 0.08, coeffs[0], 1e-12)
	assert.InDelta(t, 1.0, coeffs[2], 1e-12)
}

func TestApplyInPlaceChecksLength(t *testing.T) {
	w := NewHann(4, false)
	assert.Error(t, w.ApplyInPlace(make([]float64, 3)))

	signal := []float64{1, 1, 1, 1}
	require.NoError(t, w.ApplyInPlace(signal))
	assert.Equal(t, w.GetCoefficients(), signal)
}

func TestNewByName(t *testing.T) {
	w, err := New("hamming", 8)
	require.NoError(t, err)
	assert.Equal(t, "hamming", w.GetType())

	w, err = New("", 8)
	require.NoError(t, err)
	assert.Equal(t, "hann", w.GetType())

	_, err = New("kaiser", 8)
	assert.Error(t, err)

	_, err = New("hann", 0)
	assert.Error(t, err)
}

package tonal

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sineFrame(freq float64, sampleRate, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = 0.8 * math.Sin(2*math.Pi*freq*float64(i)/float64(sampleRate))
	}
	return out
}

func TestDetectPitchSine(t *testing.T) {
	pd := NewPitchDetector(16000)

	for _, freq := range []float64{110, 220, 440} {
		result, err := pd.DetectPitch(sineFrame(freq, 16000, 640))
		require.NoError(t, err)
		assert.True(t, result.Voiced, "%.0f Hz should be voiced", freq)
		assert.InDelta(t, freq, result.Pitch, freq*0.01)
		assert.InDelta(t, 16000/freq, result.Period, 16000/freq*0.01)
		assert.Greater(t, result.Confidence, 0.85)
	}
}

func TestDetectPitchNoiseIsUnvoiced(t *testing.T) {
	pd := NewPitchDetector(16000)
	rng := rand.New(rand.NewSource(7))

	frame := make([]float64, 640)
	for i := range frame {
		frame[i] = rng.NormFloat64() * 0.3
	}

	result, err := pd.DetectPitch(frame)
	require.NoError(t, err)
	assert.False(t, result.Voiced)
	assert.Equal(t, 0.0, result.Pitch)
}

func TestDetectPitchSilenceIsUnvoiced(t *testing.T) {
	pd := NewPitchDetector(16000)

	result, err := pd.DetectPitch(make([]float64, 640))
	require.NoError(t, err)
	assert.False(t, result.Voiced)
}

func TestDetectPitchRejectsShortFrame(t *testing.T) {
	pd := NewPitchDetector(16000)

	_, err := pd.DetectPitch(make([]float64, 100))
	assert.Error(t, err)

	_, err = pd.ProcessFrames([][]float64{sineFrame(440, 16000, 640), make([]float64, 10)})
	assert.Error(t, err)
}

func TestNewPitchDetectorWithParamsValidation(t *testing.T) {
	params := DefaultPitchDetectionParams(16000)

	bad := params
	bad.MaxFreq = 50
	_, err := NewPitchDetectorWithParams(bad)
	assert.Error(t, err)

	bad = params
	bad.YinThreshold = 0
	_, err = NewPitchDetectorWithParams(bad)
	assert.Error(t, err)

	bad = params
	bad.SampleRate = 0
	_, err = NewPitchDetectorWithParams(bad)
	assert.Error(t, err)

	pd, err := NewPitchDetectorWithParams(params)
	require.NoError(t, err)
	assert.Equal(t, params, pd.GetParameters())
}

package speech

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// synthVowel builds a pulse train at f0 passed through two resonators
func synthVowel(sampleRate, n int, f0, f1, f2 float64) []float64 {
	source := make([]float64, n)
	period := int(float64(sampleRate) / f0)
	for i := 0; i < n; i += period {
		source[i] = 1.0
	}

	out := resonate(source, sampleRate, f1, 80)
	out = resonate(out, sampleRate, f2, 120)
	return out
}

func resonate(x []float64, sampleRate int, freq, bandwidth float64) []float64 {
	r := math.Exp(-math.Pi * bandwidth / float64(sampleRate))
	theta := 2 * math.Pi * freq / float64(sampleRate)
	a1 := 2 * r * math.Cos(theta)
	a2 := -r * r

	y := make([]float64, len(x))
	for i := range x {
		y[i] = x[i]
		if i >= 1 {
			y[i] += a1 * y[i-1]
		}
		if i >= 2 {
			y[i] += a2 * y[i-2]
		}
	}
	return y
}

func TestLPCRecoversAROneProcess(t *testing.T) {
	// y[n] = 0.9 y[n-1] + impulse train => A(z) = 1 - 0.9 z^-1
	n := 4000
	x := make([]float64, n)
	for i := 0; i < n; i += 97 {
		x[i] = 1
	}
	y := make([]float64, n)
	for i := range x {
		y[i] = x[i]
		if i > 0 {
			y[i] += 0.9 * y[i-1]
		}
	}

	lpc := NewLPCAnalyzer(16000, 1)
	result, err := lpc.Analyze(y)
	require.NoError(t, err)
	require.Len(t, result.Coefficients, 2)
	assert.Equal(t, 1.0, result.Coefficients[0])
	assert.InDelta(t, -0.9, result.Coefficients[1], 0.02)
	assert.True(t, result.Stable)
}

func TestLPCDefaultsAndErrors(t *testing.T) {
	assert.Equal(t, 18, DefaultLPCOrder(16000))
	assert.Equal(t, 18, NewLPCAnalyzer(16000, 0).Order())

	lpc := NewLPCAnalyzer(16000, 0)
	_, err := lpc.Analyze(make([]float64, 10))
	assert.Error(t, err)

	_, err = lpc.Analyze(make([]float64, 640))
	assert.Error(t, err, "silent frame has no energy")

	_, err = lpc.GetSpectralEnvelope(nil, 512)
	assert.Error(t, err)
}

func TestLPCOnPureSineStaysFinite(t *testing.T) {
	frame := make([]float64, 640)
	for i := range frame {
		frame[i] = math.Sin(2 * math.Pi * 440 * float64(i) / 16000)
	}

	lpc := NewLPCAnalyzer(16000, 0)
	result, err := lpc.Analyze(frame)
	require.NoError(t, err)

	envelope, err := lpc.GetSpectralEnvelope(result, 512)
	require.NoError(t, err)
	require.Len(t, envelope, 257)
	for _, v := range envelope {
		assert.False(t, math.IsNaN(v) || math.IsInf(v, 0))
	}
}

func TestFormantsOfSyntheticVowel(t *testing.T) {
	sampleRate := 16000
	signal := synthVowel(sampleRate, 4000, 120, 700, 1200)

	params := DefaultFormantParams(640)
	params.LPCOrder = 10
	fa, err := NewFormantAnalyzer(sampleRate, params)
	require.NoError(t, err)

	result, err := fa.AnalyzeFormants(signal[1000:1640])
	require.NoError(t, err)
	require.True(t, result.HasF1F2())
	assert.InDelta(t, 700, result.F1(), 200)
	assert.InDelta(t, 1200, result.F2(), 250)
	assert.Equal(t, 10, result.LPCOrder)
}

func TestFormantAnalyzerValidation(t *testing.T) {
	_, err := NewFormantAnalyzer(0, DefaultFormantParams(640))
	assert.Error(t, err)

	_, err = NewFormantAnalyzer(16000, DefaultFormantParams(10))
	assert.Error(t, err)

	fa, err := NewFormantAnalyzer(16000, DefaultFormantParams(640))
	require.NoError(t, err)
	_, err = fa.AnalyzeFormants(make([]float64, 320))
	assert.Error(t, err)

	empty := &FormantResult{}
	assert.Equal(t, 0.0, empty.F1())
	assert.Equal(t, 0.0, empty.F2())
	assert.False(t, empty.HasF1F2())
}

func TestJitterComparesAdjacentVoicedFrames(t *testing.T) {
	vqa := NewVoiceQualityAnalyzer(16000)

	steady := vqa.AnalyzePeriods([]float64{100, 100, 100, 100})
	assert.Equal(t, 4, steady.VoicedFrames)
	assert.Equal(t, 3, steady.VoicedPairs)
	assert.Equal(t, 0.0, steady.Jitter)
	assert.InDelta(t, 160.0, steady.F0Mean, 1e-9)
	assert.Equal(t, 0.0, steady.F0CV)

	// the 100 -> 120 step is broken by an unvoiced frame
	broken := vqa.AnalyzePeriods([]float64{100, 102, 0, 120, 118})
	assert.Equal(t, 4, broken.VoicedFrames)
	assert.Equal(t, 2, broken.VoicedPairs)
	assert.InDelta(t, 2.0/110.0, broken.Jitter, 1e-12)
	assert.Greater(t, broken.F0CV, 0.0)
	assert.InDelta(t, broken.Jitter*110.0/16000.0, broken.JitterAbs, 1e-12)

	none := vqa.AnalyzePeriods([]float64{0, 0})
	assert.Equal(t, 0, none.VoicedFrames)
	assert.Equal(t, 0.0, none.Jitter)
}

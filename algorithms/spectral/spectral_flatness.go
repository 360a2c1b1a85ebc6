package spectral

import (
	"math"
)

// SpectralFlatness computes spectral flatness (Wiener entropy) on the power
// spectrum. Tonal content is close to 0, white noise close to 1.
type SpectralFlatness struct {
	floor    float64 // per-bin power floor to avoid log(0)
	epsilon  float64 // mean power below which the ratio is undefined
	sentinel float64 // value reported for undefined frames
}

// NewSpectralFlatness creates a calculator that reports 0 for silent frames
func NewSpectralFlatness() *SpectralFlatness {
	return NewSpectralFlatnessWithSentinel(1e-10, 0.0)
}

// NewSpectralFlatnessWithSentinel creates a calculator that reports sentinel
// whenever the mean power of a frame is below epsilon.
func NewSpectralFlatnessWithSentinel(epsilon, sentinel float64) *SpectralFlatness {
	if epsilon <= 0 {
		epsilon = 1e-10
	}
	return &SpectralFlatness{
		floor:    1e-10,
		epsilon:  epsilon,
		sentinel: sentinel,
	}
}

// Compute calculates spectral flatness for a single magnitude spectrum.
// The result is in [0, 1] or the sentinel.
func (sf *SpectralFlatness) Compute(magnitudeSpectrum []float64) float64 {
	if len(magnitudeSpectrum) == 0 {
		return sf.sentinel
	}

	logSum := 0.0
	arithmeticMean := 0.0
	for _, magnitude := range magnitudeSpectrum {
		power := magnitude * magnitude
		arithmeticMean += power
		logSum += math.Log(math.Max(power, sf.floor))
	}
	arithmeticMean /= float64(len(magnitudeSpectrum))

	if arithmeticMean < sf.epsilon {
		return sf.sentinel
	}

	geometricMean := math.Exp(logSum / float64(len(magnitudeSpectrum)))
	flatness := geometricMean / arithmeticMean

	if math.IsNaN(flatness) || math.IsInf(flatness, 0) {
		return sf.sentinel
	}

	return math.Min(math.Max(flatness, 0), 1)
}

// ComputeFrames processes multiple frames
func (sf *SpectralFlatness) ComputeFrames(spectrogram [][]float64) []float64 {
	flatness := make([]float64, len(spectrogram))

	for t, spectrum := range spectrogram {
		flatness[t] = sf.Compute(spectrum)
	}

	return flatness
}

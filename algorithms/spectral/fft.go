package spectral

import (
	"github.com/mjibson/go-dsp/fft"
)

// FFT provides Fast Fourier Transform functionality over mjibson/go-dsp
type FFT struct{}

// NewFFT creates a new FFT calculator
func NewFFT() *FFT {
	return &FFT{}
}

// Compute computes the FFT of a real signal.
// go-dsp handles non-power-of-2 sizes.
func (f *FFT) Compute(x []float64) []complex128 {
	if len(x) == 0 {
		return []complex128{}
	}

	return fft.FFTReal(x)
}

// FrequencyBins returns the center frequency in Hz of each of numBins
// non-negative FFT bins.
func FrequencyBins(numBins, sampleRate int) []float64 {
	if numBins <= 1 {
		return make([]float64, max(numBins, 0))
	}

	bins := make([]float64, numBins)
	for i := range numBins {
		bins[i] = float64(i) * float64(sampleRate) / float64((numBins-1)*2)
	}
	return bins
}

package spectral

import "math"

// SpectralBandwidth computes the magnitude-weighted spread of a spectrum
// around its centroid
type SpectralBandwidth struct {
	sampleRate int
	centroid   *SpectralCentroid
}

// NewSpectralBandwidth creates a new spectral bandwidth calculator
func NewSpectralBandwidth(sampleRate int) *SpectralBandwidth {
	return &SpectralBandwidth{
		sampleRate: sampleRate,
		centroid:   NewSpectralCentroid(sampleRate),
	}
}

// Compute calculates the bandwidth in Hz for a single magnitude spectrum
func (sb *SpectralBandwidth) Compute(spectrum []float64) float64 {
	if len(spectrum) == 0 {
		return 0.0
	}

	centroid := sb.centroid.Compute(spectrum)
	freqBins := FrequencyBins(len(spectrum), sb.sampleRate)

	weighted := 0.0
	total := 0.0
	for i, mag := range spectrum {
		d := freqBins[i] - centroid
		weighted += mag * d * d
		total += mag
	}

	if total == 0 {
		return 0
	}

	return math.Sqrt(weighted / total)
}

// ComputeFrames processes multiple frames
func (sb *SpectralBandwidth) ComputeFrames(spectrogram [][]float64) []float64 {
	bandwidths := make([]float64, len(spectrogram))

	for t, spectrum := range spectrogram {
		bandwidths[t] = sb.Compute(spectrum)
	}

	return bandwidths
}

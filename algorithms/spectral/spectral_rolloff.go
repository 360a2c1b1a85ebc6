package spectral

// SpectralRolloff computes the frequency below which a given share of the
// spectral energy lies
type SpectralRolloff struct {
	sampleRate int
	threshold  float64
}

// NewSpectralRolloff creates a new spectral rolloff calculator.
// threshold is typically 0.85.
func NewSpectralRolloff(sampleRate int, threshold float64) *SpectralRolloff {
	if threshold <= 0 || threshold > 1 {
		threshold = 0.85
	}
	return &SpectralRolloff{
		sampleRate: sampleRate,
		threshold:  threshold,
	}
}

// Compute calculates spectral rolloff in Hz for a single magnitude spectrum
func (sr *SpectralRolloff) Compute(spectrum []float64) float64 {
	if len(spectrum) == 0 {
		return 0.0
	}

	totalEnergy := 0.0
	for _, mag := range spectrum {
		totalEnergy += mag * mag
	}

	if totalEnergy == 0 {
		return 0
	}

	freqBins := FrequencyBins(len(spectrum), sr.sampleRate)
	targetEnergy := sr.threshold * totalEnergy
	cumulativeEnergy := 0.0

	for i, mag := range spectrum {
		cumulativeEnergy += mag * mag
		if cumulativeEnergy >= targetEnergy {
			return freqBins[i]
		}
	}

	return freqBins[len(freqBins)-1]
}

// ComputeFrames processes multiple frames
func (sr *SpectralRolloff) ComputeFrames(spectrogram [][]float64) []float64 {
	rolloffs := make([]float64, len(spectrogram))

	for t, spectrum := range spectrogram {
		rolloffs[t] = sr.Compute(spectrum)
	}

	return rolloffs
}

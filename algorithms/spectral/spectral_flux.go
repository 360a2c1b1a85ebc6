package spectral

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// SpectralFlux computes spectral flux (frame-to-frame spectral change)
type SpectralFlux struct {
	normalize bool
}

// NewSpectralFlux creates a flux calculator on raw magnitudes
func NewSpectralFlux() *SpectralFlux {
	return &SpectralFlux{}
}

// NewNormalizedSpectralFlux creates a flux calculator that scales every
// frame to unit L2 norm first, so the result measures change of spectral
// shape independent of loudness. Values are in [0, 2].
func NewNormalizedSpectralFlux() *SpectralFlux {
	return &SpectralFlux{normalize: true}
}

// Compute returns len(spectrogram)-1 flux values, counting both increases
// and decreases of energy
func (sf *SpectralFlux) Compute(spectrogram [][]float64) []float64 {
	if len(spectrogram) < 2 {
		return []float64{}
	}

	flux := make([]float64, len(spectrogram)-1)
	prev := sf.prepare(spectrogram[0])

	for t := 1; t < len(spectrogram); t++ {
		cur := sf.prepare(spectrogram[t])
		n := min(len(cur), len(prev))

		sum := 0.0
		for f := range n {
			diff := cur[f] - prev[f]
			sum += diff * diff
		}
		flux[t-1] = math.Sqrt(sum)
		prev = cur
	}

	return flux
}

func (sf *SpectralFlux) prepare(spectrum []float64) []float64 {
	if !sf.normalize {
		return spectrum
	}

	out := make([]float64, len(spectrum))
	copy(out, spectrum)
	if norm := floats.Norm(out, 2); norm > 0 {
		floats.Scale(1/norm, out)
	}
	return out
}

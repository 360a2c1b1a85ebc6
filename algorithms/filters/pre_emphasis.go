package filters

import (
	"fmt"
)

// PreEmphasis implements a pre-emphasis filter for speech analysis.
// Pre-emphasis compensates for the natural spectral roll-off of voiced
// speech so that linear prediction sees a flatter spectrum.
//
// The filter implements the transfer function:
// H(z) = 1 - α*z^-1
//
// With the difference equation:
// y[n] = x[n] - α*x[n-1]
//
// References:
//   - L.R. Rabiner, R.W. Schafer, "Digital Processing of Speech Signals",
//     Prentice-Hall, 1978, Chapter 4
type PreEmphasis struct {
	coefficient float64 // Pre-emphasis coefficient α
	lastSample  float64 // Previous input sample x[n-1]
}

// NewPreEmphasis creates a pre-emphasis filter with the given coefficient.
// The coefficient must be in [0, 1).
func NewPreEmphasis(coefficient float64) (*PreEmphasis, error) {
	if coefficient < 0 || coefficient >= 1 {
		return nil, fmt.Errorf("pre-emphasis coefficient must be in [0, 1), got %f", coefficient)
	}
	return &PreEmphasis{coefficient: coefficient}, nil
}

// NewPreEmphasisDefault creates a pre-emphasis filter with the standard
// speech coefficient (0.97)
func NewPreEmphasisDefault() *PreEmphasis {
	return &PreEmphasis{coefficient: 0.97}
}

// Process filters a single sample, carrying state between calls
func (pe *PreEmphasis) Process(input float64) float64 {
	output := input - pe.coefficient*pe.lastSample
	pe.lastSample = input
	return output
}

// ProcessBuffer filters a buffer, continuing from the previous call
func (pe *PreEmphasis) ProcessBuffer(input []float64) []float64 {
	output := make([]float64, len(input))
	for i, sample := range input {
		output[i] = pe.Process(sample)
	}
	return output
}

// Apply filters an independent frame. The first output sample equals the
// first input sample and the filter state is left untouched, so Apply is
// safe for concurrent use.
func (pe *PreEmphasis) Apply(frame []float64) []float64 {
	output := make([]float64, len(frame))
	if len(frame) == 0 {
		return output
	}

	output[0] = frame[0]
	for i := 1; i < len(frame); i++ {
		output[i] = frame[i] - pe.coefficient*frame[i-1]
	}
	return output
}

// Reset clears the filter state
func (pe *PreEmphasis) Reset() {
	pe.lastSample = 0.0
}

// Coefficient returns the pre-emphasis coefficient
func (pe *PreEmphasis) Coefficient() float64 {
	return pe.coefficient
}

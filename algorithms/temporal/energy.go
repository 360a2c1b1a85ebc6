package temporal

import (
	"math"

	"github.com/RyanBlaney/sonido-veraz/algorithms/spectral"
)

// Energy computes short-time energy of a signal
type Energy struct {
	frameSize int
	hopSize   int
}

// NewEnergy creates a new energy calculator
func NewEnergy(frameSize, hopSize int) *Energy {
	return &Energy{
		frameSize: frameSize,
		hopSize:   hopSize,
	}
}

// RMS returns the root mean square of a frame
func RMS(frame []float64) float64 {
	if len(frame) == 0 {
		return 0.0
	}

	sumSquares := 0.0
	for _, v := range frame {
		sumSquares += v * v
	}
	return math.Sqrt(sumSquares / float64(len(frame)))
}

// ComputeShortTimeEnergy calculates RMS energy for each full frame. A
// trailing partial frame is dropped.
func (e *Energy) ComputeShortTimeEnergy(signal []float64) []float64 {
	numFrames := spectral.NumFrames(len(signal), e.frameSize, e.hopSize)
	energies := make([]float64, numFrames)

	for i := range numFrames {
		start := i * e.hopSize
		energies[i] = RMS(signal[start : start+e.frameSize])
	}

	return energies
}

// ComputeFrameRMS calculates RMS energy for already framed data
func (e *Energy) ComputeFrameRMS(frames [][]float64) []float64 {
	energies := make([]float64, len(frames))
	for i, frame := range frames {
		energies[i] = RMS(frame)
	}
	return energies
}

// ToDecibels converts RMS values to dBFS, flooring at floor
func ToDecibels(energies []float64, floor float64) []float64 {
	out := make([]float64, len(energies))
	for i, energy := range energies {
		out[i] = 20.0 * math.Log10(math.Max(energy, floor))
	}
	return out
}

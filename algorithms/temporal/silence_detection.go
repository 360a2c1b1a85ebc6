package temporal

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// SilenceDetection finds the active region of a signal from frame energies
type SilenceDetection struct {
	energy *Energy
}

// NewSilenceDetection creates a detector that measures energy over frames of
// frameSize samples every hopSize samples
func NewSilenceDetection(frameSize, hopSize int) *SilenceDetection {
	return &SilenceDetection{
		energy: NewEnergy(frameSize, hopSize),
	}
}

// ActiveRegion returns the sample range [start, end) spanning the first to
// the last frame whose RMS reaches the threshold. The threshold is
// max(absFloor, loudest frame RMS scaled by relativeDB). ok is false when no
// frame reaches it. Signals shorter than one frame are measured as a single
// frame.
func (sd *SilenceDetection) ActiveRegion(signal []float64, relativeDB, absFloor float64) (start, end int, ok bool) {
	if len(signal) == 0 {
		return 0, 0, false
	}

	frameSize, hopSize := sd.energy.frameSize, sd.energy.hopSize
	energies := sd.energy.ComputeShortTimeEnergy(signal)
	if len(energies) == 0 {
		energies = []float64{RMS(signal)}
		frameSize = len(signal)
	}

	peak := floats.Max(energies)
	threshold := math.Max(absFloor, peak*math.Pow(10, relativeDB/20))
	if peak < threshold || peak == 0 {
		return 0, 0, false
	}

	first, last := -1, -1
	for i, e := range energies {
		if e >= threshold {
			if first < 0 {
				first = i
			}
			last = i
		}
	}

	start = first * hopSize
	end = min(last*hopSize+frameSize, len(signal))
	return start, end, true
}

// SilenceRatio returns the share of frames quieter than relativeDB below
// the loudest frame
func SilenceRatio(energies []float64, relativeDB float64) float64 {
	if len(energies) == 0 {
		return 0.0
	}

	threshold := floats.Max(energies) * math.Pow(10, relativeDB/20)
	silent := 0
	for _, e := range energies {
		if e < threshold {
			silent++
		}
	}
	return float64(silent) / float64(len(energies))
}

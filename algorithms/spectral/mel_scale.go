package spectral

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// MelScale provides mel frequency conversion utilities
type MelScale struct{}

// NewMelScale creates a new mel scale converter
func NewMelScale() *MelScale {
	return &MelScale{}
}

// HzToMel converts frequency in Hz to mel scale
func (ms *MelScale) HzToMel(hz float64) float64 {
	return 2595.0 * math.Log10(1.0+hz/700.0)
}

// MelToHz converts mel scale to frequency in Hz
func (ms *MelScale) MelToHz(mel float64) float64 {
	return 700.0 * (math.Pow(10.0, mel/2595.0) - 1.0)
}

// CreateMelFilterBank creates triangular filters equally spaced on the mel
// scale between lowFreq and highFreq. Each filter spans fftSize/2+1 bins.
func (ms *MelScale) CreateMelFilterBank(numFilters int, fftSize int, sampleRate int, lowFreq, highFreq float64) [][]float64 {
	if numFilters <= 0 || fftSize <= 0 || sampleRate <= 0 {
		return nil
	}

	lowMel := ms.HzToMel(lowFreq)
	highMel := ms.HzToMel(highFreq)

	melStep := (highMel - lowMel) / float64(numFilters+1)
	binPoints := make([]int, numFilters+2)
	for i := range binPoints {
		hz := ms.MelToHz(lowMel + float64(i)*melStep)
		bin := int(math.Floor((float64(fftSize)+1.0)*hz/float64(sampleRate) + 0.5))
		binPoints[i] = min(bin, fftSize/2)
	}

	numBins := fftSize/2 + 1
	filterBank := make([][]float64, numFilters)
	for m := 1; m <= numFilters; m++ {
		filter := make([]float64, numBins)
		leftBin, centerBin, rightBin := binPoints[m-1], binPoints[m], binPoints[m+1]

		for k := leftBin; k < centerBin; k++ {
			filter[k] = float64(k-leftBin) / float64(centerBin-leftBin)
		}
		for k := centerBin; k < rightBin; k++ {
			filter[k] = float64(rightBin-k) / float64(rightBin-centerBin)
		}
		// degenerate filters collapse onto their center bin
		if leftBin == centerBin && centerBin == rightBin {
			filter[centerBin] = 1.0
		}

		filterBank[m-1] = filter
	}

	return filterBank
}

// ApplyFilterBank applies a mel filter bank to a power spectrum
func (ms *MelScale) ApplyFilterBank(powerSpectrum []float64, filterBank [][]float64) []float64 {
	melSpectrum := make([]float64, len(filterBank))

	for i, filter := range filterBank {
		n := min(len(filter), len(powerSpectrum))
		melSpectrum[i] = floats.Dot(powerSpectrum[:n], filter[:n])
	}

	return melSpectrum
}

// PowerToDB converts mel power frames to dB relative to their global
// maximum, clipped topDB below it. All-zero input maps to 0 dB.
func PowerToDB(melFrames [][]float64, topDB float64) [][]float64 {
	ref := 0.0
	for _, frame := range melFrames {
		if len(frame) > 0 {
			ref = math.Max(ref, floats.Max(frame))
		}
	}
	ref = math.Max(ref, 1e-10)

	out := make([][]float64, len(melFrames))
	for t, frame := range melFrames {
		out[t] = make([]float64, len(frame))
		for i, p := range frame {
			out[t][i] = math.Max(10*math.Log10(math.Max(p, 1e-10)/ref), -topDB)
		}
	}
	return out
}

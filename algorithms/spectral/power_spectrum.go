package spectral

import (
	"math"
)

// PowerSpectrum provides power and band-energy computations over magnitude
// spectra of fftSize/2+1 bins
type PowerSpectrum struct {
	sampleRate int
	fftSize    int
}

// NewPowerSpectrum creates a calculator for spectra produced by an FFT of
// fftSize at sampleRate
func NewPowerSpectrum(sampleRate, fftSize int) *PowerSpectrum {
	return &PowerSpectrum{
		sampleRate: sampleRate,
		fftSize:    fftSize,
	}
}

// Compute converts a magnitude spectrum to power
func (ps *PowerSpectrum) Compute(magnitudeSpectrum []float64) []float64 {
	power := make([]float64, len(magnitudeSpectrum))
	for i, mag := range magnitudeSpectrum {
		power[i] = mag * mag
	}
	return power
}

// BinFrequency returns the center frequency of bin k
func (ps *PowerSpectrum) BinFrequency(k int) float64 {
	return float64(k) * float64(ps.sampleRate) / float64(ps.fftSize)
}

// BandEnergy sums the power of bins whose center frequency lies in
// [lowHz, highHz)
func (ps *PowerSpectrum) BandEnergy(magnitudeSpectrum []float64, lowHz, highHz float64) float64 {
	energy := 0.0
	for k, mag := range magnitudeSpectrum {
		freq := ps.BinFrequency(k)
		if freq >= lowHz && freq < highHz {
			energy += mag * mag
		}
	}
	return energy
}

// BandEnergyFrames computes BandEnergy for every frame
func (ps *PowerSpectrum) BandEnergyFrames(spectrogram [][]float64, lowHz, highHz float64) []float64 {
	energies := make([]float64, len(spectrogram))
	for t, spectrum := range spectrogram {
		energies[t] = ps.BandEnergy(spectrum, lowHz, highHz)
	}
	return energies
}

// ComputeLog converts a magnitude spectrum to power in dB, floored at floorDB
func (ps *PowerSpectrum) ComputeLog(magnitudeSpectrum []float64, floorDB float64) []float64 {
	logPower := make([]float64, len(magnitudeSpectrum))
	for i, mag := range magnitudeSpectrum {
		power := mag * mag
		if power > 0 {
			logPower[i] = math.Max(10*math.Log10(power), floorDB)
		} else {
			logPower[i] = floorDB
		}
	}
	return logPower
}

package spectral

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// MFCC computes Mel-Frequency Cepstral Coefficients
type MFCC struct {
	params     MFCCParams
	sampleRate int

	melScale   *MelScale
	filterBank [][]float64
	dctMatrix  [][]float64
	fftSize    int
}

// MFCCParams contains parameters for MFCC computation
type MFCCParams struct {
	NumCoefficients int     `json:"num_coefficients"` // default 13
	NumMelFilters   int     `json:"num_mel_filters"`  // default 26
	LowFreq         float64 `json:"low_freq"`         // default 0
	HighFreq        float64 `json:"high_freq"`        // default sampleRate/2
	UseLiftering    bool    `json:"use_liftering"`
	LifterCoeff     float64 `json:"lifter_coeff"` // default 22

	// DynamicRangeDB floors each log mel band at this many dB below the
	// strongest band of the same frame. 0 disables the relative floor.
	DynamicRangeDB float64 `json:"dynamic_range_db"`
}

// MFCCResult contains MFCC computation results for one frame
type MFCCResult struct {
	MFCC        []float64 `json:"mfcc"`
	MelSpectrum []float64 `json:"mel_spectrum"`
	Energy      float64   `json:"energy"` // total power of the frame
}

const logFloor = 1e-10

// DefaultMFCCParams returns the usual 13 coefficient / 26 filter setup
func DefaultMFCCParams(sampleRate int) MFCCParams {
	return MFCCParams{
		NumCoefficients: 13,
		NumMelFilters:   26,
		LowFreq:         0.0,
		HighFreq:        float64(sampleRate) / 2.0,
		UseLiftering:    false,
		LifterCoeff:     22.0,
		DynamicRangeDB:  60.0,
	}
}

// NewMFCCWithParams creates a new MFCC computer. Zero-valued fields fall
// back to DefaultMFCCParams.
func NewMFCCWithParams(sampleRate int, params MFCCParams) *MFCC {
	defaults := DefaultMFCCParams(sampleRate)
	if params.NumCoefficients <= 0 {
		params.NumCoefficients = defaults.NumCoefficients
	}
	if params.NumMelFilters <= 0 {
		params.NumMelFilters = defaults.NumMelFilters
	}
	if params.HighFreq <= 0 {
		params.HighFreq = defaults.HighFreq
	}
	if params.LifterCoeff <= 0 {
		params.LifterCoeff = defaults.LifterCoeff
	}

	return &MFCC{
		params:     params,
		sampleRate: sampleRate,
		melScale:   NewMelScale(),
	}
}

// Initialize prepares the filter bank and DCT matrix for the given FFT size
func (m *MFCC) Initialize(fftSize int) error {
	if fftSize <= 0 {
		return fmt.Errorf("invalid FFT size: %d", fftSize)
	}
	if m.params.NumCoefficients > m.params.NumMelFilters {
		return fmt.Errorf("num coefficients (%d) exceeds num mel filters (%d)",
			m.params.NumCoefficients, m.params.NumMelFilters)
	}

	m.filterBank = m.melScale.CreateMelFilterBank(
		m.params.NumMelFilters,
		fftSize,
		m.sampleRate,
		m.params.LowFreq,
		m.params.HighFreq,
	)
	if len(m.filterBank) == 0 {
		return fmt.Errorf("failed to create mel filter bank")
	}

	m.createDCTMatrix()
	m.fftSize = fftSize
	return nil
}

// Compute calculates MFCC coefficients from a magnitude spectrum of
// fftSize/2+1 bins. Initialize must have been called with a matching size.
func (m *MFCC) Compute(magnitudeSpectrum []float64) (*MFCCResult, error) {
	if len(magnitudeSpectrum) == 0 {
		return nil, fmt.Errorf("empty magnitude spectrum")
	}
	if m.fftSize == 0 || len(magnitudeSpectrum) != m.fftSize/2+1 {
		return nil, fmt.Errorf("spectrum has %d bins, MFCC initialized for %d", len(magnitudeSpectrum), m.fftSize/2+1)
	}

	powerSpectrum := make([]float64, len(magnitudeSpectrum))
	for i, mag := range magnitudeSpectrum {
		powerSpectrum[i] = mag * mag
	}

	melSpectrum := m.melScale.ApplyFilterBank(powerSpectrum, m.filterBank)

	floor := logFloor
	if m.params.DynamicRangeDB > 0 {
		floor = math.Max(floor, floats.Max(melSpectrum)*math.Pow(10, -m.params.DynamicRangeDB/10))
	}

	logMel := make([]float64, len(melSpectrum))
	for i, mel := range melSpectrum {
		logMel[i] = math.Log(math.Max(mel, floor))
	}

	coeffs := make([]float64, m.params.NumCoefficients)
	for k := range coeffs {
		coeffs[k] = floats.Dot(m.dctMatrix[k], logMel)
	}

	if m.params.UseLiftering {
		m.applyLiftering(coeffs)
	}

	return &MFCCResult{
		MFCC:        coeffs,
		MelSpectrum: melSpectrum,
		Energy:      floats.Sum(powerSpectrum),
	}, nil
}

// createDCTMatrix builds an orthonormal DCT-II matrix
func (m *MFCC) createDCTMatrix() {
	n := m.params.NumMelFilters
	m.dctMatrix = make([][]float64, m.params.NumCoefficients)

	for k := range m.dctMatrix {
		row := make([]float64, n)
		scale := math.Sqrt(2.0 / float64(n))
		if k == 0 {
			scale = math.Sqrt(1.0 / float64(n))
		}
		for i := range n {
			row[i] = scale * math.Cos(math.Pi*float64(k)*(float64(i)+0.5)/float64(n))
		}
		m.dctMatrix[k] = row
	}
}

// applyLiftering applies sinusoidal liftering in place, leaving C0 untouched
func (m *MFCC) applyLiftering(coeffs []float64) {
	L := m.params.LifterCoeff
	for i := 1; i < len(coeffs); i++ {
		coeffs[i] *= 1.0 + (L/2.0)*math.Sin(math.Pi*float64(i)/L)
	}
}

// Params returns the effective MFCC parameters
func (m *MFCC) Params() MFCCParams {
	return m.params
}

package spectral

import (
	"fmt"
	"math"
	"sort"
)

// SpectralContrast computes spectral contrast features
// Measures the difference between peaks and valleys in octave-like bands.
// Band edges are fixed at construction, so Compute is safe for concurrent
// use.
type SpectralContrast struct {
	sampleRate int
	numBands   int
	numBins    int
	quantile   float64
	bandEdges  []int
}

// SpectralContrastParams contains parameters for spectral contrast
type SpectralContrastParams struct {
	NumBands int     `json:"num_bands"`
	MinFreq  float64 `json:"min_freq"` // lower edge of the first band (Hz)
	Quantile float64 `json:"quantile"` // share of a band counted as peak / valley
}

// DefaultSpectralContrastParams returns six bands from 200 Hz with 20%
// peak and valley quantiles
func DefaultSpectralContrastParams() SpectralContrastParams {
	return SpectralContrastParams{
		NumBands: 6,
		MinFreq:  200.0,
		Quantile: 0.2,
	}
}

// NewSpectralContrast creates a spectral contrast calculator for magnitude
// spectra of fftSize/2+1 bins
func NewSpectralContrast(sampleRate, fftSize int, params SpectralContrastParams) (*SpectralContrast, error) {
	if sampleRate <= 0 || fftSize <= 0 {
		return nil, fmt.Errorf("invalid sample rate or FFT size: %d/%d", sampleRate, fftSize)
	}
	if params.NumBands <= 0 {
		return nil, fmt.Errorf("number of bands must be positive: %d", params.NumBands)
	}
	if params.Quantile <= 0 || params.Quantile > 0.5 {
		return nil, fmt.Errorf("quantile must be in (0, 0.5]: %f", params.Quantile)
	}

	nyquist := float64(sampleRate) / 2.0
	if params.MinFreq <= 0 || params.MinFreq >= nyquist {
		return nil, fmt.Errorf("min frequency must be in (0, %.1f): %f", nyquist, params.MinFreq)
	}

	sc := &SpectralContrast{
		sampleRate: sampleRate,
		numBands:   params.NumBands,
		numBins:    fftSize/2 + 1,
		quantile:   params.Quantile,
	}
	sc.initializeBands(params.MinFreq)

	if sc.bandEdges[sc.numBands] >= sc.numBins {
		return nil, fmt.Errorf("%d bands from %.1f Hz do not fit %d bins", params.NumBands, params.MinFreq, sc.numBins)
	}

	return sc, nil
}

// Compute returns the contrast in dB of each band of one magnitude
// spectrum. A silent band reports 0.
func (sc *SpectralContrast) Compute(magnitudeSpectrum []float64) []float64 {
	contrast := make([]float64, sc.numBands)
	if len(magnitudeSpectrum) != sc.numBins {
		return contrast
	}

	for band := range sc.numBands {
		bandSpectrum := magnitudeSpectrum[sc.bandEdges[band]:sc.bandEdges[band+1]]
		contrast[band] = sc.calculateBandContrast(bandSpectrum)
	}

	return contrast
}

// ComputeMean returns the mean band contrast of each frame
func (sc *SpectralContrast) ComputeMean(spectrogram [][]float64) []float64 {
	means := make([]float64, len(spectrogram))
	for t, magnitudeSpectrum := range spectrogram {
		sum := 0.0
		for _, c := range sc.Compute(magnitudeSpectrum) {
			sum += c
		}
		means[t] = sum / float64(sc.numBands)
	}
	return means
}

// BandFrequencies returns the band edges in Hz
func (sc *SpectralContrast) BandFrequencies() []float64 {
	binHz := float64(sc.sampleRate) / float64(2*(sc.numBins-1))
	freqs := make([]float64, len(sc.bandEdges))
	for i, bin := range sc.bandEdges {
		freqs[i] = float64(bin) * binHz
	}
	return freqs
}

// calculateBandContrast is the dB ratio of the mean top-quantile power to
// the mean bottom-quantile power. The valley is floored 100 dB below the
// peak.
func (sc *SpectralContrast) calculateBandContrast(bandSpectrum []float64) float64 {
	if len(bandSpectrum) == 0 {
		return 0.0
	}

	sortedPower := make([]float64, len(bandSpectrum))
	for i, mag := range bandSpectrum {
		sortedPower[i] = mag * mag
	}
	sort.Float64s(sortedPower)

	count := max(1, int(sc.quantile*float64(len(sortedPower))))

	valleyEnergy := 0.0
	for _, p := range sortedPower[:count] {
		valleyEnergy += p
	}
	valleyEnergy /= float64(count)

	peakEnergy := 0.0
	for _, p := range sortedPower[len(sortedPower)-count:] {
		peakEnergy += p
	}
	peakEnergy /= float64(count)

	if peakEnergy <= 0 {
		return 0.0
	}
	valleyEnergy = math.Max(valleyEnergy, peakEnergy*1e-10)

	return 10.0 * math.Log10(peakEnergy/valleyEnergy)
}

// initializeBands places numBands log-spaced bands between minFreq and
// Nyquist, each at least one bin wide
func (sc *SpectralContrast) initializeBands(minFreq float64) {
	sc.bandEdges = make([]int, sc.numBands+1)

	nyquist := float64(sc.sampleRate) / 2.0
	logMinFreq := math.Log10(minFreq)
	logStep := (math.Log10(nyquist) - logMinFreq) / float64(sc.numBands)

	for i := 0; i <= sc.numBands; i++ {
		freq := math.Pow(10.0, logMinFreq+float64(i)*logStep)
		sc.bandEdges[i] = min(int(freq*float64(sc.numBins-1)/nyquist), sc.numBins-1)
	}
	// the last band includes the Nyquist bin
	sc.bandEdges[sc.numBands] = sc.numBins - 1

	for i := 1; i <= sc.numBands; i++ {
		if sc.bandEdges[i] <= sc.bandEdges[i-1] {
			sc.bandEdges[i] = sc.bandEdges[i-1] + 1
		}
	}
}

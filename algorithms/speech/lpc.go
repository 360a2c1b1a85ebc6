package speech

import (
	"fmt"
	"math"

	"github.com/RyanBlaney/sonido-veraz/algorithms/stats"
)

// LPCAnalyzer performs Linear Predictive Coding analysis.
// LPC models the vocal tract as an all-pole filter, the basis for formant
// extraction.
type LPCAnalyzer struct {
	sampleRate int
	order      int     // LPC order (typically 2 + fs/1000)
	lagWindow  float64 // white-noise correction applied to R[0]
	autocorr   *stats.AutoCorrelation
}

// LPCResult contains LPC analysis results. Coefficients follow the
// A(z) = 1 + a1*z^-1 + ... + ap*z^-p convention with a0 = 1.
type LPCResult struct {
	Coefficients    []float64 `json:"coefficients"`     // (1, a1, ..., ap)
	ReflectionCoeff []float64 `json:"reflection_coeff"` // (k1, ..., kp)
	Gain            float64   `json:"gain"`             // sqrt of the residual energy
	ResidualEnergy  float64   `json:"residual_energy"`  // normalized prediction error energy
	Order           int       `json:"order"`
	Stable          bool      `json:"stable"` // every |k| < 1
}

// DefaultLPCOrder is the usual speech rule of thumb: two poles per formant
// per kHz plus two for the glottal source and radiation
func DefaultLPCOrder(sampleRate int) int {
	return 2 + sampleRate/1000
}

// NewLPCAnalyzer creates a new LPC analyzer. A non-positive order selects
// DefaultLPCOrder.
func NewLPCAnalyzer(sampleRate int, order int) *LPCAnalyzer {
	if order <= 0 {
		order = DefaultLPCOrder(sampleRate)
	}

	return &LPCAnalyzer{
		sampleRate: sampleRate,
		order:      order,
		lagWindow:  1e-4,
		autocorr:   stats.NewAutoCorrelation(order, false),
	}
}

// Order returns the LPC order
func (lpc *LPCAnalyzer) Order() int {
	return lpc.order
}

// Analyze performs LPC analysis on a (windowed) frame
func (lpc *LPCAnalyzer) Analyze(signal []float64) (*LPCResult, error) {
	if len(signal) < lpc.order*2 {
		return nil, fmt.Errorf("signal too short for LPC analysis of order %d", lpc.order)
	}

	R, err := lpc.autocorr.Compute(signal)
	if err != nil {
		return nil, fmt.Errorf("autocorrelation computation failed: %w", err)
	}
	if len(R) < lpc.order+1 || R[0] == 0 {
		return nil, fmt.Errorf("zero energy signal")
	}

	R[0] *= 1.0 + lpc.lagWindow

	coeffs, reflection, residual, err := lpc.levinsonDurbin(R)
	if err != nil {
		return nil, fmt.Errorf("Levinson-Durbin recursion failed: %w", err)
	}

	stable := true
	for _, k := range reflection {
		if math.Abs(k) >= 1.0 {
			stable = false
			break
		}
	}

	return &LPCResult{
		Coefficients:    coeffs,
		ReflectionCoeff: reflection,
		Gain:            math.Sqrt(residual),
		ResidualEnergy:  residual,
		Order:           lpc.order,
		Stable:          stable,
	}, nil
}

// levinsonDurbin solves the normal equations for the autocorrelation R
func (lpc *LPCAnalyzer) levinsonDurbin(R []float64) ([]float64, []float64, float64, error) {
	p := lpc.order

	a := make([]float64, p+1)
	prev := make([]float64, p+1)
	k := make([]float64, p)
	E := R[0]

	a[0] = 1.0

	for i := 1; i <= p; i++ {
		acc := R[i]
		for j := 1; j < i; j++ {
			acc += a[j] * R[i-j]
		}

		if E <= 0 {
			return nil, nil, 0, fmt.Errorf("prediction error energy vanished at order %d", i)
		}

		ki := -acc / E
		k[i-1] = ki

		copy(prev, a)
		for j := 1; j < i; j++ {
			a[j] = prev[j] + ki*prev[i-j]
		}
		a[i] = ki

		E *= 1 - ki*ki
	}

	return a, k, E, nil
}

// GetSpectralEnvelope evaluates gain/|A(e^jω)| on nfft/2+1 bins
func (lpc *LPCAnalyzer) GetSpectralEnvelope(result *LPCResult, nfft int) ([]float64, error) {
	if result == nil || len(result.Coefficients) == 0 {
		return nil, fmt.Errorf("missing LPC coefficients")
	}
	if nfft <= 0 {
		nfft = 512
	}

	envelope := make([]float64, nfft/2+1)
	for k := range envelope {
		omega := 2 * math.Pi * float64(k) / float64(nfft)

		realPart := 1.0
		imagPart := 0.0
		for i := 1; i < len(result.Coefficients); i++ {
			angle := -float64(i) * omega
			realPart += result.Coefficients[i] * math.Cos(angle)
			imagPart += result.Coefficients[i] * math.Sin(angle)
		}

		magnitude := math.Hypot(realPart, imagPart)
		if magnitude > 0 {
			envelope[k] = result.Gain / magnitude
		}
	}

	return envelope, nil
}

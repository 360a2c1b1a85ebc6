package stats

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// AutoCorrelation computes the normalized autocorrelation of a series over
// a bounded lag range
type AutoCorrelation struct {
	maxLag     int
	removeMean bool
}

// NewAutoCorrelation creates a calculator for lags 0..maxLag. When
// removeMean is set the mean is subtracted before correlating.
func NewAutoCorrelation(maxLag int, removeMean bool) *AutoCorrelation {
	return &AutoCorrelation{
		maxLag:     maxLag,
		removeMean: removeMean,
	}
}

// Compute returns r[lag]/r[0] for lag = 0..min(maxLag, len-1). A series
// with no energy returns all zeros.
func (ac *AutoCorrelation) Compute(signal []float64) ([]float64, error) {
	if len(signal) == 0 {
		return nil, fmt.Errorf("empty signal")
	}
	if ac.maxLag < 0 {
		return nil, fmt.Errorf("max lag must be non-negative: %d", ac.maxLag)
	}

	x := signal
	if ac.removeMean {
		x = make([]float64, len(signal))
		copy(x, signal)
		floats.AddConst(-stat.Mean(x, nil), x)
	}

	maxLag := min(ac.maxLag, len(x)-1)
	result := make([]float64, maxLag+1)

	r0 := floats.Dot(x, x)
	if r0 <= 0 {
		return result, nil
	}

	for lag := 0; lag <= maxLag; lag++ {
		result[lag] = floats.Dot(x[:len(x)-lag], x[lag:]) / r0
	}

	return result, nil
}

// MaxPeak returns the largest local maximum of r within [minLag, maxLag]
// and its lag. It returns (0, -1) when the range holds no local maximum.
func MaxPeak(r []float64, minLag, maxLag int) (float64, int) {
	best, bestLag := 0.0, -1
	minLag = max(minLag, 1)
	maxLag = min(maxLag, len(r)-2)

	for lag := minLag; lag <= maxLag; lag++ {
		if r[lag] > r[lag-1] && r[lag] >= r[lag+1] && (bestLag < 0 || r[lag] > best) {
			best, bestLag = r[lag], lag
		}
	}

	return best, bestLag
}

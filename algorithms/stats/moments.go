package stats

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// Summary holds the first two moments of a series
type Summary struct {
	Mean     float64 `json:"mean"`
	Variance float64 `json:"variance"` // unbiased (n-1)
	StdDev   float64 `json:"std_dev"`
	CV       float64 `json:"cv"` // StdDev / |Mean|, 0 when the mean is ~0
	Count    int     `json:"count"`
}

// cvEpsilon keeps the coefficient of variation finite for zero-mean series
const cvEpsilon = 1e-12

// Summarize computes mean, variance, standard deviation and coefficient of
// variation. Empty input gives a zero Summary; a single value has zero
// variance.
func Summarize(values []float64) Summary {
	if len(values) == 0 {
		return Summary{}
	}

	s := Summary{Count: len(values)}
	if len(values) == 1 {
		s.Mean = values[0]
		return s
	}

	s.Mean, s.Variance = stat.MeanVariance(values, nil)
	s.StdDev = math.Sqrt(s.Variance)
	if math.Abs(s.Mean) > cvEpsilon {
		s.CV = s.StdDev / math.Abs(s.Mean)
	}
	return s
}

// Diff returns the first difference x[i] - x[i-1]
func Diff(values []float64) []float64 {
	if len(values) < 2 {
		return []float64{}
	}

	out := make([]float64, len(values)-1)
	for i := 1; i < len(values); i++ {
		out[i-1] = values[i] - values[i-1]
	}
	return out
}

// Column extracts column j from a row-major matrix
func Column(matrix [][]float64, j int) []float64 {
	out := make([]float64, 0, len(matrix))
	for _, row := range matrix {
		if j < len(row) {
			out = append(out, row[j])
		}
	}
	return out
}

// Clamp01 limits v to [0, 1]
func Clamp01(v float64) float64 {
	return math.Min(math.Max(v, 0), 1)
}

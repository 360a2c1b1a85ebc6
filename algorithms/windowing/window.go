package windowing

import (
	"fmt"
	"math"
	"strings"
)

// cosineWindow holds the coefficients of a generalized cosine window
// a0 - a1*cos(2*pi*n/N). Hann and Hamming are both of this form.
type cosineWindow struct {
	name         string
	size         int
	symmetric    bool
	coefficients []float64
}

func newCosineWindow(name string, size int, symmetric bool, a0, a1 float64) cosineWindow {
	w := cosineWindow{
		name:         name,
		size:         size,
		symmetric:    symmetric,
		coefficients: make([]float64, max(size, 0)),
	}

	denominator := float64(size)
	if symmetric {
		denominator = float64(size - 1)
	}
	if size == 1 {
		w.coefficients[0] = 1.0
		return w
	}

	for i := range w.coefficients {
		w.coefficients[i] = a0 - a1*math.Cos(2*math.Pi*float64(i)/denominator)
	}
	return w
}

// Apply applies the window to a signal and returns a new slice
func (w *cosineWindow) Apply(signal []float64) ([]float64, error) {
	if len(signal) != w.size {
		return nil, fmt.Errorf("signal length (%d) doesn't match window size (%d)", len(signal), w.size)
	}

	windowed := make([]float64, w.size)
	for i, c := range w.coefficients {
		windowed[i] = signal[i] * c
	}
	return windowed, nil
}

// ApplyInPlace applies the window to a signal in-place
func (w *cosineWindow) ApplyInPlace(signal []float64) error {
	if len(signal) != w.size {
		return fmt.Errorf("signal length (%d) doesn't match window size (%d)", len(signal), w.size)
	}

	for i, c := range w.coefficients {
		signal[i] *= c
	}
	return nil
}

// GetCoefficients returns a copy of the window coefficients
func (w *cosineWindow) GetCoefficients() []float64 {
	coeffs := make([]float64, len(w.coefficients))
	copy(coeffs, w.coefficients)
	return coeffs
}

// GetSize returns the window size
func (w *cosineWindow) GetSize() int {
	return w.size
}

// GetType returns the window type
func (w *cosineWindow) GetType() string {
	return w.name
}

// Window is the common surface of the window types in this package
type Window interface {
	Apply(signal []float64) ([]float64, error)
	ApplyInPlace(signal []float64) error
	GetCoefficients() []float64
	GetSize() int
	GetType() string
}

// New creates a periodic window by name ("hann" or "hamming")
func New(name string, size int) (Window, error) {
	if size <= 0 {
		return nil, fmt.Errorf("window size must be positive: %d", size)
	}

	switch strings.ToLower(name) {
	case "hann", "hanning", "":
		return NewHann(size, false), nil
	case "hamming":
		return NewHamming(size, false), nil
	default:
		return nil, fmt.Errorf("unsupported window type %q", name)
	}
}

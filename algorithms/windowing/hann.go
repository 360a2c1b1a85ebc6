package windowing

// Hann represents a Hann window function
type Hann struct {
	cosineWindow
}

// NewHann creates a new Hann window. Use symmetric for filter design and
// periodic (symmetric=false) for spectral analysis.
func NewHann(size int, symmetric bool) *Hann {
	return &Hann{cosineWindow: newCosineWindow("hann", size, symmetric, 0.5, 0.5)}
}

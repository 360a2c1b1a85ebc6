package windowing

// Hamming represents a Hamming window function
type Hamming struct {
	cosineWindow
}

// NewHamming creates a new Hamming window
func NewHamming(size int, symmetric bool) *Hamming {
	return &Hamming{cosineWindow: newCosineWindow("hamming", size, symmetric, 0.54, 0.46)}
}

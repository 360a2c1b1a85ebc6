package chroma

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// Tonnetz projects chroma frames onto the 6-D tonal centroid space: the
// circle of fifths, the circle of minor thirds and the circle of major
// thirds, each as a sin/cos pair. A single pitch class lands on the rim;
// energy spread over all twelve collapses to the origin.
type Tonnetz struct {
	basis [6][]float64
}

// NewTonnetz builds the projection basis
func NewTonnetz() *Tonnetz {
	intervals := []struct {
		angle  float64 // per pitch class step
		radius float64
	}{
		{7 * math.Pi / 6, 1.0}, // fifths
		{3 * math.Pi / 2, 1.0}, // minor thirds
		{2 * math.Pi / 3, 0.5}, // major thirds
	}

	t := &Tonnetz{}
	for d, iv := range intervals {
		t.basis[2*d] = make([]float64, chromaBins)
		t.basis[2*d+1] = make([]float64, chromaBins)
		for pc := range chromaBins {
			t.basis[2*d][pc] = iv.radius * math.Sin(iv.angle*float64(pc))
			t.basis[2*d+1][pc] = iv.radius * math.Cos(iv.angle*float64(pc))
		}
	}
	return t
}

// Compute returns the tonal centroid of one chroma frame after scaling it
// to unit sum. A frame with no energy maps to the origin.
func (t *Tonnetz) Compute(chromaFrame []float64) []float64 {
	centroid := make([]float64, len(t.basis))
	if len(chromaFrame) != chromaBins {
		return centroid
	}

	total := floats.Sum(chromaFrame)
	if total <= 0 {
		return centroid
	}
	for d, row := range t.basis {
		centroid[d] = floats.Dot(row, chromaFrame) / total
	}
	return centroid
}

// ComputeFrames returns the tonal centroid of every chroma frame
func (t *Tonnetz) ComputeFrames(chromagram [][]float64) [][]float64 {
	out := make([][]float64, len(chromagram))
	for i, frame := range chromagram {
		out[i] = t.Compute(frame)
	}
	return out
}

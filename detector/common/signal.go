package common

import (
	"time"
)

// AudioSignal is a prepared mono signal. Samples are finite and the slice
// is never mutated after preparation.
type AudioSignal struct {
	Samples    []float64
	SampleRate int
}

// Duration returns the length of the signal
func (s *AudioSignal) Duration() time.Duration {
	if s.SampleRate <= 0 {
		return 0
	}
	return time.Duration(len(s.Samples)) * time.Second / time.Duration(s.SampleRate)
}

// Seconds returns the length of the signal in seconds
func (s *AudioSignal) Seconds() float64 {
	if s.SampleRate <= 0 {
		return 0
	}
	return float64(len(s.Samples)) / float64(s.SampleRate)
}

package common

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// NormalizationType defines normalization method
type NormalizationType int

const (
	PeakNorm NormalizationType = iota
	RMSNorm
)

// ParseNormalizationType maps "peak" and "rms" to a NormalizationType
func ParseNormalizationType(name string) (NormalizationType, error) {
	switch name {
	case "peak", "":
		return PeakNorm, nil
	case "rms":
		return RMSNorm, nil
	default:
		return PeakNorm, fmt.Errorf("unknown normalization mode: %q", name)
	}
}

// String returns the config name of the normalization type
func (t NormalizationType) String() string {
	switch t {
	case PeakNorm:
		return "peak"
	case RMSNorm:
		return "rms"
	default:
		return "unknown"
	}
}

// Normalizer scales a signal to a target peak or RMS level
type Normalizer struct {
	method NormalizationType
	target float64
}

// NewNormalizer creates a new normalizer. target is the peak amplitude for
// PeakNorm and the RMS level for RMSNorm.
func NewNormalizer(method NormalizationType, target float64) (*Normalizer, error) {
	if target <= 0 || target > 1 {
		return nil, fmt.Errorf("normalization target must be in (0, 1], got %f", target)
	}
	return &Normalizer{
		method: method,
		target: target,
	}, nil
}

// Normalize returns a scaled copy of signal. A silent signal is returned
// unchanged.
func (n *Normalizer) Normalize(signal []float64) []float64 {
	out := make([]float64, len(signal))
	copy(out, signal)
	if len(out) == 0 {
		return out
	}

	switch n.method {
	case RMSNorm:
		n.rmsNormalize(out)
	default:
		n.peakNormalize(out)
	}
	return out
}

// peakNormalize scales so the largest absolute sample equals the target
func (n *Normalizer) peakNormalize(signal []float64) {
	peak := Peak(signal)
	if peak == 0 {
		return
	}
	floats.Scale(n.target/peak, signal)
}

// rmsNormalize scales to the target RMS, then clips the peak to 1.0
func (n *Normalizer) rmsNormalize(signal []float64) {
	rms := RMS(signal)
	if rms == 0 {
		return
	}
	floats.Scale(n.target/rms, signal)

	if peak := Peak(signal); peak > 1.0 {
		floats.Scale(1.0/peak, signal)
	}
}

// Peak returns the largest absolute sample value
func Peak(signal []float64) float64 {
	if len(signal) == 0 {
		return 0
	}
	return math.Max(math.Abs(floats.Max(signal)), math.Abs(floats.Min(signal)))
}

// RMS returns the root mean square of the signal
func RMS(signal []float64) float64 {
	if len(signal) == 0 {
		return 0
	}
	return floats.Norm(signal, 2) / math.Sqrt(float64(len(signal)))
}

// RemoveDC returns a copy of signal with its mean subtracted
func RemoveDC(signal []float64) []float64 {
	out := make([]float64, len(signal))
	copy(out, signal)
	if len(out) == 0 {
		return out
	}
	floats.AddConst(-stat.Mean(out, nil), out)
	return out
}

// Downmix averages interleaved channels into a mono signal. len(interleaved)
// must be a multiple of channels.
func Downmix(interleaved []float64, channels int) ([]float64, error) {
	if channels <= 0 {
		return nil, fmt.Errorf("invalid channel count: %d", channels)
	}
	if len(interleaved)%channels != 0 {
		return nil, fmt.Errorf("sample count %d is not a multiple of %d channels", len(interleaved), channels)
	}

	if channels == 1 {
		out := make([]float64, len(interleaved))
		copy(out, interleaved)
		return out, nil
	}

	frames := len(interleaved) / channels
	mono := make([]float64, frames)
	for i := range frames {
		mono[i] = floats.Sum(interleaved[i*channels:(i+1)*channels]) / float64(channels)
	}
	return mono, nil
}

package tonal

import (
	"fmt"
	"math"
)

// PitchDetectionParams contains parameters for pitch detection
type PitchDetectionParams struct {
	SampleRate int `json:"sample_rate"`

	// Frequency range constraints
	MinFreq float64 `json:"min_freq"` // Minimum frequency (Hz)
	MaxFreq float64 `json:"max_freq"` // Maximum frequency (Hz)

	YinThreshold float64 `json:"yin_threshold"` // YIN threshold (0.1-0.5)

	// Frames with mean power below this are reported unvoiced without
	// running YIN
	MinPower float64 `json:"min_power"`
}

// PitchDetectionResult contains the pitch estimate for a single frame
type PitchDetectionResult struct {
	Pitch      float64 `json:"pitch"`      // Best pitch estimate (Hz), 0 when unvoiced
	Period     float64 `json:"period"`     // Period in samples, 0 when unvoiced
	Confidence float64 `json:"confidence"` // 1 - CMNDF at the chosen lag
	Voiced     bool    `json:"voiced"`
}

// PitchDetector estimates the fundamental frequency of short frames with YIN
//
// References:
// - de Cheveigné, A., Kawahara, H. (2002). "YIN, a fundamental frequency estimator for speech and music"
type PitchDetector struct {
	params PitchDetectionParams
	minTau int
	maxTau int
}

// DefaultPitchDetectionParams returns a speech-oriented setup (70-500 Hz)
func DefaultPitchDetectionParams(sampleRate int) PitchDetectionParams {
	return PitchDetectionParams{
		SampleRate:   sampleRate,
		MinFreq:      70.0,
		MaxFreq:      500.0,
		YinThreshold: 0.15,
		MinPower:     1e-10,
	}
}

// NewPitchDetector creates a new pitch detector with default parameters
func NewPitchDetector(sampleRate int) *PitchDetector {
	pd, _ := NewPitchDetectorWithParams(DefaultPitchDetectionParams(sampleRate))
	return pd
}

// NewPitchDetectorWithParams creates a pitch detector with custom parameters
func NewPitchDetectorWithParams(params PitchDetectionParams) (*PitchDetector, error) {
	if params.SampleRate <= 0 {
		return nil, fmt.Errorf("invalid sample rate: %d", params.SampleRate)
	}
	if params.MinFreq <= 0 || params.MaxFreq <= params.MinFreq {
		return nil, fmt.Errorf("invalid frequency range: %.1f-%.1f Hz", params.MinFreq, params.MaxFreq)
	}
	if params.YinThreshold <= 0 || params.YinThreshold >= 1 {
		return nil, fmt.Errorf("YIN threshold must be in (0, 1), got %f", params.YinThreshold)
	}

	sr := float64(params.SampleRate)
	return &PitchDetector{
		params: params,
		minTau: max(2, int(math.Floor(sr/params.MaxFreq))),
		maxTau: int(math.Ceil(sr / params.MinFreq)),
	}, nil
}

// MinFrameSize is the shortest frame DetectPitch accepts
func (pd *PitchDetector) MinFrameSize() int {
	return 2*pd.maxTau + 2
}

// DetectPitch runs YIN on a single frame
func (pd *PitchDetector) DetectPitch(audioFrame []float64) (*PitchDetectionResult, error) {
	if len(audioFrame) < pd.MinFrameSize() {
		return nil, fmt.Errorf("frame too short for pitch detection: %d samples, need %d",
			len(audioFrame), pd.MinFrameSize())
	}

	power := 0.0
	for _, s := range audioFrame {
		power += s * s
	}
	if power/float64(len(audioFrame)) < pd.params.MinPower {
		return &PitchDetectionResult{}, nil
	}

	cmndf := pd.cumulativeMeanNormalizedDifference(audioFrame)

	// first dip below threshold, then walk down to its local minimum
	tau := -1
	for t := pd.minTau; t <= pd.maxTau; t++ {
		if cmndf[t] < pd.params.YinThreshold {
			tau = t
			for tau+1 <= pd.maxTau && cmndf[tau+1] < cmndf[tau] {
				tau++
			}
			break
		}
	}

	if tau < 0 {
		return &PitchDetectionResult{}, nil
	}

	period := parabolicInterpolation(cmndf, tau)
	if period <= 0 {
		return &PitchDetectionResult{}, nil
	}

	frequency := float64(pd.params.SampleRate) / period
	if frequency < pd.params.MinFreq || frequency > pd.params.MaxFreq {
		return &PitchDetectionResult{}, nil
	}

	return &PitchDetectionResult{
		Pitch:      frequency,
		Period:     period,
		Confidence: math.Max(0, math.Min(1, 1.0-cmndf[tau])),
		Voiced:     true,
	}, nil
}

// ProcessFrames runs DetectPitch on each frame
func (pd *PitchDetector) ProcessFrames(frames [][]float64) ([]*PitchDetectionResult, error) {
	results := make([]*PitchDetectionResult, len(frames))
	for i, frame := range frames {
		result, err := pd.DetectPitch(frame)
		if err != nil {
			return nil, fmt.Errorf("frame %d: %w", i, err)
		}
		results[i] = result
	}
	return results, nil
}

// GetParameters returns the detector parameters
func (pd *PitchDetector) GetParameters() PitchDetectionParams {
	return pd.params
}

func (pd *PitchDetector) cumulativeMeanNormalizedDifference(audioFrame []float64) []float64 {
	maxLag := pd.maxTau + 1
	w := len(audioFrame) - maxLag

	diff := make([]float64, maxLag+1)
	for tau := 1; tau <= maxLag; tau++ {
		sum := 0.0
		for j := range w {
			delta := audioFrame[j] - audioFrame[j+tau]
			sum += delta * delta
		}
		diff[tau] = sum
	}

	cmndf := make([]float64, maxLag+1)
	cmndf[0] = 1.0

	runningSum := 0.0
	for tau := 1; tau <= maxLag; tau++ {
		runningSum += diff[tau]
		if runningSum == 0 {
			cmndf[tau] = 1.0
			continue
		}
		cmndf[tau] = diff[tau] / (runningSum / float64(tau))
	}

	return cmndf
}

// parabolicInterpolation refines the position of an extremum at idx
func parabolicInterpolation(data []float64, idx int) float64 {
	if idx <= 0 || idx >= len(data)-1 {
		return float64(idx)
	}

	y1 := data[idx-1]
	y2 := data[idx]
	y3 := data[idx+1]

	a := (y1 - 2*y2 + y3) / 2
	b := (y3 - y1) / 2

	if a == 0 {
		return float64(idx)
	}

	offset := -b / (2 * a)
	if math.Abs(offset) > 1 {
		return float64(idx)
	}

	return float64(idx) + offset
}

package speech

import (
	"math"

	"github.com/RyanBlaney/sonido-veraz/algorithms/stats"
)

// VoiceQualityAnalyzer measures pitch-period perturbation over a frame-level
// pitch track
type VoiceQualityAnalyzer struct {
	sampleRate int
}

// VoiceQualityResult contains pitch track statistics
type VoiceQualityResult struct {
	VoicedFrames int     `json:"voiced_frames"`
	VoicedPairs  int     `json:"voiced_pairs"` // adjacent voiced frame pairs
	F0Mean       float64 `json:"f0_mean"`      // Hz
	F0Std        float64 `json:"f0_std"`       // Hz
	F0CV         float64 `json:"f0_cv"`        // std/mean
	Jitter       float64 `json:"jitter"`       // relative period perturbation
	JitterAbs    float64 `json:"jitter_abs"`   // mean |ΔT| in seconds
}

// NewVoiceQualityAnalyzer creates a new voice quality analyzer
func NewVoiceQualityAnalyzer(sampleRate int) *VoiceQualityAnalyzer {
	return &VoiceQualityAnalyzer{sampleRate: sampleRate}
}

// AnalyzePeriods summarizes a per-frame pitch track given as periods in
// samples. Entries <= 0 mark unvoiced frames; jitter only compares frames
// that are adjacent in time.
func (vqa *VoiceQualityAnalyzer) AnalyzePeriods(periods []float64) *VoiceQualityResult {
	result := &VoiceQualityResult{}

	var f0 []float64
	for _, period := range periods {
		if period > 0 {
			f0 = append(f0, float64(vqa.sampleRate)/period)
		}
	}
	result.VoicedFrames = len(f0)
	if len(f0) == 0 {
		return result
	}

	summary := stats.Summarize(f0)
	result.F0Mean = summary.Mean
	result.F0Std = summary.StdDev
	result.F0CV = summary.CV

	jitter, pairs := vqa.calculateJitter(periods)
	result.Jitter = jitter
	result.VoicedPairs = pairs
	if vqa.sampleRate > 0 {
		result.JitterAbs = jitter * vqa.meanPeriod(periods) / float64(vqa.sampleRate)
	}

	return result
}

// calculateJitter computes mean |T_i - T_{i-1}| over adjacent voiced frames
// divided by the mean period of the voiced frames
func (vqa *VoiceQualityAnalyzer) calculateJitter(periods []float64) (float64, int) {
	sumDiff := 0.0
	pairs := 0
	for i := 1; i < len(periods); i++ {
		if periods[i] > 0 && periods[i-1] > 0 {
			sumDiff += math.Abs(periods[i] - periods[i-1])
			pairs++
		}
	}

	meanPeriod := vqa.meanPeriod(periods)
	if pairs == 0 || meanPeriod == 0 {
		return 0.0, pairs
	}

	return (sumDiff / float64(pairs)) / meanPeriod, pairs
}

func (vqa *VoiceQualityAnalyzer) meanPeriod(periods []float64) float64 {
	sum := 0.0
	n := 0
	for _, period := range periods {
		if period > 0 {
			sum += period
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

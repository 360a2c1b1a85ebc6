package speech

import (
	"fmt"
	"math"

	"github.com/RyanBlaney/sonido-veraz/algorithms/filters"
	"github.com/RyanBlaney/sonido-veraz/algorithms/windowing"
)

// FormantAnalyzer extracts vocal tract resonances (formants) from speech
// frames. F1 and F2 primarily determine vowel identity, so their movement
// over time tracks articulation.
type FormantAnalyzer struct {
	sampleRate int
	frameSize  int
	nfft       int
	minFreq    float64
	maxFreq    float64

	lpcAnalyzer *LPCAnalyzer
	preEmphasis *filters.PreEmphasis
	window      *windowing.Hamming
}

// FormantParams contains parameters for formant analysis
type FormantParams struct {
	FrameSize   int     `json:"frame_size"`
	LPCOrder    int     `json:"lpc_order"`    // 0 selects DefaultLPCOrder
	PreEmphasis float64 `json:"pre_emphasis"` // typically 0.97
	MinFreq     float64 `json:"min_freq"`     // lowest accepted formant (Hz)
	NFFT        int     `json:"nfft"`         // envelope resolution
}

// FormantResult contains formant analysis results for one frame
type FormantResult struct {
	Formants []float64 `json:"formants"` // peak frequencies in ascending order
	LPCOrder int       `json:"lpc_order"`
	Stable   bool      `json:"stable"`
}

// F1 returns the first formant, or 0 when none was found
func (r *FormantResult) F1() float64 {
	if len(r.Formants) < 1 {
		return 0
	}
	return r.Formants[0]
}

// F2 returns the second formant, or 0 when fewer than two were found
func (r *FormantResult) F2() float64 {
	if len(r.Formants) < 2 {
		return 0
	}
	return r.Formants[1]
}

// HasF1F2 reports whether both of the first two formants were found
func (r *FormantResult) HasF1F2() bool {
	return len(r.Formants) >= 2
}

// DefaultFormantParams returns defaults for a frame size
func DefaultFormantParams(frameSize int) FormantParams {
	return FormantParams{
		FrameSize:   frameSize,
		LPCOrder:    0,
		PreEmphasis: 0.97,
		MinFreq:     90.0,
		NFFT:        1024,
	}
}

// NewFormantAnalyzer creates a formant analyzer for frames of params.FrameSize
func NewFormantAnalyzer(sampleRate int, params FormantParams) (*FormantAnalyzer, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("invalid sample rate: %d", sampleRate)
	}
	if params.FrameSize <= 0 {
		return nil, fmt.Errorf("invalid frame size: %d", params.FrameSize)
	}
	if params.NFFT <= 0 {
		params.NFFT = 1024
	}

	pe, err := filters.NewPreEmphasis(params.PreEmphasis)
	if err != nil {
		return nil, err
	}

	lpc := NewLPCAnalyzer(sampleRate, params.LPCOrder)
	if params.FrameSize < 2*lpc.Order() {
		return nil, fmt.Errorf("frame size %d too short for LPC order %d", params.FrameSize, lpc.Order())
	}

	return &FormantAnalyzer{
		sampleRate:  sampleRate,
		frameSize:   params.FrameSize,
		nfft:        params.NFFT,
		minFreq:     params.MinFreq,
		maxFreq:     float64(sampleRate)/2.0 - float64(sampleRate)/float64(params.NFFT),
		lpcAnalyzer: lpc,
		preEmphasis: pe,
		window:      windowing.NewHamming(params.FrameSize, true),
	}, nil
}

// AnalyzeFormants extracts formants from a single frame
func (f *FormantAnalyzer) AnalyzeFormants(frame []float64) (*FormantResult, error) {
	if len(frame) != f.frameSize {
		return nil, fmt.Errorf("frame has %d samples, analyzer expects %d", len(frame), f.frameSize)
	}

	processed := f.preEmphasis.Apply(frame)
	if err := f.window.ApplyInPlace(processed); err != nil {
		return nil, fmt.Errorf("windowing failed: %w", err)
	}

	lpcResult, err := f.lpcAnalyzer.Analyze(processed)
	if err != nil {
		return nil, fmt.Errorf("LPC analysis failed: %w", err)
	}

	envelope, err := f.lpcAnalyzer.GetSpectralEnvelope(lpcResult, f.nfft)
	if err != nil {
		return nil, fmt.Errorf("formant extraction failed: %w", err)
	}

	return &FormantResult{
		Formants: f.findEnvelopePeaks(envelope),
		LPCOrder: lpcResult.Order,
		Stable:   lpcResult.Stable,
	}, nil
}

// findEnvelopePeaks returns local maxima of the envelope within
// [minFreq, maxFreq], refined by parabolic interpolation on the log envelope
func (f *FormantAnalyzer) findEnvelopePeaks(envelope []float64) []float64 {
	var peaks []float64
	binHz := float64(f.sampleRate) / float64(f.nfft)

	for i := 1; i < len(envelope)-1; i++ {
		if envelope[i] <= envelope[i-1] || envelope[i] < envelope[i+1] {
			continue
		}

		y1 := math.Log(math.Max(envelope[i-1], 1e-300))
		y2 := math.Log(math.Max(envelope[i], 1e-300))
		y3 := math.Log(math.Max(envelope[i+1], 1e-300))

		offset := 0.0
		if denom := y1 - 2*y2 + y3; denom != 0 {
			offset = 0.5 * (y1 - y3) / denom
		}

		freq := (float64(i) + offset) * binHz
		if freq < f.minFreq || freq > f.maxFreq {
			continue
		}
		peaks = append(peaks, freq)
	}

	return peaks
}

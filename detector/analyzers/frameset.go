package analyzers

import (
	"fmt"

	"github.com/RyanBlaney/sonido-veraz/algorithms/spectral"
	"github.com/RyanBlaney/sonido-veraz/algorithms/temporal"
	"github.com/RyanBlaney/sonido-veraz/algorithms/windowing"
	"github.com/RyanBlaney/sonido-veraz/detector/common"
	"github.com/RyanBlaney/sonido-veraz/detector/config"
)

// FrameSet is a prepared signal cut into overlapping frames together with
// the spectrogram every analyzer reads. It is never mutated after
// construction, so analyzers may share it across goroutines.
type FrameSet struct {
	Signal    *common.AudioSignal
	FrameSize int
	HopSize   int
	FFTSize   int

	Frames   [][]float64          // time-domain frames, views into Signal.Samples
	RMS      []float64            // per-frame RMS energy
	Spectrum *spectral.STFTResult // windowed, zero-padded to FFTSize
}

// NumFrames returns the number of full frames
func (fs *FrameSet) NumFrames() int {
	return len(fs.Frames)
}

// NewFrameSet frames the signal and computes its STFT. The trailing partial
// frame is dropped.
func NewFrameSet(signal *common.AudioSignal, cfg config.FrameConfig) (*FrameSet, error) {
	if signal == nil || len(signal.Samples) == 0 {
		return nil, common.NewEmptySignalError("EMPTY", "no samples to frame")
	}
	if cfg.HopSize <= 0 || cfg.HopSize >= cfg.FrameSize {
		return nil, fmt.Errorf("hop size %d must be in (0, frame size %d)", cfg.HopSize, cfg.FrameSize)
	}

	numFrames := spectral.NumFrames(len(signal.Samples), cfg.FrameSize, cfg.HopSize)
	if numFrames == 0 {
		return nil, common.NewEmptySignalError("TOO_SHORT",
			fmt.Sprintf("%d samples do not fill one %d-sample frame", len(signal.Samples), cfg.FrameSize))
	}

	frames := make([][]float64, numFrames)
	for i := range frames {
		start := i * cfg.HopSize
		frames[i] = signal.Samples[start : start+cfg.FrameSize : start+cfg.FrameSize]
	}

	window, err := windowing.New(cfg.Window, cfg.FrameSize)
	if err != nil {
		return nil, err
	}

	stft, err := spectral.NewSTFT().Compute(signal.Samples, spectral.STFTParams{
		WindowSize: cfg.FrameSize,
		HopSize:    cfg.HopSize,
		FFTSize:    cfg.FFTSize,
		SampleRate: signal.SampleRate,
	}, window)
	if err != nil {
		return nil, fmt.Errorf("failed to compute spectrogram: %w", err)
	}

	return &FrameSet{
		Signal:    signal,
		FrameSize: cfg.FrameSize,
		HopSize:   cfg.HopSize,
		FFTSize:   stft.FFTSize,
		Frames:    frames,
		RMS:       temporal.NewEnergy(cfg.FrameSize, cfg.HopSize).ComputeFrameRMS(frames),
		Spectrum:  stft,
	}, nil
}

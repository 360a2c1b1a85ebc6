package spectral

import (
	"fmt"
	"math/cmplx"
	"runtime"
	"sync"
)

// STFT provides Short-Time Fourier Transform functionality
type STFT struct {
	fft *FFT
}

// STFTParams controls framing of the transform. FFTSize may exceed
// WindowSize, in which case each windowed frame is zero-padded.
type STFTParams struct {
	WindowSize int `json:"window_size"`
	HopSize    int `json:"hop_size"`
	FFTSize    int `json:"fft_size"`
	SampleRate int `json:"sample_rate"`
}

// STFTResult holds the result of STFT analysis
type STFTResult struct {
	Magnitude      [][]float64    `json:"magnitude"`       // Time x Frequency magnitude matrix
	Phase          [][]float64    `json:"phase"`           // Time x Frequency phase matrix
	Complex        [][]complex128 `json:"-"`               // Raw complex spectrogram (not serialized)
	TimeFrames     int            `json:"time_frames"`     // Number of time frames
	FreqBins       int            `json:"freq_bins"`       // Number of frequency bins
	SampleRate     int            `json:"sample_rate"`     // Sample rate
	WindowSize     int            `json:"window_size"`     // Analysis window length
	FFTSize        int            `json:"fft_size"`        // Transform length
	HopSize        int            `json:"hop_size"`        // Hop size between frames
	FreqResolution float64        `json:"freq_resolution"` // Frequency resolution (Hz/bin)
	TimeResolution float64        `json:"time_resolution"` // Time resolution (seconds/frame)
}

// Window interface for windowing functions
type Window interface {
	ApplyInPlace(signal []float64) error
}

// NewSTFT creates a new STFT calculator
func NewSTFT() *STFT {
	return &STFT{
		fft: NewFFT(),
	}
}

// NumFrames returns how many full frames fit in a signal of the given
// length. A trailing partial frame is dropped.
func NumFrames(signalLength, windowSize, hopSize int) int {
	if windowSize <= 0 || hopSize <= 0 || signalLength < windowSize {
		return 0
	}
	return (signalLength-windowSize)/hopSize + 1
}

// Compute computes the STFT in parallel. Frames are independent, so the
// result does not depend on scheduling.
func (s *STFT) Compute(signal []float64, params STFTParams, window Window) (*STFTResult, error) {
	if len(signal) == 0 {
		return nil, fmt.Errorf("empty signal")
	}

	if params.WindowSize <= 0 {
		return nil, fmt.Errorf("window size must be positive")
	}

	if params.HopSize <= 0 {
		return nil, fmt.Errorf("hop size must be positive")
	}

	if params.FFTSize == 0 {
		params.FFTSize = params.WindowSize
	}
	if params.FFTSize < params.WindowSize {
		return nil, fmt.Errorf("fft size %d smaller than window size %d", params.FFTSize, params.WindowSize)
	}

	numFrames := NumFrames(len(signal), params.WindowSize, params.HopSize)
	if numFrames <= 0 {
		return nil, fmt.Errorf("signal too short for given window size and hop size")
	}

	// Positive frequencies only
	freqBins := params.FFTSize/2 + 1

	magnitude := make([][]float64, numFrames)
	phase := make([][]float64, numFrames)
	complexSpectrum := make([][]complex128, numFrames)

	for i := range numFrames {
		magnitude[i] = make([]float64, freqBins)
		phase[i] = make([]float64, freqBins)
		complexSpectrum[i] = make([]complex128, freqBins)
	}

	numWorkers := s.getOptimalWorkerCount(numFrames)

	type frameJob struct {
		frameIdx int
		startIdx int
	}

	jobs := make(chan frameJob, numFrames)

	var (
		wg       sync.WaitGroup
		errOnce  sync.Once
		firstErr error
	)

	for range numWorkers {
		wg.Add(1)
		go func() {
			defer wg.Done()

			// Reuse frame buffer for this worker
			frameBuffer := make([]float64, params.WindowSize)
			padded := make([]float64, params.FFTSize)

			for job := range jobs {
				copy(frameBuffer, signal[job.startIdx:job.startIdx+params.WindowSize])

				if window != nil {
					if err := window.ApplyInPlace(frameBuffer); err != nil {
						errOnce.Do(func() {
							firstErr = fmt.Errorf("frame %d: %w", job.frameIdx, err)
						})
						continue
					}
				}

				copy(padded, frameBuffer)
				fftResult := s.fft.Compute(padded)

				for i := range freqBins {
					complexSpectrum[job.frameIdx][i] = fftResult[i]
					magnitude[job.frameIdx][i] = cmplx.Abs(fftResult[i])
					phase[job.frameIdx][i] = cmplx.Phase(fftResult[i])
				}
			}
		}()
	}

	for frameIdx := range numFrames {
		jobs <- frameJob{frameIdx: frameIdx, startIdx: frameIdx * params.HopSize}
	}
	close(jobs)

	wg.Wait()

	if firstErr != nil {
		return nil, fmt.Errorf("window application failed: %w", firstErr)
	}

	return &STFTResult{
		Magnitude:      magnitude,
		Phase:          phase,
		Complex:        complexSpectrum,
		TimeFrames:     numFrames,
		FreqBins:       freqBins,
		SampleRate:     params.SampleRate,
		WindowSize:     params.WindowSize,
		FFTSize:        params.FFTSize,
		HopSize:        params.HopSize,
		FreqResolution: float64(params.SampleRate) / float64(params.FFTSize),
		TimeResolution: float64(params.HopSize) / float64(params.SampleRate),
	}, nil
}

// getOptimalWorkerCount determines the number of workers based on workload
func (s *STFT) getOptimalWorkerCount(numFrames int) int {
	numCPU := runtime.NumCPU()

	// For small workloads, don't over-parallelize
	if numFrames < 100 {
		return max(1, min(numCPU/2, numFrames))
	}

	if numFrames < 1000 {
		return min(numCPU, 8)
	}

	return numCPU
}

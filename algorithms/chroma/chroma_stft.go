package chroma

import (
	"fmt"
	"math"
)

// ChromaSTFT folds STFT magnitude frames into 12 pitch classes
// (C, C#, D, D#, E, F, F#, G, G#, A, A#, B). The bin mapping is fixed at
// construction.
type ChromaSTFT struct {
	sampleRate int
	numBins    int
	tuningFreq float64 // A4 frequency
	minFreq    float64
	maxFreq    float64
	mapping    []int // FFT bin -> chroma bin, -1 outside [minFreq, maxFreq]
}

const chromaBins = 12

// NewChromaSTFT creates a chromagram calculator for spectra of fftSize/2+1
// bins with A4 tuned to tuningFreq
func NewChromaSTFT(sampleRate, fftSize int, tuningFreq float64) (*ChromaSTFT, error) {
	if sampleRate <= 0 || fftSize <= 0 {
		return nil, fmt.Errorf("invalid sample rate or FFT size: %d/%d", sampleRate, fftSize)
	}
	if tuningFreq <= 0 {
		return nil, fmt.Errorf("tuning frequency must be positive: %f", tuningFreq)
	}

	cs := &ChromaSTFT{
		sampleRate: sampleRate,
		numBins:    fftSize/2 + 1,
		tuningFreq: tuningFreq,
		minFreq:    80.0,
		maxFreq:    math.Min(8000.0, float64(sampleRate)/2.0),
	}
	cs.mapping = cs.calculateChromaMapping(float64(sampleRate) / float64(fftSize))
	return cs, nil
}

// NewChromaSTFTDefault creates a chromagram calculator with A4 = 440 Hz
func NewChromaSTFTDefault(sampleRate, fftSize int) (*ChromaSTFT, error) {
	return NewChromaSTFT(sampleRate, fftSize, 440.0)
}

// Compute returns the chroma vector of one magnitude spectrum, scaled so
// its largest entry is 1. Frames with no energy in range return nil.
func (cs *ChromaSTFT) Compute(magnitudeSpectrum []float64) []float64 {
	if len(magnitudeSpectrum) != cs.numBins {
		return nil
	}

	frame := make([]float64, chromaBins)
	for f, mag := range magnitudeSpectrum {
		if bin := cs.mapping[f]; bin >= 0 {
			frame[bin] += mag * mag
		}
	}

	peak := 0.0
	for _, energy := range frame {
		peak = math.Max(peak, energy)
	}
	if peak <= 1e-10 {
		return nil
	}
	for i := range frame {
		frame[i] /= peak
	}
	return frame
}

// ComputeFrames returns the chroma vectors of every voiced frame. Silent
// frames are skipped.
func (cs *ChromaSTFT) ComputeFrames(spectrogram [][]float64) [][]float64 {
	chromagram := make([][]float64, 0, len(spectrogram))
	for _, magnitudeSpectrum := range spectrogram {
		if frame := cs.Compute(magnitudeSpectrum); frame != nil {
			chromagram = append(chromagram, frame)
		}
	}
	return chromagram
}

// Labels returns the chroma bin labels
func (cs *ChromaSTFT) Labels() []string {
	return []string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}
}

func (cs *ChromaSTFT) calculateChromaMapping(binHz float64) []int {
	mapping := make([]int, cs.numBins)

	for f := range cs.numBins {
		frequency := float64(f) * binHz
		if frequency < cs.minFreq || frequency > cs.maxFreq {
			mapping[f] = -1
			continue
		}

		midiNote := int(math.Round(cs.frequencyToMIDI(frequency)))
		mapping[f] = ((midiNote % chromaBins) + chromaBins) % chromaBins
	}

	return mapping
}

// frequencyToMIDI: A4 = MIDI note 69
func (cs *ChromaSTFT) frequencyToMIDI(frequency float64) float64 {
	return 69.0 + 12.0*math.Log2(frequency/cs.tuningFreq)
}

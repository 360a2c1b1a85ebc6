package spectral

// ZeroCrossingRate calculates the zero crossing rate of time-domain frames.
// High ZCR indicates fricatives/unvoiced speech, low ZCR voiced speech.
type ZeroCrossingRate struct {
	sampleRate int
}

// NewZeroCrossingRate creates a new zero crossing rate calculator
func NewZeroCrossingRate(sampleRate int) *ZeroCrossingRate {
	return &ZeroCrossingRate{
		sampleRate: sampleRate,
	}
}

func countCrossings(frame []float64) int {
	crossings := 0
	for i := 1; i < len(frame); i++ {
		if (frame[i-1] >= 0) != (frame[i] >= 0) {
			crossings++
		}
	}
	return crossings
}

// Compute returns crossings per second for a single frame
func (zcr *ZeroCrossingRate) Compute(frame []float64) float64 {
	if len(frame) < 2 || zcr.sampleRate <= 0 {
		return 0.0
	}

	frameDuration := float64(len(frame)) / float64(zcr.sampleRate)
	return float64(countCrossings(frame)) / frameDuration
}

// ComputeNormalized returns crossings divided by the maximum possible
// crossings (len-1), in [0, 1]
func (zcr *ZeroCrossingRate) ComputeNormalized(frame []float64) float64 {
	if len(frame) < 2 {
		return 0.0
	}

	return float64(countCrossings(frame)) / float64(len(frame)-1)
}

// ComputeFramesNormalized calculates normalized ZCR for each frame
func (zcr *ZeroCrossingRate) ComputeFramesNormalized(frames [][]float64) []float64 {
	values := make([]float64, len(frames))
	for i, frame := range frames {
		values[i] = zcr.ComputeNormalized(frame)
	}
	return values
}

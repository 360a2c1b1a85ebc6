package analyzers

import (
	"math"

	"github.com/RyanBlaney/sonido-veraz/algorithms/spectral"
	"github.com/RyanBlaney/sonido-veraz/algorithms/stats"
	"github.com/RyanBlaney/sonido-veraz/algorithms/temporal"
	"github.com/RyanBlaney/sonido-veraz/detector/common"
	"github.com/RyanBlaney/sonido-veraz/detector/config"
	"github.com/RyanBlaney/sonido-veraz/logging"
)

// TemporalAnalyzer measures zero-crossing and energy dynamics. Natural
// speech has pauses, emphasis and breaths; many synthesizers produce a
// smoother envelope.
type TemporalAnalyzer struct {
	config config.TemporalConfig
	zcr    *spectral.ZeroCrossingRate
	logger logging.Logger
}

// NewTemporalAnalyzer creates a temporal analyzer
func NewTemporalAnalyzer(cfg config.TemporalConfig, sampleRate int) *TemporalAnalyzer {
	return &TemporalAnalyzer{
		config: cfg,
		zcr:    spectral.NewZeroCrossingRate(sampleRate),
		logger: logging.WithFields(logging.Fields{
			"component": "temporal_analyzer",
		}),
	}
}

func (ta *TemporalAnalyzer) Name() string {
	return "temporal"
}

// Analyze emits ZCR and RMS energy statistics and the pause ratio
func (ta *TemporalAnalyzer) Analyze(fs *FrameSet) (common.FeatureVector, error) {
	zcr := stats.Summarize(ta.zcr.ComputeFramesNormalized(fs.Frames))
	energy := stats.Summarize(fs.RMS)
	pauseRatio := temporal.SilenceRatio(fs.RMS, ta.config.PauseRatioDB)

	ta.logger.Debug("Temporal features extracted", logging.Fields{
		"frames":      fs.NumFrames(),
		"energy_cv":   energy.CV,
		"zcr_cv":      zcr.CV,
		"pause_ratio": pauseRatio,
	})

	return fragment(ta.Name(), map[string]float64{
		"zcr_mean":           zcr.Mean,
		"zcr_variance":       zcr.Variance,
		"zcr_cv":             zcr.CV,
		"energy_mean":        energy.Mean,
		"energy_variance":    energy.Variance,
		"energy_cv":          energy.CV,
		"energy_consistency": math.Max(0, 1-energy.CV),
		"pause_ratio":        pauseRatio,
	})
}

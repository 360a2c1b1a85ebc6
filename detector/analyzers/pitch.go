package analyzers

import (
	"fmt"
	"math"

	"github.com/RyanBlaney/sonido-veraz/algorithms/spectral"
	"github.com/RyanBlaney/sonido-veraz/algorithms/speech"
	"github.com/RyanBlaney/sonido-veraz/algorithms/stats"
	"github.com/RyanBlaney/sonido-veraz/algorithms/temporal"
	"github.com/RyanBlaney/sonido-veraz/algorithms/tonal"
	"github.com/RyanBlaney/sonido-veraz/detector/common"
	"github.com/RyanBlaney/sonido-veraz/detector/config"
	"github.com/RyanBlaney/sonido-veraz/logging"
)

// PitchAnalyzer tracks F0 and the first two formants over voiced frames.
// Natural voices carry small pitch instability and audible formant motion.
type PitchAnalyzer struct {
	config     config.PitchConfig
	sampleRate int
	hopSize    int
	logger     logging.Logger

	pitchDetector   *tonal.PitchDetector
	formantAnalyzer *speech.FormantAnalyzer
	voiceQuality    *speech.VoiceQualityAnalyzer
}

// PitchTrack is the per-frame output of the tracker. Periods are in
// samples, 0 for unvoiced frames; formants are nil where none were found.
type PitchTrack struct {
	Periods  []float64
	Formants []*speech.FormantResult
}

// NewPitchAnalyzer creates a pitch and formant analyzer. Pitch frames are
// cfg.PitchFrameSize samples long and advance by hopSize.
func NewPitchAnalyzer(cfg config.PitchConfig, sampleRate, hopSize int) (*PitchAnalyzer, error) {
	if hopSize <= 0 {
		return nil, fmt.Errorf("invalid hop size: %d", hopSize)
	}

	params := tonal.DefaultPitchDetectionParams(sampleRate)
	params.MinFreq = cfg.MinF0
	params.MaxFreq = cfg.MaxF0
	params.YinThreshold = cfg.YinThreshold

	pd, err := tonal.NewPitchDetectorWithParams(params)
	if err != nil {
		return nil, err
	}
	if cfg.PitchFrameSize < pd.MinFrameSize() {
		return nil, fmt.Errorf("pitch frame size %d below the %d samples needed for %.0f Hz",
			cfg.PitchFrameSize, pd.MinFrameSize(), cfg.MinF0)
	}

	formantParams := speech.DefaultFormantParams(cfg.PitchFrameSize)
	formantParams.LPCOrder = cfg.LPCOrder
	formantParams.PreEmphasis = cfg.PreEmphasis
	formantParams.MinFreq = cfg.MinFormantHz

	fa, err := speech.NewFormantAnalyzer(sampleRate, formantParams)
	if err != nil {
		return nil, err
	}

	return &PitchAnalyzer{
		config:     cfg,
		sampleRate: sampleRate,
		hopSize:    hopSize,
		logger: logging.WithFields(logging.Fields{
			"component":  "pitch_analyzer",
			"frame_size": cfg.PitchFrameSize,
		}),
		pitchDetector:   pd,
		formantAnalyzer: fa,
		voiceQuality:    speech.NewVoiceQualityAnalyzer(sampleRate),
	}, nil
}

func (pa *PitchAnalyzer) Name() string {
	return "pitch"
}

// Track runs voicing, YIN and formant estimation over the signal
func (pa *PitchAnalyzer) Track(samples []float64) (*PitchTrack, error) {
	frameSize := pa.config.PitchFrameSize
	numFrames := spectral.NumFrames(len(samples), frameSize, pa.hopSize)

	track := &PitchTrack{
		Periods:  make([]float64, numFrames),
		Formants: make([]*speech.FormantResult, numFrames),
	}

	for i := range numFrames {
		start := i * pa.hopSize
		frame := samples[start : start+frameSize]

		if temporal.RMS(frame) < pa.config.VoicedEnergyThreshold {
			continue
		}

		result, err := pa.pitchDetector.DetectPitch(frame)
		if err != nil {
			return nil, fmt.Errorf("frame %d: %w", i, err)
		}
		if !result.Voiced {
			continue
		}
		track.Periods[i] = result.Period

		formants, err := pa.formantAnalyzer.AnalyzeFormants(frame)
		if err != nil {
			// a voiced frame without a usable envelope just has no formants
			continue
		}
		track.Formants[i] = formants
	}

	return track, nil
}

// Analyze always emits pitch_voiced_ratio and pitch_detected. Pitch
// statistics need MinVoicedFrames voiced frames; formant features need two
// adjacent voiced frames that both carry F1 and F2.
func (pa *PitchAnalyzer) Analyze(fs *FrameSet) (common.FeatureVector, error) {
	track, err := pa.Track(fs.Signal.Samples)
	if err != nil {
		return common.FeatureVector{}, common.NewFeatureExtractionError("PITCH_FAILED", "pitch tracking failed", err)
	}

	return pa.Features(track)
}

// Features summarizes a pitch track. pitch_jitter is only emitted when at
// least one pair of adjacent frames is voiced.
func (pa *PitchAnalyzer) Features(track *PitchTrack) (common.FeatureVector, error) {
	logger := pa.logger.WithFields(logging.Fields{
		"function": "Features",
	})

	quality := pa.voiceQuality.AnalyzePeriods(track.Periods)

	values := map[string]float64{
		"pitch_voiced_ratio": 0,
		"pitch_detected":     0,
	}
	if len(track.Periods) > 0 {
		values["pitch_voiced_ratio"] = float64(quality.VoicedFrames) / float64(len(track.Periods))
	}

	if quality.VoicedFrames < pa.config.MinVoicedFrames || quality.VoicedFrames == 0 {
		logger.Debug("Not enough voiced frames, pitch features omitted", logging.Fields{
			"voiced_frames": quality.VoicedFrames,
			"frames":        len(track.Periods),
		})
		return fragment(pa.Name(), values)
	}

	values["pitch_detected"] = 1
	values["pitch_mean"] = quality.F0Mean
	values["pitch_std"] = quality.F0Std
	values["pitch_cv"] = quality.F0CV
	if quality.VoicedPairs > 0 {
		values["pitch_jitter"] = quality.Jitter
	}

	f1, f2, rates := formantTransitions(track.Formants)
	if len(rates) > 0 {
		rate := stats.Summarize(rates).Mean
		values["formant_f1_mean"] = stats.Summarize(f1).Mean
		values["formant_f2_mean"] = stats.Summarize(f2).Mean
		values["formant_transition_rate"] = rate
		values["formant_transition_smoothness"] = math.Exp(-rate / pa.config.FormantRateScale)
	}

	logger.Debug("Pitch features extracted", logging.Fields{
		"voiced_frames":       quality.VoicedFrames,
		"voiced_pairs":        quality.VoicedPairs,
		"pitch_mean":          quality.F0Mean,
		"pitch_jitter":        quality.Jitter,
		"formant_transitions": len(rates),
	})

	return fragment(pa.Name(), values)
}

// formantTransitions collects F1/F2 over frames that have both, and the
// mean absolute F1/F2 change between adjacent such frames
func formantTransitions(formants []*speech.FormantResult) (f1, f2, rates []float64) {
	for i, current := range formants {
		if current == nil || !current.HasF1F2() {
			continue
		}
		f1 = append(f1, current.F1())
		f2 = append(f2, current.F2())

		if i == 0 {
			continue
		}
		prev := formants[i-1]
		if prev == nil || !prev.HasF1F2() {
			continue
		}
		rates = append(rates, (math.Abs(current.F1()-prev.F1())+math.Abs(current.F2()-prev.F2()))/2)
	}
	return f1, f2, rates
}

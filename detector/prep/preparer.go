package prep

import (
	"fmt"
	"math"

	algocommon "github.com/RyanBlaney/sonido-veraz/algorithms/common"
	"github.com/RyanBlaney/sonido-veraz/algorithms/temporal"
	"github.com/RyanBlaney/sonido-veraz/detector/common"
	"github.com/RyanBlaney/sonido-veraz/detector/config"
	"github.com/RyanBlaney/sonido-veraz/logging"
	"github.com/RyanBlaney/sonido-veraz/transcode"
)

// Preparer turns decoded audio into the mono, resampled, trimmed and
// normalized signal the analyzers work on
type Preparer struct {
	config     config.PrepConfig
	normalizer *algocommon.Normalizer
	silence    *temporal.SilenceDetection
	logger     logging.Logger
}

// NewPreparer creates a preparer for the given configuration
func NewPreparer(cfg config.PrepConfig) (*Preparer, error) {
	mode, err := algocommon.ParseNormalizationType(cfg.Normalization)
	if err != nil {
		return nil, err
	}

	target := cfg.TargetPeak
	if mode == algocommon.RMSNorm {
		target = cfg.TargetRMS
	}
	normalizer, err := algocommon.NewNormalizer(mode, target)
	if err != nil {
		return nil, err
	}

	if cfg.TargetSampleRate <= 0 {
		return nil, fmt.Errorf("invalid target sample rate: %d", cfg.TargetSampleRate)
	}
	if cfg.TrimFrameSize <= 0 || cfg.TrimHopSize <= 0 {
		return nil, fmt.Errorf("invalid trim frame/hop: %d/%d", cfg.TrimFrameSize, cfg.TrimHopSize)
	}

	return &Preparer{
		config:     cfg,
		normalizer: normalizer,
		silence:    temporal.NewSilenceDetection(cfg.TrimFrameSize, cfg.TrimHopSize),
		logger: logging.WithFields(logging.Fields{
			"component": "signal_preparer",
		}),
	}, nil
}

// Prepare validates, downmixes, removes DC, resamples, trims and normalizes.
// The input is never mutated.
func (p *Preparer) Prepare(audio *transcode.AudioData) (*common.AudioSignal, error) {
	logger := p.logger.WithFields(logging.Fields{
		"function": "Prepare",
	})

	if err := validate(audio); err != nil {
		return nil, err
	}

	mono, err := algocommon.Downmix(audio.PCM, audio.Channels)
	if err != nil {
		return nil, common.NewDecodeError("BAD_LAYOUT", "cannot downmix input", err)
	}

	mono = algocommon.RemoveDC(mono)

	if audio.SampleRate != p.config.TargetSampleRate {
		mono, err = transcode.Resample(mono, audio.SampleRate, p.config.TargetSampleRate)
		if err != nil {
			return nil, common.NewDecodeError("RESAMPLE_FAILED",
				fmt.Sprintf("cannot resample %d Hz to %d Hz", audio.SampleRate, p.config.TargetSampleRate), err)
		}
	}

	start, end, ok := p.silence.ActiveRegion(mono, p.config.SilenceThresholdDB, p.config.SilenceFloor)
	if !ok {
		return nil, common.NewEmptySignalError("SILENT", "signal contains no audio above the silence floor")
	}
	trimmed := mono[start:end]

	duration := float64(len(trimmed)) / float64(p.config.TargetSampleRate)
	if duration < p.config.MinDuration {
		return nil, common.NewEmptySignalError("TOO_SHORT",
			fmt.Sprintf("%.3fs of audio after trimming, need at least %.3fs", duration, p.config.MinDuration))
	}

	samples := p.normalizer.Normalize(trimmed)

	logger.Debug("Signal prepared", logging.Fields{
		"input_sample_rate": audio.SampleRate,
		"input_channels":    audio.Channels,
		"input_samples":     len(audio.PCM),
		"trim_start":        start,
		"trim_end":          end,
		"output_samples":    len(samples),
		"output_duration":   duration,
	})

	return &common.AudioSignal{
		Samples:    samples,
		SampleRate: p.config.TargetSampleRate,
	}, nil
}

func validate(audio *transcode.AudioData) error {
	if audio == nil {
		return common.NewDecodeError("NO_INPUT", "no audio data", nil)
	}
	if audio.SampleRate <= 0 {
		return common.NewDecodeError("BAD_SAMPLE_RATE", fmt.Sprintf("invalid sample rate %d", audio.SampleRate), nil)
	}
	if audio.Channels <= 0 {
		return common.NewDecodeError("BAD_CHANNELS", fmt.Sprintf("invalid channel count %d", audio.Channels), nil)
	}
	if len(audio.PCM) == 0 {
		return common.NewEmptySignalError("EMPTY", "audio data has no samples")
	}
	if len(audio.PCM)%audio.Channels != 0 {
		return common.NewDecodeError("BAD_LAYOUT",
			fmt.Sprintf("%d samples do not divide into %d channels", len(audio.PCM), audio.Channels), nil)
	}
	for i, s := range audio.PCM {
		if math.IsNaN(s) || math.IsInf(s, 0) {
			return common.NewDecodeError("NON_FINITE_SAMPLE", fmt.Sprintf("sample %d is not finite", i), nil)
		}
	}
	return nil
}

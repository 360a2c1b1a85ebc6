// Package detector classifies a voice recording as AI_GENERATED or HUMAN.
//
// A call prepares the signal, frames it once, runs the spectral, cepstral,
// temporal, pitch and artifact analyzers concurrently over the shared
// frames, merges their feature fragments and fuses them into a
// label-relative confidence.
package detector

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/RyanBlaney/sonido-veraz/detector/analyzers"
	"github.com/RyanBlaney/sonido-veraz/detector/common"
	"github.com/RyanBlaney/sonido-veraz/detector/config"
	"github.com/RyanBlaney/sonido-veraz/detector/fusion"
	"github.com/RyanBlaney/sonido-veraz/detector/prep"
	"github.com/RyanBlaney/sonido-veraz/logging"
	"github.com/RyanBlaney/sonido-veraz/transcode"
)

// analysisNamespace scopes content-derived analysis IDs
var analysisNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/RyanBlaney/sonido-veraz/analysis"))

// Detector runs the full analysis pipeline. It is safe for concurrent use;
// calls share only read-only configuration and analyzers.
type Detector struct {
	config    *config.Config
	preparer  *prep.Preparer
	factory   *analyzers.Factory
	analyzers []analyzers.Analyzer // built for Prep.TargetSampleRate
	fuser     *fusion.Fuser
	logger    logging.Logger
}

// New validates cfg and builds a detector. A nil cfg uses DefaultConfig.
func New(cfg *config.Config) (*Detector, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	preparer, err := prep.NewPreparer(cfg.Prep)
	if err != nil {
		return nil, fmt.Errorf("failed to create signal preparer: %w", err)
	}

	factory := analyzers.NewFactory()
	all, err := factory.CreateAll(cfg, cfg.Prep.TargetSampleRate)
	if err != nil {
		return nil, err
	}

	fuser, err := fusion.NewFuser(cfg.Fusion)
	if err != nil {
		return nil, fmt.Errorf("failed to create score fusion: %w", err)
	}

	return &Detector{
		config:    cfg,
		preparer:  preparer,
		factory:   factory,
		analyzers: all,
		fuser:     fuser,
		logger: logging.WithFields(logging.Fields{
			"component": "voice_detector",
		}),
	}, nil
}

// Config returns the configuration the detector was built with
func (d *Detector) Config() *config.Config {
	return d.config
}

// Analyze prepares decoded audio and classifies it. The language tag is
// returned unchanged on the result.
func (d *Detector) Analyze(ctx context.Context, audio *transcode.AudioData, language string) (*common.ClassificationResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	signal, err := d.preparer.Prepare(audio)
	if err != nil {
		return nil, err
	}

	return d.AnalyzeSignal(ctx, signal, language)
}

// AnalyzeSignal classifies an already prepared mono signal
func (d *Detector) AnalyzeSignal(ctx context.Context, signal *common.AudioSignal, language string) (*common.ClassificationResult, error) {
	if err := checkSignal(signal); err != nil {
		return nil, err
	}

	analysisID := AnalysisID(signal)
	ctx = logging.ContextWithFields(ctx, logging.Fields{
		"analysis_id": analysisID,
	})
	logger := d.logger.WithContext(ctx).WithFields(logging.Fields{
		"function": "AnalyzeSignal",
		"language": language,
	})

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := time.Now()
	logger.Debug("Starting analysis", logging.Fields{
		"samples":     len(signal.Samples),
		"sample_rate": signal.SampleRate,
		"duration":    signal.Seconds(),
	})

	all := d.analyzers
	if signal.SampleRate != d.config.Prep.TargetSampleRate {
		var err error
		all, err = d.factory.CreateAll(d.config, signal.SampleRate)
		if err != nil {
			return nil, err
		}
	}

	frames, err := analyzers.NewFrameSet(signal, d.config.Frames)
	if err != nil {
		return nil, err
	}

	fragments := make([]common.FeatureVector, len(all))
	g, gctx := errgroup.WithContext(ctx)
	for i, analyzer := range all {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			fragment, err := analyzer.Analyze(frames)
			if err != nil {
				return err
			}
			fragments[i] = fragment
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		logger.Error(err, "Analyzer failed")
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	features, err := common.Merge(fragments...)
	if err != nil {
		return nil, err
	}

	result, err := d.fuser.Fuse(features)
	if err != nil {
		return nil, err
	}
	result.Language = language
	result.AnalysisID = analysisID

	logger.Info("Analysis complete", logging.Fields{
		"classification":   result.Classification,
		"confidence_score": result.ConfidenceScore,
		"features":         features.Len(),
		"elapsed_ms":       time.Since(start).Milliseconds(),
	})

	return result, nil
}

// AnalysisID derives a stable identifier from the signal content, so the
// same input always carries the same ID
func AnalysisID(signal *common.AudioSignal) string {
	buf := make([]byte, 8+8*len(signal.Samples))
	binary.LittleEndian.PutUint64(buf, uint64(signal.SampleRate))
	for i, s := range signal.Samples {
		binary.LittleEndian.PutUint64(buf[8+8*i:], math.Float64bits(s))
	}
	return uuid.NewSHA1(analysisNamespace, buf).String()
}

func checkSignal(signal *common.AudioSignal) error {
	if signal == nil || len(signal.Samples) == 0 {
		return common.NewEmptySignalError("EMPTY", "signal has no samples")
	}
	if signal.SampleRate <= 0 {
		return common.NewDecodeError("BAD_SAMPLE_RATE", fmt.Sprintf("invalid sample rate %d", signal.SampleRate), nil)
	}
	for i, s := range signal.Samples {
		if math.IsNaN(s) || math.IsInf(s, 0) {
			return common.NewDecodeError("NON_FINITE_SAMPLE", fmt.Sprintf("sample %d is not finite", i), nil)
		}
	}
	return nil
}
